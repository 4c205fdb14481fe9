package validation

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/shaiso/Tracker/internal/domain"
	"github.com/shaiso/Tracker/internal/telemetry"
)

// Default configuration values.
const (
	defaultTimeout = 5 * time.Second
)

// LogStore — журнал результатов проверок.
type LogStore interface {
	Append(ctx context.Context, log *domain.ValidationLog) error
}

// StrategyConfig — зависимости стандартных стратегий.
type StrategyConfig struct {
	// HTTPClient — клиент для APIStrategy (default: &http.Client{}).
	HTTPClient *http.Client

	// Databases — подключения для DatabaseStrategy по имени.
	Databases map[string]Querier
}

// Dispatcher запускает проверки шага.
//
// Для каждой проверки:
//   - находит стратегию по типу
//   - выполняет её с ограничением по времени
//   - пишет ValidationLog (и при успехе, и при отказе)
type Dispatcher struct {
	registry *Registry
	logs     LogStore
	timeout  time.Duration
	logger   *slog.Logger
}

// Config — конфигурация Dispatcher.
type Config struct {
	Registry *Registry
	Logs     LogStore

	// Timeout — ограничение на одну проверку (default: 5s).
	Timeout time.Duration

	Logger *slog.Logger
}

// NewDispatcher создаёт новый Dispatcher.
func NewDispatcher(cfg Config) *Dispatcher {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	registry := cfg.Registry
	if registry == nil {
		registry = NewRegistry()
	}

	return &Dispatcher{
		registry: registry,
		logs:     cfg.Logs,
		timeout:  timeout,
		logger:   logger,
	}
}

// Validate выполняет одну проверку.
//
// Отказ проверки (в том числе отсутствие стратегии, таймаут и
// некорректная конфигурация) возвращается как Result.
// Ошибка возвращается только если не удалось записать ValidationLog.
func (d *Dispatcher) Validate(ctx context.Context, v domain.CustomValidation, vctx Context) (Result, error) {
	logger := d.logger.With(
		"process_id", vctx.ProcessID,
		"step_id", vctx.StepID,
		"validation_id", v.ID,
		"validation_type", v.Type,
	)

	result := d.run(ctx, v, vctx)

	outcome := "passed"
	if !result.Success {
		outcome = "failed"
	}
	telemetry.ValidationsTotal.WithLabelValues(string(v.Type), outcome).Inc()

	if d.logs != nil {
		entry := &domain.ValidationLog{
			ProcessID:    vctx.ProcessID,
			StepID:       vctx.StepID,
			IsSuccess:    result.Success,
			ErrorMessage: result.Message,
			RawResponse:  result.RawResponse,
			ValidatedAt:  time.Now().UTC(),
		}
		if err := d.logs.Append(ctx, entry); err != nil {
			logger.Error("failed to write validation log", "error", err)
			return result, fmt.Errorf("append validation log: %w", err)
		}
	}

	if result.Success {
		logger.Debug("validation passed")
	} else {
		logger.Info("validation failed", "message", result.Message)
	}

	return result, nil
}

// run находит стратегию и выполняет её.
func (d *Dispatcher) run(ctx context.Context, v domain.CustomValidation, vctx Context) Result {
	strategy, err := d.registry.Get(v.Type)
	if err != nil {
		return Failed(fmt.Sprintf("no validator registered for type %s", v.Type), "")
	}

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	start := time.Now()
	result, err := strategy.Validate(ctx, vctx, v)
	telemetry.ValidationDuration.WithLabelValues(string(v.Type)).Observe(time.Since(start).Seconds())

	if err != nil {
		return Failed(err.Error(), "")
	}
	return result
}

// ValidateAll выполняет проверки шага в порядке объявления.
//
// Останавливается на первом отказе и возвращает *FailedError.
// Пустой список проверок всегда проходит.
func (d *Dispatcher) ValidateAll(ctx context.Context, validations []domain.CustomValidation, vctx Context) error {
	for _, v := range validations {
		result, err := d.Validate(ctx, v, vctx)
		if err != nil {
			return err
		}
		if !result.Success {
			return &FailedError{
				ValidationID: v.ID,
				Type:         string(v.Type),
				Message:      result.Message,
			}
		}
	}
	return nil
}
