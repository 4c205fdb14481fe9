package validation

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/shaiso/Tracker/internal/domain"
	"github.com/shaiso/Tracker/internal/engine"
)

const (
	// maxResponseBody — максимальный размер читаемого ответа.
	maxResponseBody = 1 * 1024 * 1024 // 1 MB

	// successStatus — значение поля status успешного ответа.
	successStatus = "200"
)

// APIStrategy — проверка через внешний HTTP API.
//
// Плейсхолдеры {{key}} в url и payload_template заменяются
// переменными контекста. Метод по умолчанию POST.
//
// Ожидаемый ответ:
//
//	{"status": "200", "error": ""}
//
// Проверка пройдена, если status равен строке "200". Иначе
// сообщением отказа становится поле error. Ошибки транспорта
// и ответы с кодом не 2xx тоже считаются отказом.
type APIStrategy struct {
	client *http.Client
}

// apiResponse — тело ответа проверяющего API.
type apiResponse struct {
	Status string `json:"status"`
	Error  string `json:"error"`
}

// NewAPIStrategy создаёт новый APIStrategy.
// Таймаут задаётся контекстом вызова (см. Dispatcher).
func NewAPIStrategy(client *http.Client) *APIStrategy {
	if client == nil {
		client = &http.Client{}
	}
	return &APIStrategy{client: client}
}

// Kind возвращает ValidationTypeAPI.
func (s *APIStrategy) Kind() domain.ValidationType {
	return domain.ValidationTypeAPI
}

// Validate выполняет HTTP-запрос и разбирает ответ.
func (s *APIStrategy) Validate(ctx context.Context, vctx Context, v domain.CustomValidation) (Result, error) {
	decoded, err := domain.DecodeValidationData(v.Type, v.Data)
	if err != nil {
		return Result{}, err
	}
	data, ok := decoded.(*domain.APIValidationData)
	if !ok {
		return Result{}, fmt.Errorf("%w: expected API data, got %s", domain.ErrInvalidValidationData, decoded.Type())
	}

	values := vctx.Values()
	url := engine.Render(data.URL, values)
	payload := engine.Render(data.PayloadTemplate, values)

	raw, err := s.call(ctx, data, url, payload)
	if err != nil {
		return Failed(fmt.Sprintf("Error While Calling External url: %s : %v", url, err), raw), nil
	}

	var resp apiResponse
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		return Failed(fmt.Sprintf("Error While Calling External url: %s : invalid response: %v", url, err), raw), nil
	}

	if resp.Status != successStatus {
		return Failed(resp.Error, raw), nil
	}
	return Passed(raw), nil
}

// call отправляет запрос и возвращает тело ответа.
func (s *APIStrategy) call(ctx context.Context, data *domain.APIValidationData, url, payload string) (string, error) {
	method := strings.ToUpper(data.Method)
	if method == "" {
		method = http.MethodPost
	}

	var body io.Reader
	if payload != "" {
		body = strings.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}

	setHeaders(req, data.Headers, data.Scheme())

	// Content-Type по умолчанию для запросов с body
	if body != nil && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return string(respBody), fmt.Errorf("HTTP %d: %s", resp.StatusCode, truncate(string(respBody), 200))
	}

	return string(respBody), nil
}

// setHeaders устанавливает заголовки запроса.
// Authorization без схемы дополняется scheme (APIValidationData.Scheme).
func setHeaders(req *http.Request, headers map[string]string, scheme string) {
	for key, val := range headers {
		if strings.EqualFold(key, "Authorization") && !strings.Contains(val, " ") {
			val = scheme + " " + val
		}
		req.Header.Set(key, val)
	}
}

// truncate обрезает строку до указанной длины.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
