package validation

import (
	"fmt"
	"sort"
	"sync"

	"github.com/shaiso/Tracker/internal/domain"
)

// Registry — реестр стратегий проверок.
//
// Позволяет регистрировать и получать Strategy по типу проверки.
// Потокобезопасен.
type Registry struct {
	mu         sync.RWMutex
	strategies map[domain.ValidationType]Strategy
}

// NewRegistry создаёт пустой реестр.
func NewRegistry() *Registry {
	return &Registry{
		strategies: make(map[domain.ValidationType]Strategy),
	}
}

// DefaultRegistry создаёт реестр со всеми стандартными стратегиями.
func DefaultRegistry(cfg StrategyConfig) *Registry {
	r := NewRegistry()

	r.Register(NewAPIStrategy(cfg.HTTPClient))
	r.Register(NewDatabaseStrategy(cfg.Databases))
	r.Register(NewExpressionStrategy())

	return r
}

// Register регистрирует стратегию в реестре.
// Если стратегия с таким типом уже существует, она будет перезаписана.
func (r *Registry) Register(s Strategy) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.strategies[s.Kind()] = s
}

// Get возвращает стратегию по типу.
// Возвращает ErrStrategyNotFound, если стратегия не найдена.
func (r *Registry) Get(kind domain.ValidationType) (Strategy, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, exists := r.strategies[kind]
	if !exists {
		return nil, fmt.Errorf("%w for type %s", ErrStrategyNotFound, kind)
	}

	return s, nil
}

// Has проверяет, зарегистрирована ли стратегия.
func (r *Registry) Has(kind domain.ValidationType) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, exists := r.strategies[kind]
	return exists
}

// Kinds возвращает список всех зарегистрированных типов.
func (r *Registry) Kinds() []domain.ValidationType {
	r.mu.RLock()
	defer r.mu.RUnlock()

	kinds := make([]domain.ValidationType, 0, len(r.strategies))
	for k := range r.strategies {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

// Missing возвращает известные типы проверок без стратегии.
// tracker-api пишет их в лог при старте.
func (r *Registry) Missing() []domain.ValidationType {
	var missing []domain.ValidationType
	for _, k := range domain.ValidationTypes() {
		if !r.Has(k) {
			missing = append(missing, k)
		}
	}
	return missing
}
