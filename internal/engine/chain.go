package engine

import (
	"fmt"

	"github.com/shaiso/Tracker/internal/domain"
)

// Chain — индекс цепочки шагов workflow.
//
// Шаг хранит только ссылку на следующий шаг. Обратные ссылки
// (кто ссылается на шаг) вычисляются здесь по индексу.
type Chain struct {
	steps []domain.WorkflowStep

	// next[i] — индекс следующего шага или -1 для терминального.
	next []int

	// inDegree[i] — количество шагов, ссылающихся на шаг i.
	inDegree []int
}

// NewChain строит индекс цепочки.
//
// Ссылка берётся из NextStepID (сохранённые шаги), а если он не задан,
// из NextPosition (шаги до сохранения).
func NewChain(steps []domain.WorkflowStep) (*Chain, error) {
	c := &Chain{
		steps:    steps,
		next:     make([]int, len(steps)),
		inDegree: make([]int, len(steps)),
	}

	byID := make(map[int64]int, len(steps))
	for i := range steps {
		if steps[i].ID != 0 {
			byID[steps[i].ID] = i
		}
	}

	for i := range steps {
		s := &steps[i]
		c.next[i] = -1

		switch {
		case s.NextStepID != nil:
			j, ok := byID[*s.NextStepID]
			if !ok {
				return nil, fmt.Errorf("%w: step %q -> id %d", ErrDanglingSuccessor, s.Name, *s.NextStepID)
			}
			c.next[i] = j
		case s.NextPosition != nil:
			j := *s.NextPosition
			if j < 0 || j >= len(steps) {
				return nil, fmt.Errorf("%w: step %q -> position %d", ErrDanglingSuccessor, s.Name, j)
			}
			c.next[i] = j
		}

		if c.next[i] >= 0 {
			c.inDegree[c.next[i]]++
		}
	}

	return c, nil
}

// Root возвращает индекс единственного шага без входящих ссылок.
func (c *Chain) Root() (int, error) {
	root := -1
	for i, d := range c.inDegree {
		if d != 0 {
			continue
		}
		if root >= 0 {
			return -1, fmt.Errorf("%w: %q and %q", ErrMultipleRoots, c.steps[root].Name, c.steps[i].Name)
		}
		root = i
	}
	if root < 0 {
		return -1, ErrNoRoot
	}
	return root, nil
}

// FindRoot возвращает шаг, с которого начинается процесс.
//
// Корень — единственный шаг, на который не ссылается ни один другой шаг.
func FindRoot(steps []domain.WorkflowStep) (*domain.WorkflowStep, error) {
	if len(steps) == 0 {
		return nil, ErrEmptySteps
	}

	c, err := NewChain(steps)
	if err != nil {
		return nil, err
	}

	root, err := c.Root()
	if err != nil {
		return nil, err
	}
	return &steps[root], nil
}

// Walk обходит цепочку от корня до терминального шага.
//
// Возвращает шаги в порядке обхода. Ошибка, если цепочка замкнута,
// ссылается за пределы workflow или не посещает все шаги.
func Walk(steps []domain.WorkflowStep) ([]*domain.WorkflowStep, error) {
	if len(steps) == 0 {
		return nil, ErrEmptySteps
	}

	c, err := NewChain(steps)
	if err != nil {
		return nil, err
	}

	root, err := c.Root()
	if err != nil {
		return nil, err
	}

	visited := make([]bool, len(steps))
	order := make([]*domain.WorkflowStep, 0, len(steps))

	for i := root; i >= 0; i = c.next[i] {
		if visited[i] {
			return nil, fmt.Errorf("%w: at step %q", ErrCycle, steps[i].Name)
		}
		visited[i] = true
		order = append(order, &steps[i])
	}

	if len(order) != len(steps) {
		for i := range steps {
			if !visited[i] {
				return nil, fmt.Errorf("%w: %q", ErrUnreachableStep, steps[i].Name)
			}
		}
	}

	return order, nil
}
