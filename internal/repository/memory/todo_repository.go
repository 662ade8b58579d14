package memory

import (
	"context"
	"fmt"
	"sync"

	"todo-app/internal/domain"
	"todo-app/internal/repository"
)

// TodoRepository stores todos in insertion order behind a RWMutex.
type TodoRepository struct {
	mu    sync.RWMutex
	ids   *repository.IDSequence
	todos []domain.Todo
}

func NewTodoRepository(ids *repository.IDSequence) repository.TodoRepository {
	return &TodoRepository{ids: ids}
}

func (r *TodoRepository) Init(ctx context.Context) error {
	return nil
}

func (r *TodoRepository) Create(ctx context.Context, todo *domain.Todo) (int64, error) {
	if todo == nil {
		return 0, fmt.Errorf("todo is nil")
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	todo.ID = r.ids.Next()
	r.todos = append(r.todos, *todo)
	return todo.ID, nil
}

func (r *TodoRepository) ListByOwner(ctx context.Context, ownerID int64) ([]domain.Todo, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := []domain.Todo{}
	for _, todo := range r.todos {
		if todo.OwnerID == ownerID {
			out = append(out, todo)
		}
	}
	return out, nil
}

func (r *TodoRepository) UpdateByIDAndOwner(ctx context.Context, id, ownerID int64, patch domain.TodoPatch) (*domain.Todo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.todos {
		if r.todos[i].ID == id && r.todos[i].OwnerID == ownerID {
			patch.Apply(&r.todos[i])
			updated := r.todos[i]
			return &updated, nil
		}
	}
	return nil, fmt.Errorf("todo %d: %w", id, repository.ErrNotFound)
}

func (r *TodoRepository) DeleteByIDAndOwner(ctx context.Context, id, ownerID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	kept := r.todos[:0]
	for _, todo := range r.todos {
		if todo.ID == id && todo.OwnerID == ownerID {
			continue
		}
		kept = append(kept, todo)
	}
	r.todos = kept
	return nil
}

func (r *TodoRepository) ListAll(ctx context.Context) ([]domain.Todo, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.Todo, len(r.todos))
	copy(out, r.todos)
	return out, nil
}
