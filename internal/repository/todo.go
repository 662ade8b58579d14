package repository

import (
	"context"

	"todo-app/internal/domain"
)

// TodoRepository exposes owner-scoped persistence operations for todos.
// Every mutating call matches on both id and owner.
type TodoRepository interface {
	Init(ctx context.Context) error
	Create(ctx context.Context, todo *domain.Todo) (int64, error)
	ListByOwner(ctx context.Context, ownerID int64) ([]domain.Todo, error)
	// UpdateByIDAndOwner returns ErrNotFound when no todo matches.
	UpdateByIDAndOwner(ctx context.Context, id, ownerID int64, patch domain.TodoPatch) (*domain.Todo, error)
	// DeleteByIDAndOwner is a no-op when no todo matches.
	DeleteByIDAndOwner(ctx context.Context, id, ownerID int64) error
	ListAll(ctx context.Context) ([]domain.Todo, error)
}
