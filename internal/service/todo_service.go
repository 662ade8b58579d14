package service

import (
	"context"
	"errors"

	"todo-app/internal/domain"
	"todo-app/internal/repository"
)

// ErrTodoNotFound is returned when no todo matches both id and owner.
var ErrTodoNotFound = errors.New("todo not found")

// TodoService exposes the owner-scoped todo operations. ownerID always comes
// from the authenticated identity, never from request data.
type TodoService interface {
	List(ctx context.Context, ownerID int64) ([]domain.Todo, error)
	Add(ctx context.Context, ownerID int64, text string) (*domain.Todo, error)
	Update(ctx context.Context, id, ownerID int64, patch domain.TodoPatch) (*domain.Todo, error)
	Delete(ctx context.Context, id, ownerID int64) error
}

type todoService struct {
	todos repository.TodoRepository
}

func NewTodoService(todos repository.TodoRepository) TodoService {
	return &todoService{todos: todos}
}

func (s *todoService) List(ctx context.Context, ownerID int64) ([]domain.Todo, error) {
	return s.todos.ListByOwner(ctx, ownerID)
}

func (s *todoService) Add(ctx context.Context, ownerID int64, text string) (*domain.Todo, error) {
	todo := &domain.Todo{
		OwnerID:   ownerID,
		Text:      text,
		Completed: false,
	}
	if _, err := s.todos.Create(ctx, todo); err != nil {
		return nil, err
	}
	return todo, nil
}

func (s *todoService) Update(ctx context.Context, id, ownerID int64, patch domain.TodoPatch) (*domain.Todo, error) {
	todo, err := s.todos.UpdateByIDAndOwner(ctx, id, ownerID, patch)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrTodoNotFound
		}
		return nil, err
	}
	return todo, nil
}

func (s *todoService) Delete(ctx context.Context, id, ownerID int64) error {
	return s.todos.DeleteByIDAndOwner(ctx, id, ownerID)
}
