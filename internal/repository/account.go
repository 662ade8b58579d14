package repository

import (
	"context"
	"errors"

	"todo-app/internal/domain"
)

// ErrNotFound is returned when no record matches a lookup.
var ErrNotFound = errors.New("record not found")

// AccountRepository defines persistence operations for Account entities.
// Usernames are not unique; Create never rejects a duplicate.
type AccountRepository interface {
	Init(ctx context.Context) error
	Create(ctx context.Context, account *domain.Account) (int64, error)
	// GetByUsername returns the earliest registered account with the given name.
	GetByUsername(ctx context.Context, username string) (*domain.Account, error)
	List(ctx context.Context) ([]domain.Account, error)
}
