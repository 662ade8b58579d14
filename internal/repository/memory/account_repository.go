package memory

import (
	"context"
	"fmt"
	"sync"

	"todo-app/internal/domain"
	"todo-app/internal/repository"
)

// AccountRepository keeps accounts in process memory for the lifetime of the server.
type AccountRepository struct {
	mu       sync.RWMutex
	ids      *repository.IDSequence
	accounts []domain.Account
}

func NewAccountRepository(ids *repository.IDSequence) repository.AccountRepository {
	return &AccountRepository{ids: ids}
}

func (r *AccountRepository) Init(ctx context.Context) error {
	return nil
}

func (r *AccountRepository) Create(ctx context.Context, account *domain.Account) (int64, error) {
	if account == nil {
		return 0, fmt.Errorf("account is nil")
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	account.ID = r.ids.Next()
	r.accounts = append(r.accounts, *account)
	return account.ID, nil
}

func (r *AccountRepository) GetByUsername(ctx context.Context, username string) (*domain.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for i := range r.accounts {
		if r.accounts[i].Username == username {
			account := r.accounts[i]
			return &account, nil
		}
	}
	return nil, fmt.Errorf("account %q: %w", username, repository.ErrNotFound)
}

func (r *AccountRepository) List(ctx context.Context) ([]domain.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.Account, len(r.accounts))
	copy(out, r.accounts)
	return out, nil
}
