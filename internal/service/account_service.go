package service

import (
	"context"
	"errors"
	"fmt"

	"todo-app/internal/auth"
	"todo-app/internal/domain"
	"todo-app/internal/repository"
)

var (
	// ErrAccountNotFound indicates no account is registered under the username.
	ErrAccountNotFound = errors.New("cannot find user")
	// ErrInvalidCredentials indicates the password does not match the account.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// AccountService describes registration and login.
type AccountService interface {
	Register(ctx context.Context, username, password string) (*domain.Account, error)
	Authenticate(ctx context.Context, username, password string) (*domain.Account, error)
}

type accountService struct {
	accounts repository.AccountRepository
	hasher   auth.PasswordHasher
}

func NewAccountService(accounts repository.AccountRepository, hasher auth.PasswordHasher) AccountService {
	return &accountService{
		accounts: accounts,
		hasher:   hasher,
	}
}

// Register always creates a new account; duplicate usernames are accepted.
func (s *accountService) Register(ctx context.Context, username, password string) (*domain.Account, error) {
	hash, err := s.hasher.Hash(ctx, password)
	if err != nil {
		return nil, err
	}

	account := &domain.Account{
		Username:     username,
		PasswordHash: hash,
	}
	if _, err := s.accounts.Create(ctx, account); err != nil {
		return nil, fmt.Errorf("create account: %w", err)
	}
	return sanitizeAccount(account), nil
}

func (s *accountService) Authenticate(ctx context.Context, username, password string) (*domain.Account, error) {
	account, err := s.accounts.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("find account: %w", err)
	}

	if !s.hasher.Verify(ctx, password, account.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	return sanitizeAccount(account), nil
}

func sanitizeAccount(account *domain.Account) *domain.Account {
	if account == nil {
		return nil
	}
	return &domain.Account{
		ID:       account.ID,
		Username: account.Username,
	}
}
