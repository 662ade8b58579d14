package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"todo-app/internal/domain"
	"todo-app/internal/repository"
)

// username is indexed but deliberately not UNIQUE.
const createAccountsTable = `
CREATE TABLE IF NOT EXISTS accounts (
	id INTEGER PRIMARY KEY,
	username TEXT NOT NULL,
	password_hash TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_accounts_username ON accounts(username);
`

type AccountRepository struct {
	db  *sql.DB
	ids *repository.IDSequence
}

func NewAccountRepository(db *sql.DB, ids *repository.IDSequence) repository.AccountRepository {
	return &AccountRepository{db: db, ids: ids}
}

func (r *AccountRepository) Init(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createAccountsTable); err != nil {
		return fmt.Errorf("create accounts table: %w", err)
	}
	return observeMaxID(ctx, r.db, "accounts", r.ids)
}

func (r *AccountRepository) Create(ctx context.Context, account *domain.Account) (int64, error) {
	if account == nil {
		return 0, fmt.Errorf("account is nil")
	}
	id := r.ids.Next()
	_, err := r.db.ExecContext(ctx, `
INSERT INTO accounts (id, username, password_hash)
VALUES (?, ?, ?)`,
		id,
		account.Username,
		account.PasswordHash,
	)
	if err != nil {
		return 0, fmt.Errorf("insert account: %w", err)
	}
	account.ID = id
	return id, nil
}

func (r *AccountRepository) GetByUsername(ctx context.Context, username string) (*domain.Account, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, username, password_hash
FROM accounts
WHERE username = ?
ORDER BY id ASC
LIMIT 1`,
		username,
	)
	return scanAccount(row)
}

func (r *AccountRepository) List(ctx context.Context) ([]domain.Account, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, username, password_hash
FROM accounts
ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("query accounts: %w", err)
	}
	defer rows.Close()

	accounts := []domain.Account{}
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, *account)
	}
	return accounts, rows.Err()
}

func scanAccount(row interface {
	Scan(dest ...any) error
}) (*domain.Account, error) {
	var account domain.Account
	if err := row.Scan(
		&account.ID,
		&account.Username,
		&account.PasswordHash,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("account: %w", repository.ErrNotFound)
		}
		return nil, fmt.Errorf("scan account: %w", err)
	}
	return &account, nil
}
