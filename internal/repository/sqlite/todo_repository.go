package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"todo-app/internal/domain"
	"todo-app/internal/repository"
)

const createTodosTable = `
CREATE TABLE IF NOT EXISTS todos (
	id INTEGER PRIMARY KEY,
	owner_id INTEGER NOT NULL,
	text TEXT NOT NULL DEFAULT '',
	completed INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_todos_owner_id ON todos(owner_id);
`

type TodoRepository struct {
	db  *sql.DB
	ids *repository.IDSequence
}

func NewTodoRepository(db *sql.DB, ids *repository.IDSequence) repository.TodoRepository {
	return &TodoRepository{db: db, ids: ids}
}

func (r *TodoRepository) Init(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createTodosTable); err != nil {
		return fmt.Errorf("create todos table: %w", err)
	}
	return observeMaxID(ctx, r.db, "todos", r.ids)
}

func (r *TodoRepository) Create(ctx context.Context, todo *domain.Todo) (int64, error) {
	if todo == nil {
		return 0, fmt.Errorf("todo is nil")
	}
	id := r.ids.Next()
	_, err := r.db.ExecContext(ctx, `
INSERT INTO todos (id, owner_id, text, completed)
VALUES (?, ?, ?, ?)`,
		id,
		todo.OwnerID,
		todo.Text,
		todo.Completed,
	)
	if err != nil {
		return 0, fmt.Errorf("insert todo: %w", err)
	}
	todo.ID = id
	return id, nil
}

func (r *TodoRepository) ListByOwner(ctx context.Context, ownerID int64) ([]domain.Todo, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, owner_id, text, completed
FROM todos
WHERE owner_id = ?
ORDER BY id ASC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("query todos: %w", err)
	}
	defer rows.Close()
	return collectTodos(rows)
}

func (r *TodoRepository) UpdateByIDAndOwner(ctx context.Context, id, ownerID int64, patch domain.TodoPatch) (*domain.Todo, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx, `
SELECT id, owner_id, text, completed
FROM todos
WHERE id = ? AND owner_id = ?`,
		id,
		ownerID,
	)
	todo, err := scanTodo(row)
	if err != nil {
		return nil, err
	}

	patch.Apply(todo)
	if _, err := tx.ExecContext(ctx, `
UPDATE todos
SET text=?, completed=?
WHERE id=? AND owner_id=?`,
		todo.Text,
		todo.Completed,
		id,
		ownerID,
	); err != nil {
		return nil, fmt.Errorf("update todo: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit todo update: %w", err)
	}
	return todo, nil
}

func (r *TodoRepository) DeleteByIDAndOwner(ctx context.Context, id, ownerID int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM todos WHERE id=? AND owner_id=?`, id, ownerID); err != nil {
		return fmt.Errorf("delete todo: %w", err)
	}
	return nil
}

func (r *TodoRepository) ListAll(ctx context.Context) ([]domain.Todo, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, owner_id, text, completed
FROM todos
ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("query todos: %w", err)
	}
	defer rows.Close()
	return collectTodos(rows)
}

func collectTodos(rows *sql.Rows) ([]domain.Todo, error) {
	todos := []domain.Todo{}
	for rows.Next() {
		todo, err := scanTodo(rows)
		if err != nil {
			return nil, err
		}
		todos = append(todos, *todo)
	}
	return todos, rows.Err()
}

func scanTodo(scanner interface {
	Scan(dest ...any) error
}) (*domain.Todo, error) {
	var todo domain.Todo
	if err := scanner.Scan(
		&todo.ID,
		&todo.OwnerID,
		&todo.Text,
		&todo.Completed,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("todo: %w", repository.ErrNotFound)
		}
		return nil, fmt.Errorf("scan todo: %w", err)
	}
	return &todo, nil
}
