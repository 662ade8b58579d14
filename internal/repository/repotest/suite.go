// Package repotest holds behaviour checks shared by every repository backend.
package repotest

import (
	"context"
	"errors"
	"testing"

	"todo-app/internal/domain"
	"todo-app/internal/repository"
)

// Factory builds a fresh, initialised pair of repositories for one subtest.
type Factory func(t *testing.T) (repository.AccountRepository, repository.TodoRepository)

// Run exercises the account and todo contracts against the backend built by newRepos.
func Run(t *testing.T, newRepos Factory) {
	t.Helper()

	t.Run("AccountDuplicateUsernames", func(t *testing.T) {
		accounts, _ := newRepos(t)
		ctx := context.Background()

		first := &domain.Account{Username: "alice", PasswordHash: "h1"}
		second := &domain.Account{Username: "alice", PasswordHash: "h2"}
		if _, err := accounts.Create(ctx, first); err != nil {
			t.Fatalf("create first: %v", err)
		}
		if _, err := accounts.Create(ctx, second); err != nil {
			t.Fatalf("create duplicate: %v", err)
		}
		if first.ID == second.ID {
			t.Fatalf("duplicate ids: %d", first.ID)
		}

		got, err := accounts.GetByUsername(ctx, "alice")
		if err != nil {
			t.Fatalf("get by username: %v", err)
		}
		if got.ID != first.ID || got.PasswordHash != "h1" {
			t.Fatalf("expected first registered account, got %#v", got)
		}

		all, err := accounts.List(ctx)
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(all) != 2 {
			t.Fatalf("list length = %d, want 2", len(all))
		}
	})

	t.Run("AccountNotFound", func(t *testing.T) {
		accounts, _ := newRepos(t)
		_, err := accounts.GetByUsername(context.Background(), "nobody")
		if !errors.Is(err, repository.ErrNotFound) {
			t.Fatalf("err = %v, want ErrNotFound", err)
		}
	})

	t.Run("TodoRoundTrip", func(t *testing.T) {
		_, todos := newRepos(t)
		ctx := context.Background()

		todo := &domain.Todo{OwnerID: 7, Text: "buy milk"}
		if _, err := todos.Create(ctx, todo); err != nil {
			t.Fatalf("create: %v", err)
		}

		list, err := todos.ListByOwner(ctx, 7)
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(list) != 1 {
			t.Fatalf("list length = %d, want 1", len(list))
		}
		if list[0].ID != todo.ID || list[0].Text != "buy milk" || list[0].Completed {
			t.Fatalf("unexpected todo: %#v", list[0])
		}
	})

	t.Run("TodoListEmptyIsNotNil", func(t *testing.T) {
		_, todos := newRepos(t)
		list, err := todos.ListByOwner(context.Background(), 1)
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if list == nil || len(list) != 0 {
			t.Fatalf("expected empty non-nil slice, got %#v", list)
		}
	})

	t.Run("TodoInsertionOrder", func(t *testing.T) {
		_, todos := newRepos(t)
		ctx := context.Background()
		for _, text := range []string{"a", "b", "c"} {
			if _, err := todos.Create(ctx, &domain.Todo{OwnerID: 1, Text: text}); err != nil {
				t.Fatalf("create %s: %v", text, err)
			}
		}
		list, err := todos.ListByOwner(ctx, 1)
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(list) != 3 || list[0].Text != "a" || list[1].Text != "b" || list[2].Text != "c" {
			t.Fatalf("unexpected order: %#v", list)
		}
	})

	t.Run("TodoOwnerIsolation", func(t *testing.T) {
		_, todos := newRepos(t)
		ctx := context.Background()

		owned := &domain.Todo{OwnerID: 1, Text: "mine"}
		if _, err := todos.Create(ctx, owned); err != nil {
			t.Fatalf("create: %v", err)
		}

		list, err := todos.ListByOwner(ctx, 2)
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(list) != 0 {
			t.Fatalf("owner 2 sees %d todos", len(list))
		}

		done := true
		if _, err := todos.UpdateByIDAndOwner(ctx, owned.ID, 2, domain.TodoPatch{Completed: &done}); !errors.Is(err, repository.ErrNotFound) {
			t.Fatalf("foreign update err = %v, want ErrNotFound", err)
		}
		if err := todos.DeleteByIDAndOwner(ctx, owned.ID, 2); err != nil {
			t.Fatalf("foreign delete: %v", err)
		}

		list, err = todos.ListByOwner(ctx, 1)
		if err != nil {
			t.Fatalf("list owner 1: %v", err)
		}
		if len(list) != 1 || list[0].Completed {
			t.Fatalf("owner 1 todo changed: %#v", list)
		}
	})

	t.Run("TodoUpdateOnlyTarget", func(t *testing.T) {
		_, todos := newRepos(t)
		ctx := context.Background()

		first := &domain.Todo{OwnerID: 1, Text: "first"}
		second := &domain.Todo{OwnerID: 1, Text: "second"}
		for _, todo := range []*domain.Todo{first, second} {
			if _, err := todos.Create(ctx, todo); err != nil {
				t.Fatalf("create: %v", err)
			}
		}

		done := true
		updated, err := todos.UpdateByIDAndOwner(ctx, second.ID, 1, domain.TodoPatch{Completed: &done})
		if err != nil {
			t.Fatalf("update: %v", err)
		}
		if !updated.Completed || updated.Text != "second" || updated.ID != second.ID || updated.OwnerID != 1 {
			t.Fatalf("unexpected updated todo: %#v", updated)
		}

		list, err := todos.ListByOwner(ctx, 1)
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		want := []domain.Todo{
			{ID: first.ID, OwnerID: 1, Text: "first"},
			{ID: second.ID, OwnerID: 1, Text: "second", Completed: true},
		}
		if len(list) != len(want) {
			t.Fatalf("list length = %d, want %d", len(list), len(want))
		}
		for i := range want {
			if list[i] != want[i] {
				t.Fatalf("list[%d] = %#v, want %#v", i, list[i], want[i])
			}
		}
	})

	t.Run("TodoUpdateText", func(t *testing.T) {
		_, todos := newRepos(t)
		ctx := context.Background()

		todo := &domain.Todo{OwnerID: 3, Text: "old"}
		if _, err := todos.Create(ctx, todo); err != nil {
			t.Fatalf("create: %v", err)
		}
		text := "new"
		updated, err := todos.UpdateByIDAndOwner(ctx, todo.ID, 3, domain.TodoPatch{Text: &text})
		if err != nil {
			t.Fatalf("update: %v", err)
		}
		if updated.Text != "new" || updated.Completed {
			t.Fatalf("unexpected todo: %#v", updated)
		}
	})

	t.Run("TodoDeleteMissingIsNoop", func(t *testing.T) {
		_, todos := newRepos(t)
		ctx := context.Background()

		todo := &domain.Todo{OwnerID: 1, Text: "keep"}
		if _, err := todos.Create(ctx, todo); err != nil {
			t.Fatalf("create: %v", err)
		}
		if err := todos.DeleteByIDAndOwner(ctx, todo.ID+12345, 1); err != nil {
			t.Fatalf("delete missing: %v", err)
		}

		all, err := todos.ListAll(ctx)
		if err != nil {
			t.Fatalf("list all: %v", err)
		}
		if len(all) != 1 || all[0] != *todo {
			t.Fatalf("store changed: %#v", all)
		}
	})

	t.Run("TodoDelete", func(t *testing.T) {
		_, todos := newRepos(t)
		ctx := context.Background()

		todo := &domain.Todo{OwnerID: 1, Text: "gone"}
		if _, err := todos.Create(ctx, todo); err != nil {
			t.Fatalf("create: %v", err)
		}
		if err := todos.DeleteByIDAndOwner(ctx, todo.ID, 1); err != nil {
			t.Fatalf("delete: %v", err)
		}
		list, err := todos.ListByOwner(ctx, 1)
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(list) != 0 {
			t.Fatalf("todo not deleted: %#v", list)
		}
	})
}
