// Command todo is a terminal client for the todo API.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"todo-app/internal/client"
)

const usage = `usage: todo [--server URL] [--token-file PATH] <command> [args]

commands:
  register -u USER -p PASS   create an account
  login -u USER -p PASS      log in and remember the token
  list                       show your todos
  add TEXT...                add a todo
  toggle ID                  flip a todo between done and not done
  done ID                    mark a todo done
  rm ID                      delete a todo
  logout                     forget the stored token
`

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "todo:", err)
		os.Exit(1)
	}
}

func run(args []string, out io.Writer) error {
	global := pflag.NewFlagSet("todo", pflag.ContinueOnError)
	global.SetInterspersed(false)
	server := global.String("server", envOr("TODO_SERVER", "http://localhost:5000/api"), "API base URL")
	tokenFile := global.String("token-file", "", "where the access token is kept")
	global.Usage = func() { fmt.Fprint(out, usage) }
	if err := global.Parse(args); err != nil {
		return err
	}

	rest := global.Args()
	if len(rest) == 0 {
		global.Usage()
		return errors.New("missing command")
	}

	path := *tokenFile
	if path == "" {
		var err error
		if path, err = client.DefaultTokenPath(); err != nil {
			return err
		}
	}
	session := client.NewSession(client.New(*server, nil), client.NewTokenStore(path))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	err := dispatch(ctx, session, rest[0], rest[1:], out)
	switch {
	case errors.Is(err, client.ErrForbidden):
		return errors.New("session expired or invalid; run `todo login` again")
	case errors.Is(err, client.ErrUnauthenticated):
		return errors.New("not logged in; run `todo login` first")
	}
	return err
}

func dispatch(ctx context.Context, session *client.Session, cmd string, args []string, out io.Writer) error {
	switch cmd {
	case "register", "login":
		fs := pflag.NewFlagSet(cmd, pflag.ContinueOnError)
		username := fs.StringP("username", "u", "", "account name")
		password := fs.StringP("password", "p", "", "account password")
		if err := fs.Parse(args); err != nil {
			return err
		}
		if *username == "" {
			return errors.New("--username is required")
		}
		if cmd == "register" {
			if err := session.Register(ctx, *username, *password); err != nil {
				return err
			}
			fmt.Fprintln(out, "Registration successful! Please login.")
			return nil
		}
		if err := session.Login(ctx, *username, *password); err != nil {
			if errors.Is(err, client.ErrNotAllowed) {
				return errors.New("login failed, please check your credentials")
			}
			return err
		}
		fmt.Fprintf(out, "logged in as %s\n", *username)
		return nil

	case "logout":
		return session.Logout()

	case "list":
		return session.Do(ctx, func(ctx context.Context, c *client.Client) error {
			todos, err := c.List(ctx)
			if err != nil {
				return err
			}
			printTodos(out, todos)
			return nil
		})

	case "add":
		text := strings.TrimSpace(strings.Join(args, " "))
		if text == "" {
			return errors.New("nothing to add")
		}
		return session.Do(ctx, func(ctx context.Context, c *client.Client) error {
			todo, err := c.Add(ctx, text)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "added %d\n", todo.ID)
			return nil
		})

	case "toggle", "done", "rm":
		if len(args) != 1 {
			return fmt.Errorf("%s takes exactly one todo id", cmd)
		}
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid todo id %q", args[0])
		}
		return session.Do(ctx, func(ctx context.Context, c *client.Client) error {
			switch cmd {
			case "rm":
				return c.Delete(ctx, id)
			case "done":
				_, err := c.SetCompleted(ctx, id, true)
				return err
			default:
				_, err := c.Toggle(ctx, id)
				return err
			}
		})
	}
	return fmt.Errorf("unknown command %q", cmd)
}

func printTodos(out io.Writer, todos []client.Todo) {
	if len(todos) == 0 {
		fmt.Fprintln(out, "no todos")
		return
	}
	for _, todo := range todos {
		mark := " "
		if todo.Completed {
			mark = "x"
		}
		fmt.Fprintf(out, "[%s] %d  %s\n", mark, todo.ID, todo.Text)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
