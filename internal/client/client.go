package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

var (
	// ErrUnauthenticated means the server saw no token.
	ErrUnauthenticated = errors.New("not logged in")
	// ErrForbidden means the stored token was rejected; it should be discarded.
	ErrForbidden = errors.New("token rejected")
	// ErrNotAllowed means login was refused for a wrong password.
	ErrNotAllowed = errors.New("not allowed")
	ErrNotFound   = errors.New("todo not found")
)

type Todo struct {
	ID        int64  `json:"id"`
	UserID    int64  `json:"userId"`
	Text      string `json:"text"`
	Completed bool   `json:"completed"`
}

// Client talks to the todo API rooted at BaseURL (for example http://localhost:5000/api).
type Client struct {
	baseURL string
	http    *http.Client
	token   string
}

func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
	}
}

func (c *Client) SetToken(token string) {
	c.token = token
}

func (c *Client) Register(ctx context.Context, username, password string) error {
	resp, body, err := c.do(ctx, http.MethodPost, "/register", map[string]string{"username": username, "password": password})
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusCreated {
		return statusError(resp, body)
	}
	return nil
}

// Login returns the access token; it does not store it.
func (c *Client) Login(ctx context.Context, username, password string) (string, error) {
	resp, body, err := c.do(ctx, http.MethodPost, "/login", map[string]string{"username": username, "password": password})
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", statusError(resp, body)
	}

	var out struct {
		AccessToken string `json:"accessToken"`
	}
	if err := json.Unmarshal(body, &out); err != nil || out.AccessToken == "" {
		if strings.TrimSpace(string(body)) == "Not Allowed" {
			return "", ErrNotAllowed
		}
		return "", fmt.Errorf("unexpected login response %q", string(body))
	}
	return out.AccessToken, nil
}

func (c *Client) List(ctx context.Context) ([]Todo, error) {
	resp, body, err := c.do(ctx, http.MethodGet, "/todos", nil)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, statusError(resp, body)
	}
	var todos []Todo
	if err := json.Unmarshal(body, &todos); err != nil {
		return nil, fmt.Errorf("decode todos: %w", err)
	}
	return todos, nil
}

func (c *Client) Add(ctx context.Context, text string) (*Todo, error) {
	resp, body, err := c.do(ctx, http.MethodPost, "/todos", map[string]string{"text": text})
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusCreated {
		return nil, statusError(resp, body)
	}
	var todo Todo
	if err := json.Unmarshal(body, &todo); err != nil {
		return nil, fmt.Errorf("decode todo: %w", err)
	}
	return &todo, nil
}

func (c *Client) SetCompleted(ctx context.Context, id int64, completed bool) (*Todo, error) {
	resp, body, err := c.do(ctx, http.MethodPut, fmt.Sprintf("/todos/%d", id), map[string]bool{"completed": completed})
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, statusError(resp, body)
	}
	var todo Todo
	if err := json.Unmarshal(body, &todo); err != nil {
		return nil, fmt.Errorf("decode todo: %w", err)
	}
	return &todo, nil
}

// Toggle flips the completed flag of the todo with the given id.
func (c *Client) Toggle(ctx context.Context, id int64) (*Todo, error) {
	todos, err := c.List(ctx)
	if err != nil {
		return nil, err
	}
	for _, todo := range todos {
		if todo.ID == id {
			return c.SetCompleted(ctx, id, !todo.Completed)
		}
	}
	return nil, ErrNotFound
}

func (c *Client) Delete(ctx context.Context, id int64) error {
	resp, body, err := c.do(ctx, http.MethodDelete, fmt.Sprintf("/todos/%d", id), nil)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusNoContent {
		return statusError(resp, body)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, payload any) (*http.Response, []byte, error) {
	var reader io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, nil, fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, nil, fmt.Errorf("build request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("read response: %w", err)
	}
	return resp, body, nil
}

func statusError(resp *http.Response, body []byte) error {
	switch resp.StatusCode {
	case http.StatusUnauthorized:
		return ErrUnauthenticated
	case http.StatusForbidden:
		return ErrForbidden
	case http.StatusNotFound:
		return ErrNotFound
	}
	msg := strings.TrimSpace(string(body))
	var apiErr struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &apiErr) == nil && apiErr.Error != "" {
		msg = apiErr.Error
	}
	return fmt.Errorf("server returned %d: %s", resp.StatusCode, msg)
}
