package client

import (
	"context"
	"errors"
	"fmt"
)

// Session pairs a Client with persistent token storage. A token the server
// rejects with 403 is discarded, returning the user to the logged-out state.
type Session struct {
	client *Client
	tokens *TokenStore
}

func NewSession(client *Client, tokens *TokenStore) *Session {
	return &Session{client: client, tokens: tokens}
}

func (s *Session) Register(ctx context.Context, username, password string) error {
	return s.client.Register(ctx, username, password)
}

func (s *Session) Login(ctx context.Context, username, password string) error {
	token, err := s.client.Login(ctx, username, password)
	if err != nil {
		return err
	}
	if err := s.tokens.Save(token); err != nil {
		return err
	}
	s.client.SetToken(token)
	return nil
}

func (s *Session) Logout() error {
	s.client.SetToken("")
	return s.tokens.Clear()
}

// Do runs fn with the stored token attached.
func (s *Session) Do(ctx context.Context, fn func(ctx context.Context, c *Client) error) error {
	token, err := s.tokens.Load()
	if err != nil {
		return err
	}
	if token == "" {
		return ErrUnauthenticated
	}
	s.client.SetToken(token)

	err = fn(ctx, s.client)
	if errors.Is(err, ErrForbidden) {
		s.client.SetToken("")
		if clearErr := s.tokens.Clear(); clearErr != nil {
			return fmt.Errorf("%w (and clearing token failed: %v)", err, clearErr)
		}
	}
	return err
}
