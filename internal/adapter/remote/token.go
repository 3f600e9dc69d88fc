package remote

import "context"

// TokenSource supplies the bearer credential for each request.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a TokenSource that always returns the same token. An empty
// StaticToken sends no Authorization header.
type StaticToken string

func (t StaticToken) Token(context.Context) (string, error) { return string(t), nil }
