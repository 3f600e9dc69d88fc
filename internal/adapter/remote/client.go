// Package remote is the HTTP client for the thread persistence endpoint and
// the audit sink.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/heartmarshall/labassist-backend/internal/domain"
)

const maxErrorBody = 512

// Client talks to the persistence endpoint. It satisfies chat.Persister and
// chat.Archiver.
type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     TokenSource
	log        *slog.Logger
}

// New creates a Client. baseURL includes the API prefix, for example
// "http://localhost:8080/api/v1".
func New(baseURL string, timeout time.Duration, tokens TokenSource, logger *slog.Logger) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if tokens == nil {
		tokens = StaticToken("")
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		tokens:     tokens,
		log:        logger.With("adapter", "remote"),
	}
}

type threadsBody struct {
	Threads []domain.Thread `json:"threads"`
}

// SaveThreads posts the full thread set.
func (c *Client) SaveThreads(ctx context.Context, threads []domain.Thread) error {
	if threads == nil {
		threads = []domain.Thread{}
	}
	return c.do(ctx, http.MethodPost, "/threads", threadsBody{Threads: threads}, nil)
}

// LoadThreads fetches one page of persisted threads.
func (c *Client) LoadThreads(ctx context.Context, page, limit int) (domain.ThreadPage, error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("limit", strconv.Itoa(limit))

	var out domain.ThreadPage
	if err := c.do(ctx, http.MethodGet, "/threads?"+q.Encode(), nil, &out); err != nil {
		return domain.ThreadPage{}, err
	}
	return out, nil
}

// Archive posts threads dropped for age.
func (c *Client) Archive(ctx context.Context, threads []domain.Thread) error {
	return c.do(ctx, http.MethodPost, "/archive", threadsBody{Threads: threads}, nil)
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("remote: encode %s %s: %w", method, path, err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("remote: create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	token, err := c.tokens.Token(ctx)
	if err != nil {
		return fmt.Errorf("remote: token: %w", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	c.log.DebugContext(ctx, "remote request", slog.String("method", method), slog.String("path", path))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("remote: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		serr := &StatusError{
			Method:     method,
			Path:       path,
			Code:       resp.StatusCode,
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
			Body:       string(snippet),
		}
		c.log.WarnContext(ctx, "remote request failed",
			slog.String("method", method),
			slog.String("path", path),
			slog.Int("status", resp.StatusCode),
		)
		return serr
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("remote: decode %s %s: %w", method, path, err)
	}
	return nil
}
