// Package client is the HTTP and websocket client for the guestbook API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"guestbookAPI/internal/guestbook"
	"guestbookAPI/internal/rulesprobe"
)

var (
	ErrUnreachable  = errors.New("guestbook server unreachable")
	ErrUnauthorized = errors.New("not authorized")
)

// APIError is a non-2xx answer from the server.
type APIError struct {
	Status  int
	Message string
	Details []string
}

func (e *APIError) Error() string {
	if len(e.Details) > 0 {
		return e.Message + ": " + strings.Join(e.Details, ", ")
	}
	return e.Message
}

// Unwrap maps the status code back onto the shared error taxonomy so callers
// can use errors.Is on both sides of the wire.
func (e *APIError) Unwrap() error {
	switch e.Status {
	case http.StatusBadRequest:
		if len(e.Details) > 0 {
			return &guestbook.ValidationError{Problems: e.Details}
		}
		return guestbook.ErrInvalidArgument
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusForbidden:
		return guestbook.ErrAccessDenied
	case http.StatusNotFound:
		return guestbook.ErrNotFound
	case http.StatusConflict:
		return guestbook.ErrAlreadyApproved
	case http.StatusUnprocessableEntity:
		return guestbook.ErrInappropriate
	case http.StatusServiceUnavailable:
		return guestbook.ErrUnavailable
	default:
		return nil
	}
}

type Client struct {
	baseURL *url.URL
	token   string
	http    *http.Client
	dialer  *websocket.Dialer
}

// New builds a client for the server at baseURL. token is the moderator's
// Clerk session token and may be empty for visitor calls.
func New(baseURL, token string) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid server url %q: %w", baseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid server url %q: scheme must be http or https", baseURL)
	}
	return &Client{
		baseURL: u,
		token:   token,
		http:    &http.Client{Timeout: 45 * time.Second},
		dialer:  &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
	}, nil
}

func (c *Client) endpoint(path string) string {
	return c.baseURL.String() + path
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path), reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		var payload struct {
			Error   string   `json:"error"`
			Details []string `json:"details"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&payload); err == nil && payload.Error != "" {
			apiErr.Message = payload.Error
			apiErr.Details = payload.Details
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) Submit(ctx context.Context, req guestbook.SubmitRequest) (guestbook.SubmitResponse, error) {
	var resp guestbook.SubmitResponse
	err := c.do(ctx, http.MethodPost, "/api/v1/guestbook", req, &resp)
	return resp, err
}

func (c *Client) List(ctx context.Context) ([]guestbook.Entry, error) {
	var resp guestbook.ListResponse
	if err := c.do(ctx, http.MethodGet, "/api/v1/guestbook", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Entries, nil
}

func (c *Client) Pending(ctx context.Context) ([]guestbook.Entry, error) {
	var resp guestbook.ListResponse
	if err := c.do(ctx, http.MethodGet, "/api/v1/moderation/pending", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Entries, nil
}

func (c *Client) Approve(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodPost, "/api/v1/moderation/entries/"+url.PathEscape(id)+"/approve", nil, nil)
}

func (c *Client) ApproveBatch(ctx context.Context, ids []string) ([]string, error) {
	var resp guestbook.BatchApproveResponse
	err := c.do(ctx, http.MethodPost, "/api/v1/moderation/approve-batch", guestbook.BatchApproveRequest{IDs: ids}, &resp)
	return resp.Approved, err
}

func (c *Client) AutoApprove(ctx context.Context) ([]string, error) {
	var resp guestbook.BatchApproveResponse
	err := c.do(ctx, http.MethodPost, "/api/v1/moderation/auto-approve", nil, &resp)
	return resp.Approved, err
}

func (c *Client) Reject(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/v1/moderation/entries/"+url.PathEscape(id), nil, nil)
}

func (c *Client) Probe(ctx context.Context) (rulesprobe.Report, error) {
	var report rulesprobe.Report
	err := c.do(ctx, http.MethodGet, "/api/v1/moderation/probe", nil, &report)
	return report, err
}

// Watch subscribes to the live listing and calls onMessage for every message
// until ctx is cancelled or the server closes the connection. Cancellation
// returns nil; the socket is always closed before returning.
func (c *Client) Watch(ctx context.Context, onMessage func(guestbook.LiveMessage)) error {
	wsURL := *c.baseURL
	if wsURL.Scheme == "https" {
		wsURL.Scheme = "wss"
	} else {
		wsURL.Scheme = "ws"
	}
	wsURL.Path += "/api/v1/guestbook/live"

	conn, _, err := c.dialer.DialContext(ctx, wsURL.String(), nil)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	defer conn.Close()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
			_ = conn.Close()
		case <-done:
		}
	}()

	for {
		var msg guestbook.LiveMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				return nil
			}
			return fmt.Errorf("%w: live listing: %v", ErrUnreachable, err)
		}
		onMessage(msg)
	}
}
