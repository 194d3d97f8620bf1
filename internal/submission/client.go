// Package submission sends assembled payloads to the analysis endpoint.
package submission

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/myrjola/skinwise/internal/errors"
	"github.com/myrjola/skinwise/internal/payload"
)

// RequiredImages is the number of image parts the endpoint accepts.
const RequiredImages = 3

const maxResponseBytes = 8 << 20

// Result is the successful outcome of a submission.
type Result struct {
	// Result is the opaque analysis result.
	Result json.RawMessage
	// ReportID is set when the server persisted the result.
	ReportID string
}

// Client submits payloads. A Client refuses to start a submission while another one is in flight.
type Client struct {
	endpoint    string
	httpClient  *http.Client
	bearerToken string
	timeout     time.Duration
	logger      *slog.Logger
	inFlight    atomic.Bool
}

type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(client *Client) {
		client.httpClient = c
	}
}

// WithBearerToken authenticates submissions so that the server persists the report for the token's user.
func WithBearerToken(token string) Option {
	return func(client *Client) {
		client.bearerToken = token
	}
}

// WithTimeout bounds the whole round trip. Zero disables the deadline.
func WithTimeout(d time.Duration) Option {
	return func(client *Client) {
		client.timeout = d
	}
}

// NewClient creates a client posting to endpoint, e.g. https://example.com/api/analysis.
func NewClient(endpoint string, logger *slog.Logger, opts ...Option) *Client {
	c := &Client{ //nolint:exhaustruct // inFlight starts false.
		endpoint:   endpoint,
		httpClient: http.DefaultClient,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Submit sends p once, without retries.
//
// It fails with ErrValidation before any network I/O unless p carries exactly three images, and with
// ErrSubmissionInProgress when another submission is in flight. Other failures are a *TransportError, a *StatusError,
// ErrInvalidResponseShape or a *RejectedError.
func (c *Client) Submit(ctx context.Context, p payload.Payload) (*Result, error) {
	if len(p.Images) != RequiredImages {
		return nil, errors.Wrap(ErrValidation, "exactly three images are required",
			slog.Int("images", len(p.Images)))
	}
	if !c.inFlight.CompareAndSwap(false, true) {
		return nil, errors.Wrap(ErrSubmissionInProgress, "submit")
	}
	defer c.inFlight.Store(false)

	body, contentType, err := p.Encode()
	if err != nil {
		return nil, errors.Wrap(err, "encode payload")
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "new request", slog.String("endpoint", c.endpoint))
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")
	if c.bearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.bearerToken)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			c.logger.LogAttrs(ctx, slog.LevelWarn, "close response body", errors.SlogError(closeErr))
		}
	}()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	c.logger.LogAttrs(ctx, slog.LevelDebug, "submission finished",
		slog.Int("status", resp.StatusCode),
		slog.Int("bytes", len(body)),
		slog.Duration("duration", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: string(raw)}
	}

	return decodeResponse(raw)
}

// InFlight reports whether a submission is currently running.
func (c *Client) InFlight() bool {
	return c.inFlight.Load()
}

type response struct {
	OK     *bool           `json:"ok"`
	Result json.RawMessage `json:"result"`
	ID     string          `json:"id"`
	Error  string          `json:"error"`
}

func decodeResponse(raw []byte) (*Result, error) {
	var r response
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, errors.Wrap(ErrInvalidResponseShape, "decode response", slog.String("cause", err.Error()))
	}
	if r.OK == nil {
		return nil, errors.Wrap(ErrInvalidResponseShape, "missing ok field")
	}
	if !*r.OK {
		return nil, &RejectedError{Message: r.Error}
	}
	return &Result{Result: r.Result, ReportID: r.ID}, nil
}

// errorField extracts the error message from an {"ok": false, "error": "..."} body.
func errorField(body string) string {
	var r response
	if err := json.Unmarshal([]byte(body), &r); err != nil {
		return ""
	}
	return r.Error
}
