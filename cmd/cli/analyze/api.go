package analyze

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/myrjola/skinwise/internal/errors"
)

const maxResponseBytes = 8 << 20

var (
	ErrUnauthorized = errors.NewSentinel("the server did not accept the token, create a new one with POST /api/token")
	ErrNotFound     = errors.NewSentinel("report not found")
)

// storedReport mirrors a report returned by the reports API.
type storedReport struct {
	ID        string          `json:"id"`
	CreatedAt time.Time       `json:"createdAt"`
	Data      json.RawMessage `json:"data"`
}

// api reads stored reports from the server.
type api struct {
	server string
	token  string
	client *http.Client
}

func newAPI(s settings) *api {
	return &api{
		server: strings.TrimRight(s.server, "/"),
		token:  s.token,
		client: &http.Client{Timeout: s.timeout}, //nolint:exhaustruct // defaults are fine.
	}
}

func (a *api) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.server+path, nil)
	if err != nil {
		return errors.Wrap(err, "new request", slog.String("path", path))
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+a.token)
	resp, err := a.client.Do(req)
	if err != nil {
		return errors.Wrap(err, "do request", slog.String("path", path))
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return errors.Wrap(err, "read response", slog.String("path", path))
	}
	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusNotFound:
		return ErrNotFound
	default:
		return errors.New("unexpected status", slog.Int("status", resp.StatusCode), slog.String("body", string(body)))
	}
	if err = json.Unmarshal(body, out); err != nil {
		return errors.Wrap(err, "decode response", slog.String("path", path))
	}
	return nil
}

func (a *api) report(ctx context.Context, id string) (storedReport, error) {
	var resp struct {
		Report storedReport `json:"report"`
	}
	if err := a.get(ctx, "/api/reports/"+url.PathEscape(id), &resp); err != nil {
		return storedReport{}, err
	}
	return resp.Report, nil
}

func (a *api) history(ctx context.Context, limit int) ([]storedReport, error) {
	var resp struct {
		Items []storedReport `json:"items"`
	}
	path := "/api/reports"
	if limit > 0 {
		path += "?limit=" + url.QueryEscape(strconv.Itoa(limit))
	}
	if err := a.get(ctx, path, &resp); err != nil {
		return nil, err
	}
	return resp.Items, nil
}
