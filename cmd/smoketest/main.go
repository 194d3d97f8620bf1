package main

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/justinas/nosurf"
	"github.com/myrjola/skinwise/internal/e2etest"
	"github.com/myrjola/skinwise/internal/errors"
	"github.com/myrjola/skinwise/internal/logging"
)

const smokeTimeout = 10 * time.Second

func checkAuth(ctx context.Context, client *e2etest.Client) error {
	var err error
	if _, err = client.Register(ctx); err != nil {
		return errors.Wrap(err, "register user")
	}
	if _, err = client.Logout(ctx); err != nil {
		return errors.Wrap(err, "logout user")
	}
	if _, err = client.Login(ctx); err != nil {
		return errors.Wrap(err, "login user")
	}
	return nil
}

func decode(resp *http.Response, out any) error {
	defer func() {
		_ = resp.Body.Close()
	}()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, "read body")
	}
	if resp.StatusCode != http.StatusOK {
		return errors.New("unexpected status code", slog.Int("status", resp.StatusCode), slog.String("body", string(body)))
	}
	return errors.Wrap(json.Unmarshal(body, out), "decode body")
}

// checkAPI mints a bearer token in the logged-in session and reads the report history with it.
func checkAPI(ctx context.Context, client *e2etest.Client, url, hostname string) error {
	csrfToken, err := client.CSRFToken(ctx)
	if err != nil {
		return errors.Wrap(err, "csrf token")
	}
	req, err := client.NewRequest(ctx, http.MethodPost, "/api/token", nil)
	if err != nil {
		return errors.Wrap(err, "new token request")
	}
	req.Header.Set(nosurf.HeaderName, csrfToken)
	resp, err := client.Do(req)
	if err != nil {
		return errors.Wrap(err, "request token")
	}
	var token struct {
		Token string `json:"token"`
	}
	if err = decode(resp, &token); err != nil {
		return errors.Wrap(err, "token response")
	}

	var anonymous *e2etest.Client
	if anonymous, err = e2etest.NewClient(url, hostname, url); err != nil {
		return errors.Wrap(err, "new bearer client")
	}
	if req, err = anonymous.NewRequest(ctx, http.MethodGet, "/api/reports", nil); err != nil {
		return errors.Wrap(err, "new reports request")
	}
	req.Header.Set("Authorization", "Bearer "+token.Token)
	if resp, err = anonymous.Do(req); err != nil {
		return errors.Wrap(err, "request reports")
	}
	var reports struct {
		OK bool `json:"ok"`
	}
	if err = decode(resp, &reports); err != nil {
		return errors.Wrap(err, "reports response")
	}
	if !reports.OK {
		return errors.New("reports response not ok")
	}
	return nil
}

func main() {
	loggerHandler := logging.NewContextHandler(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		AddSource:   false,
		Level:       slog.LevelDebug,
		ReplaceAttr: nil,
	}))
	logger := slog.New(loggerHandler)
	ctx := context.Background()

	if len(os.Args) != 2 { //nolint:mnd // we expect only hostname to be passed as argument.
		logger.LogAttrs(ctx, slog.LevelError, "usage: smoketest <hostname>")
		os.Exit(1)
	}

	var (
		hostname = os.Args[1]
		url      = "https://" + hostname
		client   *e2etest.Client
		err      error
	)
	ctx = logging.WithAttrs(ctx, slog.String("hostname", url))
	ctx, cancel := context.WithTimeout(ctx, smokeTimeout)
	defer cancel()

	if client, err = e2etest.NewClient(url, hostname, url); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "error creating client", errors.SlogError(err))
		os.Exit(1) //nolint:gocritic // exiting on purpose.
	}
	if err = checkAuth(ctx, client); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "error testing auth", errors.SlogError(err))
		os.Exit(1)
	}
	if err = checkAPI(ctx, client, url, hostname); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "error testing API", errors.SlogError(err))
		os.Exit(1)
	}

	logger.LogAttrs(ctx, slog.LevelInfo, "Smoke test successful 🙌")
}
