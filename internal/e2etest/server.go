package e2etest

import (
	"context"
	"io"
	"log/slog"
	"net/url"

	"github.com/myrjola/skinwise/internal/errors"
	"github.com/myrjola/skinwise/internal/logging"
)

// Server is a running instance of the web application under test.
type Server struct {
	url    string
	client *Client
	done   <-chan struct{}
	err    func() error
}

// LogAddrKey is the key used to log the address the server is listening on.
const LogAddrKey = "addr"

const healthPath = "/api/healthy"

// passkeyParties reads the relying party configuration the server was started with so that the virtual
// authenticator signs for the same origin.
func passkeyParties(lookupEnv func(string) (string, bool)) (string, string) {
	rpID, ok := lookupEnv("SKINWISE_FQDN")
	if !ok || rpID == "" {
		rpID = "localhost"
	}
	rpOrigin, ok := lookupEnv("SKINWISE_RP_ORIGIN")
	if !ok || rpOrigin == "" {
		rpOrigin = (&url.URL{Scheme: "https", Host: rpID}).String() //nolint:exhaustruct // origin only.
	}
	return rpID, rpOrigin
}

// StartServer runs the application with run and returns once it answers on the health endpoint.
//
// Server logs go to logSink, usually [io.Discard]. The listen address is scraped from the first log record carrying
// [LogAddrKey], so run must log it before serving. Cancel ctx to stop the server.
func StartServer(
	ctx context.Context,
	logSink io.Writer,
	lookupEnv func(string) (string, bool),
	run func(context.Context, *slog.Logger, func(string) (string, bool)) error,
) (*Server, error) {
	ctx, cancel := context.WithCancelCause(ctx)

	addrCh := make(chan string, 1)
	logger := slog.New(logging.NewContextHandler(slog.NewTextHandler(logSink, &slog.HandlerOptions{
		AddSource: false,
		Level:     slog.LevelDebug,
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			if a.Key == LogAddrKey {
				// Later records such as the pprof listener must not block the logger.
				select {
				case addrCh <- a.Value.String():
				default:
				}
			}
			return a
		},
	})))

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := run(ctx, logger, lookupEnv); err != nil {
			cancel(err)
		}
	}()

	var addr string
	select {
	case <-ctx.Done():
		return nil, errors.Wrap(context.Cause(ctx), "server exited before listening")
	case addr = <-addrCh:
	}

	serverURL := (&url.URL{Scheme: "http", Host: addr}).String() //nolint:exhaustruct // origin only.
	rpID, rpOrigin := passkeyParties(lookupEnv)
	client, err := NewClient(serverURL, rpID, rpOrigin)
	if err != nil {
		cancel(err)
		return nil, errors.Wrap(err, "new client")
	}
	if err = client.WaitForReady(ctx, healthPath); err != nil {
		cancel(err)
		return nil, errors.Wrap(err, "wait for ready", slog.String("url", serverURL))
	}
	return &Server{
		url:    serverURL,
		client: client,
		done:   done,
		err: func() error {
			if err := context.Cause(ctx); !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}, nil
}

// Client returns a client with its own cookie jar and passkey authenticator.
func (s *Server) Client() *Client {
	return s.client
}

// URL returns the base URL of the server.
func (s *Server) URL() string {
	return s.url
}

// Wait blocks until run has returned and reports its error. A server stopped by cancelling its context is not an
// error.
func (s *Server) Wait() error {
	<-s.done
	return s.err()
}
