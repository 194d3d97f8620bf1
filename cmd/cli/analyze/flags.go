// Package analyze implements the commands that run an analysis against a Skinwise server and show its reports.
package analyze

import (
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/myrjola/skinwise/internal/errors"
	"github.com/myrjola/skinwise/internal/logging"
	"github.com/myrjola/skinwise/internal/resultcache"
	"github.com/spf13/cobra"
)

var Group = &cobra.Group{ //nolint:gochecknoglobals // cobra command group.
	ID:    "analysis",
	Title: "Analysis",
}

const (
	serverFlag   = "server"
	tokenFlag    = "token"
	cacheDirFlag = "cache-dir"
	timeoutFlag  = "timeout"
	verboseFlag  = "verbose"

	defaultTimeout = 150 * time.Second
)

func envOr(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

// AddFlags registers the flags shared by every analysis command on the root command.
func AddFlags(root *cobra.Command) {
	flags := root.PersistentFlags()
	flags.String(serverFlag, envOr("SKINWISE_SERVER", "http://localhost:4000"), "base URL of the Skinwise server")
	flags.String(tokenFlag, envOr("SKINWISE_TOKEN", ""),
		"bearer token from POST /api/token, reports are stored on the server when set")
	flags.String(cacheDirFlag, envOr("SKINWISE_CACHE_DIR", ""), "directory of the local result cache")
	flags.Duration(timeoutFlag, defaultTimeout, "deadline of a single submission")
	flags.BoolP(verboseFlag, "v", false, "log requests to stderr")
}

// settings are the resolved shared flags of a command invocation.
type settings struct {
	server  string
	token   string
	timeout time.Duration
	cache   *resultcache.Cache
	logger  *slog.Logger
}

func loadSettings(cmd *cobra.Command) (settings, error) {
	flags := cmd.Flags()
	var (
		s   settings
		err error
	)
	if s.server, err = flags.GetString(serverFlag); err != nil {
		return s, errors.Wrap(err, "server flag")
	}
	if s.token, err = flags.GetString(tokenFlag); err != nil {
		return s, errors.Wrap(err, "token flag")
	}
	if s.timeout, err = flags.GetDuration(timeoutFlag); err != nil {
		return s, errors.Wrap(err, "timeout flag")
	}
	var cacheDir string
	if cacheDir, err = flags.GetString(cacheDirFlag); err != nil {
		return s, errors.Wrap(err, "cache-dir flag")
	}
	if cacheDir == "" {
		if s.cache, err = resultcache.Default(); err != nil {
			return s, errors.Wrap(err, "default cache")
		}
	} else {
		s.cache = resultcache.New(cacheDir)
	}
	var verbose bool
	if verbose, err = flags.GetBool(verboseFlag); err != nil {
		return s, errors.Wrap(err, "verbose flag")
	}
	logSink := io.Discard
	if verbose {
		logSink = cmd.ErrOrStderr()
	}
	s.logger = slog.New(logging.NewContextHandler(slog.NewTextHandler(logSink, &slog.HandlerOptions{
		AddSource:   false,
		Level:       slog.LevelDebug,
		ReplaceAttr: nil,
	})))
	return s, nil
}
