package main

import (
	"context"
	"fmt"
	"html/template"
	"log/slog"
	"net/url"
	"os"
	"time"

	"github.com/alexedwards/scs/sqlite3store"
	"github.com/alexedwards/scs/v2"
	"github.com/joho/godotenv"
	"github.com/myrjola/skinwise/internal/ai"
	"github.com/myrjola/skinwise/internal/analysis"
	"github.com/myrjola/skinwise/internal/blobstore"
	"github.com/myrjola/skinwise/internal/envstruct"
	"github.com/myrjola/skinwise/internal/errors"
	"github.com/myrjola/skinwise/internal/identity"
	"github.com/myrjola/skinwise/internal/logging"
	"github.com/myrjola/skinwise/internal/passkey"
	"github.com/myrjola/skinwise/internal/pprofserver"
	"github.com/myrjola/skinwise/internal/random"
	"github.com/myrjola/skinwise/internal/repositories"
	"github.com/myrjola/skinwise/internal/sqlite"
)

type application struct {
	cfg            config
	logger         *slog.Logger
	db             *sqlite.Database
	passkeys       *passkey.Handler
	sessionManager *scs.SessionManager
	authenticator  *identity.Authenticator
	tokens         *identity.Tokens
	users          *repositories.UserRepository
	reports        *repositories.ReportRepository
	analysis       *analysis.Service
	blobs          *blobstore.Store
	submissions    *inFlight
	pages          map[string]*template.Template
}

type config struct {
	// Addr is the address to listen on. It's possible to choose the address dynamically with localhost:0.
	Addr string `env:"SKINWISE_ADDR" envDefault:"localhost:4000"`
	// FQDN is the fully qualified domain name of the server used for WebAuthn Relying Party configuration.
	FQDN string `env:"SKINWISE_FQDN" envDefault:"localhost"`
	// RPOrigin is the origin passkeys are created for. Defaults to https://FQDN.
	RPOrigin string `env:"SKINWISE_RP_ORIGIN" envDefault:""`
	// SqliteURL is the URL to the SQLite database. You can use ":memory:" for an ethereal in-memory database.
	SqliteURL string `env:"SKINWISE_SQLITE_URL" envDefault:"./skinwise.sqlite3"`
	// PprofPort is the localhost port of the pprof server. Empty disables it.
	PprofPort string `env:"SKINWISE_PPROF_PORT" envDefault:""`
	// AIProvider selects the model provider: openai, gemini or static.
	AIProvider    string `env:"SKINWISE_AI_PROVIDER" envDefault:"static"`
	OpenAIAPIKey  string `env:"OPENAI_API_KEY" envDefault:""`
	OpenAIBaseURL string `env:"SKINWISE_OPENAI_BASE_URL" envDefault:""`
	OpenAIModel   string `env:"SKINWISE_OPENAI_MODEL" envDefault:"gpt-4o"`
	GeminiAPIKey  string `env:"GEMINI_API_KEY" envDefault:""`
	GeminiBaseURL string `env:"SKINWISE_GEMINI_BASE_URL" envDefault:""`
	GeminiModel   string `env:"SKINWISE_GEMINI_MODEL" envDefault:"gemini-2.0-flash"`
	// StaticResponse is returned by the static provider. Empty uses a built-in sample routine.
	StaticResponse string `env:"SKINWISE_STATIC_RESPONSE" envDefault:""`
	// UpstreamTimeout bounds a single model request.
	UpstreamTimeout time.Duration `env:"SKINWISE_UPSTREAM_TIMEOUT" envDefault:"120s"`
	MaxImageBytes   int64         `env:"SKINWISE_MAX_IMAGE_BYTES" envDefault:"10485760"`
	MaxBodyBytes    int64         `env:"SKINWISE_MAX_BODY_BYTES" envDefault:"33554432"`
	// UploadDir holds uploads while they are analysed. Empty uses the system temporary directory.
	UploadDir string `env:"SKINWISE_UPLOAD_DIR" envDefault:""`
	// TokenSecret signs bearer tokens. Empty generates a random secret, invalidating tokens on restart.
	TokenSecret string        `env:"SKINWISE_TOKEN_SECRET" envDefault:""`
	TokenTTL    time.Duration `env:"SKINWISE_TOKEN_TTL" envDefault:"720h"`
}

func (app *application) newGenerator(ctx context.Context) (ai.Generator, error) {
	switch app.cfg.AIProvider {
	case "openai":
		return ai.NewOpenAIGenerator(app.cfg.OpenAIAPIKey, app.cfg.OpenAIBaseURL, app.cfg.OpenAIModel, app.logger), nil
	case "gemini":
		g, err := ai.NewGeminiGenerator(ctx, app.cfg.GeminiAPIKey, app.cfg.GeminiBaseURL, app.cfg.GeminiModel, app.logger)
		if err != nil {
			return nil, errors.Wrap(err, "new gemini generator")
		}
		return g, nil
	case "static":
		response := app.cfg.StaticResponse
		if response == "" {
			response = sampleRoutine
		}
		return ai.StaticGenerator{Response: response, Err: nil}, nil
	}
	return nil, errors.New("unknown AI provider", slog.String("provider", app.cfg.AIProvider))
}

func run(ctx context.Context, logger *slog.Logger, lookupEnv func(string) (string, bool)) error {
	var (
		err error
		cfg config
	)

	if err = envstruct.Populate(&cfg, lookupEnv); err != nil {
		return errors.Wrap(err, "populate config")
	}

	if cfg.PprofPort != "" {
		// Initialise pprof listening on localhost so that it's not open to the world.
		pprofserver.Launch(ctx, cfg.PprofPort, logger)
	}

	rpOrigin := cfg.RPOrigin
	if rpOrigin == "" {
		rpOrigin = (&url.URL{Scheme: "https", Host: cfg.FQDN}).String() //nolint:exhaustruct // origin only.
	}

	var db *sqlite.Database
	if db, err = sqlite.NewDatabase(ctx, cfg.SqliteURL, logger); err != nil {
		return errors.Wrap(err, "open db", slog.String("url", cfg.SqliteURL))
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			logger.LogAttrs(ctx, slog.LevelError, "failed to close db", errors.SlogError(closeErr))
		}
	}()
	go db.StartDatabaseOptimizer(ctx, 24*time.Hour) //nolint:mnd // daily.

	sessionStore := sqlite3store.NewWithCleanupInterval(db.ReadWrite.DB, 24*time.Hour) //nolint:mnd // daily.
	defer sessionStore.StopCleanup()
	sessionManager := scs.New()
	sessionManager.Store = sessionStore
	sessionManager.Lifetime = 12 * time.Hour //nolint:mnd // half a day.
	sessionManager.Cookie.Name = "skinwise_session"
	sessionManager.Cookie.Secure = true
	sessionManager.Cookie.HttpOnly = true

	secret := cfg.TokenSecret
	if secret == "" {
		if secret, err = random.Letters(64); err != nil { //nolint:mnd // 64 letters of entropy.
			return errors.Wrap(err, "generate token secret")
		}
		logger.LogAttrs(ctx, slog.LevelWarn, "SKINWISE_TOKEN_SECRET not set, bearer tokens expire on restart")
	}
	tokens := identity.NewTokens([]byte(secret), cfg.TokenTTL)

	users := repositories.NewUserRepository(db, logger)
	reports := repositories.NewReportRepository(db, logger)

	var passkeys *passkey.Handler
	if passkeys, err = passkey.New(cfg.FQDN, []string{rpOrigin}, logger, sessionManager, users); err != nil {
		return errors.Wrap(err, "new passkey handler")
	}

	app := application{
		cfg:            cfg,
		logger:         logger,
		db:             db,
		passkeys:       passkeys,
		sessionManager: sessionManager,
		authenticator:  identity.NewAuthenticator(sessionManager, tokens, users, logger),
		tokens:         tokens,
		users:          users,
		reports:        reports,
		analysis:       nil,
		blobs:          blobstore.New(cfg.UploadDir),
		submissions:    newInFlight(),
		pages:          nil,
	}

	if app.pages, err = parsePages(); err != nil {
		return errors.Wrap(err, "parse pages")
	}

	var generator ai.Generator
	if generator, err = app.newGenerator(ctx); err != nil {
		return errors.Wrap(err, "new generator")
	}
	app.analysis = analysis.NewService(generator, reports, logger, cfg.UpstreamTimeout)

	if err = app.configureAndStartServer(ctx, cfg.Addr); err != nil {
		return errors.Wrap(err, "start server")
	}
	return nil
}

func main() {
	ctx := context.Background()
	loggerHandler := logging.NewContextHandler(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		AddSource:   false,
		Level:       slog.LevelDebug,
		ReplaceAttr: nil,
	}))
	logger := slog.New(loggerHandler)

	// A missing .env file is fine, the environment may be configured directly.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.LogAttrs(ctx, slog.LevelError, "failed to load .env", errors.SlogError(err))
		os.Exit(1)
	}

	if err := run(ctx, logger, os.LookupEnv); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "failure starting application", errors.SlogError(err))
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
