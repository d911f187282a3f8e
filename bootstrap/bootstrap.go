// Package bootstrap wires all dependencies and starts the application.
// Configuration comes from a YAML file when one exists and from OPGATE_*
// environment variables otherwise.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/artpar/opgate/adapters/auth"
	"github.com/artpar/opgate/adapters/clock"
	"github.com/artpar/opgate/adapters/hasher"
	apihttp "github.com/artpar/opgate/adapters/http"
	"github.com/artpar/opgate/adapters/idgen"
	"github.com/artpar/opgate/adapters/metrics"
	"github.com/artpar/opgate/adapters/random"
	"github.com/artpar/opgate/adapters/sqlite"
	"github.com/artpar/opgate/app"
	"github.com/artpar/opgate/config"
	"github.com/artpar/opgate/core/router"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const (
	limiterSweepInterval = time.Minute
	limiterMaxIdle       = 10 * time.Minute
	shutdownTimeout      = 30 * time.Second
)

// Options customize New.
type Options struct {
	// Version is reported by /version and the OpenAPI document.
	Version string
	// Registry receives the Prometheus metrics. Nil uses the default
	// registry and promhttp.Handler.
	Registry *prometheus.Registry
	// LogOutput defaults to os.Stdout.
	LogOutput io.Writer
}

// App represents the running application.
type App struct {
	Logger     zerolog.Logger
	Config     *config.Holder
	DB         *sqlite.DB
	Metrics    *metrics.Collector
	Tokens     *auth.TokenService
	Services   *app.App
	API        *router.Router
	Handler    http.Handler
	HTTPServer *http.Server

	shutdownOnce sync.Once
}

// LoadConfig loads the configuration at path, falling back to the
// environment when the file does not exist.
func LoadConfig(path string, logger zerolog.Logger) (*config.Holder, error) {
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			return config.NewHolder(path, logger)
		}
	}
	cfg, err := config.LoadWithFallback("")
	if err != nil {
		return nil, err
	}
	return config.NewEnvHolder(cfg, logger), nil
}

// Open loads the configuration and builds the application.
func Open(path string, opts Options) (*App, error) {
	bootLogger := NewLogger(config.LoggingConfig{Level: "info", Format: "json"}, logOutput(opts))
	holder, err := LoadConfig(path, bootLogger)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return New(holder, opts)
}

// New builds the application from the configuration in holder.
func New(holder *config.Holder, opts Options) (*App, error) {
	cfg := holder.Get()
	logger := NewLogger(cfg.Logging, logOutput(opts))

	logger.Info().Msg("initializing opgate")

	a := &App{
		Logger: logger,
		Config: holder,
	}

	if err := a.initDatabase(cfg.Database); err != nil {
		return nil, fmt.Errorf("init database: %w", err)
	}

	var metricsHandler http.Handler
	if cfg.Metrics.Enabled {
		if opts.Registry != nil {
			a.Metrics = metrics.NewWithRegistry(opts.Registry)
			metricsHandler = promhttp.HandlerFor(opts.Registry, promhttp.HandlerOpts{})
		} else {
			a.Metrics = metrics.New()
		}
		logger.Info().Str("path", cfg.Metrics.Path).Msg("prometheus metrics enabled")
	}

	clk := clock.Real{}
	a.Tokens = auth.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.TokenTTL)
	a.Services = app.New(app.Deps{
		Users:         sqlite.NewUserStore(a.DB),
		Categories:    sqlite.NewCategoryStore(a.DB),
		Verifier:      a.Tokens,
		Hasher:        hasher.NewBcrypt(0),
		Random:        random.Real{},
		IDs:           idgen.UUID{},
		Clock:         clk,
		Limiter:       app.NewRateLimiter(cfg.RateLimit.Enabled, cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst, clk),
		SessionCookie: cfg.Auth.SessionCookie,
		APIKeyHeader:  cfg.Auth.APIKeyHeader,
		APIKeyPrefix:  cfg.Auth.APIKeyPrefix,
		DefaultQuota:  cfg.Users.DefaultQuotaLimit,
		Logger:        logger,
	})

	routerOpts := []router.Option{router.WithLogger(logger)}
	if a.Metrics != nil {
		routerOpts = append(routerOpts, router.WithObserver(a.Metrics.ObserveOperation))
	}
	api, err := a.Services.Router(routerOpts...)
	if err != nil {
		a.DB.Close()
		return nil, fmt.Errorf("build operation router: %w", err)
	}
	a.API = api

	a.Handler = apihttp.NewRouter(api, apihttp.NewHealthHandler(a.DB), logger, apihttp.RouterConfig{
		BasePath:       cfg.Server.BasePath,
		Version:        opts.Version,
		Metrics:        a.Metrics,
		MetricsPath:    cfg.Metrics.Path,
		MetricsHandler: metricsHandler,
		EnableOpenAPI:  cfg.OpenAPI.Enabled,
	})

	a.HTTPServer = &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      a.Handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	holder.OnChange(a.applyConfig)
	holder.OnReloadError(func(err error) {
		if a.Metrics != nil {
			a.Metrics.RecordReload(err, time.Now())
		}
	})

	logger.Info().
		Str("base_path", cfg.Server.BasePath).
		Int("operations", len(api.Routes())).
		Msg("operation router built")

	return a, nil
}

func (a *App) initDatabase(cfg config.DatabaseConfig) error {
	db, err := sqlite.Open(cfg.DSN)
	if err != nil {
		return err
	}

	if err := db.Migrate(); err != nil {
		db.Close()
		return fmt.Errorf("migrate: %w", err)
	}

	a.DB = db
	a.Logger.Info().Str("dsn", cfg.DSN).Msg("database initialized")
	return nil
}

// applyConfig pushes the reloadable fields of cfg into the running services.
func (a *App) applyConfig(cfg *config.Config) {
	a.Services.Limiter.Update(cfg.RateLimit.Enabled, cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)
	a.Services.Users.SetDefaultQuota(cfg.Users.DefaultQuotaLimit)
	if level, err := zerolog.ParseLevel(cfg.Logging.Level); err == nil {
		zerolog.SetGlobalLevel(level)
	}
	if a.Metrics != nil {
		a.Metrics.RecordReload(nil, time.Now())
	}
}

// Run starts the HTTP server and blocks until ctx is done, SIGINT or
// SIGTERM arrives, or the server fails. With watch set, edits to the
// config file are applied without a restart. SIGHUP always reloads.
func (a *App) Run(ctx context.Context, watch bool) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if watch {
		if err := a.Config.WatchFile(); err != nil {
			a.Logger.Warn().Err(err).Msg("config file watch disabled")
		}
	}
	a.Config.WatchSignals()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.Logger.Info().
			Str("addr", a.HTTPServer.Addr).
			Msg("starting http server")
		if err := a.HTTPServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		ticker := time.NewTicker(limiterSweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if n := a.Services.Limiter.Cleanup(limiterMaxIdle); n > 0 {
					a.Logger.Debug().Int("removed", n).Msg("rate limiters swept")
				}
			case <-gctx.Done():
				return nil
			}
		}
	})

	g.Go(func() error {
		<-gctx.Done()
		a.Logger.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return a.HTTPServer.Shutdown(shutdownCtx)
	})

	err := g.Wait()
	if shutdownErr := a.Shutdown(); err == nil {
		err = shutdownErr
	}
	return err
}

// Shutdown gracefully stops the application. It is safe to call more
// than once.
func (a *App) Shutdown() error {
	var err error
	a.shutdownOnce.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if a.Config != nil {
			a.Config.Stop()
		}

		if a.HTTPServer != nil {
			if serr := a.HTTPServer.Shutdown(ctx); serr != nil {
				a.Logger.Error().Err(serr).Msg("http server shutdown error")
			}
		}

		if a.DB != nil {
			if cerr := a.DB.Close(); cerr != nil {
				a.Logger.Error().Err(cerr).Msg("database close error")
				err = cerr
			}
		}

		a.Logger.Info().Msg("shutdown complete")
	})
	return err
}

// NewLogger builds the process logger and sets the global level.
func NewLogger(cfg config.LoggingConfig, out io.Writer) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if out == nil {
		out = os.Stdout
	}
	if cfg.Format == "console" {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}
	return zerolog.New(out).With().Timestamp().Logger()
}

func logOutput(opts Options) io.Writer {
	if opts.LogOutput != nil {
		return opts.LogOutput
	}
	return os.Stdout
}
