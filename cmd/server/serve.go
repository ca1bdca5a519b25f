package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/anonto42/nano-midea/notifier/internal/activity"
	"github.com/anonto42/nano-midea/notifier/internal/auth"
	"github.com/anonto42/nano-midea/notifier/internal/handlers"
	"github.com/anonto42/nano-midea/notifier/internal/presence"
	"github.com/anonto42/nano-midea/notifier/internal/push"
	"github.com/anonto42/nano-midea/notifier/internal/realtime"
	"github.com/anonto42/nano-midea/notifier/internal/repositories"
	"github.com/anonto42/nano-midea/notifier/internal/router"
	"github.com/anonto42/nano-midea/notifier/pkg/config"
	"github.com/anonto42/nano-midea/notifier/pkg/metrics"
	"github.com/anonto42/nano-midea/notifier/pkg/ratelimit"
	"github.com/anonto42/nano-midea/notifier/validators"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
)

func newServeCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, live push endpoints and metrics server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, a)
		},
	}
}

// openStore connects the configured backend and returns the store with its closer.
func openStore(ctx context.Context, a *app) (repositories.Store, func(), error) {
	connectCtx, cancel := context.WithTimeout(ctx, a.cfg.DB.ConnectTimeout)
	defer cancel()

	db, err := config.InitDB(connectCtx, a.cfg.DB, a.logg)
	if err != nil {
		return nil, nil, err
	}
	closeDB := func() {
		if err := db.CloseDB(context.Background()); err != nil {
			a.logg.Error(ctx, "error closing database", err)
		}
	}

	if db.Mongo != nil {
		return repositories.NewMongoStore(db.Mongo, a.cfg.DB.MongoDatabase), closeDB, nil
	}
	return repositories.NewPostgresStore(db.Postgres), closeDB, nil
}

// newLimiter builds the write-action rate limiter selected by RATE_LIMIT_BACKEND.
func newLimiter(ctx context.Context, cfg *config.Config) (ratelimit.Limiter, func() error, error) {
	switch cfg.RateLimit.Backend {
	case config.RateLimitMemory:
		lim := ratelimit.NewMemoryLimiter(cfg.RateLimit.Requests, cfg.RateLimit.Window)
		return lim, func() error { lim.Close(); return nil }, nil
	case config.RateLimitRedis:
		client, err := ratelimit.NewRedisClient(ctx, cfg.Redis.URL,
			cfg.Redis.DialTimeout, cfg.Redis.ReadTimeout, cfg.Redis.WriteTimeout)
		if err != nil {
			return nil, nil, err
		}
		return ratelimit.NewRedisLimiter(client, cfg.RateLimit.Requests, cfg.RateLimit.Window), client.Close, nil
	}
	return ratelimit.Noop{}, func() error { return nil }, nil
}

func serve(ctx context.Context, a *app) error {
	cfg, logg := a.cfg, a.logg

	store, closeStore, err := openStore(ctx, a)
	if err != nil {
		return err
	}
	defer closeStore()

	if cfg.DB.AutoMigrate {
		if err := store.Migrate(ctx); err != nil {
			return err
		}
		logg.Info(ctx, "auto-migrations completed")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	registry := presence.NewRegistry(m)
	dispatcher := push.NewDispatcher(registry, m, logg)
	writer := activity.NewWriter(store, dispatcher, m, logg)

	tokens := auth.NewJWT(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer, cfg.Auth.TokenTTL)
	var (
		verifier auth.Verifier = tokens
		fb       *auth.Firebase
	)
	if cfg.Auth.Provider == config.AuthProviderFirebase {
		fb, err = auth.NewFirebaseFromCredentials(ctx, cfg.Auth.FirebaseCredentialsPath, store)
		if err != nil {
			return err
		}
		verifier = auth.Chain{tokens, fb}
		logg.Info(ctx, "firebase authentication enabled")
	}

	limiter, closeLimiter, err := newLimiter(ctx, cfg)
	if err != nil {
		return err
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = validators.NewValidator()
	e.HTTPErrorHandler = handlers.HTTPErrorHandler(logg)
	config.SetupMiddleware(e, logg)
	router.SetupRoutes(e, router.Dependencies{
		Store:    store,
		Writer:   writer,
		Registry: registry,
		Verifier: verifier,
		Tokens:   tokens,
		Firebase: fb,
		Limiter:  limiter,
		Push: realtime.Options{
			SendBuffer:   cfg.Push.SendBuffer,
			WriteTimeout: cfg.Push.WriteTimeout,
			PingInterval: cfg.Push.PingInterval,
		},
		Logger: logg,
	})

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	metricsSrv := &http.Server{
		Addr:              ":" + cfg.App.MetricsPort,
		Handler:           metricsMux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logg.Info(logg.WithField(ctx, "port", cfg.App.Port), "starting api server")
		if err := e.Start(":" + cfg.App.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		logg.Info(logg.WithField(ctx, "port", cfg.App.MetricsPort), "starting metrics server")
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logg.Info(ctx, "shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
		defer cancel()

		// Live connections are hijacked or long-lived, so close them before
		// asking the servers to drain.
		registry.Close()
		err := multierr.Combine(
			e.Shutdown(shutdownCtx),
			metricsSrv.Shutdown(shutdownCtx),
		)
		dispatcher.Wait()
		return multierr.Append(err, closeLimiter())
	})

	return g.Wait()
}
