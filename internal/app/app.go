package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/heartmarshall/hideout-backend/internal/adapter/natskv"
	"github.com/heartmarshall/hideout-backend/internal/adapter/realtime"
	"github.com/heartmarshall/hideout-backend/internal/adapter/supabase"
	"github.com/heartmarshall/hideout-backend/internal/auth"
	"github.com/heartmarshall/hideout-backend/internal/catalog"
	"github.com/heartmarshall/hideout-backend/internal/config"
	"github.com/heartmarshall/hideout-backend/internal/metrics"
	"github.com/heartmarshall/hideout-backend/internal/service/announcement"
	"github.com/heartmarshall/hideout-backend/internal/service/economy"
	"github.com/heartmarshall/hideout-backend/internal/service/notify"
	"github.com/heartmarshall/hideout-backend/internal/service/profile"
	"github.com/heartmarshall/hideout-backend/internal/service/session"
	"github.com/heartmarshall/hideout-backend/internal/storage"
	"github.com/heartmarshall/hideout-backend/internal/transport/middleware"
	"github.com/heartmarshall/hideout-backend/internal/transport/rest"
)

// Run is the server entry point. It loads configuration, wires the adapters
// and services, serves HTTP and blocks until ctx is canceled or a component
// fails.
func Run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.RequireServerSecrets(); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	logger := NewLogger(cfg.Log)

	logger.Info("starting application",
		slog.String("version", BuildVersion()),
		slog.String("log_level", cfg.Log.Level),
		slog.String("supabase_url", cfg.Supabase.URL),
	)

	m := metrics.New()

	supa := supabase.NewClient(cfg.Supabase.URL, cfg.Supabase.AnonKey, cfg.Supabase.RequestTimeout, logger)

	rt, err := realtime.NewClient(cfg.Supabase.URL, cfg.Supabase.AnonKey, realtime.Options{
		HeartbeatInterval: cfg.Realtime.HeartbeatInterval,
		ReconnectMin:      cfg.Realtime.ReconnectMin,
		ReconnectMax:      cfg.Realtime.ReconnectMax,
		LedgerTable:       cfg.Realtime.LedgerTable,
		SubmissionTable:   cfg.Realtime.SubmissionTable,
		OnReconnect:       m.RealtimeReconnect,
	}, logger)
	if err != nil {
		return err
	}

	shop, err := catalog.New(cfg.Catalog.Path, logger)
	if err != nil {
		return err
	}

	kv, kvCheck, closeKV, err := OpenKV(ctx, cfg.NATS, logger)
	if err != nil {
		return err
	}
	defer closeKV()

	// Services.
	econ := economy.NewService(logger, supa, shop, economy.RulesFromConfig(cfg.Economy), m)
	registry := session.NewRegistry(logger, econ, rt, session.Options{
		IdleTimeout:   cfg.Session.IdleTimeout,
		SweepInterval: cfg.Session.SweepInterval,
		OpenTimeout:   cfg.Session.OpenTimeout,
		Notify: notify.Options{
			DedupWindow:   cfg.Notify.DedupWindow,
			SeenCacheSize: cfg.Notify.SeenCacheSize,
			BufferSize:    cfg.Notify.BufferSize,
		},
	}, m)
	announcements := announcement.NewService(logger, supa, kv)
	profiles := profile.NewService(logger, supa)

	// Transport.
	checks := map[string]rest.Pinger{"supabase": supa}
	if kvCheck != nil {
		checks["kv"] = kvCheck
	}

	limiter, err := middleware.NewRateLimiter(cfg.RateLimit.MaxClients)
	if err != nil {
		return err
	}

	router := rest.NewRouter(rest.RouterConfig{
		Logger:         logger,
		Tokens:         auth.NewJWTManager(cfg.Supabase.JWTSecret, cfg.Supabase.URL+"/auth/v1", time.Hour),
		CORS:           cfg.CORS,
		Limiter:        limiter,
		SpendPerMinute: cfg.RateLimit.SpendPerMinute,
		Metrics:        m.Handler(),
	}, rest.Handlers{
		Health:        rest.NewHealthHandler(BuildVersion(), checks),
		Auth:          rest.NewAuthHandler(supa, logger),
		Pet:           rest.NewPetHandler(registry, shop, logger),
		Notifications: rest.NewNotificationHandler(registry, logger),
		Announcements: rest.NewAnnouncementHandler(announcements, logger),
		Teacher:       rest.NewTeacherHandler(econ, profiles, logger),
	})

	srv := &http.Server{
		Addr:              net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port)),
		Handler:           router,
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return registry.Run(gctx)
	})

	if cfg.Catalog.Watch {
		g.Go(func() error {
			return shop.Watch(gctx)
		})
	}

	g.Go(func() error {
		logger.Info("http server listening", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")

		// Open event streams end when their sessions close.
		registry.Shutdown()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("stopped")
	return nil
}

// OpenKV selects the key-value store: JetStream when a NATS URL is
// configured, process memory otherwise. The returned check is nil for the
// memory store.
func OpenKV(ctx context.Context, cfg config.NATSConfig, logger *slog.Logger) (storage.KV, rest.Pinger, func(), error) {
	if cfg.URL == "" {
		logger.Info("using in-memory kv store")
		return storage.NewMemory(), nil, func() {}, nil
	}

	store, err := natskv.Open(ctx, cfg.URL, cfg.Bucket, logger)
	if err != nil {
		return nil, nil, nil, err
	}
	logger.Info("using jetstream kv store", slog.String("bucket", cfg.Bucket))

	check := rest.PingFunc(func(context.Context) error { return store.Ping() })
	return store, check, store.Close, nil
}
