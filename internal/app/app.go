package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"lemon-sso/internal/cache"
	"lemon-sso/internal/config"
	"lemon-sso/internal/database"
	"lemon-sso/internal/event"
	"lemon-sso/internal/handler"
	"lemon-sso/internal/middleware"
	"lemon-sso/internal/repository/memory"
	"lemon-sso/internal/repository/mongo"
	"lemon-sso/internal/repository/postgres"
	"lemon-sso/internal/router"
	"lemon-sso/internal/security"
	"lemon-sso/internal/service"
)

const startupTimeout = 15 * time.Second

type App struct {
	server       *http.Server
	cleanupFuncs []func()
}

// stores is what a store driver contributes to the wiring.
type stores struct {
	users    service.UserStore
	services service.ServiceStore
	checks   map[string]handler.Pinger
	cleanup  []func()
}

func New(cfg *config.Config) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
	defer cancel()

	st, err := openStores(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a := &App{cleanupFuncs: st.cleanup}

	var serviceCache service.ServiceCache = cache.Noop{}
	if cfg.RedisURL != "" {
		redisCache, err := cache.NewRedis(ctx, cfg.RedisURL)
		if err != nil {
			a.cleanup()
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		serviceCache = redisCache
		st.checks["redis"] = redisCache
		a.cleanupFuncs = append(a.cleanupFuncs, func() { _ = redisCache.Close() })
		slog.Info("api key cache ready", "ttl", cfg.APIKeyCacheTTL)
	}

	hasher := security.NewBcryptHasher(cfg.BcryptCost)
	policy := service.TokenPolicy{
		AccessLifetime:  cfg.TokenAccessTTL,
		RefreshLifetime: cfg.TokenRefreshTTL,
		ReuseOnSignIn:   cfg.TokenReuseOnSignIn,
	}

	bus := event.NewBus()
	auditEvents, unsubscribe := bus.Subscribe()
	auditCtx, stopAudit := context.WithCancel(context.Background())
	go service.NewAuditService(slog.Default()).Run(auditCtx, auditEvents)
	a.cleanupFuncs = append(a.cleanupFuncs, stopAudit, unsubscribe)

	authService := service.NewAuthService(st.users, hasher, policy, service.WithEvents(bus))
	userService := service.NewUserService(st.users, hasher)
	registryService := service.NewRegistryService(st.services, serviceCache, cfg.APIKeyCacheTTL, cfg.AdminAPIKey)

	appRouter := router.New(cfg, middleware.NewAPIKeyMiddleware(registryService, cfg.AppVersion), router.Handlers{
		Auth:     handler.NewAuthHandler(authService, cfg.AppVersion),
		Users:    handler.NewUserHandler(userService, cfg.AppVersion),
		Services: handler.NewServiceHandler(registryService, cfg.AppVersion),
		System:   handler.NewSystemHandler(cfg.AppVersion, st.checks),
	})

	a.server = &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           appRouter,
		ReadHeaderTimeout: cfg.ServerReadHeaderTimeout,
		WriteTimeout:      cfg.ServerWriteTimeout,
		IdleTimeout:       cfg.ServerIdleTimeout,
	}

	return a, nil
}

func openStores(ctx context.Context, cfg *config.Config) (*stores, error) {
	switch cfg.StoreDriver {
	case config.StoreDriverPostgres:
		slog.Info("connecting to PostgreSQL")
		db, err := database.New(ctx, cfg.DatabaseURL, int32(cfg.DBMaxConns), int32(cfg.DBMinConns))
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}

		if err := db.EnsureSchema(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to ensure database schema: %w", err)
		}
		slog.Info("database ready")

		return &stores{
			users:    postgres.NewUserRepository(db.Pool),
			services: postgres.NewServiceRepository(db.Pool),
			checks:   map[string]handler.Pinger{"postgres": db},
			cleanup:  []func(){db.Close},
		}, nil

	case config.StoreDriverMongo:
		slog.Info("connecting to MongoDB")
		m, err := mongo.New(ctx, cfg.MongoURL, cfg.MongoDatabase)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to mongo: %w", err)
		}
		slog.Info("mongo ready", "database", cfg.MongoDatabase)

		return &stores{
			users:    m.Users(),
			services: m.Services(),
			checks:   map[string]handler.Pinger{"mongo": m},
			cleanup: []func(){func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = m.Close(ctx)
			}},
		}, nil

	case config.StoreDriverMemory:
		slog.Warn("using in-memory store; data is lost on restart")
		users := memory.NewUserStore()
		return &stores{
			users:    users,
			services: memory.NewServiceStore(),
			checks:   map[string]handler.Pinger{"memory": users},
		}, nil

	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}

func (a *App) Run() error {
	serveErr := make(chan error, 1)
	go func() {
		slog.Info("server starting", "addr", a.server.Addr)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(stop)

	select {
	case err := <-serveErr:
		a.cleanup()
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-stop:
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	shutdownErr := a.server.Shutdown(ctx)
	a.cleanup()
	if shutdownErr != nil {
		return fmt.Errorf("graceful shutdown failed: %w", shutdownErr)
	}

	slog.Info("server stopped")
	return nil
}

func (a *App) cleanup() {
	for i := len(a.cleanupFuncs) - 1; i >= 0; i-- {
		a.cleanupFuncs[i]()
	}
	a.cleanupFuncs = nil
}
