package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"taskboard/internal/config"
	"taskboard/internal/handlers"
	"taskboard/internal/logger"
	"taskboard/internal/middleware"
	"taskboard/internal/repository/task/cache"
	"taskboard/internal/repository/task/inmemory"
	"taskboard/internal/repository/task/postgres"
	"taskboard/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/redis/go-redis/v9"
	"github.com/sourcegraph/conc"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

type App struct {
	config     *config.Config
	server     *http.Server
	router     *chi.Mux
	repository service.TaskRepository
	service    handlers.Service
	shutdowns  []func(context.Context) error
}

func New(cfg *config.Config) *App {
	return &App{
		config:    cfg,
		shutdowns: make([]func(context.Context) error, 0),
	}
}

// Init builds the store server. Resources acquired before a failure are released by Shutdown.
func (a *App) Init(ctx context.Context) error {
	if err := logger.Init(a.config.Logging.Development); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	a.onShutdown(func(context.Context) error {
		logger.Info("App: flushing logs")
		logger.Sync()
		return nil
	})

	repo, err := a.initRepository(ctx)
	if err != nil {
		return err
	}
	a.repository = repo
	a.service = service.NewTaskService(repo)

	a.router = a.initRouter()
	a.server = &http.Server{
		Addr:         a.config.GetServerAddr(),
		Handler:      otelhttp.NewHandler(a.router, "taskboard-store"),
		ReadTimeout:  a.config.Server.ReadTimeout,
		WriteTimeout: a.config.Server.WriteTimeout,
	}
	return nil
}

// Handler exposes the routed server handler, mostly for tests.
func (a *App) Handler() http.Handler {
	return a.router
}

func (a *App) initRepository(ctx context.Context) (service.TaskRepository, error) {
	var repo service.TaskRepository

	switch a.config.Repository.Type {
	case "postgres":
		db := a.config.Database
		if db.Migrate {
			if err := postgres.Migrate(db.URL); err != nil {
				return nil, fmt.Errorf("migrate: %w", err)
			}
		}
		storage, err := postgres.New(ctx, db.URL, postgres.PoolConfig{
			MaxConns:        int32(db.MaxConnections),
			MinConns:        int32(db.MinConnections),
			MaxConnIdleTime: db.IdleTimeout,
		})
		if err != nil {
			return nil, fmt.Errorf("init postgres: %w", err)
		}
		a.onShutdown(func(context.Context) error {
			storage.Close()
			return nil
		})
		repo = storage
	default:
		logger.Info("App: using in-memory repository")
		repo = inmemory.NewTaskStorage()
	}

	if !a.config.Cache.Enabled {
		return repo, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     a.config.Cache.RedisAddr,
		Password: a.config.Cache.Password,
		DB:       a.config.Cache.DB,
	})
	a.onShutdown(func(context.Context) error {
		return client.Close()
	})
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("App: redis unreachable, cache will miss until it recovers",
			zap.String("addr", a.config.Cache.RedisAddr),
			zap.Error(err))
	}
	return cache.New(repo, client, a.config.Cache.TTL), nil
}

func (a *App) initRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: a.config.Server.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID", "X-RateLimit-Remaining"},
		MaxAge:         300,
	}))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logging)
	r.Use(middleware.Timeout(a.config.Server.RequestTimeout))
	r.Use(middleware.RateLimit(a.config.Server.RateLimit))

	h := handlers.NewTaskHandler(a.service)
	h.Routes(r, middleware.Auth([]byte(a.config.Auth.TokenSecret)))
	return r
}

// Run serves until ctx is done or the listener fails, then shuts everything down.
func (a *App) Run(ctx context.Context) error {
	if a.server == nil {
		return errors.New("app is not initialised")
	}

	var wg conc.WaitGroup
	serveErr := make(chan error, 1)
	wg.Go(func() {
		defer close(serveErr)
		logger.Info("HTTP: server started", zap.String("addr", a.server.Addr))
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- fmt.Errorf("serve: %w", err)
		}
	})

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("App: shutdown requested")
	case err := <-serveErr:
		runErr = err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.config.Server.ShutdownTimeout)
	defer cancel()
	err := multierr.Combine(runErr, a.Shutdown(shutdownCtx))
	wg.Wait()
	return err
}

// Shutdown stops the HTTP server and runs the shutdown hooks in reverse order.
func (a *App) Shutdown(ctx context.Context) error {
	var err error
	if a.server != nil {
		if serr := a.server.Shutdown(ctx); serr != nil {
			err = multierr.Append(err, fmt.Errorf("shutdown server: %w", serr))
		}
	}
	for i := len(a.shutdowns) - 1; i >= 0; i-- {
		err = multierr.Append(err, a.shutdowns[i](ctx))
	}
	a.shutdowns = nil
	return err
}

func (a *App) onShutdown(fn func(context.Context) error) {
	a.shutdowns = append(a.shutdowns, fn)
}
