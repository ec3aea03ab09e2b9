// Package server wires the pdtools backend together: configuration,
// storage backends, the tool service and the HTTP and gRPC listeners,
// and runs them until a termination signal arrives.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dmitrijs2005/pdtools/internal/document"
	"github.com/dmitrijs2005/pdtools/internal/logging"
	"github.com/dmitrijs2005/pdtools/internal/protection"
	"github.com/dmitrijs2005/pdtools/internal/server/cache"
	"github.com/dmitrijs2005/pdtools/internal/server/config"
	"github.com/dmitrijs2005/pdtools/internal/server/httpapi"
	"github.com/dmitrijs2005/pdtools/internal/server/metrics"
	"github.com/dmitrijs2005/pdtools/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/pdtools/internal/server/services"
	"github.com/dmitrijs2005/pdtools/internal/server/storage"
	"github.com/dmitrijs2005/pdtools/internal/server/tracing"

	gs "github.com/dmitrijs2005/pdtools/internal/server/grpc"
)

const limiterIdle = 10 * time.Minute

type App struct {
	config  *config.Config
	logger  logging.Logger
	db      *sql.DB
	cache   cache.CompareCache
	tracing *tracing.Provider
	http    *httpapi.Server
	grpc    *gs.GRPCServer
}

func NewApp(ctx context.Context, c *config.Config, version string) (*App, error) {
	logger := logging.NewJSONLogger(os.Stdout, c.LogLevel)

	app := &App{config: c, logger: logger}

	tp, err := tracing.Init(ctx, c.TracingEndpoint, version)
	if err != nil {
		return nil, fmt.Errorf("tracing init error: %w", err)
	}
	app.tracing = tp

	history, err := app.initHistory(ctx)
	if err != nil {
		app.close(ctx)
		return nil, err
	}

	var archive storage.Archive
	if c.S3Bucket != "" {
		archive, err = storage.NewS3Archive(ctx, storage.Options{
			User:         c.S3RootUser,
			Password:     c.S3RootPassword,
			Bucket:       c.S3Bucket,
			Region:       c.S3Region,
			BaseEndpoint: c.S3BaseEndpoint,
		})
		if err != nil {
			app.close(ctx)
			return nil, fmt.Errorf("s3 init error: %w", err)
		}
	}

	app.cache = cache.NewNoOpCompareCache()
	if c.RedisAddr != "" {
		rc, err := cache.NewRedisCompareCache(ctx, cache.RedisConfig{
			Addr:     c.RedisAddr,
			Password: c.RedisPassword,
			DB:       c.RedisDB,
			TTL:      c.CompareCacheTTL,
		})
		if err != nil {
			app.close(ctx)
			return nil, fmt.Errorf("redis init error: %w", err)
		}
		app.cache = rc
	}

	m := metrics.New()
	docs := document.NewPDFService(logger)

	tools := services.NewToolService(services.ToolServiceDeps{
		Protector: protection.NewProtector(docs, logger.With("module", "protection"),
			protection.WithHardenedHashing(c.HardenedHashing)),
		Documents: docs,
		History:   history,
		Archive:   archive,
		Cache:     app.cache,
		Metrics:   m,
		Tracer:    tp.Tracer("pdtools/services"),
		Logger:    logger.With("module", "tools"),
	})

	app.http = httpapi.NewServer(tools, m, logger.With("module", "http_server"), httpapi.Options{
		AllowedOrigins:     c.AllowedOrigins,
		MaxUploadSize:      c.MaxUploadSize,
		RateLimitPerMinute: c.RateLimitPerMinute,
		RateLimitBurst:     c.RateLimitBurst,
		SecretKey:          c.SecretKey,
	})
	app.grpc = gs.NewGRPCServer(c.EndpointAddrGRPC, logger)

	logger.Info(ctx, "app initialized",
		"history", historyKind(app.db),
		"archive", archive != nil,
		"cache", c.RedisAddr != "",
		"tracing", c.TracingEndpoint != "",
		"hardened", c.HardenedHashing,
	)

	return app, nil
}

// initHistory opens PostgreSQL and migrates it when a DSN is set; history
// stays in memory otherwise.
func (app *App) initHistory(ctx context.Context) (services.HistoryStore, error) {
	if app.config.DatabaseDSN == "" {
		return services.NewMemoryHistoryStore(), nil
	}

	db, err := repomanager.OpenPostgres(ctx, app.config.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	app.db = db

	rm, err := repomanager.NewPostgresRepositoryManager(db)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	if err := rm.RunMigrations(ctx, db); err != nil {
		return nil, fmt.Errorf("migrations error: %w", err)
	}

	return services.NewSQLHistoryStore(db, rm), nil
}

func historyKind(db *sql.DB) string {
	if db == nil {
		return "memory"
	}
	return "postgres"
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	srv := &http.Server{
		Addr:              app.config.EndpointAddrHTTP,
		Handler:           app.http.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		app.logger.Info(ctx, "Stopping HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), app.config.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			app.logger.Error(shutdownCtx, "http shutdown error", "error", err.Error())
		}
	}()

	app.logger.Info(ctx, "Starting HTTP server", "address", srv.Addr)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {
	if err := app.grpc.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// sweepLimiters drops idle rate limiter buckets until ctx is done.
func (app *App) sweepLimiters(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := app.http.Limiter().Sweep(limiterIdle); n > 0 {
				app.logger.Debug(ctx, "rate limiter sweep", "removed", n)
			}
		}
	}
}

func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(3)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()
	go func() {
		defer wg.Done()
		app.startGRPCServer(ctx, cancelFunc)
	}()
	go func() {
		defer wg.Done()
		app.sweepLimiters(ctx)
	}()

	app.grpc.SetServing(true)

	<-ctx.Done()
	app.grpc.SetServing(false)

	wg.Wait()

	app.close(context.Background())
	app.logger.Info(ctx, "App stopped")
}

// close releases backends. Safe on a partially built App.
func (app *App) close(ctx context.Context) {
	if app.cache != nil {
		if err := app.cache.Close(); err != nil {
			app.logger.Error(ctx, "cache close error", "error", err.Error())
		}
	}
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error(ctx, "db close error", "error", err.Error())
		}
	}
	if app.tracing != nil {
		shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := app.tracing.Shutdown(shutdownCtx); err != nil {
			app.logger.Error(ctx, "tracing shutdown error", "error", err.Error())
		}
	}
}
