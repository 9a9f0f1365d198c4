package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/kfcFriedChicken16/DEV-MediChain-sub001/internal/config"
	"github.com/kfcFriedChicken16/DEV-MediChain-sub001/internal/platform/audit"
	"github.com/kfcFriedChicken16/DEV-MediChain-sub001/internal/platform/auth"
	"github.com/kfcFriedChicken16/DEV-MediChain-sub001/internal/platform/blobstore"
	"github.com/kfcFriedChicken16/DEV-MediChain-sub001/internal/platform/db"
	"github.com/kfcFriedChicken16/DEV-MediChain-sub001/internal/platform/kv"
	"github.com/kfcFriedChicken16/DEV-MediChain-sub001/internal/platform/middleware"
	"github.com/kfcFriedChicken16/DEV-MediChain-sub001/internal/registry"
)

const version = "0.1.0"

// closers are released in reverse order on shutdown.
type closers []func()

func (cs closers) close() {
	for i := len(cs) - 1; i >= 0; i-- {
		cs[i]()
	}
}

func newLogger(cfg *config.Config) zerolog.Logger {
	if cfg.IsDev() {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}

func runServer() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	logger := newLogger(cfg)

	e, release, err := buildServer(context.Background(), cfg, logger)
	if err != nil {
		logger.Error().Err(err).Msg("failed to build server")
		return err
	}
	defer release()

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("store", cfg.StoreBackend).Str("blobs", cfg.BlobBackend).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("server shutdown failed")
		return err
	}
	logger.Info().Msg("server stopped")
	return nil
}

// buildServer opens the configured backends and mounts the registry on a new
// echo instance. The returned func releases every backend.
func buildServer(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*echo.Echo, func(), error) {
	var release closers
	fail := func(err error) (*echo.Echo, func(), error) {
		release.close()
		return nil, nil, err
	}

	sub, pool, closeStore, err := openSubstrate(ctx, cfg)
	if err != nil {
		return fail(err)
	}
	release = append(release, closeStore)

	blobs, closeBlobs, err := openBlobs(ctx, cfg)
	if err != nil {
		return fail(err)
	}
	release = append(release, closeBlobs)

	publishers := []audit.Publisher{audit.NewLogPublisher(logger)}
	if cfg.RedisURL != "" {
		rdb, err := audit.NewRedisClient(cfg.RedisURL)
		if err != nil {
			return fail(err)
		}
		release = append(release, func() { _ = rdb.Close() })
		publishers = append(publishers, audit.NewStreamPublisher(rdb, cfg.AuditStream, cfg.AuditStreamMax))
		logger.Info().Str("stream", cfg.AuditStream).Int64("maxlen", cfg.AuditStreamMax).Msg("publishing audit events to redis")
	}

	reg := registry.New(sub, blobs, registry.Options{
		MaxShareDuration: cfg.MaxShareDuration,
		Publishers:       publishers,
		Logger:           logger,
	})

	authMW, err := authMiddleware(cfg)
	if err != nil {
		return fail(err)
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders())
	e.Use(middleware.BodyLimit(cfg.BodyLimit, cfg.BlobBodyLimit))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID", auth.PrincipalHeader},
	}))
	e.Use(authMW)

	rateLimitCfg := middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}
	if rateLimitCfg.RequestsPerSecond <= 0 {
		rateLimitCfg = middleware.DefaultRateLimitConfig()
	}
	apiV1 := e.Group("/api/v1", middleware.RateLimit(rateLimitCfg))
	reg.RegisterRoutes(apiV1)

	// Health check
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": version,
			"store":   cfg.StoreBackend,
		})
	})
	if pool != nil {
		e.GET("/health/db", db.HealthHandler(pool))
	}

	return e, release.close, nil
}

// openSubstrate returns the repositories for STORE_BACKEND. The pool is non-nil
// only for postgres.
func openSubstrate(ctx context.Context, cfg *config.Config) (registry.Substrate, *pgxpool.Pool, func(), error) {
	switch cfg.StoreBackend {
	case config.BackendPostgres:
		pool, err := db.NewPool(ctx, db.PoolConfig{
			URL:      cfg.DatabaseURL,
			MaxConns: cfg.DBMaxConns,
			MinConns: cfg.DBMinConns,
			Schema:   cfg.DBSchema,
		})
		if err != nil {
			return registry.Substrate{}, nil, nil, err
		}
		return registry.PGSubstrate(pool), pool, pool.Close, nil
	case config.BackendLevelDB:
		store, err := kv.OpenLevelDB(cfg.LevelDBPath)
		if err != nil {
			return registry.Substrate{}, nil, nil, err
		}
		return registry.KVSubstrate(store), nil, func() { _ = store.Close() }, nil
	case config.BackendMemory:
		return registry.KVSubstrate(kv.NewMemoryStore()), nil, func() {}, nil
	}
	return registry.Substrate{}, nil, nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
}

func openBlobs(ctx context.Context, cfg *config.Config) (blobstore.Store, func(), error) {
	switch cfg.BlobBackend {
	case config.BackendS3:
		s, err := blobstore.NewS3StoreFromEnv(ctx, cfg.S3Bucket, cfg.S3Prefix)
		if err != nil {
			return nil, nil, err
		}
		return s, func() {}, nil
	case config.BackendLevelDB:
		store, err := kv.OpenLevelDB(cfg.BlobPath)
		if err != nil {
			return nil, nil, err
		}
		return blobstore.NewKVStore(store), func() { _ = store.Close() }, nil
	case config.BackendMemory:
		return blobstore.NewMemoryStore(), func() {}, nil
	}
	return nil, nil, fmt.Errorf("unknown blob backend %q", cfg.BlobBackend)
}

// authMiddleware trusts the principal header in development, falling back to
// bearer tokens when a verifier is configured.
func authMiddleware(cfg *config.Config) (echo.MiddlewareFunc, error) {
	key, err := cfg.SigningKey()
	if err != nil {
		return nil, err
	}
	var jwtMW echo.MiddlewareFunc
	if len(key) > 0 || cfg.AuthJWKSURL != "" {
		jwtMW = auth.JWTMiddleware(auth.JWTConfig{
			Issuer:     cfg.AuthIssuer,
			Audience:   cfg.AuthAudience,
			JWKSURL:    cfg.AuthJWKSURL,
			SigningKey: key,
		})
	}
	if cfg.IsDev() {
		return auth.DevAuthMiddleware(jwtMW), nil
	}
	if jwtMW == nil {
		return nil, fmt.Errorf("no token verifier configured")
	}
	return jwtMW, nil
}
