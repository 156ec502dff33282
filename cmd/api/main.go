package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/geocoder89/userhub/internal/auth"
	"github.com/geocoder89/userhub/internal/cache"
	"github.com/geocoder89/userhub/internal/config"
	"github.com/geocoder89/userhub/internal/db"
	httpx "github.com/geocoder89/userhub/internal/http"
	"github.com/geocoder89/userhub/internal/http/handlers"
	"github.com/geocoder89/userhub/internal/observability"
	"github.com/geocoder89/userhub/internal/repo/cached"
	"github.com/geocoder89/userhub/internal/repo/memory"
	"github.com/geocoder89/userhub/internal/repo/postgres"
)

type userStore interface {
	cached.Store
	handlers.Pinger
}

func main() {
	// Load the config set up
	cfg := config.Load()

	// start up the observability logger
	log := observability.NewLogger(cfg.Env)

	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "err", err)
		os.Exit(1)
	}

	startCtx, cancelStart := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelStart()

	shutdownTracer, err := observability.InitTracer(startCtx, cfg.OTelServiceName, cfg.OTelEndpoint)
	if err != nil {
		log.Error("tracer init failed", "err", err)
		os.Exit(1)
	}

	prom := observability.NewProm()

	// pick the backing store
	var store userStore
	var closers []func()

	switch cfg.StoreDriver {
	case config.StoreDriverPostgres:
		pool, err := db.NewPool(startCtx, cfg.DBURL, 5)
		if err != nil {
			log.Error("db connect failed", "err", err)
			os.Exit(1)
		}
		closers = append(closers, pool.Close)

		// the pool only comes back once the database answers
		if cfg.MigrateOnStart {
			if err := db.MigrateUp(cfg.DBURL); err != nil {
				log.Error("migrations failed", "err", err)
				os.Exit(1)
			}
			log.Info("migrations applied")
		}

		store = postgres.NewUsersRepo(pool, prom)
	default:
		log.Warn("using in-memory user store; data is lost on restart")
		store = memory.NewUsersRepo()
	}

	checks := []handlers.ReadinessCheck{{Name: "store", Pinger: store}}

	// read cache: redis when configured, process memory otherwise
	var readCache cache.Store
	if cfg.RedisAddr != "" {
		rc := cache.NewRedis(cache.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			TTL:      cfg.CacheTTL,
			Prefix:   "userhub:",
		})
		closers = append(closers, func() { _ = rc.Close() })
		checks = append(checks, handlers.ReadinessCheck{Name: "cache", Pinger: rc})
		readCache = rc
	} else {
		readCache = cache.New(cfg.CacheTTL)
	}

	users := cached.NewUsersRepo(store, readCache, log)

	created, err := db.EnsureAdminUser(startCtx, users, cfg)
	if err != nil {
		log.Error("admin seed failed", "err", err)
		os.Exit(1)
	}
	if created {
		log.Info("admin user created", "email", cfg.AdminEmail)
	}

	if cfg.JWTSecret == "" {
		log.Warn("JWT_SECRET is not set; signing tokens with the built-in test secret", "env", cfg.Env)
	}
	tokens := auth.NewManager(cfg.SigningSecret(), cfg.JWTTTL)

	// set up routers with the log
	router := httpx.NewRouter(log, cfg, httpx.Deps{
		Users:  users,
		Tokens: tokens,
		Prom:   prom,
		Checks: checks,
	})

	// server set up
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("Server starting", "port", cfg.Port, "env", cfg.Env, "store", cfg.StoreDriver)
		err := srv.ListenAndServe()

		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server failed", "err", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Info("server shutting down")

	shutdownCh := make(chan struct{})

	go func() {
		defer close(shutdownCh)

		ctx, cancel := config.WithTimeout(10 * time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.Error("graceful shutdown failed", "err", err)
		}

		if err := shutdownTracer(ctx); err != nil {
			log.Error("tracer shutdown failed", "err", err)
		}

		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}()

	select {
	case <-shutdownCh:
		log.Info("shutdown complete")

	case <-time.After(12 * time.Second):
		log.Error("shutdown timed out")
	}
}
