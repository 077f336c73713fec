package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"eventattend/internal/admin"
	"eventattend/internal/attendance"
	"eventattend/internal/auth"
	"eventattend/internal/config"
	"eventattend/internal/directory"
	"eventattend/internal/events"
	"eventattend/internal/handler"
	"eventattend/internal/httpmiddleware"
	"eventattend/internal/logging"
	"eventattend/internal/store"
	"eventattend/internal/store/memory"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("invalid configuration")
	}
	log := logging.New(cfg.LogLevel, cfg.LogFormat)

	// Set Gin mode based on environment
	if cfg.Production() {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := runHTTP(cfg, log); err != nil {
		log.WithError(err).Fatal("http server failed")
	}
}

// backend is the set of stores the services run on.
type backend struct {
	attendance attendance.Store
	directory  attendance.Directory
	events     events.Store
	accounts   auth.Accounts
	members    admin.Store
	checks     []handler.HealthCheck
	closers    []func() error
}

func (b *backend) close(log logrus.FieldLogger) {
	for i := len(b.closers) - 1; i >= 0; i-- {
		if err := b.closers[i](); err != nil {
			log.WithError(err).Warn("close failed")
		}
	}
}

func openBackend(ctx context.Context, cfg config.App, log logrus.FieldLogger) (*backend, error) {
	b := &backend{}
	switch cfg.StoreBackend {
	case "memory":
		mem := memory.New()
		b.attendance, b.directory, b.events, b.accounts, b.members = mem, mem, mem, mem, mem
		log.Warn("using in-memory store, data is lost on restart")
	default:
		db, err := store.NewDB(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		b.closers = append(b.closers, db.Close)
		if err := db.Migrate(ctx); err != nil {
			b.close(log)
			return nil, err
		}
		repo := attendance.NewRepository(db.Client)
		b.attendance, b.directory = repo, repo
		b.events = events.NewRepository(db.Client)
		b.accounts = auth.NewRepository(db.Client)
		b.members = admin.NewRepository(db.Client)
		b.checks = append(b.checks, handler.HealthCheck{Name: "db", Ping: db.Ping})
	}

	if cfg.RedisAddr != "" {
		rdb := store.NewRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err := rdb.Ping(ctx); err != nil {
			// lookups fall through to the store until redis comes back
			log.WithError(err).WithField("addr", cfg.RedisAddr).Warn("redis not reachable")
		}
		b.closers = append(b.closers, rdb.Close)
		b.directory = directory.NewCache(b.directory, rdb.Client, cfg.DirectoryCacheTTL, log)
		b.checks = append(b.checks, handler.HealthCheck{Name: "redis", Ping: rdb.Ping})
	}
	return b, nil
}

func runHTTP(cfg config.App, log *logrus.Logger) error {
	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	startCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	b, err := openBackend(startCtx, cfg, log)
	cancel()
	if err != nil {
		return err
	}
	defer b.close(log)

	att := attendance.NewService(b.attendance, b.directory, attendance.Options{
		Location:          cfg.Location(),
		InsertConcurrency: cfg.InsertConcurrency,
		Logger:            log,
	})
	evts := events.NewService(b.events, cfg.Location())
	authSvc := auth.NewService(b.accounts, bcrypt.DefaultCost)
	members := admin.NewService(b.members, bcrypt.DefaultCost)
	h := handler.New(att, evts, authSvc, members, log, b.checks...)

	limiter := httpmiddleware.NewTokenBucket(cfg.RateLimitPerMin, cfg.RateLimitPerMin)
	go func() {
		t := time.NewTicker(time.Minute)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				limiter.Sweep(5 * time.Minute)
			}
		}
	}()

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(httpmiddleware.RequestLogger(log, "/healthz", "/metrics"))
	r.Use(httpmiddleware.Metrics())
	r.Use(cors.New(cors.Config{
		AllowOrigins:  cfg.CORSAllowOrigins,
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", httpmiddleware.RequestIDHeader},
		ExposeHeaders: []string{httpmiddleware.RequestIDHeader},
		MaxAge:        12 * time.Hour,
	}))
	r.Use(httpmiddleware.SecurityHeaders())
	r.Use(limiter.GinMiddleware())
	h.Routes(r)

	// Graceful shutdown
	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithFields(logrus.Fields{"port": cfg.HTTPPort, "backend": cfg.StoreBackend}).Info("starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		log.WithField("signal", sig.String()).Info("shutting down server")
	}

	// Give outstanding requests 10 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("server forced shutdown")
	}

	log.Info("server exited")
	return nil
}
