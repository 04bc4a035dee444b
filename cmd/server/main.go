// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/unclebandit/churchcare-backend/internal/app"
	"github.com/unclebandit/churchcare-backend/internal/config"
	"github.com/unclebandit/churchcare-backend/internal/db"
	"github.com/unclebandit/churchcare-backend/internal/handler"
	"github.com/unclebandit/churchcare-backend/internal/logging"
	"github.com/unclebandit/churchcare-backend/internal/middleware"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("invalid configuration")
	}
	log := logging.New(cfg.Env, cfg.LogLevel)

	if err := run(cfg, log); err != nil {
		log.WithError(err).Fatal("server stopped")
	}
}

func run(cfg *config.Config, log *logrus.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	conn, err := db.Open(ctx, db.Options{
		URL:          cfg.DatabaseURL,
		MaxOpenConns: cfg.DBMaxOpenConns,
		MaxIdleConns: cfg.DBMaxIdleConns,
	}, log)
	if err != nil {
		return err
	}
	defer conn.Close()

	q, err := app.OpenQueue(cfg, log)
	if err != nil {
		return err
	}
	defer q.Close()

	a := app.New(cfg, conn, q, log)
	// With the in-memory driver there is no separate worker process.
	if cfg.QueueDriver != "amqp" {
		stopBackground, err := a.StartBackground()
		if err != nil {
			return err
		}
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			stopBackground(sctx)
		}()
	}

	limiter := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, log)
	limiter.StartCleanup(time.Minute, ctx.Done())

	srv := &http.Server{
		Addr: ":" + cfg.Port,
		Handler: handler.NewRouter(handler.Config{
			Tokens:      a.Tokens,
			DB:          conn,
			CORSOrigins: cfg.CORSOrigins,
			RateLimiter: limiter,
			Log:         log,
		}, a.Controllers()),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	errc := make(chan error, 1)
	go func() {
		log.WithFields(logrus.Fields{"port": cfg.Port, "env": cfg.Env}).Info("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(sctx)
}
