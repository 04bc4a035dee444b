// cmd/worker/main.go
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/unclebandit/churchcare-backend/internal/app"
	"github.com/unclebandit/churchcare-backend/internal/config"
	"github.com/unclebandit/churchcare-backend/internal/db"
	"github.com/unclebandit/churchcare-backend/internal/logging"
	"github.com/unclebandit/churchcare-backend/internal/queue"
)

const shutdownTimeout = 30 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("invalid configuration")
	}
	log := logging.New(cfg.Env, cfg.LogLevel)

	if err := run(cfg, log); err != nil {
		log.WithError(err).Fatal("worker stopped")
	}
}

// checkDriver refuses to start against the in-memory queue, which the
// server process consumes itself.
func checkDriver(cfg *config.Config) error {
	if cfg.QueueDriver != "amqp" {
		return fmt.Errorf("worker requires QUEUE_DRIVER=amqp, got %q", cfg.QueueDriver)
	}
	if cfg.AMQPURL == "" {
		return fmt.Errorf("AMQP_URL is required")
	}
	return nil
}

func run(cfg *config.Config, log *logrus.Logger) error {
	if err := checkDriver(cfg); err != nil {
		return err
	}

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
	stopBackground, err := a.StartBackground()
	if err != nil {
		return err
	}
	log.WithFields(logrus.Fields{
		"queue":     cfg.DeliveryQueue,
		"scheduler": cfg.SchedulerEnabled,
	}).Info("worker started")

	var runErr error
	select {
	case <-ctx.Done():
		log.Info("shutting down")
	case runErr = <-lost(q):
		log.WithError(runErr).Error("queue lost, shutting down")
	}

	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	stopBackground(sctx)
	return runErr
}

// lost returns the queue's loss notifications, or nil for queues that
// cannot lose their connection. A nil channel never fires in a select.
func lost(q queue.Queue) <-chan error {
	if w, ok := q.(queue.Watcher); ok {
		return w.Lost()
	}
	return nil
}
