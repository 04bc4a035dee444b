// Package scheduler runs the periodic background jobs: automation rules and
// scheduled message dispatch.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/unclebandit/churchcare-backend/internal/metrics"
	"github.com/unclebandit/churchcare-backend/internal/model"
)

const (
	JobAutomation        = "automation"
	JobScheduledMessages = "scheduled_messages"
)

// Job is one unit of periodic work.
type Job func(ctx context.Context) error

type AutomationRunner interface {
	RunAll(ctx context.Context) ([]*model.ExecutionResult, error)
}

type DueDispatcher interface {
	DispatchDue(ctx context.Context) (int, error)
}

type Scheduler struct {
	cron    *cron.Cron
	log     logrus.FieldLogger
	timeout time.Duration

	ctx    context.Context
	cancel context.CancelFunc

	mu   sync.Mutex
	jobs map[string]cron.EntryID
}

// New builds a scheduler evaluating specs in UTC. An overlapping run of the
// same job is skipped rather than queued.
func New(log logrus.FieldLogger, timeout time.Duration) *Scheduler {
	cl := cronLogger{log: log}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(time.UTC),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		log:     log,
		timeout: timeout,
		ctx:     ctx,
		cancel:  cancel,
		jobs:    make(map[string]cron.EntryID),
	}
}

// Add registers job under name with a standard five-field cron spec.
func (s *Scheduler) Add(name, spec string, job Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.jobs[name]; exists {
		return fmt.Errorf("job %q already registered", name)
	}
	id, err := s.cron.AddFunc(spec, func() { s.run(name, job) })
	if err != nil {
		return fmt.Errorf("invalid schedule %q for job %q: %w", spec, name, err)
	}
	s.jobs[name] = id
	s.log.WithFields(logrus.Fields{"job": name, "spec": spec}).Info("job scheduled")
	return nil
}

// Next reports when name runs next. It is zero before Start.
func (s *Scheduler) Next(name string) time.Time {
	s.mu.Lock()
	id, ok := s.jobs[name]
	s.mu.Unlock()
	if !ok {
		return time.Time{}
	}
	return s.cron.Entry(id).Next
}

func (s *Scheduler) run(name string, job Job) {
	ctx := s.ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	err := job(ctx)
	metrics.RecordSchedulerJob(name, err)

	log := s.log.WithFields(logrus.Fields{"job": name, "duration_ms": time.Since(start).Milliseconds()})
	if err != nil {
		log.WithError(err).Error("job failed")
		return
	}
	log.Debug("job finished")
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop prevents new runs, cancels running jobs' context and waits for them
// to return or for ctx to expire.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	s.cancel()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// AutomationJob runs every active automation rule.
func AutomationJob(r AutomationRunner, log logrus.FieldLogger) Job {
	return func(ctx context.Context) error {
		results, err := r.RunAll(ctx)
		if err != nil {
			return err
		}
		var matched int
		for _, res := range results {
			matched += res.MatchedMembers
		}
		log.WithFields(logrus.Fields{"rules": len(results), "matched": matched}).Info("automation run complete")
		return nil
	}
}

// ScheduledMessagesJob dispatches scheduled messages that are due.
func ScheduledMessagesJob(d DueDispatcher, log logrus.FieldLogger) Job {
	return func(ctx context.Context) error {
		n, err := d.DispatchDue(ctx)
		if err != nil {
			return err
		}
		if n > 0 {
			log.WithField("messages", n).Info("scheduled messages dispatched")
		}
		return nil
	}
}

// cronLogger adapts logrus to cron.Logger.
type cronLogger struct {
	log logrus.FieldLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.WithFields(fields(keysAndValues)).Debug("cron: " + msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.WithError(err).WithFields(fields(keysAndValues)).Error("cron: " + msg)
}

func fields(kv []interface{}) logrus.Fields {
	f := make(logrus.Fields, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		f[fmt.Sprint(kv[i])] = kv[i+1]
	}
	return f
}
