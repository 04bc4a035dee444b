package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unclebandit/churchcare-backend/internal/model"
)

type fakeRunner struct {
	results []*model.ExecutionResult
	err     error
}

func (f *fakeRunner) RunAll(context.Context) ([]*model.ExecutionResult, error) {
	return f.results, f.err
}

type fakeDispatcher struct {
	n     int
	err   error
	calls int
}

func (f *fakeDispatcher) DispatchDue(context.Context) (int, error) {
	f.calls++
	return f.n, f.err
}

func TestAddRejectsBadSpecAndDuplicates(t *testing.T) {
	log, _ := test.NewNullLogger()
	s := New(log, time.Second)
	noop := func(context.Context) error { return nil }

	require.NoError(t, s.Add(JobAutomation, "0 6 * * *", noop))
	assert.Error(t, s.Add(JobAutomation, "0 7 * * *", noop))
	assert.Error(t, s.Add("broken", "every tuesday", noop))
	assert.True(t, s.Next("missing").IsZero())
}

func TestStartComputesNextRun(t *testing.T) {
	log, _ := test.NewNullLogger()
	s := New(log, time.Second)
	require.NoError(t, s.Add(JobAutomation, "0 6 * * *", func(context.Context) error { return nil }))

	s.Start()
	defer s.Stop(context.Background())

	assert.Eventually(t, func() bool { return !s.Next(JobAutomation).IsZero() }, time.Second, 10*time.Millisecond)
	next := s.Next(JobAutomation).UTC()
	assert.Equal(t, 6, next.Hour())
	assert.Equal(t, 0, next.Minute())
}

func TestRunLogsFailures(t *testing.T) {
	log, hook := test.NewNullLogger()
	s := New(log, time.Second)

	s.run(JobScheduledMessages, func(ctx context.Context) error {
		_, hasDeadline := ctx.Deadline()
		assert.True(t, hasDeadline)
		return errors.New("db down")
	})

	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.ErrorLevel, hook.LastEntry().Level)
	assert.Equal(t, JobScheduledMessages, hook.LastEntry().Data["job"])
}

func TestStopCancelsRunningJobs(t *testing.T) {
	log, _ := test.NewNullLogger()
	s := New(log, 0)

	started := make(chan struct{})
	finished := make(chan error, 1)
	go s.run("slow", func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		finished <- ctx.Err()
		return ctx.Err()
	})
	<-started

	require.NoError(t, s.Stop(context.Background()))
	assert.ErrorIs(t, <-finished, context.Canceled)
}

func TestAutomationJob(t *testing.T) {
	log, hook := test.NewNullLogger()
	job := AutomationJob(&fakeRunner{results: []*model.ExecutionResult{{MatchedMembers: 2}, {MatchedMembers: 3}}}, log)

	require.NoError(t, job(context.Background()))
	assert.Equal(t, 5, hook.LastEntry().Data["matched"])

	failing := AutomationJob(&fakeRunner{err: errors.New("boom")}, log)
	assert.EqualError(t, failing(context.Background()), "boom")
}

func TestScheduledMessagesJob(t *testing.T) {
	log, hook := test.NewNullLogger()
	d := &fakeDispatcher{}

	require.NoError(t, ScheduledMessagesJob(d, log)(context.Background()))
	assert.Empty(t, hook.AllEntries())

	d.n = 4
	require.NoError(t, ScheduledMessagesJob(d, log)(context.Background()))
	assert.Equal(t, 4, hook.LastEntry().Data["messages"])
	assert.Equal(t, 2, d.calls)
}

func TestCronLoggerFields(t *testing.T) {
	assert.Equal(t, logrus.Fields{"entry": 1, "next": "soon"}, fields([]interface{}{"entry", 1, "next", "soon", "dangling"}))
}
