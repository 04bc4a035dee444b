package app

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unclebandit/churchcare-backend/internal/config"
	"github.com/unclebandit/churchcare-backend/internal/logging"
	"github.com/unclebandit/churchcare-backend/internal/model"
	"github.com/unclebandit/churchcare-backend/internal/queue"
)

func testConfig() *config.Config {
	return &config.Config{
		JWTSecret:             "secret",
		JWTExpiresIn:          time.Hour,
		BcryptSaltRounds:      4,
		QueueDriver:           "memory",
		DeliveryQueue:         "message_deliveries",
		AutomationCron:        "0 6 * * *",
		ScheduledMessagesCron: "* * * * *",
	}
}

func TestNewWiresEverything(t *testing.T) {
	conn, _, err := sqlmock.New()
	require.NoError(t, err)
	defer conn.Close()

	log := logging.Discard()
	q, err := OpenQueue(testConfig(), log)
	require.NoError(t, err)
	assert.IsType(t, &queue.InMemoryQueue{}, q)

	a := New(testConfig(), conn, q, log)
	assert.Same(t, a.Messages, a.Engine.Dispatcher)
	assert.Equal(t, "message_deliveries", a.Messages.Topic)

	c := a.Controllers()
	assert.NotNil(t, c.Members.Members)
	assert.NotNil(t, c.Analytics.Analytics)

	require.NoError(t, a.ConsumeDeliveries())
	require.NoError(t, q.Close())
}

func TestDeliveriesReachTheProcessor(t *testing.T) {
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer conn.Close()

	q := queue.NewInMemoryQueue(logging.Discard())
	a := New(testConfig(), conn, q, logging.Discard())
	require.NoError(t, a.ConsumeDeliveries())

	mock.ExpectQuery("FROM message_recipients").
		WithArgs("r1").
		WillReturnError(sql.ErrNoRows)

	require.NoError(t, q.Publish(context.Background(), "message_deliveries", model.DeliveryJob{MessageID: "m1", RecipientID: "r1"}))
	require.NoError(t, q.Close())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSchedulerRegistersJobs(t *testing.T) {
	conn, _, err := sqlmock.New()
	require.NoError(t, err)
	defer conn.Close()

	a := New(testConfig(), conn, queue.NewInMemoryQueue(logging.Discard()), logging.Discard())
	s, err := a.Scheduler()
	require.NoError(t, err)
	require.NotNil(t, s)

	cfg := testConfig()
	cfg.AutomationCron = "daily please"
	a.Config = cfg
	_, err = a.Scheduler()
	assert.Error(t, err)
}

func TestStartBackground(t *testing.T) {
	conn, _, err := sqlmock.New()
	require.NoError(t, err)
	defer conn.Close()

	cfg := testConfig()
	cfg.SchedulerEnabled = true
	q := queue.NewInMemoryQueue(logging.Discard())
	a := New(cfg, conn, q, logging.Discard())

	stop, err := a.StartBackground()
	require.NoError(t, err)
	stop(context.Background())
	require.NoError(t, q.Close())

	cfg.ScheduledMessagesCron = "not a cron"
	_, err = New(cfg, conn, queue.NewInMemoryQueue(logging.Discard()), logging.Discard()).StartBackground()
	assert.Error(t, err)
}
