package queue

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/streadway/amqp"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return l
}

type deliveryJob struct {
	MessageID   string `json:"messageId"`
	RecipientID string `json:"recipientId"`
}

func TestInMemoryQueueDeliversJSON(t *testing.T) {
	q := NewInMemoryQueue(quietLogger())

	got := make(chan deliveryJob, 1)
	require.NoError(t, q.Subscribe("deliveries", func(ctx context.Context, body []byte) error {
		var j deliveryJob
		if err := json.Unmarshal(body, &j); err != nil {
			return err
		}
		got <- j
		return nil
	}))

	require.NoError(t, q.Publish(context.Background(), "deliveries", deliveryJob{MessageID: "m1", RecipientID: "r1"}))

	select {
	case j := <-got:
		assert.Equal(t, deliveryJob{MessageID: "m1", RecipientID: "r1"}, j)
	case <-time.After(time.Second):
		t.Fatal("job not delivered")
	}
	require.NoError(t, q.Close())
}

func TestInMemoryQueueRetries(t *testing.T) {
	q := NewInMemoryQueue(quietLogger())
	q.backoff = time.Millisecond

	var calls int32
	require.NoError(t, q.Subscribe("deliveries", func(ctx context.Context, body []byte) error {
		if atomic.AddInt32(&calls, 1) < 3 {
			return errors.New("smtp unavailable")
		}
		return nil
	}))
	require.NoError(t, q.Publish(context.Background(), "deliveries", "job"))
	require.NoError(t, q.Close())

	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestInMemoryQueueGivesUp(t *testing.T) {
	q := NewInMemoryQueue(quietLogger())
	q.backoff = time.Millisecond

	var calls int32
	require.NoError(t, q.Subscribe("deliveries", func(ctx context.Context, body []byte) error {
		atomic.AddInt32(&calls, 1)
		return errors.New("always fails")
	}))
	require.NoError(t, q.Publish(context.Background(), "deliveries", "job"))
	require.NoError(t, q.Close())

	assert.Equal(t, int32(DefaultMaxRetries+1), atomic.LoadInt32(&calls))
}

func TestInMemoryQueueWithoutSubscribers(t *testing.T) {
	q := NewInMemoryQueue(quietLogger())
	assert.EqualError(t, q.Publish(context.Background(), "nobody", 1), "no subscribers for topic nobody")

	require.NoError(t, q.Close())
	require.NoError(t, q.Subscribe("late", func(context.Context, []byte) error { return nil }))
	assert.Error(t, q.Publish(context.Background(), "late", 1))
}

type fakeChannel struct {
	mu         sync.Mutex
	declared   []string
	published  []amqp.Publishing
	deliveries chan amqp.Delivery
}

func newFakeChannel() *fakeChannel {
	return &fakeChannel{deliveries: make(chan amqp.Delivery, 4)}
}

func (c *fakeChannel) QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.declared = append(c.declared, name)
	return amqp.Queue{Name: name}, nil
}

func (c *fakeChannel) Qos(prefetchCount, prefetchSize int, global bool) error { return nil }

func (c *fakeChannel) Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.published = append(c.published, msg)
	return nil
}

func (c *fakeChannel) Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error) {
	return c.deliveries, nil
}

func (c *fakeChannel) Close() error {
	close(c.deliveries)
	return nil
}

func (c *fakeChannel) publishedCopy() []amqp.Publishing {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]amqp.Publishing(nil), c.published...)
}

type fakeAck struct {
	acks  int32
	nacks int32
}

func (a *fakeAck) Ack(tag uint64, multiple bool) error {
	atomic.AddInt32(&a.acks, 1)
	return nil
}

func (a *fakeAck) Nack(tag uint64, multiple, requeue bool) error {
	atomic.AddInt32(&a.nacks, 1)
	return nil
}

func (a *fakeAck) Reject(tag uint64, requeue bool) error { return nil }

func TestAMQPQueuePublishDeclaresOnce(t *testing.T) {
	ch := newFakeChannel()
	q := newAMQPQueue(ch, quietLogger())

	require.NoError(t, q.Publish(context.Background(), "deliveries", deliveryJob{MessageID: "m1"}))
	require.NoError(t, q.Publish(context.Background(), "deliveries", deliveryJob{MessageID: "m2"}))

	assert.Equal(t, []string{"deliveries"}, ch.declared)
	published := ch.publishedCopy()
	require.Len(t, published, 2)
	assert.Equal(t, int32(0), published[0].Headers[retryHeader])
	assert.Equal(t, amqp.Persistent, published[0].DeliveryMode)
	assert.JSONEq(t, `{"messageId":"m1","recipientId":""}`, string(published[0].Body))
}

func TestAMQPQueueRequeuesFailedJobs(t *testing.T) {
	ch := newFakeChannel()
	q := newAMQPQueue(ch, quietLogger())

	require.NoError(t, q.Subscribe("deliveries", func(ctx context.Context, body []byte) error {
		return errors.New("temporary")
	}))

	first := &fakeAck{}
	last := &fakeAck{}
	ch.deliveries <- amqp.Delivery{Acknowledger: first, Body: []byte(`{}`), Headers: amqp.Table{retryHeader: int32(1)}}
	ch.deliveries <- amqp.Delivery{Acknowledger: last, Body: []byte(`{}`), Headers: amqp.Table{retryHeader: int32(DefaultMaxRetries)}}
	require.NoError(t, q.Close())

	published := ch.publishedCopy()
	require.Len(t, published, 1)
	assert.Equal(t, int32(2), published[0].Headers[retryHeader])
	assert.Equal(t, int32(1), first.acks)
	assert.Equal(t, int32(1), last.acks)
	assert.Zero(t, last.nacks)
}

func TestRetryCount(t *testing.T) {
	assert.Equal(t, int32(0), retryCount(nil))
	assert.Equal(t, int32(2), retryCount(amqp.Table{retryHeader: int64(2)}))
	assert.Equal(t, int32(0), retryCount(amqp.Table{retryHeader: "x"}))
}

func TestAMQPQueueReportsStoppedConsumer(t *testing.T) {
	ch := newFakeChannel()
	q := newAMQPQueue(ch, quietLogger())
	require.NoError(t, q.Subscribe("deliveries", func(context.Context, []byte) error { return nil }))

	// the broker cancelling the consumer closes its delivery channel
	close(ch.deliveries)

	select {
	case err := <-q.Lost():
		assert.ErrorContains(t, err, "consumer for deliveries stopped")
	case <-time.After(time.Second):
		t.Fatal("lost connection was not reported")
	}
}

func TestAMQPQueueCloseIsNotReportedAsLost(t *testing.T) {
	ch := newFakeChannel()
	q := newAMQPQueue(ch, quietLogger())
	require.NoError(t, q.Subscribe("deliveries", func(context.Context, []byte) error { return nil }))
	require.NoError(t, q.Close())

	select {
	case err := <-q.Lost():
		t.Fatalf("unexpected loss: %v", err)
	default:
	}
}
