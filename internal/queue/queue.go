package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// DefaultMaxRetries is how many times a failed job is retried before it is dropped.
const DefaultMaxRetries = 3

// Handler processes one JSON encoded job.
type Handler func(ctx context.Context, body []byte) error

type Queue interface {
	Publish(ctx context.Context, topic string, payload any) error
	Subscribe(topic string, handler Handler) error
	Close() error
}

// Watcher is implemented by queues backed by a connection that can be lost.
type Watcher interface {
	Lost() <-chan error
}

// InMemoryQueue runs every job on its own goroutine with retry.
type InMemoryQueue struct {
	mu       sync.Mutex
	handlers map[string][]Handler
	wg       sync.WaitGroup
	closed   bool

	log        logrus.FieldLogger
	maxRetries int
	backoff    time.Duration
}

func NewInMemoryQueue(log logrus.FieldLogger) *InMemoryQueue {
	return &InMemoryQueue{
		handlers:   make(map[string][]Handler),
		log:        log,
		maxRetries: DefaultMaxRetries,
		backoff:    500 * time.Millisecond,
	}
}

type job struct {
	topic   string
	body    []byte
	attempt int
}

func (q *InMemoryQueue) Publish(ctx context.Context, topic string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s job: %w", topic, err)
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return fmt.Errorf("queue closed")
	}
	handlers := q.handlers[topic]
	if len(handlers) == 0 {
		return fmt.Errorf("no subscribers for topic %s", topic)
	}

	for _, h := range handlers {
		q.wg.Add(1)
		go q.process(h, job{topic: topic, body: body})
	}
	return nil
}

// process retries with linear backoff. Jobs outlive the publishing request,
// so they run on a fresh context.
func (q *InMemoryQueue) process(h Handler, j job) {
	defer q.wg.Done()

	for {
		err := h(context.Background(), j.body)
		if err == nil {
			return
		}

		j.attempt++
		entry := q.log.WithFields(logrus.Fields{
			"topic":   j.topic,
			"attempt": j.attempt,
			"error":   err.Error(),
		})
		if j.attempt > q.maxRetries {
			entry.Error("job permanently failed")
			return
		}
		entry.Warn("job failed, retrying")
		time.Sleep(time.Duration(j.attempt) * q.backoff)
	}
}

func (q *InMemoryQueue) Subscribe(topic string, handler Handler) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.handlers[topic] = append(q.handlers[topic], handler)
	return nil
}

// Close stops accepting jobs and waits for in-flight ones.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()

	q.wg.Wait()
	return nil
}

var _ Queue = (*InMemoryQueue)(nil)
