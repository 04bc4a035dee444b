package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/streadway/amqp"
)

const retryHeader = "x-retry-count"

// channel is the subset of *amqp.Channel the queue uses.
type channel interface {
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	Qos(prefetchCount, prefetchSize int, global bool) error
	Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
	Close() error
}

// AMQPQueue publishes jobs to durable RabbitMQ queues named after the topic.
type AMQPQueue struct {
	conn *amqp.Connection
	ch   channel

	mu       sync.Mutex
	declared map[string]bool
	closing  bool
	wg       sync.WaitGroup

	lost     chan error
	lostOnce sync.Once

	log        logrus.FieldLogger
	maxRetries int
}

func DialAMQP(url string, log logrus.FieldLogger) (*AMQPQueue, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	q := newAMQPQueue(ch, log)
	q.conn = conn

	closed := conn.NotifyClose(make(chan *amqp.Error, 1))
	go func() {
		if err, ok := <-closed; ok && err != nil {
			q.fail(fmt.Errorf("broker connection closed: %w", err))
		}
	}()
	return q, nil
}

func newAMQPQueue(ch channel, log logrus.FieldLogger) *AMQPQueue {
	return &AMQPQueue{
		ch:         ch,
		declared:   make(map[string]bool),
		lost:       make(chan error, 1),
		log:        log,
		maxRetries: DefaultMaxRetries,
	}
}

func (q *AMQPQueue) declare(topic string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.declared[topic] {
		return nil
	}
	if _, err := q.ch.QueueDeclare(topic, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare queue %s: %w", topic, err)
	}
	q.declared[topic] = true
	return nil
}

func (q *AMQPQueue) Publish(ctx context.Context, topic string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s job: %w", topic, err)
	}
	return q.publish(topic, body, 0)
}

func (q *AMQPQueue) publish(topic string, body []byte, retries int32) error {
	if err := q.declare(topic); err != nil {
		return err
	}
	return q.ch.Publish("", topic, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Headers:      amqp.Table{retryHeader: retries},
		Body:         body,
	})
}

// Subscribe consumes topic with manual acks. A failed job is republished with
// an incremented retry header until maxRetries is reached, then dropped.
func (q *AMQPQueue) Subscribe(topic string, handler Handler) error {
	if err := q.declare(topic); err != nil {
		return err
	}
	if err := q.ch.Qos(1, 0, false); err != nil {
		return fmt.Errorf("set qos: %w", err)
	}
	deliveries, err := q.ch.Consume(topic, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume %s: %w", topic, err)
	}

	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		for d := range deliveries {
			q.handle(topic, d, handler)
		}
		if !q.isClosing() {
			q.fail(fmt.Errorf("consumer for %s stopped", topic))
		}
	}()
	return nil
}

// Lost yields one error when the broker connection drops or a consumer
// stops outside of Close. The queue is unusable afterwards.
func (q *AMQPQueue) Lost() <-chan error {
	return q.lost
}

func (q *AMQPQueue) fail(err error) {
	if q.isClosing() {
		return
	}
	q.lostOnce.Do(func() {
		q.log.WithError(err).Error("queue connection lost")
		q.lost <- err
	})
}

func (q *AMQPQueue) isClosing() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closing
}

func (q *AMQPQueue) handle(topic string, d amqp.Delivery, handler Handler) {
	err := handler(context.Background(), d.Body)
	if err == nil {
		d.Ack(false)
		return
	}

	retries := retryCount(d.Headers)
	entry := q.log.WithFields(logrus.Fields{
		"topic":   topic,
		"attempt": retries + 1,
		"error":   err.Error(),
	})
	if int(retries) >= q.maxRetries {
		entry.Error("job permanently failed")
		d.Ack(false)
		return
	}

	entry.Warn("job failed, requeueing")
	if perr := q.publish(topic, d.Body, retries+1); perr != nil {
		entry.WithField("publish_error", perr.Error()).Error("requeue failed")
		d.Nack(false, true)
		return
	}
	d.Ack(false)
}

func retryCount(h amqp.Table) int32 {
	switch v := h[retryHeader].(type) {
	case int32:
		return v
	case int64:
		return int32(v)
	case int:
		return int32(v)
	}
	return 0
}

// Close closes the channel, which ends every consumer, then the connection.
func (q *AMQPQueue) Close() error {
	q.mu.Lock()
	q.closing = true
	q.mu.Unlock()

	err := q.ch.Close()
	q.wg.Wait()
	if q.conn != nil {
		if cerr := q.conn.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

var (
	_ Queue   = (*AMQPQueue)(nil)
	_ Watcher = (*AMQPQueue)(nil)
)
