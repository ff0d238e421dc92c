package queue

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/kursadbilgin/rndc-gateway/internal/domain"
	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	dlxExchangeName  = "rndc.dlx"
	reconnectBackoff = time.Second
	maxBackoff       = 30 * time.Second
	connectTimeout   = 15 * time.Second
)

// RabbitMQ owns the broker connection shared by the batch run publisher and
// consumer. Every channel it hands out has the batch topology declared: one
// durable priority work queue per batch kind, dead-lettered to a matching DLQ.
type RabbitMQ struct {
	url string

	mu     sync.RWMutex
	dialMu sync.Mutex
	conn   *amqp.Connection
}

func NewRabbitMQ(ctx context.Context, url string) (*RabbitMQ, error) {
	if strings.TrimSpace(url) == "" {
		return nil, fmt.Errorf("rabbitmq url is required")
	}

	r := &RabbitMQ{url: url}

	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	if _, err := r.connection(ctx); err != nil {
		return nil, err
	}

	return r, nil
}

// Ping reports whether the broker connection is open.
func (r *RabbitMQ) Ping(ctx context.Context) error {
	if conn := r.current(); conn == nil || conn.IsClosed() {
		return fmt.Errorf("rabbitmq connection is closed")
	}
	return ctx.Err()
}

func (r *RabbitMQ) Close() error {
	r.mu.Lock()
	conn := r.conn
	r.conn = nil
	r.mu.Unlock()

	if conn == nil || conn.IsClosed() {
		return nil
	}

	return conn.Close()
}

func (r *RabbitMQ) current() *amqp.Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.conn
}

func (r *RabbitMQ) channel(ctx context.Context) (*amqp.Channel, error) {
	conn, err := r.connection(ctx)
	if err != nil {
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		// The broker may have dropped the connection since the last check.
		if conn, err = r.redial(ctx); err != nil {
			return nil, err
		}
		if ch, err = conn.Channel(); err != nil {
			return nil, fmt.Errorf("failed to open rabbitmq channel after reconnect: %w", err)
		}
	}

	if err := declareBatchTopology(ch); err != nil {
		_ = ch.Close()
		return nil, err
	}

	return ch, nil
}

// connection returns the open connection, dialing when there is none.
func (r *RabbitMQ) connection(ctx context.Context) (*amqp.Connection, error) {
	if conn := r.current(); conn != nil && !conn.IsClosed() {
		return conn, nil
	}
	return r.redial(ctx)
}

// redial replaces a closed connection, backing off until ctx ends. Concurrent
// callers share one dial.
func (r *RabbitMQ) redial(ctx context.Context) (*amqp.Connection, error) {
	r.dialMu.Lock()
	defer r.dialMu.Unlock()

	if conn := r.current(); conn != nil && !conn.IsClosed() {
		return conn, nil
	}

	wait := reconnectBackoff
	for {
		conn, err := amqp.Dial(r.url)
		if err == nil {
			r.mu.Lock()
			stale := r.conn
			r.conn = conn
			r.mu.Unlock()

			if stale != nil && !stale.IsClosed() {
				_ = stale.Close()
			}
			return conn, nil
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("rabbitmq dial canceled: %w (last error: %v)", ctx.Err(), err)
		case <-time.After(wait):
		}

		wait *= 2
		if wait > maxBackoff {
			wait = maxBackoff
		}
	}
}

func declareBatchTopology(ch *amqp.Channel) error {
	if err := ch.ExchangeDeclare(dlxExchangeName, "direct", true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare batch dead-letter exchange: %w", err)
	}

	for _, kind := range domain.BatchKinds() {
		if err := declareKindQueues(ch, kind); err != nil {
			return err
		}
	}

	return nil
}

func declareKindQueues(ch *amqp.Channel, kind domain.Kind) error {
	dlqName := DLQName(kind)
	if _, err := ch.QueueDeclare(dlqName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare %s dead-letter queue %q: %w", kind, dlqName, err)
	}
	if err := ch.QueueBind(dlqName, kindRoutingKey(kind), dlxExchangeName, false, nil); err != nil {
		return fmt.Errorf("failed to bind %s dead-letter queue %q: %w", kind, dlqName, err)
	}

	queueName := QueueName(kind)
	if _, err := ch.QueueDeclare(queueName, true, false, false, false, workQueueArgs(kind)); err != nil {
		return fmt.Errorf("failed to declare %s work queue %q: %w", kind, queueName, err)
	}
	return nil
}

// workQueueArgs dead-letters rejected runs of kind to its DLQ and enables
// run priorities.
func workQueueArgs(kind domain.Kind) amqp.Table {
	return amqp.Table{
		"x-dead-letter-exchange":    dlxExchangeName,
		"x-dead-letter-routing-key": kindRoutingKey(kind),
		"x-max-priority":            queueMaxPriority,
	}
}

func kindRoutingKey(kind domain.Kind) string {
	return strings.ToLower(kind.String())
}
