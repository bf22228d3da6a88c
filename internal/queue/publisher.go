package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v5"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/iliyamo/ticket-sale/internal/model"
)

// ErrPublisherClosed is returned by publishes after Close.
var ErrPublisherClosed = errors.New("rabbitmq: publisher closed")

// Dialer opens a broker connection.
type Dialer func(url string) (*amqp.Connection, error)

// Option configures a Publisher.
type Option func(*Publisher)

// WithBuffer sets how many messages may wait for the broker.  Messages
// beyond it are dropped.
func WithBuffer(n int) Option {
	return func(p *Publisher) {
		if n > 0 {
			p.buffer = n
		}
	}
}

// WithDialer replaces the broker dialer.
func WithDialer(d Dialer) Option {
	return func(p *Publisher) { p.dial = d }
}

// WithDialTimeout bounds each connection attempt of the default dialer.
func WithDialTimeout(d time.Duration) Option {
	return func(p *Publisher) { p.dialTimeout = d }
}

type message struct {
	queue string
	body  []byte
}

// Publisher sends domain events to RabbitMQ.  Publishing only enqueues:
// one goroutine owns the connection and drains the buffer, so a slow or
// unreachable broker never blocks a caller.  When the buffer is full the
// message is dropped and counted.  After a failed dial the publisher
// backs off and drops messages until the next attempt is due.
type Publisher struct {
	url         string
	log         *zap.Logger
	dial        Dialer
	dialTimeout time.Duration
	buffer      int

	mu     sync.RWMutex
	closed bool
	out    chan message

	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}
	dropped atomic.Uint64

	// owned by the loop goroutine
	conn     *amqp.Connection
	ch       *amqp.Channel
	declared map[string]bool
	retry    *backoff.ExponentialBackOff
	retryAt  time.Time
}

// NewPublisher starts a publisher for url.  Nothing is dialed until the
// first message.
func NewPublisher(url string, log *zap.Logger, opts ...Option) *Publisher {
	if log == nil {
		log = zap.NewNop()
	}
	p := &Publisher{
		url:         url,
		log:         log.With(zap.String("component", "publisher")),
		dialTimeout: 5 * time.Second,
		buffer:      1024,
		done:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.dial == nil {
		timeout := p.dialTimeout
		p.dial = func(url string) (*amqp.Connection, error) {
			return amqp.DialConfig(url, amqp.Config{Dial: amqp.DefaultDial(timeout)})
		}
	}
	p.retry = backoff.NewExponentialBackOff()
	p.retry.InitialInterval = time.Second
	p.retry.MaxInterval = 30 * time.Second
	p.out = make(chan message, p.buffer)
	p.ctx, p.cancel = context.WithCancel(context.Background())
	go p.loop()
	return p
}

func (p *Publisher) PurchaseConfirmed(_ context.Context, pur model.Purchase) error {
	return p.enqueue(PurchaseConfirmedQueue, newPurchaseConfirmed(pur))
}

func (p *Publisher) SaleStateChanged(_ context.Context, eventID string, from, to model.SaleState, at time.Time) error {
	return p.enqueue(SaleStateChangedQueue, newSaleStateChanged(eventID, from, to, at))
}

// Dropped returns how many messages were discarded because the buffer
// was full or the broker could not be reached.
func (p *Publisher) Dropped() uint64 { return p.dropped.Load() }

func (p *Publisher) enqueue(queue string, event any) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("rabbitmq: marshal %s: %w", queue, err)
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPublisherClosed
	}
	select {
	case p.out <- message{queue: queue, body: body}:
		return nil
	default:
		p.dropped.Add(1)
		return fmt.Errorf("rabbitmq: buffer full; %s dropped", queue)
	}
}

func (p *Publisher) loop() {
	defer close(p.done)
	defer p.reset()
	for m := range p.out {
		if p.ctx.Err() != nil {
			p.dropped.Add(1)
			continue
		}
		if err := p.send(m); err != nil {
			p.dropped.Add(1)
			p.log.Warn("message dropped", zap.String("queue", m.queue), zap.Error(err))
		}
	}
}

func (p *Publisher) send(m message) error {
	ch, err := p.channel()
	if err != nil {
		return err
	}
	if !p.declared[m.queue] {
		// Ensure the queue exists (idempotent). Durable so messages survive broker restarts.
		if _, err := ch.QueueDeclare(m.queue, true, false, false, false, nil); err != nil {
			p.reset()
			return fmt.Errorf("rabbitmq: declare %s: %w", m.queue, err)
		}
		p.declared[m.queue] = true
	}

	ctx, cancel := context.WithTimeout(p.ctx, p.dialTimeout)
	defer cancel()
	err = ch.PublishWithContext(ctx,
		"",      // default exchange
		m.queue, // routing key = queue name
		false,   // mandatory
		false,   // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now().UTC(),
			Body:         m.body,
		})
	if err != nil {
		p.reset()
		return fmt.Errorf("rabbitmq: publish %s: %w", m.queue, err)
	}
	return nil
}

func (p *Publisher) channel() (*amqp.Channel, error) {
	if p.ch != nil && !p.ch.IsClosed() {
		return p.ch, nil
	}
	p.reset()
	if time.Now().Before(p.retryAt) {
		return nil, errors.New("rabbitmq: broker unavailable; waiting to redial")
	}
	conn, err := p.dial(p.url)
	if err == nil {
		var ch *amqp.Channel
		if ch, err = conn.Channel(); err == nil {
			p.conn, p.ch = conn, ch
			p.declared = make(map[string]bool)
			p.retry.Reset()
			p.retryAt = time.Time{}
			p.log.Info("connected to broker")
			return ch, nil
		}
		_ = conn.Close()
	}
	p.retryAt = time.Now().Add(p.retry.NextBackOff())
	return nil, fmt.Errorf("rabbitmq: dial: %w", err)
}

func (p *Publisher) reset() {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
	p.ch, p.conn, p.declared = nil, nil, nil
}

// Close stops accepting messages, drops whatever is still buffered and
// waits for the connection to be released.
func (p *Publisher) Close() {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		p.cancel()
		close(p.out)
	}
	p.mu.Unlock()
	<-p.done
}
