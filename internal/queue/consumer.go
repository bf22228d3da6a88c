package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// AuditLog appends one human-readable line per sale message to a file.
type AuditLog struct {
	path string
	mu   sync.Mutex
}

// NewAuditLog writes to dir/sales.log, creating dir when needed.
func NewAuditLog(dir string) *AuditLog {
	return &AuditLog{path: filepath.Join(dir, "sales.log")}
}

// Handle formats one message body from queue and appends it.
func (a *AuditLog) Handle(queue string, body []byte) error {
	line, err := formatLine(queue, body)
	if err != nil {
		return err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := os.MkdirAll(filepath.Dir(a.path), 0o755); err != nil {
		return fmt.Errorf("mkdir logs: %w", err)
	}
	f, err := os.OpenFile(a.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()
	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}

func formatLine(queue string, body []byte) (string, error) {
	switch queue {
	case PurchaseConfirmedQueue:
		var ev PurchaseConfirmedEvent
		if err := json.Unmarshal(body, &ev); err != nil {
			return "", fmt.Errorf("unmarshal: %w", err)
		}
		return fmt.Sprintf("[%s] Purchase confirmed | purchase_id=%s | event_id=%s | user_id=%s | category=%s | quantity=%d | total=%d cents\n",
			ev.PurchasedAt, ev.PurchaseID, ev.EventID, ev.UserID, ev.Category, ev.Quantity, ev.TotalPriceCents), nil
	case SaleStateChangedQueue:
		var ev SaleStateChangedEvent
		if err := json.Unmarshal(body, &ev); err != nil {
			return "", fmt.Errorf("unmarshal: %w", err)
		}
		return fmt.Sprintf("[%s] Sale state changed | event_id=%s | %s -> %s\n",
			ev.ChangedAt, ev.EventID, ev.From, ev.To), nil
	}
	return "", fmt.Errorf("unknown queue %q", queue)
}

// Consumer feeds both sale queues into an AuditLog.
type Consumer struct {
	url   string
	audit *AuditLog
	log   *zap.Logger
}

func NewConsumer(url string, audit *AuditLog, log *zap.Logger) *Consumer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Consumer{url: url, audit: audit, log: log.With(zap.String("component", "audit-consumer"))}
}

// Run connects, consumes and reconnects with exponential backoff until
// ctx is cancelled.  Malformed messages are rejected without requeue so
// they cannot loop.
func (c *Consumer) Run(ctx context.Context) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = time.Second
	b.MaxInterval = 30 * time.Second
	for {
		conn, err := amqp.Dial(c.url)
		if err == nil {
			b.Reset()
			err = c.consume(ctx, conn)
			_ = conn.Close()
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		wait := b.NextBackOff()
		c.log.Warn("broker unavailable; reconnecting", zap.Duration("backoff", wait), zap.Error(err))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}

func (c *Consumer) consume(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		c.log.Warn("set QoS failed", zap.Error(err))
	}

	type delivery struct {
		queue string
		d     amqp.Delivery
	}
	merged := make(chan delivery)
	var wg sync.WaitGroup
	for _, q := range []string{PurchaseConfirmedQueue, SaleStateChangedQueue} {
		if _, err := ch.QueueDeclare(q, true, false, false, false, nil); err != nil {
			return fmt.Errorf("queue declare %s: %w", q, err)
		}
		msgs, err := ch.ConsumeWithContext(ctx, q, "", false, false, false, false, nil)
		if err != nil {
			return fmt.Errorf("queue consume %s: %w", q, err)
		}
		wg.Add(1)
		go func(q string, msgs <-chan amqp.Delivery) {
			defer wg.Done()
			for d := range msgs {
				select {
				case merged <- delivery{queue: q, d: d}:
				case <-ctx.Done():
					return
				}
			}
		}(q, msgs)
	}
	go func() {
		wg.Wait()
		close(merged)
	}()

	c.log.Info("consuming", zap.String("file", c.audit.path))
	for m := range merged {
		if err := c.audit.Handle(m.queue, m.d.Body); err != nil {
			c.log.Error("handle message failed", zap.String("queue", m.queue), zap.Error(err))
			_ = m.d.Nack(false, false)
			continue
		}
		_ = m.d.Ack(false)
	}
	return errors.New("deliveries channel closed")
}
