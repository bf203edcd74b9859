package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/labstack/gommon/log"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/Felicien407/car-rental-system/internal/booking"
)

// AuditLog appends one human readable line per event to a file.
type AuditLog struct {
	path string
	mu   sync.Mutex
}

// NewAuditLog writes to path, creating parent directories on first write.
func NewAuditLog(path string) *AuditLog { return &AuditLog{path: path} }

// Handle decodes a message body and appends it to the log.
func (a *AuditLog) Handle(body []byte) error {
	var ev booking.Event
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if ev.Kind == "" {
		return errors.New("event without kind")
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
	if _, err := f.WriteString(FormatEvent(ev) + "\n"); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}

// FormatEvent renders ev as a single line of key=value pairs.
func FormatEvent(ev booking.Event) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s | car_id=%d", ev.OccurredAt.UTC().Format(time.RFC3339), ev.Kind, ev.CarID)
	if ev.BookingID != 0 {
		fmt.Fprintf(&b, " | booking_id=%d", ev.BookingID)
	}
	if ev.ActorID != 0 {
		fmt.Fprintf(&b, " | actor=%d(%s)", ev.ActorID, ev.ActorRole)
	}
	if ev.StartDate != "" || ev.EndDate != "" {
		fmt.Fprintf(&b, " | range=[%s, %s)", ev.StartDate, ev.EndDate)
	}
	if ev.TotalPrice != "" {
		fmt.Fprintf(&b, " | total=%s", ev.TotalPrice)
	}
	if ev.From != "" || ev.To != "" {
		fmt.Fprintf(&b, " | %s->%s", ev.From, ev.To)
	}
	if ev.Reason != "" {
		fmt.Fprintf(&b, " | reason=%s", ev.Reason)
	}
	return b.String()
}

// StartAuditConsumer consumes the audit queue until ctx is cancelled,
// reconnecting with exponential backoff when the broker goes away.
// Undecodable messages are rejected without requeue.
func StartAuditConsumer(ctx context.Context, url string, audit *AuditLog) {
	backoff := time.Second
	for ctx.Err() == nil {
		conn, err := amqp.Dial(url)
		if err != nil {
			log.Warnf("audit-consumer: failed to dial broker: %v; retrying in %s", err, backoff)
			if !sleep(ctx, backoff) {
				return
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = consumeLoop(ctx, conn, audit)
		_ = conn.Close()
		if ctx.Err() != nil {
			return
		}
		log.Warnf("audit-consumer: consume loop ended: %v; reconnecting", err)
		if !sleep(ctx, 2*time.Second) {
			return
		}
	}
}

func consumeLoop(ctx context.Context, conn *amqp.Connection, audit *AuditLog) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		log.Warnf("audit-consumer: set QoS failed: %v", err)
	}
	if err := declareAuditQueue(ch); err != nil {
		return err
	}
	msgs, err := ch.Consume(AuditQueueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}
	log.Infof("audit-consumer: consuming %s", AuditQueueName)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := audit.Handle(d.Body); err != nil {
				log.Errorf("audit-consumer: handle message failed: %v", err)
				_ = d.Nack(false, false)
				continue
			}
			_ = d.Ack(false)
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}
