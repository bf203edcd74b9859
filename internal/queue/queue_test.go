package queue

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/Felicien407/car-rental-system/internal/booking"
)

type fakeChannel struct {
	published []amqp.Publishing
	keys      []string
	err       error
	closed    bool
}

func (f *fakeChannel) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
	if exchange != ExchangeName {
		return errors.New("wrong exchange " + exchange)
	}
	if f.err != nil {
		return f.err
	}
	f.keys = append(f.keys, key)
	f.published = append(f.published, msg)
	return nil
}

func (f *fakeChannel) Close() error { f.closed = true; return nil }

func sampleEvent() booking.Event {
	return booking.Event{
		ID:         "ev-1",
		Kind:       booking.EventBookingCreated,
		CarID:      3,
		BookingID:  9,
		ActorID:    2,
		ActorRole:  "CUSTOMER",
		StartDate:  "2025-02-10",
		EndDate:    "2025-02-15",
		TotalPrice: "750.00",
		To:         "ACTIVE",
		OccurredAt: time.Date(2025, 2, 1, 8, 0, 0, 0, time.UTC),
	}
}

func TestPublisherRoutesByKind(t *testing.T) {
	fc := &fakeChannel{}
	dials := 0
	p := newPublisher(func() (channel, func() error, error) {
		dials++
		return fc, func() error { return nil }, nil
	}, 8)

	ev := sampleEvent()
	if err := p.Publish(context.Background(), ev); err != nil {
		t.Fatal(err)
	}
	if err := p.Publish(context.Background(), ev); err != nil {
		t.Fatal(err)
	}
	// Close flushes the buffer
	if err := p.Close(); err != nil {
		t.Fatal(err)
	}
	if dials != 1 {
		t.Fatalf("expected one dial, got %d", dials)
	}
	if len(fc.published) != 2 || fc.keys[0] != "booking.created" {
		t.Fatalf("unexpected deliveries %v", fc.keys)
	}
	msg := fc.published[0]
	if msg.DeliveryMode != amqp.Persistent || msg.MessageId != "ev-1" {
		t.Fatalf("unexpected message %+v", msg)
	}
	var got booking.Event
	if err := json.Unmarshal(msg.Body, &got); err != nil || got.BookingID != 9 {
		t.Fatalf("body did not round trip: %v %+v", err, got)
	}
	if !fc.closed {
		t.Fatal("Close must release the channel")
	}
	if err := p.Publish(context.Background(), ev); !errors.Is(err, ErrPublisherClosed) {
		t.Fatalf("publish after close: %v", err)
	}
}

func TestPublisherRedialsAfterFailure(t *testing.T) {
	first := &fakeChannel{err: errors.New("channel closed")}
	second := &fakeChannel{}
	chans := []*fakeChannel{first, second}
	p := newPublisher(func() (channel, func() error, error) {
		c := chans[0]
		chans = chans[1:]
		return c, func() error { return nil }, nil
	}, 1)
	defer p.Close()

	if err := p.send(sampleEvent()); err == nil {
		t.Fatal("expected publish error")
	}
	if !first.closed {
		t.Fatal("failed channel should be closed")
	}
	if err := p.send(sampleEvent()); err != nil {
		t.Fatalf("second publish: %v", err)
	}
	if len(second.published) != 1 {
		t.Fatal("expected message on new channel")
	}
}

func TestPublisherBacksOffAfterDialError(t *testing.T) {
	dials := 0
	p := newPublisher(func() (channel, func() error, error) {
		dials++
		return nil, nil, errors.New("connection refused")
	}, 1)
	defer p.Close()

	if err := p.send(sampleEvent()); err == nil {
		t.Fatal("expected dial error")
	}
	if err := p.send(sampleEvent()); err == nil || !strings.Contains(err.Error(), "broker unavailable") {
		t.Fatalf("expected drop during backoff, got %v", err)
	}
	if dials != 1 {
		t.Fatalf("dialed %d times during backoff", dials)
	}

	p.retryAt = time.Time{}
	_ = p.send(sampleEvent())
	if dials != 2 {
		t.Fatalf("expected a redial after backoff, dials=%d", dials)
	}
}

func TestPublishDoesNotWaitForBroker(t *testing.T) {
	dialing := make(chan struct{})
	release := make(chan struct{})
	fc := &fakeChannel{}
	p := newPublisher(func() (channel, func() error, error) {
		close(dialing)
		<-release
		return fc, func() error { return nil }, nil
	}, 1)

	if err := p.Publish(context.Background(), sampleEvent()); err != nil {
		t.Fatal(err)
	}
	<-dialing // the sender holds the first event and is stuck in dial

	if err := p.Publish(context.Background(), sampleEvent()); err != nil {
		t.Fatalf("buffered publish: %v", err)
	}
	if err := p.Publish(context.Background(), sampleEvent()); err == nil {
		t.Fatal("full buffer must drop instead of blocking")
	}

	close(release)
	if err := p.Close(); err != nil {
		t.Fatal(err)
	}
	if len(fc.published) != 2 {
		t.Fatalf("expected 2 deliveries after the broker answered, got %d", len(fc.published))
	}
}

func TestAuditLogAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "booking.log")
	audit := NewAuditLog(path)

	body, _ := json.Marshal(sampleEvent())
	if err := audit.Handle(body); err != nil {
		t.Fatal(err)
	}
	rejected := booking.Event{Kind: booking.EventBookingRejected, CarID: 3, Reason: "CONFLICTING_RESERVATION",
		OccurredAt: time.Date(2025, 2, 1, 9, 0, 0, 0, time.UTC)}
	body, _ = json.Marshal(rejected)
	if err := audit.Handle(body); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d: %q", len(lines), data)
	}
	want := "[2025-02-01T08:00:00Z] booking.created | car_id=3 | booking_id=9 | actor=2(CUSTOMER) | range=[2025-02-10, 2025-02-15) | total=750.00 | ->ACTIVE"
	if lines[0] != want {
		t.Fatalf("line 1:\n got %q\nwant %q", lines[0], want)
	}
	if !strings.HasSuffix(lines[1], "reason=CONFLICTING_RESERVATION") {
		t.Fatalf("line 2: %q", lines[1])
	}
}

func TestAuditLogRejectsGarbage(t *testing.T) {
	audit := NewAuditLog(filepath.Join(t.TempDir(), "booking.log"))
	if err := audit.Handle([]byte("{")); err == nil {
		t.Fatal("expected unmarshal error")
	}
	if err := audit.Handle([]byte(`{"car_id":1}`)); err == nil {
		t.Fatal("expected error for event without kind")
	}
}
