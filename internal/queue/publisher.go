package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/labstack/gommon/log"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/Felicien407/car-rental-system/internal/booking"
)

// ErrPublisherClosed is returned by Publish after Close.
var ErrPublisherClosed = errors.New("rabbitmq: publisher closed")

const (
	dialTimeout    = 5 * time.Second
	redialBackoff  = 5 * time.Second
	publishTimeout = 3 * time.Second
	bufferSize     = 256
)

// channel is the part of *amqp.Channel the publisher needs.
type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// dialFunc opens a channel and returns a closer for the connection.
type dialFunc func() (channel, func() error, error)

// Publisher implements booking.Publisher on RabbitMQ.  Publish only
// enqueues; one goroutine owns the connection and sends events in order,
// so a slow or unreachable broker never stalls a request.  When the buffer
// is full, events are dropped and reported to the caller.
type Publisher struct {
	dial    dialFunc
	timeout time.Duration
	backoff time.Duration

	mu     sync.Mutex
	queue  chan booking.Event
	closed bool
	done   chan struct{}

	// owned by run
	ch        channel
	closeConn func() error
	retryAt   time.Time
}

// NewPublisher returns a publisher for the broker at url.  Nothing is dialed
// until the first event.
func NewPublisher(url string) *Publisher {
	return newPublisher(func() (channel, func() error, error) {
		conn, err := amqp.DialConfig(url, amqp.Config{
			Heartbeat: 10 * time.Second,
			Locale:    "en_US",
			Dial:      amqp.DefaultDial(dialTimeout),
		})
		if err != nil {
			return nil, nil, fmt.Errorf("dial: %w", err)
		}
		ch, err := conn.Channel()
		if err != nil {
			_ = conn.Close()
			return nil, nil, fmt.Errorf("channel open: %w", err)
		}
		if err := declareExchange(ch); err != nil {
			_ = ch.Close()
			_ = conn.Close()
			return nil, nil, err
		}
		return ch, conn.Close, nil
	}, bufferSize)
}

func newPublisher(dial dialFunc, size int) *Publisher {
	p := &Publisher{
		dial:    dial,
		timeout: publishTimeout,
		backoff: redialBackoff,
		queue:   make(chan booking.Event, size),
		done:    make(chan struct{}),
	}
	go p.run()
	return p
}

// Publish queues ev for delivery.  It never blocks.
func (p *Publisher) Publish(_ context.Context, ev booking.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrPublisherClosed
	}
	select {
	case p.queue <- ev:
		return nil
	default:
		return fmt.Errorf("rabbitmq: buffer full, dropped %s for car %d", ev.Kind, ev.CarID)
	}
}

// Close stops accepting events, flushes what is queued and releases the
// connection.
func (p *Publisher) Close() error {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.queue)
	}
	p.mu.Unlock()
	<-p.done
	return p.reset()
}

func (p *Publisher) run() {
	defer close(p.done)
	for ev := range p.queue {
		if err := p.send(ev); err != nil {
			log.Warnf("%v", err)
		}
	}
}

// send delivers ev as a persistent JSON message routed by its kind.  After
// a failed dial, events are dropped until the backoff has passed so a dead
// broker costs one dial per backoff period, not one per event.
func (p *Publisher) send(ev booking.Event) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("rabbitmq: marshal %s: %w", ev.Kind, err)
	}
	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    ev.ID,
		Type:         string(ev.Kind),
		Timestamp:    ev.OccurredAt,
		Body:         body,
	}

	if p.ch == nil {
		if time.Now().Before(p.retryAt) {
			return fmt.Errorf("rabbitmq: broker unavailable, dropped %s", ev.Kind)
		}
		ch, closeConn, err := p.dial()
		if err != nil {
			p.retryAt = time.Now().Add(p.backoff)
			return fmt.Errorf("rabbitmq: %w", err)
		}
		p.ch, p.closeConn = ch, closeConn
	}

	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()
	if err := p.ch.PublishWithContext(ctx, ExchangeName, string(ev.Kind), false, false, msg); err != nil {
		_ = p.reset()
		return fmt.Errorf("rabbitmq: publish %s: %w", ev.Kind, err)
	}
	return nil
}

func (p *Publisher) reset() error {
	if p.ch == nil {
		return nil
	}
	err := errors.Join(p.ch.Close(), p.closeConn())
	p.ch, p.closeConn = nil, nil
	return err
}
