package booking

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// EventKind doubles as the routing key when events are published to the
// broker.
type EventKind string

const (
	EventBookingCreated       EventKind = "booking.created"
	EventBookingRejected      EventKind = "booking.rejected"
	EventBookingStatusChanged EventKind = "booking.status_changed"
	EventCarStatusChanged     EventKind = "car.status_changed"
	EventCarRemoved           EventKind = "car.removed"
)

// Event is emitted by the core after a decision has been committed (or a
// request rejected).  It carries enough context for consumers to log or
// notify without querying the database.
type Event struct {
	ID         string    `json:"id"`
	Kind       EventKind `json:"kind"`
	CarID      uint64    `json:"car_id"`
	BookingID  uint64    `json:"booking_id,omitempty"`
	ActorID    uint64    `json:"actor_id,omitempty"`
	ActorRole  string    `json:"actor_role,omitempty"`
	StartDate  string    `json:"start_date,omitempty"`
	EndDate    string    `json:"end_date,omitempty"`
	TotalPrice string    `json:"total_price,omitempty"`
	From       string    `json:"from,omitempty"`
	To         string    `json:"to,omitempty"`
	Reason     string    `json:"reason,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

func newEvent(kind EventKind, carID uint64, who Actor) Event {
	return Event{
		ID:         uuid.NewString(),
		Kind:       kind,
		CarID:      carID,
		ActorID:    who.UserID,
		ActorRole:  who.Role,
		OccurredAt: time.Now().UTC(),
	}
}

// Publisher receives core events.  Publishing happens after commit, so a
// failing publisher never undoes a booking.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// Publishers fans one event out to several publishers and joins their
// errors.
type Publishers []Publisher

func (ps Publishers) Publish(ctx context.Context, ev Event) error {
	var errs []error
	for _, p := range ps {
		if p == nil {
			continue
		}
		if err := p.Publish(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
