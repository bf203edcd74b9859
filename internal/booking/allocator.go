// Package booking is the allocation core of the rental service.  It
// decides whether a date range may be granted for a car, keeps each car's
// status consistent with its active bookings and resolves booking status
// transitions.  Authentication, HTTP and SQL live elsewhere; the core only
// sees a Store, a Locker and a Publisher.
package booking

import (
	"context"
	"fmt"

	"github.com/labstack/gommon/log"

	"github.com/Felicien407/car-rental-system/internal/model"
)

// Actor is the caller identity resolved once at the API boundary.  The
// core does not authorize; it records who acted.
type Actor struct {
	UserID uint64
	Name   string
	Role   string
}

// Reservation is a booking together with the car it holds and the
// requester identity, ready for display.
type Reservation struct {
	model.Booking
	Car model.Car
}

// Allocator grants and transitions bookings.  Every operation touching a
// car runs under that car's lock and inside one storage transaction.
type Allocator struct {
	store  Store
	locks  Locker
	events Publisher
}

// NewAllocator wires the core.  events may be nil.
func NewAllocator(store Store, locks Locker, events Publisher) *Allocator {
	if store == nil || locks == nil {
		panic("nil dependency passed to NewAllocator")
	}
	if events == nil {
		events = Publishers{}
	}
	return &Allocator{store: store, locks: locks, events: events}
}

// RequestReservation books carID for [start, end) on behalf of who.  On
// success the booking is ACTIVE and the car RESERVED, both committed
// together.
func (a *Allocator) RequestReservation(ctx context.Context, carID uint64, who Actor, start, end string) (Reservation, error) {
	rng, err := NewDateRange(start, end)
	if err != nil {
		a.rejected(ctx, carID, who, start, end, err)
		return Reservation{}, err
	}

	var (
		res   Reservation
		moved Transition
	)
	err = a.exclusive(ctx, carID, func(tx Tx) error {
		ledger := NewLedger(tx)
		car, err := tx.LockCar(ctx, carID)
		if err != nil {
			return err
		}
		// RESERVED passes: the car may still be free on other dates.
		if car.Status == model.CarUnavailable {
			return fmt.Errorf("%w: car %d is under maintenance", ErrResourceUnavailable, carID)
		}
		active, err := ledger.ActiveReservationsFor(ctx, carID)
		if err != nil {
			return err
		}
		for _, b := range active {
			if rng.Overlaps(RangeOf(b)) {
				return fmt.Errorf("%w: %s overlaps booking %d %s", ErrConflictingReservation, rng, b.ID, RangeOf(b))
			}
		}

		total := Price(rng, car.PricePerDay)
		if total.GreaterThan(MaxTotalPrice) {
			return fmt.Errorf("%w: total %s exceeds %s", ErrInvalidInterval, total.StringFixed(2), MaxTotalPrice.StringFixed(2))
		}
		b := model.Booking{
			CarID:        carID,
			CustomerID:   who.UserID,
			CustomerName: who.Name,
			StartDate:    rng.Start,
			EndDate:      rng.End,
			TotalPrice:   total,
			Status:       model.BookingActive,
		}
		if err := tx.InsertBooking(ctx, &b); err != nil {
			return err
		}
		if moved, err = ledger.SetStatus(ctx, carID, model.CarReserved); err != nil {
			return err
		}
		car.Status = model.CarReserved
		res = Reservation{Booking: b, Car: car}
		return nil
	})
	if err != nil {
		a.rejected(ctx, carID, who, start, end, err)
		return Reservation{}, err
	}

	ev := newEvent(EventBookingCreated, carID, who)
	ev.BookingID = res.ID
	ev.StartDate = rng.Start.Format(DayLayout)
	ev.EndDate = rng.End.Format(DayLayout)
	ev.TotalPrice = res.TotalPrice.StringFixed(2)
	ev.To = string(res.Status)
	a.publish(ctx, ev)
	a.carMoved(ctx, moved, who)
	return res, nil
}

// TransitionStatus completes or cancels an ACTIVE booking.  When the last
// active booking of a RESERVED car ends, the car returns to AVAILABLE.
func (a *Allocator) TransitionStatus(ctx context.Context, bookingID uint64, to model.BookingStatus, who Actor) (Reservation, error) {
	carID, err := a.store.CarIDForBooking(ctx, bookingID)
	if err != nil {
		return Reservation{}, err
	}
	if !to.Terminal() {
		return Reservation{}, fmt.Errorf("%w: target status must be %s or %s, got %q",
			ErrInvalidTransition, model.BookingCompleted, model.BookingCancelled, to)
	}

	var (
		res   Reservation
		from  model.BookingStatus
		moved Transition
	)
	err = a.exclusive(ctx, carID, func(tx Tx) error {
		ledger := NewLedger(tx)
		// car row first, same lock order as RequestReservation
		car, err := tx.LockCar(ctx, carID)
		if err != nil {
			return err
		}
		b, err := tx.LockBooking(ctx, bookingID)
		if err != nil {
			return err
		}
		if b.Status != model.BookingActive {
			return fmt.Errorf("%w: booking %d is already %s", ErrInvalidTransition, bookingID, b.Status)
		}
		if err := tx.SetBookingStatus(ctx, bookingID, to); err != nil {
			return err
		}
		from, b.Status = b.Status, to

		remaining, err := ledger.ActiveReservationsFor(ctx, carID)
		if err != nil {
			return err
		}
		moved = Transition{CarID: carID, From: car.Status, To: car.Status}
		if len(remaining) == 0 && car.Status == model.CarReserved {
			if moved, err = ledger.SetStatus(ctx, carID, model.CarAvailable); err != nil {
				return err
			}
			car.Status = model.CarAvailable
		}
		res = Reservation{Booking: b, Car: car}
		return nil
	})
	if err != nil {
		return Reservation{}, err
	}

	ev := newEvent(EventBookingStatusChanged, carID, who)
	ev.BookingID = bookingID
	ev.From = string(from)
	ev.To = string(to)
	a.publish(ctx, ev)
	a.carMoved(ctx, moved, who)
	return res, nil
}

// exclusive runs fn in one transaction while holding the car's lock.  The
// lock is released when exclusive returns, before any event is published.
func (a *Allocator) exclusive(ctx context.Context, carID uint64, fn func(tx Tx) error) error {
	unlock, err := a.locks.Lock(ctx, carLockKey(carID))
	if err != nil {
		return err
	}
	defer unlock()
	return a.store.WithinTx(ctx, fn)
}

func (a *Allocator) rejected(ctx context.Context, carID uint64, who Actor, start, end string, cause error) {
	ev := newEvent(EventBookingRejected, carID, who)
	ev.StartDate = start
	ev.EndDate = end
	ev.Reason = Code(cause)
	a.publish(ctx, ev)
}

func (a *Allocator) carMoved(ctx context.Context, t Transition, who Actor) {
	if !t.Changed() {
		return
	}
	ev := newEvent(EventCarStatusChanged, t.CarID, who)
	ev.From = string(t.From)
	ev.To = string(t.To)
	a.publish(ctx, ev)
}

func (a *Allocator) publish(ctx context.Context, ev Event) {
	if err := a.events.Publish(context.WithoutCancel(ctx), ev); err != nil {
		log.Warnf("booking: publish %s for car %d failed: %v", ev.Kind, ev.CarID, err)
	}
}
