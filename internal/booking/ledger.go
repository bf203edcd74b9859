package booking

import (
	"context"
	"fmt"

	"github.com/Felicien407/car-rental-system/internal/model"
)

// Ledger is the single writer of car status.  It is bound to one
// transaction and keeps the invariant
//
//	status == RESERVED  <=>  the car has at least one ACTIVE booking
//
// by checking the active bookings before every write.
type Ledger struct {
	tx Tx
}

// NewLedger binds a ledger to tx.
func NewLedger(tx Tx) *Ledger { return &Ledger{tx: tx} }

// Transition describes a status write performed by the ledger.
type Transition struct {
	CarID uint64
	From  model.CarStatus
	To    model.CarStatus
}

// Changed reports whether the write altered the stored status.
func (t Transition) Changed() bool { return t.From != t.To }

// Status returns the current status of a car.
func (l *Ledger) Status(ctx context.Context, carID uint64) (model.CarStatus, error) {
	car, err := l.tx.LockCar(ctx, carID)
	if err != nil {
		return "", err
	}
	return car.Status, nil
}

// ActiveReservationsFor returns the ACTIVE bookings referencing a car.
func (l *Ledger) ActiveReservationsFor(ctx context.Context, carID uint64) ([]model.Booking, error) {
	return l.tx.ActiveBookings(ctx, carID)
}

// SetStatus moves a car to status.  RESERVED requires an active booking;
// AVAILABLE and UNAVAILABLE require none.  Writing the current status is a
// no-op.
func (l *Ledger) SetStatus(ctx context.Context, carID uint64, status model.CarStatus) (Transition, error) {
	if !status.Valid() {
		return Transition{}, fmt.Errorf("%w: unknown car status %q", ErrInvalidTransition, status)
	}
	from, err := l.Status(ctx, carID)
	if err != nil {
		return Transition{}, err
	}
	t := Transition{CarID: carID, From: from, To: status}
	if !t.Changed() {
		return t, nil
	}
	active, err := l.ActiveReservationsFor(ctx, carID)
	if err != nil {
		return Transition{}, err
	}
	switch status {
	case model.CarReserved:
		if len(active) == 0 {
			return Transition{}, fmt.Errorf("%w: car %d has no active booking", ErrInvalidTransition, carID)
		}
	default:
		if len(active) > 0 {
			return Transition{}, fmt.Errorf("%w: %d active booking(s) on car %d", ErrResourceHasActiveReservation, len(active), carID)
		}
	}
	if err := l.tx.SetCarStatus(ctx, carID, status); err != nil {
		return Transition{}, err
	}
	return t, nil
}
