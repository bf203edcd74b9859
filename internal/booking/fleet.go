package booking

import (
	"context"
	"fmt"

	"github.com/Felicien407/car-rental-system/internal/model"
)

// ChangeCarStatus is the administrator maintenance toggle.  Only AVAILABLE
// and UNAVAILABLE may be requested; RESERVED belongs to the allocator.  A
// car with active bookings cannot be toggled, so maintenance never
// silently strands a customer's booking.
func (a *Allocator) ChangeCarStatus(ctx context.Context, carID uint64, status model.CarStatus, who Actor) (model.Car, error) {
	if err := settable(status); err != nil {
		return model.Car{}, err
	}
	var (
		car   model.Car
		moved Transition
	)
	err := a.exclusive(ctx, carID, func(tx Tx) error {
		var err error
		if moved, err = NewLedger(tx).SetStatus(ctx, carID, status); err != nil {
			return err
		}
		car, err = tx.LockCar(ctx, carID)
		return err
	})
	if err != nil {
		return model.Car{}, err
	}
	a.carMoved(ctx, moved, who)
	return car, nil
}

// UpdateCar rewrites the catalog fields of c and, when status is not
// empty, applies the maintenance toggle in the same transaction.  Both
// changes commit together or not at all.
func (a *Allocator) UpdateCar(ctx context.Context, c model.Car, status model.CarStatus, who Actor) (model.Car, error) {
	if status != "" {
		if err := settable(status); err != nil {
			return model.Car{}, err
		}
	}
	var (
		car   model.Car
		moved Transition
	)
	err := a.exclusive(ctx, c.ID, func(tx Tx) error {
		if _, err := tx.LockCar(ctx, c.ID); err != nil {
			return err
		}
		var err error
		if status != "" {
			if moved, err = NewLedger(tx).SetStatus(ctx, c.ID, status); err != nil {
				return err
			}
		}
		if err := tx.UpdateCarDetails(ctx, c); err != nil {
			return err
		}
		car, err = tx.LockCar(ctx, c.ID)
		return err
	})
	if err != nil {
		return model.Car{}, err
	}
	a.carMoved(ctx, moved, who)
	return car, nil
}

func settable(status model.CarStatus) error {
	if status != model.CarAvailable && status != model.CarUnavailable {
		return fmt.Errorf("%w: car status can only be set to %s or %s",
			ErrInvalidTransition, model.CarAvailable, model.CarUnavailable)
	}
	return nil
}

// RemoveCar retires a car from the catalog.  It fails with
// ErrResourceHasActiveReservation while any booking on the car is ACTIVE.
// The car row is soft-deleted so finished bookings keep their reference.
func (a *Allocator) RemoveCar(ctx context.Context, carID uint64, who Actor) error {
	err := a.exclusive(ctx, carID, func(tx Tx) error {
		if _, err := tx.LockCar(ctx, carID); err != nil {
			return err
		}
		active, err := NewLedger(tx).ActiveReservationsFor(ctx, carID)
		if err != nil {
			return err
		}
		if len(active) > 0 {
			return fmt.Errorf("%w: cannot delete car %d", ErrResourceHasActiveReservation, carID)
		}
		return tx.SoftDeleteCar(ctx, carID)
	})
	if err != nil {
		return err
	}
	a.publish(ctx, newEvent(EventCarRemoved, carID, who))
	return nil
}
