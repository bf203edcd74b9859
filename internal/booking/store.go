package booking

import (
	"context"
	"strconv"

	"github.com/Felicien407/car-rental-system/internal/model"
)

// Store is the persistence boundary of the core.  WithinTx runs fn inside
// one storage transaction: fn returning nil commits every write made
// through tx, any error rolls all of them back.
type Store interface {
	WithinTx(ctx context.Context, fn func(tx Tx) error) error
	// CarIDForBooking resolves the car a booking belongs to.  It returns
	// ErrReservationNotFound for unknown ids.
	CarIDForBooking(ctx context.Context, bookingID uint64) (uint64, error)
}

// Tx is the set of reads and writes the core performs inside a
// transaction.  Lock* methods must hold the row until the transaction
// ends.
type Tx interface {
	// LockCar loads a non-deleted car or returns ErrResourceNotFound.
	LockCar(ctx context.Context, carID uint64) (model.Car, error)
	SetCarStatus(ctx context.Context, carID uint64, status model.CarStatus) error
	// UpdateCarDetails writes the catalog fields of c; status is untouched.
	UpdateCarDetails(ctx context.Context, c model.Car) error
	SoftDeleteCar(ctx context.Context, carID uint64) error

	// ActiveBookings lists the ACTIVE bookings of a car.
	ActiveBookings(ctx context.Context, carID uint64) ([]model.Booking, error)
	// InsertBooking stores b and fills in its ID and timestamps.
	InsertBooking(ctx context.Context, b *model.Booking) error
	// LockBooking loads a booking or returns ErrReservationNotFound.
	LockBooking(ctx context.Context, bookingID uint64) (model.Booking, error)
	SetBookingStatus(ctx context.Context, bookingID uint64, status model.BookingStatus) error
}

// Locker serializes work per key.  Lock blocks for a bounded time and
// returns ErrBusy when the key stays held; it never waits forever.
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

func carLockKey(carID uint64) string {
	return "car:" + strconv.FormatUint(carID, 10)
}
