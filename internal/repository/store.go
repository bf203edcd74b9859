package repository

import (
	"context"
	"database/sql"

	"github.com/Felicien407/car-rental-system/internal/booking"
	"github.com/Felicien407/car-rental-system/internal/model"
)

// Store implements booking.Store on MySQL.  Each WithinTx call is one
// database transaction; rows read through Lock* carry SELECT ... FOR UPDATE.
type Store struct {
	db       *sql.DB
	cars     *CarRepo
	bookings *BookingRepo
}

// NewStore wires the repositories into a booking.Store.
func NewStore(db *sql.DB, cars *CarRepo, bookings *BookingRepo) *Store {
	return &Store{db: db, cars: cars, bookings: bookings}
}

// WithinTx implements booking.Store.
func (s *Store) WithinTx(ctx context.Context, fn func(tx booking.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return translate(err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if err := fn(&storeTx{tx: tx, s: s}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return translate(err)
	}
	committed = true
	return nil
}

// CarIDForBooking implements booking.Store.
func (s *Store) CarIDForBooking(ctx context.Context, bookingID uint64) (uint64, error) {
	return s.bookings.CarIDOf(ctx, bookingID)
}

type storeTx struct {
	tx *sql.Tx
	s  *Store
}

func (t *storeTx) LockCar(ctx context.Context, carID uint64) (model.Car, error) {
	return t.s.cars.LockTx(ctx, t.tx, carID)
}

func (t *storeTx) SetCarStatus(ctx context.Context, carID uint64, status model.CarStatus) error {
	return t.s.cars.SetStatusTx(ctx, t.tx, carID, status)
}

func (t *storeTx) UpdateCarDetails(ctx context.Context, c model.Car) error {
	return t.s.cars.UpdateDetailsTx(ctx, t.tx, c)
}

func (t *storeTx) SoftDeleteCar(ctx context.Context, carID uint64) error {
	return t.s.cars.SoftDeleteTx(ctx, t.tx, carID)
}

func (t *storeTx) ActiveBookings(ctx context.Context, carID uint64) ([]model.Booking, error) {
	return t.s.bookings.ActiveByCarTx(ctx, t.tx, carID)
}

func (t *storeTx) InsertBooking(ctx context.Context, b *model.Booking) error {
	return t.s.bookings.InsertTx(ctx, t.tx, b)
}

func (t *storeTx) LockBooking(ctx context.Context, bookingID uint64) (model.Booking, error) {
	return t.s.bookings.LockTx(ctx, t.tx, bookingID)
}

func (t *storeTx) SetBookingStatus(ctx context.Context, bookingID uint64, status model.BookingStatus) error {
	return t.s.bookings.SetStatusTx(ctx, t.tx, bookingID, status)
}

var _ booking.Store = (*Store)(nil)
