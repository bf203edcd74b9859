// Package memstore is an in-memory booking.Store.  Transactions run one at
// a time against a copy of the data and are swapped in on commit, so a
// failing transaction leaves no trace.  It backs the core's tests.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Felicien407/car-rental-system/internal/booking"
	"github.com/Felicien407/car-rental-system/internal/model"
)

// Store keeps cars and bookings in maps guarded by one mutex.
type Store struct {
	mu       sync.Mutex
	cars     map[uint64]model.Car
	bookings map[uint64]model.Booking
	nextCar  uint64
	nextBkg  uint64

	// FailOn makes the named Tx method (e.g. "SetCarStatus") return the
	// given error, to exercise rollback paths.
	FailOn map[string]error
}

// New returns an empty store.
func New() *Store {
	return &Store{
		cars:     make(map[uint64]model.Car),
		bookings: make(map[uint64]model.Booking),
		FailOn:   make(map[string]error),
	}
}

// AddCar inserts c, assigning an ID when c.ID is zero.
func (s *Store) AddCar(c model.Car) model.Car {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.ID == 0 {
		s.nextCar++
		c.ID = s.nextCar
	} else if c.ID > s.nextCar {
		s.nextCar = c.ID
	}
	if c.Status == "" {
		c.Status = model.CarAvailable
	}
	s.cars[c.ID] = c
	return c
}

// Car returns the stored car, including soft-deleted ones.
func (s *Store) Car(id uint64) (model.Car, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.cars[id]
	return c, ok
}

// Bookings returns every stored booking ordered by ID.
func (s *Store) Bookings() []model.Booking {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Booking, 0, len(s.bookings))
	for _, b := range s.bookings {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// CarIDForBooking implements booking.Store.
func (s *Store) CarIDForBooking(_ context.Context, bookingID uint64) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[bookingID]
	if !ok {
		return 0, booking.ErrReservationNotFound
	}
	return b.CarID, nil
}

// WithinTx implements booking.Store.
func (s *Store) WithinTx(ctx context.Context, fn func(tx booking.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	t := &tx{
		s:        s,
		cars:     make(map[uint64]model.Car, len(s.cars)),
		bookings: make(map[uint64]model.Booking, len(s.bookings)),
		nextBkg:  s.nextBkg,
	}
	for k, v := range s.cars {
		t.cars[k] = v
	}
	for k, v := range s.bookings {
		t.bookings[k] = v
	}
	if err := fn(t); err != nil {
		return err
	}
	s.cars, s.bookings, s.nextBkg = t.cars, t.bookings, t.nextBkg
	return nil
}

type tx struct {
	s        *Store
	cars     map[uint64]model.Car
	bookings map[uint64]model.Booking
	nextBkg  uint64
}

func (t *tx) fail(op string) error { return t.s.FailOn[op] }

func (t *tx) LockCar(_ context.Context, carID uint64) (model.Car, error) {
	if err := t.fail("LockCar"); err != nil {
		return model.Car{}, err
	}
	c, ok := t.cars[carID]
	if !ok || c.DeletedAt != nil {
		return model.Car{}, booking.ErrResourceNotFound
	}
	return c, nil
}

func (t *tx) SetCarStatus(_ context.Context, carID uint64, status model.CarStatus) error {
	if err := t.fail("SetCarStatus"); err != nil {
		return err
	}
	c, ok := t.cars[carID]
	if !ok {
		return booking.ErrResourceNotFound
	}
	c.Status = status
	c.UpdatedAt = time.Now().UTC()
	t.cars[carID] = c
	return nil
}

func (t *tx) UpdateCarDetails(_ context.Context, c model.Car) error {
	if err := t.fail("UpdateCarDetails"); err != nil {
		return err
	}
	cur, ok := t.cars[c.ID]
	if !ok {
		return booking.ErrResourceNotFound
	}
	c.Status, c.DeletedAt, c.CreatedAt = cur.Status, cur.DeletedAt, cur.CreatedAt
	c.UpdatedAt = time.Now().UTC()
	t.cars[c.ID] = c
	return nil
}

func (t *tx) SoftDeleteCar(_ context.Context, carID uint64) error {
	if err := t.fail("SoftDeleteCar"); err != nil {
		return err
	}
	c, ok := t.cars[carID]
	if !ok {
		return booking.ErrResourceNotFound
	}
	now := time.Now().UTC()
	c.DeletedAt = &now
	t.cars[carID] = c
	return nil
}

func (t *tx) ActiveBookings(_ context.Context, carID uint64) ([]model.Booking, error) {
	if err := t.fail("ActiveBookings"); err != nil {
		return nil, err
	}
	var out []model.Booking
	for _, b := range t.bookings {
		if b.CarID == carID && b.Status == model.BookingActive {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartDate.Before(out[j].StartDate) })
	return out, nil
}

func (t *tx) InsertBooking(_ context.Context, b *model.Booking) error {
	if err := t.fail("InsertBooking"); err != nil {
		return err
	}
	t.nextBkg++
	now := time.Now().UTC()
	b.ID = t.nextBkg
	b.CreatedAt, b.UpdatedAt = now, now
	t.bookings[b.ID] = *b
	return nil
}

func (t *tx) LockBooking(_ context.Context, bookingID uint64) (model.Booking, error) {
	if err := t.fail("LockBooking"); err != nil {
		return model.Booking{}, err
	}
	b, ok := t.bookings[bookingID]
	if !ok {
		return model.Booking{}, booking.ErrReservationNotFound
	}
	return b, nil
}

func (t *tx) SetBookingStatus(_ context.Context, bookingID uint64, status model.BookingStatus) error {
	if err := t.fail("SetBookingStatus"); err != nil {
		return err
	}
	b, ok := t.bookings[bookingID]
	if !ok {
		return booking.ErrReservationNotFound
	}
	b.Status = status
	b.UpdatedAt = time.Now().UTC()
	t.bookings[bookingID] = b
	return nil
}
