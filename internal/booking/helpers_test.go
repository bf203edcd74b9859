package booking_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Felicien407/car-rental-system/internal/booking"
	"github.com/Felicien407/car-rental-system/internal/booking/memstore"
	"github.com/Felicien407/car-rental-system/internal/locker"
	"github.com/Felicien407/car-rental-system/internal/model"
)

var (
	alice = booking.Actor{UserID: 2, Name: "Alice Johnson", Role: model.RoleCustomer}
	bob   = booking.Actor{UserID: 3, Name: "Bob Smith", Role: model.RoleCustomer}
	admin = booking.Actor{UserID: 1, Name: "Admin User", Role: model.RoleAdmin}
)

// recorder keeps every published event.
type recorder struct {
	mu     sync.Mutex
	events []booking.Event
	err    error
}

func (r *recorder) Publish(_ context.Context, ev booking.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return r.err
}

func (r *recorder) kinds() []booking.EventKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]booking.EventKind, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, ev.Kind)
	}
	return out
}

// busyLocker never grants a lock.
type busyLocker struct{}

func (busyLocker) Lock(context.Context, string) (func(), error) {
	return nil, booking.ErrBusy
}

type fixture struct {
	store  *memstore.Store
	events *recorder
	alloc  *booking.Allocator
	car    model.Car
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st := memstore.New()
	rec := &recorder{}
	car := st.AddCar(model.Car{Make: "BMW", Model: "X5", Category: "SUV", PricePerDay: decimal.NewFromInt(150)})
	return &fixture{
		store:  st,
		events: rec,
		alloc:  booking.NewAllocator(st, locker.NewLocal(5*time.Second), rec),
		car:    car,
	}
}

func (f *fixture) status(t *testing.T, carID uint64) model.CarStatus {
	t.Helper()
	c, ok := f.store.Car(carID)
	if !ok {
		t.Fatalf("car %d missing", carID)
	}
	return c.Status
}

// checkInvariants asserts, for every car, RESERVED <=> some ACTIVE booking
// and that ACTIVE bookings never overlap.
func (f *fixture) checkInvariants(t *testing.T, carIDs ...uint64) {
	t.Helper()
	all := f.store.Bookings()
	for _, id := range carIDs {
		var active []booking.DateRange
		for _, b := range all {
			if b.CarID == id && b.Status == model.BookingActive {
				active = append(active, booking.RangeOf(b))
			}
		}
		st := f.status(t, id)
		if (st == model.CarReserved) != (len(active) > 0) {
			t.Fatalf("car %d is %s with %d active booking(s)", id, st, len(active))
		}
		for i := range active {
			for j := i + 1; j < len(active); j++ {
				if active[i].Overlaps(active[j]) {
					t.Fatalf("car %d: %s overlaps %s", id, active[i], active[j])
				}
			}
		}
	}
}

func mustErr(t *testing.T, err, want error) {
	t.Helper()
	if !errors.Is(err, want) {
		t.Fatalf("expected %v, got %v", want, err)
	}
}
