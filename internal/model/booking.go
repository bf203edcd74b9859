package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// BookingStatus is the lifecycle state of a booking.  ACTIVE is the only
// initial state; COMPLETED and CANCELLED are terminal.
type BookingStatus string

const (
	BookingActive    BookingStatus = "ACTIVE"
	BookingCompleted BookingStatus = "COMPLETED"
	BookingCancelled BookingStatus = "CANCELLED"
)

// Terminal reports whether no transition may leave s.
func (s BookingStatus) Terminal() bool {
	return s == BookingCompleted || s == BookingCancelled
}

// Booking records a customer's reservation of one car for a half-open
// calendar-day range [StartDate, EndDate).  Bookings are never deleted;
// finished ones stay as history.
//
// Fields:
//
//	ID:           primary key identifier.
//	CarID:        reserved car.
//	CustomerID:   user who made the booking.
//	CustomerName: display name copied from the user at creation.
//	StartDate:    first rented day, UTC midnight.
//	EndDate:      return day (exclusive), UTC midnight.
//	TotalPrice:   days × car daily rate at creation; never recomputed.
//	Status:       ACTIVE, COMPLETED or CANCELLED.
type Booking struct {
	ID           uint64          // bookings.id
	CarID        uint64          // bookings.car_id
	CustomerID   uint64          // bookings.customer_id
	CustomerName string          // bookings.customer_name
	StartDate    time.Time       // bookings.start_date
	EndDate      time.Time       // bookings.end_date
	TotalPrice   decimal.Decimal // bookings.total_price
	Status       BookingStatus   // bookings.status
	CreatedAt    time.Time       // bookings.created_at
	UpdatedAt    time.Time       // bookings.updated_at
}
