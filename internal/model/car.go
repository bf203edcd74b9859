package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// CarStatus is the availability state of a car.  It is owned by the
// availability ledger in internal/booking; no other code path writes it.
type CarStatus string

const (
	CarAvailable   CarStatus = "AVAILABLE"   // bookable, no active reservation
	CarReserved    CarStatus = "RESERVED"    // at least one active reservation
	CarUnavailable CarStatus = "UNAVAILABLE" // administrative maintenance flag
)

// Valid reports whether s is one of the known car statuses.
func (s CarStatus) Valid() bool {
	switch s {
	case CarAvailable, CarReserved, CarUnavailable:
		return true
	}
	return false
}

// Categories accepted for Car.Category.
var Categories = []string{"Sedan", "SUV", "Sports", "Electric", "Truck", "Van"}

// Car represents a rentable vehicle as stored in the `cars` table.
//
// Fields:
//
//	ID:           primary key identifier.
//	Make, Model:  manufacturer and model name.
//	Year:         model year.
//	Category:     one of Categories.
//	PricePerDay:  flat daily rate used for booking totals.
//	Status:       availability state (see CarStatus).
//	Rating:       average rating between 0 and 5.
//	Mileage:      odometer reading.
//	Seats:        number of seats.
//	Transmission: Automatic or Manual.
//	Image:        image URL shown in the catalog.
//	DeletedAt:    soft delete marker; deleted cars keep their booking history.
type Car struct {
	ID           uint64          `json:"id"`
	Make         string          `json:"make"`
	Model        string          `json:"model"`
	Year         int             `json:"year"`
	Category     string          `json:"category"`
	PricePerDay  decimal.Decimal `json:"price_per_day"`
	Status       CarStatus       `json:"status"`
	Rating       float64         `json:"rating"`
	Mileage      int             `json:"mileage"`
	Seats        int             `json:"seats"`
	Transmission string          `json:"transmission"`
	Image        string          `json:"image"`
	DeletedAt    *time.Time      `json:"-"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// DefaultCarImage is used when a car is created without an image.
const DefaultCarImage = "https://images.unsplash.com/photo-1618843479313-40f8afb4b4d8?w=600&q=80"
