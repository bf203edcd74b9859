package booking

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Felicien407/car-rental-system/internal/model"
)

// DayLayout is the wire format of booking dates.
const DayLayout = "2006-01-02"

// MaxRentalDays is the longest span a single booking may cover.
const MaxRentalDays = 365

// MaxTotalPrice is the largest total the bookings.total_price column
// (DECIMAL(10,2)) can hold.
var MaxTotalPrice = decimal.RequireFromString("99999999.99")

const secondsPerDay = 24 * 60 * 60

// DateRange is a half-open calendar-day interval [Start, End).  Both ends
// are UTC midnight, so the checkout day of one rental may be the pickup
// day of the next.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// TruncateDay drops the time of day and returns the calendar date of t,
// as observed in t's own location, at UTC midnight.
func TruncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDay accepts YYYY-MM-DD or an RFC 3339 timestamp and returns the
// calendar date it names.
func ParseDay(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(DayLayout, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return TruncateDay(t), nil
	}
	return time.Time{}, fmt.Errorf("%w: %q is not a calendar date", ErrInvalidInterval, s)
}

// NewDateRange parses both ends and rejects empty or inverted ranges.
func NewDateRange(start, end string) (DateRange, error) {
	s, err := ParseDay(start)
	if err != nil {
		return DateRange{}, err
	}
	e, err := ParseDay(end)
	if err != nil {
		return DateRange{}, err
	}
	if !e.After(s) {
		return DateRange{}, fmt.Errorf("%w: end date must be after start date", ErrInvalidInterval)
	}
	r := DateRange{Start: s, End: e}
	if n := r.Days(); n > MaxRentalDays {
		return DateRange{}, fmt.Errorf("%w: %d days exceeds the %d day limit", ErrInvalidInterval, n, MaxRentalDays)
	}
	return r, nil
}

// RangeOf returns the normalized interval covered by b.
func RangeOf(b model.Booking) DateRange {
	return DateRange{Start: TruncateDay(b.StartDate), End: TruncateDay(b.EndDate)}
}

// Overlaps reports whether r and o share at least one day.  Touching
// ranges (r.End == o.Start) do not overlap.
func (r DateRange) Overlaps(o DateRange) bool {
	return r.Start.Before(o.End) && o.Start.Before(r.End)
}

// Days is the number of rented days, rounded up.  It works on Unix
// seconds rather than time.Duration, which saturates after 292 years.
func (r DateRange) Days() int64 {
	return (r.End.Unix() - r.Start.Unix() + secondsPerDay - 1) / secondsPerDay
}

func (r DateRange) String() string {
	return "[" + r.Start.Format(DayLayout) + ", " + r.End.Format(DayLayout) + ")"
}

// Price is the flat total for renting at dailyRate over r.
func Price(r DateRange, dailyRate decimal.Decimal) decimal.Decimal {
	return dailyRate.Mul(decimal.NewFromInt(r.Days()))
}
