package booking_test

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Felicien407/car-rental-system/internal/booking"
)

func day(s string) time.Time {
	t, err := time.Parse(booking.DayLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestParseDay(t *testing.T) {
	cases := map[string]string{
		"2025-02-10":                "2025-02-10",
		" 2025-02-10 ":              "2025-02-10",
		"2025-02-10T00:00:00Z":      "2025-02-10",
		"2025-02-10T23:30:00-05:00": "2025-02-10",
		"2025-02-10T01:00:00+09:00": "2025-02-10",
	}
	for in, want := range cases {
		got, err := booking.ParseDay(in)
		if err != nil {
			t.Errorf("%q: %v", in, err)
			continue
		}
		if !got.Equal(day(want)) || got.Location() != time.UTC {
			t.Errorf("%q: got %s, want %s UTC", in, got, want)
		}
	}
	for _, bad := range []string{"", "tomorrow", "2025-13-01", "10/02/2025"} {
		if _, err := booking.ParseDay(bad); !errors.Is(err, booking.ErrInvalidInterval) {
			t.Errorf("%q: expected ErrInvalidInterval, got %v", bad, err)
		}
	}
}

func TestNewDateRange(t *testing.T) {
	r, err := booking.NewDateRange("2025-02-10", "2025-02-15")
	if err != nil {
		t.Fatal(err)
	}
	if r.Days() != 5 || r.String() != "[2025-02-10, 2025-02-15)" {
		t.Fatalf("unexpected range %s (%d days)", r, r.Days())
	}

	bad := [][2]string{
		{"2025-02-10", "2025-02-10"},
		{"2025-02-15", "2025-02-10"},
		{"nope", "2025-02-10"},
		{"2025-02-10", ""},
	}
	for _, b := range bad {
		if _, err := booking.NewDateRange(b[0], b[1]); !errors.Is(err, booking.ErrInvalidInterval) {
			t.Errorf("%v: expected ErrInvalidInterval, got %v", b, err)
		}
	}
}

func TestOverlaps(t *testing.T) {
	rng := func(s, e string) booking.DateRange { return booking.DateRange{Start: day(s), End: day(e)} }
	base := rng("2025-02-10", "2025-02-15")

	cases := []struct {
		name  string
		other booking.DateRange
		want  bool
	}{
		{"touching after", rng("2025-02-15", "2025-02-20"), false},
		{"touching before", rng("2025-02-05", "2025-02-10"), false},
		{"straddles end", rng("2025-02-12", "2025-02-18"), true},
		{"straddles start", rng("2025-02-08", "2025-02-11"), true},
		{"inside", rng("2025-02-11", "2025-02-12"), true},
		{"covers", rng("2025-02-01", "2025-03-01"), true},
		{"identical", base, true},
		{"disjoint", rng("2025-03-01", "2025-03-05"), false},
	}
	for _, tc := range cases {
		if got := base.Overlaps(tc.other); got != tc.want {
			t.Errorf("%s: Overlaps = %v, want %v", tc.name, got, tc.want)
		}
		if got := tc.other.Overlaps(base); got != tc.want {
			t.Errorf("%s: overlap is not symmetric", tc.name)
		}
	}
}

func TestDaysAcrossCenturies(t *testing.T) {
	r := booking.DateRange{Start: day("0001-01-01"), End: day("9999-12-31")}
	if got := r.Days(); got != 3652058 {
		t.Fatalf("days = %d, want 3652058", got)
	}
}

func TestNewDateRangeSpanLimit(t *testing.T) {
	// 2025 is not a leap year: exactly 365 days
	if _, err := booking.NewDateRange("2025-02-10", "2026-02-10"); err != nil {
		t.Fatalf("a one-year rental must be accepted: %v", err)
	}
	for _, b := range [][2]string{
		{"2025-02-10", "2026-02-11"},
		{"0001-01-01", "9999-12-31"},
	} {
		if _, err := booking.NewDateRange(b[0], b[1]); !errors.Is(err, booking.ErrInvalidInterval) {
			t.Errorf("%v: expected ErrInvalidInterval, got %v", b, err)
		}
	}
}

func TestPrice(t *testing.T) {
	r, _ := booking.NewDateRange("2025-02-10", "2025-02-15")
	if got := booking.Price(r, decimal.NewFromInt(150)); !got.Equal(decimal.NewFromInt(750)) {
		t.Fatalf("price = %s, want 750", got)
	}
	one, _ := booking.NewDateRange("2025-02-10", "2025-02-11")
	if got := booking.Price(one, decimal.RequireFromString("99.99")); got.String() != "99.99" {
		t.Fatalf("one day price = %s", got)
	}
}

func TestCode(t *testing.T) {
	wrapped := errors.Join(errors.New("ctx"), booking.ErrBusy)
	if booking.Code(wrapped) != "BUSY" {
		t.Fatalf("wrapped busy: %s", booking.Code(wrapped))
	}
	if booking.Code(errors.New("db down")) != "INTERNAL" {
		t.Fatal("unknown errors must be INTERNAL")
	}
}
