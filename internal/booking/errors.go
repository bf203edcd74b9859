package booking

import "errors"

// Error kinds surfaced by the allocation core.  Callers match them with
// errors.Is; the core wraps them with detail but never retries.  Only
// ErrBusy is worth retrying without changing the request.
var (
	ErrInvalidInterval              = errors.New("invalid interval")
	ErrResourceNotFound             = errors.New("car not found")
	ErrResourceUnavailable          = errors.New("car is not available")
	ErrConflictingReservation       = errors.New("car is already booked for those dates")
	ErrReservationNotFound          = errors.New("booking not found")
	ErrInvalidTransition            = errors.New("invalid status transition")
	ErrResourceHasActiveReservation = errors.New("car has an active booking")
	ErrBusy                         = errors.New("car is busy, try again")
)

// Code returns a stable machine-readable code for err, or "INTERNAL" when
// err is not one of the core's error kinds.
func Code(err error) string {
	switch {
	case errors.Is(err, ErrInvalidInterval):
		return "INVALID_INTERVAL"
	case errors.Is(err, ErrResourceNotFound):
		return "RESOURCE_NOT_FOUND"
	case errors.Is(err, ErrResourceUnavailable):
		return "RESOURCE_UNAVAILABLE"
	case errors.Is(err, ErrConflictingReservation):
		return "CONFLICTING_RESERVATION"
	case errors.Is(err, ErrReservationNotFound):
		return "RESERVATION_NOT_FOUND"
	case errors.Is(err, ErrInvalidTransition):
		return "INVALID_TRANSITION"
	case errors.Is(err, ErrResourceHasActiveReservation):
		return "RESOURCE_HAS_ACTIVE_RESERVATION"
	case errors.Is(err, ErrBusy):
		return "BUSY"
	}
	return "INTERNAL"
}
