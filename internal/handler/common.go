package handler // HTTP handlers for auth, cars, bookings and health

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"

	"github.com/Felicien407/car-rental-system/internal/booking"
	"github.com/Felicien407/car-rental-system/internal/repository"
)

// Validator adapts go-playground/validator to echo.Validator.
type Validator struct {
	v *validator.Validate
}

// NewValidator is installed as echo.Echo.Validator by the server.
func NewValidator() *Validator {
	return &Validator{v: validator.New(validator.WithRequiredStructEnabled())}
}

func (cv *Validator) Validate(i any) error { return cv.v.Struct(i) }

// bindValid binds the request body into dst and validates it.  On failure
// the 400 response has already been written and handled is true.
func bindValid(c echo.Context, dst any) (handled bool, err error) {
	if err := c.Bind(dst); err != nil {
		return true, c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body", "code": "INVALID_BODY"})
	}
	if err := c.Validate(dst); err != nil {
		return true, c.JSON(http.StatusBadRequest, echo.Map{"error": validationMessage(err), "code": "VALIDATION_FAILED"})
	}
	return false, nil
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		if fe.Param() != "" {
			return fe.Field() + " failed " + fe.Tag() + "=" + fe.Param()
		}
		return fe.Field() + " failed " + fe.Tag()
	}
	return err.Error()
}

// parseID reads a positive numeric path parameter.
func parseID(c echo.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	return id, err == nil && id > 0
}

// statusOf maps core and repository errors to HTTP statuses.
func statusOf(err error) int {
	switch {
	case errors.Is(err, booking.ErrInvalidInterval):
		return http.StatusBadRequest
	case errors.Is(err, booking.ErrResourceNotFound), errors.Is(err, booking.ErrReservationNotFound):
		return http.StatusNotFound
	case errors.Is(err, booking.ErrResourceUnavailable),
		errors.Is(err, booking.ErrConflictingReservation),
		errors.Is(err, booking.ErrInvalidTransition),
		errors.Is(err, booking.ErrResourceHasActiveReservation):
		return http.StatusConflict
	case errors.Is(err, booking.ErrBusy):
		return http.StatusServiceUnavailable
	case errors.Is(err, repository.ErrForbidden):
		return http.StatusForbidden
	}
	return http.StatusInternalServerError
}

// writeError renders err as {"error", "code"}.  Internal errors are logged
// and hidden from the client.
func writeError(c echo.Context, err error) error {
	status := statusOf(err)
	code := booking.Code(err)
	msg := err.Error()
	switch status {
	case http.StatusInternalServerError:
		log.Errorf("%s %s: %v", c.Request().Method, c.Path(), err)
		msg = "internal error"
	case http.StatusServiceUnavailable:
		c.Response().Header().Set("Retry-After", "1")
	case http.StatusForbidden:
		code = "FORBIDDEN"
	}
	return c.JSON(status, echo.Map{"error": msg, "code": code})
}
