package middleware

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/Felicien407/car-rental-system/internal/booking"
)

// Actor builds the booking core's caller identity from the values JWTAuth
// stored.  ok is false on routes without authentication.
func Actor(c echo.Context) (booking.Actor, bool) {
	uid, ok := c.Get(KeyUserID).(uint64)
	if !ok || uid == 0 {
		return booking.Actor{}, false
	}
	role, _ := c.Get(KeyRole).(string)
	name, _ := c.Get(KeyUserName).(string)
	return booking.Actor{UserID: uid, Name: name, Role: role}, true
}

// userKey identifies the caller for rate limiting; anonymous callers share
// "anon".
func userKey(c echo.Context) string {
	if a, ok := Actor(c); ok {
		return strconv.FormatUint(a.UserID, 10)
	}
	return "anon"
}
