// Package repository holds the MySQL access code.  Car and booking lookups
// report missing rows with the sentinels of internal/booking so handlers
// translate every not-found the same way; the values below cover what the
// core does not know about.
package repository

import (
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"

	"github.com/Felicien407/car-rental-system/internal/booking"
)

// ErrForbidden is returned when a customer asks for a booking that belongs
// to someone else.  Handlers translate it into HTTP 403.
var ErrForbidden = errors.New("forbidden")

// ErrEmailExists is returned when registering an address already in use.
var ErrEmailExists = errors.New("email already exists")

// MySQL server error numbers the repositories react to.
const (
	mysqlDuplicateEntry  = 1062
	mysqlLockWaitTimeout = 1205
	mysqlDeadlock        = 1213
)

func mysqlCode(err error) uint16 {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number
	}
	return 0
}

// translate turns lock contention inside MySQL into booking.ErrBusy.  Other
// errors pass through unchanged.
func translate(err error) error {
	switch mysqlCode(err) {
	case mysqlLockWaitTimeout, mysqlDeadlock:
		return fmt.Errorf("%w: %v", booking.ErrBusy, err)
	}
	return err
}
