// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as the
// booking service and handlers to distinguish between different failure
// scenarios without inspecting driver errors.
package repository

import (
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
)

// ErrRoomNotFound is returned when a room id does not exist.
var ErrRoomNotFound = errors.New("room not found")

// ErrBookingNotFound is returned when no booking matches the lookup key.
var ErrBookingNotFound = errors.New("booking not found")

// ErrDuplicateReference is returned when a booking is inserted with a
// payment reference that already exists.  The unique index on
// bookings.payment_reference is what raises it.
var ErrDuplicateReference = errors.New("duplicate payment reference")

// ErrBookingNotPending is returned by SettlementRepo.Approve when the
// booking already left pending_payment.
var ErrBookingNotPending = errors.New("booking is not pending payment")

// ErrRoomExhausted is returned by SettlementRepo.Approve when the room has
// no unit left.  Nothing was written.
var ErrRoomExhausted = errors.New("room has no available units")

// ErrForbidden is returned when the caller attempts an operation
// on a resource they do not own. Handlers should translate this
// into an HTTP 403 response.
var ErrForbidden = errors.New("forbidden")

// mysqlDuplicateEntry is the MySQL error number for a unique key violation.
const mysqlDuplicateEntry = 1062

// isDuplicateKey reports whether err is a unique constraint violation.
// MySQL errors are matched by number; other drivers by message.
func isDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number == mysqlDuplicateEntry
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate entry") || strings.Contains(msg, "unique constraint")
}
