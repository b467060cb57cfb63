package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/leemont-hostel/internal/model"
)

// SettlementRepo applies a verified payment: the booking moves from
// pending_payment to approved and the room loses one unit, both in one
// transaction.  Either both writes commit or neither does.
type SettlementRepo struct {
	db       *sql.DB
	bookings *BookingRepo
	rooms    *RoomRepo
}

// NewSettlementRepo wires a SettlementRepo over the ledger and the
// inventory store sharing db.
func NewSettlementRepo(db *sql.DB, bookings *BookingRepo, rooms *RoomRepo) *SettlementRepo {
	return &SettlementRepo{db: db, bookings: bookings, rooms: rooms}
}

// Approve settles the booking against roomID.  It returns
// ErrBookingNotPending when another caller already moved the booking out
// of pending_payment, and ErrRoomExhausted when no unit is left; in both
// cases nothing was written.
func (r *SettlementRepo) Approve(ctx context.Context, bookingID, roomID uint64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	ok, err := r.bookings.CompareAndSetStatusTx(ctx, tx, bookingID, model.BookingPendingPayment, model.BookingApproved)
	if err != nil {
		return err
	}
	if !ok {
		return ErrBookingNotPending
	}
	took, err := r.rooms.DecrementIfPositiveTx(ctx, tx, roomID)
	if err != nil {
		return err
	}
	if !took {
		return ErrRoomExhausted
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}
