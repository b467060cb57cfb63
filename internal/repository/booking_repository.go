package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/leemont-hostel/internal/model"
)

// BookingRepo is the booking ledger.  Bookings are keyed by their unique
// payment reference; every status change goes through CompareAndSetStatus
// so that a stale writer can never overwrite a terminal state.
type BookingRepo struct {
	db  *sql.DB
	now func() time.Time
}

// NewBookingRepo returns a BookingRepo bound to the given database.
func NewBookingRepo(db *sql.DB) *BookingRepo {
	return &BookingRepo{db: db, now: time.Now}
}

const bookingColumns = `id, user_id, room_id, check_in_date, check_out_date, total_price_minor,
	payment_reference, status, created_at, updated_at`

func scanBooking(s rowScanner) (*model.Booking, error) {
	var (
		b      model.Booking
		status string
	)
	if err := s.Scan(&b.ID, &b.UserID, &b.RoomID, &b.CheckInDate, &b.CheckOutDate, &b.TotalPriceMinor,
		&b.PaymentReference, &status, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return nil, err
	}
	b.Status = model.BookingStatus(status)
	return &b, nil
}

// Create inserts a booking and populates its ID.  CreatedAt is taken from
// the record when set, otherwise from the repository clock.  A reference
// that already exists yields ErrDuplicateReference.
func (r *BookingRepo) Create(ctx context.Context, b *model.Booking) error {
	if b.CreatedAt.IsZero() {
		b.CreatedAt = r.now()
	}
	b.CreatedAt = dbTime(b.CreatedAt)
	b.UpdatedAt = b.CreatedAt
	b.CheckInDate = dateOnly(b.CheckInDate)
	b.CheckOutDate = dateOnly(b.CheckOutDate)
	if b.Status == "" {
		b.Status = model.BookingPendingPayment
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO bookings (user_id, room_id, check_in_date, check_out_date, total_price_minor,
			payment_reference, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.UserID, b.RoomID, b.CheckInDate, b.CheckOutDate, b.TotalPriceMinor,
		b.PaymentReference, string(b.Status), b.CreatedAt, b.UpdatedAt)
	if err != nil {
		if isDuplicateKey(err) {
			return ErrDuplicateReference
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	b.ID = uint64(id)
	return nil
}

// FindByReference returns the booking owning the payment reference.
func (r *BookingRepo) FindByReference(ctx context.Context, reference string) (*model.Booking, error) {
	return r.one(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE payment_reference = ?`, reference)
}

// FindByID returns the booking with the given id.
func (r *BookingRepo) FindByID(ctx context.Context, id uint64) (*model.Booking, error) {
	return r.one(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = ?`, id)
}

// FindByUser lists the user's bookings, newest first.
func (r *BookingRepo) FindByUser(ctx context.Context, userID uint64) ([]*model.Booking, error) {
	return r.list(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE user_id = ? ORDER BY created_at DESC, id DESC`, userID)
}

// ListPendingBefore returns up to limit bookings still in pending_payment
// that were created before cutoff, least recently touched first.
func (r *BookingRepo) ListPendingBefore(ctx context.Context, cutoff time.Time, limit int) ([]*model.Booking, error) {
	if limit <= 0 {
		limit = 50
	}
	return r.list(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE status = ? AND created_at < ? ORDER BY updated_at, id LIMIT ?`,
		string(model.BookingPendingPayment), dbTime(cutoff), limit)
}

// TouchPending bumps updated_at of a pending booking so the next
// ListPendingBefore returns it after every booking not yet looked at.
// Bookings in any other status are left alone.
func (r *BookingRepo) TouchPending(ctx context.Context, id uint64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE bookings SET updated_at = ? WHERE id = ? AND status = ?`,
		dbTime(r.now()), id, string(model.BookingPendingPayment))
	return err
}

// MarkRefundRequested records that a refund was requested for the
// booking.  Only the first call for a booking reports true.
func (r *BookingRepo) MarkRefundRequested(ctx context.Context, id uint64) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE bookings SET refund_requested_at = ? WHERE id = ? AND refund_requested_at IS NULL`,
		dbTime(r.now()), id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

const casStatusSQL = `UPDATE bookings SET status = ?, updated_at = ? WHERE id = ? AND status = ?`

// CompareAndSetStatus moves the booking from one status to another in a
// single conditional UPDATE.  It reports false when the booking was not in
// the expected status (or does not exist); nothing is written then.
func (r *BookingRepo) CompareAndSetStatus(ctx context.Context, id uint64, from, to model.BookingStatus) (bool, error) {
	res, err := r.db.ExecContext(ctx, casStatusSQL, string(to), dbTime(r.now()), id, string(from))
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// CompareAndSetStatusTx is CompareAndSetStatus inside the caller's
// transaction.  On InnoDB the UPDATE holds the booking row lock until the
// transaction ends, which serialises concurrent confirmations.
func (r *BookingRepo) CompareAndSetStatusTx(ctx context.Context, tx *sql.Tx, id uint64, from, to model.BookingStatus) (bool, error) {
	res, err := tx.ExecContext(ctx, casStatusSQL, string(to), dbTime(r.now()), id, string(from))
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *BookingRepo) one(ctx context.Context, q string, args ...any) (*model.Booking, error) {
	b, err := scanBooking(r.db.QueryRowContext(ctx, q, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}
	return b, nil
}

func (r *BookingRepo) list(ctx context.Context, q string, args ...any) ([]*model.Booking, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]*model.Booking, 0)
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
