package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gosimple/slug"

	"github.com/iliyamo/leemont-hostel/internal/model"
)

// RoomRepo is the inventory store.  It owns the available_units counter of
// every room and is the only place that changes it.  The counter is
// decremented with a single conditional UPDATE so that concurrent
// approvals for the last unit cannot both succeed.
type RoomRepo struct {
	db  *sql.DB
	now func() time.Time
}

// NewRoomRepo returns a RoomRepo bound to the given database.
func NewRoomRepo(db *sql.DB) *RoomRepo {
	return &RoomRepo{db: db, now: time.Now}
}

const roomColumns = `id, name, slug, capacity, price_minor, available_units, description,
	images_json, videos_json, amenities_json, is_deleted, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRoom(s rowScanner) (*model.Room, error) {
	var (
		rm                           model.Room
		desc                         sql.NullString
		images, videos, amenitiesRaw string
	)
	if err := s.Scan(&rm.ID, &rm.Name, &rm.Slug, &rm.Capacity, &rm.PriceMinor, &rm.AvailableUnits,
		&desc, &images, &videos, &amenitiesRaw, &rm.IsDeleted, &rm.CreatedAt, &rm.UpdatedAt); err != nil {
		return nil, err
	}
	rm.Description = desc.String
	var err error
	if rm.Images, err = decodeList(images); err != nil {
		return nil, fmt.Errorf("room %d images: %w", rm.ID, err)
	}
	if rm.Videos, err = decodeList(videos); err != nil {
		return nil, fmt.Errorf("room %d videos: %w", rm.ID, err)
	}
	if rm.Amenities, err = decodeList(amenitiesRaw); err != nil {
		return nil, fmt.Errorf("room %d amenities: %w", rm.ID, err)
	}
	return &rm, nil
}

// GetByID returns the room with the given id, including soft-deleted rooms.
// ErrRoomNotFound is returned when no row exists.
func (r *RoomRepo) GetByID(ctx context.Context, id uint64) (*model.Room, error) {
	q := `SELECT ` + roomColumns + ` FROM rooms WHERE id = ?`
	rm, err := scanRoom(r.db.QueryRowContext(ctx, q, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRoomNotFound
		}
		return nil, err
	}
	return rm, nil
}

// ExistsAndActive reports whether the room exists and is not soft-deleted.
func (r *RoomRepo) ExistsAndActive(ctx context.Context, id uint64) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM rooms WHERE id = ? AND is_deleted = ?`, id, false).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

const decrementSQL = `UPDATE rooms SET available_units = available_units - 1, updated_at = ?
	WHERE id = ? AND available_units > 0`

// DecrementIfPositive takes one unit of the room when at least one is left.
// It reports whether a unit was taken.
func (r *RoomRepo) DecrementIfPositive(ctx context.Context, id uint64) (bool, error) {
	res, err := r.db.ExecContext(ctx, decrementSQL, dbTime(r.now()), id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// DecrementIfPositiveTx is DecrementIfPositive inside the caller's
// transaction.  The caller must commit or roll back.
func (r *RoomRepo) DecrementIfPositiveTx(ctx context.Context, tx *sql.Tx, id uint64) (bool, error) {
	res, err := tx.ExecContext(ctx, decrementSQL, dbTime(r.now()), id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// Create inserts a new room and populates its ID, slug and timestamps.
func (r *RoomRepo) Create(ctx context.Context, rm *model.Room) error {
	images, videos, amenities, err := encodeRoomLists(rm)
	if err != nil {
		return err
	}
	now := dbTime(r.now())
	rm.Slug = roomSlug(rm.Name)
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO rooms (name, slug, capacity, price_minor, available_units, description,
			images_json, videos_json, amenities_json, is_deleted, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rm.Name, rm.Slug, rm.Capacity, rm.PriceMinor, rm.AvailableUnits, rm.Description,
		images, videos, amenities, rm.IsDeleted, now, now)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	rm.ID = uint64(id)
	rm.CreatedAt, rm.UpdatedAt = now, now
	return nil
}

// Update overwrites the editable fields of a room.  Operators may raise or
// lower AvailableUnits here; it is the only path that increases the
// counter.  ErrRoomNotFound is returned when the id does not exist.
func (r *RoomRepo) Update(ctx context.Context, rm *model.Room) error {
	images, videos, amenities, err := encodeRoomLists(rm)
	if err != nil {
		return err
	}
	now := dbTime(r.now())
	rm.Slug = roomSlug(rm.Name)
	res, err := r.db.ExecContext(ctx,
		`UPDATE rooms SET name = ?, slug = ?, capacity = ?, price_minor = ?, available_units = ?,
			description = ?, images_json = ?, videos_json = ?, amenities_json = ?, updated_at = ?
		 WHERE id = ?`,
		rm.Name, rm.Slug, rm.Capacity, rm.PriceMinor, rm.AvailableUnits, rm.Description,
		images, videos, amenities, now, rm.ID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return ErrRoomNotFound
	}
	rm.UpdatedAt = now
	return nil
}

// SetDeleted soft-deletes (deleted=true) or restores a room.
func (r *RoomRepo) SetDeleted(ctx context.Context, id uint64, deleted bool) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE rooms SET is_deleted = ?, updated_at = ? WHERE id = ?`, deleted, dbTime(r.now()), id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return ErrRoomNotFound
	}
	return nil
}

// ListActive returns rooms that are not soft-deleted ordered by id.  A
// positive limit caps the number of rows.
func (r *RoomRepo) ListActive(ctx context.Context, limit int) ([]*model.Room, error) {
	q := `SELECT ` + roomColumns + ` FROM rooms WHERE is_deleted = ? ORDER BY id`
	args := []any{false}
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}
	return r.list(ctx, q, args...)
}

// ListAll returns every room, deleted or not, ordered by id.
func (r *RoomRepo) ListAll(ctx context.Context) ([]*model.Room, error) {
	return r.list(ctx, `SELECT `+roomColumns+` FROM rooms ORDER BY id`)
}

// CountActive returns the number of rooms that are not soft-deleted.
func (r *RoomRepo) CountActive(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM rooms WHERE is_deleted = ?`, false).Scan(&n)
	return n, err
}

func (r *RoomRepo) list(ctx context.Context, q string, args ...any) ([]*model.Room, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]*model.Room, 0)
	for rows.Next() {
		rm, err := scanRoom(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rm)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func encodeRoomLists(rm *model.Room) (images, videos, amenities string, err error) {
	if images, err = encodeList(rm.Images); err != nil {
		return
	}
	if videos, err = encodeList(rm.Videos); err != nil {
		return
	}
	amenities, err = encodeList(rm.Amenities)
	return
}

func roomSlug(name string) string {
	s := slug.Make(strings.TrimSpace(name))
	if s == "" {
		return "room"
	}
	return s
}

// ListFeatured returns the first limit active rooms for the home page.
func (r *RoomRepo) ListFeatured(ctx context.Context, limit int) ([]*model.Room, error) {
	if limit <= 0 {
		limit = 3
	}
	return r.ListActive(ctx, limit)
}
