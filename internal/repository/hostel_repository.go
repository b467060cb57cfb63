package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/leemont-hostel/internal/model"
)

// ErrHostelNotFound is returned when the hostel_details row is missing.
var ErrHostelNotFound = errors.New("hostel details not found")

// HostelRepo reads and writes the single hostel_details row.
type HostelRepo struct {
	db *sql.DB
}

func NewHostelRepo(db *sql.DB) *HostelRepo { return &HostelRepo{db: db} }

// Get returns the first hostel_details row.
func (r *HostelRepo) Get(ctx context.Context) (*model.HostelDetails, error) {
	var (
		h                 model.HostelDetails
		images, amenities string
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, hostel_name, general_video_url, general_images_json, amenities_json
		 FROM hostel_details ORDER BY id LIMIT 1`).
		Scan(&h.ID, &h.Name, &h.GeneralVideoURL, &images, &amenities)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrHostelNotFound
		}
		return nil, err
	}
	if h.GeneralImages, err = decodeList(images); err != nil {
		return nil, err
	}
	if h.Amenities, err = decodeList(amenities); err != nil {
		return nil, err
	}
	return &h, nil
}

// Save inserts the row when h.ID is zero, otherwise updates it.
func (r *HostelRepo) Save(ctx context.Context, h *model.HostelDetails) error {
	images, err := encodeList(h.GeneralImages)
	if err != nil {
		return err
	}
	amenities, err := encodeList(h.Amenities)
	if err != nil {
		return err
	}
	if h.ID == 0 {
		res, err := r.db.ExecContext(ctx,
			`INSERT INTO hostel_details (hostel_name, general_video_url, general_images_json, amenities_json)
			 VALUES (?, ?, ?, ?)`, h.Name, h.GeneralVideoURL, images, amenities)
		if err != nil {
			return err
		}
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}
		h.ID = uint64(id)
		return nil
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE hostel_details SET hostel_name = ?, general_video_url = ?, general_images_json = ?, amenities_json = ?
		 WHERE id = ?`, h.Name, h.GeneralVideoURL, images, amenities, h.ID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return ErrHostelNotFound
	}
	return nil
}
