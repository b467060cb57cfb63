package model

import "time"

// Room represents a bookable room type of the hostel as stored in the
// `rooms` table.  AvailableUnits counts how many rooms of this type can
// still be sold; it only decreases when a payment for one of them is
// confirmed and only increases through operator edits.
//
// Fields:
//  ID             – primary key identifier.
//  Name           – display name (e.g. "Room 3").
//  Slug           – URL-friendly form of Name.
//  Capacity       – persons per room.
//  PriceMinor     – price per academic year in minor currency units.
//  AvailableUnits – rooms of this type still available, never negative.
//  Description    – optional free text.
//  Images         – image URLs.
//  Videos         – video URLs.
//  Amenities      – amenity labels.
//  IsDeleted      – soft delete flag.
//  CreatedAt      – creation timestamp.
//  UpdatedAt      – last update timestamp.
type Room struct {
	ID             uint64    `json:"id"`              // rooms.id
	Name           string    `json:"name"`            // rooms.name
	Slug           string    `json:"slug"`            // rooms.slug
	Capacity       uint32    `json:"capacity"`        // rooms.capacity
	PriceMinor     int64     `json:"price_minor"`     // rooms.price_minor
	AvailableUnits uint32    `json:"available_units"` // rooms.available_units
	Description    string    `json:"description"`     // rooms.description
	Images         []string  `json:"images"`          // rooms.images_json
	Videos         []string  `json:"videos"`          // rooms.videos_json
	Amenities      []string  `json:"amenities"`       // rooms.amenities_json
	IsDeleted      bool      `json:"is_deleted"`      // rooms.is_deleted
	CreatedAt      time.Time `json:"created_at"`      // rooms.created_at
	UpdatedAt      time.Time `json:"updated_at"`      // rooms.updated_at
}

// Bookable reports whether the room is listed and has at least one unit left.
func (r *Room) Bookable() bool {
	return !r.IsDeleted && r.AvailableUnits > 0
}
