package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/leemont-hostel/internal/model"
	"github.com/iliyamo/leemont-hostel/internal/repository"
	"github.com/iliyamo/leemont-hostel/internal/utils"
)

// PublicHandler serves unauthenticated browse endpoints.  Responses only
// include rooms that are not soft-deleted.
type PublicHandler struct {
	Rooms      *repository.RoomRepo
	HostelRepo *repository.HostelRepo
}

func NewPublicHandler(rooms *repository.RoomRepo, hostel *repository.HostelRepo) *PublicHandler {
	return &PublicHandler{Rooms: rooms, HostelRepo: hostel}
}

// roomResponse is the public view of a room.
type roomResponse struct {
	ID             uint64   `json:"id"`
	Name           string   `json:"name"`
	Slug           string   `json:"slug"`
	Capacity       uint32   `json:"capacity"`
	PriceMinor     int64    `json:"price_minor"`
	Price          string   `json:"price"`
	AvailableUnits uint32   `json:"available_units"`
	Available      bool     `json:"available"`
	Description    string   `json:"description"`
	Images         []string `json:"images"`
	Videos         []string `json:"videos"`
	Amenities      []string `json:"amenities"`
}

func toRoomResponse(r *model.Room) roomResponse {
	return roomResponse{
		ID:             r.ID,
		Name:           r.Name,
		Slug:           r.Slug,
		Capacity:       r.Capacity,
		PriceMinor:     r.PriceMinor,
		Price:          utils.FormatMinor(r.PriceMinor),
		AvailableUnits: r.AvailableUnits,
		Available:      r.Bookable(),
		Description:    r.Description,
		Images:         nonNil(r.Images),
		Videos:         nonNil(r.Videos),
		Amenities:      nonNil(r.Amenities),
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// ListRooms handles GET /v1/rooms.  An optional ?limit=N caps the result.
func (h *PublicHandler) ListRooms(c echo.Context) error {
	limit := 0
	if s := c.QueryParam("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid limit"})
		}
		limit = n
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	rooms, err := h.Rooms.ListActive(ctx, limit)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	out := make([]roomResponse, 0, len(rooms))
	for _, r := range rooms {
		out = append(out, toRoomResponse(r))
	}
	return c.JSON(http.StatusOK, echo.Map{"items": out})
}

// Featured handles GET /v1/rooms/featured: the home page selection.
func (h *PublicHandler) Featured(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	rooms, err := h.Rooms.ListFeatured(ctx, 3)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	out := make([]roomResponse, 0, len(rooms))
	for _, r := range rooms {
		out = append(out, toRoomResponse(r))
	}
	return c.JSON(http.StatusOK, echo.Map{"items": out})
}

// GetRoom handles GET /v1/rooms/:id.  Deleted rooms are reported as missing.
func (h *PublicHandler) GetRoom(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid room id"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	r, err := h.Rooms.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrRoomNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "room not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if r.IsDeleted {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "room not found"})
	}
	return c.JSON(http.StatusOK, toRoomResponse(r))
}

// Hostel handles GET /v1/hostel.
func (h *PublicHandler) Hostel(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	d, err := h.HostelRepo.Get(ctx)
	if err != nil {
		if errors.Is(err, repository.ErrHostelNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "hostel details not set"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	d.GeneralImages = nonNil(d.GeneralImages)
	d.Amenities = nonNil(d.Amenities)
	return c.JSON(http.StatusOK, d)
}
