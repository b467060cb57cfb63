package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/leemont-hostel/internal/model"
	"github.com/iliyamo/leemont-hostel/internal/repository"
	"github.com/iliyamo/leemont-hostel/internal/utils"
)

// Purger drops cached public responses after an edit.
type Purger interface {
	Purge(ctx context.Context) error
}

// AdminHandler serves room and hostel management for ADMIN users.
type AdminHandler struct {
	Rooms  *repository.RoomRepo
	Hostel *repository.HostelRepo
	Cache  Purger
	Log    logrus.FieldLogger
}

func NewAdminHandler(rooms *repository.RoomRepo, hostel *repository.HostelRepo, cache Purger, log logrus.FieldLogger) *AdminHandler {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &AdminHandler{Rooms: rooms, Hostel: hostel, Cache: cache, Log: log.WithField("component", "http.admin")}
}

// roomReq is the body of room create and update.  Price is in major units.
type roomReq struct {
	Name           string   `json:"name" validate:"required,max=100"`
	Capacity       uint32   `json:"capacity" validate:"required,min=1,max=20"`
	Price          string   `json:"price" validate:"required"`
	AvailableUnits uint32   `json:"available_units" validate:"max=10000"`
	Description    string   `json:"description" validate:"max=2000"`
	Images         []string `json:"images" validate:"dive,url"`
	Videos         []string `json:"videos" validate:"dive,url"`
	Amenities      []string `json:"amenities" validate:"dive,required,max=60"`
}

type hostelReq struct {
	Name            string   `json:"name" validate:"required,max=120"`
	GeneralVideoURL string   `json:"general_video_url" validate:"omitempty,url"`
	GeneralImages   []string `json:"general_images" validate:"dive,url"`
	Amenities       []string `json:"amenities" validate:"dive,required,max=60"`
}

// adminRoom adds the soft delete flag to the public view.
type adminRoom struct {
	roomResponse
	IsDeleted bool      `json:"is_deleted"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toAdminRoom(r *model.Room) adminRoom {
	return adminRoom{roomResponse: toRoomResponse(r), IsDeleted: r.IsDeleted, UpdatedAt: r.UpdatedAt}
}

func (h *AdminHandler) bindRoom(c echo.Context) (*model.Room, string) {
	var req roomReq
	if msg := bindValid(c, &req); msg != "" {
		return nil, msg
	}
	price, err := utils.ParseMajor(req.Price)
	if err != nil {
		return nil, "price must be a non-negative amount"
	}
	return &model.Room{
		Name:           strings.TrimSpace(req.Name),
		Capacity:       req.Capacity,
		PriceMinor:     price,
		AvailableUnits: req.AvailableUnits,
		Description:    req.Description,
		Images:         req.Images,
		Videos:         req.Videos,
		Amenities:      req.Amenities,
	}, ""
}

func (h *AdminHandler) purge(ctx context.Context) {
	if h.Cache == nil {
		return
	}
	if err := h.Cache.Purge(context.WithoutCancel(ctx)); err != nil {
		h.Log.WithError(err).Warn("cache purge failed")
	}
}

// ListRooms handles GET /v1/admin/rooms, including deleted rooms.
// total_active counts the rooms guests can still see.
func (h *AdminHandler) ListRooms(c echo.Context) error {
	ctx := c.Request().Context()
	rooms, err := h.Rooms.ListAll(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	active, err := h.Rooms.CountActive(ctx)
	if err != nil {
		h.Log.WithError(err).Error("count active rooms")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	out := make([]adminRoom, 0, len(rooms))
	for _, r := range rooms {
		out = append(out, toAdminRoom(r))
	}
	return c.JSON(http.StatusOK, echo.Map{"items": out, "total_active": active})
}

// CreateRoom handles POST /v1/admin/rooms.
func (h *AdminHandler) CreateRoom(c echo.Context) error {
	rm, msg := h.bindRoom(c)
	if msg != "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}
	ctx := c.Request().Context()
	if err := h.Rooms.Create(ctx, rm); err != nil {
		h.Log.WithError(err).Error("create room")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create failed"})
	}
	h.purge(ctx)
	return c.JSON(http.StatusCreated, toAdminRoom(rm))
}

// UpdateRoom handles PUT /v1/admin/rooms/:id.  The body replaces every
// editable field, including the available unit count.
func (h *AdminHandler) UpdateRoom(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid room id"})
	}
	rm, msg := h.bindRoom(c)
	if msg != "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}
	ctx := c.Request().Context()
	current, err := h.Rooms.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrRoomNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "room not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	rm.ID = id
	rm.IsDeleted = current.IsDeleted
	rm.CreatedAt = current.CreatedAt
	if err := h.Rooms.Update(ctx, rm); err != nil {
		if errors.Is(err, repository.ErrRoomNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "room not found"})
		}
		h.Log.WithError(err).WithField("room_id", id).Error("update room")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	h.purge(ctx)
	return c.JSON(http.StatusOK, toAdminRoom(rm))
}

// DeleteRoom handles POST /v1/admin/rooms/:id/delete (soft delete).
func (h *AdminHandler) DeleteRoom(c echo.Context) error {
	return h.setDeleted(c, true)
}

// RestoreRoom handles POST /v1/admin/rooms/:id/restore.
func (h *AdminHandler) RestoreRoom(c echo.Context) error {
	return h.setDeleted(c, false)
}

func (h *AdminHandler) setDeleted(c echo.Context, deleted bool) error {
	id, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid room id"})
	}
	ctx := c.Request().Context()
	if err := h.Rooms.SetDeleted(ctx, id, deleted); err != nil {
		if errors.Is(err, repository.ErrRoomNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "room not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	h.purge(ctx)
	return c.NoContent(http.StatusNoContent)
}

// UpdateHostel handles PUT /v1/admin/hostel and creates the row on first use.
func (h *AdminHandler) UpdateHostel(c echo.Context) error {
	var req hostelReq
	if msg := bindValid(c, &req); msg != "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}
	ctx := c.Request().Context()
	d := &model.HostelDetails{}
	current, err := h.Hostel.Get(ctx)
	switch {
	case err == nil:
		d.ID = current.ID
	case !errors.Is(err, repository.ErrHostelNotFound):
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	d.Name = strings.TrimSpace(req.Name)
	d.GeneralVideoURL = req.GeneralVideoURL
	d.GeneralImages = nonNil(req.GeneralImages)
	d.Amenities = nonNil(req.Amenities)
	if err := h.Hostel.Save(ctx, d); err != nil {
		h.Log.WithError(err).Error("save hostel details")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "save failed"})
	}
	h.purge(ctx)
	return c.JSON(http.StatusOK, d)
}
