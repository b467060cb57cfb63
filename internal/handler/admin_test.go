package handler

import (
	"net/http"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func roomBody(name, price string, units int) map[string]any {
	return map[string]any{
		"name":            name,
		"capacity":        2,
		"price":           price,
		"available_units": units,
		"description":     "Shared room",
		"images":          []string{"https://img.test/a.jpg"},
		"amenities":       []string{"Wi-Fi", "Desk"},
	}
}

func TestAdminRoomLifecycle(t *testing.T) {
	h := newHarness(t)
	_, tok := h.account(t, "admin@example.com", true)

	rec := h.do(t, http.MethodPost, "/v1/admin/rooms", tok, roomBody("Room 16", "3360.50", 2))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created adminRoom
	decode(t, rec, &created)
	assert.Equal(t, int64(336050), created.PriceMinor)
	assert.Equal(t, "room-16", created.Slug)
	assert.Equal(t, 1, h.purger.n)
	path := "/v1/admin/rooms/" + strconv.FormatUint(created.ID, 10)

	rec = h.do(t, http.MethodPut, path, tok, roomBody("Room 16 Deluxe", "4000", 5))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rm, err := h.rooms.GetByID(t.Context(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Room 16 Deluxe", rm.Name)
	assert.Equal(t, int64(400000), rm.PriceMinor)
	assert.Equal(t, uint32(5), rm.AvailableUnits)

	rec = h.do(t, http.MethodPost, path+"/delete", tok, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = h.do(t, http.MethodGet, "/v1/rooms/"+strconv.FormatUint(created.ID, 10), "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = h.do(t, http.MethodGet, "/v1/admin/rooms", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Items       []adminRoom `json:"items"`
		TotalActive int         `json:"total_active"`
	}
	decode(t, rec, &list)
	require.Len(t, list.Items, 1)
	assert.True(t, list.Items[0].IsDeleted)
	assert.Zero(t, list.TotalActive)

	rec = h.do(t, http.MethodPost, path+"/restore", tok, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = h.do(t, http.MethodGet, "/v1/rooms/"+strconv.FormatUint(created.ID, 10), "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 4, h.purger.n)

	rec = h.do(t, http.MethodGet, "/v1/admin/rooms", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &list)
	assert.Equal(t, 1, list.TotalActive)
}

func TestAdminCreateFreeRoom(t *testing.T) {
	h := newHarness(t)
	_, tok := h.account(t, "admin@example.com", true)

	rec := h.do(t, http.MethodPost, "/v1/admin/rooms", tok, roomBody("Warden Room", "0", 1))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created adminRoom
	decode(t, rec, &created)
	assert.Zero(t, created.PriceMinor)
}

func TestAdminRoomValidation(t *testing.T) {
	h := newHarness(t)
	_, tok := h.account(t, "admin@example.com", true)

	rec := h.do(t, http.MethodPost, "/v1/admin/rooms", tok, roomBody("", "100", 1))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = h.do(t, http.MethodPost, "/v1/admin/rooms", tok, roomBody("Room", "12.345", 1))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = h.do(t, http.MethodPost, "/v1/admin/rooms", tok, roomBody("Room", "-5", 1))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	body := roomBody("Room", "100", 1)
	body["images"] = []string{"not a url"}
	rec = h.do(t, http.MethodPost, "/v1/admin/rooms", tok, body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = h.do(t, http.MethodPut, "/v1/admin/rooms/42", tok, roomBody("Room", "100", 1))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = h.do(t, http.MethodPost, "/v1/admin/rooms/42/delete", tok, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Zero(t, h.purger.n)
}

func TestAdminRoutesRequireAdmin(t *testing.T) {
	h := newHarness(t)
	_, tok := h.account(t, "guest@example.com", false)

	rec := h.do(t, http.MethodGet, "/v1/admin/rooms", tok, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = h.do(t, http.MethodGet, "/v1/admin/rooms", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAdminUpdateHostel(t *testing.T) {
	h := newHarness(t)
	_, tok := h.account(t, "admin@example.com", true)

	body := map[string]any{
		"name":              "Leemont Hostel",
		"general_video_url": "https://video.test/tour",
		"general_images":    []string{"https://img.test/front.jpg"},
		"amenities":         []string{"Gym", "Laundry"},
	}
	rec := h.do(t, http.MethodPut, "/v1/admin/hostel", tok, body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	body["name"] = "Leemont Hostel Annex"
	rec = h.do(t, http.MethodPut, "/v1/admin/hostel", tok, body)
	require.Equal(t, http.StatusOK, rec.Code)

	d, err := h.hostel.Get(t.Context())
	require.NoError(t, err)
	assert.Equal(t, "Leemont Hostel Annex", d.Name)
	assert.Equal(t, []string{"Gym", "Laundry"}, d.Amenities)
	assert.Equal(t, 2, h.purger.n)

	body["general_video_url"] = "nope"
	rec = h.do(t, http.MethodPut, "/v1/admin/hostel", tok, body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
