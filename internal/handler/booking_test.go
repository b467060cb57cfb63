package handler

import (
	"bytes"
	"image/png"
	"net/http"
	"net/url"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/leemont-hostel/internal/model"
	"github.com/iliyamo/leemont-hostel/internal/service"
)

type bookResp struct {
	Status           bool   `json:"status"`
	BookingID        uint64 `json:"booking_id"`
	BookingStatus    string `json:"booking_status"`
	AuthorizationURL string `json:"authorization_url"`
	AccessCode       string `json:"access_code"`
	Reference        string `json:"reference"`
}

func (h *harness) book(t *testing.T, token string, roomID uint64) bookResp {
	t.Helper()
	rec := h.do(t, http.MethodPost, "/book/"+strconv.FormatUint(roomID, 10), token, stay())
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var out bookResp
	decode(t, rec, &out)
	return out
}

func location(t *testing.T, h *harness, ref string) *url.URL {
	t.Helper()
	rec := h.do(t, http.MethodGet, "/payment/callback?reference="+url.QueryEscape(ref), "", nil)
	require.Equal(t, http.StatusFound, rec.Code)
	u, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	return u
}

func TestBookAndConfirm(t *testing.T) {
	h := newHarness(t)
	roomID := h.room(t, "Room 1", 481000, 1)
	_, tok := h.account(t, "guest@example.com", false)

	res := h.book(t, tok, roomID)
	assert.True(t, res.Status)
	assert.Equal(t, "https://checkout.test/"+res.Reference, res.AuthorizationURL)

	b, err := h.ledger.FindByReference(t.Context(), res.Reference)
	require.NoError(t, err)
	assert.Equal(t, model.BookingPendingPayment, b.Status)

	u := location(t, h, res.Reference)
	assert.Equal(t, "/payment/success", u.Path)
	assert.Equal(t, strconv.FormatUint(b.ID, 10), u.Query().Get("booking_id"))

	rm, err := h.rooms.GetByID(t.Context(), roomID)
	require.NoError(t, err)
	assert.Zero(t, rm.AvailableUnits)

	// replaying the callback keeps the single unit taken once
	u = location(t, h, res.Reference)
	assert.Equal(t, "/payment/success", u.Path)

	rec := h.do(t, http.MethodGet, "/payment/success?"+u.RawQuery, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var page map[string]any
	decode(t, rec, &page)
	assert.Equal(t, string(model.BookingApproved), page["status"])
}

func TestCallbackAcceptsTrxref(t *testing.T) {
	h := newHarness(t)
	roomID := h.room(t, "Room 1", 481000, 1)
	_, tok := h.account(t, "guest@example.com", false)
	res := h.book(t, tok, roomID)

	rec := h.do(t, http.MethodGet, "/payment/callback?trxref="+res.Reference, "", nil)
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Contains(t, rec.Header().Get("Location"), "/payment/success")
}

func TestCallbackFailures(t *testing.T) {
	h := newHarness(t)
	roomID := h.room(t, "Room 1", 481000, 1)
	_, tok := h.account(t, "guest@example.com", false)

	u := location(t, h, "")
	assert.Equal(t, "/payment/failure", u.Path)
	assert.Equal(t, "missing_reference", u.Query().Get("reason"))

	u = location(t, h, "no-such-ref")
	assert.Equal(t, "unknown_reference", u.Query().Get("reason"))

	res := h.book(t, tok, roomID)
	h.gateway.outcome = "down"
	u = location(t, h, res.Reference)
	assert.Equal(t, "verification_unavailable", u.Query().Get("reason"))
	b, err := h.ledger.FindByReference(t.Context(), res.Reference)
	require.NoError(t, err)
	assert.Equal(t, model.BookingPendingPayment, b.Status)

	h.gateway.outcome = "failed"
	u = location(t, h, res.Reference)
	assert.Equal(t, "/payment/failure", u.Path)
	assert.Equal(t, service.ReasonDeclined, u.Query().Get("reason"))
	assert.Equal(t, strconv.FormatUint(b.ID, 10), u.Query().Get("booking_id"))

	rec := h.do(t, http.MethodGet, "/payment/failure?"+u.RawQuery, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var page map[string]any
	decode(t, rec, &page)
	assert.Equal(t, failureMessages[service.ReasonDeclined], page["message"])
}

func TestReplayedCallbackRequestsOneRefund(t *testing.T) {
	h := newHarness(t)
	roomID := h.room(t, "Room 1", 481000, 1)
	_, tok := h.account(t, "guest@example.com", false)
	res := h.book(t, tok, roomID)

	h.gateway.outcome = "failed"
	assert.Equal(t, service.ReasonDeclined, location(t, h, res.Reference).Query().Get("reason"))

	// the customer paid after all, then kept reloading the callback
	h.gateway.outcome = "success"
	for range 5 {
		u := location(t, h, res.Reference)
		assert.Equal(t, service.ReasonBookingFailed, u.Query().Get("reason"))
	}
	require.Len(t, h.events.refunds, 1)
	assert.Equal(t, res.Reference, h.events.refunds[0].Reference)
	assert.Equal(t, service.ReasonBookingFailed, h.events.refunds[0].Reason)
	assert.Empty(t, h.events.approved)
}

func TestBookFreeRoom(t *testing.T) {
	h := newHarness(t)
	roomID := h.room(t, "Warden Room", 0, 1)
	_, tok := h.account(t, "guest@example.com", false)

	res := h.book(t, tok, roomID)
	assert.Equal(t, string(model.BookingApproved), res.BookingStatus)
	assert.Empty(t, res.AuthorizationURL)
	assert.Empty(t, h.gateway.amounts)

	rm, err := h.rooms.GetByID(t.Context(), roomID)
	require.NoError(t, err)
	assert.Zero(t, rm.AvailableUnits)
	require.Len(t, h.events.approved, 1)

	u := location(t, h, res.Reference)
	assert.Equal(t, "/payment/success", u.Path)
}

func TestLastUnitGoesToFirstConfirmation(t *testing.T) {
	h := newHarness(t)
	roomID := h.room(t, "Room 1", 481000, 1)
	_, tokA := h.account(t, "a@example.com", false)
	_, tokB := h.account(t, "b@example.com", false)

	a := h.book(t, tokA, roomID)
	b := h.book(t, tokB, roomID)

	assert.Equal(t, "/payment/success", location(t, h, a.Reference).Path)
	u := location(t, h, b.Reference)
	assert.Equal(t, "/payment/failure", u.Path)
	assert.Equal(t, service.ReasonRoomExhausted, u.Query().Get("reason"))

	// an exhausted room refuses new bookings
	rec := h.do(t, http.MethodPost, "/book/"+strconv.FormatUint(roomID, 10), tokB, stay())
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestBookRejections(t *testing.T) {
	h := newHarness(t)
	roomID := h.room(t, "Room 1", 481000, 1)
	_, tok := h.account(t, "guest@example.com", false)
	_, adminTok := h.account(t, "admin@example.com", true)
	path := "/book/" + strconv.FormatUint(roomID, 10)

	rec := h.do(t, http.MethodPost, path, "", stay())
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = h.do(t, http.MethodPost, path, adminTok, stay())
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = h.do(t, http.MethodPost, "/book/999", tok, stay())
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = h.do(t, http.MethodPost, path, tok, map[string]string{"check_in_date": "2030-01-01"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = h.do(t, http.MethodPost, path, tok, map[string]string{
		"check_in_date": "2030-02-01", "check_out_date": "2030-01-01",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = h.do(t, http.MethodPost, path, tok, map[string]string{
		"check_in_date": "2001-01-01", "check_out_date": "2002-01-01",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	h.gateway.initDown = true
	rec = h.do(t, http.MethodPost, path, tok, stay())
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestMyBookingsAndQR(t *testing.T) {
	h := newHarness(t)
	roomID := h.room(t, "Room 1", 481000, 2)
	_, tok := h.account(t, "guest@example.com", false)
	_, other := h.account(t, "other@example.com", false)
	res := h.book(t, tok, roomID)

	rec := h.do(t, http.MethodGet, "/v1/my-bookings", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Items []bookingResponse `json:"items"`
	}
	decode(t, rec, &list)
	require.Len(t, list.Items, 1)
	assert.Equal(t, res.Reference, list.Items[0].PaymentReference)
	assert.Equal(t, "4810.00", list.Items[0].TotalPrice)
	assert.Equal(t, stay()["check_in_date"], list.Items[0].CheckInDate)

	rec = h.do(t, http.MethodGet, "/v1/my-bookings", other, nil)
	decode(t, rec, &list)
	assert.Empty(t, list.Items)

	qrPath := "/v1/bookings/" + strconv.FormatUint(res.BookingID, 10) + "/qr"
	rec = h.do(t, http.MethodGet, qrPath, tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	_, err := png.Decode(bytes.NewReader(rec.Body.Bytes()))
	assert.NoError(t, err)

	rec = h.do(t, http.MethodGet, qrPath, other, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = h.do(t, http.MethodGet, "/v1/bookings/999/qr", tok, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
