package handler

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/leemont-hostel/internal/model"
	"github.com/iliyamo/leemont-hostel/internal/service"
	"github.com/iliyamo/leemont-hostel/internal/utils"
)

// Bookings is the part of the booking service the HTTP layer drives.
type Bookings interface {
	Reserve(ctx context.Context, in service.ReserveInput) (*service.ReserveResult, error)
	Confirm(ctx context.Context, reference string) (*service.ConfirmResult, error)
	ListForUser(ctx context.Context, userID uint64) ([]*model.Booking, error)
	GetForUser(ctx context.Context, bookingID, userID uint64) (*model.Booking, error)
	Get(ctx context.Context, bookingID uint64) (*model.Booking, error)
}

// Accounts resolves the authenticated user.
type Accounts interface {
	GetByID(ctx context.Context, id uint64) (model.User, error)
}

// BookingHandler serves booking creation, the gateway callback and the
// customer's booking pages.
type BookingHandler struct {
	Svc   Bookings
	Users Accounts
	Log   logrus.FieldLogger
}

func NewBookingHandler(svc Bookings, users Accounts, log logrus.FieldLogger) *BookingHandler {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &BookingHandler{Svc: svc, Users: users, Log: log.WithField("component", "http.booking")}
}

const dateLayout = "2006-01-02"

type bookReq struct {
	CheckIn  string `json:"check_in_date" form:"check_in_date" validate:"required,datetime=2006-01-02"`
	CheckOut string `json:"check_out_date" form:"check_out_date" validate:"required,datetime=2006-01-02"`
}

type bookingResponse struct {
	ID               uint64    `json:"id"`
	RoomID           uint64    `json:"room_id"`
	CheckInDate      string    `json:"check_in_date"`
	CheckOutDate     string    `json:"check_out_date"`
	TotalPriceMinor  int64     `json:"total_price_minor"`
	TotalPrice       string    `json:"total_price"`
	PaymentReference string    `json:"payment_reference"`
	Status           string    `json:"status"`
	CreatedAt        time.Time `json:"created_at"`
}

func toBookingResponse(b *model.Booking) bookingResponse {
	return bookingResponse{
		ID:               b.ID,
		RoomID:           b.RoomID,
		CheckInDate:      b.CheckInDate.Format(dateLayout),
		CheckOutDate:     b.CheckOutDate.Format(dateLayout),
		TotalPriceMinor:  b.TotalPriceMinor,
		TotalPrice:       utils.FormatMinor(b.TotalPriceMinor),
		PaymentReference: b.PaymentReference,
		Status:           string(b.Status),
		CreatedAt:        b.CreatedAt,
	}
}

// Book handles POST /book/:id.  It records a pending booking and returns
// the gateway page the customer must visit to pay.  A free room is booked
// straight away and comes back approved with no authorization_url.
func (h *BookingHandler) Book(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	roomID, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid room id"})
	}
	var req bookReq
	if msg := bindValid(c, &req); msg != "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}
	// datetime validation already accepted both values
	checkIn, _ := time.Parse(dateLayout, req.CheckIn)
	checkOut, _ := time.Parse(dateLayout, req.CheckOut)

	ctx := c.Request().Context()
	u, err := h.Users.GetByID(ctx, uid)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unknown user"})
	}

	res, err := h.Svc.Reserve(ctx, service.ReserveInput{
		Customer: service.Customer{ID: u.ID, Email: u.Email, IsAdmin: u.IsAdmin},
		RoomID:   roomID,
		CheckIn:  checkIn,
		CheckOut: checkOut,
	})
	if err != nil {
		return serviceError(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"status":            true,
		"booking_id":        res.Booking.ID,
		"booking_status":    res.Booking.Status,
		"authorization_url": res.AuthorizationURL,
		"access_code":       res.AccessCode,
		"reference":         res.Reference,
	})
}

// Callback handles GET /payment/callback, the redirect target of the
// gateway.  The reference is not trusted; the service verifies it.  The
// response is always a redirect to the success or failure page.
func (h *BookingHandler) Callback(c echo.Context) error {
	ref := c.QueryParam("reference")
	if ref == "" {
		ref = c.QueryParam("trxref")
	}
	if ref == "" {
		return redirectFailure(c, "missing_reference", 0)
	}

	res, err := h.Svc.Confirm(c.Request().Context(), ref)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUnknownReference):
			return redirectFailure(c, "unknown_reference", 0)
		case errors.Is(err, service.ErrGatewayUnavailable):
			return redirectFailure(c, "verification_unavailable", 0)
		}
		h.Log.WithError(err).WithField("reference", ref).Error("confirm payment")
		return redirectFailure(c, "error", 0)
	}
	if res.Status == model.BookingApproved {
		q := url.Values{"booking_id": {strconv.FormatUint(res.Booking.ID, 10)}}
		return c.Redirect(http.StatusFound, "/payment/success?"+q.Encode())
	}
	reason := res.Reason
	if reason == "" {
		reason = string(res.Status)
	}
	return redirectFailure(c, reason, res.Booking.ID)
}

func redirectFailure(c echo.Context, reason string, bookingID uint64) error {
	q := url.Values{"reason": {reason}}
	if bookingID != 0 {
		q.Set("booking_id", strconv.FormatUint(bookingID, 10))
	}
	return c.Redirect(http.StatusFound, "/payment/failure?"+q.Encode())
}

// Success handles GET /payment/success.  It is reachable without a token
// and exposes only the booking status.
func (h *BookingHandler) Success(c echo.Context) error {
	resp := echo.Map{"message": "Payment received. Your booking is confirmed."}
	id, err := strconv.ParseUint(c.QueryParam("booking_id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusOK, resp)
	}
	b, err := h.Svc.Get(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found"})
		}
		return serviceError(c, h.Log, err)
	}
	resp["booking_id"] = b.ID
	resp["status"] = b.Status
	if b.Status != model.BookingApproved {
		resp["message"] = "Your payment is being processed."
	}
	return c.JSON(http.StatusOK, resp)
}

var failureMessages = map[string]string{
	service.ReasonDeclined:       "The payment was not successful.",
	service.ReasonAmountMismatch: "The amount paid does not match the booking. A refund will be issued.",
	service.ReasonRoomExhausted:  "The room was fully booked before your payment completed. A refund will be issued.",
	service.ReasonBookingFailed:  "This booking was already closed. A refund will be issued.",
	"missing_reference":          "No payment reference was provided.",
	"unknown_reference":          "The payment reference is not recognised.",
	"verification_unavailable":   "We could not verify your payment yet. Please check your bookings shortly.",
}

// Failure handles GET /payment/failure.
func (h *BookingHandler) Failure(c echo.Context) error {
	reason := c.QueryParam("reason")
	msg, ok := failureMessages[reason]
	if !ok {
		msg = "The payment could not be completed."
	}
	resp := echo.Map{"message": msg, "reason": reason}
	if id, err := strconv.ParseUint(c.QueryParam("booking_id"), 10, 64); err == nil && id != 0 {
		resp["booking_id"] = id
	}
	return c.JSON(http.StatusOK, resp)
}

// MyBookings handles GET /v1/my-bookings.
func (h *BookingHandler) MyBookings(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	list, err := h.Svc.ListForUser(c.Request().Context(), uid)
	if err != nil {
		return serviceError(c, h.Log, err)
	}
	out := make([]bookingResponse, 0, len(list))
	for _, b := range list {
		out = append(out, toBookingResponse(b))
	}
	return c.JSON(http.StatusOK, echo.Map{"items": out})
}

// BookingQR handles GET /v1/bookings/:id/qr and returns a PNG encoding the
// payment reference.  Only the owner can fetch it.
func (h *BookingHandler) BookingQR(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}
	b, err := h.Svc.GetForUser(c.Request().Context(), id, uid)
	if err != nil {
		return serviceError(c, h.Log, err)
	}
	png, err := utils.GenerateQRCode(b.PaymentReference, 256)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "qr generation failed"})
	}
	return c.Blob(http.StatusOK, "image/png", png)
}
