package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/leemont-hostel/internal/config"
	"github.com/iliyamo/leemont-hostel/internal/database/dbtest"
	"github.com/iliyamo/leemont-hostel/internal/middleware"
	"github.com/iliyamo/leemont-hostel/internal/model"
	"github.com/iliyamo/leemont-hostel/internal/payment"
	"github.com/iliyamo/leemont-hostel/internal/queue"
	"github.com/iliyamo/leemont-hostel/internal/repository"
	"github.com/iliyamo/leemont-hostel/internal/service"
	"github.com/iliyamo/leemont-hostel/internal/utils"
)

const testSecret = "test-secret"

// stubGateway remembers the amount of every initialized reference and
// verifies it according to outcome.
type stubGateway struct {
	mu       sync.Mutex
	amounts  map[string]int64
	outcome  string // "success", "failed" or "down"
	initDown bool
}

func newStubGateway() *stubGateway {
	return &stubGateway{amounts: map[string]int64{}, outcome: "success"}
}

func (g *stubGateway) Initialize(_ context.Context, req payment.InitializeRequest) (*payment.InitializeResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.initDown {
		return nil, &payment.GatewayError{Op: "initialize", StatusCode: http.StatusServiceUnavailable}
	}
	g.amounts[req.Reference] = req.AmountMinor
	return &payment.InitializeResult{
		AuthorizationURL: "https://checkout.test/" + req.Reference,
		AccessCode:       "ac_" + req.Reference[:8],
		Reference:        req.Reference,
	}, nil
}

func (g *stubGateway) Verify(_ context.Context, ref string) (*payment.VerifyResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.outcome == "down" {
		return nil, &payment.GatewayError{Op: "verify", Err: errors.New("timeout")}
	}
	return &payment.VerifyResult{
		Succeeded:   g.outcome == "success",
		RawStatus:   g.outcome,
		AmountMinor: g.amounts[ref],
		Reference:   ref,
	}, nil
}

// recordingEvents keeps every published event.
type recordingEvents struct {
	mu       sync.Mutex
	approved []queue.BookingApprovedEvent
	refunds  []queue.RefundRequiredEvent
}

func (e *recordingEvents) PublishBookingApproved(_ context.Context, ev queue.BookingApprovedEvent) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.approved = append(e.approved, ev)
	return nil
}

func (e *recordingEvents) PublishRefundRequired(_ context.Context, ev queue.RefundRequiredEvent) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.refunds = append(e.refunds, ev)
	return nil
}

type countingPurger struct{ n int }

func (p *countingPurger) Purge(context.Context) error { p.n++; return nil }

type harness struct {
	e       *echo.Echo
	users   *repository.UserRepo
	tokens  *repository.TokenRepo
	rooms   *repository.RoomRepo
	hostel  *repository.HostelRepo
	ledger  *repository.BookingRepo
	gateway *stubGateway
	events  *recordingEvents
	purger  *countingPurger
	logs    *test.Hook
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	db := dbtest.Open(t)
	log, hook := test.NewNullLogger()
	log.SetLevel(logrus.DebugLevel)

	h := &harness{
		e:       echo.New(),
		users:   repository.NewUserRepo(db),
		tokens:  repository.NewTokenRepo(db),
		rooms:   repository.NewRoomRepo(db),
		hostel:  repository.NewHostelRepo(db),
		ledger:  repository.NewBookingRepo(db),
		gateway: newStubGateway(),
		events:  &recordingEvents{},
		purger:  &countingPurger{},
		logs:    hook,
	}
	settler := repository.NewSettlementRepo(db, h.ledger, h.rooms)
	svc := service.NewBookingService(h.rooms, h.ledger, settler, h.gateway, h.events, h.users,
		service.BookingConfig{CallbackURL: "http://hostel.test/payment/callback", Log: log})

	cfg := config.Config{JWTSecret: testSecret, AccessTTLMin: 15, RefreshTTLDays: 7, BcryptCost: 4}
	auth := NewAuthHandler(cfg, h.users, h.tokens)
	pub := NewPublicHandler(h.rooms, h.hostel)
	bk := NewBookingHandler(svc, h.users, log)
	adm := NewAdminHandler(h.rooms, h.hostel, h.purger, log)

	jwt := middleware.JWTAuth(testSecret)
	customer := middleware.RequireRole(model.RoleCustomer)
	admin := middleware.RequireRole(model.RoleAdmin)

	e := h.e
	e.GET("/healthz", Health)
	e.POST("/v1/auth/register", auth.Register)
	e.POST("/v1/auth/login", auth.Login)
	e.POST("/v1/auth/refresh", auth.Refresh)
	e.POST("/v1/auth/logout", auth.Logout)
	e.GET("/v1/me", auth.Me, jwt)
	e.GET("/v1/rooms", pub.ListRooms)
	e.GET("/v1/rooms/featured", pub.Featured)
	e.GET("/v1/rooms/:id", pub.GetRoom)
	e.GET("/v1/hostel", pub.Hostel)
	e.POST("/book/:id", bk.Book, jwt, customer)
	e.GET("/payment/callback", bk.Callback)
	e.GET("/payment/success", bk.Success)
	e.GET("/payment/failure", bk.Failure)
	e.GET("/v1/my-bookings", bk.MyBookings, jwt, customer)
	e.GET("/v1/bookings/:id/qr", bk.BookingQR, jwt, customer)
	g := e.Group("/v1/admin", jwt, admin)
	g.GET("/rooms", adm.ListRooms)
	g.POST("/rooms", adm.CreateRoom)
	g.PUT("/rooms/:id", adm.UpdateRoom)
	g.POST("/rooms/:id/delete", adm.DeleteRoom)
	g.POST("/rooms/:id/restore", adm.RestoreRoom)
	g.PUT("/hostel", adm.UpdateHostel)
	return h
}

func (h *harness) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.e.ServeHTTP(rec, req)
	return rec
}

// account creates a user and returns its id and an access token.
func (h *harness) account(t *testing.T, email string, admin bool) (uint64, string) {
	t.Helper()
	id, err := h.users.Create(t.Context(), email, "secret123", admin, 4)
	require.NoError(t, err)
	role := model.RoleCustomer
	if admin {
		role = model.RoleAdmin
	}
	tok, err := utils.NewAccessToken(testSecret, id, role, 15)
	require.NoError(t, err)
	return id, tok.Token
}

func (h *harness) room(t *testing.T, name string, price int64, units uint32) uint64 {
	t.Helper()
	rm := &model.Room{Name: name, Capacity: 1, PriceMinor: price, AvailableUnits: units,
		Images: []string{}, Videos: []string{}, Amenities: []string{"Wi-Fi"}}
	require.NoError(t, h.rooms.Create(t.Context(), rm))
	return rm.ID
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

// stay returns a valid booking body starting tomorrow.
func stay() map[string]string {
	in := time.Now().UTC().AddDate(0, 0, 1)
	return map[string]string{
		"check_in_date":  in.Format("2006-01-02"),
		"check_out_date": in.AddDate(1, 0, 0).Format("2006-01-02"),
	}
}
