// Package router registers the HTTP routes of the hostel API.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/leemont-hostel/internal/handler"
	"github.com/iliyamo/leemont-hostel/internal/middleware"
	"github.com/iliyamo/leemont-hostel/internal/model"
)

// RegisterRoutes registers non-authenticated infrastructure routes.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterAuth registers account routes.  Register, login, refresh and
// logout need no session; /v1/me requires an access token.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)
	g.POST("/logout", a.Logout)

	e.GET("/v1/me", a.Me,
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleAdmin, model.RoleCustomer))
}

// RegisterPublic registers the browse endpoints.  cache wraps each of
// them; pass middleware.NewRedisCache output or nil.
func RegisterPublic(e *echo.Echo, p *handler.PublicHandler, cache echo.MiddlewareFunc) {
	var mw []echo.MiddlewareFunc
	if cache != nil {
		mw = append(mw, cache)
	}
	e.GET("/v1/rooms", p.ListRooms, mw...)
	e.GET("/v1/rooms/featured", p.Featured, mw...)
	e.GET("/v1/rooms/:id", p.GetRoom, mw...)
	e.GET("/v1/hostel", p.Hostel, mw...)
}

// RegisterBooking registers booking creation, the payment callback and
// result pages, and the customer's booking views.  limiter guards the
// endpoints that reach the payment gateway; it may be nil.
func RegisterBooking(e *echo.Echo, b *handler.BookingHandler, jwtSecret string, limiter echo.MiddlewareFunc) {
	auth := middleware.JWTAuth(jwtSecret)
	customer := middleware.RequireRole(model.RoleCustomer)

	limited := func(mw ...echo.MiddlewareFunc) []echo.MiddlewareFunc {
		if limiter != nil {
			mw = append(mw, limiter)
		}
		return mw
	}

	e.POST("/book/:id", b.Book, limited(auth, customer)...)

	// the gateway redirects the browser here without a token
	e.GET("/payment/callback", b.Callback, limited()...)
	e.GET("/payment/success", b.Success)
	e.GET("/payment/failure", b.Failure)

	e.GET("/v1/my-bookings", b.MyBookings, auth, customer)
	e.GET("/v1/bookings/:id/qr", b.BookingQR, auth, customer)
}

// RegisterAdmin registers room and hostel management under /v1/admin.
func RegisterAdmin(e *echo.Echo, a *handler.AdminHandler, jwtSecret string) {
	g := e.Group("/v1/admin", middleware.JWTAuth(jwtSecret), middleware.RequireRole(model.RoleAdmin))
	g.GET("/rooms", a.ListRooms)
	g.POST("/rooms", a.CreateRoom)
	g.PUT("/rooms/:id", a.UpdateRoom)
	g.POST("/rooms/:id/delete", a.DeleteRoom)
	g.POST("/rooms/:id/restore", a.RestoreRoom)
	g.PUT("/hostel", a.UpdateHostel)
}
