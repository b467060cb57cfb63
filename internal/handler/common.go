// Package handler exposes the HTTP handlers of the hostel API.  Handlers
// are thin: they bind and validate input, call the repositories or the
// booking service and map errors to status codes.
package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/leemont-hostel/internal/middleware"
	"github.com/iliyamo/leemont-hostel/internal/service"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// getUserID extracts the authenticated user id stored by JWTAuth.
func getUserID(c echo.Context) (uint64, error) {
	switch t := c.Get(middleware.CtxUserID).(type) {
	case uint64:
		return t, nil
	case float64:
		return uint64(t), nil
	case string:
		if n, err := strconv.ParseUint(t, 10, 64); err == nil {
			return n, nil
		}
	}
	return 0, errors.New("invalid user_id in context")
}

// parseID reads a positive integer path parameter.
func parseID(c echo.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return id, true
}

// bindValid binds the request into v and runs struct validation.  The
// returned message is empty on success.
func bindValid(c echo.Context, v any) string {
	if err := c.Bind(v); err != nil {
		return "invalid body"
	}
	if err := validate.Struct(v); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, strings.ToLower(fe.Field())+" failed "+fe.Tag())
			}
			return strings.Join(msgs, "; ")
		}
		return err.Error()
	}
	return ""
}

// serviceError maps booking service errors to HTTP responses.
func serviceError(c echo.Context, log logrus.FieldLogger, err error) error {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": verr.Error()})
	case errors.Is(err, service.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
	case errors.Is(err, service.ErrInvalidRange):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid date range"})
	case errors.Is(err, service.ErrExhausted):
		return c.JSON(http.StatusConflict, echo.Map{"error": "room is fully booked"})
	case errors.Is(err, service.ErrForbidden):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	case errors.Is(err, service.ErrGatewayUnavailable):
		return c.JSON(http.StatusBadGateway, echo.Map{"error": "payment gateway unavailable, try again later"})
	}
	log.WithError(err).WithField("path", c.Path()).Error("request failed")
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
}
