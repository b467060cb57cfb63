package handler

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/leemont-hostel/internal/model"
)

func TestHealth(t *testing.T) {
	h := newHarness(t)
	rec := h.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestRegisterLoginRefreshLogout(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, http.MethodPost, "/v1/auth/register", "", map[string]string{
		"email": "Guest@Example.com", "password": "secret123",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var reg authResp
	decode(t, rec, &reg)
	assert.Equal(t, "guest@example.com", reg.User.Email)
	assert.Equal(t, model.RoleCustomer, reg.User.Role)
	assert.NotEmpty(t, reg.Access.Token)
	assert.NotEmpty(t, reg.Refresh.Token)

	rec = h.do(t, http.MethodPost, "/v1/auth/register", "", map[string]string{
		"email": "guest@example.com", "password": "secret123",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = h.do(t, http.MethodPost, "/v1/auth/login", "", map[string]string{
		"email": "guest@example.com", "password": "wrong-pass",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = h.do(t, http.MethodPost, "/v1/auth/login", "", map[string]string{
		"email": "guest@example.com", "password": "secret123",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var login authResp
	decode(t, rec, &login)

	rec = h.do(t, http.MethodGet, "/v1/me", login.Access.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var me userPart
	decode(t, rec, &me)
	assert.Equal(t, reg.User.ID, me.ID)

	// refresh rotates: the old token stops working
	rec = h.do(t, http.MethodPost, "/v1/auth/refresh", "", map[string]string{"refresh_token": login.Refresh.Token})
	require.Equal(t, http.StatusOK, rec.Code)
	var rotated authResp
	decode(t, rec, &rotated)
	rec = h.do(t, http.MethodPost, "/v1/auth/refresh", "", map[string]string{"refresh_token": login.Refresh.Token})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = h.do(t, http.MethodPost, "/v1/auth/logout", "", map[string]string{"refresh_token": rotated.Refresh.Token})
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = h.do(t, http.MethodPost, "/v1/auth/refresh", "", map[string]string{"refresh_token": rotated.Refresh.Token})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRegisterValidation(t *testing.T) {
	h := newHarness(t)
	rec := h.do(t, http.MethodPost, "/v1/auth/register", "", map[string]string{
		"email": "not-an-email", "password": "123",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLogoutWithBearerRevokesAll(t *testing.T) {
	h := newHarness(t)
	rec := h.do(t, http.MethodPost, "/v1/auth/register", "", map[string]string{
		"email": "a@example.com", "password": "secret123",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var reg authResp
	decode(t, rec, &reg)

	rec = h.do(t, http.MethodPost, "/v1/auth/logout", reg.Access.Token, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = h.do(t, http.MethodPost, "/v1/auth/refresh", "", map[string]string{"refresh_token": reg.Refresh.Token})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = h.do(t, http.MethodPost, "/v1/auth/logout", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdminLoginCarriesAdminRole(t *testing.T) {
	h := newHarness(t)
	h.account(t, "admin@example.com", true)
	rec := h.do(t, http.MethodPost, "/v1/auth/login", "", map[string]string{
		"email": "admin@example.com", "password": "secret123",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var login authResp
	decode(t, rec, &login)
	assert.Equal(t, model.RoleAdmin, login.User.Role)
}
