package handler

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/go-signup-presence/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestLogin_OK(t *testing.T) {
	u := &domain.User{UserID: "u1", Email: "a@b.com", LoginID: "ada12345", PasswordHash: "$2a$hash"}
	req := domain.LoginRequest{LoginID: "ada12345", Password: "Secret!1"}
	svc := &mockUserSvc{}
	svc.On("Login", mock.Anything, req).Return(u, "bearer", nil)

	rr := httptest.NewRecorder()
	NewUserHandler(svc).Login(rr, jsonRequest(t, http.MethodPost, "/login", req))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.NotContains(t, rr.Body.String(), "$2a$hash")
	var env UserEnvelope
	decodeBody(t, rr, &env)
	assert.Equal(t, "bearer", env.Token)
	assert.Equal(t, "ada12345", env.User.LoginID)
}

func TestLogin_Unauthorized(t *testing.T) {
	svc := &mockUserSvc{}
	svc.On("Login", mock.Anything, mock.Anything).Return(nil, "", fmt.Errorf("bad: %w", domain.ErrUnauthorized))

	rr := httptest.NewRecorder()
	NewUserHandler(svc).Login(rr, jsonRequest(t, http.MethodPost, "/login", domain.LoginRequest{LoginID: "x", Password: "y"}))

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestList_OK(t *testing.T) {
	svc := &mockUserSvc{}
	svc.On("List", mock.Anything).Return([]domain.User{{UserID: "u1"}, {UserID: "u2"}}, nil)

	rr := httptest.NewRecorder()
	NewUserHandler(svc).List(rr, httptest.NewRequest(http.MethodGet, "/all", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	var env UsersEnvelope
	decodeBody(t, rr, &env)
	assert.Len(t, env.Users, 2)
}

func TestGet_RoutesID(t *testing.T) {
	svc := &mockUserSvc{}
	svc.On("Get", mock.Anything, "u1").Return(&domain.User{UserID: "u1"}, nil)
	svc.On("Get", mock.Anything, "missing").Return(nil, fmt.Errorf("user: %w", domain.ErrNotFound))

	r := chi.NewRouter()
	r.Get("/{id}", NewUserHandler(svc).Get)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/u1", nil))
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/missing", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}
