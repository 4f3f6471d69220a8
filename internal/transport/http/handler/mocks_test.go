package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-signup-presence/internal/domain"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type mockRegistrationSvc struct{ mock.Mock }

func (m *mockRegistrationSvc) Initiate(ctx context.Context, req domain.SignupRequest) (*domain.IssuedCodes, error) {
	args := m.Called(ctx, req)
	if c, _ := args.Get(0).(*domain.IssuedCodes); c != nil {
		return c, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockRegistrationSvc) Resend(ctx context.Context, email string) (*domain.IssuedCodes, error) {
	args := m.Called(ctx, email)
	if c, _ := args.Get(0).(*domain.IssuedCodes); c != nil {
		return c, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockRegistrationSvc) VerifyEmailCode(ctx context.Context, email, code string) error {
	return m.Called(ctx, email, code).Error(0)
}
func (m *mockRegistrationSvc) VerifyMobileCode(ctx context.Context, email, mobile, code string) error {
	return m.Called(ctx, email, mobile, code).Error(0)
}
func (m *mockRegistrationSvc) Finalize(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if u, _ := args.Get(0).(*domain.User); u != nil {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}

type mockUserSvc struct{ mock.Mock }

func (m *mockUserSvc) Login(ctx context.Context, req domain.LoginRequest) (*domain.User, string, error) {
	args := m.Called(ctx, req)
	if u, _ := args.Get(0).(*domain.User); u != nil {
		return u, args.String(1), args.Error(2)
	}
	return nil, "", args.Error(2)
}
func (m *mockUserSvc) List(ctx context.Context) ([]domain.User, error) {
	args := m.Called(ctx)
	users, _ := args.Get(0).([]domain.User)
	return users, args.Error(1)
}
func (m *mockUserSvc) Get(ctx context.Context, userID string) (*domain.User, error) {
	args := m.Called(ctx, userID)
	if u, _ := args.Get(0).(*domain.User); u != nil {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}

type mockRegistry struct{ mock.Mock }

func (m *mockRegistry) Join(e domain.PresenceEntry) ([]domain.PresenceEntry, error) {
	args := m.Called(e)
	entries, _ := args.Get(0).([]domain.PresenceEntry)
	return entries, args.Error(1)
}
func (m *mockRegistry) JoinAs(owner string, e domain.PresenceEntry) ([]domain.PresenceEntry, error) {
	args := m.Called(owner, e)
	entries, _ := args.Get(0).([]domain.PresenceEntry)
	return entries, args.Error(1)
}
func (m *mockRegistry) Leave(socketID string) []domain.PresenceEntry {
	entries, _ := m.Called(socketID).Get(0).([]domain.PresenceEntry)
	return entries
}
func (m *mockRegistry) Query() []domain.PresenceEntry {
	entries, _ := m.Called().Get(0).([]domain.PresenceEntry)
	return entries
}

// --- helpers ---

func jsonRequest(t *testing.T, method, target string, body interface{}) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.NewDecoder(rr.Body).Decode(v))
}
