package user

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-signup-presence/internal/domain"
	"github.com/go-signup-presence/internal/pkg/id"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// --- mocks ---

type mockUserStore struct{ mock.Mock }

func (m *mockUserStore) Get(ctx context.Context, userID string) (*domain.User, error) {
	args := m.Called(ctx, userID)
	if u, _ := args.Get(0).(*domain.User); u != nil {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockUserStore) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if u, _ := args.Get(0).(*domain.User); u != nil {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockUserStore) GetByLoginID(ctx context.Context, loginID string) (*domain.User, error) {
	args := m.Called(ctx, loginID)
	if u, _ := args.Get(0).(*domain.User); u != nil {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockUserStore) List(ctx context.Context) ([]domain.User, error) {
	args := m.Called(ctx)
	users, _ := args.Get(0).([]domain.User)
	return users, args.Error(1)
}
func (m *mockUserStore) TouchLogin(ctx context.Context, email string, at time.Time) error {
	return m.Called(ctx, email, at).Error(0)
}

type mockSigner struct{ mock.Mock }

func (m *mockSigner) Sign(u *domain.User) (string, error) {
	args := m.Called(u)
	return args.String(0), args.Error(1)
}

// --- helpers ---

func storedUser(t *testing.T) *domain.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("Secret!1"), bcrypt.MinCost)
	require.NoError(t, err)
	return &domain.User{
		UserID:       id.New(),
		Email:        "a@b.com",
		LoginID:      "ada12345",
		PasswordHash: string(hash),
	}
}

// --- Login ---

func TestLogin_MissingFields(t *testing.T) {
	svc := NewService(ServiceDeps{UserRepo: &mockUserStore{}})
	_, _, err := svc.Login(context.Background(), domain.LoginRequest{Password: "x"})
	assert.True(t, errors.Is(err, domain.ErrValidation))
	_, _, err = svc.Login(context.Background(), domain.LoginRequest{LoginID: "ada12345"})
	assert.True(t, errors.Is(err, domain.ErrValidation))
}

func TestLogin_ByLoginID(t *testing.T) {
	u := storedUser(t)
	us := &mockUserStore{}
	us.On("GetByLoginID", mock.Anything, "ada12345").Return(u, nil)
	us.On("TouchLogin", mock.Anything, "a@b.com", mock.AnythingOfType("time.Time")).Return(nil)
	signer := &mockSigner{}
	signer.On("Sign", u).Return("bearer-token", nil)

	svc := NewService(ServiceDeps{UserRepo: us, Signer: signer})
	got, bearer, err := svc.Login(context.Background(), domain.LoginRequest{LoginID: "ada12345", Email: "ignored@b.com", Password: "Secret!1"})

	require.NoError(t, err)
	assert.Equal(t, u.UserID, got.UserID)
	assert.Equal(t, "bearer-token", bearer)
	assert.NotNil(t, got.LastLoginAt)
	us.AssertExpectations(t)
	us.AssertNotCalled(t, "GetByEmail", mock.Anything, mock.Anything)
}

func TestLogin_ByEmail_NoSigner(t *testing.T) {
	u := storedUser(t)
	us := &mockUserStore{}
	us.On("GetByEmail", mock.Anything, "a@b.com").Return(u, nil)
	us.On("TouchLogin", mock.Anything, "a@b.com", mock.Anything).Return(nil)

	svc := NewService(ServiceDeps{UserRepo: us})
	got, bearer, err := svc.Login(context.Background(), domain.LoginRequest{Email: "a@b.com", Password: "Secret!1"})

	require.NoError(t, err)
	assert.Equal(t, "a@b.com", got.Email)
	assert.Empty(t, bearer)
}

func TestLogin_WrongPassword(t *testing.T) {
	us := &mockUserStore{}
	us.On("GetByLoginID", mock.Anything, "ada12345").Return(storedUser(t), nil)

	svc := NewService(ServiceDeps{UserRepo: us})
	_, _, err := svc.Login(context.Background(), domain.LoginRequest{LoginID: "ada12345", Password: "Wrong!1a"})

	assert.True(t, errors.Is(err, domain.ErrUnauthorized))
	us.AssertNotCalled(t, "TouchLogin", mock.Anything, mock.Anything, mock.Anything)
}

func TestLogin_UnknownUser(t *testing.T) {
	us := &mockUserStore{}
	us.On("GetByLoginID", mock.Anything, "nobody12").Return(nil, domain.ErrNotFound)

	svc := NewService(ServiceDeps{UserRepo: us})
	_, _, err := svc.Login(context.Background(), domain.LoginRequest{LoginID: "nobody12", Password: "Secret!1"})

	assert.True(t, errors.Is(err, domain.ErrUnauthorized))
	assert.False(t, errors.Is(err, domain.ErrNotFound))
}

func TestLogin_TouchFailureIsNotFatal(t *testing.T) {
	u := storedUser(t)
	us := &mockUserStore{}
	us.On("GetByLoginID", mock.Anything, "ada12345").Return(u, nil)
	us.On("TouchLogin", mock.Anything, "a@b.com", mock.Anything).Return(errors.New("throttled"))

	svc := NewService(ServiceDeps{UserRepo: us})
	got, _, err := svc.Login(context.Background(), domain.LoginRequest{LoginID: "ada12345", Password: "Secret!1"})

	require.NoError(t, err)
	assert.Nil(t, got.LastLoginAt)
}

func TestLogin_StoreError(t *testing.T) {
	us := &mockUserStore{}
	us.On("GetByEmail", mock.Anything, "a@b.com").Return(nil, errors.New("connection reset"))

	svc := NewService(ServiceDeps{UserRepo: us})
	_, _, err := svc.Login(context.Background(), domain.LoginRequest{Email: "a@b.com", Password: "Secret!1"})

	assert.True(t, errors.Is(err, domain.ErrBackend))
}

// --- List / Get ---

func TestList_EmptyIsNotNil(t *testing.T) {
	us := &mockUserStore{}
	us.On("List", mock.Anything).Return(nil, nil)

	users, err := NewService(ServiceDeps{UserRepo: us}).List(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, users)
	assert.Len(t, users, 0)
}

func TestList_Error(t *testing.T) {
	us := &mockUserStore{}
	us.On("List", mock.Anything).Return(nil, errors.New("scan failed"))

	_, err := NewService(ServiceDeps{UserRepo: us}).List(context.Background())
	assert.True(t, errors.Is(err, domain.ErrBackend))
}

func TestGet_MalformedID(t *testing.T) {
	us := &mockUserStore{}
	_, err := NewService(ServiceDeps{UserRepo: us}).Get(context.Background(), "not-an-id")
	assert.True(t, errors.Is(err, domain.ErrValidation))
	us.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
}

func TestGet_NotFound(t *testing.T) {
	uid := id.New()
	us := &mockUserStore{}
	us.On("Get", mock.Anything, uid).Return(nil, domain.ErrNotFound)

	_, err := NewService(ServiceDeps{UserRepo: us}).Get(context.Background(), uid)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestGet_Found(t *testing.T) {
	u := storedUser(t)
	us := &mockUserStore{}
	us.On("Get", mock.Anything, u.UserID).Return(u, nil)

	got, err := NewService(ServiceDeps{UserRepo: us}).Get(context.Background(), u.UserID)
	require.NoError(t, err)
	assert.Equal(t, u, got)
}
