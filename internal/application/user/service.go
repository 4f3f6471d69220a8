package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-signup-presence/internal/domain"
	"github.com/go-signup-presence/internal/pkg/id"
	"golang.org/x/crypto/bcrypt"
)

// Service reads registered users and authenticates them.
type Service interface {
	Login(ctx context.Context, req domain.LoginRequest) (*domain.User, string, error)
	List(ctx context.Context) ([]domain.User, error)
	Get(ctx context.Context, userID string) (*domain.User, error)
}

type userStore interface {
	Get(ctx context.Context, userID string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByLoginID(ctx context.Context, loginID string) (*domain.User, error)
	List(ctx context.Context) ([]domain.User, error)
	TouchLogin(ctx context.Context, email string, at time.Time) error
}

type tokenSigner interface {
	Sign(u *domain.User) (string, error)
}

type service struct {
	repo   userStore
	signer tokenSigner
}

type ServiceDeps struct {
	UserRepo userStore
	// Signer is optional; without it Login returns no token.
	Signer tokenSigner
}

func NewService(deps ServiceDeps) Service {
	return &service{repo: deps.UserRepo, signer: deps.Signer}
}

// dummyHash keeps the unknown-user path about as slow as a real compare.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("not-a-password"), bcrypt.MinCost)

func (s *service) Login(ctx context.Context, req domain.LoginRequest) (*domain.User, string, error) {
	loginID := strings.TrimSpace(req.LoginID)
	email := strings.TrimSpace(req.Email)
	if (loginID == "" && email == "") || req.Password == "" {
		return nil, "", fmt.Errorf("loginId or email and password are required: %w", domain.ErrValidation)
	}

	var (
		u   *domain.User
		err error
	)
	if loginID != "" {
		u, err = s.repo.GetByLoginID(ctx, loginID)
	} else {
		u, err = s.repo.GetByEmail(ctx, email)
	}
	if errors.Is(err, domain.ErrNotFound) {
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(req.Password))
		return nil, "", fmt.Errorf("invalid credentials: %w", domain.ErrUnauthorized)
	}
	if err != nil {
		return nil, "", fmt.Errorf("lookup user: %w: %w", domain.ErrBackend, err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)); err != nil {
		return nil, "", fmt.Errorf("invalid credentials: %w", domain.ErrUnauthorized)
	}

	now := time.Now().UTC()
	if err := s.repo.TouchLogin(ctx, u.Email, now); err != nil {
		slog.Warn("failed to record last login", "user_id", u.UserID, "err", err)
	} else {
		u.LastLoginAt = &now
	}

	if s.signer == nil {
		return u, "", nil
	}
	bearer, err := s.signer.Sign(u)
	if err != nil {
		return nil, "", fmt.Errorf("sign token: %w", err)
	}
	return u, bearer, nil
}

func (s *service) List(ctx context.Context) ([]domain.User, error) {
	users, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w: %w", domain.ErrBackend, err)
	}
	if users == nil {
		users = []domain.User{}
	}
	return users, nil
}

func (s *service) Get(ctx context.Context, userID string) (*domain.User, error) {
	if !id.Valid(userID) {
		return nil, fmt.Errorf("malformed user id %q: %w", userID, domain.ErrValidation)
	}
	u, err := s.repo.Get(ctx, userID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w: %w", domain.ErrBackend, err)
	}
	return u, nil
}
