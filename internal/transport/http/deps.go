package http

import (
	"context"
	"time"

	"github.com/go-signup-presence/internal/domain"
)

// UserRepository is the minimal interface the router requires from a user store.
type UserRepository interface {
	Create(ctx context.Context, u *domain.User) error
	Get(ctx context.Context, userID string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByLoginID(ctx context.Context, loginID string) (*domain.User, error)
	List(ctx context.Context) ([]domain.User, error)
	TouchLogin(ctx context.Context, email string, at time.Time) error
}

// Cache is the minimal interface the router requires from the TTL cache.
// A missing or expired key is domain.ErrNotFound.
type Cache interface {
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, keys ...string) error
}
