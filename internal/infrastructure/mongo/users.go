package mongoinfra

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-signup-presence/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Document field names shared by filters, updates and indexes.
const (
	fieldEmail       = "email"
	fieldUserID      = "user_id"
	fieldLoginID     = "login_id"
	fieldUpdatedAt   = "updated_at"
	fieldLastLoginAt = "last_login_at"
)

// UserRepo stores users in a MongoDB collection. Unique indexes on email and
// login_id are the uniqueness constraint for registration.
type UserRepo struct {
	coll *mongo.Collection
}

func NewUserRepo(db *mongo.Database, collection string) *UserRepo {
	return &UserRepo{coll: db.Collection(collection)}
}

// EnsureIndexes creates the unique indexes. Safe to call on every startup.
func (r *UserRepo) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: fieldEmail, Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: fieldLoginID, Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: fieldUserID, Value: 1}}, Options: options.Index().SetUnique(true)},
	})
	return err
}

func (r *UserRepo) Create(ctx context.Context, u *domain.User) error {
	_, err := r.coll.InsertOne(ctx, u)
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("email %s or login id %s: %w", u.Email, u.LoginID, domain.ErrAlreadyRegistered)
	}
	return err
}

func (r *UserRepo) Get(ctx context.Context, userID string) (*domain.User, error) {
	return r.findOne(ctx, bson.M{fieldUserID: userID})
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.findOne(ctx, bson.M{fieldEmail: email})
}

func (r *UserRepo) GetByLoginID(ctx context.Context, loginID string) (*domain.User, error) {
	return r.findOne(ctx, bson.M{fieldLoginID: loginID})
}

func (r *UserRepo) List(ctx context.Context) ([]domain.User, error) {
	cur, err := r.coll.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
	if err != nil {
		return nil, err
	}
	users := []domain.User{}
	if err := cur.All(ctx, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// Update applies a partial update and refreshes updated_at.
func (r *UserRepo) Update(ctx context.Context, email string, updates map[string]interface{}) error {
	set := bson.M{fieldUpdatedAt: time.Now().UTC()}
	for k, v := range updates {
		set[k] = v
	}
	res, err := r.coll.UpdateOne(ctx, bson.M{fieldEmail: email}, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("user not found: %w", domain.ErrNotFound)
	}
	return nil
}

// TouchLogin records a successful login.
func (r *UserRepo) TouchLogin(ctx context.Context, email string, at time.Time) error {
	return r.Update(ctx, email, map[string]interface{}{fieldLastLoginAt: at.UTC()})
}

func (r *UserRepo) findOne(ctx context.Context, filter bson.M) (*domain.User, error) {
	var u domain.User
	err := r.coll.FindOne(ctx, filter).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("user not found: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}
