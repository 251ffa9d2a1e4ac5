package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	mongodriver "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"lemon-sso/internal/model"
)

type tokenDoc struct {
	AccessValue            string    `bson:"access_value"`
	RefreshValue           string    `bson:"refresh_value"`
	AccessLifetimeSeconds  float64   `bson:"access_lifetime_seconds"`
	RefreshLifetimeSeconds float64   `bson:"refresh_lifetime_seconds"`
	Valid                  bool      `bson:"is_valid"`
	CreatedAt              time.Time `bson:"created"`
}

type userDoc struct {
	ID           string    `bson:"_id"`
	Username     string    `bson:"username"`
	PasswordHash string    `bson:"password"`
	Token        *tokenDoc `bson:"token"`
	CreatedAt    time.Time `bson:"created"`
	UpdatedAt    time.Time `bson:"updated"`
}

// MongoDB DateTime keeps milliseconds.
func toMS(t time.Time) time.Time { return t.UTC().Truncate(time.Millisecond) }

func toTokenDoc(pair *model.TokenPair) *tokenDoc {
	if pair == nil {
		return nil
	}
	return &tokenDoc{
		AccessValue:            pair.AccessValue,
		RefreshValue:           pair.RefreshValue,
		AccessLifetimeSeconds:  pair.AccessLifetime.Seconds(),
		RefreshLifetimeSeconds: pair.RefreshLifetime.Seconds(),
		Valid:                  pair.Valid,
		CreatedAt:              toMS(pair.CreatedAt),
	}
}

func toUserDoc(u model.User) userDoc {
	return userDoc{
		ID:           u.ID,
		Username:     u.Username,
		PasswordHash: u.PasswordHash,
		Token:        toTokenDoc(u.Token),
		CreatedAt:    toMS(u.CreatedAt),
		UpdatedAt:    toMS(u.UpdatedAt),
	}
}

func (d userDoc) toModel() model.User {
	u := model.User{
		ID:           d.ID,
		Username:     d.Username,
		PasswordHash: d.PasswordHash,
		CreatedAt:    d.CreatedAt.UTC(),
		UpdatedAt:    d.UpdatedAt.UTC(),
	}
	if d.Token != nil {
		u.Token = &model.TokenPair{
			AccessValue:     d.Token.AccessValue,
			RefreshValue:    d.Token.RefreshValue,
			AccessLifetime:  time.Duration(d.Token.AccessLifetimeSeconds * float64(time.Second)),
			RefreshLifetime: time.Duration(d.Token.RefreshLifetimeSeconds * float64(time.Second)),
			Valid:           d.Token.Valid,
			CreatedAt:       d.Token.CreatedAt.UTC(),
		}
	}
	return u
}

type UserRepository struct {
	coll *mongodriver.Collection
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (model.User, error) {
	return r.findOne(ctx, "storage/mongo/FindByID", bson.D{{Key: "_id", Value: id}})
}

func (r *UserRepository) FindByUsername(ctx context.Context, username string) (model.User, error) {
	return r.findOne(ctx, "storage/mongo/FindByUsername", bson.D{{Key: "username", Value: username}})
}

func (r *UserRepository) FindByAccessToken(ctx context.Context, value string) (model.User, error) {
	return r.findOne(ctx, "storage/mongo/FindByAccessToken", bson.D{{Key: "token.access_value", Value: value}})
}

func (r *UserRepository) FindByRefreshToken(ctx context.Context, value string) (model.User, error) {
	return r.findOne(ctx, "storage/mongo/FindByRefreshToken", bson.D{{Key: "token.refresh_value", Value: value}})
}

func (r *UserRepository) List(ctx context.Context) ([]model.User, error) {
	const op = "storage/mongo/ListUsers"

	cur, err := r.coll.Find(ctx, bson.D{}, options.Find().SetSort(bson.D{{Key: "username", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer cur.Close(ctx)

	users := make([]model.User, 0)
	for cur.Next(ctx) {
		var doc userDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("%s: decode: %w", op, err)
		}
		users = append(users, doc.toModel())
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return users, nil
}

func (r *UserRepository) Create(ctx context.Context, u model.User) error {
	const op = "storage/mongo/CreateUser"

	_, err := r.coll.InsertOne(ctx, toUserDoc(u))
	if mongodriver.IsDuplicateKeyError(err) {
		return model.ErrUsernameTaken
	}
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (r *UserRepository) Save(ctx context.Context, u model.User) error {
	const op = "storage/mongo/SaveUser"

	res, err := r.coll.ReplaceOne(ctx, bson.D{{Key: "_id", Value: u.ID}}, toUserDoc(u))
	if mongodriver.IsDuplicateKeyError(err) {
		return model.ErrUsernameTaken
	}
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if res.MatchedCount == 0 {
		return model.ErrUserNotFound
	}
	return nil
}

// SwapToken updates the token sub-document only while its refresh value still
// equals expectedRefresh. A null token matches expectedRefresh == "".
func (r *UserRepository) SwapToken(ctx context.Context, userID string, expectedRefresh string, next *model.TokenPair, updatedAt time.Time) error {
	const op = "storage/mongo/SwapToken"

	filter := bson.D{{Key: "_id", Value: userID}}
	if expectedRefresh == "" {
		filter = append(filter, bson.E{Key: "token", Value: nil})
	} else {
		filter = append(filter, bson.E{Key: "token.refresh_value", Value: expectedRefresh})
	}

	update := bson.D{{Key: "$set", Value: bson.D{
		{Key: "token", Value: toTokenDoc(next)},
		{Key: "updated", Value: toMS(updatedAt)},
	}}}

	res, err := r.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if res.MatchedCount > 0 {
		return nil
	}

	n, err := r.coll.CountDocuments(ctx, bson.D{{Key: "_id", Value: userID}})
	if err != nil {
		return fmt.Errorf("%s: count: %w", op, err)
	}
	if n == 0 {
		return model.ErrUserNotFound
	}
	return model.ErrTokenConflict
}

func (r *UserRepository) Delete(ctx context.Context, id string) error {
	const op = "storage/mongo/DeleteUser"

	res, err := r.coll.DeleteOne(ctx, bson.D{{Key: "_id", Value: id}})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if res.DeletedCount == 0 {
		return model.ErrUserNotFound
	}
	return nil
}

func (r *UserRepository) findOne(ctx context.Context, op string, filter bson.D) (model.User, error) {
	var doc userDoc
	if err := r.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongodriver.ErrNoDocuments) {
			return model.User{}, model.ErrUserNotFound
		}
		return model.User{}, fmt.Errorf("%s: %w", op, err)
	}
	return doc.toModel(), nil
}
