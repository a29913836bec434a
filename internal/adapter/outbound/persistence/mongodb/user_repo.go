package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/medme/secwatch/internal/domain/model"
	"github.com/medme/secwatch/internal/domain/port/outbound"
)

// UserRepo implements outbound.UserRepository on a MongoDB collection.
type UserRepo struct {
	coll *mongo.Collection
}

func NewUserRepo(store *Store) *UserRepo {
	return &UserRepo{coll: store.db.Collection(userCollection)}
}

var _ outbound.UserRepository = (*UserRepo)(nil)

func (r *UserRepo) Upsert(ctx context.Context, u model.User) error {
	update := bson.M{
		"$set": bson.M{
			"email":     u.Email,
			"role":      u.Role,
			"verified":  u.Verified,
			"updatedAt": u.UpdatedAt.UTC(),
		},
		"$setOnInsert": bson.M{"createdAt": u.CreatedAt.UTC()},
	}
	_, err := r.coll.UpdateOne(ctx, bson.M{"_id": u.ID}, update, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("upserting user: %w", err)
	}
	return nil
}

func (r *UserRepo) Count(ctx context.Context, f outbound.UserFilter) (int64, error) {
	q := bson.M{}
	if f.Role != "" {
		q["role"] = f.Role
	}
	if f.Verified != nil {
		q["verified"] = *f.Verified
	}
	n, err := r.coll.CountDocuments(ctx, q)
	if err != nil {
		return 0, fmt.Errorf("counting users: %w", err)
	}
	return n, nil
}
