package implementation

import (
	"context"
	"errors"

	bsnmodels "gitlab.com/boardsense1/bsn.dashboard_server/src/production/BSN.Models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

const usersCollection = "users"

type MongoUserRepository struct {
	db *mongo.Database
}

func NewMongoUserRepository(db *mongo.Database) *MongoUserRepository {
	return &MongoUserRepository{db: db}
}

func (r *MongoUserRepository) List(ctx context.Context) ([]bsnmodels.User, error) {
	ctx, cancel := withTimeout(ctx, queryTimeout)
	defer cancel()

	cursor, err := r.db.Collection(usersCollection).Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var users []bsnmodels.User
	if err := cursor.All(ctx, &users); err != nil {
		return nil, err
	}
	return users, nil
}

func (r *MongoUserRepository) GetByUserID(ctx context.Context, userID string) (*bsnmodels.User, error) {
	return r.findOne(ctx, bson.M{"user_ID": userID})
}

func (r *MongoUserRepository) GetByUsername(ctx context.Context, username string) (*bsnmodels.User, error) {
	return r.findOne(ctx, bson.M{"username": username})
}

func (r *MongoUserRepository) findOne(ctx context.Context, filter bson.M) (*bsnmodels.User, error) {
	ctx, cancel := withTimeout(ctx, queryTimeout)
	defer cancel()

	var user bsnmodels.User
	err := r.db.Collection(usersCollection).FindOne(ctx, filter).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

func (r *MongoUserRepository) Create(ctx context.Context, user bsnmodels.User) error {
	ctx, cancel := withTimeout(ctx, queryTimeout)
	defer cancel()

	_, err := r.db.Collection(usersCollection).InsertOne(ctx, user)
	return err
}

func (r *MongoUserRepository) Update(ctx context.Context, userID string, user bsnmodels.User) (bool, error) {
	ctx, cancel := withTimeout(ctx, queryTimeout)
	defer cancel()

	update := bson.M{"$set": bson.M{
		"username":   user.Username,
		"role":       user.Role,
		"emailId":    user.EmailID,
		"phoneNo":    user.PhoneNo,
		"password":   user.Password,
		"updated_at": user.UpdatedAt,
	}}
	res, err := r.db.Collection(usersCollection).UpdateOne(ctx, bson.M{"user_ID": userID}, update)
	if err != nil {
		return false, err
	}
	return res.MatchedCount > 0, nil
}

func (r *MongoUserRepository) Delete(ctx context.Context, userID string) (bool, error) {
	ctx, cancel := withTimeout(ctx, queryTimeout)
	defer cancel()

	res, err := r.db.Collection(usersCollection).DeleteOne(ctx, bson.M{"user_ID": userID})
	if err != nil {
		return false, err
	}
	return res.DeletedCount > 0, nil
}
