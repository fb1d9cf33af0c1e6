package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/fieldops/missiond/internal/models"
)

// UsersCollection is the collection holding user documents.
const UsersCollection = "users"

var expoTokenPattern = primitive.Regex{Pattern: `^(ExponentPushToken|ExpoPushToken)\[`}

type mongoUser struct {
	ID           primitive.ObjectID `bson:"_id,omitempty"`
	Username     string             `bson:"username"`
	PasswordHash []byte             `bson:"passwordHash"`
	PushTokens   []string           `bson:"pushTokens"`
	CreatedAt    time.Time          `bson:"createdAt"`
	UpdatedAt    time.Time          `bson:"updatedAt"`
}

func (d *mongoUser) model() *models.User {
	tokens := d.PushTokens
	if tokens == nil {
		tokens = []string{}
	}
	return &models.User{
		ID:           d.ID.Hex(),
		Username:     d.Username,
		PasswordHash: d.PasswordHash,
		PushTokens:   tokens,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}
}

// MongoUserRepository implements user persistence on a MongoDB collection.
// User ids are the hex form of the document ObjectID.
type MongoUserRepository struct {
	coll *mongo.Collection
}

// NewMongoUserRepository returns a repository over the users collection of db.
func NewMongoUserRepository(db *mongo.Database) *MongoUserRepository {
	return &MongoUserRepository{coll: db.Collection(UsersCollection)}
}

// GetUserByID fetches a user by its hex ObjectID.
func (r *MongoUserRepository) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}
	return r.findOne(ctx, bson.M{"_id": oid})
}

// GetUserByUsername fetches a user by its login name.
func (r *MongoUserRepository) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.findOne(ctx, bson.M{"username": username})
}

func (r *MongoUserRepository) findOne(ctx context.Context, filter bson.M) (*models.User, error) {
	var doc mongoUser
	err := r.coll.FindOne(ctx, filter).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	return doc.model(), nil
}

// CreateUser inserts a new user. Returns ErrAlreadyExists if the username is taken.
func (r *MongoUserRepository) CreateUser(ctx context.Context, u *models.User) error {
	oid := primitive.NewObjectID()
	if u.ID != "" {
		parsed, err := primitive.ObjectIDFromHex(u.ID)
		if err != nil {
			return fmt.Errorf("user id %q is not an ObjectID: %w", u.ID, err)
		}
		oid = parsed
	}
	if u.PushTokens == nil {
		u.PushTokens = []string{}
	}
	now := time.Now().UTC().Truncate(time.Millisecond)
	_, err := r.coll.InsertOne(ctx, mongoUser{
		ID:           oid,
		Username:     u.Username,
		PasswordHash: u.PasswordHash,
		PushTokens:   u.PushTokens,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if mongo.IsDuplicateKeyError(err) {
		return ErrAlreadyExists
	}
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	u.ID = oid.Hex()
	u.CreatedAt, u.UpdatedAt = now, now
	return nil
}

// AddPushToken adds token to a user's token set with $addToSet and returns
// the resulting set.
func (r *MongoUserRepository) AddPushToken(ctx context.Context, userID, token string) ([]string, error) {
	return r.updatePushTokens(ctx, userID, bson.M{
		"$addToSet": bson.M{"pushTokens": token},
		"$set":      bson.M{"updatedAt": time.Now().UTC()},
	})
}

// PullPushToken removes token from a user's token set with $pull and returns
// the resulting set.
func (r *MongoUserRepository) PullPushToken(ctx context.Context, userID, token string) ([]string, error) {
	return r.updatePushTokens(ctx, userID, bson.M{
		"$pull": bson.M{"pushTokens": token},
		"$set":  bson.M{"updatedAt": time.Now().UTC()},
	})
}

func (r *MongoUserRepository) updatePushTokens(ctx context.Context, userID string, update bson.M) ([]string, error) {
	oid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return nil, ErrNotFound
	}
	var doc mongoUser
	err = r.coll.FindOneAndUpdate(ctx,
		bson.M{"_id": oid},
		update,
		options.FindOneAndUpdate().
			SetReturnDocument(options.After).
			SetProjection(bson.M{"pushTokens": 1}),
	).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update push tokens: %w", err)
	}
	return doc.model().PushTokens, nil
}

// RemovePushTokens pulls the given tokens from a user's token set.
func (r *MongoUserRepository) RemovePushTokens(ctx context.Context, userID string, tokens []string) error {
	oid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return ErrNotFound
	}
	_, err = r.coll.UpdateOne(ctx,
		bson.M{"_id": oid},
		bson.M{
			"$pull": bson.M{"pushTokens": bson.M{"$in": tokens}},
			"$set":  bson.M{"updatedAt": time.Now().UTC()},
		},
	)
	if err != nil {
		return fmt.Errorf("remove push tokens: %w", err)
	}
	return nil
}

// ListUsersWithPushTokens returns every user holding at least one token.
func (r *MongoUserRepository) ListUsersWithPushTokens(ctx context.Context) ([]models.User, error) {
	cur, err := r.coll.Find(ctx,
		bson.M{"pushTokens.0": bson.M{"$exists": true}},
		options.Find().SetSort(bson.D{{Key: "username", Value: 1}}),
	)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	var docs []mongoUser
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode users: %w", err)
	}
	users := make([]models.User, 0, len(docs))
	for i := range docs {
		users = append(users, *docs[i].model())
	}
	return users, nil
}

// PruneInvalidPushTokens pulls every token that is not an Expo push token.
// It returns the number of users touched.
func (r *MongoUserRepository) PruneInvalidPushTokens(ctx context.Context) (int64, error) {
	res, err := r.coll.UpdateMany(ctx,
		bson.M{"pushTokens": bson.M{"$elemMatch": bson.M{"$not": expoTokenPattern}}},
		bson.M{"$pull": bson.M{"pushTokens": bson.M{"$not": expoTokenPattern}}},
	)
	if err != nil {
		return 0, fmt.Errorf("prune push tokens: %w", err)
	}
	return res.ModifiedCount, nil
}

// usernames resolves user ids to usernames in one round trip.
func (r *MongoUserRepository) usernames(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]string, error) {
	names := make(map[primitive.ObjectID]string, len(ids))
	if len(ids) == 0 {
		return names, nil
	}
	cur, err := r.coll.Find(ctx,
		bson.M{"_id": bson.M{"$in": ids}},
		options.Find().SetProjection(bson.M{"username": 1}),
	)
	if err != nil {
		return nil, fmt.Errorf("resolve usernames: %w", err)
	}
	var docs []mongoUser
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode usernames: %w", err)
	}
	for _, d := range docs {
		names[d.ID] = d.Username
	}
	return names, nil
}
