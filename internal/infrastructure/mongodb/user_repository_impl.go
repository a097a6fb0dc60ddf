package mongodb

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/oksasatya/prevently-api/internal/domain/entity"
	"github.com/oksasatya/prevently-api/internal/domain/repository"
)

type UserRepository struct {
	coll *mongo.Collection
}

func NewUserRepository(db *mongo.Database) *UserRepository {
	return &UserRepository{coll: db.Collection(UsersCollection)}
}

func (r *UserRepository) Create(ctx context.Context, u *entity.User) error {
	if u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
	}
	now := time.Now().UTC()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	u.UpdatedAt = now

	if _, err := r.coll.InsertOne(ctx, u); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return repository.ErrDuplicate
		}
		return err
	}
	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*entity.User, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	return r.findOne(ctx, bson.M{"email": entity.NormalizeEmail(email)})
}

func (r *UserRepository) findOne(ctx context.Context, filter bson.M) (*entity.User, error) {
	u := &entity.User{}
	if err := r.coll.FindOne(ctx, filter).Decode(u); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return u, nil
}

func (r *UserRepository) GetManyByIDs(ctx context.Context, ids []primitive.ObjectID) ([]*entity.User, error) {
	if len(ids) == 0 {
		return []*entity.User{}, nil
	}
	cursor, err := r.coll.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var users []*entity.User
	if err := cursor.All(ctx, &users); err != nil {
		return nil, err
	}
	if users == nil {
		users = make([]*entity.User, 0)
	}
	return users, nil
}

// Update writes the mutable profile fields. Family links and XP are left to
// AddFamilyMember/RemoveFamilyMember and AwardXP so a stale copy cannot drop a link or lower a level.
func (r *UserRepository) Update(ctx context.Context, u *entity.User) error {
	u.UpdatedAt = time.Now().UTC()

	set := bson.M{
		"email":                     u.Email,
		"passwordHash":              u.PasswordHash,
		"firstName":                 u.FirstName,
		"lastName":                  u.LastName,
		"avatar":                    u.Avatar,
		"healthProfile":             u.HealthProfile,
		"preferences":               u.Preferences,
		"gamification.streaks":      u.Gamification.Streaks,
		"gamification.achievements": u.Gamification.Achievements,
		"gamification.badges":       u.Gamification.Badges,
		"familyRole":                u.FamilyRole,
		"isActive":                  u.IsActive,
		"isVerified":                u.IsVerified,
		"lastLogin":                 u.LastLogin,
		"subscriptionStatus":        u.SubscriptionStatus,
		"subscriptionExpiry":        u.SubscriptionExpiry,
		"updatedAt":                 u.UpdatedAt,
	}
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": u.ID}, bson.M{"$set": set})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return repository.ErrDuplicate
		}
		return err
	}
	if res.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *UserRepository) AddFamilyMember(ctx context.Context, userID, memberID primitive.ObjectID) error {
	return r.updateFamily(ctx, userID, bson.M{"$addToSet": bson.M{"familyMembers": memberID}})
}

func (r *UserRepository) RemoveFamilyMember(ctx context.Context, userID, memberID primitive.ObjectID) error {
	return r.updateFamily(ctx, userID, bson.M{"$pull": bson.M{"familyMembers": memberID}})
}

func (r *UserRepository) updateFamily(ctx context.Context, userID primitive.ObjectID, op bson.M) error {
	op["$set"] = bson.M{"updatedAt": time.Now().UTC()}
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": userID}, op)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *UserRepository) AwardXP(ctx context.Context, userID primitive.ObjectID, points int) (entity.Gamification, error) {
	// pipeline update so the level is derived from the incremented total in the same write
	pipeline := mongo.Pipeline{
		{{Key: "$set", Value: bson.M{
			"gamification.xp":      bson.M{"$add": bson.A{bson.M{"$ifNull": bson.A{"$gamification.xp", 0}}, points}},
			"gamification.totalXp": bson.M{"$add": bson.A{bson.M{"$ifNull": bson.A{"$gamification.totalXp", 0}}, points}},
			"updatedAt":            time.Now().UTC(),
		}}},
		{{Key: "$set", Value: bson.M{
			"gamification.level": bson.M{"$max": bson.A{
				bson.M{"$ifNull": bson.A{"$gamification.level", 1}},
				bson.M{"$add": bson.A{bson.M{"$floor": bson.M{"$divide": bson.A{"$gamification.totalXp", entity.XPPerLevel}}}, 1}},
			}},
		}}},
	}
	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetProjection(bson.M{"gamification": 1})

	var out struct {
		Gamification entity.Gamification `bson:"gamification"`
	}
	if err := r.coll.FindOneAndUpdate(ctx, bson.M{"_id": userID}, pipeline, opts).Decode(&out); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return entity.Gamification{}, repository.ErrNotFound
		}
		return entity.Gamification{}, err
	}
	return out.Gamification, nil
}

var _ repository.UserRepository = (*UserRepository)(nil)
