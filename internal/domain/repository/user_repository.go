package repository

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/oksasatya/prevently-api/internal/domain/entity"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("duplicate key")
)

// UserRepository defines the interface for user-related database operations.
type UserRepository interface {
	Create(ctx context.Context, u *entity.User) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*entity.User, error)
	GetByEmail(ctx context.Context, email string) (*entity.User, error)
	GetManyByIDs(ctx context.Context, ids []primitive.ObjectID) ([]*entity.User, error)
	Update(ctx context.Context, u *entity.User) error
	AddFamilyMember(ctx context.Context, userID, memberID primitive.ObjectID) error
	RemoveFamilyMember(ctx context.Context, userID, memberID primitive.ObjectID) error
	// AwardXP atomically adds points and raises the level to match. It returns the stored result.
	AwardXP(ctx context.Context, userID primitive.ObjectID, points int) (entity.Gamification, error)
}
