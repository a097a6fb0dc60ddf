package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/oksasatya/prevently-api/internal/domain/entity"
)

// SymptomFilter narrows a user's symptom log listing. Zero values are ignored.
type SymptomFilter struct {
	UserID      primitive.ObjectID
	Category    string
	MinSeverity int
	MaxSeverity int
	DateFrom    *time.Time
	DateTo      *time.Time
	Resolved    *bool
	Search      string
	Tag         string
	IDs         []primitive.ObjectID
}

type Page struct {
	Page  int
	Limit int
}

func (p Page) Skip() int64 {
	if p.Page < 1 || p.Limit < 1 {
		return 0
	}
	return int64(p.Page-1) * int64(p.Limit)
}

// TrendingSymptom is one row of the per-name aggregation over a time window.
type TrendingSymptom struct {
	Name           string    `json:"name" bson:"_id"`
	Count          int       `json:"count" bson:"count"`
	AvgSeverity    float64   `json:"avgSeverity" bson:"avgSeverity"`
	LastOccurrence time.Time `json:"lastOccurrence" bson:"lastOccurrence"`
}

// SymptomLogRepository defines persistence for symptom logs. Every lookup is scoped by owner.
type SymptomLogRepository interface {
	Create(ctx context.Context, s *entity.SymptomLog) error
	GetByID(ctx context.Context, userID, id primitive.ObjectID) (*entity.SymptomLog, error)
	Update(ctx context.Context, s *entity.SymptomLog) error
	Delete(ctx context.Context, userID, id primitive.ObjectID) error
	List(ctx context.Context, f SymptomFilter, p Page) ([]*entity.SymptomLog, int64, error)
	Recent(ctx context.Context, userID primitive.ObjectID, limit int) ([]*entity.SymptomLog, error)
	Since(ctx context.Context, userID primitive.ObjectID, since time.Time) ([]*entity.SymptomLog, error)
	Trending(ctx context.Context, userID primitive.ObjectID, since time.Time, limit int) ([]TrendingSymptom, error)
}
