package mongodb

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/oksasatya/prevently-api/internal/domain/entity"
	"github.com/oksasatya/prevently-api/internal/domain/repository"
)

type SymptomLogRepository struct {
	coll *mongo.Collection
}

func NewSymptomLogRepository(db *mongo.Database) *SymptomLogRepository {
	return &SymptomLogRepository{coll: db.Collection(SymptomLogsCollection)}
}

var newestFirst = bson.D{{Key: "loggedAt", Value: -1}, {Key: "_id", Value: -1}}

func (r *SymptomLogRepository) Create(ctx context.Context, s *entity.SymptomLog) error {
	if s.ID.IsZero() {
		s.ID = primitive.NewObjectID()
	}
	_, err := r.coll.InsertOne(ctx, s)
	return err
}

func (r *SymptomLogRepository) GetByID(ctx context.Context, userID, id primitive.ObjectID) (*entity.SymptomLog, error) {
	s := &entity.SymptomLog{}
	err := r.coll.FindOne(ctx, bson.M{"_id": id, "userId": userID}).Decode(s)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return s, nil
}

func (r *SymptomLogRepository) Update(ctx context.Context, s *entity.SymptomLog) error {
	res, err := r.coll.ReplaceOne(ctx, bson.M{"_id": s.ID, "userId": s.UserID}, s)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *SymptomLogRepository) Delete(ctx context.Context, userID, id primitive.ObjectID) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id, "userId": userID})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *SymptomLogRepository) List(ctx context.Context, f repository.SymptomFilter, p repository.Page) ([]*entity.SymptomLog, int64, error) {
	filter := BuildSymptomFilter(f)

	opts := options.Find().SetSort(newestFirst)
	if p.Limit > 0 {
		opts.SetSkip(p.Skip()).SetLimit(int64(p.Limit))
	}

	total, err := r.coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	logs, err := r.find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	return logs, total, nil
}

func (r *SymptomLogRepository) Recent(ctx context.Context, userID primitive.ObjectID, limit int) ([]*entity.SymptomLog, error) {
	opts := options.Find().SetSort(newestFirst).SetLimit(int64(limit))
	return r.find(ctx, bson.M{"userId": userID}, opts)
}

func (r *SymptomLogRepository) Since(ctx context.Context, userID primitive.ObjectID, since time.Time) ([]*entity.SymptomLog, error) {
	opts := options.Find().SetSort(newestFirst)
	return r.find(ctx, bson.M{"userId": userID, "loggedAt": bson.M{"$gte": since}}, opts)
}

func (r *SymptomLogRepository) Trending(ctx context.Context, userID primitive.ObjectID, since time.Time, limit int) ([]repository.TrendingSymptom, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"userId": userID, "loggedAt": bson.M{"$gte": since}}}},
		{{Key: "$group", Value: bson.M{
			"_id":            "$symptomName",
			"count":          bson.M{"$sum": 1},
			"avgSeverity":    bson.M{"$avg": "$severity"},
			"lastOccurrence": bson.M{"$max": "$loggedAt"},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "count", Value: -1}, {Key: "avgSeverity", Value: -1}}}},
		{{Key: "$limit", Value: limit}},
	}
	cursor, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var out []repository.TrendingSymptom
	if err := cursor.All(ctx, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = make([]repository.TrendingSymptom, 0)
	}
	return out, nil
}

func (r *SymptomLogRepository) find(ctx context.Context, filter any, opts *options.FindOptions) ([]*entity.SymptomLog, error) {
	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var logs []*entity.SymptomLog
	if err := cursor.All(ctx, &logs); err != nil {
		return nil, err
	}
	if logs == nil {
		logs = make([]*entity.SymptomLog, 0)
	}
	return logs, nil
}

// BuildSymptomFilter translates a SymptomFilter into a Mongo query document.
func BuildSymptomFilter(f repository.SymptomFilter) bson.M {
	q := bson.M{"userId": f.UserID}

	if f.Category != "" {
		q["category"] = f.Category
	}

	sev := bson.M{}
	if f.MinSeverity > 0 {
		sev["$gte"] = f.MinSeverity
	}
	if f.MaxSeverity > 0 {
		sev["$lte"] = f.MaxSeverity
	}
	if len(sev) > 0 {
		q["severity"] = sev
	}

	logged := bson.M{}
	if f.DateFrom != nil {
		logged["$gte"] = *f.DateFrom
	}
	if f.DateTo != nil {
		logged["$lte"] = *f.DateTo
	}
	if len(logged) > 0 {
		q["loggedAt"] = logged
	}

	if f.Resolved != nil {
		q["resolved"] = *f.Resolved
	}
	if f.Tag != "" {
		q["tags"] = strings.ToLower(strings.TrimSpace(f.Tag))
	}
	if len(f.IDs) > 0 {
		q["_id"] = bson.M{"$in": f.IDs}
	}

	if s := strings.TrimSpace(f.Search); s != "" {
		rx := primitive.Regex{Pattern: regexp.QuoteMeta(s), Options: "i"}
		q["$or"] = bson.A{
			bson.M{"symptomName": rx},
			bson.M{"description": rx},
			bson.M{"notes": rx},
		}
	}
	return q
}

var _ repository.SymptomLogRepository = (*SymptomLogRepository)(nil)
