package mongodb

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	UsersCollection       = "users"
	SymptomLogsCollection = "symptomlogs"
)

// NewClient connects and pings MongoDB before returning the client.
func NewClient(ctx context.Context, uri string, maxPool, minPool uint64, timeout time.Duration) (*mongo.Client, error) {
	opts := options.Client().
		ApplyURI(uri).
		SetMaxPoolSize(maxPool).
		SetMinPoolSize(minPool).
		SetConnectTimeout(timeout)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, err
	}
	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return client, nil
}

// EnsureIndexes creates the indexes the repositories rely on.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	users := []mongo.IndexModel{
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "familyMembers", Value: 1}}},
		{Keys: bson.D{{Key: "gamification.level", Value: -1}}},
	}
	if _, err := db.Collection(UsersCollection).Indexes().CreateMany(ctx, users); err != nil {
		return err
	}

	logs := []mongo.IndexModel{
		{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "loggedAt", Value: -1}}},
		{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "symptomName", Value: 1}}},
		{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "severity", Value: -1}}},
		{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "category", Value: 1}}},
		{Keys: bson.D{{Key: "tags", Value: 1}}},
		{Keys: bson.D{{Key: "analysis.riskLevel", Value: 1}}},
	}
	_, err := db.Collection(SymptomLogsCollection).Indexes().CreateMany(ctx, logs)
	return err
}

// Ping reports whether the primary is reachable.
func Ping(ctx context.Context, client *mongo.Client) error {
	c, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return client.Ping(c, readpref.Primary())
}
