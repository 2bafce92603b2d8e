package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/maanas1234/Celestia-Hackathon/models"
)

// MongoAlertRepository stores alerts as documents in a MongoDB collection.
type MongoAlertRepository struct {
	client *mongo.Client
	coll   *mongo.Collection
}

var newestFirst = bson.D{{Key: "timestamp", Value: -1}, {Key: "created_at", Value: -1}}

// NewMongoAlertRepository connects, verifies the deployment answers a ping and
// ensures the ordering index exists.
func NewMongoAlertRepository(ctx context.Context, uri, dbName, collName string, timeout time.Duration) (*MongoAlertRepository, error) {
	if uri == "" {
		return nil, errors.New("mongo URI is empty")
	}

	connectCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	clientOpts := options.Client().
		ApplyURI(uri).
		SetConnectTimeout(timeout).
		SetServerSelectionTimeout(timeout)

	client, err := mongo.Connect(connectCtx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}
	if err := client.Ping(connectCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}

	coll := client.Database(dbName).Collection(collName)
	_, err = coll.Indexes().CreateOne(connectCtx, mongo.IndexModel{
		Keys:    newestFirst,
		Options: options.Index().SetName("alerts_newest_first"),
	})
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to create alerts index on %s.%s: %w", dbName, collName, err)
	}

	return &MongoAlertRepository{client: client, coll: coll}, nil
}

func (r *MongoAlertRepository) Name() string { return "mongo" }

func (r *MongoAlertRepository) Durable() bool { return true }

func (r *MongoAlertRepository) Append(ctx context.Context, alert *models.Alert) error {
	if _, err := r.coll.InsertOne(ctx, alert); err != nil {
		return fmt.Errorf("failed to insert alert %s: %w", alert.ID, err)
	}
	return nil
}

func (r *MongoAlertRepository) Latest(ctx context.Context, limit int) ([]models.Alert, error) {
	if limit <= 0 {
		return []models.Alert{}, nil
	}
	opts := options.Find().SetSort(newestFirst).SetLimit(int64(limit))
	return r.find(ctx, bson.D{}, opts)
}

func (r *MongoAlertRepository) Prune(ctx context.Context, policy RetentionPolicy, now time.Time) ([]models.Alert, error) {
	if !policy.Enabled() {
		return nil, nil
	}

	expired := make(map[string]models.Alert)
	if policy.MaxAge > 0 {
		filter := bson.D{{Key: "timestamp", Value: bson.D{{Key: "$lt", Value: now.Add(-policy.MaxAge).UTC()}}}}
		old, err := r.find(ctx, filter, options.Find())
		if err != nil {
			return nil, err
		}
		for _, a := range old {
			expired[a.ID] = a
		}
	}
	if policy.MaxAlerts > 0 {
		opts := options.Find().SetSort(newestFirst).SetSkip(int64(policy.MaxAlerts))
		beyond, err := r.find(ctx, bson.D{}, opts)
		if err != nil {
			return nil, err
		}
		for _, a := range beyond {
			expired[a.ID] = a
		}
	}
	if len(expired) == 0 {
		return nil, nil
	}

	ids := make([]string, 0, len(expired))
	removed := make([]models.Alert, 0, len(expired))
	for id, a := range expired {
		ids = append(ids, id)
		removed = append(removed, a)
	}
	if _, err := r.coll.DeleteMany(ctx, bson.D{{Key: "_id", Value: bson.D{{Key: "$in", Value: ids}}}}); err != nil {
		return nil, fmt.Errorf("failed to delete %d expired alerts: %w", len(ids), err)
	}
	return removed, nil
}

func (r *MongoAlertRepository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx, readpref.Primary())
}

func (r *MongoAlertRepository) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := r.client.Disconnect(ctx); err != nil && !errors.Is(err, mongo.ErrClientDisconnected) {
		return err
	}
	return nil
}

func (r *MongoAlertRepository) find(ctx context.Context, filter interface{}, opts *options.FindOptions) ([]models.Alert, error) {
	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query alerts: %w", err)
	}
	alerts := []models.Alert{}
	if err := cur.All(ctx, &alerts); err != nil {
		return nil, fmt.Errorf("failed to decode alerts: %w", err)
	}
	return alerts, nil
}
