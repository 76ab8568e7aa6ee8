// internal/storage/mongo.go
package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/pateldhruv64/cow-belt-final/internal/data"
)

const (
	readingsCollection = "readings"
	alertsCollection   = "alerts"
)

// MongoStore keeps readings and alerts in two MongoDB collections.
type MongoStore struct {
	client   *mongo.Client
	readings *mongo.Collection
	alerts   *mongo.Collection
}

// NewMongoStore connects, pings and makes sure the indexes exist.
func NewMongoStore(ctx context.Context, uri, database string) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	db := client.Database(database)
	s := &MongoStore{
		client:   client,
		readings: db.Collection(readingsCollection),
		alerts:   db.Collection(alertsCollection),
	}
	if err := s.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	return s, nil
}

func (s *MongoStore) ensureIndexes(ctx context.Context) error {
	_, err := s.readings.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "cowId", Value: 1}, {Key: "timestamp", Value: -1}}},
		{Keys: bson.D{{Key: "timestamp", Value: -1}}},
	})
	if err != nil {
		return fmt.Errorf("create reading indexes: %w", err)
	}

	_, err = s.alerts.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "alertId", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "source.cowId", Value: 1}, {Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "severity", Value: 1}}},
		// Low severity alerts carry expiresAt and are reaped by MongoDB itself.
		{Keys: bson.D{{Key: "expiresAt", Value: 1}}, Options: options.Index().SetExpireAfterSeconds(0)},
	})
	if err != nil {
		return fmt.Errorf("create alert indexes: %w", err)
	}
	return nil
}

func (s *MongoStore) InsertReading(ctx context.Context, r *data.Reading) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.Timestamp.IsZero() {
		r.Timestamp = time.Now().UTC()
	}
	if _, err := s.readings.InsertOne(ctx, r); err != nil {
		return fmt.Errorf("insert reading: %w", err)
	}
	return nil
}

func (s *MongoStore) ListReadings(ctx context.Context, f ReadingFilter) ([]data.Reading, int64, error) {
	filter := readingQuery(f)

	total, err := s.readings.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("count readings: %w", err)
	}

	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: -1}})
	if f.Offset > 0 {
		opts.SetSkip(int64(f.Offset))
	}
	if f.Limit > 0 {
		opts.SetLimit(int64(f.Limit))
	}

	cur, err := s.readings.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("find readings: %w", err)
	}
	readings := []data.Reading{}
	if err := cur.All(ctx, &readings); err != nil {
		return nil, 0, fmt.Errorf("decode readings: %w", err)
	}
	return readings, total, nil
}

func (s *MongoStore) LatestReading(ctx context.Context, cowID string) (*data.Reading, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "timestamp", Value: -1}})
	var r data.Reading
	if err := s.readings.FindOne(ctx, bson.M{"cowId": cowID}, opts).Decode(&r); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find latest reading: %w", err)
	}
	return &r, nil
}

func (s *MongoStore) DeleteReadingsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.readings.DeleteMany(ctx, bson.M{"timestamp": bson.M{"$lt": cutoff}})
	if err != nil {
		return 0, fmt.Errorf("delete readings: %w", err)
	}
	return res.DeletedCount, nil
}

func (s *MongoStore) FindLatestAlertForSubjectAndDisease(ctx context.Context, cowID string, disease data.Disease) (*data.Alert, error) {
	filter := bson.M{"source.cowId": cowID, "data.customData.disease": string(disease)}
	opts := options.FindOne().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	return s.findAlert(ctx, filter, opts)
}

func (s *MongoStore) InsertAlert(ctx context.Context, a *data.Alert) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	if _, err := s.alerts.InsertOne(ctx, a); err != nil {
		return fmt.Errorf("insert alert: %w", err)
	}
	return nil
}

func (s *MongoStore) GetAlert(ctx context.Context, id string) (*data.Alert, error) {
	filter := bson.M{"$or": bson.A{bson.M{"_id": id}, bson.M{"alertId": id}}}
	return s.findAlert(ctx, filter, nil)
}

func (s *MongoStore) UpdateAlert(ctx context.Context, a *data.Alert) error {
	res, err := s.alerts.ReplaceOne(ctx, bson.M{"_id": a.ID}, a)
	if err != nil {
		return fmt.Errorf("update alert: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) ListAlerts(ctx context.Context, f AlertFilter) ([]data.Alert, int64, error) {
	filter := alertQuery(f)

	total, err := s.alerts.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("count alerts: %w", err)
	}

	sortBy := bson.D{{Key: "createdAt", Value: -1}}
	if f.Sort == SortPriority {
		sortBy = bson.D{{Key: "priority", Value: -1}, {Key: "createdAt", Value: -1}}
	}
	opts := options.Find().SetSort(sortBy)
	if f.Offset > 0 {
		opts.SetSkip(int64(f.Offset))
	}
	if f.Limit > 0 {
		opts.SetLimit(int64(f.Limit))
	}

	cur, err := s.alerts.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("find alerts: %w", err)
	}
	alerts := []data.Alert{}
	if err := cur.All(ctx, &alerts); err != nil {
		return nil, 0, fmt.Errorf("decode alerts: %w", err)
	}
	return alerts, total, nil
}

func (s *MongoStore) DeleteResolvedAlertsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.alerts.DeleteMany(ctx, bson.M{
		"status":    string(data.StatusResolved),
		"createdAt": bson.M{"$lt": cutoff},
	})
	if err != nil {
		return 0, fmt.Errorf("delete resolved alerts: %w", err)
	}
	return res.DeletedCount, nil
}

func (s *MongoStore) DeleteExpiredAlerts(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.alerts.DeleteMany(ctx, bson.M{"expiresAt": bson.M{"$lt": now}})
	if err != nil {
		return 0, fmt.Errorf("delete expired alerts: %w", err)
	}
	return res.DeletedCount, nil
}

func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *MongoStore) findAlert(ctx context.Context, filter bson.M, opts *options.FindOneOptions) (*data.Alert, error) {
	var a data.Alert
	var res *mongo.SingleResult
	if opts != nil {
		res = s.alerts.FindOne(ctx, filter, opts)
	} else {
		res = s.alerts.FindOne(ctx, filter)
	}
	if err := res.Decode(&a); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find alert: %w", err)
	}
	return &a, nil
}

func readingQuery(f ReadingFilter) bson.M {
	filter := bson.M{}
	if f.CowID != "" {
		filter["cowId"] = f.CowID
	}
	ts := bson.M{}
	if !f.From.IsZero() {
		ts["$gte"] = f.From
	}
	if !f.To.IsZero() {
		ts["$lte"] = f.To
	}
	if len(ts) > 0 {
		filter["timestamp"] = ts
	}
	return filter
}

func alertQuery(f AlertFilter) bson.M {
	filter := bson.M{}
	status := bson.M{}
	if f.Status != "" {
		status["$eq"] = string(f.Status)
	}
	if f.ExcludeStatus != "" {
		status["$ne"] = string(f.ExcludeStatus)
	}
	if len(status) > 0 {
		filter["status"] = status
	}
	if f.Severity != "" {
		filter["severity"] = string(f.Severity)
	}
	if f.Type != "" {
		filter["type"] = string(f.Type)
	}
	if f.CowID != "" {
		filter["source.cowId"] = f.CowID
	}
	if !f.CreatedAfter.IsZero() {
		filter["createdAt"] = bson.M{"$gte": f.CreatedAfter}
	}
	return filter
}
