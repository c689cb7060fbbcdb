package humanid

import (
	"context"
	"errors"
	"fmt"
	"time"

	"rentdesk/pkg/config"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	CountersCollection = "Counters"
)

// mongoCounterStore keeps one counter document per (table, year) and
// advances it with an atomic findAndModify $inc. The document is seeded
// lazily from the highest reference already present in the record
// collection, so deployments with pre-counter rows continue their
// sequence instead of restarting at 1.
type mongoCounterStore struct {
	cfg      *config.Config
	db       *mongo.Database
	counters *mongo.Collection
}

func NewMongoCounterStore(cfg *config.Config) CounterStore {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoCounterStore{
		cfg:      cfg,
		db:       db,
		counters: db.Collection(CountersCollection),
	}
}

func counterKey(table Table, year int) string {
	return fmt.Sprintf("%s:%d", table, year)
}

func (s *mongoCounterStore) NextSequence(ctx context.Context, table Table, year int) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.WriteTimeout)
	defer cancel()

	seq, err := s.increment(ctx, table, year)
	if err == nil {
		return seq, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return 0, fmt.Errorf("failed to advance reference counter: %w", err)
	}

	if err := s.seed(ctx, table, year); err != nil {
		return 0, err
	}

	seq, err = s.increment(ctx, table, year)
	if err != nil {
		return 0, fmt.Errorf("failed to advance reference counter after seeding: %w", err)
	}
	return seq, nil
}

// increment atomically advances the counter and returns the new value.
// No upsert: seeding is a separate step so the initial value can come
// from a legacy scan.
func (s *mongoCounterStore) increment(ctx context.Context, table Table, year int) (int64, error) {
	filter := bson.M{"_id": counterKey(table, year)}
	update := bson.M{"$inc": bson.M{"seq": 1}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc struct {
		Seq int64 `bson:"seq"`
	}
	if err := s.counters.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc); err != nil {
		return 0, err
	}
	return doc.Seq, nil
}

// seed creates the counter document starting from the highest numeric
// suffix already assigned for the year. A duplicate key error means a
// concurrent caller seeded first, which is fine.
func (s *mongoCounterStore) seed(ctx context.Context, table Table, year int) error {
	last, err := s.lastAssigned(ctx, table, year)
	if err != nil {
		return err
	}

	_, err = s.counters.InsertOne(ctx, bson.M{
		"_id":        counterKey(table, year),
		"seq":        last,
		"created_at": time.Now().UTC(),
	})
	if err != nil && !mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("failed to seed reference counter: %w", err)
	}
	return nil
}

// lastAssigned scans the record collection for the most recent reference
// with this year's prefix and returns its numeric suffix, or 0 when the
// year has no records yet.
func (s *mongoCounterStore) lastAssigned(ctx context.Context, table Table, year int) (int64, error) {
	prefix := fmt.Sprintf("%d/", year)
	filter := bson.M{"human_id": bson.M{"$regex": "^" + prefix}}
	opts := options.FindOne().SetSort(bson.D{{Key: "human_id", Value: -1}}).
		SetProjection(bson.M{"human_id": 1})

	var doc struct {
		HumanID *string `bson:"human_id"`
	}
	err := s.db.Collection(string(table)).FindOne(ctx, filter, opts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to scan last assigned reference: %w", err)
	}

	if doc.HumanID == nil {
		return 0, nil
	}
	if _, seq, ok := Parse(*doc.HumanID); ok {
		return seq, nil
	}
	return 0, nil
}
