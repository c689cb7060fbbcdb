package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	quoteserrors "rentdesk/internal/quotes/errors"
	"rentdesk/pkg/config"
	"rentdesk/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	CollectionName = "ContactQuotes"
)

type ContactQuoteRepository interface {
	Insert(ctx context.Context, q *model.ContactQuote) error
	FindByID(ctx context.Context, id string) (*model.ContactQuote, error)
	FindAll(ctx context.Context, limit int, offset int64) ([]*model.ContactQuote, error)
	Count(ctx context.Context) (int64, error)
	UpdateStatus(ctx context.Context, id string, status string, updatesLog string) error
	UpdateBookingRequestData(ctx context.Context, id string, data string, status string, updatesLog string) error
}

type mongoContactQuoteRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoContactQuoteRepository(cfg *config.Config) ContactQuoteRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoContactQuoteRepository{
		cfg:        cfg,
		collection: db.Collection(CollectionName),
	}
}

func (r *mongoContactQuoteRepository) withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := ctx.(mongo.SessionContext); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, timeout)
}

func (r *mongoContactQuoteRepository) Insert(ctx context.Context, q *model.ContactQuote) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	now := time.Now().UTC().Truncate(time.Millisecond)
	q.CreatedAt = now
	q.UpdatedAt = now

	if _, err := r.collection.InsertOne(ctx, q); err != nil {
		return fmt.Errorf("failed to insert contact quote: %w", err)
	}
	return nil
}

func (r *mongoContactQuoteRepository) FindByID(ctx context.Context, id string) (*model.ContactQuote, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var q model.ContactQuote
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&q)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: %s", quoteserrors.ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to find contact quote: %w", err)
	}
	return &q, nil
}

func (r *mongoContactQuoteRepository) FindAll(ctx context.Context, limit int, offset int64) ([]*model.ContactQuote, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().
		SetLimit(int64(limit)).
		SetSkip(offset).
		SetSort(bson.D{{Key: "created_at", Value: -1}})

	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list contact quotes: %w", err)
	}
	defer cursor.Close(ctx)

	var quotes []*model.ContactQuote
	if err := cursor.All(ctx, &quotes); err != nil {
		return nil, fmt.Errorf("failed to decode contact quotes: %w", err)
	}
	return quotes, nil
}

func (r *mongoContactQuoteRepository) Count(ctx context.Context) (int64, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	count, err := r.collection.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("failed to count contact quotes: %w", err)
	}
	return count, nil
}

func (r *mongoContactQuoteRepository) UpdateStatus(ctx context.Context, id string, status string, updatesLog string) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	update := bson.M{"$set": bson.M{
		"status":      status,
		"updates_log": updatesLog,
		"updated_at":  time.Now().UTC().Truncate(time.Millisecond),
	}}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return fmt.Errorf("failed to update contact quote status: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("%w: %s", quoteserrors.ErrNotFound, id)
	}
	return nil
}

func (r *mongoContactQuoteRepository) UpdateBookingRequestData(ctx context.Context, id string, data string, status string, updatesLog string) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	update := bson.M{"$set": bson.M{
		"booking_request_data": data,
		"status":               status,
		"updates_log":          updatesLog,
		"updated_at":           time.Now().UTC().Truncate(time.Millisecond),
	}}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return fmt.Errorf("failed to update contact quote offer data: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("%w: %s", quoteserrors.ErrNotFound, id)
	}
	return nil
}
