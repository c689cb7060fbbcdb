package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	rentalserrors "rentdesk/internal/rentals/errors"
	"rentdesk/pkg/config"
	mongotx "rentdesk/pkg/db/mongo"
	"rentdesk/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	CollectionName = "RentRequests"
)

type RentRequestRepository interface {
	Insert(ctx context.Context, r *model.RentRequest) error
	FindByID(ctx context.Context, id string) (*model.RentRequest, error)
	FindByHumanID(ctx context.Context, humanID string) (*model.RentRequest, error)
	FindAll(ctx context.Context, limit int, offset int64) ([]*model.RentRequest, error)
	Count(ctx context.Context) (int64, error)
	Update(ctx context.Context, id string, r *model.RentRequest) error
	Cancel(ctx context.Context, id string, reason string, updatesLog string) error
	ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error
}

type mongoRentRequestRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
	txManager  mongotx.TransactionManager
}

func NewMongoRentRequestRepository(cfg *config.Config) RentRequestRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoRentRequestRepository{
		cfg:        cfg,
		collection: db.Collection(CollectionName),
		txManager:  mongotx.NewTransactionManager(cfg.Client.Mongo),
	}
}

func (r *mongoRentRequestRepository) withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := ctx.(mongo.SessionContext); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, timeout)
}

func (r *mongoRentRequestRepository) Insert(ctx context.Context, record *model.RentRequest) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	now := time.Now().UTC().Truncate(time.Millisecond)
	record.CreatedAt = now
	record.UpdatedAt = now

	if _, err := r.collection.InsertOne(ctx, record); err != nil {
		return fmt.Errorf("failed to insert rent request: %w", err)
	}
	return nil
}

func (r *mongoRentRequestRepository) FindByID(ctx context.Context, id string) (*model.RentRequest, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	return r.findOne(ctx, bson.M{"_id": id}, id)
}

func (r *mongoRentRequestRepository) FindByHumanID(ctx context.Context, humanID string) (*model.RentRequest, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	return r.findOne(ctx, bson.M{"human_id": humanID}, humanID)
}

func (r *mongoRentRequestRepository) findOne(ctx context.Context, filter bson.M, ref string) (*model.RentRequest, error) {
	var record model.RentRequest
	err := r.collection.FindOne(ctx, filter).Decode(&record)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: %s", rentalserrors.ErrNotFound, ref)
		}
		return nil, fmt.Errorf("failed to find rent request: %w", err)
	}
	return &record, nil
}

func (r *mongoRentRequestRepository) FindAll(ctx context.Context, limit int, offset int64) ([]*model.RentRequest, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().
		SetLimit(int64(limit)).
		SetSkip(offset).
		SetSort(bson.D{{Key: "created_at", Value: -1}})

	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list rent requests: %w", err)
	}
	defer cursor.Close(ctx)

	var records []*model.RentRequest
	if err := cursor.All(ctx, &records); err != nil {
		return nil, fmt.Errorf("failed to decode rent requests: %w", err)
	}
	return records, nil
}

func (r *mongoRentRequestRepository) Count(ctx context.Context) (int64, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	count, err := r.collection.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("failed to count rent requests: %w", err)
	}
	return count, nil
}

// Update rewrites the mutable fields of a booking after a self-service
// modification. Status, humanId and creation metadata are never touched
// here.
func (r *mongoRentRequestRepository) Update(ctx context.Context, id string, record *model.RentRequest) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	set := bson.M{
		"locale":        record.Locale,
		"car_id":        record.CarID,
		"quote_id":      record.QuoteID,
		"contact_name":  record.ContactName,
		"contact_email": record.ContactEmail,
		"contact_phone": record.ContactPhone,
		"rental_start":  record.RentalStart,
		"rental_end":    record.RentalEnd,
		"rental_days":   record.RentalDays,
		"delivery":      record.Delivery,
		"payload":       record.Payload,
		"updates_log":   record.UpdatesLog,
		"updated_at":    time.Now().UTC().Truncate(time.Millisecond),
	}
	if record.PriceSnapshot != "" {
		set["price_snapshot"] = record.PriceSnapshot
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("failed to update rent request: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("%w: %s", rentalserrors.ErrNotFound, id)
	}
	return nil
}

func (r *mongoRentRequestRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return r.txManager.ExecuteTransaction(ctx, fn)
}

func (r *mongoRentRequestRepository) Cancel(ctx context.Context, id string, reason string, updatesLog string) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	update := bson.M{"$set": bson.M{
		"status":        model.RentStatusCancelled,
		"cancel_reason": reason,
		"updates_log":   updatesLog,
		"updated_at":    time.Now().UTC().Truncate(time.Millisecond),
	}}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return fmt.Errorf("failed to cancel rent request: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("%w: %s", rentalserrors.ErrNotFound, id)
	}
	return nil
}
