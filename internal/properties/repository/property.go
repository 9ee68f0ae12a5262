package repository

import (
	"context"
	"errors"
	"fmt"
	propertieserrors "stayledger/internal/properties/errors"
	"stayledger/pkg/config"
	"stayledger/pkg/db"
	mongotx "stayledger/pkg/db/mongo"
	"stayledger/pkg/model"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	CollectionName         = "Properties"
	CountersCollectionName = "Counters"
)

type PropertyRepository interface {
	// Create stores the property and assigns it the next monotonic id.
	// Callers wanting the id allocation and the insert to commit or fail
	// together run it inside ExecuteTransaction.
	Create(ctx context.Context, property *model.Property) error
	FindByID(ctx context.Context, id uint64) (*model.Property, error)
	FindAll(ctx context.Context, limit int, offset int64) ([]*model.Property, error)
	FindByOwner(ctx context.Context, owner model.AccountID, limit int, offset int64) ([]*model.Property, error)
	Count(ctx context.Context) (int64, error)
	CountByOwner(ctx context.Context, owner model.AccountID) (int64, error)
	// Deactivate flips the active flag. A property that is already
	// inactive is left as it was, timestamp included.
	Deactivate(ctx context.Context, id uint64, at time.Time) error
	// ReserveRange marks [checkIn, checkout) occupied on the stored
	// calendar. Availability must have been confirmed by the caller under
	// the property lock.
	ReserveRange(ctx context.Context, id uint64, checkIn, checkout uint64) error
	ExecuteTransaction(ctx context.Context, fn db.TransactionFunc) error
}

type mongoPropertyRepository struct {
	cfg        *config.Config
	db         *mongo.Database
	collection *mongo.Collection
	counters   *mongo.Collection
	txManager  db.TransactionManager
}

func NewMongoPropertyRepository(cfg *config.Config) PropertyRepository {
	database := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoPropertyRepository{
		cfg:        cfg,
		db:         database,
		collection: database.Collection(CollectionName),
		counters:   database.Collection(CountersCollectionName),
		txManager:  mongotx.NewTransactionManager(cfg.Client.Mongo),
	}
}

// withTimeout wraps the context with a timeout if not already in a transaction.
// When inside a transaction (SessionContext), returns the original context unchanged
// with a no-op cancel function, as we cannot wrap SessionContext without breaking
// transaction semantics.
func (r *mongoPropertyRepository) withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := ctx.(mongo.SessionContext); ok {
		return ctx, func() {}
	}

	deadline, hasDeadline := ctx.Deadline()
	if !hasDeadline {
		return context.WithTimeout(ctx, timeout)
	}

	remaining := time.Until(deadline)
	if remaining < timeout {
		return context.WithTimeout(ctx, remaining)
	}

	return context.WithTimeout(ctx, timeout)
}

func (r *mongoPropertyRepository) Create(ctx context.Context, property *model.Property) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	id, err := r.nextID(ctx)
	if err != nil {
		return fmt.Errorf("failed to allocate property id: %w", err)
	}

	property.ID = id
	property.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)
	if _, err := r.collection.InsertOne(ctx, property); err != nil {
		return fmt.Errorf("failed to create property: %w", err)
	}
	return nil
}

// nextID bumps the property counter and returns the id the insert should
// use. Run inside a session transaction the bump rolls back with an
// aborted insert, which keeps the sequence gapless.
func (r *mongoPropertyRepository) nextID(ctx context.Context) (uint64, error) {
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var counter model.Counter
	err := r.counters.FindOneAndUpdate(ctx,
		bson.M{"_id": model.CounterProperties},
		bson.M{"$inc": bson.M{"next": 1}},
		opts,
	).Decode(&counter)
	if err != nil {
		return 0, err
	}

	return counter.Next - 1, nil
}

func (r *mongoPropertyRepository) FindByID(ctx context.Context, id uint64) (*model.Property, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var property model.Property
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&property)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, propertieserrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find property: %w", err)
	}

	return &property, nil
}

func (r *mongoPropertyRepository) FindAll(ctx context.Context, limit int, offset int64) ([]*model.Property, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "_id", Value: 1}}).
		SetLimit(int64(limit)).
		SetSkip(offset)

	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find properties: %w", err)
	}
	defer cursor.Close(ctx)

	var properties []*model.Property
	if err = cursor.All(ctx, &properties); err != nil {
		return nil, fmt.Errorf("failed to decode properties: %w", err)
	}

	return properties, nil
}

func (r *mongoPropertyRepository) FindByOwner(ctx context.Context, owner model.AccountID, limit int, offset int64) ([]*model.Property, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "_id", Value: 1}}).
		SetLimit(int64(limit)).
		SetSkip(offset)

	cursor, err := r.collection.Find(ctx, bson.M{"owner": owner}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find properties by owner: %w", err)
	}
	defer cursor.Close(ctx)

	var properties []*model.Property
	if err = cursor.All(ctx, &properties); err != nil {
		return nil, fmt.Errorf("failed to decode properties: %w", err)
	}

	return properties, nil
}

func (r *mongoPropertyRepository) Count(ctx context.Context) (int64, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	count, err := r.collection.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("failed to count properties: %w", err)
	}

	return count, nil
}

func (r *mongoPropertyRepository) CountByOwner(ctx context.Context, owner model.AccountID) (int64, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	count, err := r.collection.CountDocuments(ctx, bson.M{"owner": owner})
	if err != nil {
		return 0, fmt.Errorf("failed to count properties by owner: %w", err)
	}

	return count, nil
}

func (r *mongoPropertyRepository) Deactivate(ctx context.Context, id uint64, at time.Time) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	result, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": id, "active": true},
		bson.M{"$set": bson.M{"active": false, "deactivated_at": at}},
	)
	if err != nil {
		return fmt.Errorf("failed to deactivate property: %w", err)
	}

	if result.MatchedCount == 0 {
		// Missing or already inactive; only the former is an error.
		if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Err(); err != nil {
			if errors.Is(err, mongo.ErrNoDocuments) {
				return propertieserrors.ErrNotFound
			}
			return fmt.Errorf("failed to check property existence: %w", err)
		}
	}

	return nil
}

func (r *mongoPropertyRepository) ReserveRange(ctx context.Context, id uint64, checkIn, checkout uint64) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	var property model.Property
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&property); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return propertieserrors.ErrNotFound
		}
		return fmt.Errorf("failed to load property calendar: %w", err)
	}

	property.Calendar.Reserve(checkIn, checkout)

	result, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"calendar": property.Calendar}},
	)
	if err != nil {
		return fmt.Errorf("failed to persist calendar reservation: %w", err)
	}
	if result.MatchedCount == 0 {
		return propertieserrors.ErrNotFound
	}

	return nil
}

func (r *mongoPropertyRepository) ExecuteTransaction(ctx context.Context, fn db.TransactionFunc) error {
	return r.txManager.ExecuteTransaction(ctx, fn)
}
