package repository

import (
	"context"
	"errors"
	"fmt"
	bookingserrors "stayledger/internal/bookings/errors"
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
	CollectionName         = "Bookings"
	CountersCollectionName = "Counters"
)

// BookingRepository is the append-only ledger. Bookings are never updated
// or removed once written; SetReference is the single exception and only
// runs inside the transaction that created the booking.
type BookingRepository interface {
	// Create appends the booking and assigns the next monotonic id.
	Create(ctx context.Context, booking *model.Booking) error
	SetReference(ctx context.Context, id uint64, reference string) error
	FindByID(ctx context.Context, id uint64) (*model.Booking, error)
	FindAll(ctx context.Context, limit int, offset int64) ([]*model.Booking, error)
	FindByProperty(ctx context.Context, propertyID uint64, limit int, offset int64) ([]*model.Booking, error)
	FindByRenter(ctx context.Context, renter model.AccountID, limit int, offset int64) ([]*model.Booking, error)
	Count(ctx context.Context) (int64, error)
	CountByProperty(ctx context.Context, propertyID uint64) (int64, error)
	CountByRenter(ctx context.Context, renter model.AccountID) (int64, error)
	ExecuteTransaction(ctx context.Context, fn db.TransactionFunc) error
}

type mongoBookingRepository struct {
	cfg        *config.Config
	db         *mongo.Database
	collection *mongo.Collection
	counters   *mongo.Collection
	txManager  db.TransactionManager
}

func NewMongoBookingRepository(cfg *config.Config) BookingRepository {
	database := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoBookingRepository{
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
func (r *mongoBookingRepository) withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
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

func (r *mongoBookingRepository) Create(ctx context.Context, booking *model.Booking) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	id, err := r.nextID(ctx)
	if err != nil {
		return fmt.Errorf("failed to allocate booking id: %w", err)
	}

	booking.ID = id
	booking.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)
	if _, err := r.collection.InsertOne(ctx, booking); err != nil {
		return fmt.Errorf("failed to append booking: %w", err)
	}
	return nil
}

// nextID bumps the booking counter and returns the id the insert should
// use. Run inside a session transaction the bump rolls back with an
// aborted insert, which keeps the sequence gapless.
func (r *mongoBookingRepository) nextID(ctx context.Context) (uint64, error) {
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var counter model.Counter
	err := r.counters.FindOneAndUpdate(ctx,
		bson.M{"_id": model.CounterBookings},
		bson.M{"$inc": bson.M{"next": 1}},
		opts,
	).Decode(&counter)
	if err != nil {
		return 0, err
	}

	return counter.Next - 1, nil
}

func (r *mongoBookingRepository) SetReference(ctx context.Context, id uint64, reference string) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	result, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"reference": reference}},
	)
	if err != nil {
		return fmt.Errorf("failed to set booking reference: %w", err)
	}
	if result.MatchedCount == 0 {
		return bookingserrors.ErrNotFound
	}
	return nil
}

func (r *mongoBookingRepository) FindByID(ctx context.Context, id uint64) (*model.Booking, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var booking model.Booking
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&booking)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, bookingserrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find booking: %w", err)
	}

	return &booking, nil
}

func (r *mongoBookingRepository) FindAll(ctx context.Context, limit int, offset int64) ([]*model.Booking, error) {
	return r.find(ctx, bson.M{}, limit, offset)
}

func (r *mongoBookingRepository) FindByProperty(ctx context.Context, propertyID uint64, limit int, offset int64) ([]*model.Booking, error) {
	return r.find(ctx, bson.M{"property_id": propertyID}, limit, offset)
}

func (r *mongoBookingRepository) FindByRenter(ctx context.Context, renter model.AccountID, limit int, offset int64) ([]*model.Booking, error) {
	return r.find(ctx, bson.M{"renter": renter}, limit, offset)
}

func (r *mongoBookingRepository) find(ctx context.Context, filter bson.M, limit int, offset int64) ([]*model.Booking, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "_id", Value: 1}}).
		SetLimit(int64(limit)).
		SetSkip(offset)

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find bookings: %w", err)
	}
	defer cursor.Close(ctx)

	var bookings []*model.Booking
	if err = cursor.All(ctx, &bookings); err != nil {
		return nil, fmt.Errorf("failed to decode bookings: %w", err)
	}

	return bookings, nil
}

func (r *mongoBookingRepository) Count(ctx context.Context) (int64, error) {
	return r.count(ctx, bson.M{})
}

func (r *mongoBookingRepository) CountByProperty(ctx context.Context, propertyID uint64) (int64, error) {
	return r.count(ctx, bson.M{"property_id": propertyID})
}

func (r *mongoBookingRepository) CountByRenter(ctx context.Context, renter model.AccountID) (int64, error) {
	return r.count(ctx, bson.M{"renter": renter})
}

func (r *mongoBookingRepository) count(ctx context.Context, filter bson.M) (int64, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	count, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("failed to count bookings: %w", err)
	}

	return count, nil
}

func (r *mongoBookingRepository) ExecuteTransaction(ctx context.Context, fn db.TransactionFunc) error {
	return r.txManager.ExecuteTransaction(ctx, fn)
}
