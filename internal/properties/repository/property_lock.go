package repository

import (
	"context"
	"fmt"
	"stayledger/pkg/config"
	apperrors "stayledger/pkg/errors"
	"stayledger/pkg/model"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

const LockCollectionName = "Property_locks"

// PropertyLocker serializes settlement and deactivation on the same
// property. The memory locker blocks until the property is free; the
// mongo locker fails fast with a retryable CONFLICT while another
// process holds the lock document.
type PropertyLocker interface {
	Acquire(ctx context.Context, propertyID uint64) error
	Release(ctx context.Context, propertyID uint64) error
}

type memoryPropertyLocker struct {
	mu    sync.Mutex
	locks map[uint64]*sync.Mutex
}

func NewMemoryPropertyLocker() PropertyLocker {
	return &memoryPropertyLocker{
		locks: map[uint64]*sync.Mutex{},
	}
}

func (l *memoryPropertyLocker) Acquire(ctx context.Context, propertyID uint64) error {
	l.mu.Lock()
	m, ok := l.locks[propertyID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[propertyID] = m
	}
	l.mu.Unlock()

	m.Lock()
	return nil
}

func (l *memoryPropertyLocker) Release(ctx context.Context, propertyID uint64) error {
	l.mu.Lock()
	m, ok := l.locks[propertyID]
	l.mu.Unlock()

	if !ok {
		return fmt.Errorf("release of unheld property lock %d", propertyID)
	}
	m.Unlock()
	return nil
}

type mongoPropertyLocker struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoPropertyLocker(cfg *config.Config) PropertyLocker {
	database := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoPropertyLocker{
		cfg:        cfg,
		collection: database.Collection(LockCollectionName),
	}
}

// Acquire inserts the lock document keyed by property id. A duplicate key
// means another request holds it; the TTL index on expires_at reaps locks
// abandoned by a crashed holder.
func (l *mongoPropertyLocker) Acquire(ctx context.Context, propertyID uint64) error {
	lock := &model.PropertyLock{
		PropertyID: propertyID,
		ExpiresAt:  time.Now().Add(l.cfg.LockTTL),
		CreatedAt:  time.Now(),
	}

	_, err := l.collection.InsertOne(ctx, lock)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return apperrors.Conflict("This property is currently being modified by another request. Please try again.")
		}
		return apperrors.Internal("Failed to acquire property lock", err)
	}

	return nil
}

func (l *mongoPropertyLocker) Release(ctx context.Context, propertyID uint64) error {
	_, err := l.collection.DeleteOne(ctx, bson.M{"_id": propertyID})
	return err
}
