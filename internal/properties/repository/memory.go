package repository

import (
	"context"
	propertieserrors "stayledger/internal/properties/errors"
	"stayledger/pkg/db"
	"stayledger/pkg/model"
	"sync"
	"time"
)

// memoryPropertyRepository keeps properties in an append-only slice. Ids
// are gapless and start at 0, so a property's id doubles as its index.
// Reads hand out deep copies; the stored structs are never aliased.
type memoryPropertyRepository struct {
	mu        sync.RWMutex
	items     []*model.Property
	txManager db.TransactionManager
}

func NewMemoryPropertyRepository() PropertyRepository {
	return &memoryPropertyRepository{
		txManager: db.NewNoopTransactionManager(),
	}
}

func cloneProperty(p *model.Property) *model.Property {
	out := *p
	out.Calendar = p.Calendar.Clone()
	if p.DeactivatedAt != nil {
		at := *p.DeactivatedAt
		out.DeactivatedAt = &at
	}
	return &out
}

func (r *memoryPropertyRepository) Create(ctx context.Context, property *model.Property) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	property.ID = uint64(len(r.items))
	property.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)
	r.items = append(r.items, cloneProperty(property))
	return nil
}

func (r *memoryPropertyRepository) FindByID(ctx context.Context, id uint64) (*model.Property, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if id >= uint64(len(r.items)) {
		return nil, propertieserrors.ErrNotFound
	}
	return cloneProperty(r.items[id]), nil
}

func (r *memoryPropertyRepository) FindAll(ctx context.Context, limit int, offset int64) ([]*model.Property, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	properties := []*model.Property{}
	if offset < 0 || offset >= int64(len(r.items)) {
		return properties, nil
	}

	end := offset + int64(limit)
	if end > int64(len(r.items)) {
		end = int64(len(r.items))
	}
	for _, p := range r.items[offset:end] {
		properties = append(properties, cloneProperty(p))
	}
	return properties, nil
}

func (r *memoryPropertyRepository) FindByOwner(ctx context.Context, owner model.AccountID, limit int, offset int64) ([]*model.Property, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	properties := []*model.Property{}
	var skipped int64
	for _, p := range r.items {
		if p.Owner != owner {
			continue
		}
		if skipped < offset {
			skipped++
			continue
		}
		properties = append(properties, cloneProperty(p))
		if len(properties) == limit {
			break
		}
	}
	return properties, nil
}

func (r *memoryPropertyRepository) Count(ctx context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.items)), nil
}

func (r *memoryPropertyRepository) CountByOwner(ctx context.Context, owner model.AccountID) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var count int64
	for _, p := range r.items {
		if p.Owner == owner {
			count++
		}
	}
	return count, nil
}

func (r *memoryPropertyRepository) Deactivate(ctx context.Context, id uint64, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if id >= uint64(len(r.items)) {
		return propertieserrors.ErrNotFound
	}

	p := r.items[id]
	if !p.Active {
		return nil
	}
	p.Active = false
	p.DeactivatedAt = &at
	return nil
}

func (r *memoryPropertyRepository) ReserveRange(ctx context.Context, id uint64, checkIn, checkout uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if id >= uint64(len(r.items)) {
		return propertieserrors.ErrNotFound
	}

	r.items[id].Calendar.Reserve(checkIn, checkout)
	return nil
}

func (r *memoryPropertyRepository) ExecuteTransaction(ctx context.Context, fn db.TransactionFunc) error {
	return r.txManager.ExecuteTransaction(ctx, fn)
}
