package repository

import (
	"context"
	bookingserrors "stayledger/internal/bookings/errors"
	"stayledger/pkg/db"
	"stayledger/pkg/model"
	"sync"
	"time"
)

// memoryBookingRepository keeps the ledger in an append-only slice. Ids
// are gapless and start at 0, so a booking's id doubles as its index.
// Reads hand out copies; ledger entries are immutable facts.
type memoryBookingRepository struct {
	mu        sync.RWMutex
	items     []*model.Booking
	txManager db.TransactionManager
}

func NewMemoryBookingRepository() BookingRepository {
	return &memoryBookingRepository{
		txManager: db.NewNoopTransactionManager(),
	}
}

func cloneBooking(b *model.Booking) *model.Booking {
	out := *b
	return &out
}

func (r *memoryBookingRepository) Create(ctx context.Context, booking *model.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	booking.ID = uint64(len(r.items))
	booking.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)
	r.items = append(r.items, cloneBooking(booking))
	return nil
}

func (r *memoryBookingRepository) SetReference(ctx context.Context, id uint64, reference string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if id >= uint64(len(r.items)) {
		return bookingserrors.ErrNotFound
	}
	r.items[id].Reference = reference
	return nil
}

func (r *memoryBookingRepository) FindByID(ctx context.Context, id uint64) (*model.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if id >= uint64(len(r.items)) {
		return nil, bookingserrors.ErrNotFound
	}
	return cloneBooking(r.items[id]), nil
}

func (r *memoryBookingRepository) FindAll(ctx context.Context, limit int, offset int64) ([]*model.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	bookings := []*model.Booking{}
	if offset < 0 || offset >= int64(len(r.items)) {
		return bookings, nil
	}

	end := offset + int64(limit)
	if end > int64(len(r.items)) {
		end = int64(len(r.items))
	}
	for _, b := range r.items[offset:end] {
		bookings = append(bookings, cloneBooking(b))
	}
	return bookings, nil
}

func (r *memoryBookingRepository) FindByProperty(ctx context.Context, propertyID uint64, limit int, offset int64) ([]*model.Booking, error) {
	return r.filter(func(b *model.Booking) bool { return b.PropertyID == propertyID }, limit, offset)
}

func (r *memoryBookingRepository) FindByRenter(ctx context.Context, renter model.AccountID, limit int, offset int64) ([]*model.Booking, error) {
	return r.filter(func(b *model.Booking) bool { return b.Renter == renter }, limit, offset)
}

func (r *memoryBookingRepository) filter(match func(*model.Booking) bool, limit int, offset int64) ([]*model.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	bookings := []*model.Booking{}
	var skipped int64
	for _, b := range r.items {
		if !match(b) {
			continue
		}
		if skipped < offset {
			skipped++
			continue
		}
		bookings = append(bookings, cloneBooking(b))
		if len(bookings) == limit {
			break
		}
	}
	return bookings, nil
}

func (r *memoryBookingRepository) Count(ctx context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.items)), nil
}

func (r *memoryBookingRepository) CountByProperty(ctx context.Context, propertyID uint64) (int64, error) {
	return r.countMatching(func(b *model.Booking) bool { return b.PropertyID == propertyID })
}

func (r *memoryBookingRepository) CountByRenter(ctx context.Context, renter model.AccountID) (int64, error) {
	return r.countMatching(func(b *model.Booking) bool { return b.Renter == renter })
}

func (r *memoryBookingRepository) countMatching(match func(*model.Booking) bool) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var count int64
	for _, b := range r.items {
		if match(b) {
			count++
		}
	}
	return count, nil
}

func (r *memoryBookingRepository) ExecuteTransaction(ctx context.Context, fn db.TransactionFunc) error {
	return r.txManager.ExecuteTransaction(ctx, fn)
}
