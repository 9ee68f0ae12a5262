package repository

import (
	"context"
	"errors"
	"fmt"
	"stayledger/pkg/config"
	"stayledger/pkg/db"
	"stayledger/pkg/logger"
	"stayledger/pkg/model"
	"time"

	"github.com/bradfitz/gomemcache/memcache"
	"github.com/karlseguin/ccache/v3"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// CachedPropertyRepository is a read-through decorator over the mongo
// store: an in-process ccache tier backed by an optional shared memcached
// tier. Only FindByID is cached; list reads and counts always hit the
// store. Cached views can lag a calendar reservation by up to the TTL,
// which is why settlement resolves properties through transactional
// reads that bypass the cache.
type CachedPropertyRepository struct {
	next   PropertyRepository
	local  *ccache.Cache[*model.Property]
	remote *memcache.Client
	ttl    time.Duration
	log    *logger.Logger
}

func NewCachedPropertyRepository(next PropertyRepository, cfg *config.Config) *CachedPropertyRepository {
	var remote *memcache.Client
	if cfg.MemcachedAddr != "" {
		remote = memcache.New(cfg.MemcachedAddr)
		cfg.Log.Info("Property cache using memcached tier", "addr", cfg.MemcachedAddr)
	}

	return &CachedPropertyRepository{
		next:   next,
		local:  ccache.New(ccache.Configure[*model.Property]().MaxSize(int64(cfg.CacheMaxSize))),
		remote: remote,
		ttl:    cfg.CacheTTL,
		log:    cfg.Log,
	}
}

func cacheKey(id uint64) string {
	return fmt.Sprintf("property:%d", id)
}

func (r *CachedPropertyRepository) FindByID(ctx context.Context, id uint64) (*model.Property, error) {
	if _, ok := ctx.(mongo.SessionContext); ok {
		// Transactional reads need the current document, not a cached view.
		return r.next.FindByID(ctx, id)
	}

	key := cacheKey(id)
	if item := r.local.Get(key); item != nil && !item.Expired() {
		return cloneProperty(item.Value()), nil
	}

	if r.remote != nil {
		if cached, err := r.remote.Get(key); err == nil {
			var property model.Property
			if err := bson.Unmarshal(cached.Value, &property); err == nil {
				r.local.Set(key, &property, r.ttl)
				return cloneProperty(&property), nil
			}
			r.log.Warn("Discarding undecodable cached property", "key", key)
		}
	}

	property, err := r.next.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	r.store(key, property)
	return property, nil
}

func (r *CachedPropertyRepository) Create(ctx context.Context, property *model.Property) error {
	if err := r.next.Create(ctx, property); err != nil {
		return err
	}
	r.store(cacheKey(property.ID), property)
	return nil
}

func (r *CachedPropertyRepository) Deactivate(ctx context.Context, id uint64, at time.Time) error {
	if err := r.next.Deactivate(ctx, id, at); err != nil {
		return err
	}
	r.invalidate(cacheKey(id))
	return nil
}

func (r *CachedPropertyRepository) ReserveRange(ctx context.Context, id uint64, checkIn, checkout uint64) error {
	if err := r.next.ReserveRange(ctx, id, checkIn, checkout); err != nil {
		return err
	}
	r.invalidate(cacheKey(id))
	return nil
}

func (r *CachedPropertyRepository) FindAll(ctx context.Context, limit int, offset int64) ([]*model.Property, error) {
	return r.next.FindAll(ctx, limit, offset)
}

func (r *CachedPropertyRepository) FindByOwner(ctx context.Context, owner model.AccountID, limit int, offset int64) ([]*model.Property, error) {
	return r.next.FindByOwner(ctx, owner, limit, offset)
}

func (r *CachedPropertyRepository) Count(ctx context.Context) (int64, error) {
	return r.next.Count(ctx)
}

func (r *CachedPropertyRepository) CountByOwner(ctx context.Context, owner model.AccountID) (int64, error) {
	return r.next.CountByOwner(ctx, owner)
}

func (r *CachedPropertyRepository) ExecuteTransaction(ctx context.Context, fn db.TransactionFunc) error {
	return r.next.ExecuteTransaction(ctx, fn)
}

// Stop shuts down the local tier's eviction worker.
func (r *CachedPropertyRepository) Stop() {
	r.local.Stop()
}

func (r *CachedPropertyRepository) store(key string, property *model.Property) {
	cached := cloneProperty(property)
	r.local.Set(key, cached, r.ttl)

	if r.remote == nil {
		return
	}
	data, err := bson.Marshal(cached)
	if err != nil {
		r.log.Warn("Failed to encode property for cache", "key", key, "error", err)
		return
	}
	if err := r.remote.Set(&memcache.Item{
		Key:        key,
		Value:      data,
		Expiration: int32(r.ttl.Seconds()),
	}); err != nil {
		r.log.Warn("Failed to store property in memcached", "key", key, "error", err)
	}
}

func (r *CachedPropertyRepository) invalidate(key string) {
	r.local.Delete(key)

	if r.remote == nil {
		return
	}
	if err := r.remote.Delete(key); err != nil && !errors.Is(err, memcache.ErrCacheMiss) {
		r.log.Warn("Failed to invalidate property in memcached", "key", key, "error", err)
	}
}
