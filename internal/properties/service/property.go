package service

import (
	"context"
	"errors"
	propertieserrors "stayledger/internal/properties/errors"
	"stayledger/internal/properties/repository"
	"stayledger/internal/properties/validator"
	"stayledger/pkg/config"
	apperrors "stayledger/pkg/errors"
	"stayledger/pkg/events"
	"stayledger/pkg/model"
	"stayledger/pkg/sanitizer"
	"sync"
	"time"
)

type PropertyService interface {
	Create(ctx context.Context, owner model.AccountID, req *model.PropertyRequest) (*model.Property, error)
	GetByID(ctx context.Context, id uint64) (*model.Property, error)
	GetAll(ctx context.Context, limit int, offset int64) ([]*model.Property, int64, error)
	GetByOwner(ctx context.Context, owner model.AccountID, limit int, offset int64) ([]*model.Property, int64, error)
	Deactivate(ctx context.Context, id uint64, requester model.AccountID) error
	CheckAvailability(ctx context.Context, id uint64, checkIn, checkout uint64) (bool, error)
}

type propertyService struct {
	repo      repository.PropertyRepository
	locker    repository.PropertyLocker
	validator *validator.PropertyValidator
	publisher events.Publisher
	cfg       *config.Config
}

func NewPropertyService(
	repo repository.PropertyRepository,
	locker repository.PropertyLocker,
	validator *validator.PropertyValidator,
	publisher events.Publisher,
	cfg *config.Config,
) PropertyService {
	return &propertyService{
		repo:      repo,
		locker:    locker,
		validator: validator,
		publisher: publisher,
		cfg:       cfg,
	}
}

func (s *propertyService) Create(ctx context.Context, owner model.AccountID, req *model.PropertyRequest) (*model.Property, error) {
	owner, err := s.cleanAccount(owner)
	if err != nil {
		return nil, err
	}

	s.sanitize(req)
	if err := s.validator.Validate(req); err != nil {
		s.cfg.Log.Warn("Property validation failed", "error", err)
		return nil, apperrors.Validation("Property validation failed", map[string]any{"error": err.Error()})
	}

	property := &model.Property{
		Owner:       owner,
		Name:        req.Name,
		Description: req.Description,
		PricePerDay: req.PricePerDay,
		Active:      true,
	}

	err = s.repo.ExecuteTransaction(ctx, func(txCtx context.Context) error {
		if err := s.repo.Create(txCtx, property); err != nil {
			return apperrors.Internal("Failed to create property", err)
		}
		return nil
	})
	if err != nil {
		s.cfg.Log.Error("Failed to create property", "error", err)
		return nil, err
	}

	s.cfg.Log.Info("Property listed",
		"id", property.ID,
		"owner", property.Owner,
		"price_per_day", property.PricePerDay,
	)
	s.publish(ctx, events.PropertyListed(property))
	return property, nil
}

func (s *propertyService) GetByID(ctx context.Context, id uint64) (*model.Property, error) {
	property, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, propertieserrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Property", id)
		}
		return nil, apperrors.Internal("Failed to retrieve property", err)
	}

	return property, nil
}

func (s *propertyService) GetAll(ctx context.Context, limit int, offset int64) ([]*model.Property, int64, error) {
	var count int64
	var properties []*model.Property
	var errCount, errFind error
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		count, errCount = s.repo.Count(ctx)
		if errCount != nil {
			s.cfg.Log.Error("Failed to count properties", "error", errCount)
			errCount = apperrors.Internal("Failed to count properties", errCount)
		}
	}()

	go func() {
		defer wg.Done()
		properties, errFind = s.repo.FindAll(ctx, limit, offset)
		if errFind != nil {
			s.cfg.Log.Error("Failed to list properties", "error", errFind)
			errFind = apperrors.Internal("Failed to retrieve properties", errFind)
		}
	}()

	wg.Wait()
	if errCount != nil {
		return nil, 0, errCount
	}
	if errFind != nil {
		return nil, 0, errFind
	}

	return properties, count, nil
}

func (s *propertyService) GetByOwner(ctx context.Context, owner model.AccountID, limit int, offset int64) ([]*model.Property, int64, error) {
	owner, err := s.cleanAccount(owner)
	if err != nil {
		return nil, 0, err
	}

	var count int64
	var properties []*model.Property
	var errCount, errFind error
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		count, errCount = s.repo.CountByOwner(ctx, owner)
		if errCount != nil {
			s.cfg.Log.Error("Failed to count properties by owner", "owner", owner, "error", errCount)
			errCount = apperrors.Internal("Failed to count properties", errCount)
		}
	}()

	go func() {
		defer wg.Done()
		properties, errFind = s.repo.FindByOwner(ctx, owner, limit, offset)
		if errFind != nil {
			s.cfg.Log.Error("Failed to list properties by owner", "owner", owner, "error", errFind)
			errFind = apperrors.Internal("Failed to retrieve properties", errFind)
		}
	}()

	wg.Wait()
	if errCount != nil {
		return nil, 0, errCount
	}
	if errFind != nil {
		return nil, 0, errFind
	}

	return properties, count, nil
}

func (s *propertyService) Deactivate(ctx context.Context, id uint64, requester model.AccountID) error {
	requester, err := s.cleanAccount(requester)
	if err != nil {
		return err
	}

	if err := s.locker.Acquire(ctx, id); err != nil {
		return err
	}
	defer func() {
		if releaseErr := s.locker.Release(ctx, id); releaseErr != nil {
			s.cfg.Log.Warn("Failed to release property lock", "property_id", id, "error", releaseErr)
		}
	}()

	property, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, propertieserrors.ErrNotFound) {
			return apperrors.NotFoundWithID("Property", id)
		}
		return apperrors.Internal("Failed to retrieve property", err)
	}

	if !property.OwnedBy(requester) {
		s.cfg.Log.Warn("Deactivation denied",
			"property_id", id,
			"owner", property.Owner,
			"requester", requester,
		)
		return apperrors.Unauthorized("Only the property owner may deactivate it")
	}

	if !property.Active {
		s.cfg.Log.Debug("Property already inactive", "property_id", id)
		return nil
	}

	now := time.Now().UTC().Truncate(time.Millisecond)
	err = s.repo.ExecuteTransaction(ctx, func(txCtx context.Context) error {
		if err := s.repo.Deactivate(txCtx, id, now); err != nil {
			if errors.Is(err, propertieserrors.ErrNotFound) {
				return apperrors.NotFoundWithID("Property", id)
			}
			return apperrors.Internal("Failed to deactivate property", err)
		}
		return nil
	})
	if err != nil {
		s.cfg.Log.Error("Failed to deactivate property", "property_id", id, "error", err)
		return err
	}

	property.Active = false
	property.DeactivatedAt = &now
	s.cfg.Log.Info("Property deactivated", "property_id", id, "owner", property.Owner)
	s.publish(ctx, events.PropertyDeactivated(property))
	return nil
}

func (s *propertyService) CheckAvailability(ctx context.Context, id uint64, checkIn, checkout uint64) (bool, error) {
	if checkIn >= checkout {
		return false, apperrors.InvalidRange(checkIn, checkout)
	}
	if checkout > s.cfg.BookingHorizonDays {
		return false, apperrors.Validation("Requested range exceeds the booking horizon", map[string]any{
			"checkout":     checkout,
			"horizon_days": s.cfg.BookingHorizonDays,
		})
	}

	property, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, propertieserrors.ErrNotFound) {
			return false, apperrors.NotFoundWithID("Property", id)
		}
		return false, apperrors.Internal("Failed to retrieve property", err)
	}

	return property.Calendar.IsRangeFree(checkIn, checkout), nil
}

// --- Helpers ---

func (s *propertyService) sanitize(req *model.PropertyRequest) {
	req.Name = sanitizer.SanitizeName(req.Name)
	req.Description = sanitizer.SanitizeDescription(req.Description)
}

func (s *propertyService) cleanAccount(account model.AccountID) (model.AccountID, error) {
	account = model.AccountID(sanitizer.SanitizeAccountID(string(account)))
	if err := s.validator.ValidateAccount(account); err != nil {
		return "", apperrors.Validation("Invalid account id", map[string]any{"error": err.Error()})
	}
	return account, nil
}

func (s *propertyService) publish(ctx context.Context, event events.Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.cfg.Log.Warn("Failed to publish event", "type", event.Type, "key", event.Key, "error", err)
	}
}
