package service

import (
	"context"
	"errors"
	bookingserrors "stayledger/internal/bookings/errors"
	"stayledger/internal/bookings/repository"
	"stayledger/internal/bookings/validator"
	propertieserrors "stayledger/internal/properties/errors"
	propertiesrepo "stayledger/internal/properties/repository"
	"stayledger/pkg/config"
	apperrors "stayledger/pkg/errors"
	"stayledger/pkg/events"
	"stayledger/pkg/model"
	"stayledger/pkg/payments"
	"stayledger/pkg/sanitizer"
	"stayledger/pkg/sealer"
	"sync"
)

type BookingService interface {
	Create(ctx context.Context, renter model.AccountID, req *model.BookingRequest) (*model.Booking, error)
	GetByID(ctx context.Context, id uint64) (*model.Booking, error)
	GetByReference(ctx context.Context, code string) (*model.Booking, error)
	GetAll(ctx context.Context, limit int, offset int64) ([]*model.Booking, int64, error)
	GetByProperty(ctx context.Context, propertyID uint64, limit int, offset int64) ([]*model.Booking, int64, error)
	GetByRenter(ctx context.Context, renter model.AccountID, limit int, offset int64) ([]*model.Booking, int64, error)
}

// bookingService is the settlement engine. Create runs the whole
// decision ladder inside the per-property lock: resolve, active check,
// range shape, calendar availability, exact payment, fund transfer, and
// only then the calendar reservation and ledger append. Funds move
// before any store mutation; a rejected attempt leaves every store
// exactly as it was.
type bookingService struct {
	repo      repository.BookingRepository
	propRepo  propertiesrepo.PropertyRepository
	locker    propertiesrepo.PropertyLocker
	validator *validator.BookingValidator
	gateway   payments.Gateway
	sealer    *sealer.Sealer
	publisher events.Publisher
	cfg       *config.Config
}

func NewBookingService(
	repo repository.BookingRepository,
	propRepo propertiesrepo.PropertyRepository,
	locker propertiesrepo.PropertyLocker,
	validator *validator.BookingValidator,
	gateway payments.Gateway,
	sealer *sealer.Sealer,
	publisher events.Publisher,
	cfg *config.Config,
) BookingService {
	return &bookingService{
		repo:      repo,
		propRepo:  propRepo,
		locker:    locker,
		validator: validator,
		gateway:   gateway,
		sealer:    sealer,
		publisher: publisher,
		cfg:       cfg,
	}
}

func (s *bookingService) Create(ctx context.Context, renter model.AccountID, req *model.BookingRequest) (*model.Booking, error) {
	renter, err := s.cleanAccount(renter)
	if err != nil {
		return nil, err
	}

	if err := s.validator.Validate(req); err != nil {
		s.cfg.Log.Warn("Booking validation failed", "error", err)
		return nil, apperrors.Validation("Booking validation failed", map[string]any{"error": err.Error()})
	}

	booking, err := s.settle(ctx, renter, *req.PropertyID, *req.CheckIn, *req.Checkout, *req.PaidAmount)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.BookingCreated(booking))
	return booking, nil
}

// settle holds the property lock for the full decision ladder. Readers
// outside the lock may see a stale calendar; writers never do.
func (s *bookingService) settle(ctx context.Context, renter model.AccountID, propertyID, checkIn, checkout, paid uint64) (*model.Booking, error) {
	if err := s.locker.Acquire(ctx, propertyID); err != nil {
		return nil, err
	}
	defer func() {
		if releaseErr := s.locker.Release(ctx, propertyID); releaseErr != nil {
			s.cfg.Log.Warn("Failed to release property lock", "property_id", propertyID, "error", releaseErr)
		}
	}()

	property, err := s.propRepo.FindByID(ctx, propertyID)
	if err != nil {
		if errors.Is(err, propertieserrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Property", propertyID)
		}
		return nil, apperrors.Internal("Failed to resolve property", err)
	}

	if !property.Active {
		return nil, apperrors.PropertyInactive(propertyID)
	}

	if checkIn >= checkout {
		return nil, apperrors.InvalidRange(checkIn, checkout)
	}

	if !property.Calendar.IsRangeFree(checkIn, checkout) {
		return nil, apperrors.DateConflict(propertyID, checkIn, checkout)
	}

	required, ok := totalPrice(property.PricePerDay, checkout-checkIn)
	if !ok {
		return nil, apperrors.Validation("Total price overflows", map[string]any{
			"price_per_day": property.PricePerDay,
			"days":          checkout - checkIn,
		})
	}
	if paid != required {
		return nil, apperrors.InsufficientPayment(paid, required)
	}

	// Funds move first. A failed transfer must leave the stores untouched.
	if err := s.gateway.Transfer(ctx, renter, property.Owner, paid); err != nil {
		s.cfg.Log.Warn("Payment transfer failed",
			"property_id", propertyID,
			"renter", renter,
			"amount", paid,
			"error", err,
		)
		return nil, apperrors.TransferFailed(err)
	}

	booking := &model.Booking{
		PropertyID: propertyID,
		CheckIn:    checkIn,
		Checkout:   checkout,
		Renter:     renter,
		Price:      paid,
	}

	err = s.repo.ExecuteTransaction(ctx, func(txCtx context.Context) error {
		if err := s.propRepo.ReserveRange(txCtx, propertyID, checkIn, checkout); err != nil {
			return apperrors.Internal("Failed to reserve calendar days", err)
		}
		if err := s.repo.Create(txCtx, booking); err != nil {
			return apperrors.Internal("Failed to append booking", err)
		}

		reference, err := s.sealer.SealConfirmation(booking.ID, string(renter))
		if err != nil {
			return apperrors.Internal("Failed to seal confirmation code", err)
		}
		booking.Reference = reference
		if err := s.repo.SetReference(txCtx, booking.ID, reference); err != nil {
			return apperrors.Internal("Failed to record confirmation code", err)
		}
		return nil
	})
	if err != nil {
		// The renter already paid; push the funds back.
		s.refund(ctx, property.Owner, renter, paid)
		s.cfg.Log.Error("Failed to commit booking",
			"property_id", propertyID,
			"renter", renter,
			"error", err,
		)
		return nil, err
	}

	s.cfg.Log.Info("Booking settled",
		"id", booking.ID,
		"property_id", propertyID,
		"renter", renter,
		"check_in", checkIn,
		"checkout", checkout,
		"price", paid,
	)
	return booking, nil
}

func (s *bookingService) GetByID(ctx context.Context, id uint64) (*model.Booking, error) {
	booking, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, bookingserrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Booking", id)
		}
		return nil, apperrors.Internal("Failed to retrieve booking", err)
	}

	return booking, nil
}

func (s *bookingService) GetByReference(ctx context.Context, code string) (*model.Booking, error) {
	if code == "" {
		return nil, apperrors.InvalidInput("Confirmation code cannot be empty")
	}

	id, renter, err := s.sealer.OpenConfirmation(code)
	if err != nil {
		// Forged or corrupted codes are indistinguishable from unknown ones.
		return nil, apperrors.NotFound("Booking")
	}

	booking, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, bookingserrors.ErrNotFound) {
			return nil, apperrors.NotFound("Booking")
		}
		return nil, apperrors.Internal("Failed to retrieve booking", err)
	}

	if string(booking.Renter) != renter || booking.Reference != code {
		return nil, apperrors.NotFound("Booking")
	}

	return booking, nil
}

func (s *bookingService) GetAll(ctx context.Context, limit int, offset int64) ([]*model.Booking, int64, error) {
	return s.list(ctx,
		func(ctx context.Context) (int64, error) { return s.repo.Count(ctx) },
		func(ctx context.Context) ([]*model.Booking, error) { return s.repo.FindAll(ctx, limit, offset) },
	)
}

func (s *bookingService) GetByProperty(ctx context.Context, propertyID uint64, limit int, offset int64) ([]*model.Booking, int64, error) {
	return s.list(ctx,
		func(ctx context.Context) (int64, error) { return s.repo.CountByProperty(ctx, propertyID) },
		func(ctx context.Context) ([]*model.Booking, error) {
			return s.repo.FindByProperty(ctx, propertyID, limit, offset)
		},
	)
}

func (s *bookingService) GetByRenter(ctx context.Context, renter model.AccountID, limit int, offset int64) ([]*model.Booking, int64, error) {
	renter, err := s.cleanAccount(renter)
	if err != nil {
		return nil, 0, err
	}

	return s.list(ctx,
		func(ctx context.Context) (int64, error) { return s.repo.CountByRenter(ctx, renter) },
		func(ctx context.Context) ([]*model.Booking, error) {
			return s.repo.FindByRenter(ctx, renter, limit, offset)
		},
	)
}

// list runs the count and the page fetch in parallel.
func (s *bookingService) list(
	ctx context.Context,
	countFn func(context.Context) (int64, error),
	findFn func(context.Context) ([]*model.Booking, error),
) ([]*model.Booking, int64, error) {
	var count int64
	var bookings []*model.Booking
	var errCount, errFind error
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		count, errCount = countFn(ctx)
		if errCount != nil {
			s.cfg.Log.Error("Failed to count bookings", "error", errCount)
			errCount = apperrors.Internal("Failed to count bookings", errCount)
		}
	}()

	go func() {
		defer wg.Done()
		bookings, errFind = findFn(ctx)
		if errFind != nil {
			s.cfg.Log.Error("Failed to list bookings", "error", errFind)
			errFind = apperrors.Internal("Failed to retrieve bookings", errFind)
		}
	}()

	wg.Wait()
	if errCount != nil {
		return nil, 0, errCount
	}
	if errFind != nil {
		return nil, 0, errFind
	}

	return bookings, count, nil
}

// --- Helpers ---

func totalPrice(pricePerDay, days uint64) (uint64, bool) {
	if pricePerDay == 0 || days == 0 {
		return 0, true
	}
	total := pricePerDay * days
	if total/pricePerDay != days {
		return 0, false
	}
	return total, true
}

func (s *bookingService) cleanAccount(account model.AccountID) (model.AccountID, error) {
	account = model.AccountID(sanitizer.SanitizeAccountID(string(account)))
	if err := s.validator.ValidateAccount(account); err != nil {
		return "", apperrors.Validation("Invalid account id", map[string]any{"error": err.Error()})
	}
	return account, nil
}

func (s *bookingService) refund(ctx context.Context, owner, renter model.AccountID, amount uint64) {
	if err := s.gateway.Transfer(ctx, owner, renter, amount); err != nil {
		s.cfg.Log.Error("Compensating refund failed, funds need manual reconciliation",
			"owner", owner,
			"renter", renter,
			"amount", amount,
			"error", err,
		)
	}
}

func (s *bookingService) publish(ctx context.Context, event events.Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.cfg.Log.Warn("Failed to publish event", "type", event.Type, "key", event.Key, "error", err)
	}
}
