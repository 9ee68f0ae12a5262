package service

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"sort"
	"stayledger/internal/bookings/repository"
	"stayledger/internal/bookings/validator"
	propertiesrepo "stayledger/internal/properties/repository"
	"stayledger/pkg/config"
	apperrors "stayledger/pkg/errors"
	"stayledger/pkg/events"
	"stayledger/pkg/logger"
	"stayledger/pkg/model"
	"stayledger/pkg/payments"
	"stayledger/pkg/sealer"
	"sync"
	"testing"
	"time"
)

const initialGrant = 1_000_000

type capturePublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *capturePublisher) Publish(ctx context.Context, event events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *capturePublisher) Close() error { return nil }

func (p *capturePublisher) byType(eventType string) []events.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []events.Event
	for _, e := range p.events {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}

type fixture struct {
	svc       BookingService
	bookings  repository.BookingRepository
	props     propertiesrepo.PropertyRepository
	vault     *payments.Vault
	sealer    *sealer.Sealer
	publisher *capturePublisher
	cfg       *config.Config
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	cfg := &config.Config{
		Log: logger.New(logger.Config{
			Level:  logger.ERROR,
			Format: logger.JSON,
			Output: io.Discard,
		}),
		ReadTimeout:        5 * time.Second,
		WriteTimeout:       5 * time.Second,
		BookingHorizonDays: 1 << 20,
	}

	seal, err := sealer.New("")
	if err != nil {
		t.Fatalf("sealer: %v", err)
	}

	f := &fixture{
		bookings:  repository.NewMemoryBookingRepository(),
		props:     propertiesrepo.NewMemoryPropertyRepository(),
		vault:     payments.NewVault(initialGrant),
		sealer:    seal,
		publisher: &capturePublisher{},
		cfg:       cfg,
	}
	f.svc = NewBookingService(
		f.bookings,
		f.props,
		propertiesrepo.NewMemoryPropertyLocker(),
		validator.NewBookingValidator(cfg.Log, cfg.BookingHorizonDays),
		f.vault,
		f.sealer,
		f.publisher,
		cfg,
	)
	return f
}

func (f *fixture) listProperty(t *testing.T, owner model.AccountID, price uint64) *model.Property {
	t.Helper()
	p := &model.Property{
		Owner:       owner,
		Name:        "Sea View Flat",
		PricePerDay: price,
		Active:      true,
	}
	if err := f.props.Create(context.Background(), p); err != nil {
		t.Fatalf("create property: %v", err)
	}
	return p
}

func (f *fixture) book(renter model.AccountID, propertyID, checkIn, checkout, paid uint64) (*model.Booking, error) {
	return f.svc.Create(context.Background(), renter, &model.BookingRequest{
		PropertyID: &propertyID,
		CheckIn:    &checkIn,
		Checkout:   &checkout,
		PaidAmount: &paid,
	})
}

func (f *fixture) mustBook(t *testing.T, renter model.AccountID, propertyID, checkIn, checkout, paid uint64) *model.Booking {
	t.Helper()
	booking, err := f.book(renter, propertyID, checkIn, checkout, paid)
	if err != nil {
		t.Fatalf("book [%d, %d) for %s: %v", checkIn, checkout, renter, err)
	}
	return booking
}

func (f *fixture) balance(t *testing.T, account model.AccountID) uint64 {
	t.Helper()
	balance, err := f.vault.Balance(context.Background(), account)
	if err != nil {
		t.Fatalf("balance of %s: %v", account, err)
	}
	return balance
}

func (f *fixture) ledgerCount(t *testing.T) int64 {
	t.Helper()
	count, err := f.bookings.Count(context.Background())
	if err != nil {
		t.Fatalf("count bookings: %v", err)
	}
	return count
}

func (f *fixture) calendar(t *testing.T, propertyID uint64) *model.Property {
	t.Helper()
	p, err := f.props.FindByID(context.Background(), propertyID)
	if err != nil {
		t.Fatalf("find property %d: %v", propertyID, err)
	}
	return p
}

// ────────────────────────────────────────────────
// The worked settlement scenario
// ────────────────────────────────────────────────

func TestSettlementScenario(t *testing.T) {
	f := newFixture(t)
	property := f.listProperty(t, "owner", 10)

	first := f.mustBook(t, "renter1", property.ID, 5, 8, 30)
	if first.ID != 0 {
		t.Errorf("expected first booking id 0, got %d", first.ID)
	}
	if first.Price != 30 {
		t.Errorf("expected recorded price 30, got %d", first.Price)
	}

	p := f.calendar(t, property.ID)
	for d := uint64(5); d < 8; d++ {
		if !p.Calendar.Occupied(d) {
			t.Errorf("expected day %d occupied after settlement", d)
		}
	}
	if p.Calendar.Occupied(4) || p.Calendar.Occupied(8) {
		t.Error("settlement reserved days outside [5, 8)")
	}

	_, err := f.book("renter2", property.ID, 6, 9, 30)
	if !apperrors.HasCode(err, apperrors.CodeDateConflict) {
		t.Fatalf("expected DATE_CONFLICT for [6, 9), got %v", err)
	}

	second := f.mustBook(t, "renter2", property.ID, 8, 10, 20)
	if second.ID != 1 {
		t.Errorf("expected second settled booking id 1 (no gap), got %d", second.ID)
	}

	created := f.publisher.byType(events.TypeBookingCreated)
	if len(created) != 2 {
		t.Fatalf("expected 2 booking events, got %d", len(created))
	}
	for _, e := range created {
		if e.Key != fmt.Sprintf("%d", property.ID) {
			t.Errorf("expected events keyed by property id, got key %s", e.Key)
		}
	}
}

// ────────────────────────────────────────────────
// No double-booking under concurrency
// ────────────────────────────────────────────────

func TestNoDoubleBookingUnderConcurrency(t *testing.T) {
	f := newFixture(t)
	property := f.listProperty(t, "owner", 1)

	type attempt struct {
		renter   model.AccountID
		checkIn  uint64
		checkout uint64
	}

	rng := rand.New(rand.NewSource(7))
	attempts := make([]attempt, 48)
	for i := range attempts {
		start := uint64(rng.Intn(40))
		span := uint64(rng.Intn(6) + 1)
		attempts[i] = attempt{
			renter:   model.AccountID(fmt.Sprintf("renter%d", i)),
			checkIn:  start,
			checkout: start + span,
		}
	}

	var wg sync.WaitGroup
	results := make([]*model.Booking, len(attempts))
	for i, a := range attempts {
		wg.Add(1)
		go func(i int, a attempt) {
			defer wg.Done()
			paid := a.checkout - a.checkIn
			booking, err := f.book(a.renter, property.ID, a.checkIn, a.checkout, paid)
			if err == nil {
				results[i] = booking
			}
		}(i, a)
	}
	wg.Wait()

	var committed []*model.Booking
	for _, b := range results {
		if b != nil {
			committed = append(committed, b)
		}
	}
	if len(committed) == 0 {
		t.Fatal("expected at least one settlement to commit")
	}

	for i := 0; i < len(committed); i++ {
		for j := i + 1; j < len(committed); j++ {
			a, b := committed[i], committed[j]
			if a.CheckIn < b.Checkout && b.CheckIn < a.Checkout {
				t.Errorf("bookings %d [%d, %d) and %d [%d, %d) overlap",
					a.ID, a.CheckIn, a.Checkout, b.ID, b.CheckIn, b.Checkout)
			}
		}
	}

	// Ids of committed bookings are dense: 0..n-1 in some order.
	ids := make([]uint64, 0, len(committed))
	for _, b := range committed {
		ids = append(ids, b.ID)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for i, id := range ids {
		if id != uint64(i) {
			t.Fatalf("expected dense booking ids, got %v", ids)
		}
	}

	// The calendar holds exactly the committed days.
	p := f.calendar(t, property.ID)
	var wantDays uint64
	for _, b := range committed {
		wantDays += b.Checkout - b.CheckIn
		if p.Calendar.IsRangeFree(b.CheckIn, b.Checkout) {
			t.Errorf("committed range [%d, %d) not fully occupied", b.CheckIn, b.Checkout)
		}
	}
	if got := p.Calendar.Count(); got != wantDays {
		t.Errorf("expected %d occupied days, calendar holds %d", wantDays, got)
	}
}

func TestIndependentPropertiesSettleConcurrently(t *testing.T) {
	f := newFixture(t)
	first := f.listProperty(t, "owner1", 10)
	second := f.listProperty(t, "owner2", 10)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, errs[0] = f.book("renterA", first.ID, 0, 3, 30)
	}()
	go func() {
		defer wg.Done()
		_, errs[1] = f.book("renterB", second.ID, 0, 3, 30)
	}()
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Errorf("settlement %d failed: %v", i, err)
		}
	}
	if count := f.ledgerCount(t); count != 2 {
		t.Errorf("expected 2 ledger entries, got %d", count)
	}
}

// ────────────────────────────────────────────────
// Exact payment
// ────────────────────────────────────────────────

func TestExactPaymentRequired(t *testing.T) {
	f := newFixture(t)
	property := f.listProperty(t, "owner", 10)

	tests := []struct {
		name string
		paid uint64
	}{
		{"underpayment", 29},
		{"overpayment", 31},
		{"zero payment", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.book("renter", property.ID, 5, 8, tt.paid)
			if !apperrors.HasCode(err, apperrors.CodeInsufficientPayment) {
				t.Fatalf("expected INSUFFICIENT_PAYMENT, got %v", err)
			}
		})
	}

	if got := f.balance(t, "renter"); got != initialGrant {
		t.Errorf("rejected payments moved funds: renter holds %d", got)
	}
	if got := f.balance(t, "owner"); got != initialGrant {
		t.Errorf("rejected payments moved funds: owner holds %d", got)
	}
	p := f.calendar(t, property.ID)
	if !p.Calendar.IsRangeFree(5, 8) {
		t.Error("rejected payment reserved calendar days")
	}
	if count := f.ledgerCount(t); count != 0 {
		t.Errorf("rejected payment appended to the ledger: %d entries", count)
	}
}

// ────────────────────────────────────────────────
// Atomic failure
// ────────────────────────────────────────────────

func TestFrozenOwnerLeavesStoresUntouched(t *testing.T) {
	f := newFixture(t)
	property := f.listProperty(t, "owner", 10)
	f.vault.Freeze("owner")

	_, err := f.book("renter", property.ID, 5, 8, 30)
	if !apperrors.HasCode(err, apperrors.CodeTransferFailed) {
		t.Fatalf("expected PAYMENT_TRANSFER_FAILED, got %v", err)
	}

	if got := f.balance(t, "renter"); got != initialGrant {
		t.Errorf("failed transfer moved funds: renter holds %d", got)
	}
	p := f.calendar(t, property.ID)
	if !p.Calendar.IsRangeFree(5, 8) {
		t.Error("failed transfer reserved calendar days")
	}
	if count := f.ledgerCount(t); count != 0 {
		t.Errorf("failed transfer appended to the ledger: %d entries", count)
	}
	if got := f.publisher.byType(events.TypeBookingCreated); len(got) != 0 {
		t.Errorf("failed transfer published %d events", len(got))
	}

	// The id counter did not move: the next success takes id 0.
	f.vault.Unfreeze("owner")
	booking := f.mustBook(t, "renter", property.ID, 5, 8, 30)
	if booking.ID != 0 {
		t.Errorf("expected id 0 after failed attempts, got %d", booking.ID)
	}
}

type reserveFailingPropertyRepo struct {
	propertiesrepo.PropertyRepository
}

func (r *reserveFailingPropertyRepo) ReserveRange(ctx context.Context, id uint64, checkIn, checkout uint64) error {
	return fmt.Errorf("simulated storage failure")
}

func TestCommitFailureRefundsRenter(t *testing.T) {
	f := newFixture(t)
	property := f.listProperty(t, "owner", 10)

	failing := &reserveFailingPropertyRepo{PropertyRepository: f.props}
	svc := NewBookingService(
		f.bookings,
		failing,
		propertiesrepo.NewMemoryPropertyLocker(),
		validator.NewBookingValidator(f.cfg.Log, f.cfg.BookingHorizonDays),
		f.vault,
		f.sealer,
		f.publisher,
		f.cfg,
	)

	checkIn, checkout, paid := uint64(5), uint64(8), uint64(30)
	_, err := svc.Create(context.Background(), "renter", &model.BookingRequest{
		PropertyID: &property.ID,
		CheckIn:    &checkIn,
		Checkout:   &checkout,
		PaidAmount: &paid,
	})
	if !apperrors.HasCode(err, apperrors.CodeInternal) {
		t.Fatalf("expected INTERNAL_ERROR, got %v", err)
	}

	// The transfer succeeded, the commit failed, the refund ran.
	if got := f.balance(t, "renter"); got != initialGrant {
		t.Errorf("expected renter refunded to %d, holds %d", initialGrant, got)
	}
	if got := f.balance(t, "owner"); got != initialGrant {
		t.Errorf("expected owner back at %d, holds %d", initialGrant, got)
	}
	if count := f.ledgerCount(t); count != 0 {
		t.Errorf("failed commit appended to the ledger: %d entries", count)
	}
	if got := f.publisher.byType(events.TypeBookingCreated); len(got) != 0 {
		t.Errorf("failed commit published %d events", len(got))
	}
}

// ────────────────────────────────────────────────
// Decision ladder
// ────────────────────────────────────────────────

func TestSettlementRejections(t *testing.T) {
	f := newFixture(t)
	active := f.listProperty(t, "owner", 10)
	inactive := f.listProperty(t, "owner", 10)
	if err := f.props.Deactivate(context.Background(), inactive.ID, time.Now()); err != nil {
		t.Fatalf("deactivate: %v", err)
	}

	tests := []struct {
		name       string
		propertyID uint64
		checkIn    uint64
		checkout   uint64
		paid       uint64
		wantCode   string
	}{
		{"unknown property", 42, 5, 8, 30, apperrors.CodeNotFound},
		{"inactive property", inactive.ID, 5, 8, 30, apperrors.CodePropertyInactive},
		{"empty range", active.ID, 5, 5, 0, apperrors.CodeInvalidRange},
		{"reversed range", active.ID, 8, 5, 30, apperrors.CodeInvalidRange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.book("renter", tt.propertyID, tt.checkIn, tt.checkout, tt.paid)
			if !apperrors.HasCode(err, tt.wantCode) {
				t.Fatalf("expected %s, got %v", tt.wantCode, err)
			}
		})
	}

	// Inactive wins over range shape: the ladder checks activity first.
	_, err := f.book("renter", inactive.ID, 8, 5, 0)
	if !apperrors.HasCode(err, apperrors.CodePropertyInactive) {
		t.Errorf("expected PROPERTY_INACTIVE before range check, got %v", err)
	}

	if got := f.balance(t, "renter"); got != initialGrant {
		t.Errorf("rejections moved funds: renter holds %d", got)
	}
	if count := f.ledgerCount(t); count != 0 {
		t.Errorf("rejections appended to the ledger: %d entries", count)
	}
}

func TestBookingRequestValidation(t *testing.T) {
	f := newFixture(t)
	property := f.listProperty(t, "owner", 10)

	uptr := func(v uint64) *uint64 { return &v }

	tests := []struct {
		name string
		req  model.BookingRequest
	}{
		{"missing property id", model.BookingRequest{CheckIn: uptr(5), Checkout: uptr(8), PaidAmount: uptr(30)}},
		{"missing check-in", model.BookingRequest{PropertyID: uptr(property.ID), Checkout: uptr(8), PaidAmount: uptr(30)}},
		{"missing paid amount", model.BookingRequest{PropertyID: uptr(property.ID), CheckIn: uptr(5), Checkout: uptr(8)}},
		{"beyond horizon", model.BookingRequest{PropertyID: uptr(property.ID), CheckIn: uptr(5), Checkout: uptr((1 << 20) + 1), PaidAmount: uptr(30)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Create(context.Background(), "renter", &tt.req)
			if !apperrors.HasCode(err, apperrors.CodeValidation) {
				t.Fatalf("expected VALIDATION_ERROR, got %v", err)
			}
		})
	}

	_, err := f.svc.Create(context.Background(), "bad renter!", &model.BookingRequest{
		PropertyID: uptr(property.ID), CheckIn: uptr(5), Checkout: uptr(8), PaidAmount: uptr(30),
	})
	if !apperrors.HasCode(err, apperrors.CodeValidation) {
		t.Errorf("expected VALIDATION_ERROR for malformed renter, got %v", err)
	}
}

// ────────────────────────────────────────────────
// Confirmation references
// ────────────────────────────────────────────────

func TestConfirmationReference(t *testing.T) {
	f := newFixture(t)
	property := f.listProperty(t, "owner", 10)
	booking := f.mustBook(t, "renter", property.ID, 5, 8, 30)

	if booking.Reference == "" {
		t.Fatal("expected a confirmation reference on the settled booking")
	}

	got, err := f.svc.GetByReference(context.Background(), booking.Reference)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ID != booking.ID || got.Renter != "renter" {
		t.Errorf("reference resolved to booking %d renter %s", got.ID, got.Renter)
	}

	if _, err := f.svc.GetByReference(context.Background(), "not-a-real-code"); !apperrors.HasCode(err, apperrors.CodeNotFound) {
		t.Errorf("expected NOT_FOUND for garbage code, got %v", err)
	}
	if _, err := f.svc.GetByReference(context.Background(), ""); !apperrors.HasCode(err, apperrors.CodeInvalidInput) {
		t.Errorf("expected INVALID_INPUT for empty code, got %v", err)
	}

	// A valid seal naming the wrong renter does not resolve.
	forged, err := f.sealer.SealConfirmation(booking.ID, "mallory")
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	if _, err := f.svc.GetByReference(context.Background(), forged); !apperrors.HasCode(err, apperrors.CodeNotFound) {
		t.Errorf("expected NOT_FOUND for mismatched renter, got %v", err)
	}
}

// ────────────────────────────────────────────────
// Read queries
// ────────────────────────────────────────────────

func TestBookingReadQueries(t *testing.T) {
	f := newFixture(t)
	first := f.listProperty(t, "owner", 10)
	second := f.listProperty(t, "owner", 5)

	f.mustBook(t, "alice", first.ID, 0, 3, 30)
	f.mustBook(t, "bob", first.ID, 3, 6, 30)
	f.mustBook(t, "alice", second.ID, 0, 2, 10)

	byProperty, count, err := f.svc.GetByProperty(context.Background(), first.ID, 10, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 2 || len(byProperty) != 2 {
		t.Errorf("expected 2 bookings on property %d, got count=%d len=%d", first.ID, count, len(byProperty))
	}

	byRenter, count, err := f.svc.GetByRenter(context.Background(), "alice", 10, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 2 || len(byRenter) != 2 {
		t.Errorf("expected 2 bookings for alice, got count=%d len=%d", count, len(byRenter))
	}

	all, count, err := f.svc.GetAll(context.Background(), 2, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 3 {
		t.Errorf("expected total count 3, got %d", count)
	}
	if len(all) != 2 {
		t.Errorf("expected page of 2, got %d", len(all))
	}

	got, err := f.svc.GetByID(context.Background(), 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Renter != "bob" {
		t.Errorf("expected booking 1 to belong to bob, got %s", got.Renter)
	}

	if _, err := f.svc.GetByID(context.Background(), 99); !apperrors.HasCode(err, apperrors.CodeNotFound) {
		t.Errorf("expected NOT_FOUND, got %v", err)
	}
}

func TestTotalPriceOverflow(t *testing.T) {
	if _, ok := totalPrice(1<<63, 4); ok {
		t.Error("expected overflow for 2^63 * 4")
	}
	if total, ok := totalPrice(10, 3); !ok || total != 30 {
		t.Errorf("expected 30, got %d (ok=%v)", total, ok)
	}
	if total, ok := totalPrice(0, 10); !ok || total != 0 {
		t.Errorf("expected 0 for free property, got %d (ok=%v)", total, ok)
	}
}
