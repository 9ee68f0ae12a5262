package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"stayledger/pkg/model"
)

func TestPropertyListed(t *testing.T) {
	now := time.Now()
	p := &model.Property{
		ID:          42,
		Owner:       "alice",
		Name:        "Sea View Loft",
		PricePerDay: 120,
		Active:      true,
		CreatedAt:   now,
	}

	event := PropertyListed(p)

	if event.Type != TypePropertyListed {
		t.Errorf("expected type %s, got %s", TypePropertyListed, event.Type)
	}
	if event.Key != "42" {
		t.Errorf("expected key 42, got %s", event.Key)
	}

	payload, ok := event.Payload.(PropertyListedPayload)
	if !ok {
		t.Fatalf("expected PropertyListedPayload, got %T", event.Payload)
	}
	if payload.PropertyID != 42 || payload.Owner != "alice" || payload.PricePerDay != 120 {
		t.Errorf("unexpected payload: %+v", payload)
	}
}

func TestPropertyDeactivated(t *testing.T) {
	now := time.Now()
	p := &model.Property{
		ID:            7,
		Owner:         "bob",
		DeactivatedAt: &now,
	}

	event := PropertyDeactivated(p)

	if event.Type != TypePropertyDeactivated {
		t.Errorf("expected type %s, got %s", TypePropertyDeactivated, event.Type)
	}
	if event.Key != "7" {
		t.Errorf("expected key 7, got %s", event.Key)
	}

	payload, ok := event.Payload.(PropertyDeactivatedPayload)
	if !ok {
		t.Fatalf("expected PropertyDeactivatedPayload, got %T", event.Payload)
	}
	if payload.DeactivatedAt == nil || !payload.DeactivatedAt.Equal(now) {
		t.Errorf("expected deactivation time %v, got %v", now, payload.DeactivatedAt)
	}
}

func TestBookingCreatedKeyedByProperty(t *testing.T) {
	b := &model.Booking{
		ID:         3,
		PropertyID: 99,
		CheckIn:    10,
		Checkout:   13,
		Renter:     "carol",
		Price:      360,
	}

	event := BookingCreated(b)

	if event.Type != TypeBookingCreated {
		t.Errorf("expected type %s, got %s", TypeBookingCreated, event.Type)
	}
	if event.Key != "99" {
		t.Errorf("expected key to be the property id 99, got %s", event.Key)
	}

	payload, ok := event.Payload.(BookingCreatedPayload)
	if !ok {
		t.Fatalf("expected BookingCreatedPayload, got %T", event.Payload)
	}
	if payload.BookingID != 3 || payload.PropertyID != 99 {
		t.Errorf("unexpected ids in payload: %+v", payload)
	}
	if payload.CheckIn != 10 || payload.Checkout != 13 || payload.Price != 360 {
		t.Errorf("unexpected booking data in payload: %+v", payload)
	}
}

func TestBookingCreatedPayloadFieldNames(t *testing.T) {
	payload := BookingCreatedPayload{
		BookingID:  0,
		PropertyID: 1,
		Renter:     "dave",
		CheckIn:    5,
		Checkout:   8,
		Price:      30,
	}

	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Consumers match on these names; booking_id must survive even at zero.
	for _, key := range []string{"booking_id", "property_id", "renter", "check_in", "checkout", "price"} {
		if _, ok := decoded[key]; !ok {
			t.Errorf("expected field %q in payload JSON", key)
		}
	}
}

func TestNoopPublisher(t *testing.T) {
	p := NewNoopPublisher()

	event := BookingCreated(&model.Booking{ID: 1, PropertyID: 2})
	if err := p.Publish(context.Background(), event); err != nil {
		t.Errorf("expected nil error, got %v", err)
	}
	if err := p.Close(); err != nil {
		t.Errorf("expected nil error, got %v", err)
	}
}
