// Package events defines the domain events the marketplace emits once a
// state change has committed, and the publishers that deliver them.
package events

import (
	"strconv"
	"time"

	"stayledger/pkg/model"
)

// Event types carried in broker metadata and matched by consumers
const (
	TypePropertyListed      = "property.listed"
	TypePropertyDeactivated = "property.deactivated"
	TypeBookingCreated      = "booking.created"
)

// Event is a committed state change ready for delivery. Key carries the
// property id so brokers that partition by key keep one property's
// events in order.
type Event struct {
	Type    string
	Key     string
	Payload interface{}
}

// PropertyListedPayload announces a new listing.
type PropertyListedPayload struct {
	PropertyID  uint64    `json:"property_id"`
	Owner       string    `json:"owner"`
	Name        string    `json:"name"`
	PricePerDay uint64    `json:"price_per_day"`
	ListedAt    time.Time `json:"listed_at"`
}

// PropertyDeactivatedPayload announces that a listing stopped accepting
// new bookings. Existing bookings are unaffected.
type PropertyDeactivatedPayload struct {
	PropertyID    uint64     `json:"property_id"`
	Owner         string     `json:"owner"`
	DeactivatedAt *time.Time `json:"deactivated_at,omitempty"`
}

// BookingCreatedPayload announces a settled booking.
type BookingCreatedPayload struct {
	BookingID  uint64    `json:"booking_id"`
	PropertyID uint64    `json:"property_id"`
	Renter     string    `json:"renter"`
	CheckIn    uint64    `json:"check_in"`
	Checkout   uint64    `json:"checkout"`
	Price      uint64    `json:"price"`
	CreatedAt  time.Time `json:"created_at"`
}

// PropertyListed builds the event for a freshly registered property.
func PropertyListed(p *model.Property) Event {
	return Event{
		Type: TypePropertyListed,
		Key:  strconv.FormatUint(p.ID, 10),
		Payload: PropertyListedPayload{
			PropertyID:  p.ID,
			Owner:       p.Owner.String(),
			Name:        p.Name,
			PricePerDay: p.PricePerDay,
			ListedAt:    p.CreatedAt,
		},
	}
}

// PropertyDeactivated builds the event for a deactivated property.
func PropertyDeactivated(p *model.Property) Event {
	return Event{
		Type: TypePropertyDeactivated,
		Key:  strconv.FormatUint(p.ID, 10),
		Payload: PropertyDeactivatedPayload{
			PropertyID:    p.ID,
			Owner:         p.Owner.String(),
			DeactivatedAt: p.DeactivatedAt,
		},
	}
}

// BookingCreated builds the event for a settled booking. The key is the
// property id, not the booking id, to keep per-property ordering.
func BookingCreated(b *model.Booking) Event {
	return Event{
		Type: TypeBookingCreated,
		Key:  strconv.FormatUint(b.PropertyID, 10),
		Payload: BookingCreatedPayload{
			BookingID:  b.ID,
			PropertyID: b.PropertyID,
			Renter:     b.Renter.String(),
			CheckIn:    b.CheckIn,
			Checkout:   b.Checkout,
			Price:      b.Price,
			CreatedAt:  b.CreatedAt,
		},
	}
}
