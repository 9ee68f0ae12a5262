package model

import (
	"time"
)

// Booking is one committed reservation: a historical fact, never mutated
// or removed. Price is the total transferred to the owner at settlement;
// Reference is the sealed confirmation code handed back to the renter.
type Booking struct {
	ID         uint64    `json:"id" bson:"_id"`
	PropertyID uint64    `json:"property_id" bson:"property_id"`
	CheckIn    uint64    `json:"check_in" bson:"check_in"`
	Checkout   uint64    `json:"checkout" bson:"checkout"`
	Renter     AccountID `json:"renter" bson:"renter" validate:"required,min=1,max=64"`
	Price      uint64    `json:"price" bson:"price"`
	Reference  string    `json:"reference,omitempty" bson:"reference,omitempty"`
	CreatedAt  time.Time `json:"created_at" bson:"created_at" validate:"omitempty"`
}

// Days returns the number of days the booking spans.
func (b Booking) Days() uint64 {
	if b.Checkout <= b.CheckIn {
		return 0
	}
	return b.Checkout - b.CheckIn
}

// BookingRequest is the caller-supplied body for a settlement attempt.
// Every field is a pointer: property ids and day indices start at zero,
// so absence has to be told apart from a legitimate zero.
type BookingRequest struct {
	PropertyID *uint64 `json:"property_id" validate:"required"`
	CheckIn    *uint64 `json:"check_in" validate:"required"`
	Checkout   *uint64 `json:"checkout" validate:"required"`
	PaidAmount *uint64 `json:"paid_amount" validate:"required"`
}
