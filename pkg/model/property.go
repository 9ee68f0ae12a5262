package model

import (
	"time"

	"stayledger/pkg/calendar"
)

// Property is a rental listing. It is never deleted, only deactivated,
// and its calendar is mutated exclusively by the settlement flow.
type Property struct {
	ID            uint64            `json:"id" bson:"_id"`
	Owner         AccountID         `json:"owner" bson:"owner" validate:"required,min=1,max=64"`
	Name          string            `json:"name" bson:"name" validate:"required,min=2,max=100"`
	Description   string            `json:"description,omitempty" bson:"description,omitempty" validate:"omitempty,max=2000"`
	PricePerDay   uint64            `json:"price_per_day" bson:"price_per_day" validate:"required,min=1"`
	Active        bool              `json:"active" bson:"active"`
	Calendar      calendar.Calendar `json:"-" bson:"calendar"`
	CreatedAt     time.Time         `json:"created_at" bson:"created_at" validate:"omitempty"`
	DeactivatedAt *time.Time        `json:"deactivated_at,omitempty" bson:"deactivated_at,omitempty"`
}

// OwnedBy is the capability check gating owner-only mutations.
func (p *Property) OwnedBy(caller AccountID) bool {
	return p.Owner == caller
}

// PropertyRequest is the caller-supplied body for listing a property.
type PropertyRequest struct {
	Name        string `json:"name" validate:"required,min=2,max=100"`
	Description string `json:"description,omitempty" validate:"omitempty,max=2000"`
	PricePerDay uint64 `json:"price_per_day" validate:"required,min=1"`
}
