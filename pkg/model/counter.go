package model

// Counter backs the monotonic id sequences for properties and bookings.
// Next is the id the upcoming insert will take; it starts at 0 and is
// bumped only after the insert is part of a committed transaction, so
// the sequences stay gapless.
type Counter struct {
	ID   string `bson:"_id" json:"id"`
	Next uint64 `bson:"next" json:"next"`
}

const (
	CounterProperties = "properties"
	CounterBookings   = "bookings"
)
