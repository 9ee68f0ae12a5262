package model

import "time"

// PropertyLock is an advisory lock document keyed by property id. Holding
// it serializes settlement and deactivation against the same property; the
// TTL index on ExpiresAt reclaims locks abandoned by a crashed process.
type PropertyLock struct {
	PropertyID uint64    `bson:"_id" json:"property_id"`
	ExpiresAt  time.Time `bson:"expires_at" json:"expires_at"`
	CreatedAt  time.Time `bson:"created_at" json:"created_at"`
}
