package testutil

import (
	"fmt"
	"sync/atomic"
	"time"
)

var accountSeq atomic.Uint64

// UniqueAccount returns an account id no other test run has used, so the
// suite can run against a long-lived server without cleaning state.
func UniqueAccount(prefix string) string {
	return fmt.Sprintf("%s-%d-%d", prefix, time.Now().UnixNano(), accountSeq.Add(1))
}

// ValidProperty is a wire-level listing request.
func ValidProperty(pricePerDay uint64) map[string]any {
	return map[string]any{
		"name":          "Harbor Loft",
		"description":   "Two rooms overlooking the marina",
		"price_per_day": pricePerDay,
	}
}

// ValidBooking is a wire-level booking request.
func ValidBooking(propertyID, checkIn, checkout, paidAmount uint64) map[string]any {
	return map[string]any{
		"property_id": propertyID,
		"check_in":    checkIn,
		"checkout":    checkout,
		"paid_amount": paidAmount,
	}
}
