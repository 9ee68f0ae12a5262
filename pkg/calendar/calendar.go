// Package calendar implements the per-property day-occupancy bitset.
//
// Day indices are caller-defined absolute days with no enforced epoch.
// The zero value is an empty calendar where every day is free; storage
// grows lazily on reservation, so indices beyond the allocated size are
// implicitly free.
package calendar

import "math/bits"

// Calendar is a packed bitset of occupied days: day d maps to bit d%8 of
// byte d/8. Being a byte slice it marshals to BSON binary and to a JSON
// base64 string without extra plumbing.
type Calendar []byte

// IsRangeFree reports whether no day in [start, end) is occupied.
// Unallocated days count as free, and an empty range is vacuously free.
// Range shape (start < end) is the caller's concern.
func (c Calendar) IsRangeFree(start, end uint64) bool {
	if limit := uint64(len(c)) * 8; end > limit {
		end = limit
	}
	for d := start; d < end; d++ {
		if c[d/8]&(1<<(d%8)) != 0 {
			return false
		}
	}
	return true
}

// Reserve marks every day in [start, end) occupied, growing the backing
// storage as needed. It must only be called after IsRangeFree confirmed
// the same range inside the same critical section.
func (c *Calendar) Reserve(start, end uint64) {
	if start >= end {
		return
	}
	c.grow(end)
	days := *c
	for d := start; d < end; d++ {
		days[d/8] |= 1 << (d % 8)
	}
}

func (c *Calendar) grow(end uint64) {
	need := int((end + 7) / 8)
	if need <= len(*c) {
		return
	}
	grown := make(Calendar, need)
	copy(grown, *c)
	*c = grown
}

// Occupied reports whether the single day d is occupied.
func (c Calendar) Occupied(d uint64) bool {
	if d/8 >= uint64(len(c)) {
		return false
	}
	return c[d/8]&(1<<(d%8)) != 0
}

// OccupiedInRange returns the occupied day indices within [start, end),
// in ascending order.
func (c Calendar) OccupiedInRange(start, end uint64) []uint64 {
	if limit := uint64(len(c)) * 8; end > limit {
		end = limit
	}
	var days []uint64
	for d := start; d < end; d++ {
		if c[d/8]&(1<<(d%8)) != 0 {
			days = append(days, d)
		}
	}
	return days
}

// Count returns the total number of occupied days.
func (c Calendar) Count() uint64 {
	var n uint64
	for _, b := range c {
		n += uint64(bits.OnesCount8(b))
	}
	return n
}

// Clone returns an independent copy so callers can hand out calendar
// snapshots without exposing the live storage.
func (c Calendar) Clone() Calendar {
	if c == nil {
		return nil
	}
	out := make(Calendar, len(c))
	copy(out, c)
	return out
}
