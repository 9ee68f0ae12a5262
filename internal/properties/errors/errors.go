// Package errors holds the sentinel failures of the property store.
// Services translate them into transport-level AppErrors.
package errors

import "errors"

var (
	ErrNotFound = errors.New("property not found")
	ErrNotOwner = errors.New("caller is not the property owner")
	ErrInactive = errors.New("property is deactivated")
)
