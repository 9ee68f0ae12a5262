// Package errors holds the sentinel failures of the booking ledger.
// Services translate them into transport-level AppErrors.
package errors

import "errors"

var (
	ErrNotFound = errors.New("booking not found")
)
