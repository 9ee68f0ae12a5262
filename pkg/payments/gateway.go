// Package payments routes settlement funds between accounts. The engine
// only depends on the Gateway interface; the Vault backend keeps balances
// in process, the HTTP backend defers to a remote treasury service.
package payments

import (
	"context"
	"errors"

	"stayledger/pkg/model"
)

// Sentinel failures a Gateway may surface. The settlement engine treats
// any transfer error as fatal to the call.
var (
	ErrInsufficientFunds = errors.New("payments: insufficient funds")
	ErrAccountFrozen     = errors.New("payments: account frozen")
)

// Gateway moves value between accounts. Transfer is synchronous and
// all-or-nothing: a nil return means the funds moved, an error means
// nothing did.
type Gateway interface {
	Transfer(ctx context.Context, from, to model.AccountID, amount uint64) error
	Balance(ctx context.Context, account model.AccountID) (uint64, error)
}
