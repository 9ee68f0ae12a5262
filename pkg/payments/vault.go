package payments

import (
	"context"
	"fmt"
	"sync"

	"stayledger/pkg/model"
)

// Vault is the in-process Gateway. Accounts open automatically on first
// touch with a configurable starting grant, and can be frozen: a frozen
// account neither sends nor receives, which is how tests and operators
// simulate an owner who cannot accept funds.
type Vault struct {
	mu       sync.Mutex
	grant    uint64
	balances map[model.AccountID]uint64
	frozen   map[model.AccountID]struct{}
}

func NewVault(initialGrant uint64) *Vault {
	return &Vault{
		grant:    initialGrant,
		balances: make(map[model.AccountID]uint64),
		frozen:   make(map[model.AccountID]struct{}),
	}
}

func (v *Vault) Transfer(ctx context.Context, from, to model.AccountID, amount uint64) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	v.openLocked(from)
	v.openLocked(to)

	if _, ok := v.frozen[from]; ok {
		return fmt.Errorf("%w: %s", ErrAccountFrozen, from)
	}
	if _, ok := v.frozen[to]; ok {
		return fmt.Errorf("%w: %s", ErrAccountFrozen, to)
	}
	if v.balances[from] < amount {
		return fmt.Errorf("%w: account %s holds %d, needs %d", ErrInsufficientFunds, from, v.balances[from], amount)
	}

	v.balances[from] -= amount
	v.balances[to] += amount
	return nil
}

func (v *Vault) Balance(ctx context.Context, account model.AccountID) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	v.openLocked(account)
	return v.balances[account], nil
}

// Deposit credits an account outside any settlement, opening it if needed.
func (v *Vault) Deposit(account model.AccountID, amount uint64) {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.openLocked(account)
	v.balances[account] += amount
}

// Freeze blocks an account from sending or receiving until Unfreeze.
func (v *Vault) Freeze(account model.AccountID) {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.openLocked(account)
	v.frozen[account] = struct{}{}
}

func (v *Vault) Unfreeze(account model.AccountID) {
	v.mu.Lock()
	defer v.mu.Unlock()

	delete(v.frozen, account)
}

func (v *Vault) openLocked(account model.AccountID) {
	if _, ok := v.balances[account]; !ok {
		v.balances[account] = v.grant
	}
}
