package payments

import (
	"context"
	"errors"
	"sync"
	"testing"
)

func TestVault_TransferMovesFunds(t *testing.T) {
	v := NewVault(100)
	ctx := context.Background()

	if err := v.Transfer(ctx, "renter", "owner", 30); err != nil {
		t.Fatalf("Transfer() failed: %v", err)
	}

	renter, _ := v.Balance(ctx, "renter")
	owner, _ := v.Balance(ctx, "owner")
	if renter != 70 {
		t.Errorf("renter balance = %d, want 70", renter)
	}
	if owner != 130 {
		t.Errorf("owner balance = %d, want 130", owner)
	}
}

func TestVault_AutoOpensWithGrant(t *testing.T) {
	v := NewVault(500)

	balance, err := v.Balance(context.Background(), "fresh-account")
	if err != nil {
		t.Fatalf("Balance() failed: %v", err)
	}
	if balance != 500 {
		t.Errorf("fresh account balance = %d, want the 500 grant", balance)
	}
}

func TestVault_InsufficientFunds(t *testing.T) {
	v := NewVault(10)
	ctx := context.Background()

	err := v.Transfer(ctx, "poor", "rich", 11)
	if !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}

	poor, _ := v.Balance(ctx, "poor")
	rich, _ := v.Balance(ctx, "rich")
	if poor != 10 || rich != 10 {
		t.Errorf("failed transfer must not move funds: poor=%d rich=%d", poor, rich)
	}
}

func TestVault_FrozenRecipientRejects(t *testing.T) {
	v := NewVault(100)
	ctx := context.Background()

	v.Freeze("owner")
	err := v.Transfer(ctx, "renter", "owner", 5)
	if !errors.Is(err, ErrAccountFrozen) {
		t.Fatalf("expected ErrAccountFrozen, got %v", err)
	}

	renter, _ := v.Balance(ctx, "renter")
	if renter != 100 {
		t.Errorf("sender balance changed on rejected transfer: %d", renter)
	}

	v.Unfreeze("owner")
	if err := v.Transfer(ctx, "renter", "owner", 5); err != nil {
		t.Errorf("Transfer() after Unfreeze failed: %v", err)
	}
}

func TestVault_FrozenSenderRejects(t *testing.T) {
	v := NewVault(100)

	v.Freeze("renter")
	err := v.Transfer(context.Background(), "renter", "owner", 5)
	if !errors.Is(err, ErrAccountFrozen) {
		t.Fatalf("expected ErrAccountFrozen, got %v", err)
	}
}

func TestVault_SelfTransfer(t *testing.T) {
	v := NewVault(100)
	ctx := context.Background()

	if err := v.Transfer(ctx, "solo", "solo", 40); err != nil {
		t.Fatalf("self transfer failed: %v", err)
	}
	balance, _ := v.Balance(ctx, "solo")
	if balance != 100 {
		t.Errorf("self transfer should leave balance unchanged, got %d", balance)
	}
}

func TestVault_Deposit(t *testing.T) {
	v := NewVault(0)

	v.Deposit("renter", 250)
	balance, _ := v.Balance(context.Background(), "renter")
	if balance != 250 {
		t.Errorf("balance after deposit = %d, want 250", balance)
	}
}

func TestVault_CancelledContext(t *testing.T) {
	v := NewVault(100)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := v.Transfer(ctx, "a", "b", 1); err == nil {
		t.Errorf("transfer with cancelled context should fail")
	}
}

func TestVault_ConcurrentTransfersConserveValue(t *testing.T) {
	v := NewVault(1000)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = v.Transfer(ctx, "a", "b", 10)
		}()
	}
	wg.Wait()

	a, _ := v.Balance(ctx, "a")
	b, _ := v.Balance(ctx, "b")
	if a+b != 2000 {
		t.Errorf("value not conserved: a=%d b=%d sum=%d, want 2000", a, b, a+b)
	}
	if a != 500 || b != 1500 {
		t.Errorf("all 50 transfers should land: a=%d b=%d", a, b)
	}
}
