package ledger

import (
	"context"
	"fmt"
	"sync"

	"curio/pkg/domain"
	"curio/pkg/platform/sentinel"
)

// Ledger is the monetary value-transfer primitive the exchange settles
// against. Transfer is the only failable step of settlement: it fails on
// insufficient balance and unknown accounts, and must leave both balances
// untouched when it does.
type Ledger interface {
	// Deposit credits an account, creating it if needed.
	Deposit(ctx context.Context, account domain.AccountID, amount domain.Amount) error
	// Balance reports the available balance of an account. Unknown accounts
	// report zero.
	Balance(ctx context.Context, account domain.AccountID) (domain.Amount, error)
	// Transfer moves amount from one account to another atomically.
	// Returns sentinel.ErrInsufficientFunds (wrapped) when the source
	// balance cannot cover the amount. A zero amount is a no-op.
	Transfer(ctx context.Context, from, to domain.AccountID, amount domain.Amount) error
}

// InMemory implements Ledger with a mutex-guarded balance map.
type InMemory struct {
	mu       sync.RWMutex
	balances map[domain.AccountID]domain.Amount
}

func NewInMemory() *InMemory {
	return &InMemory{balances: make(map[domain.AccountID]domain.Amount)}
}

func (l *InMemory) Deposit(_ context.Context, account domain.AccountID, amount domain.Amount) error {
	if account.IsNil() {
		return fmt.Errorf("deposit: account is required")
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balances[account] += amount
	return nil
}

func (l *InMemory) Balance(_ context.Context, account domain.AccountID) (domain.Amount, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.balances[account], nil
}

func (l *InMemory) Transfer(_ context.Context, from, to domain.AccountID, amount domain.Amount) error {
	if amount.IsZero() {
		return nil
	}
	if from.IsNil() || to.IsNil() {
		return fmt.Errorf("transfer: both accounts are required")
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.balances[from] < amount {
		return fmt.Errorf("transfer %s from %s: %w", amount, from, sentinel.ErrInsufficientFunds)
	}
	l.balances[from] -= amount
	l.balances[to] += amount
	return nil
}
