package wallet

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/google/uuid"

	"github.com/josh-kwaku/recipe-wallet/internal/domain"
	"github.com/josh-kwaku/recipe-wallet/internal/logging"
)

const DefaultMaxAttempts = 5

// Mutation describes a balance change that has been committed to the account.
type Mutation struct {
	AccountID     uuid.UUID
	Delta         domain.Amount
	BalanceBefore domain.Amount
	BalanceAfter  domain.Amount
	Version       int64
}

// Ledger applies credits and debits as a bounded read-compute-CAS loop, so
// two concurrent writers can never both apply a delta to the same stale
// balance.
type Ledger struct {
	accounts    AccountStore
	maxAttempts int
}

func NewLedger(accounts AccountStore, maxAttempts int) *Ledger {
	if maxAttempts < 1 {
		maxAttempts = DefaultMaxAttempts
	}
	return &Ledger{accounts: accounts, maxAttempts: maxAttempts}
}

func (l *Ledger) Credit(ctx context.Context, accountID uuid.UUID, amount domain.Amount) (*Mutation, error) {
	if !amount.IsPositive() {
		return nil, fmt.Errorf("Credit: %w", domain.ErrInvalidAmount)
	}
	m, err := l.apply(ctx, accountID, amount)
	if err != nil {
		return nil, fmt.Errorf("Credit: %w", err)
	}
	return m, nil
}

func (l *Ledger) Debit(ctx context.Context, accountID uuid.UUID, amount domain.Amount) (*Mutation, error) {
	if !amount.IsPositive() {
		return nil, fmt.Errorf("Debit: %w", domain.ErrInvalidAmount)
	}
	m, err := l.apply(ctx, accountID, -amount)
	if err != nil {
		return nil, fmt.Errorf("Debit: %w", err)
	}
	return m, nil
}

// Apply moves the balance by a signed delta. Callers that already know the
// direction should prefer Credit or Debit.
func (l *Ledger) Apply(ctx context.Context, accountID uuid.UUID, delta domain.Amount) (*Mutation, error) {
	switch {
	case delta > 0:
		return l.Credit(ctx, accountID, delta)
	case delta < 0:
		return l.Debit(ctx, accountID, -delta)
	default:
		return nil, fmt.Errorf("Apply: %w", domain.ErrInvalidAmount)
	}
}

func (l *Ledger) apply(ctx context.Context, accountID uuid.UUID, delta domain.Amount) (*Mutation, error) {
	log := logging.FromContext(ctx)

	for attempt := 1; attempt <= l.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("apply: %w", err)
		}

		acct, err := l.accounts.Get(ctx, accountID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, fmt.Errorf("apply: %s: %w", accountID, domain.ErrAccountNotFound)
			}
			return nil, fmt.Errorf("apply: %w", err)
		}

		if delta > 0 && acct.Balance > domain.Amount(math.MaxInt64)-delta {
			return nil, fmt.Errorf("apply: %s: balance %s plus %s overflows: %w", accountID, acct.Balance, delta, domain.ErrInvalidAmount)
		}

		newBalance := acct.Balance + delta
		if newBalance < 0 {
			return nil, fmt.Errorf("apply: %s: %w", accountID, domain.ErrInsufficientFunds)
		}

		swapped, err := l.accounts.CompareAndSwap(ctx, accountID, acct.Version, newBalance)
		if err != nil {
			return nil, fmt.Errorf("apply: %w", err)
		}
		if swapped {
			return &Mutation{
				AccountID:     accountID,
				Delta:         delta,
				BalanceBefore: acct.Balance,
				BalanceAfter:  newBalance,
				Version:       acct.Version + 1,
			}, nil
		}

		log.Debug("balance cas lost, retrying",
			"account_id", accountID,
			"attempt", attempt,
			"expected_version", acct.Version,
		)
	}

	return nil, fmt.Errorf("apply: %s after %d attempts: %w", accountID, l.maxAttempts, domain.ErrConcurrentModification)
}
