package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type EntryKind string

const (
	EntryKindDeposit          EntryKind = "deposit"
	EntryKindPurchaseDebit    EntryKind = "purchase_debit"
	EntryKindPurchaseCredit   EntryKind = "purchase_credit"
	EntryKindPurchaseReversal EntryKind = "purchase_reversal"
	EntryKindDepositReversal  EntryKind = "deposit_reversal"
)

func (k EntryKind) IsValid() bool {
	switch k {
	case EntryKindDeposit, EntryKindPurchaseDebit, EntryKindPurchaseCredit,
		EntryKindPurchaseReversal, EntryKindDepositReversal:
		return true
	default:
		return false
	}
}

// LedgerEntry is one immutable money movement on one account. Amount is
// signed: positive credits the account, negative debits it.
type LedgerEntry struct {
	ID                    uuid.UUID
	AccountID             uuid.UUID
	Amount                Amount
	Kind                  EntryKind
	RelatedItemID         *uuid.UUID
	CounterpartyAccountID *uuid.UUID
	BalanceAfter          Amount
	IdempotencyKey        *string
	CreatedAt             time.Time
}

func (e LedgerEntry) Validate() error {
	if e.ID == uuid.Nil || e.AccountID == uuid.Nil {
		return fmt.Errorf("Validate: missing id: %w", ErrInvalidEntry)
	}
	if !e.Kind.IsValid() {
		return fmt.Errorf("Validate: kind %q: %w", e.Kind, ErrInvalidEntry)
	}
	if e.BalanceAfter < 0 {
		return fmt.Errorf("Validate: negative balance_after: %w", ErrInvalidEntry)
	}
	if e.IdempotencyKey != nil && *e.IdempotencyKey == "" {
		return fmt.Errorf("Validate: empty idempotency key: %w", ErrInvalidEntry)
	}

	switch e.Kind {
	case EntryKindDeposit, EntryKindPurchaseCredit:
		if e.Amount <= 0 {
			return fmt.Errorf("Validate: %s must be positive: %w", e.Kind, ErrInvalidEntry)
		}
	case EntryKindPurchaseDebit:
		if e.Amount >= 0 {
			return fmt.Errorf("Validate: %s must be negative: %w", e.Kind, ErrInvalidEntry)
		}
	default:
		if e.Amount == 0 {
			return fmt.Errorf("Validate: %s must be non-zero: %w", e.Kind, ErrInvalidEntry)
		}
	}

	switch e.Kind {
	case EntryKindPurchaseDebit, EntryKindPurchaseCredit, EntryKindPurchaseReversal:
		if e.RelatedItemID == nil || e.CounterpartyAccountID == nil {
			return fmt.Errorf("Validate: %s needs item and counterparty: %w", e.Kind, ErrInvalidEntry)
		}
	}
	return nil
}
