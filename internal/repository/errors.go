package repository

import (
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/josh-kwaku/recipe-wallet/internal/domain"
)

const (
	pgUniqueViolation = "23505"
	pgCheckViolation  = "23514"

	purchaseOnceConstraint   = "ledger_entries_purchase_once"
	idempotencyKeyConstraint = "ledger_entries_idempotency_key_key"
	balanceCheckConstraint   = "accounts_balance_check"
)

// mapPQError translates constraint violations the schema relies on into
// domain errors. Anything else is returned unchanged.
func mapPQError(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return err
	}

	switch pqErr.Code {
	case pgUniqueViolation:
		switch pqErr.Constraint {
		case purchaseOnceConstraint:
			return fmt.Errorf("%w: %w", domain.ErrAlreadyPurchased, err)
		case idempotencyKeyConstraint:
			return fmt.Errorf("%w: %w", domain.ErrDuplicateIdempotencyKey, err)
		}
	case pgCheckViolation:
		if pqErr.Constraint == balanceCheckConstraint {
			return fmt.Errorf("%w: %w", domain.ErrInsufficientFunds, err)
		}
	}
	return err
}
