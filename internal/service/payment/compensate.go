package payment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"

	"github.com/josh-kwaku/recipe-wallet/internal/domain"
	"github.com/josh-kwaku/recipe-wallet/internal/logging"
	"github.com/josh-kwaku/recipe-wallet/internal/wallet"
)

// appliedLeg is a balance mutation that already committed and must be undone
// if the rest of the operation fails.
type appliedLeg struct {
	mutation     *wallet.Mutation
	reversalKind domain.EntryKind
	itemID       *uuid.UUID
	counterparty *uuid.UUID
}

// compensate undoes legs newest first. Each restored leg is recorded as two
// reversal entries on its account: the movement that was applied and the
// movement that undid it, so the ledger still sums to the balance. A
// compensated purchase whose append failed therefore leaves four reversal
// entries, a pair on the buyer and a pair on the seller.
//
// Lost CAS races while restoring are retried with backoff; only a
// non-transient failure abandons a leg.
//
// It returns domain.ErrReversalRecorded when every leg was restored and
// recorded. Otherwise the result wraps both cause and
// domain.ErrCompensationFailed.
func (s *Service) compensate(ctx context.Context, cause error, legs ...appliedLeg) error {
	// The caller may already be gone; the undo must still run.
	ctx = context.WithoutCancel(ctx)
	log := logging.FromContext(ctx)

	var failed error
	for i := len(legs) - 1; i >= 0; i-- {
		leg := legs[i]
		m := leg.mutation

		restored, err := s.restore(ctx, m)
		if err != nil {
			log.Error("compensation failed to restore balance",
				"account_id", m.AccountID,
				"delta", m.Delta.String(),
				"cause", cause,
				"error", err,
			)
			failed = errors.Join(failed, err)
			continue
		}

		now := s.now()
		entries := []domain.LedgerEntry{
			{
				ID:                    uuid.New(),
				AccountID:             m.AccountID,
				Amount:                m.Delta,
				Kind:                  leg.reversalKind,
				RelatedItemID:         leg.itemID,
				CounterpartyAccountID: leg.counterparty,
				BalanceAfter:          m.BalanceAfter,
				CreatedAt:             now,
			},
			{
				ID:                    uuid.New(),
				AccountID:             m.AccountID,
				Amount:                -m.Delta,
				Kind:                  leg.reversalKind,
				RelatedItemID:         leg.itemID,
				CounterpartyAccountID: leg.counterparty,
				BalanceAfter:          restored.BalanceAfter,
				CreatedAt:             now,
			},
		}
		if err := s.store.Entries().Append(ctx, entries...); err != nil {
			log.Error("compensation restored balance but could not record reversal",
				"account_id", m.AccountID,
				"delta", m.Delta.String(),
				"error", err,
			)
			failed = errors.Join(failed, err)
			continue
		}

		log.Warn("operation compensated",
			"account_id", m.AccountID,
			"delta", m.Delta.String(),
			"kind", leg.reversalKind,
			"balance_after", restored.BalanceAfter.String(),
			"cause", cause,
		)
	}

	if failed != nil {
		return fmt.Errorf("compensate: %w", errors.Join(cause, domain.ErrCompensationFailed, failed))
	}
	return fmt.Errorf("compensate: %w", domain.ErrReversalRecorded)
}

// undo runs compensate and picks the error the caller should surface.
func (s *Service) undo(ctx context.Context, cause error, legs ...appliedLeg) error {
	if err := s.compensate(ctx, cause, legs...); !errors.Is(err, domain.ErrReversalRecorded) {
		return err
	}
	return cause
}

// restore applies the inverse of m. ErrConcurrentModification only means
// other writers won the CAS, so it is retried until the undo lands or
// undoMaxElapsed runs out (zero retries without limit).
func (s *Service) restore(ctx context.Context, m *wallet.Mutation) (*wallet.Mutation, error) {
	log := logging.FromContext(ctx)

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = s.undoInitialInterval
	b.MaxInterval = time.Second
	b.MaxElapsedTime = s.undoMaxElapsed

	var restored *wallet.Mutation
	attempts := 0
	op := func() error {
		attempts++
		var err error
		restored, err = s.ledger.Apply(ctx, m.AccountID, -m.Delta)
		if err == nil || errors.Is(err, domain.ErrConcurrentModification) {
			return err
		}
		return backoff.Permanent(err)
	}
	onRetry := func(err error, next time.Duration) {
		log.Warn("compensation contended, retrying",
			"account_id", m.AccountID,
			"attempt", attempts,
			"retry_in", next,
			"error", err,
		)
	}

	if err := backoff.RetryNotify(op, backoff.WithContext(b, ctx), onRetry); err != nil {
		return nil, fmt.Errorf("restore: %w", err)
	}
	return restored, nil
}
