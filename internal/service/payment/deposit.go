package payment

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/josh-kwaku/recipe-wallet/internal/domain"
	"github.com/josh-kwaku/recipe-wallet/internal/logging"
	"github.com/josh-kwaku/recipe-wallet/internal/wallet"
)

type DepositRequest struct {
	AccountID      uuid.UUID
	Amount         domain.Amount
	IdempotencyKey string
}

type DepositResult struct {
	Entry      domain.LedgerEntry
	NewBalance domain.Amount
	Replayed   bool
}

// Deposit credits an externally authorized top-up. A request carrying a key
// that was already applied returns the original result without crediting
// again.
func (s *Service) Deposit(ctx context.Context, req DepositRequest) (*DepositResult, error) {
	log := logging.FromContext(ctx)

	if err := s.validateDeposit(req); err != nil {
		return nil, fmt.Errorf("Deposit: %w", err)
	}

	if req.IdempotencyKey != "" {
		res, err := s.replayDeposit(ctx, req)
		if err == nil {
			log.Info("deposit replayed", "account_id", req.AccountID, "entry_id", res.Entry.ID)
			return res, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("Deposit: %w", err)
		}
	}

	entry, err := s.executeDeposit(ctx, req)
	if err != nil {
		// A concurrent request with the same key won the race.
		if errors.Is(err, domain.ErrDuplicateIdempotencyKey) && !errors.Is(err, domain.ErrCompensationFailed) {
			res, rerr := s.replayDeposit(ctx, req)
			if rerr != nil {
				return nil, fmt.Errorf("Deposit: %w", errors.Join(err, rerr))
			}
			return res, nil
		}
		return nil, fmt.Errorf("Deposit: %w", err)
	}

	log.Info("deposit completed",
		"account_id", req.AccountID,
		"amount", req.Amount.String(),
		"entry_id", entry.ID,
		"balance_after", entry.BalanceAfter.String(),
	)

	return &DepositResult{Entry: *entry, NewBalance: entry.BalanceAfter}, nil
}

func (s *Service) validateDeposit(req DepositRequest) error {
	if req.AccountID == uuid.Nil {
		return fmt.Errorf("validateDeposit: %w", domain.ErrInvalidRequest)
	}
	if !req.Amount.IsPositive() {
		return fmt.Errorf("validateDeposit: %w", domain.ErrInvalidAmount)
	}
	if s.depositLimit > 0 && req.Amount > s.depositLimit {
		return fmt.Errorf("validateDeposit: %s over %s: %w", req.Amount, s.depositLimit, domain.ErrLimitExceeded)
	}
	return nil
}

func (s *Service) replayDeposit(ctx context.Context, req DepositRequest) (*DepositResult, error) {
	prior, err := s.store.Entries().FindByIdempotencyKey(ctx, req.IdempotencyKey)
	if err != nil {
		return nil, fmt.Errorf("replayDeposit: %w", err)
	}

	if prior.Kind != domain.EntryKindDeposit || prior.AccountID != req.AccountID || prior.Amount != req.Amount {
		return nil, fmt.Errorf("replayDeposit: %w", domain.ErrIdempotencyConflict)
	}

	return &DepositResult{Entry: *prior, NewBalance: prior.BalanceAfter, Replayed: true}, nil
}

func (s *Service) depositEntry(req DepositRequest, m *wallet.Mutation) domain.LedgerEntry {
	e := domain.LedgerEntry{
		ID:           uuid.New(),
		AccountID:    req.AccountID,
		Amount:       req.Amount,
		Kind:         domain.EntryKindDeposit,
		BalanceAfter: m.BalanceAfter,
		CreatedAt:    s.now(),
	}
	if req.IdempotencyKey != "" {
		key := req.IdempotencyKey
		e.IdempotencyKey = &key
	}
	return e
}

func (s *Service) executeDeposit(ctx context.Context, req DepositRequest) (*domain.LedgerEntry, error) {
	if s.tx != nil {
		var entry domain.LedgerEntry
		err := s.tx.WithinTx(ctx, func(st wallet.Store) error {
			m, err := wallet.NewLedger(st.Accounts(), s.maxAttempts).Credit(ctx, req.AccountID, req.Amount)
			if err != nil {
				return err
			}
			entry = s.depositEntry(req, m)
			return st.Entries().Append(ctx, entry)
		})
		if err != nil {
			return nil, fmt.Errorf("executeDeposit: %w", err)
		}
		return &entry, nil
	}

	m, err := s.ledger.Credit(ctx, req.AccountID, req.Amount)
	if err != nil {
		return nil, fmt.Errorf("executeDeposit: %w", err)
	}

	entry := s.depositEntry(req, m)
	if err := s.store.Entries().Append(ctx, entry); err != nil {
		return nil, fmt.Errorf("executeDeposit: %w", s.undo(ctx, err, appliedLeg{
			mutation:     m,
			reversalKind: domain.EntryKindDepositReversal,
		}))
	}
	return &entry, nil
}
