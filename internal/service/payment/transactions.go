package payment

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/josh-kwaku/recipe-wallet/internal/domain"
)

type TransactionPage struct {
	Entries []domain.LedgerEntry
	Total   int
	Offset  int
	Limit   int
}

// ListTransactions returns the account's entries newest first. A zero limit
// means DefaultListLimit; larger limits are capped.
func (s *Service) ListTransactions(ctx context.Context, accountID uuid.UUID, offset, limit int) (*TransactionPage, error) {
	if offset < 0 || limit < 0 {
		return nil, fmt.Errorf("ListTransactions: offset %d limit %d: %w", offset, limit, domain.ErrInvalidRequest)
	}
	if limit == 0 {
		limit = DefaultListLimit
	}
	limit = min(limit, s.listMax)

	if _, err := s.GetBalance(ctx, accountID); err != nil {
		return nil, fmt.Errorf("ListTransactions: %w", err)
	}

	entries, total, err := s.store.Entries().ListByAccount(ctx, accountID, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("ListTransactions: %w", err)
	}

	return &TransactionPage{Entries: entries, Total: total, Offset: offset, Limit: limit}, nil
}

// HasPurchased answers the content access check for a paid item.
func (s *Service) HasPurchased(ctx context.Context, accountID, itemID uuid.UUID) (bool, error) {
	_, err := s.store.Entries().FindPurchase(ctx, accountID, itemID)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, domain.ErrNotFound) {
		return false, nil
	}
	return false, fmt.Errorf("HasPurchased: %w", err)
}
