package payment

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/josh-kwaku/recipe-wallet/internal/domain"
	"github.com/josh-kwaku/recipe-wallet/internal/logging"
)

// OpenAccount creates the wallet for a user if it does not exist yet and
// returns its current state.
func (s *Service) OpenAccount(ctx context.Context, accountID uuid.UUID) (*domain.Account, bool, error) {
	if accountID == uuid.Nil {
		return nil, false, fmt.Errorf("OpenAccount: %w", domain.ErrInvalidRequest)
	}

	created, err := s.store.Create(ctx, domain.NewAccount(accountID, s.now()))
	if err != nil {
		return nil, false, fmt.Errorf("OpenAccount: %w", err)
	}

	acct, err := s.GetBalance(ctx, accountID)
	if err != nil {
		return nil, false, fmt.Errorf("OpenAccount: %w", err)
	}

	if created {
		logging.FromContext(ctx).Info("wallet opened", "account_id", accountID)
	}
	return acct, created, nil
}

func (s *Service) GetBalance(ctx context.Context, accountID uuid.UUID) (*domain.Account, error) {
	acct, err := s.store.Accounts().Get(ctx, accountID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("GetBalance: %w", domain.ErrAccountNotFound)
		}
		return nil, fmt.Errorf("GetBalance: %w", err)
	}
	return acct, nil
}
