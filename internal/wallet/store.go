package wallet

import (
	"context"

	"github.com/google/uuid"

	"github.com/josh-kwaku/recipe-wallet/internal/domain"
)

// AccountStore is the storage substrate balance mutations are built on.
// It holds no business rules.
type AccountStore interface {
	Get(ctx context.Context, accountID uuid.UUID) (*domain.Account, error)
	// CompareAndSwap writes newBalance and bumps the version only if the
	// stored version still equals expectedVersion.
	CompareAndSwap(ctx context.Context, accountID uuid.UUID, expectedVersion int64, newBalance domain.Amount) (bool, error)
}

// EntryStore is the append-only ledger. There is no update or delete.
type EntryStore interface {
	// Append writes all entries or none. A second purchase_debit for the same
	// (account, item) fails with domain.ErrAlreadyPurchased and a reused
	// idempotency key with domain.ErrDuplicateIdempotencyKey.
	Append(ctx context.Context, entries ...domain.LedgerEntry) error
	FindPurchase(ctx context.Context, buyerID, itemID uuid.UUID) (*domain.LedgerEntry, error)
	FindByIdempotencyKey(ctx context.Context, key string) (*domain.LedgerEntry, error)
	ListByAccount(ctx context.Context, accountID uuid.UUID, offset, limit int) ([]domain.LedgerEntry, int, error)
}

type Store interface {
	Accounts() AccountStore
	Entries() EntryStore
}

// Transactor is implemented by stores that can commit several account and
// ledger writes as one unit. fn receives a Store bound to the transaction.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(Store) error) error
}
