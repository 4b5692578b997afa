// Package memstore keeps wallet state in process memory. Each call is atomic
// on its own, but the store offers no multi-call transaction, so the payment
// service drives its compensating protocol against it.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/josh-kwaku/recipe-wallet/internal/domain"
	"github.com/josh-kwaku/recipe-wallet/internal/wallet"
)

type purchaseKey struct {
	buyer uuid.UUID
	item  uuid.UUID
}

type storedEntry struct {
	entry domain.LedgerEntry
	seq   int64
}

type Store struct {
	mu        sync.RWMutex
	accounts  map[uuid.UUID]domain.Account
	entries   []storedEntry
	byKey     map[string]int
	purchases map[purchaseKey]int
	lastAt    map[uuid.UUID]time.Time
	seq       int64
	now       func() time.Time
}

var _ wallet.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		accounts:  make(map[uuid.UUID]domain.Account),
		byKey:     make(map[string]int),
		purchases: make(map[purchaseKey]int),
		lastAt:    make(map[uuid.UUID]time.Time),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *Store) Accounts() wallet.AccountStore { return accountStore{s} }
func (s *Store) Entries() wallet.EntryStore    { return entryStore{s} }

func (s *Store) Ping(context.Context) error { return nil }

// Create inserts a zero-balance account. It reports false when the account
// already existed.
func (s *Store) Create(_ context.Context, account *domain.Account) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.accounts[account.UserID]; ok {
		return false, nil
	}
	s.accounts[account.UserID] = *account
	return true, nil
}

type accountStore struct{ s *Store }

func (a accountStore) Get(_ context.Context, accountID uuid.UUID) (*domain.Account, error) {
	a.s.mu.RLock()
	defer a.s.mu.RUnlock()

	acct, ok := a.s.accounts[accountID]
	if !ok {
		return nil, fmt.Errorf("Get: %w", domain.ErrNotFound)
	}
	return &acct, nil
}

func (a accountStore) CompareAndSwap(_ context.Context, accountID uuid.UUID, expectedVersion int64, newBalance domain.Amount) (bool, error) {
	a.s.mu.Lock()
	defer a.s.mu.Unlock()

	acct, ok := a.s.accounts[accountID]
	if !ok {
		return false, fmt.Errorf("CompareAndSwap: %w", domain.ErrNotFound)
	}
	if acct.Version != expectedVersion {
		return false, nil
	}
	if newBalance < 0 {
		return false, fmt.Errorf("CompareAndSwap: %w", domain.ErrInsufficientFunds)
	}

	acct.Balance = newBalance
	acct.Version++
	acct.UpdatedAt = a.s.now()
	a.s.accounts[accountID] = acct
	return true, nil
}

type entryStore struct{ s *Store }

func (e entryStore) Append(_ context.Context, entries ...domain.LedgerEntry) error {
	e.s.mu.Lock()
	defer e.s.mu.Unlock()

	// Validate the whole batch before writing any of it.
	batchKeys := make(map[string]struct{}, len(entries))
	batchPurchases := make(map[purchaseKey]struct{}, len(entries))
	for _, entry := range entries {
		if err := entry.Validate(); err != nil {
			return fmt.Errorf("Append: %w", err)
		}
		if entry.IdempotencyKey != nil {
			key := *entry.IdempotencyKey
			if _, ok := e.s.byKey[key]; ok {
				return fmt.Errorf("Append: %w", domain.ErrDuplicateIdempotencyKey)
			}
			if _, ok := batchKeys[key]; ok {
				return fmt.Errorf("Append: %w", domain.ErrDuplicateIdempotencyKey)
			}
			batchKeys[key] = struct{}{}
		}
		if entry.Kind == domain.EntryKindPurchaseDebit {
			pk := purchaseKey{buyer: entry.AccountID, item: *entry.RelatedItemID}
			if _, ok := e.s.purchases[pk]; ok {
				return fmt.Errorf("Append: %w", domain.ErrAlreadyPurchased)
			}
			if _, ok := batchPurchases[pk]; ok {
				return fmt.Errorf("Append: %w", domain.ErrAlreadyPurchased)
			}
			batchPurchases[pk] = struct{}{}
		}
	}

	// Entries are stamped by callers before the lock is taken, so a later
	// append can carry an earlier time. Keep created_at monotonic per account.
	for _, entry := range entries {
		if last, ok := e.s.lastAt[entry.AccountID]; ok && entry.CreatedAt.Before(last) {
			entry.CreatedAt = last
		}
		e.s.lastAt[entry.AccountID] = entry.CreatedAt

		e.s.seq++
		idx := len(e.s.entries)
		e.s.entries = append(e.s.entries, storedEntry{entry: entry, seq: e.s.seq})
		if entry.IdempotencyKey != nil {
			e.s.byKey[*entry.IdempotencyKey] = idx
		}
		if entry.Kind == domain.EntryKindPurchaseDebit {
			e.s.purchases[purchaseKey{buyer: entry.AccountID, item: *entry.RelatedItemID}] = idx
		}
	}
	return nil
}

func (e entryStore) FindPurchase(_ context.Context, buyerID, itemID uuid.UUID) (*domain.LedgerEntry, error) {
	e.s.mu.RLock()
	defer e.s.mu.RUnlock()

	idx, ok := e.s.purchases[purchaseKey{buyer: buyerID, item: itemID}]
	if !ok {
		return nil, fmt.Errorf("FindPurchase: %w", domain.ErrNotFound)
	}
	entry := e.s.entries[idx].entry
	return &entry, nil
}

func (e entryStore) FindByIdempotencyKey(_ context.Context, key string) (*domain.LedgerEntry, error) {
	e.s.mu.RLock()
	defer e.s.mu.RUnlock()

	idx, ok := e.s.byKey[key]
	if !ok {
		return nil, fmt.Errorf("FindByIdempotencyKey: %w", domain.ErrNotFound)
	}
	entry := e.s.entries[idx].entry
	return &entry, nil
}

func (e entryStore) ListByAccount(_ context.Context, accountID uuid.UUID, offset, limit int) ([]domain.LedgerEntry, int, error) {
	e.s.mu.RLock()
	var matched []storedEntry
	for _, se := range e.s.entries {
		if se.entry.AccountID == accountID {
			matched = append(matched, se)
		}
	}
	e.s.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].seq > matched[j].seq
	})

	total := len(matched)
	if offset >= total {
		return []domain.LedgerEntry{}, total, nil
	}
	end := min(offset+limit, total)

	page := make([]domain.LedgerEntry, 0, end-offset)
	for _, se := range matched[offset:end] {
		page = append(page, se.entry)
	}
	return page, total, nil
}
