package memstore

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/josh-kwaku/recipe-wallet/internal/domain"
)

func deposit(account uuid.UUID, amount, after domain.Amount, key string, at time.Time) domain.LedgerEntry {
	e := domain.LedgerEntry{
		ID:           uuid.New(),
		AccountID:    account,
		Amount:       amount,
		Kind:         domain.EntryKindDeposit,
		BalanceAfter: after,
		CreatedAt:    at,
	}
	if key != "" {
		e.IdempotencyKey = &key
	}
	return e
}

func purchasePair(buyer, seller, item uuid.UUID, price domain.Amount) []domain.LedgerEntry {
	now := time.Now().UTC()
	return []domain.LedgerEntry{
		{
			ID: uuid.New(), AccountID: buyer, Amount: -price, Kind: domain.EntryKindPurchaseDebit,
			RelatedItemID: &item, CounterpartyAccountID: &seller, CreatedAt: now,
		},
		{
			ID: uuid.New(), AccountID: seller, Amount: price, Kind: domain.EntryKindPurchaseCredit,
			RelatedItemID: &item, CounterpartyAccountID: &buyer, BalanceAfter: price, CreatedAt: now,
		},
	}
}

func TestStore_CreateIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := New()
	acct := domain.NewAccount(uuid.New(), time.Now())

	created, err := s.Create(ctx, acct)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = s.Create(ctx, acct)
	require.NoError(t, err)
	assert.False(t, created)
}

func TestStore_CompareAndSwap(t *testing.T) {
	ctx := context.Background()
	s := New()
	acct := domain.NewAccount(uuid.New(), time.Now())
	_, err := s.Create(ctx, acct)
	require.NoError(t, err)

	ok, err := s.Accounts().CompareAndSwap(ctx, acct.UserID, 0, 500)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.Accounts().CompareAndSwap(ctx, acct.UserID, 0, 900)
	require.NoError(t, err)
	assert.False(t, ok, "stale version must lose")

	got, err := s.Accounts().Get(ctx, acct.UserID)
	require.NoError(t, err)
	assert.Equal(t, domain.Amount(500), got.Balance)
	assert.Equal(t, int64(1), got.Version)

	_, err = s.Accounts().CompareAndSwap(ctx, acct.UserID, 1, -1)
	assert.ErrorIs(t, err, domain.ErrInsufficientFunds)

	_, err = s.Accounts().Get(ctx, uuid.New())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStore_AppendEnforcesPurchaseOnce(t *testing.T) {
	ctx := context.Background()
	s := New()
	buyer, seller, item := uuid.New(), uuid.New(), uuid.New()

	require.NoError(t, s.Entries().Append(ctx, purchasePair(buyer, seller, item, 300)...))

	err := s.Entries().Append(ctx, purchasePair(buyer, seller, item, 300)...)
	require.ErrorIs(t, err, domain.ErrAlreadyPurchased)

	found, err := s.Entries().FindPurchase(ctx, buyer, item)
	require.NoError(t, err)
	assert.Equal(t, domain.Amount(-300), found.Amount)

	_, err = s.Entries().FindPurchase(ctx, seller, item)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	entries, total, err := s.Entries().ListByAccount(ctx, buyer, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, total, "rejected batch must not be partially written")
	assert.Len(t, entries, 1)
}

func TestStore_AppendEnforcesIdempotencyKey(t *testing.T) {
	ctx := context.Background()
	s := New()
	account := uuid.New()
	now := time.Now()

	require.NoError(t, s.Entries().Append(ctx, deposit(account, 100, 100, "k1", now)))

	err := s.Entries().Append(ctx, deposit(account, 100, 200, "k1", now))
	require.ErrorIs(t, err, domain.ErrDuplicateIdempotencyKey)

	found, err := s.Entries().FindByIdempotencyKey(ctx, "k1")
	require.NoError(t, err)
	assert.Equal(t, domain.Amount(100), found.BalanceAfter)

	_, err = s.Entries().FindByIdempotencyKey(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStore_AppendRejectsInvalidEntry(t *testing.T) {
	err := New().Entries().Append(context.Background(), deposit(uuid.New(), -5, 0, "", time.Now()))
	assert.ErrorIs(t, err, domain.ErrInvalidEntry)
}

func TestStore_ListByAccountNewestFirst(t *testing.T) {
	ctx := context.Background()
	s := New()
	account := uuid.New()
	base := time.Now().UTC()

	for i := range 5 {
		at := base.Add(time.Duration(i) * time.Second)
		require.NoError(t, s.Entries().Append(ctx, deposit(account, 100, domain.Amount(100*(i+1)), "", at)))
	}
	// Same timestamp as the last one; insertion order breaks the tie.
	require.NoError(t, s.Entries().Append(ctx, deposit(account, 100, 600, "", base.Add(4*time.Second))))
	require.NoError(t, s.Entries().Append(ctx, deposit(uuid.New(), 100, 100, "", base)))

	entries, total, err := s.Entries().ListByAccount(ctx, account, 0, 3)
	require.NoError(t, err)
	assert.Equal(t, 6, total)
	require.Len(t, entries, 3)
	assert.Equal(t, domain.Amount(600), entries[0].BalanceAfter)
	assert.Equal(t, domain.Amount(500), entries[1].BalanceAfter)
	assert.Equal(t, domain.Amount(400), entries[2].BalanceAfter)

	entries, _, err = s.Entries().ListByAccount(ctx, account, 5, 3)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, domain.Amount(100), entries[0].BalanceAfter)

	entries, total, err = s.Entries().ListByAccount(ctx, account, 50, 3)
	require.NoError(t, err)
	assert.Equal(t, 6, total)
	assert.Empty(t, entries)
}

func TestStore_AppendKeepsCreatedAtMonotonic(t *testing.T) {
	ctx := context.Background()
	s := New()
	account := uuid.New()
	later := time.Now().UTC()
	earlier := later.Add(-time.Second)

	// The second writer stamped its entry first but appended last.
	require.NoError(t, s.Entries().Append(ctx, deposit(account, 100, 100, "", later)))
	require.NoError(t, s.Entries().Append(ctx, deposit(account, 50, 150, "", earlier)))

	other := uuid.New()
	require.NoError(t, s.Entries().Append(ctx, deposit(other, 10, 10, "", earlier)))

	entries, _, err := s.Entries().ListByAccount(ctx, account, 0, 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, domain.Amount(150), entries[0].BalanceAfter)
	assert.Equal(t, domain.Amount(100), entries[1].BalanceAfter)
	assert.False(t, entries[0].CreatedAt.Before(entries[1].CreatedAt))

	entries, _, err = s.Entries().ListByAccount(ctx, other, 0, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, entries[0].CreatedAt.Equal(earlier))
}

func TestStore_ConcurrentPurchaseAppend(t *testing.T) {
	ctx := context.Background()
	s := New()
	buyer, seller, item := uuid.New(), uuid.New(), uuid.New()

	const goroutines = 10
	var wg sync.WaitGroup
	results := make(chan error, goroutines)

	for range goroutines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- s.Entries().Append(ctx, purchasePair(buyer, seller, item, 300)...)
		}()
	}
	wg.Wait()
	close(results)

	succeeded := 0
	for err := range results {
		if err == nil {
			succeeded++
			continue
		}
		require.ErrorIs(t, err, domain.ErrAlreadyPurchased)
	}
	assert.Equal(t, 1, succeeded)
}

func TestCatalog(t *testing.T) {
	item := domain.PricedItem{ID: uuid.New(), SellerID: uuid.New(), Title: "Jollof", Price: 1500, Paid: true}
	c := NewCatalog(item)

	got, err := c.GetPricedItem(context.Background(), item.ID)
	require.NoError(t, err)
	assert.Equal(t, item, *got)

	_, err = c.GetPricedItem(context.Background(), uuid.New())
	assert.ErrorIs(t, err, domain.ErrItemNotFound)
}
