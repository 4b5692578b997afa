package testutil

import (
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/josh-kwaku/recipe-wallet/internal/domain"
)

// SeedAccount inserts a wallet with the given balance and version 0.
func SeedAccount(t *testing.T, db *sql.DB, balance domain.Amount) *domain.Account {
	t.Helper()

	now := time.Now().UTC()
	a := &domain.Account{
		UserID:    uuid.New(),
		Balance:   balance,
		Version:   0,
		CreatedAt: now,
		UpdatedAt: now,
	}

	_, err := db.Exec(
		`INSERT INTO accounts (user_id, balance, version, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		a.UserID, a.Balance, a.Version, a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		t.Fatalf("seed account: %v", err)
	}
	return a
}

func SeedRecipe(t *testing.T, db *sql.DB, creatorID uuid.UUID, title string, price domain.Amount, paid bool) *domain.PricedItem {
	t.Helper()

	it := &domain.PricedItem{
		ID:       uuid.New(),
		SellerID: creatorID,
		Title:    title,
		Price:    price,
		Paid:     paid,
	}

	_, err := db.Exec(
		`INSERT INTO recipes (id, creator_id, title, is_paid, price) VALUES ($1, $2, $3, $4, $5)`,
		it.ID, it.SellerID, it.Title, it.Paid, it.Price,
	)
	if err != nil {
		t.Fatalf("seed recipe %q: %v", title, err)
	}
	return it
}

func GetBalance(t *testing.T, db *sql.DB, accountID uuid.UUID) domain.Amount {
	t.Helper()

	var balance int64
	err := db.QueryRow(`SELECT balance FROM accounts WHERE user_id = $1`, accountID).Scan(&balance)
	if err != nil {
		t.Fatalf("get balance %s: %v", accountID, err)
	}
	return domain.Amount(balance)
}

func CountEntries(t *testing.T, db *sql.DB, accountID uuid.UUID) int {
	t.Helper()

	var count int
	err := db.QueryRow(`SELECT COUNT(*) FROM ledger_entries WHERE account_id = $1`, accountID).Scan(&count)
	if err != nil {
		t.Fatalf("count ledger entries for %s: %v", accountID, err)
	}
	return count
}

// LedgerSum is the sum of every entry amount on the account. It must always
// equal the account balance.
func LedgerSum(t *testing.T, db *sql.DB, accountID uuid.UUID) domain.Amount {
	t.Helper()

	var sum int64
	err := db.QueryRow(`SELECT COALESCE(SUM(amount), 0) FROM ledger_entries WHERE account_id = $1`, accountID).Scan(&sum)
	if err != nil {
		t.Fatalf("sum ledger entries for %s: %v", accountID, err)
	}
	return domain.Amount(sum)
}
