package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/josh-kwaku/recipe-wallet/internal/domain"
	"github.com/josh-kwaku/recipe-wallet/internal/logging"
	"github.com/josh-kwaku/recipe-wallet/internal/wallet"
)

// Store is the Postgres wallet store. It also implements wallet.Transactor.
type Store struct {
	db       *sql.DB
	accounts *AccountRepository
	entries  *LedgerRepository
}

var (
	_ wallet.Store      = (*Store)(nil)
	_ wallet.Transactor = (*Store)(nil)
)

func NewStore(db *sql.DB) *Store {
	return &Store{
		db:       db,
		accounts: NewAccountRepository(db),
		entries:  NewLedgerRepository(db),
	}
}

func (s *Store) Accounts() wallet.AccountStore { return s.accounts }
func (s *Store) Entries() wallet.EntryStore    { return s.entries }

func (s *Store) Create(ctx context.Context, account *domain.Account) (bool, error) {
	return s.accounts.Create(ctx, account)
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

type txStore struct {
	accounts *AccountRepository
	entries  *LedgerRepository
}

func (t txStore) Accounts() wallet.AccountStore { return t.accounts }
func (t txStore) Entries() wallet.EntryStore    { return t.entries }

// WithinTx runs fn against a store bound to one READ COMMITTED transaction.
// A CAS update blocks on the row lock held by a concurrent writer and then
// re-checks the version, so the ledger's retry loop stays correct inside it.
func (s *Store) WithinTx(ctx context.Context, fn func(wallet.Store) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("WithinTx: begin: %w", err)
	}

	ts := txStore{
		accounts: &AccountRepository{q: tx},
		entries:  &LedgerRepository{q: tx},
	}
	if err := fn(ts); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			logging.FromContext(ctx).Error("rollback failed", "error", rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("WithinTx: commit: %w", mapPQError(err))
	}
	return nil
}
