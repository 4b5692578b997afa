package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/josh-kwaku/recipe-wallet/internal/domain"
)

const accountColumns = `user_id, balance, version, created_at, updated_at`

type AccountRepository struct {
	q querier
}

func NewAccountRepository(db *sql.DB) *AccountRepository {
	return &AccountRepository{q: db}
}

func (r *AccountRepository) Get(ctx context.Context, accountID uuid.UUID) (*domain.Account, error) {
	row := r.q.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE user_id = $1`, accountID,
	)
	a, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("Get: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("Get: %w", err)
	}
	return a, nil
}

// CompareAndSwap reports false without error when the row exists but its
// version has moved on.
func (r *AccountRepository) CompareAndSwap(ctx context.Context, accountID uuid.UUID, expectedVersion int64, newBalance domain.Amount) (bool, error) {
	res, err := r.q.ExecContext(ctx,
		`UPDATE accounts SET balance = $1, version = version + 1, updated_at = now()
		WHERE user_id = $2 AND version = $3`,
		newBalance, accountID, expectedVersion,
	)
	if err != nil {
		return false, fmt.Errorf("CompareAndSwap: %w", mapPQError(err))
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("CompareAndSwap: rows affected: %w", err)
	}
	if rows == 1 {
		return true, nil
	}

	var exists bool
	err = r.q.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM accounts WHERE user_id = $1)`, accountID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("CompareAndSwap: exists: %w", err)
	}
	if !exists {
		return false, fmt.Errorf("CompareAndSwap: %w", domain.ErrNotFound)
	}
	return false, nil
}

// Create inserts the account and reports whether it was new.
func (r *AccountRepository) Create(ctx context.Context, account *domain.Account) (bool, error) {
	res, err := r.q.ExecContext(ctx,
		`INSERT INTO accounts (user_id, balance, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id) DO NOTHING`,
		account.UserID, account.Balance, account.Version, account.CreatedAt, account.UpdatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("Create: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("Create: rows affected: %w", err)
	}
	return rows == 1, nil
}

func scanAccount(s scanner) (*domain.Account, error) {
	var a domain.Account
	err := s.Scan(&a.UserID, &a.Balance, &a.Version, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}
