package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/josh-kwaku/recipe-wallet/internal/domain"
)

const ledgerColumns = `id, account_id, amount, kind, related_item_id,
	counterparty_account_id, balance_after, idempotency_key, created_at`

const ledgerColumnCount = 9

type LedgerRepository struct {
	q querier
}

func NewLedgerRepository(db *sql.DB) *LedgerRepository {
	return &LedgerRepository{q: db}
}

// Append writes the batch as a single INSERT so it lands whole or not at all
// even outside a transaction.
func (r *LedgerRepository) Append(ctx context.Context, entries ...domain.LedgerEntry) error {
	if len(entries) == 0 {
		return nil
	}

	values := make([]string, 0, len(entries))
	args := make([]any, 0, len(entries)*ledgerColumnCount)
	for i, e := range entries {
		if err := e.Validate(); err != nil {
			return fmt.Errorf("Append: %w", err)
		}

		base := i * ledgerColumnCount
		placeholders := make([]string, ledgerColumnCount)
		for j := range placeholders {
			placeholders[j] = fmt.Sprintf("$%d", base+j+1)
		}
		values = append(values, "("+strings.Join(placeholders, ", ")+")")

		args = append(args,
			e.ID, e.AccountID, e.Amount, e.Kind,
			nullUUID(e.RelatedItemID), nullUUID(e.CounterpartyAccountID),
			e.BalanceAfter, nullString(e.IdempotencyKey), e.CreatedAt,
		)
	}

	_, err := r.q.ExecContext(ctx,
		`INSERT INTO ledger_entries (`+ledgerColumns+`) VALUES `+strings.Join(values, ", "),
		args...,
	)
	if err != nil {
		return fmt.Errorf("Append: %w", mapPQError(err))
	}
	return nil
}

func (r *LedgerRepository) FindPurchase(ctx context.Context, buyerID, itemID uuid.UUID) (*domain.LedgerEntry, error) {
	row := r.q.QueryRowContext(ctx,
		`SELECT `+ledgerColumns+` FROM ledger_entries
		WHERE account_id = $1 AND related_item_id = $2 AND kind = $3`,
		buyerID, itemID, domain.EntryKindPurchaseDebit,
	)
	e, err := scanLedgerEntry(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("FindPurchase: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("FindPurchase: %w", err)
	}
	return e, nil
}

func (r *LedgerRepository) FindByIdempotencyKey(ctx context.Context, key string) (*domain.LedgerEntry, error) {
	row := r.q.QueryRowContext(ctx,
		`SELECT `+ledgerColumns+` FROM ledger_entries WHERE idempotency_key = $1`, key,
	)
	e, err := scanLedgerEntry(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("FindByIdempotencyKey: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("FindByIdempotencyKey: %w", err)
	}
	return e, nil
}

func (r *LedgerRepository) ListByAccount(ctx context.Context, accountID uuid.UUID, offset, limit int) ([]domain.LedgerEntry, int, error) {
	var total int
	err := r.q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM ledger_entries WHERE account_id = $1`, accountID,
	).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("ListByAccount: count: %w", err)
	}

	rows, err := r.q.QueryContext(ctx,
		`SELECT `+ledgerColumns+` FROM ledger_entries
		WHERE account_id = $1 ORDER BY created_at DESC, seq DESC LIMIT $2 OFFSET $3`,
		accountID, limit, offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("ListByAccount: %w", err)
	}
	defer rows.Close()

	entries := []domain.LedgerEntry{}
	for rows.Next() {
		e, err := scanLedgerEntry(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("ListByAccount: scan: %w", err)
		}
		entries = append(entries, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("ListByAccount: rows: %w", err)
	}
	return entries, total, nil
}

func scanLedgerEntry(s scanner) (*domain.LedgerEntry, error) {
	var (
		e            domain.LedgerEntry
		kind         string
		item         uuid.NullUUID
		counterparty uuid.NullUUID
		key          sql.NullString
	)
	err := s.Scan(
		&e.ID, &e.AccountID, &e.Amount, &kind, &item,
		&counterparty, &e.BalanceAfter, &key, &e.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	e.Kind = domain.EntryKind(kind)
	if item.Valid {
		e.RelatedItemID = &item.UUID
	}
	if counterparty.Valid {
		e.CounterpartyAccountID = &counterparty.UUID
	}
	if key.Valid {
		e.IdempotencyKey = &key.String
	}
	return &e, nil
}

func nullUUID(id *uuid.UUID) uuid.NullUUID {
	if id == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: *id, Valid: true}
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
