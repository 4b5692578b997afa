package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/josh-kwaku/recipe-wallet/internal/domain"
)

// ItemRepository reads purchasable items from the recipes table owned by the
// content service.
type ItemRepository struct {
	db *sql.DB
}

func NewItemRepository(db *sql.DB) *ItemRepository {
	return &ItemRepository{db: db}
}

func (r *ItemRepository) GetPricedItem(ctx context.Context, itemID uuid.UUID) (*domain.PricedItem, error) {
	var it domain.PricedItem
	err := r.db.QueryRowContext(ctx,
		`SELECT id, creator_id, title, price, is_paid FROM recipes WHERE id = $1`, itemID,
	).Scan(&it.ID, &it.SellerID, &it.Title, &it.Price, &it.Paid)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetPricedItem: %w", domain.ErrItemNotFound)
		}
		return nil, fmt.Errorf("GetPricedItem: %w", err)
	}
	return &it, nil
}
