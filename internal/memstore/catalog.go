package memstore

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/josh-kwaku/recipe-wallet/internal/domain"
)

// Catalog is an in-memory item collaborator.
type Catalog struct {
	mu    sync.RWMutex
	items map[uuid.UUID]domain.PricedItem
}

func NewCatalog(items ...domain.PricedItem) *Catalog {
	c := &Catalog{items: make(map[uuid.UUID]domain.PricedItem, len(items))}
	for _, it := range items {
		c.items[it.ID] = it
	}
	return c
}

func (c *Catalog) Put(item domain.PricedItem) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[item.ID] = item
}

func (c *Catalog) GetPricedItem(_ context.Context, itemID uuid.UUID) (*domain.PricedItem, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	item, ok := c.items[itemID]
	if !ok {
		return nil, fmt.Errorf("GetPricedItem: %w", domain.ErrItemNotFound)
	}
	return &item, nil
}
