package domain

import "github.com/google/uuid"

// PricedItem is what the item collaborator reports about a purchasable item.
type PricedItem struct {
	ID       uuid.UUID
	SellerID uuid.UUID
	Title    string
	Price    Amount
	Paid     bool
}

func (i PricedItem) Purchasable() bool {
	return i.Paid && i.Price.IsPositive()
}
