package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/josh-kwaku/recipe-wallet/internal/domain"
	"github.com/josh-kwaku/recipe-wallet/internal/logging"
	"github.com/josh-kwaku/recipe-wallet/internal/wallet"
)

type PurchaseRequest struct {
	BuyerID        uuid.UUID
	ItemID         uuid.UUID
	IdempotencyKey string
}

type PurchaseResult struct {
	Item        domain.PricedItem
	BuyerEntry  domain.LedgerEntry
	SellerEntry domain.LedgerEntry
	NewBalance  domain.Amount
}

type purchaseNotice struct {
	BuyerID uuid.UUID `json:"buyer_id"`
	ItemID  uuid.UUID `json:"item_id"`
	Title   string    `json:"title"`
	Price   string    `json:"price"`
	Content string    `json:"content"`
}

// Purchase moves the item's price from buyer to seller and records the pair
// of entries. A buyer can hold at most one purchase of an item; repeating it
// fails with domain.ErrAlreadyPurchased.
func (s *Service) Purchase(ctx context.Context, req PurchaseRequest) (*PurchaseResult, error) {
	log := logging.FromContext(ctx)

	item, err := s.resolveItem(ctx, req.ItemID)
	if err != nil {
		return nil, fmt.Errorf("Purchase: %w", err)
	}

	if err := s.validatePurchase(ctx, req, item); err != nil {
		return nil, fmt.Errorf("Purchase: %w", err)
	}

	res, err := s.executePurchase(ctx, req, item)
	if err != nil {
		if errors.Is(err, domain.ErrDuplicateIdempotencyKey) && !errors.Is(err, domain.ErrCompensationFailed) {
			err = s.classifyDuplicateKey(ctx, req, err)
		}
		return nil, fmt.Errorf("Purchase: %w", err)
	}

	log.Info("purchase completed",
		"buyer_id", req.BuyerID,
		"seller_id", item.SellerID,
		"item_id", item.ID,
		"amount", item.Price.String(),
		"entry_id", res.BuyerEntry.ID,
	)

	s.notifySeller(ctx, req.BuyerID, item)
	return res, nil
}

func (s *Service) resolveItem(ctx context.Context, itemID uuid.UUID) (*domain.PricedItem, error) {
	if itemID == uuid.Nil {
		return nil, fmt.Errorf("resolveItem: %w", domain.ErrItemNotFound)
	}

	item, err := s.items.GetPricedItem(ctx, itemID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("resolveItem: %w", domain.ErrItemNotFound)
		}
		return nil, fmt.Errorf("resolveItem: %w", err)
	}

	if !item.Purchasable() {
		return nil, fmt.Errorf("resolveItem: %s: %w", itemID, domain.ErrItemNotPriced)
	}
	return item, nil
}

func (s *Service) validatePurchase(ctx context.Context, req PurchaseRequest, item *domain.PricedItem) error {
	_, err := s.store.Entries().FindPurchase(ctx, req.BuyerID, item.ID)
	if err == nil {
		return fmt.Errorf("validatePurchase: %w", domain.ErrAlreadyPurchased)
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("validatePurchase: %w", err)
	}

	if req.BuyerID == item.SellerID {
		return fmt.Errorf("validatePurchase: %w", domain.ErrSameAccount)
	}

	if req.IdempotencyKey != "" {
		_, err := s.store.Entries().FindByIdempotencyKey(ctx, req.IdempotencyKey)
		if err == nil {
			return fmt.Errorf("validatePurchase: %w", domain.ErrIdempotencyConflict)
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("validatePurchase: %w", err)
		}
	}
	return nil
}

// classifyDuplicateKey decides whether a key collision was a retried
// purchase of this item or a key reused for something else.
func (s *Service) classifyDuplicateKey(ctx context.Context, req PurchaseRequest, err error) error {
	if _, ferr := s.store.Entries().FindPurchase(ctx, req.BuyerID, req.ItemID); ferr == nil {
		return fmt.Errorf("%w: %w", domain.ErrAlreadyPurchased, err)
	}
	return fmt.Errorf("%w: %w", domain.ErrIdempotencyConflict, err)
}

func (s *Service) purchaseEntries(req PurchaseRequest, item *domain.PricedItem, buyer, seller *wallet.Mutation) (domain.LedgerEntry, domain.LedgerEntry) {
	now := s.now()
	itemID, buyerID, sellerID := item.ID, req.BuyerID, item.SellerID

	debit := domain.LedgerEntry{
		ID:                    uuid.New(),
		AccountID:             buyerID,
		Amount:                -item.Price,
		Kind:                  domain.EntryKindPurchaseDebit,
		RelatedItemID:         &itemID,
		CounterpartyAccountID: &sellerID,
		BalanceAfter:          buyer.BalanceAfter,
		CreatedAt:             now,
	}
	if req.IdempotencyKey != "" {
		key := req.IdempotencyKey
		debit.IdempotencyKey = &key
	}

	credit := domain.LedgerEntry{
		ID:                    uuid.New(),
		AccountID:             sellerID,
		Amount:                item.Price,
		Kind:                  domain.EntryKindPurchaseCredit,
		RelatedItemID:         &itemID,
		CounterpartyAccountID: &buyerID,
		BalanceAfter:          seller.BalanceAfter,
		CreatedAt:             now,
	}
	return debit, credit
}

func (s *Service) executePurchase(ctx context.Context, req PurchaseRequest, item *domain.PricedItem) (*PurchaseResult, error) {
	if s.tx != nil {
		return s.executePurchaseTx(ctx, req, item)
	}
	return s.executePurchaseCompensated(ctx, req, item)
}

func (s *Service) executePurchaseTx(ctx context.Context, req PurchaseRequest, item *domain.PricedItem) (*PurchaseResult, error) {
	var res *PurchaseResult
	err := s.tx.WithinTx(ctx, func(st wallet.Store) error {
		ledger := wallet.NewLedger(st.Accounts(), s.maxAttempts)

		var buyer, seller *wallet.Mutation
		debit := func() (err error) {
			buyer, err = ledger.Debit(ctx, req.BuyerID, item.Price)
			return err
		}
		credit := func() (err error) {
			seller, err = ledger.Credit(ctx, item.SellerID, item.Price)
			return err
		}

		// Row locks are taken in account id order so two purchases running in
		// opposite directions cannot deadlock.
		steps := []func() error{debit, credit}
		if item.SellerID.String() < req.BuyerID.String() {
			steps = []func() error{credit, debit}
		}
		for _, step := range steps {
			if err := step(); err != nil {
				return err
			}
		}

		d, c := s.purchaseEntries(req, item, buyer, seller)
		if err := st.Entries().Append(ctx, d, c); err != nil {
			return err
		}
		res = &PurchaseResult{Item: *item, BuyerEntry: d, SellerEntry: c, NewBalance: buyer.BalanceAfter}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("executePurchaseTx: %w", err)
	}
	return res, nil
}

func (s *Service) executePurchaseCompensated(ctx context.Context, req PurchaseRequest, item *domain.PricedItem) (*PurchaseResult, error) {
	itemID, buyerID, sellerID := item.ID, req.BuyerID, item.SellerID

	buyer, err := s.ledger.Debit(ctx, buyerID, item.Price)
	if err != nil {
		return nil, fmt.Errorf("executePurchaseCompensated: %w", err)
	}
	buyerLeg := appliedLeg{
		mutation:     buyer,
		reversalKind: domain.EntryKindPurchaseReversal,
		itemID:       &itemID,
		counterparty: &sellerID,
	}

	seller, err := s.ledger.Credit(ctx, sellerID, item.Price)
	if err != nil {
		return nil, fmt.Errorf("executePurchaseCompensated: %w", s.undo(ctx, err, buyerLeg))
	}
	sellerLeg := appliedLeg{
		mutation:     seller,
		reversalKind: domain.EntryKindPurchaseReversal,
		itemID:       &itemID,
		counterparty: &buyerID,
	}

	d, c := s.purchaseEntries(req, item, buyer, seller)
	if err := s.store.Entries().Append(ctx, d, c); err != nil {
		return nil, fmt.Errorf("executePurchaseCompensated: %w", s.undo(ctx, err, buyerLeg, sellerLeg))
	}

	return &PurchaseResult{Item: *item, BuyerEntry: d, SellerEntry: c, NewBalance: buyer.BalanceAfter}, nil
}

func (s *Service) notifySeller(ctx context.Context, buyerID uuid.UUID, item *domain.PricedItem) {
	if s.notifier == nil {
		return
	}
	log := logging.FromContext(ctx)

	payload, err := json.Marshal(purchaseNotice{
		BuyerID: buyerID,
		ItemID:  item.ID,
		Title:   item.Title,
		Price:   item.Price.String(),
		Content: fmt.Sprintf("%s purchased your item '%s'", buyerID, item.Title),
	})
	if err != nil {
		log.Error("failed to encode purchase notification", "error", err)
		return
	}

	n := domain.Notification{
		ID:        uuid.New(),
		AccountID: item.SellerID,
		Kind:      domain.NotificationKindPurchase,
		Payload:   payload,
		CreatedAt: s.now(),
	}
	if err := s.notifier.Enqueue(ctx, n); err != nil {
		log.Warn("purchase notification dropped",
			"notification_id", n.ID,
			"seller_id", item.SellerID,
			"error", err,
		)
	}
}
