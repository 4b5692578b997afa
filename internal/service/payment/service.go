package payment

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/josh-kwaku/recipe-wallet/internal/config"
	"github.com/josh-kwaku/recipe-wallet/internal/domain"
	"github.com/josh-kwaku/recipe-wallet/internal/wallet"
)

const DefaultListLimit = 20

type walletStore interface {
	wallet.Store
	Create(ctx context.Context, account *domain.Account) (bool, error)
}

type itemCatalog interface {
	GetPricedItem(ctx context.Context, itemID uuid.UUID) (*domain.PricedItem, error)
}

type notifier interface {
	Enqueue(ctx context.Context, n domain.Notification) error
}

// Service moves money between wallets. When the store implements
// wallet.Transactor every operation commits as one transaction; otherwise
// partially applied operations are undone by compensation.
type Service struct {
	store        walletStore
	tx           wallet.Transactor
	ledger       *wallet.Ledger
	items        itemCatalog
	notifier     notifier
	maxAttempts  int
	depositLimit domain.Amount
	listMax      int
	now          func() time.Time

	undoMaxElapsed      time.Duration
	undoInitialInterval time.Duration
}

func NewService(store walletStore, items itemCatalog, n notifier, cfg *config.Config) *Service {
	s := &Service{
		store:        store,
		ledger:       wallet.NewLedger(store.Accounts(), cfg.CASMaxAttempts),
		items:        items,
		notifier:     n,
		maxAttempts:  cfg.CASMaxAttempts,
		depositLimit: domain.Amount(cfg.DepositLimitMinor),
		listMax:      cfg.TxListMaxLimit,
		now:          func() time.Time { return time.Now().UTC() },

		undoMaxElapsed:      cfg.UndoMaxElapsed(),
		undoInitialInterval: 10 * time.Millisecond,
	}
	if t, ok := store.(wallet.Transactor); ok {
		s.tx = t
	}
	if s.listMax < 1 {
		s.listMax = DefaultListLimit
	}
	return s
}

// Transactional reports whether operations commit atomically in the store.
func (s *Service) Transactional() bool {
	return s.tx != nil
}
