package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/josh-kwaku/recipe-wallet/internal/auth"
	"github.com/josh-kwaku/recipe-wallet/internal/domain"
	"github.com/josh-kwaku/recipe-wallet/internal/logging"
	"github.com/josh-kwaku/recipe-wallet/internal/service/payment"
)

type walletService interface {
	OpenAccount(ctx context.Context, accountID uuid.UUID) (*domain.Account, bool, error)
	GetBalance(ctx context.Context, accountID uuid.UUID) (*domain.Account, error)
	Deposit(ctx context.Context, req payment.DepositRequest) (*payment.DepositResult, error)
	Purchase(ctx context.Context, req payment.PurchaseRequest) (*payment.PurchaseResult, error)
	HasPurchased(ctx context.Context, accountID, itemID uuid.UUID) (bool, error)
	ListTransactions(ctx context.Context, accountID uuid.UUID, offset, limit int) (*payment.TransactionPage, error)
}

type WalletHandler struct {
	wallets walletService
}

func NewWalletHandler(wallets walletService) *WalletHandler {
	return &WalletHandler{wallets: wallets}
}

type depositRequest struct {
	Amount string `json:"amount" validate:"required,numeric"`
}

type listQuery struct {
	Offset int `query:"offset" validate:"min=0"`
	Limit  int `query:"limit" validate:"min=0"`
}

type walletDTO struct {
	AccountID uuid.UUID `json:"account_id"`
	Balance   string    `json:"balance"`
	Version   int64     `json:"version"`
	CreatedAt time.Time `json:"created_at"`
}

type balanceDTO struct {
	Balance string `json:"balance"`
	Version int64  `json:"version"`
}

type depositDTO struct {
	NewBalance    string    `json:"new_balance"`
	LedgerEntryID uuid.UUID `json:"ledger_entry_id"`
	Replayed      bool      `json:"replayed"`
}

type purchaseDTO struct {
	Success       bool      `json:"success"`
	LedgerEntryID uuid.UUID `json:"ledger_entry_id"`
	NewBalance    string    `json:"new_balance"`
}

type entryDTO struct {
	ID                    uuid.UUID  `json:"id"`
	Amount                string     `json:"amount"`
	Kind                  string     `json:"kind"`
	RelatedItemID         *uuid.UUID `json:"related_item_id"`
	CounterpartyAccountID *uuid.UUID `json:"counterparty_account_id"`
	BalanceAfter          string     `json:"balance_after"`
	CreatedAt             time.Time  `json:"created_at"`
}

type transactionsDTO struct {
	Entries []entryDTO `json:"entries"`
	Total   int        `json:"total"`
	Offset  int        `json:"offset"`
	Limit   int        `json:"limit"`
}

func toEntryDTO(e domain.LedgerEntry) entryDTO {
	return entryDTO{
		ID:                    e.ID,
		Amount:                e.Amount.String(),
		Kind:                  string(e.Kind),
		RelatedItemID:         e.RelatedItemID,
		CounterpartyAccountID: e.CounterpartyAccountID,
		BalanceAfter:          e.BalanceAfter.String(),
		CreatedAt:             e.CreatedAt,
	}
}

func (h *WalletHandler) Open(w http.ResponseWriter, r *http.Request) {
	accountID, ok := auth.AccountIDFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrMissingToken, nil)
		return
	}

	acct, created, err := h.wallets.OpenAccount(r.Context(), accountID)
	if err != nil {
		logging.FromContext(r.Context()).Warn("open wallet failed", "error", err)
		RespondDomainError(w, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	RespondSuccess(w, status, walletDTO{
		AccountID: acct.UserID,
		Balance:   acct.Balance.String(),
		Version:   acct.Version,
		CreatedAt: acct.CreatedAt,
	})
}

func (h *WalletHandler) Balance(w http.ResponseWriter, r *http.Request) {
	accountID, ok := auth.AccountIDFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrMissingToken, nil)
		return
	}

	acct, err := h.wallets.GetBalance(r.Context(), accountID)
	if err != nil {
		logging.FromContext(r.Context()).Warn("balance lookup failed", "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, balanceDTO{Balance: acct.Balance.String(), Version: acct.Version})
}

func (h *WalletHandler) Deposit(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	accountID, ok := auth.AccountIDFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrMissingToken, nil)
		return
	}

	var req depositRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}

	if fields := validateStruct(req); len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	amount, err := domain.ParseAmount(req.Amount)
	if err != nil {
		RespondAppError(w, ErrInvalidAmount, nil)
		return
	}

	res, err := h.wallets.Deposit(r.Context(), payment.DepositRequest{
		AccountID:      accountID,
		Amount:         amount,
		IdempotencyKey: IdempotencyKeyFromContext(r.Context()),
	})
	if err != nil {
		log.Warn("deposit failed", "error", err)
		RespondDomainError(w, err)
		return
	}

	status := http.StatusCreated
	if res.Replayed {
		w.Header().Set("X-Idempotent-Replayed", "true")
		status = http.StatusOK
	}
	RespondSuccess(w, status, depositDTO{
		NewBalance:    res.NewBalance.String(),
		LedgerEntryID: res.Entry.ID,
		Replayed:      res.Replayed,
	})
}

func (h *WalletHandler) Purchase(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	buyerID, ok := auth.AccountIDFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrMissingToken, nil)
		return
	}

	itemID, err := uuid.Parse(chi.URLParam(r, "item_id"))
	if err != nil {
		RespondAppError(w, ErrItemNotFound, nil)
		return
	}

	res, err := h.wallets.Purchase(r.Context(), payment.PurchaseRequest{
		BuyerID:        buyerID,
		ItemID:         itemID,
		IdempotencyKey: IdempotencyKeyFromContext(r.Context()),
	})
	if err != nil {
		log.Warn("purchase failed", "item_id", itemID, "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusCreated, purchaseDTO{
		Success:       true,
		LedgerEntryID: res.BuyerEntry.ID,
		NewBalance:    res.NewBalance.String(),
	})
}

func (h *WalletHandler) PurchaseStatus(w http.ResponseWriter, r *http.Request) {
	accountID, ok := auth.AccountIDFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrMissingToken, nil)
		return
	}

	itemID, err := uuid.Parse(chi.URLParam(r, "item_id"))
	if err != nil {
		RespondAppError(w, ErrItemNotFound, nil)
		return
	}

	purchased, err := h.wallets.HasPurchased(r.Context(), accountID, itemID)
	if err != nil {
		logging.FromContext(r.Context()).Warn("purchase lookup failed", "item_id", itemID, "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, map[string]bool{"purchased": purchased})
}

func (h *WalletHandler) Transactions(w http.ResponseWriter, r *http.Request) {
	accountID, ok := auth.AccountIDFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrMissingToken, nil)
		return
	}

	q, fields := parseListQuery(r)
	if len(fields) == 0 {
		fields = validateStruct(q)
	}
	if len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	page, err := h.wallets.ListTransactions(r.Context(), accountID, q.Offset, q.Limit)
	if err != nil {
		logging.FromContext(r.Context()).Warn("transaction listing failed", "error", err)
		RespondDomainError(w, err)
		return
	}

	entries := make([]entryDTO, 0, len(page.Entries))
	for _, e := range page.Entries {
		entries = append(entries, toEntryDTO(e))
	}
	RespondSuccess(w, http.StatusOK, transactionsDTO{
		Entries: entries,
		Total:   page.Total,
		Offset:  page.Offset,
		Limit:   page.Limit,
	})
}

func parseListQuery(r *http.Request) (listQuery, []FieldError) {
	var q listQuery
	var errs []FieldError

	values := r.URL.Query()
	for _, p := range []struct {
		name string
		dst  *int
	}{
		{"offset", &q.Offset},
		{"limit", &q.Limit},
	} {
		raw := values.Get(p.name)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			errs = append(errs, FieldError{Field: p.name, Message: "must be an integer"})
			continue
		}
		*p.dst = n
	}
	return q, errs
}
