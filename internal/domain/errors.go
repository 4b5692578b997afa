package domain

import "errors"

var (
	ErrNotFound                = errors.New("not found")
	ErrAccountNotFound         = errors.New("account not found")
	ErrInvalidAmount           = errors.New("amount must be greater than zero")
	ErrInsufficientFunds       = errors.New("insufficient funds")
	ErrAlreadyPurchased        = errors.New("item already purchased")
	ErrSameAccount             = errors.New("buyer and seller are the same account")
	ErrConcurrentModification  = errors.New("account modified concurrently, retry the operation")
	ErrItemNotFound            = errors.New("item not found")
	ErrItemNotPriced           = errors.New("item is not a priced item")
	ErrLimitExceeded           = errors.New("deposit limit exceeded")
	ErrInvalidRequest          = errors.New("invalid request")
	ErrDuplicateIdempotencyKey = errors.New("duplicate idempotency key")
	ErrIdempotencyConflict     = errors.New("idempotency key already used for a different request")
	ErrInvalidEntry            = errors.New("invalid ledger entry")

	// ErrReversalRecorded is returned by a compensation that restored every
	// applied leg and wrote its reversal entries. Callers report the failure
	// that triggered the compensation instead.
	ErrReversalRecorded = errors.New("reversal recorded")

	// ErrCompensationFailed means an applied leg could not be restored and the
	// affected accounts need manual reconciliation.
	ErrCompensationFailed = errors.New("compensation failed")
)
