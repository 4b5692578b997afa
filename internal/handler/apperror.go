package handler

import "net/http"

type AppError struct {
	Status  int
	Code    string
	Message string
}

func (e *AppError) Error() string { return e.Message }

var (
	ErrMissingToken     = &AppError{http.StatusUnauthorized, "MISSING_TOKEN", "Authorization header required"}
	ErrInvalidToken     = &AppError{http.StatusUnauthorized, "INVALID_TOKEN", "Token is invalid or expired"}
	ErrInvalidRequest   = &AppError{http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body"}
	ErrValidationFailed = &AppError{http.StatusBadRequest, "VALIDATION_FAILED", "Validation failed"}
	ErrResourceNotFound = &AppError{http.StatusNotFound, "RESOURCE_NOT_FOUND", "Resource not found"}
	ErrInternalError    = &AppError{http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred"}

	ErrInvalidAmount          = &AppError{http.StatusBadRequest, "INVALID_AMOUNT", "Amount must be greater than zero with at most two decimal places"}
	ErrInsufficientFunds      = &AppError{http.StatusUnprocessableEntity, "INSUFFICIENT_FUNDS", "Insufficient funds"}
	ErrAlreadyPurchased       = &AppError{http.StatusConflict, "ALREADY_PURCHASED", "Item already purchased"}
	ErrSelfPurchase           = &AppError{http.StatusUnprocessableEntity, "SELF_PURCHASE_NOT_ALLOWED", "Cannot purchase your own item"}
	ErrConcurrentModification = &AppError{http.StatusConflict, "CONCURRENT_MODIFICATION", "Wallet was modified concurrently, please retry"}
	ErrItemNotFound           = &AppError{http.StatusNotFound, "ITEM_NOT_FOUND", "Item not found"}
	ErrItemNotPriced          = &AppError{http.StatusUnprocessableEntity, "ITEM_NOT_PRICED", "Item is not for sale"}
	ErrAccountNotFound        = &AppError{http.StatusNotFound, "ACCOUNT_NOT_FOUND", "Wallet not found"}
	ErrLimitExceeded          = &AppError{http.StatusUnprocessableEntity, "DEPOSIT_LIMIT_EXCEEDED", "Deposit limit exceeded"}
	ErrMissingIdempotencyKey  = &AppError{http.StatusBadRequest, "MISSING_IDEMPOTENCY_KEY", "Idempotency-Key header is required"}
	ErrInvalidIdempotencyKey  = &AppError{http.StatusBadRequest, "INVALID_IDEMPOTENCY_KEY", "Idempotency-Key header is malformed"}
	ErrIdempotencyConflict    = &AppError{http.StatusConflict, "IDEMPOTENCY_CONFLICT", "Idempotency key already used with a different request"}
)
