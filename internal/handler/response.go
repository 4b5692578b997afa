package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/josh-kwaku/recipe-wallet/internal/domain"
)

type APIResponse struct {
	Success bool      `json:"success"`
	Data    any       `json:"data"`
	Error   *APIError `json:"error"`
}

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func RespondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func RespondSuccess(w http.ResponseWriter, status int, data any) {
	RespondJSON(w, status, APIResponse{
		Success: true,
		Data:    data,
		Error:   nil,
	})
}

func RespondAppError(w http.ResponseWriter, appErr *AppError, details any) {
	RespondJSON(w, appErr.Status, APIResponse{
		Success: false,
		Data:    nil,
		Error: &APIError{
			Code:    appErr.Code,
			Message: appErr.Message,
			Details: details,
		},
	})
}

func RespondValidationError(w http.ResponseWriter, fields []FieldError) {
	RespondAppError(w, ErrValidationFailed, fields)
}

// MapDomainError resolves the AppError for err. A failed compensation wraps
// its cause as well, so it is checked first.
func MapDomainError(err error) *AppError {
	switch {
	case errors.Is(err, domain.ErrCompensationFailed):
		return ErrInternalError
	case errors.Is(err, domain.ErrInvalidAmount):
		return ErrInvalidAmount
	case errors.Is(err, domain.ErrInsufficientFunds):
		return ErrInsufficientFunds
	case errors.Is(err, domain.ErrAlreadyPurchased):
		return ErrAlreadyPurchased
	case errors.Is(err, domain.ErrSameAccount):
		return ErrSelfPurchase
	case errors.Is(err, domain.ErrConcurrentModification):
		return ErrConcurrentModification
	case errors.Is(err, domain.ErrItemNotFound):
		return ErrItemNotFound
	case errors.Is(err, domain.ErrItemNotPriced):
		return ErrItemNotPriced
	case errors.Is(err, domain.ErrAccountNotFound):
		return ErrAccountNotFound
	case errors.Is(err, domain.ErrIdempotencyConflict), errors.Is(err, domain.ErrDuplicateIdempotencyKey):
		return ErrIdempotencyConflict
	case errors.Is(err, domain.ErrLimitExceeded):
		return ErrLimitExceeded
	case errors.Is(err, domain.ErrInvalidRequest):
		return ErrInvalidRequest
	case errors.Is(err, domain.ErrNotFound):
		return ErrResourceNotFound
	default:
		return ErrInternalError
	}
}

func RespondDomainError(w http.ResponseWriter, err error) {
	appErr := MapDomainError(err)
	if appErr == ErrInternalError {
		if errors.Is(err, domain.ErrCompensationFailed) {
			slog.Error("compensation failed, wallet needs reconciliation", "error", err)
		} else {
			slog.Error("unhandled domain error", "error", err)
		}
	}
	RespondAppError(w, appErr, nil)
}
