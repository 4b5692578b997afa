package domain

import (
	"time"

	"github.com/google/uuid"
)

// Account is a user's wallet. Its id is the owning user's id.
type Account struct {
	UserID    uuid.UUID
	Balance   Amount
	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewAccount returns the zero-balance state a wallet starts in.
func NewAccount(userID uuid.UUID, now time.Time) *Account {
	return &Account{
		UserID:    userID,
		Balance:   0,
		Version:   0,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
