package auth

import (
	"context"

	"github.com/google/uuid"
)

type accountIDKey struct{}

// ContextWithAccountID records the authenticated caller. A wallet's account
// id is its owner's user id, so this is the only identity handlers need.
func ContextWithAccountID(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, accountIDKey{}, id)
}

func AccountIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(accountIDKey{}).(uuid.UUID)
	return id, ok && id != uuid.Nil
}
