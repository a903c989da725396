package resolver

import (
	"context"
	"errors"

	"session-sync/internal/auth/store"
	"session-sync/internal/logger"
)

// Linker records provider-account-to-local-user associations.
type Linker struct {
	store store.Store
}

func NewLinker(s store.Store) *Linker {
	return &Linker{store: s}
}

// Link inserts the (provider, providerAccountID) -> userID association
// if absent and reports whether the mapping is in place afterwards.
// Repeated calls are no-ops.
//
// A failed link is logged as a warning, not escalated: the user row
// already exists and the mapping is repaired on the next sync attempt.
func (l *Linker) Link(ctx context.Context, userID, provider, providerAccountID string) bool {
	err := l.store.CreateAccountLink(ctx, &store.AccountLink{
		Provider:          provider,
		ProviderAccountID: providerAccountID,
		UserID:            userID,
	})

	if err == nil || errors.Is(err, store.ErrDuplicateLink) {
		return err == nil
	}

	logger.Warn("account link insert failed", map[string]any{
		"provider": provider,
		"userId":   userID,
		"error":    err.Error(),
	})
	return false
}
