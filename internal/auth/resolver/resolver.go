package resolver

import (
	"context"
	"errors"
	"strconv"

	"session-sync/internal/auth"
	"session-sync/internal/auth/store"
	"session-sync/internal/logger"
)

// externalIDMetadataKey records the upstream id on the local user so
// the mapping survives even if the link row is ever lost.
const externalIDMetadataKey = "externalId"

// Resolver maps a validated upstream identity onto a local user,
// creating one if absent. It is the ONLY place where identity-to-user
// mapping logic lives.
type Resolver interface {
	Resolve(ctx context.Context, identity *auth.UpstreamIdentity) (*store.LocalUser, error)
}

// StoreResolver resolves identities through the store adapter.
//
// Lookup is strictly by (provider, providerAccountID) via the account
// link table, never by email: an upstream email can be reassigned and
// must not hand over an existing local account.
type StoreResolver struct {
	store  store.Store
	linker *Linker
}

func NewStoreResolver(s store.Store) *StoreResolver {
	return &StoreResolver{
		store:  s,
		linker: NewLinker(s),
	}
}

func (r *StoreResolver) Resolve(
	ctx context.Context,
	identity *auth.UpstreamIdentity,
) (*store.LocalUser, error) {

	if identity == nil {
		return nil, auth.NewSyncError(auth.CodeResolutionError, "identity is nil", nil)
	}

	externalID, err := CoerceExternalID(identity.ExternalID)
	if err != nil {
		return nil, err
	}

	// 1. Existing link wins.
	user, err := r.store.FindUserByExternalID(ctx, identity.Provider, externalID)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, auth.NewSyncError(auth.CodePersistenceError, "link lookup failed", err)
	}

	// 2. First sync for this upstream account: create the user.
	user = newLocalUser(identity, externalID)
	if err := r.store.CreateUser(ctx, user); err != nil {
		return r.userCreateFailed(ctx, identity, externalID, err)
	}

	// 3. Record the mapping. A duplicate here means a concurrent sync
	// for the same identity won the race between our lookup and our
	// insert; adopt its user row instead of erroring.
	if !r.linker.Link(ctx, user.ID, identity.Provider, externalID) {
		if winner, err := r.store.FindUserByExternalID(ctx, identity.Provider, externalID); err == nil {
			return winner, nil
		}
		// The link is missing but the user row exists; the next sync
		// attempt repairs it. Not a request failure.
	}

	return user, nil
}

// userCreateFailed handles the losing side of a concurrent first-time
// sync. The unique constraints are the serialization point: re-read by
// link and adopt whatever the winner wrote.
func (r *StoreResolver) userCreateFailed(
	ctx context.Context,
	identity *auth.UpstreamIdentity,
	externalID string,
	cause error,
) (*store.LocalUser, error) {

	if winner, err := r.store.FindUserByExternalID(ctx, identity.Provider, externalID); err == nil {
		return winner, nil
	}

	if errors.Is(cause, store.ErrDuplicateEmail) {
		// The email owner may be a half-created row from an earlier
		// sync whose link insert failed. Its recorded external id
		// proves it came from this exact upstream account, so the
		// link is safe to repair.
		owner, err := r.store.FindUserByEmail(ctx, identity.Email)
		if err == nil && owner.Metadata[externalIDMetadataKey] == externalID {
			r.linker.Link(ctx, owner.ID, identity.Provider, externalID)
			return owner, nil
		}

		// Otherwise a local user owns this email without any tie to
		// this upstream account. Linking by email would allow account
		// takeover via upstream email reassignment, so fail closed.
		return nil, auth.NewSyncError(
			auth.CodeResolutionError,
			"email belongs to an unlinked local account",
			cause,
		)
	}

	return nil, auth.NewSyncError(auth.CodePersistenceError, "user creation failed", cause)
}

func newLocalUser(identity *auth.UpstreamIdentity, externalID string) *store.LocalUser {
	metadata := make(map[string]any, len(identity.Metadata)+1)
	for k, v := range identity.Metadata {
		metadata[k] = v
	}
	metadata[externalIDMetadataKey] = externalID

	displayName := identity.DisplayName
	if displayName == "" {
		displayName = identity.Username
	}

	return &store.LocalUser{
		Email:       identity.Email,
		DisplayName: displayName,
		Avatar:      identity.AvatarURL,
		Roles:       append([]string(nil), identity.Roles...),
		Metadata:    metadata,
	}
}

// CoerceExternalID canonicalizes the upstream's number-or-string id
// into its decimal form. It fails closed: anything that is not a
// strictly positive integer is a hard validation error, never a silent
// zero.
func CoerceExternalID(raw string) (string, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		logger.Error("rejecting malformed upstream external id", map[string]any{
			"externalId": raw,
		})
		return "", auth.NewSyncError(
			auth.CodeResolutionError,
			"external id is not a positive integer",
			err,
		)
	}
	return strconv.FormatInt(id, 10), nil
}
