package resolver

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"session-sync/internal/auth"
	"session-sync/internal/auth/store"
)

const provider = "upstream-cms"

func identity(externalID, email string) *auth.UpstreamIdentity {
	return &auth.UpstreamIdentity{
		Provider:    provider,
		ExternalID:  externalID,
		Email:       email,
		Username:    "a",
		DisplayName: "A",
		Roles:       []string{"subscriber"},
	}
}

func TestResolveCreatesUserAndLink(t *testing.T) {
	memory := store.NewMemory()
	r := NewStoreResolver(memory)

	user, err := r.Resolve(context.Background(), identity("42", "a@x.com"))
	require.NoError(t, err)

	assert.NotEmpty(t, user.ID)
	assert.Equal(t, "a@x.com", user.Email)
	assert.Equal(t, "A", user.DisplayName)
	assert.Equal(t, []string{"subscriber"}, user.Roles)
	assert.Equal(t, "42", user.Metadata["externalId"])
	assert.Equal(t, 1, memory.CountUsers())
	assert.Equal(t, 1, memory.CountLinks())
}

func TestResolveIsIdempotent(t *testing.T) {
	memory := store.NewMemory()
	r := NewStoreResolver(memory)

	first, err := r.Resolve(context.Background(), identity("42", "a@x.com"))
	require.NoError(t, err)

	second, err := r.Resolve(context.Background(), identity("42", "a@x.com"))
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 1, memory.CountUsers())
	assert.Equal(t, 1, memory.CountLinks())
}

func TestResolveRejectsNonNumericExternalID(t *testing.T) {
	memory := store.NewMemory()
	r := NewStoreResolver(memory)

	_, err := r.Resolve(context.Background(), identity("abc", "a@x.com"))
	require.Error(t, err)
	assert.Equal(t, auth.CodeResolutionError, auth.CodeOf(err))
	assert.Equal(t, 0, memory.CountUsers())
}

func TestResolveRejectsNonPositiveExternalID(t *testing.T) {
	memory := store.NewMemory()
	r := NewStoreResolver(memory)

	for _, raw := range []string{"0", "-7", ""} {
		_, err := r.Resolve(context.Background(), identity(raw, "a@x.com"))
		require.Errorf(t, err, "external id %q", raw)
		assert.Equal(t, auth.CodeResolutionError, auth.CodeOf(err))
	}
}

func TestResolveNilIdentity(t *testing.T) {
	r := NewStoreResolver(store.NewMemory())

	_, err := r.Resolve(context.Background(), nil)
	require.Error(t, err)
	assert.Equal(t, auth.CodeResolutionError, auth.CodeOf(err))
}

// missOnceStore makes the initial link lookup miss so the resolver
// takes the creation path even though a concurrent winner already
// wrote rows, reproducing the lost race.
type missOnceStore struct {
	store.Store
	missed bool
}

func (s *missOnceStore) FindUserByExternalID(ctx context.Context, provider, accountID string) (*store.LocalUser, error) {
	if !s.missed {
		s.missed = true
		return nil, store.ErrNotFound
	}
	return s.Store.FindUserByExternalID(ctx, provider, accountID)
}

func TestResolveAdoptsWinnerAfterEmailRace(t *testing.T) {
	memory := store.NewMemory()

	// The winner fully syncs first.
	winner, err := NewStoreResolver(memory).Resolve(context.Background(), identity("42", "a@x.com"))
	require.NoError(t, err)

	// The loser raced past the lookup, then hits the email constraint.
	r := NewStoreResolver(&missOnceStore{Store: memory})
	resolved, err := r.Resolve(context.Background(), identity("42", "a@x.com"))
	require.NoError(t, err)

	assert.Equal(t, winner.ID, resolved.ID)
	assert.Equal(t, 1, memory.CountUsers())
	assert.Equal(t, 1, memory.CountLinks())
}

func TestResolveAdoptsWinnerAfterLinkRace(t *testing.T) {
	memory := store.NewMemory()

	// Winner synced under an older upstream email, so the loser's user
	// insert succeeds and the race lands on the link constraint.
	winner, err := NewStoreResolver(memory).Resolve(context.Background(), identity("42", "old@x.com"))
	require.NoError(t, err)

	r := NewStoreResolver(&missOnceStore{Store: memory})
	resolved, err := r.Resolve(context.Background(), identity("42", "new@x.com"))
	require.NoError(t, err)

	assert.Equal(t, winner.ID, resolved.ID)
	assert.Equal(t, 1, memory.CountLinks())
}

func TestResolveRepairsMissingLink(t *testing.T) {
	memory := store.NewMemory()

	// A previous sync created the user but its link insert failed.
	half := &store.LocalUser{
		Email:    "a@x.com",
		Metadata: map[string]any{"externalId": "42"},
	}
	require.NoError(t, memory.CreateUser(context.Background(), half))

	resolved, err := NewStoreResolver(memory).Resolve(context.Background(), identity("42", "a@x.com"))
	require.NoError(t, err)

	assert.Equal(t, half.ID, resolved.ID)
	assert.Equal(t, 1, memory.CountUsers())
	assert.Equal(t, 1, memory.CountLinks())
}

func TestResolveRefusesUnlinkedEmailOwner(t *testing.T) {
	memory := store.NewMemory()

	// A local-only account owns the email; it has no tie to upstream
	// account 42, so resolving must not hand it over.
	local := &store.LocalUser{Email: "a@x.com"}
	require.NoError(t, memory.CreateUser(context.Background(), local))

	_, err := NewStoreResolver(memory).Resolve(context.Background(), identity("42", "a@x.com"))
	require.Error(t, err)
	assert.Equal(t, auth.CodeResolutionError, auth.CodeOf(err))
	assert.Equal(t, 0, memory.CountLinks())
}

func TestLinkerIsIdempotent(t *testing.T) {
	memory := store.NewMemory()
	user := &store.LocalUser{Email: "a@x.com"}
	require.NoError(t, memory.CreateUser(context.Background(), user))

	linker := NewLinker(memory)

	assert.True(t, linker.Link(context.Background(), user.ID, provider, "42"))
	assert.False(t, linker.Link(context.Background(), user.ID, provider, "42"))
	assert.Equal(t, 1, memory.CountLinks())
}

func TestCoerceExternalIDCanonicalizes(t *testing.T) {
	got, err := CoerceExternalID("0042")
	require.NoError(t, err)
	assert.Equal(t, "42", got)
}
