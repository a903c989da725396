package store

import (
	"context"
	"errors"
	"time"

	"session-sync/internal/session"
)

var (
	ErrNotFound = errors.New("store: not found")

	// ErrDuplicateLink means another writer already linked this
	// (provider, providerAccountID). Callers are expected to re-read
	// and adopt the winner instead of failing the request.
	ErrDuplicateLink = errors.New("store: account link already exists")

	// ErrDuplicateEmail means the users email uniqueness constraint
	// fired on insert.
	ErrDuplicateEmail = errors.New("store: email already in use")
)

// LocalUser is the application's own user record. Metadata carries the
// upstream external id and any extra attributes the upstream asserts.
type LocalUser struct {
	ID          string
	Email       string
	DisplayName string
	Avatar      string
	Roles       []string
	Metadata    map[string]any
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// AccountLink associates (provider, providerAccountID) with a local
// user. Unique per provider account; several providers may point at
// the same user.
type AccountLink struct {
	Provider          string
	ProviderAccountID string
	UserID            string
	CreatedAt         time.Time
}

// Credential is a first-party password credential for a local user.
type Credential struct {
	UserID       string
	PasswordHash string
	HashVersion  string
	CreatedAt    time.Time
}

// Store is the single persistence adapter the auth components depend
// on. Nothing above this interface touches a concrete database.
//
// The unique constraint on (provider, provider_account_id) is the sole
// serialization point for concurrent first-time syncs; the store
// surfaces it as ErrDuplicateLink and performs no locking of its own.
type Store interface {
	FindUserByExternalID(ctx context.Context, provider, providerAccountID string) (*LocalUser, error)
	FindUserByEmail(ctx context.Context, email string) (*LocalUser, error)
	FindUserByID(ctx context.Context, id string) (*LocalUser, error)
	CreateUser(ctx context.Context, u *LocalUser) error
	CreateAccountLink(ctx context.Context, link *AccountLink) error

	CreateSession(ctx context.Context, s *session.Session) error
	GetSessionByToken(ctx context.Context, token string) (*session.Session, error)
	DeleteSessionByToken(ctx context.Context, token string) error

	FindCredentialByEmail(ctx context.Context, email string) (*LocalUser, *Credential, error)
	CreateCredential(ctx context.Context, cred *Credential) error
}
