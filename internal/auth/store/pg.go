package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"session-sync/internal/db"
	"session-sync/internal/session"
)

const uniqueViolation = "23505"

// PGStore is the canonical Postgres-backed store.
type PGStore struct {
	db *db.DB
}

func NewPGStore(db *db.DB) *PGStore {
	return &PGStore{db: db}
}

func (s *PGStore) FindUserByExternalID(
	ctx context.Context,
	provider, providerAccountID string,
) (*LocalUser, error) {

	row := s.db.QueryRowContext(ctx, `
		SELECT u.id, u.email, u.display_name, u.avatar, u.metadata,
		       u.created_at, u.updated_at
		FROM users u
		JOIN account_links l ON l.user_id = u.id
		WHERE l.provider = $1
		  AND l.provider_account_id = $2
	`, provider, providerAccountID)

	return scanUser(row)
}

func (s *PGStore) FindUserByEmail(ctx context.Context, email string) (*LocalUser, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, email, display_name, avatar, metadata, created_at, updated_at
		FROM users
		WHERE LOWER(email) = LOWER($1)
	`, email)

	return scanUser(row)
}

func (s *PGStore) FindUserByID(ctx context.Context, id string) (*LocalUser, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, email, display_name, avatar, metadata, created_at, updated_at
		FROM users
		WHERE id = $1
	`, id)

	return scanUser(row)
}

func (s *PGStore) CreateUser(ctx context.Context, u *LocalUser) error {
	meta, err := marshalMetadata(u)
	if err != nil {
		return err
	}

	err = s.db.QueryRowContext(ctx, `
		INSERT INTO users (email, display_name, avatar, metadata)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at
	`, u.Email, u.DisplayName, u.Avatar, meta).
		Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt)

	if isUniqueViolation(err) {
		return ErrDuplicateEmail
	}
	return err
}

func (s *PGStore) CreateAccountLink(ctx context.Context, link *AccountLink) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO account_links (provider, provider_account_id, user_id)
		VALUES ($1, $2, $3)
	`, link.Provider, link.ProviderAccountID, link.UserID)

	if isUniqueViolation(err) {
		return ErrDuplicateLink
	}
	return err
}

func (s *PGStore) CreateSession(ctx context.Context, sess *session.Session) error {
	return s.db.QueryRowContext(ctx, `
		INSERT INTO sessions (user_id, token, expires_at)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`, sess.UserID, sess.Token, sess.ExpiresAt).
		Scan(&sess.ID, &sess.CreatedAt)
}

func (s *PGStore) GetSessionByToken(ctx context.Context, token string) (*session.Session, error) {
	var sess session.Session
	err := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, token, expires_at, created_at
		FROM sessions
		WHERE token = $1
	`, token).Scan(&sess.ID, &sess.UserID, &sess.Token, &sess.ExpiresAt, &sess.CreatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &sess, nil
}

func (s *PGStore) DeleteSessionByToken(ctx context.Context, token string) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM sessions WHERE token = $1
	`, token)
	return err
}

func (s *PGStore) FindCredentialByEmail(
	ctx context.Context,
	email string,
) (*LocalUser, *Credential, error) {

	user, err := s.FindUserByEmail(ctx, email)
	if err != nil {
		return nil, nil, err
	}

	var cred Credential
	err = s.db.QueryRowContext(ctx, `
		SELECT user_id, password_hash, hash_version, created_at
		FROM credentials
		WHERE user_id = $1
	`, user.ID).Scan(&cred.UserID, &cred.PasswordHash, &cred.HashVersion, &cred.CreatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, ErrNotFound
	}
	if err != nil {
		return nil, nil, err
	}
	return user, &cred, nil
}

func (s *PGStore) CreateCredential(ctx context.Context, cred *Credential) error {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO credentials (user_id, password_hash, hash_version)
		VALUES ($1, $2, $3)
		RETURNING created_at
	`, cred.UserID, cred.PasswordHash, cred.HashVersion).
		Scan(&cred.CreatedAt)
	return err
}

type userRow interface {
	Scan(dest ...any) error
}

func scanUser(row userRow) (*LocalUser, error) {
	var (
		u    LocalUser
		meta []byte
	)

	err := row.Scan(&u.ID, &u.Email, &u.DisplayName, &u.Avatar, &meta,
		&u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if err := unmarshalMetadata(meta, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// Roles ride inside the metadata document under a reserved key so the
// users table keeps a single free-form jsonb column.
const rolesMetadataKey = "roles"

func marshalMetadata(u *LocalUser) ([]byte, error) {
	doc := make(map[string]any, len(u.Metadata)+1)
	for k, v := range u.Metadata {
		doc[k] = v
	}
	if len(u.Roles) > 0 {
		doc[rolesMetadataKey] = u.Roles
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("store: marshal user metadata: %w", err)
	}
	return data, nil
}

func unmarshalMetadata(data []byte, u *LocalUser) error {
	if len(data) == 0 {
		return nil
	}

	doc := make(map[string]any)
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("store: unmarshal user metadata: %w", err)
	}

	if raw, ok := doc[rolesMetadataKey]; ok {
		u.Roles = toStringSlice(raw)
		delete(doc, rolesMetadataKey)
	}
	u.Metadata = doc
	return nil
}

func toStringSlice(raw any) []string {
	values, ok := raw.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(values))
	for _, v := range values {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}
