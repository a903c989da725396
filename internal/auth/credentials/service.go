package credentials

import (
	"context"
	"errors"

	"session-sync/internal/auth/store"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAlreadyRegistered  = errors.New("credentials already exist")
)

// Service handles first-party email/password auth. It shares the user
// table with the sync path: a user created here can later be linked to
// the upstream account and vice versa.
type Service struct {
	store store.Store
}

func NewService(s store.Store) *Service {
	return &Service{store: s}
}

func (s *Service) Register(
	ctx context.Context,
	email string,
	password string,
) (string, error) {

	// 1. Find or create user by email
	user, err := s.store.FindUserByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		user = &store.LocalUser{Email: email}
		err = s.store.CreateUser(ctx, user)
	}
	if err != nil {
		return "", err
	}

	// 2. Refuse a second credential for the same user
	_, _, err = s.store.FindCredentialByEmail(ctx, email)
	if err == nil {
		return "", ErrAlreadyRegistered
	}
	if !errors.Is(err, store.ErrNotFound) {
		return "", err
	}

	// 3. Hash and persist
	hash, version, err := HashPassword(password)
	if err != nil {
		return "", err
	}

	err = s.store.CreateCredential(ctx, &store.Credential{
		UserID:       user.ID,
		PasswordHash: hash,
		HashVersion:  version,
	})
	if err != nil {
		return "", err
	}

	return user.ID, nil
}

func (s *Service) Authenticate(
	ctx context.Context,
	email string,
	password string,
) (string, error) {

	user, cred, err := s.store.FindCredentialByEmail(ctx, email)
	if err != nil {
		// hide whether user exists or not
		return "", ErrInvalidCredentials
	}

	if err := VerifyPassword(cred.PasswordHash, password); err != nil {
		return "", ErrInvalidCredentials
	}

	return user.ID, nil
}
