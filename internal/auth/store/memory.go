package store

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"session-sync/internal/session"
)

// Memory is an in-memory Store with the same uniqueness semantics as
// the Postgres implementation. It backs tests and local development;
// the constraint behavior (ErrDuplicateLink, ErrDuplicateEmail) is
// what the resolver's race handling is written against.
type Memory struct {
	mu          sync.Mutex
	users       map[string]*LocalUser       // by id
	links       map[string]*AccountLink     // by provider + "\x00" + account id
	sessions    map[string]*session.Session // by token
	credentials map[string]*Credential      // by user id
}

func NewMemory() *Memory {
	return &Memory{
		users:       make(map[string]*LocalUser),
		links:       make(map[string]*AccountLink),
		sessions:    make(map[string]*session.Session),
		credentials: make(map[string]*Credential),
	}
}

func linkKey(provider, providerAccountID string) string {
	return provider + "\x00" + providerAccountID
}

func (m *Memory) FindUserByExternalID(
	_ context.Context,
	provider, providerAccountID string,
) (*LocalUser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	link, ok := m.links[linkKey(provider, providerAccountID)]
	if !ok {
		return nil, ErrNotFound
	}
	u, ok := m.users[link.UserID]
	if !ok {
		return nil, ErrNotFound
	}
	return copyUser(u), nil
}

func (m *Memory) FindUserByEmail(_ context.Context, email string) (*LocalUser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range m.users {
		if strings.EqualFold(u.Email, email) {
			return copyUser(u), nil
		}
	}
	return nil, ErrNotFound
}

func (m *Memory) FindUserByID(_ context.Context, id string) (*LocalUser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyUser(u), nil
}

func (m *Memory) CreateUser(_ context.Context, u *LocalUser) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return ErrDuplicateEmail
		}
	}

	now := time.Now()
	u.ID = uuid.NewString()
	u.CreatedAt = now
	u.UpdatedAt = now
	m.users[u.ID] = copyUser(u)
	return nil
}

func (m *Memory) CreateAccountLink(_ context.Context, link *AccountLink) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := linkKey(link.Provider, link.ProviderAccountID)
	if _, ok := m.links[key]; ok {
		return ErrDuplicateLink
	}

	link.CreatedAt = time.Now()
	stored := *link
	m.links[key] = &stored
	return nil
}

func (m *Memory) CreateSession(_ context.Context, s *session.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s.ID = uuid.NewString()
	s.CreatedAt = time.Now()
	stored := *s
	m.sessions[s.Token] = &stored
	return nil
}

func (m *Memory) GetSessionByToken(_ context.Context, token string) (*session.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[token]
	if !ok {
		return nil, ErrNotFound
	}
	out := *s
	return &out, nil
}

func (m *Memory) DeleteSessionByToken(_ context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.sessions, token)
	return nil
}

func (m *Memory) FindCredentialByEmail(
	ctx context.Context,
	email string,
) (*LocalUser, *Credential, error) {

	user, err := m.FindUserByEmail(ctx, email)
	if err != nil {
		return nil, nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	cred, ok := m.credentials[user.ID]
	if !ok {
		return nil, nil, ErrNotFound
	}
	out := *cred
	return user, &out, nil
}

func (m *Memory) CreateCredential(_ context.Context, cred *Credential) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cred.CreatedAt = time.Now()
	stored := *cred
	m.credentials[cred.UserID] = &stored
	return nil
}

// CountUsers reports the number of user rows. Test helper.
func (m *Memory) CountUsers() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.users)
}

// CountLinks reports the number of account link rows. Test helper.
func (m *Memory) CountLinks() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.links)
}

func copyUser(u *LocalUser) *LocalUser {
	out := *u
	out.Roles = append([]string(nil), u.Roles...)
	out.Metadata = make(map[string]any, len(u.Metadata))
	for k, v := range u.Metadata {
		out.Metadata[k] = v
	}
	return &out
}
