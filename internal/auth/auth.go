// Package auth provides authentication for the Portale API.
//
// Authentication model:
// - Users never hold passwords; they are issued an opaque access code.
// - POST /auth/login exchanges a valid access code for a bearer session
//   token with a fixed TTL.
// - Public endpoints (catalog, leaderboard) need no auth; anything acting
//   on behalf of a user requires a session.
package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/portale-hq/portale/internal/metrics"
	"github.com/portale-hq/portale/internal/users"
)

// Errors
var (
	ErrNoToken          = errors.New("session token required")
	ErrInvalidToken     = errors.New("invalid or expired session token")
	ErrInvalidAccessKey = errors.New("invalid or revoked access code")
	ErrAccountFrozen    = errors.New("account is frozen")
	ErrSessionNotFound  = errors.New("session not found")
)

// AccessCode is a long-lived login credential. Only the SHA256 hash is
// stored; the raw code is shown once at issuance.
type AccessCode struct {
	ID        string    `json:"id"`
	Hash      string    `json:"-"`
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	Revoked   bool      `json:"revoked"`
}

// Session is a short-lived bearer credential minted at login.
type Session struct {
	ID        string    `json:"id"`
	Hash      string    `json:"-"`
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
	LastSeen  time.Time `json:"last_seen,omitempty"`
	Revoked   bool      `json:"revoked"`
}

// Store persists access codes and sessions.
type Store interface {
	CreateAccessCode(ctx context.Context, code *AccessCode) error
	GetAccessCodeByHash(ctx context.Context, hash string) (*AccessCode, error)
	RevokeAccessCodes(ctx context.Context, userID string) error

	CreateSession(ctx context.Context, s *Session) error
	GetSessionByHash(ctx context.Context, hash string) (*Session, error)
	UpdateSession(ctx context.Context, s *Session) error
	DeleteExpiredSessions(ctx context.Context, before time.Time) (int, error)
}

// ProfileProvider looks up profiles so login can reject frozen accounts.
type ProfileProvider interface {
	Get(ctx context.Context, id string) (*users.Profile, error)
}

// Manager handles authentication.
type Manager struct {
	store    Store
	profiles ProfileProvider
	ttl      time.Duration
}

// NewManager creates a new auth manager. ttl bounds session lifetime.
func NewManager(store Store, profiles ProfileProvider, ttl time.Duration) *Manager {
	return &Manager{store: store, profiles: profiles, ttl: ttl}
}

// IssueAccessCode mints a login credential for a user.
// Returns the raw code (shown once) and the stored metadata.
func (m *Manager) IssueAccessCode(ctx context.Context, userID string) (rawCode string, code *AccessCode, err error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", nil, err
	}

	rawCode = "ph_" + hex.EncodeToString(b)
	code = &AccessCode{
		ID:        "ac_" + hex.EncodeToString(b[:8]),
		Hash:      hashSecret(rawCode),
		UserID:    userID,
		CreatedAt: time.Now(),
	}

	if err := m.store.CreateAccessCode(ctx, code); err != nil {
		return "", nil, err
	}
	return rawCode, code, nil
}

// Login exchanges an access code for a session token.
// Returns the raw token (shown once) and session metadata.
func (m *Manager) Login(ctx context.Context, rawCode string) (rawToken string, session *Session, err error) {
	rawCode = strings.TrimSpace(rawCode)
	if !strings.HasPrefix(rawCode, "ph_") {
		return "", nil, ErrInvalidAccessKey
	}

	code, err := m.store.GetAccessCodeByHash(ctx, hashSecret(rawCode))
	if err != nil || code.Revoked {
		return "", nil, ErrInvalidAccessKey
	}

	profile, err := m.profiles.Get(ctx, code.UserID)
	if err != nil {
		return "", nil, ErrInvalidAccessKey
	}
	if profile.Frozen {
		return "", nil, ErrAccountFrozen
	}

	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", nil, err
	}
	rawToken = "st_" + hex.EncodeToString(b)

	now := time.Now()
	session = &Session{
		ID:        "ses_" + hex.EncodeToString(b[:8]),
		Hash:      hashSecret(rawToken),
		UserID:    code.UserID,
		CreatedAt: now,
		ExpiresAt: now.Add(m.ttl),
		LastSeen:  now,
	}
	if err := m.store.CreateSession(ctx, session); err != nil {
		return "", nil, err
	}

	metrics.ActiveSessions.Inc()
	return rawToken, session, nil
}

// Validate checks a bearer token and returns the live session.
func (m *Manager) Validate(ctx context.Context, rawToken string) (*Session, error) {
	if rawToken == "" {
		return nil, ErrNoToken
	}
	rawToken = strings.TrimPrefix(rawToken, "Bearer ")
	rawToken = strings.TrimSpace(rawToken)
	if !strings.HasPrefix(rawToken, "st_") {
		return nil, ErrInvalidToken
	}

	session, err := m.store.GetSessionByHash(ctx, hashSecret(rawToken))
	if err != nil {
		return nil, ErrInvalidToken
	}
	if session.Revoked || time.Now().After(session.ExpiresAt) {
		return nil, ErrInvalidToken
	}

	// Update last seen (fire and forget)
	go func() {
		session.LastSeen = time.Now()
		m.store.UpdateSession(context.Background(), session)
	}()

	return session, nil
}

// Logout revokes the session behind a bearer token. Unknown tokens are a
// no-op so logout is idempotent.
func (m *Manager) Logout(ctx context.Context, rawToken string) error {
	rawToken = strings.TrimPrefix(rawToken, "Bearer ")
	rawToken = strings.TrimSpace(rawToken)

	session, err := m.store.GetSessionByHash(ctx, hashSecret(rawToken))
	if err != nil {
		return nil
	}
	if session.Revoked {
		return nil
	}
	session.Revoked = true
	if err := m.store.UpdateSession(ctx, session); err != nil {
		return err
	}
	metrics.ActiveSessions.Dec()
	return nil
}

// SweepExpired removes expired sessions. Run on a timer.
func (m *Manager) SweepExpired(ctx context.Context) (int, error) {
	return m.store.DeleteExpiredSessions(ctx, time.Now())
}

func hashSecret(raw string) string {
	h := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(h[:])
}

// MemoryStore is an in-memory implementation of Store
type MemoryStore struct {
	mu       sync.RWMutex
	codes    map[string]*AccessCode // by ID
	sessions map[string]*Session    // by ID
}

// NewMemoryStore creates a new in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		codes:    make(map[string]*AccessCode),
		sessions: make(map[string]*Session),
	}
}

// Compile-time interface check
var _ Store = (*MemoryStore)(nil)

func (s *MemoryStore) CreateAccessCode(ctx context.Context, code *AccessCode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.codes[code.ID] = code
	return nil
}

func (s *MemoryStore) GetAccessCodeByHash(ctx context.Context, hash string) (*AccessCode, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.codes {
		if c.Hash == hash {
			return c, nil
		}
	}
	return nil, ErrInvalidAccessKey
}

func (s *MemoryStore) RevokeAccessCodes(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.codes {
		if c.UserID == userID {
			c.Revoked = true
		}
	}
	return nil
}

func (s *MemoryStore) CreateSession(ctx context.Context, session *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.ID] = session
	return nil
}

func (s *MemoryStore) GetSessionByHash(ctx context.Context, hash string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, sess := range s.sessions {
		if sess.Hash == hash {
			return sess, nil
		}
	}
	return nil, ErrSessionNotFound
}

func (s *MemoryStore) UpdateSession(ctx context.Context, session *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.ID] = session
	return nil
}

func (s *MemoryStore) DeleteExpiredSessions(ctx context.Context, before time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int
	for id, sess := range s.sessions {
		if sess.ExpiresAt.Before(before) {
			delete(s.sessions, id)
			n++
		}
	}
	return n, nil
}
