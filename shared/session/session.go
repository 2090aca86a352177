// Package session tracks browser sessions and issues CSRF tokens using the
// double-submit cookie pattern.
package session

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"net/http"
	"sync"
	"time"

	"github.com/dracory/weeredis/shared/constants"
	"github.com/samber/lo"
)

// IDLength is the length of a session id in bytes before hex encoding.
const IDLength = 16

// DefaultIdleTimeout is how long an unused session is kept.
const DefaultIdleTimeout = 12 * time.Hour

// Session represents a browser session.
type Session struct {
	ID        string
	CreatedAt time.Time
	LastSeen  time.Time
}

// Manager keeps the sessions of one server instance.
type Manager struct {
	secret      string
	secure      bool
	idleTimeout time.Duration
	now         func() time.Time

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewManager creates a Manager. secure forces the Secure cookie attribute.
func NewManager(secret string, secure bool) *Manager {
	return &Manager{
		secret:      secret,
		secure:      secure,
		idleTimeout: DefaultIdleTimeout,
		now:         time.Now,
		sessions:    map[string]*Session{},
	}
}

// Ensure returns the session named by the request cookie or starts a new one.
func (m *Manager) Ensure(w http.ResponseWriter, r *http.Request) *Session {
	now := m.now()
	if c, err := r.Cookie(constants.CookieSession); err == nil && c.Value != "" {
		m.mu.Lock()
		s, ok := m.sessions[c.Value]
		if ok {
			s.LastSeen = now
		}
		m.mu.Unlock()
		if ok {
			return s
		}
	}

	s := &Session{ID: newRandomID(), CreatedAt: now, LastSeen: now}
	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()

	http.SetCookie(w, m.cookie(r, constants.CookieSession, s.ID))
	return s
}

// Get returns the session with the given id.
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	return s, ok
}

// Delete removes a session.
func (m *Manager) Delete(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Prune drops sessions idle for longer than the idle timeout and returns how
// many were removed.
func (m *Manager) Prune() int {
	cutoff := m.now().Add(-m.idleTimeout)
	m.mu.Lock()
	defer m.mu.Unlock()
	stale := lo.Filter(lo.Keys(m.sessions), func(id string, _ int) bool {
		return m.sessions[id].LastSeen.Before(cutoff)
	})
	for _, id := range stale {
		delete(m.sessions, id)
	}
	return len(stale)
}

// CSRFToken ensures the CSRF base cookie exists and returns the token derived from it.
func (m *Manager) CSRFToken(w http.ResponseWriter, r *http.Request) string {
	c, err := r.Cookie(constants.CookieCSRF)
	if err != nil || c.Value == "" {
		b := make([]byte, 32)
		_, _ = rand.Read(b)
		c = m.cookie(r, constants.CookieCSRF, base64.RawURLEncoding.EncodeToString(b))
		http.SetCookie(w, c)
	}
	return m.deriveToken(c.Value)
}

// VerifyCSRF checks the token sent in the header or form against the cookie.
func (m *Manager) VerifyCSRF(r *http.Request) bool {
	c, err := r.Cookie(constants.CookieCSRF)
	if err != nil || c.Value == "" {
		return false
	}
	token := r.Header.Get(constants.CSRFHeaderKey)
	if token == "" {
		_ = r.ParseForm()
		token = r.Form.Get(constants.CSRFFormKey)
	}
	if token == "" {
		return false
	}
	return hmac.Equal([]byte(token), []byte(m.deriveToken(c.Value)))
}

func (m *Manager) deriveToken(base string) string {
	h := hmac.New(sha256.New, []byte(m.secret))
	h.Write([]byte(base))
	return base64.RawURLEncoding.EncodeToString(h.Sum(nil))
}

func (m *Manager) cookie(r *http.Request, name, value string) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   m.secure || r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	}
}

func newRandomID() string {
	b := make([]byte, IDLength)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return hex.EncodeToString(b)
}
