package session

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/dracory/weeredis/shared/constants"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cookieNamed(t *testing.T, rr *httptest.ResponseRecorder, name string) *http.Cookie {
	t.Helper()
	for _, c := range rr.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	t.Fatalf("cookie %s not set", name)
	return nil
}

func TestEnsureReusesCookieSession(t *testing.T) {
	m := NewManager("secret", false)

	rr := httptest.NewRecorder()
	first := m.Ensure(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	c := cookieNamed(t, rr, constants.CookieSession)
	assert.Equal(t, first.ID, c.Value)
	assert.True(t, c.HttpOnly)
	assert.False(t, c.Secure)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(c)
	rr2 := httptest.NewRecorder()
	second := m.Ensure(rr2, req)

	assert.Same(t, first, second)
	assert.Empty(t, rr2.Result().Cookies())
	assert.Equal(t, 1, m.Len())
}

func TestEnsureUnknownCookieStartsNewSession(t *testing.T) {
	m := NewManager("secret", true)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: constants.CookieSession, Value: "stale"})
	rr := httptest.NewRecorder()

	s := m.Ensure(rr, req)

	assert.NotEqual(t, "stale", s.ID)
	assert.Len(t, s.ID, IDLength*2)
	assert.True(t, cookieNamed(t, rr, constants.CookieSession).Secure)
}

func TestPrune(t *testing.T) {
	m := NewManager("secret", false)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return base }
	old := m.Ensure(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	m.now = func() time.Time { return base.Add(DefaultIdleTimeout - time.Minute) }
	fresh := m.Ensure(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	m.now = func() time.Time { return base.Add(DefaultIdleTimeout + time.Minute) }
	assert.Equal(t, 1, m.Prune())

	_, ok := m.Get(old.ID)
	assert.False(t, ok)
	_, ok = m.Get(fresh.ID)
	assert.True(t, ok)

	m.Delete(fresh.ID)
	assert.Zero(t, m.Len())
}

func TestCSRF(t *testing.T) {
	m := NewManager("secret", false)
	rr := httptest.NewRecorder()
	token := m.CSRFToken(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	base := cookieNamed(t, rr, constants.CookieCSRF)
	require.NotEmpty(t, token)

	t.Run("header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api", nil)
		req.AddCookie(base)
		req.Header.Set(constants.CSRFHeaderKey, token)
		assert.True(t, m.VerifyCSRF(req))
	})

	t.Run("form", func(t *testing.T) {
		form := url.Values{constants.CSRFFormKey: {token}}
		req := httptest.NewRequest(http.MethodPost, "/api", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.AddCookie(base)
		assert.True(t, m.VerifyCSRF(req))
	})

	t.Run("missing cookie", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api", nil)
		req.Header.Set(constants.CSRFHeaderKey, token)
		assert.False(t, m.VerifyCSRF(req))
	})

	t.Run("wrong token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api", nil)
		req.AddCookie(base)
		req.Header.Set(constants.CSRFHeaderKey, "nope")
		assert.False(t, m.VerifyCSRF(req))
	})

	t.Run("other secret", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api", nil)
		req.AddCookie(base)
		req.Header.Set(constants.CSRFHeaderKey, token)
		assert.False(t, NewManager("other", false).VerifyCSRF(req))
	})

	t.Run("existing cookie keeps token stable", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(base)
		rr := httptest.NewRecorder()
		assert.Equal(t, token, m.CSRFToken(rr, req))
		assert.Empty(t, rr.Result().Cookies())
	})
}
