package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/NordCoder/bazaar/internal/auth"
)

type httpFixture struct {
	*fixture
	srv *httptest.Server
}

func newHTTPFixture(t *testing.T) *httpFixture {
	t.Helper()
	f := newFixture(t)
	r := chi.NewRouter()
	NewServer(f.uc, Opts{Logger: zaptest.NewLogger(t), Now: f.clock.Now}).Routes(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return &httpFixture{fixture: f, srv: srv}
}

func (h *httpFixture) do(t *testing.T, method, path, body string, cookies ...*http.Cookie) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, h.srv.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	resp, err := h.srv.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func cookiesByName(resp *http.Response) map[string]*http.Cookie {
	out := map[string]*http.Cookie{}
	for _, c := range resp.Cookies() {
		out[c.Name] = c
	}
	return out
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func TestServer_AnonymousSetsBothCookies(t *testing.T) {
	h := newHTTPFixture(t)

	resp := h.do(t, http.MethodPost, "/v1/auth/anonymous", "")
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	cookies := cookiesByName(resp)
	require.Len(t, cookies, 2)
	access := cookies[auth.AccessCookie]
	require.NotNil(t, access)
	assert.True(t, access.HttpOnly)
	assert.False(t, access.Secure)
	assert.Equal(t, int(auth.AccessTokenTTL.Seconds()), access.MaxAge)
	refresh := cookies[auth.RefreshCookie]
	require.NotNil(t, refresh)
	assert.Equal(t, int(auth.RefreshTokenTTL.Seconds()), refresh.MaxAge)

	body := decodeBody[tokensResponse](t, resp)
	assert.Equal(t, "cookies", body.TokenType)
	assert.Equal(t, h.clock.Now().Unix(), body.IssuedAt)
	assert.Equal(t, int64(auth.AccessTokenTTL.Seconds()), body.AccessTokenExpiresIn)
	assert.Nil(t, body.PublicID)
}

func TestServer_AnonymousRejectsUnknownCurrency(t *testing.T) {
	h := newHTTPFixture(t)

	resp := h.do(t, http.MethodPost, "/v1/auth/anonymous", `{"currency":"EUR"}`)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Empty(t, resp.Cookies())

	body := decodeBody[errorResponse](t, resp)
	assert.Contains(t, body.Fields, "currency")
}

func TestServer_MeDoesNotTouchCookies(t *testing.T) {
	h := newHTTPFixture(t)

	anon := cookiesByName(h.do(t, http.MethodPost, "/v1/auth/anonymous", ""))
	resp := h.do(t, http.MethodGet, "/v1/auth/me", "", anon[auth.AccessCookie], anon[auth.RefreshCookie])
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, resp.Header.Values("Set-Cookie"))

	body := decodeBody[meResponse](t, resp)
	assert.Equal(t, string(auth.CustomerAnonymous), body.CustomerType)
	assert.Nil(t, body.PublicID)
	assert.Equal(t, int64(auth.AccessTokenTTL.Seconds()), body.ExpiresIn)
}

func TestServer_MeRequiresAccessCookie(t *testing.T) {
	h := newHTTPFixture(t)

	resp := h.do(t, http.MethodGet, "/v1/auth/me", "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = h.do(t, http.MethodGet, "/v1/auth/me", "", &http.Cookie{Name: auth.AccessCookie, Value: "garbage"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Empty(t, resp.Cookies())
}

func TestServer_SignUpThenMe(t *testing.T) {
	h := newHTTPFixture(t)

	anon := cookiesByName(h.do(t, http.MethodPost, "/v1/auth/anonymous", ""))
	resp := h.do(t, http.MethodPost, "/v1/auth/signup",
		`{"email":"ada@example.com","password":"correct horse","firstName":"Ada","lastName":"Lovelace"}`,
		anon[auth.AccessCookie], anon[auth.RefreshCookie])
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	signed := decodeBody[tokensResponse](t, resp)
	require.NotNil(t, signed.PublicID)
	cookies := cookiesByName(resp)
	require.Len(t, cookies, 2)

	me := h.do(t, http.MethodGet, "/v1/auth/me", "", cookies[auth.AccessCookie])
	require.Equal(t, http.StatusOK, me.StatusCode)
	body := decodeBody[meResponse](t, me)
	assert.Equal(t, string(auth.CustomerKnown), body.CustomerType)
	require.NotNil(t, body.PublicID)
	assert.Equal(t, *signed.PublicID, *body.PublicID)
}

func TestServer_SignUpValidation(t *testing.T) {
	h := newHTTPFixture(t)

	resp := h.do(t, http.MethodPost, "/v1/auth/signup",
		`{"email":"not-an-email","password":"short","firstName":"A","lastName":"Lovelace"}`)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	body := decodeBody[errorResponse](t, resp)
	assert.Contains(t, body.Fields, "email")
	assert.Contains(t, body.Fields, "password")
	assert.Contains(t, body.Fields, "firstName")
	assert.NotContains(t, body.Fields, "lastName")
}

func TestServer_MalformedBody(t *testing.T) {
	h := newHTTPFixture(t)

	resp := h.do(t, http.MethodPost, "/v1/auth/login", `{"email":"ada@example.com","password":"x","extra":1}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestServer_SignUpConflict(t *testing.T) {
	h := newHTTPFixture(t)
	body := `{"email":"ada@example.com","password":"correct horse","firstName":"Ada","lastName":"Lovelace"}`

	require.Equal(t, http.StatusCreated, h.do(t, http.MethodPost, "/v1/auth/signup", body).StatusCode)
	assert.Equal(t, http.StatusConflict, h.do(t, http.MethodPost, "/v1/auth/signup", body).StatusCode)
}

func TestServer_LoginWithBadCredentials(t *testing.T) {
	h := newHTTPFixture(t)
	h.signUp(t, "ada@example.com", "correct horse", nil)

	resp := h.do(t, http.MethodPost, "/v1/auth/login", `{"email":"ada@example.com","password":"battery staple"}`)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Empty(t, resp.Cookies())
}

func TestServer_LoginWithForgedSessionFails(t *testing.T) {
	h := newHTTPFixture(t)
	h.signUp(t, "ada@example.com", "correct horse", nil)

	resp := h.do(t, http.MethodPost, "/v1/auth/login", `{"email":"ada@example.com","password":"correct horse"}`,
		&http.Cookie{Name: auth.AccessCookie, Value: "forged"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestServer_RefreshWhileFreshOnlyRenewsAccess(t *testing.T) {
	h := newHTTPFixture(t)

	anon := cookiesByName(h.do(t, http.MethodPost, "/v1/auth/anonymous", ""))
	resp := h.do(t, http.MethodPost, "/v1/auth/refresh", "", anon[auth.RefreshCookie])
	require.Equal(t, http.StatusOK, resp.StatusCode)

	cookies := cookiesByName(resp)
	require.Len(t, cookies, 1)
	assert.NotNil(t, cookies[auth.AccessCookie])
}

func TestServer_RefreshWithoutCookie(t *testing.T) {
	h := newHTTPFixture(t)

	resp := h.do(t, http.MethodPost, "/v1/auth/refresh", "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestServer_LogoutExpiresCookies(t *testing.T) {
	h := newHTTPFixture(t)

	anon := cookiesByName(h.do(t, http.MethodPost, "/v1/auth/anonymous", ""))
	resp := h.do(t, http.MethodPost, "/v1/auth/logout", "", anon[auth.AccessCookie], anon[auth.RefreshCookie])
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	cookies := cookiesByName(resp)
	require.Len(t, cookies, 2)
	for _, c := range cookies {
		assert.Empty(t, c.Value)
		assert.Less(t, c.MaxAge, 0)
	}
}
