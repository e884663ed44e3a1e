package auth

import (
	"context"
	"net/http"

	"github.com/NordCoder/bazaar/internal/auth"
)

type ctxKey int

const sessionKey ctxKey = iota

// session is what the middleware read from the request cookies. The carrier
// is already consumed: anything written back was set explicitly.
type session struct {
	cookies *auth.Cookies
	access  *string
	refresh *string
}

func (s *Server) sessionCookies(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		carrier := auth.CookiesFromRequest(r)

		access, err := carrier.Access()
		if err != nil {
			s.writeErr(w, r, err)
			return
		}
		refresh, err := carrier.Refresh()
		if err != nil {
			s.writeErr(w, r, err)
			return
		}
		if err := carrier.MarkConsumed(); err != nil {
			s.writeErr(w, r, err)
			return
		}

		ctx := context.WithValue(r.Context(), sessionKey, &session{cookies: carrier, access: access, refresh: refresh})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func sessionFrom(ctx context.Context) *session {
	if s, ok := ctx.Value(sessionKey).(*session); ok {
		return s
	}
	return &session{cookies: auth.NewCookies(nil, nil)}
}

type tokenKey struct{}

// RequireAccess resolves the access cookie and stores the token in the
// request context for downstream handlers.
func (s *Server) RequireAccess(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tok, err := s.uc.Authenticate(r.Context(), sessionFrom(r.Context()).access)
		if err != nil {
			s.writeErr(w, r, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), tokenKey{}, tok)))
	})
}

// TokenFrom returns the token stored by RequireAccess.
func TokenFrom(ctx context.Context) (auth.Token, bool) {
	tok, ok := ctx.Value(tokenKey{}).(auth.Token)
	return tok, ok
}
