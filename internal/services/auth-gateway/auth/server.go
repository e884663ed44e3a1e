package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/NordCoder/bazaar/internal/auth"
	"github.com/NordCoder/bazaar/internal/domain/cart"
)

type Server struct {
	log          *zap.Logger
	uc           *Usecase
	cookieSecure bool
	now          func() time.Time
}

type Opts struct {
	Logger       *zap.Logger
	CookieSecure bool
	Now          func() time.Time
}

func NewServer(uc *Usecase, o Opts) *Server {
	log := o.Logger
	if log == nil {
		log = zap.NewNop()
	}
	now := o.Now
	if now == nil {
		now = time.Now
	}
	return &Server{log: log.Named("http"), uc: uc, cookieSecure: o.CookieSecure, now: now}
}

// Routes mounts the auth API under /v1/auth.
func (s *Server) Routes(r chi.Router) {
	r.Route("/v1/auth", func(r chi.Router) {
		r.Use(s.sessionCookies)
		r.Post("/anonymous", s.handle(s.anonymous))
		r.Post("/signup", s.handle(s.signUp))
		r.Post("/login", s.handle(s.login))
		r.Post("/refresh", s.handle(s.refresh))
		r.Post("/logout", s.handle(s.logout))
		r.With(s.RequireAccess).Get("/me", s.handle(s.me))
	})
}

// CookieUpdate is the explicit outcome of an auth operation for the cookie
// transport. Nil fields leave the client's cookie untouched.
type CookieUpdate struct {
	Access  *auth.CookieValue
	Refresh *auth.CookieValue
}

func updateFor(t auth.Tokens) *CookieUpdate {
	u := &CookieUpdate{Access: auth.NewCookieValue(t.Access, seconds(t.AccessExpiresIn))}
	if t.RefreshRotated {
		u.Refresh = auth.NewCookieValue(t.Refresh, seconds(t.RefreshExpiresIn))
	}
	return u
}

func seconds(d time.Duration) int {
	n := int(d / time.Second)
	if n < 1 {
		return 1
	}
	return n
}

type result struct {
	status  int
	body    any
	cookies *CookieUpdate
}

type handlerFunc func(r *http.Request, sess *session) (result, error)

func (s *Server) handle(fn handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := sessionFrom(r.Context())
		res, err := fn(r, sess)
		if err != nil {
			s.writeErr(w, r, err)
			return
		}
		if err := s.applyCookies(w, sess.cookies, res.cookies); err != nil {
			s.writeErr(w, r, err)
			return
		}
		if res.body == nil {
			w.WriteHeader(res.status)
			return
		}
		writeJSON(w, res.status, res.body)
	}
}

func (s *Server) applyCookies(w http.ResponseWriter, carrier *auth.Cookies, u *CookieUpdate) error {
	if u != nil {
		if u.Access != nil {
			if err := carrier.SetAccess(u.Access); err != nil {
				return err
			}
		}
		if u.Refresh != nil {
			if err := carrier.SetRefresh(u.Refresh); err != nil {
				return err
			}
		}
	}
	return carrier.Write(w, s.cookieSecure)
}

type tokensResponse struct {
	IssuedAt              int64      `json:"issuedAt"`
	AccessTokenExpiresIn  int64      `json:"accessTokenExpiresIn"`
	RefreshTokenExpiresIn int64      `json:"refreshTokenExpiresIn"`
	TokenType             string     `json:"tokenType"`
	PublicID              *uuid.UUID `json:"publicId,omitempty"`
}

func tokensResult(status int, t auth.Tokens, publicID *uuid.UUID) result {
	return result{
		status: status,
		body: tokensResponse{
			IssuedAt:              t.IssuedAt.Unix(),
			AccessTokenExpiresIn:  int64(t.AccessExpiresIn / time.Second),
			RefreshTokenExpiresIn: int64(t.RefreshExpiresIn / time.Second),
			TokenType:             "cookies",
			PublicID:              publicID,
		},
		cookies: updateFor(t),
	}
}

func (s *Server) anonymous(r *http.Request, _ *session) (result, error) {
	var req anonymousRequest
	if err := decodeOptional(r, &req); err != nil {
		return result{}, err
	}
	if err := req.Validate(); err != nil {
		return result{}, err
	}
	tokens, err := s.uc.AnonymousLogin(r.Context(), cart.Currency(req.Currency))
	if err != nil {
		return result{}, err
	}
	return tokensResult(http.StatusCreated, tokens, nil), nil
}

func (s *Server) signUp(r *http.Request, sess *session) (result, error) {
	var req signUpRequest
	if err := decode(r, &req); err != nil {
		return result{}, err
	}
	if err := req.Validate(); err != nil {
		return result{}, err
	}
	anon, err := s.uc.SessionToken(r.Context(), sess.access, sess.refresh)
	if err != nil {
		return result{}, err
	}

	tokens, publicID, err := s.uc.SignUp(r.Context(), SignUpInput{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Currency:  cart.Currency(req.Currency),
	}, anon)
	if err != nil {
		return result{}, err
	}
	return tokensResult(http.StatusCreated, tokens, &publicID), nil
}

func (s *Server) login(r *http.Request, sess *session) (result, error) {
	var req loginRequest
	if err := decode(r, &req); err != nil {
		return result{}, err
	}
	if err := req.Validate(); err != nil {
		return result{}, err
	}
	anon, err := s.uc.SessionToken(r.Context(), sess.access, sess.refresh)
	if err != nil {
		return result{}, err
	}

	tokens, err := s.uc.Login(r.Context(), req.Email, req.Password, anon)
	if err != nil {
		return result{}, err
	}
	return tokensResult(http.StatusOK, tokens, nil), nil
}

func (s *Server) refresh(r *http.Request, sess *session) (result, error) {
	tokens, err := s.uc.Refresh(r.Context(), sess.refresh)
	if err != nil {
		return result{}, err
	}
	return tokensResult(http.StatusOK, tokens, nil), nil
}

func (s *Server) logout(*http.Request, *session) (result, error) {
	return result{
		status:  http.StatusNoContent,
		cookies: &CookieUpdate{Access: auth.Expired(), Refresh: auth.Expired()},
	}, nil
}

type meResponse struct {
	PublicID     *uuid.UUID `json:"publicId"`
	CustomerType string     `json:"customerType"`
	CartID       uuid.UUID  `json:"cartId"`
	ExpiresIn    int64      `json:"expiresIn"`
}

func (s *Server) me(r *http.Request, _ *session) (result, error) {
	tok, ok := TokenFrom(r.Context())
	if !ok {
		return result{}, auth.ErrUnauthorized
	}
	id := s.uc.WhoAmI(tok)
	return result{status: http.StatusOK, body: meResponse{
		PublicID:     id.PublicID,
		CustomerType: string(id.CustomerType),
		CartID:       id.CartID,
		ExpiresIn:    int64(id.ExpiresAt.Sub(s.now()) / time.Second),
	}}, nil
}

const maxBody = 1 << 16

func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %w", errBadRequest, err)
	}
	return nil
}

// decodeOptional accepts an empty body.
func decodeOptional(r *http.Request, v any) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	if err := decode(r, v); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
