package auth

import (
	"net/http"
	"sync"
)

const (
	AccessCookie  = "ACCESS"
	RefreshCookie = "REFRESH"
)

// CookieValue is a pending Set-Cookie. MaxAge is in seconds; a negative
// MaxAge deletes the cookie.
type CookieValue struct {
	Raw    string
	MaxAge int
}

func NewCookieValue(raw string, maxAgeSeconds int) *CookieValue {
	return &CookieValue{Raw: raw, MaxAge: maxAgeSeconds}
}

// Expired is the value written on logout.
func Expired() *CookieValue { return &CookieValue{MaxAge: -1} }

type slot struct {
	mu       sync.Mutex
	val      *CookieValue
	poisoned bool
}

func (s *slot) with(fn func(v **CookieValue)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.poisoned {
		return ErrConcurrency
	}
	defer func() {
		if r := recover(); r != nil {
			s.poisoned = true
			panic(r)
		}
	}()
	fn(&s.val)
	return nil
}

func (s *slot) get() (*CookieValue, error) {
	var out *CookieValue
	err := s.with(func(v **CookieValue) {
		if *v != nil {
			cp := **v
			out = &cp
		}
	})
	return out, err
}

func (s *slot) set(val *CookieValue) error {
	return s.with(func(v **CookieValue) { *v = val })
}

// Cookies carries the ACCESS and REFRESH values of one request/response
// exchange. The middleware seeds it from the request and empties it once the
// values have been read, so only values a handler explicitly sets are written
// back.
type Cookies struct {
	access  slot
	refresh slot
}

func NewCookies(access, refresh *string) *Cookies {
	c := &Cookies{}
	if access != nil {
		c.access.val = &CookieValue{Raw: *access}
	}
	if refresh != nil {
		c.refresh.val = &CookieValue{Raw: *refresh}
	}
	return c
}

func CookiesFromRequest(r *http.Request) *Cookies {
	return NewCookies(requestCookie(r, AccessCookie), requestCookie(r, RefreshCookie))
}

func requestCookie(r *http.Request, name string) *string {
	ck, err := r.Cookie(name)
	if err != nil || ck.Value == "" {
		return nil
	}
	v := ck.Value
	return &v
}

func (c *Cookies) Access() (*string, error)  { return raw(c.access.get()) }
func (c *Cookies) Refresh() (*string, error) { return raw(c.refresh.get()) }

func (c *Cookies) SetAccess(v *CookieValue) error  { return c.access.set(v) }
func (c *Cookies) SetRefresh(v *CookieValue) error { return c.refresh.set(v) }

// MarkConsumed empties both slots.
func (c *Cookies) MarkConsumed() error {
	if err := c.access.set(nil); err != nil {
		return err
	}
	return c.refresh.set(nil)
}

// Write emits one Set-Cookie header per non-empty slot.
func (c *Cookies) Write(w http.ResponseWriter, secure bool) error {
	for _, s := range []struct {
		name string
		slot *slot
	}{{AccessCookie, &c.access}, {RefreshCookie, &c.refresh}} {
		v, err := s.slot.get()
		if err != nil {
			return err
		}
		if v == nil {
			continue
		}
		http.SetCookie(w, &http.Cookie{
			Name:     s.name,
			Value:    v.Raw,
			Path:     "/",
			MaxAge:   v.MaxAge,
			HttpOnly: true,
			Secure:   secure,
			SameSite: http.SameSiteLaxMode,
		})
	}
	return nil
}

func raw(v *CookieValue, err error) (*string, error) {
	if err != nil || v == nil {
		return nil, err
	}
	s := v.Raw
	return &s, nil
}
