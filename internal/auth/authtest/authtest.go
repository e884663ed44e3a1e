// Package authtest provides key material and clocks for tests.
package authtest

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/NordCoder/bazaar/internal/auth"
)

type pemPair struct{ priv, pub []byte }

var (
	once   sync.Once
	pairs  [3]pemPair
	genErr error
)

func generate() {
	for i := range pairs {
		pairs[i].priv, pairs[i].pub, genErr = auth.GenerateKeyPairPEM(2048)
		if genErr != nil {
			return
		}
	}
}

// PEM returns the i-th cached key pair (0..2) in PEM form.
func PEM(t testing.TB, i int) (priv, pub []byte) {
	t.Helper()
	once.Do(generate)
	require.NoError(t, genErr)
	return pairs[i].priv, pairs[i].pub
}

// Keys returns key material built from pairs 0 (access) and 1 (refresh).
func Keys(t testing.TB) *auth.KeyMaterial {
	t.Helper()
	ap, aq := PEM(t, 0)
	rp, rq := PEM(t, 1)
	km, err := auth.LoadKeyMaterial(ap, aq, rp, rq)
	require.NoError(t, err)
	return km
}

// Clock is a settable time source safe for concurrent use.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

func NewClock(start time.Time) *Clock { return &Clock{now: start.Truncate(time.Second)} }

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}
