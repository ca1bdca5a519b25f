package presence

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/anonto42/nano-midea/notifier/internal/auth"
	pkgerrors "github.com/anonto42/nano-midea/notifier/pkg/errors"
	"github.com/anonto42/nano-midea/notifier/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubConn struct {
	id     string
	closed atomic.Bool
}

func (c *stubConn) ID() string                { return c.id }
func (c *stubConn) Send(string, []byte) error { return nil }
func (c *stubConn) Close()                    { c.closed.Store(true) }

func alice() auth.Principal { return auth.Authenticated{UserID: "alice"} }

func TestRegisterAndLookup(t *testing.T) {
	r := NewRegistry(nil)
	phone, laptop := &stubConn{id: "phone"}, &stubConn{id: "laptop"}

	id, err := r.Register(alice(), phone)
	require.NoError(t, err)
	assert.Equal(t, "alice", id)
	_, err = r.Register(alice(), laptop)
	require.NoError(t, err)

	assert.ElementsMatch(t, []Connection{phone, laptop}, r.ConnectionsFor("alice"))
	assert.Empty(t, r.ConnectionsFor("bob"))
	assert.Equal(t, 2, r.Count())

	r.Unregister("alice", phone)
	assert.Equal(t, []Connection{laptop}, r.ConnectionsFor("alice"))

	r.Unregister("alice", phone)
	r.Unregister("bob", laptop)
	assert.Equal(t, 1, r.Count(), "unregister is idempotent")

	r.Unregister("alice", laptop)
	assert.Empty(t, r.ConnectionsFor("alice"))
	assert.Zero(t, r.Count())
}

func TestRegisterRejectsAnonymous(t *testing.T) {
	r := NewRegistry(nil)

	_, err := r.Register(auth.Anonymous{}, &stubConn{id: "c"})
	assert.Equal(t, pkgerrors.CodeAuthenticationFailed, pkgerrors.CodeOf(err))
	assert.Zero(t, r.Count())
}

func TestSnapshotIsIndependent(t *testing.T) {
	r := NewRegistry(nil)
	c := &stubConn{id: "c"}
	_, _ = r.Register(alice(), c)

	snap := r.ConnectionsFor("alice")
	r.Unregister("alice", c)
	assert.Len(t, snap, 1)
}

func TestCloseClosesEverything(t *testing.T) {
	r := NewRegistry(nil)
	a, b := &stubConn{id: "a"}, &stubConn{id: "b"}
	_, _ = r.Register(alice(), a)
	_, _ = r.Register(auth.Authenticated{UserID: "bob"}, b)

	r.Close()
	assert.True(t, a.closed.Load())
	assert.True(t, b.closed.Load())
	assert.Zero(t, r.Count())

	_, err := r.Register(alice(), &stubConn{id: "late"})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeInternal, pkgerrors.CodeOf(err))
}

func TestGaugeTracksConnections(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := NewRegistry(metrics.New(reg))

	c1, c2 := &stubConn{id: "1"}, &stubConn{id: "2"}
	_, _ = r.Register(alice(), c1)
	_, _ = r.Register(alice(), c2)
	assert.Equal(t, 2.0, gauge(t, reg))

	r.Unregister("alice", c1)
	assert.Equal(t, 1.0, gauge(t, reg))
}

func gauge(t *testing.T, reg *prometheus.Registry) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, f := range families {
		if f.GetName() == "notifier_live_connections" {
			return f.GetMetric()[0].GetGauge().GetValue()
		}
	}
	t.Fatal("live connections gauge not registered")
	return 0
}

func TestConcurrentRegistration(t *testing.T) {
	r := NewRegistry(nil)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c := &stubConn{id: fmt.Sprintf("c%d", i)}
			user := auth.Authenticated{UserID: fmt.Sprintf("u%d", i%5)}
			_, _ = r.Register(user, c)
			_ = r.ConnectionsFor(user.UserID)
			if i%2 == 0 {
				r.Unregister(user.UserID, c)
			}
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 25, r.Count())
}
