package health

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pass(context.Context) error { return nil }

func fail(msg string) CheckFunc {
	return func(context.Context) error { return errors.New(msg) }
}

type response struct {
	status int
	state  string
	checks map[string]string
}

func probe(t *testing.T, endpoint http.HandlerFunc) response {
	t.Helper()
	w := httptest.NewRecorder()
	endpoint(w, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, "application/json", w.Header().Get("Content-Type"))

	r := response{status: w.Code, checks: map[string]string{}}
	require.NoError(t, jx.DecodeBytes(w.Body.Bytes()).Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "status":
			v, err := d.Str()
			r.state = v
			return err
		case "checks":
			return d.Obj(func(d *jx.Decoder, name string) error {
				v, err := d.Str()
				r.checks[name] = v
				return err
			})
		default:
			return d.Skip()
		}
	}))
	return r
}

func runN(c *check, n int) {
	for range n {
		c.run(context.Background())
	}
}

func TestLiveEndpoint(t *testing.T) {
	tests := []struct {
		name   string
		checks map[string]CheckFunc
		runs   int
		want   int
		failed map[string]string
	}{
		{name: "no checks", want: http.StatusOK, failed: map[string]string{}},
		{
			name:   "all passing",
			checks: map[string]CheckFunc{"a": pass, "b": pass},
			runs:   1,
			want:   http.StatusOK,
			failed: map[string]string{},
		},
		{
			name:   "below failure threshold",
			checks: map[string]CheckFunc{"flaky": fail("temporary")},
			runs:   DefaultFailureThreshold - 1,
			want:   http.StatusOK,
			failed: map[string]string{},
		},
		{
			name:   "at failure threshold",
			checks: map[string]CheckFunc{"db": fail("connection refused"), "ok": pass},
			runs:   DefaultFailureThreshold,
			want:   http.StatusServiceUnavailable,
			failed: map[string]string{"db": "connection refused"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := New()
			for name, fn := range tt.checks {
				h.AddLivenessCheck(name, time.Second, fn)
			}
			for _, c := range h.liveness {
				runN(c, tt.runs)
			}

			r := probe(t, h.LiveEndpoint)
			assert.Equal(t, tt.want, r.status)
			assert.Equal(t, tt.failed, r.checks)
			if tt.want == http.StatusOK {
				assert.Equal(t, "ok", r.state)
			} else {
				assert.Equal(t, "unhealthy", r.state)
			}
		})
	}
}

func TestReadyEndpoint(t *testing.T) {
	h := New()
	h.AddReadinessCheck("postgres", time.Second, pass)

	r := probe(t, h.ReadyEndpoint)
	assert.Equal(t, http.StatusServiceUnavailable, r.status)
	assert.Equal(t, "service is not ready", r.checks["_readiness"])
	assert.False(t, h.IsReady())

	h.SetReady(true)
	r = probe(t, h.ReadyEndpoint)
	assert.Equal(t, http.StatusOK, r.status)
	assert.True(t, h.IsReady())

	h.AddReadinessCheck("kafka", time.Second, fail("no brokers"))
	runN(h.readiness[1], DefaultFailureThreshold)
	r = probe(t, h.ReadyEndpoint)
	assert.Equal(t, http.StatusServiceUnavailable, r.status)
	assert.Equal(t, map[string]string{"kafka": "no brokers"}, r.checks)
	assert.False(t, h.IsReady())

	h.SetReady(false)
	r = probe(t, h.ReadyEndpoint)
	assert.Len(t, r.checks, 2)
}

func TestCheckRecovers(t *testing.T) {
	var (
		mu      sync.Mutex
		failing = true
	)
	c := newCheck("db", time.Second, func(context.Context) error {
		mu.Lock()
		defer mu.Unlock()
		if failing {
			return errors.New("down")
		}
		return nil
	})

	runN(c, DefaultFailureThreshold)
	assert.Equal(t, "down", c.failure())

	mu.Lock()
	failing = false
	mu.Unlock()
	runN(c, DefaultSuccessThreshold)
	assert.Empty(t, c.failure())
}

func TestCheckTimeout(t *testing.T) {
	c := newCheck("slow", 10*time.Millisecond, func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	runN(c, DefaultFailureThreshold)
	assert.Contains(t, c.failure(), "deadline exceeded")
}

func TestStartAndStop(t *testing.T) {
	var (
		mu    sync.Mutex
		calls int
	)
	h := New()
	h.AddLivenessCheck("count", time.Second, func(context.Context) error {
		mu.Lock()
		calls++
		mu.Unlock()
		return nil
	})
	h.Start(context.Background(), 5*time.Millisecond)
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return calls >= 3
	}, time.Second, time.Millisecond)

	h.Stop()
	h.Stop()
	time.Sleep(20 * time.Millisecond)
	mu.Lock()
	stopped := calls
	mu.Unlock()
	time.Sleep(20 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, stopped, calls)
}

type pinger struct{ err error }

func (p pinger) Ping(context.Context) error { return p.err }

func TestCheckers(t *testing.T) {
	ctx := context.Background()
	assert.NoError(t, PingCheck(pinger{})(ctx))
	assert.ErrorContains(t, PingCheck(pinger{err: errors.New("refused")})(ctx), "refused")

	assert.NoError(t, GoroutineCountCheck(1_000_000)(ctx))
	assert.Error(t, GoroutineCountCheck(0)(ctx))

	assert.NoError(t, GCMaxPauseCheck(time.Hour)(ctx))
}
