package proc

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/disgoorg/disgo/bot"
	"github.com/leeineian/confessor/confess"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stepClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *stepClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func openStore(t *testing.T) *confess.Store {
	t.Helper()
	s, err := confess.OpenStore(filepath.Join(t.TempDir(), "confessions.jsonl"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func appendConfession(t *testing.T, s *confess.Store, ms int64) {
	t.Helper()
	_, err := s.Append(confess.Confession{
		InternalID:  ms,
		SubmitterID: 1,
		Body:        "a stored confession",
		AnonymousID: confess.FormatAnonymousID(ms),
		CreatedAt:   time.UnixMilli(ms).UTC(),
	})
	require.NoError(t, err)
}

func TestSweepCooldowns(t *testing.T) {
	clock := &stepClock{t: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
	tracker := confess.NewCooldownTracker(5*time.Minute, clock.Now)

	tracker.RecordSubmission(1)
	tracker.RecordSubmission(2)
	clock.Advance(4 * time.Minute)
	tracker.RecordSubmission(3)

	assert.Zero(t, SweepCooldowns(tracker))

	clock.Advance(2 * time.Minute)
	assert.Equal(t, 2, SweepCooldowns(tracker))
	assert.Equal(t, 1, tracker.Len())
	assert.True(t, tracker.IsBlocked(3))
}

func TestStartCooldownJanitorDisabled(t *testing.T) {
	ok, run, stop := StartCooldownJanitor(context.Background(), nil, time.Minute)
	assert.False(t, ok)
	assert.Nil(t, run)
	assert.Nil(t, stop)

	tracker := confess.NewCooldownTracker(time.Minute, nil)
	ok, _, _ = StartCooldownJanitor(context.Background(), tracker, 0)
	assert.False(t, ok)
}

func TestStartCooldownJanitorStopsWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	tracker := confess.NewCooldownTracker(time.Minute, nil)

	ok, run, stop := StartCooldownJanitor(ctx, tracker, time.Millisecond)
	require.True(t, ok)
	require.NotNil(t, stop)

	done := make(chan struct{})
	go func() {
		run()
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("janitor did not stop after cancel")
	}
}

func TestMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	store := openStore(t)
	tracker := confess.NewCooldownTracker(time.Minute, nil)
	m := NewMetrics(reg, store, tracker)

	appendConfession(t, store, 1700000000000)
	tracker.RecordSubmission(1)
	m.Observe(context.Background(), confess.Result{State: confess.StateAcknowledged})
	m.Observe(context.Background(), confess.Result{State: confess.StateAcknowledged})
	m.Observe(context.Background(), confess.Result{State: confess.StateBlocked})

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Submissions.WithLabelValues("ACKNOWLEDGED")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Submissions.WithLabelValues("BLOCKED")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.StoredTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ActiveCooldowns))
}

type healthFixture struct {
	store     *confess.Store
	gatewayUp atomic.Bool
	server    *httptest.Server
}

func newHealthFixture(t *testing.T) *healthFixture {
	t.Helper()
	f := &healthFixture{store: openStore(t)}
	f.gatewayUp.Store(true)
	reg := prometheus.NewRegistry()
	NewMetrics(reg, f.store, confess.NewCooldownTracker(time.Minute, nil))

	h := NewHealthHandler(f.store, f.gatewayUp.Load, reg)
	f.server = httptest.NewServer(NewHealthRouter(h))
	t.Cleanup(f.server.Close)
	return f
}

func (f *healthFixture) get(t *testing.T, path string) (int, []byte) {
	t.Helper()
	resp, err := http.Get(f.server.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, body
}

func TestHealthzOK(t *testing.T) {
	f := newHealthFixture(t)
	appendConfession(t, f.store, 1700000000000)

	code, body := f.get(t, "/healthz")

	assert.Equal(t, http.StatusOK, code)
	var st HealthStatus
	require.NoError(t, json.Unmarshal(body, &st))
	assert.Equal(t, HealthStatus{Status: "ok", Store: true, Gateway: true, Confessions: 1}, st)
}

func TestHealthzDegraded(t *testing.T) {
	f := newHealthFixture(t)
	f.gatewayUp.Store(false)

	code, body := f.get(t, "/healthz")
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Contains(t, string(body), `"status":"degraded"`)

	f.gatewayUp.Store(true)
	require.NoError(t, f.store.Close())
	code, _ = f.get(t, "/healthz")
	assert.Equal(t, http.StatusServiceUnavailable, code)
}

func TestMetricsEndpoint(t *testing.T) {
	f := newHealthFixture(t)

	code, body := f.get(t, "/metrics")

	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(body), "confessor_confessions_stored 0")
	assert.Contains(t, string(body), "confessor_cooldown_entries 0")
}

func TestRunHealthServerStopsWithContext(t *testing.T) {
	f := newHealthFixture(t)
	srv := NewHealthServer("127.0.0.1:0", f.server.Config.Handler)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- RunHealthServer(ctx, srv) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("health server did not stop")
	}
}

func TestPickStatusAvoidsRepeat(t *testing.T) {
	gens := []statusGenerator{
		func(context.Context, *bot.Client) string { return "a" },
		func(context.Context, *bot.Client) string { return "b" },
		func(context.Context, *bot.Client) string { return "" },
	}

	for i := 0; i < 20; i++ {
		assert.Equal(t, "b", pickStatus(context.Background(), nil, gens, "a"))
	}
	assert.Equal(t, "a", pickStatus(context.Background(), nil, gens[:1], "a"), "a lone status may repeat")
	assert.Equal(t, "/confess to confess", pickStatus(context.Background(), nil, gens[2:], ""))
}

func TestConfessionCountStatus(t *testing.T) {
	store := openStore(t)
	gen := confessionCountStatus(store)

	assert.Empty(t, gen(context.Background(), nil))
	appendConfession(t, store, 1700000000000)
	assert.Equal(t, "1 confession", gen(context.Background(), nil))
	appendConfession(t, store, 1700000000001)
	assert.Equal(t, "2 confessions", gen(context.Background(), nil))
}
