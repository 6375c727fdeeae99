package server

import (
	"bytes"
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/mathcraft/internal/cache"
	"github.com/zeusync/mathcraft/internal/config"
	"github.com/zeusync/mathcraft/internal/core/notation"
	"github.com/zeusync/mathcraft/internal/core/observability/log"
)

func newTestServer(t *testing.T, mutate func(*config.Config)) (*Server, *httptest.Server) {
	t.Helper()
	cfg := config.Default()
	cfg.Playback.FrameInterval = 0
	if mutate != nil {
		mutate(&cfg)
	}
	require.NoError(t, cfg.Validate())

	srv := NewServer(&cfg, log.NewNop(), cache.New(cfg.Cache.Shards, cfg.Cache.EntriesPerShard))
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return srv, ts
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	b, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(b))
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func get(t *testing.T, url string) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func TestCollisionEndpoint(t *testing.T) {
	_, ts := newTestServer(t, nil)

	resp := postJSON(t, ts.URL+"/api/collision", map[string]any{
		"speed_a": 100_000, "speed_b": 200_000, "initial_distance": 1_000_000, "scenario": "opposite",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get(requestIDHeader))

	view := decode[CollisionView](t, resp)
	assert.True(t, view.Collides)
	require.NotNil(t, view.MeetingTime)
	assert.InDelta(t, 3.3333, *view.MeetingTime, 1e-4)
	assert.Equal(t, "3.33e+00", view.MeetingTimeSci)
	assert.Equal(t, "Particles will collide after 3.33e+00 seconds.", view.Message)
}

func TestCollisionEndpointNoCollision(t *testing.T) {
	_, ts := newTestServer(t, nil)

	resp := postJSON(t, ts.URL+"/api/collision", map[string]any{
		"speed_a": 200_000, "speed_b": 100_000, "initial_distance": 1_000_000, "scenario": "same_direction",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	view := decode[CollisionView](t, resp)
	assert.False(t, view.Collides)
	assert.Nil(t, view.MeetingTime)
	assert.Equal(t, "Particle B must be faster to catch up to Particle A.", view.Message)
}

func TestCollisionEndpointErrors(t *testing.T) {
	_, ts := newTestServer(t, nil)

	resp := postJSON(t, ts.URL+"/api/collision", map[string]any{"speed_a": -1, "speed_b": 1, "initial_distance": 1})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "invalid_input", decode[errorResponse](t, resp).Code)

	resp = postJSON(t, ts.URL+"/api/collision", map[string]any{"speed_a": 1, "speed_b": 1, "initial_distance": 1, "scenario": "sideways"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "invalid_input", decode[errorResponse](t, resp).Code)

	raw, err := http.Post(ts.URL+"/api/collision", "application/json", strings.NewReader("{"))
	require.NoError(t, err)
	defer raw.Body.Close()
	assert.Equal(t, http.StatusBadRequest, raw.StatusCode)
	assert.Equal(t, "bad_request", decode[errorResponse](t, raw).Code)

	resp = get(t, ts.URL+"/api/collision")
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestCollisionEndpointOutOfRange(t *testing.T) {
	_, ts := newTestServer(t, nil)

	resp := postJSON(t, ts.URL+"/api/collision", map[string]any{
		"speed_a": 1.7e308, "speed_b": 1.79e308, "initial_distance": 1.7e308, "scenario": "same_direction",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "numeric_range", decode[errorResponse](t, resp).Code)

	resp = postJSON(t, ts.URL+"/api/frames", map[string]any{
		"input": map[string]any{"speed_a": 1e150, "speed_b": 1e150, "initial_distance": 1e300},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	view := decode[FramesView](t, resp)
	require.NotEmpty(t, view.Frames)
	assert.Equal(t, 0.0, view.Frames[0].TimeSec)
}

func TestWriteJSONEncodeFailure(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/exp", nil)
	srv.writeJSON(rec, req, http.StatusOK, map[string]float64{"value": math.Inf(1)})

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	var body errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "internal", body.Code)
}

func TestCollisionEndpointEnforcesBounds(t *testing.T) {
	_, ts := newTestServer(t, func(c *config.Config) { c.Server.EnforceBounds = true })

	resp := postJSON(t, ts.URL+"/api/collision", map[string]any{"speed_a": 5_000_000, "speed_b": 1, "initial_distance": 1000})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "out_of_range", decode[errorResponse](t, resp).Code)
}

func TestFramesEndpoint(t *testing.T) {
	_, ts := newTestServer(t, nil)

	resp := postJSON(t, ts.URL+"/api/frames", map[string]any{
		"input":      map[string]any{"speed_a": 100_000, "speed_b": 200_000, "initial_distance": 1_000_000},
		"max_frames": 20,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	view := decode[FramesView](t, resp)
	require.Len(t, view.Frames, 20)
	assert.Equal(t, 0.0, view.Frames[0].TimeSec)
	assert.InDelta(t, 3.6667, view.TotalTime, 1e-4)
	assert.Less(t, view.Frames[19].TimeSec, view.TotalTime)

	resp = postJSON(t, ts.URL+"/api/frames", map[string]any{
		"input": map[string]any{"speed_a": 1_000_000, "speed_b": 1_000_000, "initial_distance": 100},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	view = decode[FramesView](t, resp)
	assert.True(t, view.Collides)
	assert.Empty(t, view.Frames)
	assert.Equal(t, "Collision is too fast to animate.", view.Message)
}

func TestBatchEndpoint(t *testing.T) {
	srv, ts := newTestServer(t, func(c *config.Config) { c.Engine.MaxBatchSize = 3 })

	resp := postJSON(t, ts.URL+"/api/batch", []map[string]any{
		{"speed_a": 10, "speed_b": 20, "initial_distance": 300},
		{"speed_a": 20, "speed_b": 10, "initial_distance": 300, "scenario": "same_direction"},
		{"speed_a": 0, "speed_b": 10, "initial_distance": 300},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	items := decode[[]BatchItem](t, resp)
	require.Len(t, items, 3)
	for i, item := range items {
		assert.Equal(t, i, item.Index)
	}
	require.NotNil(t, items[0].Result)
	assert.InDelta(t, 10.0, *items[0].Result.MeetingTime, 1e-12)
	require.NotNil(t, items[1].Result)
	assert.False(t, items[1].Result.Collides)
	assert.Nil(t, items[2].Result)
	assert.Equal(t, "invalid_input", items[2].Code)

	assert.Equal(t, 2, srv.GetStats().Cache.Entries)

	resp = postJSON(t, ts.URL+"/api/batch", make([]map[string]any, 4))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "batch_too_large", decode[errorResponse](t, resp).Code)
}

func TestNotationEndpoints(t *testing.T) {
	_, ts := newTestServer(t, nil)

	resp := get(t, ts.URL+"/api/log?x=100000")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	analysis := decode[notation.LogAnalysis](t, resp)
	assert.InDelta(t, 5, analysis.Log10, 1e-12)
	assert.InDelta(t, 11.5129, analysis.NaturalLog, 1e-4)

	resp = get(t, ts.URL+"/api/log?x=0")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "domain_error", decode[errorResponse](t, resp).Code)

	resp = get(t, ts.URL+"/api/log")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = get(t, ts.URL+"/api/exp?x=1")
	ev := decode[expView](t, resp)
	require.NotNil(t, ev.Exp)
	assert.InDelta(t, 2.718281828, *ev.Exp, 1e-9)

	resp = get(t, ts.URL+"/api/exp?x=1000")
	ev = decode[expView](t, resp)
	assert.True(t, ev.Overflow)
	assert.Nil(t, ev.Exp)

	resp = get(t, ts.URL+"/api/decay?half_life=10&elapsed=50")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decay := decode[notation.DecayResult](t, resp)
	assert.InDelta(t, 0.03125, decay.FractionRemaining, 1e-12)

	resp = get(t, ts.URL+"/api/decay?half_life=0&elapsed=50")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = get(t, ts.URL+"/api/notation?x=299792458&precision=4")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	nv := decode[notationView](t, resp)
	assert.Equal(t, 8, nv.Exponent)
	assert.Equal(t, "2.9979 × 10^8", nv.Formatted)
	assert.Equal(t, "2.9979e+08", nv.E)

	resp = get(t, ts.URL+"/api/notation?x=1&precision=-2")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestLessonAndHealth(t *testing.T) {
	_, ts := newTestServer(t, nil)

	resp := get(t, ts.URL+"/api/lesson")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	lv := decode[lessonView](t, resp)
	assert.Len(t, lv.Problems, 3)
	assert.Equal(t, 1_000_000.0, lv.Bounds.SpeedA.Max)

	resp = get(t, ts.URL+"/healthz")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	stats := decode[Stats](t, resp)
	assert.Equal(t, int64(0), stats.ActiveStreams)
}

func TestStartStop(t *testing.T) {
	cfg := config.Default()
	cfg.Server.ListenAddr = "127.0.0.1:0"
	srv := NewServer(&cfg, log.NewNop(), nil)

	require.NoError(t, srv.Start(context.Background()))
	assert.ErrorIs(t, srv.Start(context.Background()), ErrServerAlreadyRunning)
	assert.True(t, srv.GetStats().Running)

	resp := get(t, "http://"+srv.Addr().String()+"/healthz")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, srv.Stop(ctx))
	assert.ErrorIs(t, srv.Stop(ctx), ErrServerNotRunning)

	require.NoError(t, srv.Close())
	assert.ErrorIs(t, srv.Start(context.Background()), ErrServerClosed)
}

// baseLog lets syncCounter embed log.Log without the embedded field name
// shadowing the interface's Log method.
type baseLog = log.Log

type syncCounter struct {
	baseLog
	syncs *atomic.Int32
}

func (c syncCounter) With(...log.Field) log.Log { return c }

func (c syncCounter) Sync() error {
	c.syncs.Add(1)
	return nil
}

func TestCloseSyncsLogger(t *testing.T) {
	cfg := config.Default()
	logger := syncCounter{baseLog: log.NewNop(), syncs: &atomic.Int32{}}
	srv := NewServer(&cfg, logger, nil)

	require.NoError(t, srv.Close())
	require.NoError(t, srv.Close())
	assert.Equal(t, int32(1), logger.syncs.Load())
}
