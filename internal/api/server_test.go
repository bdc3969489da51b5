package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/poopster/internal/config"
	"github.com/talgya/poopster/internal/engine"
	"github.com/talgya/poopster/internal/entropy"
	"github.com/talgya/poopster/internal/persistence"
	"github.com/talgya/poopster/internal/weather"
)

type clearSkies struct{}

func (clearSkies) Forecast(int) weather.Kind { return weather.Clear }

func newTestServer(t *testing.T, adminKey string, withDB bool) (*Server, *httptest.Server) {
	t.Helper()

	s := &Server{AdminKey: adminKey, Limiter: NewRateLimiter(1000, 1000)}
	opts := engine.Options{
		Balance: config.Default(),
		RNG:     entropy.Seeded(9),
		Weather: clearSkies{},
	}
	if withDB {
		db, err := persistence.Open(filepath.Join(t.TempDir(), "api.db"))
		require.NoError(t, err)
		t.Cleanup(func() { db.Close() })
		s.DB = db
		opts.Store = db
	}
	s.Game = engine.NewGame(opts, nil)
	t.Cleanup(s.Game.Close)

	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return s, ts
}

func do(t *testing.T, ts *httptest.Server, method, path, token string, body any) (*http.Response, map[string]any) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, ts.URL+path, &buf)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp, out
}

func TestStatus(t *testing.T) {
	_, ts := newTestServer(t, "", false)

	resp, body := do(t, ts, http.MethodGet, "/api/v1/status", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 1.0, body["day"])
	assert.Equal(t, 1000.0, body["cash"])
	assert.Equal(t, 20.0, body["total_customers"])
	assert.Equal(t, "clear", body["weather"])
	assert.Equal(t, false, body["is_day_active"])
}

func TestHousesAndRoads(t *testing.T) {
	_, ts := newTestServer(t, "", false)

	resp, err := http.Get(ts.URL + "/api/v1/houses")
	require.NoError(t, err)
	defer resp.Body.Close()
	var houses []map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&houses))
	require.Len(t, houses, 20)
	assert.Contains(t, houses[0], "job_price")
	assert.Contains(t, []any{"small", "medium", "large"}, houses[0]["tier"])

	r, body := do(t, ts, http.MethodGet, "/api/v1/town/roads", "", nil)
	require.Equal(t, http.StatusOK, r.StatusCode)
	assert.Equal(t, 20.0, body["width"])
	assert.NotEmpty(t, body["roads"])

	r, _ = do(t, ts, http.MethodGet, "/api/v1/house/missing", "", nil)
	assert.Equal(t, http.StatusNotFound, r.StatusCode)
}

func TestPlayADay(t *testing.T) {
	s, ts := newTestServer(t, "", true)

	resp, _ := do(t, ts, http.MethodPost, "/api/v1/day/start", "", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "nothing selected")

	resp, body := do(t, ts, http.MethodPost, "/api/v1/autoplan", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, body["added"], 8)

	resp, body = do(t, ts, http.MethodGet, "/api/v1/route", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	stats := body["stats"].(map[string]any)
	assert.Equal(t, 8.0, stats["houses"])

	resp, _ = do(t, ts, http.MethodPost, "/api/v1/day/start", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	houseID := s.Game.Snapshot().Houses[0].ID
	resp, _ = do(t, ts, http.MethodPost, "/api/v1/select", "", map[string]string{"house_id": houseID})
	assert.Equal(t, http.StatusConflict, resp.StatusCode, "day in progress")

	resp, body = do(t, ts, http.MethodPost, "/api/v1/day/end", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 1.0, body["day"])
	assert.Equal(t, 8.0, body["houses_serviced"].(float64)+body["houses_missed"].(float64))

	resp, _ = do(t, ts, http.MethodPost, "/api/v1/day/end", "", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	hr, err := http.Get(ts.URL + "/api/v1/history")
	require.NoError(t, err)
	defer hr.Body.Close()
	var rows []map[string]any
	require.NoError(t, json.NewDecoder(hr.Body).Decode(&rows))
	require.Len(t, rows, 1)
	assert.Equal(t, 1.0, rows[0]["day"])

	_, body = do(t, ts, http.MethodGet, "/api/v1/stats/weekly", "", nil)
	summary := body["summary"].(map[string]any)
	assert.Equal(t, 1.0, summary["days"])
}

func TestSelectErrors(t *testing.T) {
	_, ts := newTestServer(t, "", false)

	resp, _ := do(t, ts, http.MethodPost, "/api/v1/select", "", map[string]string{"house_id": "nope"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	req, err := http.NewRequest(http.MethodPost, ts.URL+"/api/v1/select", bytes.NewBufferString("{"))
	require.NoError(t, err)
	raw, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	raw.Body.Close()
	assert.Equal(t, http.StatusBadRequest, raw.StatusCode)
}

func TestUpgradeEndpoint(t *testing.T) {
	_, ts := newTestServer(t, "", false)

	resp, body := do(t, ts, http.MethodPost, "/api/v1/upgrade", "", map[string]string{"kind": "bag_capacity"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 1.0, body["level"])

	resp, _ = do(t, ts, http.MethodPost, "/api/v1/upgrade", "", map[string]string{"kind": "worker"})
	assert.Equal(t, http.StatusPaymentRequired, resp.StatusCode)

	resp, _ = do(t, ts, http.MethodPost, "/api/v1/upgrade", "", map[string]string{"kind": "teleporter"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestUpdateHouse(t *testing.T) {
	s, ts := newTestServer(t, "", false)
	id := s.Game.Snapshot().Houses[0].ID

	resp, body := do(t, ts, http.MethodPatch, "/api/v1/house/"+id, "", map[string]any{"notes": "Beware of dog"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Beware of dog", body["notes"])

	resp, _ = do(t, ts, http.MethodDelete, "/api/v1/house/"+id, "", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Len(t, s.Game.Snapshot().Houses, 19)
}

func TestAdminKeyGuardsMutations(t *testing.T) {
	_, ts := newTestServer(t, "sekrit", false)

	resp, _ := do(t, ts, http.MethodPost, "/api/v1/autoplan", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = do(t, ts, http.MethodPost, "/api/v1/autoplan", "wrong", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = do(t, ts, http.MethodPost, "/api/v1/autoplan", "sekrit", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = do(t, ts, http.MethodGet, "/api/v1/status", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode, "reads stay public")
}

func TestReset(t *testing.T) {
	s, ts := newTestServer(t, "", true)
	_, err := s.Game.PurchaseUpgrade("bag_capacity")
	require.NoError(t, err)

	resp, body := do(t, ts, http.MethodPost, "/api/v1/reset", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 1000.0, body["cash"])
	assert.Equal(t, 20.0, body["houses"])
}

func TestRateLimit(t *testing.T) {
	s := &Server{Limiter: NewRateLimiter(0.001, 2)}
	s.Game = engine.NewGame(engine.Options{Balance: config.Default(), RNG: entropy.Seeded(1), Weather: clearSkies{}}, nil)
	t.Cleanup(s.Game.Close)
	h := s.Handler()

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/v1/status", nil)
		h.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/status", nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code, "separate bucket per client")
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "198.51.100.7:5555"
	assert.Equal(t, "198.51.100.7", clientIP(req))

	req.Header.Set("X-Forwarded-For", "203.0.113.1, 10.0.0.2")
	assert.Equal(t, "203.0.113.1", clientIP(req))
}
