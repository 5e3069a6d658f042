package server

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maraops/mara-agent/internal/mara"
)

const testSecret = "agent-secret"

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestServers starts a fake MARA upstream and the dashboard server in
// front of it, returning the dashboard base URL.
func newTestServers(t *testing.T) (dashboard *httptest.Server, upstream *httptest.Server) {
	t.Helper()

	upstream = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.URL.Path == "/prices":
			io.WriteString(w, `[{"hash_price": 2, "token_price": 0.01, "energy_price": 0.05}]`)
		case r.URL.Path == "/inventory":
			io.WriteString(w, `{
				"miners": {"air": {"power": 10, "hashrate": 3}, "hydro": {"power": 100, "hashrate": 30}, "immersion": {"power": 250, "hashrate": 80}},
				"inference": {"gpu": {"power": 50, "tokens": 1000}, "asic": {"power": 40, "tokens": 5000}}
			}`)
		case r.URL.Path == "/machines" && r.Method == http.MethodGet:
			io.WriteString(w, `{"site_name": "site-1", "air_miners": 2}`)
		case r.URL.Path == "/machines" && r.Method == http.MethodPut:
			io.Copy(w, r.Body)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(upstream.Close)

	client := mara.NewClient("test-key", upstream.URL, testLogger())
	api := NewAPI(client, testLogger())
	srv := NewServer(0, api, testSecret, prometheus.NewRegistry())

	dashboard = httptest.NewServer(srv.http.Handler)
	t.Cleanup(dashboard.Close)
	return dashboard, upstream
}

func doRequest(t *testing.T, method, url, body string, authed bool) (*http.Response, map[string]json.RawMessage) {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	if authed {
		req.Header.Set("X-Agent-Secret", testSecret)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	var envelope map[string]json.RawMessage
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	return resp, envelope
}

func TestPingIsPublic(t *testing.T) {
	dashboard, _ := newTestServers(t)

	resp, _ := doRequest(t, http.MethodGet, dashboard.URL+"/ping", "", false)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestMetricsIsPublic(t *testing.T) {
	dashboard, _ := newTestServers(t)

	resp, err := http.Get(dashboard.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAuthRequired(t *testing.T) {
	dashboard, _ := newTestServers(t)

	resp, _ := doRequest(t, http.MethodGet, dashboard.URL+"/prices", "", false)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	req, err := http.NewRequest(http.MethodGet, dashboard.URL+"/prices", nil)
	require.NoError(t, err)
	req.Header.Set("X-Agent-Secret", "wrong")
	wrong, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer wrong.Body.Close()
	assert.Equal(t, http.StatusForbidden, wrong.StatusCode)
}

func TestPricesProxy(t *testing.T) {
	dashboard, _ := newTestServers(t)

	resp, envelope := doRequest(t, http.MethodGet, dashboard.URL+"/prices", "", true)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var prices []map[string]float64
	require.NoError(t, json.Unmarshal(envelope["data"], &prices))
	require.Len(t, prices, 1)
	assert.Equal(t, 2.0, prices[0]["hash_price"])
}

func TestAllocationLifecycle(t *testing.T) {
	dashboard, _ := newTestServers(t)

	// nothing cached yet
	resp, envelope := doRequest(t, http.MethodGet, dashboard.URL+"/allocation", "", true)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.JSONEq(t, "false", string(envelope["ok"]))

	// push a partial allocation
	resp, _ = doRequest(t, http.MethodPut, dashboard.URL+"/allocation", `{"gpu_compute": 5}`, true)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// cached value is the normalized payload
	resp, envelope = doRequest(t, http.MethodGet, dashboard.URL+"/allocation", "", true)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var alloc map[string]int
	require.NoError(t, json.Unmarshal(envelope["data"], &alloc))
	assert.Equal(t, map[string]int{
		"air_miners":       0,
		"hydro_miners":     0,
		"immersion_miners": 0,
		"gpu_compute":      5,
		"asic_compute":     0,
	}, alloc)

	// clear and confirm
	resp, _ = doRequest(t, http.MethodDelete, dashboard.URL+"/allocation", "", true)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = doRequest(t, http.MethodGet, dashboard.URL+"/allocation", "", true)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestStatusAttachesEconomics(t *testing.T) {
	dashboard, _ := newTestServers(t)

	// with a pushed allocation the reconciled view carries economics
	resp, _ := doRequest(t, http.MethodPut, dashboard.URL+"/allocation", `{"air_miners": 5}`, true)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, envelope := doRequest(t, http.MethodGet, dashboard.URL+"/status", "", true)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var status struct {
		SiteName  string `json:"site_name"`
		AirMiners int    `json:"air_miners"`
		Economics *struct {
			TotalPowerUsed float64 `json:"total_power_used"`
			TotalRevenue   float64 `json:"total_revenue"`
			TotalPowerCost float64 `json:"total_power_cost"`
		} `json:"economics"`
	}
	require.NoError(t, json.Unmarshal(envelope["data"], &status))

	assert.Equal(t, "site-1", status.SiteName)
	assert.Equal(t, 5, status.AirMiners, "local plan overrides remote count")
	require.NotNil(t, status.Economics)
	assert.Equal(t, 50.0, status.Economics.TotalPowerUsed)
	assert.Equal(t, 30.0, status.Economics.TotalRevenue)
	assert.Equal(t, 2.5, status.Economics.TotalPowerCost)
}

func TestStatusSeedsCacheFromFirstFetch(t *testing.T) {
	dashboard, _ := newTestServers(t)

	// the fetch inside /status seeds the cache with the remote counts, so
	// even the first call projects economics for them
	resp, envelope := doRequest(t, http.MethodGet, dashboard.URL+"/status", "", true)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var status struct {
		AirMiners int `json:"air_miners"`
		Economics *struct {
			TotalPowerUsed float64 `json:"total_power_used"`
		} `json:"economics"`
	}
	require.NoError(t, json.Unmarshal(envelope["data"], &status))
	assert.Equal(t, 2, status.AirMiners)
	require.NotNil(t, status.Economics)
	assert.Equal(t, 20.0, status.Economics.TotalPowerUsed)

	resp, envelope = doRequest(t, http.MethodGet, dashboard.URL+"/allocation", "", true)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var alloc map[string]int
	require.NoError(t, json.Unmarshal(envelope["data"], &alloc))
	assert.Equal(t, 2, alloc["air_miners"])
}

func TestEstimate(t *testing.T) {
	dashboard, _ := newTestServers(t)

	resp, envelope := doRequest(t, http.MethodPost, dashboard.URL+"/estimate",
		`{"allocation": {"air_miners": 5, "gpu_compute": 2}}`, true)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var est struct {
		PowerUsed float64 `json:"power_used"`
		Revenue   struct {
			Total     float64 `json:"total"`
			Mining    float64 `json:"mining"`
			Inference float64 `json:"inference"`
		} `json:"revenue"`
	}
	require.NoError(t, json.Unmarshal(envelope["data"], &est))

	assert.Equal(t, 150.0, est.PowerUsed)
	assert.Equal(t, 30.0, est.Revenue.Mining)
	assert.Equal(t, 20.0, est.Revenue.Inference)
	assert.Equal(t, 50.0, est.Revenue.Total)
}

func TestUpstreamFailureMapsToBadGateway(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down for maintenance", http.StatusServiceUnavailable)
	}))
	t.Cleanup(upstream.Close)

	client := mara.NewClient("test-key", upstream.URL, testLogger())
	srv := NewServer(0, NewAPI(client, testLogger()), testSecret, prometheus.NewRegistry())
	dashboard := httptest.NewServer(srv.http.Handler)
	t.Cleanup(dashboard.Close)

	resp, envelope := doRequest(t, http.MethodGet, dashboard.URL+"/prices", "", true)
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.JSONEq(t, "false", string(envelope["ok"]))
}
