package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"binanceTracker/internal/domain"
	"binanceTracker/internal/ports"
)

// MockRefresher implements ports.Refresher for testing
type MockRefresher struct {
	mock.Mock
}

func (m *MockRefresher) RequestRefresh() {
	m.Called()
}

type nopLogger struct{}

func (nopLogger) Debug(ctx context.Context, msg string, fields ...map[string]interface{}) {}
func (nopLogger) Info(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (nopLogger) Warn(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (nopLogger) Error(ctx context.Context, err error, msg string, fields ...map[string]interface{}) {
}

func createTestSnapshot() *domain.MarketSnapshot {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	buckets := []domain.Bucket{{Low: 100, High: 1000, Label: "A"}, {Low: 1000, High: 10000, Label: "B"}}
	return &domain.MarketSnapshot{
		Provider:  "binance",
		Symbol:    "BTCUSDT",
		FetchedAt: base,
		Ticker:    domain.Ticker{LastPrice: 42000, QuoteVolume24h: 1.2e9},
		Depth: domain.DepthProfile{
			Buckets: buckets,
			Bids:    domain.SideDepth{Totals: map[string]float64{"A": 100, "B": 2000}},
			Asks:    domain.SideDepth{Totals: map[string]float64{"A": 0, "B": 5000}, Excluded: 50},
		},
		Candles: []domain.CandleSample{
			{Time: base, Close: 100, QuoteVolume: 1},
			{Time: base.Add(24 * time.Hour), Close: 102, QuoteVolume: 2},
			{Time: base.Add(48 * time.Hour), Close: 104, QuoteVolume: 3},
		},
		HasDepth:   true,
		HasHistory: true,
	}
}

func setupRouter(t *testing.T, store *SnapshotStore, refresher ports.Refresher) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	return NewAPIHandler(store, refresher, nopLogger{}).SetupRoutes()
}

func doRequest(router *gin.Engine, method, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestAPI_NoSnapshotYet(t *testing.T) {
	router := setupRouter(t, NewSnapshotStore(), nil)

	for _, path := range []string{"/snapshot", "/depth", "/candles"} {
		t.Run(path, func(t *testing.T) {
			w := doRequest(router, http.MethodGet, path)
			assert.Equal(t, http.StatusServiceUnavailable, w.Code)
			body := decode(t, w)
			assert.Equal(t, "no snapshot available yet", body["error"])
			assert.NotEmpty(t, body["request_id"])
		})
	}
}

func TestAPI_LastCycleFailed(t *testing.T) {
	store := NewSnapshotStore()
	store.Present(context.Background(), createTestSnapshot())
	store.PresentFailure(context.Background(), fmt.Errorf("GetTicker failed: %w", ports.ErrSymbolNotFound))
	router := setupRouter(t, store, nil)

	w := doRequest(router, http.MethodGet, "/snapshot")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "last refresh failed: symbol not found", decode(t, w)["error"])

	w = doRequest(router, http.MethodGet, "/health")
	assert.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "DEGRADED", body["status"])
	assert.Equal(t, "symbol not found", body["reason"])

	// A later success clears the failure.
	store.Present(context.Background(), createTestSnapshot())
	w = doRequest(router, http.MethodGet, "/snapshot")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAPI_GetSnapshot(t *testing.T) {
	store := NewSnapshotStore()
	store.Present(context.Background(), createTestSnapshot())
	router := setupRouter(t, store, nil)

	w := doRequest(router, http.MethodGet, "/snapshot")
	require.Equal(t, http.StatusOK, w.Code)

	var snap domain.MarketSnapshot
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snap))
	assert.Equal(t, "BTCUSDT", snap.Symbol)
	assert.Equal(t, 42000.0, snap.Ticker.LastPrice)
	assert.Equal(t, 2000.0, snap.Depth.Bids.Totals["B"])
	assert.Equal(t, 50.0, snap.Depth.Asks.Excluded)
	assert.Len(t, snap.Candles, 3)
	assert.True(t, snap.HasHistory)
}

func TestAPI_GetDepth(t *testing.T) {
	store := NewSnapshotStore()
	store.Present(context.Background(), createTestSnapshot())
	router := setupRouter(t, store, nil)

	w := doRequest(router, http.MethodGet, "/depth")
	require.Equal(t, http.StatusOK, w.Code)

	body := decode(t, w)
	assert.Equal(t, true, body["has_depth"])
	depth := body["depth"].(map[string]interface{})
	bids := depth["bids"].(map[string]interface{})
	assert.Equal(t, map[string]interface{}{"A": 100.0, "B": 2000.0}, bids["totals"])
}

func TestAPI_GetCandles(t *testing.T) {
	store := NewSnapshotStore()
	store.Present(context.Background(), createTestSnapshot())
	router := setupRouter(t, store, nil)

	tests := []struct {
		name           string
		path           string
		expectedStatus int
		expectedMA     []interface{}
	}{
		{name: "plain", path: "/candles", expectedStatus: http.StatusOK},
		{name: "sma overlay", path: "/candles?ma=2", expectedStatus: http.StatusOK, expectedMA: []interface{}{nil, 101.0, 103.0}},
		{name: "ema overlay", path: "/candles?ma=2&ma_type=ema", expectedStatus: http.StatusOK, expectedMA: []interface{}{nil, 101.0, 103.0}},
		{name: "bad period", path: "/candles?ma=-1", expectedStatus: http.StatusBadRequest},
		{name: "bad type", path: "/candles?ma=2&ma_type=wma", expectedStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(router, http.MethodGet, tt.path)
			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.expectedStatus != http.StatusOK {
				return
			}
			body := decode(t, w)
			assert.Len(t, body["candles"], 3)
			if tt.expectedMA == nil {
				assert.NotContains(t, body, "moving_average")
				return
			}
			ma := body["moving_average"].(map[string]interface{})
			values := ma["values"].([]interface{})
			require.Len(t, values, len(tt.expectedMA))
			assert.Nil(t, values[0])
			for i := 1; i < len(values); i++ {
				assert.InDelta(t, tt.expectedMA[i], values[i], 1e-9)
			}
		})
	}
}

func TestAPI_Refresh(t *testing.T) {
	refresher := &MockRefresher{}
	refresher.On("RequestRefresh").Return().Once()
	router := setupRouter(t, NewSnapshotStore(), refresher)

	w := doRequest(router, http.MethodPost, "/refresh")
	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, "refresh requested", decode(t, w)["status"])
	refresher.AssertExpectations(t)
}

func TestAPI_RefreshNotWired(t *testing.T) {
	router := setupRouter(t, NewSnapshotStore(), nil)

	w := doRequest(router, http.MethodPost, "/refresh")
	assert.Equal(t, http.StatusNotImplemented, w.Code)
}

func TestAPI_HealthCheckStarting(t *testing.T) {
	router := setupRouter(t, NewSnapshotStore(), nil)

	w := doRequest(router, http.MethodGet, "/health")
	assert.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "STARTING", body["status"])
	assert.Equal(t, ServiceName, body["service"])
}

func TestAPI_RequestIDPropagation(t *testing.T) {
	router := setupRouter(t, NewSnapshotStore(), nil)

	req := httptest.NewRequest(http.MethodGet, "/snapshot", nil)
	req.Header.Set(RequestIDHeaderKey, "test-id-123")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, "test-id-123", w.Header().Get(RequestIDHeaderKey))
	assert.Equal(t, "test-id-123", decode(t, w)["request_id"])
}

func TestAPI_CORSPreflight(t *testing.T) {
	router := setupRouter(t, NewSnapshotStore(), nil)

	w := doRequest(router, http.MethodOptions, "/snapshot")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}
