package httpapi

import (
	"errors"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"binanceTracker/internal/domain"
	"binanceTracker/internal/ports"
	"binanceTracker/internal/series"
)

var errNoSnapshot = errors.New("no snapshot available yet")

// GetSnapshot handles GET /snapshot requests
func (h *APIHandler) GetSnapshot(c *gin.Context) {
	snapshot, ok := h.current(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, snapshot)
}

// GetDepth handles GET /depth requests
func (h *APIHandler) GetDepth(c *gin.Context) {
	snapshot, ok := h.current(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"symbol":     snapshot.Symbol,
		"fetched_at": snapshot.FetchedAt,
		"has_depth":  snapshot.HasDepth,
		"depth":      snapshot.Depth,
	})
}

// GetCandles handles GET /candles requests. Optional ?ma=<period>&ma_type=SMA|EMA
// adds a moving average aligned with the candles (null before the first full window).
func (h *APIHandler) GetCandles(c *gin.Context) {
	snapshot, ok := h.current(c)
	if !ok {
		return
	}

	resp := gin.H{
		"symbol":      snapshot.Symbol,
		"fetched_at":  snapshot.FetchedAt,
		"has_history": snapshot.HasHistory,
		"candles":     snapshot.Candles,
	}

	if ma := c.Query("ma"); ma != "" {
		period, err := strconv.Atoi(ma)
		if err != nil || period <= 0 {
			h.handleError(c, ports.ErrInvalidRequest, http.StatusBadRequest, "ma must be a positive integer")
			return
		}
		maType, err := series.ParseMovingAverageType(c.DefaultQuery("ma_type", string(series.SimpleMovingAverage)))
		if err != nil {
			h.handleError(c, err, http.StatusBadRequest, err.Error())
			return
		}
		values, err := series.MovingAverage(snapshot.Candles, period, maType)
		if err != nil {
			h.handleError(c, err, http.StatusBadRequest, err.Error())
			return
		}
		resp["moving_average"] = gin.H{
			"period": period,
			"type":   maType,
			"values": nullable(values),
		}
	}

	c.JSON(http.StatusOK, resp)
}

// Refresh handles POST /refresh requests
func (h *APIHandler) Refresh(c *gin.Context) {
	if h.refresher == nil {
		h.handleError(c, errors.New("refresh not wired"), http.StatusNotImplemented, "refresh is not available")
		return
	}
	h.refresher.RequestRefresh()
	c.JSON(http.StatusAccepted, gin.H{
		"status":     "refresh requested",
		"request_id": requestID(c),
	})
}

// HealthCheck handles GET /health requests
func (h *APIHandler) HealthCheck(c *gin.Context) {
	snapshot, lastErr := h.store.Latest()
	status := "OK"
	body := gin.H{
		"service":   ServiceName,
		"version":   ServiceVersion,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	switch {
	case lastErr != nil:
		status = "DEGRADED"
		body["reason"] = ports.Describe(lastErr)
	case snapshot == nil:
		status = "STARTING"
	default:
		body["last_update"] = h.store.UpdatedAt().Format(time.RFC3339)
	}
	body["status"] = status
	c.JSON(http.StatusOK, body)
}

// current returns the snapshot to serve, or writes a 503 and returns false.
func (h *APIHandler) current(c *gin.Context) (*domain.MarketSnapshot, bool) {
	snapshot, lastErr := h.store.Latest()
	if lastErr != nil {
		h.handleError(c, lastErr, http.StatusServiceUnavailable, "last refresh failed: "+ports.Describe(lastErr))
		return nil, false
	}
	if snapshot == nil {
		h.handleError(c, errNoSnapshot, http.StatusServiceUnavailable, errNoSnapshot.Error())
		return nil, false
	}
	return snapshot, true
}

// handleError logs the error and sends appropriate HTTP response
func (h *APIHandler) handleError(c *gin.Context, err error, statusCode int, userMessage string) {
	id := requestID(c)

	h.logger.Warn(c.Request.Context(), "API error", map[string]interface{}{
		"request_id":  id,
		"method":      c.Request.Method,
		"path":        c.Request.URL.Path,
		"error":       err.Error(),
		"status_code": statusCode,
	})

	c.JSON(statusCode, gin.H{
		"error":      userMessage,
		"request_id": id,
	})
}

func nullable(values []float64) []*float64 {
	out := make([]*float64, len(values))
	for i := range values {
		if math.IsNaN(values[i]) || math.IsInf(values[i], 0) {
			continue
		}
		v := values[i]
		out[i] = &v
	}
	return out
}
