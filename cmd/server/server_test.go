package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZanzyTHEbar/churn-intelligence/internal/cache"
	"github.com/ZanzyTHEbar/churn-intelligence/internal/database"
	"github.com/ZanzyTHEbar/churn-intelligence/internal/model"
	"github.com/ZanzyTHEbar/churn-intelligence/internal/monitoring"
	"github.com/ZanzyTHEbar/churn-intelligence/internal/ratelimit"
	"github.com/ZanzyTHEbar/churn-intelligence/internal/recommend"
	"github.com/ZanzyTHEbar/churn-intelligence/internal/risk"
	"github.com/ZanzyTHEbar/churn-intelligence/internal/schema"
	"github.com/ZanzyTHEbar/churn-intelligence/internal/scoring"
)

// testRouter builds the production router over an in-memory model and a
// throwaway database, mirroring main's wiring.
func testRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	featureSchema, err := schema.New([]schema.Feature{
		{Name: "tenureMonths", Kind: schema.KindNumeric, Mean: 32, Scale: 24},
		{Name: "contractType", Kind: schema.KindCategorical, Levels: []string{"month-to-month", "one-year", "two-year"}},
	})
	require.NoError(t, err)

	churnModel, err := model.New(
		[]string{
			"tenureMonths",
			"contractType=month-to-month",
			"contractType=one-year",
			"contractType=two-year",
		},
		map[string]float64{
			"tenureMonths":                -0.8,
			"contractType=month-to-month": 1.2,
			"contractType=one-year":       -0.2,
			"contractType=two-year":       -0.9,
		}, 0)
	require.NoError(t, err)

	pipeline, err := scoring.NewPipeline(churnModel, featureSchema, risk.DefaultThresholds(), 2, recommend.DefaultMapper())
	require.NoError(t, err)

	db, err := database.NewDB(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	redisClient, err := ratelimit.NewRedisClient("", "", 0)
	require.NoError(t, err)

	metrics := monitoring.NewMetrics()

	r, err := setupRouter(serverDeps{
		pipeline:    pipeline,
		history:     database.NewHistoryService(database.NewRepository(db)),
		db:          db,
		metrics:     metrics,
		logger:      monitoring.NewLogger(),
		cache:       cache.NewCache(time.Minute),
		rateLimiter: ratelimit.NewRateLimiter(redisClient, ratelimit.DefaultConfig(), metrics),
		corsOrigins: []string{"http://localhost:3000"},
	})
	require.NoError(t, err)

	return r
}

func postJSON(r *gin.Engine, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func getJSON(r *gin.Engine, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestHealthEndpoint(t *testing.T) {
	r := testRouter(t)

	w := getJSON(r, "/health")
	require.Equal(t, http.StatusOK, w.Code)

	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "ok", response["status"])
	assert.Contains(t, response, "model")
}

func TestScoreEndpoint_ValidRequest(t *testing.T) {
	r := testRouter(t)

	w := postJSON(r, "/score", `{"customer":{"tenureMonths":8,"contractType":"month-to-month"}}`)
	require.Equal(t, http.StatusOK, w.Code)

	var response struct {
		Probability float64 `json:"probability"`
		Tier        string  `json:"tier"`
		Drivers     []struct {
			Feature      string  `json:"feature"`
			Contribution float64 `json:"contribution"`
		} `json:"drivers"`
		Recommendations []string `json:"recommendations"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))

	assert.InDelta(t, 0.8808, response.Probability, 0.0001)
	assert.Equal(t, "High", response.Tier)
	require.Len(t, response.Drivers, 2)
	assert.Equal(t, "contractType=month-to-month", response.Drivers[0].Feature)
	assert.InDelta(t, 1.2, response.Drivers[0].Contribution, 1e-9)
	assert.NotNil(t, response.Recommendations)
}

func TestScoreEndpoint_ErrorMapping(t *testing.T) {
	r := testRouter(t)

	tests := []struct {
		name       string
		body       string
		wantStatus int
	}{
		{
			name:       "missing feature maps to 422",
			body:       `{"customer":{"contractType":"one-year"}}`,
			wantStatus: http.StatusUnprocessableEntity,
		},
		{
			name:       "unknown category maps to 422",
			body:       `{"customer":{"tenureMonths":8,"contractType":"lifetime"}}`,
			wantStatus: http.StatusUnprocessableEntity,
		},
		{
			name:       "missing customer object maps to 400",
			body:       `{}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "malformed json maps to 400",
			body:       `{"customer":`,
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := postJSON(r, "/score", tt.body)
			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}
}

func TestScoreEndpoint_RequiresJSONContentType(t *testing.T) {
	r := testRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/score", bytes.NewBufferString(`{"customer":{}}`))
	req.Header.Set("Content-Type", "text/plain")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnsupportedMediaType, w.Code)
}

func TestScoreEndpoint_IdenticalRequestsServeCachedResponse(t *testing.T) {
	r := testRouter(t)

	body := `{"customer":{"tenureMonths":8,"contractType":"month-to-month"}}`

	first := postJSON(r, "/score", body)
	require.Equal(t, http.StatusOK, first.Code)

	second := postJSON(r, "/score", body)
	require.Equal(t, http.StatusOK, second.Code)

	assert.Equal(t, first.Body.String(), second.Body.String())
}

func TestBatchEndpoint_PerItemIsolation(t *testing.T) {
	r := testRouter(t)

	body := `{"customers":[
		{"tenureMonths":8,"contractType":"month-to-month"},
		{"contractType":"one-year"},
		{"tenureMonths":68,"contractType":"two-year"}
	]}`

	w := postJSON(r, "/score/batch", body)
	require.Equal(t, http.StatusOK, w.Code)

	var response struct {
		Results []map[string]interface{} `json:"results"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	require.Len(t, response.Results, 3)

	// first and third customers score despite the second one's missing feature
	assert.Contains(t, response.Results[0], "result")
	assert.NotContains(t, response.Results[0], "error")

	assert.Contains(t, response.Results[1], "error")
	assert.NotContains(t, response.Results[1], "result")

	assert.Contains(t, response.Results[2], "result")
	assert.NotContains(t, response.Results[2], "error")

	assert.Equal(t, float64(0), response.Results[0]["index"])
	assert.Equal(t, float64(1), response.Results[1]["index"])
	assert.Equal(t, float64(2), response.Results[2]["index"])
}

func TestBatchEndpoint_EmptyArray(t *testing.T) {
	r := testRouter(t)

	w := postJSON(r, "/score/batch", `{"customers":[]}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSchemaEndpoint(t *testing.T) {
	r := testRouter(t)

	w := getJSON(r, "/schema")
	require.Equal(t, http.StatusOK, w.Code)

	var response struct {
		Features   []map[string]interface{} `json:"features"`
		Columns    []string                 `json:"columns"`
		Thresholds map[string]float64       `json:"thresholds"`
		TopDrivers int                      `json:"top_drivers"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))

	assert.Len(t, response.Features, 2)
	assert.Equal(t, []string{
		"tenureMonths",
		"contractType=month-to-month",
		"contractType=one-year",
		"contractType=two-year",
	}, response.Columns)
	assert.Equal(t, risk.DefaultLowThreshold, response.Thresholds["low"])
	assert.Equal(t, risk.DefaultHighThreshold, response.Thresholds["high"])
	assert.Equal(t, 2, response.TopDrivers)
}

func TestHistorySummaryEndpoint(t *testing.T) {
	r := testRouter(t)

	t.Run("known period", func(t *testing.T) {
		w := getJSON(r, "/history/summary/daily")
		require.Equal(t, http.StatusOK, w.Code)

		var response map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Equal(t, "daily", response["period"])
	})

	t.Run("unknown period is a client error", func(t *testing.T) {
		w := getJSON(r, "/history/summary/hourly")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestMetricsEndpoint(t *testing.T) {
	r := testRouter(t)

	postJSON(r, "/score", `{"customer":{"tenureMonths":8,"contractType":"month-to-month"}}`)

	w := getJSON(r, "/metrics")
	require.Equal(t, http.StatusOK, w.Code)

	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, float64(1), response["score_count"])
	assert.Contains(t, response, "scores_by_tier")
}

func TestRateLimitHeaders(t *testing.T) {
	r := testRouter(t)

	w := getJSON(r, "/health")
	require.Equal(t, http.StatusOK, w.Code)

	assert.NotEmpty(t, w.Header().Get("X-RateLimit-Limit"))
	assert.NotEmpty(t, w.Header().Get("X-RateLimit-Remaining"))
}
