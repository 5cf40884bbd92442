package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"FraudGuard/internal/domain/models"
	"FraudGuard/internal/domain/repository"
	dsvc "FraudGuard/internal/domain/service"
	"FraudGuard/internal/service/history"
	"FraudGuard/internal/services/rules"
	"FraudGuard/internal/usecase"
	"FraudGuard/pkg/cache"
	"FraudGuard/pkg/config"
	applogger "FraudGuard/pkg/logger"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubLoader struct {
	txs []models.Transaction
	err error
}

func (s *stubLoader) Load(context.Context, string, int) ([]models.Transaction, error) {
	return s.txs, s.err
}

type stubStore struct{ stored int }

func (s *stubStore) Init(context.Context) error { return nil }
func (s *stubStore) Store(context.Context, *models.Transaction) error {
	s.stored++
	return nil
}
func (s *stubStore) StoreBatch(context.Context, []*models.Transaction) error { return nil }
func (s *stubStore) Load(context.Context, string, int) ([]models.Transaction, error) {
	return nil, nil
}
func (s *stubStore) LoadRange(context.Context, time.Time, time.Time, int) ([]models.Transaction, error) {
	return nil, nil
}
func (s *stubStore) Health(context.Context) error { return nil }
func (s *stubStore) Close() error                 { return nil }

type nopMetrics struct{}

func (nopMetrics) RecordAssessment(string, bool) {}
func (nopMetrics) RecordError(string)            {}
func (nopMetrics) RecordSignalDrop(string)       {}
func (nopMetrics) RecordLatency(string, float64) {}

var _ repository.Metrics = nopMetrics{}

func newTestHandler(t *testing.T, loader *stubLoader, cacheSvc cache.Service) (*ScoreEchoHandler, *stubStore) {
	t.Helper()
	logger, err := applogger.New(&applogger.Config{Level: "error", Format: "console", Output: "stderr"})
	require.NoError(t, err)

	cfg := config.DefaultScoring()
	hist := history.NewStore(loader, cfg.History.MaxEntries, cfg.History.TTL)
	factory := func(rc config.RulesConfig) dsvc.RuleEngine { return rules.FromConfig(rc) }
	scorer := usecase.NewScorer(hist, nil, factory, cfg, nopMetrics{}, logger)

	store := &stubStore{}
	proc := usecase.NewAssessmentProcessor(store, nil, hist, nil, nopMetrics{}, logger)
	return NewScoreEchoHandler(logger, scorer, proc, hist, cacheSvc, nil), store
}

func doRequest(h *ScoreEchoHandler, method, target, body string) *httptest.ResponseRecorder {
	e := echo.New()
	h.RegisterRoutes(e)
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestScoreEndpoint(t *testing.T) {
	h, store := newTestHandler(t, &stubLoader{}, nil)

	body := `{"id":"tx-1","user_id":"u1","amount":49.99,"currency":"USD","country":"FR","timestamp":"2025-06-15T14:00:00Z"}`
	rec := doRequest(h, http.MethodPost, "/api/score", body)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Status int                    `json:"status"`
		Data   *models.RiskAssessment `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, http.StatusOK, resp.Status)
	require.NotNil(t, resp.Data)
	assert.Equal(t, "tx-1", resp.Data.TransactionID)
	assert.Equal(t, models.RiskLow, resp.Data.RiskLevel)
	assert.Equal(t, 1, store.stored, "scored transaction must be persisted")
}

func TestScoreEndpointValidation(t *testing.T) {
	h, store := newTestHandler(t, &stubLoader{}, nil)

	rec := doRequest(h, http.MethodPost, "/api/score", `{"user_id":"u1","amount":-5}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Status int `json:"status"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, http.StatusBadRequest, resp.Status)
	assert.Zero(t, store.stored)
}

func TestScoreEndpointHistoryUnavailable(t *testing.T) {
	h, store := newTestHandler(t, &stubLoader{err: fmt.Errorf("clickhouse down")}, nil)

	body := `{"id":"tx-1","user_id":"u1","amount":49.99,"currency":"USD"}`
	rec := doRequest(h, http.MethodPost, "/api/score", body)

	var resp struct {
		Status int `json:"status"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, http.StatusServiceUnavailable, resp.Status)
	assert.Zero(t, store.stored)
}

func TestHistoryEndpoint(t *testing.T) {
	ts := time.Date(2025, 6, 15, 14, 0, 0, 0, time.UTC)
	h, _ := newTestHandler(t, &stubLoader{txs: []models.Transaction{
		{ID: "a", UserID: "u1", Amount: 10, Timestamp: ts.Add(-time.Hour)},
		{ID: "b", UserID: "u1", Amount: 20, Timestamp: ts},
	}}, nil)

	rec := doRequest(h, http.MethodGet, "/api/history?user_id=u1", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Status int `json:"status"`
		Data   struct {
			Rows  []models.Transaction `json:"rows"`
			Total int64                `json:"total"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, int64(2), resp.Data.Total)
	require.Len(t, resp.Data.Rows, 2)
	assert.Equal(t, "b", resp.Data.Rows[0].ID, "newest first")
}

func TestHistoryEndpointCachedLimits(t *testing.T) {
	ts := time.Date(2025, 6, 15, 14, 0, 0, 0, time.UTC)
	h, _ := newTestHandler(t, &stubLoader{txs: []models.Transaction{
		{ID: "a", UserID: "u1", Amount: 10, Timestamp: ts.Add(-2 * time.Hour)},
		{ID: "b", UserID: "u1", Amount: 20, Timestamp: ts.Add(-time.Hour)},
		{ID: "c", UserID: "u1", Amount: 30, Timestamp: ts},
	}}, cache.NewMemoryCache())

	rows := func(limit int) []models.Transaction {
		rec := doRequest(h, http.MethodGet, fmt.Sprintf("/api/history?user_id=u1&limit=%d", limit), "")
		require.Equal(t, http.StatusOK, rec.Code)
		var resp struct {
			Data struct {
				Rows []models.Transaction `json:"rows"`
			} `json:"data"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		return resp.Data.Rows
	}

	// A small first request must not pin the cached window to its limit.
	assert.Len(t, rows(1), 1)
	wide := rows(100)
	require.Len(t, wide, 3)
	assert.Equal(t, "c", wide[0].ID, "newest first")
	assert.Len(t, rows(2), 2)
}

func TestHealthzEndpoint(t *testing.T) {
	h, _ := newTestHandler(t, &stubLoader{}, nil)
	rec := doRequest(h, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}
