package api

import (
	"errors"
	"net/http"
	"time"

	models "FraudGuard/internal/domain/models"
	"FraudGuard/internal/service/history"
	"FraudGuard/internal/service/ratelimit"
	"FraudGuard/internal/usecase"
	"FraudGuard/pkg/cache"
	xhttp "FraudGuard/pkg/http"
	xlogger "FraudGuard/pkg/logger"

	"github.com/labstack/echo/v4"
)

// ScoreEchoHandler implements Echo-based HTTP handlers following Clean Architecture.
type ScoreEchoHandler struct {
	logger  *xlogger.Logger
	scorer  *usecase.Scorer
	proc    *usecase.AssessmentProcessor
	hist    *history.Store
	limiter *ratelimit.Limiter
	cache   cache.Service
	health  func() error
}

// NewScoreEchoHandler creates the scoring API handler. cacheSvc and health
// may be nil.
func NewScoreEchoHandler(
	logger *xlogger.Logger,
	scorer *usecase.Scorer,
	proc *usecase.AssessmentProcessor,
	hist *history.Store,
	cacheSvc cache.Service,
	health func() error,
) *ScoreEchoHandler {
	return &ScoreEchoHandler{
		logger:  logger,
		scorer:  scorer,
		proc:    proc,
		hist:    hist,
		limiter: ratelimit.New(),
		cache:   cacheSvc,
		health:  health,
	}
}

func (h *ScoreEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.POST("/score", h.Score)
	g.GET("/history", h.History)
	g.PUT("/config/scoring", h.ReloadScoring)
	e.GET("/healthz", h.Healthz)
}

// Score evaluates one transaction synchronously, persists it, and returns
// the assessment.
func (h *ScoreEchoHandler) Score(c echo.Context) error {
	if !h.limiter.Allow(c.RealIP(), 100, 100) {
		return xhttp.DataResponse(c, http.StatusTooManyRequests, "rate limit exceeded")
	}

	req := &models.ScoreRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	tx := toTransaction(req)
	a, err := h.scorer.Score(c.Request().Context(), tx)
	if err != nil {
		if errors.Is(err, history.ErrUnavailable) {
			h.logger.Error("history lookup failed", xlogger.String("user_id", tx.UserID), xlogger.Error(err))
			return xhttp.AppErrorResponse(c, xhttp.NewAppError("ERR_HISTORY_UNAVAILABLE", "",
				"transaction history unavailable", http.StatusServiceUnavailable).WithError(err))
		}
		h.logger.Error("score usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}

	if err := h.proc.Process(c.Request().Context(), tx, a); err != nil {
		h.logger.Error("assessment process error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.InternalError("failed to record transaction").WithError(err))
	}
	return xhttp.SuccessResponse(c, a)
}

// History returns a user's recent transaction window. Responses are cached
// briefly; a fresh transaction invalidates through the history store, not
// this cache, so the TTL is kept short.
func (h *ScoreEchoHandler) History(c echo.Context) error {
	req := &models.HistoryRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	// The full window is cached regardless of limit so requests with
	// different limits share one entry; truncation happens per request.
	cacheKey := "history:" + req.UserID
	var w models.HistoryWindow
	hit := false
	if h.cache != nil {
		if err := h.cache.Get(c.Request().Context(), cacheKey, &w); err == nil {
			hit = true
		}
	}
	if !hit {
		var err error
		w, err = h.hist.Get(c.Request().Context(), req.UserID)
		if err != nil {
			h.logger.Error("history usecase error", xlogger.Error(err))
			return xhttp.AppErrorResponse(c, xhttp.NewAppError("ERR_HISTORY_UNAVAILABLE", "",
				"transaction history unavailable", http.StatusServiceUnavailable).WithError(err))
		}
		if h.cache != nil {
			_ = h.cache.Set(c.Request().Context(), cacheKey, w, 15*time.Second)
		}
	}

	if len(w) > req.Limit {
		w = w[:req.Limit]
	}
	return xhttp.ListResponse(c, w, int64(len(w)))
}

// ReloadScoring validates and swaps the scoring configuration at runtime.
func (h *ScoreEchoHandler) ReloadScoring(c echo.Context) error {
	cfg := h.scorer.Config()
	if err := c.Bind(&cfg); err != nil {
		return xhttp.BadRequestResponse(c, err.Error())
	}
	if err := h.scorer.UpdateScoring(cfg); err != nil {
		return xhttp.BadRequestResponse(c, err.Error())
	}
	return xhttp.SuccessResponse(c, cfg)
}

// Healthz reports readiness of the backing store.
func (h *ScoreEchoHandler) Healthz(c echo.Context) error {
	if h.health != nil {
		if err := h.health(); err != nil {
			return xhttp.DataResponse(c, http.StatusServiceUnavailable, err.Error())
		}
	}
	return xhttp.SuccessResponse(c, "ok")
}

func toTransaction(req *models.ScoreRequest) *models.Transaction {
	return &models.Transaction{
		ID:        req.ID,
		UserID:    req.UserID,
		Amount:    req.Amount,
		Currency:  req.Currency,
		Merchant:  req.Merchant,
		Category:  req.Category,
		Country:   req.Country,
		Latitude:  req.Latitude,
		Longitude: req.Longitude,
		DeviceID:  req.DeviceID,
		Timestamp: xhttp.ParseTimeDefault(req.Timestamp, time.Now().UTC()),
		IPAddress: req.IPAddress,
		UserAgent: req.UserAgent,
	}
}
