package anomaly

import (
	"context"
	"fmt"
	"time"

	"FraudGuard/internal/domain/models"
	xhttp "FraudGuard/pkg/http"
)

// HTTPSource scores transactions against an externally hosted anomaly
// service. It carries its own timeout and is fused as one more signal,
// never a hard dependency: the scorer drops it on error or timeout.
type HTTPSource struct {
	baseURL string
	client  *xhttp.Client
}

// NewHTTPSource builds the external source with its own request timeout.
func NewHTTPSource(baseURL string, timeout time.Duration) *HTTPSource {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &HTTPSource{
		baseURL: baseURL,
		client:  xhttp.NewClient(xhttp.WithTimeout(timeout)),
	}
}

func (s *HTTPSource) Name() string { return string(models.SourceExternal) }

type externalReq struct {
	Transaction *models.Transaction  `json:"transaction"`
	History     []models.Transaction `json:"history"`
}

type externalResp struct {
	Score      float64 `json:"score"`
	IsAnomaly  bool    `json:"is_anomaly"`
	Confidence float64 `json:"confidence"`
}

// Score posts the transaction and its window to the external service.
func (s *HTTPSource) Score(ctx context.Context, tx *models.Transaction, history models.HistoryWindow) (models.AnomalySignal, error) {
	var er externalResp
	err := s.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method:  xhttp.MethodPost,
		URL:     s.baseURL + "/v1/anomaly/score",
		Headers: map[string]string{"Content-Type": "application/json"},
		Body:    externalReq{Transaction: tx, History: history},
	}, &er)
	if err != nil {
		return models.AnomalySignal{}, fmt.Errorf("external anomaly: %w", err)
	}
	if er.Score < 0 || er.Score > 100 {
		return models.AnomalySignal{}, fmt.Errorf("external anomaly: score %.2f out of range", er.Score)
	}
	return models.AnomalySignal{
		Score:      er.Score,
		IsAnomaly:  er.IsAnomaly,
		Source:     models.SourceExternal,
		Confidence: er.Confidence,
	}, nil
}
