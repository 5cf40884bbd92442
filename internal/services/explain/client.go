package explain

import (
	"context"
	"fmt"
	"time"

	"FraudGuard/internal/domain/models"
	xhttp "FraudGuard/pkg/http"
)

// HTTPExplainer renders a human-readable rationale for a finished
// assessment by calling an external explanation service. It consumes
// scorer output only and runs off the hot path; failures are logged by the
// caller and never affect scoring.
type HTTPExplainer struct {
	baseURL string
	client  *xhttp.Client
}

func NewHTTPExplainer(baseURL string, timeout time.Duration) *HTTPExplainer {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HTTPExplainer{
		baseURL: baseURL,
		client:  xhttp.NewClient(xhttp.WithTimeout(timeout)),
	}
}

type explainResp struct {
	Explanation string `json:"explanation"`
}

// Explain posts the assessment and returns the rendered rationale.
func (e *HTTPExplainer) Explain(ctx context.Context, a *models.RiskAssessment) (string, error) {
	var er explainResp
	err := e.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method:  xhttp.MethodPost,
		URL:     e.baseURL + "/v1/explain",
		Headers: map[string]string{"Content-Type": "application/json"},
		Body:    a,
	}, &er)
	if err != nil {
		return "", fmt.Errorf("explain: %w", err)
	}
	return er.Explanation, nil
}
