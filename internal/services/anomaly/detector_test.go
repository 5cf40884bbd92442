package anomaly

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"FraudGuard/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func histTx(amount float64, at time.Time) models.Transaction {
	return models.Transaction{UserID: "user-1", Amount: amount, Timestamp: at}
}

func TestFallbackScoreZeroAtMean(t *testing.T) {
	d := NewDetector(nil)
	ts := time.Date(2025, 6, 15, 14, 0, 0, 0, time.UTC)
	history := models.HistoryWindow{
		histTx(90, ts.Add(-time.Hour)),
		histTx(100, ts.Add(-2*time.Hour)),
		histTx(110, ts.Add(-3*time.Hour)),
	}

	sig, err := d.Score(context.Background(), &models.Transaction{Amount: 100, Timestamp: ts}, history)
	require.NoError(t, err)
	assert.Equal(t, models.SourceFallback, sig.Source)
	assert.Zero(t, sig.Score, "amount equal to the mean has z-score zero")
	assert.False(t, sig.IsAnomaly)
}

func TestFallbackScoreBoundsAndAnomalyFlag(t *testing.T) {
	d := NewDetector(nil)
	ts := time.Date(2025, 6, 15, 14, 0, 0, 0, time.UTC)
	history := models.HistoryWindow{
		histTx(100, ts.Add(-time.Hour)),
		histTx(102, ts.Add(-2*time.Hour)),
		histTx(98, ts.Add(-3*time.Hour)),
		histTx(100, ts.Add(-4*time.Hour)),
	}

	sig, err := d.Score(context.Background(), &models.Transaction{Amount: 10000, Timestamp: ts}, history)
	require.NoError(t, err)
	assert.Equal(t, 100.0, sig.Score, "extreme outliers clamp at 100")
	assert.True(t, sig.IsAnomaly)
}

func TestFallbackWithEmptyHistory(t *testing.T) {
	d := NewDetector(nil)
	sig, err := d.Score(context.Background(), &models.Transaction{Amount: 5000}, nil)
	require.NoError(t, err)
	assert.Equal(t, models.SourceFallback, sig.Source)
	assert.Zero(t, sig.Score, "no baseline means no z-score")
}

func TestFallbackZeroStdHistory(t *testing.T) {
	d := NewDetector(nil)
	ts := time.Date(2025, 6, 15, 14, 0, 0, 0, time.UTC)
	history := models.HistoryWindow{
		histTx(50, ts.Add(-time.Hour)),
		histTx(50, ts.Add(-2*time.Hour)),
	}
	sig, err := d.Score(context.Background(), &models.Transaction{Amount: 9999, Timestamp: ts}, history)
	require.NoError(t, err)
	assert.Zero(t, sig.Score, "identical historical amounts have zero spread")
}

func TestForestFitRequiresMinimumSamples(t *testing.T) {
	f := NewForest()
	err := f.Fit([][]float64{{1, 2}, {3, 4}}, ForestOptions{})
	assert.Error(t, err)
	assert.False(t, f.Trained())
}

func TestForestSeparatesOutliers(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	vectors := make([][]float64, 0, 512)
	for i := 0; i < 512; i++ {
		vectors = append(vectors, []float64{
			50 + rng.NormFloat64()*5,
			10 + rng.NormFloat64()*2,
		})
	}

	f := NewForest()
	require.NoError(t, f.Fit(vectors, ForestOptions{Trees: 50, SampleSize: 128, Seed: 7}))
	require.True(t, f.Trained())

	inlierScore, _, err := f.Score([]float64{50, 10})
	require.NoError(t, err)
	outlierScore, outlierFlag, err := f.Score([]float64{500, 100})
	require.NoError(t, err)

	assert.Greater(t, outlierScore, inlierScore)
	assert.True(t, outlierFlag, "a point far outside the training cloud must flag")
}

func TestTrainedDetectorUsesModelSource(t *testing.T) {
	d := NewDetector(NewForest())
	ts := time.Date(2025, 6, 15, 14, 0, 0, 0, time.UTC)

	txs := make([]models.Transaction, 0, 64)
	for i := 0; i < 64; i++ {
		txs = append(txs, histTx(40+float64(i%10), ts.Add(-time.Duration(i)*time.Hour)))
	}
	require.NoError(t, d.Fit(txs, nil, ForestOptions{Trees: 20, SampleSize: 32, Seed: 1}))

	sig, err := d.Score(context.Background(), &models.Transaction{Amount: 45, Timestamp: ts}, nil)
	require.NoError(t, err)
	assert.Equal(t, models.SourceModel, sig.Source)
	assert.GreaterOrEqual(t, sig.Score, 0.0)
	assert.LessOrEqual(t, sig.Score, 100.0)
}
