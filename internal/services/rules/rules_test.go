package rules

import (
	"fmt"
	"testing"
	"time"

	"FraudGuard/internal/domain/models"

	"github.com/stretchr/testify/assert"
)

var baseTime = time.Date(2025, 6, 15, 14, 0, 0, 0, time.UTC)

func tx(amount float64, at time.Time) *models.Transaction {
	return &models.Transaction{
		ID:        fmt.Sprintf("tx-%d", at.UnixNano()),
		UserID:    "user-1",
		Amount:    amount,
		Currency:  "USD",
		Timestamp: at,
	}
}

// window builds a newest-first history from oldest-first arguments.
func window(txs ...*models.Transaction) models.HistoryWindow {
	w := make(models.HistoryWindow, 0, len(txs))
	for i := len(txs) - 1; i >= 0; i-- {
		w = append(w, *txs[i])
	}
	return w
}

func TestVelocityRule(t *testing.T) {
	r := NewVelocityRule(10*time.Minute, 5, 30)
	now := baseTime

	t.Run("five recent transactions trigger", func(t *testing.T) {
		var prior []*models.Transaction
		for i := 1; i <= 5; i++ {
			prior = append(prior, tx(20, now.Add(-time.Duration(i)*time.Minute)))
		}
		res := r.Evaluate(tx(20, now), window(prior...))
		assert.True(t, res.Triggered)
		assert.Equal(t, 30.0, res.Score)
	})

	t.Run("four recent transactions pass", func(t *testing.T) {
		var prior []*models.Transaction
		for i := 1; i <= 4; i++ {
			prior = append(prior, tx(20, now.Add(-time.Duration(i)*time.Minute)))
		}
		res := r.Evaluate(tx(20, now), window(prior...))
		assert.False(t, res.Triggered)
		assert.Zero(t, res.Score)
	})

	t.Run("transactions outside the window do not count", func(t *testing.T) {
		var prior []*models.Transaction
		for i := 1; i <= 5; i++ {
			prior = append(prior, tx(20, now.Add(-time.Duration(i)*time.Hour)))
		}
		res := r.Evaluate(tx(20, now), window(prior...))
		assert.False(t, res.Triggered)
	})
}

func TestHighAmountRule(t *testing.T) {
	r := NewHighAmountRule(3.0, 25)

	t.Run("empty history never triggers", func(t *testing.T) {
		res := r.Evaluate(tx(1000000, baseTime), nil)
		assert.False(t, res.Triggered)
		assert.Zero(t, res.Score)
	})

	t.Run("amount above multiplier triggers", func(t *testing.T) {
		h := window(
			tx(100, baseTime.Add(-3*time.Hour)),
			tx(100, baseTime.Add(-2*time.Hour)),
			tx(100, baseTime.Add(-time.Hour)),
		)
		res := r.Evaluate(tx(301, baseTime), h)
		assert.True(t, res.Triggered)
		assert.Equal(t, 25.0, res.Score)
	})

	t.Run("amount at exactly the multiplier passes", func(t *testing.T) {
		h := window(tx(100, baseTime.Add(-2*time.Hour)), tx(100, baseTime.Add(-time.Hour)))
		res := r.Evaluate(tx(300, baseTime), h)
		assert.False(t, res.Triggered)
	})
}

func TestGeolocationRule(t *testing.T) {
	r := NewGeolocationRule(60*time.Minute, 500, 35)

	paris := func(at time.Time) *models.Transaction {
		p := tx(50, at)
		p.Latitude, p.Longitude = 48.8566, 2.3522
		return p
	}
	newYork := func(at time.Time) *models.Transaction {
		p := tx(50, at)
		p.Latitude, p.Longitude = 40.7128, -74.0060
		return p
	}

	t.Run("impossible jump six minutes apart triggers", func(t *testing.T) {
		h := window(paris(baseTime.Add(-6 * time.Minute)))
		res := r.Evaluate(newYork(baseTime), h)
		assert.True(t, res.Triggered)
		assert.Equal(t, 35.0, res.Score)
	})

	t.Run("same jump two hours apart passes", func(t *testing.T) {
		h := window(paris(baseTime.Add(-2 * time.Hour)))
		res := r.Evaluate(newYork(baseTime), h)
		assert.False(t, res.Triggered)
	})

	t.Run("short hop passes", func(t *testing.T) {
		near := paris(baseTime)
		near.Latitude += 0.01
		h := window(paris(baseTime.Add(-6 * time.Minute)))
		res := r.Evaluate(near, h)
		assert.False(t, res.Triggered)
	})

	t.Run("missing coordinates pass", func(t *testing.T) {
		h := window(paris(baseTime.Add(-6 * time.Minute)))
		res := r.Evaluate(tx(50, baseTime), h)
		assert.False(t, res.Triggered)
	})

	t.Run("previous transaction without coordinates passes", func(t *testing.T) {
		h := window(tx(50, baseTime.Add(-6*time.Minute)))
		res := r.Evaluate(newYork(baseTime), h)
		assert.False(t, res.Triggered)
	})
}

func TestUnusualHourRule(t *testing.T) {
	r := NewUnusualHourRule([]int{0, 1, 2, 3, 4, 5}, 10)

	tests := []struct {
		hour      int
		triggered bool
	}{
		{0, true},
		{3, true},
		{5, true},
		{6, false},
		{14, false},
		{23, false},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("hour %02d", tt.hour), func(t *testing.T) {
			at := time.Date(2025, 6, 15, tt.hour, 30, 0, 0, time.UTC)
			res := r.Evaluate(tx(50, at), nil)
			assert.Equal(t, tt.triggered, res.Triggered)
		})
	}
}

func TestNewDeviceRule(t *testing.T) {
	r := NewNewDeviceRule(500, 20)

	known := tx(50, baseTime.Add(-time.Hour))
	known.DeviceID = "dev-a"

	t.Run("unseen device above minimum triggers", func(t *testing.T) {
		cur := tx(600, baseTime)
		cur.DeviceID = "dev-b"
		res := r.Evaluate(cur, window(known))
		assert.True(t, res.Triggered)
	})

	t.Run("unseen device below minimum passes", func(t *testing.T) {
		cur := tx(100, baseTime)
		cur.DeviceID = "dev-b"
		res := r.Evaluate(cur, window(known))
		assert.False(t, res.Triggered)
	})

	t.Run("known device passes", func(t *testing.T) {
		cur := tx(600, baseTime)
		cur.DeviceID = "dev-a"
		res := r.Evaluate(cur, window(known))
		assert.False(t, res.Triggered)
	})

	t.Run("missing device id passes", func(t *testing.T) {
		res := r.Evaluate(tx(600, baseTime), window(known))
		assert.False(t, res.Triggered)
	})
}

func TestDenylistRule(t *testing.T) {
	r := NewDenylistRule([]string{"kp", " IR "}, 100)

	t.Run("denylisted country triggers", func(t *testing.T) {
		cur := tx(10, baseTime)
		cur.Country = "KP"
		res := r.Evaluate(cur, nil)
		assert.True(t, res.Triggered)
		assert.Equal(t, 100.0, res.Score)
	})

	t.Run("lookup is case insensitive", func(t *testing.T) {
		cur := tx(10, baseTime)
		cur.Country = "ir"
		res := r.Evaluate(cur, nil)
		assert.True(t, res.Triggered)
	})

	t.Run("other countries pass", func(t *testing.T) {
		cur := tx(10, baseTime)
		cur.Country = "FR"
		res := r.Evaluate(cur, nil)
		assert.False(t, res.Triggered)
	})

	t.Run("missing country passes", func(t *testing.T) {
		res := r.Evaluate(tx(10, baseTime), nil)
		assert.False(t, res.Triggered)
	})
}
