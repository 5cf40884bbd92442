package rules

import (
	"context"
	"sync"
	"testing"
	"time"

	"FraudGuard/pkg/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaultEngine() *Engine {
	return FromConfig(config.DefaultScoring().Rules)
}

func TestEngineEvaluatesEveryRule(t *testing.T) {
	e := defaultEngine()
	results, total := e.Evaluate(context.Background(), tx(50, baseTime), nil)

	require.Len(t, results, 6)
	names := make(map[string]bool, len(results))
	for _, r := range results {
		names[r.RuleName] = true
	}
	for _, n := range []string{NameVelocity, NameHighAmount, NameGeolocation, NameUnusualHour, NameNewDevice, NameDenylist} {
		assert.True(t, names[n], "missing result for %s", n)
	}
	assert.GreaterOrEqual(t, total, 0.0)
	assert.LessOrEqual(t, total, 100.0)
}

func TestEngineTotalIsOrderIndependent(t *testing.T) {
	cfg := config.DefaultScoring().Rules
	cfg.Denylist.Countries = []string{"KP"}

	forward := NewEngine(
		NewVelocityRule(cfg.Velocity.Window, cfg.Velocity.MaxTransactions, cfg.Velocity.Weight),
		NewUnusualHourRule(cfg.UnusualHour.Hours, cfg.UnusualHour.Weight),
		NewNewDeviceRule(cfg.NewDevice.MinAmount, cfg.NewDevice.Weight),
		NewDenylistRule(cfg.Denylist.Countries, cfg.Denylist.Weight),
	)
	reversed := NewEngine(
		NewDenylistRule(cfg.Denylist.Countries, cfg.Denylist.Weight),
		NewNewDeviceRule(cfg.NewDevice.MinAmount, cfg.NewDevice.Weight),
		NewUnusualHourRule(cfg.UnusualHour.Hours, cfg.UnusualHour.Weight),
		NewVelocityRule(cfg.Velocity.Window, cfg.Velocity.MaxTransactions, cfg.Velocity.Weight),
	)

	cur := tx(900, time.Date(2025, 6, 15, 3, 0, 0, 0, time.UTC))
	cur.Country = "KP"
	cur.DeviceID = "dev-new"

	_, totalA := forward.Evaluate(context.Background(), cur, nil)
	_, totalB := reversed.Evaluate(context.Background(), cur, nil)
	assert.Equal(t, totalA, totalB)
}

func TestEngineTotalCappedAtHundred(t *testing.T) {
	// Denylisted country at 3 AM from a new device: raw sum exceeds 100.
	cfg := config.DefaultScoring().Rules
	cfg.Denylist.Countries = []string{"KP"}
	e := FromConfig(cfg)

	cur := tx(900, time.Date(2025, 6, 15, 3, 0, 0, 0, time.UTC))
	cur.Country = "KP"
	cur.DeviceID = "dev-new"

	_, total := e.Evaluate(context.Background(), cur, nil)
	assert.Equal(t, 100.0, total)
}

func TestEngineConcurrentEvaluateAndDeregister(t *testing.T) {
	e := defaultEngine()
	cur := tx(50, baseTime)

	var wg sync.WaitGroup
	stop := make(chan struct{})
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				results, total := e.Evaluate(context.Background(), cur, nil)
				assert.LessOrEqual(t, total, 100.0)
				for _, r := range results {
					assert.NotEmpty(t, r.RuleName)
				}
			}
		}()
	}

	for i := 0; i < 200; i++ {
		e.Deregister(NameDenylist)
		e.Register(NewDenylistRule([]string{"KP"}, 100))
		e.Deregister(NameVelocity)
		e.Register(NewVelocityRule(10*time.Minute, 5, 30))
	}
	close(stop)
	wg.Wait()
}

func TestEngineRegisterDeregister(t *testing.T) {
	e := NewEngine(NewUnusualHourRule([]int{3}, 10))

	e.Register(NewDenylistRule([]string{"KP"}, 100))
	results, _ := e.Evaluate(context.Background(), tx(50, baseTime), nil)
	assert.Len(t, results, 2)

	assert.True(t, e.Deregister(NameDenylist))
	assert.False(t, e.Deregister(NameDenylist))
	results, _ = e.Evaluate(context.Background(), tx(50, baseTime), nil)
	assert.Len(t, results, 1)
}
