package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func waitForCondition(t *testing.T, condition func() bool, timeout time.Duration) {
	t.Helper()
	start := time.Now()
	for {
		if condition() {
			return
		}
		if time.Since(start) > timeout {
			t.Fatalf("Timeout waiting for condition")
		}
		time.Sleep(100 * time.Microsecond)
	}
}

func TestMetrics_TaskRate(t *testing.T) {
	m := New(200 * time.Microsecond) // Set faster interval for testing
	defer m.Stop()

	m.AddTask()
	m.AddTask()

	// Wait until taskRate is updated
	waitForCondition(t, func() bool {
		return m.TaskRate() > 0
	}, 50*time.Millisecond)

	assert.Equal(t, uint64(2), m.Tasks())
}

func TestMetrics_Counters(t *testing.T) {
	m := New(time.Second)
	defer m.Stop()

	m.AddTask()
	m.AddFailure()
	m.AddDeath()
	m.AddRestart()
	m.AddRestart()

	assert.Equal(t, uint64(1), m.Tasks())
	assert.Equal(t, uint64(1), m.Failures())
	assert.Equal(t, uint64(1), m.Deaths())
	assert.Equal(t, uint64(2), m.Restarts())
}

func TestMetrics_LatencyQuantile(t *testing.T) {
	m := New(time.Second)
	defer m.Stop()

	// No observations yet
	assert.Equal(t, time.Duration(0), m.LatencyQuantile(0.5))

	for i := 1; i <= 100; i++ {
		m.ObserveLatency(time.Duration(i) * time.Millisecond)
	}

	median := m.LatencyQuantile(0.5)
	assert.InDelta(t, float64(50*time.Millisecond), float64(median), float64(5*time.Millisecond))

	p99 := m.LatencyQuantile(0.99)
	assert.GreaterOrEqual(t, p99, median)
}

func TestMetrics_Stop(t *testing.T) {
	m := New(200 * time.Microsecond)

	m.AddTask()
	waitForCondition(t, func() bool {
		return m.TaskRate() > 0
	}, 50*time.Millisecond)

	// Stop the metrics system
	m.Stop()
	time.Sleep(time.Millisecond)

	// After stopping, further operations should still be safe
	m.AddTask()
	m.ObserveLatency(time.Millisecond)
	assert.Equal(t, uint64(2), m.Tasks())
}
