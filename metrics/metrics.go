package metrics

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	tdigest "github.com/caio/go-tdigest/v4"
)

// Metrics tracks one supervisor's task flow: totals for tasks, failures,
// worker deaths, and restarts, a per-interval task rate, and a t-digest of
// round-trip latencies for quantile queries.
type Metrics struct {
	tasks     uint64
	failures  uint64
	deaths    uint64
	restarts  uint64
	tickTasks uint64
	taskRate  uint64 // tasks per second, updated every interval

	digest      *tdigest.TDigest
	digestMutex sync.Mutex // Mutex to protect the digest

	cancel context.CancelFunc
}

// New creates a Metrics instance and starts a goroutine that refreshes
// taskRate every tickerInterval.
func New(tickerInterval time.Duration) *Metrics {
	digest, err := tdigest.New()
	if err != nil {
		// Only reachable with invalid options; New uses the defaults.
		panic(err)
	}
	m := &Metrics{digest: digest}

	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel

	intervalNanoseconds := tickerInterval.Nanoseconds()

	go func() {
		ticker := time.NewTicker(tickerInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				ticked := atomic.SwapUint64(&m.tickTasks, 0)

				// Scale to tasks per second using integer math.
				perSecond := (ticked * 1_000_000_000) / uint64(intervalNanoseconds)
				atomic.StoreUint64(&m.taskRate, perSecond)

			case <-ctx.Done():
				return
			}
		}
	}()

	return m
}

// Stop gracefully stops the rate goroutine by canceling the context.
func (m *Metrics) Stop() {
	if m.cancel != nil {
		m.cancel()
	}
}

func (m *Metrics) AddTask() {
	atomic.AddUint64(&m.tasks, 1)
	atomic.AddUint64(&m.tickTasks, 1)
}

func (m *Metrics) AddFailure() {
	atomic.AddUint64(&m.failures, 1)
}

func (m *Metrics) AddDeath() {
	atomic.AddUint64(&m.deaths, 1)
}

func (m *Metrics) AddRestart() {
	atomic.AddUint64(&m.restarts, 1)
}

// ObserveLatency folds one task round trip into the latency digest.
func (m *Metrics) ObserveLatency(d time.Duration) {
	m.digestMutex.Lock()
	_ = m.digest.Add(d.Seconds())
	m.digestMutex.Unlock()
}

// LatencyQuantile reports the latency at quantile q (0 < q < 1), or zero
// when nothing has been observed yet.
func (m *Metrics) LatencyQuantile(q float64) time.Duration {
	m.digestMutex.Lock()
	defer m.digestMutex.Unlock()
	if m.digest.Count() == 0 {
		return 0
	}
	return time.Duration(m.digest.Quantile(q) * float64(time.Second))
}

func (m *Metrics) Tasks() uint64 {
	return atomic.LoadUint64(&m.tasks)
}

func (m *Metrics) Failures() uint64 {
	return atomic.LoadUint64(&m.failures)
}

func (m *Metrics) Deaths() uint64 {
	return atomic.LoadUint64(&m.deaths)
}

func (m *Metrics) Restarts() uint64 {
	return atomic.LoadUint64(&m.restarts)
}

// TaskRate reports tasks per second over the last completed interval.
func (m *Metrics) TaskRate() uint64 {
	return atomic.LoadUint64(&m.taskRate)
}
