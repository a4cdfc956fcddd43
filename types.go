package warden

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/time/rate"
)

// Processor is the worker-side task handler. Implementations run inside the
// spawned worker process, never in the supervisor's process.
//
// Start is called exactly once, before the first task, and is the place for
// heavyweight one-time setup (native plugin registries, model loading). A
// Start error aborts the worker before it pulls any task.
//
// Process receives the kill-aware worker context: implementations that want
// prompt hard-abort behavior should watch Die(ctx) or ctx.Done() during long
// computations. Returning an error wrapping ErrInterrupted exits the worker
// loop without producing a result for the task.
type Processor[T, R any] interface {
	Start(ctx context.Context) error
	Process(ctx context.Context, task T) (R, error)
}

// RestartPolicy controls what Send does when the worker process is dead.
type RestartPolicy int

const (
	// RestartOnSend transparently spawns a replacement worker before
	// enqueueing. A result lost with the previous incarnation is dropped
	// silently; restarts remain visible through Events and Metrics.
	RestartOnSend RestartPolicy = iota
	// RestartManual makes Send fail with ErrWorkerDead instead; the caller
	// must Cancel (or create a new supervisor) to get a fresh worker.
	RestartManual
)

// Status describes where a supervisor's current worker lineage is in its
// lifecycle.
type Status int

const (
	StatusNotStarted Status = iota
	StatusRunning
	StatusDead
	StatusClosing
	StatusClosed
)

func (s Status) String() string {
	switch s {
	case StatusNotStarted:
		return "not-started"
	case StatusRunning:
		return "running"
	case StatusDead:
		return "dead"
	case StatusClosing:
		return "closing"
	case StatusClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Config carries supervisor tunables. Zero values are replaced by defaults
// in NewSupervisor; use Options to override.
type Config struct {
	Policy RestartPolicy

	// CloseGrace is how long Close waits for the worker to exit voluntarily
	// after the shutdown sentinel before force-killing it.
	CloseGrace time.Duration
	// CancelGrace is how long Cancel waits after SIGTERM before SIGKILL.
	CancelGrace time.Duration

	// ResultBuffer bounds how many undelivered results the outbound pump
	// holds before it stops draining the worker's pipe.
	ResultBuffer int
	// EventBuffer bounds the Events channel; events beyond it are dropped.
	EventBuffer int

	// RestartRate and RestartBurst feed the token bucket that throttles
	// automatic restarts so a crash-looping worker surfaces as
	// ErrRestartThrottled instead of spinning silently.
	RestartRate  rate.Limit
	RestartBurst int

	// MetricsInterval is the sampling tick for throughput metrics.
	MetricsInterval time.Duration

	Logger *slog.Logger
}

// Option mutates a Config before the supervisor starts.
type Option func(*Config)

func WithRestartPolicy(p RestartPolicy) Option {
	return func(c *Config) { c.Policy = p }
}

func WithCloseGrace(d time.Duration) Option {
	return func(c *Config) { c.CloseGrace = d }
}

func WithCancelGrace(d time.Duration) Option {
	return func(c *Config) { c.CancelGrace = d }
}

func WithResultBuffer(n int) Option {
	return func(c *Config) { c.ResultBuffer = n }
}

func WithEventBuffer(n int) Option {
	return func(c *Config) { c.EventBuffer = n }
}

func WithRestartLimit(r rate.Limit, burst int) Option {
	return func(c *Config) {
		c.RestartRate = r
		c.RestartBurst = burst
	}
}

func WithMetricsInterval(d time.Duration) Option {
	return func(c *Config) { c.MetricsInterval = d }
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Config) { c.Logger = l }
}

func defaultConfig() Config {
	return Config{
		Policy:          RestartOnSend,
		CloseGrace:      time.Second,
		CancelGrace:     time.Second,
		ResultBuffer:    64,
		EventBuffer:     16,
		RestartRate:     rate.Every(time.Second),
		RestartBurst:    5,
		MetricsInterval: time.Second,
	}
}
