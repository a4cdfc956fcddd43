package warden

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/Channel-3-Eugene/warden/metrics"
)

// Supervisor owns exactly one worker process at a time and the task channel
// connecting to it. Tasks go out strictly one incarnation at a time; a dead
// worker is observed, reported as an absent result, and replaced according
// to the restart policy. AwaitResult never blocks past a result, the
// worker's death, the caller's deadline, or context cancellation.
//
// T and R must be JSON-serializable: they cross a process boundary by copy,
// never by reference.
type Supervisor[T, R any] struct {
	entry   string
	lineage uuid.UUID
	cfg     Config
	logger  *slog.Logger
	limiter *rate.Limiter
	met     *metrics.Metrics
	events  chan *Event

	mu         sync.Mutex
	w          *worker
	handle     WorkerHandle
	generation uint64
	closing    bool
	closed     bool
}

// NewSupervisor spawns a worker process bound to a registered entry point
// and returns its supervisor. The entry point must have been registered in
// this binary: the worker is this same executable re-run, so anything else
// could never start.
func NewSupervisor[T, R any](entry string, opts ...Option) (*Supervisor[T, R], error) {
	if _, ok := lookupRunner(entry); !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownWorker, entry)
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Supervisor[T, R]{
		entry:   entry,
		lineage: uuid.New(),
		cfg:     cfg,
		logger:  logger.With("worker", entry),
		limiter: rate.NewLimiter(cfg.RestartRate, cfg.RestartBurst),
		met:     metrics.New(cfg.MetricsInterval),
		events:  make(chan *Event, cfg.EventBuffer),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.spawnLocked("spawned"); err != nil {
		s.met.Stop()
		return nil, err
	}
	return s, nil
}

// spawnLocked replaces the current worker with a fresh incarnation. The old
// worker, if any, must already be dead or terminated.
func (s *Supervisor[T, R]) spawnLocked(reason string) error {
	if s.w != nil {
		s.w.proc.release()
	}

	s.generation++
	w, err := spawnWorker(s.entry, s.lineage, s.generation, s.cfg.ResultBuffer)
	if err != nil {
		s.w = nil
		return fmt.Errorf("spawn worker %q: %w", s.entry, err)
	}
	s.w = w
	s.handle = w.handle

	s.logger.Info("worker "+reason, "pid", w.handle.PID, "generation", w.handle.Generation)
	s.emitLocked(NewEvent(EventLevelInfo, fmt.Errorf("worker %s", reason), w.handle))
	return nil
}

// Send enqueues one task on the worker's inbound queue. When the worker is
// dead it is first replaced under RestartOnSend, or the call fails with
// ErrWorkerDead under RestartManual. Tasks may be pipelined without awaiting;
// they queue in order, but a crash silently discards everything still queued.
func (s *Supervisor[T, R]) Send(task T) error {
	env, err := newTaskEnvelope(uuid.NewString(), task)
	if err != nil {
		return err
	}

	s.mu.Lock()
	if s.closed || s.closing {
		s.mu.Unlock()
		return ErrSupervisorClosed
	}
	if s.w == nil || !s.w.proc.alive() {
		if err := s.restartLocked(); err != nil {
			s.mu.Unlock()
			return err
		}
	}
	w := s.w
	s.mu.Unlock()

	// The pipe write happens outside the lock so a slow or wedged worker
	// cannot block AwaitResult and Close behind Send.
	if err := w.ch.sendTask(env); err != nil {
		return fmt.Errorf("send task: %w", err)
	}
	s.met.AddTask()
	return nil
}

func (s *Supervisor[T, R]) restartLocked() error {
	if s.cfg.Policy == RestartManual {
		return ErrWorkerDead
	}
	if !s.limiter.Allow() {
		s.logger.Error("worker restart throttled", "generation", s.generation)
		s.emitLocked(NewEvent(EventLevelCritical, ErrRestartThrottled, s.handle))
		return ErrRestartThrottled
	}
	s.met.AddRestart()
	return s.spawnLocked("restarted")
}

// AwaitResult waits for the next answer from the current worker. It returns
// (result, true, nil) for a completed task, (zero, true, *TaskError) for a
// task that failed inside the worker, and (zero, false, nil) when the worker
// died or the timeout elapsed first; death and timeout are deliberately
// indistinguishable here. A timeout <= 0 means no deadline. The only error
// paths besides TaskError are supervisor-side: a closed supervisor or a
// cancelled ctx.
func (s *Supervisor[T, R]) AwaitResult(ctx context.Context, timeout time.Duration) (R, bool, error) {
	var zero R

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return zero, false, ErrSupervisorClosed
	}
	w := s.w
	s.mu.Unlock()

	if w == nil {
		return zero, false, nil
	}

	var deadline <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		deadline = timer.C
	}

	select {
	case env, ok := <-w.ch.results:
		if !ok {
			s.noteDeath(w)
			return zero, false, nil
		}
		return s.deliver(w, env)
	case <-deadline:
		return zero, false, nil
	case <-ctx.Done():
		return zero, false, ctx.Err()
	}
}

func (s *Supervisor[T, R]) deliver(w *worker, env envelope) (R, bool, error) {
	var zero R
	took, tracked := w.ch.took(env.ID)

	if env.Kind == kindError {
		s.met.AddFailure()
		s.logger.Warn("task failed in worker", "task", env.ID, "error", env.Error)
		return zero, true, &TaskError{Message: env.Error}
	}

	var result R
	if err := json.Unmarshal(env.Payload, &result); err != nil {
		s.met.AddFailure()
		return zero, true, fmt.Errorf("unmarshal result: %w", err)
	}
	if tracked {
		s.met.ObserveLatency(took)
	}
	return result, true, nil
}

// noteDeath records a worker incarnation's death exactly once.
func (s *Supervisor[T, R]) noteDeath(w *worker) {
	if !w.deathSeen.CompareAndSwap(false, true) {
		return
	}
	s.met.AddDeath()
	s.logger.Warn("worker died", "pid", w.handle.PID, "generation", w.handle.Generation)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.emitLocked(NewEvent(EventLevelWarning, ErrWorkerDead, w.handle))
}

// SendAndAwait is Send followed by AwaitResult.
func (s *Supervisor[T, R]) SendAndAwait(ctx context.Context, task T, timeout time.Duration) (R, bool, error) {
	var zero R
	if err := s.Send(task); err != nil {
		return zero, false, err
	}
	return s.AwaitResult(ctx, timeout)
}

// Cancel abandons all in-flight and queued work by force-terminating the
// worker process and spawning a fresh incarnation. The new handle is always
// bound to a different PID. Cancel is an explicit caller action and bypasses
// the restart throttle.
func (s *Supervisor[T, R]) Cancel() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.closing {
		return ErrSupervisorClosed
	}

	if s.w != nil {
		s.w.proc.terminate(s.cfg.CancelGrace)
		s.emitLocked(NewEvent(EventLevelWarning, fmt.Errorf("worker cancelled"), s.w.handle))
	}
	s.met.AddRestart()
	return s.spawnLocked("respawned after cancel")
}

// Close shuts the worker down: it pushes the shutdown sentinel, grants the
// process CloseGrace to exit voluntarily, then force-kills it. Closing an
// already-dead worker or an already-closed supervisor is a no-op.
func (s *Supervisor[T, R]) Close() error {
	s.mu.Lock()
	if s.closed || s.closing {
		s.mu.Unlock()
		return nil
	}
	s.closing = true
	w := s.w
	s.mu.Unlock()

	if w != nil {
		if w.proc.alive() {
			w.ch.sendShutdown()
			if !w.proc.awaitExit(s.cfg.CloseGrace) {
				s.logger.Warn("worker ignored shutdown, killing", "pid", w.handle.PID)
				w.proc.kill()
			}
		}
		w.proc.release()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.emitLocked(NewEvent(EventLevelInfo, fmt.Errorf("supervisor closed"), s.handle))
	s.closing = false
	s.closed = true
	s.met.Stop()
	s.logger.Info("supervisor closed")
	return nil
}

// Handle returns the record of the current worker incarnation. Handles are
// immutable values; a restart or cancel yields a new one with the same
// Lineage, a higher Generation, and a different PID.
func (s *Supervisor[T, R]) Handle() WorkerHandle {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.handle
}

// Alive reports whether the current worker process is running.
func (s *Supervisor[T, R]) Alive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w != nil && s.w.proc.alive()
}

// Status reports where the current incarnation is in its lifecycle.
func (s *Supervisor[T, R]) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case s.closed:
		return StatusClosed
	case s.closing:
		return StatusClosing
	case s.w == nil:
		return StatusDead
	case s.w.proc.alive():
		return StatusRunning
	default:
		return StatusDead
	}
}

// Events exposes the lifecycle event stream. The channel is never closed;
// events beyond the buffer are dropped rather than blocking operations.
func (s *Supervisor[T, R]) Events() <-chan *Event {
	return s.events
}

// Metrics exposes task throughput, failure, and latency counters.
func (s *Supervisor[T, R]) Metrics() *metrics.Metrics {
	return s.met
}

func (s *Supervisor[T, R]) emitLocked(ev *Event) {
	select {
	case s.events <- ev:
	default:
		s.logger.Debug("event buffer full, dropping", "event", ev.String())
	}
}
