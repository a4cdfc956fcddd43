package warden

import (
	"encoding/json"
	"sync"
	"time"
)

// taskChannel is the supervisor's end of one worker's queue pair: an
// envelope writer over the child's stdin and a pump goroutine draining the
// child's stdout into results. The pump closes results when the pipe is
// exhausted, so "results is closed" means "every answer this incarnation
// will ever give has been delivered".
type taskChannel struct {
	out     *envelopeWriter
	results chan envelope

	mu      sync.Mutex
	pending []pendingTask
}

type pendingTask struct {
	id     string
	sentAt time.Time
}

func newTaskChannel(p *workerProcess, buffer int) *taskChannel {
	tc := &taskChannel{
		out:     newEnvelopeWriter(p.stdin),
		results: make(chan envelope, buffer),
	}
	go tc.pump(p)
	return tc
}

// pump decodes the outbound pipe in order, preserving the worker's FIFO
// answer sequence. It ends on EOF, which the pipe setup guarantees happens
// only after the child exited and everything it wrote was read.
func (tc *taskChannel) pump(p *workerProcess) {
	dec := json.NewDecoder(p.stdout)
	for {
		var env envelope
		if err := dec.Decode(&env); err != nil {
			close(tc.results)
			p.stdout.Close()
			return
		}
		tc.results <- env
	}
}

// sendTask enqueues one task envelope and records it for latency tracking.
func (tc *taskChannel) sendTask(env envelope) error {
	tc.mu.Lock()
	tc.pending = append(tc.pending, pendingTask{id: env.ID, sentAt: time.Now()})
	tc.mu.Unlock()

	if err := tc.out.write(env); err != nil {
		tc.dropPending(env.ID)
		return err
	}
	return nil
}

// sendShutdown pushes the sentinel. Errors are irrelevant: a write failure
// means the worker is already gone, which is what the sentinel wanted.
func (tc *taskChannel) sendShutdown() {
	_ = tc.out.write(envelope{Kind: kindShutdown})
}

// took pops the pending entry matching a delivered answer and reports how
// long the round trip was. Answers arrive in submission order, so this walks
// from the front; an unknown id (a restart raced the answer) reports zero.
func (tc *taskChannel) took(id string) (time.Duration, bool) {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	for i, pt := range tc.pending {
		if pt.id == id {
			tc.pending = append(tc.pending[:i], tc.pending[i+1:]...)
			return time.Since(pt.sentAt), true
		}
	}
	return 0, false
}

func (tc *taskChannel) dropPending(id string) {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	for i, pt := range tc.pending {
		if pt.id == id {
			tc.pending = append(tc.pending[:i], tc.pending[i+1:]...)
			return
		}
	}
}
