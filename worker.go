package warden

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// runLoop is the worker process's main loop: decode a task envelope, run the
// processor, answer with exactly one result or error envelope. It exits on
// the shutdown sentinel, on inbound-pipe EOF (the supervisor is gone), on an
// interruption signal, or when the processor asks for interruption. In the
// interruption cases the in-flight task is abandoned without an answer.
func runLoop[T, R any](ctx context.Context, p Processor[T, R], in io.Reader, out io.Writer) error {
	kctx, kill := WithKill(ctx)

	if err := p.Start(kctx); err != nil {
		return fmt.Errorf("processor start: %w", err)
	}

	tasks := make(chan envelope)
	go pullTasks(in, tasks, kill)

	w := newEnvelopeWriter(out)
	for {
		select {
		case <-ctx.Done():
			// Interrupt or termination signal. Exit without answering.
			return ErrInterrupted
		case env, ok := <-tasks:
			if !ok {
				// Sentinel or supervisor gone.
				return nil
			}
			reply, abort := runTask[T, R](kctx, p, env)
			if abort {
				return ErrInterrupted
			}
			if err := w.write(reply); err != nil {
				return fmt.Errorf("write result: %w", err)
			}
		}
	}
}

// pullTasks feeds inbound envelopes to the loop. The shutdown sentinel
// closes the channel after everything queued ahead of it has been handed
// over, so pipelined tasks drain in order before an orderly exit. EOF or a
// decode failure additionally trips the kill switch: with the supervisor
// gone there is nobody left to answer, so in-flight work should stop too.
func pullTasks(in io.Reader, tasks chan<- envelope, kill func()) {
	dec := json.NewDecoder(in)
	for {
		var env envelope
		if err := dec.Decode(&env); err != nil {
			kill()
			close(tasks)
			return
		}
		if env.Kind == kindShutdown {
			close(tasks)
			return
		}
		tasks <- env
	}
}

// runTask executes one task with panic recovery. Task failures become error
// envelopes; an ErrInterrupted outcome (returned or panicked) reports
// abort=true and produces no envelope at all.
func runTask[T, R any](ctx context.Context, p Processor[T, R], env envelope) (envelope, bool) {
	type outcome struct {
		result R
		err    error
	}

	done := make(chan outcome, 1)
	go func() {
		var o outcome
		defer func() {
			if r := recover(); r != nil {
				if err, ok := r.(error); ok && errors.Is(err, ErrInterrupted) {
					o.err = err
				} else {
					o.err = fmt.Errorf("task panic: %v", r)
				}
			}
			done <- o
		}()

		var task T
		if err := json.Unmarshal(env.Payload, &task); err != nil {
			o.err = fmt.Errorf("unmarshal task: %w", err)
			return
		}
		o.result, o.err = p.Process(ctx, task)
	}()

	select {
	case <-ctx.Done():
		return envelope{}, true
	case <-Die(ctx):
		return envelope{}, true
	case o := <-done:
		if o.err != nil {
			if errors.Is(o.err, ErrInterrupted) {
				return envelope{}, true
			}
			return newErrorEnvelope(env.ID, o.err), false
		}
		reply, err := newResultEnvelope(env.ID, o.result)
		if err != nil {
			return newErrorEnvelope(env.ID, err), false
		}
		return reply, false
	}
}
