package warden

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"
)

// envelopeKind tags what an envelope on the task pipe means.
type envelopeKind string

const (
	// kindTask wraps a caller task on the inbound pipe.
	kindTask envelopeKind = "task"
	// kindShutdown is the sentinel: stop pulling tasks and exit.
	kindShutdown envelopeKind = "shutdown"
	// kindResult wraps a processor result on the outbound pipe.
	kindResult envelopeKind = "result"
	// kindError wraps a recoverable task failure on the outbound pipe.
	kindError envelopeKind = "error"
)

// envelope is the unit of exchange on both halves of the task channel,
// one JSON object per line. Payloads stay opaque to the supervisor; only
// the worker loop decodes them into concrete task and result types.
type envelope struct {
	Kind    envelopeKind    `json:"kind"`
	ID      string          `json:"id,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
	Error   string          `json:"error,omitempty"`
}

func newTaskEnvelope(id string, payload any) (envelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return envelope{}, fmt.Errorf("marshal task: %w", err)
	}
	return envelope{Kind: kindTask, ID: id, Payload: raw}, nil
}

func newResultEnvelope(id string, payload any) (envelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return envelope{}, fmt.Errorf("marshal result: %w", err)
	}
	return envelope{Kind: kindResult, ID: id, Payload: raw}, nil
}

func newErrorEnvelope(id string, err error) envelope {
	return envelope{Kind: kindError, ID: id, Error: err.Error()}
}

// envelopeWriter serializes envelope writes onto one side of the pipe.
// Both the supervisor (tasks, sentinel) and the worker loop (results) write
// from a single goroutine in the common case, but Cancel and Close can race
// Send, so writes take a lock.
type envelopeWriter struct {
	mu  sync.Mutex
	enc *json.Encoder
}

func newEnvelopeWriter(w io.Writer) *envelopeWriter {
	return &envelopeWriter{enc: json.NewEncoder(w)}
}

func (w *envelopeWriter) write(env envelope) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.enc.Encode(env)
}
