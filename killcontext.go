package warden

import (
	"context"
)

// killContext embeds context.Context and adds a die channel. Cancellation of
// the parent context means "wind down"; the die channel means "abandon
// whatever you are doing right now". Inside a worker it fires when the
// supervisor's side of the task pipe disappears mid-task.
type killContext struct {
	context.Context
	die chan struct{}
}

// WithKill returns a copy of the parent context with an added die channel.
func WithKill(parent context.Context) (context.Context, func()) {
	ctx := &killContext{
		Context: parent,
		die:     make(chan struct{}),
	}
	return ctx, func() {
		close(ctx.die)
	}
}

// Die retrieves the die channel from the context. A context without one
// (including contexts derived from a kill context) yields a nil channel,
// which never becomes ready.
func Die(ctx context.Context) <-chan struct{} {
	if kc, ok := ctx.(*killContext); ok {
		return kc.die
	}
	return nil
}
