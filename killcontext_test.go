package warden

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestKillContext_WithKill(t *testing.T) {
	parentCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ctx, kill := WithKill(parentCtx)

	// Test if die channel is present
	select {
	case <-Die(ctx):
		t.Error("die channel should not be closed initially")
	default:
		// Expected case
	}

	// Test if die channel is closed after calling kill()
	kill()
	select {
	case <-Die(ctx):
		// Expected case
	default:
		t.Error("die channel should be closed after calling kill")
	}
}

func TestKillContext_DieWithoutKillContext(t *testing.T) {
	// A plain context has no die channel; receiving must block forever
	// rather than fire spuriously.
	assert.Nil(t, Die(context.Background()))

	select {
	case <-Die(context.Background()):
		t.Error("die channel of a plain context must never be ready")
	case <-time.After(10 * time.Millisecond):
		// Expected case
	}
}

func TestKillContext_IntegrationWithKill(t *testing.T) {
	parentCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ctx, _ := WithKill(parentCtx)

	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			t.Log("Received Done signal")
		case <-Die(ctx):
			t.Log("Received Die signal")
		}
		close(done)
	}()

	// Test receiving Done signal
	cancel()
	select {
	case <-done:
		// Expected case
	case <-time.After(1 * time.Second):
		t.Error("Expected to receive Done signal")
	}

	// Reset and test receiving Die signal
	done = make(chan struct{})
	ctx, kill := WithKill(context.Background())
	go func() {
		select {
		case <-ctx.Done():
			t.Log("Received Done signal")
		case <-Die(ctx):
			t.Log("Received Die signal")
		}
		close(done)
	}()

	kill()
	select {
	case <-done:
		// Expected case
	case <-time.After(1 * time.Second):
		t.Error("Expected to receive Die signal")
	}
}
