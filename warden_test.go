package warden

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The scenario this library exists for: a long-running extraction job in a
// worker gets interrupted, the caller is told "no answer" quickly instead of
// hanging, and the next task transparently gets a fresh process.
func TestInterruptedWorkerLifecycle(t *testing.T) {
	s, err := NewSupervisor[string, string]("flaky")
	require.NoError(t, err)
	defer s.Close()

	// Plain task first.
	result, ok, err := s.SendAndAwait(context.Background(), "hello", 5*time.Second)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "success: hello", result)

	originalPID := s.Handle().PID

	// The worker hits its Ctrl+C analogue mid-task. The await must come
	// back empty within the timeout, never hang.
	require.NoError(t, s.Send("interrupt"))
	start := time.Now()
	_, ok, err = s.AwaitResult(context.Background(), time.Second)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Less(t, time.Since(start), time.Second)

	// The process itself is gone shortly after.
	waitFor(t, 500*time.Millisecond, func() bool { return !s.Alive() })

	// The very next send succeeds on a distinguishable fresh process.
	result, ok, err = s.SendAndAwait(context.Background(), "again", 5*time.Second)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "success: again", result)
	assert.NotEqual(t, originalPID, s.Handle().PID)
}

func TestRepeatedInterrupts(t *testing.T) {
	s, err := NewSupervisor[string, string]("flaky")
	require.NoError(t, err)
	defer s.Close()

	for i := 0; i < 3; i++ {
		require.NoError(t, s.Send("interrupt"))
		_, ok, err := s.AwaitResult(context.Background(), time.Second)
		require.NoError(t, err)
		require.False(t, ok)
		waitFor(t, time.Second, func() bool { return !s.Alive() })
	}

	// Still recoverable after a string of deaths within the restart budget.
	result, ok, err := s.SendAndAwait(context.Background(), "back", 5*time.Second)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "success: back", result)
}

func TestProcessLifecycle(t *testing.T) {
	t.Run("terminate reaps a live worker", func(t *testing.T) {
		p, err := spawnProcess("echo")
		require.NoError(t, err)
		assert.True(t, p.alive())
		assert.Greater(t, p.pid(), 0)

		p.terminate(time.Second)
		assert.False(t, p.alive())
		p.release()
	})

	t.Run("terminate on a dead worker is a no-op", func(t *testing.T) {
		p, err := spawnProcess("echo")
		require.NoError(t, err)

		p.kill()
		assert.False(t, p.alive())
		p.terminate(time.Second)
		p.release()
	})

	t.Run("closing stdin is an implicit sentinel", func(t *testing.T) {
		p, err := spawnProcess("echo")
		require.NoError(t, err)

		p.release()
		assert.True(t, p.awaitExit(2*time.Second))
	})
}
