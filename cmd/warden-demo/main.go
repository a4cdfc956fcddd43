// Command warden-demo walks through the worker lifecycle: a normal round
// trip, an interrupted task that kills the worker without hanging the
// caller, and the transparent restart that follows.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/Channel-3-Eugene/warden"
)

type echoProcessor struct{}

func (echoProcessor) Start(ctx context.Context) error {
	slog.Info("echo worker ready", "pid", os.Getpid())
	return nil
}

func (echoProcessor) Process(_ context.Context, task string) (string, error) {
	if strings.HasPrefix(task, "interrupt") {
		return "", warden.ErrInterrupted
	}
	return "echo: " + task, nil
}

func init() {
	warden.Register[string, string]("demo-echo", echoProcessor{})
}

func main() {
	warden.Interceptor()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	s, err := warden.NewSupervisor[string, string]("demo-echo", warden.WithLogger(logger))
	if err != nil {
		logger.Error("create supervisor", "error", err)
		os.Exit(1)
	}
	defer s.Close()

	ctx := context.Background()

	result, ok, err := s.SendAndAwait(ctx, "hello", 5*time.Second)
	if err != nil || !ok {
		logger.Error("round trip failed", "ok", ok, "error", err)
		os.Exit(1)
	}
	fmt.Println(result)
	firstPID := s.Handle().PID

	// Interrupt mid-task: the worker dies, the await comes back empty.
	_, ok, err = s.SendAndAwait(ctx, "interrupt me", time.Second)
	if err != nil {
		logger.Error("await after interrupt", "error", err)
		os.Exit(1)
	}
	fmt.Printf("interrupted task answered: %v (worker alive: %v)\n", ok, s.Alive())

	// The next task gets a fresh process without any ceremony.
	result, ok, err = s.SendAndAwait(ctx, "hello again", 5*time.Second)
	if err != nil || !ok {
		logger.Error("round trip after restart failed", "ok", ok, "error", err)
		os.Exit(1)
	}
	fmt.Println(result)
	fmt.Printf("restarted: pid %d -> pid %d (generation %d)\n",
		firstPID, s.Handle().PID, s.Handle().Generation)

	m := s.Metrics()
	fmt.Printf("tasks=%d deaths=%d restarts=%d p50=%v\n",
		m.Tasks(), m.Deaths(), m.Restarts(), m.LatencyQuantile(0.5))
}
