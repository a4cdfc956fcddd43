package warden

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
)

// workerEnvVar marks a process as a worker and names its entry point. The
// supervisor re-executes the current binary with this variable set; the
// child never reaches the host program's own logic because Interceptor
// hijacks it first.
const workerEnvVar = "WARDEN_WORKER"

type runnerFunc func(ctx context.Context, in io.Reader, out io.Writer) error

var (
	registryMu sync.RWMutex
	registry   = map[string]runnerFunc{}
)

// Register binds a worker entry-point name to a Processor. It must run
// before Interceptor, which in practice means from init or at the top of
// main, in every binary that spawns or hosts this worker. Registering the
// same name twice panics.
func Register[T, R any](name string, p Processor[T, R]) {
	if name == "" {
		panic("warden: Register with empty name")
	}

	registryMu.Lock()
	defer registryMu.Unlock()
	if _, dup := registry[name]; dup {
		panic(fmt.Sprintf("warden: worker %q registered twice", name))
	}
	registry[name] = func(ctx context.Context, in io.Reader, out io.Writer) error {
		return runLoop[T, R](ctx, p, in, out)
	}
}

func lookupRunner(name string) (runnerFunc, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	r, ok := registry[name]
	return r, ok
}

// Interceptor turns the current process into a worker when it was spawned
// as one, and is a no-op otherwise. Call it first thing in main (or in
// TestMain), after all Register calls. When intercepted, the process runs
// its worker loop over stdin/stdout and exits; control never returns.
//
// SIGINT and SIGTERM cancel the worker context, which makes the loop exit
// without answering the in-flight task; the supervisor on the other side of
// the pipe observes the death instead of a result.
func Interceptor() {
	name := os.Getenv(workerEnvVar)
	if name == "" {
		return
	}

	run, ok := lookupRunner(name)
	if !ok {
		fmt.Fprintf(os.Stderr, "warden: unknown worker entry point %q\n", name)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Stdin, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "warden: worker %q: %v\n", name, err)
		os.Exit(1)
	}
	os.Exit(0)
}
