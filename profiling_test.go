//go:build profile

package warden

import (
	"context"
	"log"
	"os"
	"runtime/pprof"
	"testing"
	"time"
)

func startCPUProfiling(t *testing.T) func() {
	cpuFile, err := os.Create("cpu.prof")
	if err != nil {
		log.Fatal("could not create CPU profile: ", err)
	}
	if err := pprof.StartCPUProfile(cpuFile); err != nil {
		log.Fatal("could not start CPU profile: ", err)
	}
	return func() {
		pprof.StopCPUProfile()
		cpuFile.Close()
	}
}

func TestProfileSustainedThroughput(t *testing.T) {
	stop := startCPUProfiling(t)
	defer stop()

	s, err := NewSupervisor[string, string]("echo")
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	const total = 10_000
	done := 0
	start := time.Now()
	for done < total {
		if err := s.Send("profile"); err != nil {
			t.Fatal(err)
		}
		if _, ok, err := s.AwaitResult(context.Background(), 10*time.Second); err != nil || !ok {
			t.Fatalf("round trip %d failed: ok=%v err=%v", done, ok, err)
		}
		done++
	}
	elapsed := time.Since(start)
	t.Logf("%d round trips in %v (%.0f/s), p99=%v",
		total, elapsed, float64(total)/elapsed.Seconds(), s.Metrics().LatencyQuantile(0.99))
}
