package warden

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// WorkerHandle is the immutable public record of one worker incarnation.
// A supervisor replaces (never mutates) its handle on every restart: the
// Lineage survives across restarts, the Generation and PID do not.
type WorkerHandle struct {
	// Lineage identifies the supervisor's worker line; stable for the
	// supervisor's lifetime.
	Lineage uuid.UUID
	// Generation counts spawns within the lineage, starting at 1.
	Generation uint64
	// PID is the OS process id of this incarnation.
	PID int
	// SpawnedAt is when this incarnation started.
	SpawnedAt time.Time
}

func (h WorkerHandle) String() string {
	return fmt.Sprintf("worker %s gen %d pid %d", shortID(h.Lineage), h.Generation, h.PID)
}

func shortID(id uuid.UUID) string {
	s := id.String()
	return s[:8]
}

// worker bundles one incarnation's handle with the process and channel that
// back it. Owned exclusively by the supervisor; replaced as a unit.
type worker struct {
	handle    WorkerHandle
	proc      *workerProcess
	ch        *taskChannel
	deathSeen atomic.Bool
}

func spawnWorker(entry string, lineage uuid.UUID, generation uint64, buffer int) (*worker, error) {
	proc, err := spawnProcess(entry)
	if err != nil {
		return nil, err
	}
	return &worker{
		handle: WorkerHandle{
			Lineage:    lineage,
			Generation: generation,
			PID:        proc.pid(),
			SpawnedAt:  time.Now(),
		},
		proc: proc,
		ch:   newTaskChannel(proc, buffer),
	}, nil
}
