package warden

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"syscall"
	"time"
)

// workerProcess owns one spawned worker: the re-exec'd child plus the two
// pipe ends the supervisor keeps. exit closes once the child is reaped, which
// is the genuine process-death notification AwaitResult selects on.
type workerProcess struct {
	cmd    *exec.Cmd
	stdin  *os.File // write end of the child's inbound pipe
	stdout *os.File // read end of the child's outbound pipe

	exit    chan struct{}
	exitErr error // valid after exit is closed
}

// spawnProcess re-executes the current binary as a worker bound to the named
// entry point. Pipes are created by hand rather than via StdinPipe/StdoutPipe
// so that cmd.Wait never closes the supervisor's read end underneath the
// result pump: EOF on stdout then means exactly "the child is gone and the
// pipe is drained".
func spawnProcess(entry string) (*workerProcess, error) {
	exe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("locate executable: %w", err)
	}

	inR, inW, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("inbound pipe: %w", err)
	}
	outR, outW, err := os.Pipe()
	if err != nil {
		inR.Close()
		inW.Close()
		return nil, fmt.Errorf("outbound pipe: %w", err)
	}

	cmd := exec.Command(exe)
	cmd.Env = append(os.Environ(), workerEnvVar+"="+entry)
	cmd.Stdin = inR
	cmd.Stdout = outW
	cmd.Stderr = os.Stderr
	setSysProcAttr(cmd)

	if err := cmd.Start(); err != nil {
		inR.Close()
		inW.Close()
		outR.Close()
		outW.Close()
		return nil, fmt.Errorf("start worker: %w", err)
	}

	// The child holds its own copies now.
	inR.Close()
	outW.Close()

	p := &workerProcess{
		cmd:    cmd,
		stdin:  inW,
		stdout: outR,
		exit:   make(chan struct{}),
	}
	go func() {
		p.exitErr = cmd.Wait()
		close(p.exit)
	}()
	return p, nil
}

func (p *workerProcess) pid() int {
	return p.cmd.Process.Pid
}

func (p *workerProcess) alive() bool {
	select {
	case <-p.exit:
		return false
	default:
		return true
	}
}

// awaitExit waits up to grace for the child to be reaped. A zero or negative
// grace only checks the current state.
func (p *workerProcess) awaitExit(grace time.Duration) bool {
	if grace <= 0 {
		return !p.alive()
	}
	timer := time.NewTimer(grace)
	defer timer.Stop()
	select {
	case <-p.exit:
		return true
	case <-timer.C:
		return false
	}
}

// terminate asks the child to die with SIGTERM, escalating to SIGKILL after
// grace. Safe to call on an already-dead process.
func (p *workerProcess) terminate(grace time.Duration) {
	if !p.alive() {
		return
	}
	if err := p.cmd.Process.Signal(syscall.SIGTERM); err != nil {
		if errors.Is(err, os.ErrProcessDone) {
			return
		}
	}
	if p.awaitExit(grace) {
		return
	}
	p.kill()
}

// kill force-terminates the child and waits for it to be reaped. Kill
// errors are ignored: a process that is already gone is the goal state.
func (p *workerProcess) kill() {
	_ = p.cmd.Process.Kill()
	<-p.exit
}

// release closes the supervisor's pipe ends. Closing stdin is an implicit
// sentinel: a worker blocked on its inbound pipe sees EOF and exits.
func (p *workerProcess) release() {
	p.stdin.Close()
	p.stdout.Close()
}
