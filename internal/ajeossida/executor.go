package ajeossida

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"syscall"
	"time"
)

// Runner executes external commands. *Executor is the production
// implementation; tests substitute a fake.
type Runner interface {
	Run(cmd *exec.Cmd) error
}

// Executor provides a consistent interface for executing the upstream tools
// (git, configure, make, the version helper).
type Executor struct {
	Context           context.Context // The context to use for cancellation
	ApplyIdlePriority bool            // Apply nice -n 19 to each command
	Log               io.Writer       // Optional copy of the child's stdout/stderr
}

func NewExecutor(ctx context.Context) *Executor {
	return &Executor{Context: ctx}
}

// Run executes the given command and blocks until it exits.
// It wires up stdio, isolates the child in its own process group so a
// cancelled context kills the whole tree, and reports the failing command
// line on a nonzero exit.
func (e *Executor) Run(cmd *exec.Cmd) error {
	ctx := e.Context
	if ctx == nil {
		ctx = context.Background()
	}

	// --- Phase 0: wire up stdio ---
	if cmd.Stdin == nil {
		cmd.Stdin = os.Stdin
	}
	if cmd.Stdout == nil {
		cmd.Stdout = e.tee(os.Stdout)
	}
	if cmd.Stderr == nil {
		cmd.Stderr = e.tee(os.Stderr)
	}

	// --- Phase 1: build the final command ---
	basePath := cmd.Path
	baseArgs := cmd.Args[1:]

	if e.ApplyIdlePriority {
		baseArgs = append([]string{"-n", "19", basePath}, baseArgs...)
		basePath = "nice"
	}

	finalCmd := exec.CommandContext(ctx, basePath, baseArgs...)
	finalCmd.Dir = cmd.Dir

	// preserve or inherit the environment
	if len(cmd.Env) > 0 {
		finalCmd.Env = cmd.Env
	} else {
		finalCmd.Env = os.Environ()
	}

	finalCmd.Stdin = cmd.Stdin
	finalCmd.Stdout = cmd.Stdout
	finalCmd.Stderr = cmd.Stderr

	// --- Phase 2: isolate process group for context-based cleanup ---
	finalCmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	commandLine := strings.Join(cmd.Args, " ")
	if e.Log != nil {
		fmt.Fprintf(e.Log, "$ %s\n", commandLine)
	}
	debugf("Running %s (dir %s)\n", commandLine, cmd.Dir)

	// --- Phase 3: start and watch for cancel ---
	if err := finalCmd.Start(); err != nil {
		return fmt.Errorf("failed to start %s: %w", commandLine, err)
	}

	pgid := finalCmd.Process.Pid
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			syscall.Kill(-pgid, syscall.SIGKILL)
		case <-done:
		}
	}()

	// --- Phase 4: wait and return ---
	if waitErr := finalCmd.Wait(); waitErr != nil {
		if ctx.Err() != nil {
			time.Sleep(100 * time.Millisecond)
			return fmt.Errorf("command aborted: %s: %v", commandLine, ctx.Err())
		}
		return fmt.Errorf("command failed: %s: %w", commandLine, waitErr)
	}
	return nil
}

func (e *Executor) tee(w io.Writer) io.Writer {
	if e.Log == nil {
		return w
	}
	return io.MultiWriter(w, e.Log)
}

// withEnv returns a copy of the current environment with the given
// KEY=value pairs appended, so they win over inherited values.
func withEnv(kv ...string) []string {
	return append(os.Environ(), kv...)
}
