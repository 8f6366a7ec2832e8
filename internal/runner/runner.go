// Package runner executes generated code in a fresh interpreter process and
// captures what it prints.
//
// Every attempt gets its own process, so nothing loaded by one attempt is
// visible to the next and the caller's standard output is never touched.
// The code is not sandboxed: it runs with the user's files, network and
// environment.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// DefaultTimeout bounds a single run of generated code.
const DefaultTimeout = 2 * time.Minute

// Result is the outcome of one execution.
type Result struct {
	Succeeded bool
	Output    string // captured stdout, empty on failure
	ErrorText string // message and stack trace, empty on success
	ExitCode  int
	Duration  time.Duration
}

// Recorder receives one call per execution. *metrics.Metrics implements it.
type Recorder interface {
	RecordExecution(status string)
}

// Executor runs files with a Runtime.
type Executor struct {
	Runtime  Runtime
	Timeout  time.Duration
	Dir      string   // working directory, empty for the current one
	Env      []string // extra KEY=VALUE pairs added to the inherited environment
	Recorder Recorder
}

// New creates an Executor for the given runtime.
func New(rt Runtime, timeout time.Duration) *Executor {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Executor{Runtime: rt, Timeout: timeout}
}

// Execute runs the file at path and waits for it to finish or time out.
func (e *Executor) Execute(ctx context.Context, path string) Result {
	timeout := e.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	startTime := time.Now()

	bin, args := e.Runtime.Command(path)
	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Dir = e.Dir
	if len(e.Env) > 0 {
		cmd.Env = append(cmd.Environ(), e.Env...)
	}

	// No stdin: generated demos must not wait for input.
	cmd.Stdin = nil

	// Own process group so a timeout also kills anything the script spawned.
	cmd.SysProcAttr = newSysProcAttr()
	cmd.Cancel = func() error { return killProcessGroup(cmd) }
	cmd.WaitDelay = 2 * time.Second

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	duration := time.Since(startTime)

	if err == nil {
		e.record("succeeded")
		return Result{
			Succeeded: true,
			Output:    stdout.String(),
			Duration:  duration,
		}
	}

	e.record("failed")

	exitCode := -1
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		exitCode = exitErr.ExitCode()
	}

	var reason string
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		reason = fmt.Sprintf("execution timed out after %s", timeout)
	case errors.Is(ctx.Err(), context.Canceled):
		reason = "execution canceled"
	default:
		reason = err.Error()
	}

	return Result{
		Succeeded: false,
		ErrorText: formatError(reason, stderr.String()),
		ExitCode:  exitCode,
		Duration:  duration,
	}
}

func (e *Executor) record(status string) {
	if e.Recorder != nil {
		e.Recorder.RecordExecution(status)
	}
}

// formatError combines the failure reason with the interpreter's own report,
// which carries the exception message and full stack trace.
func formatError(reason, stderr string) string {
	stderr = strings.TrimRight(stderr, "\n")
	if stderr == "" {
		return "Error: " + reason
	}
	return fmt.Sprintf("Error: %s\n%s", reason, stderr)
}
