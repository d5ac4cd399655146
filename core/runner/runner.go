package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/kballard/go-shellquote"
	"go.uber.org/zap"
)

// DefaultTimeout is used when Run is called with a non-positive timeout.
const DefaultTimeout = 30 * time.Second

var (
	// ErrTimeout is returned when a command does not finish within its timeout.
	ErrTimeout = errors.New("command timed out")
	// ErrEmptyCommand is returned for a blank command line.
	ErrEmptyCommand = errors.New("empty command line")
)

// ToolFailure describes a command that could not be started or exited non-zero.
type ToolFailure struct {
	Command  string
	ExitCode int
	Stdout   string
	Stderr   string
	Err      error
}

func (e *ToolFailure) Error() string {
	if e.ExitCode < 0 {
		return fmt.Sprintf("%s: %v", e.Command, e.Err)
	}
	msg := fmt.Sprintf("%s exited with status %d", e.Command, e.ExitCode)
	if stderr := strings.TrimSpace(e.Stderr); stderr != "" {
		msg += ": " + stderr
	}
	return msg
}

func (e *ToolFailure) Unwrap() error {
	return e.Err
}

// Runner executes external license query tools.
type Runner interface {
	// Run executes commandLine and returns its stdout.
	Run(ctx context.Context, commandLine string, timeout time.Duration) (string, error)
}

// Exec runs commands as local subprocesses.
type Exec struct {
	logger *zap.Logger
	// Env is appended to the inherited environment of every command.
	Env []string
}

// New creates a subprocess runner.
func New(logger *zap.Logger) *Exec {
	return &Exec{logger: logger}
}

// Run splits commandLine with shell quoting rules, executes it without a shell and
// waits up to timeout. A timed out process is killed with its process group.
func (r *Exec) Run(ctx context.Context, commandLine string, timeout time.Duration) (string, error) {
	args, err := shellquote.Split(commandLine)
	if err != nil {
		return "", &ToolFailure{Command: commandLine, ExitCode: -1, Err: fmt.Errorf("parse command line: %w", err)}
	}
	if len(args) == 0 {
		return "", ErrEmptyCommand
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, args[0], args[1:]...)
	if len(r.Env) > 0 {
		cmd.Env = append(cmd.Environ(), r.Env...)
	}
	setProcessGroup(cmd)
	// Children that inherit the pipes must not keep Wait blocked after the kill.
	cmd.WaitDelay = time.Second

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err = cmd.Run()
	elapsed := time.Since(start)

	if err != nil {
		// Parent cancellation is not a tool problem.
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			r.debug("Command timed out", args[0], elapsed, zap.Duration("timeout", timeout))
			return "", fmt.Errorf("%w: %s after %s", ErrTimeout, args[0], timeout)
		}

		failure := &ToolFailure{
			Command:  args[0],
			ExitCode: -1,
			Stdout:   decode(stdout.Bytes()),
			Stderr:   decode(stderr.Bytes()),
			Err:      err,
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			failure.ExitCode = exitErr.ExitCode()
		}
		r.debug("Command failed", args[0], elapsed, zap.Int("exit_code", failure.ExitCode))
		return "", failure
	}

	r.debug("Command finished", args[0], elapsed, zap.Int("bytes", stdout.Len()))
	return decode(stdout.Bytes()), nil
}

func (r *Exec) debug(msg, command string, elapsed time.Duration, fields ...zap.Field) {
	if r.logger == nil {
		return
	}
	fields = append(fields, zap.String("command", command), zap.Duration("elapsed", elapsed))
	r.logger.Debug(msg, fields...)
}

// decode turns raw tool output into a string, replacing invalid UTF-8 produced by
// tools running under legacy locales.
func decode(b []byte) string {
	return strings.ToValidUTF8(string(b), "�")
}
