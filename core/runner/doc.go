// Package runner executes external license query tools.
//
// It is the only place in the agent that starts subprocesses. Command lines are
// split with POSIX shell quoting rules (no shell is involved), every run carries a
// timeout, and failures are classified as:
//
//   - ErrTimeout: the tool did not finish in time and was killed.
//   - *ToolFailure: the tool could not be started or exited non-zero; captured
//     stdout and stderr are kept for diagnostics.
//
// # Usage
//
//	r := runner.New(logger)
//	out, err := r.Run(ctx, "lmutil lmstat -c 27000@licserv -a", 30*time.Second)
package runner
