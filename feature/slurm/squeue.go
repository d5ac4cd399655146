package slurm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"license-agent/core/runner"

	"go.uber.org/zap"
)

// JobLister asks squeue for the jobs the cluster still knows about.
type JobLister struct {
	runner  runner.Runner
	command string
	timeout time.Duration
	logger  *zap.Logger
}

// NewJobLister creates a lister running command, which must print one job id per line.
func NewJobLister(r runner.Runner, command string, timeout time.Duration, logger *zap.Logger) *JobLister {
	return &JobLister{runner: r, command: command, timeout: timeout, logger: logger}
}

// ActiveJobs returns the set of pending and running job ids.
func (l *JobLister) ActiveJobs(ctx context.Context) (map[string]struct{}, error) {
	out, err := l.runner.Run(ctx, l.command, l.timeout)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}

	jobs := make(map[string]struct{})
	for _, line := range strings.Split(out, "\n") {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		jobs[fields[0]] = struct{}{}
	}
	l.logger.Debug("Listed active jobs", zap.Int("jobs", len(jobs)))
	return jobs, nil
}
