package scheduler

import (
	"context"
	"time"

	"license-agent/core/models"

	"github.com/coder/quartz"
)

// HealthChecker checks the backend.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// StatusReporter records the agent heartbeat.
type StatusReporter interface {
	PutClusterStatus(ctx context.Context, status models.ClusterStatus) error
}

// HealthTask checks that the backend is healthy.
func HealthTask(h HealthChecker) TaskFunc {
	return h.Health
}

// HeartbeatTask reports the cluster status with the scheduler interval.
func HeartbeatTask(r StatusReporter, clusterClientID string, interval time.Duration, clock quartz.Clock) TaskFunc {
	return func(ctx context.Context) error {
		return r.PutClusterStatus(ctx, models.ClusterStatus{
			ClusterClientID: clusterClientID,
			Interval:        int(interval / time.Second),
			LastReported:    clock.Now().UTC(),
		})
	}
}
