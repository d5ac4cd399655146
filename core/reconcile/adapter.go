package reconcile

import (
	"context"
	"time"

	"license-agent/core/models"
)

// Adapter defines how to query and parse one license server family
// (e.g., FlexLM, RLM). One adapter is registered per server type.
type Adapter interface {
	// ServerType returns the family this adapter handles.
	ServerType() models.ServerType

	// Command returns the command line that queries the given license server.
	Command(server models.LicenseServer) (string, error)

	// Parse turns raw tool output into a report. It never fails; lines it does
	// not recognize are skipped.
	Parse(raw string) *models.ServerReport
}

// Backend is the part of the backend client the engine uses.
type Backend interface {
	Snapshot(ctx context.Context) (*models.Snapshot, error)
	SubmitReport(ctx context.Context, report *models.Report) error
}

// JobLister lists the jobs the workload manager still knows about.
// Bookings of other jobs are orphans.
type JobLister interface {
	ActiveJobs(ctx context.Context) (map[string]struct{}, error)
}

// Archiver keeps a copy of each submitted report and the raw tool output behind it.
type Archiver interface {
	Archive(ctx context.Context, plan *Plan) error
}

// Observer receives cycle events, typically to export metrics.
type Observer interface {
	CycleFinished(status string, duration time.Duration)
	QueryFailed(serverType models.ServerType)
	BookingsRetired(reason string, count int)
}

type nopObserver struct{}

func (nopObserver) CycleFinished(string, time.Duration) {}

func (nopObserver) QueryFailed(models.ServerType) {}

func (nopObserver) BookingsRetired(string, int) {}
