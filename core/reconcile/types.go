package reconcile

import (
	"errors"
	"time"

	"license-agent/core/booking"
	"license-agent/core/models"
)

var (
	// ErrNoUsageData is returned when configurations exist but none of them produced usage data.
	ErrNoUsageData = errors.New("no usage data from any license server")
	// ErrUnsupportedServerType is returned for configurations without a registered adapter.
	ErrUnsupportedServerType = errors.New("unsupported license server type")
	// ErrNoLicenseServers is returned for configurations without any license server.
	ErrNoLicenseServers = errors.New("configuration has no license servers")
	// ErrUnrecognizedOutput is returned when a tool succeeded but nothing in its output parsed.
	ErrUnrecognizedOutput = errors.New("unrecognized tool output")
)

// Spec defines the settings of the reconciliation engine.
type Spec struct {
	// ClusterClientID identifies this cluster in the backend.
	ClusterClientID string

	// GraceTime is how long an uncorroborated booking is kept.
	// Configurations with their own grace time override it.
	GraceTime time.Duration

	// Concurrency bounds the number of configurations queried at once.
	// Zero or less means one at a time.
	Concurrency int

	// ToolTimeout bounds each license tool invocation.
	ToolTimeout time.Duration
}

// Outcome is the result of querying one configuration.
type Outcome struct {
	// Configuration is the configuration that was queried.
	Configuration models.Configuration `json:"-"`

	// Name is the configuration name.
	Name string `json:"name"`

	// Server is the "host:port" that answered, empty when all failed.
	Server string `json:"server,omitempty"`

	// Report is the parsed output. Nil when Err is set.
	Report *models.ServerReport `json:"-"`

	// Raw is the unparsed tool output of the server that answered.
	Raw string `json:"-"`

	// Err aggregates the failure of every server tried.
	Err error `json:"-"`

	// Error is Err as text for JSON output.
	Error string `json:"error,omitempty"`
}

// OK reports whether a license server answered with parseable output.
func (o Outcome) OK() bool {
	return o.Err == nil && o.Report != nil
}

// Summary provides aggregate counts for one cycle.
type Summary struct {
	// Configurations is the number of configurations in the snapshot.
	Configurations int `json:"configurations"`

	// FailedConfigurations counts configurations whose license servers all failed.
	FailedConfigurations int `json:"failed_configurations"`

	// Features is the number of features in the report.
	Features int `json:"features"`

	// Records is the number of usage records observed.
	Records int `json:"records"`

	// Confirmed counts bookings retired because a usage record corroborated them.
	Confirmed int `json:"confirmed"`

	// Expired counts bookings retired after their grace time.
	Expired int `json:"expired"`

	// Orphaned counts bookings of jobs unknown to the workload manager.
	Orphaned int `json:"orphaned"`

	// Clamped counts features whose availability had to be clamped at zero.
	Clamped int `json:"clamped"`
}

// Plan is the outcome of one reconciliation cycle.
type Plan struct {
	// CycleID correlates log lines and archived objects of one cycle.
	CycleID string `json:"cycle_id"`

	// StartedAt is when the cycle began.
	StartedAt time.Time `json:"started_at"`

	// Report is the payload for the backend.
	Report *models.Report `json:"report"`

	// Retired lists every booking retired in this cycle.
	Retired []booking.Retirement `json:"-"`

	// Outcomes holds one entry per configuration, in snapshot order.
	Outcomes []Outcome `json:"outcomes"`

	// Summary provides aggregate counts.
	Summary Summary `json:"summary"`

	// Submitted is true once the backend accepted the report.
	Submitted bool `json:"submitted"`
}

// Options controls a reconciliation run.
type Options struct {
	// DryRun computes the plan without submitting it or changing the ledger.
	DryRun bool
}
