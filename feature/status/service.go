package status

import (
	"context"
	"time"

	"license-agent/core/models"
	"license-agent/core/reconcile"

	"github.com/coder/quartz"
)

// PlanSource returns the most recent submitted reconcile plan.
type PlanSource interface {
	LastPlan() *reconcile.Plan
}

// LedgerSource exposes the booking ledger read side.
type LedgerSource interface {
	Features() []models.Feature
	Jobs() []models.Job
}

// BackendChecker probes the license backend. backend.Client satisfies it and
// shares one in-flight probe between the scheduler and status requests.
type BackendChecker interface {
	Health(ctx context.Context) error
}

// Status is the agent's current view.
type Status struct {
	LastCycle    *reconcile.Plan  `json:"last_cycle"`
	Backend      string           `json:"backend"`
	BackendError string           `json:"backend_error,omitempty"`
	Features     []models.Feature `json:"features"`
	Jobs         []models.Job     `json:"jobs"`
}

// Health summarizes whether reconciliation keeps up.
type Health struct {
	Status      string     `json:"status"`
	LastCycleAt *time.Time `json:"last_cycle_at,omitempty"`
}

const (
	HealthOK       = "ok"
	HealthStarting = "starting"
	HealthStale    = "stale"

	BackendOK          = "ok"
	BackendUnavailable = "unavailable"
)

const probeTimeout = 5 * time.Second

// Service assembles status and health reports.
type Service struct {
	plans      PlanSource
	ledger     LedgerSource
	backend    BackendChecker
	staleAfter time.Duration
	started    time.Time
	clock      quartz.Clock
}

// NewService creates a status service. The agent is reported stale when no
// cycle was submitted within staleAfter.
func NewService(plans PlanSource, ledger LedgerSource, backend BackendChecker, staleAfter time.Duration, clock quartz.Clock) *Service {
	if clock == nil {
		clock = quartz.NewReal()
	}
	return &Service{plans: plans, ledger: ledger, backend: backend, staleAfter: staleAfter, started: clock.Now(), clock: clock}
}

// Status probes the backend and returns the agent's view.
func (s *Service) Status(ctx context.Context) Status {
	st := Status{
		LastCycle: s.plans.LastPlan(),
		Backend:   BackendOK,
		Features:  s.ledger.Features(),
		Jobs:      s.ledger.Jobs(),
	}
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()
	if err := s.backend.Health(ctx); err != nil {
		st.Backend = BackendUnavailable
		st.BackendError = err.Error()
	}
	return st
}

func (s *Service) Health() Health {
	plan := s.plans.LastPlan()
	if plan == nil {
		if s.clock.Since(s.started) > s.staleAfter {
			return Health{Status: HealthStale}
		}
		return Health{Status: HealthStarting}
	}
	at := plan.StartedAt
	h := Health{Status: HealthOK, LastCycleAt: &at}
	if s.clock.Since(at) > s.staleAfter {
		h.Status = HealthStale
	}
	return h
}
