package reconcile

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"license-agent/core/booking"
	"license-agent/core/logger"
	"license-agent/core/models"
	"license-agent/core/runner"

	"github.com/coder/quartz"
	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Engine runs reconciliation cycles: it queries every configured license server,
// merges the observed usage with the booking ledger and reports the result.
type Engine struct {
	spec     Spec
	backend  Backend
	ledger   *booking.Ledger
	runner   runner.Runner
	adapters map[models.ServerType]Adapter
	jobs     JobLister
	archiver Archiver
	observer Observer
	clock    quartz.Clock
	logger   *zap.Logger
	last     lastPlan
}

// Option configures an Engine.
type Option func(*Engine)

// WithJobLister enables orphan cleanup against the workload manager's job list.
func WithJobLister(jobs JobLister) Option {
	return func(e *Engine) {
		e.jobs = jobs
	}
}

// WithArchiver archives every submitted report.
func WithArchiver(a Archiver) Option {
	return func(e *Engine) {
		e.archiver = a
	}
}

// WithObserver reports cycle events to o.
func WithObserver(o Observer) Option {
	return func(e *Engine) {
		e.observer = o
	}
}

// WithClock replaces the wall clock.
func WithClock(c quartz.Clock) Option {
	return func(e *Engine) {
		e.clock = c
	}
}

// NewEngine creates an engine. The backend client and the ledger are shared
// with the rest of the agent for its whole lifetime.
func NewEngine(spec Spec, be Backend, ledger *booking.Ledger, r runner.Runner, adapters []Adapter, log *zap.Logger, opts ...Option) *Engine {
	e := &Engine{
		spec:     spec,
		backend:  be,
		ledger:   ledger,
		runner:   r,
		adapters: make(map[models.ServerType]Adapter, len(adapters)),
		observer: nopObserver{},
		clock:    quartz.NewReal(),
		logger:   log,
	}
	for _, a := range adapters {
		e.adapters[a.ServerType()] = a
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.spec.Concurrency <= 0 {
		e.spec.Concurrency = 1
	}
	if e.spec.ToolTimeout <= 0 {
		e.spec.ToolTimeout = runner.DefaultTimeout
	}
	return e
}

// Reconcile runs one full cycle and submits the report.
func (e *Engine) Reconcile(ctx context.Context) (*Plan, error) {
	return e.Run(ctx, Options{})
}

// Run runs one cycle. With DryRun the report is computed but neither submitted
// nor applied to the ledger.
func (e *Engine) Run(ctx context.Context, opts Options) (*Plan, error) {
	start := e.clock.Now()
	plan := &Plan{CycleID: uuid.NewString(), StartedAt: start}
	log := logger.WithCycle(e.logger, plan.CycleID)

	plan, err := e.run(ctx, plan, opts, log)

	status := "success"
	switch {
	case err != nil:
		status = "failure"
	case opts.DryRun:
		status = "dry_run"
	}
	duration := e.clock.Since(start)
	e.observer.CycleFinished(status, duration)

	if err != nil {
		log.Error("Reconciliation failed", zap.Error(err), zap.Duration("duration", duration))
		return plan, err
	}

	if plan.Submitted {
		e.last.store(plan)
	}
	log.Info("Reconciliation finished", zap.String("status", status), zap.Duration("duration", duration))
	return plan, nil
}

// LastPlan returns the most recent submitted plan, or nil before the first success.
func (e *Engine) LastPlan() *Plan {
	return e.last.load()
}

func (e *Engine) run(ctx context.Context, plan *Plan, opts Options, log *zap.Logger) (*Plan, error) {
	// Hook bookings made while the servers are queried are replayed by tx.Load.
	e.ledger.Mark()

	snapshot, err := e.backend.Snapshot(ctx)
	if err != nil {
		return plan, fmt.Errorf("fetch snapshot: %w", err)
	}

	plan.Outcomes = e.queryAll(ctx, snapshot.Configurations, log)
	plan.Summary.Configurations = len(snapshot.Configurations)
	jobs := e.activeJobs(ctx, log)

	// Only the merge and the report submission run with the ledger locked.
	tx := e.ledger.Begin()
	defer tx.Rollback()
	tx.Load(snapshot)

	var queryErrs *multierror.Error
	for _, o := range plan.Outcomes {
		if !o.OK() {
			plan.Summary.FailedConfigurations++
			queryErrs = multierror.Append(queryErrs, fmt.Errorf("%s: %w", o.Name, o.Err))
		}
	}

	usage, records := aggregate(plan.Outcomes, tx, log)
	plan.Summary.Records = len(records)

	if len(snapshot.Configurations) > 0 && len(usage) == 0 {
		if err := queryErrs.ErrorOrNil(); err != nil {
			return plan, fmt.Errorf("%w: %w", ErrNoUsageData, err)
		}
		return plan, ErrNoUsageData
	}
	if err := queryErrs.ErrorOrNil(); err != nil {
		log.Warn("Some configurations could not be queried", zap.Error(err))
	}

	tx.ExpireStale(e.spec.GraceTime, records)
	if jobs != nil {
		tx.RetireOrphans(jobs.listedAt, func(jobID string) bool {
			_, ok := jobs.active[jobID]
			return ok
		})
	}

	report := &models.Report{
		ClusterClientID: e.spec.ClusterClientID,
		Features:        make([]models.FeatureReport, 0, len(usage)),
		RetiredBookings: []int64{},
	}
	for _, u := range usage {
		f, clamped, ok := tx.SetUsage(u.featureID, u.total, u.used)
		if !ok {
			continue
		}
		if clamped {
			plan.Summary.Clamped++
			log.Warn("Availability clamped at zero",
				zap.String("feature", f.Key().String()),
				zap.Int("total", f.Total),
				zap.Int("used", f.Used),
				zap.Int("booked", f.Booked),
				zap.Int("reserved", f.Reserved),
			)
		}
		report.Features = append(report.Features, models.FeatureReport{
			FeatureID: f.ID,
			Product:   f.Product,
			Feature:   f.Name,
			Total:     f.Total,
			Used:      f.Used,
			Booked:    f.Booked,
			Reserved:  f.Reserved,
			Available: f.Available,
		})
	}

	plan.Retired = tx.Retired()
	for _, r := range plan.Retired {
		report.RetiredBookings = append(report.RetiredBookings, r.Booking.ID)
		switch r.Reason {
		case booking.ReasonConfirmed:
			plan.Summary.Confirmed++
		case booking.ReasonExpired:
			plan.Summary.Expired++
		case booking.ReasonOrphaned:
			plan.Summary.Orphaned++
		}
	}
	report.Sort()
	plan.Report = report
	plan.Summary.Features = len(report.Features)

	if opts.DryRun {
		return plan, nil
	}

	if err := e.backend.SubmitReport(ctx, report); err != nil {
		return plan, fmt.Errorf("submit report: %w", err)
	}
	tx.Commit()
	plan.Submitted = true

	e.observer.BookingsRetired(string(booking.ReasonConfirmed), plan.Summary.Confirmed)
	e.observer.BookingsRetired(string(booking.ReasonExpired), plan.Summary.Expired)
	e.observer.BookingsRetired(string(booking.ReasonOrphaned), plan.Summary.Orphaned)

	if e.archiver != nil {
		if err := e.archiver.Archive(ctx, plan); err != nil {
			log.Warn("Failed to archive report", zap.Error(err))
		}
	}

	return plan, nil
}

type jobList struct {
	active   map[string]struct{}
	listedAt time.Time
}

// activeJobs lists the workload manager's jobs. It returns nil when orphan
// cleanup is disabled or the list is unavailable.
func (e *Engine) activeJobs(ctx context.Context, log *zap.Logger) *jobList {
	if e.jobs == nil {
		return nil
	}
	listedAt := e.clock.Now()
	active, err := e.jobs.ActiveJobs(ctx)
	if err != nil {
		log.Warn("Job list unavailable, skipping orphan cleanup", zap.Error(err))
		return nil
	}
	return &jobList{active: active, listedAt: listedAt}
}

// queryAll queries every configuration concurrently. Results keep snapshot order.
func (e *Engine) queryAll(ctx context.Context, configs []models.Configuration, log *zap.Logger) []Outcome {
	outcomes := make([]Outcome, len(configs))

	var g errgroup.Group
	g.SetLimit(e.spec.Concurrency)
	for i, cfg := range configs {
		g.Go(func() error {
			outcomes[i] = e.query(ctx, cfg, log)
			return nil
		})
	}
	_ = g.Wait()

	return outcomes
}

// query tries the configuration's license servers in order until one answers.
func (e *Engine) query(ctx context.Context, cfg models.Configuration, log *zap.Logger) Outcome {
	out := Outcome{Configuration: cfg, Name: cfg.Name}
	log = log.With(zap.String("configuration", cfg.Name), zap.String("server_type", string(cfg.ServerType)))

	fail := func(err error) Outcome {
		out.Err = err
		out.Error = err.Error()
		e.observer.QueryFailed(cfg.ServerType)
		log.Warn("License server query failed", zap.Error(err))
		return out
	}

	adapter, ok := e.adapters[cfg.ServerType]
	if !ok {
		return fail(fmt.Errorf("%w: %q", ErrUnsupportedServerType, cfg.ServerType))
	}
	if len(cfg.LicenseServers) == 0 {
		return fail(ErrNoLicenseServers)
	}

	var errs *multierror.Error
	for _, server := range cfg.LicenseServers {
		addr := net.JoinHostPort(server.Host, strconv.Itoa(server.Port))

		cmd, err := adapter.Command(server)
		if err != nil {
			errs = multierror.Append(errs, fmt.Errorf("%s: %w", addr, err))
			continue
		}

		raw, err := e.runner.Run(ctx, cmd, e.spec.ToolTimeout)
		if err != nil {
			log.Debug("License server did not answer", zap.String("server", addr), zap.Error(err))
			errs = multierror.Append(errs, fmt.Errorf("%s: %w", addr, err))
			continue
		}

		report := adapter.Parse(raw)
		if report.Empty() {
			errs = multierror.Append(errs, fmt.Errorf("%s: %w", addr, ErrUnrecognizedOutput))
			continue
		}

		out.Server = addr
		out.Report = report
		out.Raw = raw
		log.Debug("License server answered",
			zap.String("server", addr),
			zap.Int("features", len(report.Features)),
			zap.Int("records", len(report.Records)),
		)
		return out
	}

	return fail(errs.ErrorOrNil())
}

type featureUsage struct {
	featureID int64
	total     int
	used      int
}

// aggregate merges successful outcomes into per-feature usage and normalized
// usage records. Only configured features that the server reported are kept.
func aggregate(outcomes []Outcome, tx *booking.Tx, log *zap.Logger) ([]featureUsage, []models.UsageRecord) {
	var usage []featureUsage
	var records []models.UsageRecord

	for _, o := range outcomes {
		if !o.OK() {
			continue
		}
		for _, cf := range o.Configuration.Features {
			key := cf.Key().String()
			tracked, ok := tx.Lookup(key)
			if !ok || tracked.ID != cf.ID {
				continue
			}

			count, reported := o.Report.Lookup(cf.Name)
			sum := 0
			matched := false
			for _, rec := range o.Report.Records {
				if !strings.EqualFold(rec.Feature, cf.Name) {
					continue
				}
				matched = true
				rec.Feature = key
				records = append(records, rec)
				sum += rec.Quantity
			}
			if !reported && !matched {
				log.Debug("Feature not reported by license server",
					zap.String("configuration", o.Name),
					zap.String("feature", key),
				)
				continue
			}

			u := featureUsage{featureID: tracked.ID, total: tracked.Total, used: sum}
			if reported {
				u.used = count.Used
				if count.Total > 0 {
					u.total = count.Total
				}
			}
			usage = append(usage, u)
		}
	}

	return usage, records
}
