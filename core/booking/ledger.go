package booking

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"license-agent/core/models"

	"github.com/coder/quartz"
	"go.uber.org/zap"
)

// Backend persists bookings. backend.Client satisfies it.
type Backend interface {
	CreateJob(ctx context.Context, job models.Job) (*models.Job, error)
	DeleteJob(ctx context.Context, slurmJobID string) error
}

// Request asks for a quantity of one feature.
type Request struct {
	Feature  models.FeatureKey
	Quantity int
}

// Ledger tracks bookings held by dispatched jobs and the per-feature counts they affect.
type Ledger struct {
	mu      sync.Mutex
	st      *state
	pending *changes
	backend Backend
	clock   quartz.Clock
	logger  *zap.Logger
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithClock replaces the wall clock, mostly for tests.
func WithClock(c quartz.Clock) Option {
	return func(l *Ledger) {
		l.clock = c
	}
}

// New creates an empty ledger. It tracks nothing until the first snapshot is loaded.
func New(backend Backend, logger *zap.Logger, opts ...Option) *Ledger {
	l := &Ledger{
		st:      newState(),
		backend: backend,
		clock:   quartz.NewReal(),
		logger:  logger,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load replaces the ledger contents with a backend snapshot.
func (l *Ledger) Load(snapshot *models.Snapshot) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.st.load(snapshot)
}

// Tracks reports whether the ledger knows the feature.
func (l *Ledger) Tracks(key models.FeatureKey) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.st.lookup(key.String())
	return ok
}

// Features returns a copy of all tracked features ordered by key.
func (l *Ledger) Features() []models.Feature {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.st.featureList()
}

// Jobs returns a copy of all jobs holding bookings.
func (l *Ledger) Jobs() []models.Job {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.st.jobList()
}

// CreateBooking reserves capacity for a job. Either every request is booked or none is.
// The check runs against the counts of the last reconciled snapshot.
func (l *Ledger) CreateBooking(ctx context.Context, job models.Job, reqs ...Request) (*models.Job, error) {
	if job.SlurmJobID == "" {
		return nil, fmt.Errorf("%w: missing job id", ErrInvalidRequest)
	}
	if len(reqs) == 0 {
		return nil, fmt.Errorf("%w: job %s requests no licenses", ErrInvalidRequest, job.SlurmJobID)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	// The caller may have given up while a reconcile cycle held the lock.
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("book job %s: %w", job.SlurmJobID, err)
	}

	if _, exists := l.st.jobs[job.SlurmJobID]; exists {
		return nil, fmt.Errorf("job %s: %w", job.SlurmJobID, ErrDuplicateJob)
	}

	// Requests for the same feature are summed before the capacity check.
	wanted := make(map[int64]int)
	var order []int64
	for _, r := range reqs {
		if r.Quantity <= 0 {
			return nil, fmt.Errorf("%w: quantity %d for %s", ErrInvalidRequest, r.Quantity, r.Feature)
		}
		f, ok := l.st.lookup(r.Feature.String())
		if !ok {
			return nil, fmt.Errorf("%s: %w", r.Feature, ErrUnknownFeature)
		}
		if _, seen := wanted[f.ID]; !seen {
			order = append(order, f.ID)
		}
		wanted[f.ID] += r.Quantity
	}
	for _, id := range order {
		f := l.st.features[id]
		if f.Available < wanted[id] {
			return nil, &CapacityError{Feature: f.Key().String(), Requested: wanted[id], Available: f.Available}
		}
	}

	now := l.clock.Now()
	job.Bookings = make([]models.Booking, 0, len(order))
	for _, id := range order {
		job.Bookings = append(job.Bookings, models.Booking{
			JobID:     job.SlurmJobID,
			FeatureID: id,
			Quantity:  wanted[id],
			CreatedAt: now,
		})
	}

	created, err := l.backend.CreateJob(ctx, job)
	if err != nil {
		return nil, fmt.Errorf("persist bookings for job %s: %w", job.SlurmJobID, err)
	}

	stored := *created
	if stored.SlurmJobID == "" {
		stored.SlurmJobID = job.SlurmJobID
	}
	if len(stored.Bookings) == 0 {
		stored.Bookings = job.Bookings
	}
	stored.Bookings = append([]models.Booking(nil), stored.Bookings...)
	for i := range stored.Bookings {
		stored.Bookings[i].JobID = stored.SlurmJobID
		if stored.Bookings[i].CreatedAt.IsZero() {
			stored.Bookings[i].CreatedAt = now
		}
	}
	l.st.jobs[stored.SlurmJobID] = &stored
	l.st.recount()
	if l.pending != nil {
		l.pending.booked(&stored)
	}

	for _, b := range stored.Bookings {
		l.logger.Info("Booking created",
			zap.String("job_id", stored.SlurmJobID),
			zap.String("feature", l.st.featureName(b.FeatureID)),
			zap.Int("quantity", b.Quantity),
			zap.Int64("booking_id", b.ID),
		)
	}

	out := stored
	out.Bookings = append([]models.Booking(nil), stored.Bookings...)
	return &out, nil
}

// ReleaseBooking removes every booking of a job. Releasing an unknown job is a no-op
// locally, but the backend is always asked to delete it.
func (l *Ledger) ReleaseBooking(ctx context.Context, jobID string) ([]Retirement, error) {
	if jobID == "" {
		return nil, fmt.Errorf("%w: missing job id", ErrInvalidRequest)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.backend.DeleteJob(ctx, jobID); err != nil {
		return nil, fmt.Errorf("release bookings for job %s: %w", jobID, err)
	}
	if l.pending != nil {
		l.pending.released(jobID)
	}

	j, ok := l.st.jobs[jobID]
	if !ok {
		l.logger.Debug("Release for job without bookings", zap.String("job_id", jobID))
		return nil, nil
	}

	var retired []Retirement
	for _, b := range append([]models.Booking(nil), j.Bookings...) {
		retired = append(retired, l.st.retire(b, ReasonReleased))
	}
	l.st.recount()

	l.logger.Info("Bookings released", zap.String("job_id", jobID), zap.Int("count", len(retired)))
	return retired, nil
}

// ExpireStale retires bookings corroborated by a usage record and bookings older
// than their grace time. A feature's own grace time overrides grace.
func (l *Ledger) ExpireStale(grace time.Duration, records []models.UsageRecord) []Retirement {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.st.expireStale(l.clock.Now(), grace, records)
}

// Mark starts recording bookings and releases. Call it before fetching the
// snapshot that the next transaction loads: Tx.Load replays what was recorded
// on top of the snapshot, so hook activity during the fetch and the license
// server queries is not lost. A new Mark discards the previous recording.
func (l *Ledger) Mark() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.pending = newChanges()
}

// Begin starts a reconcile transaction and takes over the changes recorded
// since Mark. The ledger stays locked until the transaction is committed or
// rolled back, so keep external calls out of it where possible.
func (l *Ledger) Begin() *Tx {
	l.mu.Lock()
	tx := &Tx{ledger: l, st: l.st.clone(), pending: l.pending}
	l.pending = nil
	return tx
}

// Tx is a working copy of the ledger used by one reconcile cycle.
type Tx struct {
	ledger  *Ledger
	st      *state
	pending *changes
	retired []Retirement
	done    bool
}

// Load replaces the working copy with a backend snapshot, then replays the
// bookings and releases recorded since Mark.
func (tx *Tx) Load(snapshot *models.Snapshot) {
	tx.st.load(snapshot)
	if tx.pending != nil {
		tx.pending.replay(tx.st)
	}
	tx.retired = nil
}

// Lookup finds a tracked feature by its "product.feature" name.
func (tx *Tx) Lookup(name string) (models.Feature, bool) {
	f, ok := tx.st.lookup(name)
	if !ok {
		return models.Feature{}, false
	}
	return *f, true
}

// ExpireStale is Ledger.ExpireStale on the working copy.
func (tx *Tx) ExpireStale(grace time.Duration, records []models.UsageRecord) []Retirement {
	r := tx.st.expireStale(tx.ledger.clock.Now(), grace, records)
	tx.retired = append(tx.retired, r...)
	return r
}

// RetireOrphans retires the bookings of jobs for which active returns false.
// Bookings created at or after listedAt are younger than the job list and kept.
func (tx *Tx) RetireOrphans(listedAt time.Time, active func(jobID string) bool) []Retirement {
	r := tx.st.retireOrphans(listedAt, active)
	tx.retired = append(tx.retired, r...)
	return r
}

// SetUsage overwrites a feature's Total and Used and recomputes Available.
// It returns the updated feature and whether Available had to be clamped.
func (tx *Tx) SetUsage(featureID int64, total, used int) (models.Feature, bool, bool) {
	f, ok := tx.st.features[featureID]
	if !ok {
		return models.Feature{}, false, false
	}
	f.Total = total
	f.Used = used
	clamped := f.RecomputeAvailable()
	return *f, clamped, true
}

// Features returns the working copy's features ordered by key.
func (tx *Tx) Features() []models.Feature {
	return tx.st.featureList()
}

// Retired returns every booking retired in this transaction, ordered by id.
func (tx *Tx) Retired() []Retirement {
	out := append([]Retirement(nil), tx.retired...)
	sort.Slice(out, func(i, k int) bool { return out[i].Booking.ID < out[k].Booking.ID })
	return out
}

// Commit makes the working copy the ledger state and unlocks the ledger.
func (tx *Tx) Commit() {
	if tx.done {
		return
	}
	tx.done = true
	tx.ledger.st = tx.st
	tx.ledger.mu.Unlock()
}

// Rollback discards the working copy and unlocks the ledger.
// It is a no-op after Commit, so it can be deferred.
func (tx *Tx) Rollback() {
	if tx.done {
		return
	}
	tx.done = true
	tx.ledger.mu.Unlock()
}
