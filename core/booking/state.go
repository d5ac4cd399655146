package booking

import (
	"sort"
	"strings"
	"time"

	"license-agent/core/models"
	"license-agent/core/utils"
)

// Reason tells why a booking left the ledger.
type Reason string

const (
	// ReasonConfirmed means a usage record showed the job checked the licenses out.
	ReasonConfirmed Reason = "confirmed"
	// ReasonExpired means the grace time elapsed without a matching usage record.
	ReasonExpired Reason = "expired"
	// ReasonOrphaned means the job is no longer known to the workload manager.
	ReasonOrphaned Reason = "orphaned"
	// ReasonReleased means the job finished and its epilog released the bookings.
	ReasonReleased Reason = "released"
)

// Retirement records a booking removed from the ledger.
type Retirement struct {
	Booking models.Booking
	Feature string
	Reason  Reason
}

type state struct {
	features map[int64]*models.Feature
	byKey    map[string]int64
	jobs     map[string]*models.Job
}

func newState() *state {
	return &state{
		features: make(map[int64]*models.Feature),
		byKey:    make(map[string]int64),
		jobs:     make(map[string]*models.Job),
	}
}

func (s *state) clone() *state {
	c := newState()
	for id, f := range s.features {
		cp := *f
		c.features[id] = &cp
	}
	for k, id := range s.byKey {
		c.byKey[k] = id
	}
	for id, j := range s.jobs {
		cp := *j
		cp.Bookings = append([]models.Booking(nil), j.Bookings...)
		c.jobs[id] = &cp
	}
	return c
}

func keyOf(s string) string {
	return strings.ToLower(s)
}

// load replaces the whole state with the backend's view.
func (s *state) load(snapshot *models.Snapshot) {
	fresh := newState()
	for _, cfg := range snapshot.Configurations {
		for _, f := range cfg.Features {
			cp := f
			cp.ConfigurationID = cfg.ID
			cp.ServerType = cfg.ServerType
			if cp.GraceTime == 0 {
				cp.GraceTime = cfg.GraceTime()
			}
			fresh.features[cp.ID] = &cp
			k := keyOf(cp.Key().String())
			if _, exists := fresh.byKey[k]; !exists {
				fresh.byKey[k] = cp.ID
			}
		}
	}
	for _, j := range snapshot.Jobs {
		if len(j.Bookings) == 0 {
			continue
		}
		cp := j
		cp.Bookings = append([]models.Booking(nil), j.Bookings...)
		for i := range cp.Bookings {
			cp.Bookings[i].JobID = cp.SlurmJobID
		}
		fresh.jobs[cp.SlurmJobID] = &cp
	}
	*s = *fresh
	s.recount()
}

func (s *state) lookup(key string) (*models.Feature, bool) {
	id, ok := s.byKey[keyOf(key)]
	if !ok {
		return nil, false
	}
	f, ok := s.features[id]
	return f, ok
}

func (s *state) featureName(id int64) string {
	if f, ok := s.features[id]; ok {
		return f.Key().String()
	}
	return ""
}

// recount derives Booked and Available from the open bookings and returns
// the features whose availability had to be clamped at zero.
func (s *state) recount() []models.Feature {
	booked := make(map[int64]int)
	for _, j := range s.jobs {
		for _, b := range j.Bookings {
			booked[b.FeatureID] += b.Quantity
		}
	}
	var clamped []models.Feature
	for id, f := range s.features {
		f.Booked = booked[id]
		if f.RecomputeAvailable() {
			clamped = append(clamped, *f)
		}
	}
	return clamped
}

// sortedBookings returns open bookings oldest first so that record matching is deterministic.
func (s *state) sortedBookings() []models.Booking {
	var all []models.Booking
	for _, j := range s.jobs {
		all = append(all, j.Bookings...)
	}
	sort.Slice(all, func(i, k int) bool {
		if !all[i].CreatedAt.Equal(all[k].CreatedAt) {
			return all[i].CreatedAt.Before(all[k].CreatedAt)
		}
		if all[i].ID != all[k].ID {
			return all[i].ID < all[k].ID
		}
		return all[i].FeatureID < all[k].FeatureID
	})
	return all
}

func (s *state) remove(b models.Booking) {
	j, ok := s.jobs[b.JobID]
	if !ok {
		return
	}
	kept := j.Bookings[:0]
	for _, existing := range j.Bookings {
		if existing.ID == b.ID && existing.FeatureID == b.FeatureID {
			continue
		}
		kept = append(kept, existing)
	}
	j.Bookings = kept
	if len(j.Bookings) == 0 {
		delete(s.jobs, b.JobID)
	}
}

func (s *state) retire(b models.Booking, reason Reason) Retirement {
	s.remove(b)
	return Retirement{Booking: b, Feature: s.featureName(b.FeatureID), Reason: reason}
}

// expireStale retires bookings confirmed by a usage record or older than their grace time.
// Records must carry the "product.feature" form in their Feature field.
func (s *state) expireStale(now time.Time, grace time.Duration, records []models.UsageRecord) []Retirement {
	used := make([]bool, len(records))
	var retired []Retirement

	for _, b := range s.sortedBookings() {
		j := s.jobs[b.JobID]
		name := s.featureName(b.FeatureID)

		if name != "" {
			if idx := matchRecord(records, used, name, j, b.Quantity); idx >= 0 {
				used[idx] = true
				retired = append(retired, s.retire(b, ReasonConfirmed))
				continue
			}
		}

		limit := grace
		if f, ok := s.features[b.FeatureID]; ok && f.GraceTime > 0 {
			limit = f.GraceTime
		}
		if now.Sub(b.CreatedAt) > limit {
			retired = append(retired, s.retire(b, ReasonExpired))
		}
	}

	s.recount()
	return retired
}

func matchRecord(records []models.UsageRecord, used []bool, feature string, job *models.Job, quantity int) int {
	for i, rec := range records {
		if used[i] {
			continue
		}
		if !strings.EqualFold(rec.Feature, feature) {
			continue
		}
		if !strings.EqualFold(rec.User, job.Username) {
			continue
		}
		if !utils.SameHost(rec.LeadHost, job.LeadHost) {
			continue
		}
		if rec.Quantity < quantity {
			continue
		}
		return i
	}
	return -1
}

// retireOrphans retires every booking created before listedAt whose job is not active.
func (s *state) retireOrphans(listedAt time.Time, active func(jobID string) bool) []Retirement {
	var retired []Retirement
	for _, b := range s.sortedBookings() {
		if !b.CreatedAt.Before(listedAt) || active(b.JobID) {
			continue
		}
		retired = append(retired, s.retire(b, ReasonOrphaned))
	}
	s.recount()
	return retired
}

func (s *state) featureList() []models.Feature {
	out := make([]models.Feature, 0, len(s.features))
	for _, f := range s.features {
		out = append(out, *f)
	}
	sort.Slice(out, func(i, k int) bool {
		if out[i].Product != out[k].Product {
			return out[i].Product < out[k].Product
		}
		if out[i].Name != out[k].Name {
			return out[i].Name < out[k].Name
		}
		return out[i].ID < out[k].ID
	})
	return out
}

func (s *state) jobList() []models.Job {
	out := make([]models.Job, 0, len(s.jobs))
	for _, j := range s.jobs {
		cp := *j
		cp.Bookings = append([]models.Booking(nil), j.Bookings...)
		out = append(out, cp)
	}
	sort.Slice(out, func(i, k int) bool { return out[i].SlurmJobID < out[k].SlurmJobID })
	return out
}
