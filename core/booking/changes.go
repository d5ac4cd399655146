package booking

import (
	"license-agent/core/models"
)

// changes holds the hook activity recorded between Ledger.Mark and Ledger.Begin.
type changes struct {
	created map[string]*models.Job
	gone    map[string]struct{}
}

func newChanges() *changes {
	return &changes{
		created: make(map[string]*models.Job),
		gone:    make(map[string]struct{}),
	}
}

func (c *changes) booked(j *models.Job) {
	cp := *j
	cp.Bookings = append([]models.Booking(nil), j.Bookings...)
	c.created[cp.SlurmJobID] = &cp
	delete(c.gone, cp.SlurmJobID)
}

func (c *changes) released(jobID string) {
	delete(c.created, jobID)
	c.gone[jobID] = struct{}{}
}

// replay applies the recorded activity to a freshly loaded state. A snapshot
// fetched after a booking already contains it; bookings on features the
// snapshot no longer has are dropped.
func (c *changes) replay(s *state) {
	for id := range c.gone {
		delete(s.jobs, id)
	}
	for id, j := range c.created {
		if _, ok := s.jobs[id]; ok {
			continue
		}
		cp := *j
		cp.Bookings = cp.Bookings[:0:0]
		for _, b := range j.Bookings {
			if _, ok := s.features[b.FeatureID]; ok {
				cp.Bookings = append(cp.Bookings, b)
			}
		}
		if len(cp.Bookings) > 0 {
			s.jobs[id] = &cp
		}
	}
	s.recount()
}
