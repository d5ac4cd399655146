package bookings

import (
	"context"
	"fmt"
	"strings"

	"license-agent/core/booking"
	"license-agent/core/logger"
	"license-agent/core/models"
	"license-agent/feature/slurm"

	"go.uber.org/zap"
)

// BookRequest is what a prolog hook sends for a starting job.
type BookRequest struct {
	JobID    string                 `json:"job_id"`
	User     string                 `json:"user"`
	LeadHost string                 `json:"lead_host"`
	Licenses []slurm.LicenseRequest `json:"licenses"`
}

// BookResult tells the hook what was booked.
type BookResult struct {
	// Job is nil when none of the requested licenses is tracked by the agent.
	Job *models.Job `json:"job,omitempty"`
	// Ignored lists requested features the agent does not track.
	Ignored []string `json:"ignored"`
}

// ReleaseResult tells the hook what was released.
type ReleaseResult struct {
	JobID    string `json:"job_id"`
	Released int    `json:"released"`
}

// Service books and releases license capacity on behalf of job hooks.
type Service struct {
	ledger    *booking.Ledger
	clusterID string
	logger    *zap.Logger
}

// NewService creates a new booking service.
func NewService(ledger *booking.Ledger, clusterID string, logger *zap.Logger) *Service {
	return &Service{ledger: ledger, clusterID: clusterID, logger: logger}
}

// Book reserves the tracked licenses of a job. Licenses the agent does not
// track are reported back and otherwise ignored.
func (s *Service) Book(ctx context.Context, req BookRequest) (*BookResult, error) {
	if req.JobID == "" || req.User == "" || req.LeadHost == "" {
		return nil, fmt.Errorf("%w: job_id, user and lead_host are required", booking.ErrInvalidRequest)
	}
	log := logger.WithJob(s.logger, req.JobID)

	tracked := make(map[string]models.Feature)
	for _, f := range s.ledger.Features() {
		tracked[strings.ToLower(f.Key().String())] = f
	}

	result := &BookResult{Ignored: []string{}}
	var reqs []booking.Request
	for _, lic := range req.Licenses {
		f, ok := tracked[strings.ToLower(lic.Feature.String())]
		if !ok || (lic.ServerType != "" && lic.ServerType != f.ServerType) {
			result.Ignored = append(result.Ignored, lic.Feature.String())
			continue
		}
		reqs = append(reqs, booking.Request{Feature: lic.Feature, Quantity: lic.Quantity})
	}

	if len(result.Ignored) > 0 {
		log.Debug("Ignoring untracked licenses", zap.Strings("features", result.Ignored))
	}
	if len(reqs) == 0 {
		return result, nil
	}

	job := models.Job{
		SlurmJobID: req.JobID,
		ClusterID:  s.clusterID,
		Username:   req.User,
		LeadHost:   req.LeadHost,
	}
	created, err := s.ledger.CreateBooking(ctx, job, reqs...)
	if err != nil {
		return nil, err
	}
	result.Job = created
	return result, nil
}

// Release removes all bookings of a job.
func (s *Service) Release(ctx context.Context, jobID string) (*ReleaseResult, error) {
	retired, err := s.ledger.ReleaseBooking(ctx, jobID)
	if err != nil {
		return nil, err
	}
	return &ReleaseResult{JobID: jobID, Released: len(retired)}, nil
}

// Jobs returns the jobs currently holding bookings.
func (s *Service) Jobs() []models.Job {
	return s.ledger.Jobs()
}
