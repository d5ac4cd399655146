package mocks

import (
	"context"

	"license-agent/core/models"

	"github.com/stretchr/testify/mock"
)

// Client is a mock implementation of backend.Client
type Client struct {
	mock.Mock
}

func (m *Client) Health(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *Client) Snapshot(ctx context.Context) (*models.Snapshot, error) {
	args := m.Called(ctx)
	if snapshot, ok := args.Get(0).(*models.Snapshot); ok {
		return snapshot, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *Client) SubmitReport(ctx context.Context, report *models.Report) error {
	args := m.Called(ctx, report)
	return args.Error(0)
}

func (m *Client) CreateJob(ctx context.Context, job models.Job) (*models.Job, error) {
	args := m.Called(ctx, job)
	if created, ok := args.Get(0).(*models.Job); ok {
		return created, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *Client) DeleteJob(ctx context.Context, slurmJobID string) error {
	args := m.Called(ctx, slurmJobID)
	return args.Error(0)
}

func (m *Client) PutClusterStatus(ctx context.Context, status models.ClusterStatus) error {
	args := m.Called(ctx, status)
	return args.Error(0)
}
