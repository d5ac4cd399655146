package booking_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"license-agent/core/backend"
	"license-agent/core/backend/mocks"
	"license-agent/core/booking"
	"license-agent/core/models"

	"github.com/coder/quartz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var (
	abaqus = models.FeatureKey{Product: "abaqus", Name: "abaqus"}
	cfd    = models.FeatureKey{Product: "converge", Name: "super"}
	t0     = time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)
)

func testSnapshot() *models.Snapshot {
	return &models.Snapshot{
		Configurations: []models.Configuration{
			{
				ID: 1, Name: "abaqus", ServerType: models.ServerTypeFlexLM, GraceTimeSeconds: 0,
				Features: []models.Feature{{ID: 10, Product: "abaqus", Name: "abaqus", Total: 10, Used: 2}},
			},
			{
				ID: 2, Name: "converge", ServerType: models.ServerTypeRLM, GraceTimeSeconds: 60,
				Features: []models.Feature{{ID: 20, Product: "converge", Name: "super", Total: 5}},
			},
		},
	}
}

func newLedger(t *testing.T) (*booking.Ledger, *mocks.Client, *quartz.Mock) {
	t.Helper()
	clock := quartz.NewMock(t)
	clock.Set(t0)
	be := new(mocks.Client)
	l := booking.New(be, zap.NewNop(), booking.WithClock(clock))
	l.Load(testSnapshot())
	return l, be, clock
}

func featureByID(t *testing.T, l *booking.Ledger, id int64) models.Feature {
	t.Helper()
	for _, f := range l.Features() {
		if f.ID == id {
			return f
		}
	}
	t.Fatalf("feature %d not tracked", id)
	return models.Feature{}
}

func expectCreate(be *mocks.Client, jobID string, bookings ...models.Booking) {
	be.On("CreateJob", mock.Anything, mock.MatchedBy(func(j models.Job) bool {
		return j.SlurmJobID == jobID
	})).Return(&models.Job{SlurmJobID: jobID, Username: "jdoe", LeadHost: "node1", Bookings: bookings}, nil).Once()
}

func TestLedger_CreateBooking(t *testing.T) {
	ctx := context.Background()
	job := models.Job{SlurmJobID: "42", Username: "jdoe", LeadHost: "node1"}

	t.Run("ExactCapacity", func(t *testing.T) {
		l, be, _ := newLedger(t)
		expectCreate(be, "42", models.Booking{ID: 1, FeatureID: 10, Quantity: 8})

		created, err := l.CreateBooking(ctx, job, booking.Request{Feature: abaqus, Quantity: 8})
		require.NoError(t, err)
		require.Len(t, created.Bookings, 1)
		assert.Equal(t, int64(1), created.Bookings[0].ID)
		assert.Equal(t, t0, created.Bookings[0].CreatedAt)

		f := featureByID(t, l, 10)
		assert.Equal(t, 8, f.Booked)
		assert.Equal(t, 0, f.Available)

		_, err = l.CreateBooking(ctx, models.Job{SlurmJobID: "43"}, booking.Request{Feature: abaqus, Quantity: 1})
		assert.ErrorIs(t, err, booking.ErrCapacityExceeded)
		be.AssertExpectations(t)
	})

	t.Run("OverCapacity", func(t *testing.T) {
		l, be, _ := newLedger(t)

		_, err := l.CreateBooking(ctx, job, booking.Request{Feature: abaqus, Quantity: 9})
		require.Error(t, err)

		var capErr *booking.CapacityError
		require.True(t, errors.As(err, &capErr))
		assert.Equal(t, 9, capErr.Requested)
		assert.Equal(t, 8, capErr.Available)
		be.AssertNotCalled(t, "CreateJob", mock.Anything, mock.Anything)
	})

	t.Run("AllOrNothing", func(t *testing.T) {
		l, be, _ := newLedger(t)

		_, err := l.CreateBooking(ctx, job,
			booking.Request{Feature: abaqus, Quantity: 2},
			booking.Request{Feature: cfd, Quantity: 6},
		)
		assert.ErrorIs(t, err, booking.ErrCapacityExceeded)
		assert.Empty(t, l.Jobs())
		assert.Equal(t, 8, featureByID(t, l, 10).Available)
		be.AssertNotCalled(t, "CreateJob", mock.Anything, mock.Anything)
	})

	t.Run("SameFeatureSummed", func(t *testing.T) {
		l, _, _ := newLedger(t)

		_, err := l.CreateBooking(ctx, job,
			booking.Request{Feature: abaqus, Quantity: 5},
			booking.Request{Feature: abaqus, Quantity: 4},
		)
		assert.ErrorIs(t, err, booking.ErrCapacityExceeded)
	})

	t.Run("UnknownFeature", func(t *testing.T) {
		l, _, _ := newLedger(t)
		_, err := l.CreateBooking(ctx, job, booking.Request{Feature: models.FeatureKey{Product: "nx", Name: "cad"}, Quantity: 1})
		assert.ErrorIs(t, err, booking.ErrUnknownFeature)
	})

	t.Run("CaseInsensitiveFeature", func(t *testing.T) {
		l, be, _ := newLedger(t)
		expectCreate(be, "42", models.Booking{ID: 3, FeatureID: 10, Quantity: 1})

		_, err := l.CreateBooking(ctx, job, booking.Request{Feature: models.FeatureKey{Product: "ABAQUS", Name: "Abaqus"}, Quantity: 1})
		require.NoError(t, err)
		assert.Equal(t, 7, featureByID(t, l, 10).Available)
	})

	t.Run("InvalidQuantity", func(t *testing.T) {
		l, _, _ := newLedger(t)
		_, err := l.CreateBooking(ctx, job, booking.Request{Feature: abaqus, Quantity: 0})
		assert.ErrorIs(t, err, booking.ErrInvalidRequest)

		_, err = l.CreateBooking(ctx, job)
		assert.ErrorIs(t, err, booking.ErrInvalidRequest)
	})

	t.Run("DuplicateJob", func(t *testing.T) {
		l, be, _ := newLedger(t)
		expectCreate(be, "42", models.Booking{ID: 1, FeatureID: 10, Quantity: 1})

		_, err := l.CreateBooking(ctx, job, booking.Request{Feature: abaqus, Quantity: 1})
		require.NoError(t, err)
		_, err = l.CreateBooking(ctx, job, booking.Request{Feature: abaqus, Quantity: 1})
		assert.ErrorIs(t, err, booking.ErrDuplicateJob)
	})

	t.Run("BackendFailure", func(t *testing.T) {
		l, be, _ := newLedger(t)
		be.On("CreateJob", mock.Anything, mock.Anything).Return(nil, &backend.UnavailableError{Op: "create job", StatusCode: 503})

		_, err := l.CreateBooking(ctx, job, booking.Request{Feature: abaqus, Quantity: 1})
		assert.ErrorIs(t, err, backend.ErrUnavailable)
		assert.Empty(t, l.Jobs())
		assert.Equal(t, 8, featureByID(t, l, 10).Available)
	})

	t.Run("CallerGaveUp", func(t *testing.T) {
		l, be, _ := newLedger(t)
		expired, cancel := context.WithCancel(ctx)
		cancel()

		_, err := l.CreateBooking(expired, job, booking.Request{Feature: abaqus, Quantity: 1})
		assert.ErrorIs(t, err, context.Canceled)
		assert.Empty(t, l.Jobs())
		be.AssertNotCalled(t, "CreateJob", mock.Anything, mock.Anything)
	})
}

func TestLedger_ReleaseBooking(t *testing.T) {
	ctx := context.Background()

	t.Run("Release", func(t *testing.T) {
		l, be, _ := newLedger(t)
		expectCreate(be, "42", models.Booking{ID: 1, FeatureID: 10, Quantity: 3}, models.Booking{ID: 2, FeatureID: 20, Quantity: 1})
		be.On("DeleteJob", mock.Anything, "42").Return(nil)

		_, err := l.CreateBooking(ctx, models.Job{SlurmJobID: "42"},
			booking.Request{Feature: abaqus, Quantity: 3},
			booking.Request{Feature: cfd, Quantity: 1},
		)
		require.NoError(t, err)

		retired, err := l.ReleaseBooking(ctx, "42")
		require.NoError(t, err)
		assert.Len(t, retired, 2)
		for _, r := range retired {
			assert.Equal(t, booking.ReasonReleased, r.Reason)
		}
		assert.Empty(t, l.Jobs())
		assert.Equal(t, 8, featureByID(t, l, 10).Available)
		assert.Equal(t, 5, featureByID(t, l, 20).Available)
	})

	t.Run("UnknownJobIsNoop", func(t *testing.T) {
		l, be, _ := newLedger(t)
		be.On("DeleteJob", mock.Anything, "99").Return(nil)

		retired, err := l.ReleaseBooking(ctx, "99")
		require.NoError(t, err)
		assert.Empty(t, retired)

		retired, err = l.ReleaseBooking(ctx, "99")
		require.NoError(t, err)
		assert.Empty(t, retired)
		be.AssertNumberOfCalls(t, "DeleteJob", 2)
	})

	t.Run("BackendFailureKeepsBookings", func(t *testing.T) {
		l, be, _ := newLedger(t)
		expectCreate(be, "42", models.Booking{ID: 1, FeatureID: 10, Quantity: 3})
		be.On("DeleteJob", mock.Anything, "42").Return(backend.ErrUnavailable)

		_, err := l.CreateBooking(ctx, models.Job{SlurmJobID: "42"}, booking.Request{Feature: abaqus, Quantity: 3})
		require.NoError(t, err)

		_, err = l.ReleaseBooking(ctx, "42")
		assert.ErrorIs(t, err, backend.ErrUnavailable)
		assert.Len(t, l.Jobs(), 1)
	})
}

func snapshotWithBookings(jobs ...models.Job) *models.Snapshot {
	s := testSnapshot()
	s.Jobs = jobs
	return s
}

func TestLedger_ExpireStale(t *testing.T) {
	grace := 5 * time.Minute
	job := func(id, user, host string, b ...models.Booking) models.Job {
		return models.Job{SlurmJobID: id, Username: user, LeadHost: host, Bookings: b}
	}

	t.Run("WithinGraceKept", func(t *testing.T) {
		l, _, clock := newLedger(t)
		l.Load(snapshotWithBookings(job("1", "jdoe", "node1", models.Booking{ID: 1, FeatureID: 10, Quantity: 2, CreatedAt: t0})))
		clock.Advance(grace)

		assert.Empty(t, l.ExpireStale(grace, nil))
		assert.Equal(t, 2, featureByID(t, l, 10).Booked)
	})

	t.Run("PastGraceExpired", func(t *testing.T) {
		l, _, clock := newLedger(t)
		l.Load(snapshotWithBookings(job("1", "jdoe", "node1", models.Booking{ID: 1, FeatureID: 10, Quantity: 2, CreatedAt: t0})))
		clock.Advance(grace + time.Second)

		retired := l.ExpireStale(grace, nil)
		require.Len(t, retired, 1)
		assert.Equal(t, booking.ReasonExpired, retired[0].Reason)
		assert.Equal(t, "abaqus.abaqus", retired[0].Feature)
		assert.Equal(t, 0, featureByID(t, l, 10).Booked)
		assert.Empty(t, l.Jobs())
	})

	t.Run("FeatureGraceOverrides", func(t *testing.T) {
		l, _, clock := newLedger(t)
		l.Load(snapshotWithBookings(job("1", "jdoe", "node1", models.Booking{ID: 1, FeatureID: 20, Quantity: 1, CreatedAt: t0})))
		clock.Advance(61 * time.Second)

		retired := l.ExpireStale(grace, nil)
		require.Len(t, retired, 1)
		assert.Equal(t, booking.ReasonExpired, retired[0].Reason)
	})

	t.Run("CorroboratedRetiredImmediately", func(t *testing.T) {
		l, _, _ := newLedger(t)
		l.Load(snapshotWithBookings(job("1", "jdoe", "node1.cluster.local", models.Booking{ID: 1, FeatureID: 10, Quantity: 2, CreatedAt: t0})))

		retired := l.ExpireStale(grace, []models.UsageRecord{
			{Feature: "abaqus.abaqus", User: "JDOE", LeadHost: "node1", Quantity: 2},
		})
		require.Len(t, retired, 1)
		assert.Equal(t, booking.ReasonConfirmed, retired[0].Reason)
	})

	t.Run("NotCorroborated", func(t *testing.T) {
		l, _, _ := newLedger(t)
		l.Load(snapshotWithBookings(job("1", "jdoe", "node1", models.Booking{ID: 1, FeatureID: 10, Quantity: 2, CreatedAt: t0})))

		retired := l.ExpireStale(grace, []models.UsageRecord{
			{Feature: "abaqus.abaqus", User: "other", LeadHost: "node1", Quantity: 2},
			{Feature: "abaqus.abaqus", User: "jdoe", LeadHost: "node2", Quantity: 2},
			{Feature: "abaqus.abaqus", User: "jdoe", LeadHost: "node1", Quantity: 1},
			{Feature: "converge.super", User: "jdoe", LeadHost: "node1", Quantity: 2},
		})
		assert.Empty(t, retired)
		assert.Equal(t, 2, featureByID(t, l, 10).Booked)
	})

	t.Run("RecordCorroboratesOneBooking", func(t *testing.T) {
		l, _, _ := newLedger(t)
		l.Load(snapshotWithBookings(
			job("1", "jdoe", "node1", models.Booking{ID: 1, FeatureID: 10, Quantity: 1, CreatedAt: t0}),
			job("2", "jdoe", "node1", models.Booking{ID: 2, FeatureID: 10, Quantity: 1, CreatedAt: t0.Add(time.Second)}),
		))

		retired := l.ExpireStale(grace, []models.UsageRecord{
			{Feature: "abaqus.abaqus", User: "jdoe", LeadHost: "node1", Quantity: 1},
		})
		require.Len(t, retired, 1)
		assert.Equal(t, int64(1), retired[0].Booking.ID)
		assert.Equal(t, 1, featureByID(t, l, 10).Booked)
	})
}

func TestLedger_Tx(t *testing.T) {
	t.Run("RollbackLeavesLedgerUnchanged", func(t *testing.T) {
		l, _, clock := newLedger(t)
		l.Load(snapshotWithBookings(models.Job{SlurmJobID: "1", Username: "jdoe", LeadHost: "node1",
			Bookings: []models.Booking{{ID: 1, FeatureID: 10, Quantity: 2, CreatedAt: t0}}}))
		before := l.Features()
		clock.Advance(time.Hour)

		tx := l.Begin()
		assert.Len(t, tx.ExpireStale(time.Minute, nil), 1)
		_, clamped, ok := tx.SetUsage(10, 10, 12)
		assert.True(t, ok)
		assert.True(t, clamped)
		tx.Rollback()

		assert.Equal(t, before, l.Features())
		assert.Len(t, l.Jobs(), 1)
	})

	t.Run("CommitApplies", func(t *testing.T) {
		l, _, _ := newLedger(t)
		l.Load(snapshotWithBookings(models.Job{SlurmJobID: "1", Username: "jdoe", LeadHost: "node1",
			Bookings: []models.Booking{{ID: 1, FeatureID: 10, Quantity: 2, CreatedAt: t0}}}))

		tx := l.Begin()
		defer tx.Rollback()
		retired := tx.RetireOrphans(t0.Add(time.Minute), func(jobID string) bool { return false })
		require.Len(t, retired, 1)
		assert.Equal(t, booking.ReasonOrphaned, retired[0].Reason)
		f, clamped, ok := tx.SetUsage(10, 10, 4)
		require.True(t, ok)
		assert.False(t, clamped)
		assert.Equal(t, 6, f.Available)
		assert.Len(t, tx.Retired(), 1)
		tx.Commit()

		assert.Empty(t, l.Jobs())
		assert.Equal(t, 6, featureByID(t, l, 10).Available)
	})

	t.Run("LoadReplaysChangesSinceMark", func(t *testing.T) {
		ctx := context.Background()
		l, be, _ := newLedger(t)
		stale := snapshotWithBookings(models.Job{SlurmJobID: "7", Username: "asmith", LeadHost: "node2",
			Bookings: []models.Booking{{ID: 5, FeatureID: 20, Quantity: 1, CreatedAt: t0}}})
		l.Load(stale)

		// The cycle fetched its snapshot after Mark; the hooks ran while it queried.
		l.Mark()
		expectCreate(be, "42", models.Booking{ID: 6, FeatureID: 10, Quantity: 3})
		be.On("DeleteJob", mock.Anything, "7").Return(nil)
		_, err := l.CreateBooking(ctx, models.Job{SlurmJobID: "42"}, booking.Request{Feature: abaqus, Quantity: 3})
		require.NoError(t, err)
		_, err = l.ReleaseBooking(ctx, "7")
		require.NoError(t, err)

		tx := l.Begin()
		tx.Load(stale)
		tx.Commit()

		jobs := l.Jobs()
		require.Len(t, jobs, 1)
		assert.Equal(t, "42", jobs[0].SlurmJobID)
		assert.Equal(t, 3, featureByID(t, l, 10).Booked)
		assert.Equal(t, 0, featureByID(t, l, 20).Booked)
	})

	t.Run("LoadWithoutMarkTakesSnapshot", func(t *testing.T) {
		ctx := context.Background()
		l, be, _ := newLedger(t)
		expectCreate(be, "42", models.Booking{ID: 6, FeatureID: 10, Quantity: 3})
		_, err := l.CreateBooking(ctx, models.Job{SlurmJobID: "42"}, booking.Request{Feature: abaqus, Quantity: 3})
		require.NoError(t, err)

		tx := l.Begin()
		tx.Load(testSnapshot())
		tx.Commit()

		assert.Empty(t, l.Jobs())
	})

	t.Run("OrphansYoungerThanJobListKept", func(t *testing.T) {
		ctx := context.Background()
		l, be, clock := newLedger(t)
		l.Load(snapshotWithBookings(models.Job{SlurmJobID: "1", Username: "jdoe", LeadHost: "node1",
			Bookings: []models.Booking{{ID: 1, FeatureID: 10, Quantity: 2, CreatedAt: t0}}}))

		listedAt := t0.Add(30 * time.Second)
		clock.Set(t0.Add(time.Minute))
		expectCreate(be, "42", models.Booking{ID: 2, FeatureID: 20, Quantity: 1})
		_, err := l.CreateBooking(ctx, models.Job{SlurmJobID: "42"}, booking.Request{Feature: cfd, Quantity: 1})
		require.NoError(t, err)

		tx := l.Begin()
		defer tx.Rollback()
		retired := tx.RetireOrphans(listedAt, func(jobID string) bool { return false })
		require.Len(t, retired, 1)
		assert.Equal(t, "1", retired[0].Booking.JobID)
	})

	t.Run("SetUsageUnknownFeature", func(t *testing.T) {
		l, _, _ := newLedger(t)
		tx := l.Begin()
		defer tx.Rollback()
		_, _, ok := tx.SetUsage(999, 1, 1)
		assert.False(t, ok)
	})
}

func TestLedger_Load(t *testing.T) {
	l, _, _ := newLedger(t)

	assert.True(t, l.Tracks(abaqus))
	assert.False(t, l.Tracks(models.FeatureKey{Product: "nx", Name: "cad"}))

	f := featureByID(t, l, 20)
	assert.Equal(t, int64(2), f.ConfigurationID)
	assert.Equal(t, models.ServerTypeRLM, f.ServerType)
	assert.Equal(t, time.Minute, f.GraceTime)
	assert.Equal(t, 5, f.Available)
}
