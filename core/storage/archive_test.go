package storage_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"license-agent/core/models"
	"license-agent/core/reconcile"
	"license-agent/core/storage"
	"license-agent/core/storage/mocks"

	"github.com/coder/quartz"
	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var t0 = time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)

func newArchiver(t *testing.T, client storage.Client, retentionDays int) (*storage.Archiver, *quartz.Mock) {
	clock := quartz.NewMock(t)
	clock.Set(t0)
	cfg := storage.Config{Bucket: "license-reports", Prefix: "reports/", RetentionDays: retentionDays}
	return storage.NewArchiver(client, cfg, zap.NewNop(), clock), clock
}

func samplePlan() *reconcile.Plan {
	return &reconcile.Plan{
		CycleID:   "c0ffee",
		StartedAt: t0,
		Report:    &models.Report{ClusterClientID: "cluster-a"},
		Outcomes: []reconcile.Outcome{
			{Name: "abaqus main", Raw: "Users of abaqus: (Total of 10 licenses issued;  Total of 2 licenses in use)"},
			{Name: "converge", Error: "lic1:5053: exit status 1"},
		},
		Submitted: true,
	}
}

func emptyList() <-chan minio.ObjectInfo {
	ch := make(chan minio.ObjectInfo)
	close(ch)
	return ch
}

func TestArchiver_EnsureBucket(t *testing.T) {
	ctx := context.Background()

	t.Run("Exists", func(t *testing.T) {
		client := new(mocks.Client)
		client.On("BucketExists", ctx, "license-reports").Return(true, nil)
		a, _ := newArchiver(t, client, 0)

		require.NoError(t, a.EnsureBucket(ctx))
		client.AssertNotCalled(t, "MakeBucket", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Creates", func(t *testing.T) {
		client := new(mocks.Client)
		client.On("BucketExists", ctx, "license-reports").Return(false, nil)
		client.On("MakeBucket", ctx, "license-reports", minio.MakeBucketOptions{}).Return(nil)
		a, _ := newArchiver(t, client, 0)

		require.NoError(t, a.EnsureBucket(ctx))
		client.AssertExpectations(t)
	})

	t.Run("Unreachable", func(t *testing.T) {
		client := new(mocks.Client)
		client.On("BucketExists", ctx, "license-reports").Return(false, errors.New("connection refused"))
		a, _ := newArchiver(t, client, 0)

		assert.ErrorContains(t, a.EnsureBucket(ctx), "connection refused")
	})
}

func TestArchiver_Archive(t *testing.T) {
	ctx := context.Background()

	t.Run("ReportAndRawOutput", func(t *testing.T) {
		client := new(mocks.Client)
		client.On("PutObject", ctx, "license-reports", "reports/2024/03/04/c0ffee/report.json",
			mock.Anything, mock.AnythingOfType("int64"),
			minio.PutObjectOptions{ContentType: "application/json"}).
			Return(minio.UploadInfo{}, nil).Once()
		client.On("PutObject", ctx, "license-reports", "reports/2024/03/04/c0ffee/raw/abaqus_main.txt",
			mock.Anything, mock.AnythingOfType("int64"),
			minio.PutObjectOptions{ContentType: "text/plain"}).
			Return(minio.UploadInfo{}, nil).Once()
		a, _ := newArchiver(t, client, 0)

		require.NoError(t, a.Archive(ctx, samplePlan()))
		client.AssertExpectations(t)
		client.AssertNumberOfCalls(t, "PutObject", 2)
		client.AssertNotCalled(t, "ListObjects", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("UploadFailure", func(t *testing.T) {
		client := new(mocks.Client)
		client.On("PutObject", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return(minio.UploadInfo{}, errors.New("access denied"))
		a, _ := newArchiver(t, client, 0)

		err := a.Archive(ctx, samplePlan())
		assert.ErrorContains(t, err, "report.json")
		client.AssertNumberOfCalls(t, "PutObject", 1)
	})

	t.Run("PrunesOncePerDay", func(t *testing.T) {
		client := new(mocks.Client)
		client.On("PutObject", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return(minio.UploadInfo{}, nil)
		client.On("ListObjects", ctx, "license-reports", minio.ListObjectsOptions{Prefix: "reports", Recursive: true}).
			Return(emptyList())
		a, clock := newArchiver(t, client, 30)

		require.NoError(t, a.Archive(ctx, samplePlan()))
		clock.Advance(time.Hour)
		require.NoError(t, a.Archive(ctx, samplePlan()))
		client.AssertNumberOfCalls(t, "ListObjects", 1)

		clock.Advance(24 * time.Hour)
		require.NoError(t, a.Archive(ctx, samplePlan()))
		client.AssertNumberOfCalls(t, "ListObjects", 2)
	})
}

func TestArchiver_Prune(t *testing.T) {
	ctx := context.Background()

	t.Run("RemovesExpired", func(t *testing.T) {
		listed := make(chan minio.ObjectInfo, 3)
		listed <- minio.ObjectInfo{Key: "reports/2024/01/01/a/report.json", LastModified: t0.AddDate(0, 0, -63)}
		listed <- minio.ObjectInfo{Key: "reports/2024/02/03/b/report.json", LastModified: t0.AddDate(0, 0, -30).Add(-time.Second)}
		listed <- minio.ObjectInfo{Key: "reports/2024/03/01/c/report.json", LastModified: t0.AddDate(0, 0, -3)}
		close(listed)

		var removed []string
		client := new(mocks.Client)
		client.On("ListObjects", ctx, "license-reports", mock.Anything).Return((<-chan minio.ObjectInfo)(listed))
		client.On("RemoveObjects", ctx, "license-reports", mock.Anything, minio.RemoveObjectsOptions{}).
			Run(func(args mock.Arguments) {
				for obj := range args.Get(2).(<-chan minio.ObjectInfo) {
					removed = append(removed, obj.Key)
				}
			}).
			Return(nil)
		a, _ := newArchiver(t, client, 30)

		n, err := a.Prune(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, n)
		assert.Equal(t, []string{"reports/2024/01/01/a/report.json", "reports/2024/02/03/b/report.json"}, removed)
	})

	t.Run("PartialFailure", func(t *testing.T) {
		listed := make(chan minio.ObjectInfo, 2)
		listed <- minio.ObjectInfo{Key: "a", LastModified: t0.AddDate(-1, 0, 0)}
		listed <- minio.ObjectInfo{Key: "b", LastModified: t0.AddDate(-1, 0, 0)}
		close(listed)
		failed := make(chan minio.RemoveObjectError, 1)
		failed <- minio.RemoveObjectError{ObjectName: "b", Err: errors.New("locked")}
		close(failed)

		client := new(mocks.Client)
		client.On("ListObjects", ctx, "license-reports", mock.Anything).Return((<-chan minio.ObjectInfo)(listed))
		client.On("RemoveObjects", ctx, "license-reports", mock.Anything, mock.Anything).
			Return((<-chan minio.RemoveObjectError)(failed))
		a, _ := newArchiver(t, client, 30)

		n, err := a.Prune(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	})

	t.Run("ListError", func(t *testing.T) {
		listed := make(chan minio.ObjectInfo, 1)
		listed <- minio.ObjectInfo{Err: errors.New("no such bucket")}
		close(listed)

		client := new(mocks.Client)
		client.On("ListObjects", ctx, "license-reports", mock.Anything).Return((<-chan minio.ObjectInfo)(listed))
		a, _ := newArchiver(t, client, 30)

		_, err := a.Prune(ctx)
		assert.ErrorContains(t, err, "no such bucket")
		client.AssertNotCalled(t, "RemoveObjects", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}
