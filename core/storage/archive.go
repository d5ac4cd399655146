package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"
	"regexp"
	"strings"
	"sync"
	"time"

	"license-agent/core/reconcile"

	"github.com/coder/quartz"
	"github.com/minio/minio-go/v7"
	"go.uber.org/zap"
)

const pruneEvery = 24 * time.Hour

var unsafeKeyChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// Archiver stores every submitted report, and the raw tool output behind it,
// under <prefix>/<yyyy>/<mm>/<dd>/<cycle id>/.
type Archiver struct {
	client    Client
	bucket    string
	prefix    string
	retention time.Duration
	clock     quartz.Clock
	logger    *zap.Logger

	mu        sync.Mutex
	lastPrune time.Time
}

// NewArchiver creates an archiver writing to cfg.Bucket.
func NewArchiver(client Client, cfg Config, logger *zap.Logger, clock quartz.Clock) *Archiver {
	if clock == nil {
		clock = quartz.NewReal()
	}
	return &Archiver{
		client:    client,
		bucket:    cfg.Bucket,
		prefix:    strings.Trim(cfg.Prefix, "/"),
		retention: time.Duration(cfg.RetentionDays) * 24 * time.Hour,
		clock:     clock,
		logger:    logger,
	}
}

// EnsureBucket creates the bucket if it does not exist yet.
func (a *Archiver) EnsureBucket(ctx context.Context) error {
	exists, err := a.client.BucketExists(ctx, a.bucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", a.bucket, err)
	}
	if exists {
		return nil
	}
	if err := a.client.MakeBucket(ctx, a.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("create bucket %s: %w", a.bucket, err)
	}
	a.logger.Info("Created archive bucket", zap.String("bucket", a.bucket))
	return nil
}

// Archive uploads the plan's report and raw tool output.
func (a *Archiver) Archive(ctx context.Context, plan *reconcile.Plan) error {
	dir := a.cycleDir(plan)

	body, err := json.MarshalIndent(plan, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal plan: %w", err)
	}
	if err := a.put(ctx, path.Join(dir, "report.json"), body, "application/json"); err != nil {
		return err
	}

	for _, o := range plan.Outcomes {
		if o.Raw == "" {
			continue
		}
		name := unsafeKeyChars.ReplaceAllString(o.Name, "_") + ".txt"
		if err := a.put(ctx, path.Join(dir, "raw", name), []byte(o.Raw), "text/plain"); err != nil {
			return err
		}
	}

	if a.pruneDue() {
		removed, err := a.Prune(ctx)
		if err != nil {
			a.logger.Warn("Failed to prune archive", zap.Error(err))
		} else if removed > 0 {
			a.logger.Info("Pruned archive", zap.Int("objects", removed))
		}
	}
	return nil
}

// Prune removes archived objects older than the retention period.
func (a *Archiver) Prune(ctx context.Context) (int, error) {
	now := a.clock.Now()
	a.mu.Lock()
	a.lastPrune = now
	a.mu.Unlock()
	cutoff := now.Add(-a.retention)

	var stale []minio.ObjectInfo
	for obj := range a.client.ListObjects(ctx, a.bucket, minio.ListObjectsOptions{Prefix: a.prefix, Recursive: true}) {
		if obj.Err != nil {
			return 0, fmt.Errorf("list archive: %w", obj.Err)
		}
		if obj.LastModified.Before(cutoff) {
			stale = append(stale, obj)
		}
	}
	if len(stale) == 0 {
		return 0, nil
	}

	objectsCh := make(chan minio.ObjectInfo, len(stale))
	for _, obj := range stale {
		objectsCh <- obj
	}
	close(objectsCh)

	removed := len(stale)
	for rerr := range a.client.RemoveObjects(ctx, a.bucket, objectsCh, minio.RemoveObjectsOptions{}) {
		removed--
		a.logger.Warn("Failed to remove archived object", zap.String("key", rerr.ObjectName), zap.Error(rerr.Err))
	}
	return removed, nil
}

func (a *Archiver) pruneDue() bool {
	if a.retention <= 0 {
		return false
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lastPrune.IsZero() || a.clock.Since(a.lastPrune) > pruneEvery
}

func (a *Archiver) cycleDir(plan *reconcile.Plan) string {
	started := plan.StartedAt.UTC()
	return path.Join(a.prefix, started.Format("2006/01/02"), plan.CycleID)
}

func (a *Archiver) put(ctx context.Context, key string, body []byte, contentType string) error {
	_, err := a.client.PutObject(ctx, a.bucket, key, bytes.NewReader(body), int64(len(body)), minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return fmt.Errorf("upload %s: %w", key, err)
	}
	return nil
}
