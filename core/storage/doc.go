// Package storage archives reconcile reports in S3-compatible object storage.
//
// It wraps the MinIO Go client behind the Client interface, which makes it easy
// to mock storage interactions for unit testing (see core/storage/mocks).
//
// When archiving is enabled, every submitted plan is written as
//
//	<prefix>/<yyyy>/<mm>/<dd>/<cycle id>/report.json
//	<prefix>/<yyyy>/<mm>/<dd>/<cycle id>/raw/<configuration>.txt
//
// and objects older than the retention period are pruned at most once a day.
//
// # Usage
//
//	client, err := storage.NewClient(cfg.Archive)
//	archiver := storage.NewArchiver(client, cfg.Archive, log, nil)
//	err = archiver.EnsureBucket(ctx)
package storage
