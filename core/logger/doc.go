// Package logger builds the agent's zap logger.
//
// Format "console" gives a colored console encoder for interactive use (hooks,
// parse, reconcile --dry-run). Anything else gives JSON for the long-running
// agent under systemd. Output goes to stderr so reconcile --print can write
// the report to stdout.
//
// # Correlation fields
//
//   - WithRayID: the X-Ray-ID of a local API request.
//   - WithCycle: the uuid of a reconcile cycle, also used as the archive folder.
//   - WithJob: the Slurm job id a hook or booking operation acts on.
//
// # Usage
//
//	log, _ := logger.New(&logger.Config{Level: "info", Format: "json"})
//	logger.WithCycle(log, plan.CycleID).Info("Report submitted")
package logger
