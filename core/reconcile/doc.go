// Package reconcile provides the reconciliation engine.
//
// Every cycle merges three sources into one count per feature:
//
//  1. The backend snapshot: configurations, features and open bookings.
//  2. The license servers: each configuration is queried through the Adapter
//     registered for its server type, trying its servers in order until one
//     answers. Configurations are queried concurrently up to Spec.Concurrency.
//  3. The booking ledger: bookings corroborated by a usage record, expired past
//     their grace time or held by vanished jobs are retired.
//
// The result is a models.Report with total, used, booked, reserved and
// available per feature (available = max(total - used - booked - reserved, 0))
// plus the ids of retired bookings, submitted to the backend in one request.
//
// # Failure handling
//
// A failing configuration is logged and left out of the report. If no
// configuration produced usage data the cycle fails with ErrNoUsageData.
// If the snapshot cannot be fetched or the report cannot be submitted the
// cycle is abandoned and the ledger is left exactly as it was.
//
// # Usage Example
//
//	engine := reconcile.NewEngine(spec, client, ledger, runner, adapters, log,
//	    reconcile.WithJobLister(squeue),
//	)
//	plan, err := engine.Reconcile(ctx)
//
//	// Compute without submitting
//	plan, err = engine.Run(ctx, reconcile.Options{DryRun: true})
package reconcile
