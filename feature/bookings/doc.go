// Package bookings exposes the booking ledger to Slurm job hooks.
//
// The prolog hook calls POST /bookings when a job starts and the epilog hook
// calls DELETE /bookings/{job_id} when it ends. Client is the hook side of
// that exchange.
package bookings
