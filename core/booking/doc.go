// Package booking implements the booking ledger.
//
// A booking reserves a quantity of one feature for a job between dispatch and
// the moment the job's processes check the licenses out of the vendor server.
// Without bookings, several jobs dispatched in the same interval could all see
// the same free capacity.
//
// A booking leaves the ledger in one of four ways:
//
//   - confirmed: a usage record with the same feature, user and lead host covers it
//   - expired: it is older than the grace time and nothing corroborates it
//   - orphaned: the workload manager no longer knows the job
//   - released: the job's epilog removed it
//
// Job hooks call CreateBooking and ReleaseBooking directly. The reconcile cycle
// works on a transaction (Begin, Commit, Rollback) so that an abandoned cycle
// leaves the ledger untouched. Both paths are serialized by a single mutex.
package booking
