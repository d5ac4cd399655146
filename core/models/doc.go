// Package models holds the shared domain types of the license agent.
//
// The types mirror the backend inventory's JSON schema so that the backend
// client, the booking ledger and the reconciliation engine exchange the same
// values without translation layers.
//
// # Entities
//
//   - Configuration: a set of features served by one or more license servers of a single ServerType.
//   - Feature: capacity and usage counts for a (product, feature) pair.
//   - Job and Booking: reservations created by job lifecycle hooks.
//   - UsageRecord and ServerReport: the normalized output of vendor report parsers.
//   - Report: the per-cycle payload submitted to the backend.
package models
