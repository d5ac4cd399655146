// Package middleware groups the Fiber middleware of the local agent API.
//
// # Subpackages
//
//   - auth: checks the X-API-Key header used by the prolog and epilog hooks.
//     Paths in the skip list (the health probe) stay open.
//   - rayid: tags each request with an X-Ray-ID, reusing the one a hook sends
//     (job-<id>) so hook and agent log lines can be joined.
//
// cmd/run.go registers rayid first, then request logging, then auth.
package middleware
