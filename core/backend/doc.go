// Package backend provides the HTTP client for the license inventory backend.
//
// The backend is the system of record for configurations, features, jobs and
// bookings. The agent talks to it through the Client interface:
//
//	client, err := backend.NewClient(cfg.Backend, cfg.Agent.ClusterClientID)
//	snapshot, err := client.Snapshot(ctx)
//
// Every transport failure and non-2xx response is returned as *UnavailableError,
// which matches ErrUnavailable with errors.Is. Requests are authenticated either
// with a static bearer token or with OIDC client credentials.
package backend
