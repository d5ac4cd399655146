// Package metrics exports agent metrics in the Prometheus format.
package metrics
