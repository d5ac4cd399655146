// Package status serves GET /status and GET /health of the local agent API.
package status
