// Package server holds the local agent API configuration.
//
// The API itself is assembled in cmd/run.go from the feature loaders. Job hooks
// running on the same host reach it through Config.URL.
package server
