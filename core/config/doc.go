// Package config provides configuration management for the license agent.
//
// It utilizes Viper for loading configuration from environment variables
// and an optional .env file. Every setting has a default declared in the
// `default` struct tag next to its `mapstructure` key.
//
// # Configuration Structure
//
// The Config struct is the central repository for all application settings, divided into subsections:
//   - Agent: cluster client id, tick interval, grace time, query concurrency, tool timeout
//   - Backend: inventory API URL and credentials (static token or OIDC client credentials)
//   - Tools: command templates per license server type and the squeue command
//   - Server: local API port and API key
//   - Archive: S3/MinIO report archive
//   - Log: Logging level and format
//
// Environment variables map to nested keys by replacing dots with underscores,
// e.g. AGENT_CLUSTER_CLIENT_ID or BACKEND_OIDC_CLIENT_SECRET.
//
// # Usage
//
//	cfg, err := config.LoadConfig(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := cfg.Validate(); err != nil {
//	    log.Fatal(err)
//	}
package config
