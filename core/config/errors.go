package config

import (
	"errors"
	"fmt"
	"strings"
)

// ErrConfiguration matches every invalid or incomplete configuration.
var ErrConfiguration = errors.New("invalid configuration")

// MissingError lists required settings that are not set.
type MissingError struct {
	Keys []string
}

func (e *MissingError) Error() string {
	return fmt.Sprintf("missing required settings: %s", strings.Join(e.Keys, ", "))
}

func (e *MissingError) Is(target error) bool {
	return target == ErrConfiguration
}

// Validate checks the settings the agent cannot run without.
func (c *Config) Validate() error {
	var missing []string
	if c.Agent.ClusterClientID == "" {
		missing = append(missing, "agent.cluster_client_id")
	}
	if c.Backend.BaseURL == "" {
		missing = append(missing, "backend.base_url")
	}
	if c.Backend.OIDCTokenURL != "" {
		if c.Backend.OIDCClientID == "" {
			missing = append(missing, "backend.oidc_client_id")
		}
		if c.Backend.OIDCClientSecret == "" {
			missing = append(missing, "backend.oidc_client_secret")
		}
	}
	if c.Archive.Enabled && c.Archive.Bucket == "" {
		missing = append(missing, "archive.bucket")
	}
	if len(missing) > 0 {
		return &MissingError{Keys: missing}
	}

	if c.Agent.IntervalSeconds <= 0 {
		return fmt.Errorf("%w: agent.interval_seconds must be positive", ErrConfiguration)
	}
	if c.Agent.GraceTimeSeconds < 0 {
		return fmt.Errorf("%w: agent.grace_time_seconds must not be negative", ErrConfiguration)
	}
	return nil
}
