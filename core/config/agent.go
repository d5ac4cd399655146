package config

import (
	"time"

	"license-agent/core/models"
	"license-agent/core/reconcile"
)

// AgentConfig holds the reconcile loop settings.
type AgentConfig struct {
	// ClusterClientID identifies this cluster in the backend.
	ClusterClientID string `mapstructure:"cluster_client_id" default:""`
	// IntervalSeconds is the time between two scheduler ticks.
	IntervalSeconds int `mapstructure:"interval_seconds" default:"60"`
	// GraceTimeSeconds is how long an uncorroborated booking is kept.
	GraceTimeSeconds int `mapstructure:"grace_time_seconds" default:"300"`
	// Concurrency bounds the configurations queried at once.
	Concurrency int `mapstructure:"concurrency" default:"4"`
	// ToolTimeoutSeconds bounds every license tool invocation.
	ToolTimeoutSeconds int `mapstructure:"tool_timeout_seconds" default:"30"`
}

func (c AgentConfig) Interval() time.Duration {
	return time.Duration(c.IntervalSeconds) * time.Second
}

func (c AgentConfig) GraceTime() time.Duration {
	return time.Duration(c.GraceTimeSeconds) * time.Second
}

func (c AgentConfig) ToolTimeout() time.Duration {
	return time.Duration(c.ToolTimeoutSeconds) * time.Second
}

// ReconcileSpec converts the agent settings into engine settings.
func (c AgentConfig) ReconcileSpec() reconcile.Spec {
	return reconcile.Spec{
		ClusterClientID: c.ClusterClientID,
		GraceTime:       c.GraceTime(),
		Concurrency:     c.Concurrency,
		ToolTimeout:     c.ToolTimeout(),
	}
}

// ToolsConfig holds one command template per server type. Templates see the
// license server as {{.Host}} and {{.Port}}.
type ToolsConfig struct {
	FlexLM   string `mapstructure:"flexlm" default:"lmutil lmstat -a -c {{.Port}}@{{.Host}}"`
	RLM      string `mapstructure:"rlm" default:"rlmutil rlmstat -a -c {{.Port}}@{{.Host}}"`
	LMX      string `mapstructure:"lmx" default:"lmxendutil -licstat -host {{.Host}} -port {{.Port}}"`
	LSDyna   string `mapstructure:"lsdyna" default:"lstc_qrun -s {{.Port}}@{{.Host}} -R"`
	OLicense string `mapstructure:"olicense" default:"olixtool -s {{.Host}} -p {{.Port}} -listusage"`
	DSLS     string `mapstructure:"dsls" default:"DSLicSrv -admin -run getLicenseUsage -csv -server {{.Host}}:{{.Port}}"`

	// Squeue lists the active jobs of the cluster, one job id per line.
	Squeue string `mapstructure:"squeue" default:"squeue --noheader --format=%A"`
}

// Templates returns the configured templates keyed by server type.
// Blank templates are left out.
func (c ToolsConfig) Templates() map[models.ServerType]string {
	all := map[models.ServerType]string{
		models.ServerTypeFlexLM:   c.FlexLM,
		models.ServerTypeRLM:      c.RLM,
		models.ServerTypeLMX:      c.LMX,
		models.ServerTypeLSDyna:   c.LSDyna,
		models.ServerTypeOLicense: c.OLicense,
		models.ServerTypeDSLS:     c.DSLS,
	}
	for t, tmpl := range all {
		if tmpl == "" {
			delete(all, t)
		}
	}
	return all
}
