package slurm

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"license-agent/core/models"
)

// Environment variables Slurm exports to prolog and epilog scripts.
// SLURMD_NODENAME is only set for slurmd hooks; slurmctld hooks get the
// node list instead.
const (
	EnvClusterName = "SLURM_CLUSTER_NAME"
	EnvJobID       = "SLURM_JOB_ID"
	EnvNodeName    = "SLURMD_NODENAME"
	EnvNodeList    = "SLURM_JOB_NODELIST"
	EnvJobUser     = "SLURM_JOB_USER"
	EnvLicenses    = "SLURM_JOB_LICENSES"
)

// ErrInvalidLicense is returned for license requests that cannot be booked.
var ErrInvalidLicense = errors.New("invalid license request")

// LicenseRequest is one entry of a job's license list.
type LicenseRequest struct {
	Feature    models.FeatureKey `json:"feature"`
	ServerType models.ServerType `json:"server_type,omitempty"`
	Quantity   int               `json:"quantity"`
}

// JobContext is what a hook knows about the job it runs for.
type JobContext struct {
	ClusterName string
	JobID       string
	LeadHost    string
	User        string
	Licenses    []LicenseRequest
}

// LookupEnv reads the job context from the environment. It returns the names
// of the required variables that are not set; the context is only usable when
// that list is empty. The lead host is SLURMD_NODENAME, or the first host of
// SLURM_JOB_NODELIST when the hook runs under slurmctld.
func LookupEnv(lookup func(string) (string, bool)) (JobContext, []string, error) {
	if lookup == nil {
		lookup = os.LookupEnv
	}

	var missing []string
	get := func(name string) string {
		v, ok := lookup(name)
		v = strings.TrimSpace(v)
		if !ok || v == "" {
			missing = append(missing, name)
		}
		return v
	}

	jc := JobContext{
		ClusterName: get(EnvClusterName),
		JobID:       get(EnvJobID),
		User:        get(EnvJobUser),
	}
	if v, _ := lookup(EnvNodeName); strings.TrimSpace(v) != "" {
		jc.LeadHost = strings.TrimSpace(v)
	} else {
		nodes, _ := lookup(EnvNodeList)
		if jc.LeadHost = FirstHost(nodes); jc.LeadHost == "" {
			missing = append(missing, EnvNodeList)
		}
	}
	if len(missing) > 0 {
		return jc, missing, nil
	}

	raw, _ := lookup(EnvLicenses)
	licenses, err := ParseLicenses(raw)
	if err != nil {
		return jc, nil, err
	}
	jc.Licenses = licenses
	return jc, nil, nil
}

// ParseLicenses parses a Slurm license list of the form
// "product.feature@servertype:qty,...". The server type is optional and the
// quantity defaults to 1. Licenses without a product prefix are local to the
// cluster and are skipped.
func ParseLicenses(raw string) ([]LicenseRequest, error) {
	var out []LicenseRequest
	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		name, qtyText, hasQty := strings.Cut(entry, ":")
		qty := 1
		if hasQty {
			n, err := strconv.Atoi(strings.TrimSpace(qtyText))
			if err != nil || n <= 0 {
				return nil, fmt.Errorf("%w: %q: quantity must be a positive integer", ErrInvalidLicense, entry)
			}
			qty = n
		}

		keyText, typeText, hasType := strings.Cut(name, "@")
		key, ok := models.ParseFeatureKey(keyText)
		if !ok {
			continue
		}

		req := LicenseRequest{Feature: key, Quantity: qty}
		if hasType {
			t, ok := models.ParseServerType(typeText)
			if !ok {
				return nil, fmt.Errorf("%w: %q: unknown server type", ErrInvalidLicense, entry)
			}
			req.ServerType = t
		}
		out = append(out, req)
	}
	return out, nil
}

// FirstHost returns the first host of a Slurm hostlist expression such as
// "gpu[07-09,12],login1" or "rack[1-2]-n[01-04]". It returns "" for an empty
// or malformed list.
func FirstHost(nodelist string) string {
	nodelist = strings.TrimSpace(nodelist)

	// The first entry ends at the first comma outside brackets.
	depth, end := 0, len(nodelist)
scan:
	for i, r := range nodelist {
		switch r {
		case '[':
			depth++
		case ']':
			depth--
		case ',':
			if depth == 0 {
				end = i
				break scan
			}
		}
	}
	entry := strings.TrimSpace(nodelist[:end])

	var host strings.Builder
	for entry != "" {
		open := strings.IndexByte(entry, '[')
		if open < 0 {
			host.WriteString(entry)
			break
		}
		shut := strings.IndexByte(entry[open:], ']')
		if shut < 0 {
			return ""
		}
		shut += open
		first, _, _ := strings.Cut(entry[open+1:shut], ",")
		first, _, _ = strings.Cut(first, "-")
		if first == "" {
			return ""
		}
		host.WriteString(entry[:open])
		host.WriteString(first)
		entry = entry[shut+1:]
	}
	return host.String()
}
