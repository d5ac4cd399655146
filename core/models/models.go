package models

import (
	"sort"
	"strings"
	"time"
)

// ServerType identifies the vendor license server family a configuration talks to.
type ServerType string

const (
	ServerTypeFlexLM   ServerType = "flexlm"
	ServerTypeRLM      ServerType = "rlm"
	ServerTypeLMX      ServerType = "lmx"
	ServerTypeLSDyna   ServerType = "lsdyna"
	ServerTypeOLicense ServerType = "olicense"
	ServerTypeDSLS     ServerType = "dsls"
)

// ServerTypes lists every supported server type in a stable order.
var ServerTypes = []ServerType{
	ServerTypeFlexLM,
	ServerTypeRLM,
	ServerTypeLMX,
	ServerTypeLSDyna,
	ServerTypeOLicense,
	ServerTypeDSLS,
}

// IsValid checks if the server type is one of the supported vendors.
func (t ServerType) IsValid() bool {
	for _, known := range ServerTypes {
		if t == known {
			return true
		}
	}
	return false
}

// ParseServerType converts a case-insensitive name into a ServerType.
func ParseServerType(s string) (ServerType, bool) {
	t := ServerType(strings.ToLower(strings.TrimSpace(s)))
	return t, t.IsValid()
}

// FeatureKey identifies a licensable unit as (product, feature).
type FeatureKey struct {
	Product string `json:"product"`
	Name    string `json:"feature"`
}

// String returns the dotted "product.feature" form used in job license requests.
func (k FeatureKey) String() string {
	return k.Product + "." + k.Name
}

// ParseFeatureKey parses "product.feature". Both parts must be non-empty.
func ParseFeatureKey(s string) (FeatureKey, bool) {
	product, name, ok := strings.Cut(strings.TrimSpace(s), ".")
	if !ok || product == "" || name == "" {
		return FeatureKey{}, false
	}
	return FeatureKey{Product: product, Name: name}, true
}

// LicenseServer is one host:port endpoint of a vendor license server.
type LicenseServer struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

// Feature is the agent's view of one licensable unit.
// Available is always Total - Used - Booked - Reserved clamped at zero.
type Feature struct {
	ID              int64      `json:"id"`
	Product         string     `json:"product"`
	Name            string     `json:"name"`
	ConfigurationID int64      `json:"configuration_id"`
	ServerType      ServerType `json:"-"`
	Total           int        `json:"total"`
	Used            int        `json:"used"`
	Booked          int        `json:"booked"`
	Reserved        int        `json:"reserved"`
	Available       int        `json:"available"`

	// GraceTime overrides the agent-wide grace time when non-zero.
	GraceTime time.Duration `json:"-"`
}

// Key returns the feature's (product, feature) identity.
func (f Feature) Key() FeatureKey {
	return FeatureKey{Product: f.Product, Name: f.Name}
}

// RecomputeAvailable derives Available from the other counts.
// It reports true when the raw value was negative and had to be clamped.
func (f *Feature) RecomputeAvailable() bool {
	f.Available = f.Total - f.Used - f.Booked - f.Reserved
	if f.Available < 0 {
		f.Available = 0
		return true
	}
	return false
}

// Configuration groups features served by the same set of license servers.
type Configuration struct {
	ID               int64           `json:"id"`
	Name             string          `json:"name"`
	ServerType       ServerType      `json:"type"`
	GraceTimeSeconds int             `json:"grace_time"`
	LicenseServers   []LicenseServer `json:"license_servers"`
	Features         []Feature       `json:"features"`
}

// GraceTime returns the configured grace time as a duration.
func (c Configuration) GraceTime() time.Duration {
	return time.Duration(c.GraceTimeSeconds) * time.Second
}

// UsageRecord is one observed checkout line from a vendor server.
type UsageRecord struct {
	Feature  string `json:"feature"`
	User     string `json:"user"`
	LeadHost string `json:"lead_host"`
	Quantity int    `json:"quantity"`
}

// FeatureCount is the capacity and checkout count a vendor reports for a feature.
type FeatureCount struct {
	Total int `json:"total"`
	Used  int `json:"used"`
}

// ServerReport is the normalized output of a single vendor report.
type ServerReport struct {
	// Features is keyed by the vendor's feature name.
	Features map[string]FeatureCount `json:"features"`
	// Records holds one entry per checkout line.
	Records []UsageRecord `json:"records"`
}

// NewServerReport returns an empty report ready to be filled by a parser.
func NewServerReport() *ServerReport {
	return &ServerReport{
		Features: make(map[string]FeatureCount),
		Records:  []UsageRecord{},
	}
}

// Empty reports whether the parser recognized nothing at all.
func (r *ServerReport) Empty() bool {
	return r == nil || (len(r.Features) == 0 && len(r.Records) == 0)
}

// Lookup finds a feature count by name, ignoring case.
func (r *ServerReport) Lookup(name string) (FeatureCount, bool) {
	if r == nil {
		return FeatureCount{}, false
	}
	if fc, ok := r.Features[name]; ok {
		return fc, true
	}
	for k, fc := range r.Features {
		if strings.EqualFold(k, name) {
			return fc, true
		}
	}
	return FeatureCount{}, false
}

// Booking is a reservation of feature capacity for a dispatched job.
type Booking struct {
	ID        int64     `json:"id"`
	JobID     string    `json:"slurm_job_id"`
	FeatureID int64     `json:"feature_id"`
	Quantity  int       `json:"quantity"`
	CreatedAt time.Time `json:"created_at"`
}

// Job is the workload manager job a set of bookings belongs to.
type Job struct {
	SlurmJobID string    `json:"slurm_job_id"`
	ClusterID  string    `json:"cluster_client_id"`
	Username   string    `json:"username"`
	LeadHost   string    `json:"lead_host"`
	Bookings   []Booking `json:"bookings"`
}

// ClusterStatus is the heartbeat the backend uses to judge agent liveness.
type ClusterStatus struct {
	ClusterClientID string    `json:"cluster_client_id"`
	Interval        int       `json:"interval"`
	LastReported    time.Time `json:"last_reported"`
}

// Snapshot is the backend's current view of configurations and open jobs.
type Snapshot struct {
	Configurations []Configuration `json:"configurations"`
	Jobs           []Job           `json:"jobs"`
}

// FeatureReport is the reconciled count for one feature.
type FeatureReport struct {
	FeatureID int64  `json:"feature_id"`
	Product   string `json:"product"`
	Feature   string `json:"feature"`
	Total     int    `json:"total"`
	Used      int    `json:"used"`
	Booked    int    `json:"booked"`
	Reserved  int    `json:"reserved"`
	Available int    `json:"available"`
}

// Report is the payload submitted to the backend once per reconciliation cycle.
type Report struct {
	ClusterClientID string          `json:"cluster_client_id"`
	Features        []FeatureReport `json:"features"`
	RetiredBookings []int64         `json:"retired_bookings"`
}

// Sort orders features by product, feature and retired bookings by id so that
// equal inputs produce byte-identical payloads.
func (r *Report) Sort() {
	sort.Slice(r.Features, func(i, j int) bool {
		if r.Features[i].Product != r.Features[j].Product {
			return r.Features[i].Product < r.Features[j].Product
		}
		return r.Features[i].Feature < r.Features[j].Feature
	})
	sort.Slice(r.RetiredBookings, func(i, j int) bool {
		return r.RetiredBookings[i] < r.RetiredBookings[j]
	})
}
