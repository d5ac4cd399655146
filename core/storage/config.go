package storage

// Config holds configuration for the report archive.
type Config struct {
	// Enabled turns archiving of submitted reports on.
	Enabled bool `mapstructure:"enabled" default:"false"`
	// Endpoint is the URL of the storage service.
	Endpoint string `mapstructure:"endpoint" default:"localhost:9000"`
	// AccessKey is the access key ID for authentication.
	AccessKey string `mapstructure:"access_key" default:"minioadmin"`
	// SecretKey is the secret access key for authentication.
	SecretKey string `mapstructure:"secret_key" default:"minioadmin"`
	// UseSSL indicates whether to use SSL/TLS for connections.
	UseSSL bool `mapstructure:"use_ssl" default:"false"`
	// Bucket is the name of the bucket to store reports in.
	Bucket string `mapstructure:"bucket" default:"license-reports"`
	// Prefix is prepended to every object key.
	Prefix string `mapstructure:"prefix" default:"reports"`
	// Region is the location of the bucket (e.g., us-east-1).
	Region string `mapstructure:"region" default:""`
	// RetentionDays is how long archived cycles are kept. Zero keeps them forever.
	RetentionDays int `mapstructure:"retention_days" default:"30"`
	// TimeoutSeconds is the connection timeout in seconds.
	TimeoutSeconds int `mapstructure:"timeout_seconds" default:"30"`
}
