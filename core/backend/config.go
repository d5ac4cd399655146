package backend

// Config holds configuration for the backend inventory API.
type Config struct {
	// BaseURL is the root URL of the backend API.
	BaseURL string `mapstructure:"base_url" default:"http://localhost:7000"`
	// Token is a static bearer token. Ignored when OIDC client credentials are set.
	Token string `mapstructure:"token" default:""`
	// OIDCTokenURL is the token endpoint used for the client credentials flow.
	OIDCTokenURL string `mapstructure:"oidc_token_url" default:""`
	// OIDCClientID is the client id for the client credentials flow.
	OIDCClientID string `mapstructure:"oidc_client_id" default:""`
	// OIDCClientSecret is the client secret for the client credentials flow.
	OIDCClientSecret string `mapstructure:"oidc_client_secret" default:""`
	// OIDCAudience is sent as the "audience" parameter of the token request.
	OIDCAudience string `mapstructure:"oidc_audience" default:""`
	// TimeoutSeconds bounds every backend request.
	TimeoutSeconds int `mapstructure:"timeout_seconds" default:"30"`
}

// UsesOIDC reports whether client credentials are configured.
func (c Config) UsesOIDC() bool {
	return c.OIDCTokenURL != "" && c.OIDCClientID != ""
}
