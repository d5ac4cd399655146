package server

import "net"

// Config holds configuration for the local agent API.
type Config struct {
	// Host is the interface the API listens on.
	Host string `mapstructure:"host" default:"127.0.0.1"`
	// Port is the port where the server will listen.
	Port string `mapstructure:"port" default:"8080"`
	// ApiKey is the secret key required to access the API. Empty disables auth.
	ApiKey string `mapstructure:"api_key" default:""`
}

// Addr returns the listen address.
func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, c.Port)
}

// URL returns the base URL job hooks use to reach the API.
func (c Config) URL() string {
	host := c.Host
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
	}
	return "http://" + net.JoinHostPort(host, c.Port)
}
