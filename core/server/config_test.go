package server_test

import (
	"testing"

	"license-agent/core/server"

	"github.com/stretchr/testify/assert"
)

func TestConfig_URL(t *testing.T) {
	tests := []struct {
		name     string
		host     string
		wantAddr string
		wantURL  string
	}{
		{"Loopback", "127.0.0.1", "127.0.0.1:8080", "http://127.0.0.1:8080"},
		{"AllInterfaces", "0.0.0.0", "0.0.0.0:8080", "http://127.0.0.1:8080"},
		{"Empty", "", ":8080", "http://127.0.0.1:8080"},
		{"Named", "agent.local", "agent.local:8080", "http://agent.local:8080"},
		{"IPv6", "::", "[::]:8080", "http://127.0.0.1:8080"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := server.Config{Host: tt.host, Port: "8080"}
			assert.Equal(t, tt.wantAddr, c.Addr())
			assert.Equal(t, tt.wantURL, c.URL())
		})
	}
}
