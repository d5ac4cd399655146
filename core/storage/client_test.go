package storage_test

import (
	"testing"

	"license-agent/core/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEndpoint(t *testing.T) {
	tests := []struct {
		name   string
		cfg    storage.Config
		host   string
		secure bool
	}{
		{"Bare", storage.Config{Endpoint: "minio.lab:9000"}, "minio.lab:9000", false},
		{"BareWithSSL", storage.Config{Endpoint: "minio.lab:9000", UseSSL: true}, "minio.lab:9000", true},
		{"HTTPScheme", storage.Config{Endpoint: "http://minio.lab:9000/"}, "minio.lab:9000", false},
		{"HTTPSScheme", storage.Config{Endpoint: "https://s3.amazonaws.com"}, "s3.amazonaws.com", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			host, secure := storage.Endpoint(tt.cfg)
			assert.Equal(t, tt.host, host)
			assert.Equal(t, tt.secure, secure)
		})
	}
}

func TestNewClient(t *testing.T) {
	client, err := storage.NewClient(storage.Config{
		Endpoint:  "https://s3.amazonaws.com",
		AccessKey: "archive",
		SecretKey: "secret",
		Region:    "eu-west-1",
	})
	require.NoError(t, err)
	assert.NotNil(t, client)
}
