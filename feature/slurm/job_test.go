package slurm_test

import (
	"testing"

	"license-agent/core/models"
	"license-agent/feature/slurm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envMap(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func TestParseLicenses(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    []slurm.LicenseRequest
		wantErr bool
	}{
		{
			name: "Full",
			raw:  "abaqus.abaqus@flexlm:4,converge.super@rlm:2",
			want: []slurm.LicenseRequest{
				{Feature: models.FeatureKey{Product: "abaqus", Name: "abaqus"}, ServerType: models.ServerTypeFlexLM, Quantity: 4},
				{Feature: models.FeatureKey{Product: "converge", Name: "super"}, ServerType: models.ServerTypeRLM, Quantity: 2},
			},
		},
		{
			name: "DefaultQuantity",
			raw:  "abaqus.cae@FlexLM",
			want: []slurm.LicenseRequest{
				{Feature: models.FeatureKey{Product: "abaqus", Name: "cae"}, ServerType: models.ServerTypeFlexLM, Quantity: 1},
			},
		},
		{
			name: "NoServerType",
			raw:  " abaqus.cae:3 ",
			want: []slurm.LicenseRequest{
				{Feature: models.FeatureKey{Product: "abaqus", Name: "cae"}, Quantity: 3},
			},
		},
		{
			name: "LocalLicenseSkipped",
			raw:  "matlab:1,abaqus.cae@flexlm:1",
			want: []slurm.LicenseRequest{
				{Feature: models.FeatureKey{Product: "abaqus", Name: "cae"}, ServerType: models.ServerTypeFlexLM, Quantity: 1},
			},
		},
		{name: "Empty", raw: ""},
		{name: "ZeroQuantity", raw: "abaqus.cae@flexlm:0", wantErr: true},
		{name: "BadQuantity", raw: "abaqus.cae@flexlm:two", wantErr: true},
		{name: "UnknownServerType", raw: "abaqus.cae@sentinel:1", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := slurm.ParseLicenses(tt.raw)
			if tt.wantErr {
				assert.ErrorIs(t, err, slurm.ErrInvalidLicense)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLookupEnv(t *testing.T) {
	full := map[string]string{
		slurm.EnvClusterName: "osc",
		slurm.EnvJobID:       "1234",
		slurm.EnvNodeName:    "node01",
		slurm.EnvJobUser:     "jdoe",
		slurm.EnvLicenses:    "abaqus.abaqus@flexlm:2",
	}

	t.Run("Complete", func(t *testing.T) {
		jc, missing, err := slurm.LookupEnv(envMap(full))
		require.NoError(t, err)
		assert.Empty(t, missing)
		assert.Equal(t, "1234", jc.JobID)
		assert.Equal(t, "node01", jc.LeadHost)
		assert.Equal(t, "jdoe", jc.User)
		assert.Equal(t, "osc", jc.ClusterName)
		require.Len(t, jc.Licenses, 1)
		assert.Equal(t, 2, jc.Licenses[0].Quantity)
	})

	t.Run("Missing", func(t *testing.T) {
		_, missing, err := slurm.LookupEnv(envMap(map[string]string{
			slurm.EnvJobID:    "1234",
			slurm.EnvJobUser:  "  ",
			slurm.EnvLicenses: "abaqus.abaqus@flexlm:2",
		}))
		require.NoError(t, err)
		assert.Equal(t, []string{slurm.EnvClusterName, slurm.EnvJobUser, slurm.EnvNodeList}, missing)
	})

	t.Run("SlurmctldNodeList", func(t *testing.T) {
		env := map[string]string{}
		for k, v := range full {
			env[k] = v
		}
		delete(env, slurm.EnvNodeName)
		env[slurm.EnvNodeList] = "gpu[07-09,12],login1"

		jc, missing, err := slurm.LookupEnv(envMap(env))
		require.NoError(t, err)
		assert.Empty(t, missing)
		assert.Equal(t, "gpu07", jc.LeadHost)
	})

	t.Run("NodeNameWins", func(t *testing.T) {
		env := map[string]string{}
		for k, v := range full {
			env[k] = v
		}
		env[slurm.EnvNodeList] = "gpu[07-09]"

		jc, _, err := slurm.LookupEnv(envMap(env))
		require.NoError(t, err)
		assert.Equal(t, "node01", jc.LeadHost)
	})

	t.Run("NoLicenses", func(t *testing.T) {
		env := map[string]string{}
		for k, v := range full {
			env[k] = v
		}
		delete(env, slurm.EnvLicenses)

		jc, missing, err := slurm.LookupEnv(envMap(env))
		require.NoError(t, err)
		assert.Empty(t, missing)
		assert.Empty(t, jc.Licenses)
	})

	t.Run("BadLicenses", func(t *testing.T) {
		env := map[string]string{}
		for k, v := range full {
			env[k] = v
		}
		env[slurm.EnvLicenses] = "abaqus.abaqus@flexlm:-1"

		_, _, err := slurm.LookupEnv(envMap(env))
		assert.ErrorIs(t, err, slurm.ErrInvalidLicense)
	})
}

func TestFirstHost(t *testing.T) {
	tests := []struct {
		nodelist string
		want     string
	}{
		{"node01", "node01"},
		{"node01,node02", "node01"},
		{"gpu[07-09,12],login1", "gpu07"},
		{"gpu-a[3,5]", "gpu-a3"},
		{"rack[1-2]-n[01-04]", "rack1-n01"},
		{" cn[100-200] ", "cn100"},
		{"", ""},
		{"gpu[07-09", ""},
		{"gpu[]", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, slurm.FirstHost(tt.nodelist), tt.nodelist)
	}
}
