package models_test

import (
	"testing"

	"license-agent/core/models"

	"github.com/stretchr/testify/assert"
)

func TestParseServerType(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  models.ServerType
		ok    bool
	}{
		{"FlexLM", "flexlm", models.ServerTypeFlexLM, true},
		{"MixedCase", " RLM ", models.ServerTypeRLM, true},
		{"DSLS", "dsls", models.ServerTypeDSLS, true},
		{"Invalid", "sentinel", "sentinel", false},
		{"Empty", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := models.ParseServerType(tt.input)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseFeatureKey(t *testing.T) {
	key, ok := models.ParseFeatureKey("abaqus.standard")
	assert.True(t, ok)
	assert.Equal(t, models.FeatureKey{Product: "abaqus", Name: "standard"}, key)
	assert.Equal(t, "abaqus.standard", key.String())

	_, ok = models.ParseFeatureKey("abaqus")
	assert.False(t, ok)
	_, ok = models.ParseFeatureKey(".standard")
	assert.False(t, ok)
}

func TestServerReport_Lookup(t *testing.T) {
	r := models.NewServerReport()
	assert.True(t, r.Empty())

	r.Features["TESTFEATURE"] = models.FeatureCount{Total: 10, Used: 3}

	fc, ok := r.Lookup("testfeature")
	assert.True(t, ok)
	assert.Equal(t, 10, fc.Total)
	assert.False(t, r.Empty())

	_, ok = r.Lookup("other")
	assert.False(t, ok)
}

func TestReport_Sort(t *testing.T) {
	r := &models.Report{
		Features: []models.FeatureReport{
			{Product: "b", Feature: "x"},
			{Product: "a", Feature: "z"},
			{Product: "a", Feature: "y"},
		},
		RetiredBookings: []int64{9, 2, 5},
	}
	r.Sort()

	assert.Equal(t, "y", r.Features[0].Feature)
	assert.Equal(t, "z", r.Features[1].Feature)
	assert.Equal(t, "b", r.Features[2].Product)
	assert.Equal(t, []int64{2, 5, 9}, r.RetiredBookings)
}

func TestFeature_RecomputeAvailable(t *testing.T) {
	f := models.Feature{Total: 10, Used: 3, Booked: 2, Reserved: 1}
	assert.False(t, f.RecomputeAvailable())
	assert.Equal(t, 4, f.Available)

	f.Used = 12
	assert.True(t, f.RecomputeAvailable())
	assert.Equal(t, 0, f.Available)
}
