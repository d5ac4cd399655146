package cmd

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"license-agent/core/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCommand(t *testing.T) {
	raw := "Users of abaqus:  (Total of 10 licenses issued;  Total of 2 licenses in use)\n" +
		"jdoe somehost tty (v2021.1) (flexserv/1234 5678), start Mon 3/4 10:15, 2 licenses\n"

	var out bytes.Buffer
	RootCmd.SetIn(strings.NewReader(raw))
	RootCmd.SetOut(&out)
	RootCmd.SetArgs([]string{"parse", "--type", "FlexLM"})
	t.Cleanup(func() {
		RootCmd.SetIn(nil)
		RootCmd.SetOut(nil)
		RootCmd.SetArgs(nil)
	})

	require.NoError(t, RootCmd.Execute())

	var report models.ServerReport
	require.NoError(t, json.Unmarshal(out.Bytes(), &report))
	assert.Equal(t, models.FeatureCount{Total: 10, Used: 2}, report.Features["abaqus"])
	require.Len(t, report.Records, 1)
	assert.Equal(t, "somehost", report.Records[0].LeadHost)
}

func TestParseCommand_UnknownType(t *testing.T) {
	RootCmd.SetArgs([]string{"parse", "--type", "sentinel"})
	t.Cleanup(func() { RootCmd.SetArgs(nil) })

	assert.ErrorContains(t, RootCmd.Execute(), "unknown license server type")
}
