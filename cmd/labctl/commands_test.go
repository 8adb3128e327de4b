package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lab-production-engine/internal/entity"
)

func TestParseMachineStatus(t *testing.T) {
	st, err := parseMachineStatus(" busy ")
	require.NoError(t, err)
	assert.Equal(t, entity.MachineBusy, st)

	st, err = parseMachineStatus("MAINTENANCE")
	require.NoError(t, err)
	assert.Equal(t, entity.MachineMaintenance, st)

	_, err = parseMachineStatus("broken")
	assert.Error(t, err)
}

func TestPrintJSON_Indented(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printJSON(&buf, map[string]int{"a": 1}))
	assert.Equal(t, "{\n  \"a\": 1\n}\n", buf.String())
}

func TestRootCommand_RegistersSubcommands(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"migrate", "optimize", "monitor", "forecast", "machines", "submit"} {
		assert.True(t, names[want], "missing %s", want)
	}
	assert.Equal(t, "30", forecastCmd.Flags().Lookup("horizon").DefValue)
}
