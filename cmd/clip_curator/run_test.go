package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunCommand_Registered(t *testing.T) {
	found := false
	for _, c := range rootCmd.Commands() {
		if c.Name() == "run" {
			found = true
		}
	}
	assert.True(t, found, "run command should be registered on the root command")
}

func TestRunCommand_Flags(t *testing.T) {
	for _, name := range []string{
		"config", "hashtag", "batch-size", "min-views", "max-age-hours",
		"dry-run", "verbose", "workdir", "logo",
		"apify-token", "apify-actor", "drive-folder", "db-url",
	} {
		require.NotNil(t, runCommand.Flags().Lookup(name), "flag --%s should exist", name)
	}
}

func TestRunCommand_FlagDefaultsAreUnset(t *testing.T) {
	// Defaults are applied during merging, not at flag definition, so that
	// "flag changed" detection can distinguish explicit values.
	assert.Equal(t, "", runCommand.Flags().Lookup("hashtag").DefValue)
	assert.Equal(t, "0", runCommand.Flags().Lookup("batch-size").DefValue)
	assert.Equal(t, "0", runCommand.Flags().Lookup("min-views").DefValue)
}
