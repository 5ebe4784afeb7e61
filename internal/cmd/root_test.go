package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlagDefaults(t *testing.T) {
	for flag, def := range map[string]string{
		"distro":      "rolling",
		"path":        "rosdistro",
		"config-file": "",
		"max-repos":   "-1",
		"index-url":   "",
	} {
		f := rootCmd.Flags().Lookup(flag)
		require.NotNil(t, f, "flag %s should exist", flag)
		assert.Equal(t, def, f.DefValue, "default of --%s", flag)
	}
}

func TestFlagShorthands(t *testing.T) {
	assert.Equal(t, "d", rootCmd.Flags().Lookup("distro").Shorthand)
	assert.Equal(t, "p", rootCmd.Flags().Lookup("path").Shorthand)
	assert.Equal(t, "c", rootCmd.Flags().Lookup("config-file").Shorthand)
	assert.Equal(t, "m", rootCmd.Flags().Lookup("max-repos").Shorthand)
}

func TestVersionCommandRegistered(t *testing.T) {
	found := false
	for _, c := range rootCmd.Commands() {
		if c.Name() == "version" {
			found = true
		}
	}
	assert.True(t, found)
}
