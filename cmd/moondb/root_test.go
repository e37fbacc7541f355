package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExec_ConfigFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "moondb.yaml")
	content := []byte("storage:\n  shards: 4\n  maxmemory: 64kib\ngc:\n  enabled: false\nmetrics:\n  enabled: false\n")
	require.NoError(t, os.WriteFile(file, content, 0o600))

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
		configFile = ""
	})

	// the flag beats the file
	rootCmd.SetArgs([]string{"--config-file", file, "--maxmemory-policy", "allkeys-lfu", "exec", "CONFIG", "GET", "maxmemory*"})
	require.NoError(t, rootCmd.Execute())

	got := out.String()
	assert.Contains(t, got, `"maxmemory" => "65536"`)
	assert.Contains(t, got, `"maxmemory-policy" => "allkeys-lfu"`)
}
