package cmd

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupCmd_Run(t *testing.T) {
	t.Run("SetupClaudeLocal", func(t *testing.T) {
		dir := t.TempDir()

		cmd := &SetupCmd{Client: "claude"}
		require.NoError(t, cmd.Run(&Globals{Dir: dir}))

		configPath := filepath.Join(dir, ".claude", "mcp.json")
		data, err := os.ReadFile(configPath)
		require.NoError(t, err)

		var config map[string]any
		require.NoError(t, json.Unmarshal(data, &config))
		servers, ok := config["mcpServers"].(map[string]any)
		require.True(t, ok)
		assert.Contains(t, servers, "modmap")
	})

	t.Run("SetupCursorLocal", func(t *testing.T) {
		dir := t.TempDir()

		cmd := &SetupCmd{Client: "cursor"}
		require.NoError(t, cmd.Run(&Globals{Dir: dir}))

		_, err := os.Stat(filepath.Join(dir, ".cursor", "mcp.json"))
		assert.NoError(t, err)
	})

	t.Run("SetupGlobal", func(t *testing.T) {
		tmpHome := t.TempDir()
		t.Setenv("HOME", tmpHome)

		cmd := &SetupCmd{Client: "claude", Global: true}
		require.NoError(t, cmd.Run(&Globals{Dir: t.TempDir()}))

		_, err := os.Stat(filepath.Join(tmpHome, ".claude", "mcp.json"))
		assert.NoError(t, err)
	})

	t.Run("OverwritesExisting", func(t *testing.T) {
		dir := t.TempDir()
		configPath := filepath.Join(dir, ".claude", "mcp.json")
		require.NoError(t, os.MkdirAll(filepath.Dir(configPath), 0o755))
		require.NoError(t, os.WriteFile(configPath, []byte("{}"), 0o644))

		cmd := &SetupCmd{Client: "claude"}
		require.NoError(t, cmd.Run(&Globals{Dir: dir}))

		data, err := os.ReadFile(configPath)
		require.NoError(t, err)
		assert.Contains(t, string(data), "serve")
	})
}
