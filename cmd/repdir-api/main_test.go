package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"repdir-backend/internal/directory"
	"repdir-backend/internal/model"
)

// useFileConfig points configPath at a config whose file backend holds data.
func useFileConfig(t *testing.T, data string) {
	t.Helper()
	for _, key := range []string{"PORT", "REPDIR_HTTP_ADDR", "REPDIR_STORAGE", "REPDIR_DATA_FILE", "KAFKA_BROKER"} {
		t.Setenv(key, "")
	}

	dir := t.TempDir()
	dataPath := filepath.Join(dir, "data.json")
	require.NoError(t, os.WriteFile(dataPath, []byte(data), 0o644))

	cfgPath := filepath.Join(dir, "repdir.yaml")
	cfg := "storage:\n  backend: file\n  file_path: " + dataPath + "\n"
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfg), 0o644))

	prev := configPath
	configPath = cfgPath
	t.Cleanup(func() { configPath = prev })
}

func execute(t *testing.T, cmd *cobra.Command) []byte {
	t.Helper()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{})
	require.NoError(t, cmd.Execute())
	return out.Bytes()
}

const storedDirectory = `{
  " Pune ": [
    {"name": "Asha Patil", "designation": "MLA", "phone": "9876543210", "email": ""},
    {"name": "Ravi Kale", "designation": "MP", "phone": "", "email": ""}
  ],
  "nashik": [
    {"name": "Meera Joshi", "designation": "Sarpanch", "phone": "", "email": ""}
  ]
}`

func TestExportCmd(t *testing.T) {
	useFileConfig(t, storedDirectory)

	var got model.Directory
	require.NoError(t, json.Unmarshal(execute(t, exportCmd()), &got))

	assert.Equal(t, []string{"nashik", "pune"}, got.Localities())
	require.Len(t, got["pune"], 2)
	assert.Equal(t, "Asha Patil", got["pune"][0].Name)
	assert.Equal(t, "Meera Joshi", got["nashik"][0].Name)
}

func TestStatsCmd(t *testing.T) {
	useFileConfig(t, storedDirectory)

	var got directory.Stats
	require.NoError(t, json.Unmarshal(execute(t, statsCmd()), &got))

	assert.Equal(t, 3, got.Total)
	assert.Equal(t, 2, got.Localities)
	assert.Equal(t, 1, got.MLA)
	assert.Equal(t, 1, got.MP)
	assert.Equal(t, 1, got.ByDesignation["Sarpanch"])
}

func TestExportCmd_EmptyStore(t *testing.T) {
	useFileConfig(t, "{}")
	assert.JSONEq(t, "{}", string(execute(t, exportCmd())))
}

func TestWatchCmdRequiresBroker(t *testing.T) {
	useFileConfig(t, "{}")
	cmd := watchCmd()
	cmd.SetArgs([]string{})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	assert.ErrorContains(t, cmd.Execute(), "kafka_broker")
}
