package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/hakimbdev/items-api/internal/config"
	"github.com/hakimbdev/items-api/internal/stats"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runCLI(t *testing.T, items string, args ...string) (string, error) {
	t.Helper()

	dir := t.TempDir()
	dataPath := filepath.Join(dir, "items.json")
	require.NoError(t, os.WriteFile(dataPath, []byte(items), 0644))
	t.Setenv(config.EnvDataPath, dataPath)

	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs(append(args,
		"--config", filepath.Join(dir, "config.yaml"),
		"--env-file", filepath.Join(dir, ".env"),
	))

	err := root.Execute()
	return out.String(), err
}

const cliItems = `[
  {"id":1,"name":"Laptop Pro","category":"Electronics","price":999.99},
  {"id":2,"name":"Ergonomic Chair","category":"Furniture","price":799}
]`

func TestStatsCommand_JSON(t *testing.T) {
	out, err := runCLI(t, cliItems, "stats", "--json")
	require.NoError(t, err)

	var summary stats.Summary
	require.NoError(t, json.Unmarshal([]byte(out), &summary), out)
	assert.Equal(t, 2, summary.Total)
	assert.Equal(t, 1798.99, summary.TotalValue)
	assert.Equal(t, stats.PriceRange{Min: 799, Max: 999.99}, summary.PriceRange)
}

func TestStatsCommand_Text(t *testing.T) {
	out, err := runCLI(t, cliItems, "stats")
	require.NoError(t, err)

	assert.Contains(t, out, "Total Items:    2")
	assert.Contains(t, out, "Price Range:    799.00 - 999.99")
	assert.Contains(t, out, "Electronics:")
}

func TestStatsCommand_UnreadableFile(t *testing.T) {
	_, err := runCLI(t, "{not json", "stats")
	assert.ErrorContains(t, err, "failed to calculate stats")
}
