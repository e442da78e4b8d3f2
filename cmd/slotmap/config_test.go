package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func Test_LoadConfig_Parses_Hujson_With_Comments_And_Trailing_Commas(t *testing.T) {
	path := writeConfig(t, `{
		// where relative region paths live
		"region_dir": "/var/lib/slotmap",
		"default_slots": 4096, // room to grow
	}`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/slotmap", cfg.RegionDir)
	assert.Equal(t, 4096, cfg.DefaultSlots)
}

func Test_LoadConfig_Keeps_Defaults_For_Missing_Fields(t *testing.T) {
	path := writeConfig(t, `{"region_dir": "/tmp"}`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, DefaultConfig().DefaultSlots, cfg.DefaultSlots)
}

func Test_LoadConfig_Fails_When_Explicit_File_Missing(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.json"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nope.json")
}

func Test_LoadConfig_Rejects_Malformed_Json_And_Bad_Values(t *testing.T) {
	malformed := writeConfig(t, `{"region_dir": `)

	_, err := LoadConfig(malformed)
	require.Error(t, err)

	invalid := writeConfig(t, `{"default_slots": 0}`)

	_, err = LoadConfig(invalid)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "default_slots")
}

func Test_ResolveRegionPath_Joins_Relative_Paths_Only(t *testing.T) {
	cfg := Config{RegionDir: "/data"}

	assert.Equal(t, "/data/t.region", cfg.resolveRegionPath("t.region"))
	assert.Equal(t, "/abs/t.region", cfg.resolveRegionPath("/abs/t.region"))

	none := Config{}
	assert.Equal(t, "t.region", none.resolveRegionPath("t.region"))
}
