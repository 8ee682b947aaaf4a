package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `
server:
  port: 8080
network:
  gtfsPath: ./data/gtfs.zip
  maxTransferDistanceMeters: 300
routing:
  parallelRouting: false
  maxNumberOfTransfers: 6
  searchWindowMinutes: 60
flex:
  calculator: streetWithDirectFallback
  directExtraTimeSeconds: 0
itineraryFilters:
  removeTransitIfStreetOnlyIsBetter: false
  transvision:
    minimumTaxiSecondGroups: 500
    fasterTransfersScore: 1.5
realtime:
  tripUpdatesURL: https://example.org/tripupdates.pb
`

// chdirTemp switches into a fresh temp directory and restores the global config
// and working directory afterwards.
func chdirTemp(t *testing.T) string {
	t.Helper()
	origConfig := Config
	origDir, err := os.Getwd()
	require.NoError(t, err)
	dir := t.TempDir()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() {
		Config = origConfig
		_ = os.Chdir(origDir)
	})
	return dir
}

func TestLoadAppConfig_FromWorkingDirectory(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yml"), []byte(sampleConfig), 0644))

	require.NoError(t, LoadAppConfig())

	assert.Equal(t, 8080, Config.Server.Port)
	assert.Equal(t, DefaultResponseCacheTTLSeconds, Config.Server.ResponseCacheTTLSeconds)
	assert.Equal(t, 300.0, Config.Network.MaxTransferDistanceMeters)
	assert.Empty(t, Config.Network.Timezone, "agency timezone")
	assert.False(t, Config.Routing.IsParallelRouting())
	assert.Equal(t, 6, Config.Routing.MaxNumberOfTransfers)
	assert.Equal(t, DefaultTransferSlackSeconds, Config.Routing.TransferSlackSeconds)
	assert.Equal(t, "streetWithDirectFallback", Config.Flex.Calculator)
	assert.Equal(t, 0, Config.Flex.ExtraTime(), "explicit zero extra time must survive defaults")
	assert.False(t, Config.ItineraryFilters.IsRemoveTransitIfStreetOnlyIsBetter())
	require.NotNil(t, Config.ItineraryFilters.Transvision)
	assert.Equal(t, 500, Config.ItineraryFilters.Transvision.MinimumTaxiSecondGroups)
}

func TestLoadAppConfig_NestedPath(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "config"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config", "config.yml"), []byte("server:\n  port: 9000\n"), 0644))

	require.NoError(t, LoadAppConfig())
	assert.Equal(t, 9000, Config.Server.Port)
}

func TestLoadAppConfig_MissingFile(t *testing.T) {
	chdirTemp(t)
	assert.Error(t, LoadAppConfig())
}

func TestLoadAppConfig_InvalidYAML(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yml"), []byte("invalid: yaml: content: [[["), 0644))

	assert.Error(t, LoadAppConfig())
}

func TestLoadAppConfigFromBytes_Validation(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"port out of range", "server:\n  port: 70000\n"},
		{"unknown calculator", "flex:\n  calculator: teleport\n"},
		{"bad realtime url", "realtime:\n  alertsURL: not a url\n"},
		{"negative slack", "routing:\n  transferSlackSeconds: -1\n"},
		{"window above max", "routing:\n  searchWindowMinutes: 300\n  maxSearchWindowMinutes: 120\n"},
		{"bad timezone", "network:\n  timezone: Mars/Olympus\n"},
		{"negative transvision", "itineraryFilters:\n  transvision:\n    minimumTaxiTransferScore: -5\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadAppConfigFromBytes([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, DefaultPort, cfg.Server.Port)
	assert.True(t, cfg.Routing.IsParallelRouting())
	assert.True(t, cfg.ItineraryFilters.IsRemoveTransitIfStreetOnlyIsBetter())
	assert.Equal(t, DefaultDirectExtraTimeSeconds, cfg.Flex.ExtraTime())
	assert.Equal(t, DefaultBinarySearchThreshold, cfg.Routing.ScheduledTripBinarySearchThreshold)
	assert.GreaterOrEqual(t, cfg.TransferCache.MaxThreads, 1)
	assert.Nil(t, cfg.ItineraryFilters.Transvision)
	assert.Equal(t, 40*60.0, cfg.Routing.DefaultSearchWindow().Seconds())
}

func TestLoadAppConfigFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "planner.yml")
	require.NoError(t, os.WriteFile(path, []byte(sampleConfig), 0644))

	cfg, err := LoadAppConfigFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "./data/gtfs.zip", cfg.Network.GTFSPath)
	assert.Equal(t, 60, cfg.Routing.SearchWindowMinutes)

	_, err = LoadAppConfigFromFile(filepath.Join(t.TempDir(), "missing.yml"))
	assert.Error(t, err)
}
