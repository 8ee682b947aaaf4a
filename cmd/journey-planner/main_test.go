package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theoremus-urban-solutions/journey-planner/config"
	"github.com/theoremus-urban-solutions/journey-planner/internal/testnet"
	"github.com/theoremus-urban-solutions/journey-planner/network"
	"github.com/theoremus-urban-solutions/journey-planner/routing"
)

func TestParseEndpoint(t *testing.T) {
	loc, err := parseEndpoint(" 42.7, 23.3 ")
	require.NoError(t, err)
	assert.Equal(t, routing.Location{Lat: 42.7, Lon: 23.3}, loc)

	loc, err = parseEndpoint("PB")
	require.NoError(t, err)
	assert.Equal(t, routing.Location{StopID: "PB"}, loc)

	_, err = parseEndpoint("north,east")
	assert.Error(t, err)
	_, err = parseEndpoint("")
	assert.Error(t, err)
}

func TestOneshotRequest(t *testing.T) {
	now := time.Date(2025, 1, 6, 8, 0, 0, 0, time.UTC)
	req, err := oneshotRequest("A", "42.7,23.348", "", now)
	require.NoError(t, err)
	assert.True(t, now.Equal(req.DateTime))
	assert.Equal(t, routing.DefaultModes(), req.Modes)

	req, err = oneshotRequest("A", "E", "2025-01-06T09:30:00+02:00", now)
	require.NoError(t, err)
	assert.True(t, time.Date(2025, 1, 6, 7, 30, 0, 0, time.UTC).Equal(req.DateTime))

	_, err = oneshotRequest("A", "E", "tomorrow", now)
	assert.Error(t, err)
}

func TestLoadNetwork_SnapshotCache(t *testing.T) {
	path := filepath.Join(t.TempDir(), "network.gob")
	require.NoError(t, network.SerializeToFile(testnet.Line(false), path))

	n, err := loadNetwork(config.NetworkConfig{SnapshotCachePath: path})
	require.NoError(t, err)
	assert.Equal(t, "test", n.FeedID)

	_, err = loadNetwork(config.NetworkConfig{SnapshotCachePath: filepath.Join(t.TempDir(), "missing.gob")})
	assert.Error(t, err, "no cache and no feed")
}

func TestLoadConfig_PortOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 8080\n"), 0644))

	cfg, err := loadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)

	t.Setenv("JP_PORT", "9090")
	cfg, err = loadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)

	t.Setenv("JP_PORT", "http")
	_, err = loadConfig(path)
	assert.Error(t, err)
}

func TestFeeds_Disabled(t *testing.T) {
	n := testnet.Line(false)
	f := newFeeds(config.Default().Realtime, n)
	assert.False(t, f.enabled())
	snap, err := f.load(t.Context())
	require.NoError(t, err)
	assert.Same(t, n, snap.Network)
}
