package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/theoremus-urban-solutions/journey-planner/config"
	"github.com/theoremus-urban-solutions/journey-planner/internal/warnings"
	"github.com/theoremus-urban-solutions/journey-planner/network"
	"github.com/theoremus-urban-solutions/journey-planner/realtime"
	"github.com/theoremus-urban-solutions/journey-planner/routing"
)

// loadNetwork reads the gob snapshot cache when present, otherwise the GTFS feed,
// and writes the cache for the next start.
func loadNetwork(cfg config.NetworkConfig) (*network.Network, error) {
	if p := cfg.SnapshotCachePath; p != "" {
		if _, err := os.Stat(p); err == nil {
			start := time.Now()
			n, err := network.DeserializeFromFile(p)
			if err == nil {
				log.Printf("network snapshot %s loaded in %s", p, time.Since(start))
				return n, nil
			}
			log.Printf("network snapshot %s unusable, reloading the feed: %v", p, err)
		}
	}
	if cfg.GTFSPath == "" {
		return nil, errors.New("no GTFS feed configured; set network.gtfsPath or -gtfs")
	}
	start := time.Now()
	n, err := network.LoadGTFS(cfg.GTFSPath, network.LoadOptions{
		Timezone:            cfg.Timezone,
		MaxTransferDistance: cfg.MaxTransferDistanceMeters,
	})
	if err != nil {
		return nil, err
	}
	log.Printf("loaded %s: %d stops, %d patterns in %s", cfg.GTFSPath, n.StopCount(), len(n.Patterns), time.Since(start))
	if p := cfg.SnapshotCachePath; p != "" {
		if err := network.SerializeToFile(n, p); err != nil {
			log.Printf("failed to write network snapshot %s: %v", p, err)
		}
	}
	return n, nil
}

// feeds applies the realtime sources to the static network.
type feeds struct {
	client      *realtime.Client
	base        *network.Network
	tripUpdates string
	alerts      string
}

func newFeeds(cfg config.RealtimeConfig, base *network.Network) *feeds {
	return &feeds{
		client:      realtime.NewClient(cfg.Timeout()),
		base:        base,
		tripUpdates: cfg.TripUpdatesURL,
		alerts:      cfg.AlertsURL,
	}
}

func (f *feeds) enabled() bool { return f.tripUpdates != "" || f.alerts != "" }

// load builds a snapshot for today in the network's timezone.
func (f *feeds) load(ctx context.Context) (realtime.Snapshot, error) {
	if !f.enabled() {
		return realtime.Snapshot{Network: f.base}, nil
	}
	w := warnings.NewAggregator()
	date := network.DateOf(time.Now().In(f.base.Location()))
	snap, err := realtime.Load(ctx, f.client, f.base, f.tripUpdates, f.alerts, date, w)
	if err != nil {
		return snap, err
	}
	w.LogAll("realtime")
	log.Printf("realtime: %d trips updated, %d canceled, %d skipped, %d alerts",
		snap.Stats.Updated, snap.Stats.Canceled, snap.Stats.Skipped, snap.Alerts.Len())
	return snap, nil
}

// refresh reloads the feeds every interval until ctx ends. A failed reload keeps
// the previous snapshot.
func (f *feeds) refresh(ctx context.Context, every time.Duration, apply func(realtime.Snapshot) error) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			snap, err := f.load(ctx)
			if err == nil {
				err = apply(snap)
			}
			if err != nil {
				log.Printf("realtime refresh failed: %v", err)
			}
		}
	}
}

// oneshotRequest reads "lat,lon" or a stop id for each end. An empty at means now.
func oneshotRequest(from, to, at string, now time.Time) (*routing.Request, error) {
	f, err := parseEndpoint(from)
	if err != nil {
		return nil, fmt.Errorf("-from: %w", err)
	}
	t, err := parseEndpoint(to)
	if err != nil {
		return nil, fmt.Errorf("-to: %w", err)
	}
	when := now
	if at != "" {
		if when, err = time.Parse(time.RFC3339, at); err != nil {
			return nil, fmt.Errorf("-time: %w", err)
		}
	}
	return routing.NewRequest(f, t, when), nil
}

func parseEndpoint(s string) (routing.Location, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return routing.Location{}, errors.New("missing location")
	}
	lat, lon, ok := strings.Cut(s, ",")
	if !ok {
		return routing.Location{StopID: s}, nil
	}
	la, err1 := strconv.ParseFloat(strings.TrimSpace(lat), 64)
	lo, err2 := strconv.ParseFloat(strings.TrimSpace(lon), 64)
	if err1 != nil || err2 != nil {
		return routing.Location{}, fmt.Errorf("%q is not lat,lon", s)
	}
	return routing.Location{Lat: la, Lon: lo}, nil
}
