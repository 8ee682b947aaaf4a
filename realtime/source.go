package realtime

import (
	"context"

	"github.com/theoremus-urban-solutions/journey-planner/internal/warnings"
	"github.com/theoremus-urban-solutions/journey-planner/network"
)

// Snapshot is a network with realtime data applied, plus the alerts to decorate
// itineraries with.
type Snapshot struct {
	Network *network.Network
	Alerts  *AlertIndex
	Stats   Stats
}

// Load fetches both feeds and applies them to base. A missing source leaves that
// part of the snapshot unchanged.
func Load(ctx context.Context, c *Client, base *network.Network, tripUpdates, alerts string, date network.ServiceDate, w *warnings.Aggregator) (Snapshot, error) {
	snap := Snapshot{Network: base}
	tu, sa, err := c.FetchAll(ctx, tripUpdates, alerts)
	if err != nil {
		return snap, err
	}
	if tu != nil {
		fm, err := Decode(tu)
		if err != nil {
			return snap, err
		}
		snap.Network, snap.Stats = ApplyTripUpdates(base, fm, date, w)
	}
	if sa != nil {
		fm, err := Decode(sa)
		if err != nil {
			return snap, err
		}
		snap.Alerts = ParseAlerts(fm)
	}
	return snap, nil
}
