package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theoremus-urban-solutions/journey-planner/config"
	"github.com/theoremus-urban-solutions/journey-planner/internal/querylog"
	"github.com/theoremus-urban-solutions/journey-planner/internal/testnet"
	"github.com/theoremus-urban-solutions/journey-planner/network"
	"github.com/theoremus-urban-solutions/journey-planner/realtime"
	"github.com/theoremus-urban-solutions/journey-planner/routing"
	"github.com/theoremus-urban-solutions/journey-planner/street"
)

type planBody struct {
	RequestID   string            `json:"requestId"`
	Itineraries []json.RawMessage `json:"itineraries"`
	Errors      []struct {
		Code       string `json:"code"`
		InputField string `json:"inputField"`
	} `json:"routingErrors"`
	NextPageCursor   string `json:"nextPageCursor"`
	SearchWindowUsed int    `json:"searchWindowUsed"`
}

type memoryLog struct {
	mu      sync.Mutex
	entries []querylog.Entry
}

func (m *memoryLog) Record(_ context.Context, e querylog.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, e)
	return nil
}

func newTestServer(t *testing.T, queries QueryLogger) (*Server, *network.Network) {
	t.Helper()
	n := testnet.Line(true)
	cfg := config.Default()
	r, err := routing.NewRouter(cfg, realtime.Snapshot{Network: n})
	require.NoError(t, err)
	return NewServer(cfg.Server, r, queries), n
}

func planQuery(n *network.Network, from, to orb.Point, h, m int) url.Values {
	t := testnet.Monday.Midnight(n.Location()).Add(time.Duration(testnet.H(h, m)) * time.Second)
	return url.Values{
		"fromLat": {fmt.Sprint(from.Lat())},
		"fromLon": {fmt.Sprint(from.Lon())},
		"toLat":   {fmt.Sprint(to.Lat())},
		"toLon":   {fmt.Sprint(to.Lon())},
		"time":    {t.Format(time.RFC3339)},
	}
}

func get(t *testing.T, h http.Handler, path string, q url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path+"?"+q.Encode(), nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestPlan(t *testing.T) {
	log := &memoryLog{}
	s, n := newTestServer(t, log)
	h := s.Handler()
	q := planQuery(n, testnet.CoordA, testnet.CoordE, 8, 0)

	rec := get(t, h, "/api/plan", q)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, "MISS", rec.Header().Get("X-Cache"))

	var body planBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.NotEmpty(t, body.RequestID)
	assert.NotEmpty(t, body.Itineraries)
	assert.Empty(t, body.Errors)
	assert.NotEmpty(t, body.NextPageCursor)
	assert.Equal(t, 40*60, body.SearchWindowUsed)

	again := get(t, h, "/api/plan", q)
	assert.Equal(t, http.StatusOK, again.Code)
	assert.Equal(t, "HIT", again.Header().Get("X-Cache"))
	assert.Equal(t, rec.Body.String(), again.Body.String())

	require.Len(t, log.entries, 2)
	assert.Equal(t, body.RequestID, log.entries[0].RequestID)
	assert.Equal(t, len(body.Itineraries), log.entries[0].Itineraries)
	assert.Equal(t, log.entries[0].Query, log.entries[1].Query)

	t.Run("next page", func(t *testing.T) {
		next := planQuery(n, testnet.CoordA, testnet.CoordE, 8, 0)
		next.Set("pageCursor", body.NextPageCursor)
		rec := get(t, h, "/api/plan", next)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, "MISS", rec.Header().Get("X-Cache"))
	})
}

func TestPlan_RoutingErrors(t *testing.T) {
	s, n := newTestServer(t, nil)
	q := planQuery(n, testnet.CoordA, testnet.CoordE, 8, 0)
	q.Del("fromLat")
	q.Del("fromLon")
	q.Set("fromStop", "NOPE")

	rec := get(t, s.Handler(), "/api/plan", q)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body planBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.NotNil(t, body.Itineraries)
	assert.Empty(t, body.Itineraries)
	require.Len(t, body.Errors, 1)
	assert.Equal(t, "LOCATION_NOT_FOUND", body.Errors[0].Code)
	assert.Equal(t, "FROM_PLACE", body.Errors[0].InputField)
	assert.Contains(t, rec.Body.String(), `"itineraries":[]`)
}

func TestPlan_BadQuery(t *testing.T) {
	s, n := newTestServer(t, nil)
	h := s.Handler()

	cases := []struct {
		name  string
		param string
		value string
	}{
		{"time", "time", "monday morning"},
		{"latitude", "fromLat", "north"},
		{"latitude range", "fromLat", "91"},
		{"mode", "modes", "ROCKET,TRANSIT"},
		{"transfer mode", "transferMode", "TELEPORT"},
		{"window", "searchWindow", "-5"},
		{"arriveBy", "arriveBy", "maybe"},
		{"walk speed", "walkSpeed", "0"},
		{"cursor", "pageCursor", "not-a-cursor"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			q := planQuery(n, testnet.CoordA, testnet.CoordE, 8, 0)
			q.Set(tc.param, tc.value)
			rec := get(t, h, "/api/plan", q)
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())

			var body errorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.NotEmpty(t, body.Error)
		})
	}
}

func TestPlan_QueryLogStore(t *testing.T) {
	store, err := querylog.Open(filepath.Join(t.TempDir(), "queries.db"))
	require.NoError(t, err)
	defer store.Close()

	s, n := newTestServer(t, store)
	q := planQuery(n, testnet.CoordA, testnet.CoordE, 8, 0)
	q.Set("fromStop", "NOPE")
	q.Del("fromLat")
	q.Del("fromLon")
	rec := get(t, s.Handler(), "/api/plan", q)
	require.Equal(t, http.StatusOK, rec.Code)

	got, err := store.Recent(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, http.StatusOK, got[0].Status)
	assert.Equal(t, "LOCATION_NOT_FOUND (FROM_PLACE)", got[0].RoutingErrors)
	assert.Contains(t, got[0].Query, "fromstop=NOPE")
}

func TestSetSnapshot_FlushesMemo(t *testing.T) {
	s, n := newTestServer(t, nil)
	h := s.Handler()
	q := planQuery(n, testnet.CoordA, testnet.CoordE, 8, 0)

	require.Equal(t, "MISS", get(t, h, "/api/plan", q).Header().Get("X-Cache"))
	require.Equal(t, "HIT", get(t, h, "/api/plan", q).Header().Get("X-Cache"))

	require.NoError(t, s.SetSnapshot(realtime.Snapshot{Network: n}))
	assert.Equal(t, "MISS", get(t, h, "/api/plan", q).Header().Get("X-Cache"))

	assert.Error(t, s.SetSnapshot(realtime.Snapshot{}))
}

func TestHealth(t *testing.T) {
	s, n := newTestServer(t, nil)
	rec := get(t, s.Handler(), "/api/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body healthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body.Status)
	assert.Equal(t, "test", body.FeedID)
	assert.Equal(t, "Europe/Sofia", body.Timezone)
	assert.Equal(t, n.StopCount(), body.Stops)
	assert.Equal(t, 1, body.FlexTrips)
	assert.Equal(t, testnet.Monday.String(), body.ServiceStart)
	assert.Equal(t, testnet.Monday.AddDays(4).String(), body.ServiceEnd)
	assert.Zero(t, body.Alerts)
}

func TestCORS(t *testing.T) {
	s, _ := newTestServer(t, nil)
	req := httptest.NewRequest(http.MethodOptions, "/api/plan", nil)
	req.Header.Set("Origin", "https://example.org")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestParseModes(t *testing.T) {
	cases := []struct {
		name   string
		params map[string]string
		want   routing.Modes
	}{
		{"default", nil, routing.DefaultModes()},
		{
			"transit only",
			map[string]string{"modes": "TRANSIT"},
			routing.Modes{Access: street.ModeWalk, Egress: street.ModeWalk, Transfer: street.ModeWalk, Transit: true},
		},
		{
			"bike to park keeps walking egress",
			map[string]string{"modes": "transit, bike_to_park"},
			routing.Modes{Access: street.ModeBikeToPark, Egress: street.ModeWalk, Transfer: street.ModeWalk, Direct: street.ModeBikeToPark, Transit: true},
		},
		{
			"flex",
			map[string]string{"modes": "TRANSIT,FLEXIBLE"},
			routing.Modes{Access: street.ModeFlexible, Egress: street.ModeFlexible, Transfer: street.ModeWalk, Direct: street.ModeFlexible, Transit: true},
		},
		{
			"override",
			map[string]string{"modes": "WALK,TRANSIT", "directmode": "NOT_SET", "egressmode": "BIKE"},
			routing.Modes{Access: street.ModeWalk, Egress: street.ModeBike, Transfer: street.ModeWalk, Transit: true},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := parseModes(tc.params)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestMemoKey(t *testing.T) {
	a := memoKey(map[string]string{"tolat": "1", "fromlat": "2", "debug": ""})
	b := memoKey(map[string]string{"fromlat": "2", "tolat": "1"})
	assert.Equal(t, "fromlat=2|tolat=1", a)
	assert.Equal(t, a, b)
}

func TestParsePlanQuery(t *testing.T) {
	now := time.Date(2025, 1, 6, 6, 0, 0, 0, time.UTC)
	req, err := parsePlanQuery(map[string]string{
		"fromstop":       "PB",
		"tolat":          "42.7",
		"tolon":          "23.348",
		"toname":         "Home",
		"toforcedstop":   "PB",
		"arriveby":       "true",
		"searchwindow":   "90",
		"numitineraries": "3",
		"maxtransfers":   "0",
		"walkspeed":      "1.2",
	}, now)
	require.NoError(t, err)

	assert.Equal(t, "PB", req.From.StopID)
	assert.Equal(t, routing.Location{Name: "Home", Lat: 42.7, Lon: 23.348, ForcedStopID: "PB"}, req.To)
	assert.True(t, req.DateTime.Equal(now))
	assert.True(t, req.ArriveBy)
	assert.Equal(t, 90*time.Minute, req.SearchWindow)
	assert.Equal(t, 3, req.NumItineraries)
	require.NotNil(t, req.MaxTransfers)
	assert.Zero(t, *req.MaxTransfers)
	assert.Equal(t, 1.2, req.WalkSpeed)

	req, err = parsePlanQuery(map[string]string{"fromstop": "A", "tostop": "E"}, now)
	require.NoError(t, err)
	assert.Nil(t, req.MaxTransfers)
	assert.Zero(t, req.SearchWindow)
}
