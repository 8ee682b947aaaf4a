package api

import (
	"encoding/json"
	"net/http"
	"time"
)

type healthResponse struct {
	Status          string `json:"status"`
	FeedID          string `json:"feedId,omitempty"`
	Timezone        string `json:"timezone"`
	Stops           int    `json:"stops"`
	Patterns        int    `json:"patterns"`
	FlexTrips       int    `json:"flexTrips"`
	ServiceStart    string `json:"serviceStart,omitempty"`
	ServiceEnd      string `json:"serviceEnd,omitempty"`
	RealtimeUpdated int    `json:"realtimeTripsUpdated"`
	RealtimeCancel  int    `json:"realtimeTripsCanceled"`
	Alerts          int    `json:"alerts"`
	UptimeSeconds   int64  `json:"uptimeSeconds"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	snap := s.router.Snapshot()
	n := snap.Network
	resp := healthResponse{
		Status:          "ok",
		FeedID:          n.FeedID,
		Timezone:        n.Timezone,
		Stops:           n.StopCount(),
		Patterns:        len(n.Patterns),
		FlexTrips:       len(n.FlexTrips),
		RealtimeUpdated: snap.Stats.Updated,
		RealtimeCancel:  snap.Stats.Canceled,
		Alerts:          snap.Alerts.Len(),
		UptimeSeconds:   int64(time.Since(s.started) / time.Second),
	}
	if first, last, ok := n.ServicePeriod(); ok {
		resp.ServiceStart = first.String()
		resp.ServiceEnd = last.String()
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}
