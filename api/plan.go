package api

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/theoremus-urban-solutions/journey-planner/internal/querylog"
	"github.com/theoremus-urban-solutions/journey-planner/itinerary"
	"github.com/theoremus-urban-solutions/journey-planner/routing"
)

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handlePlan(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	params := queryParams(r)
	key := memoKey(params)
	if b, ok := s.memo.Get(key); ok {
		w.Header().Set("X-Cache", "HIT")
		writeBody(w, http.StatusOK, b.([]byte))
		s.record(r.Context(), key, http.StatusOK, nil, time.Since(start))
		return
	}

	status, body, resp := s.plan(r.Context(), params)
	if status == http.StatusOK && s.memoTTL > 0 {
		s.memo.SetDefault(key, body)
	}
	w.Header().Set("X-Cache", "MISS")
	writeBody(w, status, body)
	s.record(r.Context(), key, status, resp, time.Since(start))
}

// plan answers one query. Routing errors with nothing found are a normal answer:
// 200 with an empty itinerary list.
func (s *Server) plan(ctx context.Context, params map[string]string) (int, []byte, *routing.Response) {
	req, err := parsePlanQuery(params, s.now())
	if err != nil {
		return errorBody(http.StatusBadRequest, err.Error())
	}
	resp, err := s.router.Route(ctx, req)
	var ve *routing.ValidationError
	switch {
	case err == nil:
	case errors.As(err, &ve):
		resp = &routing.Response{RequestID: uuid.NewString(), Errors: ve.Errors}
	case errors.Is(err, routing.ErrTimeout):
		return errorBody(http.StatusGatewayTimeout, err.Error())
	case errors.Is(err, routing.ErrInvalidRequest), errors.Is(err, routing.ErrBadCursor):
		return errorBody(http.StatusBadRequest, err.Error())
	default:
		log.Printf("plan failed: %v", err)
		return errorBody(http.StatusInternalServerError, "internal error")
	}
	if resp.Itineraries == nil {
		resp.Itineraries = []itinerary.Itinerary{}
	}
	b, err := json.Marshal(resp)
	if err != nil {
		log.Printf("plan %s: failed to encode response: %v", resp.RequestID, err)
		return errorBody(http.StatusInternalServerError, "internal error")
	}
	return http.StatusOK, b, resp
}

func (s *Server) record(ctx context.Context, key string, status int, resp *routing.Response, d time.Duration) {
	if s.queries == nil {
		return
	}
	e := querylog.Entry{
		ReceivedAt: s.now(),
		Query:      key,
		Status:     status,
		Duration:   d,
	}
	if resp != nil {
		e.RequestID = resp.RequestID
		e.Itineraries = len(resp.Itineraries)
		codes := make([]string, len(resp.Errors))
		for i, re := range resp.Errors {
			codes[i] = re.Error()
		}
		e.RoutingErrors = strings.Join(codes, ",")
	}
	if err := s.queries.Record(context.WithoutCancel(ctx), e); err != nil {
		log.Printf("query log: %v", err)
	}
}

func errorBody(status int, msg string) (int, []byte, *routing.Response) {
	b, _ := json.Marshal(errorResponse{Error: msg})
	return status, b, nil
}

func writeBody(w http.ResponseWriter, status int, b []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(b)
}
