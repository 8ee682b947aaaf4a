// Package api exposes the planner over HTTP: GET /api/plan answers a journey query
// and GET /api/health describes the loaded network. Plan responses are memoized for
// a short time keyed by the normalized query.
package api
