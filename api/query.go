package api

import (
	"fmt"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/theoremus-urban-solutions/journey-planner/routing"
	"github.com/theoremus-urban-solutions/journey-planner/street"
)

// QueryError is a malformed query parameter. It is answered with 400.
type QueryError struct{ Msg string }

func (e *QueryError) Error() string { return e.Msg }

// queryParams collects the first value of every parameter under its lower-case name.
func queryParams(r *http.Request) map[string]string {
	m := map[string]string{}
	for k, v := range r.URL.Query() {
		if len(v) > 0 {
			m[strings.ToLower(k)] = strings.TrimSpace(v[0])
		}
	}
	return m
}

// memoKey joins the non-empty parameters in name order.
func memoKey(params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k, v := range params {
		if v != "" {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)
	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte('|')
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(params[k])
	}
	return b.String()
}

// parsePlanQuery builds a routing request. A missing time means now.
func parsePlanQuery(params map[string]string, now time.Time) (*routing.Request, error) {
	from, err := parseLocation(params, "from")
	if err != nil {
		return nil, err
	}
	to, err := parseLocation(params, "to")
	if err != nil {
		return nil, err
	}
	t := now
	if s := params["time"]; s != "" {
		t, err = time.Parse(time.RFC3339, s)
		if err != nil {
			return nil, &QueryError{Msg: "time must be an RFC3339 timestamp."}
		}
	}
	req := routing.NewRequest(from, to, t)

	if req.ArriveBy, err = parseBool(params, "arriveby"); err != nil {
		return nil, err
	}
	if req.Wheelchair, err = parseBool(params, "wheelchair"); err != nil {
		return nil, err
	}
	if req.Debug, err = parseBool(params, "debug"); err != nil {
		return nil, err
	}
	minutes, err := parseNonNegativeInt(params["searchwindow"])
	if err != nil {
		return nil, err
	}
	if minutes > 0 {
		req.SearchWindow = time.Duration(minutes) * time.Minute
	}
	if n, err := parseNonNegativeInt(params["numitineraries"]); err != nil {
		return nil, err
	} else if n > 0 {
		req.NumItineraries = n
	}
	if n, err := parseNonNegativeInt(params["maxtransfers"]); err != nil {
		return nil, err
	} else if n >= 0 {
		req.MaxTransfers = &n
	}
	if s := params["walkspeed"]; s != "" {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil || v <= 0 {
			return nil, &QueryError{Msg: "walkSpeed must be a positive number."}
		}
		req.WalkSpeed = v
	}
	if req.Modes, err = parseModes(params); err != nil {
		return nil, err
	}
	req.PageCursor = params["pagecursor"]
	return req, nil
}

// parseLocation reads <prefix>Stop or <prefix>Lat and <prefix>Lon. Neither gives an
// empty location, which the router reports as LOCATION_NOT_FOUND.
// <prefix>ForcedStop restricts flexible access or egress.
func parseLocation(params map[string]string, prefix string) (routing.Location, error) {
	loc := routing.Location{
		Name:         params[prefix+"name"],
		StopID:       params[prefix+"stop"],
		ForcedStopID: params[prefix+"forcedstop"],
	}
	lat, lon := params[prefix+"lat"], params[prefix+"lon"]
	if lat == "" && lon == "" {
		return loc, nil
	}
	var err1, err2 error
	loc.Lat, err1 = strconv.ParseFloat(lat, 64)
	loc.Lon, err2 = strconv.ParseFloat(lon, 64)
	if err1 != nil || err2 != nil {
		return routing.Location{}, &QueryError{Msg: fmt.Sprintf("%sLat and %sLon must both be numbers.", prefix, prefix)}
	}
	return loc, nil
}

// parseModes reads a comma-separated list such as "TRANSIT,WALK". The street mode
// sets access, egress and direct; TRANSIT alone walks to and from stops without a
// direct search. accessMode, egressMode, transferMode and directMode override.
func parseModes(params map[string]string) (routing.Modes, error) {
	modes := routing.DefaultModes()
	if s := params["modes"]; s != "" {
		modes = routing.Modes{
			Access:   street.ModeWalk,
			Egress:   street.ModeWalk,
			Transfer: street.ModeWalk,
		}
		for _, tok := range strings.Split(s, ",") {
			tok = strings.TrimSpace(tok)
			if tok == "" {
				continue
			}
			if strings.EqualFold(tok, "TRANSIT") {
				modes.Transit = true
				continue
			}
			m, err := street.ParseMode(tok)
			if err != nil {
				return routing.Modes{}, &QueryError{Msg: "Unsupported mode: " + tok}
			}
			modes.Access, modes.Direct = m, m
			if m.AllowsEgress() {
				modes.Egress = m
			}
		}
	}
	overrides := []struct {
		param string
		mode  *street.Mode
	}{
		{"accessmode", &modes.Access},
		{"egressmode", &modes.Egress},
		{"transfermode", &modes.Transfer},
		{"directmode", &modes.Direct},
	}
	for _, o := range overrides {
		s := params[o.param]
		if s == "" {
			continue
		}
		m, err := street.ParseMode(s)
		if err != nil {
			return routing.Modes{}, &QueryError{Msg: "Unsupported mode: " + s}
		}
		*o.mode = m
	}
	return modes, nil
}

func parseBool(params map[string]string, name string) (bool, error) {
	s := params[name]
	if s == "" {
		return false, nil
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		return false, &QueryError{Msg: name + " must be true or false."}
	}
	return v, nil
}

func parseNonNegativeInt(s string) (int, error) {
	if s == "" {
		return -1, nil
	}
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || v < 0 {
		return -1, &QueryError{Msg: "Numeric parameter must be a non-negative integer."}
	}
	return v, nil
}
