package network

import (
	"fmt"
	"sort"
	"time"
)

// ServiceDate is a calendar day encoded as YYYYMMDD.
type ServiceDate int32

// DateOf returns the service date of t in t's location.
func DateOf(t time.Time) ServiceDate {
	y, m, d := t.Date()
	return ServiceDate(y*10000 + int(m)*100 + d)
}

// ParseServiceDate parses the GTFS YYYYMMDD form.
func ParseServiceDate(s string) (ServiceDate, error) {
	t, err := time.Parse("20060102", s)
	if err != nil {
		return 0, fmt.Errorf("invalid service date %q: %w", s, err)
	}
	return DateOf(t), nil
}

func (d ServiceDate) parts() (int, time.Month, int) {
	return int(d) / 10000, time.Month(int(d) / 100 % 100), int(d) % 100
}

// Midnight returns the start of the day in loc.
func (d ServiceDate) Midnight(loc *time.Location) time.Time {
	y, m, day := d.parts()
	return time.Date(y, m, day, 0, 0, 0, 0, loc)
}

// AddDays moves the date by n calendar days.
func (d ServiceDate) AddDays(n int) ServiceDate {
	y, m, day := d.parts()
	return DateOf(time.Date(y, m, day+n, 12, 0, 0, 0, time.UTC))
}

// Weekday returns the day of the week.
func (d ServiceDate) Weekday() time.Weekday {
	return d.Midnight(time.UTC).Weekday()
}

func (d ServiceDate) String() string {
	return fmt.Sprintf("%08d", int32(d))
}

// Calendar lists the running dates of every service id, sorted.
type Calendar struct {
	Services map[string][]ServiceDate
}

// NewCalendar creates an empty calendar.
func NewCalendar() Calendar {
	return Calendar{Services: map[string][]ServiceDate{}}
}

// Add marks serviceID as running on the given dates.
func (c *Calendar) Add(serviceID string, dates ...ServiceDate) {
	c.Services[serviceID] = append(c.Services[serviceID], dates...)
}

// Remove drops the given dates from serviceID.
func (c *Calendar) Remove(serviceID string, date ServiceDate) {
	dates := c.Services[serviceID]
	out := dates[:0]
	for _, d := range dates {
		if d != date {
			out = append(out, d)
		}
	}
	c.Services[serviceID] = out
}

// normalize sorts and deduplicates every date list.
func (c *Calendar) normalize() {
	for id, dates := range c.Services {
		sort.Slice(dates, func(i, j int) bool { return dates[i] < dates[j] })
		out := dates[:0]
		for i, d := range dates {
			if i == 0 || d != dates[i-1] {
				out = append(out, d)
			}
		}
		c.Services[id] = out
	}
}

// Running reports whether serviceID runs on date.
func (c *Calendar) Running(serviceID string, date ServiceDate) bool {
	dates := c.Services[serviceID]
	i := sort.Search(len(dates), func(i int) bool { return dates[i] >= date })
	return i < len(dates) && dates[i] == date
}

// Period returns the first and last date any service runs. ok is false for an empty calendar.
func (c *Calendar) Period() (first, last ServiceDate, ok bool) {
	for _, dates := range c.Services {
		if len(dates) == 0 {
			continue
		}
		if !ok || dates[0] < first {
			first = dates[0]
		}
		if !ok || dates[len(dates)-1] > last {
			last = dates[len(dates)-1]
		}
		ok = true
	}
	return first, last, ok
}
