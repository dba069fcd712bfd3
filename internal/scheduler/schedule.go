package scheduler

import (
	"fmt"
	"strings"
	"time"
)

// Schedule decides when a task runs: either a fixed interval or a cron expression.
type Schedule struct {
	// Expression is the normalized source expression.
	Expression string

	interval time.Duration

	minute *CronField
	hour   *CronField
	dom    *CronField
	month  *CronField
	dow    *CronField
}

// ParseSchedule parses a schedule expression:
//   - "hourly", "daily" (02:00), "weekly" (Sunday 02:00)
//   - "every 6h", "every 30m", "every 1h30m" (at least one minute)
//   - five-field cron "min hour dom month dow" with ranges, steps and lists
func ParseSchedule(expr string) (*Schedule, error) {
	expr = strings.ToLower(strings.TrimSpace(expr))

	switch expr {
	case "hourly":
		return &Schedule{Expression: expr, interval: time.Hour}, nil
	case "daily":
		return parseCron(expr, "0 2 * * *")
	case "weekly":
		return parseCron(expr, "0 2 * * 0")
	}

	if rest, ok := strings.CutPrefix(expr, "every "); ok {
		d, err := time.ParseDuration(strings.ReplaceAll(rest, " ", ""))
		if err != nil {
			return nil, fmt.Errorf("invalid interval: %s", rest)
		}
		if d < time.Minute {
			return nil, fmt.Errorf("interval must be at least 1 minute")
		}
		return &Schedule{Expression: expr, interval: d}, nil
	}

	if len(strings.Fields(expr)) == 5 {
		return parseCron(expr, expr)
	}
	return nil, fmt.Errorf("unrecognized schedule format: %s", expr)
}

// MustParseSchedule is ParseSchedule for expressions known to be valid.
func MustParseSchedule(expr string) *Schedule {
	s, err := ParseSchedule(expr)
	if err != nil {
		panic(err)
	}
	return s
}

// Every returns an interval schedule without the one-minute floor.
func Every(d time.Duration) *Schedule {
	return &Schedule{Expression: "every " + d.String(), interval: d}
}

func parseCron(expr, cron string) (*Schedule, error) {
	parts := strings.Fields(cron)
	s := &Schedule{Expression: expr}
	fields := []struct {
		dst      **CronField
		name     string
		min, max int
	}{
		{&s.minute, "minute", 0, 59},
		{&s.hour, "hour", 0, 23},
		{&s.dom, "day of month", 1, 31},
		{&s.month, "month", 1, 12},
		{&s.dow, "day of week", 0, 6},
	}
	for i, f := range fields {
		cf, err := ParseCronField(parts[i], f.min, f.max)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", f.name, err)
		}
		*f.dst = cf
	}
	return s, nil
}

// IsInterval reports whether s runs at a fixed interval.
func (s *Schedule) IsInterval() bool { return s.interval > 0 }

// Interval returns the interval, or 0 for cron schedules.
func (s *Schedule) Interval() time.Duration { return s.interval }

func (s *Schedule) String() string { return s.Expression }

func (s *Schedule) matches(t time.Time) bool {
	return s.minute.Contains(t.Minute()) &&
		s.hour.Contains(t.Hour()) &&
		s.dom.Contains(t.Day()) &&
		s.month.Contains(int(t.Month())) &&
		s.dow.Contains(int(t.Weekday()))
}

// NextRun returns the first run time strictly after after.
func (s *Schedule) NextRun(after time.Time) time.Time {
	if s.interval > 0 {
		return after.Add(s.interval)
	}

	t := after.Add(time.Minute).Truncate(time.Minute)
	loc := t.Location()
	limit := after.AddDate(5, 0, 0)

	for t.Before(limit) {
		if !s.month.Any {
			m := s.month.Next(int(t.Month()))
			if m == -1 {
				t = time.Date(t.Year()+1, time.Month(s.month.First()), 1, 0, 0, 0, 0, loc)
				continue
			}
			if m != int(t.Month()) {
				t = time.Date(t.Year(), time.Month(m), 1, 0, 0, 0, 0, loc)
				continue
			}
		}

		if !s.dom.Contains(t.Day()) || !s.dow.Contains(int(t.Weekday())) {
			t = time.Date(t.Year(), t.Month(), t.Day()+1, 0, 0, 0, 0, loc)
			continue
		}

		if !s.hour.Any {
			h := s.hour.Next(t.Hour())
			if h == -1 {
				t = time.Date(t.Year(), t.Month(), t.Day()+1, 0, 0, 0, 0, loc)
				continue
			}
			if h != t.Hour() {
				t = time.Date(t.Year(), t.Month(), t.Day(), h, 0, 0, 0, loc)
				continue
			}
		}

		if !s.minute.Any {
			m := s.minute.Next(t.Minute())
			if m == -1 {
				t = time.Date(t.Year(), t.Month(), t.Day(), t.Hour()+1, 0, 0, 0, loc)
				continue
			}
			t = time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), m, 0, 0, loc)
		}

		if s.matches(t) {
			return t
		}
		t = t.Add(time.Minute)
	}

	// unsatisfiable expressions such as "0 0 31 2 *"
	return after.Add(24 * time.Hour)
}
