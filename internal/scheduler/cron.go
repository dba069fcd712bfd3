package scheduler

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// CronField is one parsed cron column. Values is sorted and deduplicated.
type CronField struct {
	Values []int
	Any    bool
}

// Contains reports whether v is allowed.
func (f *CronField) Contains(v int) bool {
	if f.Any {
		return true
	}
	i := sort.SearchInts(f.Values, v)
	return i < len(f.Values) && f.Values[i] == v
}

// Next returns the smallest allowed value >= v, or -1 when the field must wrap.
func (f *CronField) Next(v int) int {
	if f.Any {
		return v
	}
	if i := sort.SearchInts(f.Values, v); i < len(f.Values) {
		return f.Values[i]
	}
	return -1
}

// First returns the smallest allowed value.
func (f *CronField) First() int {
	if f.Any || len(f.Values) == 0 {
		return 0
	}
	return f.Values[0]
}

// ParseCronField parses "*", "5", "1-10", "*/5", "1-30/5" and comma lists of those.
func ParseCronField(field string, min, max int) (*CronField, error) {
	field = strings.TrimSpace(field)
	if field == "*" {
		return &CronField{Any: true}, nil
	}

	set := make(map[int]struct{})
	for _, part := range strings.Split(field, ",") {
		vals, err := parseCronPart(strings.TrimSpace(part), min, max)
		if err != nil {
			return nil, err
		}
		for _, v := range vals {
			set[v] = struct{}{}
		}
	}
	if len(set) == 0 {
		return nil, fmt.Errorf("no valid values in field: %s", field)
	}

	cf := &CronField{Values: make([]int, 0, len(set))}
	for v := range set {
		cf.Values = append(cf.Values, v)
	}
	sort.Ints(cf.Values)
	return cf, nil
}

func parseCronPart(part string, min, max int) ([]int, error) {
	step := 1
	if base, stepStr, ok := strings.Cut(part, "/"); ok {
		n, err := strconv.Atoi(stepStr)
		if err != nil || n < 1 {
			return nil, fmt.Errorf("invalid step: %s", stepStr)
		}
		step = n
		part = base
	}

	lo, hi := min, max
	switch {
	case part == "*":
	case strings.Contains(part, "-"):
		from, to, _ := strings.Cut(part, "-")
		var err error
		if lo, err = strconv.Atoi(strings.TrimSpace(from)); err != nil {
			return nil, fmt.Errorf("invalid range start: %s", from)
		}
		if hi, err = strconv.Atoi(strings.TrimSpace(to)); err != nil {
			return nil, fmt.Errorf("invalid range end: %s", to)
		}
	default:
		v, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("invalid value: %s", part)
		}
		lo, hi = v, v
	}

	if lo < min || hi > max {
		return nil, fmt.Errorf("value out of range [%d-%d]: %d-%d", min, max, lo, hi)
	}
	if lo > hi {
		return nil, fmt.Errorf("invalid range: %d > %d", lo, hi)
	}

	var out []int
	for v := lo; v <= hi; v += step {
		out = append(out, v)
	}
	return out, nil
}
