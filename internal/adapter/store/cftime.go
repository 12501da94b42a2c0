package store

import (
	"fmt"
	"math"
	"strings"
	"time"
)

var referenceLayouts = []string{
	"2006-1-2 15:4:5",
	"2006-1-2 15:4",
	"2006-1-2T15:4:5Z07:00",
	"2006-1-2T15:4:5Z",
	"2006-1-2T15:4:5",
	"2006-1-2",
}

// TimeBase is a decoded CF time units attribute such as
// "days since 1980-1-1 0:0:0".
type TimeBase struct {
	Unit      time.Duration
	Reference time.Time
}

// ParseTimeUnits decodes a CF "<unit> since <reference>" string.
func ParseTimeUnits(units string) (TimeBase, error) {
	parts := strings.SplitN(strings.TrimSpace(units), " since ", 2)
	if len(parts) != 2 {
		return TimeBase{}, fmt.Errorf("invalid time units %q", units)
	}

	var unit time.Duration
	switch strings.ToLower(strings.TrimSpace(parts[0])) {
	case "days", "day", "d":
		unit = 24 * time.Hour
	case "hours", "hour", "h", "hr":
		unit = time.Hour
	case "minutes", "minute", "min":
		unit = time.Minute
	case "seconds", "second", "s", "sec":
		unit = time.Second
	default:
		return TimeBase{}, fmt.Errorf("unsupported time unit %q", parts[0])
	}

	ref := strings.TrimSpace(parts[1])
	ref = strings.TrimSuffix(ref, " UTC")
	ref = strings.TrimSuffix(ref, " GMT")
	for _, layout := range referenceLayouts {
		if t, err := time.Parse(layout, ref); err == nil {
			return TimeBase{Unit: unit, Reference: t.UTC()}, nil
		}
	}
	return TimeBase{}, fmt.Errorf("invalid reference date %q in time units", ref)
}

// Decode converts offsets into UTC timestamps.
func (b TimeBase) Decode(offsets []float64) []time.Time {
	out := make([]time.Time, len(offsets))
	for i, v := range offsets {
		out[i] = b.Reference.Add(time.Duration(math.Round(v * float64(b.Unit))))
	}
	return out
}

// Encode converts timestamps into offsets.
func (b TimeBase) Encode(times []time.Time) []float64 {
	out := make([]float64, len(times))
	for i, t := range times {
		out[i] = float64(t.Sub(b.Reference)) / float64(b.Unit)
	}
	return out
}

// DecodeTimes parses units and decodes offsets in one step.
func DecodeTimes(units string, offsets []float64) ([]time.Time, error) {
	base, err := ParseTimeUnits(units)
	if err != nil {
		return nil, err
	}
	return base.Decode(offsets), nil
}
