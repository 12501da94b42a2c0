package domain

import (
	"fmt"
	"time"
)

// DryThreshold is the precipitation below which a day counts as dry.
const DryThreshold = 0.1

// YearlyDryStats summarises the dry days of one region in one year.
type YearlyDryStats struct {
	DryDayCount int
	MaxDrySpell int
}

// YearWindow selects which dates belong to a year.
type YearWindow string

const (
	// WindowLegacy keeps dates in (Jan 1, Dec 31]: Jan 1 itself is excluded.
	// It reproduces historical outputs.
	WindowLegacy YearWindow = "legacy"
	// WindowCalendar keeps dates in [Jan 1, Dec 31].
	WindowCalendar YearWindow = "calendar"
)

// ParseYearWindow converts a configuration value into a YearWindow.
// An empty value selects WindowLegacy.
func ParseYearWindow(s string) (YearWindow, error) {
	switch YearWindow(s) {
	case "", WindowLegacy:
		return WindowLegacy, nil
	case WindowCalendar:
		return WindowCalendar, nil
	}
	return "", fmt.Errorf("unknown year window %q (use %s or %s)", s, WindowLegacy, WindowCalendar)
}

func (w YearWindow) contains(d time.Time, year int) bool {
	start := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC)
	if d.After(end) {
		return false
	}
	if w == WindowCalendar {
		return !d.Before(start)
	}
	return d.After(start)
}

// IsDry reports whether a precipitation value is below DryThreshold.
// NaN is never dry.
func IsDry(precip float64) bool {
	return precip < DryThreshold
}

// MaxConsecutive returns the length of the longest run of true flags.
func MaxConsecutive(flags []bool) int {
	best, run := 0, 0
	for _, f := range flags {
		if !f {
			run = 0
			continue
		}
		run++
		if run > best {
			best = run
		}
	}
	return best
}

// AggregateDrySpells computes dry-day statistics for every requested year.
// Records keep their input order inside a year; years without records
// yield zero counts.
func AggregateDrySpells(records []DailyRecord, years []int, window YearWindow) map[int]YearlyDryStats {
	out := make(map[int]YearlyDryStats, len(years))
	for _, year := range years {
		var flags []bool
		for _, rec := range records {
			if window.contains(rec.Date, year) {
				flags = append(flags, IsDry(rec.Precipitation))
			}
		}
		stats := YearlyDryStats{MaxDrySpell: MaxConsecutive(flags)}
		for _, f := range flags {
			if f {
				stats.DryDayCount++
			}
		}
		out[year] = stats
	}
	return out
}

// DrySpellRow flattens yearly statistics into DrySpellColumns order.
func DrySpellRow(id string, stats map[int]YearlyDryStats, years []int) Row {
	values := make([]float64, 0, 2*len(years))
	for _, y := range years {
		values = append(values, float64(stats[y].DryDayCount))
	}
	for _, y := range years {
		values = append(values, float64(stats[y].MaxDrySpell))
	}
	return Row{ID: id, Values: values}
}
