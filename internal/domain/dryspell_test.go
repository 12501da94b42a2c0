package domain

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func flagsFromString(s string) []bool {
	flags := make([]bool, len(s))
	for i, c := range s {
		flags[i] = c == '1'
	}
	return flags
}

func TestMaxConsecutive(t *testing.T) {
	tests := []struct {
		name  string
		flags string
		want  int
	}{
		{"empty", "", 0},
		{"all wet", "0000", 0},
		{"all dry", "1111", 4},
		{"mixed", "0011100010000111", 3},
		{"run at end", "0101111", 4},
		{"single", "00100", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MaxConsecutive(flagsFromString(tt.flags)))
		})
	}
}

// dailyFromFlags builds consecutive days starting at start, dry where the flag is '1'.
func dailyFromFlags(start time.Time, flags string) []DailyRecord {
	recs := make([]DailyRecord, len(flags))
	for i, c := range flags {
		p := 5.0
		if c == '1' {
			p = 0.0
		}
		recs[i] = DailyRecord{Date: start.AddDate(0, 0, i), Precipitation: p}
	}
	return recs
}

func TestAggregateDrySpells_FlagSequence(t *testing.T) {
	start := time.Date(2001, time.March, 1, 0, 0, 0, 0, time.UTC)
	recs := dailyFromFlags(start, "0011100010000111")

	got := AggregateDrySpells(recs, []int{2001}, WindowLegacy)

	require.Contains(t, got, 2001)
	assert.Equal(t, YearlyDryStats{DryDayCount: 7, MaxDrySpell: 3}, got[2001])
}

func TestAggregateDrySpells_EmptyYear(t *testing.T) {
	recs := dailyFromFlags(time.Date(2001, time.June, 1, 0, 0, 0, 0, time.UTC), "111")

	got := AggregateDrySpells(recs, []int{2000, 2001}, WindowLegacy)

	assert.Equal(t, YearlyDryStats{}, got[2000])
	assert.Equal(t, YearlyDryStats{DryDayCount: 3, MaxDrySpell: 3}, got[2001])
}

func TestAggregateDrySpells_YearBoundary(t *testing.T) {
	// Dec 30 1999 .. Jan 3 2000, all dry.
	recs := dailyFromFlags(time.Date(1999, time.December, 30, 0, 0, 0, 0, time.UTC), "11111")

	legacy := AggregateDrySpells(recs, []int{1999, 2000}, WindowLegacy)
	assert.Equal(t, 2, legacy[1999].DryDayCount, "Dec 30 and Dec 31")
	assert.Equal(t, 2, legacy[2000].DryDayCount, "Jan 1 excluded")

	calendar := AggregateDrySpells(recs, []int{1999, 2000}, WindowCalendar)
	assert.Equal(t, 2, calendar[1999].DryDayCount)
	assert.Equal(t, 3, calendar[2000].DryDayCount, "Jan 1 included")
	assert.Equal(t, 3, calendar[2000].MaxDrySpell)
}

func TestAggregateDrySpells_NaNIsNotDry(t *testing.T) {
	day := time.Date(2005, time.May, 1, 0, 0, 0, 0, time.UTC)
	recs := []DailyRecord{
		{Date: day, Precipitation: 0},
		{Date: day.AddDate(0, 0, 1), Precipitation: math.NaN()},
		{Date: day.AddDate(0, 0, 2), Precipitation: 0.05},
		{Date: day.AddDate(0, 0, 3), Precipitation: 0.1},
	}

	got := AggregateDrySpells(recs, []int{2005}, WindowLegacy)

	assert.Equal(t, YearlyDryStats{DryDayCount: 2, MaxDrySpell: 1}, got[2005])
}

func TestAggregateDrySpells_BoundedByYearLength(t *testing.T) {
	start := time.Date(2003, time.January, 1, 0, 0, 0, 0, time.UTC)
	recs := make([]DailyRecord, 0, 3*366)
	for d := start; d.Year() < 2006; d = d.AddDate(0, 0, 1) {
		recs = append(recs, DailyRecord{Date: d, Precipitation: 0})
	}

	for _, window := range []YearWindow{WindowLegacy, WindowCalendar} {
		got := AggregateDrySpells(recs, []int{2003, 2004, 2005}, window)
		for year, stats := range got {
			days := time.Date(year+1, 1, 1, 0, 0, 0, 0, time.UTC).Sub(time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC)).Hours() / 24
			assert.LessOrEqual(t, float64(stats.DryDayCount), days)
			assert.LessOrEqual(t, float64(stats.MaxDrySpell), days)
		}
	}
}

func TestParseYearWindow(t *testing.T) {
	w, err := ParseYearWindow("")
	require.NoError(t, err)
	assert.Equal(t, WindowLegacy, w)

	w, err = ParseYearWindow("calendar")
	require.NoError(t, err)
	assert.Equal(t, WindowCalendar, w)

	_, err = ParseYearWindow("fiscal")
	assert.Error(t, err)
}

func TestDrySpellRow(t *testing.T) {
	stats := map[int]YearlyDryStats{
		1981: {DryDayCount: 10, MaxDrySpell: 4},
		1982: {DryDayCount: 12, MaxDrySpell: 6},
	}

	row := DrySpellRow("1001", stats, []int{1981, 1982})

	assert.Equal(t, "1001", row.ID)
	assert.Equal(t, []float64{10, 12, 4, 6}, row.Values)
	assert.Equal(t,
		[]string{"zero_rain_1981", "zero_rain_1982", "zero_rain_spell_1981", "zero_rain_spell_1982"},
		DrySpellColumns([]int{1981, 1982}))
}
