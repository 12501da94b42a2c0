package domain

import (
	"fmt"
	"strconv"
	"time"
)

// PeriodOrigin anchors period labels when a dataset has no time axis.
type PeriodOrigin struct {
	StartYear  int
	StartMonth int // 1-12; only used for monthly data.
}

// PeriodColumns returns one column name per time step.
//
//	annual:  precip_<year>
//	monthly: precip_<year>_<month>
//
// Labels come from the time axis when it is present, otherwise from origin.
func PeriodColumns(g Granularity, times []time.Time, n int, origin PeriodOrigin) ([]string, error) {
	if len(times) != 0 && len(times) != n {
		return nil, fmt.Errorf("time axis has %d entries, expected %d", len(times), n)
	}
	cols := make([]string, n)
	switch g {
	case GranularityAnnual:
		for i := range cols {
			year := origin.StartYear + i
			if len(times) > 0 {
				year = times[i].Year()
			}
			cols[i] = "precip_" + strconv.Itoa(year)
		}
	case GranularityMonthly:
		month := origin.StartMonth
		if month < 1 || month > 12 {
			month = 1
		}
		base := time.Date(origin.StartYear, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
		for i := range cols {
			t := base.AddDate(0, i, 0)
			if len(times) > 0 {
				t = times[i]
			}
			cols[i] = fmt.Sprintf("precip_%d_%d", t.Year(), int(t.Month()))
		}
	case GranularityDaily:
		for i := range cols {
			if len(times) == 0 {
				return nil, fmt.Errorf("daily labels require a time axis")
			}
			cols[i] = "precip_" + times[i].Format(DateLayout)
		}
	default:
		return nil, fmt.Errorf("no period labels for granularity %q", g)
	}
	return cols, nil
}

// DateLayout is the date format of per-region daily files.
const DateLayout = "2006-01-02"

// DrySpellColumns returns zero_rain_<year> for every year followed by
// zero_rain_spell_<year> for every year.
func DrySpellColumns(years []int) []string {
	cols := make([]string, 0, 2*len(years))
	for _, y := range years {
		cols = append(cols, "zero_rain_"+strconv.Itoa(y))
	}
	for _, y := range years {
		cols = append(cols, "zero_rain_spell_"+strconv.Itoa(y))
	}
	return cols
}

// YearRange expands an inclusive [first, last] range.
func YearRange(first, last int) []int {
	if last < first {
		return nil
	}
	years := make([]int, 0, last-first+1)
	for y := first; y <= last; y++ {
		years = append(years, y)
	}
	return years
}
