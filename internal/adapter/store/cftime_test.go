package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimeUnits(t *testing.T) {
	tests := []struct {
		units    string
		wantUnit time.Duration
		wantRef  time.Time
	}{
		{"days since 1980-1-1 0:0:0", 24 * time.Hour, time.Date(1980, 1, 1, 0, 0, 0, 0, time.UTC)},
		{"days since 1980-01-01", 24 * time.Hour, time.Date(1980, 1, 1, 0, 0, 0, 0, time.UTC)},
		{"hours since 1900-01-01 00:00:00.0", time.Hour, time.Date(1900, 1, 1, 0, 0, 0, 0, time.UTC)},
		{"seconds since 2000-06-15T12:30:00Z", time.Second, time.Date(2000, 6, 15, 12, 30, 0, 0, time.UTC)},
		{"minutes since 2010-2-3 4:5 UTC", time.Minute, time.Date(2010, 2, 3, 4, 5, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.units, func(t *testing.T) {
			base, err := ParseTimeUnits(tt.units)
			require.NoError(t, err)
			assert.Equal(t, tt.wantUnit, base.Unit)
			assert.True(t, tt.wantRef.Equal(base.Reference), "got %v", base.Reference)
		})
	}
}

func TestParseTimeUnits_Invalid(t *testing.T) {
	for _, units := range []string{"", "days", "fortnights since 1980-1-1", "days since yesterday"} {
		_, err := ParseTimeUnits(units)
		assert.Error(t, err, units)
	}
}

func TestTimeBase_RoundTrip(t *testing.T) {
	times, err := DecodeTimes("days since 1980-1-1 0:0:0", []float64{0, 366, 731.5})
	require.NoError(t, err)

	assert.Equal(t, time.Date(1980, 1, 1, 0, 0, 0, 0, time.UTC), times[0])
	assert.Equal(t, time.Date(1981, 1, 1, 0, 0, 0, 0, time.UTC), times[1])
	assert.Equal(t, time.Date(1982, 1, 1, 12, 0, 0, 0, time.UTC), times[2])

	base, err := ParseTimeUnits("days since 1980-1-1 0:0:0")
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 366, 731.5}, base.Encode(times))
}

func TestVariables_Names(t *testing.T) {
	v := DefaultVariables()
	assert.Equal(t, []string{"longitude", "lon", "x"}, v.LonNames())

	v.Value = "rain"
	assert.Equal(t, []string{"rain", "precip", "precipitation", "pr", "data"}, v.ValueNames())
}
