package exportfile

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestName(t *testing.T) {
	ts := time.Date(2024, 3, 1, 18, 5, 59, 0, time.Local)
	assert.Equal(t, "water_data_2024-03-01_18-05.csv", Name(ts, "csv"))
	assert.Equal(t, "water_data_2024-03-01_18-05.xlsx", Name(ts, "xlsx"))
}

func TestParseTime_RoundTrip(t *testing.T) {
	ts := time.Date(2024, 3, 1, 18, 5, 0, 0, time.Local)
	got, err := ParseTime(ts.Format(TimeLayout))
	require.NoError(t, err)
	assert.True(t, ts.Equal(got))
}

func TestTimestampDateLayout(t *testing.T) {
	ts := time.Date(2024, 3, 1, 12, 30, 45, 123456000, time.UTC)
	s := ts.Format(TimestampDateLayout)
	assert.Equal(t, "2024-03-01T12:30:45.123456Z", s)

	back, err := time.Parse(TimestampDateLayout, s)
	require.NoError(t, err)
	assert.True(t, ts.Equal(back))
}
