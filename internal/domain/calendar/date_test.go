package calendar

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2024-12-01")
	require.NoError(t, err)
	assert.Equal(t, Date{Year: 2024, Month: time.December, Day: 1}, d)
	assert.Equal(t, "2024-12-01", d.String())

	_, err = ParseDate("2024-13-01")
	assert.Error(t, err)
	_, err = ParseDate("12/01/2024")
	assert.Error(t, err)
}

func TestDate_AddDays(t *testing.T) {
	tests := []struct {
		name string
		from string
		n    int
		want string
	}{
		{"same month", "2024-12-01", 9, "2024-12-10"},
		{"year rollover", "2024-12-31", 1, "2025-01-01"},
		{"leap day", "2024-02-28", 1, "2024-02-29"},
		{"backwards", "2025-03-01", -1, "2025-02-28"},
		{"zero", "2024-06-15", 0, "2024-06-15"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, MustParseDate(tt.want), MustParseDate(tt.from).AddDays(tt.n))
		})
	}
}

func TestDate_DaysSince(t *testing.T) {
	assert.Equal(t, 9, MustParseDate("2024-12-10").DaysSince(MustParseDate("2024-12-01")))
	assert.Equal(t, -3, MustParseDate("2024-12-05").DaysSince(MustParseDate("2024-12-08")))
	assert.Equal(t, 366, MustParseDate("2025-01-01").DaysSince(MustParseDate("2024-01-01")))
}

func TestDate_Compare(t *testing.T) {
	a := MustParseDate("2024-12-01")
	b := MustParseDate("2024-12-02")

	assert.True(t, a.Before(b))
	assert.False(t, b.Before(a))
	assert.True(t, b.After(a))
	assert.Equal(t, -1, a.Compare(b))
	assert.Equal(t, 1, b.Compare(a))
	assert.Equal(t, 0, a.Compare(MustParseDate("2024-12-01")))
}

func TestDate_DateOfUsesLocation(t *testing.T) {
	tokyo, err := time.LoadLocation("Asia/Tokyo")
	require.NoError(t, err)

	instant := time.Date(2024, 12, 1, 20, 0, 0, 0, time.UTC)
	assert.Equal(t, MustParseDate("2024-12-01"), DateOf(instant))
	assert.Equal(t, MustParseDate("2024-12-02"), DateOf(instant.In(tokyo)))
}

func TestDate_JSON(t *testing.T) {
	type payload struct {
		Start Date  `json:"start"`
		End   *Date `json:"end,omitempty"`
	}

	data, err := json.Marshal(payload{Start: MustParseDate("2024-12-01")})
	require.NoError(t, err)
	assert.JSONEq(t, `{"start":"2024-12-01"}`, string(data))

	var decoded payload
	require.NoError(t, json.Unmarshal([]byte(`{"start":"2024-12-05","end":"2024-12-10"}`), &decoded))
	assert.Equal(t, MustParseDate("2024-12-05"), decoded.Start)
	require.NotNil(t, decoded.End)
	assert.Equal(t, MustParseDate("2024-12-10"), *decoded.End)

	assert.Error(t, json.Unmarshal([]byte(`{"start":"tomorrow"}`), &decoded))
}

func TestDate_Scan(t *testing.T) {
	var d Date

	require.NoError(t, d.Scan(time.Date(2024, 12, 3, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, MustParseDate("2024-12-03"), d)

	require.NoError(t, d.Scan("2024-12-04"))
	assert.Equal(t, MustParseDate("2024-12-04"), d)

	require.NoError(t, d.Scan([]byte("2024-12-05 00:00:00+00:00")))
	assert.Equal(t, MustParseDate("2024-12-05"), d)

	require.NoError(t, d.Scan(nil))
	assert.True(t, d.IsZero())

	assert.Error(t, d.Scan(42))
}

func TestDate_Value(t *testing.T) {
	v, err := MustParseDate("2024-12-01").Value()
	require.NoError(t, err)
	assert.Equal(t, "2024-12-01", v)

	v, err = Date{}.Value()
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestISOWeek(t *testing.T) {
	tests := []struct {
		date  string
		year  int
		week  int
		start string
		end   string
	}{
		{"2024-12-03", 2024, 49, "2024-12-02", "2024-12-08"},
		{"2024-12-30", 2025, 1, "2024-12-30", "2025-01-05"},
		{"2021-01-03", 2020, 53, "2020-12-28", "2021-01-03"},
		{"2025-01-06", 2025, 2, "2025-01-06", "2025-01-12"},
	}

	for _, tt := range tests {
		t.Run(tt.date, func(t *testing.T) {
			w := MustParseDate(tt.date).ISOWeek()
			assert.Equal(t, tt.year, w.Year)
			assert.Equal(t, tt.week, w.Week)
			assert.Equal(t, MustParseDate(tt.start), w.Start())
			assert.Equal(t, MustParseDate(tt.end), w.End())
		})
	}
}
