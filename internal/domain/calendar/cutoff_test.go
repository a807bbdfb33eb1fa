package calendar

import (
	"testing"
	"time"

	"github.com/mealplan/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimeOfDay(t *testing.T) {
	tod, err := ParseTimeOfDay("09:30")
	require.NoError(t, err)
	assert.Equal(t, TimeOfDay{Hour: 9, Minute: 30}, tod)
	assert.Equal(t, "09:30", tod.String())

	_, err = ParseTimeOfDay("25:00")
	assert.Error(t, err)
}

func TestCutoffService_Today(t *testing.T) {
	svc := NewCutoffService()
	instant := time.Date(2024, 12, 1, 23, 30, 0, 0, time.UTC)

	assert.Equal(t, MustParseDate("2024-12-01"), svc.Today(instant, "UTC"))
	assert.Equal(t, MustParseDate("2024-12-02"), svc.Today(instant, "Asia/Almaty"))
	assert.Equal(t, MustParseDate("2024-12-01"), svc.Today(instant, "America/New_York"))
}

func TestCutoffService_UnknownTimezoneFallsBackToUTC(t *testing.T) {
	svc := NewCutoffService()
	instant := time.Date(2024, 12, 1, 23, 30, 0, 0, time.UTC)

	status := svc.Evaluate(instant, "Mars/Olympus_Mons", TimeOfDay{Hour: 10})
	assert.Equal(t, time.UTC, status.Location)
	assert.True(t, status.Fallback)
	assert.Equal(t, MustParseDate("2024-12-01"), status.Today)
	assert.True(t, status.Passed)

	status = svc.Evaluate(instant, "", TimeOfDay{Hour: 10})
	assert.Equal(t, time.UTC, status.Location)
	assert.False(t, status.Fallback)
}

func TestCutoffService_Boundary(t *testing.T) {
	svc := NewCutoffService()
	loc, err := time.LoadLocation("Europe/Berlin")
	require.NoError(t, err)
	cutoff := TimeOfDay{Hour: 10, Minute: 0}
	cutoffInstant := time.Date(2024, 12, 3, 10, 0, 0, 0, loc)

	tests := []struct {
		name   string
		now    time.Time
		passed bool
	}{
		{"one second before", cutoffInstant.Add(-time.Second), false},
		{"one nanosecond before", cutoffInstant.Add(-time.Nanosecond), false},
		{"exactly at cutoff", cutoffInstant, true},
		{"one second after", cutoffInstant.Add(time.Second), true},
		{"local midnight", time.Date(2024, 12, 3, 0, 0, 0, 0, loc), false},
		{"just before local midnight", time.Date(2024, 12, 3, 23, 59, 59, 0, loc), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status := svc.Evaluate(tt.now.UTC(), "Europe/Berlin", cutoff)
			assert.Equal(t, tt.passed, status.Passed)
			assert.Equal(t, MustParseDate("2024-12-03"), status.Today)
		})
	}
}

func TestCutoffService_NewLocalDayResetsCutoff(t *testing.T) {
	svc := NewCutoffService()
	// 2024-12-03 23:30 UTC is already the morning of 2024-12-04 in Almaty.
	status := svc.Evaluate(time.Date(2024, 12, 3, 23, 30, 0, 0, time.UTC), "Asia/Almaty", TimeOfDay{Hour: 10})

	assert.Equal(t, MustParseDate("2024-12-04"), status.Today)
	assert.Equal(t, MustParseDate("2024-12-03"), status.Yesterday())
	assert.False(t, status.Passed)
}

func TestCheckMutable(t *testing.T) {
	today := MustParseDate("2024-12-03")
	before := CutoffStatus{Today: today, Passed: false}
	after := CutoffStatus{Today: today, Passed: true}

	tests := []struct {
		name   string
		date   Date
		status CutoffStatus
		code   string
	}{
		{"future before cutoff", today.AddDays(1), before, ""},
		{"future after cutoff", today.AddDays(1), after, ""},
		{"today before cutoff", today, before, ""},
		{"today after cutoff", today, after, shared.CodeCutoffPassed},
		{"yesterday", today.AddDays(-1), before, shared.CodePastDate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckMutable(tt.date, tt.status)
			if tt.code == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.code, shared.ErrorCode(err))
		})
	}
}
