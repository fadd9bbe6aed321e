package schedule

import (
	"testing"
	"time"

	"dailypost/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustZone(t *testing.T, name string) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation(name)
	if err != nil {
		t.Skipf("tzdata for %s unavailable: %v", name, err)
	}
	return loc
}

func at(h, m int) types.TimeOfDay { return types.TimeOfDay{Hour: h, Minute: m} }

func TestDailyInstants_BeforeLocalTimeStartsToday(t *testing.T) {
	ny := mustZone(t, "America/New_York")
	now := time.Date(2026, 5, 4, 8, 0, 0, 0, ny)

	got, err := DailyInstants(2, nil, "America/New_York", at(9, 0), now)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, time.Date(2026, 5, 4, 9, 0, 0, 0, ny).UTC(), got[0])
	assert.Equal(t, time.Date(2026, 5, 5, 9, 0, 0, 0, ny).UTC(), got[1])
	assert.Equal(t, time.UTC, got[0].Location())
}

func TestDailyInstants_AfterLocalTimeStartsTomorrow(t *testing.T) {
	ny := mustZone(t, "America/New_York")
	now := time.Date(2026, 5, 4, 10, 0, 0, 0, ny)

	got, err := DailyInstants(2, nil, "America/New_York", at(9, 0), now)
	require.NoError(t, err)

	assert.Equal(t, time.Date(2026, 5, 5, 9, 0, 0, 0, ny).UTC(), got[0])
	assert.Equal(t, time.Date(2026, 5, 6, 9, 0, 0, 0, ny).UTC(), got[1])
}

func TestDailyInstants_ExactlyNowIsKept(t *testing.T) {
	now := time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)

	got, err := DailyInstants(1, nil, "UTC", at(9, 0), now)
	require.NoError(t, err)
	assert.Equal(t, now, got[0])
}

func TestDailyInstants_CountAndOrdering(t *testing.T) {
	tokyo := mustZone(t, "Asia/Tokyo")
	now := time.Date(2026, 1, 28, 12, 0, 0, 0, time.UTC)

	for _, n := range []int{1, 2, 7, 40} {
		got, err := DailyInstants(n, nil, "Asia/Tokyo", at(21, 0), now)
		require.NoError(t, err)
		require.Len(t, got, n)

		for i := 1; i < len(got); i++ {
			assert.True(t, got[i].After(got[i-1]), "instants must be strictly increasing")
			prev := types.DateOf(got[i-1].In(tokyo))
			cur := types.DateOf(got[i].In(tokyo))
			assert.Equal(t, addDays(prev, 1), cur, "consecutive instants are one calendar day apart")
			assert.Equal(t, 21, got[i].In(tokyo).Hour())
		}
	}
}

func TestDailyInstants_CrossesMonthAndYear(t *testing.T) {
	now := time.Date(2026, 12, 30, 0, 0, 0, 0, time.UTC)

	got, err := DailyInstants(4, nil, "UTC", at(12, 0), now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2027, 1, 2, 12, 0, 0, 0, time.UTC), got[3])
}

func TestDailyInstants_SpringForwardKeepsWallClock(t *testing.T) {
	ny := mustZone(t, "America/New_York")
	// DST starts 2026-03-08 at 02:00 local.
	now := time.Date(2026, 3, 6, 12, 0, 0, 0, ny)

	got, err := DailyInstants(4, nil, "America/New_York", at(9, 0), now)
	require.NoError(t, err)

	for _, instant := range got {
		local := instant.In(ny)
		assert.Equal(t, 9, local.Hour())
		assert.Equal(t, 0, local.Minute())
	}
	// Mar 7 09:00 EST -> Mar 8 09:00 EDT is 23 hours.
	assert.Equal(t, 23*time.Hour, got[2].Sub(got[1]))
	assert.Equal(t, 24*time.Hour, got[3].Sub(got[2]))
}

func TestDailyInstants_FallBackKeepsWallClock(t *testing.T) {
	ny := mustZone(t, "America/New_York")
	// DST ends 2026-11-01 at 02:00 local.
	now := time.Date(2026, 10, 31, 6, 0, 0, 0, ny)

	got, err := DailyInstants(3, nil, "America/New_York", at(9, 0), now)
	require.NoError(t, err)

	assert.Equal(t, 25*time.Hour, got[1].Sub(got[0]))
	assert.Equal(t, 24*time.Hour, got[2].Sub(got[1]))
	assert.Equal(t, 9, got[1].In(ny).Hour())
}

func TestDailyInstants_NonexistentLocalTime(t *testing.T) {
	ny := mustZone(t, "America/New_York")
	now := time.Date(2026, 3, 6, 12, 0, 0, 0, ny)

	_, err := DailyInstants(5, nil, "America/New_York", at(2, 30), now)
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.ErrCodeValidationInvalidSchedule))
	assert.Contains(t, err.Error(), "2026-03-08")
}

func TestDailyInstants_SkippedCalendarDay(t *testing.T) {
	apia := mustZone(t, "Pacific/Apia")
	// Samoa moved across the date line: 2011-12-30 never happened there.
	now := time.Date(2011, 12, 28, 8, 0, 0, 0, apia)

	_, err := DailyInstants(4, nil, "Pacific/Apia", at(9, 0), now)
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.ErrCodeValidationInvalidSchedule))
	assert.Contains(t, err.Error(), "2011-12-30")

	got, err := DailyInstants(2, nil, "Pacific/Apia", at(9, 0), now)
	require.NoError(t, err)
	assert.True(t, got[0].Before(got[1]))
}

func TestDailyInstants_GapOnSkippedDayIsIgnored(t *testing.T) {
	ny := mustZone(t, "America/New_York")
	// Already past 02:30 on the transition day; the plan starts on Mar 9.
	now := time.Date(2026, 3, 8, 12, 0, 0, 0, ny)

	got, err := DailyInstants(2, nil, "America/New_York", at(2, 30), now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 9, 2, 30, 0, 0, ny).UTC(), got[0])
}

func TestDailyInstants_StartDate(t *testing.T) {
	now := time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)
	start := types.Date{Year: 2026, Month: time.May, Day: 10}

	got, err := DailyInstants(2, &start, "UTC", at(9, 0), now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 5, 10, 9, 0, 0, 0, time.UTC), got[0])
	assert.Equal(t, time.Date(2026, 5, 11, 9, 0, 0, 0, time.UTC), got[1])
}

func TestDailyInstants_StartDateTodayAlreadyPassed(t *testing.T) {
	now := time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)
	start := types.Date{Year: 2026, Month: time.May, Day: 4}

	got, err := DailyInstants(1, &start, "UTC", at(9, 0), now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 5, 5, 9, 0, 0, 0, time.UTC), got[0])
}

func TestDailyInstants_StartDateInThePast(t *testing.T) {
	now := time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)
	start := types.Date{Year: 2026, Month: time.May, Day: 1}

	_, err := DailyInstants(1, &start, "UTC", at(9, 0), now)
	assert.True(t, types.IsCode(err, types.ErrCodeValidationInvalidDate), "got %v", err)
}

// "Today" is evaluated in the target zone, not in UTC.
func TestDailyInstants_TodayIsZoneLocal(t *testing.T) {
	tokyo := mustZone(t, "Asia/Tokyo")
	// 2026-05-04 20:00 UTC is already 2026-05-05 05:00 in Tokyo.
	now := time.Date(2026, 5, 4, 20, 0, 0, 0, time.UTC)

	got, err := DailyInstants(1, nil, "Asia/Tokyo", at(9, 0), now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 5, 5, 9, 0, 0, 0, tokyo).UTC(), got[0])

	start := types.Date{Year: 2026, Month: time.May, Day: 4}
	_, err = DailyInstants(1, &start, "Asia/Tokyo", at(9, 0), now)
	assert.Error(t, err, "May 4 is yesterday in Tokyo")
}

func TestDailyInstants_InvalidInputs(t *testing.T) {
	now := time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		count    int
		tz       string
		at       types.TimeOfDay
		wantCode types.ErrorCode
	}{
		{"zero items", 0, "UTC", at(9, 0), types.ErrCodeValidationInvalidSchedule},
		{"unknown zone", 1, "Mars/Olympus", at(9, 0), types.ErrCodeValidationInvalidTimezone},
		{"empty zone", 1, "", at(9, 0), types.ErrCodeValidationInvalidTimezone},
		{"host-local zone", 1, "Local", at(9, 0), types.ErrCodeValidationInvalidTimezone},
		{"hour out of range", 1, "UTC", at(24, 0), types.ErrCodeValidationInvalidTimeOfDay},
		{"minute out of range", 1, "UTC", at(9, 75), types.ErrCodeValidationInvalidTimeOfDay},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DailyInstants(tt.count, nil, tt.tz, tt.at, now)
			require.Error(t, err)
			assert.True(t, types.IsCode(err, tt.wantCode), "got %v", err)
		})
	}
}

func TestCalculator_AppliesDefaults(t *testing.T) {
	now := time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)
	calc := NewCalculator(func() time.Time { return now }, "UTC", at(21, 0))

	got, err := calc.Compute(Request{Count: 1})
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 5, 4, 21, 0, 0, 0, time.UTC), got[0])

	custom := at(8, 15)
	got, err = calc.Compute(Request{Count: 1, LocalTime: &custom, Timezone: "UTC"})
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 5, 5, 8, 15, 0, 0, time.UTC), got[0])

	tz, localTime := calc.Resolve(Request{})
	assert.Equal(t, "UTC", tz)
	assert.Equal(t, at(21, 0), localTime)
}

func TestFormat(t *testing.T) {
	ny := mustZone(t, "America/New_York")
	assert.Equal(t, "2026-05-04T13:00:00Z", Format(time.Date(2026, 5, 4, 9, 0, 0, 0, ny)))
}
