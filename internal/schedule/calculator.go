// Package schedule computes the UTC instants of a once-a-day posting plan.
//
// Given an item count, an optional start date, an IANA timezone and a local
// wall-clock time, it produces one instant per calendar day in that zone. Day
// arithmetic is done on the date and the wall clock is re-resolved each day,
// so consecutive instants are 23 or 25 hours apart across DST transitions.
package schedule

import (
	"fmt"
	"strings"
	"time"

	"dailypost/internal/types"
)

// Clock returns the current time. Tests inject a fixed one.
type Clock func() time.Time

// Request describes one schedule computation. Zero values for Timezone and
// LocalTime are replaced by the calculator's defaults.
type Request struct {
	Count     int
	StartDate *types.Date
	Timezone  string
	LocalTime *types.TimeOfDay
}

// Calculator resolves requests against configured defaults and a clock.
type Calculator struct {
	clock           Clock
	defaultTimezone string
	defaultTime     types.TimeOfDay
}

// NewCalculator creates a Calculator. A nil clock means time.Now.
func NewCalculator(clock Clock, defaultTimezone string, defaultTime types.TimeOfDay) *Calculator {
	if clock == nil {
		clock = time.Now
	}
	if defaultTimezone == "" {
		defaultTimezone = "UTC"
	}
	return &Calculator{
		clock:           clock,
		defaultTimezone: defaultTimezone,
		defaultTime:     defaultTime,
	}
}

// Resolve fills the defaults into req and returns the effective timezone and
// local time.
func (c *Calculator) Resolve(req Request) (string, types.TimeOfDay) {
	tz := req.Timezone
	if tz == "" {
		tz = c.defaultTimezone
	}
	at := c.defaultTime
	if req.LocalTime != nil {
		at = *req.LocalTime
	}
	return tz, at
}

// Compute returns req.Count strictly increasing UTC instants, one per day.
func (c *Calculator) Compute(req Request) ([]time.Time, error) {
	tz, at := c.Resolve(req)
	return DailyInstants(req.Count, req.StartDate, tz, at, c.clock())
}

// LoadZone resolves an IANA zone name. "Local" and the empty name are
// rejected so results never depend on the host.
func LoadZone(name string) (*time.Location, error) {
	if name == "" || strings.EqualFold(name, "local") {
		return nil, types.NewInvalidScheduleError(
			types.ErrCodeValidationInvalidTimezone,
			fmt.Sprintf("timezone %q is not an IANA zone name", name),
			nil,
		)
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, types.NewInvalidScheduleError(
			types.ErrCodeValidationInvalidTimezone,
			fmt.Sprintf("unknown timezone %q", name),
			err,
		)
	}
	return loc, nil
}

// DailyInstants is the pure form of Calculator.Compute.
//
//  1. base = start (or today in tz) at the local time
//  2. if base is before now, base moves to the next calendar day
//  3. result[i] = base + i calendar days, as UTC
//
// A local time that does not exist on one of the days (spring-forward gap) is
// an error rather than being shifted, and so is a day the zone skips entirely. A start date before today in tz is an
// error as well.
func DailyInstants(count int, start *types.Date, tz string, at types.TimeOfDay, now time.Time) ([]time.Time, error) {
	if count < 1 {
		return nil, types.NewInvalidScheduleError("", "at least one item is required", nil)
	}
	if at.Hour < 0 || at.Hour > 23 || at.Minute < 0 || at.Minute > 59 {
		return nil, types.NewInvalidScheduleError(
			types.ErrCodeValidationInvalidTimeOfDay,
			fmt.Sprintf("time of day %s is out of range", at),
			nil,
		)
	}

	loc, err := LoadZone(tz)
	if err != nil {
		return nil, err
	}

	today := types.DateOf(now.In(loc))
	base := today
	if start != nil {
		if start.Before(today) {
			return nil, types.NewInvalidScheduleError(
				types.ErrCodeValidationInvalidDate,
				fmt.Sprintf("start date %s is before today (%s) in %s", start, today, tz),
				nil,
			)
		}
		base = *start
	}

	// Only the comparison with now uses the unchecked wall clock, so a gap on
	// a day that gets skipped anyway is not an error.
	if wallClock(base, 0, at, loc).Before(now) {
		base = addDays(base, 1)
	}

	instants := make([]time.Time, count)
	for i := range instants {
		t := wallClock(base, i, at, loc)
		day := addDays(base, i)
		if types.DateOf(t) != day {
			return nil, types.NewInvalidScheduleError(
				"",
				fmt.Sprintf("calendar day %s does not exist in %s", day, tz),
				nil,
			)
		}
		if t.Hour() != at.Hour || t.Minute() != at.Minute {
			return nil, types.NewInvalidScheduleError(
				"",
				fmt.Sprintf("local time %s does not exist on %s in %s", at, day, tz),
				nil,
			)
		}
		instants[i] = t.UTC()
	}
	return instants, nil
}

// wallClock is the instant of d+offset days at the given local time. time.Date
// normalizes day overflow across month and year boundaries.
func wallClock(d types.Date, offset int, at types.TimeOfDay, loc *time.Location) time.Time {
	return time.Date(d.Year, d.Month, d.Day+offset, at.Hour, at.Minute, 0, 0, loc)
}

func addDays(d types.Date, n int) types.Date {
	return types.DateOf(time.Date(d.Year, d.Month, d.Day+n, 12, 0, 0, 0, time.UTC))
}

// Format renders an instant the way it is sent to the publishing service.
func Format(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
