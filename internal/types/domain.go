package types

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

// MaxPostLength is the upper bound, in characters, of a single post.
const MaxPostLength = 280

// DefaultPostTime is the local time of day used when neither the request nor
// the configuration names one.
var DefaultPostTime = TimeOfDay{Hour: 21, Minute: 0}

// DefaultPlatforms are the platform identifiers the account listing keeps
// when the caller does not ask for a specific set.
var DefaultPlatforms = []string{"twitter", "x"}

// SocialAccount is a connected account on the publishing service. It is
// read-only from this system's perspective.
type SocialAccount struct {
	ID       string  `json:"id"`
	Platform string  `json:"platform"`
	Username *string `json:"username"`
}

// ScheduleRequest is the validated input of the schedule operation.
type ScheduleRequest struct {
	Items      []string
	AccountIDs []string
	// StartDate is nil when the schedule should start "today" in Timezone.
	StartDate *Date
	// Timezone and LocalTime fall back to configured defaults when empty.
	Timezone  string
	LocalTime *TimeOfDay
}

// ScheduledResult reports one successfully created remote post.
type ScheduledResult struct {
	Index       int    `json:"index"`
	Text        string `json:"text"`
	ScheduledAt string `json:"scheduledAt"`
	RemoteID    string `json:"id"`
}

// PlannedPost is one entry of a dry-run schedule: the instant an item would be
// published at, without any remote call.
type PlannedPost struct {
	Index       int    `json:"index"`
	Text        string `json:"text"`
	ScheduledAt string `json:"scheduledAt"`
	LocalTime   string `json:"localTime"`
}

// CreatePostInput is the payload of a single "create post" call.
type CreatePostInput struct {
	ScheduledAt      time.Time
	SocialAccountIDs []string
	Text             string
}

// CreatedPost is the remote service's answer to a "create post" call.
type CreatedPost struct {
	ID string `json:"id"`
}

// TimeOfDay is a wall-clock time (hour and minute) interpreted in a zone.
type TimeOfDay struct {
	Hour   int
	Minute int
}

// ParseTimeOfDay parses a strict 24-hour "HH:MM" string.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	if len(s) != 5 || s[2] != ':' || !isDigits(s[:2]) || !isDigits(s[3:]) {
		return TimeOfDay{}, fmt.Errorf("time of day %q must be formatted HH:MM", s)
	}
	h, err := strconv.Atoi(s[:2])
	if err != nil {
		return TimeOfDay{}, fmt.Errorf("time of day %q has a non-numeric hour", s)
	}
	m, err := strconv.Atoi(s[3:])
	if err != nil {
		return TimeOfDay{}, fmt.Errorf("time of day %q has non-numeric minutes", s)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return TimeOfDay{}, fmt.Errorf("time of day %q is out of range", s)
	}
	return TimeOfDay{Hour: h, Minute: m}, nil
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// String formats the time of day as HH:MM.
func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// Date is a calendar date without a time or zone.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// ParseDate parses an ISO "YYYY-MM-DD" calendar date.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return Date{}, fmt.Errorf("date %q must be formatted YYYY-MM-DD", s)
	}
	return DateOf(t), nil
}

// DateOf returns the calendar date of t in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// Before reports whether d is an earlier calendar day than other.
func (d Date) Before(other Date) bool {
	if d.Year != other.Year {
		return d.Year < other.Year
	}
	if d.Month != other.Month {
		return d.Month < other.Month
	}
	return d.Day < other.Day
}

// String formats the date as YYYY-MM-DD.
func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// NormalizePost trims a candidate post and reports whether it is publishable:
// non-empty and no longer than MaxPostLength characters.
func NormalizePost(s string) (string, bool) {
	t := strings.TrimSpace(s)
	if t == "" || utf8.RuneCountInString(t) > MaxPostLength {
		return t, false
	}
	return t, true
}
