package utils

import (
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/araddon/dateparse"
)

// Clock supplies the current instant. Components that need "today" take a
// Clock instead of reading the wall clock so runs stay reproducible.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

// Now returns time.Now in UTC.
func (SystemClock) Now() time.Time { return time.Now().UTC() }

// FixedClock always reports the same instant.
type FixedClock time.Time

// Now returns the fixed instant.
func (c FixedClock) Now() time.Time { return time.Time(c) }

// ParseMonth parses a loosely formatted month ("2024-08", "Aug 17, 2024",
// "2024-08-17") and returns the first day of that month.
func ParseMonth(value string) (civil.Date, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return civil.Date{}, fmt.Errorf("empty month value")
	}
	t, err := dateparse.ParseIn(value, time.UTC)
	if err != nil {
		return civil.Date{}, fmt.Errorf("parse month %q: %w", value, err)
	}
	return StartOfMonth(civil.DateOf(t)), nil
}

// StartOfMonth returns the first day of d's month.
func StartOfMonth(d civil.Date) civil.Date {
	return civil.Date{Year: d.Year, Month: d.Month, Day: 1}
}

// AddMonths moves d by n calendar months. The day is clamped to the length of
// the target month, so Jan 31 + 1 month is the last day of February. Years
// before 1 CE are not supported.
func AddMonths(d civil.Date, n int) civil.Date {
	total := d.Year*12 + int(d.Month-1) + n
	year, month := total/12, time.Month(total%12+1)
	day := d.Day
	if last := DaysIn(year, month); day > last {
		day = last
	}
	return civil.Date{Year: year, Month: month, Day: day}
}

// DaysIn reports the number of days in the given month.
func DaysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// NextMonthStart returns the first day of the month following t's UTC month.
func NextMonthStart(t time.Time) civil.Date {
	return AddMonths(StartOfMonth(civil.DateOf(t.UTC())), 1)
}
