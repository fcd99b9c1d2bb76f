package utils

import (
	"testing"
	"time"

	"cloud.google.com/go/civil"
)

func TestParseMonth(t *testing.T) {
	cases := map[string]civil.Date{
		"2024-08":      {Year: 2024, Month: time.August, Day: 1},
		"2024-08-17":   {Year: 2024, Month: time.August, Day: 1},
		"Aug 17, 2024": {Year: 2024, Month: time.August, Day: 1},
	}
	for in, want := range cases {
		got, err := ParseMonth(in)
		if err != nil {
			t.Fatalf("ParseMonth(%q) unexpected error: %v", in, err)
		}
		if got != want {
			t.Fatalf("ParseMonth(%q) = %s, want %s", in, got, want)
		}
	}
}

func TestParseMonthRejectsGarbage(t *testing.T) {
	if _, err := ParseMonth(""); err == nil {
		t.Fatalf("expected error for empty value")
	}
	if _, err := ParseMonth("not a month"); err == nil {
		t.Fatalf("expected error for unparsable value")
	}
}

func TestAddMonths(t *testing.T) {
	cases := []struct {
		in   civil.Date
		n    int
		want civil.Date
	}{
		{civil.Date{Year: 2024, Month: time.August, Day: 1}, 1, civil.Date{Year: 2024, Month: time.September, Day: 1}},
		{civil.Date{Year: 2024, Month: time.December, Day: 1}, 1, civil.Date{Year: 2025, Month: time.January, Day: 1}},
		{civil.Date{Year: 2024, Month: time.January, Day: 1}, -1, civil.Date{Year: 2023, Month: time.December, Day: 1}},
		{civil.Date{Year: 2024, Month: time.January, Day: 31}, 1, civil.Date{Year: 2024, Month: time.February, Day: 29}},
		{civil.Date{Year: 2023, Month: time.March, Day: 31}, -1, civil.Date{Year: 2023, Month: time.February, Day: 28}},
		{civil.Date{Year: 2024, Month: time.May, Day: 15}, 14, civil.Date{Year: 2025, Month: time.July, Day: 15}},
	}
	for _, tc := range cases {
		if got := AddMonths(tc.in, tc.n); got != tc.want {
			t.Fatalf("AddMonths(%s, %d) = %s, want %s", tc.in, tc.n, got, tc.want)
		}
	}
}

func TestNextMonthStart(t *testing.T) {
	now := time.Date(2026, time.October, 19, 23, 30, 0, 0, time.UTC)
	want := civil.Date{Year: 2026, Month: time.November, Day: 1}
	if got := NextMonthStart(now); got != want {
		t.Fatalf("NextMonthStart = %s, want %s", got, want)
	}

	clock := FixedClock(now)
	if !clock.Now().Equal(now) {
		t.Fatalf("FixedClock drifted: %v", clock.Now())
	}
}
