package dashboard

import (
	"errors"
	"net/url"
	"testing"
	"time"
)

func mustLocation(t *testing.T, name string) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation(name)
	if err != nil {
		t.Skipf("time zone %s unavailable: %v", name, err)
	}
	return loc
}

func TestFilter_InclusiveBounds(t *testing.T) {
	loc := time.UTC
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, loc)

	f, err := ParseFilter(url.Values{
		"start_date": {"2024-05-01"},
		"end_date":   {"2024-05-03"},
		"start_time": {"08:30"},
		"end_time":   {"18:00"},
	}, now, loc)
	if err != nil {
		t.Fatalf("ParseFilter failed: %v", err)
	}

	tests := []struct {
		name string
		ts   time.Time
		want bool
	}{
		{"first day at start time", time.Date(2024, 5, 1, 8, 30, 0, 0, loc), true},
		{"last day at end time", time.Date(2024, 5, 3, 18, 0, 0, 0, loc), true},
		{"one second after end time", time.Date(2024, 5, 3, 18, 0, 1, 0, loc), false},
		{"one second before start time", time.Date(2024, 5, 2, 8, 29, 59, 0, loc), false},
		{"day before range", time.Date(2024, 4, 30, 12, 0, 0, 0, loc), false},
		{"day after range", time.Date(2024, 5, 4, 12, 0, 0, 0, loc), false},
		{"middle", time.Date(2024, 5, 2, 12, 0, 0, 0, loc), true},
	}
	for _, tt := range tests {
		if got := f.Match(tt.ts); got != tt.want {
			t.Errorf("%s: Match(%v) = %v, want %v", tt.name, tt.ts, got, tt.want)
		}
	}
}

func TestFilter_Defaults(t *testing.T) {
	loc := time.UTC
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, loc)

	f, err := ParseFilter(url.Values{}, now, loc)
	if err != nil {
		t.Fatalf("ParseFilter failed: %v", err)
	}

	echo := f.Echo()
	if echo.StartDate != "2024-05-10" || echo.EndDate != "2024-05-10" {
		t.Errorf("Expected today, got %s..%s", echo.StartDate, echo.EndDate)
	}
	if echo.StartTime != "08:30" || echo.EndTime != "23:59" {
		t.Errorf("Expected 08:30..23:59, got %s..%s", echo.StartTime, echo.EndTime)
	}
	if f.Match(time.Date(2024, 5, 10, 7, 0, 0, 0, loc)) {
		t.Error("07:00 should be outside the default window")
	}
	if !f.Match(time.Date(2024, 5, 10, 23, 59, 0, 0, loc)) {
		t.Error("23:59 should be inside the default window")
	}
}

func TestFilter_UsesLocation(t *testing.T) {
	loc := mustLocation(t, "Africa/Nairobi") // UTC+3, no DST
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, loc)

	f, err := ParseFilter(url.Values{"start_time": {"00:00"}, "end_time": {"02:00"}}, now, loc)
	if err != nil {
		t.Fatalf("ParseFilter failed: %v", err)
	}

	// 22:30 UTC on the 9th is 01:30 on the 10th in Nairobi.
	if !f.Match(time.Date(2024, 5, 9, 22, 30, 0, 0, time.UTC)) {
		t.Error("Expected timestamp to be matched in local time")
	}
}

func TestParseFilter_Invalid(t *testing.T) {
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)

	tests := []url.Values{
		{"start_date": {"10/05/2024"}},
		{"end_date": {"tomorrow"}},
		{"start_time": {"8h30"}},
		{"end_time": {"25:00"}},
		{"start_date": {"2024-05-03"}, "end_date": {"2024-05-01"}},
		{"start_time": {"18:00"}, "end_time": {"08:00"}},
	}
	for _, values := range tests {
		if _, err := ParseFilter(values, now, time.UTC); !errors.Is(err, ErrInvalidFilter) {
			t.Errorf("ParseFilter(%v): expected ErrInvalidFilter, got %v", values, err)
		}
	}
}
