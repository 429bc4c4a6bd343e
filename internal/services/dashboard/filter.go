package dashboard

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/artefactory/smartparks/internal/dto"
)

var ErrInvalidFilter = errors.New("invalid filter")

const (
	dateLayout  = "2006-01-02"
	clockLayout = "15:04"
	// RowLayout is how row timestamps are displayed.
	RowLayout = "02/01/2006 | 15:04:05"
)

var (
	defaultStartClock = 8*time.Hour + 30*time.Minute
	defaultEndClock   = 23*time.Hour + 59*time.Minute
)

// Filter keeps rows whose local date is within [StartDate, EndDate] and whose
// local time of day is within [StartClock, EndClock]. Both ranges are inclusive.
type Filter struct {
	StartDate  time.Time // midnight in Location
	EndDate    time.Time
	StartClock time.Duration // since midnight
	EndClock   time.Duration
	Location   *time.Location
}

// DefaultFilter covers today from 08:30 to 23:59.
func DefaultFilter(now time.Time, loc *time.Location) Filter {
	today := midnight(now.In(loc))
	return Filter{
		StartDate:  today,
		EndDate:    today,
		StartClock: defaultStartClock,
		EndClock:   defaultEndClock,
		Location:   loc,
	}
}

// ParseFilter reads start_date, end_date (YYYY-MM-DD), start_time and
// end_time (HH:MM) from query values. Missing values keep their default.
func ParseFilter(values url.Values, now time.Time, loc *time.Location) (Filter, error) {
	f := DefaultFilter(now, loc)

	var err error
	if v := values.Get("start_date"); v != "" {
		if f.StartDate, err = time.ParseInLocation(dateLayout, v, loc); err != nil {
			return f, fmt.Errorf("%w: start_date %q", ErrInvalidFilter, v)
		}
	}
	if v := values.Get("end_date"); v != "" {
		if f.EndDate, err = time.ParseInLocation(dateLayout, v, loc); err != nil {
			return f, fmt.Errorf("%w: end_date %q", ErrInvalidFilter, v)
		}
	}
	if v := values.Get("start_time"); v != "" {
		if f.StartClock, err = parseClock(v); err != nil {
			return f, fmt.Errorf("%w: start_time %q", ErrInvalidFilter, v)
		}
	}
	if v := values.Get("end_time"); v != "" {
		if f.EndClock, err = parseClock(v); err != nil {
			return f, fmt.Errorf("%w: end_time %q", ErrInvalidFilter, v)
		}
	}

	if f.EndDate.Before(f.StartDate) {
		return f, fmt.Errorf("%w: end_date before start_date", ErrInvalidFilter)
	}
	if f.EndClock < f.StartClock {
		return f, fmt.Errorf("%w: end_time before start_time", ErrInvalidFilter)
	}
	return f, nil
}

func parseClock(s string) (time.Duration, error) {
	t, err := time.Parse(clockLayout, s)
	if err != nil {
		return 0, err
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute, nil
}

func midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// Match reports whether ts falls inside the filter.
func (f Filter) Match(ts time.Time) bool {
	local := ts.In(f.Location)
	day := midnight(local)
	if day.Before(f.StartDate) || day.After(f.EndDate) {
		return false
	}
	clock := time.Duration(local.Hour())*time.Hour +
		time.Duration(local.Minute())*time.Minute +
		time.Duration(local.Second())*time.Second +
		time.Duration(local.Nanosecond())
	return f.StartClock <= clock && clock <= f.EndClock
}

func (f Filter) Echo() *dto.FilterEcho {
	return &dto.FilterEcho{
		StartDate: f.StartDate.Format(dateLayout),
		EndDate:   f.EndDate.Format(dateLayout),
		StartTime: formatClock(f.StartClock),
		EndTime:   formatClock(f.EndClock),
	}
}

func formatClock(d time.Duration) string {
	return fmt.Sprintf("%02d:%02d", int(d.Hours()), int(d.Minutes())%60)
}
