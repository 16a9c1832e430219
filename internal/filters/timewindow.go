package filters

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// TimeWindow is one recurring daily trading window. StartTime and EndTime
// are "HH:MM" strings; a start after the end denotes an overnight window
// that wraps past midnight (e.g. 22:00-06:00).
//
// The Timezone field is carried through from configuration but is advisory
// only: every window is evaluated against the clock handed to Evaluate,
// in that clock's location. Callers wanting zoned windows convert the clock
// before evaluating.
type TimeWindow struct {
	StartTime  string `yaml:"start"`
	EndTime    string `yaml:"end"`
	DaysOfWeek []int  `yaml:"days"` // 0=Sunday .. 6=Saturday
	Timezone   string `yaml:"timezone,omitempty"`
	Enabled    bool   `yaml:"enabled"`
}

// HolidayCalendar is the external holiday feed. Nil means no holiday data.
type HolidayCalendar interface {
	IsHoliday(t time.Time) bool
}

// TimeWindowConfig configures the time-window evaluator.
type TimeWindowConfig struct {
	Enabled         bool         `yaml:"enabled"`
	Windows         []TimeWindow `yaml:"windows"`
	ExcludeWeekends bool         `yaml:"exclude_weekends"`
	ExcludeHolidays bool         `yaml:"exclude_holidays"`
}

func DefaultTimeWindowConfig() *TimeWindowConfig {
	return &TimeWindowConfig{
		Enabled:         true,
		ExcludeWeekends: true,
	}
}

// TimeWindowFilter admits signals based on wall-clock time against the
// configured recurring windows.
type TimeWindowFilter struct {
	config   *TimeWindowConfig
	holidays HolidayCalendar
}

func NewTimeWindowFilter(config *TimeWindowConfig, holidays HolidayCalendar) *TimeWindowFilter {
	if config == nil {
		config = DefaultTimeWindowConfig()
	}
	return &TimeWindowFilter{config: config, holidays: holidays}
}

// Evaluate reports whether trading is active at the given instant. With no
// windows configured the evaluator is permissive: absence of configuration
// means unrestricted, not blocked.
func (f *TimeWindowFilter) Evaluate(now time.Time) *Result {
	if f.config.ExcludeWeekends {
		if wd := now.Weekday(); wd == time.Saturday || wd == time.Sunday {
			return block("weekend trading excluded", 100)
		}
	}
	if f.config.ExcludeHolidays && f.holidays != nil && f.holidays.IsHoliday(now) {
		return block("holiday trading excluded", 100)
	}

	if len(f.config.Windows) == 0 {
		return pass("no trading windows configured, unrestricted", 100)
	}

	today := int(now.Weekday())
	nowMinutes := now.Hour()*60 + now.Minute()

	anyConsidered := false
	for i, w := range f.config.Windows {
		if !w.Enabled || !containsInt(w.DaysOfWeek, today) {
			continue
		}
		start, err := parseClock(w.StartTime)
		if err != nil {
			continue // malformed window, config layer's problem
		}
		end, err := parseClock(w.EndTime)
		if err != nil {
			continue
		}
		anyConsidered = true
		if windowActive(nowMinutes, start, end) {
			res := pass(fmt.Sprintf("within trading window %s-%s", w.StartTime, w.EndTime), 100)
			res.Details["window_index"] = i
			return res
		}
	}

	if !anyConsidered {
		return block("no trading window applies today", 100)
	}
	return block("outside all trading windows", 100)
}

// windowActive handles the overnight wraparound: a window whose start is
// after its end is active when now is on either side of midnight.
func windowActive(now, start, end int) bool {
	if start > end {
		return now >= start || now <= end
	}
	return now >= start && now <= end
}

// parseClock converts "HH:MM" to minutes since midnight.
func parseClock(s string) (int, error) {
	parts := strings.SplitN(strings.TrimSpace(s), ":", 2)
	if len(parts) != 2 {
		return 0, fmt.Errorf("invalid clock value %q", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("invalid hour in %q: %w", s, err)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("invalid minute in %q: %w", s, err)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, fmt.Errorf("clock value %q out of range", s)
	}
	return h*60 + m, nil
}

func containsInt(list []int, v int) bool {
	for _, n := range list {
		if n == v {
			return true
		}
	}
	return false
}
