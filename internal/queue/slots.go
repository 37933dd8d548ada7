package queue

import (
	"fmt"
	"sort"
	"time"

	"github.com/wyatts97/schedx/internal/models"
)

// DayCountFn reports how many capacity-consuming slots already exist in the
// half-open window [from, to). Promotion uses it to honor a daily cap that is
// partly consumed by tweets scheduled earlier.
type DayCountFn func(from, to time.Time) (int, error)

type wallClock struct {
	hour   int
	minute int
}

func parsePostingTimes(raw []string) ([]wallClock, error) {
	seen := make(map[wallClock]struct{}, len(raw))
	times := make([]wallClock, 0, len(raw))

	for _, v := range raw {
		t, err := time.Parse("15:04", v)
		if err != nil {
			// settings rows written before the slot list was normalized
			// carry seconds
			t, err = time.Parse("15:04:05", v)
			if err != nil {
				return nil, fmt.Errorf("invalid posting time %q: %w", v, err)
			}
		}
		wc := wallClock{hour: t.Hour(), minute: t.Minute()}
		if _, dup := seen[wc]; dup {
			continue
		}
		seen[wc] = struct{}{}
		times = append(times, wc)
	}

	sort.Slice(times, func(i, j int) bool {
		if times[i].hour != times[j].hour {
			return times[i].hour < times[j].hour
		}
		return times[i].minute < times[j].minute
	})
	return times, nil
}

// ValidatePostingTimes reports whether every entry parses as a wall-clock
// posting time.
func ValidatePostingTimes(raw []string) error {
	_, err := parsePostingTimes(raw)
	return err
}

// PlanSlots computes up to n posting slots strictly after now for the given
// settings: wall-clock posting times in the account timezone, weekends
// skipped when configured, at most MaxPostsPerDay per calendar day (counting
// slots already consumed), and successive slots at least MinIntervalMinutes
// apart (measured against lastAssigned for the first one). The search stops
// at the horizon; the second return value is true when the horizon was
// reached before n slots were found.
func PlanSlots(s *models.QueueSettings, now time.Time, n int, lastAssigned time.Time, taken DayCountFn, horizonDays int) ([]time.Time, bool, error) {
	if n <= 0 {
		return nil, false, nil
	}

	loc := time.UTC
	if s.Timezone != "" {
		var err error
		loc, err = time.LoadLocation(s.Timezone)
		if err != nil {
			return nil, false, fmt.Errorf("invalid timezone %q: %w", s.Timezone, err)
		}
	}

	times, err := parsePostingTimes(s.PostingTimes)
	if err != nil {
		return nil, false, err
	}
	if len(times) == 0 {
		return nil, true, nil
	}

	minGap := time.Duration(s.MinIntervalMinutes) * time.Minute
	horizon := now.AddDate(0, 0, horizonDays)

	local := now.In(loc)
	day := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)

	slots := make([]time.Time, 0, n)
	last := lastAssigned

	for ; day.Before(horizon); day = day.AddDate(0, 0, 1) {
		if s.SkipWeekends && (day.Weekday() == time.Saturday || day.Weekday() == time.Sunday) {
			continue
		}

		dayCount := 0
		if s.MaxPostsPerDay > 0 {
			dayCount, err = taken(day, day.AddDate(0, 0, 1))
			if err != nil {
				return nil, false, err
			}
		}

		for _, wc := range times {
			if s.MaxPostsPerDay > 0 && dayCount >= s.MaxPostsPerDay {
				break
			}

			slot := time.Date(day.Year(), day.Month(), day.Day(), wc.hour, wc.minute, 0, 0, loc)
			if !slot.After(now) {
				continue
			}
			if minGap > 0 && !last.IsZero() && slot.Sub(last) < minGap {
				continue
			}

			slots = append(slots, slot)
			last = slot
			dayCount++

			if len(slots) == n {
				return slots, false, nil
			}
		}
	}

	return slots, true, nil
}
