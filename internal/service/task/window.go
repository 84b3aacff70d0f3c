package task

import (
	"fmt"
	"time"

	"github.com/taskhive/api/internal/domain"
)

// Named due-date windows accepted by the list filter.
const (
	windowAll      = "all"
	windowToday    = "today"
	windowThisWeek = "this-week"
	windowNextWeek = "next-week"
	windowOverdue  = "overdue"
)

// dueWindow maps a named filter onto a half-open [from, to) range
// relative to the start of now's day in server-local time. Weeks start
// on Monday. A nil bound means unbounded on that side.
func dueWindow(name string, now time.Time) (from, to *time.Time, err error) {
	startOfToday := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	switch name {
	case "", windowAll:
		return nil, nil, nil
	case windowToday:
		end := startOfToday.AddDate(0, 0, 1)
		return &startOfToday, &end, nil
	case windowThisWeek:
		end := nextMonday(startOfToday)
		return &startOfToday, &end, nil
	case windowNextWeek:
		start := nextMonday(startOfToday)
		end := start.AddDate(0, 0, 6)
		return &start, &end, nil
	case windowOverdue:
		return nil, &startOfToday, nil
	}
	return nil, nil, fmt.Errorf("%w: unknown due date filter %q", domain.ErrValidation, name)
}

// nextMonday returns the start of the Monday strictly after day.
func nextMonday(day time.Time) time.Time {
	offset := (8 - int(day.Weekday())) % 7
	if offset == 0 {
		offset = 7
	}
	return day.AddDate(0, 0, offset)
}
