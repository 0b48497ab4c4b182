package calendar

import (
	"cmp"
	"slices"
	"time"
)

// DateLayout keys MarkedDates.
const DateLayout = "2006-01-02"

// ForWorkspace returns a workspace's events ordered by start.
func ForWorkspace(st State, workspaceID string) []Event {
	var out []Event
	for _, e := range st.Events {
		if e.WorkspaceID == workspaceID {
			out = append(out, e)
		}
	}
	slices.SortStableFunc(out, func(a, b Event) int {
		if c := a.StartDate.Compare(b.StartDate); c != 0 {
			return c
		}
		if a.IsAllDay != b.IsAllDay {
			// all-day events first
			if a.IsAllDay {
				return -1
			}
			return 1
		}
		return cmp.Compare(a.StartTime, b.StartTime)
	})
	return out
}

// OnDate returns the workspace's events that cover day.
func OnDate(st State, workspaceID string, day time.Time) []Event {
	d := Day(day)
	var out []Event
	for _, e := range ForWorkspace(st, workspaceID) {
		if !d.Before(e.StartDate) && !d.After(e.EndDate) {
			out = append(out, e)
		}
	}
	return out
}

// Period is one event's band across a day.
type Period struct {
	EventID  string
	Color    string
	Starting bool
	Ending   bool
}

// DayMark collects the bands drawn on one day.
type DayMark struct {
	Periods []Period
}

// MarkedDates lays events out as per-day periods between from and to
// inclusive. Starting and Ending are set on an event's first and last day
// even when the window clips the rest of it.
func MarkedDates(events []Event, from, to time.Time) map[string]DayMark {
	from, to = Day(from), Day(to)
	marks := make(map[string]DayMark)
	if to.Before(from) {
		return marks
	}
	for _, e := range events {
		start, end := e.StartDate, e.EndDate
		if end.Before(start) {
			end = start
		}
		if end.Before(from) || start.After(to) {
			continue
		}
		first := start
		if first.Before(from) {
			first = from
		}
		last := end
		if last.After(to) {
			last = to
		}
		for d := first; !d.After(last); d = d.AddDate(0, 0, 1) {
			key := d.Format(DateLayout)
			m := marks[key]
			m.Periods = append(m.Periods, Period{
				EventID:  e.ID,
				Color:    e.Color,
				Starting: d.Equal(start),
				Ending:   d.Equal(end),
			})
			marks[key] = m
		}
	}
	return marks
}
