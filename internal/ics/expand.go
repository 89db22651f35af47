package ics

import (
	"errors"
	"sort"
	"strconv"
	"time"

	"github.com/teambition/rrule-go"

	appLog "deskcal/internal/log"
	"deskcal/internal/model"
)

const defaultMaxOccurrencesPerEvent = 1000

// Window bounds recurrence expansion. Non-recurring events are imported
// whatever their date.
type Window struct {
	Start time.Time
	End   time.Time

	// MaxOccurrencesPerEvent caps a single RRULE; zero means the default.
	MaxOccurrencesPerEvent int
}

// WindowAround returns [now - days, now + days].
func WindowAround(now time.Time, days int) Window {
	return Window{
		Start: now.AddDate(0, 0, -days),
		End:   now.AddDate(0, 0, days),
	}
}

// ExpandResult holds the dated events derived from a feed.
type ExpandResult struct {
	Events []model.Event
	// Truncated lists UIDs whose recurrence hit the cap.
	Truncated []string
}

// Expand turns parsed VEVENTs into plain store events, one per occurrence
// date. RRULE/EXDATE are applied inside w; RECURRENCE-ID overrides replace
// the matching instance, and cancelled instances are dropped. The result is
// ordered by date, keeping feed order within a day.
func Expand(events []ParsedEvent, w Window) (ExpandResult, error) {
	var result ExpandResult

	if w.End.Before(w.Start) {
		return result, errors.New("expand: window end is before start")
	}
	if w.MaxOccurrencesPerEvent <= 0 {
		w.MaxOccurrencesPerEvent = defaultMaxOccurrencesPerEvent
	}

	// Group base events and overrides by UID, remembering feed order.
	var order []string
	bases := make(map[string][]ParsedEvent)
	overrides := make(map[string][]ParsedEvent)

	for i, ev := range events {
		key := ev.UID
		if key == "" {
			key = "#" + strconv.Itoa(i)
		}
		if ev.Recurrence != nil {
			overrides[key] = append(overrides[key], ev)
			continue
		}
		if _, seen := bases[key]; !seen {
			order = append(order, key)
		}
		bases[key] = append(bases[key], ev)
	}

	out := make([]model.Event, 0, len(events))
	for _, key := range order {
		for _, ev := range bases[key] {
			if ev.RawRRule == "" {
				if !ev.Cancelled {
					out = append(out, toEvent(ev.Summary, ev.Start, ev.AllDay))
				}
				continue
			}

			occ, hitCap := expandRecurring(ev, overrides[key], w)
			out = append(out, occ...)
			if hitCap {
				result.Truncated = append(result.Truncated, ev.UID)
				appLog.Warn("ics: recurrence truncated", "uid", ev.UID, "cap", w.MaxOccurrencesPerEvent)
			}
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date.Time().Before(out[j].Date.Time())
	})

	result.Events = out
	return result, nil
}

func expandRecurring(ev ParsedEvent, overrides []ParsedEvent, w Window) ([]model.Event, bool) {
	r, err := rrule.StrToRRule(ev.RawRRule)
	if err != nil {
		appLog.Error("ics: failed to parse RRULE", err, "uid", ev.UID, "rrule", ev.RawRRule)
		return nil, false
	}
	r.DTStart(ev.Start)

	var set rrule.Set
	set.RRule(r)
	for _, ex := range ev.ExDates {
		set.ExDate(ex.In(ev.Start.Location()))
	}

	loc := ev.Start.Location()
	times := set.Between(w.Start.In(loc), w.End.In(loc), true)

	hitCap := false
	if len(times) > w.MaxOccurrencesPerEvent {
		times = times[:w.MaxOccurrencesPerEvent]
		hitCap = true
	}

	if ev.Cancelled {
		return nil, hitCap
	}

	out := make([]model.Event, 0, len(times))
	for _, t := range times {
		if o, ok := findOverride(overrides, t, ev.AllDay); ok {
			if o.Cancelled {
				continue
			}
			out = append(out, toEvent(o.Summary, o.Start, o.AllDay))
			continue
		}
		out = append(out, toEvent(ev.Summary, t, ev.AllDay))
	}
	return out, hitCap
}

// findOverride finds the override whose RECURRENCE-ID names instance t.
// All-day instances match by date since DATE values carry no zone.
func findOverride(overrides []ParsedEvent, t time.Time, allDay bool) (ParsedEvent, bool) {
	for _, o := range overrides {
		rid := *o.Recurrence
		if allDay {
			if model.DateOf(rid) == model.DateOf(t) {
				return o, true
			}
			continue
		}
		if rid.Equal(t) {
			return o, true
		}
	}
	return ParsedEvent{}, false
}

func toEvent(name string, start time.Time, allDay bool) model.Event {
	if !allDay {
		start = start.In(time.Local)
	}
	return model.Event{Date: model.DateOf(start), Name: name}
}
