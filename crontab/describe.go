package crontab

import (
	"fmt"
	"strconv"
	"strings"
)

var (
	monthLabels = []string{"", "January", "February", "March", "April", "May", "June",
		"July", "August", "September", "October", "November", "December"}
	dayLabels = []string{"Sunday", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday"}
)

// Describe renders a schedule as English, e.g. "every day at 02:00". The
// text is for display only.
func Describe(s Schedule) string {
	if s.fields[0].Domain.Name == "" {
		return "never"
	}

	minute, hour := s.fields[Minute], s.fields[Hour]
	dom, month, dow := s.fields[DayOfMonth], s.fields[Month], s.fields[DayOfWeek]

	everyDay := dom.IsWildcard() && month.IsWildcard() && dow.IsWildcard()

	m, minuteSingle := minute.Single()
	h, hourSingle := hour.Single()

	var when string

	switch {
	case minuteSingle && hourSingle:
		when = fmt.Sprintf("at %02d:%02d", h, m)
		if everyDay {
			return "every day " + when
		}
	case minute.IsWildcard() && hour.IsWildcard():
		when = "every minute"
	case hour.IsWildcard() && minuteSingle:
		when = fmt.Sprintf("at minute %d of every hour", m)
	case hour.IsWildcard() && isPlainStep(minute):
		when = fmt.Sprintf("every %d minutes", minute.Terms[0].Step)
	case minute.IsWildcard():
		when = "every minute during hour " + describeField(hour, strconv.Itoa)
	default:
		when = fmt.Sprintf("at minute %s past hour %s",
			describeField(minute, strconv.Itoa), describeField(hour, strconv.Itoa))
	}

	parts := []string{when}

	if !dom.IsWildcard() {
		parts = append(parts, "on day "+describeField(dom, strconv.Itoa)+" of the month")
	}
	if !dow.IsWildcard() {
		if !dom.IsWildcard() {
			parts = append(parts, "or")
		}
		parts = append(parts, "on "+describeField(dow, func(v int) string { return dayLabels[v] }))
	}
	if !month.IsWildcard() {
		parts = append(parts, "in "+describeField(month, func(v int) string { return monthLabels[v] }))
	}

	return strings.Join(parts, " ")
}

func isPlainStep(f Field) bool {
	return len(f.Terms) == 1 && f.Terms[0].Kind == Step && f.Terms[0].Base == Wildcard
}

func describeField(f Field, label func(int) string) string {
	parts := make([]string, len(f.Terms))

	for i, t := range f.Terms {
		switch t.Kind {
		case Wildcard:
			parts[i] = "every " + f.Domain.Name
		case Value:
			parts[i] = label(t.Lo)
		case Range:
			parts[i] = label(t.Lo) + " through " + label(t.Hi)
		case Step:
			parts[i] = fmt.Sprintf("every %d from %s through %s", t.Step, label(t.Lo), label(t.Hi))
		}
	}

	switch len(parts) {
	case 0:
		return "no " + f.Domain.Name
	case 1:
		return parts[0]
	}
	return strings.Join(parts[:len(parts)-1], ", ") + " and " + parts[len(parts)-1]
}
