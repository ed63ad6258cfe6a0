// Package calendar projects a weekly practice plan into an iCalendar document
// with deterministic, stable event identifiers.
package calendar

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"practice-planner/internal/plan"
)

const (
	prodID        = "-//Practice Planner//Practice Planner//EN"
	icsTimeLayout = "20060102T150405Z"

	defaultWorkoutMinutes  = 55
	defaultPracticeMinutes = 15

	// Cache key for practices with no time-of-day label at all.
	absentLabelKey = "__absent__"
)

// TimeSlot is a wall-clock anchor within a day.
type TimeSlot struct {
	Hour   int
	Minute int
}

var (
	workoutSlot         = TimeSlot{Hour: 7, Minute: 0}
	defaultPracticeSlot = TimeSlot{Hour: 21, Minute: 30}
)

type slotPattern struct {
	re   *regexp.Regexp
	slot TimeSlot
}

// slotTable maps free-text time-of-day labels to anchor times. Patterns are
// not mutually exclusive and the first match wins, so the table is ordered
// most-specific first: "Evening, 30 min before bed" must hit wind-down, not
// evening, "mid-morning" must not hit morning, and "afternoon" must not hit
// noon. This is the legacy shim for records without a structured start time.
var slotTable = []slotPattern{
	{regexp.MustCompile(`(?i)mid[- ]?morning`), TimeSlot{9, 30}},
	{regexp.MustCompile(`(?i)wind[- ]?down|before bed|unwind`), TimeSlot{21, 30}},
	{regexp.MustCompile(`(?i)bed ?time|before sleep|lights out`), TimeSlot{22, 30}},
	{regexp.MustCompile(`(?i)afternoon`), TimeSlot{15, 0}},
	{regexp.MustCompile(`(?i)mid[- ]?day|noon|lunch`), TimeSlot{12, 0}},
	{regexp.MustCompile(`(?i)morning|wake|sunrise|breakfast`), TimeSlot{7, 0}},
	{regexp.MustCompile(`(?i)evening|after dinner|after work|night`), TimeSlot{19, 0}},
}

// Projector converts plans into calendar documents. Each instance owns its
// slot cache, so projectors never share inference state.
type Projector struct {
	slotCache map[string]TimeSlot
}

// NewProjector creates a Projector with an empty slot cache.
func NewProjector() *Projector {
	return &Projector{slotCache: make(map[string]TimeSlot)}
}

// InferPracticeSlot resolves a free-text time-of-day label to an anchor time.
// Results, including the absent-label fallback, are cached per label.
func (p *Projector) InferPracticeSlot(label string) TimeSlot {
	key := label
	if strings.TrimSpace(label) == "" {
		key = absentLabelKey
	}
	if slot, ok := p.slotCache[key]; ok {
		return slot
	}

	slot := defaultPracticeSlot
	if key != absentLabelKey {
		for _, pattern := range slotTable {
			if pattern.re.MatchString(label) {
				slot = pattern.slot
				break
			}
		}
	}
	p.slotCache[key] = slot
	return slot
}

// practiceSlot prefers a structured "HH:MM" start time and only falls back to
// label inference when none is present.
func (p *Projector) practiceSlot(practice plan.YinPracticeDetail) TimeSlot {
	if slot, ok := parseClock(practice.StartTime); ok {
		return slot
	}
	return p.InferPracticeSlot(practice.TimeOfDay)
}

func parseClock(s string) (TimeSlot, bool) {
	var hour, minute int
	if _, err := fmt.Sscanf(s, "%d:%d", &hour, &minute); err != nil {
		return TimeSlot{}, false
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return TimeSlot{}, false
	}
	return TimeSlot{Hour: hour, Minute: minute}, true
}

// Project serializes the plan's days into one VCALENDAR document. Timestamps
// are compact UTC instants; day dates are weekStart plus the day index. A
// plan with nothing to schedule produces a valid document with zero events.
// Re-projecting the same plan yields identical event identifiers.
func (p *Projector) Project(wp plan.WeeklyPracticePlan) string {
	var builder strings.Builder
	builder.WriteString("BEGIN:VCALENDAR\r\n")
	builder.WriteString("VERSION:2.0\r\n")
	builder.WriteString("PRODID:" + prodID + "\r\n")
	builder.WriteString("CALSCALE:GREGORIAN\r\n")
	builder.WriteString("METHOD:PUBLISH\r\n")

	stamp := wp.CreatedAt.UTC().Format(icsTimeLayout)

	for idx, day := range wp.Days {
		date := wp.WeekStart.AddDate(0, 0, idx)

		if day.Workout != nil {
			start := slotTime(date, workoutSlot)
			duration := day.Workout.Duration
			if duration <= 0 {
				duration = defaultWorkoutMinutes
			}
			summary := "Workout"
			if day.Workout.Focus != "" {
				summary = "Workout: " + day.Workout.Focus
			}
			writeEvent(&builder, event{
				uid:         fmt.Sprintf("%s-workout-%d", wp.ID, idx),
				stamp:       stamp,
				start:       start,
				minutes:     duration,
				summary:     summary,
				description: day.Summary,
			})
		}

		for pi, practice := range day.YinPractices {
			start := slotTime(date, p.practiceSlot(practice))
			duration := practice.Duration
			if duration <= 0 {
				duration = defaultPracticeMinutes
			}
			writeEvent(&builder, event{
				uid:         fmt.Sprintf("%s-practice-%d-%d", wp.ID, idx, pi),
				stamp:       stamp,
				start:       start,
				minutes:     duration,
				summary:     practice.Name,
				description: practiceDescription(practice),
			})
		}
	}

	builder.WriteString("END:VCALENDAR\r\n")
	return builder.String()
}

type event struct {
	uid         string
	stamp       string
	start       time.Time
	minutes     int
	summary     string
	description string
}

func writeEvent(builder *strings.Builder, ev event) {
	end := ev.start.Add(time.Duration(ev.minutes) * time.Minute)

	builder.WriteString("BEGIN:VEVENT\r\n")
	fmt.Fprintf(builder, "UID:%s\r\n", ev.uid)
	fmt.Fprintf(builder, "DTSTAMP:%s\r\n", ev.stamp)
	fmt.Fprintf(builder, "DTSTART:%s\r\n", ev.start.Format(icsTimeLayout))
	fmt.Fprintf(builder, "DTEND:%s\r\n", end.Format(icsTimeLayout))
	fmt.Fprintf(builder, "SUMMARY:%s\r\n", escapeText(ev.summary))
	fmt.Fprintf(builder, "DESCRIPTION:%s\r\n", escapeText(ev.description))
	builder.WriteString("END:VEVENT\r\n")
}

// slotTime places the slot on the date's calendar day as a UTC instant.
func slotTime(date time.Time, slot TimeSlot) time.Time {
	return time.Date(date.Year(), date.Month(), date.Day(), slot.Hour, slot.Minute, 0, 0, time.UTC)
}

func practiceDescription(practice plan.YinPracticeDetail) string {
	parts := make([]string, 0, 2)
	if practice.Intention != "" {
		parts = append(parts, practice.Intention)
	}
	if len(practice.Instructions) > 0 {
		parts = append(parts, strings.Join(practice.Instructions, "\n"))
	}
	return strings.Join(parts, "\n")
}

// escapeText escapes the characters iCalendar text values reserve. Backslash
// first, or the later substitutions would double-escape.
func escapeText(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, ";", "\\;")
	s = strings.ReplaceAll(s, ",", "\\,")
	s = strings.ReplaceAll(s, "\n", "\\n")
	return s
}
