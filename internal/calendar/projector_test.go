package calendar

import (
	"strings"
	"testing"
	"time"

	"practice-planner/internal/plan"
)

func emptyWeek(planID string, weekStart time.Time) plan.WeeklyPracticePlan {
	days := make([]plan.DayPlan, 7)
	names := []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}
	for i := range days {
		days[i] = plan.DayPlan{Day: names[i]}
	}
	return plan.WeeklyPracticePlan{
		ID:        planID,
		CreatedAt: time.Date(2023, 12, 28, 12, 0, 0, 0, time.UTC),
		WeekStart: weekStart,
		Days:      days,
	}
}

func TestInferPracticeSlot(t *testing.T) {
	p := NewProjector()

	t.Run("Wind-down wins over evening", func(t *testing.T) {
		slot := p.InferPracticeSlot("Evening, 30 min before bed")
		if slot.Hour != 21 || slot.Minute != 30 {
			t.Errorf("Expected 21:30 via wind-down, got %02d:%02d", slot.Hour, slot.Minute)
		}
	})

	t.Run("Cached result is identical", func(t *testing.T) {
		first := p.InferPracticeSlot("Evening, 30 min before bed")
		second := p.InferPracticeSlot("Evening, 30 min before bed")
		if first != second {
			t.Errorf("Expected identical cached slot, got %v then %v", first, second)
		}
		if _, ok := p.slotCache["Evening, 30 min before bed"]; !ok {
			t.Error("Expected label cached under its exact text")
		}
	})

	t.Run("Absent label falls back to default anchor", func(t *testing.T) {
		slot := p.InferPracticeSlot("")
		if slot.Hour != 21 || slot.Minute != 30 {
			t.Errorf("Expected default anchor 21:30, got %02d:%02d", slot.Hour, slot.Minute)
		}
		if _, ok := p.slotCache[absentLabelKey]; !ok {
			t.Error("Expected absent-label fallback cached too")
		}
	})

	t.Run("Table order and anchors", func(t *testing.T) {
		cases := []struct {
			label string
			want  TimeSlot
		}{
			{"mid-morning, after coffee", TimeSlot{9, 30}},
			{"Mid Morning", TimeSlot{9, 30}},
			{"right after lunch, midday reset", TimeSlot{12, 0}},
			{"afternoon slump", TimeSlot{15, 0}},
			{"first thing in the morning", TimeSlot{7, 0}},
			{"after dinner", TimeSlot{19, 0}},
			{"bedtime", TimeSlot{22, 30}},
			{"some unmatched text", TimeSlot{21, 30}},
		}
		for _, tc := range cases {
			got := p.InferPracticeSlot(tc.label)
			if got != tc.want {
				t.Errorf("InferPracticeSlot(%q) = %v, want %v", tc.label, got, tc.want)
			}
		}
	})

	t.Run("Independent projectors do not share cache", func(t *testing.T) {
		fresh := NewProjector()
		if len(fresh.slotCache) != 0 {
			t.Error("Expected a fresh projector to start with an empty cache")
		}
	})
}

func TestProjectEventCount(t *testing.T) {
	wp := emptyWeek("plan-1", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	wp.Days[0].Workout = &plan.WorkoutRoutine{Focus: "Strength", Duration: 45}
	wp.Days[0].YinPractices = []plan.YinPracticeDetail{
		{Name: "Box Breathing", Duration: 10, TimeOfDay: "morning"},
		{Name: "Body Scan", Duration: 20, TimeOfDay: "before bed"},
	}

	doc := NewProjector().Project(wp)

	if got := strings.Count(doc, "BEGIN:VEVENT"); got != 3 {
		t.Errorf("Expected exactly 3 events, got %d", got)
	}
}

func TestProjectEmptyPlan(t *testing.T) {
	doc := NewProjector().Project(plan.WeeklyPracticePlan{ID: "empty"})

	if !strings.HasPrefix(doc, "BEGIN:VCALENDAR\r\n") || !strings.HasSuffix(doc, "END:VCALENDAR\r\n") {
		t.Error("Expected a syntactically complete document")
	}
	for _, field := range []string{"VERSION:2.0", "PRODID:", "CALSCALE:GREGORIAN", "METHOD:PUBLISH"} {
		if !strings.Contains(doc, field) {
			t.Errorf("Expected required field %q", field)
		}
	}
	if strings.Contains(doc, "BEGIN:VEVENT") {
		t.Error("Expected zero events for an empty plan")
	}
}

func TestProjectEndToEnd(t *testing.T) {
	// weekStart 2024-01-01 is a Monday; day index 2 is Wednesday.
	wp := emptyWeek("plan-abc", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	wp.Days[2].Workout = &plan.WorkoutRoutine{Focus: "Intervals", Duration: 55}

	doc := NewProjector().Project(wp)

	for _, want := range []string{
		"UID:plan-abc-workout-2",
		"DTSTART:20240103T070000Z",
		"DTEND:20240103T075500Z",
	} {
		if !strings.Contains(doc, want) {
			t.Errorf("Expected %q in document:\n%s", want, doc)
		}
	}
}

func TestProjectDefaultsAndStableIDs(t *testing.T) {
	wp := emptyWeek("plan-1", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	wp.Days[4].Workout = &plan.WorkoutRoutine{} // no duration
	wp.Days[4].YinPractices = []plan.YinPracticeDetail{{Name: "Stillness"}}

	projector := NewProjector()
	doc := projector.Project(wp)

	// Workout defaults to 55 minutes at the 07:00 slot.
	if !strings.Contains(doc, "DTSTART:20240105T070000Z") || !strings.Contains(doc, "DTEND:20240105T075500Z") {
		t.Error("Expected default workout duration of 55 minutes")
	}
	// Unlabelled practice defaults to 15 minutes at 21:30.
	if !strings.Contains(doc, "DTSTART:20240105T213000Z") || !strings.Contains(doc, "DTEND:20240105T214500Z") {
		t.Error("Expected default practice duration of 15 minutes at 21:30")
	}
	if !strings.Contains(doc, "UID:plan-1-practice-4-0") {
		t.Error("Expected practice UID derived from plan, day and practice index")
	}

	if projector.Project(wp) != doc {
		t.Error("Expected identical output on re-projection")
	}
}

func TestProjectPrefersStructuredStartTime(t *testing.T) {
	wp := emptyWeek("plan-1", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	wp.Days[0].YinPractices = []plan.YinPracticeDetail{
		{Name: "Breathwork", Duration: 10, TimeOfDay: "morning", StartTime: "18:45"},
	}

	doc := NewProjector().Project(wp)
	if !strings.Contains(doc, "DTSTART:20240101T184500Z") {
		t.Errorf("Expected the structured start time to win over the label:\n%s", doc)
	}
}

// unescapeText reverses escapeText; the round trip must be exact.
func unescapeText(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) {
			i++
			switch s[i] {
			case 'n':
				b.WriteByte('\n')
			default:
				b.WriteByte(s[i])
			}
			continue
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

func TestEscapeRoundTrip(t *testing.T) {
	original := "pause; breathe, then write\\relax\nrepeat"

	escaped := escapeText(original)
	for _, raw := range []string{";", ","} {
		if strings.Contains(strings.ReplaceAll(escaped, "\\"+raw, ""), raw) {
			t.Errorf("Expected %q escaped in %q", raw, escaped)
		}
	}
	if strings.Contains(escaped, "\n") {
		t.Error("Expected no literal newline in escaped text")
	}

	if got := unescapeText(escaped); got != original {
		t.Errorf("Round trip mismatch:\n got %q\nwant %q", got, original)
	}
}
