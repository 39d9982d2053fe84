package schedule

import (
	"strings"
	"testing"
	"time"

	"github.com/ariadyuval-maker/TelAvivBusLanes/internal/domain"
)

// June 2024: the 2nd is a Sunday, the 7th a Friday, the 8th a Saturday.
func sundayAt(hour, min int) time.Time {
	return time.Date(2024, 6, 2, hour, min, 0, 0, time.Local)
}

func fridayAt(hour, min int) time.Time {
	return time.Date(2024, 6, 7, hour, min, 0, 0, time.Local)
}

func saturdayAt(hour, min int) time.Time {
	return time.Date(2024, 6, 8, hour, min, 0, 0, time.Local)
}

type stubOverrides struct {
	override *domain.Override
}

func (s stubOverrides) ForSegment(*domain.RoadSegment) *domain.Override { return s.override }

func weekdayEntry() *domain.ScheduleEntry {
	return &domain.ScheduleEntry{
		Street:  "אבן גבירול",
		Section: domain.SectionDefault,
		SunThu:  []domain.Interval{{Start: 7, End: 22}},
		Friday:  []domain.Interval{{Start: 7, End: 17}},
	}
}

func evaluator(entries ...*domain.ScheduleEntry) *Evaluator {
	return NewEvaluator(buildIndex(entries...), nil)
}

func TestDayClassOf(t *testing.T) {
	if dc := domain.DayClassOf(sundayAt(10, 0)); dc != domain.DayClassWeekday {
		t.Errorf("Sunday should be weekday class, got %v", dc)
	}
	if dc := domain.DayClassOf(fridayAt(10, 0)); dc != domain.DayClassFriday {
		t.Errorf("Friday class wrong, got %v", dc)
	}
	if dc := domain.DayClassOf(saturdayAt(10, 0)); dc != domain.DayClassSaturday {
		t.Errorf("Saturday class wrong, got %v", dc)
	}
}

func TestEvaluateBlockedDuringWeekdayWindow(t *testing.T) {
	e := evaluator(weekdayEntry())
	status := e.Evaluate(segment("אבן גבירול"), sundayAt(10, 0))

	if status.Category != domain.CategoryBlocked || !status.Blocked {
		t.Fatalf("expected blocked on Sunday 10:00, got %+v", status)
	}
	if !strings.Contains(status.Reason, "07:00 - 22:00") {
		t.Errorf("reason should cite the matched interval, got %q", status.Reason)
	}
	if status.Schedule == nil {
		t.Error("status should reference the matched schedule entry")
	}
}

func TestEvaluateOpenOutsideFridayWindow(t *testing.T) {
	e := evaluator(weekdayEntry())
	status := e.Evaluate(segment("אבן גבירול"), fridayAt(19, 0))

	if status.Category != domain.CategoryOpen || status.Blocked {
		t.Fatalf("expected open on Friday 19:00, got %+v", status)
	}
	if !strings.Contains(status.Reason, "07:00 - 17:00") {
		t.Errorf("open reason should list the day's intervals, got %q", status.Reason)
	}
}

func TestEvaluateEmptyDayClassIsOpen(t *testing.T) {
	e := evaluator(weekdayEntry())
	status := e.Evaluate(segment("אבן גבירול"), saturdayAt(12, 0))

	if status.Category != domain.CategoryOpen {
		t.Errorf("no Saturday intervals should mean open, got %+v", status)
	}
}

func TestEvaluateHalfOpenBoundaries(t *testing.T) {
	e := evaluator(weekdayEntry())

	atStart := e.Evaluate(segment("אבן גבירול"), sundayAt(7, 0))
	if !atStart.Blocked {
		t.Error("query at exactly start must be blocked")
	}

	atEnd := e.Evaluate(segment("אבן גבירול"), sundayAt(22, 0))
	if atEnd.Blocked {
		t.Error("query at exactly end must be open")
	}
}

func TestEvaluateOvernightWraparound(t *testing.T) {
	entry := &domain.ScheduleEntry{
		Street:  "הירקון",
		Section: domain.SectionDefault,
		SunThu:  []domain.Interval{{Start: 22, End: 6}},
	}
	e := evaluator(entry)

	tests := []struct {
		hour    int
		blocked bool
	}{
		{23, true},
		{2, true},
		{10, false},
	}
	for _, tt := range tests {
		status := e.Evaluate(segment("הירקון"), sundayAt(tt.hour, 0))
		if status.Blocked != tt.blocked {
			t.Errorf("overnight [22,6) at hour %d: blocked=%v, expected %v", tt.hour, status.Blocked, tt.blocked)
		}
	}
}

func TestEvaluateAllWeekDominates(t *testing.T) {
	entry := &domain.ScheduleEntry{
		Street:  "דיזנגוף",
		Section: domain.SectionDefault,
		AllWeek: true,
		// Interval lists are irrelevant when allWeek is set.
		SunThu: []domain.Interval{{Start: 7, End: 9}},
	}
	e := evaluator(entry)

	for _, at := range []time.Time{sundayAt(3, 0), fridayAt(12, 0), saturdayAt(23, 30)} {
		status := e.Evaluate(segment("דיזנגוף"), at)
		if !status.Blocked || status.Category != domain.CategoryBlocked {
			t.Errorf("allWeek entry must be blocked at %v, got %+v", at, status)
		}
	}
}

func TestEvaluateInactiveSegmentWinsOverEverything(t *testing.T) {
	e := NewEvaluator(buildIndex(weekdayEntry()), stubOverrides{override: &domain.Override{AllWeek: true}})

	seg := segment("אבן גבירול")
	seg.LaneStatus = "לא פעיל"

	status := e.Evaluate(seg, sundayAt(10, 0))
	if status.Category != domain.CategoryOpen || status.Blocked {
		t.Fatalf("inactive segment must be open regardless of schedule and override, got %+v", status)
	}
}

func TestEvaluateNoMatchIsUnknownAndConservative(t *testing.T) {
	e := evaluator(weekdayEntry())
	status := e.Evaluate(segment("רחוב שאינו קיים"), sundayAt(10, 0))

	if status.Category != domain.CategoryUnknown {
		t.Fatalf("expected unknown category, got %+v", status)
	}
	if !status.Blocked {
		t.Error("unknown legal status is presented as likely blocked, not open")
	}
}

func TestEvaluateOverridePrecedence(t *testing.T) {
	ov := &domain.Override{
		ReportID:    "r-1",
		SunThu:      []domain.Interval{{Start: 6, End: 23}},
		SubmittedAt: time.Now(),
	}
	e := NewEvaluator(buildIndex(weekdayEntry()), stubOverrides{override: ov})

	// 22:30 is outside the static entry's window but inside the
	// override's.
	status := e.Evaluate(segment("אבן גבירול"), sundayAt(22, 30))
	if !status.Blocked {
		t.Fatal("override intervals must take precedence over the static table")
	}
	if status.Override != ov {
		t.Error("status should back-reference the applied override")
	}
	if !strings.Contains(status.Reason, SignSourceMarker) {
		t.Errorf("override reason must carry the sign-sourced marker, got %q", status.Reason)
	}
}

func TestEvaluateOverrideAllWeek(t *testing.T) {
	ov := &domain.Override{ReportID: "r-2", AllWeek: true}
	e := NewEvaluator(buildIndex(weekdayEntry()), stubOverrides{override: ov})

	status := e.Evaluate(segment("אבן גבירול"), saturdayAt(4, 0))
	if !status.Blocked || !strings.Contains(status.Reason, SignSourceMarker) {
		t.Fatalf("allWeek override must block at any hour with a sign-sourced reason, got %+v", status)
	}
}

func TestIntervalString(t *testing.T) {
	iv := domain.Interval{Start: 7, End: 22}
	if iv.String() != "07:00 - 22:00" {
		t.Errorf("Interval.String() = %q", iv.String())
	}
	half := domain.Interval{Start: 6.5, End: 19.25}
	if half.String() != "06:30 - 19:15" {
		t.Errorf("Interval.String() = %q", half.String())
	}
}
