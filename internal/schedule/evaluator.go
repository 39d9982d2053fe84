package schedule

import (
	"fmt"
	"strings"
	"time"

	"github.com/ariadyuval-maker/TelAvivBusLanes/internal/domain"
)

// SignSourceMarker prefixes every reason derived from a crowdsourced
// decoded sign, so the display layer can tell it apart from the static
// table.
const SignSourceMarker = "לפי שלט מפוענח"

// OverrideProvider supplies the crowdsourced override for a segment,
// or nil when none applies.
type OverrideProvider interface {
	ForSegment(seg *domain.RoadSegment) *domain.Override
}

// NoOverrides is the null-object provider used when the override layer
// is not wired in.
type NoOverrides struct{}

func (NoOverrides) ForSegment(*domain.RoadSegment) *domain.Override { return nil }

// Evaluator computes the legal lane status of a segment at a point in
// time. The result is a pure function of the segment attributes, the
// matched schedule or override, the day class and the decimal hour.
type Evaluator struct {
	index     *Index
	overrides OverrideProvider
}

// NewEvaluator builds an evaluator over a schedule index. A nil
// overrides provider defaults to NoOverrides.
func NewEvaluator(index *Index, overrides OverrideProvider) *Evaluator {
	if overrides == nil {
		overrides = NoOverrides{}
	}
	return &Evaluator{index: index, overrides: overrides}
}

// Evaluate resolves the segment's status at the given time.
//
// Priority order: the feed's own lane-status attribute, then a
// crowdsourced override, then the static table via the matcher. A
// street with no schedule match is reported unknown and conservatively
// presented as likely blocked, never as open.
func (e *Evaluator) Evaluate(seg *domain.RoadSegment, at time.Time) domain.LaneStatus {
	if seg.Inactive() {
		return domain.LaneStatus{
			Blocked:  false,
			Category: domain.CategoryOpen,
			Reason:   fmt.Sprintf("הנתיב אינו בשירות (%s)", seg.LaneStatus),
		}
	}

	dc := domain.DayClassOf(at)
	hour := domain.DecimalHour(at)

	if ov := e.overrides.ForSegment(seg); ov != nil {
		blocked, reason := evaluateIntervals(ov.Intervals(dc), ov.AllWeek, hour)
		category := domain.CategoryOpen
		if blocked {
			category = domain.CategoryBlocked
		}
		return domain.LaneStatus{
			Blocked:  blocked,
			Category: category,
			Reason:   SignSourceMarker + ": " + reason,
			Override: ov,
		}
	}

	entry := e.index.Match(seg)
	if entry == nil {
		return domain.LaneStatus{
			Blocked:  true,
			Category: domain.CategoryUnknown,
			Reason:   "לא נמצאו שעות פעילות לרחוב, ייתכן שהנתיב חסום",
		}
	}

	blocked, reason := evaluateIntervals(entry.Intervals(dc), entry.AllWeek, hour)
	category := domain.CategoryOpen
	if blocked {
		category = domain.CategoryBlocked
	}
	return domain.LaneStatus{
		Blocked:  blocked,
		Category: category,
		Reason:   reason,
		Schedule: entry,
	}
}

// evaluateIntervals tests a decimal hour against a day-class interval
// list. An empty list means no restriction that day class. The first
// matching interval decides; intervals are half-open and may wrap
// around midnight.
func evaluateIntervals(intervals []domain.Interval, allWeek bool, hour float64) (bool, string) {
	if allWeek {
		return true, "הנתיב חסום בכל ימות השבוע"
	}
	if len(intervals) == 0 {
		return false, "אין חסימה ביום זה"
	}

	for _, iv := range intervals {
		if iv.Contains(hour) {
			return true, fmt.Sprintf("הנתיב חסום כעת: %s", iv)
		}
	}

	parts := make([]string, len(intervals))
	for i, iv := range intervals {
		parts[i] = iv.String()
	}
	return false, fmt.Sprintf("הנתיב פתוח כעת. שעות חסימה: %s", strings.Join(parts, ", "))
}
