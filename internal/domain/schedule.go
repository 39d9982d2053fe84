package domain

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// DayClass is one of the three buckets the legal operating hours are
// grouped by. Restriction hours differ by these groupings, not by
// individual weekday.
type DayClass int

const (
	DayClassWeekday  DayClass = iota // Sunday through Thursday
	DayClassFriday                   // Friday and holiday eves
	DayClassSaturday                 // Saturday and holidays
)

func (d DayClass) String() string {
	switch d {
	case DayClassWeekday:
		return "sun-thu"
	case DayClassFriday:
		return "friday"
	case DayClassSaturday:
		return "saturday"
	default:
		return "unknown"
	}
}

// DayClassOf maps a timestamp's weekday to its day class. Holiday
// detection is intentionally out of scope; only the calendar weekday
// is considered.
func DayClassOf(t time.Time) DayClass {
	switch t.Weekday() {
	case time.Friday:
		return DayClassFriday
	case time.Saturday:
		return DayClassSaturday
	default:
		return DayClassWeekday
	}
}

// DecimalHour returns the time of day as hour plus minute fraction,
// e.g. 14:30 becomes 14.5.
func DecimalHour(t time.Time) float64 {
	return float64(t.Hour()) + float64(t.Minute())/60.0
}

// Interval is a half-open [Start,End) restriction window in decimal
// hours. Start greater than End denotes an overnight wraparound, e.g.
// 22 to 6.
type Interval struct {
	Start float64 `json:"start" yaml:"start"`
	End   float64 `json:"end" yaml:"end"`
}

// Contains reports whether the decimal hour falls inside the interval,
// handling the overnight wraparound case.
func (iv Interval) Contains(hour float64) bool {
	if iv.Start > iv.End {
		return hour >= iv.Start || hour < iv.End
	}
	return hour >= iv.Start && hour < iv.End
}

// String formats the interval as "HH:MM - HH:MM".
func (iv Interval) String() string {
	return fmt.Sprintf("%s - %s", formatDecimalHour(iv.Start), formatDecimalHour(iv.End))
}

// UnmarshalYAML accepts either the compact two-element form
// [start, end] the schedule table uses, or an explicit
// {start: ..., end: ...} mapping.
func (iv *Interval) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.SequenceNode {
		var pair []float64
		if err := node.Decode(&pair); err != nil {
			return err
		}
		if len(pair) != 2 {
			return fmt.Errorf("interval must have exactly 2 elements, got %d", len(pair))
		}
		iv.Start, iv.End = pair[0], pair[1]
		return nil
	}

	var aux struct {
		Start float64 `yaml:"start"`
		End   float64 `yaml:"end"`
	}
	if err := node.Decode(&aux); err != nil {
		return err
	}
	iv.Start, iv.End = aux.Start, aux.End
	return nil
}

func formatDecimalHour(h float64) string {
	hours := int(h)
	minutes := int((h - float64(hours)) * 60.0)
	return fmt.Sprintf("%02d:%02d", hours, minutes)
}

// SectionDefault is the generic fallback section marker used by
// schedule entries that cover a whole street rather than a specific
// stretch of it.
const SectionDefault = "default"

// ScheduleEntry is one hand-curated row of the legal operating-hours
// table. A street may have several geographically distinct sections,
// each with its own entry.
type ScheduleEntry struct {
	Street   string     `json:"street" yaml:"street"`
	Section  string     `json:"section" yaml:"section"`
	SunThu   []Interval `json:"sunThu" yaml:"sun_thu"`
	Friday   []Interval `json:"friday" yaml:"friday"`
	Saturday []Interval `json:"saturday" yaml:"saturday"`
	AllWeek  bool       `json:"allWeek" yaml:"all_week"`
}

// Intervals returns the restriction windows for the given day class.
func (e *ScheduleEntry) Intervals(dc DayClass) []Interval {
	switch dc {
	case DayClassFriday:
		return e.Friday
	case DayClassSaturday:
		return e.Saturday
	default:
		return e.SunThu
	}
}

// Override is a crowdsourced schedule correction decoded from a
// photographed street sign. It takes precedence over the static table.
// It applies either to an explicit set of segment IDs (precise) or to
// every segment of a street (legacy).
type Override struct {
	ReportID    string     `json:"reportId"`
	SegmentIDs  []string   `json:"segmentIds,omitempty"`
	Street      string     `json:"street,omitempty"`
	SunThu      []Interval `json:"sunThu"`
	Friday      []Interval `json:"friday"`
	Saturday    []Interval `json:"saturday"`
	AllWeek     bool       `json:"allWeek"`
	SubmittedAt time.Time  `json:"submittedAt"`
}

// Intervals returns the overridden restriction windows for the given
// day class.
func (o *Override) Intervals(dc DayClass) []Interval {
	switch dc {
	case DayClassFriday:
		return o.Friday
	case DayClassSaturday:
		return o.Saturday
	default:
		return o.SunThu
	}
}
