package domain

import "time"

// ReportStatus is the moderation state of a community report.
type ReportStatus string

const (
	ReportPending  ReportStatus = "pending"
	ReportDecoded  ReportStatus = "decoded"
	ReportRejected ReportStatus = "rejected"
)

// DecodedSchedule is the schedule payload a human decoded from a
// photographed sign. It is structurally identical to a schedule
// entry's interval fields.
type DecodedSchedule struct {
	SunThu   []Interval `json:"sunThu"`
	Friday   []Interval `json:"friday"`
	Saturday []Interval `json:"saturday"`
	AllWeek  bool       `json:"allWeek"`
}

// Report is a community-submitted sign report. Only reports with
// status decoded and a non-nil Decoded payload feed the override
// index.
type Report struct {
	ID          string           `json:"id"`
	Street      string           `json:"street"`
	SegmentIDs  []string         `json:"segmentIds,omitempty"`
	Status      ReportStatus     `json:"status"`
	Decoded     *DecodedSchedule `json:"decoded,omitempty"`
	Note        string           `json:"note,omitempty"`
	PhotoRef    string           `json:"photoRef,omitempty"`
	SubmittedAt time.Time        `json:"submittedAt"`
	UpdatedAt   time.Time        `json:"updatedAt"`
}

// ToOverride converts a decoded report into the override it implies.
// Returns nil for reports that cannot produce an override.
func (r *Report) ToOverride() *Override {
	if r.Status != ReportDecoded || r.Decoded == nil {
		return nil
	}
	return &Override{
		ReportID:    r.ID,
		SegmentIDs:  r.SegmentIDs,
		Street:      r.Street,
		SunThu:      r.Decoded.SunThu,
		Friday:      r.Decoded.Friday,
		Saturday:    r.Decoded.Saturday,
		AllWeek:     r.Decoded.AllWeek,
		SubmittedAt: r.SubmittedAt,
	}
}

// AlertKind separates lane alerts from camera alerts. Each kind has
// its own cooldown namespace so the two never suppress each other.
type AlertKind string

const (
	AlertLane   AlertKind = "lane"
	AlertCamera AlertKind = "camera"
)

// Alert is a single driving notification emitted by the alert engine.
type Alert struct {
	Kind      AlertKind `json:"kind"`
	SegmentID string    `json:"segmentId,omitempty"`
	CameraID  string    `json:"cameraId,omitempty"`
	Message   string    `json:"message"`
	DistanceM float64   `json:"distanceM,omitempty"`
	At        time.Time `json:"at"`
}
