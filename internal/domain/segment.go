package domain

import "time"

// CompassDir is the fixed travel direction of a one-way segment.
// Empty string means the segment is two-way.
type CompassDir string

const (
	DirNone      CompassDir = ""
	DirNorth     CompassDir = "N"
	DirNortheast CompassDir = "NE"
	DirEast      CompassDir = "E"
	DirSoutheast CompassDir = "SE"
	DirSouth     CompassDir = "S"
	DirSouthwest CompassDir = "SW"
	DirWest      CompassDir = "W"
	DirNorthwest CompassDir = "NW"
)

// Ascending reports whether the direction is one of the three "ascending"
// compass directions used by house-number parity disambiguation.
func (d CompassDir) Ascending() bool {
	return d == DirNorth || d == DirNortheast || d == DirEast
}

// Bearing returns the direction as a compass bearing in degrees.
func (d CompassDir) Bearing() (float64, bool) {
	switch d {
	case DirNorth:
		return 0, true
	case DirNortheast:
		return 45, true
	case DirEast:
		return 90, true
	case DirSoutheast:
		return 135, true
	case DirSouth:
		return 180, true
	case DirSouthwest:
		return 225, true
	case DirWest:
		return 270, true
	case DirNorthwest:
		return 315, true
	default:
		return 0, false
	}
}

// StatusActive is the sentinel value of the feed's lane status attribute.
// Any other non-empty value means the lane is not currently in service.
const StatusActive = "פעיל"

// Point is a geographic coordinate.
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// RoadSegment is one directional stretch of bus lane as returned by the
// geographic feature feed. Records are replaced wholesale on refresh,
// never mutated in place.
type RoadSegment struct {
	ID           string     `json:"id"`
	Street       string     `json:"street"`
	FromJunction string     `json:"fromJunction"`
	ToJunction   string     `json:"toJunction"`
	Direction    CompassDir `json:"direction"`
	LaneStatus   string     `json:"laneStatus"`
	Geometry     [][]Point  `json:"geometry"`
	TileID       string     `json:"tileId"`
	FetchedAt    time.Time  `json:"fetchedAt"`
}

// Inactive reports whether the feed marked this lane as out of service.
func (s *RoadSegment) Inactive() bool {
	return s.LaneStatus != "" && s.LaneStatus != StatusActive
}

// FirstPoint returns the first vertex of the first non-empty geometry part.
func (s *RoadSegment) FirstPoint() (Point, bool) {
	for _, part := range s.Geometry {
		if len(part) > 0 {
			return part[0], true
		}
	}
	return Point{}, false
}

// LastPoint returns the last vertex of the last non-empty geometry part.
func (s *RoadSegment) LastPoint() (Point, bool) {
	for i := len(s.Geometry) - 1; i >= 0; i-- {
		if len(s.Geometry[i]) > 0 {
			return s.Geometry[i][len(s.Geometry[i])-1], true
		}
	}
	return Point{}, false
}

// HasGeometry reports whether the segment carries at least one usable
// polyline part. Segments without geometry are skipped at ingest.
func (s *RoadSegment) HasGeometry() bool {
	for _, part := range s.Geometry {
		if len(part) >= 2 {
			return true
		}
	}
	return false
}

// StatusCategory drives color-coding downstream: gray=unknown, red=blocked,
// green=open.
type StatusCategory string

const (
	CategoryBlocked StatusCategory = "blocked"
	CategoryOpen    StatusCategory = "open"
	CategoryUnknown StatusCategory = "unknown"
)

// LaneStatus is the derived legal status of a segment at a point in time.
// It is recomputed on demand and never stored.
type LaneStatus struct {
	Blocked  bool           `json:"blocked"`
	Category StatusCategory `json:"category"`
	Reason   string         `json:"reason"`
	Schedule *ScheduleEntry `json:"schedule,omitempty"`
	Override *Override      `json:"override,omitempty"`
}

// SegmentStatus pairs a segment with its evaluated status for serving.
type SegmentStatus struct {
	Segment *RoadSegment `json:"segment"`
	Status  LaneStatus   `json:"status"`
}

// DeltaType indicates whether a segment status was updated or removed.
type DeltaType string

const (
	DeltaUpdate DeltaType = "update"
	DeltaRemove DeltaType = "remove"
)

// StatusDelta represents a change in a segment's evaluated status.
type StatusDelta struct {
	Type    DeltaType      `json:"type"`
	Segment *SegmentStatus `json:"segment,omitempty"`
	ID      string         `json:"id,omitempty"`
	TileID  string         `json:"tileId"`
}

// BoundingBox represents a geographic rectangle.
type BoundingBox struct {
	MinLat float64 `json:"minLat"`
	MaxLat float64 `json:"maxLat"`
	MinLng float64 `json:"minLng"`
	MaxLng float64 `json:"maxLng"`
}

// Contains checks if a point is within the bounding box.
func (bb *BoundingBox) Contains(p Point) bool {
	return p.Lat >= bb.MinLat && p.Lat <= bb.MaxLat &&
		p.Lng >= bb.MinLng && p.Lng <= bb.MaxLng
}
