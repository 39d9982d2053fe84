package tracking

import (
	"github.com/ariadyuval-maker/TelAvivBusLanes/internal/domain"
	"github.com/ariadyuval-maker/TelAvivBusLanes/internal/geo"
	"github.com/ariadyuval-maker/TelAvivBusLanes/internal/names"
)

// SegmentProvider supplies the current road segment snapshot.
type SegmentProvider interface {
	Segments() []*domain.RoadSegment
}

// Position is the tracker's view of the observer after a sample.
type Position struct {
	State          State                `json:"state"`
	CurrentSegment *domain.RoadSegment  `json:"currentSegment,omitempty"`
	NextSegment    *domain.RoadSegment  `json:"nextSegment,omitempty"`
	SegmentDistM   float64              `json:"segmentDistM,omitempty"`
	TravelBearing  float64              `json:"travelBearing"`
	HasTravel      bool                 `json:"hasTravel"`
	Heading        float64              `json:"heading"`
	HasHeading     bool                 `json:"hasHeading"`
}

// Tracker combines the GPS filter with current-segment and
// next-segment inference. It is single-flow state: one tracker per
// tracking session.
type Tracker struct {
	filter   *Filter
	segments SegmentProvider

	heading    float64
	hasHeading bool
}

// NewTracker builds a tracker over a segment snapshot provider.
func NewTracker(segments SegmentProvider) *Tracker {
	return &Tracker{filter: NewFilter(), segments: segments}
}

// Reset clears filter and heading state when tracking stops.
func (t *Tracker) Reset() {
	t.filter.Reset()
	t.hasHeading = false
	t.heading = 0
}

// Advance folds one raw sample in and re-derives the observer's
// current segment, travel direction, display heading and lookahead
// segment.
func (t *Tracker) Advance(s Sample) Position {
	st := t.filter.Update(s)

	cur, dist := t.nearestSegment(st.Point)

	pos := Position{State: st, CurrentSegment: cur, SegmentDistM: dist}

	// Travel direction: a one-way segment's fixed direction is ground
	// truth; otherwise fall back to the smoothed GPS bearing.
	if cur != nil {
		if b, ok := cur.Direction.Bearing(); ok {
			pos.TravelBearing = b
			pos.HasTravel = true
		}
	}
	if !pos.HasTravel && st.HasBearing {
		pos.TravelBearing = st.Bearing
		pos.HasTravel = true
	}

	t.resolveHeading(&pos, cur, dist, st)

	if cur != nil && pos.HasTravel {
		pos.NextSegment = t.lookahead(cur, pos.TravelBearing)
	}

	return pos
}

// resolveHeading applies the display-heading resolution order: snapped
// one-way segment direction beats the GPS bearing, the GPS bearing
// applies only above the minimum speed, and otherwise the previous
// heading is kept unchanged so the display does not flicker when
// stopped.
func (t *Tracker) resolveHeading(pos *Position, cur *domain.RoadSegment, dist float64, st State) {
	if cur != nil && dist <= SnapRadiusM {
		if b, ok := cur.Direction.Bearing(); ok {
			t.heading = b
			t.hasHeading = true
			pos.Heading = b
			pos.HasHeading = true
			return
		}
	}
	if st.HasBearing && st.SpeedMS >= MinHeadingMS {
		t.heading = st.Bearing
		t.hasHeading = true
	}
	pos.Heading = t.heading
	pos.HasHeading = t.hasHeading
}

func (t *Tracker) nearestSegment(p domain.Point) (*domain.RoadSegment, float64) {
	var best *domain.RoadSegment
	bestDist := MatchRadiusM
	for _, seg := range t.segments.Segments() {
		if !seg.HasGeometry() {
			continue
		}
		if d := geo.PointToPolyline(p, seg.Geometry); d <= bestDist {
			best = seg
			bestDist = d
		}
	}
	if best == nil {
		return nil, 0
	}
	return best, bestDist
}

// lookahead picks the segment the observer is about to enter: same
// street, connected at the junction ahead, own bearing closest to the
// travel direction.
func (t *Tracker) lookahead(cur *domain.RoadSegment, travel float64) *domain.RoadSegment {
	segBearing, ok := geo.SegmentBearing(cur)
	if !ok {
		return nil
	}

	// The junction ahead is the endpoint the travel direction points
	// at: the geometry's last vertex when travelling with it, the
	// first when travelling against it.
	var junction domain.Point
	if geo.AngularDistance(travel, segBearing) <= 90 {
		junction, ok = cur.LastPoint()
	} else {
		junction, ok = cur.FirstPoint()
	}
	if !ok {
		return nil
	}

	street := names.Normalize(cur.Street)

	var best *domain.RoadSegment
	bestDelta := 181.0
	for _, seg := range t.segments.Segments() {
		if seg.ID == cur.ID || !seg.HasGeometry() {
			continue
		}
		if names.Normalize(seg.Street) != street {
			continue
		}
		b, ok := t.outboundBearing(seg, junction)
		if !ok {
			continue
		}
		if delta := geo.AngularDistance(travel, b); delta < bestDelta {
			best = seg
			bestDelta = delta
		}
	}
	return best
}

// outboundBearing returns the candidate's bearing oriented away from
// the junction, or false when the candidate does not connect there.
func (t *Tracker) outboundBearing(seg *domain.RoadSegment, junction domain.Point) (float64, bool) {
	first, ok1 := seg.FirstPoint()
	last, ok2 := seg.LastPoint()
	if !ok1 || !ok2 || first == last {
		return 0, false
	}
	if geo.Distance(first, junction) <= junctionSnapM {
		return geo.Bearing(first, last), true
	}
	if geo.Distance(last, junction) <= junctionSnapM {
		return geo.Bearing(last, first), true
	}
	return 0, false
}
