// Package tracking smooths raw GPS samples and infers which road
// segment and travel direction a moving observer currently occupies.
package tracking

import (
	"time"

	"github.com/ariadyuval-maker/TelAvivBusLanes/internal/domain"
	"github.com/ariadyuval-maker/TelAvivBusLanes/internal/geo"
)

const (
	positionAlpha  = 0.3 // EWMA factor for lat/lng
	speedAlpha     = 0.3 // EWMA factor for scalar speed
	bearingAlpha   = 0.4 // EWMA factor for bearing
	goodAccuracyM  = 20.0
	minMovementM   = 2.0 // displacements below this are jitter
	MinHeadingMS   = 1.0 // below this speed a GPS bearing is meaningless
	SnapRadiusM    = 25.0
	MatchRadiusM   = 30.0
	junctionSnapM  = 30.0
)

// Sample is one raw position fix from the location provider.
type Sample struct {
	Point     domain.Point `json:"point"`
	AccuracyM float64      `json:"accuracyM"`
	Timestamp time.Time    `json:"timestamp"`
}

// State is the filtered observer state after a sample was folded in.
type State struct {
	Point      domain.Point `json:"point"`
	SpeedMS    float64      `json:"speedMS"`
	Bearing    float64      `json:"bearing"`
	HasBearing bool         `json:"hasBearing"`
}

// Filter exponentially smooths position, speed and bearing. State
// persists across samples for the duration of tracking and is cleared
// by Reset when tracking stops.
type Filter struct {
	initialized bool
	point       domain.Point
	speedMS     float64
	bearing     float64
	hasBearing  bool
	lastAt      time.Time
}

// NewFilter returns an uninitialized filter; the first sample seeds it.
func NewFilter() *Filter {
	return &Filter{}
}

// Reset clears all filter state.
func (f *Filter) Reset() {
	*f = Filter{}
}

// Update folds one raw sample into the filtered state. Noisy fixes are
// trusted less: the position smoothing factor shrinks as the reported
// accuracy worsens. A zero or negative elapsed time skips the speed
// and bearing update for the sample rather than dividing by zero.
func (f *Filter) Update(s Sample) State {
	if !f.initialized {
		f.initialized = true
		f.point = s.Point
		f.lastAt = s.Timestamp
		return f.state()
	}

	alpha := positionAlpha
	if s.AccuracyM > goodAccuracyM {
		alpha *= goodAccuracyM / s.AccuracyM
	}

	prev := f.point
	f.point = domain.Point{
		Lat: prev.Lat + alpha*(s.Point.Lat-prev.Lat),
		Lng: prev.Lng + alpha*(s.Point.Lng-prev.Lng),
	}

	dt := s.Timestamp.Sub(f.lastAt).Seconds()
	f.lastAt = s.Timestamp
	if dt <= 0 {
		return f.state()
	}

	displacement := geo.Distance(prev, f.point)
	rawSpeed := 0.0
	if displacement >= minMovementM {
		rawSpeed = displacement / dt
	}
	f.speedMS += speedAlpha * (rawSpeed - f.speedMS)

	if f.speedMS >= MinHeadingMS && displacement >= minMovementM {
		raw := geo.Bearing(prev, f.point)
		if !f.hasBearing {
			f.bearing = raw
			f.hasBearing = true
		} else {
			// Circular smoothing: rotate by the shortest angular delta.
			f.bearing = geo.NormalizeBearing(f.bearing + bearingAlpha*geo.AngularDelta(f.bearing, raw))
		}
	}

	return f.state()
}

func (f *Filter) state() State {
	return State{
		Point:      f.point,
		SpeedMS:    f.speedMS,
		Bearing:    f.bearing,
		HasBearing: f.hasBearing,
	}
}
