// Package geo provides the geometric primitives the matching, camera
// assignment and GPS tracking logic is built on. Distances are in
// meters, bearings in degrees in [0,360).
package geo

import (
	"math"

	"github.com/ariadyuval-maker/TelAvivBusLanes/internal/domain"
)

const earthRadiusM = 6371000.0

func toRad(deg float64) float64 { return deg * math.Pi / 180.0 }
func toDeg(rad float64) float64 { return rad * 180.0 / math.Pi }

// Distance returns the haversine great-circle distance between two
// points in meters.
func Distance(a, b domain.Point) float64 {
	dLat := toRad(b.Lat - a.Lat)
	dLng := toRad(b.Lng - a.Lng)

	sinLat := math.Sin(dLat / 2)
	sinLng := math.Sin(dLng / 2)
	h := sinLat*sinLat + math.Cos(toRad(a.Lat))*math.Cos(toRad(b.Lat))*sinLng*sinLng

	return 2 * earthRadiusM * math.Asin(math.Sqrt(h))
}

// PointToSegment returns the distance in meters from p to the segment
// between a and b, using projection-and-clamp in a local planar
// approximation around p's latitude.
func PointToSegment(p, a, b domain.Point) float64 {
	// Local equirectangular projection: x east, y north, meters.
	cosLat := math.Cos(toRad(p.Lat))
	ax := toRad(a.Lng-p.Lng) * cosLat * earthRadiusM
	ay := toRad(a.Lat-p.Lat) * earthRadiusM
	bx := toRad(b.Lng-p.Lng) * cosLat * earthRadiusM
	by := toRad(b.Lat-p.Lat) * earthRadiusM

	vx := bx - ax
	vy := by - ay

	denom := vx*vx + vy*vy
	t := 0.0
	if denom > 0 {
		t = -(ax*vx + ay*vy) / denom
		if t < 0 {
			t = 0
		} else if t > 1 {
			t = 1
		}
	}

	px := ax + t*vx
	py := ay + t*vy
	return math.Hypot(px, py)
}

// PointToPolyline returns the minimum distance in meters from p to a
// possibly multi-part polyline. Returns +Inf when the polyline has no
// usable part.
func PointToPolyline(p domain.Point, parts [][]domain.Point) float64 {
	min := math.Inf(1)
	for _, part := range parts {
		for i := 0; i+1 < len(part); i++ {
			if d := PointToSegment(p, part[i], part[i+1]); d < min {
				min = d
			}
		}
		if len(part) == 1 {
			if d := Distance(p, part[0]); d < min {
				min = d
			}
		}
	}
	return min
}

// Bearing returns the initial great-circle bearing from a to b in
// degrees, normalized to [0,360).
func Bearing(a, b domain.Point) float64 {
	lat1 := toRad(a.Lat)
	lat2 := toRad(b.Lat)
	dLng := toRad(b.Lng - a.Lng)

	y := math.Sin(dLng) * math.Cos(lat2)
	x := math.Cos(lat1)*math.Sin(lat2) - math.Sin(lat1)*math.Cos(lat2)*math.Cos(dLng)

	return NormalizeBearing(toDeg(math.Atan2(y, x)))
}

// NormalizeBearing wraps a bearing into [0,360).
func NormalizeBearing(deg float64) float64 {
	deg = math.Mod(deg, 360)
	if deg < 0 {
		deg += 360
	}
	return deg
}

// AngularDelta returns the signed shortest rotation from bearing a to
// bearing b, in (-180,180].
func AngularDelta(a, b float64) float64 {
	d := math.Mod(b-a, 360)
	if d > 180 {
		d -= 360
	} else if d <= -180 {
		d += 360
	}
	return d
}

// AngularDistance returns the absolute shortest angle between two
// bearings, in [0,180].
func AngularDistance(a, b float64) float64 {
	return math.Abs(AngularDelta(a, b))
}

// SegmentBearing returns the bearing along a segment's own endpoints,
// first geometry vertex to last. ok is false when the segment has no
// usable geometry.
func SegmentBearing(s *domain.RoadSegment) (float64, bool) {
	first, ok1 := s.FirstPoint()
	last, ok2 := s.LastPoint()
	if !ok1 || !ok2 || first == last {
		return 0, false
	}
	return Bearing(first, last), true
}
