// Package camera builds the offline camera-to-segment assignment
// index: a deterministic, reproducible mapping from each enforcement
// camera to the one or two directional road segments it observes.
// The index is rebuilt whenever either feature collection refreshes.
package camera

import (
	"log/slog"
	"sort"

	"github.com/ariadyuval-maker/TelAvivBusLanes/internal/domain"
	"github.com/ariadyuval-maker/TelAvivBusLanes/internal/geo"
	"github.com/ariadyuval-maker/TelAvivBusLanes/internal/names"
)

// Distance thresholds in meters. Empirically tuned; preserved verbatim.
const (
	DefaultSnapRadiusM   = 60.0
	DefaultAmbiguityGapM = 3.0
	DefaultPairGapM      = 10.0
)

// Assigner resolves cameras to segments.
type Assigner struct {
	aliases       *names.AliasTable
	snapRadiusM   float64
	ambiguityGapM float64
	pairGapM      float64
	logger        *slog.Logger
}

// NewAssigner builds an assigner with the given thresholds. Zero
// thresholds fall back to the defaults, a nil alias table to the
// built-in defaults, and a nil logger to the process default.
func NewAssigner(aliases *names.AliasTable, snapRadiusM, ambiguityGapM, pairGapM float64, logger *slog.Logger) *Assigner {
	if aliases == nil {
		aliases = names.NewAliasTable()
	}
	if logger == nil {
		logger = slog.Default()
	}
	if snapRadiusM <= 0 {
		snapRadiusM = DefaultSnapRadiusM
	}
	if ambiguityGapM <= 0 {
		ambiguityGapM = DefaultAmbiguityGapM
	}
	if pairGapM <= 0 {
		pairGapM = DefaultPairGapM
	}
	return &Assigner{
		aliases:       aliases,
		snapRadiusM:   snapRadiusM,
		ambiguityGapM: ambiguityGapM,
		pairGapM:      pairGapM,
		logger:        logger.With("component", "camera_assigner"),
	}
}

// Index is the finished assignment mapping. It is immutable once
// built; refreshes build a replacement rather than patching.
type Index struct {
	byCamera  map[string]*domain.CameraAssignment
	bySegment map[string][]string
}

// Assignment returns the assignment for a camera, if it has one.
func (ix *Index) Assignment(cameraID string) (*domain.CameraAssignment, bool) {
	a, ok := ix.byCamera[cameraID]
	return a, ok
}

// CamerasForSegment returns the IDs of cameras observing a segment.
func (ix *Index) CamerasForSegment(segmentID string) []string {
	return ix.bySegment[segmentID]
}

// Len returns the number of assigned cameras.
func (ix *Index) Len() int {
	return len(ix.byCamera)
}

// Build computes the full assignment index from immutable snapshots of
// both feature collections. Given the same inputs it always produces
// the same index.
func (a *Assigner) Build(segments []*domain.RoadSegment, cameras []*domain.CameraPoint) *Index {
	byStreet := make(map[string][]*domain.RoadSegment)
	for _, seg := range segments {
		if !seg.HasGeometry() {
			continue
		}
		key := names.Normalize(seg.Street)
		byStreet[key] = append(byStreet[key], seg)
	}

	ix := &Index{
		byCamera:  make(map[string]*domain.CameraAssignment),
		bySegment: make(map[string][]string),
	}

	unassigned := 0
	for _, cam := range cameras {
		assignment := a.assign(cam, byStreet)
		if assignment == nil {
			unassigned++
			continue
		}
		ix.byCamera[cam.ID] = assignment
		for _, segID := range assignment.SegmentIDs {
			ix.bySegment[segID] = append(ix.bySegment[segID], cam.ID)
		}
	}

	a.logger.Info("camera assignment index built",
		"cameras", len(cameras),
		"assigned", len(ix.byCamera),
		"unassigned", unassigned,
	)
	return ix
}

type scoredSegment struct {
	seg  *domain.RoadSegment
	dist float64
}

func (a *Assigner) assign(cam *domain.CameraPoint, byStreet map[string][]*domain.RoadSegment) *domain.CameraAssignment {
	street := names.Normalize(cam.Street)
	if street == "" {
		return nil
	}
	alias := a.aliases.Resolve(street)

	pool := byStreet[street]
	if alias != street {
		pool = append(append([]*domain.RoadSegment{}, pool...), byStreet[alias]...)
	}
	if len(pool) == 0 {
		return nil
	}

	var within []scoredSegment
	for _, seg := range pool {
		d := geo.PointToPolyline(cam.Location, seg.Geometry)
		if d <= a.snapRadiusM {
			within = append(within, scoredSegment{seg: seg, dist: d})
		}
	}
	if len(within) == 0 {
		return nil
	}

	sort.Slice(within, func(i, j int) bool {
		if within[i].dist != within[j].dist {
			return within[i].dist < within[j].dist
		}
		return within[i].seg.ID < within[j].seg.ID
	})

	directions := make(map[domain.CompassDir]struct{})
	for _, s := range within {
		directions[s.seg.Direction] = struct{}{}
	}
	if len(within) == 1 || len(directions) == 1 {
		return single(cam.ID, within[0])
	}

	first := within[0]
	second, ok := firstOpposing(within, first.seg.Direction)
	if !ok {
		return single(cam.ID, first)
	}

	if cam.HasHouseNumber() {
		if second.dist-first.dist >= a.ambiguityGapM {
			// The house number is redundant confirmation here.
			return single(cam.ID, first)
		}
		return single(cam.ID, a.pickByHouseNumber(cam, first, second))
	}

	if second.dist-first.dist <= a.pairGapM {
		// Geometry alone cannot resolve the facing direction; a
		// human-submitted photo report is needed.
		return &domain.CameraAssignment{
			CameraID:      cam.ID,
			SegmentIDs:    []string{first.seg.ID, second.seg.ID},
			Bidirectional: true,
			DistanceM:     first.dist,
		}
	}
	return single(cam.ID, first)
}

// pickByHouseNumber disambiguates two genuinely ambiguous candidates
// by house-number parity: even numbers sit on the side served by the
// ascending compass directions.
func (a *Assigner) pickByHouseNumber(cam *domain.CameraPoint, first, second scoredSegment) scoredSegment {
	even := cam.HouseNumber%2 == 0
	if even == first.seg.Direction.Ascending() {
		return first
	}
	return second
}

func firstOpposing(within []scoredSegment, dir domain.CompassDir) (scoredSegment, bool) {
	for _, s := range within[1:] {
		if s.seg.Direction != dir {
			return s, true
		}
	}
	return scoredSegment{}, false
}

func single(cameraID string, s scoredSegment) *domain.CameraAssignment {
	return &domain.CameraAssignment{
		CameraID:      cameraID,
		SegmentIDs:    []string{s.seg.ID},
		Bidirectional: false,
		DistanceM:     s.dist,
	}
}
