package store

import (
	"sync"
	"time"

	"github.com/ariadyuval-maker/TelAvivBusLanes/internal/camera"
	"github.com/ariadyuval-maker/TelAvivBusLanes/internal/domain"
	"github.com/ariadyuval-maker/TelAvivBusLanes/internal/names"
)

// ListOptions filters segment listings.
type ListOptions struct {
	Street  string
	BBox    *domain.BoundingBox
	TileIDs []string
}

// FeatureStore holds the current snapshots of both feature
// collections plus the derived camera assignment index. Snapshots are
// replaced wholesale on a successful refresh; a failed refresh leaves
// the previous snapshot untouched. Individual records are immutable
// once stored, so readers receive shared references.
type FeatureStore struct {
	mu               sync.RWMutex
	segments         map[string]*domain.RoadSegment
	segmentOrder     []string
	segmentsByTile   map[string]map[string]struct{}
	segmentsByStreet map[string]map[string]struct{}
	cameras          map[string]*domain.CameraPoint
	cameraOrder      []string
	cameraIndex      *camera.Index

	segmentsUpdatedAt time.Time
	camerasUpdatedAt  time.Time
}

func NewFeatureStore() *FeatureStore {
	return &FeatureStore{
		segments:         make(map[string]*domain.RoadSegment),
		segmentsByTile:   make(map[string]map[string]struct{}),
		segmentsByStreet: make(map[string]map[string]struct{}),
		cameras:          make(map[string]*domain.CameraPoint),
	}
}

// ReplaceSegments swaps in a fresh segment snapshot and rebuilds the
// secondary indexes.
func (s *FeatureStore) ReplaceSegments(segments []*domain.RoadSegment) {
	byID := make(map[string]*domain.RoadSegment, len(segments))
	order := make([]string, 0, len(segments))
	byTile := make(map[string]map[string]struct{})
	byStreet := make(map[string]map[string]struct{})

	for _, seg := range segments {
		if _, dup := byID[seg.ID]; dup {
			continue
		}
		byID[seg.ID] = seg
		order = append(order, seg.ID)

		if seg.TileID != "" {
			if byTile[seg.TileID] == nil {
				byTile[seg.TileID] = make(map[string]struct{})
			}
			byTile[seg.TileID][seg.ID] = struct{}{}
		}

		street := names.Normalize(seg.Street)
		if street != "" {
			if byStreet[street] == nil {
				byStreet[street] = make(map[string]struct{})
			}
			byStreet[street][seg.ID] = struct{}{}
		}
	}

	s.mu.Lock()
	s.segments = byID
	s.segmentOrder = order
	s.segmentsByTile = byTile
	s.segmentsByStreet = byStreet
	s.segmentsUpdatedAt = time.Now()
	s.mu.Unlock()
}

// ReplaceCameras swaps in a fresh camera snapshot.
func (s *FeatureStore) ReplaceCameras(cameras []*domain.CameraPoint) {
	byID := make(map[string]*domain.CameraPoint, len(cameras))
	order := make([]string, 0, len(cameras))
	for _, cam := range cameras {
		if _, dup := byID[cam.ID]; dup {
			continue
		}
		byID[cam.ID] = cam
		order = append(order, cam.ID)
	}

	s.mu.Lock()
	s.cameras = byID
	s.cameraOrder = order
	s.camerasUpdatedAt = time.Now()
	s.mu.Unlock()
}

// SetCameraIndex installs a freshly built assignment index. The index
// is invalidated and rebuilt whenever either collection refreshes.
func (s *FeatureStore) SetCameraIndex(ix *camera.Index) {
	s.mu.Lock()
	s.cameraIndex = ix
	s.mu.Unlock()
}

// Segment returns one segment by ID.
func (s *FeatureStore) Segment(id string) (*domain.RoadSegment, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seg, ok := s.segments[id]
	return seg, ok
}

// Segments returns the full segment snapshot in feed order.
// Implements tracking.SegmentProvider.
func (s *FeatureStore) Segments() []*domain.RoadSegment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*domain.RoadSegment, 0, len(s.segmentOrder))
	for _, id := range s.segmentOrder {
		out = append(out, s.segments[id])
	}
	return out
}

// List returns segments matching the options, in feed order.
func (s *FeatureStore) List(opts ListOptions) []*domain.RoadSegment {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var allowed map[string]struct{}
	filtered := false
	if opts.Street != "" {
		allowed = s.segmentsByStreet[names.Normalize(opts.Street)]
		filtered = true
		if allowed == nil {
			return nil
		}
	}
	if len(opts.TileIDs) > 0 {
		tiles := make(map[string]struct{})
		for _, tileID := range opts.TileIDs {
			for id := range s.segmentsByTile[tileID] {
				tiles[id] = struct{}{}
			}
		}
		allowed = intersect(allowed, tiles)
		filtered = true
	}

	var out []*domain.RoadSegment
	for _, id := range s.segmentOrder {
		if filtered {
			if _, ok := allowed[id]; !ok {
				continue
			}
		}
		seg := s.segments[id]
		if opts.BBox != nil && !segmentInBBox(seg, opts.BBox) {
			continue
		}
		out = append(out, seg)
	}
	return out
}

// SegmentsForTiles returns the segments indexed under any of the
// given tiles.
func (s *FeatureStore) SegmentsForTiles(tileIDs []string) []*domain.RoadSegment {
	return s.List(ListOptions{TileIDs: tileIDs})
}

// Camera returns one camera by ID. Implements part of
// alert.CameraSource.
func (s *FeatureStore) Camera(id string) (*domain.CameraPoint, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cam, ok := s.cameras[id]
	return cam, ok
}

// Cameras returns the full camera snapshot in feed order.
func (s *FeatureStore) Cameras() []*domain.CameraPoint {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*domain.CameraPoint, 0, len(s.cameraOrder))
	for _, id := range s.cameraOrder {
		out = append(out, s.cameras[id])
	}
	return out
}

// CamerasForSegment returns the cameras the assignment index maps to
// a segment. Implements part of alert.CameraSource.
func (s *FeatureStore) CamerasForSegment(segmentID string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.cameraIndex == nil {
		return nil
	}
	return s.cameraIndex.CamerasForSegment(segmentID)
}

// Assignment returns a camera's assignment, if the index holds one.
func (s *FeatureStore) Assignment(cameraID string) (*domain.CameraAssignment, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.cameraIndex == nil {
		return nil, false
	}
	return s.cameraIndex.Assignment(cameraID)
}

// Counts returns the snapshot sizes.
func (s *FeatureStore) Counts() (segments, cameras int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.segments), len(s.cameras)
}

// UpdatedAt returns the snapshot replacement times.
func (s *FeatureStore) UpdatedAt() (segments, cameras time.Time) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.segmentsUpdatedAt, s.camerasUpdatedAt
}

func segmentInBBox(seg *domain.RoadSegment, bbox *domain.BoundingBox) bool {
	for _, part := range seg.Geometry {
		for _, p := range part {
			if bbox.Contains(p) {
				return true
			}
		}
	}
	return false
}

func intersect(a, b map[string]struct{}) map[string]struct{} {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	smaller, larger := a, b
	if len(a) > len(b) {
		smaller, larger = b, a
	}
	result := make(map[string]struct{})
	for key := range smaller {
		if _, ok := larger[key]; ok {
			result[key] = struct{}{}
		}
	}
	return result
}
