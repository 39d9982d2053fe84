package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ariadyuval-maker/TelAvivBusLanes/internal/camera"
	"github.com/ariadyuval-maker/TelAvivBusLanes/internal/domain"
)

func testSegment(id, street, tileID string, lat, lng float64) *domain.RoadSegment {
	return &domain.RoadSegment{
		ID:     id,
		Street: street,
		TileID: tileID,
		Geometry: [][]domain.Point{{
			{Lat: lat, Lng: lng},
			{Lat: lat + 0.001, Lng: lng},
		}},
	}
}

func TestFeatureStoreReplaceSegments(t *testing.T) {
	s := NewFeatureStore()
	s.ReplaceSegments([]*domain.RoadSegment{
		testSegment("a", "רחוב אבן גבירול", "t1", 32.08, 34.78),
		testSegment("b", "דרך נמיר", "t2", 32.10, 34.79),
		testSegment("a", "duplicate", "t3", 0, 0),
	})

	segs := s.Segments()
	require.Len(t, segs, 2)
	assert.Equal(t, "a", segs[0].ID)
	assert.Equal(t, "b", segs[1].ID)

	got, ok := s.Segment("a")
	require.True(t, ok)
	assert.Equal(t, "רחוב אבן גבירול", got.Street)

	segCount, camCount := s.Counts()
	assert.Equal(t, 2, segCount)
	assert.Equal(t, 0, camCount)
}

func TestFeatureStoreListByStreet(t *testing.T) {
	s := NewFeatureStore()
	s.ReplaceSegments([]*domain.RoadSegment{
		testSegment("a", "רחוב אבן גבירול", "t1", 32.08, 34.78),
		testSegment("b", "אבן גבירול", "t1", 32.09, 34.78),
		testSegment("c", "דרך נמיר", "t2", 32.10, 34.79),
	})

	// The street index keys normalized names, so both the prefixed
	// and the bare form land under one key.
	got := s.List(ListOptions{Street: "אבן גבירול"})
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].ID)
	assert.Equal(t, "b", got[1].ID)

	assert.Empty(t, s.List(ListOptions{Street: "לא קיים"}))
}

func TestFeatureStoreListByTilesAndBBox(t *testing.T) {
	s := NewFeatureStore()
	s.ReplaceSegments([]*domain.RoadSegment{
		testSegment("a", "אבן גבירול", "t1", 32.08, 34.78),
		testSegment("b", "נמיר", "t1", 32.20, 34.90),
		testSegment("c", "נמיר", "t2", 32.10, 34.79),
	})

	byTile := s.SegmentsForTiles([]string{"t1"})
	require.Len(t, byTile, 2)

	bbox := &domain.BoundingBox{MinLat: 32.07, MinLng: 34.77, MaxLat: 32.12, MaxLng: 34.80}
	got := s.List(ListOptions{TileIDs: []string{"t1"}, BBox: bbox})
	require.Len(t, got, 1)
	assert.Equal(t, "a", got[0].ID)
}

func TestFeatureStoreCameraIndex(t *testing.T) {
	s := NewFeatureStore()
	seg := testSegment("seg1", "אבן גבירול", "t1", 32.0805, 34.7800)
	s.ReplaceSegments([]*domain.RoadSegment{seg})

	cam := &domain.CameraPoint{
		ID:       "cam1",
		Location: domain.Point{Lat: 32.0805, Lng: 34.78001},
		Street:   "אבן גבירול",
		Active:   true,
	}
	s.ReplaceCameras([]*domain.CameraPoint{cam})

	// No index installed yet.
	assert.Nil(t, s.CamerasForSegment("seg1"))

	assigner := camera.NewAssigner(nil, 0, 0, 0, nil)
	s.SetCameraIndex(assigner.Build(s.Segments(), s.Cameras()))

	ids := s.CamerasForSegment("seg1")
	require.Equal(t, []string{"cam1"}, ids)

	asg, ok := s.Assignment("cam1")
	require.True(t, ok)
	assert.Contains(t, asg.SegmentIDs, "seg1")
}

func TestReportStoreCRUD(t *testing.T) {
	s := NewReportStore()
	assert.Equal(t, uint64(0), s.Version())

	early := time.Date(2024, 6, 2, 8, 0, 0, 0, time.UTC)
	late := early.Add(time.Hour)

	s.Put(&domain.Report{ID: "r2", Street: "נמיר", Status: domain.ReportPending, SubmittedAt: late})
	s.Put(&domain.Report{ID: "r1", Street: "אבן גבירול", Status: domain.ReportPending, SubmittedAt: early})
	assert.Equal(t, uint64(2), s.Version())

	list := s.List()
	require.Len(t, list, 2)
	assert.Equal(t, "r1", list[0].ID)
	assert.Equal(t, "r2", list[1].ID)

	decoded := &domain.DecodedSchedule{SunThu: []domain.Interval{{Start: 7, End: 22}}}
	updated, err := s.UpdateStatus("r1", domain.ReportDecoded, decoded)
	require.NoError(t, err)
	assert.Equal(t, domain.ReportDecoded, updated.Status)
	require.NotNil(t, updated.Decoded)

	_, err = s.UpdateStatus("missing", domain.ReportRejected, nil)
	assert.ErrorIs(t, err, ErrReportNotFound)

	s.Delete("r2")
	assert.Equal(t, 1, s.Count())
	v := s.Version()
	s.Delete("r2")
	assert.Equal(t, v, s.Version())
}

func TestReportStoreMerge(t *testing.T) {
	s := NewReportStore()
	base := time.Date(2024, 6, 2, 8, 0, 0, 0, time.UTC)

	s.Put(&domain.Report{ID: "r1", Street: "local", UpdatedAt: base.Add(time.Hour)})
	s.Put(&domain.Report{ID: "r2", Street: "local", UpdatedAt: base})

	s.Merge([]*domain.Report{
		{ID: "r1", Street: "remote", UpdatedAt: base},               // older, local kept
		{ID: "r2", Street: "remote", UpdatedAt: base.Add(time.Hour)}, // newer, remote wins
		{ID: "r3", Street: "remote", UpdatedAt: base},
	})

	r1, _ := s.Get("r1")
	assert.Equal(t, "local", r1.Street)
	r2, _ := s.Get("r2")
	assert.Equal(t, "remote", r2.Street)
	_, ok := s.Get("r3")
	assert.True(t, ok)
}

func TestReportStoreReplace(t *testing.T) {
	s := NewReportStore()
	s.Put(&domain.Report{ID: "old"})

	s.Replace([]*domain.Report{{ID: "new"}}, 7)
	_, ok := s.Get("old")
	assert.False(t, ok)
	_, ok = s.Get("new")
	assert.True(t, ok)
	assert.Equal(t, uint64(7), s.Version())
}
