package alert

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/ariadyuval-maker/TelAvivBusLanes/internal/domain"
	"github.com/ariadyuval-maker/TelAvivBusLanes/internal/tracking"
)

type stubEvaluator struct {
	status domain.LaneStatus
}

func (s stubEvaluator) Evaluate(*domain.RoadSegment, time.Time) domain.LaneStatus {
	return s.status
}

type stubCameras struct {
	bySegment map[string][]string
	cameras   map[string]*domain.CameraPoint
}

func (s stubCameras) CamerasForSegment(segID string) []string { return s.bySegment[segID] }
func (s stubCameras) Camera(id string) (*domain.CameraPoint, bool) {
	c, ok := s.cameras[id]
	return c, ok
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var observer = domain.Point{Lat: 32.0805, Lng: 34.7800}

func positionOn(seg *domain.RoadSegment) tracking.Position {
	return tracking.Position{
		State:          tracking.State{Point: observer},
		CurrentSegment: seg,
	}
}

func blockedStatus() domain.LaneStatus {
	return domain.LaneStatus{Blocked: true, Category: domain.CategoryBlocked, Reason: "07:00 - 22:00"}
}

func TestLaneAlertCooldown(t *testing.T) {
	seg := &domain.RoadSegment{ID: "seg-1", Street: "אלנבי"}
	e := NewEngine(stubEvaluator{status: blockedStatus()}, stubCameras{}, time.Minute, 0, discardLogger())

	at := time.Date(2024, 6, 2, 8, 0, 0, 0, time.UTC)

	alerts := e.Check(positionOn(seg), at)
	if len(alerts) != 1 || alerts[0].Kind != domain.AlertLane || alerts[0].SegmentID != "seg-1" {
		t.Fatalf("expected one lane alert, got %+v", alerts)
	}

	// Within cooldown: silent.
	if alerts := e.Check(positionOn(seg), at.Add(30*time.Second)); len(alerts) != 0 {
		t.Fatalf("expected cooldown suppression, got %+v", alerts)
	}

	// After cooldown: fires again.
	if alerts := e.Check(positionOn(seg), at.Add(2*time.Minute)); len(alerts) != 1 {
		t.Fatalf("expected alert after cooldown, got %+v", alerts)
	}
}

func TestNoLaneAlertWhenOpen(t *testing.T) {
	seg := &domain.RoadSegment{ID: "seg-1"}
	open := domain.LaneStatus{Blocked: false, Category: domain.CategoryOpen}
	e := NewEngine(stubEvaluator{status: open}, stubCameras{}, 0, 0, discardLogger())

	if alerts := e.Check(positionOn(seg), time.Now()); len(alerts) != 0 {
		t.Fatalf("open segment must not alert, got %+v", alerts)
	}
}

func TestNoAlertsWithoutCurrentSegment(t *testing.T) {
	e := NewEngine(stubEvaluator{status: blockedStatus()}, stubCameras{}, 0, 0, discardLogger())
	if alerts := e.Check(tracking.Position{}, time.Now()); alerts != nil {
		t.Fatalf("no current segment must mean no alerts, got %+v", alerts)
	}
}

func TestCameraAlertNearestFirstOnePerTick(t *testing.T) {
	seg := &domain.RoadSegment{ID: "seg-1"}
	next := &domain.RoadSegment{ID: "seg-2"}

	near := &domain.CameraPoint{ID: "near", Active: true,
		Location: domain.Point{Lat: 32.0806, Lng: 34.7800}} // ~11m
	far := &domain.CameraPoint{ID: "far", Active: true,
		Location: domain.Point{Lat: 32.0815, Lng: 34.7800}} // ~111m

	cams := stubCameras{
		bySegment: map[string][]string{"seg-1": {"far"}, "seg-2": {"near"}},
		cameras:   map[string]*domain.CameraPoint{"near": near, "far": far},
	}
	open := domain.LaneStatus{Category: domain.CategoryOpen}
	e := NewEngine(stubEvaluator{status: open}, cams, time.Minute, 0, discardLogger())

	pos := positionOn(seg)
	pos.NextSegment = next
	at := time.Now()

	alerts := e.Check(pos, at)
	if len(alerts) != 1 || alerts[0].Kind != domain.AlertCamera || alerts[0].CameraID != "near" {
		t.Fatalf("expected one alert for the nearest camera, got %+v", alerts)
	}

	// Next tick inside the near camera's cooldown: the farther camera
	// gets its turn rather than a second alert for the same one.
	alerts = e.Check(pos, at.Add(10*time.Second))
	if len(alerts) != 1 || alerts[0].CameraID != "far" {
		t.Fatalf("expected the next camera in range, got %+v", alerts)
	}
}

func TestCameraAlertSkipsInactiveAndOutOfRange(t *testing.T) {
	seg := &domain.RoadSegment{ID: "seg-1"}
	inactive := &domain.CameraPoint{ID: "inactive", Active: false,
		Location: domain.Point{Lat: 32.0806, Lng: 34.7800}}
	distant := &domain.CameraPoint{ID: "distant", Active: true,
		Location: domain.Point{Lat: 32.12, Lng: 34.7800}}

	cams := stubCameras{
		bySegment: map[string][]string{"seg-1": {"inactive", "distant"}},
		cameras:   map[string]*domain.CameraPoint{"inactive": inactive, "distant": distant},
	}
	open := domain.LaneStatus{Category: domain.CategoryOpen}
	e := NewEngine(stubEvaluator{status: open}, cams, 0, 0, discardLogger())

	if alerts := e.Check(positionOn(seg), time.Now()); len(alerts) != 0 {
		t.Fatalf("inactive or out-of-range cameras must not alert, got %+v", alerts)
	}
}

func TestLaneAndCameraCooldownsIndependent(t *testing.T) {
	seg := &domain.RoadSegment{ID: "seg-1"}
	cam := &domain.CameraPoint{ID: "cam", Active: true,
		Location: domain.Point{Lat: 32.0806, Lng: 34.7800}}
	cams := stubCameras{
		bySegment: map[string][]string{"seg-1": {"cam"}},
		cameras:   map[string]*domain.CameraPoint{"cam": cam},
	}
	e := NewEngine(stubEvaluator{status: blockedStatus()}, cams, time.Minute, 0, discardLogger())

	alerts := e.Check(positionOn(seg), time.Now())
	if len(alerts) != 2 {
		t.Fatalf("lane and camera alerts must not suppress each other, got %+v", alerts)
	}
	kinds := map[domain.AlertKind]bool{alerts[0].Kind: true, alerts[1].Kind: true}
	if !kinds[domain.AlertLane] || !kinds[domain.AlertCamera] {
		t.Fatalf("expected one alert of each kind, got %+v", alerts)
	}
}
