// Package alert emits cooldown-throttled driving notifications from
// the observer's current position, the lane status evaluator and the
// camera assignment index.
package alert

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/ariadyuval-maker/TelAvivBusLanes/internal/domain"
	"github.com/ariadyuval-maker/TelAvivBusLanes/internal/geo"
	"github.com/ariadyuval-maker/TelAvivBusLanes/internal/tracking"
)

const (
	DefaultCooldown   = 60 * time.Second
	DefaultProximityM = 250.0
)

// StatusEvaluator resolves a segment's lane status at a point in time.
type StatusEvaluator interface {
	Evaluate(seg *domain.RoadSegment, at time.Time) domain.LaneStatus
}

// CameraSource exposes the current camera snapshot and assignment
// index.
type CameraSource interface {
	CamerasForSegment(segmentID string) []string
	Camera(id string) (*domain.CameraPoint, bool)
}

// Engine tracks per-key cooldowns and decides which alerts are due on
// each accepted position update. Lane and camera alerts live in
// separate cooldown namespaces so they never suppress each other.
type Engine struct {
	evaluator  StatusEvaluator
	cameras    CameraSource
	cooldown   time.Duration
	proximityM float64
	logger     *slog.Logger

	mu        sync.Mutex
	lastFired map[string]time.Time
}

// NewEngine builds an alert engine. Zero cooldown and proximity fall
// back to the defaults.
func NewEngine(evaluator StatusEvaluator, cameras CameraSource, cooldown time.Duration, proximityM float64, logger *slog.Logger) *Engine {
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}
	if proximityM <= 0 {
		proximityM = DefaultProximityM
	}
	return &Engine{
		evaluator:  evaluator,
		cameras:    cameras,
		cooldown:   cooldown,
		proximityM: proximityM,
		logger:     logger.With("component", "alert_engine"),
		lastFired:  make(map[string]time.Time),
	}
}

// Reset clears all cooldown state, e.g. when a tracking session ends.
func (e *Engine) Reset() {
	e.mu.Lock()
	e.lastFired = make(map[string]time.Time)
	e.mu.Unlock()
}

// Check evaluates one position update and returns the alerts due now:
// at most one lane alert for the current segment and at most one
// camera alert per update.
func (e *Engine) Check(pos tracking.Position, at time.Time) []domain.Alert {
	var alerts []domain.Alert

	cur := pos.CurrentSegment
	if cur == nil {
		return nil
	}

	status := e.evaluator.Evaluate(cur, at)
	if status.Blocked && e.fire("lane:"+cur.ID, at) {
		alerts = append(alerts, domain.Alert{
			Kind:      domain.AlertLane,
			SegmentID: cur.ID,
			Message:   fmt.Sprintf("נתיב תחבורה ציבורית: %s", status.Reason),
			At:        at,
		})
		e.logger.Debug("lane alert", "segment", cur.ID, "reason", status.Reason)
	}

	if cam := e.nearestDueCamera(pos, at); cam != nil {
		alerts = append(alerts, *cam)
		e.logger.Debug("camera alert", "camera", cam.CameraID, "distance_m", cam.DistanceM)
	}

	return alerts
}

type nearbyCamera struct {
	cam  *domain.CameraPoint
	dist float64
}

// nearestDueCamera scans cameras assigned to the current segment or
// its lookahead segment, nearest first, and returns an alert for the
// first active one within the proximity radius whose cooldown has
// elapsed. Scanning stops at the first hit.
func (e *Engine) nearestDueCamera(pos tracking.Position, at time.Time) *domain.Alert {
	segIDs := []string{pos.CurrentSegment.ID}
	if pos.NextSegment != nil {
		segIDs = append(segIDs, pos.NextSegment.ID)
	}

	seen := make(map[string]struct{})
	var nearby []nearbyCamera
	for _, segID := range segIDs {
		for _, camID := range e.cameras.CamerasForSegment(segID) {
			if _, dup := seen[camID]; dup {
				continue
			}
			seen[camID] = struct{}{}

			cam, ok := e.cameras.Camera(camID)
			if !ok || !cam.Active {
				continue
			}
			d := geo.Distance(pos.State.Point, cam.Location)
			if d <= e.proximityM {
				nearby = append(nearby, nearbyCamera{cam: cam, dist: d})
			}
		}
	}

	sort.Slice(nearby, func(i, j int) bool {
		if nearby[i].dist != nearby[j].dist {
			return nearby[i].dist < nearby[j].dist
		}
		return nearby[i].cam.ID < nearby[j].cam.ID
	})

	for _, nc := range nearby {
		if e.fire("camera:"+nc.cam.ID, at) {
			return &domain.Alert{
				Kind:      domain.AlertCamera,
				CameraID:  nc.cam.ID,
				Message:   fmt.Sprintf("מצלמת אכיפה בעוד כ-%.0f מטר", nc.dist),
				DistanceM: nc.dist,
				At:        at,
			}
		}
	}
	return nil
}

// fire reports whether the key's cooldown has elapsed and, if so,
// restarts it.
func (e *Engine) fire(key string, at time.Time) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if last, ok := e.lastFired[key]; ok && at.Sub(last) < e.cooldown {
		return false
	}
	e.lastFired[key] = at
	return true
}
