package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/ariadyuval-maker/TelAvivBusLanes/internal/alert"
	"github.com/ariadyuval-maker/TelAvivBusLanes/internal/domain"
	"github.com/ariadyuval-maker/TelAvivBusLanes/internal/schedule"
	"github.com/ariadyuval-maker/TelAvivBusLanes/internal/store"
	"github.com/ariadyuval-maker/TelAvivBusLanes/internal/tracking"
)

const sessionIdleTimeout = 10 * time.Minute

// PositionHandler accepts raw GPS fixes and answers with the filtered
// state, the resolved current/next segment and any alerts due. Each
// client keeps its own filter, tracker and alert cooldowns; sessions
// idle past the timeout are dropped.
type PositionHandler struct {
	store      *store.FeatureStore
	evaluator  *schedule.Evaluator
	cooldown   time.Duration
	proximityM float64
	validate   *validator.Validate
	logger     *slog.Logger

	mu       sync.Mutex
	sessions map[string]*trackingSession
}

type trackingSession struct {
	tracker  *tracking.Tracker
	engine   *alert.Engine
	lastSeen time.Time
}

func NewPositionHandler(featureStore *store.FeatureStore, evaluator *schedule.Evaluator, cooldown time.Duration, proximityM float64, logger *slog.Logger) *PositionHandler {
	return &PositionHandler{
		store:      featureStore,
		evaluator:  evaluator,
		cooldown:   cooldown,
		proximityM: proximityM,
		validate:   validator.New(),
		logger:     logger.With("handler", "position"),
		sessions:   make(map[string]*trackingSession),
	}
}

type PositionRequest struct {
	ClientID  string  `json:"clientId" validate:"omitempty,uuid"`
	Lat       float64 `json:"lat" validate:"required,latitude"`
	Lng       float64 `json:"lng" validate:"required,longitude"`
	AccuracyM float64 `json:"accuracyM" validate:"gte=0"`
	Timestamp int64   `json:"timestamp" validate:"required"`
}

type PositionResponse struct {
	ClientID       string                `json:"clientId"`
	State          tracking.State        `json:"state"`
	CurrentSegment *domain.SegmentStatus `json:"currentSegment,omitempty"`
	NextSegment    *domain.RoadSegment   `json:"nextSegment,omitempty"`
	Heading        float64               `json:"heading"`
	HasHeading     bool                  `json:"hasHeading"`
	Alerts         []domain.Alert        `json:"alerts,omitempty"`
	ServerTime     time.Time             `json:"serverTime"`
}

func (h *PositionHandler) UpdatePosition(w http.ResponseWriter, r *http.Request) {
	var req PositionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		respondError(w, http.StatusBadRequest, "validation failed: "+err.Error())
		return
	}

	clientID := req.ClientID
	if clientID == "" {
		clientID = uuid.New().String()
	}

	session := h.session(clientID)
	now := time.Now()

	pos := session.tracker.Advance(tracking.Sample{
		Point:     domain.Point{Lat: req.Lat, Lng: req.Lng},
		AccuracyM: req.AccuracyM,
		Timestamp: time.UnixMilli(req.Timestamp),
	})
	alerts := session.engine.Check(pos, now)
	for range alerts {
		ServerStats.IncAlertsFired()
	}

	resp := PositionResponse{
		ClientID:   clientID,
		State:      pos.State,
		Heading:    pos.Heading,
		HasHeading: pos.HasHeading,
		Alerts:     alerts,
		ServerTime: now,
	}
	if pos.CurrentSegment != nil {
		resp.CurrentSegment = &domain.SegmentStatus{
			Segment: pos.CurrentSegment,
			Status:  h.evaluator.Evaluate(pos.CurrentSegment, now),
		}
	}
	resp.NextSegment = pos.NextSegment

	respondJSON(w, http.StatusOK, resp)
}

// EndSession drops a client's tracking state explicitly.
func (h *PositionHandler) EndSession(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	h.mu.Lock()
	_, ok := h.sessions[id]
	delete(h.sessions, id)
	h.mu.Unlock()

	if !ok {
		respondError(w, http.StatusNotFound, "session not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *PositionHandler) session(clientID string) *trackingSession {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.pruneLocked(time.Now())

	s, ok := h.sessions[clientID]
	if !ok {
		s = &trackingSession{
			tracker: tracking.NewTracker(h.store),
			engine:  alert.NewEngine(h.evaluator, h.store, h.cooldown, h.proximityM, h.logger),
		}
		h.sessions[clientID] = s
		h.logger.Debug("tracking session started", "client_id", clientID)
	}
	s.lastSeen = time.Now()
	return s
}

func (h *PositionHandler) pruneLocked(now time.Time) {
	for id, s := range h.sessions {
		if now.Sub(s.lastSeen) > sessionIdleTimeout {
			delete(h.sessions, id)
		}
	}
}

// SessionCount reports how many tracking sessions are live.
func (h *PositionHandler) SessionCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.sessions)
}
