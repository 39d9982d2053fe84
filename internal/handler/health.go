package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/ariadyuval-maker/TelAvivBusLanes/internal/ingestor"
	"github.com/ariadyuval-maker/TelAvivBusLanes/internal/store"
)

type HealthHandler struct {
	ingestor *ingestor.Ingestor
	store    *store.FeatureStore
}

func NewHealthHandler(ing *ingestor.Ingestor, s *store.FeatureStore) *HealthHandler {
	return &HealthHandler{
		ingestor: ing,
		store:    s,
	}
}

func (h *HealthHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

type ReadyResponse struct {
	Ready        bool      `json:"ready"`
	SegmentCount int       `json:"segmentCount"`
	CameraCount  int       `json:"cameraCount"`
	ServerTime   time.Time `json:"serverTime"`
}

func (h *HealthHandler) Readyz(w http.ResponseWriter, r *http.Request) {
	ready := h.ingestor.IsReady()
	status := http.StatusOK
	if !ready {
		status = http.StatusServiceUnavailable
	}

	segments, cameras := h.store.Counts()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ReadyResponse{
		Ready:        ready,
		SegmentCount: segments,
		CameraCount:  cameras,
		ServerTime:   time.Now(),
	})
}
