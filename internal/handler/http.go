package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ariadyuval-maker/TelAvivBusLanes/internal/domain"
	"github.com/ariadyuval-maker/TelAvivBusLanes/internal/schedule"
	"github.com/ariadyuval-maker/TelAvivBusLanes/internal/store"
)

type HTTPHandler struct {
	store     *store.FeatureStore
	evaluator *schedule.Evaluator
}

func NewHTTPHandler(featureStore *store.FeatureStore, evaluator *schedule.Evaluator) *HTTPHandler {
	return &HTTPHandler{store: featureStore, evaluator: evaluator}
}

type SegmentsResponse struct {
	Segments   []*domain.SegmentStatus `json:"segments"`
	Count      int                     `json:"count"`
	ServerTime time.Time               `json:"serverTime"`
}

func (h *HTTPHandler) ListSegments(w http.ResponseWriter, r *http.Request) {
	opts := store.ListOptions{}

	opts.Street = r.URL.Query().Get("street")

	if tilesStr := r.URL.Query().Get("tiles"); tilesStr != "" {
		opts.TileIDs = strings.Split(tilesStr, ",")
	}

	if bboxStr := r.URL.Query().Get("bbox"); bboxStr != "" {
		parts := strings.Split(bboxStr, ",")
		if len(parts) != 4 {
			respondError(w, http.StatusBadRequest, "invalid bbox format: expected minLat,minLng,maxLat,maxLng")
			return
		}
		bbox, err := parseBBox(parts)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid bbox values: "+err.Error())
			return
		}
		opts.BBox = bbox
	}

	now := time.Now()
	segments := h.store.List(opts)
	statuses := make([]*domain.SegmentStatus, 0, len(segments))
	for _, seg := range segments {
		statuses = append(statuses, &domain.SegmentStatus{
			Segment: seg,
			Status:  h.evaluator.Evaluate(seg, now),
		})
	}

	respondJSON(w, http.StatusOK, SegmentsResponse{
		Segments:   statuses,
		Count:      len(statuses),
		ServerTime: time.Now(),
	})
}

func (h *HTTPHandler) GetSegment(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		respondError(w, http.StatusBadRequest, "missing segment id")
		return
	}

	seg, ok := h.store.Segment(id)
	if !ok {
		respondError(w, http.StatusNotFound, "segment not found")
		return
	}

	respondJSON(w, http.StatusOK, &domain.SegmentStatus{
		Segment: seg,
		Status:  h.evaluator.Evaluate(seg, time.Now()),
	})
}

type CamerasResponse struct {
	Cameras    []*domain.CameraStatus `json:"cameras"`
	Count      int                    `json:"count"`
	ServerTime time.Time              `json:"serverTime"`
}

func (h *HTTPHandler) ListCameras(w http.ResponseWriter, r *http.Request) {
	cameras := h.store.Cameras()
	statuses := make([]*domain.CameraStatus, 0, len(cameras))
	for _, cam := range cameras {
		assignment, _ := h.store.Assignment(cam.ID)
		statuses = append(statuses, &domain.CameraStatus{
			Camera:     cam,
			Assignment: assignment,
		})
	}

	respondJSON(w, http.StatusOK, CamerasResponse{
		Cameras:    statuses,
		Count:      len(statuses),
		ServerTime: time.Now(),
	})
}

func (h *HTTPHandler) GetCamera(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		respondError(w, http.StatusBadRequest, "missing camera id")
		return
	}

	cam, ok := h.store.Camera(id)
	if !ok {
		respondError(w, http.StatusNotFound, "camera not found")
		return
	}

	assignment, _ := h.store.Assignment(id)
	respondJSON(w, http.StatusOK, &domain.CameraStatus{
		Camera:     cam,
		Assignment: assignment,
	})
}

func parseBBox(parts []string) (*domain.BoundingBox, error) {
	minLat, err := strconv.ParseFloat(parts[0], 64)
	if err != nil {
		return nil, err
	}
	minLng, err := strconv.ParseFloat(parts[1], 64)
	if err != nil {
		return nil, err
	}
	maxLat, err := strconv.ParseFloat(parts[2], 64)
	if err != nil {
		return nil, err
	}
	maxLng, err := strconv.ParseFloat(parts[3], 64)
	if err != nil {
		return nil, err
	}
	return &domain.BoundingBox{
		MinLat: minLat, MinLng: minLng,
		MaxLat: maxLat, MaxLng: maxLng,
	}, nil
}

type errorResponse struct {
	Error string `json:"error"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, errorResponse{Error: message})
}
