package handler

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ariadyuval-maker/TelAvivBusLanes/internal/domain"
	"github.com/ariadyuval-maker/TelAvivBusLanes/pkg/routing"
)

// RouteHandler connects two user-picked points with a drivable path.
// The simulator uses it to build continuous drive routes; the core
// matching flow never does.
type RouteHandler struct {
	client *routing.Client
	logger *slog.Logger
}

func NewRouteHandler(client *routing.Client, logger *slog.Logger) *RouteHandler {
	return &RouteHandler{
		client: client,
		logger: logger.With("handler", "route"),
	}
}

type RouteResponse struct {
	Points     []domain.Point `json:"points"`
	DistanceM  float64        `json:"distanceM"`
	DurationS  float64        `json:"durationS"`
	ServerTime time.Time      `json:"serverTime"`
}

func (h *RouteHandler) GetRoute(w http.ResponseWriter, r *http.Request) {
	from, err := parsePointParam(r, "from")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid from parameter: expected lat,lng")
		return
	}
	to, err := parsePointParam(r, "to")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid to parameter: expected lat,lng")
		return
	}

	route, err := h.client.Route(r.Context(), from, to)
	if err != nil {
		h.logger.Error("routing request failed", "error", err)
		respondError(w, http.StatusBadGateway, "routing service unavailable")
		return
	}

	respondJSON(w, http.StatusOK, RouteResponse{
		Points:     route.Points,
		DistanceM:  route.DistanceM,
		DurationS:  route.DurationS,
		ServerTime: time.Now(),
	})
}

func parsePointParam(r *http.Request, name string) (domain.Point, error) {
	parts := strings.Split(r.URL.Query().Get(name), ",")
	if len(parts) != 2 {
		return domain.Point{}, strconv.ErrSyntax
	}
	lat, err := strconv.ParseFloat(parts[0], 64)
	if err != nil {
		return domain.Point{}, err
	}
	lng, err := strconv.ParseFloat(parts[1], 64)
	if err != nil {
		return domain.Point{}, err
	}
	return domain.Point{Lat: lat, Lng: lng}, nil
}
