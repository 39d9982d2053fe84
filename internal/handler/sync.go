package handler

import (
	"log/slog"
	"net/http"

	"github.com/ariadyuval-maker/TelAvivBusLanes/internal/cache"
	"github.com/ariadyuval-maker/TelAvivBusLanes/internal/domain"
)

// SyncHandler serves the full client bootstrap payload, preferring
// the warmed Redis copy and falling back to building it on demand.
type SyncHandler struct {
	cache  *cache.RedisCache
	warmer *cache.CacheWarmer
	logger *slog.Logger
}

func NewSyncHandler(redisCache *cache.RedisCache, warmer *cache.CacheWarmer, logger *slog.Logger) *SyncHandler {
	return &SyncHandler{
		cache:  redisCache,
		warmer: warmer,
		logger: logger.With("handler", "sync"),
	}
}

func (h *SyncHandler) GetFull(w http.ResponseWriter, r *http.Request) {
	if h.cache != nil {
		var data cache.SyncData
		found, err := h.cache.GetJSONCompressed(r.Context(), cache.KeySyncFull, &data)
		if err != nil {
			h.logger.Error("sync cache read failed", "error", err)
		}
		if found {
			ServerStats.IncCacheHits()
			respondJSON(w, http.StatusOK, &data)
			return
		}
		ServerStats.IncCacheMisses()
	}

	respondJSON(w, http.StatusOK, h.warmer.BuildSyncData())
}

type TileStatusesResponse struct {
	TileID   string                  `json:"tileId"`
	Segments []*domain.SegmentStatus `json:"segments"`
}

// GetTile serves the evaluated statuses for one map tile. Tile IDs
// contain slashes, so the ID travels as a query parameter.
func (h *SyncHandler) GetTile(w http.ResponseWriter, r *http.Request) {
	tileID := r.URL.Query().Get("id")
	if tileID == "" {
		respondError(w, http.StatusBadRequest, "missing tile id")
		return
	}

	if h.cache != nil {
		var statuses []*domain.SegmentStatus
		found, err := h.cache.GetJSON(r.Context(), cache.KeyTileStatuses(tileID), &statuses)
		if err != nil {
			h.logger.Error("tile cache read failed", "tile_id", tileID, "error", err)
		}
		if found {
			ServerStats.IncCacheHits()
			respondJSON(w, http.StatusOK, TileStatusesResponse{TileID: tileID, Segments: statuses})
			return
		}
		ServerStats.IncCacheMisses()
	}

	respondJSON(w, http.StatusOK, TileStatusesResponse{
		TileID:   tileID,
		Segments: h.warmer.TileStatuses(tileID),
	})
}
