package cache

import (
	"context"
	"log/slog"
	"time"

	"github.com/ariadyuval-maker/TelAvivBusLanes/internal/domain"
	"github.com/ariadyuval-maker/TelAvivBusLanes/internal/schedule"
	"github.com/ariadyuval-maker/TelAvivBusLanes/internal/store"
)

// CacheWarmer precomputes the heavy client payloads: the full sync
// blob and the per-tile status lists. Statuses flip on schedule
// boundaries, so the warmer reruns on a short interval rather than
// once a day.
type CacheWarmer struct {
	cache     *RedisCache
	store     *store.FeatureStore
	evaluator *schedule.Evaluator
	ttl       time.Duration
	logger    *slog.Logger
}

func NewCacheWarmer(cache *RedisCache, featureStore *store.FeatureStore, evaluator *schedule.Evaluator, ttl time.Duration, logger *slog.Logger) *CacheWarmer {
	return &CacheWarmer{
		cache:     cache,
		store:     featureStore,
		evaluator: evaluator,
		ttl:       ttl,
		logger:    logger.With("component", "cache_warmer"),
	}
}

func (w *CacheWarmer) WarmAll(ctx context.Context) error {
	start := time.Now()
	w.logger.Info("starting cache warming")

	if err := w.warmSyncData(ctx); err != nil {
		w.logger.Error("failed to warm sync data", "error", err)
	}

	if err := w.warmTileStatuses(ctx); err != nil {
		w.logger.Error("failed to warm tile statuses", "error", err)
	}

	if err := w.warmCameras(ctx); err != nil {
		w.logger.Error("failed to warm cameras", "error", err)
	}

	w.logger.Info("cache warming completed", "duration_ms", time.Since(start).Milliseconds())
	return nil
}

func (w *CacheWarmer) warmSyncData(ctx context.Context) error {
	start := time.Now()

	syncData := w.BuildSyncData()
	if err := w.cache.SetJSONCompressed(ctx, KeySyncFull, syncData, w.ttl); err != nil {
		return err
	}

	w.logger.Info("warmed sync data",
		"segments", len(syncData.Segments),
		"cameras", len(syncData.Cameras),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

func (w *CacheWarmer) warmTileStatuses(ctx context.Context) error {
	start := time.Now()
	now := time.Now()

	byTile := make(map[string][]*domain.SegmentStatus)
	for _, seg := range w.store.Segments() {
		if seg.TileID == "" {
			continue
		}
		status := w.evaluator.Evaluate(seg, now)
		byTile[seg.TileID] = append(byTile[seg.TileID], &domain.SegmentStatus{
			Segment: seg,
			Status:  status,
		})
	}

	// Tiles that lost all their segments would otherwise serve stale
	// entries until the TTL expires.
	if err := w.cache.DeletePattern(ctx, KeyTileStatuses("*")); err != nil {
		w.logger.Debug("failed to clear tile statuses", "error", err)
	}

	warmed := 0
	for tileID, statuses := range byTile {
		if err := w.cache.SetJSON(ctx, KeyTileStatuses(tileID), statuses, w.ttl); err != nil {
			w.logger.Debug("failed to cache tile statuses", "tile_id", tileID, "error", err)
			continue
		}
		warmed++
	}

	w.logger.Info("warmed tile statuses",
		"tiles_warmed", warmed,
		"total_tiles", len(byTile),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

func (w *CacheWarmer) warmCameras(ctx context.Context) error {
	start := time.Now()

	statuses := make([]*domain.CameraStatus, 0)
	for _, cam := range w.store.Cameras() {
		assignment, _ := w.store.Assignment(cam.ID)
		statuses = append(statuses, &domain.CameraStatus{
			Camera:     cam,
			Assignment: assignment,
		})
	}
	if err := w.cache.SetJSON(ctx, KeyCameras, statuses, w.ttl); err != nil {
		return err
	}

	w.logger.Info("warmed cameras",
		"cameras", len(statuses),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

// SyncData is the full client bootstrap payload.
type SyncData struct {
	Segments    []*domain.SegmentStatus `json:"segments"`
	Cameras     []*domain.CameraStatus  `json:"cameras"`
	GeneratedAt time.Time               `json:"generated_at"`
}

func (w *CacheWarmer) BuildSyncData() *SyncData {
	now := time.Now()

	segments := w.store.Segments()
	statuses := make([]*domain.SegmentStatus, 0, len(segments))
	for _, seg := range segments {
		status := w.evaluator.Evaluate(seg, now)
		statuses = append(statuses, &domain.SegmentStatus{Segment: seg, Status: status})
	}

	cameras := w.store.Cameras()
	camStatuses := make([]*domain.CameraStatus, 0, len(cameras))
	for _, cam := range cameras {
		assignment, _ := w.store.Assignment(cam.ID)
		camStatuses = append(camStatuses, &domain.CameraStatus{Camera: cam, Assignment: assignment})
	}

	return &SyncData{
		Segments:    statuses,
		Cameras:     camStatuses,
		GeneratedAt: now,
	}
}

// TileStatuses builds the status list for one tile on demand, for
// serving a tile the warmer has not cached.
func (w *CacheWarmer) TileStatuses(tileID string) []*domain.SegmentStatus {
	now := time.Now()
	segments := w.store.SegmentsForTiles([]string{tileID})
	statuses := make([]*domain.SegmentStatus, 0, len(segments))
	for _, seg := range segments {
		statuses = append(statuses, &domain.SegmentStatus{
			Segment: seg,
			Status:  w.evaluator.Evaluate(seg, now),
		})
	}
	return statuses
}

// ScheduleRefresh reruns warming on a fixed interval so cached
// statuses track schedule boundaries.
func (w *CacheWarmer) ScheduleRefresh(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.WarmAll(ctx); err != nil {
				w.logger.Error("scheduled cache refresh failed", "error", err)
			}
		}
	}
}
