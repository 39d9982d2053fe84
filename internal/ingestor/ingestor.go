package ingestor

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/ariadyuval-maker/TelAvivBusLanes/internal/camera"
	"github.com/ariadyuval-maker/TelAvivBusLanes/internal/config"
	"github.com/ariadyuval-maker/TelAvivBusLanes/internal/domain"
	"github.com/ariadyuval-maker/TelAvivBusLanes/internal/hub"
	"github.com/ariadyuval-maker/TelAvivBusLanes/internal/schedule"
	"github.com/ariadyuval-maker/TelAvivBusLanes/internal/store"
	"github.com/ariadyuval-maker/TelAvivBusLanes/pkg/gisapi"
)

type Broadcaster interface {
	Broadcast(deltas []domain.StatusDelta)
}

// Ingestor refreshes the feature snapshots from the geographic feed
// and recomputes evaluated statuses between refreshes, broadcasting a
// delta whenever a segment's status changes. A failed fetch keeps the
// previous snapshot and is retried on the next tick.
type Ingestor struct {
	client      *gisapi.Client
	store       *store.FeatureStore
	evaluator   *schedule.Evaluator
	assigner    *camera.Assigner
	broadcaster Broadcaster
	config      *config.Config
	logger      *slog.Logger
	zoomLevel   int

	ready   bool
	readyMu sync.RWMutex

	statusMu     sync.Mutex
	lastStatuses map[string]domain.LaneStatus
}

func New(client *gisapi.Client, featureStore *store.FeatureStore, evaluator *schedule.Evaluator, assigner *camera.Assigner, broadcaster Broadcaster, cfg *config.Config, logger *slog.Logger) *Ingestor {
	return &Ingestor{
		client:       client,
		store:        featureStore,
		evaluator:    evaluator,
		assigner:     assigner,
		broadcaster:  broadcaster,
		config:       cfg,
		logger:       logger,
		zoomLevel:    cfg.TileZoomLevel,
		lastStatuses: make(map[string]domain.LaneStatus),
	}
}

func (i *Ingestor) Run(ctx context.Context) {
	refreshTicker := time.NewTicker(i.config.FeedRefreshInterval)
	defer refreshTicker.Stop()

	statusTicker := time.NewTicker(i.config.StatusInterval)
	defer statusTicker.Stop()

	i.refresh(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-refreshTicker.C:
			i.refresh(ctx)
		case <-statusTicker.C:
			i.Recompute()
		}
	}
}

func (i *Ingestor) refresh(ctx context.Context) {
	var wg sync.WaitGroup
	var segMu, camMu sync.Mutex
	var segments []*domain.RoadSegment
	var cameras []*domain.CameraPoint
	var segErr, camErr error

	wg.Add(2)

	go func() {
		defer wg.Done()
		result, err := i.client.FetchSegments(ctx)
		segMu.Lock()
		segments, segErr = result, err
		segMu.Unlock()
	}()

	go func() {
		defer wg.Done()
		result, err := i.client.FetchCameras(ctx)
		camMu.Lock()
		cameras, camErr = result, err
		camMu.Unlock()
	}()

	wg.Wait()

	if segErr != nil {
		i.logger.Error("failed to fetch segments", "error", segErr)
	}
	if camErr != nil {
		i.logger.Error("failed to fetch cameras", "error", camErr)
	}
	if segErr != nil && camErr != nil {
		return
	}

	if segErr == nil {
		kept := make([]*domain.RoadSegment, 0, len(segments))
		dropped := 0
		for _, seg := range segments {
			if !seg.HasGeometry() {
				dropped++
				continue
			}
			if tileID, ok := hub.TileForSegment(seg, i.zoomLevel); ok {
				seg.TileID = tileID
			}
			kept = append(kept, seg)
		}
		if dropped > 0 {
			i.logger.Warn("dropped segments without geometry", "count", dropped)
		}
		i.store.ReplaceSegments(kept)
	}

	if camErr == nil {
		i.store.ReplaceCameras(cameras)
	}

	i.store.SetCameraIndex(i.assigner.Build(i.store.Segments(), i.store.Cameras()))

	if !i.IsReady() && segErr == nil {
		i.setReady(true)
		i.logger.Info("ingestor ready", "segments", len(segments), "cameras", len(cameras))
	}

	i.Recompute()

	segCount, camCount := i.store.Counts()
	i.logger.Debug("refresh completed",
		"segments", segCount,
		"cameras", camCount,
	)
}

// Recompute re-evaluates every segment's status against the current
// clock and override set, broadcasting deltas for anything that
// changed since the previous pass.
func (i *Ingestor) Recompute() {
	i.statusMu.Lock()
	defer i.statusMu.Unlock()

	now := time.Now()
	current := make(map[string]domain.LaneStatus)
	var deltas []domain.StatusDelta

	for _, seg := range i.store.Segments() {
		status := i.evaluator.Evaluate(seg, now)
		current[seg.ID] = status

		prev, seen := i.lastStatuses[seg.ID]
		if seen && statusEqual(prev, status) {
			continue
		}
		deltas = append(deltas, domain.StatusDelta{
			Type:    domain.DeltaUpdate,
			Segment: &domain.SegmentStatus{Segment: seg, Status: status},
			TileID:  seg.TileID,
		})
	}

	for id := range i.lastStatuses {
		if _, ok := current[id]; !ok {
			deltas = append(deltas, domain.StatusDelta{
				Type: domain.DeltaRemove,
				ID:   id,
			})
		}
	}

	i.lastStatuses = current

	if len(deltas) > 0 && i.broadcaster != nil {
		i.broadcaster.Broadcast(deltas)
		i.logger.Debug("status deltas broadcast", "count", len(deltas))
	}
}

func statusEqual(a, b domain.LaneStatus) bool {
	return a.Blocked == b.Blocked && a.Category == b.Category && a.Reason == b.Reason
}

func (i *Ingestor) IsReady() bool {
	i.readyMu.RLock()
	defer i.readyMu.RUnlock()
	return i.ready
}

func (i *Ingestor) setReady(ready bool) {
	i.readyMu.Lock()
	defer i.readyMu.Unlock()
	i.ready = ready
}
