package handler

import (
	"encoding/json"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/ariadyuval-maker/TelAvivBusLanes/internal/store"
	reportsync "github.com/ariadyuval-maker/TelAvivBusLanes/internal/sync"
)

// Stats tracks server-wide metrics
type Stats struct {
	startTime        time.Time
	requestCount     atomic.Int64
	wsConnections    atomic.Int64
	wsMessagesIn     atomic.Int64
	wsMessagesOut    atomic.Int64
	cacheHits        atomic.Int64
	cacheMisses      atomic.Int64
	rateLimitBlocked atomic.Int64
	alertsFired      atomic.Int64
}

// Global stats instance
var ServerStats = &Stats{
	startTime: time.Now(),
}

func (s *Stats) IncRequests()         { s.requestCount.Add(1) }
func (s *Stats) IncWSConnections()    { s.wsConnections.Add(1) }
func (s *Stats) DecWSConnections()    { s.wsConnections.Add(-1) }
func (s *Stats) IncWSMessagesIn()     { s.wsMessagesIn.Add(1) }
func (s *Stats) IncWSMessagesOut()    { s.wsMessagesOut.Add(1) }
func (s *Stats) IncCacheHits()        { s.cacheHits.Add(1) }
func (s *Stats) IncCacheMisses()      { s.cacheMisses.Add(1) }
func (s *Stats) IncRateLimitBlocked() { s.rateLimitBlocked.Add(1) }
func (s *Stats) IncAlertsFired()      { s.alertsFired.Add(1) }

type StatsHandler struct {
	featureStore *store.FeatureStore
	reportStore  *store.ReportStore
	syncer       *reportsync.Syncer
	positions    *PositionHandler
}

func NewStatsHandler(featureStore *store.FeatureStore, reportStore *store.ReportStore, syncer *reportsync.Syncer, positions *PositionHandler) *StatsHandler {
	return &StatsHandler{
		featureStore: featureStore,
		reportStore:  reportStore,
		syncer:       syncer,
		positions:    positions,
	}
}

type StatsResponse struct {
	Server    ServerStatsResponse    `json:"server"`
	Features  FeatureStatsResponse   `json:"features"`
	Reports   ReportStatsResponse    `json:"reports"`
	Tracking  TrackingStatsResponse  `json:"tracking"`
	WebSocket WebSocketStatsResponse `json:"websocket"`
	Cache     CacheStatsResponse     `json:"cache"`
	Go        GoStatsResponse        `json:"go"`
}

type ServerStatsResponse struct {
	Uptime        string    `json:"uptime"`
	UptimeSeconds float64   `json:"uptime_seconds"`
	StartTime     time.Time `json:"start_time"`
	RequestCount  int64     `json:"request_count"`
	RateLimited   int64     `json:"rate_limited"`
	Version       string    `json:"version"`
}

type FeatureStatsResponse struct {
	Segments          int       `json:"segments"`
	Cameras           int       `json:"cameras"`
	SegmentsUpdatedAt time.Time `json:"segments_updated_at"`
	CamerasUpdatedAt  time.Time `json:"cameras_updated_at"`
}

type ReportStatsResponse struct {
	Total int               `json:"total"`
	Sync  reportsync.Status `json:"sync"`
}

type TrackingStatsResponse struct {
	Sessions    int   `json:"sessions"`
	AlertsFired int64 `json:"alerts_fired"`
}

type WebSocketStatsResponse struct {
	Connections int64 `json:"connections"`
	MessagesIn  int64 `json:"messages_in"`
	MessagesOut int64 `json:"messages_out"`
}

type CacheStatsResponse struct {
	Hits   int64   `json:"hits"`
	Misses int64   `json:"misses"`
	Ratio  float64 `json:"hit_ratio"`
}

type GoStatsResponse struct {
	Goroutines  int     `json:"goroutines"`
	HeapAlloc   uint64  `json:"heap_alloc_bytes"`
	HeapAllocMB float64 `json:"heap_alloc_mb"`
	NumGC       uint32  `json:"num_gc"`
	GoVersion   string  `json:"go_version"`
}

func (h *StatsHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	ServerStats.IncRequests()

	uptime := time.Since(ServerStats.startTime)

	segments, cameras := h.featureStore.Counts()
	segmentsAt, camerasAt := h.featureStore.UpdatedAt()

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	// Syncing is optional; without a remote the reports are local-only.
	syncStatus := reportsync.Status{State: reportsync.StateIdle}
	if h.syncer != nil {
		syncStatus = h.syncer.Status()
	}

	hits := ServerStats.cacheHits.Load()
	misses := ServerStats.cacheMisses.Load()
	var ratio float64
	if total := hits + misses; total > 0 {
		ratio = float64(hits) / float64(total)
	}

	response := StatsResponse{
		Server: ServerStatsResponse{
			Uptime:        uptime.Round(time.Second).String(),
			UptimeSeconds: uptime.Seconds(),
			StartTime:     ServerStats.startTime,
			RequestCount:  ServerStats.requestCount.Load(),
			RateLimited:   ServerStats.rateLimitBlocked.Load(),
			Version:       "1.0.0",
		},
		Features: FeatureStatsResponse{
			Segments:          segments,
			Cameras:           cameras,
			SegmentsUpdatedAt: segmentsAt,
			CamerasUpdatedAt:  camerasAt,
		},
		Reports: ReportStatsResponse{
			Total: h.reportStore.Count(),
			Sync:  syncStatus,
		},
		Tracking: TrackingStatsResponse{
			Sessions:    h.positions.SessionCount(),
			AlertsFired: ServerStats.alertsFired.Load(),
		},
		WebSocket: WebSocketStatsResponse{
			Connections: ServerStats.wsConnections.Load(),
			MessagesIn:  ServerStats.wsMessagesIn.Load(),
			MessagesOut: ServerStats.wsMessagesOut.Load(),
		},
		Cache: CacheStatsResponse{
			Hits:   hits,
			Misses: misses,
			Ratio:  ratio,
		},
		Go: GoStatsResponse{
			Goroutines:  runtime.NumGoroutine(),
			HeapAlloc:   mem.HeapAlloc,
			HeapAllocMB: float64(mem.HeapAlloc) / 1024 / 1024,
			NumGC:       mem.NumGC,
			GoVersion:   runtime.Version(),
		},
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	json.NewEncoder(w).Encode(response)
}
