package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/ariadyuval-maker/TelAvivBusLanes/internal/cache"
	"github.com/ariadyuval-maker/TelAvivBusLanes/internal/camera"
	"github.com/ariadyuval-maker/TelAvivBusLanes/internal/config"
	"github.com/ariadyuval-maker/TelAvivBusLanes/internal/handler"
	"github.com/ariadyuval-maker/TelAvivBusLanes/internal/hub"
	"github.com/ariadyuval-maker/TelAvivBusLanes/internal/ingestor"
	"github.com/ariadyuval-maker/TelAvivBusLanes/internal/middleware"
	"github.com/ariadyuval-maker/TelAvivBusLanes/internal/names"
	"github.com/ariadyuval-maker/TelAvivBusLanes/internal/override"
	"github.com/ariadyuval-maker/TelAvivBusLanes/internal/schedule"
	"github.com/ariadyuval-maker/TelAvivBusLanes/internal/store"
	reportsync "github.com/ariadyuval-maker/TelAvivBusLanes/internal/sync"
	"github.com/ariadyuval-maker/TelAvivBusLanes/pkg/gisapi"
	"github.com/ariadyuval-maker/TelAvivBusLanes/pkg/routing"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("starting buslanes server",
		"log_level", cfg.LogLevel.String(),
		"http_addr", cfg.HTTPAddr,
		"redis_enabled", cfg.RedisEnabled,
	)

	// The schedule table is static reference data; without it nothing
	// can be evaluated, so a load failure is fatal.
	table, err := schedule.LoadTable(cfg.ScheduleTablePath)
	if err != nil {
		logger.Error("failed to load schedule table", "path", cfg.ScheduleTablePath, "error", err)
		os.Exit(1)
	}

	aliases := names.NewAliasTable()
	if cfg.AliasTablePath != "" {
		aliases, err = names.LoadAliasTable(cfg.AliasTablePath)
		if err != nil {
			logger.Error("failed to load alias table", "path", cfg.AliasTablePath, "error", err)
			os.Exit(1)
		}
	}

	scheduleIndex := schedule.NewIndex(table.Entries, aliases)
	logger.Info("schedule table loaded",
		"version", table.Version,
		"entries", scheduleIndex.Len(),
		"aliases", aliases.Len(),
	)

	featureStore := store.NewFeatureStore()
	reportStore := store.NewReportStore()

	overrideIndex := override.NewIndex(aliases)
	evaluator := schedule.NewEvaluator(scheduleIndex, overrideIndex)

	assigner := camera.NewAssigner(aliases,
		cfg.CameraSnapRadiusM, cfg.CameraAmbiguityGapM, cfg.CameraPairGapM, logger)

	wsHub := hub.NewHub(logger)
	gisClient := gisapi.New(cfg.GISBaseURL, cfg.GISSegmentsLayer, cfg.GISCamerasLayer, cfg.GISPageSize)
	ing := ingestor.New(gisClient, featureStore, evaluator, assigner, wsHub, cfg, logger)

	// Every report mutation rebuilds the override index wholesale and
	// re-evaluates segment statuses against it.
	applyReports := func() {
		overrideIndex.Rebuild(reportStore.List())
		ing.Recompute()
	}

	var redisCache *cache.RedisCache
	var remote reportsync.Remote
	if cfg.RedisEnabled {
		redisCache, err = cache.NewRedisCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, logger)
		if err != nil {
			logger.Error("failed to connect to redis", "error", err)
			os.Exit(1)
		}
		defer redisCache.Close()

		redisRemote, err := reportsync.NewRedisRemote(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			logger.Error("failed to connect report remote", "error", err)
			os.Exit(1)
		}
		defer redisRemote.Close()
		remote = redisRemote
	}

	var syncer *reportsync.Syncer
	if remote != nil {
		syncer = reportsync.NewSyncer(remote, reportStore,
			cfg.ReportSyncInterval, cfg.ReportSyncMaxRetries, applyReports, logger)
	}

	warmer := cache.NewCacheWarmer(redisCache, featureStore, evaluator, cfg.CacheTTL, logger)

	httpHandler := handler.NewHTTPHandler(featureStore, evaluator)
	wsHandler := handler.NewWSHandler(wsHub, featureStore, evaluator, logger)
	healthHandler := handler.NewHealthHandler(ing, featureStore)
	reportsHandler := handler.NewReportsHandler(reportStore, applyReports, logger)
	positionHandler := handler.NewPositionHandler(featureStore, evaluator,
		cfg.AlertCooldown, cfg.AlertProximityM, logger)
	syncHandler := handler.NewSyncHandler(redisCache, warmer, logger)
	statsHandler := handler.NewStatsHandler(featureStore, reportStore, syncer, positionHandler)

	mux := http.NewServeMux()

	mux.HandleFunc("GET /v1/segments", httpHandler.ListSegments)
	mux.HandleFunc("GET /v1/segments/{id}", httpHandler.GetSegment)
	mux.HandleFunc("GET /v1/cameras", httpHandler.ListCameras)
	mux.HandleFunc("GET /v1/cameras/{id}", httpHandler.GetCamera)

	mux.HandleFunc("GET /v1/reports", reportsHandler.ListReports)
	mux.HandleFunc("GET /v1/reports/{id}", reportsHandler.GetReport)
	mux.HandleFunc("POST /v1/reports", reportsHandler.CreateReport)
	mux.HandleFunc("PUT /v1/reports/{id}", reportsHandler.UpdateReport)
	mux.HandleFunc("DELETE /v1/reports/{id}", reportsHandler.DeleteReport)

	mux.HandleFunc("POST /v1/position", positionHandler.UpdatePosition)
	mux.HandleFunc("DELETE /v1/position/{id}", positionHandler.EndSession)

	mux.HandleFunc("GET /v1/sync", syncHandler.GetFull)
	mux.HandleFunc("GET /v1/sync/tile", syncHandler.GetTile)
	mux.HandleFunc("/v1/ws", wsHandler.ServeWS)

	if cfg.RoutingEnabled {
		routeHandler := handler.NewRouteHandler(routing.New(cfg.RoutingBaseURL), logger)
		mux.HandleFunc("GET /v1/route", routeHandler.GetRoute)
	}

	mux.HandleFunc("GET /v1/stats", statsHandler.GetStats)
	mux.HandleFunc("GET /healthz", healthHandler.Healthz)
	mux.HandleFunc("GET /readyz", healthHandler.Readyz)

	rateLimiter := middleware.NewRateLimiter(cfg.RateLimitPerWindow, cfg.RateLimitWindow, cfg.RateLimitWhitelist, logger)
	rateLimiter.OnBlocked(handler.ServerStats.IncRateLimitBlocked)

	var root http.Handler = mux
	root = handler.GzipMiddleware(root)
	root = handler.CORSMiddleware(root)
	root = rateLimiter.Middleware(root)

	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      root,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go wsHub.Run(ctx)

	go ing.Run(ctx)

	if syncer != nil {
		go syncer.Run(ctx)
	}

	if redisCache != nil {
		if cfg.CacheWarmOnStart {
			go func() {
				if err := warmer.WarmAll(ctx); err != nil {
					logger.Error("initial cache warming failed", "error", err)
				}
			}()
		}
		go warmer.ScheduleRefresh(ctx, cfg.StatusInterval)
	}

	go func() {
		logger.Info("starting HTTP server", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server error", "error", err)
			cancel()
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutdown signal received")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", "error", err)
	}

	logger.Info("shutdown complete")
}
