package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	LogLevel        slog.Level
	HTTPAddr        string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration

	GISBaseURL       string
	GISSegmentsLayer string
	GISCamerasLayer  string
	GISPageSize      int

	FeedRefreshInterval time.Duration
	StatusInterval      time.Duration
	TileZoomLevel       int

	ScheduleTablePath string
	AliasTablePath    string

	CameraSnapRadiusM   float64
	CameraAmbiguityGapM float64
	CameraPairGapM      float64

	AlertCooldown   time.Duration
	AlertProximityM float64

	RoutingEnabled bool
	RoutingBaseURL string

	RedisEnabled     bool
	RedisAddr        string
	RedisPassword    string
	RedisDB          int
	CacheTTL         time.Duration
	CacheWarmOnStart bool

	ReportSyncInterval   time.Duration
	ReportSyncMaxRetries int

	RateLimitPerWindow int
	RateLimitWindow    time.Duration
	RateLimitWhitelist []string
}

func Load() (*Config, error) {
	return &Config{
		LogLevel:        getLogLevelEnv("LOG_LEVEL", slog.LevelInfo),
		HTTPAddr:        getEnv("HTTP_ADDR", ":8080"),
		ReadTimeout:     getDurationEnv("READ_TIMEOUT", 10*time.Second),
		WriteTimeout:    getDurationEnv("WRITE_TIMEOUT", 10*time.Second),
		ShutdownTimeout: getDurationEnv("SHUTDOWN_TIMEOUT", 30*time.Second),

		GISBaseURL:       getEnv("GIS_BASE_URL", "https://gisn.tel-aviv.gov.il/arcgis/rest/services/IView2/MapServer"),
		GISSegmentsLayer: getEnv("GIS_SEGMENTS_LAYER", "507"),
		GISCamerasLayer:  getEnv("GIS_CAMERAS_LAYER", "508"),
		GISPageSize:      getIntEnv("GIS_PAGE_SIZE", 1000),

		FeedRefreshInterval: getDurationEnv("FEED_REFRESH_INTERVAL", 10*time.Minute),
		StatusInterval:      getDurationEnv("STATUS_INTERVAL", time.Minute),
		TileZoomLevel:       getIntEnv("TILE_ZOOM_LEVEL", 14),

		ScheduleTablePath: getEnv("SCHEDULE_TABLE_PATH", "data/schedules.yaml"),
		AliasTablePath:    getEnv("ALIAS_TABLE_PATH", ""),

		CameraSnapRadiusM:   getFloatEnv("CAMERA_SNAP_RADIUS_M", 60),
		CameraAmbiguityGapM: getFloatEnv("CAMERA_AMBIGUITY_GAP_M", 3),
		CameraPairGapM:      getFloatEnv("CAMERA_PAIR_GAP_M", 10),

		AlertCooldown:   getDurationEnv("ALERT_COOLDOWN", 60*time.Second),
		AlertProximityM: getFloatEnv("ALERT_PROXIMITY_M", 250),

		RoutingEnabled: getBoolEnv("ROUTING_ENABLED", false),
		RoutingBaseURL: getEnv("ROUTING_BASE_URL", "https://router.project-osrm.org"),

		RedisEnabled:     getBoolEnv("REDIS_ENABLED", false),
		RedisAddr:        getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:    getEnv("REDIS_PASSWORD", ""),
		RedisDB:          getIntEnv("REDIS_DB", 0),
		CacheTTL:         getDurationEnv("CACHE_TTL", 10*time.Minute),
		CacheWarmOnStart: getBoolEnv("CACHE_WARM_ON_START", true),

		ReportSyncInterval:   getDurationEnv("REPORT_SYNC_INTERVAL", 30*time.Second),
		ReportSyncMaxRetries: getIntEnv("REPORT_SYNC_MAX_RETRIES", 3),

		RateLimitPerWindow: getIntEnv("RATE_LIMIT_PER_WINDOW", 300),
		RateLimitWindow:    getDurationEnv("RATE_LIMIT_WINDOW", time.Minute),
		RateLimitWhitelist: getCSVEnv("RATE_LIMIT_WHITELIST"),
	}, nil
}

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getDurationEnv(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}

func getIntEnv(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

func getFloatEnv(key string, defaultVal float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getBoolEnv(key string, defaultVal bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return defaultVal
}

func getLogLevelEnv(key string, defaultVal slog.Level) slog.Level {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}

	switch strings.ToLower(v) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return defaultVal
	}
}

func getCSVEnv(key string) []string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return nil
	}

	parts := strings.Split(v, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		t := strings.TrimSpace(p)
		if t != "" {
			result = append(result, t)
		}
	}
	return result
}
