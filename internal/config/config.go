package config

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/couchcryptid/storm-flash-track/internal/domain"
	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// StartTimeLayout is the accepted TRACK_START_TIME format. Values are UTC and
// carry whole seconds only.
const StartTimeLayout = "2006-01-02T15:04:05"

// Config holds all service settings, populated from environment variables.
type Config struct {
	Track     domain.TrajectoryParams
	CountMode domain.CountMode

	DataDir          string
	AggregateWorkers int
	ScanCacheSize    int

	// Object storage fetch configuration.
	FetchEnabled bool
	S3Bucket     string
	S3Product    string
	S3Region     string
	S3RateLimit  float64
	PurgeData    bool

	KafkaBrokers   []string
	KafkaSinkTopic string

	ExportCSV  string
	ExportJSON string
	PlotDir    string

	HTTPAddr        string
	Serve           bool
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	track, err := parseTrack()
	if err != nil {
		return nil, err
	}

	mode, err := domain.ParseCountMode(sharedcfg.EnvOrDefault("COUNT_MODE", string(domain.CountCrossProduct)))
	if err != nil {
		return nil, fmt.Errorf("invalid COUNT_MODE: %w", err)
	}

	workers, err := parsePositiveInt("AGGREGATE_WORKERS", "4")
	if err != nil {
		return nil, err
	}
	cacheSize, err := parsePositiveInt("SCAN_CACHE_SIZE", "256")
	if err != nil {
		return nil, err
	}

	fetchEnabled, err := parseBool("FETCH_ENABLED", "false")
	if err != nil {
		return nil, err
	}
	purgeData, err := parseBool("PURGE_DATA", "false")
	if err != nil {
		return nil, err
	}
	serve, err := parseBool("SERVE", "false")
	if err != nil {
		return nil, err
	}

	rateLimit, err := parsePositiveFloat("S3_RATE_LIMIT", "10")
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Track:            track,
		CountMode:        mode,
		DataDir:          sharedcfg.EnvOrDefault("DATA_DIR", "./data"),
		AggregateWorkers: workers,
		ScanCacheSize:    cacheSize,

		FetchEnabled: fetchEnabled,
		S3Bucket:     sharedcfg.EnvOrDefault("S3_BUCKET", "noaa-goes16"),
		S3Product:    sharedcfg.EnvOrDefault("S3_PRODUCT", "GLM-L2-LCFA"),
		S3Region:     sharedcfg.EnvOrDefault("S3_REGION", "us-east-1"),
		S3RateLimit:  rateLimit,
		PurgeData:    purgeData,

		KafkaBrokers:   sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "")),
		KafkaSinkTopic: sharedcfg.EnvOrDefault("KAFKA_SINK_TOPIC", "storm-flash-series"),

		ExportCSV:  sharedcfg.EnvOrDefault("EXPORT_CSV", ""),
		ExportJSON: sharedcfg.EnvOrDefault("EXPORT_JSON", ""),
		PlotDir:    sharedcfg.EnvOrDefault("PLOT_DIR", ""),

		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		Serve:           serve,
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,
	}

	if cfg.DataDir == "" {
		return nil, errors.New("DATA_DIR is required")
	}
	if cfg.FetchEnabled && cfg.S3Bucket == "" {
		return nil, errors.New("FETCH_ENABLED is true but S3_BUCKET is not set")
	}
	if len(cfg.KafkaBrokers) > 0 && cfg.KafkaSinkTopic == "" {
		return nil, errors.New("KAFKA_SINK_TOPIC is required when KAFKA_BROKERS is set")
	}

	return cfg, nil
}

// KafkaEnabled reports whether observations should be published.
func (c *Config) KafkaEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

func parseTrack() (domain.TrajectoryParams, error) {
	startLat, err := parseFloat("TRACK_START_LAT", "30.30")
	if err != nil {
		return domain.TrajectoryParams{}, err
	}
	startLon, err := parseFloat("TRACK_START_LON", "-55.50")
	if err != nil {
		return domain.TrajectoryParams{}, err
	}
	endLat, err := parseFloat("TRACK_END_LAT", "30.86")
	if err != nil {
		return domain.TrajectoryParams{}, err
	}
	endLon, err := parseFloat("TRACK_END_LON", "-55.11")
	if err != nil {
		return domain.TrajectoryParams{}, err
	}

	start, err := domain.NewGeoPoint(startLat, startLon)
	if err != nil {
		return domain.TrajectoryParams{}, fmt.Errorf("invalid TRACK_START_LAT/TRACK_START_LON: %w", err)
	}
	end, err := domain.NewGeoPoint(endLat, endLon)
	if err != nil {
		return domain.TrajectoryParams{}, fmt.Errorf("invalid TRACK_END_LAT/TRACK_END_LON: %w", err)
	}

	hours, err := parsePositiveFloat("TRACK_ELAPSED_HOURS", "3")
	if err != nil {
		return domain.TrajectoryParams{}, err
	}
	cadence, err := parsePositiveInt("TRACK_CADENCE_SECONDS", strconv.Itoa(domain.DefaultCadenceSeconds))
	if err != nil {
		return domain.TrajectoryParams{}, err
	}

	startTime, err := time.ParseInLocation(StartTimeLayout, sharedcfg.EnvOrDefault("TRACK_START_TIME", "2021-05-20T00:00:00"), time.UTC)
	if err != nil || startTime.Nanosecond() != 0 {
		return domain.TrajectoryParams{}, fmt.Errorf("invalid TRACK_START_TIME: want %s", StartTimeLayout)
	}

	return domain.TrajectoryParams{
		Start:          start,
		End:            end,
		ElapsedHours:   hours,
		CadenceSeconds: cadence,
		StartTime:      startTime,
	}, nil
}

func parseFloat(key, fallback string) (float64, error) {
	f, err := strconv.ParseFloat(sharedcfg.EnvOrDefault(key, fallback), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("invalid %s: must be a finite number", key)
	}
	return f, nil
}

func parsePositiveFloat(key, fallback string) (float64, error) {
	f, err := parseFloat(key, fallback)
	if err != nil {
		return 0, err
	}
	if f <= 0 {
		return 0, fmt.Errorf("invalid %s: must be positive", key)
	}
	return f, nil
}

func parsePositiveInt(key, fallback string) (int, error) {
	n, err := strconv.Atoi(sharedcfg.EnvOrDefault(key, fallback))
	if err != nil || n < 1 {
		return 0, fmt.Errorf("invalid %s: must be a positive integer", key)
	}
	return n, nil
}

func parseBool(key, fallback string) (bool, error) {
	b, err := strconv.ParseBool(sharedcfg.EnvOrDefault(key, fallback))
	if err != nil {
		return false, fmt.Errorf("invalid %s: must be true or false", key)
	}
	return b, nil
}
