package config

import (
	"fmt"
	"net"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"btcTrendAnalyzer/internal/adapters/logger" // Import the logger package for LogLevel
	"btcTrendAnalyzer/internal/analysis/trend"
	"btcTrendAnalyzer/internal/domain"
	"btcTrendAnalyzer/internal/history"
	"btcTrendAnalyzer/internal/ports"
)

// Store backends.
const (
	BackendRedis  = "redis"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// Feed sources.
const (
	SourceBinance = "binance"
	SourceCSV     = "csv"
)

// Config holds all application configuration.
type Config struct {
	// Observation feed
	FeedSource      string
	Symbol          string
	APIKey          string
	SecretKey       string
	IsTestnet       bool
	BackfillMinutes int
	ReplayFile      string
	ReplayPace      time.Duration
	FeedBackoffMin  time.Duration
	FeedBackoffMax  time.Duration

	// Analysis
	Timeframes            []domain.Timeframe
	CandlesPerTimeframe   int
	HistoryWindow         int // Samples considered by the Fibonacci engine
	TickInterval          time.Duration
	StrongThreshold       float64       // Percent
	MildThreshold         float64       // Percent
	HistoryCapacity       int           // 0 derives it from timeframes and density
	SampleResolution      time.Duration // Observations within one bucket are merged; 0 keeps every observation
	ObservationsPerMinute int           // 0 derives it from SampleResolution
	HistorySlackMinutes   int
	QueueSize             int
	StaleAfter            time.Duration

	// Shared state store
	StoreBackend         string
	RedisHost            string
	RedisPort            int
	RedisPassword        string
	RedisDB              int
	DBPath               string
	KeyPrefix            string
	StateEncoding        string
	PublishTimeout       time.Duration
	MaxPublisherFailures int
	PublishBackoffMin    time.Duration
	PublishBackoffMax    time.Duration
	ExitOnStoreFailure   bool

	// Logging
	LogLevel  logger.LogLevel // Use the LogLevel type from the logger adapter
	LogFormat string
}

// fileConfig is the optional YAML base layer. Zero values mean "not set".
type fileConfig struct {
	Feed struct {
		Source          string        `yaml:"source"`
		Symbol          string        `yaml:"symbol"`
		Testnet         *bool         `yaml:"testnet"`
		BackfillMinutes int           `yaml:"backfill_minutes"`
		ReplayFile      string        `yaml:"replay_file"`
		ReplayPace      time.Duration `yaml:"replay_pace"`
		BackoffMin      time.Duration `yaml:"backoff_min"`
		BackoffMax      time.Duration `yaml:"backoff_max"`
	} `yaml:"feed"`
	Analysis struct {
		Timeframes      []int         `yaml:"timeframes_minutes"`
		Candles         int           `yaml:"candles_per_timeframe"`
		Window          int           `yaml:"history_window_observations"`
		TickInterval    time.Duration `yaml:"tick_interval"`
		TrendThresholds struct {
			Strong *float64 `yaml:"strong"`
			Mild   *float64 `yaml:"mild"`
		} `yaml:"trend_thresholds"`
		HistoryCapacity       int           `yaml:"history_capacity"`
		SampleResolution      time.Duration `yaml:"sample_resolution"`
		ObservationsPerMinute int           `yaml:"observations_per_minute"`
		HistorySlackMinutes   int           `yaml:"history_slack_minutes"`
		QueueSize             int           `yaml:"queue_size"`
		StaleAfter            time.Duration `yaml:"stale_after"`
	} `yaml:"analysis"`
	Store struct {
		Backend        string        `yaml:"backend"`
		Host           string        `yaml:"host"`
		Port           int           `yaml:"port"`
		Password       string        `yaml:"password"`
		DB             int           `yaml:"db"`
		SQLitePath     string        `yaml:"sqlite_path"`
		KeyPrefix      string        `yaml:"key_prefix"`
		Encoding       string        `yaml:"encoding"`
		PublishTimeout time.Duration `yaml:"publish_timeout"`
		MaxFailures    int           `yaml:"max_publisher_failures"`
		BackoffMin     time.Duration `yaml:"backoff_min"`
		BackoffMax     time.Duration `yaml:"backoff_max"`
		ExitOnFailure  *bool         `yaml:"exit_on_failure"`
	} `yaml:"store"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
}

// Defaults returns the configuration used when nothing is set.
func Defaults() *Config {
	return &Config{
		FeedSource:            SourceBinance,
		Symbol:                "BTCUSDT",
		IsTestnet:             false,
		BackfillMinutes:       0,
		FeedBackoffMin:        time.Second,
		FeedBackoffMax:        time.Minute,
		Timeframes:            append([]domain.Timeframe(nil), domain.DefaultTimeframes...),
		CandlesPerTimeframe:   100,
		HistoryWindow:         200,
		TickInterval:          time.Second,
		StrongThreshold:       2.0,
		MildThreshold:         0.5,
		SampleResolution:      10 * time.Second,
		HistorySlackMinutes:   60,
		QueueSize:             1024,
		StaleAfter:            time.Minute,
		StoreBackend:          BackendRedis,
		RedisHost:             "localhost",
		RedisPort:             6379,
		DBPath:                "./data/analyzer_state.db",
		StateEncoding:         "json",
		PublishTimeout:        500 * time.Millisecond,
		MaxPublisherFailures:  5,
		PublishBackoffMin:     time.Second,
		PublishBackoffMax:     30 * time.Second,
		LogLevel:              logger.LevelInfo,
		LogFormat:             "json",
	}
}

// LoadConfig loads .env, the optional YAML file named by CONFIG_FILE, and
// environment overrides, in that order of increasing precedence.
func LoadConfig() (*Config, error) {
	// Load .env file, but don't fail if it doesn't exist (allow pure env vars)
	_ = godotenv.Load()
	return Load(os.Getenv("CONFIG_FILE"))
}

// Load builds the configuration from defaults, the YAML file at path (skipped
// when path is empty) and the environment. Every problem found is reported in
// one error wrapping ports.ErrConfigInvalid.
func Load(path string) (*Config, error) {
	cfg := Defaults()
	var errs []string // Collect validation errors

	if path != "" {
		if err := applyFile(cfg, path); err != nil {
			return nil, fmt.Errorf("%w: %v", ports.ErrConfigInvalid, err)
		}
	}
	errs = append(errs, applyEnv(cfg)...)
	errs = append(errs, cfg.validate()...)

	// Combine validation errors
	if len(errs) > 0 {
		return nil, fmt.Errorf("configuration validation failed: %w: %s", ports.ErrConfigInvalid, strings.Join(errs, "; "))
	}
	return cfg, nil
}

// RedisAddr returns host:port.
func (c *Config) RedisAddr() string {
	return net.JoinHostPort(c.RedisHost, strconv.Itoa(c.RedisPort))
}

// SamplesPerMinute is the history density used to size the buffer.
func (c *Config) SamplesPerMinute() int {
	if c.ObservationsPerMinute > 0 {
		return c.ObservationsPerMinute
	}
	return history.SamplesPerMinute(c.SampleResolution)
}

// MaxTimeframe returns the longest configured timeframe.
func (c *Config) MaxTimeframe() domain.Timeframe {
	var max domain.Timeframe
	for _, tf := range c.Timeframes {
		if tf > max {
			max = tf
		}
	}
	return max
}

func applyFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	setString(&cfg.FeedSource, fc.Feed.Source)
	setString(&cfg.Symbol, fc.Feed.Symbol)
	if fc.Feed.Testnet != nil {
		cfg.IsTestnet = *fc.Feed.Testnet
	}
	setInt(&cfg.BackfillMinutes, fc.Feed.BackfillMinutes)
	setString(&cfg.ReplayFile, fc.Feed.ReplayFile)
	setDuration(&cfg.ReplayPace, fc.Feed.ReplayPace)
	setDuration(&cfg.FeedBackoffMin, fc.Feed.BackoffMin)
	setDuration(&cfg.FeedBackoffMax, fc.Feed.BackoffMax)

	if len(fc.Analysis.Timeframes) > 0 {
		cfg.Timeframes = cfg.Timeframes[:0]
		for _, m := range fc.Analysis.Timeframes {
			cfg.Timeframes = append(cfg.Timeframes, domain.Timeframe(m))
		}
	}
	setInt(&cfg.CandlesPerTimeframe, fc.Analysis.Candles)
	setInt(&cfg.HistoryWindow, fc.Analysis.Window)
	setDuration(&cfg.TickInterval, fc.Analysis.TickInterval)
	if fc.Analysis.TrendThresholds.Strong != nil {
		cfg.StrongThreshold = *fc.Analysis.TrendThresholds.Strong
	}
	if fc.Analysis.TrendThresholds.Mild != nil {
		cfg.MildThreshold = *fc.Analysis.TrendThresholds.Mild
	}
	setInt(&cfg.HistoryCapacity, fc.Analysis.HistoryCapacity)
	setDuration(&cfg.SampleResolution, fc.Analysis.SampleResolution)
	setInt(&cfg.ObservationsPerMinute, fc.Analysis.ObservationsPerMinute)
	setInt(&cfg.HistorySlackMinutes, fc.Analysis.HistorySlackMinutes)
	setInt(&cfg.QueueSize, fc.Analysis.QueueSize)
	setDuration(&cfg.StaleAfter, fc.Analysis.StaleAfter)

	setString(&cfg.StoreBackend, fc.Store.Backend)
	setString(&cfg.RedisHost, fc.Store.Host)
	setInt(&cfg.RedisPort, fc.Store.Port)
	setString(&cfg.RedisPassword, fc.Store.Password)
	setInt(&cfg.RedisDB, fc.Store.DB)
	setString(&cfg.DBPath, fc.Store.SQLitePath)
	setString(&cfg.KeyPrefix, fc.Store.KeyPrefix)
	setString(&cfg.StateEncoding, fc.Store.Encoding)
	setDuration(&cfg.PublishTimeout, fc.Store.PublishTimeout)
	setInt(&cfg.MaxPublisherFailures, fc.Store.MaxFailures)
	setDuration(&cfg.PublishBackoffMin, fc.Store.BackoffMin)
	setDuration(&cfg.PublishBackoffMax, fc.Store.BackoffMax)
	if fc.Store.ExitOnFailure != nil {
		cfg.ExitOnStoreFailure = *fc.Store.ExitOnFailure
	}

	if fc.Log.Level != "" {
		cfg.LogLevel = logger.ParseLevel(fc.Log.Level)
	}
	setString(&cfg.LogFormat, fc.Log.Format)
	return nil
}

func applyEnv(cfg *Config) []string {
	var errs []string
	var err error

	// Observation feed
	cfg.FeedSource = strings.ToLower(getEnv("FEED_SOURCE", cfg.FeedSource))
	cfg.Symbol = strings.ToUpper(getEnv("SYMBOL", cfg.Symbol))
	cfg.APIKey = getEnv("BINANCE_API_KEY", cfg.APIKey)
	cfg.SecretKey = getEnv("BINANCE_API_SECRET", cfg.SecretKey)
	cfg.IsTestnet = getEnvAsBool("IS_TESTNET", cfg.IsTestnet)
	if cfg.BackfillMinutes, err = getEnvAsIntRequired("BACKFILL_MINUTES", cfg.BackfillMinutes); err != nil {
		errs = append(errs, fmt.Sprintf("invalid BACKFILL_MINUTES: %v", err))
	}
	cfg.ReplayFile = getEnv("REPLAY_FILE", cfg.ReplayFile)
	if cfg.ReplayPace, err = getEnvAsDurationRequired("REPLAY_PACE", cfg.ReplayPace); err != nil {
		errs = append(errs, fmt.Sprintf("invalid REPLAY_PACE: %v", err))
	}
	if cfg.FeedBackoffMin, err = getEnvAsDurationRequired("FEED_BACKOFF_MIN", cfg.FeedBackoffMin); err != nil {
		errs = append(errs, fmt.Sprintf("invalid FEED_BACKOFF_MIN: %v", err))
	}
	if cfg.FeedBackoffMax, err = getEnvAsDurationRequired("FEED_BACKOFF_MAX", cfg.FeedBackoffMax); err != nil {
		errs = append(errs, fmt.Sprintf("invalid FEED_BACKOFF_MAX: %v", err))
	}

	// Analysis
	if v := os.Getenv("TIMEFRAMES"); v != "" {
		tfs, err := parseTimeframes(v)
		if err != nil {
			errs = append(errs, fmt.Sprintf("invalid TIMEFRAMES: %v", err))
		} else {
			cfg.Timeframes = tfs
		}
	}
	if cfg.CandlesPerTimeframe, err = getEnvAsIntRequired("CANDLES_PER_TIMEFRAME", cfg.CandlesPerTimeframe); err != nil {
		errs = append(errs, fmt.Sprintf("invalid CANDLES_PER_TIMEFRAME: %v", err))
	}
	if cfg.HistoryWindow, err = getEnvAsIntRequired("HISTORY_WINDOW_OBSERVATIONS", cfg.HistoryWindow); err != nil {
		errs = append(errs, fmt.Sprintf("invalid HISTORY_WINDOW_OBSERVATIONS: %v", err))
	}
	if cfg.TickInterval, err = getEnvAsDurationRequired("TICK_INTERVAL", cfg.TickInterval); err != nil {
		errs = append(errs, fmt.Sprintf("invalid TICK_INTERVAL: %v", err))
	}
	if cfg.StrongThreshold, err = getEnvAsFloatRequired("TREND_STRONG_THRESHOLD", cfg.StrongThreshold); err != nil {
		errs = append(errs, fmt.Sprintf("invalid TREND_STRONG_THRESHOLD: %v", err))
	}
	if cfg.MildThreshold, err = getEnvAsFloatRequired("TREND_MILD_THRESHOLD", cfg.MildThreshold); err != nil {
		errs = append(errs, fmt.Sprintf("invalid TREND_MILD_THRESHOLD: %v", err))
	}
	if cfg.HistoryCapacity, err = getEnvAsIntRequired("HISTORY_CAPACITY", cfg.HistoryCapacity); err != nil {
		errs = append(errs, fmt.Sprintf("invalid HISTORY_CAPACITY: %v", err))
	}
	if cfg.SampleResolution, err = getEnvAsDurationRequired("SAMPLE_RESOLUTION", cfg.SampleResolution); err != nil {
		errs = append(errs, fmt.Sprintf("invalid SAMPLE_RESOLUTION: %v", err))
	}
	if cfg.ObservationsPerMinute, err = getEnvAsIntRequired("OBSERVATIONS_PER_MINUTE", cfg.ObservationsPerMinute); err != nil {
		errs = append(errs, fmt.Sprintf("invalid OBSERVATIONS_PER_MINUTE: %v", err))
	}
	cfg.HistorySlackMinutes = getEnvAsInt("HISTORY_SLACK_MINUTES", cfg.HistorySlackMinutes)
	if cfg.QueueSize, err = getEnvAsIntRequired("QUEUE_SIZE", cfg.QueueSize); err != nil {
		errs = append(errs, fmt.Sprintf("invalid QUEUE_SIZE: %v", err))
	}
	if cfg.StaleAfter, err = getEnvAsDurationRequired("STALE_AFTER", cfg.StaleAfter); err != nil {
		errs = append(errs, fmt.Sprintf("invalid STALE_AFTER: %v", err))
	}

	// Shared state store
	cfg.StoreBackend = strings.ToLower(getEnv("STORE_BACKEND", cfg.StoreBackend))
	cfg.RedisHost = getEnv("REDIS_HOST", cfg.RedisHost)
	if cfg.RedisPort, err = getEnvAsIntRequired("REDIS_PORT", cfg.RedisPort); err != nil {
		errs = append(errs, fmt.Sprintf("invalid REDIS_PORT: %v", err))
	}
	cfg.RedisPassword = getEnv("REDIS_PASSWORD", cfg.RedisPassword)
	if cfg.RedisDB, err = getEnvAsIntRequired("REDIS_DB", cfg.RedisDB); err != nil {
		errs = append(errs, fmt.Sprintf("invalid REDIS_DB: %v", err))
	}
	cfg.DBPath = getEnv("DB_PATH", cfg.DBPath)
	cfg.KeyPrefix = getEnv("STORE_KEY_PREFIX", cfg.KeyPrefix)
	cfg.StateEncoding = strings.ToLower(getEnv("STATE_ENCODING", cfg.StateEncoding))
	if cfg.PublishTimeout, err = getEnvAsDurationRequired("PUBLISH_TIMEOUT", cfg.PublishTimeout); err != nil {
		errs = append(errs, fmt.Sprintf("invalid PUBLISH_TIMEOUT: %v", err))
	}
	if cfg.MaxPublisherFailures, err = getEnvAsIntRequired("MAX_PUBLISHER_FAILURES", cfg.MaxPublisherFailures); err != nil {
		errs = append(errs, fmt.Sprintf("invalid MAX_PUBLISHER_FAILURES: %v", err))
	}
	if cfg.PublishBackoffMin, err = getEnvAsDurationRequired("PUBLISH_BACKOFF_MIN", cfg.PublishBackoffMin); err != nil {
		errs = append(errs, fmt.Sprintf("invalid PUBLISH_BACKOFF_MIN: %v", err))
	}
	if cfg.PublishBackoffMax, err = getEnvAsDurationRequired("PUBLISH_BACKOFF_MAX", cfg.PublishBackoffMax); err != nil {
		errs = append(errs, fmt.Sprintf("invalid PUBLISH_BACKOFF_MAX: %v", err))
	}
	cfg.ExitOnStoreFailure = getEnvAsBool("EXIT_ON_STORE_FAILURE", cfg.ExitOnStoreFailure)

	// Logging
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = logger.ParseLevel(v) // Use the parser from the logger package
	}
	cfg.LogFormat = strings.ToLower(getEnv("LOG_FORMAT", cfg.LogFormat))

	return errs
}

func (c *Config) validate() []string {
	var errs []string

	switch c.FeedSource {
	case SourceBinance:
		if c.Symbol == "" {
			errs = append(errs, "SYMBOL must be set")
		}
	case SourceCSV:
		if c.ReplayFile == "" {
			errs = append(errs, "REPLAY_FILE must be set when FEED_SOURCE=csv")
		}
	default:
		errs = append(errs, fmt.Sprintf("FEED_SOURCE must be %q or %q, got %q", SourceBinance, SourceCSV, c.FeedSource))
	}
	if c.BackfillMinutes < 0 {
		errs = append(errs, "BACKFILL_MINUTES cannot be negative")
	}
	if c.ReplayPace < 0 {
		errs = append(errs, "REPLAY_PACE cannot be negative")
	}
	if c.FeedBackoffMin <= 0 || c.FeedBackoffMax < c.FeedBackoffMin {
		errs = append(errs, "feed backoff requires 0 < FEED_BACKOFF_MIN <= FEED_BACKOFF_MAX")
	}

	if len(c.Timeframes) == 0 {
		errs = append(errs, "at least one timeframe must be configured")
	}
	seen := make(map[domain.Timeframe]bool, len(c.Timeframes))
	for _, tf := range c.Timeframes {
		if !tf.IsSupported() {
			errs = append(errs, fmt.Sprintf("unsupported timeframe %d minutes", tf))
		}
		if seen[tf] {
			errs = append(errs, fmt.Sprintf("duplicate timeframe %d minutes", tf))
		}
		seen[tf] = true
	}
	sort.Slice(c.Timeframes, func(i, j int) bool { return c.Timeframes[i] < c.Timeframes[j] })

	if c.CandlesPerTimeframe <= 0 {
		errs = append(errs, "CANDLES_PER_TIMEFRAME must be positive")
	}
	if c.HistoryWindow <= 0 {
		errs = append(errs, "HISTORY_WINDOW_OBSERVATIONS must be positive")
	}
	if c.TickInterval <= 0 {
		errs = append(errs, "TICK_INTERVAL must be positive")
	}
	if err := trend.ValidateThresholds(c.MildThreshold, c.StrongThreshold); err != nil {
		errs = append(errs, fmt.Sprintf("trend thresholds (TREND_MILD_THRESHOLD, TREND_STRONG_THRESHOLD): %v", err))
	}
	if c.HistoryCapacity < 0 {
		errs = append(errs, "HISTORY_CAPACITY cannot be negative")
	}
	if c.SampleResolution < 0 || (c.SampleResolution > 0 && time.Minute%c.SampleResolution != 0) {
		errs = append(errs, "SAMPLE_RESOLUTION must be 0 or divide one minute evenly")
	}
	if c.ObservationsPerMinute < 0 {
		errs = append(errs, "OBSERVATIONS_PER_MINUTE cannot be negative")
	}
	if c.HistorySlackMinutes < 0 {
		errs = append(errs, "HISTORY_SLACK_MINUTES cannot be negative")
	}
	if c.QueueSize <= 0 {
		errs = append(errs, "QUEUE_SIZE must be positive")
	}
	if c.StaleAfter <= 0 {
		errs = append(errs, "STALE_AFTER must be positive")
	}

	switch c.StoreBackend {
	case BackendRedis:
		if c.RedisHost == "" {
			errs = append(errs, "REDIS_HOST must be set")
		}
		if c.RedisPort <= 0 || c.RedisPort > 65535 {
			errs = append(errs, "REDIS_PORT must be between 1 and 65535")
		}
		if c.RedisDB < 0 {
			errs = append(errs, "REDIS_DB cannot be negative")
		}
	case BackendSQLite:
		if c.DBPath == "" {
			errs = append(errs, "DB_PATH must be set")
		}
	case BackendMemory:
	default:
		errs = append(errs, fmt.Sprintf("STORE_BACKEND must be one of redis, sqlite, memory, got %q", c.StoreBackend))
	}
	if c.StateEncoding != "json" && c.StateEncoding != "msgpack" {
		errs = append(errs, fmt.Sprintf("STATE_ENCODING must be json or msgpack, got %q", c.StateEncoding))
	}
	if c.PublishTimeout <= 0 {
		errs = append(errs, "PUBLISH_TIMEOUT must be positive")
	}
	if c.MaxPublisherFailures <= 0 {
		errs = append(errs, "MAX_PUBLISHER_FAILURES must be positive")
	}
	if c.PublishBackoffMin <= 0 || c.PublishBackoffMax < c.PublishBackoffMin {
		errs = append(errs, "publish backoff requires 0 < PUBLISH_BACKOFF_MIN <= PUBLISH_BACKOFF_MAX")
	}

	switch c.LogFormat {
	case "json", "console", "plain":
	default:
		errs = append(errs, fmt.Sprintf("LOG_FORMAT must be json, console or plain, got %q", c.LogFormat))
	}
	return errs
}

func parseTimeframes(s string) ([]domain.Timeframe, error) {
	var out []domain.Timeframe
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(part), "min"))
		if part == "" {
			continue
		}
		m, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("timeframe %q: %w", part, err)
		}
		out = append(out, domain.Timeframe(m))
	}
	return out, nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v time.Duration) {
	if v != 0 {
		*dst = v
	}
}

// --- Env Var Helpers ---

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsIntRequired(key string, defaultValue int) (int, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		// Use default if env var is not set at all
		return defaultValue, nil
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		// Return error if env var is set but invalid
		return 0, fmt.Errorf("invalid integer value '%s' for key %s: %w", valueStr, key, err)
	}
	return value, nil
}

func getEnvAsFloatRequired(key string, defaultValue float64) (float64, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue, nil
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid float value '%s' for key %s: %w", valueStr, key, err)
	}
	return value, nil
}

func getEnvAsDurationRequired(key string, defaultValue time.Duration) (time.Duration, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue, nil
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return 0, fmt.Errorf("invalid duration value '%s' for key %s: %w", valueStr, key, err)
	}
	return value, nil
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
