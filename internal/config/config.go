package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Detector DetectorConfig `yaml:"detector"`
	Matching MatchingConfig `yaml:"matching"`
	Log      LogConfig      `yaml:"log"`
	Web      WebConfig      `yaml:"web"`
}

type DatabaseConfig struct {
	Driver       string `yaml:"driver"`         // postgres or mysql
	URL          string `yaml:"-"`              // connection URL or DSN, never read from defaults
	MaxOpenConns int    `yaml:"max_open_conns"` // Maximum open connections (default 25)
	MaxIdleConns int    `yaml:"max_idle_conns"` // Maximum idle connections (default 5)
}

type DetectorConfig struct {
	URL           string  `yaml:"url"`
	MinConfidence float64 `yaml:"min_confidence"`
	MaxImageSide  int     `yaml:"max_image_side"`
}

type MatchingConfig struct {
	Dimension int     `yaml:"dimension"`
	Threshold float64 `yaml:"threshold"`
	Index     string  `yaml:"index"` // linear or hnsw
	HNSWTopK  int     `yaml:"hnsw_top_k"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type WebConfig struct {
	Host        string `yaml:"host"`
	Port        int    `yaml:"port"`
	MaxUploadMB int    `yaml:"max_upload_mb"`
	APIKey      string `yaml:"-"` // empty disables authentication
}

// MaxUploadBytes returns the upload limit in bytes.
func (c *WebConfig) MaxUploadBytes() int64 {
	return int64(c.MaxUploadMB) << 20
}

// Addr returns the listen address.
func (c *WebConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// envString returns the environment variable or the default when unset or empty.
func envString(key, defaultVal string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return defaultVal
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envNonNegativeInt is envInt that also accepts zero.
func envNonNegativeInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n >= 0 {
		return n
	}
	return defaultVal
}

// envFloat reads an environment variable as a finite float. Range checks are
// left to Validate so that an out-of-range value is reported, not ignored.
func envFloat(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
		return f
	}
	return defaultVal
}

func Load() *Config {
	var cfg Config
	if err := yaml.Unmarshal(defaultsYAML, &cfg); err != nil {
		// This is an embedded file so this error should never happen in practice
		panic("failed to unmarshal embedded defaults.yaml: " + err.Error())
	}

	cfg.Database.Driver = strings.ToLower(envString("DATABASE_DRIVER", cfg.Database.Driver))
	cfg.Database.URL = os.Getenv("DATABASE_URL")
	cfg.Database.MaxOpenConns = envInt("DATABASE_MAX_OPEN_CONNS", cfg.Database.MaxOpenConns)
	cfg.Database.MaxIdleConns = envInt("DATABASE_MAX_IDLE_CONNS", cfg.Database.MaxIdleConns)

	cfg.Detector.URL = envString("DETECTOR_URL", cfg.Detector.URL)
	cfg.Detector.MinConfidence = envFloat("DETECTOR_MIN_CONFIDENCE", cfg.Detector.MinConfidence)
	cfg.Detector.MaxImageSide = envNonNegativeInt("DETECTOR_MAX_IMAGE_SIDE", cfg.Detector.MaxImageSide)

	cfg.Matching.Dimension = envInt("EMBEDDING_DIM", cfg.Matching.Dimension)
	cfg.Matching.Threshold = envFloat("MATCH_THRESHOLD", cfg.Matching.Threshold)
	cfg.Matching.Index = strings.ToLower(envString("MATCH_INDEX", cfg.Matching.Index))
	cfg.Matching.HNSWTopK = envInt("MATCH_HNSW_TOP_K", cfg.Matching.HNSWTopK)

	cfg.Log.Level = strings.ToLower(envString("LOG_LEVEL", cfg.Log.Level))
	cfg.Log.Format = strings.ToLower(envString("LOG_FORMAT", cfg.Log.Format))

	cfg.Web.Host = envString("WEB_HOST", cfg.Web.Host)
	cfg.Web.Port = envInt("WEB_PORT", cfg.Web.Port)
	cfg.Web.MaxUploadMB = envInt("WEB_MAX_UPLOAD_MB", cfg.Web.MaxUploadMB)
	cfg.Web.APIKey = os.Getenv("WEB_API_KEY")

	return &cfg
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error
	switch c.Database.Driver {
	case "postgres", "mysql":
	default:
		errs = append(errs, fmt.Errorf("DATABASE_DRIVER must be postgres or mysql, got %q", c.Database.Driver))
	}
	if c.Matching.Dimension <= 0 {
		errs = append(errs, fmt.Errorf("EMBEDDING_DIM must be positive, got %d", c.Matching.Dimension))
	}
	if c.Matching.Threshold < 0 || c.Matching.Threshold > 1 {
		errs = append(errs, fmt.Errorf("MATCH_THRESHOLD must be between 0 and 1, got %v", c.Matching.Threshold))
	}
	if c.Detector.MinConfidence < 0 || c.Detector.MinConfidence > 1 {
		errs = append(errs, fmt.Errorf("DETECTOR_MIN_CONFIDENCE must be between 0 and 1, got %v", c.Detector.MinConfidence))
	}
	switch c.Matching.Index {
	case "linear", "hnsw":
	default:
		errs = append(errs, fmt.Errorf("MATCH_INDEX must be linear or hnsw, got %q", c.Matching.Index))
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("LOG_FORMAT must be text or json, got %q", c.Log.Format))
	}
	return errors.Join(errs...)
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, fmt.Errorf("LOG_LEVEL: %w", err)
	}
	return level, nil
}

// NewLogger builds the structured logger used by the matching service.
// Unknown levels fall back to info.
func NewLogger(cfg LogConfig, w io.Writer) *slog.Logger {
	level, _ := parseLevel(cfg.Level)
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}
