package config

import (
	"errors"
	"fmt"
	"math"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Version is set at build time via -ldflags.
var Version = "dev"

// Config holds all leafdoc configuration.
type Config struct {
	Server ServerConfig `yaml:"server"`
	Engine EngineConfig `yaml:"engine"`
	Notify NotifyConfig `yaml:"notify"`
	Log    LogConfig    `yaml:"log"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	MaxUploadBytes  int64         `yaml:"max_upload_bytes"`
	MaxPixels       int64         `yaml:"max_pixels"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	Metrics         bool          `yaml:"metrics"`
}

// EngineConfig holds classifier and diagnosis table settings.
type EngineConfig struct {
	ModelPath           string  `yaml:"model_path"`
	RuntimeLibPath      string  `yaml:"runtime_lib_path"` // empty: next to the model
	TablePath           string  `yaml:"table_path"`       // empty: built-in table
	ConfidenceThreshold float64 `yaml:"confidence_threshold"`
	IntraOpThreads      int     `yaml:"intra_op_threads"`
}

// NotifyConfig holds the optional diagnosis webhook.
type NotifyConfig struct {
	WebhookURL string        `yaml:"webhook_url"` // empty: disabled
	Timeout    time.Duration `yaml:"timeout"`
	WithReport bool          `yaml:"with_report"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "text" or "json"
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:            ":8501",
			MaxUploadBytes:  10 << 20,
			MaxPixels:       40_000_000,
			ShutdownTimeout: 10 * time.Second,
			Metrics:         true,
		},
		Engine: EngineConfig{
			ModelPath:           "models/plant_disease_model.onnx",
			ConfidenceThreshold: 0.7,
			IntraOpThreads:      4,
		},
		Notify: NotifyConfig{
			Timeout: 10 * time.Second,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load builds the configuration from defaults, then the YAML file at path
// (or LEAFDOC_CONFIG when path is empty), then LEAFDOC_* environment
// variables. A missing file is an error only when a path was given.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv("LEAFDOC_CONFIG")
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Server.Addr = getenv("LEAFDOC_ADDR", c.Server.Addr)
	c.Server.MaxUploadBytes = getenvInt64("LEAFDOC_MAX_UPLOAD_BYTES", c.Server.MaxUploadBytes)
	c.Server.MaxPixels = getenvInt64("LEAFDOC_MAX_PIXELS", c.Server.MaxPixels)
	c.Server.ShutdownTimeout = getenvDuration("LEAFDOC_SHUTDOWN_TIMEOUT", c.Server.ShutdownTimeout)
	c.Server.Metrics = getenvBool("LEAFDOC_METRICS", c.Server.Metrics)

	c.Engine.ModelPath = getenv("LEAFDOC_MODEL_PATH", c.Engine.ModelPath)
	c.Engine.RuntimeLibPath = getenv("LEAFDOC_ORT_LIB", c.Engine.RuntimeLibPath)
	c.Engine.TablePath = getenv("LEAFDOC_TABLE_PATH", c.Engine.TablePath)
	c.Engine.ConfidenceThreshold = getenvFloat("LEAFDOC_CONFIDENCE_THRESHOLD", c.Engine.ConfidenceThreshold)
	c.Engine.IntraOpThreads = getenvInt("LEAFDOC_INTRA_OP_THREADS", c.Engine.IntraOpThreads)

	c.Notify.WebhookURL = getenv("LEAFDOC_WEBHOOK_URL", c.Notify.WebhookURL)
	c.Notify.Timeout = getenvDuration("LEAFDOC_WEBHOOK_TIMEOUT", c.Notify.Timeout)
	c.Notify.WithReport = getenvBool("LEAFDOC_WEBHOOK_REPORT", c.Notify.WithReport)

	c.Log.Level = getenv("LEAFDOC_LOG_LEVEL", c.Log.Level)
	c.Log.Format = getenv("LEAFDOC_LOG_FORMAT", c.Log.Format)
}

// RuntimeLib returns the ONNX Runtime shared library path, defaulting to
// libonnxruntime.so next to the model.
func (e EngineConfig) RuntimeLib() string {
	if e.RuntimeLibPath != "" {
		return e.RuntimeLibPath
	}
	return filepath.Join(filepath.Dir(e.ModelPath), "libonnxruntime.so")
}

// Validate checks the configuration for errors. It returns all problems
// at once, not just the first.
func (c Config) Validate() error {
	var errs []error

	if c.Server.Addr == "" {
		errs = append(errs, errors.New("server address must not be empty (LEAFDOC_ADDR)"))
	}
	if c.Server.MaxUploadBytes <= 0 {
		errs = append(errs, fmt.Errorf("max upload bytes must be positive, got %d", c.Server.MaxUploadBytes))
	}
	if c.Server.MaxPixels <= 0 {
		errs = append(errs, fmt.Errorf("max pixels must be positive, got %d (LEAFDOC_MAX_PIXELS)", c.Server.MaxPixels))
	}
	if c.Server.ShutdownTimeout <= 0 {
		errs = append(errs, fmt.Errorf("shutdown timeout must be positive, got %v", c.Server.ShutdownTimeout))
	}

	if t := c.Engine.ConfidenceThreshold; math.IsNaN(t) || t < 0 || t > 1 {
		errs = append(errs, fmt.Errorf("confidence threshold must be in [0, 1], got %v", c.Engine.ConfidenceThreshold))
	}
	if c.Engine.IntraOpThreads < 1 {
		errs = append(errs, fmt.Errorf("intra-op threads must be at least 1, got %d", c.Engine.IntraOpThreads))
	}
	if _, err := os.Stat(c.Engine.ModelPath); err != nil {
		errs = append(errs, fmt.Errorf("model file: %w", err))
	}
	if c.Engine.TablePath != "" {
		if _, err := os.Stat(c.Engine.TablePath); err != nil {
			errs = append(errs, fmt.Errorf("diagnosis table: %w", err))
		}
	}

	if c.Notify.WebhookURL != "" {
		u, err := url.Parse(c.Notify.WebhookURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			errs = append(errs, fmt.Errorf("webhook URL must be an absolute http(s) URL, got %q (LEAFDOC_WEBHOOK_URL)", c.Notify.WebhookURL))
		}
		if c.Notify.Timeout <= 0 {
			errs = append(errs, fmt.Errorf("webhook timeout must be positive, got %v", c.Notify.Timeout))
		}
	}

	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log format must be text or json, got %q", c.Log.Format))
	}

	return errors.Join(errs...)
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getenvInt64(key string, fallback int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fallback
	}
	return n
}

func getenvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func getenvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
