package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Default values applied when fields are absent from every layer.
const (
	DefaultPort         = 9102
	DefaultBufferLen    = 30000
	DefaultLogLevel     = "info"
	DefaultMetricsPath  = "/metrics"
	DefaultPollInterval = time.Second
)

// Config is the full exporter configuration.
type Config struct {
	// Port is the HTTP port serving /metrics and the status API.
	Port int `yaml:"port"`

	// ListenAddress is the interface to bind. Empty means all interfaces.
	ListenAddress string `yaml:"listen_address"`

	// MetricsPath is the HTTP path of the Prometheus exposition.
	MetricsPath string `yaml:"metrics_path"`

	// SimulationLogPath is a glob that must match exactly one simulation.log.
	SimulationLogPath string `yaml:"simulation_log_path"`

	// BufferLen is the capacity of the line buffer between the follower and
	// the scraper. It is also the most lines processed per scrape.
	BufferLen int `yaml:"buffer_len"`

	// LogLevel is debug | info | warn | error, or 10 | 20 | 30 | 40.
	LogLevel string `yaml:"log_level"`

	// PollInterval is the follower's fallback check interval.
	PollInterval time.Duration `yaml:"poll_interval"`
}

// Addr returns the host:port the HTTP server listens on.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.ListenAddress, c.Port)
}

// Level returns the parsed log level. Validated configs never fail here.
func (c *Config) Level() slog.Level {
	lvl, _ := ParseLevel(c.LogLevel)
	return lvl
}

// Load reads and parses the YAML config file at path on top of the defaults.
// Only fields that are set in the file must be valid; required fields are
// checked once all layers are applied.
func Load(path string) (*Config, error) {
	cfg := defaults()
	if err := loadFile(cfg, path); err != nil {
		return nil, err
	}
	if _, err := ParseLevel(cfg.LogLevel); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

func loadFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("config: parse yaml: %w", err)
	}
	return nil
}

// defaults returns a Config pre-populated with default values.
func defaults() *Config {
	return &Config{
		Port:         DefaultPort,
		MetricsPath:  DefaultMetricsPath,
		BufferLen:    DefaultBufferLen,
		LogLevel:     DefaultLogLevel,
		PollInterval: DefaultPollInterval,
	}
}

// validate checks required fields and structural constraints.
func validate(cfg *Config) error {
	if cfg.SimulationLogPath == "" {
		return fmt.Errorf("simulation_log_path is required")
	}
	if cfg.Port < 1 || cfg.Port > 65535 {
		return fmt.Errorf("port %d out of range 1-65535", cfg.Port)
	}
	if cfg.BufferLen <= 0 {
		return fmt.Errorf("buffer_len must be positive")
	}
	if cfg.PollInterval <= 0 {
		return fmt.Errorf("poll_interval must be positive")
	}
	if !strings.HasPrefix(cfg.MetricsPath, "/") {
		return fmt.Errorf("metrics_path %q must start with /", cfg.MetricsPath)
	}
	if _, err := ParseLevel(cfg.LogLevel); err != nil {
		return err
	}
	return nil
}

// ParseLevel accepts a level name or one of the numeric levels 10 (debug),
// 20 (info), 30 (warn), 40 and 50 (error).
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug", "10":
		return slog.LevelDebug, nil
	case "info", "20", "":
		return slog.LevelInfo, nil
	case "warn", "warning", "30":
		return slog.LevelWarn, nil
	case "error", "critical", "40", "50":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
}

// ResolveLogPath expands pattern and returns the single matching file.
func ResolveLogPath(pattern string) (string, error) {
	paths, err := filepath.Glob(pattern)
	if err != nil {
		return "", fmt.Errorf("config: simulation_log_path %q: %w", pattern, err)
	}
	if len(paths) != 1 {
		return "", fmt.Errorf("config: please specify only one path to a simulation, got %v", paths)
	}
	return paths[0], nil
}

// atoi parses an integer setting, naming its source on failure.
func atoi(source, v string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0, fmt.Errorf("%s: %q is not an integer", source, v)
	}
	return n, nil
}
