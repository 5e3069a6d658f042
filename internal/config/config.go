package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Build-time variables injected via -ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

// Config holds all agent configuration loaded from environment variables.
type Config struct {
	// APIKey is the MARA site API key sent as X-Api-Key. May be empty if
	// a key was persisted by a previous run; the agent falls back to the
	// stored copy.
	APIKey string

	// ServiceURL is the base URL of the MARA marketplace API.
	ServiceURL string

	// AgentPort is the listen port of the local dashboard API.
	AgentPort int

	// AgentSecret authenticates callers of the local dashboard API.
	AgentSecret string

	// SnapshotSchedule is the cron spec for the market snapshot job.
	SnapshotSchedule string

	// DataDir is the root directory for persistent agent state.
	DataDir string

	// LogDir is the directory for log files.
	LogDir string

	// Debug enables verbose logging.
	Debug bool
}

// DefaultConfig returns a Config populated with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		ServiceURL:       "https://mara-hackathon-api.onrender.com",
		AgentPort:        8090,
		SnapshotSchedule: "@every 30s",
		DataDir:          "/var/lib/mara-agent",
		LogDir:           "/var/log/mara-agent",
	}
}

// Load reads configuration from environment variables, applying defaults
// for anything not explicitly set. A .env file in the working directory is
// honored if present. Returns an error if required values are missing or
// malformed.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := DefaultConfig()

	cfg.APIKey = strings.TrimSpace(os.Getenv("MARA_API_KEY"))

	if v := os.Getenv("MARA_SERVICE_URL"); v != "" {
		cfg.ServiceURL = v
	}

	if v := os.Getenv("MARA_AGENT_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil || port <= 0 || port > 65535 {
			return nil, fmt.Errorf("MARA_AGENT_PORT must be a valid port, got %q", v)
		}
		cfg.AgentPort = port
	}

	// An empty secret would make the auth middleware unsatisfiable: the
	// empty header is rejected before the compare and nothing non-empty
	// matches "".
	cfg.AgentSecret = strings.TrimSpace(os.Getenv("MARA_AGENT_SECRET"))
	if cfg.AgentSecret == "" {
		return nil, fmt.Errorf("MARA_AGENT_SECRET is required")
	}

	if v := os.Getenv("MARA_SNAPSHOT_SCHEDULE"); v != "" {
		cfg.SnapshotSchedule = v
	}

	if v := os.Getenv("MARA_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}

	if v := os.Getenv("MARA_LOG_DIR"); v != "" {
		cfg.LogDir = v
	}

	cfg.Debug = os.Getenv("MARA_AGENT_DEBUG") == "true"

	return cfg, nil
}

// NewLogger creates a structured logger that writes to a log file under
// cfg.LogDir.
func NewLogger(cfg *Config, name string) (*slog.Logger, error) {
	if err := os.MkdirAll(cfg.LogDir, 0o755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}

	logPath := cfg.LogDir + "/" + name + ".log"
	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file %s: %w", logPath, err)
	}

	level := slog.LevelInfo
	if cfg.Debug {
		level = slog.LevelDebug
	}

	handler := slog.NewJSONHandler(file, &slog.HandlerOptions{Level: level})
	return slog.New(handler), nil
}
