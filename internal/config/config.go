// Package config handles loading and validating the freeflow configuration.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the root configuration for the freeflow context daemon.
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Transports  TransportsConfig  `mapstructure:"transports"`
	Inference   InferenceConfig   `mapstructure:"inference"`
	Capture     CaptureConfig     `mapstructure:"capture"`
	Credentials CredentialsConfig `mapstructure:"credentials"`
	Platform    PlatformConfig    `mapstructure:"platform"`
	Logging     LoggingConfig     `mapstructure:"logging"`
}

// ServerConfig holds the health check server settings.
type ServerConfig struct {
	HealthPort int `mapstructure:"health_port"`
}

// TransportsConfig holds the configuration for each transport layer.
type TransportsConfig struct {
	GRPC GRPCConfig `mapstructure:"grpc"`
	HTTP HTTPConfig `mapstructure:"http"`
}

// GRPCConfig configures the gRPC transport.
type GRPCConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// HTTPConfig configures the HTTP transport.
type HTTPConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// InferenceConfig configures the OpenAI-compatible chat endpoint used to
// describe the user's current activity.
type InferenceConfig struct {
	BaseURL     string        `mapstructure:"base_url"`
	APIKey      string        `mapstructure:"api_key"`
	VisionModel string        `mapstructure:"vision_model"`
	TextModel   string        `mapstructure:"text_model"`
	Temperature float64       `mapstructure:"temperature"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// CaptureConfig controls screenshot encoding.
type CaptureConfig struct {
	// MaxDataURILength bounds the base64 payload of an encoded screenshot.
	MaxDataURILength int `mapstructure:"max_data_uri_length"`

	// Ladder is tried in order until one rung fits MaxDataURILength.
	Ladder []RungConfig `mapstructure:"ladder"`
}

// RungConfig is one (resolution, quality) attempt. MaxDimension 0 keeps the
// native resolution.
type RungConfig struct {
	MaxDimension int     `mapstructure:"max_dimension"`
	Quality      float64 `mapstructure:"quality"`
}

// CredentialsConfig locates the persisted inference credential.
type CredentialsConfig struct {
	File string `mapstructure:"file"`
}

// PlatformConfig selects the accessibility / window capture backend.
type PlatformConfig struct {
	Backend   string `mapstructure:"backend"` // "none" or "scene"
	SceneFile string `mapstructure:"scene_file"`
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json, text
}

// DefaultLadder returns the encoding ladder as tuned for the macOS client:
// native resolution first, then progressively smaller and lossier rungs.
func DefaultLadder() []RungConfig {
	ladder := []RungConfig{{MaxDimension: 0, Quality: 0.6}}
	for _, d := range []int{2048, 1600, 1280, 1024, 768, 640, 480, 360, 320} {
		q := 0.45
		if d >= 1024 {
			q = 0.6
		}
		ladder = append(ladder, RungConfig{MaxDimension: d, Quality: q})
	}
	for _, d := range []int{320, 240, 180} {
		ladder = append(ladder, RungConfig{MaxDimension: d, Quality: 0.35})
	}
	for _, d := range []int{240, 160, 120} {
		ladder = append(ladder, RungConfig{MaxDimension: d, Quality: 0.3})
	}
	return ladder
}

// Load reads the configuration from file, environment variables, and defaults.
// If configFile is non-empty it is used directly; otherwise the standard
// search order applies: ./freeflow.yaml, ./configs/freeflow.yaml, /etc/freeflow/freeflow.yaml.
func Load(configFile string) (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("server.health_port", 8081)
	v.SetDefault("transports.grpc.enabled", true)
	v.SetDefault("transports.grpc.port", 50051)
	v.SetDefault("transports.http.enabled", true)
	v.SetDefault("transports.http.port", 8080)
	v.SetDefault("inference.base_url", "https://api.groq.com/openai/v1")
	v.SetDefault("inference.api_key", "${GROQ_API_KEY}")
	v.SetDefault("inference.vision_model", "meta-llama/llama-4-scout-17b-16e-instruct")
	v.SetDefault("inference.text_model", "meta-llama/llama-4-scout-17b-16e-instruct")
	v.SetDefault("inference.temperature", 0.2)
	v.SetDefault("inference.timeout", 20*time.Second)
	v.SetDefault("capture.max_data_uri_length", 3_900_000)
	v.SetDefault("credentials.file", defaultCredentialsFile())
	v.SetDefault("platform.backend", "none")
	v.SetDefault("platform.scene_file", "")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	// Config file
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("freeflow")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/freeflow")
	}

	// Environment variables: FREEFLOW_SERVER_HEALTH_PORT, FREEFLOW_INFERENCE_BASE_URL, etc.
	v.SetEnvPrefix("FREEFLOW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file (optional, env vars and defaults are sufficient)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		slog.Info("no config file found, using defaults and environment variables")
	} else {
		slog.Info("loaded config file", "path", v.ConfigFileUsed())
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	// A ladder cannot be expressed as a scalar default, so fill it here.
	if len(cfg.Capture.Ladder) == 0 {
		cfg.Capture.Ladder = DefaultLadder()
	}

	// Resolve env var references in sensitive fields (e.g., "${GROQ_API_KEY}")
	cfg.Inference.APIKey = resolveEnvRef(cfg.Inference.APIKey)
	cfg.Credentials.File = expandHome(cfg.Credentials.File)
	cfg.Platform.SceneFile = expandHome(cfg.Platform.SceneFile)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the pipeline cannot run with.
func (c *Config) Validate() error {
	if c.Capture.MaxDataURILength <= 0 {
		return fmt.Errorf("capture.max_data_uri_length must be positive, got %d", c.Capture.MaxDataURILength)
	}
	for i, r := range c.Capture.Ladder {
		if r.MaxDimension < 0 {
			return fmt.Errorf("capture.ladder[%d]: negative max_dimension %d", i, r.MaxDimension)
		}
		if r.Quality <= 0 || r.Quality > 1 {
			return fmt.Errorf("capture.ladder[%d]: quality %.2f outside (0, 1]", i, r.Quality)
		}
	}
	switch c.Platform.Backend {
	case "none":
	case "scene":
		if c.Platform.SceneFile == "" {
			return fmt.Errorf("platform.scene_file is required for the scene backend")
		}
	default:
		return fmt.Errorf("unknown platform backend %q", c.Platform.Backend)
	}
	return nil
}

// resolveEnvRef replaces "${VAR_NAME}" patterns with the corresponding env var value.
// An unset variable resolves to the empty string so that an absent key reads as
// "no credential" rather than as the literal reference.
func resolveEnvRef(val string) string {
	if strings.HasPrefix(val, "${") && strings.HasSuffix(val, "}") {
		return os.Getenv(val[2 : len(val)-1])
	}
	return val
}

func defaultCredentialsFile() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".freeflow", "credentials.json")
}

func expandHome(p string) string {
	if p == "~" || strings.HasPrefix(p, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return p
		}
		return filepath.Join(home, strings.TrimPrefix(p, "~"))
	}
	return p
}

// SetupLogging configures the global slog logger based on config.
func SetupLogging(cfg LoggingConfig) {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if strings.ToLower(cfg.Format) == "text" {
		handler = slog.NewTextHandler(os.Stderr, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}

	slog.SetDefault(slog.New(handler))
}
