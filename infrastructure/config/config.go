// Package config loads and hot-reloads the service configuration: a YAML
// file overlaid with environment overrides, validated before use.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	pkgerrors "wikigraph-backend/pkg/errors"
)

// Config is the full service configuration. Durations are expressed in the
// unit named by the field so the YAML stays plain integers.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Layout    LayoutConfig    `yaml:"layout"`
	Batch     BatchConfig     `yaml:"batch"`
	Search    SearchConfig    `yaml:"search"`
	Explorer  ExplorerConfig  `yaml:"explorer"`
	History   HistoryConfig   `yaml:"history"`
	Wikipedia WikipediaConfig `yaml:"wikipedia"`
	WebSocket WebSocketConfig `yaml:"websocket"`
	Tracing   TracingConfig   `yaml:"tracing"`
}

// ServerConfig holds the HTTP listener settings
type ServerConfig struct {
	Addr            string   `yaml:"addr" validate:"required"`
	ReadTimeoutSec  int      `yaml:"readTimeoutSec" validate:"min=1"`
	WriteTimeoutSec int      `yaml:"writeTimeoutSec" validate:"min=1"`
	AllowedOrigins  []string `yaml:"allowedOrigins"`
}

// LayoutConfig holds the force simulation tunables
type LayoutConfig struct {
	LinkDistance    float64 `yaml:"linkDistance" validate:"gt=0"`
	ChargeStrength  float64 `yaml:"chargeStrength" validate:"gt=0"`
	SizeScale       float64 `yaml:"sizeScale" validate:"gt=0"`
	FrameIntervalMS int     `yaml:"frameIntervalMs" validate:"min=1,max=1000"`
	ViewportWidth   float64 `yaml:"viewportWidth" validate:"gt=0"`
	ViewportHeight  float64 `yaml:"viewportHeight" validate:"gt=0"`
}

// BatchConfig holds the update batcher settings
type BatchConfig struct {
	WindowMS int `yaml:"windowMs" validate:"min=0,max=5000"`
}

// SearchConfig bounds the path search
type SearchConfig struct {
	MaxDepth      int  `yaml:"maxDepth" validate:"min=1,max=10"`
	MaxVisited    int  `yaml:"maxVisited" validate:"min=1"`
	KeepSearching bool `yaml:"keepSearching"`
}

// ExplorerConfig bounds topic add/expand discovery
type ExplorerConfig struct {
	MaxChildren int `yaml:"maxChildren" validate:"min=1,max=100"`
}

// HistoryConfig bounds the undo/redo stacks
type HistoryConfig struct {
	Limit int `yaml:"limit" validate:"min=1,max=500"`
}

// WikipediaConfig holds the content adapter settings
type WikipediaConfig struct {
	APIEndpoint     string `yaml:"apiEndpoint" validate:"required,url"`
	RESTBase        string `yaml:"restBase" validate:"required,url"`
	UserAgent       string `yaml:"userAgent"`
	TimeoutSec      int    `yaml:"timeoutSec" validate:"min=1"`
	CacheTTLMinutes int    `yaml:"cacheTtlMinutes" validate:"min=1"`
	MaxLinks        int    `yaml:"maxLinks" validate:"min=1,max=500"`
}

// WebSocketConfig holds the viewer hub settings
type WebSocketConfig struct {
	ReadBufferSize  int `yaml:"readBufferSize" validate:"min=256"`
	WriteBufferSize int `yaml:"writeBufferSize" validate:"min=256"`
	SendQueueSize   int `yaml:"sendQueueSize" validate:"min=1"`
}

// TracingConfig holds the OTLP exporter settings
type TracingConfig struct {
	Enabled      bool   `yaml:"enabled"`
	OTLPEndpoint string `yaml:"otlpEndpoint"`
	ServiceName  string `yaml:"serviceName"`
}

// Default returns the built-in configuration
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeoutSec:  15,
			WriteTimeoutSec: 15,
			AllowedOrigins:  []string{"*"},
		},
		Layout: LayoutConfig{
			LinkDistance:    120,
			ChargeStrength:  900,
			SizeScale:       1.0,
			FrameIntervalMS: 16,
			ViewportWidth:   1280,
			ViewportHeight:  800,
		},
		Batch:    BatchConfig{WindowMS: 500},
		Search:   SearchConfig{MaxDepth: 4, MaxVisited: 500},
		Explorer: ExplorerConfig{MaxChildren: 12},
		History:  HistoryConfig{Limit: 30},
		Wikipedia: WikipediaConfig{
			APIEndpoint:     "https://en.wikipedia.org/w/api.php",
			RESTBase:        "https://en.wikipedia.org/api/rest_v1",
			UserAgent:       "wikigraph-backend/1.0",
			TimeoutSec:      10,
			CacheTTLMinutes: 15,
			MaxLinks:        50,
		},
		WebSocket: WebSocketConfig{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			SendQueueSize:   256,
		},
		Tracing: TracingConfig{
			Enabled:      false,
			OTLPEndpoint: "localhost:4317",
			ServiceName:  "wikigraph-backend",
		},
	}
}

// Load reads the YAML file at path (when it exists), overlays environment
// overrides, and validates the result. A missing file is not an error; the
// defaults apply.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
			// defaults only
		case err != nil:
			return cfg, pkgerrors.Wrap(err, "reading config file")
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, pkgerrors.Wrap(err, "parsing config file")
			}
		}
	}

	applyEnvOverrides(&cfg)

	if err := Validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks the configuration against its struct tags
func Validate(cfg Config) error {
	if err := validator.New().Struct(cfg); err != nil {
		return pkgerrors.Wrap(err, "invalid configuration")
	}
	return nil
}

// applyEnvOverrides maps a small set of deployment-facing settings onto the
// loaded configuration
func applyEnvOverrides(cfg *Config) {
	if addr := os.Getenv("WIKIGRAPH_SERVER_ADDR"); addr != "" {
		cfg.Server.Addr = addr
	}
	if endpoint := os.Getenv("WIKIGRAPH_API_ENDPOINT"); endpoint != "" {
		cfg.Wikipedia.APIEndpoint = endpoint
	}
	if restBase := os.Getenv("WIKIGRAPH_REST_BASE"); restBase != "" {
		cfg.Wikipedia.RESTBase = restBase
	}
	if otlp := os.Getenv("WIKIGRAPH_OTLP_ENDPOINT"); otlp != "" {
		cfg.Tracing.OTLPEndpoint = otlp
		cfg.Tracing.Enabled = true
	}
	if window := os.Getenv("WIKIGRAPH_BATCH_WINDOW_MS"); window != "" {
		if parsed, err := strconv.Atoi(window); err == nil {
			cfg.Batch.WindowMS = parsed
		}
	}
}

// BatchWindow returns the batcher flush window as a duration
func (c Config) BatchWindow() time.Duration {
	return time.Duration(c.Batch.WindowMS) * time.Millisecond
}

// FrameInterval returns the layout frame cadence as a duration
func (c Config) FrameInterval() time.Duration {
	return time.Duration(c.Layout.FrameIntervalMS) * time.Millisecond
}
