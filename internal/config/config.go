// Package config provides configuration management for refinery.
package config

import (
	"os"
	"path/filepath"
	"sync"

	json "github.com/goccy/go-json"
)

// Defaults applied when no settings file exists or a field is zero.
const (
	DefaultPort     = 8787
	DefaultMaxConns = 4

	DefaultOpenAIModel    = "gpt-4o"
	DefaultAnthropicModel = "claude-3-5-sonnet-20241022"
	DefaultGoogleModel    = "gemini-1.5-pro"

	// Fixed-window quotas for the expensive endpoints, per hour.
	DefaultOptimizeMaxRequests = 20
	DefaultRunMaxRequests      = 10
	DefaultWindowMinutes       = 60
)

// Config holds runtime settings. Provider credentials and the identity salt
// are deliberately env-only so they never land in the settings file.
type Config struct {
	Port     int `json:"port"`
	MaxConns int `json:"max_conns"`

	OpenAIModel    string `json:"openai_model"`
	AnthropicModel string `json:"anthropic_model"`
	GoogleModel    string `json:"google_model"`

	OptimizeMaxRequests int `json:"optimize_max_requests"`
	RunMaxRequests      int `json:"run_max_requests"`
	WindowMinutes       int `json:"window_minutes"`

	// ProviderTimeoutSeconds bounds each fan-out call. Zero preserves the
	// wait-forever behavior.
	ProviderTimeoutSeconds int `json:"provider_timeout_seconds"`

	// PacksDir overlays YAML use-case packs over the built-in catalog.
	// Empty means DataDir()/packs.
	PacksDir string `json:"packs_dir"`

	// RedisAddr switches the rate limiter to a shared Redis counter when
	// set (host:port). Empty keeps the process-local limiter.
	RedisAddr string `json:"redis_addr"`
}

var (
	mu     sync.RWMutex
	global *Config
)

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Port:                DefaultPort,
		MaxConns:            DefaultMaxConns,
		OpenAIModel:         DefaultOpenAIModel,
		AnthropicModel:      DefaultAnthropicModel,
		GoogleModel:         DefaultGoogleModel,
		OptimizeMaxRequests: DefaultOptimizeMaxRequests,
		RunMaxRequests:      DefaultRunMaxRequests,
		WindowMinutes:       DefaultWindowMinutes,
	}
}

// DataDir returns the refinery data directory (~/.refinery).
func DataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".refinery")
}

// DBPath returns the SQLite database path.
func DBPath() string {
	return filepath.Join(DataDir(), "refinery.db")
}

// SettingsPath returns the settings file path.
func SettingsPath() string {
	return filepath.Join(DataDir(), "settings.json")
}

// PacksPath returns the pack overlay directory, honoring cfg.PacksDir.
func (c *Config) PacksPath() string {
	if c.PacksDir != "" {
		return c.PacksDir
	}
	return filepath.Join(DataDir(), "packs")
}

// EnsureDataDir creates the data directory if missing.
func EnsureDataDir() error {
	return os.MkdirAll(DataDir(), 0o755)
}

// EnsureSettings writes a default settings file if none exists.
func EnsureSettings() error {
	path := SettingsPath()
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	data, err := json.MarshalIndent(Default(), "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// EnsureAll initializes the data directory and settings file.
func EnsureAll() error {
	if err := EnsureDataDir(); err != nil {
		return err
	}
	return EnsureSettings()
}

// Load reads the settings file, filling zero fields from defaults, and
// installs the result as the process-wide config.
func Load() (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(SettingsPath())
	if err != nil {
		if os.IsNotExist(err) {
			set(cfg)
			return cfg, nil
		}
		return nil, err
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	applyDefaults(cfg)
	set(cfg)
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	def := Default()
	if cfg.Port == 0 {
		cfg.Port = def.Port
	}
	if cfg.MaxConns == 0 {
		cfg.MaxConns = def.MaxConns
	}
	if cfg.OpenAIModel == "" {
		cfg.OpenAIModel = def.OpenAIModel
	}
	if cfg.AnthropicModel == "" {
		cfg.AnthropicModel = def.AnthropicModel
	}
	if cfg.GoogleModel == "" {
		cfg.GoogleModel = def.GoogleModel
	}
	if cfg.OptimizeMaxRequests == 0 {
		cfg.OptimizeMaxRequests = def.OptimizeMaxRequests
	}
	if cfg.RunMaxRequests == 0 {
		cfg.RunMaxRequests = def.RunMaxRequests
	}
	if cfg.WindowMinutes == 0 {
		cfg.WindowMinutes = def.WindowMinutes
	}
}

func set(cfg *Config) {
	mu.Lock()
	global = cfg
	mu.Unlock()
}

// Get returns the process-wide config, loading defaults if Load was never
// called.
func Get() *Config {
	mu.RLock()
	cfg := global
	mu.RUnlock()
	if cfg != nil {
		return cfg
	}
	cfg = Default()
	set(cfg)
	return cfg
}

// Secrets are env-only: they gate individual providers at call time and
// must never crash startup when absent.

// OpenAIKey returns the OpenAI credential, empty when unconfigured.
func OpenAIKey() string { return os.Getenv("OPENAI_API_KEY") }

// AnthropicKey returns the Anthropic credential, empty when unconfigured.
func AnthropicKey() string { return os.Getenv("ANTHROPIC_API_KEY") }

// GoogleKey returns the Google credential, empty when unconfigured.
func GoogleKey() string { return os.Getenv("GOOGLE_API_KEY") }

// Salt returns the identity-hashing salt. The fallback keeps hashing
// deterministic in dev; production deployments set RATE_LIMIT_SALT.
func Salt() string {
	if s := os.Getenv("RATE_LIMIT_SALT"); s != "" {
		return s
	}
	return "default-salt"
}
