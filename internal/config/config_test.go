// Package config provides configuration management for refinery.
package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/suite"
)

// ConfigSuite is a test suite for config operations.
type ConfigSuite struct {
	suite.Suite
	tempDir     string
	origHomeDir string
}

func (s *ConfigSuite) SetupTest() {
	var err error
	s.tempDir, err = os.MkdirTemp("", "config-test-*")
	s.Require().NoError(err)

	s.origHomeDir = os.Getenv("HOME")
	os.Setenv("HOME", s.tempDir)
	set(nil)
}

func (s *ConfigSuite) TearDownTest() {
	os.Setenv("HOME", s.origHomeDir)
	os.RemoveAll(s.tempDir)
	set(nil)
}

func TestConfigSuite(t *testing.T) {
	suite.Run(t, new(ConfigSuite))
}

// TestDefault tests default configuration values.
func (s *ConfigSuite) TestDefault() {
	cfg := Default()

	s.Equal(DefaultPort, cfg.Port)
	s.Equal(DefaultMaxConns, cfg.MaxConns)
	s.Equal(DefaultOpenAIModel, cfg.OpenAIModel)
	s.Equal(DefaultAnthropicModel, cfg.AnthropicModel)
	s.Equal(DefaultGoogleModel, cfg.GoogleModel)
	s.Equal(DefaultOptimizeMaxRequests, cfg.OptimizeMaxRequests)
	s.Equal(DefaultRunMaxRequests, cfg.RunMaxRequests)
	s.Equal(DefaultWindowMinutes, cfg.WindowMinutes)
	s.Zero(cfg.ProviderTimeoutSeconds)
}

// TestDataDir tests data directory path.
func (s *ConfigSuite) TestDataDir() {
	s.Contains(DataDir(), ".refinery")
}

// TestDBPath tests database path.
func (s *ConfigSuite) TestDBPath() {
	s.Contains(DBPath(), "refinery.db")
}

// TestSettingsPath tests settings file path.
func (s *ConfigSuite) TestSettingsPath() {
	s.Contains(SettingsPath(), "settings.json")
}

// TestPacksPath tests pack overlay directory resolution.
func (s *ConfigSuite) TestPacksPath() {
	cfg := Default()
	s.Equal(filepath.Join(DataDir(), "packs"), cfg.PacksPath())

	cfg.PacksDir = "/tmp/custom-packs"
	s.Equal("/tmp/custom-packs", cfg.PacksPath())
}

// TestEnsureAll tests full initialization.
func (s *ConfigSuite) TestEnsureAll() {
	s.NoError(EnsureAll())

	_, err := os.Stat(DataDir())
	s.NoError(err)
	_, err = os.Stat(SettingsPath())
	s.NoError(err)

	// Second call is a no-op.
	s.NoError(EnsureAll())
}

// TestLoad_TableDriven tests configuration loading with various scenarios.
func (s *ConfigSuite) TestLoad_TableDriven() {
	tests := []struct {
		name         string
		settingsJSON string
		wantPort     int
		wantOptimize int
		wantTimeout  int
	}{
		{
			name:         "no settings file",
			settingsJSON: "",
			wantPort:     DefaultPort,
			wantOptimize: DefaultOptimizeMaxRequests,
		},
		{
			name:         "partial settings fill from defaults",
			settingsJSON: `{"port": 9000}`,
			wantPort:     9000,
			wantOptimize: DefaultOptimizeMaxRequests,
		},
		{
			name:         "full override",
			settingsJSON: `{"port": 9001, "optimize_max_requests": 5, "provider_timeout_seconds": 30}`,
			wantPort:     9001,
			wantOptimize: 5,
			wantTimeout:  30,
		},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			s.Require().NoError(EnsureDataDir())
			if tt.settingsJSON != "" {
				s.Require().NoError(os.WriteFile(SettingsPath(), []byte(tt.settingsJSON), 0o644))
			} else {
				os.Remove(SettingsPath())
			}

			cfg, err := Load()
			s.Require().NoError(err)
			s.Equal(tt.wantPort, cfg.Port)
			s.Equal(tt.wantOptimize, cfg.OptimizeMaxRequests)
			s.Equal(tt.wantTimeout, cfg.ProviderTimeoutSeconds)
		})
	}
}

// TestLoad_MalformedSettings tests that broken JSON surfaces an error.
func (s *ConfigSuite) TestLoad_MalformedSettings() {
	s.Require().NoError(EnsureDataDir())
	s.Require().NoError(os.WriteFile(SettingsPath(), []byte("{not json"), 0o644))

	_, err := Load()
	s.Error(err)
}

// TestGet returns defaults when Load was never called.
func (s *ConfigSuite) TestGet() {
	cfg := Get()
	s.NotNil(cfg)
	s.Equal(DefaultPort, cfg.Port)

	// Same instance on repeat calls.
	s.Same(cfg, Get())
}

// TestSalt tests the identity salt fallback and override.
func (s *ConfigSuite) TestSalt() {
	orig := os.Getenv("RATE_LIMIT_SALT")
	defer os.Setenv("RATE_LIMIT_SALT", orig)

	os.Unsetenv("RATE_LIMIT_SALT")
	s.Equal("default-salt", Salt())

	os.Setenv("RATE_LIMIT_SALT", "s3cret")
	s.Equal("s3cret", Salt())
}
