// Package config loads and represents the application configuration.
package config

import "github.com/bkyoung/reviewgate/internal/sandbox"

// Config represents the full application configuration.
type Config struct {
	Host          HostConfig          `yaml:"host"`
	Engine        EngineConfig        `yaml:"engine"`
	Sandbox       SandboxConfig       `yaml:"sandbox"`
	Review        ReviewConfig        `yaml:"review"`
	Store         StoreConfig         `yaml:"store"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// HostConfig configures the repository-hosting API client.
type HostConfig struct {
	BaseURL string `yaml:"baseURL"`
	Token   string `yaml:"token"`
	Timeout string `yaml:"timeout"`

	// CloneBaseURL is the base URL checkouts are cloned from.
	CloneBaseURL string `yaml:"cloneBaseURL"`

	// Repository is the default "owner/name" repository to review.
	Repository string `yaml:"repository"`
}

// EngineConfig configures the suggestion engine's LLM backend.
type EngineConfig struct {
	BaseURL       string `yaml:"baseURL"`
	APIKey        string `yaml:"apiKey"`
	Model         string `yaml:"model"`
	MaxIterations int    `yaml:"maxIterations"`
}

// SandboxConfig selects the tool-surface quota profile. Profiles are a
// configuration concern: the core takes the resolved Limits struct as a
// constructor parameter and knows nothing about profile names.
type SandboxConfig struct {
	// Profile is "conservative" or "high".
	Profile string `yaml:"profile"`
}

// Limits resolves the profile name to a concrete quota struct.
// Unknown names fall back to the conservative profile.
func (s SandboxConfig) Limits() sandbox.Limits {
	if s.Profile == "high" {
		return sandbox.HighLimits()
	}
	return sandbox.ConservativeLimits()
}

// ReviewConfig configures reconciliation and posting behavior.
type ReviewConfig struct {
	// MaxComments caps inline comments per run.
	MaxComments int `yaml:"maxComments"`

	// RunTimeout bounds the wall-clock duration of one review run.
	RunTimeout string `yaml:"runTimeout"`

	// BotUsername identifies this bot's account on the host, used when
	// posting reviews.
	BotUsername string `yaml:"botUsername"`
}

// StoreConfig configures the run-audit store.
type StoreConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// ObservabilityConfig configures logging.
type ObservabilityConfig struct {
	Logging LoggingConfig `yaml:"logging"`
}

// LoggingConfig configures the structured logger.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, error
	Format string `yaml:"format"` // json, human, auto
}
