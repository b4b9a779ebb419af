// Package config provides configuration types and defaults for novic.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/zjrosen/novic/internal/flags"
	"github.com/zjrosen/novic/internal/log"
	"github.com/zjrosen/novic/internal/syntax"
)

// Config holds all configuration options for novic.
type Config struct {
	Syntax    SyntaxConfig    `mapstructure:"syntax"`
	Highlight HighlightConfig `mapstructure:"highlight"`
	Tracing   TracingConfig   `mapstructure:"tracing"`
	Flags     map[string]bool `mapstructure:"flags"`
}

// SyntaxConfig controls where language definitions come from and how they
// are compiled.
type SyntaxConfig struct {
	// DefinitionsDir holds user definition files (*.json, *.yaml, *.yml).
	// Empty means built-in definitions only.
	DefinitionsDir string `mapstructure:"definitions_dir"`

	// Watch reloads definitions when files in DefinitionsDir change.
	Watch bool `mapstructure:"watch"`

	// Theme is the chroma style used to color kinds a definition leaves
	// without a style entry. Empty disables the fallback.
	Theme string `mapstructure:"theme"`

	// MatchTimeout bounds a single regex match attempt.
	MatchTimeout time.Duration `mapstructure:"match_timeout"`
}

// HighlightConfig tunes highlight controllers.
type HighlightConfig struct {
	Debounce        time.Duration `mapstructure:"debounce"`
	Retry           time.Duration `mapstructure:"retry"`
	MaxDocumentSize int           `mapstructure:"max_document_size"`
	SampleSize      int           `mapstructure:"sample_size"`
	MaxTokens       int           `mapstructure:"max_tokens"`
	Cache           bool          `mapstructure:"cache"`
	CacheTTL        time.Duration `mapstructure:"cache_ttl"`
}

// TracingConfig holds distributed tracing configuration.
type TracingConfig struct {
	// Enabled controls whether tracing is active (default: false).
	Enabled bool `mapstructure:"enabled"`

	// Exporter specifies the trace exporter type: "none", "file", "stdout", "otlp".
	Exporter string `mapstructure:"exporter"`

	// FilePath is the path for file exporter output.
	// Default: ~/.config/novic/traces/traces.jsonl
	FilePath string `mapstructure:"file_path"`

	// OTLPEndpoint is the OTLP collector endpoint (default: localhost:4317).
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`

	// SampleRate is the sampling rate from 0.0 to 1.0 (default: 1.0).
	SampleRate float64 `mapstructure:"sample_rate"`
}

// DefaultTracesFilePath returns the default path for trace file export.
// Returns ~/.config/novic/traces/traces.jsonl or empty string if home dir unavailable.
func DefaultTracesFilePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "novic", "traces", "traces.jsonl")
}

// DefaultDefinitionsDir returns ~/.config/novic/languages or empty string if
// home dir unavailable.
func DefaultDefinitionsDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "novic", "languages")
}

// Defaults returns a Config with sensible default values.
func Defaults() Config {
	return Config{
		Syntax: SyntaxConfig{
			DefinitionsDir: DefaultDefinitionsDir(),
			Watch:          true,
			Theme:          "monokai",
			MatchTimeout:   time.Second,
		},
		Highlight: HighlightConfig{
			Debounce:        150 * time.Millisecond,
			Retry:           50 * time.Millisecond,
			MaxDocumentSize: 500_000,
			SampleSize:      50_000,
			MaxTokens:       4000,
			Cache:           true,
			CacheTTL:        5 * time.Minute,
		},
		Tracing: TracingConfig{
			Enabled:      false,
			Exporter:     "file",
			FilePath:     "", // Derived from config dir at runtime
			OTLPEndpoint: "localhost:4317",
			SampleRate:   1.0,
		},
		Flags: map[string]bool{
			flags.FlagContentDetection: true,
			flags.FlagViewerStats:      false,
		},
	}
}

// Validate checks the whole configuration.
func (c Config) Validate() error {
	if err := ValidateSyntax(c.Syntax); err != nil {
		return err
	}
	if err := ValidateHighlight(c.Highlight); err != nil {
		return err
	}
	return ValidateTracing(c.Tracing)
}

// ValidateSyntax checks syntax configuration for errors.
func ValidateSyntax(s SyntaxConfig) error {
	if s.Theme != "" && !syntax.ValidTheme(s.Theme) {
		return fmt.Errorf("syntax.theme %q is not a known style (see `novic theme`)", s.Theme)
	}
	if s.MatchTimeout < 0 {
		return fmt.Errorf("syntax.match_timeout must not be negative, got %v", s.MatchTimeout)
	}
	return nil
}

// ValidateHighlight checks highlight tuning for errors.
// Zero values are allowed and mean "use the default".
func ValidateHighlight(h HighlightConfig) error {
	if h.Debounce < 0 {
		return fmt.Errorf("highlight.debounce must not be negative, got %v", h.Debounce)
	}
	if h.Retry < 0 {
		return fmt.Errorf("highlight.retry must not be negative, got %v", h.Retry)
	}
	if h.MaxDocumentSize < 0 || h.SampleSize < 0 || h.MaxTokens < 0 {
		return fmt.Errorf("highlight sizes must not be negative")
	}
	if h.MaxDocumentSize > 0 && h.SampleSize > h.MaxDocumentSize {
		return fmt.Errorf("highlight.sample_size (%d) must not exceed highlight.max_document_size (%d)",
			h.SampleSize, h.MaxDocumentSize)
	}
	if h.CacheTTL < 0 {
		return fmt.Errorf("highlight.cache_ttl must not be negative, got %v", h.CacheTTL)
	}
	return nil
}

// ValidateTracing checks tracing configuration for errors.
// Returns nil if the configuration is valid (empty values use defaults).
func ValidateTracing(tracing TracingConfig) error {
	if tracing.SampleRate < 0.0 || tracing.SampleRate > 1.0 {
		return fmt.Errorf("tracing.sample_rate must be between 0.0 and 1.0, got %v", tracing.SampleRate)
	}

	if tracing.Exporter != "" {
		switch tracing.Exporter {
		case "none", "file", "stdout", "otlp":
		default:
			return fmt.Errorf("tracing.exporter must be \"none\", \"file\", \"stdout\", or \"otlp\", got %q", tracing.Exporter)
		}
	}

	// Only validate path requirements when tracing is enabled
	if tracing.Enabled {
		if tracing.Exporter == "file" && tracing.FilePath == "" {
			return fmt.Errorf("tracing.file_path is required when exporter is \"file\"")
		}
		if tracing.Exporter == "otlp" && tracing.OTLPEndpoint == "" {
			return fmt.Errorf("tracing.otlp_endpoint is required when exporter is \"otlp\"")
		}
	}

	return nil
}

// DefaultConfigTemplate returns the default config as a YAML string with comments.
func DefaultConfigTemplate() string {
	return `# Novic Configuration

syntax:
  # Directory with user language definitions (*.json, *.yaml, *.yml).
  # Definitions here override built-ins with the same name.
  # definitions_dir: ~/.config/novic/languages

  # Reload definitions when files in definitions_dir change
  watch: true

  # Chroma style used for token kinds a definition does not color itself
  # Run "novic theme" to list styles.
  theme: monokai

  # Upper bound for a single regex match attempt
  match_timeout: 1s

highlight:
  debounce: 150ms           # Quiet period before re-highlighting after a change
  retry: 50ms               # Delay before retrying when a pass is still running
  max_document_size: 500000 # Characters; larger documents are not highlighted
  sample_size: 50000        # Only this many leading characters are highlighted
  max_tokens: 4000          # Tokens kept per pass
  cache: true               # Reuse tokens for text that was already highlighted
  cache_ttl: 5m

# Feature flags
# flags:
#   content-detection: true  # Detect language from file content when the extension is unknown
#   viewer-stats: false      # Show refresh counters in the viewer status bar

# Tracing of highlight passes
# tracing:
#   enabled: true
#   exporter: file
#   file_path: ~/.config/novic/traces/traces.jsonl
#
# Example: Send traces to Jaeger via OTLP
# tracing:
#   enabled: true
#   exporter: otlp
#   otlp_endpoint: jaeger.internal:4317
#   sample_rate: 0.1  # Sample 10% of traces
`
}

// WriteDefaultConfig creates a config file at the given path with default settings and comments.
// Creates the parent directory if it doesn't exist.
func WriteDefaultConfig(configPath string) error {
	log.Debug(log.CatConfig, "Writing default config", "path", configPath)

	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		log.ErrorErr(log.CatConfig, "Failed to create config directory", err, "dir", dir)
		return fmt.Errorf("creating config directory: %w", err)
	}

	if err := os.WriteFile(configPath, []byte(DefaultConfigTemplate()), 0o600); err != nil {
		log.ErrorErr(log.CatConfig, "Failed to write config file", err, "path", configPath)
		return fmt.Errorf("writing config file: %w", err)
	}

	log.Info(log.CatConfig, "Created default config", "path", configPath)
	return nil
}
