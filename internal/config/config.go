package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config captures all tunable settings for the social engagement driver.
type Config struct {
	Platform string `yaml:"platform"`
	// HistoryDB is the SQLite file holding the reply dedup ledger.
	HistoryDB string        `yaml:"history_db"`
	Browser   BrowserConfig `yaml:"browser"`
	LLM       LLMConfig     `yaml:"llm"`
	Persona   PersonaConfig `yaml:"persona"`
	Safety    SafetyConfig  `yaml:"safety"`
	Trace     TraceConfig   `yaml:"trace"`
	Log       LogConfig     `yaml:"log"`
}

// BrowserConfig configures how we launch Chrome for Rod.
type BrowserConfig struct {
	// Headless controls whether Chrome runs without a visible window.
	// Manual login requires a visible window, so the default is false.
	Headless *bool `yaml:"headless"`
	// Optional path to a Chrome binary; empty lets Rod's launcher decide.
	Bin string `yaml:"bin"`
	// Directory holding the persistent browser profile.
	UserDataDir string `yaml:"user_data_dir"`
	// Path where cookie state is persisted between runs.
	StorageState string `yaml:"storage_state"`
	// Default navigation timeout (e.g., "60s").
	DefaultNavigationTimeout string `yaml:"default_navigation_timeout"`
	// Viewport width for the driving page (default: 1280).
	ViewportWidth int `yaml:"viewport_width"`
	// Viewport height for the driving page (default: 800).
	ViewportHeight int `yaml:"viewport_height"`
	// UserAgent override; empty keeps the browser default.
	UserAgent string `yaml:"user_agent"`
	// Locale for the page (e.g., "zh-TW"); influences which UI language
	// the selector chains hit first.
	Locale string `yaml:"locale"`
}

// LLMConfig configures the reply generator provider.
type LLMConfig struct {
	// Provider: "openai" or "ollama" (OpenAI-compatible endpoint).
	Provider string `yaml:"provider"`
	Model    string `yaml:"model"`
	// APIKey is read from the environment variable named by APIKeyEnv when
	// the literal value is empty. Default env: OPENAI_API_KEY.
	APIKey    string `yaml:"api_key"`
	APIKeyEnv string `yaml:"api_key_env"`
	// BaseURL override; used for Ollama (e.g., "http://localhost:11434/v1").
	BaseURL   string `yaml:"base_url"`
	MaxTokens int    `yaml:"max_tokens"`
	// DryRun short-circuits generation with a canned reply. The UI flow
	// still runs.
	DryRun bool `yaml:"dry_run"`
}

// PersonaConfig holds the system prompt that shapes generated replies.
type PersonaConfig struct {
	SystemPrompt string `yaml:"system_prompt"`
}

// SafetyConfig bounds how aggressively the orchestrator acts.
type SafetyConfig struct {
	// MaxConsecutiveErrors is the error budget that fail-stops a cycle.
	MaxConsecutiveErrors int `yaml:"max_consecutive_errors"`
	// MaxRepliesPerCycle caps replies in a single poll cycle.
	MaxRepliesPerCycle int `yaml:"max_replies_per_cycle"`
	// MinDelaySeconds / MaxDelaySeconds bound the humanizing pause after
	// each successful reply.
	MinDelaySeconds int `yaml:"min_delay_seconds"`
	MaxDelaySeconds int `yaml:"max_delay_seconds"`
	// EmptyFeedBackoffSeconds is the sleep before re-polling an empty feed.
	EmptyFeedBackoffSeconds int `yaml:"empty_feed_backoff_seconds"`
	// PenaltySeconds is the pause after a non-fatal item failure.
	PenaltySeconds int `yaml:"penalty_seconds"`
	// ProcessNotifications enables the activity/notification pass after
	// the feed pass on platforms that implement it.
	ProcessNotifications bool `yaml:"process_notifications"`
}

// TraceConfig controls the JSONL flight recorder.
type TraceConfig struct {
	Enabled bool   `yaml:"enabled"`
	Dir     string `yaml:"dir"`
}

// LogConfig controls logrus output.
type LogConfig struct {
	Level string `yaml:"level"`
	// File receives a copy of all log lines in addition to stderr.
	File string `yaml:"file"`
	JSON bool   `yaml:"json"`
}

const defaultPersonaPrompt = `You are a savvy, friendly social media enthusiast.

GOAL: Engage meaningfully with social media posts.

RULES:
1. ANALYZE FIRST: read the post content and look at the image (if any) carefully.
2. SAME LANGUAGE: you MUST reply in the EXACT SAME LANGUAGE as the original post.
3. CONTENT: very short and concise. Max 30 characters (CJK) or 15 words (English).
   No hashtags. Be witty but brief. Do NOT write long paragraphs.

Tone: casual, friendly, slightly chaotic but smart.`

// DefaultConfig provides reasonable defaults for a local run.
func DefaultConfig() Config {
	return Config{
		Platform:  "threads",
		HistoryDB: "data/reply_history.db",
		Browser: BrowserConfig{
			UserDataDir:              "data/browser",
			StorageState:             "data/browser/auth.json",
			DefaultNavigationTimeout: "60s",
			ViewportWidth:            1280,
			ViewportHeight:           800,
			Locale:                   "en-US",
		},
		LLM: LLMConfig{
			Provider:  "openai",
			Model:     "gpt-4o-mini",
			APIKeyEnv: "OPENAI_API_KEY",
			MaxTokens: 200,
			DryRun:    true,
		},
		Persona: PersonaConfig{
			SystemPrompt: defaultPersonaPrompt,
		},
		Safety: SafetyConfig{
			MaxConsecutiveErrors:    3,
			MaxRepliesPerCycle:      10,
			MinDelaySeconds:         5,
			MaxDelaySeconds:         15,
			EmptyFeedBackoffSeconds: 10,
			PenaltySeconds:          2,
		},
		Trace: TraceConfig{
			Enabled: true,
			Dir:     "data/traces",
		},
		Log: LogConfig{
			Level: "info",
			File:  "data/bot.log",
		},
	}
}

// Load reads YAML config from disk and overlays defaults.
// A missing file is not an error; defaults apply.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		return cfg, errors.New("config path is required")
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config: %w", err)
	}

	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

var knownPlatforms = map[string]bool{
	"threads":   true,
	"instagram": true,
	"facebook":  true,
	"x":         true,
	"line":      true,
	"whatsapp":  true,
}

// Validate rejects settings the rest of the pipeline cannot work with.
func (c Config) Validate() error {
	if !knownPlatforms[c.Platform] {
		return fmt.Errorf("unknown platform %q", c.Platform)
	}
	switch c.LLM.Provider {
	case "openai", "ollama":
	default:
		return fmt.Errorf("unknown llm provider %q", c.LLM.Provider)
	}
	if c.Safety.MaxConsecutiveErrors < 1 {
		return errors.New("safety.max_consecutive_errors must be >= 1")
	}
	if c.Safety.MinDelaySeconds < 1 {
		return errors.New("safety.min_delay_seconds must be >= 1")
	}
	if c.Safety.MaxDelaySeconds < c.Safety.MinDelaySeconds {
		return errors.New("safety.max_delay_seconds must be >= min_delay_seconds")
	}
	return nil
}

// IsHeadless returns the effective headless flag.
func (b BrowserConfig) IsHeadless() bool {
	if b.Headless == nil {
		return false
	}
	return *b.Headless
}

// NavigationTimeout parses the configured navigation timeout, defaulting
// to 60s when unset or malformed.
func (b BrowserConfig) NavigationTimeout() time.Duration {
	if b.DefaultNavigationTimeout == "" {
		return 60 * time.Second
	}
	d, err := time.ParseDuration(b.DefaultNavigationTimeout)
	if err != nil || d <= 0 {
		return 60 * time.Second
	}
	return d
}

// GetViewportWidth returns the configured viewport width or the default.
func (b BrowserConfig) GetViewportWidth() int {
	if b.ViewportWidth <= 0 {
		return 1280
	}
	return b.ViewportWidth
}

// GetViewportHeight returns the configured viewport height or the default.
func (b BrowserConfig) GetViewportHeight() int {
	if b.ViewportHeight <= 0 {
		return 800
	}
	return b.ViewportHeight
}

// ResolveAPIKey returns the literal key or falls back to the configured
// environment variable.
func (l LLMConfig) ResolveAPIKey() string {
	if l.APIKey != "" {
		return l.APIKey
	}
	env := l.APIKeyEnv
	if env == "" {
		env = "OPENAI_API_KEY"
	}
	return os.Getenv(env)
}

// MinDelay returns the humanizing minimum delay as a duration.
func (s SafetyConfig) MinDelay() time.Duration {
	return time.Duration(s.MinDelaySeconds) * time.Second
}

// MaxDelay returns the humanizing maximum delay as a duration.
func (s SafetyConfig) MaxDelay() time.Duration {
	return time.Duration(s.MaxDelaySeconds) * time.Second
}

// EmptyFeedBackoff returns the sleep applied when a poll finds nothing.
func (s SafetyConfig) EmptyFeedBackoff() time.Duration {
	if s.EmptyFeedBackoffSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(s.EmptyFeedBackoffSeconds) * time.Second
}

// Penalty returns the pause after a non-fatal item failure.
func (s SafetyConfig) Penalty() time.Duration {
	if s.PenaltySeconds <= 0 {
		return 2 * time.Second
	}
	return time.Duration(s.PenaltySeconds) * time.Second
}
