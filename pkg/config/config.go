// Package config loads and validates the redpost configuration file.
//
// Configuration lives in a single YAML document. Every field has a working
// default so a missing file is not an error; the defaults target the
// xiaohongshu creator center.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full runtime configuration.
type Config struct {
	// CookieFile is the path of the persisted credential bundle.
	CookieFile string `yaml:"cookie_file"`

	// Headless controls whether browser sessions run without a window.
	// Login needs a visible window; publish jobs default to headless.
	Headless bool `yaml:"headless"`

	Browser BrowserConfig `yaml:"browser"`
	Limits  LimitsConfig  `yaml:"limits"`
	Auth    AuthConfig    `yaml:"auth"`
	Upload  UploadConfig  `yaml:"upload"`
	Tasks   TasksConfig   `yaml:"tasks"`
}

// BrowserConfig holds session-level timeouts.
type BrowserConfig struct {
	// PageLoadTimeout bounds a single page navigation.
	PageLoadTimeout time.Duration `yaml:"page_load_timeout"`

	// ElementWaitTimeout bounds waiting for a single element to appear.
	ElementWaitTimeout time.Duration `yaml:"element_wait_timeout"`

	// ViewportWidth and ViewportHeight set the initial viewport.
	ViewportWidth  int `yaml:"viewport_width"`
	ViewportHeight int `yaml:"viewport_height"`

	// MaxSessions caps concurrently open browser sessions.
	MaxSessions int `yaml:"max_sessions"`
}

// LimitsConfig mirrors the platform's content limits.
type LimitsConfig struct {
	MaxTitleLength   int `yaml:"max_title_length"`
	MaxContentLength int `yaml:"max_content_length"`
	MaxImages        int `yaml:"max_images"`
	MaxVideos        int `yaml:"max_videos"`
	MaxTopics        int `yaml:"max_topics"`
	MaxTopicLength   int `yaml:"max_topic_length"`
}

// AuthConfig tunes credential validation and login detection.
type AuthConfig struct {
	// LoginTimeout is the ceiling for the interactive login flow.
	LoginTimeout time.Duration `yaml:"login_timeout"`

	// LoginPollInterval is the sampling interval of the login detector.
	LoginPollInterval time.Duration `yaml:"login_poll_interval"`

	// MissingCookieTolerance is how many required cookie names may be
	// absent before the bundle is considered incomplete. The platform's
	// session model is redundant, so a small shortfall is survivable.
	MissingCookieTolerance int `yaml:"missing_cookie_tolerance"`
}

// UploadConfig holds the kind-specific upload completion profiles.
// Video gets a much longer ceiling because server-side processing can
// take minutes.
type UploadConfig struct {
	ImageTimeout  time.Duration `yaml:"image_timeout"`
	ImageInterval time.Duration `yaml:"image_interval"`
	VideoTimeout  time.Duration `yaml:"video_timeout"`
	VideoInterval time.Duration `yaml:"video_interval"`
}

// TasksConfig governs the job registry.
type TasksConfig struct {
	// Retention is how long a terminal job stays queryable before eviction.
	Retention time.Duration `yaml:"retention"`
}

// Default returns the baseline configuration.
func Default() *Config {
	return &Config{
		CookieFile: defaultCookieFile(),
		Headless:   true,
		Browser: BrowserConfig{
			PageLoadTimeout:    30 * time.Second,
			ElementWaitTimeout: 10 * time.Second,
			ViewportWidth:      1280,
			ViewportHeight:     720,
			MaxSessions:        5,
		},
		Limits: LimitsConfig{
			MaxTitleLength:   50,
			MaxContentLength: 1000,
			MaxImages:        9,
			MaxVideos:        1,
			MaxTopics:        10,
			MaxTopicLength:   20,
		},
		Auth: AuthConfig{
			LoginTimeout:           5 * time.Minute,
			LoginPollInterval:      2 * time.Second,
			MissingCookieTolerance: 2,
		},
		Upload: UploadConfig{
			ImageTimeout:  60 * time.Second,
			ImageInterval: 2 * time.Second,
			VideoTimeout:  5 * time.Minute,
			VideoInterval: 5 * time.Second,
		},
		Tasks: TasksConfig{
			Retention: time.Hour,
		},
	}
}

// Load reads the YAML file at path over the defaults. A missing file
// yields the defaults unchanged.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects values that would make the pipeline misbehave.
func (c *Config) Validate() error {
	if c.CookieFile == "" {
		return fmt.Errorf("cookie_file must not be empty")
	}
	if c.Limits.MaxTitleLength <= 0 || c.Limits.MaxContentLength <= 0 {
		return fmt.Errorf("content limits must be positive")
	}
	if c.Browser.MaxSessions <= 0 {
		return fmt.Errorf("browser max_sessions must be positive")
	}
	if c.Auth.LoginPollInterval <= 0 || c.Auth.LoginTimeout <= 0 {
		return fmt.Errorf("login timing values must be positive")
	}
	if c.Auth.MissingCookieTolerance < 0 {
		return fmt.Errorf("missing_cookie_tolerance must not be negative")
	}
	if c.Upload.ImageTimeout <= 0 || c.Upload.VideoTimeout <= 0 ||
		c.Upload.ImageInterval <= 0 || c.Upload.VideoInterval <= 0 {
		return fmt.Errorf("upload timing values must be positive")
	}
	if c.Tasks.Retention <= 0 {
		return fmt.Errorf("tasks retention must be positive")
	}
	return nil
}

func defaultCookieFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "cookies.json"
	}
	return home + "/.redpost/cookies.json"
}
