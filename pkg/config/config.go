package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration options for postwriter.
type Config struct {
	// Target profile and transport settings
	Facebook FacebookConfig `yaml:"facebook" json:"facebook"`

	// Request pacing and throttle detection
	RateLimit RateLimitConfig `yaml:"rate_limit" json:"rate_limit"`

	// Content quality thresholds
	Content ContentConfig `yaml:"content" json:"content"`

	// Template extraction settings
	Analysis AnalysisConfig `yaml:"analysis" json:"analysis"`

	// On-disk locations
	Storage StorageConfig `yaml:"storage" json:"storage"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// FacebookConfig holds target-profile and HTTP settings.
type FacebookConfig struct {
	ProfileURL     string        `yaml:"profile_url" json:"profile_url"`
	UserAgent      string        `yaml:"user_agent" json:"user_agent"`
	SessionCookie  string        `yaml:"session_cookie" json:"session_cookie"`
	RequestTimeout time.Duration `yaml:"request_timeout" json:"request_timeout"`
	MaxPages       int           `yaml:"max_pages" json:"max_pages"`
	MaxRetries     int           `yaml:"max_retries" json:"max_retries"`
}

// RateLimitConfig holds pacing and throttle-detection policy. The delay
// bands and burst ceilings are tuned against real scraping sessions; treat
// them as behavioral constants rather than starting points.
type RateLimitConfig struct {
	MinRequestDelay time.Duration `yaml:"min_request_delay" json:"min_request_delay"`
	MaxRequestDelay time.Duration `yaml:"max_request_delay" json:"max_request_delay"`

	ScrollDelay         time.Duration `yaml:"scroll_delay" json:"scroll_delay"`
	ScrollDelayVariance time.Duration `yaml:"scroll_delay_variance" json:"scroll_delay_variance"`

	PageLoadDelay    time.Duration `yaml:"page_load_delay" json:"page_load_delay"`
	PageLoadVariance time.Duration `yaml:"page_load_variance" json:"page_load_variance"`

	PostProcessingDelay    time.Duration `yaml:"post_processing_delay" json:"post_processing_delay"`
	PostProcessingVariance time.Duration `yaml:"post_processing_variance" json:"post_processing_variance"`

	MaxRequestsPerMinute int `yaml:"max_requests_per_minute" json:"max_requests_per_minute"`
	MaxRequestsPerHour   int `yaml:"max_requests_per_hour" json:"max_requests_per_hour"`

	InitialBackoff    time.Duration `yaml:"initial_backoff" json:"initial_backoff"`
	MaxBackoff        time.Duration `yaml:"max_backoff" json:"max_backoff"`
	BackoffMultiplier float64       `yaml:"backoff_multiplier" json:"backoff_multiplier"`

	// Phrases that mark a response body as throttled.
	RateLimitKeywords []string `yaml:"rate_limit_keywords" json:"rate_limit_keywords"`
}

// ContentConfig holds quality-filter thresholds.
type ContentConfig struct {
	MinContentLength int     `yaml:"min_content_length" json:"min_content_length"`
	MinWords         int     `yaml:"min_words" json:"min_words"`
	MinQualityScore  float64 `yaml:"min_quality_score" json:"min_quality_score"`
}

// AnalysisConfig holds template-extraction settings.
type AnalysisConfig struct {
	MinEngagement    float64 `yaml:"min_engagement" json:"min_engagement"`
	MinTemplatePosts int     `yaml:"min_template_posts" json:"min_template_posts"`
}

// StorageConfig holds on-disk locations.
type StorageConfig struct {
	DataDir       string `yaml:"data_dir" json:"data_dir"`
	RateLimitFile string `yaml:"rate_limit_file" json:"rate_limit_file"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

// DefaultConfig returns a Config with the tuned defaults.
func DefaultConfig() *Config {
	return &Config{
		Facebook: FacebookConfig{
			UserAgent:      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36",
			RequestTimeout: 30 * time.Second,
			MaxPages:       10,
			MaxRetries:     3,
		},
		RateLimit: RateLimitConfig{
			MinRequestDelay:        2 * time.Second,
			MaxRequestDelay:        8 * time.Second,
			ScrollDelay:            3 * time.Second,
			ScrollDelayVariance:    1500 * time.Millisecond,
			PageLoadDelay:          5 * time.Second,
			PageLoadVariance:       2 * time.Second,
			PostProcessingDelay:    1500 * time.Millisecond,
			PostProcessingVariance: 800 * time.Millisecond,
			MaxRequestsPerMinute:   20,
			MaxRequestsPerHour:     300,
			InitialBackoff:         30 * time.Second,
			MaxBackoff:             30 * time.Minute,
			BackoffMultiplier:      2.0,
			RateLimitKeywords: []string{
				"rate limit",
				"too many requests",
				"temporarily blocked",
				"please try again later",
				"unusual traffic",
				"verification required",
				"checkpoint",
				"suspicious activity",
			},
		},
		Content: ContentConfig{
			MinContentLength: 50,
			MinWords:         5,
			MinQualityScore:  3.0,
		},
		Analysis: AnalysisConfig{
			MinEngagement:    5.0,
			MinTemplatePosts: 2,
		},
		Storage: StorageConfig{
			DataDir:       "./data",
			RateLimitFile: "",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadFromEnv overrides configuration from POSTWRITER_* environment variables.
func (c *Config) LoadFromEnv() error {
	if url := os.Getenv("POSTWRITER_PROFILE_URL"); url != "" {
		c.Facebook.ProfileURL = url
	}
	if ua := os.Getenv("POSTWRITER_USER_AGENT"); ua != "" {
		c.Facebook.UserAgent = ua
	}
	if cookie := os.Getenv("POSTWRITER_SESSION_COOKIE"); cookie != "" {
		c.Facebook.SessionCookie = cookie
	}
	if rpm := os.Getenv("POSTWRITER_REQUESTS_PER_MINUTE"); rpm != "" {
		if val, err := strconv.Atoi(rpm); err == nil && val > 0 {
			c.RateLimit.MaxRequestsPerMinute = val
		}
	}
	if rph := os.Getenv("POSTWRITER_REQUESTS_PER_HOUR"); rph != "" {
		if val, err := strconv.Atoi(rph); err == nil && val > 0 {
			c.RateLimit.MaxRequestsPerHour = val
		}
	}
	if dir := os.Getenv("POSTWRITER_DATA_DIR"); dir != "" {
		c.Storage.DataDir = dir
	}
	if level := os.Getenv("POSTWRITER_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
	return nil
}

// LoadFromFile loads configuration from a YAML file. An empty path searches
// the standard locations and is not an error when nothing is found.
func (c *Config) LoadFromFile(path string) error {
	if path == "" {
		path = findConfigFile()
		if path == "" {
			return nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	return nil
}

func findConfigFile() string {
	home := os.Getenv("HOME")
	locations := []string{
		".postwriter.yaml",
		".postwriter.yml",
		filepath.Join(home, ".config", "postwriter", "config.yaml"),
		filepath.Join(home, ".postwriter.yaml"),
	}
	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}
	return ""
}

// Validate checks the configuration for internal consistency.
func (c *Config) Validate() error {
	var errs []error

	if c.RateLimit.MinRequestDelay <= 0 {
		errs = append(errs, errors.New("min request delay must be positive"))
	}
	if c.RateLimit.MaxRequestDelay < c.RateLimit.MinRequestDelay {
		errs = append(errs, errors.New("max request delay must be >= min request delay"))
	}
	if c.RateLimit.MaxRequestsPerMinute <= 0 {
		errs = append(errs, errors.New("requests per minute must be positive"))
	}
	if c.RateLimit.MaxRequestsPerHour <= 0 {
		errs = append(errs, errors.New("requests per hour must be positive"))
	}
	if c.RateLimit.BackoffMultiplier <= 1.0 {
		errs = append(errs, errors.New("backoff multiplier must be greater than 1"))
	}
	if c.RateLimit.InitialBackoff <= 0 || c.RateLimit.MaxBackoff < c.RateLimit.InitialBackoff {
		errs = append(errs, errors.New("backoff bounds are invalid"))
	}

	if c.Content.MinContentLength < 0 || c.Content.MinWords < 0 {
		errs = append(errs, errors.New("content thresholds cannot be negative"))
	}
	if c.Content.MinQualityScore < 0 || c.Content.MinQualityScore > 10 {
		errs = append(errs, errors.New("min quality score must be within [0,10]"))
	}

	if c.Analysis.MinTemplatePosts < 2 {
		errs = append(errs, errors.New("templates need at least 2 source posts"))
	}

	if c.Storage.DataDir == "" {
		errs = append(errs, errors.New("data directory is required"))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// Save writes the configuration to a YAML file.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Load loads configuration from all sources.
// Precedence: environment variables > .env file > config file > defaults.
func Load(configPath string) (*Config, error) {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".postwriter.env"))

	cfg := DefaultConfig()

	if err := cfg.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}
	if err := cfg.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}
