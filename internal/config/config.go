// Package config provides configuration loading and validation for the CLI.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
)

// Default values applied when neither the config file nor a flag sets them.
const (
	DefaultHashtag     = "oddlysatisfying"
	DefaultBatchSize   = 50
	DefaultMinViews    = 10000
	DefaultMaxAgeHours = 168 // 7 days
	DefaultLogoPath    = "logo.png"
)

// Config is the full run configuration. It is constructed once at process
// entry and passed into the pipeline; no component reads environment state
// directly.
type Config struct {
	// Selection knobs
	Hashtag     string  `json:"hashtag,omitempty"`
	BatchSize   int     `json:"batch_size,omitempty" validate:"gt=0"`
	MinViews    int64   `json:"min_views,omitempty" validate:"gte=0"`
	MaxAgeHours float64 `json:"max_age_hours,omitempty" validate:"gt=0"`

	// MinViewsSet records that min_views was given explicitly. Zero is a
	// valid threshold, so the merge cannot use the zero value to mean unset.
	MinViewsSet bool `json:"-"`

	// Job API credentials
	ApifyToken   string `json:"apify_token,omitempty" validate:"required"`
	ApifyActorID string `json:"apify_actor_id,omitempty" validate:"required"`

	// Durable store
	DriveFolderID      string `json:"drive_folder_id,omitempty" validate:"required"`
	ServiceAccountJSON string `json:"-" validate:"required"` // full credential JSON, env-only

	// Behavior
	DryRun   bool   `json:"dry_run,omitempty"`
	Verbose  bool   `json:"verbose,omitempty"`
	WorkDir  string `json:"workdir,omitempty"`
	LogoPath string `json:"logo,omitempty"`

	// Optional artifact persistence
	DatabaseURL string `json:"database_url,omitempty"`
}

// LoadConfig loads configuration from a JSON file.
// Returns an error if the file cannot be read or parsed.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	// Distinguish an explicit "min_views": 0 from the key being absent.
	var keys struct {
		MinViews *int64 `json:"min_views"`
	}
	if err := json.Unmarshal(data, &keys); err == nil && keys.MinViews != nil {
		cfg.MinViewsSet = true
	}

	return &cfg, nil
}

// Validate checks the configuration after defaults and overrides have been
// applied.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config error: %w", err)
	}

	if c.ServiceAccountJSON != "" && !json.Valid([]byte(c.ServiceAccountJSON)) {
		return fmt.Errorf("config error: service account credential is not valid JSON")
	}

	return nil
}

// MergeWithDefaults returns a new Config with unset fields filled from
// defaults. CLI flags always win for booleans, so they are not merged here.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	if result.Hashtag == "" {
		result.Hashtag = defaults.Hashtag
	}
	if result.BatchSize == 0 {
		result.BatchSize = defaults.BatchSize
	}
	if result.MinViews == 0 && !result.MinViewsSet {
		result.MinViews = defaults.MinViews
	}
	if result.MaxAgeHours == 0 {
		result.MaxAgeHours = defaults.MaxAgeHours
	}
	if result.ApifyToken == "" {
		result.ApifyToken = defaults.ApifyToken
	}
	if result.ApifyActorID == "" {
		result.ApifyActorID = defaults.ApifyActorID
	}
	if result.DriveFolderID == "" {
		result.DriveFolderID = defaults.DriveFolderID
	}
	if result.ServiceAccountJSON == "" {
		result.ServiceAccountJSON = defaults.ServiceAccountJSON
	}
	if result.WorkDir == "" {
		result.WorkDir = defaults.WorkDir
	}
	if result.LogoPath == "" {
		result.LogoPath = defaults.LogoPath
	}
	if result.DatabaseURL == "" {
		result.DatabaseURL = defaults.DatabaseURL
	}

	return result
}

// Defaults returns the built-in selection defaults.
func Defaults() Config {
	return Config{
		Hashtag:     DefaultHashtag,
		BatchSize:   DefaultBatchSize,
		MinViews:    DefaultMinViews,
		MaxAgeHours: DefaultMaxAgeHours,
		LogoPath:    DefaultLogoPath,
	}
}
