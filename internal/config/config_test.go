package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	return Config{
		Hashtag:            "cats",
		BatchSize:          50,
		MinViews:           10000,
		MaxAgeHours:        168,
		ApifyToken:         "tok",
		ApifyActorID:       "actor",
		DriveFolderID:      "folder",
		ServiceAccountJSON: `{"type":"service_account"}`,
	}
}

func TestLoadConfig_ValidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	content := `{"hashtag": "cats", "batch_size": 25, "min_views": 5000, "dry_run": true}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := LoadConfig(path)

	require.NoError(t, err)
	assert.Equal(t, "cats", cfg.Hashtag)
	assert.Equal(t, 25, cfg.BatchSize)
	assert.Equal(t, int64(5000), cfg.MinViews)
	assert.True(t, cfg.DryRun)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.json"))
	assert.Error(t, err)
}

func TestLoadConfig_MalformedJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"hashtag":`), 0o644))

	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestLoadConfig_EmptyPath(t *testing.T) {
	_, err := LoadConfig("")
	assert.Error(t, err)
}

func TestValidate_OK(t *testing.T) {
	cfg := validConfig()
	assert.NoError(t, cfg.Validate())
}

func TestValidate_MissingCredentials(t *testing.T) {
	cfg := validConfig()
	cfg.ApifyToken = ""

	err := cfg.Validate()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "ApifyToken")
}

func TestValidate_NonPositiveBatchSize(t *testing.T) {
	cfg := validConfig()
	cfg.BatchSize = 0

	assert.Error(t, cfg.Validate())
}

func TestValidate_NegativeMinViews(t *testing.T) {
	cfg := validConfig()
	cfg.MinViews = -1

	assert.Error(t, cfg.Validate())
}

func TestValidate_BadServiceAccountJSON(t *testing.T) {
	cfg := validConfig()
	cfg.ServiceAccountJSON = "not-json"

	err := cfg.Validate()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "service account")
}

func TestMergeWithDefaults(t *testing.T) {
	cfg := Config{Hashtag: "dogs", MinViews: 500}

	merged := cfg.MergeWithDefaults(Defaults())

	assert.Equal(t, "dogs", merged.Hashtag)              // explicit value kept
	assert.Equal(t, int64(500), merged.MinViews)         // explicit value kept
	assert.Equal(t, DefaultBatchSize, merged.BatchSize)  // filled in
	assert.Equal(t, float64(DefaultMaxAgeHours), merged.MaxAgeHours)
	assert.Equal(t, DefaultLogoPath, merged.LogoPath)
}

func TestLoadConfig_ExplicitZeroMinViews(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"min_views": 0}`), 0o644))

	cfg, err := LoadConfig(path)

	require.NoError(t, err)
	assert.True(t, cfg.MinViewsSet)

	// An explicit zero threshold survives the default merge.
	merged := cfg.MergeWithDefaults(Defaults())
	assert.Equal(t, int64(0), merged.MinViews)
}

func TestLoadConfig_AbsentMinViewsTakesDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"hashtag": "cats"}`), 0o644))

	cfg, err := LoadConfig(path)

	require.NoError(t, err)
	assert.False(t, cfg.MinViewsSet)

	merged := cfg.MergeWithDefaults(Defaults())
	assert.Equal(t, int64(DefaultMinViews), merged.MinViews)
}

func TestMergeWithDefaults_ExplicitZeroMinViews(t *testing.T) {
	cfg := Config{MinViews: 0, MinViewsSet: true}

	merged := cfg.MergeWithDefaults(Defaults())

	assert.Equal(t, int64(0), merged.MinViews)
}

func TestDefaults(t *testing.T) {
	d := Defaults()

	assert.Equal(t, "oddlysatisfying", d.Hashtag)
	assert.Equal(t, 50, d.BatchSize)
	assert.Equal(t, int64(10000), d.MinViews)
	assert.Equal(t, float64(168), d.MaxAgeHours)
}
