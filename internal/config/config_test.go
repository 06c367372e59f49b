package config_test

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Flaque/filet"
	"github.com/UnknownOlympus/wardtagger/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := config.Load("")

	require.NoError(t, err)
	assert.Equal(t, "production", cfg.Env)
	assert.Equal(t, "data", cfg.DataDir)
	assert.Equal(t, "app_state", cfg.StateDir)
	assert.Equal(t, "nominatim", cfg.Geocoder.Provider)
	assert.Equal(t, 30*time.Second, cfg.Geocoder.Timeout)
	assert.Equal(t, "sqlite", cfg.Cache.Driver)
	assert.Equal(t, "https://actionnetwork.org/api/v2", cfg.ActionNetwork.BaseURL)
	assert.Equal(t, 4, cfg.ActionNetwork.RateLimit)
	assert.Empty(t, cfg.APIKey)
	assert.Empty(t, cfg.Metrics.PushgatewayURL)
}

func TestLoadFromTOML(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte(`
env = "local"
api_key = "toml-key"
min_sqft = 2500.5

[geocoder]
provider = "census"
timeout = "5s"
rate_limit = 3

[cache]
driver = "postgres"
dsn = "postgres://tagger@localhost/tagger"

[metrics]
pushgateway_url = "http://localhost:9091"
`), 0o600))

	cfg, err := config.Load("")

	require.NoError(t, err)
	assert.Equal(t, "local", cfg.Env)
	assert.Equal(t, "toml-key", cfg.APIKey)
	assert.InDelta(t, 2500.5, cfg.MinSqFeet, 0.001)
	assert.Equal(t, "census", cfg.Geocoder.Provider)
	assert.Equal(t, 5*time.Second, cfg.Geocoder.Timeout)
	assert.Equal(t, 3, cfg.Geocoder.RateLimit)
	assert.Equal(t, "postgres", cfg.Cache.Driver)
	assert.Equal(t, "postgres://tagger@localhost/tagger", cfg.Cache.DSN)
	assert.Equal(t, "http://localhost:9091", cfg.Metrics.PushgatewayURL)
}

func TestLoadLegacyKeys(t *testing.T) {
	t.Chdir(t.TempDir())
	defer filet.CleanUp(t)
	dir := filet.TmpDir(t, "")
	path := filepath.Join(dir, "legacy.toml")
	filet.File(t, path, "action-network-api-key = \"legacy-key\"\nmin-zip-sqft = 10000\n")

	cfg, err := config.Load(path)

	require.NoError(t, err)
	assert.Equal(t, "legacy-key", cfg.APIKey)
	assert.InDelta(t, 10000, cfg.MinSqFeet, 0.001)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"),
		[]byte("api_key = \"file-key\"\n[geocoder]\nprovider = \"google\"\n"), 0o600))
	t.Setenv("UEIL_API_KEY", "env-key")
	t.Setenv("UEIL_GEOCODER_PROVIDER", "census")
	t.Setenv("UEIL_MIN_SQFT", "750")

	cfg, err := config.Load("")

	require.NoError(t, err)
	assert.Equal(t, "env-key", cfg.APIKey)
	assert.Equal(t, "census", cfg.Geocoder.Provider)
	assert.InDelta(t, 750, cfg.MinSqFeet, 0.001)
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("UEIL_STATE_DIR=/var/lib/tagger\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("UEIL_STATE_DIR") })

	cfg, err := config.Load("")

	require.NoError(t, err)
	assert.Equal(t, "/var/lib/tagger", cfg.StateDir)
}

func TestLoadErrors(t *testing.T) {
	t.Run("explicit file missing", func(t *testing.T) {
		t.Chdir(t.TempDir())

		_, err := config.Load("does-not-exist.toml")

		require.ErrorContains(t, err, "failed to read config file")
	})

	t.Run("malformed file", func(t *testing.T) {
		dir := t.TempDir()
		t.Chdir(dir)
		require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte("api_key = "), 0o600))

		_, err := config.Load("")

		require.ErrorContains(t, err, "failed to read config file")
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.Config
		wantErr error
	}{
		{name: "valid", cfg: config.Config{APIKey: "key", MinSqFeet: 1}},
		{name: "missing API key", cfg: config.Config{MinSqFeet: 1}, wantErr: config.ErrMissingAPIKey},
		{name: "zero min sqft", cfg: config.Config{APIKey: "key"}, wantErr: config.ErrInvalidMinSqFeet},
		{name: "negative min sqft", cfg: config.Config{APIKey: "key", MinSqFeet: -5}, wantErr: config.ErrInvalidMinSqFeet},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestParseSince(t *testing.T) {
	tests := []struct {
		input    string
		expected time.Time
		wantErr  bool
	}{
		{input: "2024-05-01T12:30:00-05:00", expected: time.Date(2024, 5, 1, 17, 30, 0, 0, time.UTC)},
		{input: "2024-05-01T12:30:00", expected: time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC)},
		{input: "2024-05-01T12:30:00.250000", expected: time.Date(2024, 5, 1, 12, 30, 0, 250_000_000, time.UTC)},
		{input: "2024-05-01", expected: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)},
		{input: " 2024-05-01\n", expected: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)},
		{input: "yesterday", wantErr: true},
		{input: "2024-13-01", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := config.ParseSince(tt.input)
			if tt.wantErr {
				require.ErrorIs(t, err, config.ErrInvalidSince)
				return
			}
			require.NoError(t, err)
			assert.True(t, tt.expected.Equal(got), "expected %s, got %s", tt.expected, got)
		})
	}
}

func TestLastRun(t *testing.T) {
	t.Run("absent", func(t *testing.T) {
		assert.Nil(t, config.GetLastRun(t.TempDir(), slog.Default()))
	})

	t.Run("round trip", func(t *testing.T) {
		stateDir := filepath.Join(t.TempDir(), "app_state")
		lastRun := time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC)

		require.NoError(t, config.SetLastRun(stateDir, lastRun))
		got := config.GetLastRun(stateDir, slog.Default())

		require.NotNil(t, got)
		assert.True(t, lastRun.Equal(*got))
	})

	t.Run("invalid content is logged and ignored", func(t *testing.T) {
		stateDir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(stateDir, config.LastRunFile), []byte("garbage"), 0o600))
		var logs bytes.Buffer

		got := config.GetLastRun(stateDir, slog.New(slog.NewTextHandler(&logs, nil)))

		assert.Nil(t, got)
		assert.Contains(t, logs.String(), "Invalid date format")
	})
}
