package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zenexport/internal/domain"
)

var envKeys = []string{
	"SUBDOMAIN", "EMAIL", "TOKEN", "BASE_URL", "OUT_DIR", "FORMAT", "START_TIME", "END_TIME",
	"INTERVAL", "CONTINUOUS", "SCHEDULE", "MAX_RETRIES", "ERROR_BACKOFF", "RATE_LIMIT_BACKOFF",
	"RPS", "LOG_LEVEL", "LOG_FORMAT", "METRICS_ADDR", "S3_BUCKET", "S3_PREFIX", "S3_REGION",
	"S3_ENDPOINT", "S3_KEY_ID", "S3_SECRET",
}

// clearEnv blanks every ZENEXPORT_* variable for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(EnvPrefix+k, "")
	}
}

func validConfig() *Config {
	cfg := Defaults()
	cfg.Subdomain = "acme"
	cfg.Email = "ops@example.com"
	cfg.Token = "tok"
	return cfg
}

func TestLoadFromEnv_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	assert.Equal(t, Defaults(), cfg)
	assert.Equal(t, "./exports", cfg.OutDir)
	assert.Equal(t, "json", cfg.Format)
	assert.Equal(t, 7200*time.Second, cfg.Interval)
	assert.Equal(t, 300*time.Second, cfg.ErrorBackoff)
	assert.Equal(t, 60*time.Second, cfg.RateLimitBackoff)
	assert.Zero(t, cfg.MaxRetries)
	assert.False(t, cfg.Continuous)
}

func TestLoadFromEnv_AllVarsSet(t *testing.T) {
	clearEnv(t)
	t.Setenv("ZENEXPORT_SUBDOMAIN", "acme")
	t.Setenv("ZENEXPORT_EMAIL", "ops@example.com")
	t.Setenv("ZENEXPORT_TOKEN", "tok")
	t.Setenv("ZENEXPORT_BASE_URL", "http://localhost:8080")
	t.Setenv("ZENEXPORT_OUT_DIR", "/var/exports")
	t.Setenv("ZENEXPORT_FORMAT", "csv")
	t.Setenv("ZENEXPORT_START_TIME", "2023-01-01T00:00:00Z")
	t.Setenv("ZENEXPORT_END_TIME", "2023-01-02T00:00:00Z")
	t.Setenv("ZENEXPORT_INTERVAL", "600")
	t.Setenv("ZENEXPORT_CONTINUOUS", "yes")
	t.Setenv("ZENEXPORT_SCHEDULE", "*/15 * * * *")
	t.Setenv("ZENEXPORT_MAX_RETRIES", "5")
	t.Setenv("ZENEXPORT_ERROR_BACKOFF", "30")
	t.Setenv("ZENEXPORT_RATE_LIMIT_BACKOFF", "10")
	t.Setenv("ZENEXPORT_RPS", "2.5")
	t.Setenv("ZENEXPORT_LOG_LEVEL", "debug")
	t.Setenv("ZENEXPORT_LOG_FORMAT", "json")
	t.Setenv("ZENEXPORT_METRICS_ADDR", ":9090")
	t.Setenv("ZENEXPORT_S3_BUCKET", "audit")
	t.Setenv("ZENEXPORT_S3_KEY_ID", "key")
	t.Setenv("ZENEXPORT_S3_SECRET", "secret")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, "acme", cfg.Subdomain)
	assert.Equal(t, "ops@example.com", cfg.Email)
	assert.Equal(t, "tok", cfg.Token)
	assert.Equal(t, "http://localhost:8080", cfg.BaseURL)
	assert.Equal(t, "/var/exports", cfg.OutDir)
	assert.Equal(t, "csv", cfg.Format)
	assert.Equal(t, "2023-01-01T00:00:00Z", cfg.StartTime)
	assert.Equal(t, "2023-01-02T00:00:00Z", cfg.EndTime)
	assert.Equal(t, 10*time.Minute, cfg.Interval)
	assert.True(t, cfg.Continuous)
	assert.Equal(t, "*/15 * * * *", cfg.Schedule)
	assert.Equal(t, 5, cfg.MaxRetries)
	assert.Equal(t, 30*time.Second, cfg.ErrorBackoff)
	assert.Equal(t, 10*time.Second, cfg.RateLimitBackoff)
	assert.InDelta(t, 2.5, cfg.RequestsPerSecond, 0)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, ":9090", cfg.MetricsAddr)
	assert.True(t, cfg.HasS3Config())
	assert.Equal(t, "key", cfg.S3KeyID)
	assert.Equal(t, "secret", cfg.S3Secret)
}

func TestLoadFromEnv_InvalidNumbers(t *testing.T) {
	tests := []struct {
		key, value string
	}{
		{"INTERVAL", "2h"},
		{"INTERVAL", "-5"},
		{"ERROR_BACKOFF", "abc"},
		{"MAX_RETRIES", "-1"},
		{"RPS", "fast"},
	}
	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(EnvPrefix+tt.key, tt.value)

			_, err := LoadFromEnv()
			require.Error(t, err)
			assert.Contains(t, err.Error(), EnvPrefix+tt.key)
		})
	}
}

func TestApplyEnv_KeepsUnsetFields(t *testing.T) {
	clearEnv(t)
	t.Setenv("ZENEXPORT_TOKEN", "from-env")

	cfg := Defaults()
	cfg.Subdomain = "from-profile"
	cfg.Token = "from-profile"
	require.NoError(t, cfg.ApplyEnv())

	assert.Equal(t, "from-profile", cfg.Subdomain)
	assert.Equal(t, "from-env", cfg.Token)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "missing creds", mutate: func(c *Config) { c.Email, c.Token = "", "" }, wantErr: "email, token"},
		{name: "bad format", mutate: func(c *Config) { c.Format = "xml" }, wantErr: "unsupported format"},
		{name: "upper-case format", mutate: func(c *Config) { c.Format = "CSV" }},
		{name: "bad log format", mutate: func(c *Config) { c.LogFormat = "pretty" }, wantErr: "log format"},
		{name: "zero interval", mutate: func(c *Config) { c.Interval = 0 }, wantErr: "interval"},
		{name: "bad schedule", mutate: func(c *Config) { c.Schedule = "every hour" }, wantErr: "invalid schedule"},
		{name: "bad start", mutate: func(c *Config) { c.StartTime = "yesterday" }, wantErr: "invalid timestamp"},
		{name: "inverted window", mutate: func(c *Config) {
			c.StartTime, c.EndTime = "2023-02-01T00:00:00Z", "2023-01-01T00:00:00Z"
		}, wantErr: "after end time"},
		{name: "s3 without keys", mutate: func(c *Config) { c.S3Bucket = "audit" }, wantErr: "S3_KEY_ID"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			var ve *domain.ValidationError
			assert.ErrorAs(t, err, &ve)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidate_Warnings(t *testing.T) {
	cfg := validConfig()
	cfg.Continuous = true
	cfg.Schedule = "0 * * * *"
	cfg.StartTime = "2023-01-01T00:00:00Z"

	require.NoError(t, cfg.Validate())
	assert.Len(t, cfg.Warnings, 2)
}

func TestValidate_WindowIgnoredOutsideOneShot(t *testing.T) {
	tests := map[string]func(*Config){
		"continuous": func(c *Config) { c.Continuous = true },
		"schedule":   func(c *Config) { c.Schedule = "*/15 * * * *" },
	}
	for name, mode := range tests {
		t.Run(name, func(t *testing.T) {
			cfg := validConfig()
			mode(cfg)
			cfg.StartTime = "yesterday"
			cfg.EndTime = "2020-01-01T00:00:00Z"

			require.NoError(t, cfg.Validate())
			assert.Contains(t, cfg.Warnings, "start and end times are ignored in continuous and scheduled modes")
		})
	}
}

func TestValidate_EndTimeOnlyFarInPast(t *testing.T) {
	cfg := validConfig()
	cfg.EndTime = "2021-03-10T00:00:00Z"

	require.NoError(t, cfg.Validate())
	w, err := cfg.Window(time.Now())
	require.NoError(t, err)
	assert.Equal(t, "2021-03-03T00:00:00Z", w.StartString())
	assert.Equal(t, "2021-03-10T00:00:00Z", w.EndString())
}

func TestWindow(t *testing.T) {
	now := time.Date(2024, 5, 8, 12, 0, 0, 500, time.UTC)

	cfg := Defaults()
	w, err := cfg.Window(now)
	require.NoError(t, err)
	assert.Equal(t, "2024-05-01T12:00:00Z", w.StartString())
	assert.Equal(t, "2024-05-08T12:00:00Z", w.EndString())

	cfg.StartTime = "2024-05-08T00:00:00+02:00"
	w, err = cfg.Window(now)
	require.NoError(t, err)
	assert.Equal(t, "2024-05-07T22:00:00Z", w.StartString())
	assert.Equal(t, now.Truncate(time.Second), w.End)

	cfg.StartTime = ""
	cfg.EndTime = "2024-05-02T00:00:00Z"
	w, err = cfg.Window(now)
	require.NoError(t, err)
	assert.Equal(t, "2024-04-25T00:00:00Z", w.StartString(), "start defaults relative to end")
}

func TestSlogLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
	}
	for in, want := range tests {
		cfg := &Config{LogLevel: in}
		assert.Equal(t, want, cfg.SlogLevel(), in)
	}
}

func TestParseSeconds(t *testing.T) {
	d, err := ParseSeconds(" 7200 ")
	require.NoError(t, err)
	assert.Equal(t, 2*time.Hour, d)

	_, err = ParseSeconds("1.5")
	assert.Error(t, err)
}

func TestLoadDotEnv_FileNotFound(t *testing.T) {
	err := LoadDotEnv("/nonexistent/.env")
	if err != nil {
		t.Errorf("expected no error for missing .env, got: %v", err)
	}
}

func TestLoadDotEnv_ParsesKeyValue(t *testing.T) {
	tmpDir := t.TempDir()
	envFile := filepath.Join(tmpDir, ".env")

	err := os.WriteFile(envFile, []byte("# exporter\nZENEXPORT_TEST_KEY=\"test value\"\n"), 0644)
	if err != nil {
		t.Fatalf("write .env: %v", err)
	}

	if err := LoadDotEnv(envFile); err != nil {
		t.Fatalf("LoadDotEnv: %v", err)
	}

	if val := os.Getenv("ZENEXPORT_TEST_KEY"); val != "test value" {
		t.Errorf("ZENEXPORT_TEST_KEY = %q, want %q", val, "test value")
	}
	_ = os.Unsetenv("ZENEXPORT_TEST_KEY")
}

func TestLoadDotEnv_EnvVarPrecedence(t *testing.T) {
	t.Setenv("ZENEXPORT_PRECEDENCE_KEY", "from_env")

	tmpDir := t.TempDir()
	envFile := filepath.Join(tmpDir, ".env")

	err := os.WriteFile(envFile, []byte("ZENEXPORT_PRECEDENCE_KEY=from_file\n"), 0644)
	if err != nil {
		t.Fatalf("write .env: %v", err)
	}

	if err := LoadDotEnv(envFile); err != nil {
		t.Fatalf("LoadDotEnv: %v", err)
	}

	if val := os.Getenv("ZENEXPORT_PRECEDENCE_KEY"); val != "from_env" {
		t.Errorf("ZENEXPORT_PRECEDENCE_KEY = %q, want %q (env precedence)", val, "from_env")
	}
}
