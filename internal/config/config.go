// Package config loads exporter settings from ZENEXPORT_* environment
// variables on top of built-in defaults.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"zenexport/internal/domain"
)

// EnvPrefix prefixes every environment variable read by ApplyEnv.
const EnvPrefix = "ZENEXPORT_"

// DefaultLookback is the window length used when no start time is given.
const DefaultLookback = 7 * 24 * time.Hour

// Config holds exporter settings. It is not modified once a run starts.
type Config struct {
	// Account
	Subdomain string // {subdomain}.zendesk.com
	Email     string // agent email; authenticates as {email}/token
	Token     string // API token
	BaseURL   string // overrides https://{subdomain}.zendesk.com (optional)

	// Output
	OutDir string // directory export files are written to (default "./exports")
	Format string // csv, json or sqlite (default "json")

	// Window and scheduling
	StartTime  string        // ISO-8601 window start (default now-7d)
	EndTime    string        // ISO-8601 window end (default now)
	Interval   time.Duration // continuous-mode window and pause (default 7200s)
	Continuous bool
	Schedule   string // five-field cron expression (optional)

	// Retry and pacing
	MaxRetries        int           // consecutive error retries per request; 0 retries forever
	ErrorBackoff      time.Duration // wait after a failed request (default 300s)
	RateLimitBackoff  time.Duration // wait after a 429 without Retry-After (default 60s)
	RequestsPerSecond float64       // client-side request pacing; 0 disables

	// Observability
	LogLevel    string // debug, info, warn, error (default "info")
	LogFormat   string // console, text, json (default "console")
	MetricsAddr string // serves /metrics when set, e.g. ":9090"

	// S3 mirror (optional)
	S3Bucket   string
	S3Prefix   string
	S3Region   string
	S3Endpoint string
	S3KeyID    string
	S3Secret   string

	// Warnings collects non-fatal warnings generated during config loading.
	// These are logged by the caller after the logger is initialised.
	Warnings []string
}

// Defaults returns the configuration used when nothing is set.
func Defaults() *Config {
	return &Config{
		OutDir:           "./exports",
		Format:           "json",
		Interval:         7200 * time.Second,
		ErrorBackoff:     300 * time.Second,
		RateLimitBackoff: 60 * time.Second,
		LogLevel:         "info",
		LogFormat:        "console",
	}
}

// LoadFromEnv returns Defaults overlaid with the environment.
func LoadFromEnv() (*Config, error) {
	cfg := Defaults()
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overwrites every field whose ZENEXPORT_* variable is set.
func (c *Config) ApplyEnv() error {
	strs := map[string]*string{
		"SUBDOMAIN":    &c.Subdomain,
		"EMAIL":        &c.Email,
		"TOKEN":        &c.Token,
		"BASE_URL":     &c.BaseURL,
		"OUT_DIR":      &c.OutDir,
		"FORMAT":       &c.Format,
		"START_TIME":   &c.StartTime,
		"END_TIME":     &c.EndTime,
		"SCHEDULE":     &c.Schedule,
		"LOG_LEVEL":    &c.LogLevel,
		"LOG_FORMAT":   &c.LogFormat,
		"METRICS_ADDR": &c.MetricsAddr,
		"S3_BUCKET":    &c.S3Bucket,
		"S3_PREFIX":    &c.S3Prefix,
		"S3_REGION":    &c.S3Region,
		"S3_ENDPOINT":  &c.S3Endpoint,
		"S3_KEY_ID":    &c.S3KeyID,
		"S3_SECRET":    &c.S3Secret,
	}
	for key, dst := range strs {
		if v, ok := lookup(key); ok {
			*dst = v
		}
	}

	seconds := map[string]*time.Duration{
		"INTERVAL":           &c.Interval,
		"ERROR_BACKOFF":      &c.ErrorBackoff,
		"RATE_LIMIT_BACKOFF": &c.RateLimitBackoff,
	}
	for key, dst := range seconds {
		if v, ok := lookup(key); ok {
			d, err := ParseSeconds(v)
			if err != nil {
				return fmt.Errorf("%s%s: %w", EnvPrefix, key, err)
			}
			*dst = d
		}
	}

	if v, ok := lookup("MAX_RETRIES"); ok {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return fmt.Errorf("%sMAX_RETRIES: want a non-negative integer, got %q", EnvPrefix, v)
		}
		c.MaxRetries = n
	}
	if v, ok := lookup("RPS"); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f < 0 {
			return fmt.Errorf("%sRPS: want a non-negative number, got %q", EnvPrefix, v)
		}
		c.RequestsPerSecond = f
	}
	c.Continuous = parseBoolEnvDefault(EnvPrefix+"CONTINUOUS", c.Continuous)
	return nil
}

// Validate checks required settings and value ranges. Non-fatal findings
// are appended to Warnings.
func (c *Config) Validate() error {
	var missing []string
	if c.Subdomain == "" {
		missing = append(missing, "subdomain")
	}
	if c.Email == "" {
		missing = append(missing, "email")
	}
	if c.Token == "" {
		missing = append(missing, "token")
	}
	if len(missing) > 0 {
		return domain.ErrValidation("missing required settings: %s (set flags or %s* variables)",
			strings.Join(missing, ", "), EnvPrefix)
	}

	switch strings.ToLower(c.Format) {
	case "csv", "json", "sqlite":
	default:
		return domain.ErrValidation("unsupported format %q: use csv, json or sqlite", c.Format)
	}
	switch strings.ToLower(c.LogFormat) {
	case "console", "text", "json":
	default:
		return domain.ErrValidation("unsupported log format %q: use console, text or json", c.LogFormat)
	}
	if c.Interval <= 0 {
		return domain.ErrValidation("interval must be positive")
	}
	if c.ErrorBackoff < 0 || c.RateLimitBackoff < 0 {
		return domain.ErrValidation("backoff durations must not be negative")
	}
	if c.MaxRetries < 0 {
		return domain.ErrValidation("max retries must not be negative")
	}
	if c.Schedule != "" {
		if _, err := cron.ParseStandard(c.Schedule); err != nil {
			return domain.ErrValidation("invalid schedule %q: %v", c.Schedule, err)
		}
	}
	if !c.Continuous && c.Schedule == "" {
		if _, err := c.Window(time.Now()); err != nil {
			return err
		}
	}
	if c.HasS3Config() && (c.S3KeyID == "" || c.S3Secret == "") {
		return domain.ErrValidation("S3 mirror needs %sS3_KEY_ID and %sS3_SECRET", EnvPrefix, EnvPrefix)
	}

	if (c.Continuous || c.Schedule != "") && (c.StartTime != "" || c.EndTime != "") {
		c.Warnings = append(c.Warnings, "start and end times are ignored in continuous and scheduled modes")
	}
	if c.Continuous && c.Schedule != "" {
		c.Warnings = append(c.Warnings, "schedule is set: cycles follow the schedule instead of the fixed interval")
	}
	return nil
}

// Window returns the one-shot export window. A missing end defaults to now
// and a missing start to DefaultLookback before the end.
func (c *Config) Window(now time.Time) (domain.TimeWindow, error) {
	end := now
	if c.EndTime != "" {
		t, err := domain.ParseTimestamp(c.EndTime)
		if err != nil {
			return domain.TimeWindow{}, err
		}
		end = t
	}
	start := end.Add(-DefaultLookback)
	if c.StartTime != "" {
		t, err := domain.ParseTimestamp(c.StartTime)
		if err != nil {
			return domain.TimeWindow{}, err
		}
		start = t
	}
	w := domain.NewTimeWindow(start, end)
	if err := domain.ValidateWindow(w); err != nil {
		return domain.TimeWindow{}, err
	}
	return w, nil
}

// SlogLevel maps the LogLevel string to an slog.Level.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// HasS3Config returns true when an S3 bucket is configured.
func (c *Config) HasS3Config() bool {
	return c.S3Bucket != ""
}

// ParseSeconds parses a whole number of seconds, the unit intervals and
// backoffs are configured in.
func ParseSeconds(s string) (time.Duration, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("want a non-negative number of seconds, got %q", s)
	}
	return time.Duration(n) * time.Second, nil
}

// LoadDotEnv reads a .env file and sets any variables not already in the
// environment. A missing file is not an error.
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("stat %s: %w", path, err)
	}
	// godotenv.Load never overrides variables that are already set.
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func lookup(key string) (string, bool) {
	v, ok := os.LookupEnv(EnvPrefix + key)
	if !ok || strings.TrimSpace(v) == "" {
		return "", false
	}
	return strings.TrimSpace(v), true
}

func parseBoolEnvDefault(key string, defaultVal bool) bool {
	v := strings.TrimSpace(strings.ToLower(os.Getenv(key)))
	if v == "" {
		return defaultVal
	}
	if v == "0" || v == "false" || v == "no" || v == "off" {
		return false
	}
	if v == "1" || v == "true" || v == "yes" || v == "on" {
		return true
	}
	return defaultVal
}
