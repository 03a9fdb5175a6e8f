package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"zenexport/internal/config"
)

// UserConfig represents ~/.zenexport/config.yaml.
type UserConfig struct {
	CurrentProfile string             `yaml:"current-profile"`
	Profiles       map[string]Profile `yaml:"profiles"`
}

// Profile represents a single named configuration profile. S3 credentials
// are never stored here; they come from the environment.
type Profile struct {
	Subdomain  string `yaml:"subdomain,omitempty"`
	Email      string `yaml:"email,omitempty"`
	Token      string `yaml:"token,omitempty"`
	BaseURL    string `yaml:"base-url,omitempty"`
	OutDir     string `yaml:"out-dir,omitempty"`
	Format     string `yaml:"format,omitempty"`
	Interval   int    `yaml:"interval,omitempty"` // seconds
	Schedule   string `yaml:"schedule,omitempty"`
	LogLevel   string `yaml:"log-level,omitempty"`
	LogFormat  string `yaml:"log-format,omitempty"`
	S3Bucket   string `yaml:"s3-bucket,omitempty"`
	S3Prefix   string `yaml:"s3-prefix,omitempty"`
	S3Region   string `yaml:"s3-region,omitempty"`
	S3Endpoint string `yaml:"s3-endpoint,omitempty"`
}

// Apply copies every non-empty profile value into cfg.
func (p Profile) Apply(cfg *config.Config) {
	for _, f := range []struct {
		src string
		dst *string
	}{
		{p.Subdomain, &cfg.Subdomain},
		{p.Email, &cfg.Email},
		{p.Token, &cfg.Token},
		{p.BaseURL, &cfg.BaseURL},
		{p.OutDir, &cfg.OutDir},
		{p.Format, &cfg.Format},
		{p.Schedule, &cfg.Schedule},
		{p.LogLevel, &cfg.LogLevel},
		{p.LogFormat, &cfg.LogFormat},
		{p.S3Bucket, &cfg.S3Bucket},
		{p.S3Prefix, &cfg.S3Prefix},
		{p.S3Region, &cfg.S3Region},
		{p.S3Endpoint, &cfg.S3Endpoint},
	} {
		if f.src != "" {
			*f.dst = f.src
		}
	}
	if p.Interval > 0 {
		cfg.Interval = time.Duration(p.Interval) * time.Second
	}
}

// ActiveProfile returns the profile to use based on the override or
// current-profile. A missing current profile yields an empty Profile; a
// missing override is an error.
func (c *UserConfig) ActiveProfile(override string) (Profile, error) {
	name := c.CurrentProfile
	if override != "" {
		name = override
	}
	if p, ok := c.Profiles[name]; ok {
		return p, nil
	}
	if override != "" {
		return Profile{}, fmt.Errorf("profile %q not found", override)
	}
	return Profile{}, nil
}

// ConfigDir returns the path to ~/.zenexport/.
func ConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".zenexport")
}

// ConfigPath returns the path to ~/.zenexport/config.yaml.
func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// LoadUserConfig reads ~/.zenexport/config.yaml.
func LoadUserConfig() (*UserConfig, error) {
	path := ConfigPath()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg UserConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if cfg.Profiles == nil {
		cfg.Profiles = map[string]Profile{}
	}
	return &cfg, nil
}

// loadUserConfigOrEmpty treats a missing config file as an empty one.
func loadUserConfigOrEmpty() (*UserConfig, error) {
	cfg, err := LoadUserConfig()
	if err == nil {
		return cfg, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return &UserConfig{CurrentProfile: "default", Profiles: map[string]Profile{}}, nil
	}
	return nil, err
}

// SaveUserConfig writes ~/.zenexport/config.yaml.
func SaveUserConfig(cfg *UserConfig) error {
	dir := ConfigDir()
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return os.WriteFile(ConfigPath(), data, 0o600)
}
