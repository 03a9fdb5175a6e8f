package cli

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"zenexport/internal/export"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration profiles",
	}

	cmd.AddCommand(newConfigShowCmd())
	cmd.AddCommand(newConfigSetProfileCmd())
	cmd.AddCommand(newConfigUseProfileCmd())

	return cmd
}

func newConfigShowCmd() *cobra.Command {
	var reveal bool

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Display configured profiles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := LoadUserConfig()
			if err != nil {
				_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "No configuration found at %s\n", ConfigPath())
				return err
			}
			if !reveal {
				cfg = maskConfig(cfg)
			}
			if getOutputFormat(cmd) == "json" {
				return printJSON(cmd.OutOrStdout(), cfg)
			}

			names := make([]string, 0, len(cfg.Profiles))
			for name := range cfg.Profiles {
				names = append(names, name)
			}
			sort.Strings(names)

			rows := make([][]string, 0, len(names))
			for _, name := range names {
				p := cfg.Profiles[name]
				active := ""
				if name == cfg.CurrentProfile {
					active = "*"
				}
				rows = append(rows, []string{
					name, active, p.Subdomain, p.Email, p.Token, p.Format, p.OutDir, intervalString(p.Interval),
				})
			}
			return printTable(cmd.OutOrStdout(),
				[]string{"PROFILE", "ACTIVE", "SUBDOMAIN", "EMAIL", "TOKEN", "FORMAT", "OUT DIR", "INTERVAL"}, rows)
		},
	}

	cmd.Flags().BoolVar(&reveal, "reveal", false, "Show sensitive values unmasked")

	return cmd
}

func intervalString(seconds int) string {
	if seconds <= 0 {
		return ""
	}
	return strconv.Itoa(seconds) + "s"
}

// maskConfig returns a copy of the config with sensitive fields masked.
func maskConfig(cfg *UserConfig) *UserConfig {
	masked := &UserConfig{
		CurrentProfile: cfg.CurrentProfile,
		Profiles:       make(map[string]Profile, len(cfg.Profiles)),
	}
	for name, p := range cfg.Profiles {
		p.Token = maskSecret(p.Token)
		masked.Profiles[name] = p
	}
	return masked
}

// maskSecret masks a sensitive string, showing first 4 and last 4 chars.
func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 10 {
		return "****"
	}
	return s[:4] + "****" + s[len(s)-4:]
}

func newConfigSetProfileCmd() *cobra.Command {
	var (
		name string
		p    Profile
	)

	cmd := &cobra.Command{
		Use:   "set-profile",
		Short: "Create or update a configuration profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if name == "" {
				return fmt.Errorf("--name is required")
			}
			if cmd.Flags().Changed("format") {
				if _, err := export.ParseFormat(p.Format); err != nil {
					return err
				}
			}
			if cmd.Flags().Changed("base-url") {
				if err := validateBaseURL(p.BaseURL); err != nil {
					return err
				}
			}
			if p.Interval < 0 {
				return fmt.Errorf("--interval must be positive")
			}

			cfg, err := loadUserConfigOrEmpty()
			if err != nil {
				return err
			}

			existing := cfg.Profiles[name]
			cmd.Flags().Visit(func(f *pflag.Flag) {
				mergeProfileFlag(&existing, p, f.Name)
			})
			cfg.Profiles[name] = existing
			if len(cfg.Profiles) == 1 || cfg.CurrentProfile == "" {
				cfg.CurrentProfile = name
			}

			if err := SaveUserConfig(cfg); err != nil {
				return err
			}
			if getOutputFormat(cmd) == "json" {
				return printJSON(cmd.OutOrStdout(), map[string]string{
					"status":  "ok",
					"profile": name,
					"path":    ConfigPath(),
				})
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Profile %q saved to %s\n", name, ConfigPath())
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Profile name (required)")
	cmd.Flags().StringVar(&p.Subdomain, "subdomain", "", "Zendesk subdomain")
	cmd.Flags().StringVar(&p.Email, "email", "", "Zendesk user email")
	cmd.Flags().StringVar(&p.Token, "token", "", "Zendesk API token")
	cmd.Flags().StringVar(&p.BaseURL, "base-url", "", "API base URL override")
	cmd.Flags().StringVar(&p.OutDir, "out-dir", "", "Output directory")
	cmd.Flags().StringVar(&p.Format, "format", "", "Export format (csv, json, sqlite)")
	cmd.Flags().IntVar(&p.Interval, "interval", 0, "Continuous-mode interval in seconds")
	cmd.Flags().StringVar(&p.Schedule, "schedule", "", "Cron schedule")
	cmd.Flags().StringVar(&p.LogLevel, "log-level", "", "Log level")
	cmd.Flags().StringVar(&p.LogFormat, "log-format", "", "Log format")
	cmd.Flags().StringVar(&p.S3Bucket, "s3-bucket", "", "S3 bucket to mirror exports to")
	cmd.Flags().StringVar(&p.S3Prefix, "s3-prefix", "", "S3 key prefix")
	cmd.Flags().StringVar(&p.S3Region, "s3-region", "", "S3 region")
	cmd.Flags().StringVar(&p.S3Endpoint, "s3-endpoint", "", "S3-compatible endpoint")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}

// mergeProfileFlag copies the field behind flag from src into dst.
func mergeProfileFlag(dst *Profile, src Profile, flag string) {
	switch flag {
	case "subdomain":
		dst.Subdomain = src.Subdomain
	case "email":
		dst.Email = src.Email
	case "token":
		dst.Token = src.Token
	case "base-url":
		dst.BaseURL = src.BaseURL
	case "out-dir":
		dst.OutDir = src.OutDir
	case "format":
		dst.Format = src.Format
	case "interval":
		dst.Interval = src.Interval
	case "schedule":
		dst.Schedule = src.Schedule
	case "log-level":
		dst.LogLevel = src.LogLevel
	case "log-format":
		dst.LogFormat = src.LogFormat
	case "s3-bucket":
		dst.S3Bucket = src.S3Bucket
	case "s3-prefix":
		dst.S3Prefix = src.S3Prefix
	case "s3-region":
		dst.S3Region = src.S3Region
	case "s3-endpoint":
		dst.S3Endpoint = src.S3Endpoint
	}
}

func newConfigUseProfileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "use-profile <name>",
		Short: "Set the active configuration profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := LoadUserConfig()
			if err != nil {
				return fmt.Errorf("no config found: %w", err)
			}
			name := args[0]
			if _, ok := cfg.Profiles[name]; !ok {
				return fmt.Errorf("profile %q not found", name)
			}
			cfg.CurrentProfile = name
			if err := SaveUserConfig(cfg); err != nil {
				return err
			}
			if getOutputFormat(cmd) == "json" {
				return printJSON(cmd.OutOrStdout(), map[string]string{
					"status":         "ok",
					"active_profile": name,
				})
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Active profile set to %q\n", name)
			return nil
		},
	}
}
