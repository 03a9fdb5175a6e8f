package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"zenexport/internal/config"
	"zenexport/internal/logging"
)

var (
	version = "dev"
	commit  = "none"
)

// Execute runs the CLI.
func Execute() int {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

// rootFlags receives the export flags. Only flags the user actually set are
// copied into the resolved config.
type rootFlags struct {
	cfg              config.Config
	interval         int
	errorBackoff     int
	rateLimitBackoff int
	envFile          string
}

func newRootCmd() *cobra.Command {
	var (
		flags   rootFlags
		profile string
		output  string
	)
	defaults := config.Defaults()

	rootCmd := &cobra.Command{
		Use:   "zenexport",
		Short: "Export Zendesk access logs",
		Long: "Exports Zendesk access logs for a time window to CSV, JSON or SQLite, " +
			"attaching the name and email of the admin or agent behind each request.\n\n" +
			"Settings resolve as flag > ZENEXPORT_* environment (optionally from .env) > " +
			"profile in " + ConfigPath() + " > default.",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return validateOutputFormat(output)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := resolveConfig(cmd.Flags(), &flags, profile)
			if err != nil {
				return err
			}

			logger, err := logging.New(cmd.OutOrStdout(), cfg.LogFormat, cfg.SlogLevel())
			if err != nil {
				return err
			}
			for _, w := range cfg.Warnings {
				logger.Warn(w)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, cfg, logger)
		},
	}

	f := rootCmd.Flags()
	f.StringVar(&flags.cfg.Subdomain, "subdomain", "", "Zendesk subdomain (e.g. company in company.zendesk.com)")
	f.StringVar(&flags.cfg.Email, "email", "", "Zendesk user email")
	f.StringVar(&flags.cfg.Token, "token", "", "Zendesk API token")
	f.StringVar(&flags.cfg.BaseURL, "base-url", "", "API base URL override (default https://{subdomain}.zendesk.com)")
	f.StringVar(&flags.cfg.OutDir, "out-dir", defaults.OutDir, "Output directory for exported files")
	f.StringVar(&flags.cfg.Format, "format", defaults.Format, "Export format (csv, json, sqlite)")
	f.StringVar(&flags.cfg.StartTime, "start-time", "", "Start time for logs (ISO format, e.g. 2023-01-01T00:00:00Z; default 7 days ago)")
	f.StringVar(&flags.cfg.EndTime, "end-time", "", "End time for logs (ISO format, e.g. 2023-01-31T23:59:59Z; default now)")
	f.IntVar(&flags.interval, "interval", int(defaults.Interval.Seconds()), "Interval in seconds between exports in continuous mode")
	f.BoolVar(&flags.cfg.Continuous, "continuous", false, "Export the last interval repeatedly, sleeping interval seconds in between")
	f.StringVar(&flags.cfg.Schedule, "schedule", "", "Cron expression (5 fields) to export on instead of a fixed interval")
	f.IntVar(&flags.cfg.MaxRetries, "max-retries", 0, "Give up on a request after this many failed retries (0 retries forever)")
	f.IntVar(&flags.errorBackoff, "error-backoff", int(defaults.ErrorBackoff.Seconds()), "Seconds to wait after a failed request")
	f.IntVar(&flags.rateLimitBackoff, "rate-limit-backoff", int(defaults.RateLimitBackoff.Seconds()), "Seconds to wait after a 429 without Retry-After")
	f.Float64Var(&flags.cfg.RequestsPerSecond, "rps", 0, "Client-side request rate limit (0 disables)")
	f.StringVar(&flags.cfg.LogLevel, "log-level", defaults.LogLevel, "Log level (debug, info, warn, error)")
	f.StringVar(&flags.cfg.LogFormat, "log-format", defaults.LogFormat, "Log format (console, text, json)")
	f.StringVar(&flags.cfg.MetricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address, e.g. :9090")
	f.StringVar(&flags.cfg.S3Bucket, "s3-bucket", "", "Mirror each export to this S3 bucket")
	f.StringVar(&flags.cfg.S3Prefix, "s3-prefix", "", "Key prefix inside the S3 bucket")
	f.StringVar(&flags.cfg.S3Region, "s3-region", "", "S3 region")
	f.StringVar(&flags.cfg.S3Endpoint, "s3-endpoint", "", "S3-compatible endpoint (path-style addressing)")
	f.StringVar(&flags.envFile, "env-file", ".env", "Load ZENEXPORT_* variables from this file if it exists")
	f.SetNormalizeFunc(normalizeFlagName)

	rootCmd.PersistentFlags().StringVarP(&profile, "profile", "p", "", "Config profile to use")
	rootCmd.PersistentFlags().StringVarP(&output, "output", "o", "table", "Output format of informational commands (table, json)")

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newCompletionCmd())

	return rootCmd
}

// normalizeFlagName accepts --outdir for --out-dir.
func normalizeFlagName(_ *pflag.FlagSet, name string) pflag.NormalizedName {
	if name == "outdir" {
		name = "out-dir"
	}
	return pflag.NormalizedName(name)
}

// resolveConfig applies defaults, then the profile, then the environment,
// then explicitly set flags, and validates the result.
func resolveConfig(fs *pflag.FlagSet, flags *rootFlags, profileName string) (*config.Config, error) {
	if err := config.LoadDotEnv(flags.envFile); err != nil {
		return nil, err
	}

	cfg := config.Defaults()
	uc, err := loadUserConfigOrEmpty()
	if err != nil {
		return nil, err
	}
	p, err := uc.ActiveProfile(profileName)
	if err != nil {
		return nil, err
	}
	p.Apply(cfg)

	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}

	var flagErr error
	fs.Visit(func(f *pflag.Flag) {
		if err := applyFlag(cfg, flags, f.Name); err != nil && flagErr == nil {
			flagErr = err
		}
	})
	if flagErr != nil {
		return nil, flagErr
	}

	if cfg.BaseURL != "" {
		if err := validateBaseURL(cfg.BaseURL); err != nil {
			return nil, err
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyFlag(cfg *config.Config, flags *rootFlags, name string) error {
	src := &flags.cfg
	switch name {
	case "subdomain":
		cfg.Subdomain = src.Subdomain
	case "email":
		cfg.Email = src.Email
	case "token":
		cfg.Token = src.Token
	case "base-url":
		cfg.BaseURL = src.BaseURL
	case "out-dir":
		cfg.OutDir = src.OutDir
	case "format":
		cfg.Format = src.Format
	case "start-time":
		cfg.StartTime = src.StartTime
	case "end-time":
		cfg.EndTime = src.EndTime
	case "continuous":
		cfg.Continuous = src.Continuous
	case "schedule":
		cfg.Schedule = src.Schedule
	case "max-retries":
		cfg.MaxRetries = src.MaxRetries
	case "rps":
		cfg.RequestsPerSecond = src.RequestsPerSecond
	case "log-level":
		cfg.LogLevel = src.LogLevel
	case "log-format":
		cfg.LogFormat = src.LogFormat
	case "metrics-addr":
		cfg.MetricsAddr = src.MetricsAddr
	case "s3-bucket":
		cfg.S3Bucket = src.S3Bucket
	case "s3-prefix":
		cfg.S3Prefix = src.S3Prefix
	case "s3-region":
		cfg.S3Region = src.S3Region
	case "s3-endpoint":
		cfg.S3Endpoint = src.S3Endpoint
	case "interval":
		return setSeconds(&cfg.Interval, flags.interval, name)
	case "error-backoff":
		return setSeconds(&cfg.ErrorBackoff, flags.errorBackoff, name)
	case "rate-limit-backoff":
		return setSeconds(&cfg.RateLimitBackoff, flags.rateLimitBackoff, name)
	}
	return nil
}

func newCompletionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(os.Stdout)
			case "zsh":
				return cmd.Root().GenZshCompletion(os.Stdout)
			case "fish":
				return cmd.Root().GenFishCompletion(os.Stdout, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(os.Stdout)
			default:
				return fmt.Errorf("unsupported shell: %s", args[0])
			}
		},
	}
	return cmd
}
