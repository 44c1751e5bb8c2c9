package main

import (
	"context"
	"errors"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/okian/vitals/internal/adapters/http/roster"
	"github.com/okian/vitals/internal/adapters/http/submit"
	"github.com/okian/vitals/internal/adapters/http/transport"
	app "github.com/okian/vitals/internal/app"
	"github.com/okian/vitals/internal/config"
	"github.com/okian/vitals/pkg/logger"
	"github.com/okian/vitals/pkg/metrics"
)

// flagValues holds command-line flags. Only flags the user set override
// the loaded configuration.
type flagValues struct {
	configPath string
	baseURL    string
	limit      int
	logLevel   string
	dryRun     bool
}

func main() {
	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := newRootCmd(os.Stdout).ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func newRootCmd(logOut io.Writer) *cobra.Command {
	var fv flagValues
	cmd := &cobra.Command{
		Use:           "vitals",
		Short:         "Fetch the patient roster, score risk and submit the assessment",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), logOut, fv, overrides(cmd, fv))
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&fv.configPath, "config", "", "YAML config file (default $VITALS_CONFIG)")
	flags.StringVar(&fv.baseURL, "base-url", "", "roster API base URL")
	flags.IntVar(&fv.limit, "limit", 0, "patients requested per page")
	flags.StringVar(&fv.logLevel, "log-level", "", "debug, info, warn or error")
	flags.BoolVar(&fv.dryRun, "dry-run", false, "compute and log the assessment without submitting it")
	return cmd
}

// overrides turns the flags the user actually set into config overrides.
func overrides(cmd *cobra.Command, fv flagValues) []config.Override {
	var out []config.Override
	flags := cmd.Flags()
	if flags.Changed("base-url") {
		out = append(out, func(c *config.Config) { c.BaseURL = fv.baseURL })
	}
	if flags.Changed("limit") {
		out = append(out, func(c *config.Config) { c.PageLimit = fv.limit })
	}
	if flags.Changed("log-level") {
		out = append(out, func(c *config.Config) { c.LogLevel = fv.logLevel })
	}
	if flags.Changed("dry-run") {
		out = append(out, func(c *config.Config) { c.DryRun = fv.dryRun })
	}
	return out
}

func run(ctx context.Context, logOut io.Writer, fv flagValues, ov []config.Override) error {
	if err := logger.Init(logger.WithWriter(logOut)); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return err
	}
	defer func() {
		_ = logger.Sync()
	}()

	// Load configuration (defaults -> optional file -> env -> flags)
	cfg, err := config.Load(ctx, fv.configPath, ov...)
	if err != nil {
		logger.Get().Error(ctx, "failed to load config", logger.Error(err))
		return err
	}

	if cfg.LogFormat == "json" {
		if err := logger.Init(logger.WithWriter(logOut), logger.WithJSON(true)); err != nil {
			return err
		}
	}
	log := logger.Get()
	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	metrics.Init(
		metrics.WithMetricsEnabled(cfg.PushgatewayURL != ""),
		metrics.WithCustomLabels(cfg.MetricsLabels),
	)

	client := transport.New(cfg.BaseURL,
		transport.WithAPIKey(cfg.APIKey),
		transport.WithTimeout(cfg.RequestTimeout()),
		transport.WithMaxAttempts(cfg.MaxAttempts),
		transport.WithBackoff(cfg.RetryBaseDelay(), cfg.RetryMaxJitter()),
		transport.WithLogger(log.Named("transport")),
	)
	svc := app.New(
		app.WithLogger(log.Named("runner")),
		app.WithFetcher(roster.NewFetcher(client,
			roster.WithPageLimit(cfg.PageLimit),
			roster.WithMaxPages(cfg.MaxPages),
			roster.WithLogger(log.Named("roster")),
		)),
		app.WithSubmitter(submit.New(client, submit.WithLogger(log.Named("submit")))),
		app.WithDryRun(cfg.DryRun),
	)

	log.Info(ctx, "starting assessment",
		logger.String("run_id", svc.RunID()),
		logger.String("base_url", cfg.BaseURL),
		logger.Int("page_limit", cfg.PageLimit),
		logger.Bool("dry_run", cfg.DryRun))

	_, runErr := svc.Run(ctx)

	if cfg.PushgatewayURL != "" {
		// Push even when the run was interrupted.
		if err := metrics.Push(context.WithoutCancel(ctx), cfg.PushgatewayURL, svc.RunID()); err != nil {
			log.Warn(ctx, "failed to push metrics", logger.String("url", cfg.PushgatewayURL), logger.Error(err))
		}
	}

	if runErr != nil {
		if errors.Is(runErr, submit.ErrSubmit) {
			log.Error(ctx, "assessment not submitted", logger.Error(runErr))
		} else {
			log.Error(ctx, "assessment run failed", logger.Error(runErr))
		}
		return runErr
	}
	return nil
}
