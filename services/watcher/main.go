package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/02loveslollipop/rtwqms-watcher/internal/logging"
	"github.com/02loveslollipop/rtwqms-watcher/services/watcher/internal/config"
	"github.com/02loveslollipop/rtwqms-watcher/services/watcher/internal/cpcb"
	"github.com/02loveslollipop/rtwqms-watcher/services/watcher/internal/export"
	"github.com/02loveslollipop/rtwqms-watcher/services/watcher/internal/pipeline"
	"github.com/02loveslollipop/rtwqms-watcher/services/watcher/internal/utils"
)

var flags struct {
	configFile string
	url        string
	outDir     string
	format     string
	dryRun     bool
	strict     bool
	insecure   bool
}

var rootCmd = &cobra.Command{
	Use:   "watcher",
	Short: "Fetch CPCB RTWQMS water-quality readings and export them",
	Long: `watcher downloads the current RTWQMS layer feed, maps parameter names
and units onto their canonical labels and writes the readings to
water_data_<YYYY-MM-DD_HH-MM>.csv in the output directory.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runWatcher,
}

func init() {
	f := rootCmd.Flags()
	f.StringVar(&flags.configFile, "config", "", "path to a YAML config file")
	f.StringVar(&flags.url, "url", "", "feed URL (overrides WATCHER_CURRENT_URL)")
	f.StringVar(&flags.outDir, "out", "", "output directory (overrides WATCHER_OUTPUT_DIR)")
	f.StringVar(&flags.format, "format", "", "export format: csv or xlsx")
	f.BoolVar(&flags.dryRun, "dry-run", false, "fetch and normalize without writing a file")
	f.BoolVar(&flags.strict, "strict", false, "exit non-zero when the fetch fails")
	f.BoolVar(&flags.insecure, "insecure", true, "skip TLS certificate verification")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		slog.Error("watcher failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func runWatcher(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(flags.configFile)
	if err != nil {
		return err
	}
	applyFlags(cmd, &cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := logging.New(logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat})
	if err != nil {
		return err
	}
	logger = logger.With(slog.String("run_id", uuid.NewString()))

	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	ctx, cancel = context.WithTimeout(ctx, cfg.RequestTimeout+10*time.Second)
	defer cancel()

	return run(ctx, cfg, logger)
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	format, err := export.ParseFormat(cfg.Format)
	if err != nil {
		return err
	}

	if cfg.InsecureTLS {
		logger.Warn("TLS certificate verification disabled", slog.String("url", cfg.CurrentURL))
	}

	fetcher := cpcb.NewClient(cpcb.NewHTTPClient(cfg.RequestTimeout, cfg.InsecureTLS), cfg.CurrentURL)
	normalizer := utils.NewDefaultNormalizer(logger)
	exporter := export.New(export.Options{
		Dir:    cfg.OutputDir,
		Format: format,
		Logger: logger,
	})

	runner := pipeline.New(fetcher, normalizer, exporter, pipeline.Options{
		DryRun: cfg.DryRun,
		Strict: cfg.Strict,
		Logger: logger,
	})

	logger.Info("fetching layer feed", slog.String("url", fetcher.URL()), slog.Bool("dry_run", cfg.DryRun))

	res, err := runner.Run(ctx)
	if err != nil {
		return err
	}

	logger.Info("run complete",
		slog.Int("fetched", res.Fetched),
		slog.Int("exported", res.Exported),
		slog.Int("invalid_timestamps", res.InvalidTimestamps),
		slog.String("file", res.File))
	return nil
}

// applyFlags lets explicitly set flags win over file and environment.
func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	f := cmd.Flags()
	if f.Changed("url") {
		cfg.CurrentURL = flags.url
	}
	if f.Changed("out") {
		cfg.OutputDir = flags.outDir
	}
	if f.Changed("format") {
		cfg.Format = flags.format
	}
	if f.Changed("dry-run") {
		cfg.DryRun = flags.dryRun
	}
	if f.Changed("strict") {
		cfg.Strict = flags.strict
	}
	if f.Changed("insecure") {
		cfg.InsecureTLS = flags.insecure
	}
}
