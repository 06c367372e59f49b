package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/UnknownOlympus/wardtagger/internal/actionnetwork"
	"github.com/UnknownOlympus/wardtagger/internal/config"
	"github.com/UnknownOlympus/wardtagger/internal/geocoding"
	"github.com/UnknownOlympus/wardtagger/internal/metrics"
	"github.com/UnknownOlympus/wardtagger/internal/models"
	"github.com/UnknownOlympus/wardtagger/internal/repository"
	"github.com/UnknownOlympus/wardtagger/internal/resolver"
	"github.com/UnknownOlympus/wardtagger/internal/service"
	"github.com/UnknownOlympus/wardtagger/internal/wards"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

const pushTimeout = 10 * time.Second

// options are the command line flags.
type options struct {
	configPath string
	apiKey     string
	minSqFeet  float64
	since      string
	memberID   string
	verbosity  int
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	var opts options

	cmd := &cobra.Command{
		Use:   "ward-tagger",
		Short: "Updates the Chicago ward tags of Action Network members",
		Long: "Resolves the ward of every member modified since the last run, from the ward custom field, " +
			"the geocoded street address or the zip code, and replaces the member's ward tags accordingly.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(opts.configPath)
			if err != nil {
				fmt.Fprintln(stderr, err)
				return err
			}
			if cmd.Flags().Changed("api-key") {
				cfg.APIKey = opts.apiKey
			}
			if cmd.Flags().Changed("min-sqft") {
				cfg.MinSqFeet = opts.minSqFeet
			}

			logger := setupLogger(stderr, cfg.Env, opts.verbosity)

			if err = run(cmd.Context(), cfg, opts, stdout, logger); err != nil {
				logger.ErrorContext(cmd.Context(), "Ward tagging failed", "error", err)
				return err
			}

			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.configPath, "config", "", "path to the TOML config file (default ./config.toml)")
	flags.StringVar(&opts.apiKey, "api-key", "", "Action Network API key of the group")
	flags.Float64Var(&opts.minSqFeet, "min-sqft", 0,
		"minimum square feet a zip code must overlap a ward for its members to be tagged with the ward")
	flags.StringVar(&opts.since, "since", "",
		"only tag members modified since this ISO 8601 date (default: time of the last run)")
	flags.StringVar(&opts.memberID, "member", "", "tag only the member with this Action Network identifier")
	flags.CountVarP(&opts.verbosity, "verbose", "v", "log info messages, or debug messages when repeated")

	return cmd
}

// run wires the components together and performs one batch or single-member run.
// The summary JSON is written to out.
func run(ctx context.Context, cfg *config.Config, opts options, out io.Writer, logger *slog.Logger) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	var since *time.Time
	switch {
	case opts.since != "":
		parsed, err := config.ParseSince(opts.since)
		if err != nil {
			return fmt.Errorf("invalid --since: %w", err)
		}
		since = &parsed
	case opts.memberID == "":
		since = config.GetLastRun(cfg.StateDir, logger)
	}

	reg := prometheus.NewRegistry()
	appMetrics := metrics.NewMetrics(reg)

	store, err := wards.Load(cfg.DataDir)
	if err != nil {
		return fmt.Errorf("failed to load ward data: %w", err)
	}
	logger.DebugContext(ctx, "Ward data loaded", "wards", store.NumWards())

	repo, err := repository.Open(ctx, repository.Options{
		Driver:   cfg.Cache.Driver,
		DSN:      cfg.Cache.DSN,
		StateDir: cfg.StateDir,
	}, logger)
	if err != nil {
		return fmt.Errorf("failed to open cache: %w", err)
	}
	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			logger.WarnContext(ctx, "Failed to close cache", "error", closeErr)
		}
	}()

	provider, err := geocoding.NewProvider(geocoding.ProviderConfig{
		Type:      geocoding.ProviderType(cfg.Geocoder.Provider),
		APIKey:    cfg.Geocoder.APIKey,
		RateLimit: cfg.Geocoder.RateLimit,
		Timeout:   cfg.Geocoder.Timeout,
		Logger:    logger,
	})
	if err != nil {
		return fmt.Errorf("failed to create geocoding provider: %w", err)
	}
	logger.InfoContext(ctx, "Geocoding provider initialized", "type", cfg.Geocoder.Provider)

	geocoder := geocoding.NewGeocoder(repo, provider, cfg.Geocoder.Provider, cfg.Geocoder.Timeout, appMetrics, logger)
	wardResolver := resolver.New(store, geocoder, cfg.MinSqFeet, logger)
	client := actionnetwork.NewClient(
		cfg.ActionNetwork.BaseURL, cfg.APIKey, cfg.ActionNetwork.Timeout, cfg.ActionNetwork.RateLimit, logger,
	)
	tagger := service.NewTagger(client, wardResolver, repo, appMetrics, logger)

	startedAt := time.Now()
	var summary models.TaggingsSummary
	if opts.memberID != "" {
		summary, err = tagger.RunMember(ctx, opts.memberID)
	} else {
		summary, err = tagger.RunBatch(ctx, since)
	}
	pushMetrics(ctx, cfg.Metrics.PushgatewayURL, reg, logger)
	if err != nil {
		return err
	}

	if opts.memberID == "" {
		if err = config.SetLastRun(cfg.StateDir, startedAt); err != nil {
			logger.ErrorContext(ctx, "Failed to store last run", "error", err)
		}
	}

	text, err := summary.ToJSON()
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, text)

	return err
}

// pushMetrics sends the run metrics to the Pushgateway when one is configured.
// A failed push never fails the run.
func pushMetrics(ctx context.Context, url string, gatherer prometheus.Gatherer, logger *slog.Logger) {
	if url == "" {
		return
	}

	// The run context may already be cancelled by an interrupt.
	pushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), pushTimeout)
	defer cancel()

	if err := metrics.Push(pushCtx, url, gatherer); err != nil {
		if !errors.Is(err, context.DeadlineExceeded) {
			logger.ErrorContext(ctx, "Failed to push metrics", "url", url, "error", err)
			return
		}
		logger.ErrorContext(ctx, "Timed out pushing metrics", "url", url)
	}
}
