package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/capitoldata/congress-mirror/client"
	"github.com/capitoldata/congress-mirror/config"
	"github.com/capitoldata/congress-mirror/ingest"
	"github.com/capitoldata/congress-mirror/metrics"
	"github.com/capitoldata/congress-mirror/store"
)

var (
	configFile string
	congress   int
	batchSize  int
	debug      bool
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	rootCmd := &cobra.Command{
		Use:   "congress-mirror",
		Short: "Mirror the Congress API into Postgres",
		Long: `congress-mirror incrementally synchronizes bills, members and
committees from the Congress API into a normalized Postgres schema.

Runs are idempotent and resumable: each batch commits atomically with its
watermarks, so a killed process resumes from the right place on the next run.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if debug {
				zerolog.SetGlobalLevel(zerolog.DebugLevel)
			} else {
				zerolog.SetGlobalLevel(zerolog.InfoLevel)
			}
		},
	}
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Path to config file")
	rootCmd.PersistentFlags().IntVar(&congress, "congress", 0, "Target congress number (overrides config)")
	rootCmd.PersistentFlags().IntVar(&batchSize, "batch-size", 0, "Batch size / fetch concurrency (overrides config)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")

	syncCmd := &cobra.Command{
		Use:   "sync",
		Short: "Run one synchronization pass for an entity family",
	}
	syncCmd.AddCommand(
		newSyncCommand("bills", "Sync one congress's bills and their sub-resources",
			func(ctx context.Context, o *ingest.Orchestrator) (*ingest.Summary, error) {
				return o.SyncBills(ctx)
			}),
		newSyncCommand("members", "Sync congressional members",
			func(ctx context.Context, o *ingest.Orchestrator) (*ingest.Summary, error) {
				return o.SyncMembers(ctx)
			}),
		newSyncCommand("committees", "Sync the committee tree and committee reports",
			func(ctx context.Context, o *ingest.Orchestrator) (*ingest.Summary, error) {
				return o.SyncCommittees(ctx)
			}),
	)
	rootCmd.AddCommand(syncCmd)

	schemaCmd := &cobra.Command{
		Use:   "schema",
		Short: "Manage the mirror schema",
	}
	schemaCmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Apply the mirror DDL (idempotent)",
		Run: func(cmd *cobra.Command, args []string) {
			cfg := mustLoadConfig()
			ctx := cmd.Context()
			st, err := store.New(ctx, cfg.DatabaseURL)
			if err != nil {
				log.Fatal().Err(err).Msg("Failed to connect to database")
			}
			defer st.Close()
			if err := st.InitSchema(ctx); err != nil {
				log.Fatal().Err(err).Msg("Failed to apply schema")
			}
			log.Info().Msg("Schema applied")
		},
	})
	rootCmd.AddCommand(schemaCmd)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newSyncCommand(family, short string, run func(context.Context, *ingest.Orchestrator) (*ingest.Summary, error)) *cobra.Command {
	return &cobra.Command{
		Use:   family,
		Short: short,
		Run: func(cmd *cobra.Command, args []string) {
			cfg := mustLoadConfig()
			ctx := cmd.Context()

			st, err := store.New(ctx, cfg.DatabaseURL)
			if err != nil {
				log.Fatal().Err(err).Msg("Failed to connect to database")
			}
			defer st.Close()

			api := client.New(client.Options{
				BaseURL:       cfg.BaseURL,
				APIKey:        cfg.APIKey,
				PageSize:      cfg.PageSize,
				PageDelay:     cfg.PageDelay,
				RetryAttempts: cfg.RetryAttempts,
				RetryDelay:    cfg.RetryDelay,
				Timeout:       cfg.RequestTimeout,
			})
			if cfg.MetricsAddr != "" {
				go func() {
					log.Info().Str("addr", cfg.MetricsAddr).Msg("Serving run metrics")
					if err := http.ListenAndServe(cfg.MetricsAddr, metrics.Handler()); err != nil {
						log.Error().Err(err).Msg("Metrics listener stopped")
					}
				}()
			}

			orchestrator := ingest.New(api, st, ingest.Options{
				Congress:           cfg.Congress,
				BillTypes:          cfg.BillTypes,
				BatchSize:          cfg.BatchSize,
				FreshnessWindow:    cfg.FreshnessWindow,
				CooldownPeriod:     cfg.CooldownPeriod,
				CurrentMembersOnly: cfg.CurrentMembersOnly,
			})

			if _, err := run(ctx, orchestrator); err != nil {
				log.Fatal().Err(err).Str("family", family).Msg("Sync run failed")
			}
		},
	}
}

// mustLoadConfig loads and validates configuration, applying CLI overrides.
// Configuration failures are fatal before any network activity.
func mustLoadConfig() *config.Config {
	cfg, err := config.Load(configFile)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if congress > 0 {
		cfg.Congress = congress
	}
	if batchSize > 0 {
		cfg.BatchSize = batchSize
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}
	return cfg
}
