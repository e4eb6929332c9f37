// The worker binary executes the temporal workflows: feed creation,
// scheduled syncs of every feed, and the daily retention sweep.
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/sethvargo/go-envconfig"
	"github.com/sethvargo/go-retry"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
	_ "golang.org/x/crypto/x509roots/fallback"
	_ "modernc.org/sqlite"

	"github.com/jbellamy/veilleur/internal/fetch"
	"github.com/jbellamy/veilleur/internal/ingest"
	"github.com/jbellamy/veilleur/internal/migrations"
	"github.com/jbellamy/veilleur/internal/purge"
	"github.com/jbellamy/veilleur/internal/report"
	"github.com/jbellamy/veilleur/internal/sqlite"
	vworker "github.com/jbellamy/veilleur/internal/worker"
	"github.com/jbellamy/veilleur/internal/youtube"
	"github.com/jbellamy/veilleur/logger"
)

type config struct {
	Database         string `env:"DATABASE, required"`
	TemporalHostPort string `env:"TEMPORAL_HOST_PORT, required"`

	SyncInterval  time.Duration `env:"SYNC_INTERVAL, default=15m"`
	PurgeInterval time.Duration `env:"PURGE_INTERVAL, default=24h"`
	PurgeMaxAge   time.Duration `env:"PURGE_MAX_AGE, default=48h"`
	PurgeMinReads int           `env:"PURGE_MIN_READS, default=20"`

	// When set, the purge summary is posted here instead of logged
	ReportWebhookURL string `env:"REPORT_WEBHOOK_URL"`

	// Which format to use for logging: either text or json
	LoggerFormat string `env:"LOGGER_FORMAT, default=text"`
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	// Parse the config
	var cfg config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		log.Fatalf("error parsing config: %s", err)
	}

	slog.SetDefault(logger.New(cfg.LoggerFormat))

	if err := run(ctx, cfg); err != nil {
		slog.Error("error running", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config) error {
	// Connect to the sqlite db
	dbx, err := sqlx.Open("sqlite", fmt.Sprintf("file:%s?_txlock=immediate&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)", cfg.Database))
	if err != nil {
		return fmt.Errorf("error opening database: %s", err)
	}
	defer dbx.Close()

	// Migrate, always
	if err := migrations.Run(dbx); err != nil {
		return fmt.Errorf("error migrating: %s", err)
	}

	repo := sqlite.New(dbx)

	// Retry until temporal is ready
	var temporalCli client.Client
	if err := retry.Fibonacci(ctx, 1*time.Second, func(ctx context.Context) error {
		c, err := client.Dial(client.Options{
			HostPort: cfg.TemporalHostPort,
		})
		if err != nil {
			return retry.RetryableError(err)
		}
		temporalCli = c

		return nil
	}); err != nil {
		return fmt.Errorf("unable to create temporal client: %s", err)
	}
	defer temporalCli.Close()

	if err := vworker.EnsureDefaultNamespace(ctx, temporalCli.WorkflowService()); err != nil {
		return fmt.Errorf("error ensuring namespace: %s", err)
	}

	var (
		fetcher  = fetch.New(fetch.DefaultTimeout)
		resolver = youtube.NewResolver(fetcher)
		coord    = ingest.New(repo, fetcher, resolver)
		sweeper  = purge.New(repo, cfg.PurgeMaxAge, cfg.PurgeMinReads)
	)

	var sender report.Sender = report.Log{}
	if cfg.ReportWebhookURL != "" {
		sender = report.NewWebhook(cfg.ReportWebhookURL)
	}

	w, err := vworker.NewWorker(ctx, vworker.Config{
		SyncInterval:  cfg.SyncInterval,
		PurgeInterval: cfg.PurgeInterval,
	}, repo, temporalCli, coord, resolver, sweeper, sender)
	if err != nil {
		return fmt.Errorf("error creating worker: %s", err)
	}

	if err := w.Run(worker.InterruptCh()); err != nil {
		return fmt.Errorf("error running worker: %s", err)
	}

	return nil
}
