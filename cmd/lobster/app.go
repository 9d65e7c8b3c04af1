package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/web3guy0/lobster/internal/cache"
	"github.com/web3guy0/lobster/internal/config"
	"github.com/web3guy0/lobster/internal/database"
	"github.com/web3guy0/lobster/internal/httpx"
	"github.com/web3guy0/lobster/internal/metrics"
	"github.com/web3guy0/lobster/internal/notify"
	"github.com/web3guy0/lobster/internal/scheduler"
)

// app holds the shared dependencies. Each is opened on first use so a
// command only needs the configuration it actually touches.
type app struct {
	debug  bool
	dbPath string
	noPush bool

	cfg     *config.Config
	metrics *metrics.Metrics
	db      *database.Database
	http    *httpx.Client
	cache   cache.Cache
	closers []func() error
}

func newRootCmd() (*cobra.Command, *app) {
	a := &app{}
	root := &cobra.Command{
		Use:           "lobster",
		Short:         "Meme coin scanner, social monitor, price tracker and BSC wallet toolkit",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
	}
	root.PersistentFlags().BoolVar(&a.debug, "debug", false, "enable debug logging")
	root.PersistentFlags().StringVar(&a.dbPath, "db", "", "database path or postgres:// DSN (overrides DATABASE_PATH)")
	root.PersistentFlags().BoolVar(&a.noPush, "no-push", false, "never push reports, only print them")

	root.AddCommand(
		memeCmd(a),
		tweetsCmd(a),
		pricesCmd(a),
		newsCmd(a),
		walletCmd(a),
		dashboardCmd(a),
		pushCmd(a),
	)
	return root, a
}

func (a *app) setup() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if a.dbPath != "" {
		cfg.DatabasePath = a.dbPath
	}
	if a.debug {
		cfg.Debug = true
	}
	if cfg.Debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	a.cfg = cfg
	a.metrics = metrics.New()
	return nil
}

func (a *app) close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}

func (a *app) database() (*database.Database, error) {
	if a.db != nil {
		return a.db, nil
	}
	db, err := database.New(a.cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	a.db = db
	a.closers = append(a.closers, db.Close)
	return db, nil
}

func (a *app) httpClient() *httpx.Client {
	if a.http == nil {
		opts := httpx.DefaultOptions()
		opts.RPS = a.cfg.HTTPRPS
		opts.Burst = max(int(a.cfg.HTTPRPS), 1)
		opts.Recorder = a.metrics
		a.http = httpx.New(opts)
	}
	return a.http
}

// responseCache is redis when REDIS_URL is set and reachable, memory otherwise
func (a *app) responseCache(ctx context.Context) cache.Cache {
	if a.cache != nil {
		return a.cache
	}
	a.cache = cache.NewMemory()
	if a.cfg.RedisURL != "" {
		r, err := cache.DialRedis(ctx, a.cfg.RedisURL)
		if err != nil {
			log.Warn().Err(err).Msg("Redis unavailable, using in-memory cache")
		} else {
			a.cache = r
			a.closers = append(a.closers, r.Close)
		}
	}
	return a.cache
}

func (a *app) notifier() (notify.Notifier, error) {
	if !a.cfg.TelegramEnabled() {
		return nil, nil
	}
	return notify.NewTelegram(a.cfg.TelegramToken, a.cfg.TelegramChatID)
}

// pushRun is one finished run offered to the push scheduler
type pushRun struct {
	kind     string
	title    string
	body     string
	reportID string
	active   int
	fresh    int
}

// push delivers a run through the notifier when the scheduler for its kind
// allows it.
func (a *app) push(ctx context.Context, run pushRun) error {
	if a.noPush {
		log.Debug().Str("kind", run.kind).Msg("Push disabled by --no-push")
		return nil
	}
	db, err := a.database()
	if err != nil {
		return err
	}
	sch, err := scheduler.New(run.kind, db)
	if err != nil {
		return err
	}
	ok, err := sch.ShouldPush(run.active, run.fresh)
	if err != nil {
		return err
	}
	if !ok {
		a.metrics.PushesTotal.WithLabelValues("skipped").Inc()
		log.Info().Str("kind", run.kind).Msg("⏸️ Push skipped: " + sch.Status())
		return nil
	}

	n, err := a.notifier()
	if err != nil {
		return err
	}
	if n == nil {
		a.metrics.PushesTotal.WithLabelValues("skipped").Inc()
		log.Info().Str("kind", run.kind).Msg("Telegram not configured, report printed only")
		return nil
	}
	if err := n.Send(ctx, run.title, run.body); err != nil {
		a.metrics.PushesTotal.WithLabelValues("failed").Inc()
		return fmt.Errorf("push %s: %w", run.kind, err)
	}
	a.metrics.PushesTotal.WithLabelValues("sent").Inc()

	if err := sch.MarkPushed(); err != nil {
		return err
	}
	if run.reportID != "" {
		if err := db.MarkReportPushed(run.reportID); err != nil {
			return fmt.Errorf("mark report pushed: %w", err)
		}
	}
	return nil
}

// printReport writes a report to stdout; logs stay on stderr
func printReport(text string) {
	fmt.Fprintln(os.Stdout, text)
}
