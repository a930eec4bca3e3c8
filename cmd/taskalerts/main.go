// Command taskalerts monitors monday.com boards for due and overdue
// tasks and posts prioritized alerts to Slack.
//
// Usage:
//
//	taskalerts [-config path]              run the scheduler
//	taskalerts [-config path] daily        run the daily pass once
//	taskalerts [-config path] weekly       run the weekly pass once
//	taskalerts [-config path] query TEXT   search tasks and post results
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/nhle/task-alerts/internal/alert"
	"github.com/nhle/task-alerts/internal/civiltime"
	"github.com/nhle/task-alerts/internal/credential"
	"github.com/nhle/task-alerts/internal/deliver"
	"github.com/nhle/task-alerts/internal/docs"
	"github.com/nhle/task-alerts/internal/model"
	"github.com/nhle/task-alerts/internal/search"
	"github.com/nhle/task-alerts/internal/store"
	"github.com/nhle/task-alerts/internal/trigger"
	"github.com/nhle/task-alerts/internal/workspace"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("taskalerts: %v", err)
	}
}

func run() error {
	// A missing .env file is fine; the environment may already be set.
	_ = godotenv.Load()

	configPath := flag.String("config", model.DefaultConfigPath(), "path to config file")
	flag.Parse()

	cfg, err := model.LoadConfig(*configPath)
	if err != nil {
		return err
	}
	fillCredentials(cfg)

	calc, err := civiltime.NewCalculator(cfg.Timezone)
	if err != nil {
		return fmt.Errorf("loading timezone %q: %w", cfg.Timezone, err)
	}

	ctx, stop := signal.NotifyContext(
		context.Background(), os.Interrupt, syscall.SIGTERM,
	)
	defer stop()

	st, err := openStore(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	manager := workspace.NewManager(cfg.Workspaces, calc)
	manager.Initialize(ctx)
	if manager.WorkspaceCount() == 0 {
		log.Print("no workspaces initialized; alerts will be empty")
	}

	gen := alert.NewGenerator(calc, st, buildCorrelator(cfg))
	deliverer := deliver.NewSlackDeliverer(cfg.Slack.BotToken)

	sched := trigger.NewScheduler(
		calc, manager, gen, deliverer, search.NewEngine(), st,
		trigger.Config{
			DailySpec:     cfg.Schedule.Daily,
			WeeklySpec:    cfg.Schedule.Weekly,
			Channel:       cfg.Slack.Channel,
			RetentionDays: cfg.RetentionDays,
		},
	)

	switch args := flag.Args(); {
	case len(args) == 0:
		return serve(ctx, sched, cfg)
	case args[0] == "daily":
		return sched.RunDaily(ctx)
	case args[0] == "weekly":
		return sched.RunWeekly(ctx)
	case args[0] == "query":
		if len(args) < 2 {
			return fmt.Errorf("usage: taskalerts query TEXT")
		}
		return sched.RunQuery(ctx, strings.Join(args[1:], " "))
	default:
		return fmt.Errorf("unknown command %q", args[0])
	}
}

// serve runs the cron scheduler until the process is signalled.
func serve(ctx context.Context, sched *trigger.Scheduler, cfg *model.AppConfig) error {
	if err := sched.Start(ctx); err != nil {
		return err
	}
	log.Printf("scheduler started: daily %q, weekly %q, timezone %s",
		cfg.Schedule.Daily, cfg.Schedule.Weekly, cfg.Timezone)

	<-ctx.Done()
	log.Print("shutting down")
	sched.Stop()
	return nil
}

// fillCredentials backfills tokens the environment did not provide from
// the system keyring. Keyring misses are not errors; initialization
// reports workspaces that end up without a token.
func fillCredentials(cfg *model.AppConfig) {
	for i := range cfg.Workspaces {
		if cfg.Workspaces[i].APIToken != "" {
			continue
		}
		key := "monday_api_token_" + cfg.Workspaces[i].ID
		if token, err := credential.Get(key); err == nil && token != "" {
			cfg.Workspaces[i].APIToken = token
		}
	}

	if cfg.Slack.BotToken == "" {
		if token, err := credential.Get("slack_bot_token"); err == nil {
			cfg.Slack.BotToken = token
		}
	}
}

// openStore opens the alert store selected by the database config.
func openStore(ctx context.Context, cfg model.DatabaseConfig) (store.AlertStore, error) {
	switch cfg.Driver {
	case "postgres":
		return store.NewPostgresStore(ctx, cfg.DSN)
	case "sqlite", "":
		return store.NewSQLiteStore(cfg.DSN)
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
}

// buildCorrelator wires document correlation, with external search only
// when the drive integration is enabled.
func buildCorrelator(cfg *model.AppConfig) *docs.Correlator {
	var searcher docs.Searcher
	if cfg.Drive.Enabled {
		token := os.Getenv("DRIVE_API_TOKEN")
		if token == "" {
			if t, err := credential.Get("drive_api_token"); err == nil {
				token = t
			}
		}
		searcher = docs.NewDriveClient(cfg.Drive.BaseURL, token)
	}

	opts := []docs.Option{}
	if cfg.Drive.SearchLimit > 0 {
		opts = append(opts, docs.WithSearchLimit(cfg.Drive.SearchLimit))
	}
	return docs.NewCorrelator(searcher, opts...)
}
