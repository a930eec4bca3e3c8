// Package trigger runs the scheduled alert pipelines: a daily pass for
// tasks due today plus the overdue sweep, a weekly pass for the week
// ahead, and ad-hoc free-text queries.
package trigger

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/nhle/task-alerts/internal/civiltime"
	"github.com/nhle/task-alerts/internal/deliver"
	"github.com/nhle/task-alerts/internal/model"
	"github.com/nhle/task-alerts/internal/search"
)

// overdueLookbackDays bounds how far back the daily overdue sweep
// fetches tasks.
const overdueLookbackDays = 90

// TaskSource provides tasks to the pipelines. Satisfied by
// workspace.Manager.
type TaskSource interface {
	TasksDueInRange(ctx context.Context, start, end time.Time) ([]model.Task, error)
	AllTasks(ctx context.Context) ([]model.Task, error)
}

// AlertGenerator builds and persists alerts. Satisfied by
// alert.Generator.
type AlertGenerator interface {
	Generate(ctx context.Context, tasks []model.Task, requested model.AlertType, persist bool) ([]model.TaskAlert, error)
	MarkManySent(ctx context.Context, ids []string) error
}

// Pruner removes aged alert rows. Satisfied by the alert stores.
type Pruner interface {
	PruneAlertsBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// Config holds the scheduler's cron expressions and delivery target.
type Config struct {
	// DailySpec and WeeklySpec are standard five-field cron expressions,
	// evaluated in the calculator's timezone.
	DailySpec  string
	WeeklySpec string

	// Channel is the Slack channel alerts are posted to.
	Channel string

	// RetentionDays controls how long alert rows are kept. Zero disables
	// pruning.
	RetentionDays int
}

// Scheduler owns the cron runner and the alert pipelines.
type Scheduler struct {
	calc      *civiltime.Calculator
	source    TaskSource
	gen       AlertGenerator
	deliverer deliver.Deliverer
	engine    *search.Engine
	pruner    Pruner
	cfg       Config

	cron *cron.Cron
	now  func() time.Time
}

// Option customizes a Scheduler.
type Option func(*Scheduler)

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

// NewScheduler wires the pipelines together. pruner may be nil when
// retention is disabled.
func NewScheduler(
	calc *civiltime.Calculator,
	source TaskSource,
	gen AlertGenerator,
	deliverer deliver.Deliverer,
	engine *search.Engine,
	pruner Pruner,
	cfg Config,
	opts ...Option,
) *Scheduler {
	s := &Scheduler{
		calc:      calc,
		source:    source,
		gen:       gen,
		deliverer: deliverer,
		engine:    engine,
		pruner:    pruner,
		cfg:       cfg,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start registers the cron jobs and begins running them. The returned
// error covers invalid cron expressions only; job failures are logged.
func (s *Scheduler) Start(ctx context.Context) error {
	s.cron = cron.New(cron.WithLocation(s.calc.Location()))

	if _, err := s.cron.AddFunc(s.cfg.DailySpec, func() {
		if err := s.RunDaily(ctx); err != nil {
			log.Printf("daily alert run failed: %v", err)
		}
	}); err != nil {
		return fmt.Errorf("registering daily job %q: %w", s.cfg.DailySpec, err)
	}

	if _, err := s.cron.AddFunc(s.cfg.WeeklySpec, func() {
		if err := s.RunWeekly(ctx); err != nil {
			log.Printf("weekly alert run failed: %v", err)
		}
	}); err != nil {
		return fmt.Errorf("registering weekly job %q: %w", s.cfg.WeeklySpec, err)
	}

	s.cron.Start()
	return nil
}

// Stop halts the cron runner and waits for any running job to finish.
func (s *Scheduler) Stop() {
	if s.cron != nil {
		<-s.cron.Stop().Done()
	}
}

// RunDaily generates and delivers alerts for tasks due today, plus an
// overdue sweep over the lookback window, then prunes aged rows.
func (s *Scheduler) RunDaily(ctx context.Context) error {
	now := s.now()
	dayStart := s.calc.StartOfDay(now)
	dayEnd := s.calc.EndOfDay(now)

	todayTasks, err := s.source.TasksDueInRange(ctx, dayStart, dayEnd)
	if err != nil {
		return fmt.Errorf("fetching tasks due today: %w", err)
	}

	alerts, err := s.gen.Generate(ctx, todayTasks, model.AlertDueToday, true)
	if err != nil {
		return fmt.Errorf("generating due-today alerts: %w", err)
	}

	lookbackStart := dayStart.AddDate(0, 0, -overdueLookbackDays)
	overdueTasks, err := s.source.TasksDueInRange(
		ctx, lookbackStart, dayStart.Add(-time.Millisecond),
	)
	if err != nil {
		return fmt.Errorf("fetching overdue tasks: %w", err)
	}

	overdueAlerts, err := s.gen.Generate(ctx, overdueTasks, model.AlertOverdue, true)
	if err != nil {
		return fmt.Errorf("generating overdue alerts: %w", err)
	}
	alerts = append(alerts, overdueAlerts...)

	if err := s.dispatch(ctx, alerts); err != nil {
		return err
	}

	s.pruneAged(ctx, now)
	return nil
}

// RunWeekly generates and delivers alerts for every task due in the
// current civil week.
func (s *Scheduler) RunWeekly(ctx context.Context) error {
	now := s.now()

	tasks, err := s.source.TasksDueInRange(
		ctx, s.calc.StartOfWeek(now), s.calc.EndOfWeek(now),
	)
	if err != nil {
		return fmt.Errorf("fetching tasks due this week: %w", err)
	}

	alerts, err := s.gen.Generate(ctx, tasks, model.AlertDueThisWeek, true)
	if err != nil {
		return fmt.Errorf("generating weekly alerts: %w", err)
	}

	return s.dispatch(ctx, alerts)
}

// RunQuery runs a free-text search over the full task corpus and posts
// the ranked results as a digest. The alerts store is not touched.
func (s *Scheduler) RunQuery(ctx context.Context, query string) error {
	tasks, err := s.source.AllTasks(ctx)
	if err != nil {
		return fmt.Errorf("fetching task corpus: %w", err)
	}

	results := s.engine.Search(query, tasks)
	matched := make([]model.Task, 0, len(results))
	for _, r := range results {
		matched = append(matched, r.Task)
	}

	title := fmt.Sprintf("Results for %q", query)
	if err := s.deliverer.DeliverDigest(ctx, s.cfg.Channel, title, matched); err != nil {
		return fmt.Errorf("delivering query results: %w", err)
	}
	return nil
}

// dispatch posts a batch and stamps it sent. Alerts stay unsent when
// delivery fails, so the next run can retry them.
func (s *Scheduler) dispatch(ctx context.Context, alerts []model.TaskAlert) error {
	if len(alerts) == 0 {
		return nil
	}

	if err := s.deliverer.DeliverAlerts(ctx, s.cfg.Channel, alerts); err != nil {
		return fmt.Errorf("delivering alerts: %w", err)
	}

	ids := make([]string, 0, len(alerts))
	for _, a := range alerts {
		ids = append(ids, a.ID)
	}
	if err := s.gen.MarkManySent(ctx, ids); err != nil {
		return fmt.Errorf("marking alerts sent: %w", err)
	}
	return nil
}

func (s *Scheduler) pruneAged(ctx context.Context, now time.Time) {
	if s.pruner == nil || s.cfg.RetentionDays <= 0 {
		return
	}

	cutoff := now.AddDate(0, 0, -s.cfg.RetentionDays)
	n, err := s.pruner.PruneAlertsBefore(ctx, cutoff)
	if err != nil {
		log.Printf("pruning alerts older than %s: %v", cutoff.Format("2006-01-02"), err)
		return
	}
	if n > 0 {
		log.Printf("pruned %d alerts older than %s", n, cutoff.Format("2006-01-02"))
	}
}
