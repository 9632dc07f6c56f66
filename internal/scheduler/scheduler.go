// Package scheduler runs the till's background jobs: the morning stock alert
// sweep and the end-of-day close summary. Both only log; nothing is persisted.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"latiafanny/backend/internal/config"
	"latiafanny/backend/internal/report"
)

const (
	JobStockAlerts = "stock_alerts"
	JobDailyClose  = "daily_close"

	jobTimeout = 30 * time.Second
)

// Reports is the part of the service the jobs read from.
type Reports interface {
	Now() time.Time
	StockAlerts(ctx context.Context) (report.StockAlerts, error)
	DailyReport(ctx context.Context, day time.Time) (report.DailySummary, error)
}

type jobState struct {
	running     bool
	lastStarted time.Time
	lastDone    time.Time
	lastErr     error
}

type Scheduler struct {
	scheduler *gocron.Scheduler
	reports   Reports
	config    config.Scheduler
	logger    zerolog.Logger

	mu   sync.Mutex
	jobs map[string]*jobState
}

func New(reports Reports, cfg config.Scheduler, loc *time.Location, logger zerolog.Logger) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	logger = logger.With().Str("component", "scheduler").Logger()
	logger.Info().
		Str("stock_alert_cron", cfg.StockAlertCron).
		Bool("stock_alert_enabled", cfg.StockAlertEnabled).
		Str("daily_close_cron", cfg.DailyCloseCron).
		Bool("daily_close_enabled", cfg.DailyCloseEnabled).
		Msg("scheduler configuration loaded")

	return &Scheduler{
		scheduler: gocron.NewScheduler(loc),
		reports:   reports,
		config:    cfg,
		logger:    logger,
		jobs: map[string]*jobState{
			JobStockAlerts: {},
			JobDailyClose:  {},
		},
	}
}

// Start registers the enabled jobs and runs them until ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) error {
	if !s.config.StockAlertEnabled && !s.config.DailyCloseEnabled {
		s.logger.Info().Msg("all scheduled jobs disabled by configuration")
		return nil
	}

	if s.config.StockAlertEnabled {
		if err := s.schedule(ctx, s.config.StockAlertCron, JobStockAlerts, s.RunStockAlerts); err != nil {
			return err
		}
	}
	if s.config.DailyCloseEnabled {
		if err := s.schedule(ctx, s.config.DailyCloseCron, JobDailyClose, s.RunDailyClose); err != nil {
			return err
		}
	}

	s.scheduler.StartAsync()

	go func() {
		<-ctx.Done()
		s.logger.Info().Msg("stopping scheduler")
		s.scheduler.Stop()
	}()
	return nil
}

func (s *Scheduler) schedule(ctx context.Context, cron string, name string, run func(context.Context) error) error {
	_, err := s.scheduler.Cron(cron).Do(func() {
		jobCtx, cancel := context.WithTimeout(ctx, jobTimeout)
		defer cancel()
		if err := run(jobCtx); err != nil {
			s.logger.Error().Err(err).Str("job", name).Msg("scheduled job failed")
		}
	})
	if err != nil {
		return errors.Wrapf(err, "schedule %s with %q", name, cron)
	}
	s.logger.Info().Str("job", name).Str("cron", cron).Msg("job scheduled")
	return nil
}

// guard marks name as running. It reports false when a previous run has not
// finished yet.
func (s *Scheduler) guard(name string) (func(error), bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state := s.jobs[name]
	if state.running {
		return nil, false
	}
	state.running = true
	state.lastStarted = time.Now()
	return func(err error) {
		s.mu.Lock()
		defer s.mu.Unlock()
		state.running = false
		state.lastDone = time.Now()
		state.lastErr = err
	}, true
}

// RunStockAlerts logs every low and out-of-stock item using the report's
// fixed threshold.
func (s *Scheduler) RunStockAlerts(ctx context.Context) (err error) {
	done, ok := s.guard(JobStockAlerts)
	if !ok {
		s.logger.Warn().Str("job", JobStockAlerts).Msg("previous run still in progress, skipping")
		return nil
	}
	defer func() { done(err) }()

	alerts, err := s.reports.StockAlerts(ctx)
	if err != nil {
		return errors.Wrap(err, "evaluate stock")
	}
	for _, item := range alerts.OutOfStock {
		s.logger.Warn().Int64("inventory_id", item.ID).Str("item", item.Name).Msg("out of stock")
	}
	for _, item := range alerts.LowStock {
		s.logger.Warn().
			Int64("inventory_id", item.ID).
			Str("item", item.Name).
			Str("quantity", item.Quantity.String()).
			Str("unit", item.Unit).
			Msg("low stock")
	}
	s.logger.Info().
		Int("low_stock", len(alerts.LowStock)).
		Int("out_of_stock", len(alerts.OutOfStock)).
		Msg("stock alert sweep finished")
	return nil
}

// RunDailyClose logs the day's totals as of the time it runs.
func (s *Scheduler) RunDailyClose(ctx context.Context) (err error) {
	done, ok := s.guard(JobDailyClose)
	if !ok {
		s.logger.Warn().Str("job", JobDailyClose).Msg("previous run still in progress, skipping")
		return nil
	}
	defer func() { done(err) }()

	summary, err := s.reports.DailyReport(ctx, s.reports.Now())
	if err != nil {
		return errors.Wrap(err, "build daily summary")
	}

	event := s.logger.Info().
		Str("date", summary.Date.Format("2006-01-02")).
		Str("revenue", summary.TotalRevenue.StringFixed(2)).
		Int("transactions", summary.TotalTransactions)
	if summary.BestSellingItem != nil {
		event = event.Str("best_seller", summary.BestSellingItem.Name).Int("best_seller_units", summary.BestSellingItem.Quantity)
	}
	event.Msg("daily close")
	return nil
}

// JobStatus is the public view of one job. The error text stays in the logs.
type JobStatus struct {
	Running         bool       `json:"running"`
	LastStartedAt   *time.Time `json:"last_started_at,omitempty"`
	LastCompletedAt *time.Time `json:"last_completed_at,omitempty"`
	Failed          bool       `json:"failed"`
	LastError       string     `json:"-"`
}

// Status reports every job, enabled or not.
func (s *Scheduler) Status() map[string]JobStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]JobStatus, len(s.jobs))
	for name, state := range s.jobs {
		status := JobStatus{Running: state.running}
		if !state.lastStarted.IsZero() {
			started := state.lastStarted
			status.LastStartedAt = &started
		}
		if !state.lastDone.IsZero() {
			done := state.lastDone
			status.LastCompletedAt = &done
		}
		if state.lastErr != nil {
			status.Failed = true
			status.LastError = state.lastErr.Error()
		}
		out[name] = status
	}
	return out
}
