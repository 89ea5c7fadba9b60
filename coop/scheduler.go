package coop

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/pocketbase/pocketbase/core"
	"github.com/robfig/cron/v3"

	"github.com/coop/bachat/pocketbase/google"
)

// Scheduler runs the daily report digest: an insurance expiry summary and
// refund eligibility snapshot in the logs, plus a Google Sheets export of
// the current period when export is enabled.
type Scheduler struct {
	app     core.App
	clock   Clock
	cron    *cron.Cron
	mu      sync.Mutex
	running bool
}

// NewScheduler creates a new scheduler.
func NewScheduler(app core.App) *Scheduler {
	return &Scheduler{
		app:   app,
		clock: SystemClock{},
		cron:  cron.New(),
	}
}

// Start registers the daily digest job and starts the cron loop.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("scheduler already running")
	}

	// Daily digest after the books settle overnight
	_, err := s.cron.AddFunc("0 6 * * *", func() {
		slog.Info("Starting scheduled daily report digest")
		s.runDailyDigest()
	})
	if err != nil {
		return fmt.Errorf("adding daily schedule: %w", err)
	}

	s.cron.Start()
	s.running = true

	slog.Info("Report scheduler started")
	return nil
}

// Stop gracefully stops the scheduler.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}

	slog.Info("Stopping report scheduler")
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.running = false
	slog.Info("Report scheduler stopped")
}

// runDailyDigest computes and logs the date-driven report summaries.
func (s *Scheduler) runDailyDigest() {
	members, err := LoadMembers(s.app)
	if err != nil {
		slog.Error("Daily digest failed to load members", "error", err)
		return
	}

	expiry := BuildInsuranceExpiryReport(members, DefaultExpiryHorizonMonths, s.clock)
	overdue := 0
	for _, row := range expiry {
		if row.DaysToDue <= 0 {
			overdue++
		}
	}

	buckets := PartitionRefundBuckets(members, s.clock)

	slog.Info("Daily report digest",
		"members", len(members),
		"policies_expiring", len(expiry),
		"policies_overdue", overdue,
		"refund_eligible", len(buckets.Eligible),
		"refund_waiting", len(buckets.Waiting),
		"refunded", len(buckets.Refunded),
	)

	if !google.IsEnabled() {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	sheetsService, err := google.NewSheetsClient(ctx)
	if err != nil || sheetsService == nil {
		slog.Error("Daily digest could not create Sheets client", "error", err)
		return
	}

	now := s.clock.Now()
	month := CanonicalMonths[int(now.Month())-1]
	exporter := NewReportExporter(sheetsService, google.GetSpreadsheetID())
	if err := exporter.ExportReports(ctx, members, now.Year(), month, s.clock); err != nil {
		slog.Error("Daily digest export failed", "error", err)
	}
}

// StartReportScheduler creates and starts the scheduler for the app.
func StartReportScheduler(app core.App) error {
	return NewScheduler(app).Start()
}
