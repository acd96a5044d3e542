package app

import (
	"log/slog"

	"github.com/robfig/cron/v3"

	"lakegate/internal/catalog"
)

// ReloadScheduler reloads the catalog snapshot on a cron schedule. A failed
// reload keeps the previous snapshot and is logged, never fatal.
type ReloadScheduler struct {
	cron   *cron.Cron
	logger *slog.Logger
}

// NewReloadScheduler registers the reload job. The schedule expression is
// validated here so a bad expression fails startup instead of silently never
// firing.
func NewReloadScheduler(store *catalog.Store, schedule string, logger *slog.Logger) (*ReloadScheduler, error) {
	c := cron.New()
	if _, err := c.AddFunc(schedule, func() {
		if err := store.Reload(); err != nil {
			logger.Warn("scheduled catalog reload failed", "error", err)
		}
	}); err != nil {
		return nil, err
	}
	return &ReloadScheduler{cron: c, logger: logger}, nil
}

// Start begins the cron scheduler.
func (s *ReloadScheduler) Start() {
	s.cron.Start()
	s.logger.Info("catalog reload scheduler started")
}

// Stop gracefully stops the cron scheduler.
func (s *ReloadScheduler) Stop() {
	s.cron.Stop()
	s.logger.Info("catalog reload scheduler stopped")
}
