package services

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"github.com/triplink/triplink-backend/internal/database"
)

// CronService runs the scheduled ledger maintenance jobs
type CronService struct {
	cron   *cron.Cron
	store  database.LedgerStore
	logger *logrus.Logger
	now    func() time.Time
}

// NewCronService creates a new CronService
func NewCronService(store database.LedgerStore, logger *logrus.Logger) *CronService {
	return &CronService{
		cron:   cron.New(cron.WithSeconds()),
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

// Start schedules the ride expiry job. schedule uses the six-field cron
// format with seconds, e.g. "0 */15 * * * *".
func (s *CronService) Start(schedule string) error {
	if _, err := s.cron.AddFunc(schedule, s.expireRidesJob); err != nil {
		return fmt.Errorf("failed to schedule ride expiry job: %w", err)
	}
	s.cron.Start()
	s.logger.WithField("schedule", schedule).Info("Scheduled: deactivate departed rides")
	return nil
}

// Stop waits for a running job to finish
func (s *CronService) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("Cron service stopped")
}

// ExpireRides deactivates every ride whose departure has passed
func (s *CronService) ExpireRides(ctx context.Context) (int64, error) {
	return s.store.DeactivateDepartedRides(ctx, s.now().Unix())
}

func (s *CronService) expireRidesJob() {
	start := time.Now()
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	changed, err := s.ExpireRides(ctx)
	if err != nil {
		s.logger.WithError(err).Error("Ride expiry job failed")
		return
	}
	s.logger.WithFields(logrus.Fields{
		"deactivated": changed,
		"duration_ms": time.Since(start).Milliseconds(),
	}).Info("Ride expiry job finished")
}
