// Package cleanup periodically removes rows that are no longer useful:
// spent or expired password reset tokens and old read notifications.
package cleanup

import (
	"context"
	"sync"
	"time"

	"github.com/zfogg/showcase/internal/logger"
	"github.com/zfogg/showcase/internal/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Stats counts what one sweep deleted.
type Stats struct {
	ResetTokens   int64
	Notifications int64
}

type Service struct {
	db        *gorm.DB
	interval  time.Duration
	retention time.Duration
	now       func() time.Time

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewService sweeps every interval. Read notifications older than retention are
// removed; a non-positive retention keeps them forever.
func NewService(db *gorm.DB, interval, retention time.Duration) *Service {
	return &Service{db: db, interval: interval, retention: retention, now: time.Now}
}

// Start runs a sweep immediately, then on every tick until Stop.
func (s *Service) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.wg.Add(1)
	go s.run(ctx)
	logger.Log.Info("Cleanup service started", zap.Duration("interval", s.interval))
}

func (s *Service) Stop(context.Context) error {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
	return nil
}

func (s *Service) run(ctx context.Context) {
	defer s.wg.Done()
	s.sweepAndLog(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.sweepAndLog(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (s *Service) sweepAndLog(ctx context.Context) {
	start := time.Now()
	stats, err := s.Sweep(ctx)
	if err != nil {
		if ctx.Err() == nil {
			logger.ErrorWithFields("Cleanup sweep failed", err)
		}
		return
	}
	if stats.ResetTokens > 0 || stats.Notifications > 0 {
		logger.Log.Info("Cleanup sweep finished",
			zap.Int64("reset_tokens", stats.ResetTokens),
			zap.Int64("notifications", stats.Notifications),
			zap.Duration("took", time.Since(start)),
		)
	}
}

// Sweep deletes used or expired reset tokens and read notifications past retention.
// Unread notifications are never removed.
func (s *Service) Sweep(ctx context.Context) (Stats, error) {
	var stats Stats
	now := s.now().UTC()
	db := s.db.WithContext(ctx)

	res := db.Where("used = ? OR expires_at < ?", true, now).Delete(&models.PasswordReset{})
	if res.Error != nil {
		return stats, res.Error
	}
	stats.ResetTokens = res.RowsAffected

	if s.retention > 0 {
		res = db.Where("is_read = ? AND created_at < ?", true, now.Add(-s.retention)).Delete(&models.Notification{})
		if res.Error != nil {
			return stats, res.Error
		}
		stats.Notifications = res.RowsAffected
	}
	return stats, nil
}
