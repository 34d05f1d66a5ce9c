// Package notify writes inbox notifications when users act on each other's content
// (fan-out on write) and serves the recipient's inbox.
package notify

import (
	"context"
	"errors"
	"fmt"

	apperrors "github.com/zfogg/showcase/internal/errors"
	"github.com/zfogg/showcase/internal/logger"
	"github.com/zfogg/showcase/internal/metrics"
	"github.com/zfogg/showcase/internal/models"
	"github.com/zfogg/showcase/internal/queue"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var ErrNotificationNotFound = fmt.Errorf("notification %w", apperrors.ErrNotFound)

// Event describes an action that may notify other users.
type Event struct {
	Type         models.NotificationType
	ActorID      string
	Recipients   []string
	SubjectID    string
	SubjectTitle string
}

// Pusher delivers freshly written notifications to connected clients.
type Pusher interface {
	PushNotification(n *models.Notification)
	PushUnreadCount(userID string, unread int64)
}

// Notifier is what the write paths depend on.
type Notifier interface {
	Notify(ctx context.Context, ev Event)
}

// Service fans events out to recipients and serves inboxes.
type Service struct {
	db     *gorm.DB
	pusher Pusher
	queue  *queue.Queue
}

// NewService creates a notification service. Without a queue, Notify writes
// synchronously on the caller's goroutine.
func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

func (s *Service) SetPusher(p Pusher) {
	s.pusher = p
}

// SetQueue moves fan-out onto q's workers.
func (s *Service) SetQueue(q *queue.Queue) {
	s.queue = q
}

// Notify writes one notification per recipient, skipping the actor. It never fails
// the caller: write errors are logged and counted, then dropped.
func (s *Service) Notify(ctx context.Context, ev Event) {
	recipients := Recipients(ev.ActorID, ev.Recipients)
	if len(recipients) == 0 {
		return
	}
	ev.Recipients = recipients

	if s.queue == nil {
		s.deliver(ctx, ev)
		return
	}
	err := s.queue.Submit(&queue.Job{
		Kind: "notify." + string(ev.Type),
		Run: func(jobCtx context.Context) error {
			s.deliver(jobCtx, ev)
			return nil
		},
	})
	if err != nil {
		metrics.Get().NotificationsDropped.Inc()
		logger.Log.Warn("Dropping notification event",
			zap.String("type", string(ev.Type)),
			logger.WithUserID(ev.ActorID),
			zap.Error(err))
	}
}

// Recipients removes the actor and duplicates, keeping first-seen order.
func Recipients(actorID string, candidates []string) []string {
	seen := map[string]bool{actorID: true}
	out := make([]string, 0, len(candidates))
	for _, id := range candidates {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

func (s *Service) deliver(ctx context.Context, ev Event) {
	var actor models.User
	if err := s.db.WithContext(ctx).Select("id", "display_name", "photo_url").
		Where("id = ?", ev.ActorID).First(&actor).Error; err != nil {
		logger.Log.Warn("Notification sender lookup failed", logger.WithUserID(ev.ActorID), zap.Error(err))
	}

	m := metrics.Get()
	for _, recipientID := range ev.Recipients {
		n := &models.Notification{
			RecipientID:    recipientID,
			SenderID:       ev.ActorID,
			SenderName:     actor.DisplayName,
			SenderPhotoURL: actor.PhotoURL,
			Type:           ev.Type,
			SubjectID:      ev.SubjectID,
			SubjectTitle:   ev.SubjectTitle,
		}
		if err := s.db.WithContext(ctx).Create(n).Error; err != nil {
			m.NotificationsFailedTotal.WithLabelValues(string(ev.Type)).Inc()
			logger.Log.Error("Failed to write notification",
				zap.String("type", string(ev.Type)),
				zap.String("recipient_id", recipientID),
				logger.WithUserID(ev.ActorID),
				zap.Error(err))
			continue
		}
		m.NotificationsSentTotal.WithLabelValues(string(ev.Type)).Inc()
		if s.pusher != nil {
			s.pusher.PushNotification(n)
		}
	}
}

// List returns the recipient's notifications, newest first.
func (s *Service) List(ctx context.Context, recipientID string, limit, offset int) ([]models.Notification, error) {
	var out []models.Notification
	err := s.db.WithContext(ctx).
		Where("recipient_id = ?", recipientID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Offset(offset).
		Find(&out).Error
	return out, err
}

// UnreadCount counts unread rows on demand; no counter is stored.
func (s *Service) UnreadCount(ctx context.Context, recipientID string) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("recipient_id = ? AND is_read = ?", recipientID, false).
		Count(&n).Error
	return n, err
}

// MarkRead marks one of the recipient's notifications read. Another user's
// notification is reported as not found.
func (s *Service) MarkRead(ctx context.Context, recipientID, notificationID string) error {
	db := s.db.WithContext(ctx)
	res := db.Model(&models.Notification{}).
		Where("id = ? AND recipient_id = ?", notificationID, recipientID).
		Update("is_read", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		s.pushCount(ctx, recipientID)
		return nil
	}

	var n models.Notification
	err := db.Select("id").Where("id = ? AND recipient_id = ?", notificationID, recipientID).First(&n).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotificationNotFound
	}
	return err
}

// MarkAllRead flips every unread notification of the recipient in one statement
// and returns how many changed.
func (s *Service) MarkAllRead(ctx context.Context, recipientID string) (int64, error) {
	res := s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("recipient_id = ? AND is_read = ?", recipientID, false).
		Update("is_read", true)
	if res.Error != nil {
		return 0, res.Error
	}
	if s.pusher != nil {
		s.pusher.PushUnreadCount(recipientID, 0)
	}
	return res.RowsAffected, nil
}

func (s *Service) pushCount(ctx context.Context, recipientID string) {
	if s.pusher == nil {
		return
	}
	unread, err := s.UnreadCount(ctx, recipientID)
	if err != nil {
		return
	}
	s.pusher.PushUnreadCount(recipientID, unread)
}
