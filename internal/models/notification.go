package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// NotificationType identifies what triggered a notification.
type NotificationType string

const (
	NotificationLike           NotificationType = "like"
	NotificationFollow         NotificationType = "follow"
	NotificationComment        NotificationType = "comment"
	NotificationCommentDeleted NotificationType = "comment_deleted"
	NotificationGroupJoin      NotificationType = "group_join"
)

// Notification is an inbox entry. Exactly one row exists per recipient per event.
type Notification struct {
	ID             string           `gorm:"primaryKey;size:36" json:"id"`
	RecipientID    string           `gorm:"size:36;not null;index:idx_notifications_recipient,priority:1" json:"recipient_id"`
	SenderID       string           `gorm:"size:36;not null" json:"sender_id"`
	SenderName     string           `json:"sender_name"`
	SenderPhotoURL string           `gorm:"type:text" json:"sender_photo_url"`
	Type           NotificationType `gorm:"size:32;not null" json:"type"`
	SubjectID      string           `gorm:"size:36" json:"subject_id,omitempty"`
	SubjectTitle   string           `json:"subject_title,omitempty"`
	Read           bool             `gorm:"column:is_read;default:false;index:idx_notifications_recipient,priority:2" json:"read"`
	CreatedAt      time.Time        `gorm:"index" json:"created_at"`
}

func (n *Notification) BeforeCreate(tx *gorm.DB) error {
	if n.ID == "" {
		n.ID = generateUUID()
	}
	return nil
}

func generateUUID() string {
	return uuid.New().String()
}

// All returns every model in migration order.
func All() []interface{} {
	return []interface{}{
		&User{},
		&Follow{},
		&PasswordReset{},
		&Project{},
		&ProjectLike{},
		&Comment{},
		&Group{},
		&GroupMember{},
		&Discussion{},
		&Reply{},
		&Notification{},
	}
}
