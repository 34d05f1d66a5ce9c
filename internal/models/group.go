package models

import (
	"time"

	"gorm.io/gorm"
)

// Group membership roles.
const (
	RoleAdmin  = "admin"
	RoleMember = "member"
)

// Group is an interest group that hosts discussions.
type Group struct {
	ID          string    `gorm:"primaryKey;size:36" json:"id"`
	Name        string    `gorm:"not null" json:"name"`
	Description string    `gorm:"type:text" json:"description"`
	CreatorID   string    `gorm:"size:36;not null;index" json:"creator_id"`
	MemberCount int       `gorm:"default:0" json:"member_count"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// GroupMember is both the group's member list entry and the user's group list entry.
type GroupMember struct {
	GroupID  string    `gorm:"primaryKey;size:36" json:"group_id"`
	UserID   string    `gorm:"primaryKey;size:36;index" json:"user_id"`
	Role     string    `gorm:"size:16;not null" json:"role"`
	JoinedAt time.Time `gorm:"autoCreateTime" json:"joined_at"`
}

// ReplySummary is the denormalized latest reply shown in discussion lists.
type ReplySummary struct {
	ReplyID    string    `json:"reply_id"`
	AuthorID   string    `json:"author_id"`
	AuthorName string    `json:"author_name"`
	Excerpt    string    `json:"excerpt"`
	CreatedAt  time.Time `json:"created_at"`
}

// Discussion is a thread inside a group.
type Discussion struct {
	ID           string        `gorm:"primaryKey;size:36" json:"id"`
	GroupID      string        `gorm:"size:36;not null;index" json:"group_id"`
	Title        string        `gorm:"not null" json:"title"`
	Body         string        `gorm:"type:text;not null" json:"body"`
	AuthorID     string        `gorm:"size:36;not null" json:"author_id"`
	AuthorName   string        `json:"author_name"`
	Views        int           `gorm:"default:0" json:"views"`
	Replies      int           `gorm:"default:0" json:"replies"`
	LastActivity time.Time     `gorm:"index" json:"last_activity"`
	LastReply    *ReplySummary `gorm:"type:text;serializer:json" json:"last_reply,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
}

// Reply is one message in a discussion. Replies are ordered by (created_at, id).
type Reply struct {
	ID           string    `gorm:"primaryKey;size:36" json:"id"`
	DiscussionID string    `gorm:"size:36;not null;index:idx_replies_discussion_created,priority:1" json:"discussion_id"`
	AuthorID     string    `gorm:"size:36;not null" json:"author_id"`
	AuthorName   string    `json:"author_name"`
	Body         string    `gorm:"type:text;not null" json:"body"`
	CreatedAt    time.Time `gorm:"index:idx_replies_discussion_created,priority:2" json:"created_at"`
}

func (g *Group) BeforeCreate(tx *gorm.DB) error {
	if g.ID == "" {
		g.ID = generateUUID()
	}
	return nil
}

func (d *Discussion) BeforeCreate(tx *gorm.DB) error {
	if d.ID == "" {
		d.ID = generateUUID()
	}
	return nil
}

func (r *Reply) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = generateUUID()
	}
	return nil
}
