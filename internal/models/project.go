package models

import (
	"time"

	"gorm.io/gorm"
)

// Project is a portfolio post. Description is rich text stored verbatim.
type Project struct {
	ID          string `gorm:"primaryKey;size:36" json:"id"`
	Title       string `gorm:"not null" json:"title"`
	Description string `gorm:"type:text;not null" json:"description"`
	RepoURL     string `gorm:"type:text" json:"repo_url,omitempty"`
	DemoURL     string `gorm:"type:text" json:"demo_url,omitempty"`
	ImageURL    string `gorm:"type:text" json:"image_url,omitempty"`
	IsPublic    bool   `gorm:"not null;index" json:"is_public"`

	AuthorID       string `gorm:"size:36;not null;index" json:"author_id"`
	AuthorName     string `json:"author_name"`
	AuthorPhotoURL string `gorm:"type:text" json:"author_photo_url"`

	LikeCount    int `gorm:"default:0" json:"like_count"`
	CommentCount int `gorm:"default:0" json:"comment_count"`

	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ProjectLike records that a user likes a project. The user's liked set is a
// projection of these rows.
type ProjectLike struct {
	UserID    string    `gorm:"primaryKey;size:36" json:"user_id"`
	ProjectID string    `gorm:"primaryKey;size:36;index" json:"project_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Comment on a project.
type Comment struct {
	ID             string    `gorm:"primaryKey;size:36" json:"id"`
	ProjectID      string    `gorm:"size:36;not null;index" json:"project_id"`
	AuthorID       string    `gorm:"size:36;not null;index" json:"author_id"`
	AuthorName     string    `json:"author_name"`
	AuthorPhotoURL string    `gorm:"type:text" json:"author_photo_url"`
	Body           string    `gorm:"type:text;not null" json:"body"`
	CreatedAt      time.Time `gorm:"index" json:"created_at"`
}

func (p *Project) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = generateUUID()
	}
	return nil
}

func (c *Comment) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = generateUUID()
	}
	return nil
}
