package models

import (
	"time"

	"gorm.io/gorm"
)

// Theme and font size values accepted in Preferences.
const (
	ThemeLight = "light"
	ThemeDark  = "dark"

	FontSizeSmall  = "small"
	FontSizeMedium = "medium"
	FontSizeLarge  = "large"
)

// Preferences are per-user display settings. They travel with the user record
// instead of living in process-wide state.
type Preferences struct {
	Theme    string `gorm:"size:16" json:"theme"`
	FontSize string `gorm:"size:16" json:"font_size"`
}

// WithDefaults fills empty fields from def.
func (p Preferences) WithDefaults(def Preferences) Preferences {
	if p.Theme == "" {
		p.Theme = def.Theme
	}
	if p.FontSize == "" {
		p.FontSize = def.FontSize
	}
	return p
}

// Valid reports whether every set field holds a known value.
func (p Preferences) Valid() bool {
	switch p.Theme {
	case "", ThemeLight, ThemeDark:
	default:
		return false
	}
	switch p.FontSize {
	case "", FontSizeSmall, FontSizeMedium, FontSizeLarge:
	default:
		return false
	}
	return true
}

// User is a Showcase account. Accounts are never hard-deleted.
type User struct {
	ID          string `gorm:"primaryKey;size:36" json:"id"`
	Email       string `gorm:"uniqueIndex;not null" json:"email"`
	Username    string `gorm:"uniqueIndex;not null" json:"username"`
	DisplayName string `gorm:"not null" json:"display_name"`
	PhotoURL    string `gorm:"type:text" json:"photo_url"`
	Bio         string `gorm:"type:text" json:"bio"`

	PasswordHash *string `gorm:"type:text" json:"-"`
	GoogleID     *string `gorm:"uniqueIndex" json:"-"`

	// TwoFactorSecret is set by setup and only checked at login once
	// TwoFactorEnabled is true.
	TwoFactorSecret  *string `gorm:"type:text" json:"-"`
	TwoFactorEnabled bool    `gorm:"default:false" json:"two_factor_enabled"`

	// Cached projections of the follows table, maintained in the same
	// transaction as the follow row.
	FollowerCount  int `gorm:"default:0" json:"follower_count"`
	FollowingCount int `gorm:"default:0" json:"following_count"`

	Preferences Preferences `gorm:"embedded;embeddedPrefix:pref_" json:"preferences"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Author is the denormalized author snapshot copied onto content rows.
func (u *User) Author() (id, name, photo string) {
	return u.ID, u.DisplayName, u.PhotoURL
}

// Follow is one directed edge of the social graph. The follower's "following"
// set and the followee's "followers" set are both projections of this row.
type Follow struct {
	FollowerID  string    `gorm:"primaryKey;size:36" json:"follower_id"`
	FollowingID string    `gorm:"primaryKey;size:36;index" json:"following_id"`
	CreatedAt   time.Time `json:"created_at"`
}

// PasswordReset is a single-use reset token.
type PasswordReset struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	UserID    string    `gorm:"size:36;index;not null" json:"user_id"`
	Token     string    `gorm:"uniqueIndex;not null" json:"-"`
	ExpiresAt time.Time `gorm:"not null" json:"expires_at"`
	Used      bool      `gorm:"default:false" json:"used"`
	CreatedAt time.Time `json:"created_at"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = generateUUID()
	}
	return nil
}

func (p *PasswordReset) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = generateUUID()
	}
	return nil
}
