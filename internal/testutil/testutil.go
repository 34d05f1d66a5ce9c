// Package testutil holds fixtures shared by package tests.
package testutil

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/zfogg/showcase/internal/database"
	"github.com/zfogg/showcase/internal/models"
	"gorm.io/gorm"
)

// NewDB returns a migrated in-memory SQLite database that is closed with the test.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()
	db, err := database.Open(":memory:", false)
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

// CreateUser inserts a user named name with a unique username and email.
func CreateUser(t testing.TB, db *gorm.DB, name string) *models.User {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(&models.User{}).Count(&n).Error)
	u := &models.User{
		Email:       fmt.Sprintf("user%d@example.com", n),
		Username:    fmt.Sprintf("user%d", n),
		DisplayName: name,
		PhotoURL:    fmt.Sprintf("https://cdn.example.com/%d.png", n),
	}
	require.NoError(t, db.Create(u).Error)
	return u
}

// CreateProject inserts a project by author created at the given time.
func CreateProject(t testing.TB, db *gorm.DB, author *models.User, title string, public bool, createdAt time.Time) *models.Project {
	t.Helper()
	p := &models.Project{
		Title:          title,
		Description:    "<p>" + title + "</p>",
		IsPublic:       public,
		AuthorID:       author.ID,
		AuthorName:     author.DisplayName,
		AuthorPhotoURL: author.PhotoURL,
		CreatedAt:      createdAt,
	}
	require.NoError(t, db.Create(p).Error)
	return p
}

// Follow inserts a follow edge and bumps both counters.
func Follow(t testing.TB, db *gorm.DB, follower, following *models.User) {
	t.Helper()
	require.NoError(t, db.Create(&models.Follow{FollowerID: follower.ID, FollowingID: following.ID}).Error)
	require.NoError(t, db.Model(&models.User{}).Where("id = ?", follower.ID).
		UpdateColumn("following_count", gorm.Expr("following_count + 1")).Error)
	require.NoError(t, db.Model(&models.User{}).Where("id = ?", following.ID).
		UpdateColumn("follower_count", gorm.Expr("follower_count + 1")).Error)
}
