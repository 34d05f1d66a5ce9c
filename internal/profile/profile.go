// Package profile serves user profiles and applies profile edits.
package profile

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode"

	apperrors "github.com/zfogg/showcase/internal/errors"
	"github.com/zfogg/showcase/internal/logger"
	"github.com/zfogg/showcase/internal/models"
	"github.com/zfogg/showcase/internal/queue"
	"github.com/zfogg/showcase/internal/repository"
	"github.com/zfogg/showcase/internal/storage"
	"github.com/zfogg/showcase/internal/util"
	"go.uber.org/zap"
)

const (
	maxDisplayName = 50
	maxBio         = 500
)

var ErrUploadsDisabled = fmt.Errorf("photo uploads are not configured: %w", apperrors.ErrBadRequest)

// AuthorRefresher rewrites the author snapshot on content a user wrote.
type AuthorRefresher interface {
	RefreshAuthor(ctx context.Context, userID string) error
}

// UserIndexer keeps the user search index current.
type UserIndexer interface {
	IndexUser(ctx context.Context, u *models.User) error
}

// Profile is a user with their social graph and activity summary.
type Profile struct {
	*models.User
	FollowerIDs     []string `json:"follower_ids"`
	FollowingIDs    []string `json:"following_ids"`
	LikedProjectIDs []string `json:"liked_project_ids"`
	ProjectCount    int64    `json:"project_count"`
	IsFollowing     bool     `json:"is_following"`
	IsSelf          bool     `json:"is_self"`
}

// UpdateInput holds the editable fields. Nil fields are left unchanged.
type UpdateInput struct {
	DisplayName *string             `json:"display_name"`
	Bio         *string             `json:"bio"`
	PhotoURL    *string             `json:"photo_url"`
	Preferences *models.Preferences `json:"preferences"`
}

type Service struct {
	users     repository.UserRepository
	projects  repository.ProjectRepository
	refresher AuthorRefresher
	uploader  storage.AvatarUploader
	indexer   UserIndexer
	queue     *queue.Queue
	defaults  models.Preferences
}

func NewService(users repository.UserRepository, projects repository.ProjectRepository, refresher AuthorRefresher, defaults models.Preferences) *Service {
	return &Service{users: users, projects: projects, refresher: refresher, defaults: defaults}
}

func (s *Service) SetUploader(u storage.AvatarUploader) { s.uploader = u }
func (s *Service) SetIndexer(idx UserIndexer)           { s.indexer = idx }

// SetQueue runs author refreshes in the background.
func (s *Service) SetQueue(q *queue.Queue) { s.queue = q }

// Get looks a user up by id, falling back to username.
func (s *Service) Get(ctx context.Context, viewerID, idOrUsername string) (*Profile, error) {
	user, err := s.users.GetUser(ctx, idOrUsername)
	if errors.Is(err, repository.ErrUserNotFound) {
		user, err = s.users.GetUserByUsername(ctx, idOrUsername)
	}
	if err != nil {
		return nil, err
	}
	user.Preferences = user.Preferences.WithDefaults(s.defaults)

	p := &Profile{User: user, IsSelf: viewerID == user.ID}
	if p.FollowerIDs, err = s.users.FollowerIDs(ctx, user.ID); err != nil {
		return nil, err
	}
	if p.FollowingIDs, err = s.users.FollowingIDs(ctx, user.ID); err != nil {
		return nil, err
	}
	if p.LikedProjectIDs, err = s.projects.LikedProjectIDs(ctx, user.ID); err != nil {
		return nil, err
	}
	if p.ProjectCount, err = s.projects.CountByAuthor(ctx, user.ID); err != nil {
		return nil, err
	}
	for _, id := range p.FollowerIDs {
		if id == viewerID {
			p.IsFollowing = true
			break
		}
	}
	return p, nil
}

// Update applies a profile edit. A changed display name or photo schedules a
// refresh of the author snapshot copied onto the user's content.
func (s *Service) Update(ctx context.Context, userID string, in UpdateInput) (*models.User, error) {
	fields := map[string]interface{}{}
	if in.DisplayName != nil {
		name := strings.TrimSpace(*in.DisplayName)
		if name == "" {
			return nil, apperrors.Invalid("display_name", "Display name is required")
		}
		if len([]rune(name)) > maxDisplayName {
			return nil, apperrors.Invalid("display_name", fmt.Sprintf("Display name cannot exceed %d characters", maxDisplayName))
		}
		fields["display_name"] = name
	}
	if in.Bio != nil {
		if len([]rune(*in.Bio)) > maxBio {
			return nil, apperrors.Invalid("bio", fmt.Sprintf("Bio cannot exceed %d characters", maxBio))
		}
		fields["bio"] = *in.Bio
	}
	if in.PhotoURL != nil {
		fields["photo_url"] = *in.PhotoURL
	}
	if in.Preferences != nil {
		if !in.Preferences.Valid() {
			return nil, apperrors.Invalid("preferences", "Unknown theme or font size")
		}
		fields["pref_theme"] = in.Preferences.Theme
		fields["pref_font_size"] = in.Preferences.FontSize
	}

	before, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(fields) > 0 {
		if err := s.users.UpdateUser(ctx, userID, fields); err != nil {
			return nil, err
		}
	}
	after, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	if after.DisplayName != before.DisplayName || after.PhotoURL != before.PhotoURL {
		s.scheduleRefresh(ctx, userID)
	}
	if s.indexer != nil {
		if err := s.indexer.IndexUser(ctx, after); err != nil {
			logger.WarnWithFields("Failed to index user", err, logger.WithUserID(userID))
		}
	}
	after.Preferences = after.Preferences.WithDefaults(s.defaults)
	return after, nil
}

// UploadPhoto stores a new avatar and points the profile at it.
func (s *Service) UploadPhoto(ctx context.Context, userID string, body io.Reader, size int64, filename string) (*models.User, error) {
	if s.uploader == nil {
		return nil, ErrUploadsDisabled
	}
	if err := util.ValidateImageUpload(filename, size); err != nil {
		return nil, apperrors.Invalid("photo", err.Error())
	}
	res, err := s.uploader.UploadAvatar(ctx, body, size, userID, filename)
	if err != nil {
		return nil, fmt.Errorf("upload photo: %w", err)
	}
	return s.Update(ctx, userID, UpdateInput{PhotoURL: &res.URL})
}

// scheduleRefresh coalesces repeated edits into one pending job per user.
func (s *Service) scheduleRefresh(ctx context.Context, userID string) {
	if s.refresher == nil {
		return
	}
	if s.queue == nil {
		if err := s.refresher.RefreshAuthor(ctx, userID); err != nil {
			logger.WarnWithFields("Author refresh failed", err, logger.WithUserID(userID))
		}
		return
	}
	err := s.queue.Submit(&queue.Job{
		Kind: "refresh_author",
		Key:  "refresh_author:" + userID,
		Run: func(jobCtx context.Context) error {
			return s.refresher.RefreshAuthor(jobCtx, userID)
		},
	})
	if err != nil && !errors.Is(err, queue.ErrQueueFull) {
		logger.Log.Warn("Author refresh not scheduled", logger.WithUserID(userID), zap.Error(err))
	}
}

// Slug lowercases name and keeps only ASCII letters and digits.
func Slug(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "user"
	}
	s := b.String()
	if len(s) > 24 {
		s = s[:24]
	}
	return s
}

// DeriveUsername picks the slug of displayName, or the slug followed by the
// smallest free counter: adalovelace, adalovelace1, adalovelace2, ...
func DeriveUsername(ctx context.Context, users repository.UserRepository, displayName string) (string, error) {
	base := Slug(displayName)
	taken, err := users.UsernamesWithPrefix(ctx, base)
	if err != nil {
		return "", err
	}
	used := make(map[string]bool, len(taken))
	for _, name := range taken {
		used[strings.ToLower(name)] = true
	}
	if !used[base] {
		return base, nil
	}
	for i := 1; ; i++ {
		candidate := fmt.Sprintf("%s%d", base, i)
		if !used[candidate] {
			return candidate, nil
		}
	}
}
