// Package projects implements project CRUD and project comments.
package projects

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	apperrors "github.com/zfogg/showcase/internal/errors"
	"github.com/zfogg/showcase/internal/logger"
	"github.com/zfogg/showcase/internal/models"
	"github.com/zfogg/showcase/internal/notify"
	"github.com/zfogg/showcase/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// MaxCommentLength is the longest comment body accepted, in characters.
const MaxCommentLength = 2000

var ErrNotAuthor = fmt.Errorf("only the author can do that: %w", apperrors.ErrForbidden)

// Indexer keeps a search index in step with project writes.
type Indexer interface {
	IndexProject(ctx context.Context, p *models.Project) error
	DeleteProject(ctx context.Context, projectID string) error
}

// Input carries the writable project fields.
type Input struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	RepoURL     string `json:"repo_url"`
	DemoURL     string `json:"demo_url"`
	ImageURL    string `json:"image_url"`
	IsPublic    *bool  `json:"is_public"`
}

func (in *Input) validate() error {
	if strings.TrimSpace(in.Title) == "" {
		return apperrors.Invalid("title", "Title is required")
	}
	if strings.TrimSpace(in.Description) == "" {
		return apperrors.Invalid("description", "Description is required")
	}
	return nil
}

// Service owns project and comment writes.
type Service struct {
	db       *gorm.DB
	projects repository.ProjectRepository
	users    repository.UserRepository
	notifier notify.Notifier
	indexer  Indexer
}

func NewService(db *gorm.DB, projects repository.ProjectRepository, users repository.UserRepository, notifier notify.Notifier) *Service {
	return &Service{db: db, projects: projects, users: users, notifier: notifier}
}

func (s *Service) SetIndexer(idx Indexer) {
	s.indexer = idx
}

// Create stores a new project with the author's current name and photo.
func (s *Service) Create(ctx context.Context, authorID string, in Input) (*models.Project, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	author, err := s.users.GetUser(ctx, authorID)
	if err != nil {
		return nil, err
	}

	p := &models.Project{
		Title:          strings.TrimSpace(in.Title),
		Description:    in.Description,
		RepoURL:        in.RepoURL,
		DemoURL:        in.DemoURL,
		ImageURL:       in.ImageURL,
		IsPublic:       in.IsPublic == nil || *in.IsPublic,
		AuthorID:       author.ID,
		AuthorName:     author.DisplayName,
		AuthorPhotoURL: author.PhotoURL,
	}
	if err := s.projects.CreateProject(ctx, p); err != nil {
		return nil, fmt.Errorf("create project: %w", err)
	}
	s.index(ctx, p)
	return p, nil
}

// Get returns a project. A private project is visible to its author only and
// reads as not found to everyone else.
func (s *Service) Get(ctx context.Context, viewerID, projectID string) (*models.Project, error) {
	p, err := s.projects.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if !p.IsPublic && p.AuthorID != viewerID {
		return nil, repository.ErrProjectNotFound
	}
	return p, nil
}

// Update rewrites the project fields. Only the author may update; to anyone
// else a private project reads as not found.
func (s *Service) Update(ctx context.Context, viewerID, projectID string, in Input) (*models.Project, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	p, err := s.Get(ctx, viewerID, projectID)
	if err != nil {
		return nil, err
	}
	if p.AuthorID != viewerID {
		return nil, ErrNotAuthor
	}

	fields := map[string]interface{}{
		"title":       strings.TrimSpace(in.Title),
		"description": in.Description,
		"repo_url":    in.RepoURL,
		"demo_url":    in.DemoURL,
		"image_url":   in.ImageURL,
	}
	if in.IsPublic != nil {
		fields["is_public"] = *in.IsPublic
	}
	if err := s.projects.UpdateProject(ctx, projectID, fields); err != nil {
		return nil, err
	}

	p, err = s.projects.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	s.index(ctx, p)
	return p, nil
}

// Delete removes the project with its likes and comments. Like Update, a
// private project reads as not found to non-authors.
func (s *Service) Delete(ctx context.Context, viewerID, projectID string) error {
	p, err := s.Get(ctx, viewerID, projectID)
	if err != nil {
		return err
	}
	if p.AuthorID != viewerID {
		return ErrNotAuthor
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.projects.WithTx(tx).DeleteProject(ctx, projectID)
	})
	if err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	if s.indexer != nil {
		if err := s.indexer.DeleteProject(ctx, projectID); err != nil {
			logger.WarnWithFields("Failed to remove project from search index", err, logger.WithProjectID(projectID))
		}
	}
	return nil
}

// ListByAuthor lists an author's projects newest first. Private projects are
// included only when the viewer is the author.
func (s *Service) ListByAuthor(ctx context.Context, viewerID, authorID string) ([]*models.Project, error) {
	return s.projects.ListByAuthor(ctx, authorID, viewerID == authorID)
}

// AddComment stores a comment and bumps the project's comment count in one
// transaction, then notifies the project author.
func (s *Service) AddComment(ctx context.Context, authorID, projectID, body string) (*models.Comment, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, apperrors.Invalid("body", "Comment cannot be empty")
	}
	if utf8.RuneCountInString(body) > MaxCommentLength {
		return nil, apperrors.Invalid("body", fmt.Sprintf("Comment cannot exceed %d characters", MaxCommentLength))
	}

	p, err := s.Get(ctx, authorID, projectID)
	if err != nil {
		return nil, err
	}
	author, err := s.users.GetUser(ctx, authorID)
	if err != nil {
		return nil, err
	}

	comment := &models.Comment{
		ProjectID:      projectID,
		AuthorID:       author.ID,
		AuthorName:     author.DisplayName,
		AuthorPhotoURL: author.PhotoURL,
		Body:           body,
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.projects.WithTx(tx)
		if err := repo.CreateComment(ctx, comment); err != nil {
			return err
		}
		return repo.AdjustCommentCount(ctx, projectID, 1)
	})
	if err != nil {
		return nil, fmt.Errorf("add comment: %w", err)
	}

	s.notifier.Notify(ctx, notify.Event{
		Type:         models.NotificationComment,
		ActorID:      author.ID,
		Recipients:   []string{p.AuthorID},
		SubjectID:    p.ID,
		SubjectTitle: p.Title,
	})
	return comment, nil
}

// Comments lists a project's comments oldest first.
func (s *Service) Comments(ctx context.Context, viewerID, projectID string) ([]*models.Comment, error) {
	if _, err := s.Get(ctx, viewerID, projectID); err != nil {
		return nil, err
	}
	return s.projects.ListComments(ctx, projectID)
}

// DeleteComment removes a comment. The comment's author and the project's author
// may delete it; the comment author is told when the project author removes it.
func (s *Service) DeleteComment(ctx context.Context, viewerID, commentID string) error {
	comment, err := s.projects.GetComment(ctx, commentID)
	if err != nil {
		return err
	}
	p, err := s.projects.GetProject(ctx, comment.ProjectID)
	if err != nil {
		return err
	}
	if viewerID != comment.AuthorID && viewerID != p.AuthorID {
		return ErrNotAuthor
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.projects.WithTx(tx)
		if err := repo.DeleteComment(ctx, commentID); err != nil {
			return err
		}
		return repo.AdjustCommentCount(ctx, comment.ProjectID, -1)
	})
	if err != nil {
		return fmt.Errorf("delete comment: %w", err)
	}

	if viewerID != comment.AuthorID {
		s.notifier.Notify(ctx, notify.Event{
			Type:         models.NotificationCommentDeleted,
			ActorID:      viewerID,
			Recipients:   []string{comment.AuthorID},
			SubjectID:    p.ID,
			SubjectTitle: p.Title,
		})
	}
	return nil
}

// RefreshAuthor rewrites the author snapshot on everything userID wrote and
// reindexes their projects.
func (s *Service) RefreshAuthor(ctx context.Context, userID string) error {
	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return err
	}
	if err := s.projects.RefreshAuthor(ctx, user.ID, user.DisplayName, user.PhotoURL); err != nil {
		return fmt.Errorf("refresh author: %w", err)
	}
	if s.indexer == nil {
		return nil
	}
	owned, err := s.projects.ListByAuthor(ctx, userID, true)
	if err != nil {
		return err
	}
	for _, p := range owned {
		s.index(ctx, p)
	}
	return nil
}

func (s *Service) index(ctx context.Context, p *models.Project) {
	if s.indexer == nil {
		return
	}
	if err := s.indexer.IndexProject(ctx, p); err != nil {
		logger.Log.Warn("Failed to index project", logger.WithProjectID(p.ID), zap.Error(err))
	}
}
