package repository

import (
	"context"
	"errors"
	"fmt"

	apperrors "github.com/zfogg/showcase/internal/errors"
	"github.com/zfogg/showcase/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrProjectNotFound = fmt.Errorf("project %w", apperrors.ErrNotFound)
	ErrCommentNotFound = fmt.Errorf("comment %w", apperrors.ErrNotFound)
)

// Order selects the creation-time direction of a project listing.
type Order string

const (
	NewestFirst Order = "newest"
	OldestFirst Order = "oldest"
)

// ParseOrder maps a query value to an Order, defaulting to NewestFirst.
func ParseOrder(s string) Order {
	if s == string(OldestFirst) {
		return OldestFirst
	}
	return NewestFirst
}

func (o Order) clause() string {
	if o == OldestFirst {
		return "created_at ASC"
	}
	return "created_at DESC"
}

// ProjectRepository handles database operations for projects, likes and comments.
type ProjectRepository interface {
	WithTx(tx *gorm.DB) ProjectRepository

	CreateProject(ctx context.Context, project *models.Project) error
	GetProject(ctx context.Context, projectID string) (*models.Project, error)
	UpdateProject(ctx context.Context, projectID string, fields map[string]interface{}) error
	DeleteProject(ctx context.Context, projectID string) error

	ListAll(ctx context.Context, order Order, publicOnly bool) ([]*models.Project, error)
	// ListPublicByAuthors returns public projects whose author is in authorIDs.
	ListPublicByAuthors(ctx context.Context, authorIDs []string) ([]*models.Project, error)
	ListByAuthor(ctx context.Context, authorID string, includePrivate bool) ([]*models.Project, error)
	// ListPublicByIDs returns the public projects among ids, in the order of ids.
	ListPublicByIDs(ctx context.Context, ids []string) ([]*models.Project, error)
	SearchPublic(ctx context.Context, query string, limit int) ([]*models.Project, error)
	CountByAuthor(ctx context.Context, authorID string) (int64, error)

	CreateLike(ctx context.Context, userID, projectID string) (bool, error)
	DeleteLike(ctx context.Context, userID, projectID string) (bool, error)
	IsLiked(ctx context.Context, userID, projectID string) (bool, error)
	LikedProjectIDs(ctx context.Context, userID string) ([]string, error)
	AdjustLikeCount(ctx context.Context, projectID string, delta int) error

	CreateComment(ctx context.Context, comment *models.Comment) error
	GetComment(ctx context.Context, commentID string) (*models.Comment, error)
	ListComments(ctx context.Context, projectID string) ([]*models.Comment, error)
	DeleteComment(ctx context.Context, commentID string) error
	AdjustCommentCount(ctx context.Context, projectID string, delta int) error

	// RefreshAuthor rewrites the denormalized author snapshot on every row the user authored.
	RefreshAuthor(ctx context.Context, authorID, name, photoURL string) error
}

type projectRepository struct {
	db *gorm.DB
}

// NewProjectRepository creates a new project repository
func NewProjectRepository(db *gorm.DB) ProjectRepository {
	return &projectRepository{db: db}
}

func (r *projectRepository) WithTx(tx *gorm.DB) ProjectRepository {
	return &projectRepository{db: tx}
}

func (r *projectRepository) CreateProject(ctx context.Context, project *models.Project) error {
	if project == nil {
		return ErrInvalidInput
	}
	return r.db.WithContext(ctx).Create(project).Error
}

func (r *projectRepository) GetProject(ctx context.Context, projectID string) (*models.Project, error) {
	var project models.Project
	err := r.db.WithContext(ctx).Where("id = ?", projectID).First(&project).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrProjectNotFound
	}
	if err != nil {
		return nil, err
	}
	return &project, nil
}

func (r *projectRepository) UpdateProject(ctx context.Context, projectID string, fields map[string]interface{}) error {
	res := r.db.WithContext(ctx).Model(&models.Project{}).Where("id = ?", projectID).Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrProjectNotFound
	}
	return nil
}

// DeleteProject removes the project with its likes and comments. Call it inside a transaction.
func (r *projectRepository) DeleteProject(ctx context.Context, projectID string) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("project_id = ?", projectID).Delete(&models.ProjectLike{}).Error; err != nil {
		return err
	}
	if err := db.Where("project_id = ?", projectID).Delete(&models.Comment{}).Error; err != nil {
		return err
	}
	res := db.Where("id = ?", projectID).Delete(&models.Project{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrProjectNotFound
	}
	return nil
}

func (r *projectRepository) ListAll(ctx context.Context, order Order, publicOnly bool) ([]*models.Project, error) {
	var projects []*models.Project
	q := r.db.WithContext(ctx).Order(order.clause())
	if publicOnly {
		q = q.Where("is_public = ?", true)
	}
	err := q.Find(&projects).Error
	return projects, err
}

func (r *projectRepository) ListPublicByAuthors(ctx context.Context, authorIDs []string) ([]*models.Project, error) {
	var projects []*models.Project
	if len(authorIDs) == 0 {
		return projects, nil
	}
	err := r.db.WithContext(ctx).
		Where("author_id IN ? AND is_public = ?", authorIDs, true).
		Find(&projects).Error
	return projects, err
}

func (r *projectRepository) ListByAuthor(ctx context.Context, authorID string, includePrivate bool) ([]*models.Project, error) {
	var projects []*models.Project
	q := r.db.WithContext(ctx).Where("author_id = ?", authorID)
	if !includePrivate {
		q = q.Where("is_public = ?", true)
	}
	err := q.Order("created_at DESC").Find(&projects).Error
	return projects, err
}

func (r *projectRepository) ListPublicByIDs(ctx context.Context, ids []string) ([]*models.Project, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var found []*models.Project
	if err := r.db.WithContext(ctx).Where("id IN ? AND is_public = ?", ids, true).Find(&found).Error; err != nil {
		return nil, err
	}
	byID := make(map[string]*models.Project, len(found))
	for _, p := range found {
		byID[p.ID] = p
	}
	out := make([]*models.Project, 0, len(found))
	for _, id := range ids {
		if p, ok := byID[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *projectRepository) SearchPublic(ctx context.Context, query string, limit int) ([]*models.Project, error) {
	var projects []*models.Project
	pattern := "%" + query + "%"
	err := r.db.WithContext(ctx).
		Where("is_public = ?", true).
		Where("LOWER(title) LIKE LOWER(?) OR LOWER(description) LIKE LOWER(?)", pattern, pattern).
		Order("like_count DESC, created_at DESC").
		Limit(limit).
		Find(&projects).Error
	return projects, err
}

func (r *projectRepository) CountByAuthor(ctx context.Context, authorID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Project{}).Where("author_id = ?", authorID).Count(&count).Error
	return count, err
}

func (r *projectRepository) CreateLike(ctx context.Context, userID, projectID string) (bool, error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.ProjectLike{UserID: userID, ProjectID: projectID})
	return res.RowsAffected > 0, res.Error
}

func (r *projectRepository) DeleteLike(ctx context.Context, userID, projectID string) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("user_id = ? AND project_id = ?", userID, projectID).
		Delete(&models.ProjectLike{})
	return res.RowsAffected > 0, res.Error
}

func (r *projectRepository) IsLiked(ctx context.Context, userID, projectID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.ProjectLike{}).
		Where("user_id = ? AND project_id = ?", userID, projectID).
		Count(&count).Error
	return count > 0, err
}

func (r *projectRepository) LikedProjectIDs(ctx context.Context, userID string) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).Model(&models.ProjectLike{}).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Pluck("project_id", &ids).Error
	return ids, err
}

func (r *projectRepository) AdjustLikeCount(ctx context.Context, projectID string, delta int) error {
	return r.db.WithContext(ctx).Model(&models.Project{}).Where("id = ?", projectID).
		UpdateColumn("like_count", gorm.Expr("like_count + ?", delta)).Error
}

func (r *projectRepository) CreateComment(ctx context.Context, comment *models.Comment) error {
	return r.db.WithContext(ctx).Create(comment).Error
}

func (r *projectRepository) GetComment(ctx context.Context, commentID string) (*models.Comment, error) {
	var comment models.Comment
	err := r.db.WithContext(ctx).Where("id = ?", commentID).First(&comment).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrCommentNotFound
	}
	if err != nil {
		return nil, err
	}
	return &comment, nil
}

func (r *projectRepository) ListComments(ctx context.Context, projectID string) ([]*models.Comment, error) {
	var comments []*models.Comment
	err := r.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("created_at ASC, id ASC").
		Find(&comments).Error
	return comments, err
}

func (r *projectRepository) DeleteComment(ctx context.Context, commentID string) error {
	res := r.db.WithContext(ctx).Where("id = ?", commentID).Delete(&models.Comment{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrCommentNotFound
	}
	return nil
}

func (r *projectRepository) AdjustCommentCount(ctx context.Context, projectID string, delta int) error {
	return r.db.WithContext(ctx).Model(&models.Project{}).Where("id = ?", projectID).
		UpdateColumn("comment_count", gorm.Expr("comment_count + ?", delta)).Error
}

func (r *projectRepository) RefreshAuthor(ctx context.Context, authorID, name, photoURL string) error {
	db := r.db.WithContext(ctx)
	if err := db.Model(&models.Project{}).Where("author_id = ?", authorID).
		UpdateColumns(map[string]interface{}{"author_name": name, "author_photo_url": photoURL}).Error; err != nil {
		return err
	}
	if err := db.Model(&models.Comment{}).Where("author_id = ?", authorID).
		UpdateColumns(map[string]interface{}{"author_name": name, "author_photo_url": photoURL}).Error; err != nil {
		return err
	}
	if err := db.Model(&models.Discussion{}).Where("author_id = ?", authorID).
		UpdateColumn("author_name", name).Error; err != nil {
		return err
	}
	return db.Model(&models.Reply{}).Where("author_id = ?", authorID).
		UpdateColumn("author_name", name).Error
}
