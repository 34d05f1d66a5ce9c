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
	ErrUserNotFound = fmt.Errorf("user %w", apperrors.ErrNotFound)
	ErrInvalidInput = fmt.Errorf("invalid input: %w", apperrors.ErrBadRequest)
)

// UserRepository handles database operations for users and the follow graph.
type UserRepository interface {
	// WithTx returns a repository bound to tx.
	WithTx(tx *gorm.DB) UserRepository

	CreateUser(ctx context.Context, user *models.User) error
	GetUser(ctx context.Context, userID string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	GetUserByGoogleID(ctx context.Context, googleID string) (*models.User, error)
	UpdateUser(ctx context.Context, userID string, fields map[string]interface{}) error
	GetUsers(ctx context.Context, userIDs []string) ([]*models.User, error)
	SearchUsers(ctx context.Context, query string, limit int) ([]*models.User, error)
	UsernamesWithPrefix(ctx context.Context, prefix string) ([]string, error)

	GetFollowers(ctx context.Context, userID string, limit, offset int) ([]*models.User, error)
	GetFollowing(ctx context.Context, userID string, limit, offset int) ([]*models.User, error)
	FollowingIDs(ctx context.Context, userID string) ([]string, error)
	FollowerIDs(ctx context.Context, userID string) ([]string, error)

	// CreateFollow inserts the edge if absent and reports whether a row was added.
	CreateFollow(ctx context.Context, followerID, followingID string) (bool, error)
	// DeleteFollow removes the edge and reports whether a row was removed.
	DeleteFollow(ctx context.Context, followerID, followingID string) (bool, error)
	IsFollowing(ctx context.Context, followerID, followingID string) (bool, error)
	AdjustFollowCounts(ctx context.Context, followerID, followingID string, delta int) error
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) WithTx(tx *gorm.DB) UserRepository {
	return &userRepository{db: tx}
}

func (r *userRepository) CreateUser(ctx context.Context, user *models.User) error {
	if user == nil {
		return ErrInvalidInput
	}
	return r.db.WithContext(ctx).Create(user).Error
}

func (r *userRepository) first(ctx context.Context, query string, arg interface{}) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Where(query, arg).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) GetUser(ctx context.Context, userID string) (*models.User, error) {
	return r.first(ctx, "id = ?", userID)
}

// GetUserByEmail matches case-insensitively.
func (r *userRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.first(ctx, "LOWER(email) = LOWER(?)", email)
}

func (r *userRepository) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.first(ctx, "LOWER(username) = LOWER(?)", username)
}

func (r *userRepository) GetUserByGoogleID(ctx context.Context, googleID string) (*models.User, error) {
	return r.first(ctx, "google_id = ?", googleID)
}

func (r *userRepository) UpdateUser(ctx context.Context, userID string, fields map[string]interface{}) error {
	if userID == "" || len(fields) == 0 {
		return ErrInvalidInput
	}
	res := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *userRepository) GetUsers(ctx context.Context, userIDs []string) ([]*models.User, error) {
	var users []*models.User
	if len(userIDs) == 0 {
		return users, nil
	}
	err := r.db.WithContext(ctx).Where("id IN ?", userIDs).Find(&users).Error
	return users, err
}

// SearchUsers matches username or display name, most followed first.
func (r *userRepository) SearchUsers(ctx context.Context, query string, limit int) ([]*models.User, error) {
	var users []*models.User
	pattern := "%" + query + "%"
	err := r.db.WithContext(ctx).
		Where("LOWER(username) LIKE LOWER(?) OR LOWER(display_name) LIKE LOWER(?)", pattern, pattern).
		Order("follower_count DESC").
		Limit(limit).
		Find(&users).Error
	return users, err
}

func (r *userRepository) UsernamesWithPrefix(ctx context.Context, prefix string) ([]string, error) {
	var names []string
	err := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("LOWER(username) LIKE LOWER(?)", prefix+"%").
		Pluck("username", &names).Error
	return names, err
}

func (r *userRepository) GetFollowers(ctx context.Context, userID string, limit, offset int) ([]*models.User, error) {
	var users []*models.User
	err := r.db.WithContext(ctx).
		Joins("JOIN follows ON follows.follower_id = users.id").
		Where("follows.following_id = ?", userID).
		Order("follows.created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&users).Error
	return users, err
}

func (r *userRepository) GetFollowing(ctx context.Context, userID string, limit, offset int) ([]*models.User, error) {
	var users []*models.User
	err := r.db.WithContext(ctx).
		Joins("JOIN follows ON follows.following_id = users.id").
		Where("follows.follower_id = ?", userID).
		Order("follows.created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&users).Error
	return users, err
}

func (r *userRepository) FollowingIDs(ctx context.Context, userID string) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).
		Model(&models.Follow{}).
		Where("follower_id = ?", userID).
		Order("created_at").
		Pluck("following_id", &ids).Error
	return ids, err
}

func (r *userRepository) FollowerIDs(ctx context.Context, userID string) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).
		Model(&models.Follow{}).
		Where("following_id = ?", userID).
		Order("created_at").
		Pluck("follower_id", &ids).Error
	return ids, err
}

func (r *userRepository) CreateFollow(ctx context.Context, followerID, followingID string) (bool, error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.Follow{FollowerID: followerID, FollowingID: followingID})
	return res.RowsAffected > 0, res.Error
}

func (r *userRepository) DeleteFollow(ctx context.Context, followerID, followingID string) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("follower_id = ? AND following_id = ?", followerID, followingID).
		Delete(&models.Follow{})
	return res.RowsAffected > 0, res.Error
}

func (r *userRepository) IsFollowing(ctx context.Context, followerID, followingID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Follow{}).
		Where("follower_id = ? AND following_id = ?", followerID, followingID).
		Count(&count).Error
	return count > 0, err
}

// AdjustFollowCounts moves following_count on the follower and follower_count on
// the followee by delta.
func (r *userRepository) AdjustFollowCounts(ctx context.Context, followerID, followingID string, delta int) error {
	db := r.db.WithContext(ctx)
	if err := db.Model(&models.User{}).Where("id = ?", followerID).
		UpdateColumn("following_count", gorm.Expr("following_count + ?", delta)).Error; err != nil {
		return err
	}
	return db.Model(&models.User{}).Where("id = ?", followingID).
		UpdateColumn("follower_count", gorm.Expr("follower_count + ?", delta)).Error
}
