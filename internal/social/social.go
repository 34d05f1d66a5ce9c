// Package social holds the relationship mutations: follows, likes and group
// membership. Each mutation writes the relationship row and the cached counters
// in one transaction, and notifies only after it commits.
package social

import (
	"context"
	"errors"
	"fmt"

	apperrors "github.com/zfogg/showcase/internal/errors"
	"github.com/zfogg/showcase/internal/logger"
	"github.com/zfogg/showcase/internal/models"
	"github.com/zfogg/showcase/internal/notify"
	"github.com/zfogg/showcase/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrSelfFollow    = fmt.Errorf("cannot follow yourself: %w", apperrors.ErrBadRequest)
	ErrGroupNotFound = fmt.Errorf("group %w", apperrors.ErrNotFound)
	ErrLastAdmin     = fmt.Errorf("the last admin cannot leave the group: %w", apperrors.ErrConflict)
)

// Service applies relationship mutations.
type Service struct {
	db       *gorm.DB
	users    repository.UserRepository
	projects repository.ProjectRepository
	notifier notify.Notifier
}

func NewService(db *gorm.DB, users repository.UserRepository, projects repository.ProjectRepository, notifier notify.Notifier) *Service {
	return &Service{db: db, users: users, projects: projects, notifier: notifier}
}

// Follow makes followerID follow followingID. Following twice is a no-op and
// sends no second notification.
func (s *Service) Follow(ctx context.Context, followerID, followingID string) error {
	if followerID == followingID {
		return ErrSelfFollow
	}
	if _, err := s.users.GetUser(ctx, followingID); err != nil {
		return err
	}

	var created bool
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		users := s.users.WithTx(tx)
		var err error
		created, err = users.CreateFollow(ctx, followerID, followingID)
		if err != nil || !created {
			return err
		}
		return users.AdjustFollowCounts(ctx, followerID, followingID, 1)
	})
	if err != nil {
		return fmt.Errorf("follow: %w", err)
	}

	if created {
		s.notifier.Notify(ctx, notify.Event{
			Type:       models.NotificationFollow,
			ActorID:    followerID,
			Recipients: []string{followingID},
			SubjectID:  followerID,
		})
	}
	return nil
}

// Unfollow removes the edge if present.
func (s *Service) Unfollow(ctx context.Context, followerID, followingID string) error {
	if followerID == followingID {
		return ErrSelfFollow
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		users := s.users.WithTx(tx)
		removed, err := users.DeleteFollow(ctx, followerID, followingID)
		if err != nil || !removed {
			return err
		}
		return users.AdjustFollowCounts(ctx, followerID, followingID, -1)
	})
	if err != nil {
		return fmt.Errorf("unfollow: %w", err)
	}
	return nil
}

// LikeResult is the like state after a mutation.
type LikeResult struct {
	Liked     bool `json:"liked"`
	LikeCount int  `json:"like_count"`
}

// Like records userID's like of projectID.
func (s *Service) Like(ctx context.Context, userID, projectID string) (*LikeResult, error) {
	return s.setLike(ctx, userID, projectID, true)
}

// Unlike removes userID's like of projectID.
func (s *Service) Unlike(ctx context.Context, userID, projectID string) (*LikeResult, error) {
	return s.setLike(ctx, userID, projectID, false)
}

// ToggleLike flips the like state. Toggling twice restores both state and count.
func (s *Service) ToggleLike(ctx context.Context, userID, projectID string) (*LikeResult, error) {
	liked, err := s.projects.IsLiked(ctx, userID, projectID)
	if err != nil {
		return nil, err
	}
	return s.setLike(ctx, userID, projectID, !liked)
}

func (s *Service) setLike(ctx context.Context, userID, projectID string, like bool) (*LikeResult, error) {
	var (
		project *models.Project
		changed bool
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		projects := s.projects.WithTx(tx)
		var err error
		project, err = projects.GetProject(ctx, projectID)
		if err != nil {
			return err
		}
		if !project.IsPublic && project.AuthorID != userID {
			return repository.ErrProjectNotFound
		}

		delta := 1
		if like {
			changed, err = projects.CreateLike(ctx, userID, projectID)
		} else {
			changed, err = projects.DeleteLike(ctx, userID, projectID)
			delta = -1
		}
		if err != nil || !changed {
			return err
		}
		if err := projects.AdjustLikeCount(ctx, projectID, delta); err != nil {
			return err
		}
		project.LikeCount += delta
		return nil
	})
	if err != nil {
		return nil, err
	}

	if like && changed {
		s.notifier.Notify(ctx, notify.Event{
			Type:         models.NotificationLike,
			ActorID:      userID,
			Recipients:   []string{project.AuthorID},
			SubjectID:    project.ID,
			SubjectTitle: project.Title,
		})
	}
	return &LikeResult{Liked: like, LikeCount: project.LikeCount}, nil
}

// JoinGroup adds userID as a member and notifies every admin except the joiner.
func (s *Service) JoinGroup(ctx context.Context, userID, groupID string) error {
	var (
		group  models.Group
		joined bool
		admins []string
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", groupID).First(&group).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrGroupNotFound
			}
			return err
		}
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&models.GroupMember{GroupID: groupID, UserID: userID, Role: models.RoleMember})
		if res.Error != nil || res.RowsAffected == 0 {
			return res.Error
		}
		joined = true
		if err := tx.Model(&models.Group{}).Where("id = ?", groupID).
			UpdateColumn("member_count", gorm.Expr("member_count + 1")).Error; err != nil {
			return err
		}
		return tx.Model(&models.GroupMember{}).
			Where("group_id = ? AND role = ?", groupID, models.RoleAdmin).
			Pluck("user_id", &admins).Error
	})
	if err != nil {
		return fmt.Errorf("join group: %w", err)
	}

	if joined {
		s.notifier.Notify(ctx, notify.Event{
			Type:         models.NotificationGroupJoin,
			ActorID:      userID,
			Recipients:   admins,
			SubjectID:    group.ID,
			SubjectTitle: group.Name,
		})
	}
	return nil
}

// LeaveGroup removes userID from the group. The only admin cannot leave, even
// when alone in the group.
func (s *Service) LeaveGroup(ctx context.Context, userID, groupID string) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var member models.GroupMember
		err := tx.Where("group_id = ? AND user_id = ?", groupID, userID).First(&member).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		if member.Role == models.RoleAdmin {
			var admins int64
			if err := tx.Model(&models.GroupMember{}).Where("group_id = ? AND role = ?", groupID, models.RoleAdmin).Count(&admins).Error; err != nil {
				return err
			}
			if admins <= 1 {
				return ErrLastAdmin
			}
		}

		if err := tx.Where("group_id = ? AND user_id = ?", groupID, userID).Delete(&models.GroupMember{}).Error; err != nil {
			return err
		}
		return tx.Model(&models.Group{}).Where("id = ?", groupID).
			UpdateColumn("member_count", gorm.Expr("member_count - 1")).Error
	})
	if err != nil {
		logger.Log.Debug("Leave group failed", logger.WithUserID(userID), logger.WithGroupID(groupID), zap.Error(err))
		return fmt.Errorf("leave group: %w", err)
	}
	return nil
}

// Followers lists users following userID.
func (s *Service) Followers(ctx context.Context, userID string, limit, offset int) ([]*models.User, error) {
	return s.users.GetFollowers(ctx, userID, limit, offset)
}

// Following lists users userID follows.
func (s *Service) Following(ctx context.Context, userID string, limit, offset int) ([]*models.User, error) {
	return s.users.GetFollowing(ctx, userID, limit, offset)
}
