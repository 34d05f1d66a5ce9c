// Package discussions serves groups, their discussions and reply threads.
// Membership is checked here for every read and write inside a group.
package discussions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	apperrors "github.com/zfogg/showcase/internal/errors"
	"github.com/zfogg/showcase/internal/logger"
	"github.com/zfogg/showcase/internal/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	// PageSize is the fixed number of replies per page.
	PageSize = 10
	// MinReplyLength is the shortest reply body accepted, in characters.
	MinReplyLength = 2
	excerptLength  = 140
)

var (
	ErrGroupNotFound      = fmt.Errorf("group %w", apperrors.ErrNotFound)
	ErrDiscussionNotFound = fmt.Errorf("discussion %w", apperrors.ErrNotFound)
	ErrNotMember          = fmt.Errorf("join the group first: %w", apperrors.ErrForbidden)
	ErrCursorNotFound     = fmt.Errorf("unknown reply cursor: %w", apperrors.ErrBadRequest)
)

// Member is a group member as shown in the member list.
type Member struct {
	UserID      string    `json:"user_id"`
	DisplayName string    `json:"display_name"`
	PhotoURL    string    `json:"photo_url"`
	Role        string    `json:"role"`
	JoinedAt    time.Time `json:"joined_at"`
}

// GroupDetail is a group with its members and the viewer's membership.
type GroupDetail struct {
	*models.Group
	Members  []Member `json:"members"`
	IsMember bool     `json:"is_member"`
}

// Page is one page of replies. Pass the last reply's id as the next cursor.
type Page struct {
	Replies []models.Reply `json:"replies"`
	HasMore bool           `json:"has_more"`
	Cursor  string         `json:"next_cursor,omitempty"`
}

type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// CreateGroup creates a group whose creator is its first admin.
func (s *Service) CreateGroup(ctx context.Context, creatorID, name, description string) (*models.Group, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.Invalid("name", "Group name is required")
	}
	group := &models.Group{Name: name, Description: description, CreatorID: creatorID, MemberCount: 1}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(group).Error; err != nil {
			return err
		}
		return tx.Create(&models.GroupMember{GroupID: group.ID, UserID: creatorID, Role: models.RoleAdmin}).Error
	})
	if err != nil {
		return nil, fmt.Errorf("create group: %w", err)
	}
	return group, nil
}

// ListGroups returns groups, largest first.
func (s *Service) ListGroups(ctx context.Context, limit, offset int) ([]models.Group, error) {
	var groups []models.Group
	err := s.db.WithContext(ctx).
		Order("member_count DESC, created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&groups).Error
	return groups, err
}

// GetGroup returns the group with its members in join order.
func (s *Service) GetGroup(ctx context.Context, viewerID, groupID string) (*GroupDetail, error) {
	group, err := s.group(ctx, s.db, groupID)
	if err != nil {
		return nil, err
	}

	var members []Member
	err = s.db.WithContext(ctx).Table("group_members").
		Select("group_members.user_id, users.display_name, users.photo_url, group_members.role, group_members.joined_at").
		Joins("JOIN users ON users.id = group_members.user_id").
		Where("group_members.group_id = ?", groupID).
		Order("group_members.joined_at ASC").
		Scan(&members).Error
	if err != nil {
		return nil, err
	}

	detail := &GroupDetail{Group: group, Members: members}
	for _, m := range members {
		if m.UserID == viewerID {
			detail.IsMember = true
			break
		}
	}
	return detail, nil
}

// CreateDiscussion opens a discussion in a group the author belongs to.
func (s *Service) CreateDiscussion(ctx context.Context, authorID, groupID, title, body string) (*models.Discussion, error) {
	title = strings.TrimSpace(title)
	body = strings.TrimSpace(body)
	if title == "" {
		return nil, apperrors.Invalid("title", "Title is required")
	}
	if body == "" {
		return nil, apperrors.Invalid("body", "Body is required")
	}
	if _, err := s.group(ctx, s.db, groupID); err != nil {
		return nil, err
	}
	if err := s.requireMember(ctx, s.db, authorID, groupID); err != nil {
		return nil, err
	}
	author, err := s.authorName(ctx, authorID)
	if err != nil {
		return nil, err
	}

	d := &models.Discussion{
		GroupID:      groupID,
		Title:        title,
		Body:         body,
		AuthorID:     authorID,
		AuthorName:   author,
		LastActivity: time.Now().UTC(),
	}
	if err := s.db.WithContext(ctx).Create(d).Error; err != nil {
		return nil, fmt.Errorf("create discussion: %w", err)
	}
	return d, nil
}

// ListDiscussions returns a group's discussions, most recently active first.
func (s *Service) ListDiscussions(ctx context.Context, viewerID, groupID string, limit, offset int) ([]models.Discussion, error) {
	if err := s.requireMember(ctx, s.db, viewerID, groupID); err != nil {
		return nil, err
	}
	var out []models.Discussion
	err := s.db.WithContext(ctx).
		Where("group_id = ?", groupID).
		Order("last_activity DESC, id DESC").
		Limit(limit).
		Offset(offset).
		Find(&out).Error
	return out, err
}

// GetDiscussion returns a discussion and counts the view.
func (s *Service) GetDiscussion(ctx context.Context, viewerID, discussionID string) (*models.Discussion, error) {
	d, err := s.discussion(ctx, s.db, discussionID)
	if err != nil {
		return nil, err
	}
	if err := s.requireMember(ctx, s.db, viewerID, d.GroupID); err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Model(&models.Discussion{}).Where("id = ?", discussionID).
		UpdateColumn("views", gorm.Expr("views + 1")).Error; err != nil {
		logger.Log.Warn("Failed to count discussion view", logger.WithDiscussionID(discussionID), zap.Error(err))
		return d, nil
	}
	d.Views++
	return d, nil
}

// ListReplies returns up to PageSize replies ordered by (created_at, id), starting
// strictly after the reply afterID. An empty afterID starts from the beginning.
// HasMore is set whenever the page is full, so a thread whose length is a
// multiple of PageSize ends with one empty page.
func (s *Service) ListReplies(ctx context.Context, viewerID, discussionID, afterID string) (*Page, error) {
	d, err := s.discussion(ctx, s.db, discussionID)
	if err != nil {
		return nil, err
	}
	if err := s.requireMember(ctx, s.db, viewerID, d.GroupID); err != nil {
		return nil, err
	}

	q := s.db.WithContext(ctx).Where("discussion_id = ?", discussionID)
	if afterID != "" {
		var cursor models.Reply
		err := s.db.WithContext(ctx).Select("id", "created_at").
			Where("id = ? AND discussion_id = ?", afterID, discussionID).
			First(&cursor).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCursorNotFound
		}
		if err != nil {
			return nil, err
		}
		q = q.Where("(created_at > ? OR (created_at = ? AND id > ?))", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}

	var replies []models.Reply
	if err := q.Order("created_at ASC, id ASC").Limit(PageSize).Find(&replies).Error; err != nil {
		return nil, err
	}

	page := &Page{Replies: replies, HasMore: len(replies) == PageSize}
	if len(replies) > 0 {
		page.Cursor = replies[len(replies)-1].ID
	}
	return page, nil
}

// AddReply appends a reply and updates the discussion's counters, activity time
// and latest-reply summary in one transaction.
func (s *Service) AddReply(ctx context.Context, authorID, discussionID, body string) (*models.Reply, error) {
	body = strings.TrimSpace(body)
	if utf8.RuneCountInString(body) < MinReplyLength {
		return nil, apperrors.Invalid("body", fmt.Sprintf("Reply must be at least %d characters", MinReplyLength))
	}
	author, err := s.authorName(ctx, authorID)
	if err != nil {
		return nil, err
	}

	reply := &models.Reply{DiscussionID: discussionID, AuthorID: authorID, AuthorName: author, Body: body}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		d, err := s.discussion(ctx, tx, discussionID)
		if err != nil {
			return err
		}
		if err := s.requireMember(ctx, tx, authorID, d.GroupID); err != nil {
			return err
		}
		if err := tx.Create(reply).Error; err != nil {
			return err
		}
		// map updates skip field serializers, so encode the summary here
		summary, err := json.Marshal(models.ReplySummary{
			ReplyID:    reply.ID,
			AuthorID:   authorID,
			AuthorName: author,
			Excerpt:    excerpt(body),
			CreatedAt:  reply.CreatedAt,
		})
		if err != nil {
			return err
		}
		return tx.Model(&models.Discussion{}).Where("id = ?", discussionID).UpdateColumns(map[string]interface{}{
			"replies":       gorm.Expr("replies + 1"),
			"last_activity": reply.CreatedAt,
			"last_reply":    string(summary),
		}).Error
	})
	if err != nil {
		return nil, fmt.Errorf("add reply: %w", err)
	}
	return reply, nil
}

func (s *Service) requireMember(ctx context.Context, db *gorm.DB, userID, groupID string) error {
	var n int64
	err := db.WithContext(ctx).Model(&models.GroupMember{}).
		Where("group_id = ? AND user_id = ?", groupID, userID).
		Count(&n).Error
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotMember
	}
	return nil
}

func (s *Service) group(ctx context.Context, db *gorm.DB, groupID string) (*models.Group, error) {
	var g models.Group
	err := db.WithContext(ctx).Where("id = ?", groupID).First(&g).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrGroupNotFound
	}
	if err != nil {
		return nil, err
	}
	return &g, nil
}

func (s *Service) discussion(ctx context.Context, db *gorm.DB, discussionID string) (*models.Discussion, error) {
	var d models.Discussion
	err := db.WithContext(ctx).Where("id = ?", discussionID).First(&d).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrDiscussionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (s *Service) authorName(ctx context.Context, userID string) (string, error) {
	var u models.User
	err := s.db.WithContext(ctx).Select("id", "display_name").Where("id = ?", userID).First(&u).Error
	if err != nil {
		return "", err
	}
	return u.DisplayName, nil
}

func excerpt(body string) string {
	if utf8.RuneCountInString(body) <= excerptLength {
		return body
	}
	r := []rune(body)
	return string(r[:excerptLength]) + "…"
}
