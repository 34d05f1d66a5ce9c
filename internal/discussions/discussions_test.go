package discussions

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	apperrors "github.com/zfogg/showcase/internal/errors"
	"github.com/zfogg/showcase/internal/models"
	"github.com/zfogg/showcase/internal/testutil"
	"gorm.io/gorm"
)

type DiscussionsTestSuite struct {
	suite.Suite
	db      *gorm.DB
	svc     *Service
	ctx     context.Context
	admin   *models.User
	member  *models.User
	outside *models.User
	group   *models.Group
}

func (s *DiscussionsTestSuite) SetupTest() {
	s.db = testutil.NewDB(s.T())
	s.svc = NewService(s.db)
	s.ctx = context.Background()
	s.admin = testutil.CreateUser(s.T(), s.db, "Admin")
	s.member = testutil.CreateUser(s.T(), s.db, "Member")
	s.outside = testutil.CreateUser(s.T(), s.db, "Outsider")

	group, err := s.svc.CreateGroup(s.ctx, s.admin.ID, "Makers", "Build things")
	s.Require().NoError(err)
	s.group = group
	s.Require().NoError(s.db.Create(&models.GroupMember{GroupID: group.ID, UserID: s.member.ID, Role: models.RoleMember}).Error)
}

func TestDiscussionsSuite(t *testing.T) {
	suite.Run(t, new(DiscussionsTestSuite))
}

func (s *DiscussionsTestSuite) newDiscussion(title string) *models.Discussion {
	d, err := s.svc.CreateDiscussion(s.ctx, s.admin.ID, s.group.ID, title, "Let's talk")
	s.Require().NoError(err)
	return d
}

func (s *DiscussionsTestSuite) addReplies(d *models.Discussion, n int) []string {
	ids := make([]string, 0, n)
	for i := 0; i < n; i++ {
		r, err := s.svc.AddReply(s.ctx, s.member.ID, d.ID, fmt.Sprintf("reply %d", i))
		s.Require().NoError(err)
		ids = append(ids, r.ID)
	}
	return ids
}

func (s *DiscussionsTestSuite) TestCreateGroupMakesCreatorAdmin() {
	detail, err := s.svc.GetGroup(s.ctx, s.admin.ID, s.group.ID)
	s.Require().NoError(err)
	s.Equal(1, detail.MemberCount)
	s.True(detail.IsMember)
	s.Require().Len(detail.Members, 2)

	roles := map[string]string{}
	for _, m := range detail.Members {
		roles[m.UserID] = m.Role
	}
	s.Equal(models.RoleAdmin, roles[s.admin.ID])

	outsider, err := s.svc.GetGroup(s.ctx, s.outside.ID, s.group.ID)
	s.Require().NoError(err)
	s.False(outsider.IsMember)

	_, err = s.svc.CreateGroup(s.ctx, s.admin.ID, "  ", "")
	var fe *apperrors.FieldError
	s.True(errors.As(err, &fe))
}

func (s *DiscussionsTestSuite) TestPagesTwentyThreeReplies() {
	d := s.newDiscussion("Pagination")
	all := s.addReplies(d, 23)

	var seen []string
	cursor := ""
	var sizes []int
	for {
		page, err := s.svc.ListReplies(s.ctx, s.member.ID, d.ID, cursor)
		s.Require().NoError(err)
		sizes = append(sizes, len(page.Replies))
		for _, r := range page.Replies {
			seen = append(seen, r.ID)
		}
		if !page.HasMore {
			break
		}
		cursor = page.Cursor
	}

	s.Equal([]int{10, 10, 3}, sizes)
	s.ElementsMatch(all, seen)
	unique := map[string]bool{}
	for _, id := range seen {
		unique[id] = true
	}
	s.Len(unique, 23, "no reply appears twice")
}

func (s *DiscussionsTestSuite) TestFullLastPageIsFollowedByEmptyPage() {
	d := s.newDiscussion("Exact")
	s.addReplies(d, 10)

	first, err := s.svc.ListReplies(s.ctx, s.member.ID, d.ID, "")
	s.Require().NoError(err)
	s.Len(first.Replies, 10)
	s.True(first.HasMore)

	second, err := s.svc.ListReplies(s.ctx, s.member.ID, d.ID, first.Cursor)
	s.Require().NoError(err)
	s.Empty(second.Replies)
	s.False(second.HasMore)
	s.Empty(second.Cursor)
}

func (s *DiscussionsTestSuite) TestUnknownCursor() {
	d := s.newDiscussion("Cursor")
	other := s.newDiscussion("Other")
	ids := s.addReplies(other, 1)

	_, err := s.svc.ListReplies(s.ctx, s.member.ID, d.ID, "does-not-exist")
	s.ErrorIs(err, ErrCursorNotFound)
	s.ErrorIs(err, apperrors.ErrBadRequest)

	_, err = s.svc.ListReplies(s.ctx, s.member.ID, d.ID, ids[0])
	s.ErrorIs(err, ErrCursorNotFound, "a cursor from another discussion is unknown here")
}

func (s *DiscussionsTestSuite) TestAddReplyUpdatesDiscussion() {
	d := s.newDiscussion("Counters")
	_, err := s.svc.AddReply(s.ctx, s.member.ID, d.ID, "x")
	var fe *apperrors.FieldError
	s.True(errors.As(err, &fe), "one character is too short")

	r, err := s.svc.AddReply(s.ctx, s.member.ID, d.ID, "first!")
	s.Require().NoError(err)

	var stored models.Discussion
	s.Require().NoError(s.db.Where("id = ?", d.ID).First(&stored).Error)
	s.Equal(1, stored.Replies)
	s.Require().NotNil(stored.LastReply)
	s.Equal(r.ID, stored.LastReply.ReplyID)
	s.Equal("Member", stored.LastReply.AuthorName)
	s.Equal("first!", stored.LastReply.Excerpt)
	s.False(stored.LastActivity.Before(d.LastActivity))
}

func (s *DiscussionsTestSuite) TestMembershipIsEnforced() {
	d := s.newDiscussion("Members only")

	_, err := s.svc.CreateDiscussion(s.ctx, s.outside.ID, s.group.ID, "Hi", "there")
	s.ErrorIs(err, ErrNotMember)
	_, err = s.svc.GetDiscussion(s.ctx, s.outside.ID, d.ID)
	s.ErrorIs(err, apperrors.ErrForbidden)
	_, err = s.svc.ListReplies(s.ctx, s.outside.ID, d.ID, "")
	s.ErrorIs(err, ErrNotMember)
	_, err = s.svc.AddReply(s.ctx, s.outside.ID, d.ID, "let me in")
	s.ErrorIs(err, ErrNotMember)
	_, err = s.svc.ListDiscussions(s.ctx, s.outside.ID, s.group.ID, 20, 0)
	s.ErrorIs(err, ErrNotMember)
}

func (s *DiscussionsTestSuite) TestGetCountsViews() {
	d := s.newDiscussion("Views")
	for i := 1; i <= 3; i++ {
		got, err := s.svc.GetDiscussion(s.ctx, s.member.ID, d.ID)
		s.Require().NoError(err)
		s.Equal(i, got.Views)
	}
	_, err := s.svc.GetDiscussion(s.ctx, s.member.ID, "missing")
	s.ErrorIs(err, ErrDiscussionNotFound)
}

func (s *DiscussionsTestSuite) TestListDiscussionsByLastActivity() {
	older := s.newDiscussion("Older")
	newer := s.newDiscussion("Newer")
	_, err := s.svc.AddReply(s.ctx, s.member.ID, older.ID, "bump")
	s.Require().NoError(err)

	list, err := s.svc.ListDiscussions(s.ctx, s.member.ID, s.group.ID, 20, 0)
	s.Require().NoError(err)
	s.Require().Len(list, 2)
	s.Equal(older.ID, list[0].ID)
	s.Equal(newer.ID, list[1].ID)
}

func TestExcerptTruncatesByRune(t *testing.T) {
	long := make([]rune, excerptLength+5)
	for i := range long {
		long[i] = 'ü'
	}
	got := excerpt(string(long))
	assert.Equal(t, excerptLength+1, len([]rune(got)))
	require.Equal(t, "short", excerpt("short"))
}
