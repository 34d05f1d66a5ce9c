package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	apperrors "github.com/zfogg/showcase/internal/errors"
	"github.com/zfogg/showcase/internal/models"
	"github.com/zfogg/showcase/internal/testutil"
	"gorm.io/gorm"
)

type RepositoryTestSuite struct {
	suite.Suite
	db       *gorm.DB
	ctx      context.Context
	users    UserRepository
	projects ProjectRepository
	alice    *models.User
	bob      *models.User
	base     time.Time
}

func (s *RepositoryTestSuite) SetupTest() {
	s.db = testutil.NewDB(s.T())
	s.ctx = context.Background()
	s.users = NewUserRepository(s.db)
	s.projects = NewProjectRepository(s.db)
	s.alice = testutil.CreateUser(s.T(), s.db, "Alice")
	s.bob = testutil.CreateUser(s.T(), s.db, "Bob")
	s.base = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
}

func (s *RepositoryTestSuite) TestParseOrder() {
	s.Equal(OldestFirst, ParseOrder("oldest"))
	s.Equal(NewestFirst, ParseOrder("newest"))
	s.Equal(NewestFirst, ParseOrder("sideways"))
}

func (s *RepositoryTestSuite) TestLookupsAreCaseInsensitive() {
	u, err := s.users.GetUserByEmail(s.ctx, "USER0@Example.com")
	s.Require().NoError(err)
	s.Equal(s.alice.ID, u.ID)

	u, err = s.users.GetUserByUsername(s.ctx, "USER1")
	s.Require().NoError(err)
	s.Equal(s.bob.ID, u.ID)

	_, err = s.users.GetUser(s.ctx, "missing")
	s.ErrorIs(err, ErrUserNotFound)
	s.ErrorIs(err, apperrors.ErrNotFound)
}

func (s *RepositoryTestSuite) TestUpdateUserRejectsEmptyAndMissing() {
	s.ErrorIs(s.users.UpdateUser(s.ctx, s.alice.ID, nil), ErrInvalidInput)
	s.ErrorIs(s.users.UpdateUser(s.ctx, "missing", map[string]interface{}{"bio": "x"}), ErrUserNotFound)
	s.NoError(s.users.UpdateUser(s.ctx, s.alice.ID, map[string]interface{}{"bio": "hello"}))

	u, err := s.users.GetUser(s.ctx, s.alice.ID)
	s.Require().NoError(err)
	s.Equal("hello", u.Bio)
}

func (s *RepositoryTestSuite) TestFollowIsIdempotent() {
	created, err := s.users.CreateFollow(s.ctx, s.alice.ID, s.bob.ID)
	s.Require().NoError(err)
	s.True(created)

	created, err = s.users.CreateFollow(s.ctx, s.alice.ID, s.bob.ID)
	s.Require().NoError(err)
	s.False(created)

	following, err := s.users.IsFollowing(s.ctx, s.alice.ID, s.bob.ID)
	s.Require().NoError(err)
	s.True(following)

	ids, err := s.users.FollowingIDs(s.ctx, s.alice.ID)
	s.Require().NoError(err)
	s.Equal([]string{s.bob.ID}, ids)

	followers, err := s.users.GetFollowers(s.ctx, s.bob.ID, 10, 0)
	s.Require().NoError(err)
	s.Require().Len(followers, 1)
	s.Equal(s.alice.ID, followers[0].ID)

	deleted, err := s.users.DeleteFollow(s.ctx, s.alice.ID, s.bob.ID)
	s.Require().NoError(err)
	s.True(deleted)
	deleted, err = s.users.DeleteFollow(s.ctx, s.alice.ID, s.bob.ID)
	s.Require().NoError(err)
	s.False(deleted)
}

func (s *RepositoryTestSuite) TestAdjustFollowCounts() {
	s.Require().NoError(s.users.AdjustFollowCounts(s.ctx, s.alice.ID, s.bob.ID, 1))

	a, _ := s.users.GetUser(s.ctx, s.alice.ID)
	b, _ := s.users.GetUser(s.ctx, s.bob.ID)
	s.Equal(1, a.FollowingCount)
	s.Equal(1, b.FollowerCount)
}

func (s *RepositoryTestSuite) TestListAllOrderAndVisibility() {
	first := testutil.CreateProject(s.T(), s.db, s.alice, "first", true, s.base)
	hidden := testutil.CreateProject(s.T(), s.db, s.bob, "hidden", false, s.base.Add(time.Hour))
	last := testutil.CreateProject(s.T(), s.db, s.alice, "last", true, s.base.Add(2*time.Hour))

	all, err := s.projects.ListAll(s.ctx, NewestFirst, false)
	s.Require().NoError(err)
	s.Equal([]string{last.ID, hidden.ID, first.ID}, projectIDs(all))

	public, err := s.projects.ListAll(s.ctx, OldestFirst, true)
	s.Require().NoError(err)
	s.Equal([]string{first.ID, last.ID}, projectIDs(public))
}

func (s *RepositoryTestSuite) TestListPublicByIDsKeepsRequestOrder() {
	a := testutil.CreateProject(s.T(), s.db, s.alice, "a", true, s.base)
	b := testutil.CreateProject(s.T(), s.db, s.alice, "b", true, s.base.Add(time.Minute))
	hidden := testutil.CreateProject(s.T(), s.db, s.alice, "c", false, s.base)

	got, err := s.projects.ListPublicByIDs(s.ctx, []string{b.ID, "gone", hidden.ID, a.ID})
	s.Require().NoError(err)
	s.Equal([]string{b.ID, a.ID}, projectIDs(got))
}

func (s *RepositoryTestSuite) TestListByAuthorHidesPrivateFromOthers() {
	testutil.CreateProject(s.T(), s.db, s.alice, "pub", true, s.base)
	testutil.CreateProject(s.T(), s.db, s.alice, "priv", false, s.base.Add(time.Minute))

	own, err := s.projects.ListByAuthor(s.ctx, s.alice.ID, true)
	s.Require().NoError(err)
	s.Len(own, 2)

	others, err := s.projects.ListByAuthor(s.ctx, s.alice.ID, false)
	s.Require().NoError(err)
	s.Require().Len(others, 1)
	s.Equal("pub", others[0].Title)

	n, err := s.projects.CountByAuthor(s.ctx, s.alice.ID)
	s.Require().NoError(err)
	s.EqualValues(2, n)
}

func (s *RepositoryTestSuite) TestLikesAndCounters() {
	p := testutil.CreateProject(s.T(), s.db, s.alice, "liked", true, s.base)

	created, err := s.projects.CreateLike(s.ctx, s.bob.ID, p.ID)
	s.Require().NoError(err)
	s.True(created)
	created, err = s.projects.CreateLike(s.ctx, s.bob.ID, p.ID)
	s.Require().NoError(err)
	s.False(created)
	s.Require().NoError(s.projects.AdjustLikeCount(s.ctx, p.ID, 1))

	liked, err := s.projects.IsLiked(s.ctx, s.bob.ID, p.ID)
	s.Require().NoError(err)
	s.True(liked)
	ids, err := s.projects.LikedProjectIDs(s.ctx, s.bob.ID)
	s.Require().NoError(err)
	s.Equal([]string{p.ID}, ids)

	got, err := s.projects.GetProject(s.ctx, p.ID)
	s.Require().NoError(err)
	s.Equal(1, got.LikeCount)
}

func (s *RepositoryTestSuite) TestDeleteProjectRemovesChildren() {
	p := testutil.CreateProject(s.T(), s.db, s.alice, "doomed", true, s.base)
	_, err := s.projects.CreateLike(s.ctx, s.bob.ID, p.ID)
	s.Require().NoError(err)
	s.Require().NoError(s.projects.CreateComment(s.ctx, &models.Comment{ProjectID: p.ID, AuthorID: s.bob.ID, Body: "nice"}))

	s.Require().NoError(s.projects.DeleteProject(s.ctx, p.ID))
	s.ErrorIs(s.projects.DeleteProject(s.ctx, p.ID), ErrProjectNotFound)

	var likes, comments int64
	s.db.Model(&models.ProjectLike{}).Count(&likes)
	s.db.Model(&models.Comment{}).Count(&comments)
	s.Zero(likes)
	s.Zero(comments)
}

func (s *RepositoryTestSuite) TestCommentsOldestFirst() {
	p := testutil.CreateProject(s.T(), s.db, s.alice, "talk", true, s.base)
	for i, body := range []string{"one", "two", "three"} {
		s.Require().NoError(s.projects.CreateComment(s.ctx, &models.Comment{
			ProjectID: p.ID, AuthorID: s.bob.ID, Body: body, CreatedAt: s.base.Add(time.Duration(i) * time.Minute),
		}))
	}
	comments, err := s.projects.ListComments(s.ctx, p.ID)
	s.Require().NoError(err)
	s.Require().Len(comments, 3)
	s.Equal("one", comments[0].Body)
	s.Equal("three", comments[2].Body)

	s.Require().NoError(s.projects.DeleteComment(s.ctx, comments[1].ID))
	_, err = s.projects.GetComment(s.ctx, comments[1].ID)
	s.ErrorIs(err, ErrCommentNotFound)
}

func (s *RepositoryTestSuite) TestRefreshAuthorDenormalizedNames() {
	p := testutil.CreateProject(s.T(), s.db, s.alice, "renamed", true, s.base)
	s.Require().NoError(s.projects.RefreshAuthor(s.ctx, s.alice.ID, "Alicia", "https://cdn.example.com/new.png"))

	got, err := s.projects.GetProject(s.ctx, p.ID)
	s.Require().NoError(err)
	s.Equal("Alicia", got.AuthorName)
	s.Equal("https://cdn.example.com/new.png", got.AuthorPhotoURL)
}

func (s *RepositoryTestSuite) TestSearchPublicSkipsPrivate() {
	testutil.CreateProject(s.T(), s.db, s.alice, "Rust compiler", true, s.base)
	testutil.CreateProject(s.T(), s.db, s.alice, "Secret compiler", false, s.base)

	found, err := s.projects.SearchPublic(s.ctx, "COMPILER", 10)
	s.Require().NoError(err)
	s.Require().Len(found, 1)
	s.Equal("Rust compiler", found[0].Title)

	users, err := s.users.SearchUsers(s.ctx, "ali", 10)
	s.Require().NoError(err)
	s.Require().Len(users, 1)
	s.Equal(s.alice.ID, users[0].ID)
}

func (s *RepositoryTestSuite) TestWithTxRollsBack() {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if _, err := s.users.WithTx(tx).CreateFollow(s.ctx, s.alice.ID, s.bob.ID); err != nil {
			return err
		}
		return gorm.ErrInvalidTransaction
	})
	s.Require().Error(err)

	following, err := s.users.IsFollowing(s.ctx, s.alice.ID, s.bob.ID)
	s.Require().NoError(err)
	s.False(following)
}

func projectIDs(ps []*models.Project) []string {
	ids := make([]string, len(ps))
	for i, p := range ps {
		ids[i] = p.ID
	}
	return ids
}

func TestRepositoryTestSuite(t *testing.T) {
	suite.Run(t, new(RepositoryTestSuite))
}
