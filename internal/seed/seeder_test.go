package seed

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zfogg/showcase/internal/models"
	"github.com/zfogg/showcase/internal/testutil"
	"golang.org/x/crypto/bcrypt"
)

var smallSizes = Sizes{
	Users:                8,
	ProjectsPerUser:      2,
	FollowsPerUser:       4,
	LikesPerUser:         3,
	CommentsPerProject:   1,
	Groups:               2,
	DiscussionsPerGroup:  2,
	RepliesPerDiscussion: 12,
}

func TestSeedDevKeepsCountersConsistent(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	require.NoError(t, NewSeeder(db, 42).SeedDev(ctx, smallSizes))

	var users []models.User
	require.NoError(t, db.Find(&users).Error)
	require.Len(t, users, smallSizes.Users)
	for _, u := range users {
		var followers, following int64
		db.Model(&models.Follow{}).Where("following_id = ?", u.ID).Count(&followers)
		db.Model(&models.Follow{}).Where("follower_id = ?", u.ID).Count(&following)
		assert.EqualValues(t, followers, u.FollowerCount, u.Username)
		assert.EqualValues(t, following, u.FollowingCount, u.Username)
	}

	var selfFollows int64
	db.Model(&models.Follow{}).Where("follower_id = following_id").Count(&selfFollows)
	assert.Zero(t, selfFollows)

	var projects []models.Project
	require.NoError(t, db.Find(&projects).Error)
	assert.Len(t, projects, smallSizes.Users*smallSizes.ProjectsPerUser)
	for _, p := range projects {
		var likes int64
		db.Model(&models.ProjectLike{}).Where("project_id = ?", p.ID).Count(&likes)
		assert.EqualValues(t, likes, p.LikeCount)
		assert.Equal(t, smallSizes.CommentsPerProject, p.CommentCount)
	}

	var discussions []models.Discussion
	require.NoError(t, db.Find(&discussions).Error)
	require.Len(t, discussions, smallSizes.Groups*smallSizes.DiscussionsPerGroup)
	for _, d := range discussions {
		assert.Equal(t, smallSizes.RepliesPerDiscussion, d.Replies)
		var last models.Reply
		require.NoError(t, db.Where("discussion_id = ?", d.ID).Order("created_at DESC, id DESC").First(&last).Error)
		require.NotNil(t, d.LastReply)
		assert.Equal(t, last.ID, d.LastReply.ReplyID)
	}
}

func TestSeedTestAccountsUseDefaultPassword(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	require.NoError(t, NewSeeder(db, 1).SeedTest(ctx))

	var alice models.User
	require.NoError(t, db.Where("username = ?", "alice").First(&alice).Error)
	require.NotNil(t, alice.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(*alice.PasswordHash), []byte(DefaultPassword)))
	assert.Equal(t, 2, alice.FollowingCount)

	var private int64
	db.Model(&models.Project{}).Where("is_public = ?", false).Count(&private)
	assert.EqualValues(t, 1, private)
}

func TestClean(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	s := NewSeeder(db, 7)
	require.NoError(t, s.SeedDev(ctx, smallSizes))
	require.NoError(t, s.Clean(ctx))

	for _, m := range models.All() {
		var n int64
		require.NoError(t, db.Model(m).Count(&n).Error)
		assert.Zero(t, n, "%T", m)
	}
}
