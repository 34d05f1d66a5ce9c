package projects

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	apperrors "github.com/zfogg/showcase/internal/errors"
	"github.com/zfogg/showcase/internal/models"
	"github.com/zfogg/showcase/internal/notify"
	"github.com/zfogg/showcase/internal/repository"
	"github.com/zfogg/showcase/internal/testutil"
	"gorm.io/gorm"
)

type fakeIndexer struct {
	indexed map[string]string
	deleted []string
}

func (f *fakeIndexer) IndexProject(_ context.Context, p *models.Project) error {
	if f.indexed == nil {
		f.indexed = map[string]string{}
	}
	f.indexed[p.ID] = p.AuthorName
	return nil
}

func (f *fakeIndexer) DeleteProject(_ context.Context, id string) error {
	f.deleted = append(f.deleted, id)
	return nil
}

func setup(t *testing.T) (*Service, *gorm.DB, *notify.Service) {
	db := testutil.NewDB(t)
	notifier := notify.NewService(db)
	svc := NewService(db, repository.NewProjectRepository(db), repository.NewUserRepository(db), notifier)
	return svc, db, notifier
}

func TestCreateValidates(t *testing.T) {
	svc, db, _ := setup(t)
	u := testutil.CreateUser(t, db, "Ada")

	_, err := svc.Create(context.Background(), u.ID, Input{Title: "  ", Description: "x"})
	var fe *apperrors.FieldError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, "title", fe.Field)

	_, err = svc.Create(context.Background(), u.ID, Input{Title: "Robot"})
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, "description", fe.Field)

	p, err := svc.Create(context.Background(), u.ID, Input{Title: "Robot", Description: "Arm"})
	require.NoError(t, err)
	assert.True(t, p.IsPublic, "projects are public unless stated otherwise")
	assert.Equal(t, "Ada", p.AuthorName)
}

func TestPrivateProjectVisibleToAuthorOnly(t *testing.T) {
	svc, db, _ := setup(t)
	ctx := context.Background()
	owner := testutil.CreateUser(t, db, "Owner")
	other := testutil.CreateUser(t, db, "Other")
	private := false
	p, err := svc.Create(ctx, owner.ID, Input{Title: "Secret", Description: "shh", IsPublic: &private})
	require.NoError(t, err)

	_, err = svc.Get(ctx, owner.ID, p.ID)
	assert.NoError(t, err)
	_, err = svc.Get(ctx, other.ID, p.ID)
	assert.ErrorIs(t, err, repository.ErrProjectNotFound)

	own, err := svc.ListByAuthor(ctx, owner.ID, owner.ID)
	require.NoError(t, err)
	assert.Len(t, own, 1)
	visible, err := svc.ListByAuthor(ctx, other.ID, owner.ID)
	require.NoError(t, err)
	assert.Empty(t, visible)
}

func TestUpdateAndDeleteRequireAuthor(t *testing.T) {
	svc, db, _ := setup(t)
	ctx := context.Background()
	owner := testutil.CreateUser(t, db, "Owner")
	other := testutil.CreateUser(t, db, "Other")
	idx := &fakeIndexer{}
	svc.SetIndexer(idx)

	p, err := svc.Create(ctx, owner.ID, Input{Title: "Robot", Description: "Arm"})
	require.NoError(t, err)

	_, err = svc.Update(ctx, other.ID, p.ID, Input{Title: "Mine", Description: "now"})
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	updated, err := svc.Update(ctx, owner.ID, p.ID, Input{Title: "Robot v2", Description: "Arm"})
	require.NoError(t, err)
	assert.Equal(t, "Robot v2", updated.Title)

	_, err = svc.AddComment(ctx, other.ID, p.ID, "nice")
	require.NoError(t, err)

	assert.ErrorIs(t, svc.Delete(ctx, other.ID, p.ID), ErrNotAuthor)
	require.NoError(t, svc.Delete(ctx, owner.ID, p.ID))

	var comments int64
	require.NoError(t, db.Model(&models.Comment{}).Count(&comments).Error)
	assert.Zero(t, comments)
	assert.Equal(t, []string{p.ID}, idx.deleted)
}

func TestCommentNotificationScenario(t *testing.T) {
	svc, db, notifier := setup(t)
	ctx := context.Background()
	owner := testutil.CreateUser(t, db, "Owner")
	commenter := testutil.CreateUser(t, db, "Commenter")
	p, err := svc.Create(ctx, owner.ID, Input{Title: "Robot", Description: "Arm"})
	require.NoError(t, err)

	c, err := svc.AddComment(ctx, commenter.ID, p.ID, "  love it  ")
	require.NoError(t, err)
	assert.Equal(t, "love it", c.Body)

	inbox, err := notifier.List(ctx, owner.ID, 10, 0)
	require.NoError(t, err)
	require.Len(t, inbox, 1)
	assert.Equal(t, models.NotificationComment, inbox[0].Type)
	assert.Equal(t, commenter.ID, inbox[0].SenderID)
	assert.Equal(t, "Robot", inbox[0].SubjectTitle)

	// the owner's own comment notifies nobody
	_, err = svc.AddComment(ctx, owner.ID, p.ID, "thanks")
	require.NoError(t, err)
	unread, err := notifier.UnreadCount(ctx, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), unread)

	stored, err := svc.Get(ctx, owner.ID, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, stored.CommentCount)

	// the project author removes someone else's comment
	require.NoError(t, svc.DeleteComment(ctx, owner.ID, c.ID))
	inbox, err = notifier.List(ctx, commenter.ID, 10, 0)
	require.NoError(t, err)
	require.Len(t, inbox, 1)
	assert.Equal(t, models.NotificationCommentDeleted, inbox[0].Type)

	stored, err = svc.Get(ctx, owner.ID, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.CommentCount)
}

func TestCommentValidationAndDeletePermissions(t *testing.T) {
	svc, db, _ := setup(t)
	ctx := context.Background()
	owner := testutil.CreateUser(t, db, "Owner")
	commenter := testutil.CreateUser(t, db, "Commenter")
	bystander := testutil.CreateUser(t, db, "Bystander")
	p := testutil.CreateProject(t, db, owner, "Robot", true, time.Now())

	_, err := svc.AddComment(ctx, commenter.ID, p.ID, "   ")
	assert.Error(t, err)
	_, err = svc.AddComment(ctx, commenter.ID, p.ID, strings.Repeat("a", MaxCommentLength+1))
	assert.Error(t, err)
	_, err = svc.AddComment(ctx, commenter.ID, p.ID, strings.Repeat("é", MaxCommentLength))
	assert.NoError(t, err, "the limit counts characters, not bytes")

	c, err := svc.AddComment(ctx, commenter.ID, p.ID, "second")
	require.NoError(t, err)
	assert.ErrorIs(t, svc.DeleteComment(ctx, bystander.ID, c.ID), ErrNotAuthor)
	require.NoError(t, svc.DeleteComment(ctx, commenter.ID, c.ID))
	assert.ErrorIs(t, svc.DeleteComment(ctx, commenter.ID, c.ID), repository.ErrCommentNotFound)

	comments, err := svc.Comments(ctx, bystander.ID, p.ID)
	require.NoError(t, err)
	assert.Len(t, comments, 1)
}

func TestRefreshAuthorRewritesSnapshots(t *testing.T) {
	svc, db, _ := setup(t)
	ctx := context.Background()
	owner := testutil.CreateUser(t, db, "Old Name")
	idx := &fakeIndexer{}
	svc.SetIndexer(idx)
	p, err := svc.Create(ctx, owner.ID, Input{Title: "Robot", Description: "Arm"})
	require.NoError(t, err)

	require.NoError(t, db.Model(&models.User{}).Where("id = ?", owner.ID).Update("display_name", "New Name").Error)
	require.NoError(t, svc.RefreshAuthor(ctx, owner.ID))

	stored, err := svc.Get(ctx, owner.ID, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "New Name", stored.AuthorName)
	assert.Equal(t, "New Name", idx.indexed[p.ID])
}
