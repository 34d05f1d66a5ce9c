package notify

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zfogg/showcase/internal/models"
	"github.com/zfogg/showcase/internal/queue"
	"github.com/zfogg/showcase/internal/testutil"
)

type recordingPusher struct {
	mu     sync.Mutex
	pushed []*models.Notification
	counts map[string]int64
}

func (p *recordingPusher) PushNotification(n *models.Notification) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pushed = append(p.pushed, n)
}

func (p *recordingPusher) PushUnreadCount(userID string, unread int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.counts == nil {
		p.counts = map[string]int64{}
	}
	p.counts[userID] = unread
}

func TestNotifySkipsActorAndDuplicates(t *testing.T) {
	db := testutil.NewDB(t)
	actor := testutil.CreateUser(t, db, "Actor")
	admin1 := testutil.CreateUser(t, db, "Admin One")
	admin2 := testutil.CreateUser(t, db, "Admin Two")

	pusher := &recordingPusher{}
	svc := NewService(db)
	svc.SetPusher(pusher)

	svc.Notify(context.Background(), Event{
		Type:       models.NotificationGroupJoin,
		ActorID:    actor.ID,
		Recipients: []string{admin1.ID, actor.ID, admin2.ID, admin1.ID},
		SubjectID:  "group-1",
	})

	var rows []models.Notification
	require.NoError(t, db.Order("recipient_id").Find(&rows).Error)
	require.Len(t, rows, 2)
	for _, n := range rows {
		assert.NotEqual(t, actor.ID, n.RecipientID)
		assert.Equal(t, "Actor", n.SenderName)
		assert.Equal(t, actor.PhotoURL, n.SenderPhotoURL)
		assert.False(t, n.Read)
	}
	assert.Len(t, pusher.pushed, 2)
}

func TestNotifySelfActionCreatesNothing(t *testing.T) {
	db := testutil.NewDB(t)
	owner := testutil.CreateUser(t, db, "Owner")

	NewService(db).Notify(context.Background(), Event{
		Type:       models.NotificationComment,
		ActorID:    owner.ID,
		Recipients: []string{owner.ID},
	})

	var count int64
	require.NoError(t, db.Model(&models.Notification{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestNotifySwallowsWriteFailures(t *testing.T) {
	db := testutil.NewDB(t)
	actor := testutil.CreateUser(t, db, "Actor")
	recipient := testutil.CreateUser(t, db, "Recipient")
	require.NoError(t, db.Migrator().DropTable(&models.Notification{}))

	assert.NotPanics(t, func() {
		NewService(db).Notify(context.Background(), Event{
			Type:       models.NotificationLike,
			ActorID:    actor.ID,
			Recipients: []string{recipient.ID},
		})
	})
}

func TestNotifyThroughQueue(t *testing.T) {
	db := testutil.NewDB(t)
	actor := testutil.CreateUser(t, db, "Actor")
	recipient := testutil.CreateUser(t, db, "Recipient")

	q := queue.New(queue.Options{Workers: 1})
	q.Start()
	defer q.Stop(context.Background())

	svc := NewService(db)
	svc.SetQueue(q)
	svc.Notify(context.Background(), Event{Type: models.NotificationFollow, ActorID: actor.ID, Recipients: []string{recipient.ID}})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, q.Wait(ctx))

	unread, err := svc.UnreadCount(context.Background(), recipient.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), unread)
}

func TestInboxReadState(t *testing.T) {
	db := testutil.NewDB(t)
	a := testutil.CreateUser(t, db, "A")
	b := testutil.CreateUser(t, db, "B")
	c := testutil.CreateUser(t, db, "C")

	pusher := &recordingPusher{}
	svc := NewService(db)
	svc.SetPusher(pusher)
	ctx := context.Background()

	svc.Notify(ctx, Event{Type: models.NotificationFollow, ActorID: a.ID, Recipients: []string{b.ID}})
	svc.Notify(ctx, Event{Type: models.NotificationLike, ActorID: a.ID, Recipients: []string{b.ID}, SubjectID: "p1"})
	svc.Notify(ctx, Event{Type: models.NotificationFollow, ActorID: a.ID, Recipients: []string{c.ID}})

	inbox, err := svc.List(ctx, b.ID, 10, 0)
	require.NoError(t, err)
	require.Len(t, inbox, 2)

	// another user's notification is invisible to b
	var cNote models.Notification
	require.NoError(t, db.Where("recipient_id = ?", c.ID).First(&cNote).Error)
	assert.ErrorIs(t, svc.MarkRead(ctx, b.ID, cNote.ID), ErrNotificationNotFound)

	require.NoError(t, svc.MarkRead(ctx, b.ID, inbox[0].ID))
	require.NoError(t, svc.MarkRead(ctx, b.ID, inbox[0].ID), "marking twice is fine")
	unread, err := svc.UnreadCount(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), unread)
	assert.Equal(t, int64(1), pusher.counts[b.ID])

	changed, err := svc.MarkAllRead(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), changed)

	unread, err = svc.UnreadCount(ctx, b.ID)
	require.NoError(t, err)
	assert.Zero(t, unread)

	unread, err = svc.UnreadCount(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), unread, "mark-all-read must not touch other inboxes")
}
