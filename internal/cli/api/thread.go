package api

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/zfogg/showcase/internal/models"
	"github.com/zfogg/showcase/internal/thread"
)

// LoadMore fetches the page after the thread's cursor and merges it. It returns
// false once the server reports no further pages.
func (c *Client) LoadMore(ctx context.Context, t *thread.Thread, discussionID string) (bool, error) {
	cursor, more := t.Next()
	if !more {
		return false, nil
	}
	page, err := c.Replies(ctx, discussionID, cursor)
	if err != nil {
		return more, err
	}
	added := t.Merge(page.Replies, page.HasMore, page.NextCursor)
	c.log.Debug("Merged replies page", "discussion", discussionID, "added", added, "has_more", page.HasMore)
	return page.HasMore, nil
}

// LoadAll pages until the server reports the end of the discussion.
func (c *Client) LoadAll(ctx context.Context, t *thread.Thread, discussionID string) error {
	for {
		more, err := c.LoadMore(ctx, t, discussionID)
		if err != nil || !more {
			return err
		}
	}
}

// SendError is returned by SendReply when the server rejects a reply. Entry is
// the dropped optimistic entry, in the Failed state.
type SendError struct {
	Entry thread.Entry
	Err   error
}

func (e *SendError) Error() string { return "reply not sent: " + e.Err.Error() }
func (e *SendError) Unwrap() error { return e.Err }

// SendReply shows the reply as pending, posts it, then confirms or drops the
// pending entry depending on the outcome.
func (c *Client) SendReply(ctx context.Context, t *thread.Thread, discussionID, authorName, body string) (*models.Reply, error) {
	localID := uuid.NewString()
	t.AddPending(localID, models.Reply{
		DiscussionID: discussionID,
		AuthorName:   authorName,
		Body:         body,
		CreatedAt:    time.Now().UTC(),
	})

	reply, err := c.PostReply(ctx, discussionID, body)
	if err != nil {
		if failed, ok := t.Fail(localID); ok {
			return nil, &SendError{Entry: failed, Err: err}
		}
		return nil, err
	}
	t.Confirm(localID, *reply)
	return reply, nil
}
