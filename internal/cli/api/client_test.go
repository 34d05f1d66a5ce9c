package api

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	json "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zfogg/showcase/internal/models"
	"github.com/zfogg/showcase/internal/thread"
)

func newTestClient(t *testing.T, h http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(srv.URL, 5*time.Second, log.New(io.Discard))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestLoginSendsCredentialsAndDecodes(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/auth/login", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "alice@example.com", body["email"])
		writeJSON(w, http.StatusOK, map[string]any{
			"token":      "jwt",
			"user":       map[string]any{"id": "u1", "username": "alice"},
			"expires_at": time.Now().Add(time.Hour),
		})
	})
	c := newTestClient(t, mux)

	resp, err := c.Login(context.Background(), "alice@example.com", "pw", "")
	require.NoError(t, err)
	assert.Equal(t, "jwt", resp.Token)
	assert.Equal(t, "alice", resp.User.Username)
}

func TestLoginAsksForTwoFactorCode(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/auth/login", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if body["code"] != "123456" {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]string{
				"code": "VALIDATION_ERROR", "message": "Enter the code from your authenticator app.", "field": "code",
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"token": "jwt", "user": map[string]any{"id": "u1", "username": "alice"}})
	})
	c := newTestClient(t, mux)

	_, err := c.Login(context.Background(), "alice@example.com", "pw", "")
	assert.True(t, NeedsTwoFactorCode(err))
	assert.False(t, IsUnauthorized(err))

	resp, err := c.Login(context.Background(), "alice@example.com", "pw", "123456")
	require.NoError(t, err)
	assert.Equal(t, "jwt", resp.Token)
	assert.False(t, NeedsTwoFactorCode(nil))
}

func TestErrorBodyBecomesAPIError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/auth/me", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"code": "UNAUTHORIZED", "message": "token expired"})
	})
	mux.HandleFunc("GET /api/v1/search", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	c := newTestClient(t, mux)

	_, err := c.Me(context.Background())
	require.Error(t, err)
	assert.True(t, IsUnauthorized(err))
	assert.Contains(t, err.Error(), "token expired")

	_, err = c.Search(context.Background(), "go", "projects", 5)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "HTTP_502", apiErr.Code)
	assert.False(t, IsUnauthorized(err))
}

func TestFeedPicksPathAndOrder(t *testing.T) {
	var gotPath, gotOrder, gotAuth string
	mux := http.NewServeMux()
	handler := func(w http.ResponseWriter, r *http.Request) {
		gotPath, gotOrder, gotAuth = r.URL.Path, r.URL.Query().Get("order"), r.Header.Get("Authorization")
		writeJSON(w, http.StatusOK, map[string]any{"mode": "following", "items": []any{}, "empty": true, "message": "Follow people"})
	}
	mux.HandleFunc("GET /api/v1/feed/following", handler)
	mux.HandleFunc("GET /api/v1/feed/discover", handler)
	c := newTestClient(t, mux)
	c.SetToken("abc")

	f, err := c.Feed(context.Background(), true, true)
	require.NoError(t, err)
	assert.Equal(t, "/api/v1/feed/following", gotPath)
	assert.Equal(t, "oldest", gotOrder)
	assert.Equal(t, "Bearer abc", gotAuth)
	assert.True(t, f.Empty)

	_, err = c.Feed(context.Background(), false, false)
	require.NoError(t, err)
	assert.Equal(t, "/api/v1/feed/discover", gotPath)
	assert.Equal(t, "newest", gotOrder)
}

// repliesServer pages through total replies ten at a time, keyed by the last id.
func repliesServer(t *testing.T, total int) (*http.ServeMux, *[]string) {
	var cursors []string
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/discussions/d1/replies", func(w http.ResponseWriter, r *http.Request) {
		after := r.URL.Query().Get("after")
		cursors = append(cursors, after)
		start := 0
		if after != "" {
			n, err := strconv.Atoi(after[1:])
			require.NoError(t, err)
			start = n + 1
		}
		end := min(start+10, total)
		page := ReplyPage{HasMore: end-start == 10}
		for i := start; i < end; i++ {
			page.Replies = append(page.Replies, models.Reply{ID: fmt.Sprintf("r%d", i), DiscussionID: "d1"})
		}
		if len(page.Replies) > 0 {
			page.NextCursor = page.Replies[len(page.Replies)-1].ID
		}
		writeJSON(w, http.StatusOK, page)
	})
	return mux, &cursors
}

func TestLoadAllFollowsCursor(t *testing.T) {
	mux, cursors := repliesServer(t, 23)
	c := newTestClient(t, mux)
	th := thread.New()

	require.NoError(t, c.LoadAll(context.Background(), th, "d1"))
	assert.Equal(t, 23, th.Len())
	assert.Equal(t, []string{"", "r9", "r19"}, *cursors)

	more, err := c.LoadMore(context.Background(), th, "d1")
	require.NoError(t, err)
	assert.False(t, more)
	assert.Len(t, *cursors, 3)
}

func TestLoadAllWithTrailingEmptyPage(t *testing.T) {
	mux, cursors := repliesServer(t, 20)
	c := newTestClient(t, mux)
	th := thread.New()

	require.NoError(t, c.LoadAll(context.Background(), th, "d1"))
	assert.Equal(t, 20, th.Len())
	assert.Equal(t, []string{"", "r9", "r19"}, *cursors)
}

func TestSendReplyConfirmsOrDrops(t *testing.T) {
	fail := false
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/discussions/d1/replies", func(w http.ResponseWriter, r *http.Request) {
		if fail {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"code": "VALIDATION_ERROR", "message": "too short", "field": "body"})
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"reply": models.Reply{ID: "r1", DiscussionID: "d1", Body: "hello"}})
	})
	c := newTestClient(t, mux)
	th := thread.New()

	reply, err := c.SendReply(context.Background(), th, "d1", "alice", "hello")
	require.NoError(t, err)
	assert.Equal(t, "r1", reply.ID)
	entries := th.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, thread.Confirmed, entries[0].State)
	assert.Equal(t, "r1", entries[0].Reply.ID)

	fail = true
	_, err = c.SendReply(context.Background(), th, "d1", "alice", "x")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "body", apiErr.Field)
	var sendErr *SendError
	require.ErrorAs(t, err, &sendErr)
	assert.Equal(t, thread.Failed, sendErr.Entry.State)
	assert.Equal(t, "x", sendErr.Entry.Reply.Body)
	assert.Equal(t, 1, th.Len())
}
