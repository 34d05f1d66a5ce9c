// Package thread accumulates a discussion's replies on the client as pages
// arrive, alongside optimistic replies that are still in flight.
package thread

import (
	"sync"

	"github.com/zfogg/showcase/internal/models"
)

// State is the lifecycle of a locally composed reply. Failed entries never stay
// in a Thread; Fail hands them back to the caller.
type State int

const (
	Pending State = iota
	Confirmed
	Failed
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Confirmed:
		return "confirmed"
	case Failed:
		return "failed"
	}
	return "unknown"
}

// Entry is one line of the rendered thread.
type Entry struct {
	LocalID string
	State   State
	Reply   models.Reply
}

// Thread is safe for use by a fetch loop and a compose loop at once.
type Thread struct {
	mu      sync.Mutex
	entries []Entry
	ids     map[string]bool
	cursor  string
	hasMore bool
}

func New() *Thread {
	return &Thread{ids: map[string]bool{}, hasMore: true}
}

// Merge appends the replies of a page that are not already present and records
// the page's paging state. It returns how many replies were added.
func (t *Thread) Merge(replies []models.Reply, hasMore bool, cursor string) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	added := 0
	for _, r := range replies {
		if t.ids[r.ID] {
			continue
		}
		t.ids[r.ID] = true
		t.entries = append(t.entries, Entry{State: Confirmed, Reply: r})
		added++
	}
	t.hasMore = hasMore
	if cursor != "" {
		t.cursor = cursor
	}
	return added
}

// AddPending shows a reply before the server has accepted it.
func (t *Thread) AddPending(localID string, r models.Reply) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries = append(t.entries, Entry{LocalID: localID, State: Pending, Reply: r})
}

// Confirm replaces the pending entry with the stored reply. If a page already
// delivered that reply, the pending entry is dropped instead.
func (t *Thread) Confirm(localID string, r models.Reply) {
	t.mu.Lock()
	defer t.mu.Unlock()

	i := t.indexOf(localID)
	if i < 0 {
		return
	}
	if t.ids[r.ID] {
		t.entries = append(t.entries[:i], t.entries[i+1:]...)
		return
	}
	t.ids[r.ID] = true
	t.entries[i] = Entry{State: Confirmed, Reply: r}
}

// Fail removes a pending entry the server rejected and returns it marked Failed.
func (t *Thread) Fail(localID string) (Entry, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	i := t.indexOf(localID)
	if i < 0 {
		return Entry{}, false
	}
	e := t.entries[i]
	e.State = Failed
	t.entries = append(t.entries[:i], t.entries[i+1:]...)
	return e, true
}

func (t *Thread) indexOf(localID string) int {
	for i, e := range t.entries {
		if e.State == Pending && e.LocalID == localID {
			return i
		}
	}
	return -1
}

// Entries returns a copy of the thread in display order.
func (t *Thread) Entries() []Entry {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Entry, len(t.entries))
	copy(out, t.entries)
	return out
}

// Next returns the cursor for the following page and whether one should be fetched.
func (t *Thread) Next() (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cursor, t.hasMore
}

func (t *Thread) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}
