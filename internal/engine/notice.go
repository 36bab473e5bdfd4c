package engine

import (
	"sync"
	"time"

	"github.com/fjod/storefront-sync/internal/domain"
)

type NoticeKind string

const (
	// NoticeSyncFailed: a remote write failed and the optimistic change was reverted.
	NoticeSyncFailed       NoticeKind = "sync_failed"
	NoticeInvalid          NoticeKind = "invalid"
	NoticeAuthRequired     NoticeKind = "auth_required"
	NoticeLoginMergeFailed NoticeKind = "login_merge_failed"
	NoticeReconcileFailed  NoticeKind = "reconcile_failed"
	NoticeSubscribeFailed  NoticeKind = "subscribe_failed"
)

// Notice is a user-visible, non-fatal message (a toast).
type Notice struct {
	Kind       NoticeKind        `json:"kind"`
	Collection domain.Collection `json:"collection,omitempty"`
	Identity   string            `json:"identity,omitempty"`
	Message    string            `json:"message"`
	At         time.Time         `json:"at"`
}

// Notifier is the fire-and-forget failure channel towards the UI.
type Notifier interface {
	Notify(Notice)
}

type NotifierFunc func(Notice)

func (f NotifierFunc) Notify(n Notice) {
	f(n)
}

// NoticeQueue buffers notices until the UI drains them. The oldest notices
// are dropped once limit is reached.
type NoticeQueue struct {
	mu    sync.Mutex
	items []Notice
	limit int
}

func NewNoticeQueue(limit int) *NoticeQueue {
	if limit <= 0 {
		limit = 100
	}
	return &NoticeQueue{limit: limit}
}

func (q *NoticeQueue) Notify(n Notice) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, n)
	if over := len(q.items) - q.limit; over > 0 {
		q.items = append([]Notice(nil), q.items[over:]...)
	}
}

// Drain returns and forgets the buffered notices.
func (q *NoticeQueue) Drain() []Notice {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.items
	q.items = nil
	return out
}

func (q *NoticeQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
