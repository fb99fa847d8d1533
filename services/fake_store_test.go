package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"guestbookAPI/internal/guestbook"
)

// memStore is an in-memory entry store with the same observable behavior as
// the Firestore one: server-assigned timestamps, atomic batches, live snapshots.
type memStore struct {
	mu       sync.Mutex
	entries  map[string]guestbook.Entry
	now      time.Time
	watchers map[int]func([]guestbook.Entry)
	nextW    int

	creates  int
	batchErr error
	pingErr  error
}

func newMemStore() *memStore {
	return &memStore{
		entries:  make(map[string]guestbook.Entry),
		now:      time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC),
		watchers: make(map[int]func([]guestbook.Entry)),
	}
}

func (m *memStore) Create(ctx context.Context, username, message string) (string, error) {
	m.mu.Lock()
	m.creates++
	m.now = m.now.Add(time.Second)
	id := uuid.NewString()
	m.entries[id] = guestbook.Entry{ID: id, Username: username, Message: message, CreatedAt: m.now}
	m.mu.Unlock()
	m.notify()
	return id, nil
}

func (m *memStore) add(e guestbook.Entry) {
	m.mu.Lock()
	m.entries[e.ID] = e
	m.mu.Unlock()
}

func (m *memStore) get(id string) (guestbook.Entry, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[id]
	return e, ok
}

func (m *memStore) all() []guestbook.Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]guestbook.Entry, 0, len(m.entries))
	for _, e := range m.entries {
		out = append(out, e)
	}
	return out
}

func (m *memStore) ListApproved(ctx context.Context, limit int) ([]guestbook.Entry, error) {
	view := guestbook.PublicView(m.all())
	if len(view) > limit {
		view = view[:limit]
	}
	return view, nil
}

func (m *memStore) Ping(ctx context.Context) error { return m.pingErr }

func (m *memStore) ListPending(ctx context.Context) ([]guestbook.Entry, error) {
	var out []guestbook.Entry
	for _, e := range m.all() {
		if !e.Approved {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *memStore) Approve(ctx context.Context, id, moderator string) error {
	m.mu.Lock()
	e, ok := m.entries[id]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("approve entry %s: %w", id, guestbook.ErrNotFound)
	}
	if e.Approved {
		m.mu.Unlock()
		return fmt.Errorf("approve entry %s: %w", id, guestbook.ErrAlreadyApproved)
	}
	m.approveLocked(&e, moderator)
	m.mu.Unlock()
	m.notify()
	return nil
}

func (m *memStore) approveLocked(e *guestbook.Entry, moderator string) {
	at := m.now
	e.Approved = true
	e.ModeratedAt = &at
	e.ModeratedBy = moderator
	m.entries[e.ID] = *e
}

func (m *memStore) ApproveBatch(ctx context.Context, ids []string, moderator string) error {
	m.mu.Lock()
	if m.batchErr != nil {
		m.mu.Unlock()
		return m.batchErr
	}
	for _, id := range ids {
		e, ok := m.entries[id]
		if !ok {
			m.mu.Unlock()
			return fmt.Errorf("%w: %s", guestbook.ErrNotFound, id)
		}
		if e.Approved {
			m.mu.Unlock()
			return fmt.Errorf("%w: %s", guestbook.ErrAlreadyApproved, id)
		}
	}
	for _, id := range ids {
		e := m.entries[id]
		m.approveLocked(&e, moderator)
	}
	m.mu.Unlock()
	m.notify()
	return nil
}

func (m *memStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	if _, ok := m.entries[id]; !ok {
		m.mu.Unlock()
		return fmt.Errorf("delete entry %s: %w", id, guestbook.ErrNotFound)
	}
	delete(m.entries, id)
	m.mu.Unlock()
	m.notify()
	return nil
}

func (m *memStore) WatchApproved(ctx context.Context, limit int, on func([]guestbook.Entry)) error {
	m.mu.Lock()
	key := m.nextW
	m.nextW++
	m.watchers[key] = on
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		delete(m.watchers, key)
		m.mu.Unlock()
	}()

	view, _ := m.ListApproved(ctx, limit)
	on(view)
	<-ctx.Done()
	return nil
}

func (m *memStore) notify() {
	m.mu.Lock()
	watchers := make([]func([]guestbook.Entry), 0, len(m.watchers))
	for _, w := range m.watchers {
		watchers = append(watchers, w)
	}
	m.mu.Unlock()

	view, _ := m.ListApproved(context.Background(), guestbook.DefaultListingLimit)
	for _, w := range watchers {
		w(view)
	}
}
