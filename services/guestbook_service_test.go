package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"guestbookAPI/internal/guestbook"
	"guestbookAPI/internal/profanity"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestGuestbookService(t *testing.T, store *memStore) *GuestbookService {
	t.Helper()
	filter, err := profanity.Default()
	require.NoError(t, err)
	return NewGuestbookService(store, filter, 0, discardLogger())
}

func TestSubmit_StoresPendingEntry(t *testing.T) {
	store := newMemStore()
	svc := newTestGuestbookService(t, store)

	id, err := svc.Submit(context.Background(), guestbook.SubmitRequest{Username: "  Ann ", Message: "Hi there!"})
	require.NoError(t, err)

	stored, ok := store.get(id)
	require.True(t, ok)
	assert.Equal(t, "Ann", stored.Username)
	assert.Equal(t, "Hi there!", stored.Message)
	assert.False(t, stored.Approved)
	assert.False(t, stored.CreatedAt.IsZero())

	// Pending entries never reach the public listing.
	public, err := svc.ListApproved(context.Background())
	require.NoError(t, err)
	assert.Empty(t, public)

	pending, err := store.ListPending(context.Background())
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, id, pending[0].ID)
}

func TestSubmit_ValidationBeforeStore(t *testing.T) {
	store := newMemStore()
	svc := newTestGuestbookService(t, store)

	_, err := svc.Submit(context.Background(), guestbook.SubmitRequest{Username: "A", Message: "Hi there!"})

	require.ErrorIs(t, err, guestbook.ErrValidation)
	var verr *guestbook.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, []string{"username must be at least 2 characters"}, verr.Problems)
	assert.Zero(t, store.creates)
}

func TestSubmit_RejectsProfanity(t *testing.T) {
	store := newMemStore()
	svc := newTestGuestbookService(t, store)

	tests := []guestbook.SubmitRequest{
		{Username: "Ann", Message: "this is sh1t"},
		{Username: "bitch", Message: "hello there"},
	}
	for _, req := range tests {
		_, err := svc.Submit(context.Background(), req)
		assert.ErrorIs(t, err, guestbook.ErrInappropriate)
		assert.NotContains(t, err.Error(), "sh")
	}
	assert.Zero(t, store.creates)
}

func TestSubmit_DisabledFilterStillStores(t *testing.T) {
	store := newMemStore()
	svc := NewGuestbookService(store, profanity.Disabled(), 0, discardLogger())

	_, err := svc.Submit(context.Background(), guestbook.SubmitRequest{Username: "Ann", Message: "anything goes"})
	require.NoError(t, err)
	assert.Equal(t, 1, store.creates)

	health := svc.Health(context.Background())
	assert.Equal(t, "disabled", health.Filter)
	assert.Equal(t, "degraded", health.Status)
}

func TestHealth_StoreDown(t *testing.T) {
	store := newMemStore()
	store.pingErr = guestbook.ErrUnavailable
	svc := newTestGuestbookService(t, store)

	health := svc.Health(context.Background())
	assert.Equal(t, "unavailable", health.Status)
	assert.Equal(t, "unavailable", health.Store)
	assert.Equal(t, "enabled", health.Filter)
}

func TestListApproved_NewestFirst(t *testing.T) {
	store := newMemStore()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	store.add(guestbook.Entry{ID: "a", Approved: true, CreatedAt: base})
	store.add(guestbook.Entry{ID: "c", Approved: true, CreatedAt: base.Add(2 * time.Hour)})
	store.add(guestbook.Entry{ID: "b", Approved: true, CreatedAt: base.Add(time.Hour)})
	store.add(guestbook.Entry{ID: "p", Approved: false, CreatedAt: base.Add(3 * time.Hour)})
	svc := newTestGuestbookService(t, store)

	entries, err := svc.ListApproved(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "b", "a"}, entryIDs(entries))
}

// Submit, approve, and the entry shows up in the live listing in createdAt order.
func TestSubmitApproveAppearsLive(t *testing.T) {
	store := newMemStore()
	svc := newTestGuestbookService(t, store)
	mod := NewModerationService(store, nil, discardLogger())
	hub := newTestHub(t, store)

	older := store.now.Add(-time.Hour)
	store.add(guestbook.Entry{ID: "older", Username: "Bob", Message: "first!", Approved: true, CreatedAt: older})

	id, err := svc.Submit(context.Background(), guestbook.SubmitRequest{Username: "Ann", Message: "Hi there!"})
	require.NoError(t, err)

	viewer := newViewer(hub)
	hub.Register(viewer)
	initial := receive(t, viewer)
	assert.Equal(t, []string{"older"}, entryIDs(initial.Entries))

	require.NoError(t, mod.Approve(context.Background(), id, "mod_1"))

	updated := receive(t, viewer)
	assert.Equal(t, []string{id, "older"}, entryIDs(updated.Entries))
	assert.True(t, updated.Entries[0].Approved)
}
