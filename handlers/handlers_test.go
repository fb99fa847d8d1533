package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"guestbookAPI/internal/guestbook"
	"guestbookAPI/internal/profanity"
	"guestbookAPI/middleware"
	"guestbookAPI/services"
)

type fakeStore struct {
	mu       sync.Mutex
	entries  []guestbook.Entry
	created  []guestbook.Entry
	batchErr error
	listErr  error
	approved []string
	deleted  []string
}

func (f *fakeStore) Create(ctx context.Context, username, message string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := fmt.Sprintf("id-%d", len(f.created)+1)
	f.created = append(f.created, guestbook.Entry{ID: id, Username: username, Message: message})
	return id, nil
}

func (f *fakeStore) ListApproved(ctx context.Context, limit int) ([]guestbook.Entry, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return guestbook.PublicView(f.entries), nil
}

func (f *fakeStore) Ping(ctx context.Context) error { return f.listErr }

func (f *fakeStore) WatchApproved(ctx context.Context, limit int, on func([]guestbook.Entry)) error {
	if f.listErr != nil {
		return f.listErr
	}
	on(guestbook.PublicView(f.entries))
	<-ctx.Done()
	return nil
}

func (f *fakeStore) ListPending(ctx context.Context) ([]guestbook.Entry, error) {
	var out []guestbook.Entry
	for _, e := range f.entries {
		if !e.Approved {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeStore) Approve(ctx context.Context, id, moderator string) error {
	for _, e := range f.entries {
		if e.ID == id {
			f.approved = append(f.approved, id)
			return nil
		}
	}
	return guestbook.ErrNotFound
}

func (f *fakeStore) ApproveBatch(ctx context.Context, ids []string, moderator string) error {
	if f.batchErr != nil {
		return f.batchErr
	}
	f.approved = append(f.approved, ids...)
	return nil
}

func (f *fakeStore) Delete(ctx context.Context, id string) error {
	f.deleted = append(f.deleted, id)
	return nil
}

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func newGuestbookHandler(t *testing.T, store *fakeStore) (*GuestbookHandler, *services.LiveHub) {
	t.Helper()
	filter, err := profanity.Default()
	require.NoError(t, err)
	hub := services.NewLiveHub(store, 30, discard())
	go hub.Run()
	t.Cleanup(hub.Close)
	svc := services.NewGuestbookService(store, filter, 30, discard())
	return NewGuestbookHandler(svc, hub, discard(), time.Second), hub
}

func postJSON(t *testing.T, h http.HandlerFunc, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/guestbook", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorResponse {
	t.Helper()
	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestSubmit_Created(t *testing.T) {
	store := &fakeStore{}
	h, _ := newGuestbookHandler(t, store)

	rec := postJSON(t, h.Submit, `{"username":"Ann","message":"Hi there!"}`)

	require.Equal(t, http.StatusCreated, rec.Code)
	var resp guestbook.SubmitResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "id-1", resp.ID)
	require.Len(t, store.created, 1)
	assert.Equal(t, "Ann", store.created[0].Username)
}

func TestSubmit_ValidationDetails(t *testing.T) {
	store := &fakeStore{}
	h, _ := newGuestbookHandler(t, store)

	rec := postJSON(t, h.Submit, `{"username":"A","message":""}`)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeError(t, rec)
	assert.ElementsMatch(t, []string{
		"username must be at least 2 characters",
		"message is required",
	}, resp.Details)
	assert.Empty(t, store.created)
}

func TestSubmit_Inappropriate(t *testing.T) {
	store := &fakeStore{}
	h, _ := newGuestbookHandler(t, store)

	rec := postJSON(t, h.Submit, `{"username":"Ann","message":"what the fuck"}`)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, guestbook.Hint(guestbook.ErrInappropriate), decodeError(t, rec).Error)
	assert.Empty(t, store.created)
}

func TestSubmit_BadBody(t *testing.T) {
	h, _ := newGuestbookHandler(t, &fakeStore{})
	rec := postJSON(t, h.Submit, `{not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestList(t *testing.T) {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	store := &fakeStore{entries: []guestbook.Entry{
		{ID: "a", Approved: true, CreatedAt: base},
		{ID: "p", Approved: false, CreatedAt: base.Add(time.Hour)},
		{ID: "b", Approved: true, CreatedAt: base.Add(time.Minute)},
	}}
	h, _ := newGuestbookHandler(t, store)

	rec := httptest.NewRecorder()
	h.List(rec, httptest.NewRequest(http.MethodGet, "/api/v1/guestbook", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp guestbook.ListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Entries, 2)
	assert.Equal(t, "b", resp.Entries[0].ID)
	assert.Equal(t, "a", resp.Entries[1].ID)
}

func TestList_AccessDenied(t *testing.T) {
	store := &fakeStore{listErr: fmt.Errorf("list approved entries: %w", guestbook.ErrAccessDenied)}
	h, _ := newGuestbookHandler(t, store)

	rec := httptest.NewRecorder()
	h.List(rec, httptest.NewRequest(http.MethodGet, "/api/v1/guestbook", nil))

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, guestbook.Hint(guestbook.ErrAccessDenied), decodeError(t, rec).Error)
}

func TestHealth(t *testing.T) {
	h, _ := newGuestbookHandler(t, &fakeStore{})
	rec := httptest.NewRecorder()
	h.Health(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"filter":"enabled"`)

	down, _ := newGuestbookHandler(t, &fakeStore{listErr: guestbook.ErrUnavailable})
	rec = httptest.NewRecorder()
	down.Health(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestLive_PushesSnapshot(t *testing.T) {
	store := &fakeStore{entries: []guestbook.Entry{
		{ID: "a", Username: "Ann", Message: "hello", Approved: true, CreatedAt: time.Now()},
		{ID: "p", Username: "Bob", Message: "pending", Approved: false, CreatedAt: time.Now()},
	}}
	h, hub := newGuestbookHandler(t, store)

	srv := httptest.NewServer(http.HandlerFunc(h.Live))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg guestbook.LiveMessage
	require.NoError(t, conn.ReadJSON(&msg))

	assert.Equal(t, guestbook.LiveActionSnapshot, msg.Action)
	require.Len(t, msg.Entries, 1)
	assert.Equal(t, "a", msg.Entries[0].ID)
	assert.Equal(t, 1, hub.Clients())
}

func withModerator(r *http.Request, id string) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), middleware.ClerkIDKey, id))
}

func newModerationHandler(store *fakeStore, prober services.RulesProber) *ModerationHandler {
	return NewModerationHandler(services.NewModerationService(store, prober, discard()), discard(), time.Second)
}

func TestModeration_ApproveAndReject(t *testing.T) {
	store := &fakeStore{entries: []guestbook.Entry{{ID: "e1", Username: "Ann", Message: "hello"}}}
	h := newModerationHandler(store, nil)

	req := withModerator(httptest.NewRequest(http.MethodPost, "/api/v1/moderation/entries/e1/approve", nil), "user_mod")
	req = mux.SetURLVars(req, map[string]string{"id": "e1"})
	rec := httptest.NewRecorder()
	h.Approve(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"e1"}, store.approved)

	req = withModerator(httptest.NewRequest(http.MethodPost, "/api/v1/moderation/entries/nope/approve", nil), "user_mod")
	req = mux.SetURLVars(req, map[string]string{"id": "nope"})
	rec = httptest.NewRecorder()
	h.Approve(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	req = withModerator(httptest.NewRequest(http.MethodDelete, "/api/v1/moderation/entries/e1", nil), "user_mod")
	req = mux.SetURLVars(req, map[string]string{"id": "e1"})
	rec = httptest.NewRecorder()
	h.Reject(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"e1"}, store.deleted)
}

func TestModeration_ApproveBatchFailure(t *testing.T) {
	store := &fakeStore{batchErr: fmt.Errorf("approve batch: %w", guestbook.ErrUnavailable)}
	h := newModerationHandler(store, nil)

	body := bytes.NewBufferString(`{"ids":["a","b","c"]}`)
	req := withModerator(httptest.NewRequest(http.MethodPost, "/api/v1/moderation/approve-batch", body), "user_mod")
	rec := httptest.NewRecorder()
	h.ApproveBatch(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Empty(t, store.approved)
}

func TestModeration_RequiresModeratorInContext(t *testing.T) {
	h := newModerationHandler(&fakeStore{}, nil)
	rec := httptest.NewRecorder()
	h.AutoApprove(rec, httptest.NewRequest(http.MethodPost, "/api/v1/moderation/auto-approve", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestModeration_ProbeDisabled(t *testing.T) {
	h := newModerationHandler(&fakeStore{}, nil)
	rec := httptest.NewRecorder()
	h.Probe(rec, withModerator(httptest.NewRequest(http.MethodGet, "/api/v1/moderation/probe", nil), "user_mod"))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{&guestbook.ValidationError{Problems: []string{"x"}}, http.StatusBadRequest},
		{guestbook.ErrEmptySelection, http.StatusBadRequest},
		{guestbook.ErrInappropriate, http.StatusUnprocessableEntity},
		{fmt.Errorf("op: %w", guestbook.ErrAccessDenied), http.StatusForbidden},
		{guestbook.ErrNotFound, http.StatusNotFound},
		{guestbook.ErrAlreadyApproved, http.StatusConflict},
		{guestbook.ErrIndexBuilding, http.StatusServiceUnavailable},
		{guestbook.ErrUnavailable, http.StatusServiceUnavailable},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.err), tt.err.Error())
	}
}
