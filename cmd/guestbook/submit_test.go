package main

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"guestbookAPI/internal/cooldown"
	"guestbookAPI/internal/guestbook"
)

type fakeVisitorAPI struct {
	calls []guestbook.SubmitRequest
	err   error
}

func (f *fakeVisitorAPI) Submit(_ context.Context, req guestbook.SubmitRequest) (guestbook.SubmitResponse, error) {
	f.calls = append(f.calls, req)
	if f.err != nil {
		return guestbook.SubmitResponse{}, f.err
	}
	return guestbook.SubmitResponse{ID: "e1", Message: "Thanks! Your message is awaiting moderation."}, nil
}

type memState map[string]int64

func (m memState) GetInt(key string) (int64, bool, error) {
	v, ok := m[key]
	return v, ok, nil
}

func (m memState) SetInt(key string, value int64) error {
	m[key] = value
	return nil
}

func newTestCooldown(now *time.Time) *cooldown.Cooldown {
	return cooldown.New(memState{}, cooldown.DefaultWindow).WithClock(func() time.Time { return *now })
}

func TestSubmitEntry_InvalidNeverCallsServer(t *testing.T) {
	now := time.Now()
	api := &fakeVisitorAPI{}
	var out bytes.Buffer

	err := submitEntry(context.Background(), api, newTestCooldown(&now), guestbook.SubmitRequest{Username: "   ", Message: ""}, &out)

	require.ErrorIs(t, err, guestbook.ErrValidation)
	assert.Empty(t, api.calls)
	assert.Contains(t, out.String(), "username")
	assert.Contains(t, out.String(), "message")
}

func TestSubmitEntry_TrimsAndPosts(t *testing.T) {
	now := time.Now()
	api := &fakeVisitorAPI{}
	var out bytes.Buffer

	err := submitEntry(context.Background(), api, newTestCooldown(&now), guestbook.SubmitRequest{Username: "  Ann ", Message: " Hi there! "}, &out)

	require.NoError(t, err)
	require.Len(t, api.calls, 1)
	assert.Equal(t, "Ann", api.calls[0].Username)
	assert.Equal(t, "Hi there!", api.calls[0].Message)
	assert.Contains(t, out.String(), "awaiting moderation")
}

func TestSubmitEntry_Cooldown(t *testing.T) {
	now := time.Now()
	api := &fakeVisitorAPI{}
	cd := newTestCooldown(&now)
	req := guestbook.SubmitRequest{Username: "Ann", Message: "First!"}

	require.NoError(t, submitEntry(context.Background(), api, cd, req, &bytes.Buffer{}))

	now = now.Add(10 * time.Second)
	var out bytes.Buffer
	err := submitEntry(context.Background(), api, cd, req, &out)

	require.ErrorIs(t, err, cooldown.ErrCooldown)
	assert.Len(t, api.calls, 1)
	assert.Contains(t, out.String(), "wait 50s")

	now = now.Add(50 * time.Second)
	require.NoError(t, submitEntry(context.Background(), api, cd, req, &bytes.Buffer{}))
	assert.Len(t, api.calls, 2)
}

func TestSubmitEntry_FailureDoesNotStartCooldown(t *testing.T) {
	now := time.Now()
	api := &fakeVisitorAPI{err: guestbook.ErrInappropriate}
	cd := newTestCooldown(&now)
	var out bytes.Buffer

	err := submitEntry(context.Background(), api, cd, guestbook.SubmitRequest{Username: "Ann", Message: "hello"}, &out)

	require.ErrorIs(t, err, guestbook.ErrInappropriate)
	assert.Contains(t, out.String(), "inappropriate content")
	require.NoError(t, cd.Check())
}

func TestRenderLive(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, renderLive(&out, guestbook.LiveMessage{
		Action:  guestbook.LiveActionSnapshot,
		Entries: []guestbook.Entry{{ID: "a", Username: "Ann", Message: "Hello", Approved: true}},
	}))
	assert.Contains(t, out.String(), "Ann")

	out.Reset()
	err := renderLive(&out, guestbook.LiveMessage{Action: guestbook.LiveActionError, Code: "access_denied"})
	require.ErrorIs(t, err, errLiveFailed)
	assert.Contains(t, out.String(), "Access denied")
}
