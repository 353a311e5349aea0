package dialog_test

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hilite/wingman/server/ai"
	apperrors "github.com/hilite/wingman/server/internal/errors"
	"github.com/hilite/wingman/server/service/dialog"
	"github.com/hilite/wingman/store"
)

func TestNextReplyFetchesThenCycles(t *testing.T) {
	ctx := context.Background()
	fetcher := &mockFetcher{resp: &ai.ReplyResponse{
		Tone:        "RIZZ",
		Content:     []string{"first", "second", "third"},
		DialogTitle: "Anna",
	}}
	svc, _, _ := newTestService(t, fetcher, nil)

	// A fresh screenshot runs the full flow and returns the first reply.
	result, err := svc.NextReply(ctx, 1, testJPEG(t), "shot.jpg", dialog.FetchOptions{})
	require.NoError(t, err)
	require.True(t, result.Fetched)
	require.Equal(t, "first", result.Reply.Content)
	require.Equal(t, 0, result.Index)
	require.Equal(t, 3, result.Total)
	require.Equal(t, 1, fetcher.callCount())

	// Re-invocations without a screenshot walk the cached replies in order.
	for i, want := range []string{"second", "third"} {
		result, err = svc.NextReply(ctx, 1, nil, "", dialog.FetchOptions{})
		require.NoError(t, err)
		require.False(t, result.Fetched)
		require.Equal(t, want, result.Reply.Content)
		require.Equal(t, i+1, result.Index)
	}

	// Exhausting the set wraps back to the start, still without fetching.
	result, err = svc.NextReply(ctx, 1, nil, "", dialog.FetchOptions{})
	require.NoError(t, err)
	require.Equal(t, "first", result.Reply.Content)
	require.Equal(t, 1, fetcher.callCount())
}

func TestNextReplyOutsideWindowNeedsScreenshot(t *testing.T) {
	ctx := context.Background()
	fetcher := &mockFetcher{resp: &ai.ReplyResponse{Content: []string{"hey"}}}
	svc, st, _ := newTestService(t, fetcher, nil)

	_, err := svc.NextReply(ctx, 1, testJPEG(t), "shot.jpg", dialog.FetchOptions{})
	require.NoError(t, err)

	// Age the last-screenshot marker past the cycling window.
	stale := strconv.FormatInt(time.Now().Add(-time.Minute).Unix(), 10)
	_, err = st.UpsertUserSetting(ctx, &store.UserSetting{
		UserID: 1,
		Key:    store.SettingKeyLastScreenshotTs,
		Value:  stale,
	})
	require.NoError(t, err)

	_, err = svc.NextReply(ctx, 1, nil, "", dialog.FetchOptions{})
	require.Error(t, err)
	require.Equal(t, apperrors.ErrCodeInvalidArgument, apperrors.CodeOf(err))
}

func TestNextReplyRecoversFromStaleCyclingDialog(t *testing.T) {
	ctx := context.Background()
	fetcher := &mockFetcher{resp: &ai.ReplyResponse{Content: []string{"one", "two"}}}
	svc, st, _ := newTestService(t, fetcher, nil)

	result, err := svc.NextReply(ctx, 1, testJPEG(t), "shot.jpg", dialog.FetchOptions{})
	require.NoError(t, err)

	// Point the cycling state at a dialog that no longer exists; the fallback
	// is the user's most recent dialog, cycled from the top since the stored
	// index belonged to the vanished dialog.
	_, err = st.UpsertUserSetting(ctx, &store.UserSetting{
		UserID: 1,
		Key:    store.SettingKeyCyclingDialogUID,
		Value:  "deleted-dialog-uid",
	})
	require.NoError(t, err)

	next, err := svc.NextReply(ctx, 1, nil, "", dialog.FetchOptions{})
	require.NoError(t, err)
	require.Equal(t, result.Dialog.ID, next.Dialog.ID)
	require.Equal(t, "one", next.Reply.Content)
	require.Equal(t, 0, next.Index)

	// Subsequent invocations continue from the re-anchored dialog.
	next, err = svc.NextReply(ctx, 1, nil, "", dialog.FetchOptions{})
	require.NoError(t, err)
	require.Equal(t, "two", next.Reply.Content)
	require.Equal(t, 1, next.Index)
}

func TestNextReplyWithoutAnyDialog(t *testing.T) {
	ctx := context.Background()
	svc, st, _ := newTestService(t, &mockFetcher{}, nil)

	// Inside the window but nothing was ever ingested.
	_, err := st.UpsertUserSetting(ctx, &store.UserSetting{
		UserID: 1,
		Key:    store.SettingKeyLastScreenshotTs,
		Value:  strconv.FormatInt(time.Now().Unix(), 10),
	})
	require.NoError(t, err)

	_, err = svc.NextReply(ctx, 1, nil, "", dialog.FetchOptions{})
	require.Error(t, err)
	require.Equal(t, apperrors.ErrCodeNotFound, apperrors.CodeOf(err))
}
