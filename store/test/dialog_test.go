package test

import (
	"context"
	"testing"

	"github.com/lithammer/shortuuid/v4"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/hilite/wingman/store"
)

func TestDialogCRUD(t *testing.T) {
	ctx := context.Background()
	ts := NewTestingStore(ctx, t)

	group, err := ts.CreateDialogGroup(ctx, &store.DialogGroup{
		UID:    shortuuid.New(),
		UserID: 1,
		Title:  "Anna",
	})
	require.NoError(t, err)
	require.Greater(t, group.ID, int32(0))
	require.NotZero(t, group.CreatedTs)

	dialog, err := ts.CreateDialog(ctx, &store.Dialog{
		UID:      shortuuid.New(),
		UserID:   1,
		GroupID:  &group.ID,
		Title:    "Anna",
		Elements: []string{"coffee", "hiking"},
	})
	require.NoError(t, err)
	require.Equal(t, []string{"coffee", "hiking"}, dialog.Elements)

	got, err := ts.GetDialog(ctx, &store.FindDialog{UID: &dialog.UID})
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, dialog.ID, got.ID)
	require.Equal(t, group.ID, *got.GroupID)
	require.Equal(t, []string{"coffee", "hiking"}, got.Elements)

	newTitle := "Anna B"
	contextText := "she likes hiking"
	err = ts.UpdateDialog(ctx, &store.UpdateDialog{
		ID:          dialog.ID,
		Title:       &newTitle,
		ContextText: &contextText,
	})
	require.NoError(t, err)

	got, err = ts.GetDialog(ctx, &store.FindDialog{ID: &dialog.ID})
	require.NoError(t, err)
	require.Equal(t, newTitle, got.Title)
	require.Equal(t, contextText, *got.ContextText)

	err = ts.DeleteDialog(ctx, &store.DeleteDialog{ID: dialog.ID})
	require.NoError(t, err)
	got, err = ts.GetDialog(ctx, &store.FindDialog{ID: &dialog.ID})
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestReplyCascadeOnDialogDelete(t *testing.T) {
	ctx := context.Background()
	ts := NewTestingStore(ctx, t)

	dialog, err := ts.CreateDialog(ctx, &store.Dialog{UID: shortuuid.New(), UserID: 1})
	require.NoError(t, err)

	for _, content := range []string{"hey", "how about coffee?", "nice pic"} {
		_, err := ts.CreateReply(ctx, &store.Reply{
			UID:      shortuuid.New(),
			DialogID: dialog.ID,
			Content:  content,
			Tone:     store.ToneRizz,
		})
		require.NoError(t, err)
	}

	replies, err := ts.ListReplies(ctx, &store.FindReply{DialogID: &dialog.ID})
	require.NoError(t, err)
	require.Len(t, replies, 3)
	require.Equal(t, "hey", replies[0].Content)

	err = ts.DeleteDialog(ctx, &store.DeleteDialog{ID: dialog.ID})
	require.NoError(t, err)

	replies, err = ts.ListReplies(ctx, &store.FindReply{DialogID: &dialog.ID})
	require.NoError(t, err)
	require.Empty(t, replies)
}

func TestDialogCascadeOnGroupDelete(t *testing.T) {
	ctx := context.Background()
	ts := NewTestingStore(ctx, t)

	group, err := ts.CreateDialogGroup(ctx, &store.DialogGroup{UID: shortuuid.New(), UserID: 1})
	require.NoError(t, err)
	dialog, err := ts.CreateDialog(ctx, &store.Dialog{UID: shortuuid.New(), UserID: 1, GroupID: &group.ID})
	require.NoError(t, err)
	_, err = ts.CreateReply(ctx, &store.Reply{UID: shortuuid.New(), DialogID: dialog.ID, Content: "hi", Tone: store.ToneFlirt})
	require.NoError(t, err)

	err = ts.DeleteDialogGroup(ctx, &store.DeleteDialogGroup{ID: group.ID})
	require.NoError(t, err)

	gotDialog, err := ts.GetDialog(ctx, &store.FindDialog{ID: &dialog.ID})
	require.NoError(t, err)
	require.Nil(t, gotDialog)

	replies, err := ts.ListReplies(ctx, &store.FindReply{DialogID: &dialog.ID})
	require.NoError(t, err)
	require.Empty(t, replies)
}

func TestOrphanedImageQuery(t *testing.T) {
	ctx := context.Background()
	ts := NewTestingStore(ctx, t)

	referenced, err := ts.CreateImage(ctx, &store.Image{UID: shortuuid.New()})
	require.NoError(t, err)
	cover, err := ts.CreateImage(ctx, &store.Image{UID: shortuuid.New()})
	require.NoError(t, err)
	orphan, err := ts.CreateImage(ctx, &store.Image{UID: shortuuid.New()})
	require.NoError(t, err)

	_, err = ts.CreateDialog(ctx, &store.Dialog{UID: shortuuid.New(), UserID: 1, ImageID: &referenced.ID})
	require.NoError(t, err)
	group, err := ts.CreateDialogGroup(ctx, &store.DialogGroup{UID: shortuuid.New(), UserID: 1})
	require.NoError(t, err)
	err = ts.UpdateDialogGroup(ctx, &store.UpdateDialogGroup{ID: group.ID, CoverImageID: &cover.ID})
	require.NoError(t, err)

	orphans, err := ts.ListImages(ctx, &store.FindImage{OrphanedOnly: true})
	require.NoError(t, err)
	require.Len(t, orphans, 1)
	require.Equal(t, orphan.ID, orphans[0].ID)
}

func TestGroupOrderPinnedFirst(t *testing.T) {
	ctx := context.Background()
	ts := NewTestingStore(ctx, t)

	older, err := ts.CreateDialogGroup(ctx, &store.DialogGroup{UID: shortuuid.New(), UserID: 1, Title: "older"})
	require.NoError(t, err)
	newer, err := ts.CreateDialogGroup(ctx, &store.DialogGroup{UID: shortuuid.New(), UserID: 1, Title: "newer"})
	require.NoError(t, err)

	pinned := true
	olderTs := older.UpdatedTs - 100
	err = ts.UpdateDialogGroup(ctx, &store.UpdateDialogGroup{ID: older.ID, Pinned: &pinned, UpdatedTs: &olderTs})
	require.NoError(t, err)
	newerTs := newer.UpdatedTs + 100
	err = ts.UpdateDialogGroup(ctx, &store.UpdateDialogGroup{ID: newer.ID, UpdatedTs: &newerTs})
	require.NoError(t, err)

	userID := int32(1)
	groups, err := ts.ListDialogGroups(ctx, &store.FindDialogGroup{
		UserID:                    &userID,
		OrderByPinnedAndUpdatedTs: true,
	})
	require.NoError(t, err)
	require.Len(t, groups, 2)
	require.Equal(t, older.ID, groups[0].ID)
}

func TestUserSettingUpsert(t *testing.T) {
	ctx := context.Background()
	ts := NewTestingStore(ctx, t)

	setting, err := ts.UpsertUserSetting(ctx, &store.UserSetting{
		UserID: 1,
		Key:    store.SettingKeyTone,
		Value:  string(store.ToneFlirt),
	})
	require.NoError(t, err)
	require.Equal(t, string(store.ToneFlirt), setting.Value)

	setting, err = ts.UpsertUserSetting(ctx, &store.UserSetting{
		UserID: 1,
		Key:    store.SettingKeyTone,
		Value:  string(store.ToneRomantic),
	})
	require.NoError(t, err)
	require.Equal(t, string(store.ToneRomantic), setting.Value)

	got, err := ts.GetUserSetting(ctx, 1, store.SettingKeyTone)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, string(store.ToneRomantic), got.Value)

	err = ts.DeleteUserSetting(ctx, &store.DeleteUserSetting{UserID: 1})
	require.NoError(t, err)
	got, err = ts.GetUserSetting(ctx, 1, store.SettingKeyTone)
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestTransactionRollbackLeavesNoPartialState(t *testing.T) {
	ctx := context.Background()
	ts := NewTestingStore(ctx, t)

	boom := errors.New("boom")
	err := ts.RunInTransaction(ctx, func(ctx context.Context) error {
		if _, err := ts.CreateImage(ctx, &store.Image{UID: shortuuid.New()}); err != nil {
			return err
		}
		if _, err := ts.CreateDialog(ctx, &store.Dialog{UID: shortuuid.New(), UserID: 1}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	images, err := ts.ListImages(ctx, &store.FindImage{})
	require.NoError(t, err)
	require.Empty(t, images)
	dialogs, err := ts.ListDialogs(ctx, &store.FindDialog{})
	require.NoError(t, err)
	require.Empty(t, dialogs)
}

func TestUserSettingRollbackNotServedFromCache(t *testing.T) {
	ctx := context.Background()
	ts := NewTestingStore(ctx, t)

	_, err := ts.UpsertUserSetting(ctx, &store.UserSetting{
		UserID: 1,
		Key:    store.SettingKeyTone,
		Value:  string(store.ToneRizz),
	})
	require.NoError(t, err)

	boom := errors.New("boom")
	err = ts.RunInTransaction(ctx, func(ctx context.Context) error {
		if _, err := ts.UpsertUserSetting(ctx, &store.UserSetting{
			UserID: 1,
			Key:    store.SettingKeyLastScreenshotTs,
			Value:  "12345",
		}); err != nil {
			return err
		}
		if _, err := ts.UpsertUserSetting(ctx, &store.UserSetting{
			UserID: 1,
			Key:    store.SettingKeyTone,
			Value:  string(store.ToneNSFW),
		}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	// Neither staged write may survive the rollback, cached or otherwise.
	got, err := ts.GetUserSetting(ctx, 1, store.SettingKeyLastScreenshotTs)
	require.NoError(t, err)
	require.Nil(t, got)
	got, err = ts.GetUserSetting(ctx, 1, store.SettingKeyTone)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, string(store.ToneRizz), got.Value)
}

func TestUserSettingVisibleAfterCommit(t *testing.T) {
	ctx := context.Background()
	ts := NewTestingStore(ctx, t)

	err := ts.RunInTransaction(ctx, func(ctx context.Context) error {
		_, err := ts.UpsertUserSetting(ctx, &store.UserSetting{
			UserID: 1,
			Key:    store.SettingKeyLanguage,
			Value:  "en",
		})
		return err
	})
	require.NoError(t, err)

	got, err := ts.GetUserSetting(ctx, 1, store.SettingKeyLanguage)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, "en", got.Value)
}

func TestTransactionCommitIsAtomicallyVisible(t *testing.T) {
	ctx := context.Background()
	ts := NewTestingStore(ctx, t)

	err := ts.RunInTransaction(ctx, func(ctx context.Context) error {
		group, err := ts.CreateDialogGroup(ctx, &store.DialogGroup{UID: shortuuid.New(), UserID: 1})
		if err != nil {
			return err
		}
		_, err = ts.CreateDialog(ctx, &store.Dialog{UID: shortuuid.New(), UserID: 1, GroupID: &group.ID})
		return err
	})
	require.NoError(t, err)

	dialogs, err := ts.ListDialogs(ctx, &store.FindDialog{})
	require.NoError(t, err)
	require.Len(t, dialogs, 1)
	require.NotNil(t, dialogs[0].GroupID)
}
