package dialog

import (
	"context"
	"strconv"
	"time"

	apperrors "github.com/hilite/wingman/server/internal/errors"
	"github.com/hilite/wingman/store"
)

// ShortcutReply is the result of the background shortcut entry point.
type ShortcutReply struct {
	Dialog *store.Dialog
	Reply  *store.Reply
	// Index is the position of Reply among the dialog's replies.
	Index int
	Total int
	// Fetched is true when this invocation performed a fresh provider call
	// rather than returning a cached reply.
	Fetched bool
}

// NextReply implements the shortcut contract: re-invoked within the cycling
// window without a new screenshot, it returns the next not-yet-returned
// cached reply for the last-touched dialog without a network call. Otherwise it
// runs the full create-dialog-and-fetch flow.
func (s *Service) NextReply(ctx context.Context, userID int32, imageData []byte, suggestedName string, opts FetchOptions) (*ShortcutReply, error) {
	if len(imageData) == 0 {
		lastTs, _ := strconv.ParseInt(s.settingValue(ctx, userID, store.SettingKeyLastScreenshotTs), 10, 64)
		if lastTs > 0 && time.Since(time.Unix(lastTs, 0)) <= s.profile.ReplyCycleWindow {
			return s.cycleCachedReply(ctx, userID)
		}
		return nil, apperrors.InvalidArgument("screenshot required outside the cycling window")
	}

	_, dialog, err := s.CreateDialogFromImage(ctx, userID, imageData, suggestedName, "")
	if err != nil {
		return nil, err
	}

	replies, err := s.FetchReply(ctx, dialog.UID, opts)
	if err != nil {
		return nil, err
	}
	if len(replies) == 0 {
		return nil, apperrors.Network("provider returned no replies", nil)
	}

	if err := s.setCyclingState(ctx, userID, dialog.UID, 1); err != nil {
		return nil, err
	}

	return &ShortcutReply{
		Dialog:  dialog,
		Reply:   replies[0],
		Index:   0,
		Total:   len(replies),
		Fetched: true,
	}, nil
}

// cycleCachedReply returns the next unseen reply, wrapping around once the
// set is exhausted. A stale cycling dialog id recovers by falling back to the
// user's most recent dialog.
func (s *Service) cycleCachedReply(ctx context.Context, userID int32) (*ShortcutReply, error) {
	var dialog *store.Dialog
	var err error

	if uid := s.settingValue(ctx, userID, store.SettingKeyCyclingDialogUID); uid != "" {
		dialog, err = s.store.GetDialog(ctx, &store.FindDialog{UID: &uid})
		if err != nil {
			return nil, apperrors.Persist("failed to load cycling dialog", err)
		}
	}
	// The stored index belongs to the stored dialog; a fallback dialog starts
	// cycling from the top.
	restart := dialog == nil
	if dialog == nil {
		dialog, err = s.store.GetLatestDialog(ctx, userID)
		if err != nil {
			return nil, apperrors.Persist("failed to load latest dialog", err)
		}
	}
	if dialog == nil {
		return nil, apperrors.NotFound("no dialog to cycle replies for")
	}

	replies, err := s.store.ListReplies(ctx, &store.FindReply{DialogID: &dialog.ID})
	if err != nil {
		return nil, apperrors.Persist("failed to load replies", err)
	}
	if len(replies) == 0 {
		return nil, apperrors.NotFound("no cached replies for dialog " + dialog.UID)
	}

	index := 0
	if !restart {
		index, _ = strconv.Atoi(s.settingValue(ctx, userID, store.SettingKeyCyclingReplyIndex))
		index %= len(replies)
		if index < 0 {
			index = 0
		}
	}

	if err := s.setCyclingState(ctx, userID, dialog.UID, index+1); err != nil {
		return nil, err
	}

	return &ShortcutReply{
		Dialog: dialog,
		Reply:  replies[index],
		Index:  index,
		Total:  len(replies),
	}, nil
}

func (s *Service) setCyclingState(ctx context.Context, userID int32, dialogUID string, nextIndex int) error {
	txErr := s.store.RunInTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.store.UpsertUserSetting(ctx, &store.UserSetting{
			UserID: userID,
			Key:    store.SettingKeyCyclingDialogUID,
			Value:  dialogUID,
		}); err != nil {
			return err
		}
		_, err := s.store.UpsertUserSetting(ctx, &store.UserSetting{
			UserID: userID,
			Key:    store.SettingKeyCyclingReplyIndex,
			Value:  strconv.Itoa(nextIndex),
		})
		return err
	})
	if txErr != nil {
		return apperrors.Persist("failed to record cycling state", txErr)
	}
	return nil
}
