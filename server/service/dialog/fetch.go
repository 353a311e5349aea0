package dialog

import (
	"context"
	"encoding/base64"
	"log/slog"
	"strings"
	"time"

	"github.com/lithammer/shortuuid/v4"

	"github.com/hilite/wingman/internal/filestore"
	"github.com/hilite/wingman/server/ai"
	apperrors "github.com/hilite/wingman/server/internal/errors"
	"github.com/hilite/wingman/server/internal/observability"
	"github.com/hilite/wingman/store"
)

// providerImageMaxEdge bounds the longer side of the screenshot sent to the
// reply provider.
const providerImageMaxEdge = 1024

// FetchOptions carry the per-request reply parameters. Empty fields fall back
// to the user's stored preferences.
type FetchOptions struct {
	Tone      store.Tone
	Language  string
	UseEmojis bool
	// Receipt is the entitlement token from the billing collaborator.
	Receipt string
}

// FetchReply asks the reply provider for suggestions and persists them as
// reply records in one transaction, bumping the dialog's updated_ts and
// adopting the returned title when the dialog had none. A fetch already in
// flight for the same dialog is rejected; on provider failure no entities are
// created and the dialog is unchanged.
func (s *Service) FetchReply(ctx context.Context, dialogUID string, opts FetchOptions) ([]*store.Reply, error) {
	if !s.billing.IsEntitlementActive(ctx, opts.Receipt) {
		return nil, apperrors.Unentitled("active subscription required")
	}

	if !s.beginFetch(dialogUID) {
		return nil, apperrors.ReentrancyRejected("reply fetch already in flight for dialog " + dialogUID)
	}
	defer s.endFetch(dialogUID)

	dialog, err := s.store.GetDialog(ctx, &store.FindDialog{UID: &dialogUID})
	if err != nil {
		return nil, apperrors.Persist("failed to load dialog", err)
	}
	if dialog == nil {
		return nil, apperrors.NotFound("dialog not found: " + dialogUID)
	}

	payload, err := s.providerPayload(ctx, dialog)
	if err != nil {
		return nil, err
	}

	tone := s.resolveTone(ctx, dialog.UserID, opts.Tone)
	request := s.buildReplyRequest(ctx, dialog, payload, tone, opts)

	resp, err := s.fetcher.FetchReplies(ctx, opts.Receipt, request)
	if err != nil {
		return nil, err
	}

	respTone := store.Tone(strings.ToUpper(resp.Tone))
	if !respTone.IsValid() {
		respTone = tone
	}

	// The network call already succeeded; the commit must not be lost to a
	// torn-down caller context.
	persistCtx := context.WithoutCancel(ctx)

	var replies []*store.Reply
	txErr := s.store.RunInTransaction(persistCtx, func(ctx context.Context) error {
		now := time.Now().Unix()
		for _, content := range resp.Content {
			content = strings.TrimSpace(content)
			if content == "" {
				continue
			}
			reply, err := s.store.CreateReply(ctx, &store.Reply{
				UID:      shortuuid.New(),
				DialogID: dialog.ID,
				Content:  content,
				Tone:     respTone,
			})
			if err != nil {
				return err
			}
			replies = append(replies, reply)
		}

		update := &store.UpdateDialog{ID: dialog.ID, UpdatedTs: &now}
		title := strings.TrimSpace(resp.DialogTitle)
		if dialog.Title == "" && title != "" {
			update.Title = &title
			dialog.Title = title
		}
		if err := s.store.UpdateDialog(ctx, update); err != nil {
			return err
		}

		// The group inherits the classified title the first time around; this
		// is what arms the merge reconciliation below.
		if dialog.GroupID != nil && title != "" {
			group, err := s.store.GetDialogGroup(ctx, &store.FindDialogGroup{ID: dialog.GroupID})
			if err != nil {
				return err
			}
			if group != nil && strings.TrimSpace(group.Title) == "" {
				if err := s.store.UpdateDialogGroup(ctx, &store.UpdateDialogGroup{
					ID:        group.ID,
					Title:     &title,
					UpdatedTs: &now,
				}); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if txErr != nil {
		return nil, apperrors.Persist("failed to persist replies", txErr)
	}

	// The remote response may have set the title for the first time; fold the
	// dialog into a pre-existing group of the same name.
	if err := s.MergeDialogGroupByTitle(persistCtx, dialog.ID); err != nil {
		s.logWarn(ctx, "merge reconciliation failed",
			slog.String(observability.LogFieldDialogUID, dialogUID), slog.String("error", err.Error()))
	}

	s.reaper.Kick()
	s.logInfo(ctx, "replies fetched",
		slog.String(observability.LogFieldDialogUID, dialogUID),
		slog.Int("count", len(replies)))
	return replies, nil
}

// providerPayload reads and downsamples the dialog's screenshot.
func (s *Service) providerPayload(ctx context.Context, dialog *store.Dialog) (string, error) {
	if dialog.ImageID == nil {
		return "", apperrors.InvalidArgument("dialog has no screenshot")
	}
	image, err := s.store.GetImage(ctx, &store.FindImage{ID: dialog.ImageID})
	if err != nil {
		return "", apperrors.Persist("failed to load image", err)
	}
	if image == nil || image.LocalPath == nil {
		return "", apperrors.NotFound("screenshot record missing for dialog " + dialog.UID)
	}

	// LocalPath is data-dir relative; the filestore is rooted one level down.
	relPath := strings.TrimPrefix(*image.LocalPath, ScreenshotDir+"/")
	data, err := s.files.Read(relPath)
	if err != nil {
		return "", apperrors.IO("failed to read screenshot", err)
	}

	if err := s.downsampleSem.Acquire(ctx, 1); err != nil {
		return "", apperrors.Network("canceled while waiting to downsample", err)
	}
	small, err := filestore.Downsample(data, providerImageMaxEdge)
	s.downsampleSem.Release(1)
	if err != nil {
		return "", apperrors.IO("failed to downsample screenshot", err)
	}

	return base64.StdEncoding.EncodeToString(small), nil
}

func (s *Service) buildReplyRequest(ctx context.Context, dialog *store.Dialog, payload string, tone store.Tone, opts FetchOptions) *ai.ReplyRequest {
	language := opts.Language
	if language == "" {
		language = s.settingValue(ctx, dialog.UserID, store.SettingKeyLanguage)
	}
	useEmojis := opts.UseEmojis
	if !useEmojis {
		useEmojis = s.settingValue(ctx, dialog.UserID, store.SettingKeyUseEmojis) == "true"
	}
	contextText := ""
	if dialog.ContextText != nil {
		contextText = *dialog.ContextText
	}
	return &ai.ReplyRequest{
		ScreenshotBase64: payload,
		Tone:             string(tone),
		Context:          contextText,
		Language:         language,
		UseEmojis:        useEmojis,
	}
}

func (s *Service) resolveTone(ctx context.Context, userID int32, tone store.Tone) store.Tone {
	if tone.IsValid() {
		return tone
	}
	if stored := store.Tone(s.settingValue(ctx, userID, store.SettingKeyTone)); stored.IsValid() {
		return stored
	}
	return store.ToneRizz
}

func (s *Service) beginFetch(dialogUID string) bool {
	s.inflightMu.Lock()
	defer s.inflightMu.Unlock()
	if _, ok := s.inflight[dialogUID]; ok {
		return false
	}
	s.inflight[dialogUID] = struct{}{}
	return true
}

func (s *Service) endFetch(dialogUID string) {
	s.inflightMu.Lock()
	defer s.inflightMu.Unlock()
	delete(s.inflight, dialogUID)
}
