// Package dialog implements the dialog lifecycle: screenshot ingest, group
// attachment, reply fetching, merge-by-title reconciliation, deletion, and
// orphan reaping. All multi-entity mutations commit atomically through the
// store's transaction support.
package dialog

import (
	"context"
	"log/slog"
	"path"
	"strconv"
	"sync"
	"time"

	"github.com/lithammer/shortuuid/v4"
	"golang.org/x/sync/semaphore"

	"github.com/hilite/wingman/internal/filestore"
	"github.com/hilite/wingman/internal/profile"
	"github.com/hilite/wingman/server/ai"
	"github.com/hilite/wingman/server/billing"
	apperrors "github.com/hilite/wingman/server/internal/errors"
	"github.com/hilite/wingman/server/internal/observability"
	"github.com/hilite/wingman/store"
)

// ScreenshotDir is the subdirectory of the data directory holding screenshot
// files; image records store paths relative to the data directory.
const ScreenshotDir = "screenshots"

// Service drives every mutation of the dialog entity graph.
type Service struct {
	profile *profile.Profile
	store   *store.Store
	files   *filestore.Store
	fetcher ai.Fetcher
	billing billing.Service
	logger  *slog.Logger
	reaper  *Reaper

	// inflight guards against concurrent reply fetches for the same dialog.
	inflightMu sync.Mutex
	inflight   map[string]struct{}

	// downsampleSem limits concurrent image downsampling to bound memory use.
	downsampleSem *semaphore.Weighted
}

// NewService creates the lifecycle service. files must be rooted at
// <data>/ScreenshotDir so stored relative paths resolve for the store too.
func NewService(p *profile.Profile, st *store.Store, files *filestore.Store, fetcher ai.Fetcher, billing billing.Service) *Service {
	logger := slog.Default()
	return &Service{
		profile:       p,
		store:         st,
		files:         files,
		fetcher:       fetcher,
		billing:       billing,
		logger:        logger,
		reaper:        NewReaper(st, logger),
		inflight:      make(map[string]struct{}),
		downsampleSem: semaphore.NewWeighted(2),
	}
}

// Reaper exposes the orphan reaper for server lifecycle wiring.
func (s *Service) Reaper() *Reaper {
	return s.reaper
}

// CreateDialogFromImage persists the screenshot bytes first, then creates the
// image and dialog records in one transaction. Group resolution: an explicit
// group wins; otherwise the most recent dialog's group is reused when that
// dialog was created within the reuse window (closed interval); otherwise a
// fresh group with an empty title is started.
func (s *Service) CreateDialogFromImage(ctx context.Context, userID int32, data []byte, suggestedName, existingGroupUID string) (*store.DialogGroup, *store.Dialog, error) {
	normalized, err := filestore.NormalizeJPEG(data)
	if err != nil {
		return nil, nil, apperrors.InvalidArgument("unsupported image data")
	}

	// Entity creation is sequenced strictly after a successful file write.
	name, err := s.files.Save(normalized, suggestedName, ".jpg")
	if err != nil {
		return nil, nil, apperrors.IO("failed to save screenshot", err)
	}
	localPath := path.Join(ScreenshotDir, name)

	var (
		group  *store.DialogGroup
		dialog *store.Dialog
	)
	now := time.Now()
	txErr := s.store.RunInTransaction(ctx, func(ctx context.Context) error {
		image, err := s.store.CreateImage(ctx, &store.Image{
			UID:       shortuuid.New(),
			LocalPath: &localPath,
		})
		if err != nil {
			return err
		}

		group, err = s.resolveGroup(ctx, userID, existingGroupUID, now)
		if err != nil {
			return err
		}

		dialog, err = s.store.CreateDialog(ctx, &store.Dialog{
			UID:     shortuuid.New(),
			UserID:  userID,
			GroupID: &group.ID,
			ImageID: &image.ID,
		})
		if err != nil {
			return err
		}

		// The newest dialog's image becomes the group cover.
		nowTs := now.Unix()
		if err := s.store.UpdateDialogGroup(ctx, &store.UpdateDialogGroup{
			ID:           group.ID,
			CoverImageID: &image.ID,
			UpdatedTs:    &nowTs,
		}); err != nil {
			return err
		}
		group.CoverImageID = &image.ID

		// The cycling window keys off the last ingested screenshot.
		_, err = s.store.UpsertUserSetting(ctx, &store.UserSetting{
			UserID: userID,
			Key:    store.SettingKeyLastScreenshotTs,
			Value:  strconv.FormatInt(nowTs, 10),
		})
		return err
	})
	if txErr != nil {
		// The record never became visible; drop the file again.
		if err := s.files.Delete(name); err != nil {
			s.logWarn(ctx, "failed to remove screenshot after rollback",
				slog.String("file", name), slog.String("error", err.Error()))
		}
		if apperrors.CodeOf(txErr) != "" {
			return nil, nil, txErr
		}
		return nil, nil, apperrors.Persist("failed to create dialog", txErr)
	}

	return group, dialog, nil
}

func (s *Service) resolveGroup(ctx context.Context, userID int32, existingGroupUID string, now time.Time) (*store.DialogGroup, error) {
	if existingGroupUID != "" {
		group, err := s.store.GetDialogGroup(ctx, &store.FindDialogGroup{UID: &existingGroupUID})
		if err != nil {
			return nil, err
		}
		if group == nil {
			return nil, apperrors.NotFound("dialog group not found: " + existingGroupUID)
		}
		return group, nil
	}

	latest, err := s.store.GetLatestDialog(ctx, userID)
	if err != nil {
		return nil, err
	}
	if latest != nil && latest.GroupID != nil &&
		withinReuseWindow(latest.CreatedTs, now, s.profile.GroupReuseWindow) {
		group, err := s.store.GetDialogGroup(ctx, &store.FindDialogGroup{ID: latest.GroupID})
		if err != nil {
			return nil, err
		}
		if group != nil {
			return group, nil
		}
	}

	return s.store.CreateDialogGroup(ctx, &store.DialogGroup{
		UID:    shortuuid.New(),
		UserID: userID,
		Title:  "",
	})
}

// withinReuseWindow reports whether a dialog created at createdTs is still
// recent enough for its group to absorb the next screenshot. The interval is
// closed: a dialog exactly window-old still reuses its group.
func withinReuseWindow(createdTs int64, now time.Time, window time.Duration) bool {
	return now.Sub(time.Unix(createdTs, 0)) <= window
}

// UpdateDialogContext sets the user-supplied context text and bumps updated_ts.
func (s *Service) UpdateDialogContext(ctx context.Context, dialogUID, contextText string) (*store.Dialog, error) {
	dialog, err := s.store.GetDialog(ctx, &store.FindDialog{UID: &dialogUID})
	if err != nil {
		return nil, apperrors.Persist("failed to load dialog", err)
	}
	if dialog == nil {
		return nil, apperrors.NotFound("dialog not found: " + dialogUID)
	}

	now := time.Now().Unix()
	if err := s.store.UpdateDialog(ctx, &store.UpdateDialog{
		ID:          dialog.ID,
		ContextText: &contextText,
		UpdatedTs:   &now,
	}); err != nil {
		return nil, apperrors.Persist("failed to update dialog", err)
	}
	dialog.ContextText = &contextText
	dialog.UpdatedTs = now
	return dialog, nil
}

// DeleteDialog removes a dialog, its replies (cascade), and its image when no
// other record references it, selecting a fallback group cover when needed.
// Commits as one transaction and kicks the reaper afterwards as a safety net.
func (s *Service) DeleteDialog(ctx context.Context, dialogUID string) error {
	txErr := s.store.RunInTransaction(ctx, func(ctx context.Context) error {
		dialog, err := s.store.GetDialog(ctx, &store.FindDialog{UID: &dialogUID})
		if err != nil {
			return err
		}
		if dialog == nil {
			return apperrors.NotFound("dialog not found: " + dialogUID)
		}

		var group *store.DialogGroup
		if dialog.GroupID != nil {
			if group, err = s.store.GetDialogGroup(ctx, &store.FindDialogGroup{ID: dialog.GroupID}); err != nil {
				return err
			}
		}

		now := time.Now().Unix()
		if group != nil {
			update := &store.UpdateDialogGroup{ID: group.ID, UpdatedTs: &now}
			if group.CoverImageID != nil && dialog.ImageID != nil && *group.CoverImageID == *dialog.ImageID {
				fallback, err := s.pickFallbackCover(ctx, group.ID, dialog.ID)
				if err != nil {
					return err
				}
				if fallback != nil {
					update.CoverImageID = fallback
				} else {
					update.ClearCover = true
				}
			}
			if err := s.store.UpdateDialogGroup(ctx, update); err != nil {
				return err
			}
		}

		if err := s.store.DeleteDialog(ctx, &store.DeleteDialog{ID: dialog.ID}); err != nil {
			return err
		}

		if dialog.ImageID != nil {
			return s.deleteImageIfUnreferenced(ctx, *dialog.ImageID)
		}
		return nil
	})
	if txErr != nil {
		if apperrors.CodeOf(txErr) != "" {
			return txErr
		}
		return apperrors.Persist("failed to delete dialog", txErr)
	}

	s.reaper.Kick()
	return nil
}

// pickFallbackCover returns the first remaining dialog's image in the group,
// or nil when none carries an image.
func (s *Service) pickFallbackCover(ctx context.Context, groupID, excludeDialogID int32) (*int32, error) {
	dialogs, err := s.store.ListDialogs(ctx, &store.FindDialog{
		GroupID:   &groupID,
		ExcludeID: &excludeDialogID,
	})
	if err != nil {
		return nil, err
	}
	for _, d := range dialogs {
		if d.ImageID != nil {
			return d.ImageID, nil
		}
	}
	return nil, nil
}

// deleteImageIfUnreferenced removes the image file and record once neither a
// dialog nor a group cover points at it.
func (s *Service) deleteImageIfUnreferenced(ctx context.Context, imageID int32) error {
	limit := 1
	referencing, err := s.store.ListDialogs(ctx, &store.FindDialog{ImageID: &imageID, Limit: &limit})
	if err != nil {
		return err
	}
	if len(referencing) > 0 {
		return nil
	}
	covers, err := s.store.ListDialogGroups(ctx, &store.FindDialogGroup{CoverImageID: &imageID, Limit: &limit})
	if err != nil {
		return err
	}
	if len(covers) > 0 {
		return nil
	}
	return s.store.DeleteImage(ctx, &store.DeleteImage{ID: imageID})
}

// DeleteGroup collects the full set of images referenced by the group's cover
// and every contained dialog before deleting anything, removes each exactly
// once while the records still resolve, then deletes the group, cascading
// dialogs and replies.
func (s *Service) DeleteGroup(ctx context.Context, groupUID string) error {
	txErr := s.store.RunInTransaction(ctx, func(ctx context.Context) error {
		group, err := s.store.GetDialogGroup(ctx, &store.FindDialogGroup{UID: &groupUID})
		if err != nil {
			return err
		}
		if group == nil {
			return apperrors.NotFound("dialog group not found: " + groupUID)
		}
		return s.deleteGroupRecords(ctx, group)
	})
	if txErr != nil {
		if apperrors.CodeOf(txErr) != "" {
			return txErr
		}
		return apperrors.Persist("failed to delete dialog group", txErr)
	}

	s.reaper.Kick()
	return nil
}

func (s *Service) deleteGroupRecords(ctx context.Context, group *store.DialogGroup) error {
	dialogs, err := s.store.ListDialogs(ctx, &store.FindDialog{GroupID: &group.ID})
	if err != nil {
		return err
	}

	// Deduplicated image set, gathered before any delete.
	imageIDs := make(map[int32]struct{})
	if group.CoverImageID != nil {
		imageIDs[*group.CoverImageID] = struct{}{}
	}
	for _, d := range dialogs {
		if d.ImageID != nil {
			imageIDs[*d.ImageID] = struct{}{}
		}
	}

	for imageID := range imageIDs {
		if err := s.store.DeleteImage(ctx, &store.DeleteImage{ID: imageID}); err != nil {
			return err
		}
	}

	return s.store.DeleteDialogGroup(ctx, &store.DeleteDialogGroup{ID: group.ID})
}

// ClearUserData deletes every group, dialog, image, and setting belonging to
// the user. User-initiated, so failures surface instead of being swallowed.
func (s *Service) ClearUserData(ctx context.Context, userID int32) error {
	txErr := s.store.RunInTransaction(ctx, func(ctx context.Context) error {
		groups, err := s.store.ListDialogGroups(ctx, &store.FindDialogGroup{UserID: &userID})
		if err != nil {
			return err
		}
		for _, group := range groups {
			if err := s.deleteGroupRecords(ctx, group); err != nil {
				return err
			}
		}

		// Dialogs that lost their group along some past failure path.
		strays, err := s.store.ListDialogs(ctx, &store.FindDialog{UserID: &userID})
		if err != nil {
			return err
		}
		for _, d := range strays {
			if d.ImageID != nil {
				if err := s.store.DeleteImage(ctx, &store.DeleteImage{ID: *d.ImageID}); err != nil {
					return err
				}
			}
			if err := s.store.DeleteDialog(ctx, &store.DeleteDialog{ID: d.ID}); err != nil {
				return err
			}
		}

		return s.store.DeleteUserSetting(ctx, &store.DeleteUserSetting{UserID: userID})
	})
	if txErr != nil {
		return apperrors.Persist("failed to clear user data", txErr)
	}

	s.reaper.Kick()
	return nil
}

// logWarn prefers the request-scoped logger when one is attached.
func (s *Service) logWarn(ctx context.Context, msg string, attrs ...slog.Attr) {
	if reqCtx, ok := observability.FromContext(ctx); ok {
		reqCtx.Warn(msg, attrs...)
		return
	}
	s.logger.LogAttrs(ctx, slog.LevelWarn, msg, attrs...)
}

func (s *Service) logInfo(ctx context.Context, msg string, attrs ...slog.Attr) {
	if reqCtx, ok := observability.FromContext(ctx); ok {
		reqCtx.Info(msg, attrs...)
		return
	}
	s.logger.LogAttrs(ctx, slog.LevelInfo, msg, attrs...)
}

func (s *Service) settingValue(ctx context.Context, userID int32, key string) string {
	setting, err := s.store.GetUserSetting(ctx, userID, key)
	if err != nil || setting == nil {
		return ""
	}
	return setting.Value
}
