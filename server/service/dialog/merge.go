package dialog

import (
	"context"
	"strings"
	"time"

	apperrors "github.com/hilite/wingman/server/internal/errors"
	"github.com/hilite/wingman/store"
)

// MergeDialogGroupByTitle reconciles a dialog whose group just acquired a
// non-empty title with a pre-existing group of the same trimmed title. The
// earliest-created match wins. The dialog moves to the target group, the
// target adopts a cover if it has none, and the now-empty temporary group is
// deleted. The temporary group's cover reference is cleared first, so no
// cleanup rule can take down an image the target now relies on.
//
// All steps commit in one transaction; on failure the dialog stays in its
// original group. Running it again after a successful merge is a no-op.
func (s *Service) MergeDialogGroupByTitle(ctx context.Context, dialogID int32) error {
	txErr := s.store.RunInTransaction(ctx, func(ctx context.Context) error {
		dialog, err := s.store.GetDialog(ctx, &store.FindDialog{ID: &dialogID})
		if err != nil {
			return err
		}
		if dialog == nil || dialog.GroupID == nil {
			return nil
		}

		group, err := s.store.GetDialogGroup(ctx, &store.FindDialogGroup{ID: dialog.GroupID})
		if err != nil {
			return err
		}
		if group == nil {
			return nil
		}

		title := strings.TrimSpace(group.Title)
		if title == "" {
			return nil
		}

		limit := 1
		target, err := s.store.GetDialogGroup(ctx, &store.FindDialogGroup{
			UserID:              &dialog.UserID,
			Title:               &title,
			ExcludeID:           &group.ID,
			OrderByCreatedTsAsc: true,
			Limit:               &limit,
		})
		if err != nil {
			return err
		}
		if target == nil {
			return nil
		}

		now := time.Now().Unix()
		if err := s.store.UpdateDialog(ctx, &store.UpdateDialog{
			ID:        dialog.ID,
			GroupID:   &target.ID,
			UpdatedTs: &now,
		}); err != nil {
			return err
		}

		targetUpdate := &store.UpdateDialogGroup{ID: target.ID, UpdatedTs: &now}
		if target.CoverImageID == nil {
			if dialog.ImageID != nil {
				targetUpdate.CoverImageID = dialog.ImageID
			} else if group.CoverImageID != nil {
				targetUpdate.CoverImageID = group.CoverImageID
			}
		}
		if err := s.store.UpdateDialogGroup(ctx, targetUpdate); err != nil {
			return err
		}

		// Detach the temporary group's cover before deleting the group so the
		// image survives now that the target or moved dialog references it.
		if err := s.store.UpdateDialogGroup(ctx, &store.UpdateDialogGroup{
			ID:         group.ID,
			ClearCover: true,
		}); err != nil {
			return err
		}

		remaining, err := s.store.ListDialogs(ctx, &store.FindDialog{GroupID: &group.ID})
		if err != nil {
			return err
		}
		if len(remaining) == 0 {
			if err := s.store.DeleteDialogGroup(ctx, &store.DeleteDialogGroup{ID: group.ID}); err != nil {
				return err
			}
		}
		return nil
	})
	if txErr != nil {
		return apperrors.Persist("failed to merge dialog groups", txErr)
	}
	return nil
}
