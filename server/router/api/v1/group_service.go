package v1

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/hilite/wingman/store"
)

type updateGroupRequest struct {
	Title  *string `json:"title"`
	Pinned *bool   `json:"pinned"`
}

// listGroups returns the feed: pinned groups first, then most recently updated.
func (s *APIV1Service) listGroups(c echo.Context) error {
	ctx := c.Request().Context()
	uid := userID(c)
	groups, err := s.Store.ListDialogGroups(ctx, &store.FindDialogGroup{
		UserID:                    &uid,
		OrderByPinnedAndUpdatedTs: true,
	})
	if err != nil {
		return httpError(err)
	}

	out := make([]*groupResponse, 0, len(groups))
	for _, group := range groups {
		out = append(out, convertGroup(group, s.imagePath(ctx, group.CoverImageID)))
	}
	return c.JSON(http.StatusOK, out)
}

// getGroup returns one group with its dialogs and their replies, newest
// dialog first.
func (s *APIV1Service) getGroup(c echo.Context) error {
	ctx := c.Request().Context()
	groupUID := c.Param("uid")
	group, err := s.Store.GetDialogGroup(ctx, &store.FindDialogGroup{UID: &groupUID})
	if err != nil {
		return httpError(err)
	}
	if group == nil {
		return echo.NewHTTPError(http.StatusNotFound, "dialog group not found")
	}

	dialogs, err := s.Store.ListDialogs(ctx, &store.FindDialog{
		GroupID:              &group.ID,
		OrderByCreatedTsDesc: true,
	})
	if err != nil {
		return httpError(err)
	}

	resp := convertGroup(group, s.imagePath(ctx, group.CoverImageID))
	resp.Dialogs = make([]*dialogResponse, 0, len(dialogs))
	for _, d := range dialogs {
		dr := convertDialog(d, s.imagePath(ctx, d.ImageID))
		replies, err := s.Store.ListReplies(ctx, &store.FindReply{DialogID: &d.ID})
		if err != nil {
			return httpError(err)
		}
		dr.Replies = convertReplies(replies)
		resp.Dialogs = append(resp.Dialogs, dr)
	}
	return c.JSON(http.StatusOK, resp)
}

// updateGroup handles pinning and renaming.
func (s *APIV1Service) updateGroup(c echo.Context) error {
	ctx := c.Request().Context()
	var req updateGroupRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body")
	}
	if req.Title == nil && req.Pinned == nil {
		return echo.NewHTTPError(http.StatusBadRequest, "nothing to update")
	}

	groupUID := c.Param("uid")
	group, err := s.Store.GetDialogGroup(ctx, &store.FindDialogGroup{UID: &groupUID})
	if err != nil {
		return httpError(err)
	}
	if group == nil {
		return echo.NewHTTPError(http.StatusNotFound, "dialog group not found")
	}

	now := time.Now().Unix()
	update := &store.UpdateDialogGroup{
		ID:        group.ID,
		UpdatedTs: &now,
		Title:     req.Title,
		Pinned:    req.Pinned,
	}
	if err := s.Store.UpdateDialogGroup(ctx, update); err != nil {
		return httpError(err)
	}

	if req.Title != nil {
		group.Title = *req.Title
	}
	if req.Pinned != nil {
		group.Pinned = *req.Pinned
	}
	group.UpdatedTs = now
	return c.JSON(http.StatusOK, convertGroup(group, s.imagePath(ctx, group.CoverImageID)))
}

func (s *APIV1Service) deleteGroup(c echo.Context) error {
	if err := s.Dialog.DeleteGroup(c.Request().Context(), c.Param("uid")); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}
