package v1

import (
	"context"
	"encoding/base64"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/hilite/wingman/server/service/dialog"
	"github.com/hilite/wingman/store"
)

// maxUploadBytes bounds a single screenshot upload.
const maxUploadBytes = 20 << 20

type createDialogRequest struct {
	ImageBase64 string `json:"imageBase64"`
	Name        string `json:"name"`
	GroupUID    string `json:"groupUid"`
}

type updateDialogRequest struct {
	Context *string `json:"context"`
}

type fetchRepliesRequest struct {
	Tone      string `json:"tone"`
	Language  string `json:"language"`
	UseEmojis bool   `json:"useEmojis"`
}

// createDialog ingests a screenshot from multipart upload (UI, share sheet)
// or a JSON body with base64 image data (shortcut glue).
func (s *APIV1Service) createDialog(c echo.Context) error {
	data, name, groupUID, err := readScreenshot(c)
	if err != nil {
		return err
	}

	group, dlg, err := s.Dialog.CreateDialogFromImage(c.Request().Context(), userID(c), data, name, groupUID)
	if err != nil {
		return httpError(err)
	}

	resp := convertGroup(group, s.imagePath(c.Request().Context(), group.CoverImageID))
	resp.Dialogs = []*dialogResponse{convertDialog(dlg, s.imagePath(c.Request().Context(), dlg.ImageID))}
	return c.JSON(http.StatusCreated, resp)
}

func (s *APIV1Service) updateDialog(c echo.Context) error {
	var req updateDialogRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body")
	}
	if req.Context == nil {
		return echo.NewHTTPError(http.StatusBadRequest, "nothing to update")
	}

	dlg, err := s.Dialog.UpdateDialogContext(c.Request().Context(), c.Param("uid"), *req.Context)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, convertDialog(dlg, s.imagePath(c.Request().Context(), dlg.ImageID)))
}

func (s *APIV1Service) deleteDialog(c echo.Context) error {
	if err := s.Dialog.DeleteDialog(c.Request().Context(), c.Param("uid")); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *APIV1Service) fetchReplies(c echo.Context) error {
	uid := userID(c)
	if !s.replyLimiter.Allow(rateKey(uid)) {
		return echo.NewHTTPError(http.StatusTooManyRequests, "too many reply requests")
	}

	var req fetchRepliesRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body")
	}

	replies, err := s.Dialog.FetchReply(c.Request().Context(), c.Param("uid"), dialog.FetchOptions{
		Tone:      store.Tone(req.Tone),
		Language:  req.Language,
		UseEmojis: req.UseEmojis,
		Receipt:   receiptToken(c),
	})
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, convertReplies(replies))
}

// shortcutReply is the background entry point. A request without image data
// within the cycling window returns the next cached reply; otherwise it runs
// the full ingest-and-fetch flow.
func (s *APIV1Service) shortcutReply(c echo.Context) error {
	var data []byte
	var name string
	if c.Request().ContentLength != 0 {
		var req createDialogRequest
		if err := c.Bind(&req); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "malformed request body")
		}
		if req.ImageBase64 != "" {
			decoded, err := base64.StdEncoding.DecodeString(req.ImageBase64)
			if err != nil {
				return echo.NewHTTPError(http.StatusBadRequest, "invalid base64 image data")
			}
			data, name = decoded, req.Name
		}
	}

	result, err := s.Dialog.NextReply(c.Request().Context(), userID(c), data, name, dialog.FetchOptions{
		Receipt: receiptToken(c),
	})
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, &shortcutReplyResponse{
		DialogUID: result.Dialog.UID,
		Content:   result.Reply.Content,
		Tone:      string(result.Reply.Tone),
		Index:     result.Index,
		Total:     result.Total,
		Fetched:   result.Fetched,
	})
}

// clearUserData is explicitly user-initiated; failures surface as errors
// rather than being logged away.
func (s *APIV1Service) clearUserData(c echo.Context) error {
	if err := s.Dialog.ClearUserData(c.Request().Context(), userID(c)); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func readScreenshot(c echo.Context) (data []byte, name, groupUID string, err error) {
	contentType := c.Request().Header.Get(echo.HeaderContentType)
	if strings.HasPrefix(contentType, "multipart/") {
		file, err := c.FormFile("file")
		if err != nil {
			return nil, "", "", echo.NewHTTPError(http.StatusBadRequest, "screenshot file required")
		}
		if file.Size > maxUploadBytes {
			return nil, "", "", echo.NewHTTPError(http.StatusRequestEntityTooLarge, "screenshot too large")
		}
		src, err := file.Open()
		if err != nil {
			return nil, "", "", echo.NewHTTPError(http.StatusBadRequest, "failed to open upload")
		}
		defer src.Close()
		data, err = io.ReadAll(io.LimitReader(src, maxUploadBytes))
		if err != nil {
			return nil, "", "", echo.NewHTTPError(http.StatusBadRequest, "failed to read upload")
		}
		return data, file.Filename, c.FormValue("groupUid"), nil
	}

	var req createDialogRequest
	if err := c.Bind(&req); err != nil {
		return nil, "", "", echo.NewHTTPError(http.StatusBadRequest, "malformed request body")
	}
	if req.ImageBase64 == "" {
		return nil, "", "", echo.NewHTTPError(http.StatusBadRequest, "imageBase64 required")
	}
	decoded, err := base64.StdEncoding.DecodeString(req.ImageBase64)
	if err != nil {
		return nil, "", "", echo.NewHTTPError(http.StatusBadRequest, "invalid base64 image data")
	}
	return decoded, req.Name, req.GroupUID, nil
}

func rateKey(uid int32) string {
	return "user/" + strconv.FormatInt(int64(uid), 10)
}

func (s *APIV1Service) imagePath(ctx context.Context, imageID *int32) string {
	if imageID == nil {
		return ""
	}
	image, err := s.Store.GetImage(ctx, &store.FindImage{ID: imageID})
	if err != nil || image == nil || image.LocalPath == nil {
		return ""
	}
	return *image.LocalPath
}
