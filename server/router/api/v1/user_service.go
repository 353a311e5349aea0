package v1

import (
	"context"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/hilite/wingman/store"
)

type updateSettingsRequest struct {
	Tone      *string `json:"tone"`
	Language  *string `json:"language"`
	UseEmojis *bool   `json:"useEmojis"`
}

// updateUserSettings persists reply preferences; subsequent fetches use them
// as defaults when the request leaves the field unset.
func (s *APIV1Service) updateUserSettings(c echo.Context) error {
	ctx := c.Request().Context()
	var req updateSettingsRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body")
	}
	if req.Tone == nil && req.Language == nil && req.UseEmojis == nil {
		return echo.NewHTTPError(http.StatusBadRequest, "nothing to update")
	}

	uid := userID(c)
	upserts := map[string]string{}
	if req.Tone != nil {
		if !store.Tone(*req.Tone).IsValid() {
			return echo.NewHTTPError(http.StatusBadRequest, "unknown tone: "+*req.Tone)
		}
		upserts[store.SettingKeyTone] = *req.Tone
	}
	if req.Language != nil {
		upserts[store.SettingKeyLanguage] = *req.Language
	}
	if req.UseEmojis != nil {
		upserts[store.SettingKeyUseEmojis] = strconv.FormatBool(*req.UseEmojis)
	}

	err := s.Store.RunInTransaction(ctx, func(ctx context.Context) error {
		for key, value := range upserts {
			if _, err := s.Store.UpsertUserSetting(ctx, &store.UserSetting{
				UserID: uid,
				Key:    key,
				Value:  value,
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}
