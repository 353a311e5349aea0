package store

import (
	"context"
	"fmt"
)

// Setting keys consumed by the background shortcut path and preference
// surface. Values are stored as plain strings.
const (
	// SettingKeyLastScreenshotTs is the unix timestamp of the last ingested screenshot.
	SettingKeyLastScreenshotTs = "last_screenshot_ts"
	// SettingKeyCyclingDialogUID is the dialog the shortcut path is cycling replies for.
	SettingKeyCyclingDialogUID = "cycling_dialog_uid"
	// SettingKeyCyclingReplyIndex is the index of the next not-yet-returned reply.
	SettingKeyCyclingReplyIndex = "cycling_reply_index"
	// SettingKeyTone is the preferred reply tone.
	SettingKeyTone = "tone"
	// SettingKeyLanguage is the preferred reply language.
	SettingKeyLanguage = "language"
	// SettingKeyUseEmojis toggles emoji usage in generated replies.
	SettingKeyUseEmojis = "use_emojis"
)

// UserSetting is a scalar preference keyed per user.
type UserSetting struct {
	UserID int32
	Key    string
	Value  string
}

type FindUserSetting struct {
	UserID *int32
	Key    *string
}

type DeleteUserSetting struct {
	UserID int32
	// Key deletes a single setting when set; all of the user's settings otherwise.
	Key *string
}

func settingCacheKey(userID int32, key string) string {
	return fmt.Sprintf("%d/%s", userID, key)
}

func (s *Store) UpsertUserSetting(ctx context.Context, upsert *UserSetting) (*UserSetting, error) {
	setting, err := s.driver.UpsertUserSetting(ctx, upsert)
	if err != nil {
		return nil, err
	}
	// Inside a transaction the write can still roll back, so the cache must
	// not hold the new value yet. Drop the key; the next read after commit
	// repopulates it from the committed row.
	if s.driver.InTransaction(ctx) {
		s.settingCache.Delete(settingCacheKey(upsert.UserID, upsert.Key))
	} else {
		s.settingCache.Set(settingCacheKey(upsert.UserID, upsert.Key), setting)
	}
	return setting, nil
}

func (s *Store) ListUserSettings(ctx context.Context, find *FindUserSetting) ([]*UserSetting, error) {
	return s.driver.ListUserSettings(ctx, find)
}

// GetUserSetting returns the setting or nil when unset.
func (s *Store) GetUserSetting(ctx context.Context, userID int32, key string) (*UserSetting, error) {
	// Transactional reads see staged writes, which must never leak into the
	// cache; bypass it entirely for them.
	cacheable := !s.driver.InTransaction(ctx)
	if cacheable {
		if v, ok := s.settingCache.Get(settingCacheKey(userID, key)); ok {
			if setting, ok := v.(*UserSetting); ok {
				return setting, nil
			}
		}
	}

	settings, err := s.ListUserSettings(ctx, &FindUserSetting{UserID: &userID, Key: &key})
	if err != nil {
		return nil, err
	}
	if len(settings) == 0 {
		return nil, nil
	}
	if cacheable {
		s.settingCache.Set(settingCacheKey(userID, key), settings[0])
	}
	return settings[0], nil
}

func (s *Store) DeleteUserSetting(ctx context.Context, delete *DeleteUserSetting) error {
	if err := s.driver.DeleteUserSetting(ctx, delete); err != nil {
		return err
	}
	if delete.Key != nil {
		s.settingCache.Delete(settingCacheKey(delete.UserID, *delete.Key))
	} else {
		s.settingCache.Purge()
	}
	return nil
}
