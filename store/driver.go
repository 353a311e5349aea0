package store

import (
	"context"
	"database/sql"
)

// Driver is an interface for store driver.
// It contains all methods that store database driver should implement.
type Driver interface {
	GetDB() *sql.DB
	Close() error

	IsInitialized(ctx context.Context) (bool, error)

	// RunInTransaction executes fn inside a single database transaction and
	// commits it atomically; any error from fn rolls everything back. The
	// transaction travels in the context, so driver methods called with the
	// derived context join it. Nested calls join the outer transaction.
	RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error
	// InTransaction reports whether ctx carries an open transaction. Cache
	// layers use it to avoid publishing state that may still roll back.
	InTransaction(ctx context.Context) bool

	// Image model related methods.
	CreateImage(ctx context.Context, create *Image) (*Image, error)
	ListImages(ctx context.Context, find *FindImage) ([]*Image, error)
	DeleteImage(ctx context.Context, delete *DeleteImage) error

	// Reply model related methods.
	CreateReply(ctx context.Context, create *Reply) (*Reply, error)
	ListReplies(ctx context.Context, find *FindReply) ([]*Reply, error)

	// Dialog model related methods.
	CreateDialog(ctx context.Context, create *Dialog) (*Dialog, error)
	ListDialogs(ctx context.Context, find *FindDialog) ([]*Dialog, error)
	UpdateDialog(ctx context.Context, update *UpdateDialog) error
	DeleteDialog(ctx context.Context, delete *DeleteDialog) error

	// DialogGroup model related methods.
	CreateDialogGroup(ctx context.Context, create *DialogGroup) (*DialogGroup, error)
	ListDialogGroups(ctx context.Context, find *FindDialogGroup) ([]*DialogGroup, error)
	UpdateDialogGroup(ctx context.Context, update *UpdateDialogGroup) error
	DeleteDialogGroup(ctx context.Context, delete *DeleteDialogGroup) error

	// UserSetting model related methods.
	UpsertUserSetting(ctx context.Context, upsert *UserSetting) (*UserSetting, error)
	ListUserSettings(ctx context.Context, find *FindUserSetting) ([]*UserSetting, error)
	DeleteUserSetting(ctx context.Context, delete *DeleteUserSetting) error
}
