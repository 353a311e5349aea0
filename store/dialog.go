package store

import "context"

// Dialog is a single screenshot-triggered conversation thread.
//
// A dialog created through the standard ingest path always belongs to a
// group, even though the column is nullable; the group link only goes away
// transiently inside merge transactions.
type Dialog struct {
	ID  int32
	UID string

	CreatedTs int64
	UpdatedTs int64

	UserID  int32
	GroupID *int32
	ImageID *int32

	// Title may start empty and populate after the first reply fetch.
	Title       string
	ContextText *string
	Summary     *string
	// Elements are ordered tags extracted from the screenshot.
	Elements []string
}

type FindDialog struct {
	ID      *int32
	UID     *string
	UserID  *int32
	GroupID *int32
	ImageID *int32
	// ExcludeID filters out a single dialog, used for cover fallback picks.
	ExcludeID *int32

	// OrderByCreatedTsDesc lists newest first; default order is oldest first.
	OrderByCreatedTsDesc bool
	Limit                *int
}

type UpdateDialog struct {
	ID int32

	UpdatedTs   *int64
	GroupID     *int32
	Title       *string
	ContextText *string
	Summary     *string
	Elements    []string
}

type DeleteDialog struct {
	ID int32
}

func (s *Store) CreateDialog(ctx context.Context, create *Dialog) (*Dialog, error) {
	return s.driver.CreateDialog(ctx, create)
}

func (s *Store) ListDialogs(ctx context.Context, find *FindDialog) ([]*Dialog, error) {
	return s.driver.ListDialogs(ctx, find)
}

func (s *Store) GetDialog(ctx context.Context, find *FindDialog) (*Dialog, error) {
	dialogs, err := s.ListDialogs(ctx, find)
	if err != nil {
		return nil, err
	}
	if len(dialogs) == 0 {
		return nil, nil
	}
	return dialogs[0], nil
}

// GetLatestDialog returns the most recently created dialog for the user, or
// nil when none exists. The group-reuse heuristic keys off this record.
func (s *Store) GetLatestDialog(ctx context.Context, userID int32) (*Dialog, error) {
	limit := 1
	return s.GetDialog(ctx, &FindDialog{
		UserID:               &userID,
		OrderByCreatedTsDesc: true,
		Limit:                &limit,
	})
}

func (s *Store) UpdateDialog(ctx context.Context, update *UpdateDialog) error {
	return s.driver.UpdateDialog(ctx, update)
}

// DeleteDialog removes the dialog row. Replies cascade at the schema level;
// image cleanup is the caller's responsibility (see the lifecycle service).
func (s *Store) DeleteDialog(ctx context.Context, delete *DeleteDialog) error {
	return s.driver.DeleteDialog(ctx, delete)
}
