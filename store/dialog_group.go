package store

import "context"

// DialogGroup is a collection of dialogs sharing a title, typically one per
// matched contact. Deleting a group cascades to its dialogs and their replies.
type DialogGroup struct {
	ID  int32
	UID string

	CreatedTs int64
	UpdatedTs int64

	UserID int32
	Title  string
	Pinned bool
	// CoverImageID points at the most relevant dialog's image; nullified at
	// the schema level when that image goes away.
	CoverImageID *int32
}

type FindDialogGroup struct {
	ID     *int32
	UID    *string
	UserID *int32
	// Title matches the trimmed group title exactly.
	Title *string
	// ExcludeID filters out a single group, used by merge reconciliation to
	// look for a pre-existing group other than the current one.
	ExcludeID    *int32
	CoverImageID *int32

	// OrderByCreatedTsAsc lists oldest first, the merge tie-break order.
	OrderByCreatedTsAsc bool
	// OrderByPinnedAndUpdatedTs lists pinned groups first, then most recently
	// updated, the feed order.
	OrderByPinnedAndUpdatedTs bool
	Limit                     *int
}

type UpdateDialogGroup struct {
	ID int32

	UpdatedTs    *int64
	Title        *string
	Pinned       *bool
	CoverImageID *int32
	// ClearCover sets the cover reference to null. Must win over CoverImageID.
	ClearCover bool
}

type DeleteDialogGroup struct {
	ID int32
}

func (s *Store) CreateDialogGroup(ctx context.Context, create *DialogGroup) (*DialogGroup, error) {
	return s.driver.CreateDialogGroup(ctx, create)
}

func (s *Store) ListDialogGroups(ctx context.Context, find *FindDialogGroup) ([]*DialogGroup, error) {
	return s.driver.ListDialogGroups(ctx, find)
}

func (s *Store) GetDialogGroup(ctx context.Context, find *FindDialogGroup) (*DialogGroup, error) {
	groups, err := s.ListDialogGroups(ctx, find)
	if err != nil {
		return nil, err
	}
	if len(groups) == 0 {
		return nil, nil
	}
	return groups[0], nil
}

func (s *Store) UpdateDialogGroup(ctx context.Context, update *UpdateDialogGroup) error {
	return s.driver.UpdateDialogGroup(ctx, update)
}

func (s *Store) DeleteDialogGroup(ctx context.Context, delete *DeleteDialogGroup) error {
	return s.driver.DeleteDialogGroup(ctx, delete)
}
