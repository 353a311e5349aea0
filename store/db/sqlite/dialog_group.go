package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/hilite/wingman/store"
)

func (d *DB) CreateDialogGroup(ctx context.Context, create *store.DialogGroup) (*store.DialogGroup, error) {
	fields := []string{"uid", "user_id", "title", "pinned", "cover_image_id"}
	placeholderValues := []any{create.UID, create.UserID, create.Title, create.Pinned, create.CoverImageID}

	if create.CreatedTs != 0 {
		fields = append(fields, "created_ts")
		placeholderValues = append(placeholderValues, create.CreatedTs)
	}
	if create.UpdatedTs != 0 {
		fields = append(fields, "updated_ts")
		placeholderValues = append(placeholderValues, create.UpdatedTs)
	}

	stmt := `INSERT INTO dialog_group (` + strings.Join(fields, ", ") + `)
		VALUES (` + placeholders(len(placeholderValues)) + `)
		RETURNING id, created_ts, updated_ts`

	if err := d.conn(ctx).QueryRowContext(ctx, stmt, placeholderValues...).Scan(
		&create.ID,
		&create.CreatedTs,
		&create.UpdatedTs,
	); err != nil {
		return nil, fmt.Errorf("failed to create dialog group: %w", err)
	}

	return create, nil
}

func (d *DB) ListDialogGroups(ctx context.Context, find *store.FindDialogGroup) ([]*store.DialogGroup, error) {
	where, args := []string{"1 = 1"}, []any{}

	if v := find.ID; v != nil {
		where, args = append(where, "dialog_group.id = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.UID; v != nil {
		where, args = append(where, "dialog_group.uid = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.UserID; v != nil {
		where, args = append(where, "dialog_group.user_id = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.Title; v != nil {
		where, args = append(where, "TRIM(dialog_group.title) = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.ExcludeID; v != nil {
		where, args = append(where, "dialog_group.id != "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.CoverImageID; v != nil {
		where, args = append(where, "dialog_group.cover_image_id = "+placeholder(len(args)+1)), append(args, *v)
	}

	orderBy := "ORDER BY dialog_group.created_ts DESC, dialog_group.id DESC"
	if find.OrderByCreatedTsAsc {
		orderBy = "ORDER BY dialog_group.created_ts ASC, dialog_group.id ASC"
	} else if find.OrderByPinnedAndUpdatedTs {
		orderBy = "ORDER BY dialog_group.pinned DESC, dialog_group.updated_ts DESC, dialog_group.id DESC"
	}

	query := `
		SELECT id, uid, created_ts, updated_ts, user_id, title, pinned, cover_image_id
		FROM dialog_group
		WHERE ` + strings.Join(where, " AND ") + ` ` + orderBy

	if find.Limit != nil {
		query = fmt.Sprintf("%s LIMIT %d", query, *find.Limit)
	}

	rows, err := d.conn(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query dialog groups: %w", err)
	}
	defer rows.Close()

	list := make([]*store.DialogGroup, 0)
	for rows.Next() {
		var group store.DialogGroup
		var coverImageID sql.NullInt32

		if err := rows.Scan(
			&group.ID,
			&group.UID,
			&group.CreatedTs,
			&group.UpdatedTs,
			&group.UserID,
			&group.Title,
			&group.Pinned,
			&coverImageID,
		); err != nil {
			return nil, fmt.Errorf("failed to scan dialog group: %w", err)
		}

		if coverImageID.Valid {
			group.CoverImageID = &coverImageID.Int32
		}

		list = append(list, &group)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate dialog groups: %w", err)
	}

	return list, nil
}

func (d *DB) UpdateDialogGroup(ctx context.Context, update *store.UpdateDialogGroup) error {
	set, args := []string{}, []any{}

	if v := update.Title; v != nil {
		set, args = append(set, "title = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := update.Pinned; v != nil {
		set, args = append(set, "pinned = "+placeholder(len(args)+1)), append(args, *v)
	}
	if update.ClearCover {
		set = append(set, "cover_image_id = NULL")
	} else if v := update.CoverImageID; v != nil {
		set, args = append(set, "cover_image_id = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := update.UpdatedTs; v != nil {
		set, args = append(set, "updated_ts = "+placeholder(len(args)+1)), append(args, *v)
	}

	if len(set) == 0 {
		return nil
	}

	args = append(args, update.ID)

	stmt := `UPDATE dialog_group SET ` + strings.Join(set, ", ") + ` WHERE id = ` + placeholder(len(args))
	if _, err := d.conn(ctx).ExecContext(ctx, stmt, args...); err != nil {
		return fmt.Errorf("failed to update dialog group: %w", err)
	}

	return nil
}

func (d *DB) DeleteDialogGroup(ctx context.Context, delete *store.DeleteDialogGroup) error {
	stmt := `DELETE FROM dialog_group WHERE id = ` + placeholder(1)
	result, err := d.conn(ctx).ExecContext(ctx, stmt, delete.ID)
	if err != nil {
		return fmt.Errorf("failed to delete dialog group: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("dialog group not found")
	}

	return nil
}
