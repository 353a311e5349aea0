package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hilite/wingman/store"
)

func (d *DB) CreateDialog(ctx context.Context, create *store.Dialog) (*store.Dialog, error) {
	elements, err := marshalElements(create.Elements)
	if err != nil {
		return nil, err
	}

	fields := []string{"uid", "user_id", "group_id", "image_id", "title", "context", "summary", "elements"}
	placeholderValues := []any{
		create.UID, create.UserID, create.GroupID, create.ImageID,
		create.Title, create.ContextText, create.Summary, elements,
	}

	if create.CreatedTs != 0 {
		fields = append(fields, "created_ts")
		placeholderValues = append(placeholderValues, create.CreatedTs)
	}
	if create.UpdatedTs != 0 {
		fields = append(fields, "updated_ts")
		placeholderValues = append(placeholderValues, create.UpdatedTs)
	}

	stmt := `INSERT INTO dialog (` + strings.Join(fields, ", ") + `)
		VALUES (` + placeholders(len(placeholderValues)) + `)
		RETURNING id, created_ts, updated_ts`

	if err := d.conn(ctx).QueryRowContext(ctx, stmt, placeholderValues...).Scan(
		&create.ID,
		&create.CreatedTs,
		&create.UpdatedTs,
	); err != nil {
		return nil, fmt.Errorf("failed to create dialog: %w", err)
	}

	return create, nil
}

func (d *DB) ListDialogs(ctx context.Context, find *store.FindDialog) ([]*store.Dialog, error) {
	where, args := []string{"1 = 1"}, []any{}

	if v := find.ID; v != nil {
		where, args = append(where, "dialog.id = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.UID; v != nil {
		where, args = append(where, "dialog.uid = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.UserID; v != nil {
		where, args = append(where, "dialog.user_id = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.GroupID; v != nil {
		where, args = append(where, "dialog.group_id = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.ImageID; v != nil {
		where, args = append(where, "dialog.image_id = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.ExcludeID; v != nil {
		where, args = append(where, "dialog.id != "+placeholder(len(args)+1)), append(args, *v)
	}

	orderBy := "ORDER BY dialog.created_ts ASC, dialog.id ASC"
	if find.OrderByCreatedTsDesc {
		orderBy = "ORDER BY dialog.created_ts DESC, dialog.id DESC"
	}

	query := `
		SELECT id, uid, created_ts, updated_ts, user_id, group_id, image_id,
			title, context, summary, elements
		FROM dialog
		WHERE ` + strings.Join(where, " AND ") + ` ` + orderBy

	if find.Limit != nil {
		query = fmt.Sprintf("%s LIMIT %d", query, *find.Limit)
	}

	rows, err := d.conn(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query dialogs: %w", err)
	}
	defer rows.Close()

	list := make([]*store.Dialog, 0)
	for rows.Next() {
		var dialog store.Dialog
		var groupID, imageID sql.NullInt32
		var contextText, summary sql.NullString
		var elements string

		if err := rows.Scan(
			&dialog.ID,
			&dialog.UID,
			&dialog.CreatedTs,
			&dialog.UpdatedTs,
			&dialog.UserID,
			&groupID,
			&imageID,
			&dialog.Title,
			&contextText,
			&summary,
			&elements,
		); err != nil {
			return nil, fmt.Errorf("failed to scan dialog: %w", err)
		}

		if groupID.Valid {
			dialog.GroupID = &groupID.Int32
		}
		if imageID.Valid {
			dialog.ImageID = &imageID.Int32
		}
		if contextText.Valid {
			dialog.ContextText = &contextText.String
		}
		if summary.Valid {
			dialog.Summary = &summary.String
		}
		if err := json.Unmarshal([]byte(elements), &dialog.Elements); err != nil {
			return nil, fmt.Errorf("failed to unmarshal dialog elements: %w", err)
		}

		list = append(list, &dialog)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate dialogs: %w", err)
	}

	return list, nil
}

func (d *DB) UpdateDialog(ctx context.Context, update *store.UpdateDialog) error {
	set, args := []string{}, []any{}

	if v := update.GroupID; v != nil {
		set, args = append(set, "group_id = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := update.Title; v != nil {
		set, args = append(set, "title = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := update.ContextText; v != nil {
		set, args = append(set, "context = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := update.Summary; v != nil {
		set, args = append(set, "summary = "+placeholder(len(args)+1)), append(args, *v)
	}
	if update.Elements != nil {
		elements, err := marshalElements(update.Elements)
		if err != nil {
			return err
		}
		set, args = append(set, "elements = "+placeholder(len(args)+1)), append(args, elements)
	}
	if v := update.UpdatedTs; v != nil {
		set, args = append(set, "updated_ts = "+placeholder(len(args)+1)), append(args, *v)
	}

	if len(set) == 0 {
		return nil
	}

	args = append(args, update.ID)

	stmt := `UPDATE dialog SET ` + strings.Join(set, ", ") + ` WHERE id = ` + placeholder(len(args))
	if _, err := d.conn(ctx).ExecContext(ctx, stmt, args...); err != nil {
		return fmt.Errorf("failed to update dialog: %w", err)
	}

	return nil
}

func (d *DB) DeleteDialog(ctx context.Context, delete *store.DeleteDialog) error {
	stmt := `DELETE FROM dialog WHERE id = ` + placeholder(1)
	result, err := d.conn(ctx).ExecContext(ctx, stmt, delete.ID)
	if err != nil {
		return fmt.Errorf("failed to delete dialog: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("dialog not found")
	}

	return nil
}

func marshalElements(elements []string) (string, error) {
	if elements == nil {
		elements = []string{}
	}
	buf, err := json.Marshal(elements)
	if err != nil {
		return "", fmt.Errorf("failed to marshal dialog elements: %w", err)
	}
	return string(buf), nil
}
