package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/hilite/wingman/store"
)

func (d *DB) CreateImage(ctx context.Context, create *store.Image) (*store.Image, error) {
	fields := []string{"uid", "local_path", "remote_path"}
	placeholderValues := []any{create.UID, create.LocalPath, create.RemotePath}

	if create.CreatedTs != 0 {
		fields = append(fields, "created_ts")
		placeholderValues = append(placeholderValues, create.CreatedTs)
	}

	stmt := `INSERT INTO image (` + strings.Join(fields, ", ") + `)
		VALUES (` + placeholders(len(placeholderValues)) + `)
		RETURNING id, created_ts`

	if err := d.conn(ctx).QueryRowContext(ctx, stmt, placeholderValues...).Scan(
		&create.ID,
		&create.CreatedTs,
	); err != nil {
		return nil, fmt.Errorf("failed to create image: %w", err)
	}

	return create, nil
}

func (d *DB) ListImages(ctx context.Context, find *store.FindImage) ([]*store.Image, error) {
	where, args := []string{"1 = 1"}, []any{}

	if v := find.ID; v != nil {
		where, args = append(where, "image.id = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.UID; v != nil {
		where, args = append(where, "image.uid = "+placeholder(len(args)+1)), append(args, *v)
	}
	if find.OrphanedOnly {
		where = append(where,
			"NOT EXISTS (SELECT 1 FROM dialog WHERE dialog.image_id = image.id)",
			"NOT EXISTS (SELECT 1 FROM dialog_group WHERE dialog_group.cover_image_id = image.id)",
		)
	}

	query := `
		SELECT id, uid, created_ts, local_path, remote_path
		FROM image
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY image.created_ts ASC, image.id ASC`

	if find.Limit != nil {
		query = fmt.Sprintf("%s LIMIT %d", query, *find.Limit)
	}

	rows, err := d.conn(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query images: %w", err)
	}
	defer rows.Close()

	list := make([]*store.Image, 0)
	for rows.Next() {
		var image store.Image
		var localPath, remotePath sql.NullString

		if err := rows.Scan(
			&image.ID,
			&image.UID,
			&image.CreatedTs,
			&localPath,
			&remotePath,
		); err != nil {
			return nil, fmt.Errorf("failed to scan image: %w", err)
		}

		if localPath.Valid {
			image.LocalPath = &localPath.String
		}
		if remotePath.Valid {
			image.RemotePath = &remotePath.String
		}

		list = append(list, &image)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate images: %w", err)
	}

	return list, nil
}

func (d *DB) DeleteImage(ctx context.Context, delete *store.DeleteImage) error {
	stmt := `DELETE FROM image WHERE id = ` + placeholder(1)
	if _, err := d.conn(ctx).ExecContext(ctx, stmt, delete.ID); err != nil {
		return fmt.Errorf("failed to delete image: %w", err)
	}
	return nil
}
