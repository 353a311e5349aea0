package sqlite

import (
	"context"
	"fmt"
	"strings"

	"github.com/hilite/wingman/store"
)

func (d *DB) CreateReply(ctx context.Context, create *store.Reply) (*store.Reply, error) {
	fields := []string{"uid", "dialog_id", "content", "tone"}
	placeholderValues := []any{create.UID, create.DialogID, create.Content, string(create.Tone)}

	if create.CreatedTs != 0 {
		fields = append(fields, "created_ts")
		placeholderValues = append(placeholderValues, create.CreatedTs)
	}

	stmt := `INSERT INTO reply (` + strings.Join(fields, ", ") + `)
		VALUES (` + placeholders(len(placeholderValues)) + `)
		RETURNING id, created_ts`

	if err := d.conn(ctx).QueryRowContext(ctx, stmt, placeholderValues...).Scan(
		&create.ID,
		&create.CreatedTs,
	); err != nil {
		return nil, fmt.Errorf("failed to create reply: %w", err)
	}

	return create, nil
}

func (d *DB) ListReplies(ctx context.Context, find *store.FindReply) ([]*store.Reply, error) {
	where, args := []string{"1 = 1"}, []any{}

	if v := find.ID; v != nil {
		where, args = append(where, "reply.id = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.UID; v != nil {
		where, args = append(where, "reply.uid = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.DialogID; v != nil {
		where, args = append(where, "reply.dialog_id = "+placeholder(len(args)+1)), append(args, *v)
	}

	// Consumption order: oldest first, id as tie-break for same-second inserts.
	query := `
		SELECT id, uid, created_ts, dialog_id, content, tone
		FROM reply
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY reply.created_ts ASC, reply.id ASC`

	if find.Limit != nil {
		query = fmt.Sprintf("%s LIMIT %d", query, *find.Limit)
	}

	rows, err := d.conn(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query replies: %w", err)
	}
	defer rows.Close()

	list := make([]*store.Reply, 0)
	for rows.Next() {
		var reply store.Reply
		var tone string

		if err := rows.Scan(
			&reply.ID,
			&reply.UID,
			&reply.CreatedTs,
			&reply.DialogID,
			&reply.Content,
			&tone,
		); err != nil {
			return nil, fmt.Errorf("failed to scan reply: %w", err)
		}

		reply.Tone = store.Tone(tone)
		list = append(list, &reply)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate replies: %w", err)
	}

	return list, nil
}
