package store

import (
	"context"
)

// AddMessage persists one chat message
func (p *Postgres) AddMessage(ctx context.Context, m Message) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO messages (id, room_id, username, content, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, m.ID, m.RoomID, m.Username, m.Content, m.Timestamp)
	return err
}

// ListMessages returns the most recent limit messages for a room in
// submission order (oldest of the window first)
func (p *Postgres) ListMessages(ctx context.Context, roomID string, limit int) ([]Message, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT id, room_id, username, content, created_at
		FROM (
			SELECT id, room_id, username, content, created_at
			FROM messages
			WHERE room_id = $1
			ORDER BY created_at DESC
			LIMIT $2
		) recent
		ORDER BY created_at ASC
	`, roomID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.RoomID, &m.Username, &m.Content, &m.Timestamp); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
