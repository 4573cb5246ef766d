package store

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
)

// CreateRoom inserts a new chat room
func (p *Postgres) CreateRoom(ctx context.Context, name string) (Room, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Room{}, errors.New("missing room name")
	}

	row := p.pool.QueryRow(ctx, `
		INSERT INTO rooms (name)
		VALUES ($1)
		RETURNING id, name, created_at
	`, name)

	var r Room
	if err := row.Scan(&r.ID, &r.Name, &r.CreatedAt); err != nil {
		return Room{}, err
	}
	return r, nil
}

// GetRoom fetches a room by ID
func (p *Postgres) GetRoom(ctx context.Context, id string) (Room, error) {
	row := p.pool.QueryRow(ctx, `
		SELECT id, name, created_at
		FROM rooms
		WHERE id = $1
	`, id)

	var r Room
	if err := row.Scan(&r.ID, &r.Name, &r.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Room{}, ErrNotFound
		}
		return Room{}, err
	}
	return r, nil
}

// ListRooms returns rooms, newest first
func (p *Postgres) ListRooms(ctx context.Context) ([]Room, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT id, name, created_at
		FROM rooms
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Room
	for rows.Next() {
		var r Room
		if err := rows.Scan(&r.ID, &r.Name, &r.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
