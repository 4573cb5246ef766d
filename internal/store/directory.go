package store

import (
	"context"
	"errors"
	"log/slog"
)

// Directory is the write-through presence mirror: the relay reports
// online/offline transitions here, and the REST user surface reads
// them back. Redis holds the hot copy, postgres the durable one.
type Directory struct {
	pg    *Postgres
	cache *Cache
	log   *slog.Logger
}

func NewDirectory(pg *Postgres, cache *Cache, log *slog.Logger) *Directory {
	return &Directory{pg: pg, cache: cache, log: log}
}

// UpdateUserStatus records one presence transition. The gateway admits
// any non-empty username, so a user missing from the directory is not
// an error.
func (d *Directory) UpdateUserStatus(ctx context.Context, username, status string) error {
	if d.cache != nil {
		if err := d.cache.SetStatus(ctx, username, status); err != nil {
			d.log.Error("directory.cache", "user", username, "err", err)
		}
	}
	if err := d.pg.UpdateUserStatus(ctx, username, status); err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	return nil
}
