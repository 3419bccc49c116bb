package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/flemzord/phrasecue/internal/storage"
)

// quotaStore implements storage.QuotaStore backed by SQLite.
type quotaStore struct {
	db *sql.DB
}

func (s *quotaStore) Get(ctx context.Context, scope, identity string) (storage.Counter, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT count, window_start FROM quota_counters
		WHERE scope = ? AND identity = ?`, scope, identity)

	var (
		c           storage.Counter
		windowStart string
	)
	err := row.Scan(&c.Count, &windowStart)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.Counter{}, nil
	}
	if err != nil {
		return storage.Counter{}, fmt.Errorf("sqlite: get quota counter: %w", err)
	}
	if c.WindowStart, err = parseTime(windowStart); err != nil {
		return storage.Counter{}, err
	}
	return c, nil
}

func (s *quotaStore) Set(ctx context.Context, scope, identity string, c storage.Counter) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO quota_counters (scope, identity, count, window_start)
		VALUES (?, ?, ?, ?)`,
		scope, identity, c.Count, formatTime(c.WindowStart),
	)
	if err != nil {
		return fmt.Errorf("sqlite: set quota counter: %w", err)
	}
	return nil
}

func (s *quotaStore) Prune(ctx context.Context, cutoff time.Time) error {
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM quota_counters WHERE window_start < ?", formatTime(cutoff))
	if err != nil {
		return fmt.Errorf("sqlite: prune quota counters: %w", err)
	}
	return nil
}
