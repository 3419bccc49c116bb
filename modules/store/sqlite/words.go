package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/flemzord/phrasecue/internal/storage"
	"github.com/flemzord/phrasecue/pkg/clip"
)

// wordIndex implements storage.WordIndex backed by SQLite. Examples live in
// a normalized word_examples table; insertion order is rowid order.
type wordIndex struct {
	db *sql.DB
}

func (s *wordIndex) AddSegmentToWords(ctx context.Context, words []string, ref clip.SegmentRef) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: begin word index tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := formatTime(time.Now())
	for _, w := range words {
		if _, err := tx.ExecContext(ctx, `
			INSERT OR IGNORE INTO words (word, created_at, updated_at)
			VALUES (?, ?, ?)`, w, now, now); err != nil {
			return fmt.Errorf("sqlite: upsert word %q: %w", w, err)
		}

		res, err := tx.ExecContext(ctx, `
			INSERT OR IGNORE INTO word_examples (word, video_id, start_time, end_time, caption)
			VALUES (?, ?, ?, ?, ?)`,
			w, ref.VideoID, ref.StartTime, ref.EndTime, ref.Caption)
		if err != nil {
			return fmt.Errorf("sqlite: add example for %q: %w", w, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("sqlite: rows affected: %w", err)
		}
		if n > 0 {
			if _, err := tx.ExecContext(ctx,
				"UPDATE words SET updated_at = ? WHERE word = ?", now, w); err != nil {
				return fmt.Errorf("sqlite: touch word %q: %w", w, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: commit word index tx: %w", err)
	}
	return nil
}

func (s *wordIndex) FindByWord(ctx context.Context, w string) (*clip.WordEntry, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT word, created_at, updated_at FROM words WHERE word = ?", w)

	var (
		entry     clip.WordEntry
		createdAt string
		updatedAt string
	)
	err := row.Scan(&entry.Word, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: find word: %w", err)
	}
	if entry.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if entry.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT video_id, start_time, end_time, caption
		FROM word_examples WHERE word = ? ORDER BY rowid`, w)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list examples: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var ref clip.SegmentRef
		if err := rows.Scan(&ref.VideoID, &ref.StartTime, &ref.EndTime, &ref.Caption); err != nil {
			return nil, fmt.Errorf("sqlite: scan example: %w", err)
		}
		entry.Examples = append(entry.Examples, ref)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: example rows: %w", err)
	}
	return &entry, nil
}

func (s *wordIndex) ListWords(ctx context.Context, limit, offset int) ([]string, error) {
	if limit <= 0 {
		limit = -1 // SQLite treats negative LIMIT as unlimited
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT word FROM words ORDER BY word LIMIT ? OFFSET ?", limit, offset)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list words: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var words []string
	for rows.Next() {
		var w string
		if err := rows.Scan(&w); err != nil {
			return nil, fmt.Errorf("sqlite: scan word: %w", err)
		}
		words = append(words, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: word rows: %w", err)
	}
	return words, nil
}

func (s *wordIndex) Stats(ctx context.Context) (clip.IndexStats, error) {
	var stats clip.IndexStats
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM words").Scan(&stats.TotalWords); err != nil {
		return clip.IndexStats{}, fmt.Errorf("sqlite: count words: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM word_examples").Scan(&stats.TotalMappings); err != nil {
		return clip.IndexStats{}, fmt.Errorf("sqlite: count mappings: %w", err)
	}
	return stats, nil
}
