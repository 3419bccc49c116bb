package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/flemzord/phrasecue/internal/storage"
	"github.com/flemzord/phrasecue/pkg/clip"
)

// segmentStore implements storage.SegmentStore backed by SQLite.
type segmentStore struct {
	db *sql.DB
}

func (s *segmentStore) FindByFingerprint(ctx context.Context, fp string) (*clip.Segment, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT fingerprint, query, video_id, start_time, end_time, caption, captions, created_at
		FROM segments WHERE fingerprint = ?`, fp)

	var (
		seg          clip.Segment
		captionsJSON string
		createdAt    string
	)
	err := row.Scan(&seg.Fingerprint, &seg.Query, &seg.VideoID,
		&seg.StartTime, &seg.EndTime, &seg.Caption, &captionsJSON, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: find segment: %w", err)
	}

	if err := json.Unmarshal([]byte(captionsJSON), &seg.Captions); err != nil {
		return nil, fmt.Errorf("sqlite: unmarshal captions: %w", err)
	}
	if seg.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	return &seg, nil
}

func (s *segmentStore) Insert(ctx context.Context, seg clip.Segment) error {
	captionsJSON, err := json.Marshal(seg.Captions)
	if err != nil {
		return fmt.Errorf("sqlite: marshal captions: %w", err)
	}

	createdAt := seg.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO segments
			(fingerprint, query, video_id, start_time, end_time, caption, captions, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		seg.Fingerprint, seg.Query, seg.VideoID,
		seg.StartTime, seg.EndTime, seg.Caption,
		string(captionsJSON), formatTime(createdAt),
	)
	if err != nil {
		return fmt.Errorf("sqlite: insert segment: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: rows affected: %w", err)
	}
	if n == 0 {
		return storage.ErrDuplicate
	}
	return nil
}
