package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/flemzord/phrasecue/internal/storage"
	"github.com/flemzord/phrasecue/pkg/analysis"
)

// analysisStore implements storage.AnalysisStore backed by SQLite.
type analysisStore struct {
	db *sql.DB
}

func (s *analysisStore) FindByFingerprint(ctx context.Context, fp string) (*analysis.Record, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT fingerprint, sentence, target_word, target_language, native_language,
			context_before, context_after, result, chunks, access_count,
			created_at, last_accessed_at
		FROM analyses WHERE fingerprint = ?`, fp)

	var (
		rec            analysis.Record
		resultJSON     string
		chunksJSON     string
		createdAt      string
		lastAccessedAt string
	)
	err := row.Scan(&rec.Fingerprint, &rec.Sentence, &rec.TargetWord,
		&rec.TargetLanguage, &rec.NativeLanguage,
		&rec.ContextBefore, &rec.ContextAfter,
		&resultJSON, &chunksJSON, &rec.AccessCount,
		&createdAt, &lastAccessedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: find analysis: %w", err)
	}

	if err := json.Unmarshal([]byte(resultJSON), &rec.Result); err != nil {
		return nil, fmt.Errorf("sqlite: unmarshal analysis result: %w", err)
	}
	if chunksJSON != "" && chunksJSON != "[]" {
		if err := json.Unmarshal([]byte(chunksJSON), &rec.Chunks); err != nil {
			return nil, fmt.Errorf("sqlite: unmarshal analysis chunks: %w", err)
		}
	}
	if rec.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if rec.LastAccessedAt, err = parseTime(lastAccessedAt); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *analysisStore) Insert(ctx context.Context, rec analysis.Record) error {
	resultJSON, err := json.Marshal(rec.Result)
	if err != nil {
		return fmt.Errorf("sqlite: marshal analysis result: %w", err)
	}
	chunksJSON, err := json.Marshal(rec.Chunks)
	if err != nil {
		return fmt.Errorf("sqlite: marshal analysis chunks: %w", err)
	}

	now := time.Now().UTC()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	if rec.LastAccessedAt.IsZero() {
		rec.LastAccessedAt = now
	}
	if rec.AccessCount < 1 {
		rec.AccessCount = 1
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO analyses
			(fingerprint, sentence, target_word, target_language, native_language,
			 context_before, context_after, result, chunks, access_count,
			 created_at, last_accessed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.Fingerprint, rec.Sentence, rec.TargetWord,
		rec.TargetLanguage, rec.NativeLanguage,
		rec.ContextBefore, rec.ContextAfter,
		string(resultJSON), string(chunksJSON), rec.AccessCount,
		formatTime(rec.CreatedAt), formatTime(rec.LastAccessedAt),
	)
	if err != nil {
		return fmt.Errorf("sqlite: insert analysis: %w", err)
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

func (s *analysisStore) Touch(ctx context.Context, fp string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE analyses SET access_count = access_count + 1, last_accessed_at = ?
		WHERE fingerprint = ?`,
		formatTime(time.Now()), fp,
	)
	if err != nil {
		return fmt.Errorf("sqlite: touch analysis: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: rows affected: %w", err)
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return nil
}
