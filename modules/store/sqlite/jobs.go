package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/flemzord/phrasecue/internal/storage"
	"github.com/flemzord/phrasecue/pkg/clip"
)

// jobStore implements storage.JobStore backed by SQLite.
type jobStore struct {
	db *sql.DB
}

const jobColumns = `fingerprint, id, query, canonical, kind, status,
	current_video_id, result, error, created_at, updated_at`

func (s *jobStore) Create(ctx context.Context, init storage.JobInit) (*clip.Job, error) {
	now := time.Now().UTC()
	job := &clip.Job{
		ID:          uuid.NewString(),
		Fingerprint: init.Fingerprint,
		Query:       init.Query,
		Canonical:   init.Canonical,
		Kind:        init.Kind,
		Status:      clip.StatusQueued,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO jobs
			(fingerprint, id, query, canonical, kind, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		job.Fingerprint, job.ID, job.Query, job.Canonical,
		string(job.Kind), string(job.Status),
		formatTime(now), formatTime(now),
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: create job: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("sqlite: rows affected: %w", err)
	}
	if n == 0 {
		return nil, storage.ErrDuplicate
	}
	return job, nil
}

func (s *jobStore) FindByFingerprint(ctx context.Context, fp string) (*clip.Job, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+jobColumns+" FROM jobs WHERE fingerprint = ?", fp)
	return scanJob(row)
}

func (s *jobStore) FindByID(ctx context.Context, id string) (*clip.Job, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+jobColumns+" FROM jobs WHERE id = ?", id)
	return scanJob(row)
}

func (s *jobStore) SetStatus(ctx context.Context, fp string, status clip.JobStatus, currentVideoID string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE jobs SET status = ?, current_video_id = ?, updated_at = ?
		WHERE fingerprint = ? AND status NOT IN ('completed', 'failed')`,
		string(status), currentVideoID, formatTime(time.Now()), fp,
	)
	if err != nil {
		return fmt.Errorf("sqlite: set job status: %w", err)
	}
	return s.checkExists(ctx, fp, res)
}

func (s *jobStore) SetResult(ctx context.Context, fp string, seg clip.Segment) error {
	resultJSON, err := json.Marshal(seg)
	if err != nil {
		return fmt.Errorf("sqlite: marshal result: %w", err)
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE jobs SET status = 'completed', result = ?, current_video_id = '', updated_at = ?
		WHERE fingerprint = ? AND status NOT IN ('completed', 'failed')`,
		string(resultJSON), formatTime(time.Now()), fp,
	)
	if err != nil {
		return fmt.Errorf("sqlite: set job result: %w", err)
	}
	return s.checkExists(ctx, fp, res)
}

func (s *jobStore) SetError(ctx context.Context, fp string, msg string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE jobs SET status = 'failed', error = ?, current_video_id = '', updated_at = ?
		WHERE fingerprint = ? AND status NOT IN ('completed', 'failed')`,
		msg, formatTime(time.Now()), fp,
	)
	if err != nil {
		return fmt.Errorf("sqlite: set job error: %w", err)
	}
	return s.checkExists(ctx, fp, res)
}

func (s *jobStore) ListQueued(ctx context.Context) ([]*clip.Job, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+jobColumns+" FROM jobs WHERE status = 'queued' ORDER BY created_at, rowid")
	if err != nil {
		return nil, fmt.Errorf("sqlite: list queued jobs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var jobs []*clip.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: list queued rows: %w", err)
	}
	return jobs, nil
}

// checkExists distinguishes a terminal no-op update from a missing job.
// Updates on terminal jobs are silently ignored per the store contract.
func (s *jobStore) checkExists(ctx context.Context, fp string, res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: rows affected: %w", err)
	}
	if n > 0 {
		return nil
	}
	var one int
	err = s.db.QueryRowContext(ctx, "SELECT 1 FROM jobs WHERE fingerprint = ?", fp).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("sqlite: check job exists: %w", err)
	}
	return nil
}

// scannable covers *sql.Row and *sql.Rows.
type scannable interface {
	Scan(dest ...any) error
}

func scanJob(row scannable) (*clip.Job, error) {
	var (
		job        clip.Job
		kind       string
		status     string
		resultJSON sql.NullString
		createdAt  string
		updatedAt  string
	)
	err := row.Scan(&job.Fingerprint, &job.ID, &job.Query, &job.Canonical,
		&kind, &status, &job.CurrentVideoID, &resultJSON, &job.Error,
		&createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: scan job: %w", err)
	}

	job.Kind = clip.QueryKind(kind)
	job.Status = clip.JobStatus(status)
	if resultJSON.Valid && resultJSON.String != "" {
		var seg clip.Segment
		if err := json.Unmarshal([]byte(resultJSON.String), &seg); err != nil {
			return nil, fmt.Errorf("sqlite: unmarshal job result: %w", err)
		}
		job.Result = &seg
	}
	if job.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if job.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &job, nil
}
