package jobs

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"storyreel/internal/services"
)

// Create inserts a pending job for topic. A non-positive or non-finite
// duration is stored as zero so the generator applies its default.
func (s *Store) Create(ctx context.Context, topic string, duration float64) (*Job, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return nil, services.Wrap(services.ErrValidation, "jobs", "create", "topic is required", nil)
	}
	if math.IsNaN(duration) || math.IsInf(duration, 0) || duration < 0 {
		duration = 0
	}
	now := timestamp(time.Now())
	id := uuid.NewString()
	if _, err := s.execWithRetry(
		ctx,
		`INSERT INTO jobs (id, topic, duration, status, progress, created_at, updated_at)
         VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, topic, duration, StatusPending, 0.0, now, now,
	); err != nil {
		return nil, fmt.Errorf("insert job: %w", err)
	}
	return s.Get(ctx, id)
}

// Get fetches a job by identifier. A missing job returns nil without error.
func (s *Store) Get(ctx context.Context, id string) (*Job, error) {
	row := s.db.QueryRowContext(ensureContext(ctx), `SELECT `+jobColumns+` FROM jobs WHERE id = ?`, strings.TrimSpace(id))
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

// List returns jobs filtered by status set (or all jobs when no status is
// provided) in creation order.
func (s *Store) List(ctx context.Context, statuses ...Status) ([]*Job, error) {
	ctx = ensureContext(ctx)
	query := `SELECT ` + jobColumns + ` FROM jobs`
	var args []any
	if len(statuses) > 0 {
		query += ` WHERE status IN (` + makePlaceholders(len(statuses)) + `)`
		args = statusArgs(statuses)
	}
	rows, err := s.db.QueryContext(ctx, query+` ORDER BY seq`, args...)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	return scanJobs(rows)
}

// NextPending returns the oldest pending job, or nil when none is waiting.
func (s *Store) NextPending(ctx context.Context) (*Job, error) {
	row := s.db.QueryRowContext(ensureContext(ctx),
		`SELECT `+jobColumns+` FROM jobs WHERE status = ? ORDER BY seq LIMIT 1`, StatusPending)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("next pending job: %w", err)
	}
	return job, nil
}

// Update persists every mutable field of job.
func (s *Store) Update(ctx context.Context, job *Job) error {
	if job == nil {
		return errors.New("job is nil")
	}
	job.UpdatedAt = time.Now().UTC()
	res, err := s.execWithRetry(
		ctx,
		`UPDATE jobs
         SET status = ?, progress = ?, message = ?, error_message = ?,
             story_json = ?, output_path = ?, updated_at = ?
         WHERE id = ?`,
		job.Status,
		job.Progress,
		nullableString(job.Message),
		nullableString(job.ErrorMessage),
		nullableString(job.StoryJSON),
		nullableString(job.OutputPath),
		timestamp(job.UpdatedAt),
		job.ID,
	)
	if err != nil {
		return fmt.Errorf("update job: %w", err)
	}
	return requireRow(res, job.ID)
}

// UpdateProgress moves a job to status with the given percentage and message.
func (s *Store) UpdateProgress(ctx context.Context, id string, status Status, progress float64, message string) error {
	res, err := s.execWithRetry(
		ctx,
		`UPDATE jobs SET status = ?, progress = ?, message = ?, updated_at = ? WHERE id = ?`,
		status, clampProgress(progress), nullableString(message), timestamp(time.Now()), id,
	)
	if err != nil {
		return fmt.Errorf("update job progress: %w", err)
	}
	return requireRow(res, id)
}

// SaveStory records the generated story JSON for a job.
func (s *Store) SaveStory(ctx context.Context, id, storyJSON string) error {
	res, err := s.execWithRetry(
		ctx,
		`UPDATE jobs SET story_json = ?, updated_at = ? WHERE id = ?`,
		nullableString(storyJSON), timestamp(time.Now()), id,
	)
	if err != nil {
		return fmt.Errorf("save job story: %w", err)
	}
	return requireRow(res, id)
}

// Complete marks a job completed at 100% with its output path.
func (s *Store) Complete(ctx context.Context, id, outputPath string) error {
	res, err := s.execWithRetry(
		ctx,
		`UPDATE jobs SET status = ?, progress = 100, message = ?, error_message = NULL, output_path = ?, updated_at = ? WHERE id = ?`,
		StatusCompleted, "Video ready", nullableString(outputPath), timestamp(time.Now()), id,
	)
	if err != nil {
		return fmt.Errorf("complete job: %w", err)
	}
	return requireRow(res, id)
}

// Fail marks a job failed, keeping its last progress value.
func (s *Store) Fail(ctx context.Context, id, reason string) error {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = "unknown error"
	}
	res, err := s.execWithRetry(
		ctx,
		`UPDATE jobs SET status = ?, error_message = ?, message = ?, updated_at = ? WHERE id = ?`,
		StatusFailed, reason, "Failed", timestamp(time.Now()), id,
	)
	if err != nil {
		return fmt.Errorf("fail job: %w", err)
	}
	return requireRow(res, id)
}

// ResetStuckProcessing returns jobs left in a processing status by an
// interrupted worker to pending so they run again from the start.
func (s *Store) ResetStuckProcessing(ctx context.Context) (int64, error) {
	var processing []Status
	for _, status := range allStatuses {
		if status.IsProcessing() {
			processing = append(processing, status)
		}
	}
	args := append([]any{StatusPending, timestamp(time.Now())}, statusArgs(processing)...)
	res, err := s.execWithRetry(
		ctx,
		`UPDATE jobs SET status = ?, progress = 0, message = NULL, updated_at = ?
         WHERE status IN (`+makePlaceholders(len(processing))+`)`,
		args...,
	)
	if err != nil {
		return 0, fmt.Errorf("reset stuck jobs: %w", err)
	}
	return res.RowsAffected()
}

// Remove deletes a job by identifier.
func (s *Store) Remove(ctx context.Context, id string) (bool, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM jobs WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete job: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// Clear removes jobs with the given statuses, or every job when none is given.
func (s *Store) Clear(ctx context.Context, statuses ...Status) (int64, error) {
	query := `DELETE FROM jobs`
	var args []any
	if len(statuses) > 0 {
		query += ` WHERE status IN (` + makePlaceholders(len(statuses)) + `)`
		args = statusArgs(statuses)
	}
	res, err := s.execWithRetry(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("clear jobs: %w", err)
	}
	return res.RowsAffected()
}

// Stats returns a count of jobs grouped by status.
func (s *Store) Stats(ctx context.Context) (map[Status]int, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx), `SELECT status, COUNT(1) FROM jobs GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("job stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[Status]int)
	for rows.Next() {
		var status Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats[status] = count
	}
	return stats, rows.Err()
}

// Summary aggregates job counts for diagnostic output.
func (s *Store) Summary(ctx context.Context) (Summary, error) {
	stats, err := s.Stats(ctx)
	if err != nil {
		return Summary{}, err
	}
	var summary Summary
	for status, count := range stats {
		summary.Total += count
		switch {
		case status == StatusPending:
			summary.Pending += count
		case status == StatusCompleted:
			summary.Completed += count
		case status == StatusFailed:
			summary.Failed += count
		case status.IsProcessing():
			summary.Processing += count
		}
	}
	return summary, nil
}

func requireRow(res sql.Result, id string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return services.Wrap(services.ErrNotFound, "jobs", "update", fmt.Sprintf("job %s not found", id), nil)
	}
	return nil
}

func clampProgress(value float64) float64 {
	switch {
	case math.IsNaN(value) || value < 0:
		return 0
	case value > 100:
		return 100
	default:
		return value
	}
}
