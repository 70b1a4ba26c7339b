package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ericfisherdev/orgsync/internal/domain/model"
	"github.com/ericfisherdev/orgsync/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.RunStore = (*RunRepo)(nil)

// RunRepo is the SQLite implementation of the RunStore port interface.
// Reports hold routing and outcome only; tokens and key material never reach it.
type RunRepo struct {
	db *DB
}

// NewRunRepo creates a new RunRepo backed by the given DB.
func NewRunRepo(db *DB) *RunRepo {
	return &RunRepo{db: db}
}

// fileRow is the stored JSON shape of a changed file.
type fileRow struct {
	SourcePath   string `json:"source_path"`
	PreviousPath string `json:"previous_path,omitempty"`
	Status       string `json:"status"`
	SourceRef    string `json:"source_ref,omitempty"`
}

// Save writes a report with its jobs and skipped organizations in one
// transaction. Saving an existing ID replaces the stored report.
func (r *RunRepo) Save(ctx context.Context, report model.RunReport) error {
	tx, err := r.db.Writer.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // Rollback after commit is a no-op.

	const upsertRun = `
		INSERT INTO sync_runs (id, delivery_id, pr_number, source_owner, source_repo, head_sha, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			delivery_id = excluded.delivery_id,
			pr_number = excluded.pr_number,
			source_owner = excluded.source_owner,
			source_repo = excluded.source_repo,
			head_sha = excluded.head_sha,
			started_at = excluded.started_at,
			finished_at = excluded.finished_at
	`
	if _, err := tx.ExecContext(ctx, upsertRun,
		report.ID, report.DeliveryID, report.PRNumber, report.SourceOwner, report.SourceRepo,
		report.HeadSHA, formatTime(report.StartedAt), formatTime(report.FinishedAt),
	); err != nil {
		return fmt.Errorf("upsert run %s: %w", report.ID, err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM sync_jobs WHERE run_id = ?`, report.ID); err != nil {
		return fmt.Errorf("clear jobs for run %s: %w", report.ID, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM skipped_orgs WHERE run_id = ?`, report.ID); err != nil {
		return fmt.Errorf("clear skipped orgs for run %s: %w", report.ID, err)
	}

	const insertJob = `
		INSERT INTO sync_jobs (
			run_id, position, org_name, destination_repo, branch_name, status, failure_kind,
			failure_reason, pr_number, pr_url, files, committed, skipped, started_at, finished_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	for i, job := range report.Jobs {
		files, committed, skipped, err := marshalJobLists(job)
		if err != nil {
			return fmt.Errorf("marshal job %s: %w", job.OrgName, err)
		}

		if _, err := tx.ExecContext(ctx, insertJob,
			report.ID, i, job.OrgName, job.DestinationRepo, job.BranchName, string(job.Status),
			job.FailureKind, job.FailureReason, job.PullRequestNumber, job.PullRequestURL,
			files, committed, skipped, formatTime(job.StartedAt), formatTime(job.FinishedAt),
		); err != nil {
			return fmt.Errorf("insert job %s for run %s: %w", job.OrgName, report.ID, err)
		}
	}

	const insertSkipped = `INSERT INTO skipped_orgs (run_id, position, org_name, reason) VALUES (?, ?, ?, ?)`
	for i, s := range report.Skipped {
		if _, err := tx.ExecContext(ctx, insertSkipped, report.ID, i, s.OrgName, s.Reason); err != nil {
			return fmt.Errorf("insert skipped org %s for run %s: %w", s.OrgName, report.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit run %s: %w", report.ID, err)
	}

	return nil
}

// Get returns the report with the given ID, or driven.ErrRunNotFound.
func (r *RunRepo) Get(ctx context.Context, id string) (*model.RunReport, error) {
	const query = `
		SELECT id, delivery_id, pr_number, source_owner, source_repo, head_sha, started_at, finished_at
		FROM sync_runs
		WHERE id = ?
	`

	report, err := scanRun(r.db.Reader.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %s: %w", id, driven.ErrRunNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get run %s: %w", id, err)
	}

	if err := r.loadChildren(ctx, report); err != nil {
		return nil, err
	}

	return report, nil
}

// ListRecent returns up to limit reports ordered by start time descending.
func (r *RunRepo) ListRecent(ctx context.Context, limit int) ([]model.RunReport, error) {
	if limit <= 0 {
		limit = 20
	}

	const query = `
		SELECT id, delivery_id, pr_number, source_owner, source_repo, head_sha, started_at, finished_at
		FROM sync_runs
		ORDER BY started_at DESC, id
		LIMIT ?
	`

	rows, err := r.db.Reader.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var reports []model.RunReport
	for rows.Next() {
		report, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		reports = append(reports, *report)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}

	for i := range reports {
		if err := r.loadChildren(ctx, &reports[i]); err != nil {
			return nil, err
		}
	}

	return reports, nil
}

func (r *RunRepo) loadChildren(ctx context.Context, report *model.RunReport) error {
	const jobsQuery = `
		SELECT org_name, destination_repo, branch_name, status, failure_kind, failure_reason,
		       pr_number, pr_url, files, committed, skipped, started_at, finished_at
		FROM sync_jobs
		WHERE run_id = ?
		ORDER BY position
	`

	rows, err := r.db.Reader.QueryContext(ctx, jobsQuery, report.ID)
	if err != nil {
		return fmt.Errorf("query jobs for run %s: %w", report.ID, err)
	}
	defer rows.Close()

	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return fmt.Errorf("scan job for run %s: %w", report.ID, err)
		}
		report.Jobs = append(report.Jobs, *job)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate jobs for run %s: %w", report.ID, err)
	}

	const skippedQuery = `SELECT org_name, reason FROM skipped_orgs WHERE run_id = ? ORDER BY position`
	skippedRows, err := r.db.Reader.QueryContext(ctx, skippedQuery, report.ID)
	if err != nil {
		return fmt.Errorf("query skipped orgs for run %s: %w", report.ID, err)
	}
	defer skippedRows.Close()

	for skippedRows.Next() {
		var s model.SkippedOrg
		if err := skippedRows.Scan(&s.OrgName, &s.Reason); err != nil {
			return fmt.Errorf("scan skipped org for run %s: %w", report.ID, err)
		}
		report.Skipped = append(report.Skipped, s)
	}

	return skippedRows.Err()
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (*model.RunReport, error) {
	var report model.RunReport
	var startedAt, finishedAt string

	err := s.Scan(
		&report.ID, &report.DeliveryID, &report.PRNumber, &report.SourceOwner,
		&report.SourceRepo, &report.HeadSHA, &startedAt, &finishedAt,
	)
	if err != nil {
		return nil, err
	}

	if report.StartedAt, err = parseTime(startedAt); err != nil {
		return nil, fmt.Errorf("parse started_at: %w", err)
	}
	if report.FinishedAt, err = parseTime(finishedAt); err != nil {
		return nil, fmt.Errorf("parse finished_at: %w", err)
	}

	return &report, nil
}

func scanJob(s scanner) (*model.SyncJob, error) {
	var job model.SyncJob
	var status, filesJSON, committedJSON, skippedJSON, startedAt, finishedAt string

	err := s.Scan(
		&job.OrgName, &job.DestinationRepo, &job.BranchName, &status, &job.FailureKind,
		&job.FailureReason, &job.PullRequestNumber, &job.PullRequestURL,
		&filesJSON, &committedJSON, &skippedJSON, &startedAt, &finishedAt,
	)
	if err != nil {
		return nil, err
	}

	job.Status = model.JobStatus(status)

	var files []fileRow
	if err := json.Unmarshal([]byte(filesJSON), &files); err != nil {
		return nil, fmt.Errorf("unmarshal files: %w", err)
	}
	for _, f := range files {
		job.Files = append(job.Files, model.ChangedFile{
			SourcePath:   f.SourcePath,
			PreviousPath: f.PreviousPath,
			Status:       model.FileStatus(f.Status),
			SourceRef:    f.SourceRef,
		})
	}

	if err := json.Unmarshal([]byte(committedJSON), &job.Committed); err != nil {
		return nil, fmt.Errorf("unmarshal committed: %w", err)
	}
	if err := json.Unmarshal([]byte(skippedJSON), &job.Skipped); err != nil {
		return nil, fmt.Errorf("unmarshal skipped: %w", err)
	}

	if job.StartedAt, err = parseTime(startedAt); err != nil {
		return nil, fmt.Errorf("parse started_at: %w", err)
	}
	if job.FinishedAt, err = parseTime(finishedAt); err != nil {
		return nil, fmt.Errorf("parse finished_at: %w", err)
	}

	return &job, nil
}

func marshalJobLists(job model.SyncJob) (files, committed, skipped string, err error) {
	rows := make([]fileRow, 0, len(job.Files))
	for _, f := range job.Files {
		rows = append(rows, fileRow{
			SourcePath:   f.SourcePath,
			PreviousPath: f.PreviousPath,
			Status:       string(f.Status),
			SourceRef:    f.SourceRef,
		})
	}

	b, err := json.Marshal(rows)
	if err != nil {
		return "", "", "", err
	}
	files = string(b)

	if committed, err = marshalStrings(job.Committed); err != nil {
		return "", "", "", err
	}
	if skipped, err = marshalStrings(job.Skipped); err != nil {
		return "", "", "", err
	}
	return files, committed, skipped, nil
}

func marshalStrings(v []string) (string, error) {
	if v == nil {
		v = []string{}
	}
	b, err := json.Marshal(v)
	return string(b), err
}

// formatTime stores times as RFC 3339 text in UTC; the zero time is stored empty.
func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

// parseTime tries multiple SQLite datetime formats. Empty text is the zero time.
func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}

	formats := []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05",
	}

	for _, format := range formats {
		if t, err := time.Parse(format, s); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("unrecognized time format: %s", s)
}
