package job

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/conformadev/conforma/internal/analysis"
	"github.com/conformadev/conforma/internal/db"
)

// nonTerminal is the SQL guard keeping terminal states immutable.
const nonTerminal = "status NOT IN ('completed','failed','cancelled')"

// Store persists jobs in SQLite. All status writes funnel through it so the
// state machine has a single writer and terminal states stay frozen.
type Store struct {
	db *db.DB
}

// NewStore creates a Store backed by the given database.
func NewStore(database *db.DB) *Store {
	return &Store{db: database}
}

// Create inserts a new job record.
func (s *Store) Create(ctx context.Context, j *Job) error {
	codes, err := json.Marshal(j.NormCodes)
	if err != nil {
		return fmt.Errorf("marshalling norm codes: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO jobs (id, status, progress, strategy, document_type, norm_codes)
		VALUES (?, ?, ?, ?, ?, ?)`,
		j.ID, string(j.Status), j.Progress, string(j.Strategy), string(j.DocumentType), string(codes))
	if err != nil {
		return fmt.Errorf("inserting job: %w", err)
	}
	return nil
}

// Get returns a job by ID.
func (s *Store) Get(ctx context.Context, id string) (*Job, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, status, progress, strategy, document_type, norm_codes,
		       error_detail, created_at, started_at, completed_at
		FROM jobs WHERE id = ?`, id)

	var (
		j                                Job
		status, strategy, docType, codes string
		createdAt                        string
		startedAt, completedAt           sql.NullString
	)
	err := row.Scan(&j.ID, &status, &j.Progress, &strategy, &docType, &codes,
		&j.ErrorDetail, &createdAt, &startedAt, &completedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading job: %w", err)
	}

	j.Status = Status(status)
	j.Strategy = Strategy(strategy)
	j.DocumentType = analysis.DocumentType(docType)
	if err := json.Unmarshal([]byte(codes), &j.NormCodes); err != nil {
		j.NormCodes = nil
	}
	j.CreatedAt = parseTime(createdAt)
	if startedAt.Valid {
		t := parseTime(startedAt.String)
		j.StartedAt = &t
	}
	if completedAt.Valid {
		t := parseTime(completedAt.String)
		j.CompletedAt = &t
	}
	return &j, nil
}

// MarkStarted records the job's start time.
func (s *Store) MarkStarted(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE jobs SET started_at = ? WHERE id = ? AND started_at IS NULL",
		now(), id)
	if err != nil {
		return fmt.Errorf("marking job started: %w", err)
	}
	return nil
}

// UpdateProgress advances a running job. Progress is monotonic (MAX of the
// stored and the new value) and terminal states are never touched. Returns
// whether a row was updated.
func (s *Store) UpdateProgress(ctx context.Context, id string, status Status, progress int) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		"UPDATE jobs SET status = ?, progress = MAX(progress, ?) WHERE id = ? AND "+nonTerminal,
		string(status), progress, id)
	if err != nil {
		return false, fmt.Errorf("updating job progress: %w", err)
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// Complete finalizes a job with its serialized result.
func (s *Store) Complete(ctx context.Context, id, resultJSON string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE jobs SET status = ?, progress = ?, result = ?, completed_at = ?
		WHERE id = ? AND `+nonTerminal,
		string(StatusCompleted), progressDone, resultJSON, now(), id)
	if err != nil {
		return false, fmt.Errorf("completing job: %w", err)
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// Fail moves a job to failed with a human-readable cause.
func (s *Store) Fail(ctx context.Context, id, detail string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE jobs SET status = ?, error_detail = ?, completed_at = ?
		WHERE id = ? AND `+nonTerminal,
		string(StatusFailed), detail, now(), id)
	if err != nil {
		return false, fmt.Errorf("failing job: %w", err)
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// Cancel moves a non-terminal job to cancelled. Cancelling a completed job
// is a hard error; cancelling an already failed or cancelled job is a no-op.
func (s *Store) Cancel(ctx context.Context, id string) error {
	j, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if j.Status == StatusCompleted {
		return ErrAlreadyCompleted
	}
	if j.Status.Terminal() {
		return nil
	}
	_, err = s.db.ExecContext(ctx,
		"UPDATE jobs SET status = ?, completed_at = ? WHERE id = ? AND "+nonTerminal,
		string(StatusCancelled), now(), id)
	if err != nil {
		return fmt.Errorf("cancelling job: %w", err)
	}
	return nil
}

// Result returns the serialized result of a completed job.
func (s *Store) Result(ctx context.Context, id string) (*analysis.Result, error) {
	var raw sql.NullString
	row := s.db.QueryRowContext(ctx, "SELECT result FROM jobs WHERE id = ?", id)
	if err := row.Scan(&raw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrJobNotFound
		}
		return nil, fmt.Errorf("reading job result: %w", err)
	}
	if !raw.Valid || raw.String == "" {
		return nil, fmt.Errorf("job %s has no result", id)
	}
	var result analysis.Result
	if err := json.Unmarshal([]byte(raw.String), &result); err != nil {
		return nil, fmt.Errorf("decoding job result: %w", err)
	}
	return &result, nil
}

func now() string {
	return time.Now().UTC().Format(time.DateTime)
}

func parseTime(s string) time.Time {
	if t, err := time.Parse(time.DateTime, s); err == nil {
		return t
	}
	t, _ := time.Parse(time.RFC3339, s)
	return t
}
