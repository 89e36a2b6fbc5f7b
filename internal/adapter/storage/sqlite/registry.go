package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"mediabot/internal/domain"
	"mediabot/internal/port"
)

type Registry struct {
	db *sql.DB
}

func NewRegistry(store *Store) *Registry {
	return &Registry{db: store.db}
}

func (r *Registry) Create(j *domain.Job) error {
	params, err := json.Marshal(j.Op)
	if err != nil {
		return fmt.Errorf("encode operation: %w", err)
	}

	_, err = r.db.Exec(`
		INSERT INTO jobs (id, user_ref, op_kind, op_params, input_path, input_size, input_digest, state, error_message, created_at, deadline)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		j.ID, j.UserRef, string(j.Op.Kind), string(params),
		j.Input.Path, j.Input.Size, j.Input.Digest,
		string(j.State), j.ErrorMessage, j.CreatedAt, j.Deadline,
	)
	if err != nil {
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

func (r *Registry) Transition(id string, to domain.JobState, errMsg string) error {
	now := time.Now()

	var res sql.Result
	var err error
	switch {
	case to == domain.JobStateRunning:
		res, err = r.db.Exec(
			`UPDATE jobs SET state = ?, error_message = ?, started_at = ? WHERE id = ?`,
			string(to), errMsg, now, id,
		)
	case to.Terminal():
		res, err = r.db.Exec(
			`UPDATE jobs SET state = ?, error_message = ?, completed_at = ? WHERE id = ?`,
			string(to), errMsg, now, id,
		)
	default:
		res, err = r.db.Exec(
			`UPDATE jobs SET state = ?, error_message = ? WHERE id = ?`,
			string(to), errMsg, id,
		)
	}
	if err != nil {
		return fmt.Errorf("update job state: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *Registry) SetOutput(id, outputPath string) error {
	_, err := r.db.Exec(`UPDATE jobs SET output_path = ? WHERE id = ?`, outputPath, id)
	if err != nil {
		return fmt.Errorf("update job output: %w", err)
	}
	return nil
}

const jobColumns = `id, user_ref, op_kind, op_params, input_path, input_size, input_digest, output_path, state, error_message, created_at, deadline, started_at, completed_at`

func (r *Registry) Get(id string) (*domain.Job, error) {
	row := r.db.QueryRow(`SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id)
	job, err := scanJob(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return job, nil
}

func (r *Registry) Snapshot(limit int) ([]*domain.Job, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.Query(`SELECT `+jobColumns+` FROM jobs ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query jobs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var jobs []*domain.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

func (r *Registry) ResetStalled() error {
	_, err := r.db.Exec(`
		UPDATE jobs SET state = ?, error_message = 'interrupted by restart', completed_at = ?
		WHERE state IN (?, ?, ?)`,
		string(domain.JobStateFailed), time.Now(),
		string(domain.JobStatePending), string(domain.JobStateAdmitted), string(domain.JobStateRunning),
	)
	if err != nil {
		return fmt.Errorf("reset stalled jobs: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*domain.Job, error) {
	var j domain.Job
	var opKind, opParams string
	err := row.Scan(
		&j.ID, &j.UserRef, &opKind, &opParams,
		&j.Input.Path, &j.Input.Size, &j.Input.Digest,
		&j.OutputPath, (*string)(&j.State), &j.ErrorMessage,
		&j.CreatedAt, &j.Deadline, &j.StartedAt, &j.CompletedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(opParams), &j.Op); err != nil {
		return nil, fmt.Errorf("decode operation for job %s: %w", j.ID, err)
	}
	j.Op.Kind = domain.OpKind(opKind)
	j.Input.JobID = j.ID
	return &j, nil
}

var _ port.JobRegistry = (*Registry)(nil)
