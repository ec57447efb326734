package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/cuongbtq/interpreter-booking/internal/domain"
)

const jobColumns = `
	j.id, j.user_id, j.from_language_id, j.immediate, j.due, j.duration,
	j.gender, j.certified, j.job_type, j.customer_phone_type, j.customer_physical_type,
	j.status, j.admin_comments, j.reference, j.user_email, j.address, j.instructions,
	j.town, j.by_admin, j.session_time, j.end_at, j.withdraw_at, j.will_expire_at,
	j.email_sent, j.partner_email_sent, j.created_at, j.updated_at,
	COALESCE(ARRAY(SELECT r.translator_id FROM job_reservations r WHERE r.job_id = j.id ORDER BY r.translator_id), '{}') AS reserved_for
`

// jobRow adds the aggregated reservation list to the job columns
type jobRow struct {
	domain.Job
	ReservedFor pq.Int64Array `db:"reserved_for"`
}

func (r *jobRow) toDomain() *domain.Job {
	job := r.Job
	job.ReservedFor = []int64(r.ReservedFor)
	return &job
}

func rowsToJobs(rows []jobRow) []*domain.Job {
	jobs := make([]*domain.Job, 0, len(rows))
	for i := range rows {
		jobs = append(jobs, rows[i].toDomain())
	}
	return jobs
}

// FindJob loads a job by id
func (s *Storage) FindJob(ctx context.Context, id int64) (*domain.Job, error) {
	var row jobRow
	query := `SELECT ` + jobColumns + ` FROM jobs j WHERE j.id = $1`

	if err := s.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NewNotFound("job", id)
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return row.toDomain(), nil
}

// CreateJob inserts the job and its reservations and sets job.ID
func (s *Storage) CreateJob(ctx context.Context, job *domain.Job) error {
	query := `
		INSERT INTO jobs (
			user_id, from_language_id, immediate, due, duration,
			gender, certified, job_type, customer_phone_type, customer_physical_type,
			status, admin_comments, reference, user_email, address, instructions,
			town, by_admin, session_time, will_expire_at, created_at, updated_at
		) VALUES (
			:user_id, :from_language_id, :immediate, :due, :duration,
			:gender, :certified, :job_type, :customer_phone_type, :customer_physical_type,
			:status, :admin_comments, :reference, :user_email, :address, :instructions,
			:town, :by_admin, :session_time, :will_expire_at, :created_at, :updated_at
		)
		RETURNING id
	`

	return s.pg.InTx(ctx, func(tx *sqlx.Tx) error {
		stmt, err := tx.PrepareNamedContext(ctx, query)
		if err != nil {
			return fmt.Errorf("failed to prepare job insert: %w", err)
		}
		defer stmt.Close()

		if err := stmt.GetContext(ctx, &job.ID, job); err != nil {
			return fmt.Errorf("failed to create job: %w", err)
		}

		for _, translatorID := range job.ReservedFor {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO job_reservations (job_id, translator_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
				job.ID, translatorID,
			); err != nil {
				return fmt.Errorf("failed to reserve job for translator %d: %w", translatorID, err)
			}
		}
		return nil
	})
}

const updateJobQuery = `
	UPDATE jobs SET
		from_language_id = :from_language_id,
		due = :due,
		status = :status,
		admin_comments = :admin_comments,
		reference = :reference,
		session_time = :session_time,
		end_at = :end_at,
		withdraw_at = :withdraw_at,
		will_expire_at = :will_expire_at,
		email_sent = :email_sent,
		partner_email_sent = :partner_email_sent,
		created_at = :created_at,
		updated_at = :updated_at
	WHERE id = :id AND status = :expected_status
`

// savedJob binds the status the caller read alongside the new column values
type savedJob struct {
	domain.Job
	ExpectedStatus domain.JobStatus `db:"expected_status"`
}

// saveJob writes the mutable job columns if the stored status is still from.
func saveJob(ctx context.Context, ext sqlx.ExtContext, job *domain.Job, from domain.JobStatus) error {
	res, err := sqlx.NamedExecContext(ctx, ext, updateJobQuery, savedJob{Job: *job, ExpectedStatus: from})
	if err != nil {
		return fmt.Errorf("failed to save job: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows > 0 {
		return nil
	}

	var exists bool
	if err := sqlx.GetContext(ctx, ext, &exists, `SELECT EXISTS (SELECT 1 FROM jobs WHERE id = $1)`, job.ID); err != nil {
		return fmt.Errorf("failed to check job: %w", err)
	}
	if !exists {
		return domain.NewNotFound("job", job.ID)
	}
	return domain.NewConflict(domain.ErrJobChanged, "the booking was changed by someone else, please reload it and try again")
}

// ActiveAssignment returns the assignment with no cancel_at, or nil
func (s *Storage) ActiveAssignment(ctx context.Context, jobID int64) (*domain.Assignment, error) {
	var a domain.Assignment
	query := `
		SELECT id, job_id, user_id, created_at, cancel_at, completed_at, completed_by
		FROM translator_job_rel
		WHERE job_id = $1 AND cancel_at IS NULL
	`

	if err := s.db.GetContext(ctx, &a, query, jobID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get active assignment: %w", err)
	}
	return &a, nil
}

// Assignments returns the full assignment history of a job, oldest first
func (s *Storage) Assignments(ctx context.Context, jobID int64) ([]domain.Assignment, error) {
	var out []domain.Assignment
	query := `
		SELECT id, job_id, user_id, created_at, cancel_at, completed_at, completed_by
		FROM translator_job_rel
		WHERE job_id = $1
		ORDER BY id
	`
	if err := s.db.SelectContext(ctx, &out, query, jobID); err != nil {
		return nil, fmt.Errorf("failed to list assignments: %w", err)
	}
	return out, nil
}

func insertAssignment(ctx context.Context, tx *sqlx.Tx, jobID, translatorID int64, at time.Time) (*domain.Assignment, error) {
	a := domain.Assignment{JobID: jobID, TranslatorID: translatorID, CreatedAt: at}
	err := tx.QueryRowxContext(ctx,
		`INSERT INTO translator_job_rel (job_id, user_id, created_at) VALUES ($1, $2, $3) RETURNING id`,
		jobID, translatorID, at,
	).Scan(&a.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, domain.ErrJobTaken
		}
		return nil, fmt.Errorf("failed to create assignment: %w", err)
	}
	return &a, nil
}

// lockTranslatorQuery serializes accepts by the same translator. NO KEY UPDATE
// still lets other transactions insert assignments referencing the row.
const lockTranslatorQuery = `SELECT id FROM users WHERE id = $1 AND role = 'translator' FOR NO KEY UPDATE`

// busyQuery reports whether the translator holds another active booking at the target's due time
const busyQuery = `
	SELECT EXISTS (
		SELECT 1
		FROM translator_job_rel r
		JOIN jobs j ON j.id = r.job_id
		JOIN jobs target ON target.id = $1
		WHERE r.user_id = $2
		  AND r.cancel_at IS NULL
		  AND r.job_id <> $1
		  AND j.due = target.due
	)
`

// AcceptJob assigns a pending job in one transaction. The translator row lock
// makes the busy check and the insert atomic per translator. The conditional
// status update serializes concurrent accepts on the job row; the partial
// unique index on active assignments backs it up.
func (s *Storage) AcceptJob(ctx context.Context, jobID, translatorID int64, at time.Time) (*domain.Assignment, error) {
	var assignment *domain.Assignment

	err := s.pg.InTx(ctx, func(tx *sqlx.Tx) error {
		var locked int64
		if err := tx.GetContext(ctx, &locked, lockTranslatorQuery, translatorID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return domain.NewNotFound("translator", translatorID)
			}
			return fmt.Errorf("failed to lock translator: %w", err)
		}

		var busy bool
		if err := tx.GetContext(ctx, &busy, busyQuery, jobID, translatorID); err != nil {
			return fmt.Errorf("failed to check translator bookings: %w", err)
		}
		if busy {
			return domain.ErrTranslatorBusy
		}

		res, err := tx.ExecContext(ctx,
			`UPDATE jobs SET status = $1, updated_at = $2 WHERE id = $3 AND status = $4`,
			domain.JobStatusAssigned, at, jobID, domain.JobStatusPending,
		)
		if err != nil {
			return fmt.Errorf("failed to claim job: %w", err)
		}
		rows, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if rows == 0 {
			var exists bool
			if err := tx.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM jobs WHERE id = $1)`, jobID); err != nil {
				return fmt.Errorf("failed to check job: %w", err)
			}
			if !exists {
				return domain.NewNotFound("job", jobID)
			}
			return domain.ErrJobTaken
		}

		assignment, err = insertAssignment(ctx, tx, jobID, translatorID, at)
		return err
	})
	if err != nil {
		if errors.Is(err, domain.ErrJobTaken) {
			s.logger.WarnContext(ctx, "Failed to accept job - already taken",
				slog.Int64("job_id", jobID),
				slog.Int64("translator_id", translatorID),
			)
		}
		return nil, err
	}

	s.logger.InfoContext(ctx, "Job assignment created",
		slog.Int64("job_id", jobID),
		slog.Int64("translator_id", translatorID),
		slog.Int64("assignment_id", assignment.ID),
	)
	return assignment, nil
}

// ApplyUpdate persists an update plan atomically
func (s *Storage) ApplyUpdate(ctx context.Context, u domain.JobUpdate) error {
	return s.pg.InTx(ctx, func(tx *sqlx.Tx) error {
		if err := saveJob(ctx, tx, u.Job, u.From); err != nil {
			return err
		}

		if u.CancelAssignmentID != 0 {
			if _, err := tx.ExecContext(ctx,
				`UPDATE translator_job_rel SET cancel_at = $1 WHERE id = $2 AND cancel_at IS NULL`,
				u.At, u.CancelAssignmentID,
			); err != nil {
				return fmt.Errorf("failed to cancel assignment: %w", err)
			}
		}

		complete := u.CompleteAssignmentID
		if u.NewTranslatorID != 0 {
			created, err := insertAssignment(ctx, tx, u.Job.ID, u.NewTranslatorID, u.At)
			if err != nil {
				return err
			}
			if u.CompleteNew {
				complete = created.ID
			}
		}

		if complete != 0 {
			if _, err := tx.ExecContext(ctx,
				`UPDATE translator_job_rel SET completed_at = $1, completed_by = $2 WHERE id = $3`,
				u.At, u.CompletedBy, complete,
			); err != nil {
				return fmt.Errorf("failed to complete assignment: %w", err)
			}
		}
		return nil
	})
}

// ReleaseJob saves the job, if still in status from, and deletes the assignment row
func (s *Storage) ReleaseJob(ctx context.Context, job *domain.Job, from domain.JobStatus, assignmentID int64) error {
	return s.pg.InTx(ctx, func(tx *sqlx.Tx) error {
		if err := saveJob(ctx, tx, job, from); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM translator_job_rel WHERE id = $1`, assignmentID); err != nil {
			return fmt.Errorf("failed to delete assignment: %w", err)
		}
		return nil
	})
}

// ListOpenJobs returns future pending jobs of the type in any of the languages
func (s *Storage) ListOpenJobs(ctx context.Context, jobType domain.JobType, languageIDs []int64) ([]*domain.Job, error) {
	var rows []jobRow
	query := `
		SELECT ` + jobColumns + `
		FROM jobs j
		WHERE j.status = $1
		  AND j.job_type = $2
		  AND j.from_language_id = ANY($3)
		  AND j.due > NOW()
		ORDER BY j.due ASC
	`
	if err := s.db.SelectContext(ctx, &rows, query, domain.JobStatusPending, jobType, pq.Array(languageIDs)); err != nil {
		return nil, fmt.Errorf("failed to list open jobs: %w", err)
	}
	return rowsToJobs(rows), nil
}

// JobFilter narrows a booking listing
type JobFilter struct {
	CustomerID int64
	Status     string
	JobType    string
	PageSize   int
	Cursor     *JobCursor
}

// JobCursor is the keyset position of the last row of the previous page
type JobCursor struct {
	CreatedAt time.Time
	ID        int64
}

// ListJobs returns up to PageSize+1 jobs, newest first
func (s *Storage) ListJobs(ctx context.Context, filter JobFilter) ([]*domain.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs j WHERE 1=1`
	args := []interface{}{}
	argIdx := 1

	if filter.CustomerID != 0 {
		query += fmt.Sprintf(" AND j.user_id = $%d", argIdx)
		args = append(args, filter.CustomerID)
		argIdx++
	}

	if filter.Status != "" {
		query += fmt.Sprintf(" AND j.status = $%d", argIdx)
		args = append(args, filter.Status)
		argIdx++
	}

	if filter.JobType != "" {
		query += fmt.Sprintf(" AND j.job_type = $%d", argIdx)
		args = append(args, filter.JobType)
		argIdx++
	}

	if filter.Cursor != nil {
		query += fmt.Sprintf(" AND (j.created_at, j.id) < ($%d, $%d)", argIdx, argIdx+1)
		args = append(args, filter.Cursor.CreatedAt, filter.Cursor.ID)
		argIdx += 2
	}

	query += " ORDER BY j.created_at DESC, j.id DESC"

	// one extra row tells the caller whether another page exists
	query += fmt.Sprintf(" LIMIT $%d", argIdx)
	args = append(args, filter.PageSize+1)

	var rows []jobRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	return rowsToJobs(rows), nil
}
