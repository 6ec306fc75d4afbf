package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/tsuruyu/SimplyBeauty-IMS/pkg/domain"
)

const uniqueViolation = "23505"

const userColumns = `
	id, email, handle, full_name, brand_name, role,
	secret_hash, secret_history, secret_updated_at,
	failed_attempts, locked_until, last_login_at, last_attempt_at,
	question1, answer1_hash, question2, answer2_hash,
	created_at, updated_at`

// recordFailedAttemptSQL counts a failure and, on reaching the threshold ($2),
// locks the account until $4 and zeroes the counter, all in one statement.
// Rows that are locked at $3 do not match.
const recordFailedAttemptSQL = `
	UPDATE users
	SET failed_attempts = CASE
	        WHEN failed_attempts + 1 >= $2 THEN 0
	        ELSE failed_attempts + 1
	    END,
	    locked_until = CASE
	        WHEN failed_attempts + 1 >= $2 THEN $4
	        ELSE locked_until
	    END,
	    last_attempt_at = $3,
	    updated_at = $3
	WHERE id = $1 AND (locked_until IS NULL OR locked_until <= $3)
	RETURNING failed_attempts, locked_until`

// The secret updates only match while secret_hash still equals $2.
const (
	updateSecretSQL = `
	UPDATE users
	SET secret_hash = $3, secret_history = $4, secret_updated_at = $5, updated_at = $5
	WHERE id = $1 AND secret_hash = $2`

	updateSecretWithQuestionsSQL = `
	UPDATE users
	SET secret_hash = $3, secret_history = $4, secret_updated_at = $5, updated_at = $5,
	    question1 = $6, answer1_hash = $7, question2 = $8, answer2_hash = $9
	WHERE id = $1 AND secret_hash = $2`
)

// UsersRepository handles credential persistence in Postgres.
type UsersRepository struct {
	db *sql.DB
}

// NewUsersRepository creates a new users repository.
func NewUsersRepository(db *sql.DB) *UsersRepository {
	return &UsersRepository{db: db}
}

// Create inserts a new account.
func (r *UsersRepository) Create(ctx context.Context, c *domain.Credential) error {
	query := `
		INSERT INTO users (` + userColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
	`
	_, err := r.db.ExecContext(ctx, query,
		c.ID, c.Email, c.Handle, c.FullName, c.BrandName, c.Role.String(),
		c.SecretHash, pq.Array(c.SecretHistory.Hashes()), c.SecretUpdatedAt,
		c.FailedAttempts, c.LockedUntil, c.LastLoginAt, c.LastAttemptAt,
		c.SecurityQuestions[0].Question, c.SecurityQuestions[0].AnswerHash,
		c.SecurityQuestions[1].Question, c.SecurityQuestions[1].AnswerHash,
		c.CreatedAt, c.UpdatedAt,
	)
	return mapUniqueViolation(err)
}

// GetByID retrieves an account by ID.
func (r *UsersRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Credential, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanCredential(r.db.QueryRowContext(ctx, query, id))
}

// GetByIdentity retrieves an account by email (case-insensitive) or handle (exact).
func (r *UsersRepository) GetByIdentity(ctx context.Context, identity string) (*domain.Credential, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE lower(email) = lower($1) OR handle = $1 LIMIT 1`
	return scanCredential(r.db.QueryRowContext(ctx, query, strings.TrimSpace(identity)))
}

// List returns accounts ordered by creation time.
func (r *UsersRepository) List(ctx context.Context, limit int) ([]*domain.Credential, error) {
	query := `SELECT ` + userColumns + ` FROM users ORDER BY created_at ASC LIMIT $1`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Credential
	for rows.Next() {
		c, err := scanCredential(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// RecordFailedAttempt increments the failed-attempt counter in a single
// conditional update. Reaching threshold sets locked_until and zeroes the
// counter. Accounts that are currently locked are left untouched.
func (r *UsersRepository) RecordFailedAttempt(ctx context.Context, id uuid.UUID, now time.Time, threshold int, lockUntil time.Time) (domain.LockState, error) {
	var state domain.LockState
	err := r.db.QueryRowContext(ctx, recordFailedAttemptSQL, id, threshold, now, lockUntil).Scan(&state.FailedAttempts, &state.LockedUntil)
	if errors.Is(err, sql.ErrNoRows) {
		// Either the account vanished or another request locked it first.
		c, getErr := r.GetByID(ctx, id)
		if getErr != nil {
			return domain.LockState{}, getErr
		}
		return domain.LockState{FailedAttempts: c.FailedAttempts, LockedUntil: c.LockedUntil}, nil
	}
	if err != nil {
		return domain.LockState{}, err
	}
	state.NewlyLocked = state.LockedUntil != nil && state.LockedUntil.After(now)
	return state, nil
}

// RecordSuccess clears the counter and lock and stamps last_login_at.
// It returns the previous last_login_at.
func (r *UsersRepository) RecordSuccess(ctx context.Context, id uuid.UUID, now time.Time) (*time.Time, error) {
	var prev *time.Time
	err := Tx(ctx, r.db, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx, `SELECT last_login_at FROM users WHERE id = $1 FOR UPDATE`, id).Scan(&prev)
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrUnknownIdentity
		}
		if err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE users
			SET failed_attempts = 0,
			    locked_until = NULL,
			    last_login_at = $2,
			    last_attempt_at = $2,
			    updated_at = $2
			WHERE id = $1
		`, id, now)
		return err
	})
	if err != nil {
		return nil, err
	}
	return prev, nil
}

// UpdateSecret swaps the secret hash only if the stored hash still matches
// u.ExpectedHash, so concurrent changes cannot both succeed.
func (r *UsersRepository) UpdateSecret(ctx context.Context, u domain.SecretUpdate) error {
	var (
		result sql.Result
		err    error
	)
	if u.Questions == nil {
		result, err = r.db.ExecContext(ctx, updateSecretSQL, u.ID, u.ExpectedHash, u.NewHash, pq.Array(u.History.Hashes()), u.UpdatedAt)
	} else {
		q := u.Questions
		result, err = r.db.ExecContext(ctx, updateSecretWithQuestionsSQL, u.ID, u.ExpectedHash, u.NewHash, pq.Array(u.History.Hashes()), u.UpdatedAt,
			q[0].Question, q[0].AnswerHash, q[1].Question, q[1].AnswerHash)
	}
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrSecretConflict
	}
	return nil
}

// UpdateSecurityQuestions replaces both question slots.
func (r *UsersRepository) UpdateSecurityQuestions(ctx context.Context, id uuid.UUID, questions [2]domain.SecurityQuestion, now time.Time) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE users
		SET question1 = $2, answer1_hash = $3, question2 = $4, answer2_hash = $5, updated_at = $6
		WHERE id = $1
	`, id, questions[0].Question, questions[0].AnswerHash, questions[1].Question, questions[1].AnswerHash, now)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrUnknownIdentity
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCredential(row rowScanner) (*domain.Credential, error) {
	var (
		c       domain.Credential
		role    string
		history []string
	)
	err := row.Scan(
		&c.ID, &c.Email, &c.Handle, &c.FullName, &c.BrandName, &role,
		&c.SecretHash, pq.Array(&history), &c.SecretUpdatedAt,
		&c.FailedAttempts, &c.LockedUntil, &c.LastLoginAt, &c.LastAttemptAt,
		&c.SecurityQuestions[0].Question, &c.SecurityQuestions[0].AnswerHash,
		&c.SecurityQuestions[1].Question, &c.SecurityQuestions[1].AnswerHash,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrUnknownIdentity
	}
	if err != nil {
		return nil, err
	}

	// A corrupt role loads as RoleUnknown and is denied by the gate.
	c.Role, _ = domain.ParseRole(role)
	c.SecretHistory = domain.NewSecretHistory(history)
	return &c, nil
}

func mapUniqueViolation(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		if strings.Contains(pqErr.Constraint, "handle") {
			return domain.ErrHandleAlreadyTaken
		}
		return domain.ErrUserAlreadyExists
	}
	return err
}
