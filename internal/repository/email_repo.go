package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"sonic/internal/model"
	"sonic/pkg/metrics"
)

// ErrNotPending is returned when a mutation targets a row that is not (or
// no longer) in the PENDING status.
var ErrNotPending = errors.New("email is not pending")

type EmailRepository struct {
	db *pgxpool.Pool
}

func NewEmailRepository(db *pgxpool.Pool) *EmailRepository {
	return &EmailRepository{db: db}
}

// Create inserts an outgoing email row.
func (r *EmailRepository) Create(ctx context.Context, e *model.Email) (int, error) {
	query := `
        INSERT INTO emails (name, email, subject, content, status, trigger_id, send_at, sent_at, lab_url, university, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW())
        RETURNING id
    `
	var id int
	err := r.db.QueryRow(ctx, query,
		e.Name,
		e.Email,
		e.Subject,
		e.Content,
		e.Status,
		e.TriggerID,
		e.SendAt,
		e.SentAt,
		e.LabURL,
		e.University,
	).Scan(&id)
	return id, err
}

// FindByTriggerID returns the email row holding the given trigger handle.
func (r *EmailRepository) FindByTriggerID(ctx context.Context, triggerID string) (*model.Email, error) {
	query := `
        SELECT id, name, email, subject, content, status, trigger_id, created_at, send_at, sent_at, lab_url, university
        FROM emails
        WHERE trigger_id = $1
    `
	var e model.Email
	err := r.db.QueryRow(ctx, query, triggerID).Scan(
		&e.ID,
		&e.Name,
		&e.Email,
		&e.Subject,
		&e.Content,
		&e.Status,
		&e.TriggerID,
		&e.CreatedAt,
		&e.SendAt,
		&e.SentAt,
		&e.LabURL,
		&e.University,
	)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// ListByStatus returns all emails in a given status, newest first.
func (r *EmailRepository) ListByStatus(ctx context.Context, status model.EmailStatus) ([]model.Email, error) {
	query := `
        SELECT id, name, email, subject, content, status, trigger_id, created_at, send_at, sent_at, lab_url, university
        FROM emails
        WHERE status = $1
        ORDER BY created_at DESC
    `
	start := time.Now()
	rows, err := r.db.Query(ctx, query, status)
	metrics.RecordDBQueryDuration("select", "emails", time.Since(start))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	emails := []model.Email{}
	for rows.Next() {
		var e model.Email
		err := rows.Scan(
			&e.ID,
			&e.Name,
			&e.Email,
			&e.Subject,
			&e.Content,
			&e.Status,
			&e.TriggerID,
			&e.CreatedAt,
			&e.SendAt,
			&e.SentAt,
			&e.LabURL,
			&e.University,
		)
		if err != nil {
			return nil, err
		}
		emails = append(emails, e)
	}
	return emails, rows.Err()
}

// CountByStatus returns the number of rows in a given status.
func (r *EmailRepository) CountByStatus(ctx context.Context, status model.EmailStatus) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM emails WHERE status = $1`, status).Scan(&count)
	return count, err
}

// UpdateContent rewrites recipient, subject and body of a PENDING row.
// send_at is deliberately untouched. Targeting a non-PENDING row is
// ErrNotPending.
func (r *EmailRepository) UpdateContent(ctx context.Context, triggerID, recipient, subject, content string) error {
	query := `
        UPDATE emails
        SET email = $1, subject = $2, content = $3
        WHERE trigger_id = $4 AND status = $5
    `
	tag, err := r.db.Exec(ctx, query, recipient, subject, content, triggerID, model.EmailStatusPending)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotPending
	}
	return nil
}

// MarkCompleted transitions a PENDING row to COMPLETED, recording the
// actual send time.
func (r *EmailRepository) MarkCompleted(ctx context.Context, triggerID string, sentAt time.Time) error {
	query := `
        UPDATE emails
        SET status = $1, sent_at = $2
        WHERE trigger_id = $3 AND status = $4
    `
	tag, err := r.db.Exec(ctx, query, model.EmailStatusCompleted, sentAt, triggerID, model.EmailStatusPending)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotPending
	}
	return nil
}

// DeleteByTriggerID removes a PENDING row on cancel.
func (r *EmailRepository) DeleteByTriggerID(ctx context.Context, triggerID string) error {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM emails WHERE trigger_id = $1 AND status = $2`,
		triggerID, model.EmailStatusPending,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotPending
	}
	return nil
}

// ListActivity returns every row's creation timestamp, status and
// university for the dashboard aggregator.
func (r *EmailRepository) ListActivity(ctx context.Context) ([]model.Email, error) {
	start := time.Now()
	rows, err := r.db.Query(ctx, `SELECT created_at, status, university FROM emails`)
	metrics.RecordDBQueryDuration("select", "emails", time.Since(start))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	emails := []model.Email{}
	for rows.Next() {
		var e model.Email
		if err := rows.Scan(&e.CreatedAt, &e.Status, &e.University); err != nil {
			return nil, err
		}
		emails = append(emails, e)
	}
	return emails, rows.Err()
}

// IsNoRows reports whether err is the pgx no-rows sentinel.
func IsNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
