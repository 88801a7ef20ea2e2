package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"sonic/internal/model"
)

type DraftRepository struct {
	db *pgxpool.Pool
}

func NewDraftRepository(db *pgxpool.Pool) *DraftRepository {
	return &DraftRepository{db: db}
}

// Upsert saves draft content for a contact, overwriting any previous
// content on the unique email key.
func (r *DraftRepository) Upsert(ctx context.Context, email, content string) error {
	query := `
        INSERT INTO drafts (email, draft, updated_at)
        VALUES ($1, $2, NOW())
        ON CONFLICT (email) DO UPDATE SET draft = EXCLUDED.draft, updated_at = NOW()
    `
	_, err := r.db.Exec(ctx, query, email, content)
	return err
}

// FindByEmail returns the draft for a contact, if any.
func (r *DraftRepository) FindByEmail(ctx context.Context, email string) (*model.Draft, error) {
	var d model.Draft
	err := r.db.QueryRow(ctx,
		`SELECT email, draft, updated_at FROM drafts WHERE email = $1`,
		email,
	).Scan(&d.Email, &d.Draft, &d.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// ListAll returns every stored draft, keyed for the backlog table's
// drafted-contact indicator.
func (r *DraftRepository) ListAll(ctx context.Context) ([]model.Draft, error) {
	rows, err := r.db.Query(ctx, `SELECT email, draft, updated_at FROM drafts`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	drafts := []model.Draft{}
	for rows.Next() {
		var d model.Draft
		if err := rows.Scan(&d.Email, &d.Draft, &d.UpdatedAt); err != nil {
			return nil, err
		}
		drafts = append(drafts, d)
	}
	return drafts, rows.Err()
}
