package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"sonic/internal/model"
)

type SettingsRepository struct {
	db *pgxpool.Pool
}

func NewSettingsRepository(db *pgxpool.Pool) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// Find returns the singleton settings row keyed by the account email.
func (r *SettingsRepository) Find(ctx context.Context, accountEmail string) (*model.Settings, error) {
	var s model.Settings
	err := r.db.QueryRow(ctx,
		`SELECT email, template, subject FROM global WHERE email = $1`,
		accountEmail,
	).Scan(&s.Email, &s.Template, &s.Subject)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// Save upserts the singleton settings row.
func (r *SettingsRepository) Save(ctx context.Context, s *model.Settings) error {
	query := `
        INSERT INTO global (email, template, subject)
        VALUES ($1, $2, $3)
        ON CONFLICT (email) DO UPDATE SET template = EXCLUDED.template, subject = EXCLUDED.subject
    `
	_, err := r.db.Exec(ctx, query, s.Email, s.Template, s.Subject)
	return err
}
