package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"tenant-booking-api/internal/model"
)

func (s *Store) CreatePrincipal(ctx context.Context, p *model.Principal) error {
	err := s.pool.QueryRow(ctx,
		`INSERT INTO principals (uid, email, password_hash, role) VALUES ($1,$2,$3,$4)
		 RETURNING created_at`,
		p.UID, p.Email, p.PasswordHash, p.Role,
	).Scan(&p.CreatedAt)
	if isUniqueViolation(err) {
		return model.ErrEmailInUse
	}
	return err
}

func (s *Store) PrincipalByEmail(ctx context.Context, email string) (*model.Principal, error) {
	p := &model.Principal{}
	err := s.pool.QueryRow(ctx,
		`SELECT uid, email, password_hash, role, created_at
		 FROM principals WHERE email = $1`, email,
	).Scan(&p.UID, &p.Email, &p.PasswordHash, &p.Role, &p.CreatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return p, nil
}

// CreateProfile inserts a profile once; an existing uid yields model.ErrConflict.
func (s *Store) CreateProfile(ctx context.Context, p *model.UserProfile) error {
	tag, err := s.pool.Exec(ctx,
		`INSERT INTO users (uid, email, company_id, is_admin, is_profesional, first_name, last_name, phone, created_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		 ON CONFLICT (uid) DO NOTHING`,
		p.UID, p.Email, p.CompanyID, p.IsAdmin, p.IsProfesional, p.FirstName, p.LastName, p.Phone, p.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("create profile %s: %w", p.UID, err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrConflict
	}
	return nil
}

const profileColumns = `uid, email, company_id, is_admin, is_profesional, first_name, last_name, phone, created_at`

func scanProfile(row pgx.Row) (model.UserProfile, error) {
	var p model.UserProfile
	err := row.Scan(&p.UID, &p.Email, &p.CompanyID, &p.IsAdmin, &p.IsProfesional,
		&p.FirstName, &p.LastName, &p.Phone, &p.CreatedAt)
	return p, err
}

func (s *Store) GetProfile(ctx context.Context, uid string) (*model.UserProfile, error) {
	p, err := scanProfile(s.pool.QueryRow(ctx,
		`SELECT `+profileColumns+` FROM users WHERE uid = $1`, uid))
	if err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

func (s *Store) ProfilesByEmail(ctx context.Context, email string) ([]model.UserProfile, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+profileColumns+` FROM users WHERE email = $1 ORDER BY uid`, email)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.UserProfile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// ApplyProfessionalFlags commits all updates in one transaction.
func (s *Store) ApplyProfessionalFlags(ctx context.Context, updates []model.ProfileUpdate) error {
	if len(updates) > model.MaxBatchWrites {
		return fmt.Errorf("batch of %d exceeds %d writes", len(updates), model.MaxBatchWrites)
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for _, u := range updates {
		batch.Queue(
			`UPDATE users SET is_profesional = true, company_id = $2 WHERE uid = $1`,
			u.UID, u.CompanyID,
		)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
