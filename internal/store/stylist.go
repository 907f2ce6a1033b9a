package store

import (
	"context"

	"github.com/jackc/pgx/v5"

	"tenant-booking-api/internal/model"
)

const stylistColumns = `id, email, company_id, name, specialties, updated_at`

func scanStylist(row pgx.Row) (model.Professional, error) {
	var p model.Professional
	err := row.Scan(&p.ID, &p.Email, &p.CompanyID, &p.Name, &p.Specialties, &p.UpdatedAt)
	return p, err
}

func (s *Store) queryStylists(ctx context.Context, q string, args ...any) ([]model.Professional, error) {
	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Professional
	for rows.Next() {
		p, err := scanStylist(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// ProfessionalsByEmail orders by id, which is the tie-break for duplicates.
func (s *Store) ProfessionalsByEmail(ctx context.Context, email string) ([]model.Professional, error) {
	return s.queryStylists(ctx,
		`SELECT `+stylistColumns+` FROM stylists WHERE email = $1 ORDER BY id`, email)
}

func (s *Store) ListProfessionals(ctx context.Context) ([]model.Professional, error) {
	return s.queryStylists(ctx, `SELECT `+stylistColumns+` FROM stylists ORDER BY id`)
}

func (s *Store) GetProfessional(ctx context.Context, id string) (*model.Professional, error) {
	p, err := scanStylist(s.pool.QueryRow(ctx,
		`SELECT `+stylistColumns+` FROM stylists WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}
