package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"tenant-booking-api/internal/model"
)

const appointmentColumns = `id, company_id, client_email, stylist_email, service_name,
	stylist_name, stylist_id, datetime, COALESCE(reminder_sent, false), created_at`

func scanAppointment(row pgx.Row) (model.Appointment, error) {
	var a model.Appointment
	err := row.Scan(&a.ID, &a.CompanyID, &a.ClientEmail, &a.StylistEmail, &a.ServiceName,
		&a.StylistName, &a.StylistID, &a.Datetime, &a.ReminderSent, &a.CreatedAt)
	return a, err
}

func (s *Store) GetAppointment(ctx context.Context, id string) (*model.Appointment, error) {
	a, err := scanAppointment(s.pool.QueryRow(ctx,
		`SELECT `+appointmentColumns+` FROM appointments WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err)
	}
	return &a, nil
}

// DueReminders returns appointments in [from, to) whose reminder flag is unset
// or false, ordered by datetime.
func (s *Store) DueReminders(ctx context.Context, from, to time.Time) ([]model.Appointment, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+appointmentColumns+`
		 FROM appointments
		 WHERE datetime >= $1 AND datetime < $2
		   AND reminder_sent IS DISTINCT FROM true
		 ORDER BY datetime, id`, from, to,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// MarkRemindersSent flips reminder_sent for ids in a single transaction.
func (s *Store) MarkRemindersSent(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	if len(ids) > model.MaxBatchWrites {
		return fmt.Errorf("batch of %d exceeds %d writes", len(ids), model.MaxBatchWrites)
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`UPDATE appointments SET reminder_sent = true WHERE id = ANY($1)`, ids,
	); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// PutAppointment upserts a; used by seeding and tests.
func (s *Store) PutAppointment(ctx context.Context, a *model.Appointment) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO appointments (id, company_id, client_email, stylist_email, service_name,
		                           stylist_name, stylist_id, datetime)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		 ON CONFLICT (id) DO UPDATE SET
		   company_id = EXCLUDED.company_id, client_email = EXCLUDED.client_email,
		   stylist_email = EXCLUDED.stylist_email, service_name = EXCLUDED.service_name,
		   stylist_name = EXCLUDED.stylist_name, stylist_id = EXCLUDED.stylist_id,
		   datetime = EXCLUDED.datetime`,
		a.ID, a.CompanyID, a.ClientEmail, a.StylistEmail, a.ServiceName,
		a.StylistName, a.StylistID, a.Datetime,
	)
	return err
}
