package store

import (
	"context"
	"fmt"

	"tenant-booking-api/internal/model"
)

// RelayChangeEvents claims up to limit change events in id order, hands each
// to fn and deletes the ones fn accepted. Rows are claimed with SKIP LOCKED so
// concurrent relays never deliver the same event twice. The first fn error
// stops the batch; accepted events before it are still removed.
func (s *Store) RelayChangeEvents(ctx context.Context, limit int, fn func(model.ChangeEvent) error) (int, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	rows, err := tx.Query(ctx,
		`SELECT id, collection, doc_id, op, created_at
		 FROM change_events
		 ORDER BY id
		 LIMIT $1
		 FOR UPDATE SKIP LOCKED`, limit,
	)
	if err != nil {
		return 0, fmt.Errorf("claim change events: %w", err)
	}
	var events []model.ChangeEvent
	for rows.Next() {
		var e model.ChangeEvent
		if err := rows.Scan(&e.ID, &e.Collection, &e.DocID, &e.Op, &e.CreatedAt); err != nil {
			rows.Close()
			return 0, err
		}
		events = append(events, e)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}

	var (
		done  []int64
		fnErr error
	)
	for _, e := range events {
		if fnErr = fn(e); fnErr != nil {
			break
		}
		done = append(done, e.ID)
	}

	if len(done) > 0 {
		if _, err := tx.Exec(ctx, `DELETE FROM change_events WHERE id = ANY($1)`, done); err != nil {
			return 0, fmt.Errorf("delete relayed events: %w", err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return len(done), fnErr
}
