package feed

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"tenant-booking-api/internal/model"
)

// Outbox hands out pending change events; see store.RelayChangeEvents.
type Outbox interface {
	RelayChangeEvents(ctx context.Context, limit int, fn func(model.ChangeEvent) error) (int, error)
}

type Publisher interface {
	Publish(ctx context.Context, subject string, data []byte) error
}

// Relay moves change events from the outbox to the broker. An event leaves
// the outbox only after its publish succeeded, so delivery is at-least-once.
type Relay struct {
	outbox   Outbox
	pub      Publisher
	interval time.Duration
	batch    int
	log      *zap.Logger
}

func NewRelay(outbox Outbox, pub Publisher, interval time.Duration, batch int, log *zap.Logger) *Relay {
	if batch <= 0 {
		batch = 100
	}
	if interval <= 0 {
		interval = time.Second
	}
	return &Relay{outbox: outbox, pub: pub, interval: interval, batch: batch, log: log}
}

// Drain relays until the outbox is empty or an error occurs.
func (r *Relay) Drain(ctx context.Context) (int, error) {
	total := 0
	for {
		n, err := r.outbox.RelayChangeEvents(ctx, r.batch, func(e model.ChangeEvent) error {
			data, err := json.Marshal(e)
			if err != nil {
				return err
			}
			return r.pub.Publish(ctx, Subject(e.Collection, e.Op), data)
		})
		total += n
		if err != nil {
			return total, err
		}
		if n < r.batch {
			return total, nil
		}
	}
}

// Run drains the outbox every interval until ctx is cancelled.
func (r *Relay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			n, err := r.Drain(ctx)
			if err != nil {
				r.log.Warn("relay change events", zap.Int("relayed", n), zap.Error(err))
				continue
			}
			if n > 0 {
				r.log.Debug("relayed change events", zap.Int("count", n))
			}
		}
	}
}
