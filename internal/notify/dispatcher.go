// Package notify sends appointment confirmations and runs the windowed
// reminder sweep.
package notify

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"tenant-booking-api/internal/model"
)

var tracer = otel.Tracer("tenant-booking-api/notify")

type Store interface {
	// DueReminders returns appointments with from <= datetime < to whose
	// reminderSent is not true, including those where it was never set.
	DueReminders(ctx context.Context, from, to time.Time) ([]model.Appointment, error)
	// MarkRemindersSent sets reminderSent=true on all ids atomically.
	MarkRemindersSent(ctx context.Context, ids []string) error
}

// Sender delivers a batch of messages, failing the whole call on error.
type Sender interface {
	Send(ctx context.Context, msgs []model.Message) error
}

type Options struct {
	From      string
	Locale    string
	Zone      *time.Location
	Window    time.Duration
	BatchSize int
}

type Dispatcher struct {
	store  Store
	sender Sender
	opts   Options
	tmpl   templateSet
	log    *zap.Logger
	now    func() time.Time
}

func New(store Store, sender Sender, opts Options, log *zap.Logger) *Dispatcher {
	if opts.Window <= 0 {
		opts.Window = 24 * time.Hour
	}
	if opts.BatchSize <= 0 || opts.BatchSize > model.MaxBatchWrites {
		opts.BatchSize = model.MaxBatchWrites
	}
	if opts.Zone == nil {
		opts.Zone = time.UTC
	}
	return &Dispatcher{
		store:  store,
		sender: sender,
		opts:   opts,
		tmpl:   templates[resolveLocale(opts.Locale)],
		log:    log,
		now:    time.Now,
	}
}

func (d *Dispatcher) data(a model.Appointment) templateData {
	return templateData{
		Service: a.ServiceName,
		Stylist: a.StylistName,
		Client:  a.ClientEmail,
		When:    FormatInstant(a.Datetime, d.opts.Locale, d.opts.Zone),
	}
}

// ConfirmationMessages builds the client and professional confirmations,
// skipping a side with no email.
func (d *Dispatcher) ConfirmationMessages(a model.Appointment) ([]model.Message, error) {
	data := d.data(a)
	var msgs []model.Message
	if a.ClientEmail != "" {
		m, err := d.tmpl.clientConfirm.render(a.ClientEmail, d.opts.From, data)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	if a.StylistEmail != "" {
		m, err := d.tmpl.stylistConfirm.render(a.StylistEmail, d.opts.From, data)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	return msgs, nil
}

// Confirm sends the booking confirmations in one call and returns how many
// were handed to the transport. Failures are logged, not returned: the
// booking already persisted.
func (d *Dispatcher) Confirm(ctx context.Context, a model.Appointment) int {
	ctx, span := tracer.Start(ctx, "notify.Confirm")
	defer span.End()
	span.SetAttributes(attribute.String("appointment.id", a.ID))

	msgs, err := d.ConfirmationMessages(a)
	if err != nil {
		d.log.Error("render confirmation", zap.String("appointment_id", a.ID), zap.Error(err))
		return 0
	}
	if len(msgs) == 0 {
		return 0
	}
	if err := d.sender.Send(ctx, msgs); err != nil {
		d.log.Error("send confirmation",
			zap.String("appointment_id", a.ID),
			zap.Int("messages", len(msgs)),
			zap.Error(err),
		)
		return 0
	}
	return len(msgs)
}

type SweepResult struct {
	Matched int
	Sent    int
	Skipped int // matched but without a client email; left unmarked
}

// Sweep reminds every appointment due within the window. Messages go out
// before their reminderSent flags are committed, chunk by chunk, so a
// failure never marks an appointment whose reminder was not handed to the
// transport. Delivery is at-least-once.
func (d *Dispatcher) Sweep(ctx context.Context) (SweepResult, error) {
	ctx, span := tracer.Start(ctx, "notify.Sweep")
	defer span.End()

	var res SweepResult
	now := d.now()
	due, err := d.store.DueReminders(ctx, now, now.Add(d.opts.Window))
	if err != nil {
		return res, model.Dependency("query due reminders", err)
	}
	if len(due) == 0 {
		d.log.Debug("no reminders pending")
		return res, nil
	}
	res.Matched = len(due)

	msgs := make([]model.Message, 0, len(due))
	ids := make([]string, 0, len(due))
	for _, a := range due {
		if a.ClientEmail == "" {
			res.Skipped++
			continue
		}
		m, err := d.tmpl.reminder.render(a.ClientEmail, d.opts.From, d.data(a))
		if err != nil {
			return res, err
		}
		msgs = append(msgs, m)
		ids = append(ids, a.ID)
	}

	for start := 0; start < len(msgs); start += d.opts.BatchSize {
		end := min(start+d.opts.BatchSize, len(msgs))
		if err := d.sender.Send(ctx, msgs[start:end]); err != nil {
			return res, model.Dependency("send reminders", err)
		}
		if err := d.store.MarkRemindersSent(ctx, ids[start:end]); err != nil {
			return res, model.Dependency("mark reminders sent", err)
		}
		res.Sent += end - start
	}

	span.SetAttributes(attribute.Int("reminders.sent", res.Sent))
	d.log.Info("reminders sent",
		zap.Int("matched", res.Matched),
		zap.Int("sent", res.Sent),
		zap.Int("skipped", res.Skipped),
	)
	return res, nil
}
