// Package trigger routes document change events to the reactive units.
package trigger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"tenant-booking-api/internal/model"
)

// Store reads the post-write state of the changed document.
type Store interface {
	GetProfile(ctx context.Context, uid string) (*model.UserProfile, error)
	GetProfessional(ctx context.Context, id string) (*model.Professional, error)
	GetAppointment(ctx context.Context, id string) (*model.Appointment, error)
}

type Reconciler interface {
	FromProfile(ctx context.Context, p model.UserProfile) (bool, error)
	FromProfessional(ctx context.Context, pro *model.Professional) (int, error)
}

type Confirmer interface {
	Confirm(ctx context.Context, a model.Appointment) int
}

type Router struct {
	store     Store
	reconcile Reconciler
	confirm   Confirmer
	log       *zap.Logger
}

func NewRouter(store Store, reconcile Reconciler, confirm Confirmer, log *zap.Logger) *Router {
	return &Router{store: store, reconcile: reconcile, confirm: confirm, log: log}
}

// Handle decodes one change event and dispatches it. A returned error means
// the event should be redelivered.
func (r *Router) Handle(ctx context.Context, subject string, data []byte) error {
	var e model.ChangeEvent
	if err := json.Unmarshal(data, &e); err != nil {
		// redelivery cannot fix a malformed payload
		r.log.Error("drop malformed change event", zap.String("subject", subject), zap.Error(err))
		return nil
	}
	return r.Dispatch(ctx, e)
}

func (r *Router) Dispatch(ctx context.Context, e model.ChangeEvent) error {
	switch e.Collection {
	case model.CollectionUsers:
		if e.Op != model.OpInsert {
			return nil
		}
		return r.profileCreated(ctx, e.DocID)
	case model.CollectionStylists:
		return r.professionalWritten(ctx, e.DocID)
	case model.CollectionAppointments:
		if e.Op != model.OpInsert {
			return nil
		}
		return r.appointmentCreated(ctx, e.DocID)
	}
	return nil
}

func (r *Router) profileCreated(ctx context.Context, uid string) error {
	p, err := r.store.GetProfile(ctx, uid)
	if errors.Is(err, model.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load profile %s: %w", uid, err)
	}
	_, err = r.reconcile.FromProfile(ctx, *p)
	return err
}

// professionalWritten runs on the post-write state; a deleted professional
// loads as nil and changes nothing.
func (r *Router) professionalWritten(ctx context.Context, id string) error {
	pro, err := r.store.GetProfessional(ctx, id)
	if errors.Is(err, model.ErrNotFound) {
		pro, err = nil, nil
	}
	if err != nil {
		return fmt.Errorf("load professional %s: %w", id, err)
	}
	_, err = r.reconcile.FromProfessional(ctx, pro)
	return err
}

func (r *Router) appointmentCreated(ctx context.Context, id string) error {
	a, err := r.store.GetAppointment(ctx, id)
	if errors.Is(err, model.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load appointment %s: %w", id, err)
	}
	r.confirm.Confirm(ctx, *a)
	return nil
}
