// Package reconcile converges the professional flag of user profiles with the
// stylist records that share their email.
//
// Both rules read current document state and never look at what changed, so
// replaying them in any order and any number of times reaches the same fixed
// point: every profile whose email matches a professional has
// isProfesional=true and that professional's companyId. Deleting a
// professional does not clear the flag.
package reconcile

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"tenant-booking-api/internal/model"
)

var tracer = otel.Tracer("tenant-booking-api/reconcile")

type Store interface {
	// ProfessionalsByEmail returns matches ordered by document id.
	ProfessionalsByEmail(ctx context.Context, email string) ([]model.Professional, error)
	ProfilesByEmail(ctx context.Context, email string) ([]model.UserProfile, error)
	// ApplyProfessionalFlags commits all updates atomically.
	ApplyProfessionalFlags(ctx context.Context, updates []model.ProfileUpdate) error
	ListProfessionals(ctx context.Context) ([]model.Professional, error)
}

type Engine struct {
	store     Store
	log       *zap.Logger
	batchSize int
}

func New(store Store, log *zap.Logger) *Engine {
	return &Engine{store: store, log: log, batchSize: model.MaxBatchWrites}
}

func converged(p model.UserProfile, companyID string) bool {
	return p.IsProfesional && p.CompanyID == companyID
}

// FromProfile applies the profile-created rule. When several professionals
// share the email, the one with the lowest id wins. It reports whether the
// profile was updated.
func (e *Engine) FromProfile(ctx context.Context, p model.UserProfile) (bool, error) {
	ctx, span := tracer.Start(ctx, "reconcile.FromProfile")
	defer span.End()
	span.SetAttributes(attribute.String("profile.uid", p.UID))

	if p.Email == "" {
		return false, nil
	}
	pros, err := e.store.ProfessionalsByEmail(ctx, p.Email)
	if err != nil {
		return false, model.Dependency("query professionals", err)
	}
	if len(pros) == 0 {
		return false, nil
	}
	pro := pros[0]
	if converged(p, pro.CompanyID) {
		return false, nil
	}
	upd := []model.ProfileUpdate{{UID: p.UID, CompanyID: pro.CompanyID}}
	if err := e.store.ApplyProfessionalFlags(ctx, upd); err != nil {
		return false, model.Dependency("update profile", err)
	}
	e.log.Info("profile marked professional",
		zap.String("uid", p.UID),
		zap.String("professional_id", pro.ID),
		zap.String("company_id", pro.CompanyID),
	)
	return true, nil
}

// FromProfessional applies the professional-written rule to the post-write
// state. pro is nil when the write was a delete. It returns the number of
// profiles updated.
func (e *Engine) FromProfessional(ctx context.Context, pro *model.Professional) (int, error) {
	ctx, span := tracer.Start(ctx, "reconcile.FromProfessional")
	defer span.End()

	if pro == nil || pro.Email == "" {
		return 0, nil
	}
	span.SetAttributes(attribute.String("professional.id", pro.ID))

	profiles, err := e.store.ProfilesByEmail(ctx, pro.Email)
	if err != nil {
		return 0, model.Dependency("query profiles", err)
	}

	var staged []model.ProfileUpdate
	for _, p := range profiles {
		if !converged(p, pro.CompanyID) {
			staged = append(staged, model.ProfileUpdate{UID: p.UID, CompanyID: pro.CompanyID})
		}
	}
	if len(staged) == 0 {
		return 0, nil
	}

	// each chunk is atomic; a failed chunk is redone on the next replay
	for start := 0; start < len(staged); start += e.batchSize {
		end := min(start+e.batchSize, len(staged))
		if err := e.store.ApplyProfessionalFlags(ctx, staged[start:end]); err != nil {
			return start, model.Dependency("commit profile batch", err)
		}
	}
	e.log.Info("profiles synced from professional",
		zap.String("professional_id", pro.ID),
		zap.String("company_id", pro.CompanyID),
		zap.Int("updated", len(staged)),
	)
	return len(staged), nil
}

// RepairAll replays the professional rule over every professional. It is the
// manual repair job for a change feed that lost events.
func (e *Engine) RepairAll(ctx context.Context) (int, error) {
	pros, err := e.store.ListProfessionals(ctx)
	if err != nil {
		return 0, model.Dependency("list professionals", err)
	}
	total := 0
	for i := range pros {
		n, err := e.FromProfessional(ctx, &pros[i])
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}
