// Package provision stands up a new tenant: tenant record, owner identity,
// owner profile and an optional billing customer. It is a best-effort saga,
// not a transaction; see Provision for the resume rules.
package provision

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"tenant-booking-api/internal/auth"
	"tenant-booking-api/internal/model"
)

var tracer = otel.Tracer("tenant-booking-api/provision")

type Store interface {
	GetTenant(ctx context.Context, slug string) (*model.Tenant, error)
	// CreateTenant must be create-if-absent: model.ErrConflict when the slug exists.
	CreateTenant(ctx context.Context, t *model.Tenant) error
	// ClaimTenantOwner must only fill an empty owner slot: model.ErrConflict
	// when it is taken or recorded for a different email.
	ClaimTenantOwner(ctx context.Context, slug, uid, email string) error
	SetBillingCustomer(ctx context.Context, slug, customerID string) error
	CreateProfile(ctx context.Context, p *model.UserProfile) error
	GetProfile(ctx context.Context, uid string) (*model.UserProfile, error)
}

type Identity interface {
	CreatePrincipal(ctx context.Context, email, password string) (string, error)
	SignIn(ctx context.Context, email, password string) (string, *model.Principal, error)
	Verify(ctx context.Context, raw string) (*auth.Claims, error)
}

// Billing creates a billing customer and returns its opaque id.
type Billing interface {
	CreateCustomer(ctx context.Context, email, name string) (string, error)
}

type Workflow struct {
	store      Store
	identity   Identity
	billing    Billing
	superAdmin string
	log        *zap.Logger
	now        func() time.Time
}

// New builds a workflow. billing may be nil, which skips the billing step.
func New(store Store, identity Identity, billing Billing, superAdminEmail string, log *zap.Logger) *Workflow {
	return &Workflow{
		store:      store,
		identity:   identity,
		billing:    billing,
		superAdmin: strings.TrimSpace(superAdminEmail),
		log:        log,
		now:        time.Now,
	}
}

// Authorize gates the admin variant. The caller passes when its verified
// email is the super-admin's or it carries the admin role claim.
func (w *Workflow) Authorize(ctx context.Context, token string) (*auth.Claims, error) {
	if token == "" {
		return nil, model.ErrUnauthorized
	}
	claims, err := w.identity.Verify(ctx, token)
	if err != nil {
		return nil, model.ErrUnauthorized
	}
	if w.superAdmin != "" && strings.EqualFold(claims.Email, w.superAdmin) {
		return claims, nil
	}
	if claims.Role == auth.RoleAdmin {
		return claims, nil
	}
	return nil, model.ErrForbidden
}

// Provision runs the workflow. Validation and conflict errors are returned
// before any write. The tenant is created with its owner email, which reserves
// the slug for that owner. In the admin variant a tenant left partially
// provisioned by an earlier run of the same owner (same companyId and email)
// is resumed instead of rejected, once the request password proves the owner.
func (w *Workflow) Provision(ctx context.Context, req Request, v Variant) (*model.Tenant, error) {
	ctx, span := tracer.Start(ctx, "provision.Provision")
	defer span.End()

	if err := Validate(&req, v); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.String("tenant.slug", req.Slug), attribute.String("variant", v.String()))

	resumed := false
	t, err := w.store.GetTenant(ctx, req.Slug)
	switch {
	case errors.Is(err, model.ErrNotFound):
		t = &model.Tenant{
			Slug:        req.Slug,
			CompanyID:   req.CompanyID,
			ProjectName: req.ProjectName,
			OwnerEmail:  req.Email,
			CreatedAt:   w.now(),
		}
		if err := w.store.CreateTenant(ctx, t); err != nil {
			if errors.Is(err, model.ErrConflict) {
				// lost the race to a concurrent provisioning of the same slug
				return nil, model.ErrConflict
			}
			return nil, w.fail(span, model.Dependency("create tenant", err))
		}
	case err != nil:
		return nil, w.fail(span, model.Dependency("read tenant", err))
	default:
		if !w.resumable(ctx, t, req, v) {
			return nil, model.ErrConflict
		}
		resumed = true
		w.log.Warn("resuming partially provisioned tenant",
			zap.String("slug", t.Slug),
			zap.Bool("owner_created", t.OwnerUID != ""),
		)
	}

	if t.OwnerUID == "" {
		uid, err := w.ownerIdentity(ctx, t, req, resumed)
		if err != nil {
			return nil, w.fail(span, err)
		}
		if err := w.store.ClaimTenantOwner(ctx, t.Slug, uid, req.Email); err != nil {
			if errors.Is(err, model.ErrConflict) {
				// a concurrent run recorded its owner first
				return nil, model.ErrConflict
			}
			return nil, w.fail(span, model.Dependency("record tenant owner", err))
		}
		t.OwnerUID, t.OwnerEmail = uid, req.Email
	} else if resumed {
		uid, err := w.existingOwner(ctx, req)
		if err != nil {
			return nil, w.fail(span, err)
		}
		if uid != t.OwnerUID {
			return nil, w.fail(span, model.ErrPartiallyProvisioned)
		}
	}

	profile := &model.UserProfile{
		UID:       t.OwnerUID,
		Email:     t.OwnerEmail,
		CompanyID: t.CompanyID,
		IsAdmin:   true,
		FirstName: strings.TrimSpace(req.FirstName),
		LastName:  strings.TrimSpace(req.LastName),
		Phone:     strings.TrimSpace(req.Phone),
		CreatedAt: w.now(),
	}
	if err := w.store.CreateProfile(ctx, profile); err != nil && !errors.Is(err, model.ErrConflict) {
		return nil, w.fail(span, model.Dependency("create profile", err))
	}

	w.linkBilling(ctx, t)

	w.log.Info("tenant provisioned",
		zap.String("slug", t.Slug),
		zap.String("company_id", t.CompanyID),
		zap.String("owner_uid", t.OwnerUID),
		zap.String("variant", v.String()),
	)
	return t, nil
}

// resumable reports whether an existing tenant is the leftover of a failed
// admin run by the same owner. The recorded owner email is set when the
// tenant is created, so a run still in flight is never resumed by someone else.
func (w *Workflow) resumable(ctx context.Context, t *model.Tenant, req Request, v Variant) bool {
	if v != Admin || t.CompanyID != req.CompanyID {
		return false
	}
	if t.OwnerEmail == "" || !strings.EqualFold(t.OwnerEmail, req.Email) {
		return false
	}
	if t.OwnerUID == "" {
		return true
	}
	_, err := w.store.GetProfile(ctx, t.OwnerUID)
	return errors.Is(err, model.ErrNotFound)
}

// ownerIdentity creates the owner principal. On resume the principal may
// already exist from a run that failed before recording it; it is reused
// when the request password matches.
func (w *Workflow) ownerIdentity(ctx context.Context, t *model.Tenant, req Request, resumed bool) (string, error) {
	uid, err := w.identity.CreatePrincipal(ctx, req.Email, req.Password)
	if err == nil {
		return uid, nil
	}
	if resumed && errors.Is(err, model.ErrEmailInUse) {
		return w.existingOwner(ctx, req)
	}
	w.log.Error("owner identity failed, tenant left without owner",
		zap.String("slug", t.Slug), zap.Error(err))
	return "", model.Dependency("create identity", err)
}

func (w *Workflow) existingOwner(ctx context.Context, req Request) (string, error) {
	_, p, err := w.identity.SignIn(ctx, req.Email, req.Password)
	if errors.Is(err, model.ErrUnauthorized) {
		return "", model.ErrPartiallyProvisioned
	}
	if err != nil {
		return "", model.Dependency("verify identity", err)
	}
	return p.UID, nil
}

// linkBilling never changes the outcome of Provision.
func (w *Workflow) linkBilling(ctx context.Context, t *model.Tenant) {
	if w.billing == nil || t.BillingCustomerID != "" {
		return
	}
	id, err := w.billing.CreateCustomer(ctx, t.OwnerEmail, t.ProjectName)
	if err != nil {
		w.log.Error("billing customer", zap.String("slug", t.Slug), zap.Error(err))
		return
	}
	if id == "" {
		return
	}
	if err := w.store.SetBillingCustomer(ctx, t.Slug, id); err != nil {
		w.log.Error("record billing customer", zap.String("slug", t.Slug), zap.Error(err))
		return
	}
	t.BillingCustomerID = id
}

func (w *Workflow) fail(span trace.Span, err error) error {
	span.SetStatus(codes.Error, err.Error())
	return err
}
