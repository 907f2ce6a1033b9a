package store

import (
	"context"
	"fmt"

	"tenant-booking-api/internal/model"
)

// CreateTenant inserts t only if its slug is free; an existing slug yields
// model.ErrConflict and is never overwritten.
func (s *Store) CreateTenant(ctx context.Context, t *model.Tenant) error {
	tag, err := s.pool.Exec(ctx,
		`INSERT INTO tenants (slug, company_id, project_name, owner_uid, owner_email, deposit_confirmation, created_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7)
		 ON CONFLICT (slug) DO NOTHING`,
		t.Slug, t.CompanyID, t.ProjectName, t.OwnerUID, t.OwnerEmail, t.DepositConfirmation, t.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("create tenant %s: %w", t.Slug, err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrConflict
	}
	return nil
}

func (s *Store) GetTenant(ctx context.Context, slug string) (*model.Tenant, error) {
	t := &model.Tenant{}
	err := s.pool.QueryRow(ctx,
		`SELECT slug, company_id, project_name, owner_uid, owner_email,
		        billing_customer_id, deposit_confirmation, created_at
		 FROM tenants WHERE slug = $1`, slug,
	).Scan(&t.Slug, &t.CompanyID, &t.ProjectName, &t.OwnerUID, &t.OwnerEmail,
		&t.BillingCustomerID, &t.DepositConfirmation, &t.CreatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return t, nil
}

// ClaimTenantOwner records uid as the owner only while the slot is empty and
// the recorded owner email, if any, is email. Anything else, including a
// missing tenant, is model.ErrConflict.
func (s *Store) ClaimTenantOwner(ctx context.Context, slug, uid, email string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE tenants SET owner_uid = $2, owner_email = $3
		 WHERE slug = $1 AND owner_uid = ''
		   AND (owner_email = '' OR lower(owner_email) = lower($3))`,
		slug, uid, email,
	)
	if err != nil {
		return fmt.Errorf("claim tenant owner %s: %w", slug, err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrConflict
	}
	return nil
}

func (s *Store) SetBillingCustomer(ctx context.Context, slug, customerID string) error {
	return s.updateTenant(ctx, slug,
		`UPDATE tenants SET billing_customer_id = $2 WHERE slug = $1`, customerID)
}

func (s *Store) updateTenant(ctx context.Context, slug, q string, args ...any) error {
	tag, err := s.pool.Exec(ctx, q, append([]any{slug}, args...)...)
	if err != nil {
		return fmt.Errorf("update tenant %s: %w", slug, err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrNotFound
	}
	return nil
}
