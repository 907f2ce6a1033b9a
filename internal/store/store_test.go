package store_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tenant-booking-api/internal/model"
	"tenant-booking-api/internal/store"
)

func setup(t *testing.T) (*store.Store, *pgxpool.Pool) {
	t.Helper()
	_ = godotenv.Load("../../.env")
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		t.Skip("DATABASE_URL not set")
	}
	ctx := context.Background()
	require.NoError(t, store.RunMigrations(ctx, dbURL))
	pool, err := store.NewPool(ctx, dbURL, 4)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	return store.New(pool), pool
}

func slug() string { return "t-" + uuid.NewString()[:8] }

func TestCreateTenantConflict(t *testing.T) {
	st, _ := setup(t)
	ctx := context.Background()
	s := slug()

	require.NoError(t, st.CreateTenant(ctx, &model.Tenant{Slug: s, CompanyID: s, ProjectName: "p1", CreatedAt: time.Now()}))
	err := st.CreateTenant(ctx, &model.Tenant{Slug: s, CompanyID: "other", ProjectName: "p2", CreatedAt: time.Now()})
	assert.ErrorIs(t, err, model.ErrConflict)

	got, err := st.GetTenant(ctx, s)
	require.NoError(t, err)
	assert.Equal(t, "p1", got.ProjectName)
	assert.False(t, got.Provisioned())

	require.NoError(t, st.ClaimTenantOwner(ctx, s, "uid-1", "o@test.com"))
	assert.ErrorIs(t, st.ClaimTenantOwner(ctx, s, "uid-2", "o@test.com"), model.ErrConflict, "owner slot is claimed once")
	require.NoError(t, st.SetBillingCustomer(ctx, s, "cus-1"))
	got, err = st.GetTenant(ctx, s)
	require.NoError(t, err)
	assert.True(t, got.Provisioned())
	assert.Equal(t, "cus-1", got.BillingCustomerID)

	_, err = st.GetTenant(ctx, slug())
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestClaimTenantOwnerRespectsReservedEmail(t *testing.T) {
	st, _ := setup(t)
	ctx := context.Background()
	s := slug()

	require.NoError(t, st.CreateTenant(ctx, &model.Tenant{Slug: s, CompanyID: s, OwnerEmail: "Owner@test.com", CreatedAt: time.Now()}))
	assert.ErrorIs(t, st.ClaimTenantOwner(ctx, s, "uid-x", "intruder@test.com"), model.ErrConflict)
	require.NoError(t, st.ClaimTenantOwner(ctx, s, "uid-1", "owner@test.com"))

	got, err := st.GetTenant(ctx, s)
	require.NoError(t, err)
	assert.Equal(t, "uid-1", got.OwnerUID)

	assert.ErrorIs(t, st.ClaimTenantOwner(ctx, slug(), "uid-1", "owner@test.com"), model.ErrConflict)
}

func TestPrincipalEmailUnique(t *testing.T) {
	st, _ := setup(t)
	ctx := context.Background()
	email := uuid.NewString()[:8] + "@test.com"

	require.NoError(t, st.CreatePrincipal(ctx, &model.Principal{UID: uuid.NewString(), Email: email, PasswordHash: "h"}))
	err := st.CreatePrincipal(ctx, &model.Principal{UID: uuid.NewString(), Email: email, PasswordHash: "h"})
	assert.ErrorIs(t, err, model.ErrEmailInUse)

	p, err := st.PrincipalByEmail(ctx, email)
	require.NoError(t, err)
	assert.Equal(t, email, p.Email)
}

func TestProfessionalFlags(t *testing.T) {
	st, pool := setup(t)
	ctx := context.Background()
	email := uuid.NewString()[:8] + "@test.com"
	uid := uuid.NewString()

	require.NoError(t, st.CreateProfile(ctx, &model.UserProfile{UID: uid, Email: email, CreatedAt: time.Now()}))
	assert.ErrorIs(t, st.CreateProfile(ctx, &model.UserProfile{UID: uid, Email: email}), model.ErrConflict)

	_, err := pool.Exec(ctx,
		`INSERT INTO stylists (id, email, company_id) VALUES ($1,$2,'acme'), ($3,$2,'beta')`,
		"b-"+uid, email, "a-"+uid)
	require.NoError(t, err)

	pros, err := st.ProfessionalsByEmail(ctx, email)
	require.NoError(t, err)
	require.Len(t, pros, 2)
	assert.Equal(t, "a-"+uid, pros[0].ID)

	require.NoError(t, st.ApplyProfessionalFlags(ctx, []model.ProfileUpdate{{UID: uid, CompanyID: pros[0].CompanyID}}))
	p, err := st.GetProfile(ctx, uid)
	require.NoError(t, err)
	assert.True(t, p.IsProfesional)
	assert.Equal(t, "beta", p.CompanyID)
}

func TestDueRemindersAndMark(t *testing.T) {
	st, pool := setup(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)
	prefix := uuid.NewString()[:8]

	in := &model.Appointment{ID: prefix + "-in", CompanyID: "acme", ClientEmail: "c@test.com", Datetime: now.Add(2 * time.Hour)}
	out := &model.Appointment{ID: prefix + "-out", CompanyID: "acme", ClientEmail: "c@test.com", Datetime: now.Add(30 * time.Hour)}
	sent := &model.Appointment{ID: prefix + "-sent", CompanyID: "acme", ClientEmail: "c@test.com", Datetime: now.Add(3 * time.Hour)}
	for _, a := range []*model.Appointment{in, out, sent} {
		require.NoError(t, st.PutAppointment(ctx, a))
	}
	_, err := pool.Exec(ctx, `UPDATE appointments SET reminder_sent = true WHERE id = $1`, sent.ID)
	require.NoError(t, err)

	due, err := st.DueReminders(ctx, now, now.Add(24*time.Hour))
	require.NoError(t, err)
	var ids []string
	for _, a := range due {
		ids = append(ids, a.ID)
	}
	assert.Contains(t, ids, in.ID)
	assert.NotContains(t, ids, out.ID)
	assert.NotContains(t, ids, sent.ID)

	require.NoError(t, st.MarkRemindersSent(ctx, []string{in.ID}))
	got, err := st.GetAppointment(ctx, in.ID)
	require.NoError(t, err)
	assert.True(t, got.ReminderSent)
}

func TestRelayChangeEvents(t *testing.T) {
	st, _ := setup(t)
	ctx := context.Background()
	uid := uuid.NewString()

	// drain anything left by other tests
	for {
		n, err := st.RelayChangeEvents(ctx, 500, func(model.ChangeEvent) error { return nil })
		require.NoError(t, err)
		if n == 0 {
			break
		}
	}

	require.NoError(t, st.CreateProfile(ctx, &model.UserProfile{UID: uid, Email: "r@test.com", CreatedAt: time.Now()}))

	var got []model.ChangeEvent
	n, err := st.RelayChangeEvents(ctx, 10, func(e model.ChangeEvent) error {
		got = append(got, e)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	require.Len(t, got, 1)
	assert.Equal(t, model.CollectionUsers, got[0].Collection)
	assert.Equal(t, uid, got[0].DocID)
	assert.Equal(t, model.OpInsert, got[0].Op)

	n, err = st.RelayChangeEvents(ctx, 10, func(model.ChangeEvent) error { return nil })
	require.NoError(t, err)
	assert.Zero(t, n)
}
