// Package memstore is an in-memory implementation of the store ports, used as
// the document store fake in tests.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"tenant-booking-api/internal/model"
)

type Store struct {
	mu            sync.Mutex
	tenants       map[string]model.Tenant
	principals    map[string]model.Principal
	profiles      map[string]model.UserProfile
	professionals map[string]model.Professional
	appointments  map[string]model.Appointment

	// fail holds injected errors keyed by method name.
	fail map[string]error
	// Writes counts successful mutating calls.
	Writes int
}

func New() *Store {
	return &Store{
		tenants:       map[string]model.Tenant{},
		principals:    map[string]model.Principal{},
		profiles:      map[string]model.UserProfile{},
		professionals: map[string]model.Professional{},
		appointments:  map[string]model.Appointment{},
		fail:          map[string]error{},
	}
}

// FailOn makes the named method return err until cleared with a nil err.
func (s *Store) FailOn(method string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.fail, method)
		return
	}
	s.fail[method] = err
}

func (s *Store) injected(method string) error {
	return s.fail[method]
}

// --- tenants ---

func (s *Store) CreateTenant(_ context.Context, t *model.Tenant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.injected("CreateTenant"); err != nil {
		return err
	}
	if _, ok := s.tenants[t.Slug]; ok {
		return model.ErrConflict
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now()
	}
	s.tenants[t.Slug] = *t
	s.Writes++
	return nil
}

func (s *Store) GetTenant(_ context.Context, slug string) (*model.Tenant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.injected("GetTenant"); err != nil {
		return nil, err
	}
	t, ok := s.tenants[slug]
	if !ok {
		return nil, model.ErrNotFound
	}
	return &t, nil
}

func (s *Store) ClaimTenantOwner(_ context.Context, slug, uid, email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.injected("ClaimTenantOwner"); err != nil {
		return err
	}
	t, ok := s.tenants[slug]
	if !ok || t.OwnerUID != "" {
		return model.ErrConflict
	}
	if t.OwnerEmail != "" && !strings.EqualFold(t.OwnerEmail, email) {
		return model.ErrConflict
	}
	t.OwnerUID, t.OwnerEmail = uid, email
	s.tenants[slug] = t
	s.Writes++
	return nil
}

func (s *Store) SetBillingCustomer(_ context.Context, slug, customerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.injected("SetBillingCustomer"); err != nil {
		return err
	}
	t, ok := s.tenants[slug]
	if !ok {
		return model.ErrNotFound
	}
	t.BillingCustomerID = customerID
	s.tenants[slug] = t
	s.Writes++
	return nil
}

// --- principals ---

func (s *Store) CreatePrincipal(_ context.Context, p *model.Principal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.injected("CreatePrincipal"); err != nil {
		return err
	}
	for _, existing := range s.principals {
		if existing.Email == p.Email {
			return model.ErrEmailInUse
		}
	}
	p.CreatedAt = time.Now()
	s.principals[p.UID] = *p
	s.Writes++
	return nil
}

func (s *Store) PrincipalByEmail(_ context.Context, email string) (*model.Principal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.injected("PrincipalByEmail"); err != nil {
		return nil, err
	}
	for _, p := range s.principals {
		if p.Email == email {
			return &p, nil
		}
	}
	return nil, model.ErrNotFound
}

// PutPrincipal stores p as is, replacing any principal with the same uid.
func (s *Store) PutPrincipal(p model.Principal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.principals[p.UID] = p
}

// --- profiles ---

func (s *Store) CreateProfile(_ context.Context, p *model.UserProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.injected("CreateProfile"); err != nil {
		return err
	}
	if _, ok := s.profiles[p.UID]; ok {
		return model.ErrConflict
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	s.profiles[p.UID] = *p
	s.Writes++
	return nil
}

func (s *Store) GetProfile(_ context.Context, uid string) (*model.UserProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.injected("GetProfile"); err != nil {
		return nil, err
	}
	p, ok := s.profiles[uid]
	if !ok {
		return nil, model.ErrNotFound
	}
	return &p, nil
}

func (s *Store) ProfilesByEmail(_ context.Context, email string) ([]model.UserProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.injected("ProfilesByEmail"); err != nil {
		return nil, err
	}
	var out []model.UserProfile
	for _, p := range s.profiles {
		if p.Email == email {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UID < out[j].UID })
	return out, nil
}

// ApplyProfessionalFlags applies all updates or none. Unknown uids are
// skipped, as an UPDATE matching no row would be.
func (s *Store) ApplyProfessionalFlags(_ context.Context, updates []model.ProfileUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.injected("ApplyProfessionalFlags"); err != nil {
		return err
	}
	if len(updates) > model.MaxBatchWrites {
		return fmt.Errorf("batch of %d exceeds %d writes", len(updates), model.MaxBatchWrites)
	}
	for _, u := range updates {
		p, ok := s.profiles[u.UID]
		if !ok {
			continue
		}
		p.IsProfesional = true
		p.CompanyID = u.CompanyID
		s.profiles[u.UID] = p
		s.Writes++
	}
	return nil
}

// PutProfile stores p as is, without counting a write.
func (s *Store) PutProfile(p model.UserProfile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[p.UID] = p
}

// --- professionals ---

func (s *Store) ProfessionalsByEmail(_ context.Context, email string) ([]model.Professional, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.injected("ProfessionalsByEmail"); err != nil {
		return nil, err
	}
	var out []model.Professional
	for _, p := range s.professionals {
		if p.Email == email {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) GetProfessional(_ context.Context, id string) (*model.Professional, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.injected("GetProfessional"); err != nil {
		return nil, err
	}
	p, ok := s.professionals[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	return &p, nil
}

func (s *Store) ListProfessionals(_ context.Context) ([]model.Professional, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Professional, 0, len(s.professionals))
	for _, p := range s.professionals {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) PutProfessional(p model.Professional) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.professionals[p.ID] = p
}

func (s *Store) DeleteProfessional(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.professionals, id)
}

// --- appointments ---

func (s *Store) GetAppointment(_ context.Context, id string) (*model.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.injected("GetAppointment"); err != nil {
		return nil, err
	}
	a, ok := s.appointments[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	return &a, nil
}

// DueReminders returns unsent appointments with from <= datetime < to.
func (s *Store) DueReminders(_ context.Context, from, to time.Time) ([]model.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.injected("DueReminders"); err != nil {
		return nil, err
	}
	var out []model.Appointment
	for _, a := range s.appointments {
		if a.ReminderSent || a.Datetime.Before(from) || !a.Datetime.Before(to) {
			continue
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Datetime.Equal(out[j].Datetime) {
			return out[i].ID < out[j].ID
		}
		return out[i].Datetime.Before(out[j].Datetime)
	})
	return out, nil
}

// MarkRemindersSent flags all ids or none.
func (s *Store) MarkRemindersSent(_ context.Context, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.injected("MarkRemindersSent"); err != nil {
		return err
	}
	for _, id := range ids {
		a, ok := s.appointments[id]
		if !ok {
			continue
		}
		a.ReminderSent = true
		s.appointments[id] = a
		s.Writes++
	}
	return nil
}

func (s *Store) PutAppointment(a model.Appointment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.appointments[a.ID] = a
}
