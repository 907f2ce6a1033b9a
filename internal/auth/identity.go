package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"tenant-booking-api/internal/model"
)

// MinPasswordLen matches what the identity service accepts for new principals.
const MinPasswordLen = 6

var ErrWeakPassword = errors.New("password must be at least 6 characters")

// PrincipalStore persists principals. CreatePrincipal returns
// model.ErrEmailInUse when the email is taken.
type PrincipalStore interface {
	CreatePrincipal(ctx context.Context, p *model.Principal) error
	PrincipalByEmail(ctx context.Context, email string) (*model.Principal, error)
}

// Identity creates principals and issues and verifies their bearer credentials.
type Identity struct {
	store  PrincipalStore
	secret string
	ttl    time.Duration
}

func NewIdentity(store PrincipalStore, secret string, ttl time.Duration) *Identity {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Identity{store: store, secret: secret, ttl: ttl}
}

// CreatePrincipal registers email+password and returns the new uid.
func (i *Identity) CreatePrincipal(ctx context.Context, email, password string) (string, error) {
	return i.create(ctx, email, password, "")
}

// CreateAdmin registers a principal carrying the admin role claim.
func (i *Identity) CreateAdmin(ctx context.Context, email, password string) (string, error) {
	return i.create(ctx, email, password, RoleAdmin)
}

func (i *Identity) create(ctx context.Context, email, password, role string) (string, error) {
	email = strings.TrimSpace(email)
	if len(password) < MinPasswordLen {
		return "", ErrWeakPassword
	}
	hash, err := HashPassword(password)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	p := &model.Principal{
		UID:          uuid.New().String(),
		Email:        email,
		PasswordHash: hash,
		Role:         role,
	}
	if err := i.store.CreatePrincipal(ctx, p); err != nil {
		return "", err
	}
	return p.UID, nil
}

// SignIn checks the password and returns a fresh credential.
func (i *Identity) SignIn(ctx context.Context, email, password string) (string, *model.Principal, error) {
	p, err := i.store.PrincipalByEmail(ctx, strings.TrimSpace(email))
	if errors.Is(err, model.ErrNotFound) {
		// don't reveal whether the email exists
		return "", nil, model.ErrUnauthorized
	}
	if err != nil {
		return "", nil, fmt.Errorf("load principal: %w", err)
	}
	if !CheckPassword(p.PasswordHash, password) {
		return "", nil, model.ErrUnauthorized
	}
	tok, err := MakeToken(p.UID, p.Email, p.Role, i.secret, i.ttl)
	if err != nil {
		return "", nil, fmt.Errorf("make token: %w", err)
	}
	return tok, p, nil
}

// Verify returns the claims of a valid credential, or model.ErrUnauthorized.
func (i *Identity) Verify(_ context.Context, raw string) (*Claims, error) {
	c, err := ParseToken(raw, i.secret)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrUnauthorized, err)
	}
	return c, nil
}
