package provision

import (
	"regexp"
	"strings"

	"tenant-booking-api/internal/model"
)

var slugRe = regexp.MustCompile(`^[a-z0-9-]{3,}$`)

// Request is a provisioning submission. In the self-service variant CompanyID
// is ignored and the slug is used instead.
type Request struct {
	Slug        string `json:"slug"`
	CompanyID   string `json:"companyId"`
	ProjectName string `json:"projectName"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	Phone       string `json:"phone"`
}

// Variant selects the admin-invoked or self-service flow.
type Variant int

const (
	Admin Variant = iota
	SelfService
)

func (v Variant) String() string {
	if v == SelfService {
		return "self-service"
	}
	return "admin"
}

// ValidSlug reports whether s is an acceptable slug or companyId.
func ValidSlug(s string) bool { return slugRe.MatchString(s) }

// NormalizeSlug trims and lowercases a submitted slug.
func NormalizeSlug(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

// Validate normalizes req in place and rejects it with model.ErrValidation.
// It has no side effects beyond the normalization.
func Validate(req *Request, v Variant) error {
	req.Slug = NormalizeSlug(req.Slug)
	if v == SelfService {
		req.CompanyID = req.Slug
	} else {
		req.CompanyID = strings.ToLower(strings.TrimSpace(req.CompanyID))
	}
	req.Email = strings.TrimSpace(req.Email)
	req.ProjectName = strings.TrimSpace(req.ProjectName)

	if req.Email == "" || req.Password == "" {
		return model.ErrValidation
	}
	if !ValidSlug(req.Slug) || !ValidSlug(req.CompanyID) {
		return model.ErrValidation
	}
	return nil
}
