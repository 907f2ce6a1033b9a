package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"tenant-booking-api/internal/middleware"
	"tenant-booking-api/internal/model"
	"tenant-booking-api/internal/provision"
)

// response bodies are plain text
const (
	msgOK       = "ok"
	msgInvalid  = "Invalid or missing fields"
	msgConflict = "Slug already exists"
)

const maxBody = 64 << 10

// CreateTenant is the admin variant; middleware.Auth has already gated it.
func (h *Handler) CreateTenant(w http.ResponseWriter, r *http.Request) {
	if c, ok := middleware.ClaimsFrom(r.Context()); ok {
		h.log.Info("admin provisioning request", zap.String("caller", c.Email))
	}
	h.provision(w, r, provision.Admin)
}

// Signup is the self-service variant: companyId is the slug.
func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	h.provision(w, r, provision.SelfService)
}

func (h *Handler) provision(w http.ResponseWriter, r *http.Request, v provision.Variant) {
	var req provision.Request
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody)).Decode(&req); err != nil {
		text(w, http.StatusBadRequest, msgInvalid)
		return
	}

	_, err := h.provisioner.Provision(r.Context(), req, v)
	if !errors.Is(err, model.ErrValidation) && !errors.Is(err, model.ErrConflict) {
		// success and dependency failures both leave writes behind
		h.tenants.Invalidate(provision.NormalizeSlug(req.Slug))
	}
	switch {
	case err == nil:
		text(w, http.StatusOK, msgOK)
	case errors.Is(err, model.ErrValidation):
		text(w, http.StatusBadRequest, msgInvalid)
	case errors.Is(err, model.ErrConflict):
		text(w, http.StatusBadRequest, msgConflict)
	default:
		h.log.Error("provision tenant", zap.String("variant", v.String()), zap.Error(err))
		text(w, http.StatusInternalServerError, err.Error())
	}
}

type tenantView struct {
	Slug                string `json:"slug"`
	CompanyID           string `json:"companyId"`
	ProjectName         string `json:"projectName"`
	DepositConfirmation bool   `json:"depositConfirmation"`
}

// GetTenant is the public tenant config lookup used by the booking front end.
func (h *Handler) GetTenant(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	if !provision.ValidSlug(slug) {
		text(w, http.StatusNotFound, "Tenant not found")
		return
	}
	t, err := h.tenants.GetTenant(r.Context(), slug)
	if errors.Is(err, model.ErrNotFound) {
		text(w, http.StatusNotFound, "Tenant not found")
		return
	}
	if err != nil {
		h.log.Error("get tenant", zap.String("slug", slug), zap.Error(err))
		text(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, tenantView{
		Slug:                t.Slug,
		CompanyID:           t.CompanyID,
		ProjectName:         t.ProjectName,
		DepositConfirmation: t.DepositConfirmation,
	})
}

func text(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(code)
	_, _ = w.Write([]byte(msg))
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
