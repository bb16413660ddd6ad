package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/atelier-labs/pencilbook/domains/tenants/be/service"
	"github.com/atelier-labs/pencilbook/platform/go/logging"
	"github.com/atelier-labs/pencilbook/platform/go/problem"
)

// Handler exposes the tenant registry over HTTP. This surface is administrative
// and is mounted outside the tenant-scoped router.
type Handler struct {
	svc    *service.Service
	logger *zap.Logger
}

// New constructs a Handler instance.
func New(svc *service.Service, logger *zap.Logger) *Handler {
	if svc == nil {
		panic("tenants service is required")
	}
	if logger == nil {
		panic("logger is required")
	}
	return &Handler{svc: svc, logger: logger}
}

// Mount registers the tenant routes on the given router.
func (h *Handler) Mount(r chi.Router) {
	r.Post("/tenants", h.create)
	r.Get("/tenants", h.list)
	r.Get("/tenants/{tenantID}", h.get)
}

type tenantPayload struct {
	ID          uuid.UUID `json:"id"`
	Slug        string    `json:"slug"`
	DisplayName *string   `json:"display_name,omitempty"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

type createRequest struct {
	Slug        string  `json:"slug"`
	DisplayName *string `json:"display_name,omitempty"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		problem.Write(w, problem.Details{
			Type: problem.TypeValidation, Title: "Invalid request body",
			Detail: err.Error(), Status: http.StatusBadRequest,
		})
		return
	}

	t, err := h.svc.Create(r.Context(), service.CreateInput{Slug: req.Slug, DisplayName: req.DisplayName})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	w.Header().Set("Location", "/api/v1/tenants/"+t.ID.String())
	writeJSON(w, http.StatusCreated, toPayload(t))
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	tenants, err := h.svc.List(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	items := make([]tenantPayload, 0, len(tenants))
	for _, t := range tenants {
		items = append(items, toPayload(t))
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "tenantID"))
	if err != nil {
		problem.Write(w, problem.Details{
			Type: problem.TypeValidation, Title: "Invalid tenant id",
			Status: http.StatusBadRequest,
		})
		return
	}

	t, err := h.svc.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toPayload(t))
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		problem.Write(w, problem.Details{Type: problem.TypeNotFound, Title: "Tenant not found", Status: http.StatusNotFound})
	case errors.Is(err, service.ErrConflictSlug):
		problem.Write(w, problem.Details{Type: problem.TypeConflict, Title: "Tenant slug already exists", Status: http.StatusConflict})
	case errors.Is(err, service.ErrInvalidSlug):
		problem.Write(w, problem.Details{Type: problem.TypeValidation, Title: "Invalid tenant slug", Status: http.StatusBadRequest})
	default:
		logging.FromRequest(r, h.logger).Error("tenant operation failed", zap.Error(err))
		problem.Write(w, problem.Details{Type: problem.TypeInternal, Title: "Internal error", Status: http.StatusInternalServerError})
	}
}

func toPayload(t service.Tenant) tenantPayload {
	return tenantPayload{
		ID:          t.ID,
		Slug:        t.Slug,
		DisplayName: t.DisplayName,
		Status:      string(t.Status),
		CreatedAt:   t.CreatedAt,
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
