package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/atelier-labs/pencilbook/domains/resources/be/service"
	"github.com/atelier-labs/pencilbook/platform/go/logging"
	"github.com/atelier-labs/pencilbook/platform/go/problem"
	"github.com/atelier-labs/pencilbook/platform/go/tenant"
)

// Handler exposes the resource registry for the calling tenant.
type Handler struct {
	svc    *service.Service
	logger *zap.Logger
}

// New constructs a Handler instance.
func New(svc *service.Service, logger *zap.Logger) *Handler {
	if svc == nil {
		panic("resources service is required")
	}
	if logger == nil {
		panic("logger is required")
	}
	return &Handler{svc: svc, logger: logger}
}

// Mount registers the resource routes on the given tenant-scoped router.
func (h *Handler) Mount(r chi.Router) {
	r.Post("/resources", h.create)
	r.Get("/resources", h.list)
	r.Get("/resources/{resourceID}", h.get)
}

type resourcePayload struct {
	ID          uuid.UUID `json:"id"`
	TenantID    uuid.UUID `json:"tenant_id"`
	DisplayName string    `json:"display_name"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"created_at"`
}

type createRequest struct {
	DisplayName string `json:"display_name"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	tenantID := tenant.MustFromContext(r.Context())

	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		problem.Write(w, problem.Details{
			Type: problem.TypeValidation, Title: "Invalid request body",
			Detail: err.Error(), Status: http.StatusBadRequest,
		})
		return
	}

	res, err := h.svc.Create(r.Context(), service.CreateInput{TenantID: tenantID, DisplayName: req.DisplayName})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	w.Header().Set("Location", "/api/v1/resources/"+res.ID.String())
	writeJSON(w, http.StatusCreated, toPayload(res))
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	tenantID := tenant.MustFromContext(r.Context())

	resources, err := h.svc.List(r.Context(), tenantID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	items := make([]resourcePayload, 0, len(resources))
	for _, res := range resources {
		items = append(items, toPayload(res))
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	tenantID := tenant.MustFromContext(r.Context())

	id, err := uuid.Parse(chi.URLParam(r, "resourceID"))
	if err != nil {
		problem.Write(w, problem.Details{
			Type: problem.TypeValidation, Title: "Invalid resource id",
			Status: http.StatusBadRequest,
		})
		return
	}

	res, err := h.svc.Get(r.Context(), tenantID, id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toPayload(res))
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		problem.Write(w, problem.Details{Type: problem.TypeNotFound, Title: "Resource not found", Status: http.StatusNotFound})
	case errors.Is(err, service.ErrInvalidName):
		problem.Write(w, problem.Details{Type: problem.TypeValidation, Title: "Invalid resource name", Status: http.StatusBadRequest})
	default:
		logging.FromRequest(r, h.logger).Error("resource operation failed", zap.Error(err))
		problem.Write(w, problem.Details{Type: problem.TypeInternal, Title: "Internal error", Status: http.StatusInternalServerError})
	}
}

func toPayload(res service.Resource) resourcePayload {
	return resourcePayload{
		ID:          res.ID,
		TenantID:    res.TenantID,
		DisplayName: res.DisplayName,
		Active:      res.Active,
		CreatedAt:   res.CreatedAt,
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
