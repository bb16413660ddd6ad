package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/atelier-labs/pencilbook/domains/bookings/be/service"
	"github.com/atelier-labs/pencilbook/platform/go/logging"
	"github.com/atelier-labs/pencilbook/platform/go/problem"
	"github.com/atelier-labs/pencilbook/platform/go/tenant"
)

// Handler exposes the booking engine for the calling tenant.
type Handler struct {
	svc    *service.Service
	logger *zap.Logger
}

// New constructs a Handler instance.
func New(svc *service.Service, logger *zap.Logger) *Handler {
	if svc == nil {
		panic("bookings service is required")
	}
	if logger == nil {
		panic("logger is required")
	}
	return &Handler{svc: svc, logger: logger}
}

// Mount registers the booking routes on the given tenant-scoped router.
func (h *Handler) Mount(r chi.Router) {
	r.Post("/bookings", h.create)
	r.Get("/bookings/{bookingID}", h.get)
	r.Post("/bookings/{bookingID}/transition", h.transition)
	r.Get("/availability", h.availability)
}

type bookingPayload struct {
	ID            uuid.UUID  `json:"id"`
	TenantID      uuid.UUID  `json:"tenant_id"`
	ResourceID    uuid.UUID  `json:"resource_id"`
	GroupID       *uuid.UUID `json:"group_id,omitempty"`
	StartTime     time.Time  `json:"start_time"`
	EndTime       time.Time  `json:"end_time"`
	Status        string     `json:"status"`
	HoldExpiresAt *time.Time `json:"hold_expires_at,omitempty"`
	Version       int64      `json:"version"`
	CreatedBy     *string    `json:"created_by,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

type createRequest struct {
	ResourceID  uuid.UUID  `json:"resource_id"`
	GroupID     *uuid.UUID `json:"group_id"`
	StartTime   time.Time  `json:"start_time"`
	EndTime     time.Time  `json:"end_time"`
	HoldSeconds int64      `json:"hold_seconds"`
	CreatedBy   *string    `json:"created_by"`
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

	booking, err := h.svc.Create(r.Context(), service.CreateInput{
		TenantID:   tenantID,
		ResourceID: req.ResourceID,
		GroupID:    req.GroupID,
		Start:      req.StartTime,
		End:        req.EndTime,
		HoldTTL:    time.Duration(req.HoldSeconds) * time.Second,
		CreatedBy:  req.CreatedBy,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	w.Header().Set("Location", "/api/v1/bookings/"+booking.ID.String())
	writeJSON(w, http.StatusCreated, toPayload(booking))
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	tenantID := tenant.MustFromContext(r.Context())

	id, err := uuid.Parse(chi.URLParam(r, "bookingID"))
	if err != nil {
		problem.Write(w, problem.Details{
			Type: problem.TypeValidation, Title: "Invalid booking id",
			Status: http.StatusBadRequest,
		})
		return
	}

	booking, err := h.svc.Get(r.Context(), tenantID, id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toPayload(booking))
}

type transitionRequest struct {
	Target          string  `json:"target"`
	ExpectedVersion int64   `json:"expected_version"`
	Actor           *string `json:"actor"`
	Reason          *string `json:"reason"`
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request) {
	tenantID := tenant.MustFromContext(r.Context())

	id, err := uuid.Parse(chi.URLParam(r, "bookingID"))
	if err != nil {
		problem.Write(w, problem.Details{
			Type: problem.TypeValidation, Title: "Invalid booking id",
			Status: http.StatusBadRequest,
		})
		return
	}

	var req transitionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		problem.Write(w, problem.Details{
			Type: problem.TypeValidation, Title: "Invalid request body",
			Detail: err.Error(), Status: http.StatusBadRequest,
		})
		return
	}

	booking, err := h.svc.Transition(r.Context(), service.TransitionInput{
		TenantID:        tenantID,
		BookingID:       id,
		Target:          service.Status(req.Target),
		ExpectedVersion: req.ExpectedVersion,
		Actor:           req.Actor,
		Reason:          req.Reason,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toPayload(booking))
}

func (h *Handler) availability(w http.ResponseWriter, r *http.Request) {
	tenantID := tenant.MustFromContext(r.Context())

	resourceID, err := uuid.Parse(r.URL.Query().Get("resource_id"))
	if err != nil {
		problem.Write(w, problem.Details{
			Type: problem.TypeValidation, Title: "Invalid resource_id parameter",
			Status: http.StatusBadRequest,
		})
		return
	}
	start, err := time.Parse(time.RFC3339, r.URL.Query().Get("start_time"))
	if err != nil {
		problem.Write(w, problem.Details{
			Type: problem.TypeValidation, Title: "Invalid start_time parameter",
			Status: http.StatusBadRequest,
		})
		return
	}
	end, err := time.Parse(time.RFC3339, r.URL.Query().Get("end_time"))
	if err != nil {
		problem.Write(w, problem.Details{
			Type: problem.TypeValidation, Title: "Invalid end_time parameter",
			Status: http.StatusBadRequest,
		})
		return
	}

	availability, err := h.svc.CheckAvailability(r.Context(), service.AvailabilityInput{
		TenantID:   tenantID,
		ResourceID: resourceID,
		Start:      start,
		End:        end,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	conflicts := make([]bookingPayload, 0, len(availability.Conflicts))
	for _, b := range availability.Conflicts {
		conflicts = append(conflicts, toPayload(b))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"available": availability.Available,
		"conflicts": conflicts,
	})
}

// writeError maps engine errors onto the HTTP surface. Tenant mismatches are
// reported as not found so record existence never leaks across tenants.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var conflict *service.ConflictError
	switch {
	case errors.Is(err, service.ErrInvalidRange):
		problem.Write(w, problem.Details{
			Type: problem.TypeValidation, Title: "Invalid interval",
			Detail: err.Error(), Status: http.StatusBadRequest,
		})
	case errors.Is(err, service.ErrResourceNotFound):
		problem.Write(w, problem.Details{
			Type: problem.TypeNotFound, Title: "Resource not found",
			Status: http.StatusNotFound,
		})
	case errors.Is(err, service.ErrNotFound), errors.Is(err, service.ErrTenantMismatch):
		problem.Write(w, problem.Details{
			Type: problem.TypeNotFound, Title: "Booking not found",
			Status: http.StatusNotFound,
		})
	case errors.Is(err, service.ErrIllegalTransition):
		problem.Write(w, problem.Details{
			Type: problem.TypeTransition, Title: "Illegal status transition",
			Detail: err.Error(), Status: http.StatusUnprocessableEntity,
		})
	case errors.Is(err, service.ErrVersionConflict):
		problem.Write(w, problem.Details{
			Type: problem.TypeConflict, Title: "Stale booking version",
			Detail: "re-read the booking and retry with its current version",
			Status: http.StatusConflict,
		})
	case errors.As(err, &conflict):
		items := make([]bookingPayload, 0, len(conflict.Conflicts))
		for _, b := range conflict.Conflicts {
			items = append(items, toPayload(b))
		}
		problem.Write(w, problem.Details{
			Type: problem.TypeConflict, Title: "Interval conflict",
			Detail: conflict.Error(), Status: http.StatusConflict,
			Extra: map[string]any{"conflicts": items},
		})
	case errors.Is(err, service.ErrBusy):
		w.Header().Set("Retry-After", "1")
		problem.Write(w, problem.Details{
			Type: problem.TypeBusy, Title: "Resource busy",
			Detail: "the resource is being modified, retry shortly",
			Status: http.StatusServiceUnavailable,
		})
	default:
		logging.FromRequest(r, h.logger).Error("booking operation failed", zap.Error(err))
		problem.Write(w, problem.Details{
			Type: problem.TypeInternal, Title: "Internal error",
			Status: http.StatusInternalServerError,
		})
	}
}

func toPayload(b service.Booking) bookingPayload {
	return bookingPayload{
		ID:            b.ID,
		TenantID:      b.TenantID,
		ResourceID:    b.ResourceID,
		GroupID:       b.GroupID,
		StartTime:     b.Start,
		EndTime:       b.End,
		Status:        string(b.Status),
		HoldExpiresAt: b.HoldExpiresAt,
		Version:       b.Version,
		CreatedBy:     b.CreatedBy,
		CreatedAt:     b.CreatedAt,
		UpdatedAt:     b.UpdatedAt,
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
