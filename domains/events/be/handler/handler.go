package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	bookings "github.com/atelier-labs/pencilbook/domains/bookings/be/service"
	"github.com/atelier-labs/pencilbook/domains/events/be/service"
	"github.com/atelier-labs/pencilbook/platform/go/logging"
	"github.com/atelier-labs/pencilbook/platform/go/problem"
	"github.com/atelier-labs/pencilbook/platform/go/tenant"
)

const defaultRecentLimit = 100

// Handler exposes booking histories for the calling tenant.
type Handler struct {
	svc    *service.Service
	logger *zap.Logger
}

// New constructs a Handler instance.
func New(svc *service.Service, logger *zap.Logger) *Handler {
	if svc == nil {
		panic("events service is required")
	}
	if logger == nil {
		panic("logger is required")
	}
	return &Handler{svc: svc, logger: logger}
}

// Mount registers the event routes on the given tenant-scoped router.
func (h *Handler) Mount(r chi.Router) {
	r.Get("/bookings/{bookingID}/events", h.history)
	r.Get("/events", h.recent)
}

type eventPayload struct {
	ID          int64           `json:"id"`
	AggregateID uuid.UUID       `json:"booking_id"`
	Type        string          `json:"type"`
	Data        json.RawMessage `json:"data"`
	Version     int64           `json:"version"`
	OccurredAt  time.Time       `json:"occurred_at"`
}

func (h *Handler) history(w http.ResponseWriter, r *http.Request) {
	tenantID := tenant.MustFromContext(r.Context())

	id, err := uuid.Parse(chi.URLParam(r, "bookingID"))
	if err != nil {
		problem.Write(w, problem.Details{
			Type: problem.TypeValidation, Title: "Invalid booking id",
			Status: http.StatusBadRequest,
		})
		return
	}

	fromVersion := int64(0)
	if raw := r.URL.Query().Get("from_version"); raw != "" {
		fromVersion, err = strconv.ParseInt(raw, 10, 64)
		if err != nil || fromVersion < 0 {
			problem.Write(w, problem.Details{
				Type: problem.TypeValidation, Title: "Invalid from_version parameter",
				Status: http.StatusBadRequest,
			})
			return
		}
	}

	events, err := h.svc.History(r.Context(), tenantID, id, fromVersion)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": toPayloads(events)})
}

func (h *Handler) recent(w http.ResponseWriter, r *http.Request) {
	tenantID := tenant.MustFromContext(r.Context())

	limit := defaultRecentLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 || parsed > 1000 {
			problem.Write(w, problem.Details{
				Type: problem.TypeValidation, Title: "Invalid limit parameter",
				Status: http.StatusBadRequest,
			})
			return
		}
		limit = parsed
	}

	events, err := h.svc.Recent(r.Context(), tenantID, limit)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": toPayloads(events)})
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, service.ErrNotFound) {
		problem.Write(w, problem.Details{
			Type: problem.TypeNotFound, Title: "Booking not found",
			Status: http.StatusNotFound,
		})
		return
	}
	logging.FromRequest(r, h.logger).Error("event query failed", zap.Error(err))
	problem.Write(w, problem.Details{
		Type: problem.TypeInternal, Title: "Internal error",
		Status: http.StatusInternalServerError,
	})
}

func toPayloads(events []bookings.Event) []eventPayload {
	items := make([]eventPayload, 0, len(events))
	for _, ev := range events {
		items = append(items, eventPayload{
			ID:          ev.ID,
			AggregateID: ev.AggregateID,
			Type:        ev.Type,
			Data:        ev.Data,
			Version:     ev.Version,
			OccurredAt:  ev.OccurredAt,
		})
	}
	return items
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
