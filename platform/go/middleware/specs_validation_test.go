package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/atelier-labs/pencilbook/contracts"
	"github.com/atelier-labs/pencilbook/platform/go/middleware"
)

func newValidatedRouter(t *testing.T) *chi.Mux {
	t.Helper()

	validator, err := middleware.NewSpecValidator(contracts.BookingAPI)
	require.NoError(t, err)

	router := chi.NewRouter()
	router.Use(validator)
	router.Post("/api/v1/bookings", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	})
	router.Post("/api/v1/bookings/{bookingID}/transition", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return router
}

func TestSpecValidatorPassesConformingRequests(t *testing.T) {
	router := newValidatedRouter(t)

	body := `{
		"resource_id": "0b7b3f0a-9df6-4e88-8f32-9cfbe3f0d002",
		"start_time": "2026-03-01T10:00:00Z",
		"end_time": "2026-03-01T12:00:00Z"
	}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/bookings", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)
}

func TestSpecValidatorRejectsMissingFields(t *testing.T) {
	router := newValidatedRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/bookings", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSpecValidatorRejectsUnknownTransitionTarget(t *testing.T) {
	router := newValidatedRouter(t)

	body := `{"target": "deleted", "expected_version": 1}`
	req := httptest.NewRequest(http.MethodPost,
		"/api/v1/bookings/0b7b3f0a-9df6-4e88-8f32-9cfbe3f0d001/transition",
		strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}
