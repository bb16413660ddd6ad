package logging_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/atelier-labs/pencilbook/platform/go/logging"
)

func serveWithStatus(t *testing.T, status int) observer.LoggedEntry {
	t.Helper()

	core, logs := observer.New(zapcore.InfoLevel)
	h := logging.RequestLogger(zap.New(core))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, ok := logging.FromContext(r.Context())
		require.True(t, ok)
		w.WriteHeader(status)
	}))

	req := httptest.NewRequest(http.MethodGet, "/bookings", nil)
	h.ServeHTTP(httptest.NewRecorder(), req)

	entries := logs.All()
	require.Len(t, entries, 1)
	return entries[0]
}

func TestRequestLoggerLevelTracksStatus(t *testing.T) {
	cases := []struct {
		status int
		level  zapcore.Level
	}{
		{http.StatusOK, zapcore.InfoLevel},
		{http.StatusNotFound, zapcore.WarnLevel},
		{http.StatusInternalServerError, zapcore.ErrorLevel},
	}

	for _, tc := range cases {
		entry := serveWithStatus(t, tc.status)
		require.Equal(t, tc.level, entry.Level)
		require.Equal(t, "request served", entry.Message)

		fields := entry.ContextMap()
		require.EqualValues(t, tc.status, fields["status"])
		require.Equal(t, http.MethodGet, fields["method"])
		require.Equal(t, "/bookings", fields["path"])
	}
}

func TestFromRequestFallsBack(t *testing.T) {
	fallback := zap.NewNop()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	require.Same(t, fallback, logging.FromRequest(req, fallback))
}
