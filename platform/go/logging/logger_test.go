package logging

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewLoggerEmitsCloudSeverity(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger(Config{Component: "test", Level: "debug", Output: &buf})
	require.NoError(t, err)

	logger.Warn("careful", zap.String("k", "v"))
	require.NoError(t, logger.Sync())

	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	require.Equal(t, "WARNING", entry["severity"])
	require.Equal(t, "careful", entry["message"])
	require.Equal(t, "test", entry["component"])
	require.Equal(t, "v", entry["k"])
}

func TestNewLoggerRejectsUnknownLevel(t *testing.T) {
	_, err := NewLogger(Config{Level: "loud"})
	require.Error(t, err)
}

func TestRequestLoggerStoresLoggerOnContext(t *testing.T) {
	var buf bytes.Buffer
	base, err := NewLogger(Config{Output: &buf})
	require.NoError(t, err)

	handler := RequestLogger(base)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, ok := FromContext(r.Context())
		require.True(t, ok)
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/calendar/events", nil))

	require.Equal(t, http.StatusTeapot, rec.Code)
	require.True(t, strings.Contains(buf.String(), `"status":418`))
	require.True(t, strings.Contains(buf.String(), `"path":"/calendar/events"`))
}

func TestNewLoggerServiceContext(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger(Config{Component: "api-server", Version: "photohub-api-00042", Output: &buf})
	require.NoError(t, err)

	logger.Error("boom")
	require.NoError(t, logger.Sync())

	var entry struct {
		Severity       string            `json:"severity"`
		ServiceContext map[string]string `json:"serviceContext"`
	}
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	require.Equal(t, "ERROR", entry.Severity)
	require.Equal(t, map[string]string{"service": "api-server", "version": "photohub-api-00042"}, entry.ServiceContext)
}

func TestNewLoggerFormats(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger(Config{Format: FormatConsole, Output: &buf})
	require.NoError(t, err)
	logger.Info("seeded", zap.Int("events", 3))
	require.NoError(t, logger.Sync())
	require.False(t, json.Valid(bytes.TrimSpace(buf.Bytes())))
	require.Contains(t, buf.String(), "seeded")

	_, err = NewLogger(Config{Format: "xml"})
	require.ErrorContains(t, err, "unknown log format")
}

func TestRequestLoggerSeverityAndAnnotations(t *testing.T) {
	var buf bytes.Buffer
	base, err := NewLogger(Config{Output: &buf})
	require.NoError(t, err)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {})
	mux.HandleFunc("/clients", func(w http.ResponseWriter, r *http.Request) {
		Annotate(r.Context(), zap.String("tenant", "0f8fad5b"))
		w.WriteHeader(http.StatusInternalServerError)
	})
	handler := RequestLogger(base, "/healthz")(mux)

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Empty(t, buf.String())

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/clients", nil))
	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	require.Equal(t, "ERROR", entry["severity"])
	require.Equal(t, "0f8fad5b", entry["tenant"])
	require.EqualValues(t, 500, entry["status"])

	Annotate(httptest.NewRequest(http.MethodGet, "/", nil).Context(), zap.String("ignored", "x"))
}
