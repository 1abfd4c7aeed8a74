package validation

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/teilomillet/parley/server/metrics"
	"github.com/teilomillet/parley/server/middleware"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestValidateChat(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		expectedStatus int
		expectedError  string
		expectedMsg    string
		outcome        string
	}{
		{name: "valid request", body: `{"message":"Hello"}`, expectedStatus: http.StatusOK, expectedMsg: "Hello"},
		{name: "coerced number", body: `{"message":7}`, expectedStatus: http.StatusOK, expectedMsg: "7"},
		{name: "empty message", body: `{"message":""}`, expectedStatus: http.StatusBadRequest, expectedError: "Message is required", outcome: metrics.OutcomeRejected},
		{name: "missing message", body: `{}`, expectedStatus: http.StatusBadRequest, expectedError: "Message is required", outcome: metrics.OutcomeRejected},
		{name: "null message", body: `{"message":null}`, expectedStatus: http.StatusBadRequest, expectedError: "Message is required", outcome: metrics.OutcomeRejected},
		{name: "non-ascii only", body: `{"message":"日本"}`, expectedStatus: http.StatusBadRequest, expectedError: "Message is required", outcome: metrics.OutcomeRejected},
		{name: "malformed body", body: `{"message":`, expectedStatus: http.StatusInternalServerError, expectedError: "Internal server error", outcome: metrics.OutcomeFailed},
		{name: "array body", body: `[1,2]`, expectedStatus: http.StatusInternalServerError, expectedError: "Internal server error", outcome: metrics.OutcomeFailed},
		{name: "too large", body: `{"message":"` + strings.Repeat("a", 100) + `"}`, expectedStatus: http.StatusRequestEntityTooLarge, expectedError: "Request body too large", outcome: metrics.OutcomeRejected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := metrics.NewMetrics()
			var got *ChatRequest
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				req, ok := FromContext(r.Context())
				require.True(t, ok)
				got = req
			})
			handler := middleware.RequestID(ValidateChat(zap.NewNop(), 64, m)(next))

			req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.expectedStatus, rec.Code)
			if tt.expectedError != "" {
				assert.Nil(t, got, "handler must not run")
				assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
				var body map[string]string
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
				assert.Equal(t, map[string]string{"error": tt.expectedError}, body)
			} else {
				require.NotNil(t, got)
				assert.Equal(t, tt.expectedMsg, got.Message)
			}
			if tt.outcome != "" {
				assert.Equal(t, float64(1), testutil.ToFloat64(m.ChatOutcomes.WithLabelValues(tt.outcome)))
			}
		})
	}
}

func TestValidateChatLogsCoercion(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	handler := ValidateChat(zap.New(core), 0, nil)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))

	req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(`{"message":[1,2]}`))
	handler.ServeHTTP(httptest.NewRecorder(), req)

	warnings := logs.FilterMessage("Message is not a string, coerced to text").All()
	require.Len(t, warnings, 1)
	assert.Equal(t, zapcore.WarnLevel, warnings[0].Level)
	assert.Equal(t, KindArray, warnings[0].ContextMap()["kind"])
	assert.Equal(t, "[1,2]", warnings[0].ContextMap()["message"])

	assert.Len(t, logs.FilterMessage("Received message").All(), 1)
	assert.Len(t, logs.FilterMessage("Sanitized message").All(), 1)
}
