package validation

import (
	"context"
	"net/http"

	"github.com/teilomillet/parley/errors"
	"github.com/teilomillet/parley/server/metrics"
	"github.com/teilomillet/parley/server/middleware"
	"go.uber.org/zap"
)

type contextKey struct{}

// WithChatRequest stores a validated request in ctx.
func WithChatRequest(ctx context.Context, req *ChatRequest) context.Context {
	return context.WithValue(ctx, contextKey{}, req)
}

// FromContext returns the request stored by ValidateChat.
func FromContext(ctx context.Context) (*ChatRequest, bool) {
	req, ok := ctx.Value(contextKey{}).(*ChatRequest)
	return req, ok
}

// ValidateChat parses and validates /chat bodies before the handler runs.
//
//   - body larger than maxBodyBytes: 413
//   - body not a JSON object: 500 {"error": "Internal server error"}
//   - message empty after sanitizing: 400 {"error": "Message is required"}
//
// On success the ChatRequest is available through FromContext. m may be nil.
func ValidateChat(logger *zap.Logger, maxBodyBytes int64, m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := middleware.GetRequestID(r.Context())
			log := logger.With(zap.String("request_id", requestID))

			if maxBodyBytes > 0 {
				r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
			}

			parsed, err := ParseChatRequest(r.Body)
			if err != nil {
				var tooLarge *http.MaxBytesError
				if errors.As(err, &tooLarge) {
					log.Warn("Request body too large", zap.Int64("limit", tooLarge.Limit))
					countOutcome(m, metrics.OutcomeRejected)
					errors.WriteError(w, errors.NewError(errors.ValidationError, "Request body too large",
						http.StatusRequestEntityTooLarge, requestID, nil, err))
					return
				}
				errors.LogError(log, err, requestID)
				countOutcome(m, metrics.OutcomeFailed)
				errors.WriteError(w, errors.NewInternalError(requestID, err))
				return
			}

			log.Info("Received message",
				zap.String("raw_message", parsed.Raw),
				zap.String("kind", parsed.Kind),
			)
			if parsed.Coerced() {
				log.Warn("Message is not a string, coerced to text",
					zap.String("kind", parsed.Kind),
					zap.String("message", parsed.Raw),
				)
			}
			log.Debug("Sanitized message", zap.String("message", parsed.Request.Message))

			if err := Validate(&parsed.Request); err != nil {
				log.Warn("Rejected chat request",
					zap.String("reason", errors.MessageRequired),
					zap.Error(err),
				)
				countOutcome(m, metrics.OutcomeRejected)
				errors.WriteError(w, errors.NewValidationError(requestID, errors.MessageRequired,
					map[string]interface{}{"field": "message"}))
				return
			}

			next.ServeHTTP(w, r.WithContext(WithChatRequest(r.Context(), &parsed.Request)))
		})
	}
}

func countOutcome(m *metrics.Metrics, outcome string) {
	if m != nil {
		m.ChatOutcomes.WithLabelValues(outcome).Inc()
	}
}
