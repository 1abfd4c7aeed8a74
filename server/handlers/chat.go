// Package handlers provides the HTTP handlers for the parley server: the
// chat endpoint, the landing page and the health check.
//
// ChatHandler expects to run behind validation.ValidateChat, which rejects
// empty messages and stores the sanitized request in the context.
package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/teilomillet/parley/errors"
	"github.com/teilomillet/parley/server/metrics"
	"github.com/teilomillet/parley/server/middleware"
	"github.com/teilomillet/parley/server/processing"
	"github.com/teilomillet/parley/server/validation"
	"go.uber.org/zap"
)

// ChatResponse is the 200 body of POST /chat.
type ChatResponse struct {
	Response string `json:"response"`
}

// ChatHandler answers a validated chat message with either the trigger
// response or a generated reply.
type ChatHandler struct {
	processor *processing.Processor
	metrics   *metrics.Metrics
	logger    *zap.Logger
}

// NewChatHandler creates a chat handler. m may be nil.
func NewChatHandler(processor *processing.Processor, m *metrics.Metrics, logger *zap.Logger) *ChatHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChatHandler{
		processor: processor,
		metrics:   m,
		logger:    logger,
	}
}

func (h *ChatHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	logger := h.logger.With(zap.String("request_id", requestID))

	req, ok := validation.FromContext(r.Context())
	if !ok {
		h.fail(w, logger, requestID, fmt.Errorf("chat request missing from context"))
		return
	}

	ctx := processing.WithLogger(r.Context(), logger)
	resp, err := h.processor.ProcessRequest(ctx, &processing.Request{Message: req.Message})
	if err != nil {
		h.fail(w, logger, requestID, err)
		return
	}

	outcome := metrics.OutcomeGenerated
	if resp.Triggered {
		outcome = metrics.OutcomeTriggered
	}
	h.count(outcome)

	logger.Info("Sending response",
		zap.String("response", resp.Content),
		zap.String("outcome", outcome),
	)

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(ChatResponse{Response: resp.Content}); err != nil {
		logger.Error("Failed to write response", zap.Error(err))
	}
}

func (h *ChatHandler) fail(w http.ResponseWriter, logger *zap.Logger, requestID string, err error) {
	errors.LogError(logger, err, requestID)
	h.count(metrics.OutcomeFailed)
	errors.WriteError(w, errors.NewInternalError(requestID, err))
}

func (h *ChatHandler) count(outcome string) {
	if h.metrics != nil {
		h.metrics.ChatOutcomes.WithLabelValues(outcome).Inc()
	}
}
