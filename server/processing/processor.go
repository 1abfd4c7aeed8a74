package processing

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Processor runs the normalize → classify → dispatch steps for a request.
// It holds no per-request state and is safe for concurrent use.
type Processor struct {
	classifier *Classifier
	generator  Generator
	logger     *zap.Logger
}

// NewProcessor creates a processor that dispatches untriggered messages to
// generator. It fails fast when a collaborator is missing.
func NewProcessor(generator Generator, classifier *Classifier, logger *zap.Logger) (*Processor, error) {
	if generator == nil {
		return nil, fmt.Errorf("generator is required")
	}
	if classifier == nil {
		classifier = defaultClassifier
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Processor{
		classifier: classifier,
		generator:  generator,
		logger:     logger,
	}, nil
}

// ProcessRequest normalizes req.Message, checks it for the trigger keyword
// and either returns TriggerResponse or the generator's reply.
func (p *Processor) ProcessRequest(ctx context.Context, req *Request) (*Response, error) {
	if req == nil {
		return nil, fmt.Errorf("request cannot be nil")
	}
	logger := p.logger
	if l, ok := ctx.Value(loggerKey{}).(*zap.Logger); ok {
		logger = l
	}

	normalized := Normalize(req.Message)
	logger.Debug("Normalized message",
		zap.String("raw_message", req.Message),
		zap.String("normalized_message", normalized),
	)

	triggered := p.classifier.IsTriggered(normalized)
	logger.Debug("Trigger check",
		zap.Strings("tokens", Tokens(normalized)),
		zap.String("keyword", p.classifier.keyword),
		zap.Bool("triggered", triggered),
	)

	resp := &Response{Normalized: normalized, Triggered: triggered}
	if triggered {
		logger.Info("Trigger keyword detected, skipping generation",
			zap.String("keyword", p.classifier.keyword),
		)
		resp.Content = TriggerResponse
		return resp, nil
	}

	logger.Info("No trigger keyword detected, calling generator")
	resp.Content = p.generator.Reply(ctx, normalized)
	return resp, nil
}

type loggerKey struct{}

// WithLogger attaches a request-scoped logger that ProcessRequest uses in
// place of its own.
func WithLogger(ctx context.Context, logger *zap.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}
