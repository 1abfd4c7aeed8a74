package generation

import (
	"context"
	"time"

	"github.com/teilomillet/parley/errors"
	"github.com/teilomillet/parley/server/metrics"
	"go.uber.org/zap"
)

// Fault stages, used as the "stage" detail of a generation error.
const (
	StageEncode  = "encode"
	StageExecute = "execute"
	StageDecode  = "decode"
)

// Breaker guards a call. *circuitbreaker.CircuitBreaker satisfies it.
type Breaker interface {
	Execute(func() error) error
}

// Adapter produces replies from a Tokenizer and a Model. It is safe for
// concurrent use and is not modified after construction.
type Adapter struct {
	tokenizer Tokenizer
	model     Model
	options   Options

	breaker Breaker
	gate    *Gate
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithBreaker runs every model call through b.
func WithBreaker(b Breaker) Option {
	return func(a *Adapter) { a.breaker = b }
}

// WithGate limits concurrent model calls.
func WithGate(g *Gate) Option {
	return func(a *Adapter) { a.gate = g }
}

// WithMetrics records durations and faults.
func WithMetrics(m *metrics.Metrics) Option {
	return func(a *Adapter) { a.metrics = m }
}

// WithLogger sets the adapter logger.
func WithLogger(l *zap.Logger) Option {
	return func(a *Adapter) { a.logger = l }
}

// NewAdapter creates an adapter using FixedOptions.
func NewAdapter(tokenizer Tokenizer, model Model, opts ...Option) *Adapter {
	a := &Adapter{
		tokenizer: tokenizer,
		model:     model,
		options:   FixedOptions,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Generate encodes text, runs the model and decodes the best beam. Failures
// are returned as *errors.Error with type GenerationError. Panics raised by
// the tokenizer or model are not recovered.
func (a *Adapter) Generate(ctx context.Context, text string) (string, error) {
	start := time.Now()

	enc, err := a.tokenizer.Encode(text, EncodeOptions{
		MaxLength:      a.options.MaxLength,
		Truncate:       true,
		PadToMaxLength: true,
	})
	if err != nil {
		return "", a.fault(StageEncode, err)
	}

	beams, err := a.execute(ctx, enc)
	if err != nil {
		return "", a.fault(StageExecute, err)
	}
	if len(beams) == 0 {
		return "", a.fault(StageExecute, ErrEmptyOutput)
	}

	reply, err := a.tokenizer.Decode(beams[0], DecodeOptions{SkipSpecialTokens: true})
	if err != nil {
		return "", a.fault(StageDecode, err)
	}

	if a.metrics != nil {
		a.metrics.GenerationDuration.Observe(time.Since(start).Seconds())
	}
	return reply, nil
}

func (a *Adapter) execute(ctx context.Context, enc *Encoding) ([][]int, error) {
	if err := a.gate.Acquire(ctx); err != nil {
		return nil, err
	}
	defer a.gate.Release()

	// Once dispatched, a call runs to completion or failure; only waiting
	// for the gate follows the request's cancellation.
	runCtx := context.WithoutCancel(ctx)
	var beams [][]int
	call := func() error {
		var err error
		beams, err = a.model.Generate(runCtx, enc, a.options)
		return err
	}

	if a.breaker == nil {
		return beams, call()
	}
	err := a.breaker.Execute(call)
	return beams, err
}

// Reply is Generate with failures contained: on error it logs the fault and
// returns Apology.
func (a *Adapter) Reply(ctx context.Context, text string) string {
	reply, err := a.Generate(ctx, text)
	if err != nil {
		a.logger.Error("Error in generation", zap.Error(err))
		return Apology
	}
	a.logger.Debug("Generated reply", zap.String("reply", reply))
	return reply
}

// Ping checks the model backend. Backends without a liveness check are
// always reachable.
func (a *Adapter) Ping(ctx context.Context) error {
	if p, ok := a.model.(Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

func (a *Adapter) fault(stage string, err error) error {
	if a.metrics != nil {
		a.metrics.GenerationFaults.WithLabelValues(stage).Inc()
	}
	return errors.NewGenerationError(stage, err)
}
