package generation

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/teilomillet/gollm"
	"github.com/teilomillet/parley/config"
	"github.com/teilomillet/parley/errors"
	"github.com/teilomillet/parley/server/circuitbreaker"
	"github.com/teilomillet/parley/server/metrics"
	"go.uber.org/zap"
)

// LLMFactory creates the gollm client for the gollm backend.
type LLMFactory func(provider, model, apiKey string, maxTokens int) (gollm.LLM, error)

// LoadOption adjusts how Load builds the backend.
type LoadOption func(*loadOptions)

type loadOptions struct {
	newLLM LLMFactory
}

// WithLLMFactory replaces NewGollmLLM when building the gollm backend.
func WithLLMFactory(f LLMFactory) LoadOption {
	return func(o *loadOptions) { o.newLLM = f }
}

// Load builds the process-wide Adapter from configuration. It is called once
// at startup; any error means the server must not start. m may be nil.
func Load(ctx context.Context, cfg *config.Config, logger *zap.Logger, m *metrics.Metrics, opts ...LoadOption) (*Adapter, error) {
	lo := loadOptions{newLLM: NewGollmLLM}
	for _, opt := range opts {
		opt(&lo)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	mc := cfg.Model
	logger.Info("Loading generation model",
		zap.String("backend", mc.Backend),
		zap.String("model", mc.Name),
		zap.String("tokenizer", mc.Tokenizer),
	)

	tokenizer, model, err := buildBackend(ctx, mc, lo)
	if err != nil {
		return nil, errors.NewBootstrapError(mc.Backend, err)
	}

	adapterOpts := []Option{WithLogger(logger)}
	var registry *prometheus.Registry
	var waiting prometheus.Gauge
	if m != nil {
		adapterOpts = append(adapterOpts, WithMetrics(m))
		registry = m.Registry()
		waiting = m.GenerationWaiting
	}

	if cfg.CircuitBreaker.Enabled {
		cb, err := circuitbreaker.NewCircuitBreaker(circuitbreaker.Config{
			Name:             mc.Backend,
			MaxRequests:      cfg.CircuitBreaker.MaxRequests,
			Interval:         cfg.CircuitBreaker.Interval,
			Timeout:          cfg.CircuitBreaker.Timeout,
			FailureThreshold: cfg.CircuitBreaker.FailureThreshold,
		}, logger.Named("circuitbreaker"), registry)
		if err != nil {
			return nil, errors.NewBootstrapError(mc.Backend, err)
		}
		adapterOpts = append(adapterOpts, WithBreaker(cb))
	}

	if mc.MaxConcurrency > 0 {
		adapterOpts = append(adapterOpts, WithGate(NewGate(mc.MaxConcurrency, waiting)))
	}

	logger.Info("Generation model loaded",
		zap.String("backend", mc.Backend),
		zap.Int("max_concurrency", mc.MaxConcurrency),
		zap.Bool("circuit_breaker", cfg.CircuitBreaker.Enabled),
	)
	return NewAdapter(tokenizer, model, adapterOpts...), nil
}

func buildBackend(ctx context.Context, mc config.ModelConfig, lo loadOptions) (Tokenizer, Model, error) {
	switch mc.Backend {
	case config.BackendRemote, config.BackendGollm, config.BackendStatic:
	default:
		return nil, nil, fmt.Errorf("%w: %q", ErrUnknownBackend, mc.Backend)
	}

	// Backends are reached before the tokenizer is loaded so an unreachable
	// one fails fast.
	var remote *RemoteModel
	var llm gollm.LLM
	switch mc.Backend {
	case config.BackendRemote:
		remote = NewRemoteModel(mc.Endpoint, mc.Name, nil)
		if err := remote.Ping(ctx); err != nil {
			return nil, nil, err
		}
	case config.BackendGollm:
		var err error
		llm, err = lo.newLLM(mc.Provider, mc.Name, mc.APIKey, FixedOptions.MaxLength)
		if err != nil {
			return nil, nil, err
		}
		if err := (&GollmModel{llm: llm}).Ping(ctx); err != nil {
			return nil, nil, fmt.Errorf("%s provider health check: %w", mc.Provider, err)
		}
	}

	var tokenizer Tokenizer
	if mc.Tokenizer == config.TokenizerRemote {
		if remote == nil {
			return nil, nil, fmt.Errorf("remote tokenizer requires the remote backend")
		}
		tokenizer = remote
	} else {
		tt, err := NewTiktokenTokenizer(mc.Tokenizer)
		if err != nil {
			return nil, nil, err
		}
		tokenizer = tt
	}

	switch mc.Backend {
	case config.BackendRemote:
		return tokenizer, remote, nil
	case config.BackendGollm:
		return tokenizer, NewGollmModel(llm, tokenizer), nil
	default:
		return tokenizer, EchoModel{}, nil
	}
}
