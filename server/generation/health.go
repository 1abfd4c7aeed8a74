package generation

import (
	"context"
	"sync"
	"time"

	"github.com/teilomillet/parley/server/metrics"
	"go.uber.org/zap"
)

// DefaultHealthCheckTimeout bounds a single backend health check.
const DefaultHealthCheckTimeout = 5 * time.Second

// HealthStatus represents the current health state of the generation backend.
type HealthStatus struct {
	Healthy          bool          `json:"healthy"`
	LastCheck        time.Time     `json:"last_check"`
	ConsecutiveFails int           `json:"consecutive_fails"`
	Latency          time.Duration `json:"latency"`
	LastError        string        `json:"last_error,omitempty"`
}

// HealthMonitor pings a backend on a fixed interval and keeps the latest
// result. It never changes how requests are served; the circuit breaker
// does that. The monitor only reports.
type HealthMonitor struct {
	target   Pinger
	interval time.Duration
	timeout  time.Duration
	logger   *zap.Logger
	metrics  *metrics.Metrics

	mu     sync.RWMutex
	status HealthStatus
}

// NewHealthMonitor creates a monitor for target. The backend is assumed
// healthy until the first check, since Load has already reached it. m may
// be nil.
func NewHealthMonitor(target Pinger, interval time.Duration, logger *zap.Logger, m *metrics.Metrics) *HealthMonitor {
	if logger == nil {
		logger = zap.NewNop()
	}
	hm := &HealthMonitor{
		target:   target,
		interval: interval,
		timeout:  DefaultHealthCheckTimeout,
		logger:   logger,
		metrics:  m,
		status:   HealthStatus{Healthy: true, LastCheck: time.Now()},
	}
	if m != nil {
		m.BackendHealthy.Set(1)
	}
	return hm
}

// Run checks the backend every interval until ctx is done. A non-positive
// interval disables periodic checks.
func (h *HealthMonitor) Run(ctx context.Context) {
	if h.interval <= 0 {
		return
	}
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.Check(ctx)
		}
	}
}

// Check pings the backend once and records the result.
func (h *HealthMonitor) Check(ctx context.Context) HealthStatus {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	start := time.Now()
	err := h.target.Ping(ctx)
	latency := time.Since(start)

	h.mu.Lock()
	status := HealthStatus{
		Healthy:          err == nil,
		LastCheck:        start,
		Latency:          latency,
		ConsecutiveFails: h.status.ConsecutiveFails,
	}
	if err != nil {
		status.ConsecutiveFails++
		status.LastError = err.Error()
	} else {
		status.ConsecutiveFails = 0
	}
	recovered := err == nil && !h.status.Healthy
	h.status = status
	h.mu.Unlock()

	if h.metrics != nil {
		h.metrics.HealthCheckDuration.Observe(latency.Seconds())
		if err != nil {
			h.metrics.HealthCheckErrors.Inc()
			h.metrics.BackendHealthy.Set(0)
		} else {
			h.metrics.BackendHealthy.Set(1)
		}
	}

	switch {
	case err != nil:
		h.logger.Warn("Generation backend health check failed",
			zap.Error(err),
			zap.Int("consecutive_fails", status.ConsecutiveFails),
			zap.Duration("latency", latency),
		)
	case recovered:
		h.logger.Info("Generation backend recovered", zap.Duration("latency", latency))
	}

	return status
}

// Status returns the result of the most recent check.
func (h *HealthMonitor) Status() HealthStatus {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.status
}
