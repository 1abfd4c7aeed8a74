package middleware

import (
	"net/http"

	"github.com/teilomillet/parley/errors"
	"github.com/teilomillet/parley/server/metrics"
	"go.uber.org/zap"
)

// Recovery turns a panic into 500 {"error": "Internal server error"} after
// logging it. m may be nil.
func Recovery(logger *zap.Logger, m *metrics.Metrics) func(http.Handler) http.Handler {
	catchAll := errors.ErrorHandler(logger)
	return func(next http.Handler) http.Handler {
		counted := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if m != nil {
				defer func() {
					if rec := recover(); rec != nil {
						if rec != http.ErrAbortHandler {
							m.ErrorsTotal.WithLabelValues("panic").Inc()
						}
						panic(rec)
					}
				}()
			}
			next.ServeHTTP(w, r)
		})
		return catchAll(counted)
	}
}
