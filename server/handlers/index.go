package handlers

import (
	"bytes"
	"embed"
	"encoding/json"
	"html/template"
	"net/http"

	"github.com/teilomillet/parley/server/generation"
	"go.uber.org/zap"
)

//go:embed templates/index.html
var templateFS embed.FS

var indexTemplate = template.Must(template.ParseFS(templateFS, "templates/index.html"))

// IndexData is rendered into the landing page.
type IndexData struct {
	Title    string
	ChatPath string
}

// IndexHandler serves the landing page.
func IndexHandler(logger *zap.Logger) http.HandlerFunc {
	data := IndexData{Title: "Parley", ChatPath: "/chat"}
	return func(w http.ResponseWriter, r *http.Request) {
		var buf bytes.Buffer
		if err := indexTemplate.Execute(&buf, data); err != nil {
			logger.Error("Failed to render landing page", zap.Error(err))
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = buf.WriteTo(w)
	}
}

// HealthHandler reports that the process is up. The model is loaded before
// the server starts listening, so a running server can always generate.
func HealthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// HealthReporter exposes the latest generation backend health check.
type HealthReporter interface {
	Status() generation.HealthStatus
}

// ReadinessHandler answers 200 while the generation backend passed its last
// health check and 503 otherwise. The body carries the check details.
func ReadinessHandler(reporter HealthReporter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := reporter.Status()

		body := struct {
			Status string                  `json:"status"`
			Check  generation.HealthStatus `json:"check"`
		}{Status: "ok", Check: status}

		code := http.StatusOK
		if !status.Healthy {
			body.Status = "unavailable"
			code = http.StatusServiceUnavailable
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(body)
	}
}
