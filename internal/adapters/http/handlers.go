package web

import (
	"bytes"
	"embed"
	"encoding/json"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/gorilla/csrf"
	"github.com/yuin/goldmark"
	goldmarkHTML "github.com/yuin/goldmark/renderer/html"

	"trainingplan/internal/adapters/http/middleware"
)

//go:embed templates/*.html
var templateFS embed.FS

// mdRenderer is a goldmark instance configured for safe HTML output.
// Raw HTML in markdown input is escaped (WithUnsafe is NOT set).
var mdRenderer = goldmark.New(
	goldmark.WithRendererOptions(
		goldmarkHTML.WithHardWraps(),
	),
)

// messageResponse is the body of every non-document API response.
type messageResponse struct {
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("response_encode_failed", "error", err.Error())
	}
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, messageResponse{Message: message})
}

// apiError logs err and returns it to the API client next to message.
func apiError(w http.ResponseWriter, status int, message string, err error) {
	slog.Error("schedule_api_error", "status", status, "message", message, "error", err.Error())
	writeJSON(w, status, messageResponse{Message: message, Error: err.Error()})
}

// internalError logs the real error and returns a generic message to the client.
func internalError(w http.ResponseWriter, err error) {
	slog.Error("internal_error", "error", err.Error())
	http.Error(w, "internal server error", http.StatusInternalServerError)
}

// requireAdmin writes 403 and returns false when roles are enforced and the caller is not admin.
func requireAdmin(w http.ResponseWriter, r *http.Request) bool {
	if !enforceRoles || middleware.IsAdmin(r.Context()) {
		return true
	}
	slog.Info("auth_event", "event", "forbidden", "method", r.Method, "path", r.URL.Path)
	writeMessage(w, http.StatusForbidden, "Admin role required")
	return false
}

func renderMarkdown(md string) template.HTML {
	var buf bytes.Buffer
	if err := mdRenderer.Convert([]byte(md), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(md))
	}
	return template.HTML(buf.String())
}

func renderTemplate(w http.ResponseWriter, r *http.Request, status int, templateName string, data any) {
	sess, _ := middleware.GetSessionFromContext(r.Context())

	funcMap := template.FuncMap{
		"csrfToken":      func() string { return csrf.Token(r) },
		"displayName":    sess.DisplayName,
		"isAdmin":        sess.IsAdmin,
		"renderMarkdown": renderMarkdown,
	}

	tpl, err := template.New("layout.html").Funcs(funcMap).ParseFS(templateFS, "templates/layout.html", "templates/"+templateName)
	if err != nil {
		internalError(w, err)
		return
	}
	var buf bytes.Buffer
	if err := tpl.Execute(&buf, data); err != nil {
		internalError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}
