package web

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"strings"
	"time"

	"github.com/yuin/goldmark"

	"github.com/hpungsan/reblock/internal/block"
	"github.com/hpungsan/reblock/internal/errors"
	"github.com/hpungsan/reblock/internal/logger"
	"github.com/hpungsan/reblock/internal/ops"
	"github.com/hpungsan/reblock/internal/page"
	"github.com/hpungsan/reblock/internal/transform"
)

// PageData contains common fields used across all page templates.
type PageData struct {
	Title   string
	Version string
	Nav     string // active nav item: "scrape", "history"
}

// EditorPageData is the template data for the scrape form and block editor.
type EditorPageData struct {
	PageData
	URL      string
	EntryID  string
	Original block.Blocks
	Modified map[string]string // label -> current modified value
	Actions  []string
}

// HistoryPageData is the template data for the history page.
type HistoryPageData struct {
	PageData
	Items      []page.Summary
	Pagination ops.Pagination
}

// InfoPageData is the template data for the record info page.
type InfoPageData struct {
	PageData
	Page    page.Summary
	Changed int
}

// ChangesPageData is the template data for the original vs changed view.
type ChangesPageData struct {
	PageData
	Changes *ops.ChangedOutput
}

// ErrorPageData is the template data for the error page.
type ErrorPageData struct {
	PageData
	StatusCode int
	Message    string
}

// Renderer manages template parsing and rendering.
type Renderer struct {
	templates map[string]*template.Template
	version   string
	log       logger.Logger
}

// NewRenderer creates a Renderer by parsing templates from the given FS.
func NewRenderer(templateFS fs.FS, version string, log logger.Logger) *Renderer {
	funcMap := template.FuncMap{
		"add":        func(a, b int) int { return a + b },
		"sub":        func(a, b int) int { return a - b },
		"formatTime": formatTime,
		"isImage":    block.IsImage,
		"actionName": actionName,
	}

	// Parse layout as the base template
	layoutTmpl := template.Must(template.New("layout").Funcs(funcMap).ParseFS(templateFS, "layout.html"))

	pages := map[string]string{
		"editor":  "editor.html",
		"history": "history.html",
		"info":    "info.html",
		"changes": "changes.html",
		"error":   "error.html",
	}

	templates := make(map[string]*template.Template, len(pages))
	for name, file := range pages {
		t := template.Must(layoutTmpl.Clone())
		template.Must(t.ParseFS(templateFS, file))
		templates[name] = t
	}

	if log == nil {
		log = logger.NewNop()
	}

	return &Renderer{
		templates: templates,
		version:   version,
		log:       log,
	}
}

// renderPage renders a named page template with the given data and HTTP 200 status.
func (r *Renderer) renderPage(w http.ResponseWriter, req *http.Request, name string, data any) {
	r.renderPageStatus(w, req, http.StatusOK, name, data)
}

// renderPageStatus renders a named page template with the given data and HTTP status code.
// For HTMX requests, only the "content" block is rendered to avoid duplicating the layout.
func (r *Renderer) renderPageStatus(w http.ResponseWriter, req *http.Request, status int, name string, data any) {
	t, ok := r.templates[name]
	if !ok {
		r.log.Error("template not found", logger.String("template", name))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	tmpl := "layout"
	if req != nil && isHTMX(req) {
		tmpl = "content"
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, tmpl, data); err != nil {
		r.log.Error("template execution error", logger.String("template", name), logger.Error(err))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

// renderError renders an error response with content negotiation.
func (r *Renderer) renderError(w http.ResponseWriter, req *http.Request, err error) {
	rErr := errors.As(err)
	status := rErr.Status
	message := rErr.Message

	log := logger.FromContext(req.Context())
	if status >= http.StatusInternalServerError {
		log.Error("request failed", logger.String("code", string(rErr.Code)), logger.String("message", message))
	} else {
		log.Warn("request rejected", logger.String("code", string(rErr.Code)), logger.String("message", message))
	}

	// HTMX request: return HTML fragment
	if isHTMX(req) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(status)
		fmt.Fprintf(w, `<div class="error-message">%s</div>`, template.HTMLEscapeString(message))
		return
	}

	// JSON request
	if wantsJSON(req) {
		renderJSON(w, status, map[string]any{
			"error": map[string]any{
				"code":    string(rErr.Code),
				"message": message,
				"status":  status,
			},
		})
		return
	}

	// Full error page
	r.renderPageStatus(w, req, status, "error", ErrorPageData{
		PageData: PageData{
			Title:   fmt.Sprintf("Error %d", status),
			Version: r.version,
		},
		StatusCode: status,
		Message:    message,
	})
}

// renderJSON writes a JSON response.
func renderJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// renderMarkdown converts generated text to HTML using goldmark.
// Raw HTML in the input is omitted from the output.
func renderMarkdown(md string) template.HTML {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(md), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(md))
	}
	return template.HTML(buf.String())
}

func isHTMX(req *http.Request) bool {
	return req.Header.Get("HX-Request") == "true"
}

// wantsJSON reports whether the client asked for, or sent, JSON.
func wantsJSON(req *http.Request) bool {
	return strings.Contains(req.Header.Get("Accept"), "application/json") ||
		strings.HasPrefix(req.Header.Get("Content-Type"), "application/json")
}

// formatTime formats a Unix timestamp as "2006-01-02 15:04" UTC.
func formatTime(unix int64) string {
	return time.Unix(unix, 0).UTC().Format("2006-01-02 15:04")
}

// actionName turns an action keyword into a button label.
func actionName(action string) string {
	switch action {
	case transform.ActionToneProfessional:
		return "Professional tone"
	case transform.ActionToneSad:
		return "Sad tone"
	case transform.ActionToneFun:
		return "Fun tone"
	}
	if action == "" {
		return ""
	}
	return strings.ToUpper(action[:1]) + action[1:]
}
