// internal/api/handler/web/handler.go
package web

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"path/filepath"

	"github.com/newthinker/backtester/internal/form"
	"github.com/newthinker/backtester/internal/pipeline"
	"github.com/newthinker/backtester/internal/session"
	"go.uber.org/zap"
)

//go:embed templates/*
var templateFS embed.FS

// pages lists the page templates, each rendered inside layout.html.
var pages = []string{"backtest.html"}

// Runner runs one submission for a session.
type Runner interface {
	Run(ctx context.Context, sess *session.Session, values form.Values) (pipeline.Outcome, error)
}

// Handler provides web UI handlers with template rendering
type Handler struct {
	// pageTemplates holds separate template instances for each page
	pageTemplates map[string]*template.Template
	runner        Runner
	sessions      *session.Store
	logger        *zap.Logger
}

// NewHandler creates a new web handler with templates loaded from the given directory.
// If templatesDir is empty, it falls back to embedded templates.
func NewHandler(templatesDir string, runner Runner, sessions *session.Store) (*Handler, error) {
	if templatesDir == "" {
		return NewHandlerWithFS(TemplateFS(), runner, sessions)
	}

	pageTemplates := make(map[string]*template.Template)
	for _, page := range pages {
		layoutPath := filepath.Join(templatesDir, "layout.html")
		pagePath := filepath.Join(templatesDir, page)
		tmpl, err := template.ParseFiles(layoutPath, pagePath)
		if err != nil {
			return nil, fmt.Errorf("parsing template %s: %w", page, err)
		}
		pageTemplates[page] = tmpl
	}

	return newHandler(pageTemplates, runner, sessions), nil
}

// NewHandlerWithFS creates a new web handler using a custom filesystem.
// This is useful for testing or custom template sources.
func NewHandlerWithFS(fsys fs.FS, runner Runner, sessions *session.Store) (*Handler, error) {
	pageTemplates := make(map[string]*template.Template)
	for _, page := range pages {
		tmpl, err := template.ParseFS(fsys, "layout.html", page)
		if err != nil {
			return nil, fmt.Errorf("parsing template %s from fs: %w", page, err)
		}
		pageTemplates[page] = tmpl
	}

	return newHandler(pageTemplates, runner, sessions), nil
}

func newHandler(pageTemplates map[string]*template.Template, runner Runner, sessions *session.Store) *Handler {
	return &Handler{
		pageTemplates: pageTemplates,
		runner:        runner,
		sessions:      sessions,
		logger:        zap.NewNop(),
	}
}

// SetLogger sets the logger used for render failures.
func (h *Handler) SetLogger(l *zap.Logger) {
	h.logger = l
}

// render executes the specified page template with the given data
func (h *Handler) render(w http.ResponseWriter, status int, page string, data any) {
	tmpl, ok := h.pageTemplates[page]
	if !ok {
		http.Error(w, "template not found: "+page, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := tmpl.ExecuteTemplate(w, "layout.html", data); err != nil {
		// headers are already out
		h.logger.Error("rendering page", zap.String("page", page), zap.Error(err))
	}
}

// TemplateFS returns the embedded template filesystem for external use.
func TemplateFS() fs.FS {
	subFS, err := fs.Sub(templateFS, "templates")
	if err != nil {
		// This should never happen with valid embed directive
		return templateFS
	}
	return subFS
}
