// internal/api/handler/web/handler.go
package web

import (
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"os"

	"github.com/newthinker/btdesk/internal/layout"
	"github.com/newthinker/btdesk/internal/present"
	"github.com/newthinker/btdesk/internal/session"
	"go.uber.org/zap"
)

//go:embed templates/*
var templateFS embed.FS

// pages lists page templates; each is parsed together with layout.html.
var pages = []string{"index.html"}

var funcs = template.FuncMap{
	"money": present.Money,
	"pct": func(v float64) string {
		return fmt.Sprintf("%.0f", v)
	},
}

// Handler provides web UI handlers with template rendering
type Handler struct {
	// pageTemplates holds separate template instances for each page
	// Each instance contains layout.html + the specific page template
	pageTemplates map[string]*template.Template

	sessions *session.Store
	ctrl     *session.Controller
	variant  layout.Variant
	logger   *zap.Logger
}

// NewHandler creates a new web handler with templates loaded from the given directory.
// If templatesDir is empty, it falls back to embedded templates.
func NewHandler(templatesDir string, sessions *session.Store, ctrl *session.Controller) (*Handler, error) {
	var fsys fs.FS
	if templatesDir != "" {
		fsys = os.DirFS(templatesDir)
	} else {
		fsys = TemplateFS()
	}
	return NewHandlerWithFS(fsys, sessions, ctrl)
}

// NewHandlerWithFS creates a new web handler using a custom filesystem.
func NewHandlerWithFS(fsys fs.FS, sessions *session.Store, ctrl *session.Controller) (*Handler, error) {
	pageTemplates := make(map[string]*template.Template)

	for _, page := range pages {
		tmpl, err := template.New(page).Funcs(funcs).ParseFS(fsys, "layout.html", page)
		if err != nil {
			return nil, fmt.Errorf("parsing template %s: %w", page, err)
		}
		pageTemplates[page] = tmpl
	}

	return &Handler{
		pageTemplates: pageTemplates,
		sessions:      sessions,
		ctrl:          ctrl,
		variant:       layout.Wide,
		logger:        zap.NewNop(),
	}, nil
}

// SetVariant sets the panel resize bounds used by the page script.
func (h *Handler) SetVariant(v layout.Variant) {
	h.variant = v
}

// SetLogger sets the handler's logger.
func (h *Handler) SetLogger(l *zap.Logger) {
	if l != nil {
		h.logger = l
	}
}

// render executes the specified page template with the given data
func (h *Handler) render(w http.ResponseWriter, page string, data any) {
	tmpl, ok := h.pageTemplates[page]
	if !ok {
		http.Error(w, "template not found: "+page, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tmpl.ExecuteTemplate(w, "layout.html", data); err != nil {
		h.logger.Error("rendering page", zap.String("page", page), zap.Error(err))
		http.Error(w, err.Error(), http.StatusInternalServerError)
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
