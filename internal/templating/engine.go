package templating

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"

	"go-toolbox-factory/internal/model"
	"go-toolbox-factory/internal/storage"
)

//go:embed templates/*.html
var templateFS embed.FS

// Pages that use layout.html as a base and define their own "title" and
// "content" blocks.
var pages = []string{
	"editor.html",
	"preview.html",
}

// EditorData is what the editor page renders.
type EditorData struct {
	CSRFToken          string
	Entries            []*model.ListElement
	Selected           string
	StandardCategories []string
	Preview            string
}

// PreviewData is what the standalone preview page renders.
type PreviewData struct {
	Title string
	XML   string
	Info  *model.ExportInfo
}

// Engine handles template parsing and execution.
type Engine struct {
	store storage.ExportStore
	cache map[string]*template.Template
}

// NewEngine parses the embedded pages. The store backs RenderExport and may be nil.
func NewEngine(store storage.ExportStore) (*Engine, error) {
	cache := make(map[string]*template.Template, len(pages))
	for _, page := range pages {
		ts, err := template.ParseFS(templateFS, "templates/layout.html", "templates/"+page)
		if err != nil {
			return nil, fmt.Errorf("error parsing page template %s: %w", page, err)
		}
		cache[page] = ts
	}
	return &Engine{store: store, cache: cache}, nil
}

func (e *Engine) render(page string, data any) (string, error) {
	ts, ok := e.cache[page]
	if !ok {
		return "", fmt.Errorf("template %s not found in cache", page)
	}
	var buf bytes.Buffer
	if err := ts.ExecuteTemplate(&buf, "layout", data); err != nil {
		return "", fmt.Errorf("failed to execute template %s: %w", page, err)
	}
	return buf.String(), nil
}

// RenderEditor renders the editor page.
func (e *Engine) RenderEditor(data EditorData) (string, error) {
	return e.render("editor.html", data)
}

// RenderPreview renders toolbox XML on a standalone page.
func (e *Engine) RenderPreview(toolboxXML string) (string, error) {
	return e.render("preview.html", PreviewData{Title: "Toolbox preview", XML: toolboxXML})
}

// RenderExport loads a saved export and renders it on the preview page.
func (e *Engine) RenderExport(name string) (string, error) {
	if e.store == nil {
		return "", fmt.Errorf("no export store configured")
	}
	// 1. Load the manifest and the XML
	info, err := e.store.LoadInfo(name)
	if err != nil {
		return "", fmt.Errorf("failed to load export %s: %w", name, err)
	}
	xml, err := e.store.LoadExport(name)
	if err != nil {
		return "", fmt.Errorf("failed to load export %s: %w", name, err)
	}

	// 2. Render
	return e.render("preview.html", PreviewData{Title: info.Name, XML: xml, Info: info})
}
