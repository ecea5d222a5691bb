package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"strings"

	"github.com/beevik/etree"
	"github.com/go-chi/chi/v5"
	"github.com/justinas/nosurf"

	"go-toolbox-factory/internal/controller"
	"go-toolbox-factory/internal/model"
	"go-toolbox-factory/internal/templating"
	"go-toolbox-factory/internal/workspace"
)

const maxBodyBytes = 1 << 20

// toolboxState is the JSON view of the editing session.
type toolboxState struct {
	Entries  []*model.ListElement `json:"entries"`
	Selected string               `json:"selected"`
	Shadows  []string             `json:"shadows"`
	Preview  string               `json:"preview"`
	Alerts   []string             `json:"alerts,omitempty"`
}

// NameRequest is the body of every request that carries a single name.
type NameRequest struct {
	Name string `json:"name"`
}

// AddCategoryRequest adds a category. KeepBlocksAs names the category that
// receives the flyout blocks when the first category is created; empty
// discards them.
type AddCategoryRequest struct {
	Name         string `json:"name"`
	KeepBlocksAs string `json:"keepBlocksAs,omitempty"`
}

// StandardCategoryRequest loads a standard category. Confirm must be set to
// drop blocks that are still in the flyout.
type StandardCategoryRequest struct {
	Name    string `json:"name"`
	Confirm bool   `json:"confirm"`
}

type selectRequest struct {
	ID string `json:"id"`
}

type moveRequest struct {
	Offset int `json:"offset"`
}

type colourRequest struct {
	Colour string `json:"colour"`
}

// withSession runs fn with exclusive access to the session. The prompter
// answers every question the controller asks during fn.
func (app *application) withSession(p *controller.AnswerPrompter, fn func(c *controller.Controller) error) error {
	app.mu.Lock()
	defer app.mu.Unlock()
	if p == nil {
		p = &controller.AnswerPrompter{Accept: true}
	}
	old := app.ctrl.SetPrompter(p)
	defer app.ctrl.SetPrompter(old)
	return fn(app.ctrl)
}

// state must be called with mu held.
func (app *application) state(alerts []string) toolboxState {
	m := app.ctrl.Model()
	selected := ""
	if sel := m.Selected(); sel != nil && sel.Kind != model.KindFlyout {
		selected = sel.ID
	}
	return toolboxState{
		Entries:  m.Entries(),
		Selected: selected,
		Shadows:  m.ShadowBlockIDs(),
		Preview:  app.ctrl.Preview(),
		Alerts:   alerts,
	}
}

// respond writes the session state, or maps err to a status code.
func (app *application) respond(w http.ResponseWriter, status int, p *controller.AnswerPrompter, fn func(c *controller.Controller) error) {
	if p == nil {
		p = &controller.AnswerPrompter{Accept: true}
	}
	var st toolboxState
	err := app.withSession(p, func(c *controller.Controller) error {
		if err := fn(c); err != nil {
			return err
		}
		st = app.state(p.Alerts)
		return nil
	})
	if err != nil {
		app.handleError(w, err)
		return
	}
	writeJSON(w, status, st)
}

// --- Pages ---

func (app *application) editorHandler(w http.ResponseWriter, r *http.Request) {
	var data templating.EditorData
	app.mu.Lock()
	st := app.state(nil)
	app.mu.Unlock()

	data.CSRFToken = nosurf.Token(r)
	data.Entries = st.Entries
	data.Selected = st.Selected
	data.StandardCategories = model.StandardCategoryNames()
	data.Preview = st.Preview

	out, err := app.engine.RenderEditor(data)
	if err != nil {
		app.logger.Error("Error rendering editor", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	writeHTML(w, out)
}

func (app *application) previewPageHandler(w http.ResponseWriter, r *http.Request) {
	app.mu.Lock()
	xml := app.ctrl.Preview()
	app.mu.Unlock()

	out, err := app.engine.RenderPreview(xml)
	if err != nil {
		app.logger.Error("Error rendering preview", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	writeHTML(w, out)
}

func (app *application) exportPageHandler(w http.ResponseWriter, r *http.Request) {
	out, err := app.engine.RenderExport(chi.URLParam(r, "name"))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			http.NotFound(w, r)
			return
		}
		app.logger.Error("Error rendering export", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	writeHTML(w, out)
}

// --- Toolbox ---

func (app *application) toolboxHandler(w http.ResponseWriter, r *http.Request) {
	app.respond(w, http.StatusOK, nil, func(*controller.Controller) error { return nil })
}

func (app *application) importToolboxHandler(w http.ResponseWriter, r *http.Request) {
	root, err := readXMLBody(r)
	if err != nil {
		app.handleError(w, err)
		return
	}
	app.respond(w, http.StatusOK, nil, func(c *controller.Controller) error {
		return c.ImportToolbox(root)
	})
}

func (app *application) resetHandler(w http.ResponseWriter, r *http.Request) {
	app.respond(w, http.StatusOK, nil, func(c *controller.Controller) error {
		c.Reset()
		return nil
	})
}

// --- Entries ---

func (app *application) addCategoryHandler(w http.ResponseWriter, r *http.Request) {
	var req AddCategoryRequest
	if err := decodeJSON(r, &req); err != nil {
		app.handleError(w, err)
		return
	}
	p := &controller.AnswerPrompter{}
	if keep := strings.TrimSpace(req.KeepBlocksAs); keep != "" {
		p.Names = []string{keep}
		p.Accept = true
	}
	app.respond(w, http.StatusCreated, p, func(c *controller.Controller) error {
		_, err := c.AddCategory(req.Name)
		return err
	})
}

func (app *application) loadStandardHandler(w http.ResponseWriter, r *http.Request) {
	var req StandardCategoryRequest
	if err := decodeJSON(r, &req); err != nil {
		app.handleError(w, err)
		return
	}
	app.respond(w, http.StatusCreated, &controller.AnswerPrompter{Accept: req.Confirm}, func(c *controller.Controller) error {
		_, err := c.LoadStandardCategory(req.Name)
		return err
	})
}

func (app *application) addSeparatorHandler(w http.ResponseWriter, r *http.Request) {
	app.respond(w, http.StatusCreated, nil, func(c *controller.Controller) error {
		_, err := c.AddSeparator()
		return err
	})
}

// --- Selection ---

func (app *application) selectHandler(w http.ResponseWriter, r *http.Request) {
	var req selectRequest
	if err := decodeJSON(r, &req); err != nil {
		app.handleError(w, err)
		return
	}
	app.respond(w, http.StatusOK, nil, func(c *controller.Controller) error {
		return c.SwitchElement(req.ID)
	})
}

// removeSelectedHandler deletes the selected entry. The DELETE request is the
// confirmation.
func (app *application) removeSelectedHandler(w http.ResponseWriter, r *http.Request) {
	app.respond(w, http.StatusOK, nil, func(c *controller.Controller) error {
		return c.RemoveSelected()
	})
}

func (app *application) moveSelectedHandler(w http.ResponseWriter, r *http.Request) {
	var req moveRequest
	if err := decodeJSON(r, &req); err != nil {
		app.handleError(w, err)
		return
	}
	app.respond(w, http.StatusOK, nil, func(c *controller.Controller) error {
		return c.MoveSelected(req.Offset)
	})
}

func (app *application) renameSelectedHandler(w http.ResponseWriter, r *http.Request) {
	var req NameRequest
	if err := decodeJSON(r, &req); err != nil {
		app.handleError(w, err)
		return
	}
	app.respond(w, http.StatusOK, nil, func(c *controller.Controller) error {
		return c.RenameSelected(req.Name)
	})
}

func (app *application) colourSelectedHandler(w http.ResponseWriter, r *http.Request) {
	var req colourRequest
	if err := decodeJSON(r, &req); err != nil {
		app.handleError(w, err)
		return
	}
	app.respond(w, http.StatusOK, nil, func(c *controller.Controller) error {
		return c.SetSelectedColor(req.Colour)
	})
}

// --- Workspace ---

func (app *application) syncWorkspaceHandler(w http.ResponseWriter, r *http.Request) {
	root, err := readXMLBody(r)
	if err != nil {
		app.handleError(w, err)
		return
	}
	app.respond(w, http.StatusOK, nil, func(c *controller.Controller) error {
		return c.SyncSurface(root)
	})
}

func (app *application) undoHandler(w http.ResponseWriter, r *http.Request) {
	app.respond(w, http.StatusOK, nil, func(c *controller.Controller) error {
		c.Surface().Undo()
		return nil
	})
}

func (app *application) toggleShadowHandler(w http.ResponseWriter, r *http.Request) {
	blockID := chi.URLParam(r, "blockID")
	var shadow bool
	err := app.withSession(nil, func(c *controller.Controller) error {
		var err error
		shadow, err = c.ToggleShadow(blockID)
		return err
	})
	if err != nil {
		app.handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"blockID": blockID, "shadow": shadow})
}

// --- Export ---

func (app *application) downloadHandler(w http.ResponseWriter, r *http.Request) {
	var out string
	err := app.withSession(nil, func(c *controller.Controller) error {
		var err error
		out, err = c.ExportXML()
		return err
	})
	if err != nil {
		app.handleError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/xml; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="toolbox.xml"`)
	io.WriteString(w, out)
}

func (app *application) saveExportHandler(w http.ResponseWriter, r *http.Request) {
	var req NameRequest
	if err := decodeJSON(r, &req); err != nil {
		app.handleError(w, err)
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		app.handleError(w, model.ErrEmptyName)
		return
	}

	info := &model.ExportInfo{Name: strings.TrimSpace(req.Name)}
	var out string
	err := app.withSession(nil, func(c *controller.Controller) error {
		var err error
		if out, err = c.ExportXML(); err != nil {
			return err
		}
		for _, e := range c.Model().Entries() {
			if e.IsCategory() {
				info.Categories++
			}
		}
		info.BlockTypes = c.UsedBlockTypes()
		return nil
	})
	if err != nil {
		app.handleError(w, err)
		return
	}
	if err := app.store.SaveExport(info, out); err != nil {
		app.handleError(w, err)
		return
	}
	app.logger.Info("Saved export", "name", info.Name, "file", info.File)
	writeJSON(w, http.StatusCreated, info)
}

func (app *application) listExportsHandler(w http.ResponseWriter, r *http.Request) {
	infos, err := app.store.ReadAll()
	if err != nil {
		app.handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, infos)
}

func (app *application) getExportHandler(w http.ResponseWriter, r *http.Request) {
	out, err := app.store.LoadExport(chi.URLParam(r, "name"))
	if err != nil {
		app.handleError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/xml; charset=utf-8")
	io.WriteString(w, out)
}

func (app *application) deleteExportHandler(w http.ResponseWriter, r *http.Request) {
	if err := app.store.DeleteExport(chi.URLParam(r, "name")); err != nil {
		app.handleError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- Block library ---

// libraryHandler returns the definitions of the block types the toolbox
// uses, or every definition with ?all=true.
func (app *application) libraryHandler(w http.ResponseWriter, r *http.Request) {
	app.mu.Lock()
	lib := app.library
	if r.URL.Query().Get("all") != "true" {
		lib = lib.Filter(app.ctrl.UsedBlockTypes())
	}
	out, err := lib.Export()
	app.mu.Unlock()
	if err != nil {
		app.handleError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/xml; charset=utf-8")
	io.WriteString(w, out)
}

func (app *application) importLibraryHandler(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		app.handleError(w, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	app.mu.Lock()
	n, err := app.library.Import(string(body))
	types := app.library.BlockTypes()
	app.mu.Unlock()
	if err != nil {
		app.handleError(w, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"imported": n, "blockTypes": types})
}

func (app *application) blockTypesHandler(w http.ResponseWriter, r *http.Request) {
	app.mu.Lock()
	used := app.ctrl.UsedBlockTypes()
	library := app.library.BlockTypes()
	app.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string][]string{"used": used, "library": library})
}

// --- Helpers ---

var errBadRequest = errors.New("bad request")

func decodeJSON(r *http.Request, v any) error {
	if r.Body == nil {
		return fmt.Errorf("%w: empty body", errBadRequest)
	}
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return nil
}

func readXMLBody(r *http.Request) (*etree.Element, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errBadRequest, err)
	}
	root, err := model.ParseContent(string(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return root, nil
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, model.ErrDuplicateName),
		errors.Is(err, model.ErrDuplicateCategory),
		errors.Is(err, controller.ErrUserCancelled):
		return http.StatusConflict
	case errors.Is(err, model.ErrNotFound),
		errors.Is(err, workspace.ErrBlockNotFound),
		errors.Is(err, fs.ErrNotExist):
		return http.StatusNotFound
	case errors.Is(err, errBadRequest),
		errors.Is(err, model.ErrEmptyName),
		errors.Is(err, model.ErrIndexOutOfBounds),
		errors.Is(err, controller.ErrNoSelection),
		errors.Is(err, controller.ErrUnknownStandardCategory),
		errors.Is(err, controller.ErrInvalidShadow),
		errors.Is(err, controller.ErrInvalidWorkspace),
		errors.Is(err, workspace.ErrInvalidDocument):
		return http.StatusBadRequest
	default:
		// generator.ErrInvalidState lands here: the session should never reach it.
		return http.StatusInternalServerError
	}
}

func (app *application) handleError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		app.logger.Error("Request failed", "error", err)
	} else {
		app.logger.Debug("Request rejected", "status", status, "error", err)
	}
	writeError(w, status, err.Error())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeHTML(w http.ResponseWriter, out string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	io.WriteString(w, out)
}
