package main

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/justinas/nosurf"
)

// routes sets up the HTTP router. CSRF protection wraps the whole router when
// enabled in the config.
func (app *application) routes() http.Handler {
	r := chi.NewRouter()

	// --- Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	corsOpts := cors.Options{
		AllowedOrigins:   []string{"http://localhost:*", "http://127.0.0.1:*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", nosurf.HeaderName},
		AllowCredentials: true,
		MaxAge:           300,
	}
	if app.cfg.Server.AllowAllOrigins {
		corsOpts.AllowedOrigins = []string{"*"}
	}
	r.Use(cors.Handler(corsOpts))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// The websocket outlives any request timeout.
	r.Handle("/ws", app.hub)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(60 * time.Second))

		// --- Pages ---
		r.Get("/", app.editorHandler)
		r.Get("/preview", app.previewPageHandler)
		r.Get("/exports/{name}", app.exportPageHandler)

		// --- API ---
		r.Route("/api", func(r chi.Router) {
			r.Get("/toolbox", app.toolboxHandler)
			r.Post("/toolbox", app.importToolboxHandler)
			r.Delete("/toolbox", app.resetHandler)

			r.Post("/categories", app.addCategoryHandler)
			r.Post("/categories/standard", app.loadStandardHandler)
			r.Post("/separators", app.addSeparatorHandler)

			r.Post("/selection", app.selectHandler)
			r.Delete("/selection", app.removeSelectedHandler)
			r.Post("/selection/move", app.moveSelectedHandler)
			r.Put("/selection/name", app.renameSelectedHandler)
			r.Put("/selection/colour", app.colourSelectedHandler)

			r.Put("/workspace", app.syncWorkspaceHandler)
			r.Post("/workspace/undo", app.undoHandler)
			r.Post("/shadows/{blockID}", app.toggleShadowHandler)

			r.Get("/export", app.downloadHandler)
			r.Get("/exports", app.listExportsHandler)
			r.Post("/exports", app.saveExportHandler)
			r.Get("/exports/{name}", app.getExportHandler)
			r.Delete("/exports/{name}", app.deleteExportHandler)

			r.Get("/library", app.libraryHandler)
			r.Post("/library", app.importLibraryHandler)
			r.Get("/block-types", app.blockTypesHandler)
		})
	})

	if !app.cfg.Server.CSRF {
		return r
	}
	csrf := nosurf.New(r)
	csrf.SetBaseCookie(http.Cookie{
		HttpOnly: true,
		Path:     "/",
		SameSite: http.SameSiteLaxMode,
	})
	csrf.SetFailureHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		app.logger.Warn("CSRF check failed", "path", r.URL.Path, "reason", nosurf.Reason(r))
		writeError(w, http.StatusForbidden, "invalid CSRF token")
	}))
	return csrf
}
