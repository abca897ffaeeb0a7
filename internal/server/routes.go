package server

import "github.com/go-chi/chi/v5"

// SetupRoutes registers the report and run history routes.
func SetupRoutes(router chi.Router, h *Handlers) {
	router.Get("/healthz", h.Health)

	router.Route("/reports", func(r chi.Router) {
		r.Get("/", h.ListReports)  // Available report kinds
		r.Get("/{kind}", h.Report) // One report, ?year= overrides the default
	})

	router.Route("/runs", func(r chi.Router) {
		r.Get("/", h.ListRuns)   // Recent runs, ?limit=
		r.Get("/{id}", h.GetRun) // Run with its steps
	})
}
