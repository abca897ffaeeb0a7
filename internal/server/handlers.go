package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/leapstack-labs/orderlake/internal/report"
	"github.com/leapstack-labs/orderlake/internal/state"
	"github.com/leapstack-labs/orderlake/pkg/adapter"
)

const (
	defaultRunLimit = 20
	maxRunLimit     = 500
)

// Handlers provides the HTTP handlers of the report API.
type Handlers struct {
	target   string
	reporter adapter.Reporter
	store    state.Store
	opts     report.Options
	logger   *slog.Logger
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(target string, reporter adapter.Reporter, store state.Store, opts report.Options, logger *slog.Logger) *Handlers {
	return &Handlers{
		target:   target,
		reporter: reporter,
		store:    store,
		opts:     opts,
		logger:   logger,
	}
}

// ReportResponse is the body of GET /reports/{kind}.
type ReportResponse struct {
	Target string `json:"target"`
	report.Result
}

// RunResponse is a run with its steps.
type RunResponse struct {
	*state.Run
	Steps []*state.StepRun `json:"steps"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Health reports that the server is up.
func (h *Handlers) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "target": h.target})
}

// ListReports lists the available report kinds.
func (h *Handlers) ListReports(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]report.Kind{"reports": report.Kinds()})
}

// Report runs one report.
func (h *Handlers) Report(w http.ResponseWriter, r *http.Request) {
	kind, err := report.ParseKind(chi.URLParam(r, "kind"))
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}

	opts := h.opts
	if raw := r.URL.Query().Get("year"); raw != "" {
		year, err := strconv.Atoi(raw)
		if err != nil || year < 1 || year > 9999 {
			writeError(w, http.StatusBadRequest, fmt.Errorf("invalid year %q", raw))
			return
		}
		opts.Year = year
	}

	results, err := report.NewRunner(h.reporter, opts, h.logger).Run(r.Context(), kind)
	if err != nil {
		h.logger.Error("report failed", slog.String("kind", string(kind)), slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, ReportResponse{Target: h.target, Result: results[0]})
}

// ListRuns lists recent pipeline runs, newest first.
func (h *Handlers) ListRuns(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		writeError(w, http.StatusNotFound, errors.New("run history is not available"))
		return
	}

	limit := defaultRunLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxRunLimit {
			writeError(w, http.StatusBadRequest, fmt.Errorf("invalid limit %q", raw))
			return
		}
		limit = n
	}

	runs, err := h.store.ListRuns(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if runs == nil {
		runs = []*state.Run{}
	}
	writeJSON(w, http.StatusOK, map[string][]*state.Run{"runs": runs})
}

// GetRun returns one run with its steps.
func (h *Handlers) GetRun(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		writeError(w, http.StatusNotFound, errors.New("run history is not available"))
		return
	}

	id := chi.URLParam(r, "id")
	run, err := h.store.GetRun(r.Context(), id)
	if errors.Is(err, state.ErrNotFound) {
		writeError(w, http.StatusNotFound, err)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	steps, err := h.store.ListSteps(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if steps == nil {
		steps = []*state.StepRun{}
	}
	writeJSON(w, http.StatusOK, RunResponse{Run: run, Steps: steps})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}
