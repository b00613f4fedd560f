package web

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/nmoreno/catalogo/internal/catalog"
	"github.com/nmoreno/catalogo/internal/logging"
	"github.com/nmoreno/catalogo/internal/registry"
	"github.com/nmoreno/catalogo/internal/status"
)

// PipelineService is the pipeline surface the server exposes.
type PipelineService interface {
	Run(ctx context.Context) error
	Status(ctx context.Context) (*status.Run, error)
	History(ctx context.Context, limit int) ([]status.Run, error)
}

// RegistryStore is the provider configuration document store.
type RegistryStore interface {
	Load() registry.Registry
	Save(registry.Registry) error
}

// ProductReader is the catalog read surface.
type ProductReader interface {
	List(ctx context.Context, provider string, limit, offset int) ([]catalog.Product, error)
	Count(ctx context.Context, provider string) (int64, error)
}

// handleRunPipeline triggers one pipeline run. The core does not guard
// concurrent runs, so exclusivity is enforced here: a second call while a
// run is in flight gets 409.
func (s *Server) handleRunPipeline(w http.ResponseWriter, r *http.Request) {
	select {
	case s.running <- struct{}{}:
	default:
		writeError(w, http.StatusConflict, "a pipeline run is already in progress")
		return
	}

	log := logging.FromContext(r.Context())
	log.Info("pipeline run triggered")

	go func() {
		defer func() { <-s.running }()

		ctx, cancel := context.WithTimeout(context.Background(), s.runTimeout)
		defer cancel()

		// The failure is already classified and recorded on the status log;
		// the poller sees it there.
		if err := s.pipeline.Run(ctx); err != nil {
			log.Error("pipeline run failed", "error", err)
		}
	}()

	writeJSON(w, http.StatusAccepted, map[string]string{
		"message": "pipeline run started",
	})
}

// handlePipelineStatus returns the most recent run-status record.
func (s *Server) handlePipelineStatus(w http.ResponseWriter, r *http.Request) {
	run, err := s.pipeline.Status(r.Context())
	if err != nil {
		logging.FromContext(r.Context()).Error("failed to read run status", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to read run status")
		return
	}
	if run == nil {
		writeJSON(w, http.StatusOK, map[string]any{
			"status":   "Not started",
			"progress": 0,
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"run_id":     run.RunID,
		"status":     run.Status,
		"progress":   run.Progress,
		"started_at": run.StartedAt.Format(time.RFC3339),
	})
}

// handleRunHistory returns recent run-status rows, newest first.
func (s *Server) handleRunHistory(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 20)
	if limit < 1 || limit > 200 {
		limit = 20
	}

	runs, err := s.pipeline.History(r.Context(), limit)
	if err != nil {
		logging.FromContext(r.Context()).Error("failed to read run history", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to read run history")
		return
	}

	out := make([]map[string]any, len(runs))
	for i, run := range runs {
		out[i] = map[string]any{
			"run_id":     run.RunID,
			"status":     run.Status,
			"progress":   run.Progress,
			"started_at": run.StartedAt.Format(time.RFC3339),
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": out})
}

// handleGetProviders returns the provider configuration document.
func (s *Server) handleGetProviders(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.registry.Load())
}

// handlePutProviders replaces the provider configuration document after
// shape validation.
func (s *Server) handlePutProviders(w http.ResponseWriter, r *http.Request) {
	var reg registry.Registry
	if err := json.NewDecoder(r.Body).Decode(&reg); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}

	if err := s.registry.Save(reg); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	logging.FromContext(r.Context()).Info("provider configuration replaced",
		"providers", len(reg))
	writeJSON(w, http.StatusOK, map[string]string{"message": "configuration saved"})
}

// handleListProducts returns a page of catalog records.
func (s *Server) handleListProducts(w http.ResponseWriter, r *http.Request) {
	provider := r.URL.Query().Get("provider")
	page := queryInt(r, "page", 1)
	pageSize := queryInt(r, "page_size", 50)
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 500 {
		pageSize = 50
	}

	total, err := s.products.Count(r.Context(), provider)
	if err != nil {
		logging.FromContext(r.Context()).Error("failed to count products", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to read catalog")
		return
	}

	items, err := s.products.List(r.Context(), provider, pageSize, (page-1)*pageSize)
	if err != nil {
		logging.FromContext(r.Context()).Error("failed to list products", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to read catalog")
		return
	}

	type productJSON struct {
		Item        string  `json:"item"`
		Name        string  `json:"product_name"`
		Price       float64 `json:"product_price"`
		Provider    string  `json:"provider"`
		LastUpdated string  `json:"last_updated,omitempty"`
	}

	out := make([]productJSON, len(items))
	for i, p := range items {
		out[i] = productJSON{
			Item:     p.Item,
			Name:     p.Name,
			Price:    p.Price,
			Provider: p.Provider,
		}
		if !p.UpdatedAt.IsZero() {
			out[i].LastUpdated = p.UpdatedAt.Format(time.RFC3339)
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"products":  out,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

// queryInt reads an integer query parameter with a default.
func queryInt(r *http.Request, name string, def int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return v
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
