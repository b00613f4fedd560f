package etl

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/nmoreno/catalogo/internal/registry"
	"github.com/nmoreno/catalogo/internal/status"
)

// Run-status labels, one per pipeline phase. On failure the status becomes
// the failure message itself and progress resets to 0.
const (
	StatusRunning      = "Running"
	StatusExtracting   = "Extracting data"
	StatusTransforming = "Transforming data"
	StatusLoading      = "Loading data"
	StatusFinished     = "Finished"
)

// Progress percentage recorded at each phase boundary.
const (
	ProgressRunning      = 0
	ProgressExtracting   = 10
	ProgressTransforming = 50
	ProgressLoading      = 80
	ProgressFinished     = 100
)

// Service sequences Extract, Transform and Load, records a run-status row at
// every phase boundary, classifies failures by stage and returns the final
// outcome. One run executes synchronously on the invoking goroutine to
// completion or failure; concurrent runs are not guarded here and must be
// serialized by the caller.
type Service struct {
	extractor   *Extractor
	transformer *Transformer
	loader      *Loader
	statuses    StatusStore
}

// NewService wires the pipeline stages together.
func NewService(ex *Extractor, tr *Transformer, ld *Loader, st StatusStore) *Service {
	return &Service{extractor: ex, transformer: tr, loader: ld, statuses: st}
}

// Run executes one end-to-end batch. On failure the run-status record is
// driven to the failure message with progress 0 and the classified error is
// returned to the caller. There are no automatic retries; a failed run must
// be restarted explicitly.
func (s *Service) Run(ctx context.Context) (err error) {
	runID := uuid.New().String()
	log := slog.Default().With("run_id", runID)

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("internal error: %v", r)
		}
		if err != nil {
			log.Error("pipeline run failed", "error", err)
			s.setStatus(ctx, log, runID, FailureMessage(err), ProgressRunning)
		}
	}()

	if err := s.statuses.Append(ctx, runID, StatusRunning, ProgressRunning); err != nil {
		return fmt.Errorf("record run start: %w", err)
	}
	log.Info("pipeline run started")

	// Extract
	s.setStatus(ctx, log, runID, StatusExtracting, ProgressExtracting)
	batch, err := s.extractor.Extract(log)
	if err != nil {
		return &ExtractionError{Err: err}
	}
	if len(batch) == 0 {
		return &ExtractionError{Err: errors.New(
			"no data was extracted; check the provider files and configuration")}
	}
	log.Info("extraction finished", "files", len(batch))

	// Transform. Unlike extraction's per-file isolation, one provider's
	// transformation failure fails the whole run: a bad mapping likely
	// signals a systemic configuration error.
	s.setStatus(ctx, log, runID, StatusTransforming, ProgressTransforming)
	for i := range batch {
		provider := batch[i].Meta.Provider

		transformed, err := s.transformer.Transform(batch[i].Table, provider, log)
		if err != nil {
			return err
		}
		if transformed == nil {
			return &TransformationError{Provider: provider, Err: errors.New(
				"no usable column mapping configuration")}
		}
		if err := requireCanonical(transformed, provider); err != nil {
			return err
		}
		batch[i].Table = transformed
	}
	log.Info("transformation finished")

	// Load
	s.setStatus(ctx, log, runID, StatusLoading, ProgressLoading)
	if err := s.loader.Load(ctx, batch, log); err != nil {
		var ldErr *LoadError
		if errors.As(err, &ldErr) {
			return err
		}
		return &LoadError{Err: err}
	}

	s.setStatus(ctx, log, runID, StatusFinished, ProgressFinished)
	log.Info("pipeline run finished")
	return nil
}

// requireCanonical re-checks the canonical columns on a transformed table.
// The transformer already validates them, but the orchestrator is the last
// gate before load.
func requireCanonical(t *Table, provider string) error {
	var missing []string
	for _, field := range registry.RequiredFields() {
		if !t.HasColumn(field) {
			missing = append(missing, field)
		}
	}
	if len(missing) > 0 {
		return &TransformationError{Provider: provider, Err: fmt.Errorf(
			"transformed data is missing columns: %v", missing)}
	}
	return nil
}

// setStatus appends a status row; append failures are logged but never abort
// a run mid-flight.
func (s *Service) setStatus(ctx context.Context, log *slog.Logger, runID, st string, progress int) {
	if err := s.statuses.Append(ctx, runID, st, progress); err != nil {
		log.Error("failed to record run status", "status", st, "error", err)
	}
}

// Status returns the most recent run-status record, or nil when no run has
// been recorded yet.
func (s *Service) Status(ctx context.Context) (*status.Run, error) {
	return s.statuses.Latest(ctx)
}

// History returns the most recent status rows, newest first.
func (s *Service) History(ctx context.Context, limit int) ([]status.Run, error) {
	return s.statuses.History(ctx, limit)
}
