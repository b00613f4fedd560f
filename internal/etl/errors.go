package etl

import (
	"errors"
	"fmt"
)

// The pipeline's error taxonomy. Extraction errors are file-local: the
// extractor logs them and skips the file. Transformation and load errors are
// batch-fatal: one bad provider mapping likely signals a systemic
// configuration problem, so the orchestrator fails the whole run.

// ExtractionError reports bad per-file extraction configuration or an
// unreadable/empty result.
type ExtractionError struct {
	File string
	Err  error
}

func (e *ExtractionError) Error() string {
	if e.File != "" {
		return fmt.Sprintf("extraction failed for file %q: %v", e.File, e.Err)
	}
	return fmt.Sprintf("extraction failed: %v", e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// TransformationError reports a missing canonical column, an unparsable
// price or an unresolved provider mapping.
type TransformationError struct {
	Provider string
	Err      error
}

func (e *TransformationError) Error() string {
	if e.Provider != "" {
		return fmt.Sprintf("transformation failed for provider %q: %v", e.Provider, e.Err)
	}
	return fmt.Sprintf("transformation failed: %v", e.Err)
}

func (e *TransformationError) Unwrap() error { return e.Err }

// LoadError reports a persistence failure during the bulk insert/update
// transaction.
type LoadError struct {
	Err error
}

func (e *LoadError) Error() string { return fmt.Sprintf("load failed: %v", e.Err) }

func (e *LoadError) Unwrap() error { return e.Err }

// FailureMessage converts any pipeline error into the human-readable message
// recorded on the failed run-status row. Each taxonomy kind produces a
// message specific enough to point at the offending supplier, file or
// column; anything unclassified falls through to a generic message.
func FailureMessage(err error) string {
	var exErr *ExtractionError
	if errors.As(err, &exErr) {
		return fmt.Sprintf("Extraction error: %v", exErr)
	}

	var txErr *TransformationError
	if errors.As(err, &txErr) {
		return fmt.Sprintf("Transformation error: %v", txErr)
	}

	var ldErr *LoadError
	if errors.As(err, &ldErr) {
		return fmt.Sprintf("Load error: %v", ldErr)
	}

	return fmt.Sprintf("Pipeline error: %v", err)
}
