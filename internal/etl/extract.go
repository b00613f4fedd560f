package etl

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/nmoreno/catalogo/internal/registry"
)

// Extractor reads every spreadsheet in the file store into a table,
// resolving each file's provider and honoring that provider's extraction
// rules. Failures are isolated per file: one bad file never aborts the
// batch.
type Extractor struct {
	files  FileStore
	reg    RegistrySource
	reader TableReader
}

// NewExtractor creates an extractor over the given collaborators.
func NewExtractor(files FileStore, reg RegistrySource, reader TableReader) *Extractor {
	return &Extractor{files: files, reg: reg, reader: reader}
}

// Extract scans the file store and returns one Extraction per successfully
// read spreadsheet. Per-file failures are logged and skipped. An empty
// result is not an error at this layer; the orchestrator treats it as a
// batch-level extraction failure.
func (e *Extractor) Extract(log *slog.Logger) ([]Extraction, error) {
	infos, err := e.files.List()
	if err != nil {
		return nil, fmt.Errorf("scan file store: %w", err)
	}

	// The registry is re-read at the start of every invocation, not cached
	// across the run.
	reg := e.reg.Load()

	var out []Extraction
	for _, info := range infos {
		extraction, err := e.extractFile(info.Name, info.Path, reg)
		if err != nil {
			log.Error("skipping file", "file", info.Name, "error", err)
			continue
		}
		extraction.Meta.SourceTime = info.CreatedAt
		if info.CreatedAt == nil {
			log.Warn("file has no readable creation time", "file", info.Name)
		}
		out = append(out, *extraction)
		log.Info("extracted file",
			"file", info.Name,
			"provider", extraction.Meta.Provider,
			"rows", len(extraction.Table.Rows),
		)
	}

	return out, nil
}

// extractFile reads one spreadsheet. Any error it returns aborts only this
// file.
func (e *Extractor) extractFile(name, path string, reg registry.Registry) (*Extraction, error) {
	provider := registry.ResolveProvider(name, reg)

	rules := registry.ExtractRules{}
	cfg, configured := reg[provider]
	if configured {
		rules = cfg.Extract
		if rules.HeaderOffset < 0 {
			return nil, &ExtractionError{File: name, Err: fmt.Errorf(
				"header_offset (%d) for provider %q must be a non-negative integer",
				rules.HeaderOffset, provider)}
		}
	} else {
		slog.Warn("no configuration for provider, using default extraction rules",
			"provider", provider, "file", name)
	}

	table, err := e.reader.Read(path, rules)
	if err != nil {
		var exErr *ExtractionError
		if errors.As(err, &exErr) {
			return nil, err
		}
		return nil, &ExtractionError{File: name, Err: err}
	}

	if configured && len(table.Rows) == 0 {
		return nil, &ExtractionError{File: name, Err: fmt.Errorf(
			"no data rows after applying header_offset/column_selector for provider %q; check the extraction configuration",
			provider)}
	}

	stampProvider(table, provider)

	return &Extraction{
		Table: table,
		Meta:  Metadata{Provider: provider},
	}, nil
}

// stampProvider attaches the resolved provider id as an extra column so the
// provenance travels with the table through the rest of the pipeline.
func stampProvider(t *Table, provider string) {
	if t.HasColumn("provider") {
		idx := t.ColumnIndex("provider")
		for _, row := range t.Rows {
			row[idx] = provider
		}
		return
	}
	t.Columns = append(t.Columns, "provider")
	for i, row := range t.Rows {
		t.Rows[i] = append(row, provider)
	}
}
