// Package etl implements the three-stage batch pipeline that consolidates
// heterogeneous supplier spreadsheets into the normalized product catalog:
// extract (read raw tables per provider configuration), transform (rename,
// clean and validate against the canonical schema) and load (partition into
// new vs existing records and persist both sets in one transaction).
package etl

import (
	"context"
	"time"

	"github.com/nmoreno/catalogo/internal/catalog"
	"github.com/nmoreno/catalogo/internal/files"
	"github.com/nmoreno/catalogo/internal/registry"
	"github.com/nmoreno/catalogo/internal/status"
)

// Table is an in-memory tabular slice of one source spreadsheet.
// Rows hold raw cell text; typed interpretation happens during transform.
type Table struct {
	Columns []string
	Rows    [][]string
}

// ColumnIndex returns the position of a column by name, or -1 if absent.
func (t *Table) ColumnIndex(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// HasColumn reports whether the table contains a column with the given name.
func (t *Table) HasColumn(name string) bool {
	return t.ColumnIndex(name) >= 0
}

// Metadata is the provenance attached to every extracted table.
type Metadata struct {
	// Provider is the resolved provider identifier.
	Provider string

	// SourceTime is the source file's creation time in the reference zone,
	// or nil when the file metadata could not be read.
	SourceTime *time.Time
}

// Extraction pairs one extracted table with its provenance.
type Extraction struct {
	Table *Table
	Meta  Metadata
}

// TableReader reads one spreadsheet file into a Table honoring the
// provider's extraction rules. Implemented by the sheet package.
type TableReader interface {
	Read(path string, rules registry.ExtractRules) (*Table, error)
}

// FileStore lists the raw spreadsheet files awaiting consolidation.
// The pipeline only ever reads from it.
type FileStore interface {
	List() ([]files.Info, error)
}

// RegistrySource provides the current provider configuration. It is
// consulted at the start of each extract and transform invocation rather
// than cached across the run, so configuration edits mid-run affect later
// files; an accepted, documented hazard.
type RegistrySource interface {
	Load() registry.Registry
}

// CatalogStore is the persisted product catalog.
type CatalogStore interface {
	// ExistingItems reports which of the given natural keys already have a
	// catalog record.
	ExistingItems(ctx context.Context, items []string) (map[string]bool, error)

	// Apply persists both staged sets inside one atomic transaction:
	// bulk-insert of new records, then bulk-update of existing records.
	// Either both succeed or neither is visible.
	Apply(ctx context.Context, inserts, updates []catalog.Product) error
}

// StatusStore is the append-only run-status log.
type StatusStore interface {
	Append(ctx context.Context, runID string, st string, progress int) error
	Latest(ctx context.Context) (*status.Run, error)
	History(ctx context.Context, limit int) ([]status.Run, error)
}
