package etl

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/nmoreno/catalogo/internal/catalog"
	"github.com/nmoreno/catalogo/internal/files"
	"github.com/nmoreno/catalogo/internal/registry"
	"github.com/nmoreno/catalogo/internal/status"
)

// discardLogger silences pipeline logging in tests.
func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeFiles is an in-memory file store.
type fakeFiles struct {
	infos []files.Info
	err   error
}

func (f *fakeFiles) List() ([]files.Info, error) { return f.infos, f.err }

// fakeRegistry serves a fixed registry document.
type fakeRegistry struct {
	reg registry.Registry
}

func (f *fakeRegistry) Load() registry.Registry { return f.reg }

// fakeReader maps file paths to canned tables or errors.
type fakeReader struct {
	tables map[string]*Table
	errs   map[string]error
}

func (f *fakeReader) Read(path string, rules registry.ExtractRules) (*Table, error) {
	if err, ok := f.errs[path]; ok {
		return nil, err
	}
	if t, ok := f.tables[path]; ok {
		// Return a copy so extraction stamping does not mutate the fixture.
		cp := &Table{Columns: append([]string(nil), t.Columns...)}
		for _, row := range t.Rows {
			cp.Rows = append(cp.Rows, append([]string(nil), row...))
		}
		return cp, nil
	}
	return &Table{}, nil
}

// fakeCatalog is an in-memory catalog store that records Apply calls.
type fakeCatalog struct {
	existing map[string]bool

	appliedInserts []catalog.Product
	appliedUpdates []catalog.Product
	applyCalls     int

	existingErr error
	applyErr    error
}

func (f *fakeCatalog) ExistingItems(_ context.Context, items []string) (map[string]bool, error) {
	if f.existingErr != nil {
		return nil, f.existingErr
	}
	out := make(map[string]bool)
	for _, item := range items {
		if f.existing[item] {
			out[item] = true
		}
	}
	return out, nil
}

func (f *fakeCatalog) Apply(_ context.Context, inserts, updates []catalog.Product) error {
	f.applyCalls++
	if f.applyErr != nil {
		return f.applyErr
	}
	f.appliedInserts = append(f.appliedInserts, inserts...)
	f.appliedUpdates = append(f.appliedUpdates, updates...)
	return nil
}

// fakeStatuses is an in-memory append-only status log.
type fakeStatuses struct {
	rows      []status.Run
	appendErr error
}

func (f *fakeStatuses) Append(_ context.Context, runID, st string, progress int) error {
	if f.appendErr != nil {
		return f.appendErr
	}
	f.rows = append(f.rows, status.Run{
		RunID:     runID,
		Status:    st,
		Progress:  progress,
		StartedAt: time.Now(),
	})
	return nil
}

func (f *fakeStatuses) Latest(_ context.Context) (*status.Run, error) {
	if len(f.rows) == 0 {
		return nil, nil
	}
	r := f.rows[len(f.rows)-1]
	return &r, nil
}

func (f *fakeStatuses) History(_ context.Context, limit int) ([]status.Run, error) {
	out := append([]status.Run(nil), f.rows...)
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

// ferreteriaConfig is a registry entry used across tests.
func ferreteriaConfig() registry.ProviderConfig {
	return registry.ProviderConfig{
		Extract: registry.ExtractRules{HeaderOffset: 0},
		Transform: registry.TransformRules{ColumnMappings: map[string]string{
			"Código":      "item",
			"Descripcion": "product_name",
			"Precio":      "product_price",
		}},
	}
}
