package etl

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nmoreno/catalogo/internal/files"
	"github.com/nmoreno/catalogo/internal/registry"
)

// newTestPipeline wires a full pipeline over in-memory collaborators.
func newTestPipeline(fs *fakeFiles, reg registry.Registry, rd *fakeReader, cat *fakeCatalog, st *fakeStatuses) *Service {
	regSource := &fakeRegistry{reg: reg}
	return NewService(
		NewExtractor(fs, regSource, rd),
		NewTransformer(regSource),
		NewLoader(cat),
		st,
	)
}

func statusSequence(st *fakeStatuses) []string {
	out := make([]string, len(st.rows))
	for i, r := range st.rows {
		out[i] = r.Status
	}
	return out
}

func TestRun_EndToEnd(t *testing.T) {
	created := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)

	// One supplier file, two data rows, one with a blank price.
	fs := &fakeFiles{infos: []files.Info{
		{Name: "Ferreteria_Productos.xlsx", Path: "/raw/f.xlsx", CreatedAt: &created},
	}}
	rd := &fakeReader{tables: map[string]*Table{"/raw/f.xlsx": {
		Columns: []string{"Código", "Descripcion", "Precio"},
		Rows: [][]string{
			{"A-1", "###TORNILLO M6", "$1,234.50"},
			{"A-2", "TUERCA M6", ""},
		},
	}}}
	cat := &fakeCatalog{}
	st := &fakeStatuses{}

	p := newTestPipeline(fs, registry.Registry{"ferreteria": ferreteriaConfig()}, rd, cat, st)

	require.NoError(t, p.Run(context.Background()))

	// Exactly one record loads; the blank-price row is excluded.
	require.Len(t, cat.appliedInserts, 1)
	assert.Empty(t, cat.appliedUpdates)
	got := cat.appliedInserts[0]
	assert.Equal(t, "A-1", got.Item)
	assert.Equal(t, "TORNILLO M6", got.Name)
	assert.Equal(t, 1234.50, got.Price)
	assert.Equal(t, "ferreteria", got.Provider)
	assert.True(t, got.UpdatedAt.Equal(created))

	// Status history walks the full phase sequence and lands on Finished/100.
	assert.Equal(t, []string{
		StatusRunning, StatusExtracting, StatusTransforming, StatusLoading, StatusFinished,
	}, statusSequence(st))

	last, err := st.Latest(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StatusFinished, last.Status)
	assert.Equal(t, ProgressFinished, last.Progress)
}

func TestRun_ProgressMonotonicWithinRun(t *testing.T) {
	fs := &fakeFiles{infos: []files.Info{{Name: "ferreteria_p.xlsx", Path: "/raw/f.xlsx"}}}
	rd := &fakeReader{tables: map[string]*Table{"/raw/f.xlsx": {
		Columns: []string{"Código", "Descripcion", "Precio"},
		Rows:    [][]string{{"A-1", "TORNILLO", "1.00"}},
	}}}
	st := &fakeStatuses{}

	p := newTestPipeline(fs, registry.Registry{"ferreteria": ferreteriaConfig()}, rd, &fakeCatalog{}, st)
	require.NoError(t, p.Run(context.Background()))

	prev := -1
	for _, row := range st.rows {
		require.GreaterOrEqual(t, row.Progress, prev, "progress must never decrease in a successful run")
		prev = row.Progress
	}
}

func TestRun_EmptyExtractionFailsRun(t *testing.T) {
	st := &fakeStatuses{}
	p := newTestPipeline(&fakeFiles{}, registry.Registry{}, &fakeReader{}, &fakeCatalog{}, st)

	err := p.Run(context.Background())
	require.Error(t, err)

	var exErr *ExtractionError
	require.ErrorAs(t, err, &exErr)

	last, _ := st.Latest(context.Background())
	require.NotNil(t, last)
	assert.Contains(t, last.Status, "Extraction error")
	assert.Equal(t, 0, last.Progress, "failure resets progress to 0")
}

func TestRun_TransformFailureIsBatchFatal(t *testing.T) {
	// Two files; the second provider has no registry entry. Unlike the
	// extractor's per-file isolation, this fails the whole run.
	fs := &fakeFiles{infos: []files.Info{
		{Name: "ferreteria_p.xlsx", Path: "/raw/f.xlsx"},
		{Name: "tornillos_p.xlsx", Path: "/raw/t.xlsx"},
	}}
	raw := &Table{
		Columns: []string{"Código", "Descripcion", "Precio"},
		Rows:    [][]string{{"A-1", "TORNILLO", "1.00"}},
	}
	rd := &fakeReader{tables: map[string]*Table{"/raw/f.xlsx": raw, "/raw/t.xlsx": raw}}
	cat := &fakeCatalog{}
	st := &fakeStatuses{}

	p := newTestPipeline(fs, registry.Registry{"ferreteria": ferreteriaConfig()}, rd, cat, st)

	err := p.Run(context.Background())
	require.Error(t, err)

	var txErr *TransformationError
	require.ErrorAs(t, err, &txErr)
	assert.Equal(t, "tornillos", txErr.Provider, "failure names the offending provider")

	assert.Zero(t, cat.applyCalls, "nothing loads when transformation fails")

	last, _ := st.Latest(context.Background())
	assert.Contains(t, last.Status, "Transformation error")
	assert.Contains(t, last.Status, "tornillos")
	assert.Equal(t, 0, last.Progress)
}

func TestRun_LoadFailureIsClassified(t *testing.T) {
	fs := &fakeFiles{infos: []files.Info{{Name: "ferreteria_p.xlsx", Path: "/raw/f.xlsx"}}}
	rd := &fakeReader{tables: map[string]*Table{"/raw/f.xlsx": {
		Columns: []string{"Código", "Descripcion", "Precio"},
		Rows:    [][]string{{"A-1", "TORNILLO", "1.00"}},
	}}}
	cat := &fakeCatalog{applyErr: errors.New("connection reset")}
	st := &fakeStatuses{}

	p := newTestPipeline(fs, registry.Registry{"ferreteria": ferreteriaConfig()}, rd, cat, st)

	err := p.Run(context.Background())
	require.Error(t, err)

	var ldErr *LoadError
	require.ErrorAs(t, err, &ldErr)

	last, _ := st.Latest(context.Background())
	assert.Contains(t, last.Status, "Load error")
	assert.Equal(t, 0, last.Progress)
}

func TestRun_StatusHistoryAppendsAcrossRuns(t *testing.T) {
	fs := &fakeFiles{infos: []files.Info{{Name: "ferreteria_p.xlsx", Path: "/raw/f.xlsx"}}}
	rd := &fakeReader{tables: map[string]*Table{"/raw/f.xlsx": {
		Columns: []string{"Código", "Descripcion", "Precio"},
		Rows:    [][]string{{"A-1", "TORNILLO", "1.00"}},
	}}}
	st := &fakeStatuses{}

	p := newTestPipeline(fs, registry.Registry{"ferreteria": ferreteriaConfig()}, rd, &fakeCatalog{}, st)

	require.NoError(t, p.Run(context.Background()))
	require.NoError(t, p.Run(context.Background()))

	assert.Len(t, st.rows, 10, "history is appended, never overwritten")
	assert.NotEqual(t, st.rows[0].RunID, st.rows[5].RunID, "each run has its own id")
}

func TestRun_SecondRunUpdatesExistingRecords(t *testing.T) {
	fs := &fakeFiles{infos: []files.Info{{Name: "ferreteria_p.xlsx", Path: "/raw/f.xlsx"}}}
	rd := &fakeReader{tables: map[string]*Table{"/raw/f.xlsx": {
		Columns: []string{"Código", "Descripcion", "Precio"},
		Rows:    [][]string{{"A-1", "TORNILLO", "1.00"}},
	}}}
	cat := &fakeCatalog{}
	st := &fakeStatuses{}

	p := newTestPipeline(fs, registry.Registry{"ferreteria": ferreteriaConfig()}, rd, cat, st)

	require.NoError(t, p.Run(context.Background()))
	require.Len(t, cat.appliedInserts, 1)

	// Simulate the first run's record now existing in the catalog.
	cat.existing = map[string]bool{"A-1": true}

	require.NoError(t, p.Run(context.Background()))
	require.Len(t, cat.appliedUpdates, 1, "same item must update in place, never duplicate")
}
