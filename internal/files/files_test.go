package files

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeFile(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestList_OnlySpreadsheets(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "ferreteria_productos.xlsx")
	writeFile(t, dir, "tornillos.XLS")
	writeFile(t, dir, "macros.xlsm")
	writeFile(t, dir, "notas.txt")
	writeFile(t, dir, "listado.csv")
	if err := os.Mkdir(filepath.Join(dir, "archivo.xlsx.d"), 0o755); err != nil {
		t.Fatal(err)
	}

	infos, err := NewDir(dir, nil).List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}

	if len(infos) != 3 {
		t.Fatalf("List() returned %d files, want 3", len(infos))
	}
	for _, info := range infos {
		if info.Name == "notas.txt" || info.Name == "listado.csv" {
			t.Errorf("List() included non-spreadsheet %s", info.Name)
		}
		if info.Path != filepath.Join(dir, info.Name) {
			t.Errorf("Path = %q, want %q", info.Path, filepath.Join(dir, info.Name))
		}
	}
}

func TestList_TimestampInConfiguredZone(t *testing.T) {
	loc, err := time.LoadLocation("America/Argentina/Buenos_Aires")
	if err != nil {
		t.Fatalf("LoadLocation: %v", err)
	}

	dir := t.TempDir()
	writeFile(t, dir, "ferreteria.xlsx")

	infos, err := NewDir(dir, loc).List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(infos) != 1 {
		t.Fatalf("List() returned %d files, want 1", len(infos))
	}

	if infos[0].CreatedAt == nil {
		t.Fatal("CreatedAt = nil, want timestamp")
	}
	if got := infos[0].CreatedAt.Location(); got != loc {
		t.Errorf("CreatedAt zone = %v, want %v", got, loc)
	}
}

func TestList_MissingDirectory(t *testing.T) {
	_, err := NewDir(filepath.Join(t.TempDir(), "nope"), nil).List()
	if err == nil {
		t.Fatal("List() expected error for missing directory")
	}
}
