// Package files lists the raw supplier spreadsheets awaiting consolidation.
// The pipeline reads from this store; uploads, renames and deletions belong
// to the file-management surface.
package files

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Spreadsheet extensions the extractor scans for. Legacy .xls files are
// listed too; if the workbook cannot be parsed the extractor isolates the
// failure to that file.
var spreadsheetExts = map[string]bool{
	".xlsx": true,
	".xlsm": true,
	".xls":  true,
}

// Info describes one raw spreadsheet file.
type Info struct {
	// Name is the bare file name ("ferreteria_productos.xlsx").
	Name string

	// Path is the absolute or store-relative path used to open the file.
	Path string

	// CreatedAt is the file's creation time in the store's reference zone,
	// or nil when the metadata could not be read.
	CreatedAt *time.Time
}

// Dir is a directory-backed file store.
type Dir struct {
	path string
	loc  *time.Location
}

// NewDir creates a file store over the given directory. Timestamps are
// reported in loc; pass nil to use UTC.
func NewDir(path string, loc *time.Location) *Dir {
	if loc == nil {
		loc = time.UTC
	}
	return &Dir{path: path, loc: loc}
}

// List returns the spreadsheet files currently in the directory.
// Metadata-read failures are logged and reported as a nil timestamp rather
// than failing the listing.
func (d *Dir) List() ([]Info, error) {
	entries, err := os.ReadDir(d.path)
	if err != nil {
		return nil, fmt.Errorf("list provider files: %w", err)
	}

	var out []Info
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if !spreadsheetExts[ext] {
			continue
		}

		info := Info{
			Name: entry.Name(),
			Path: filepath.Join(d.path, entry.Name()),
		}
		if fi, err := entry.Info(); err != nil {
			slog.Warn("failed to read file metadata", "file", entry.Name(), "error", err)
		} else {
			t := fi.ModTime().In(d.loc)
			info.CreatedAt = &t
		}
		out = append(out, info)
	}

	return out, nil
}
