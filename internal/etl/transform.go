package etl

import (
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/nmoreno/catalogo/internal/registry"
)

// leadingJunk matches any leading run of characters that are not Latin
// letters, including the accented and ñ forms used in the target locale.
// OCR'd or inconsistently exported spreadsheets often prefix product names
// with stray symbols or markers.
var leadingJunk = regexp.MustCompile(`^[^a-zA-ZáéíóúÁÉÍÓÚñÑ]+`)

// Transformer renames supplier-specific columns to the canonical schema,
// validates required columns, cleans free-text and numeric fields and drops
// rows missing required values.
type Transformer struct {
	reg RegistrySource
}

// NewTransformer creates a transformer over the given registry source.
func NewTransformer(reg RegistrySource) *Transformer {
	return &Transformer{reg: reg}
}

// Transform converts one extracted table into canonical shape.
//
// A (nil, nil) result signals "cannot transform": the provider has no
// registry entry (even after the second-chance lookup on the portion before
// its first underscore) or its column mapping is empty. The caller must
// treat that as a transformation error, not silently drop the table.
func (tr *Transformer) Transform(table *Table, provider string, log *slog.Logger) (*Table, error) {
	reg := tr.reg.Load()

	cfg, ok := reg.Lookup(provider)
	if !ok {
		log.Error("no configuration for provider", "provider", provider)
		return nil, nil
	}
	mappings := cfg.Transform.ColumnMappings
	if len(mappings) == 0 {
		log.Error("no column mappings for provider", "provider", provider)
		return nil, nil
	}

	out := &Table{
		Columns: renameColumns(table.Columns, mappings),
	}

	if err := verifyCanonicalColumns(out, mappings, provider); err != nil {
		return nil, err
	}

	itemIdx := out.ColumnIndex(registry.FieldItem)
	nameIdx := out.ColumnIndex(registry.FieldName)
	priceIdx := out.ColumnIndex(registry.FieldPrice)
	providerIdx := out.ColumnIndex("provider")

	for _, src := range table.Rows {
		row := make([]string, len(out.Columns))
		copy(row, src)

		// Required-field presence is judged on the source cells, before
		// cleaning: a name cleaned down to nothing survives, an empty
		// source cell does not.
		if strings.TrimSpace(row[itemIdx]) == "" ||
			strings.TrimSpace(row[nameIdx]) == "" ||
			strings.TrimSpace(row[priceIdx]) == "" {
			continue
		}

		row[nameIdx] = CleanProductName(row[nameIdx])
		if providerIdx >= 0 {
			row[providerIdx] = provider
		}

		price, err := NormalizePrice(row[priceIdx])
		if err != nil {
			return nil, &TransformationError{Provider: provider, Err: fmt.Errorf(
				"item %q: %w", row[itemIdx], err)}
		}
		row[priceIdx] = strconv.FormatFloat(price, 'f', -1, 64)

		out.Rows = append(out.Rows, row)
	}

	return out, nil
}

// renameColumns applies the raw-to-canonical mapping; unmapped columns are
// left as-is and ignored downstream.
func renameColumns(columns []string, mappings map[string]string) []string {
	renamed := make([]string, len(columns))
	for i, col := range columns {
		if canonical, ok := mappings[col]; ok {
			renamed[i] = canonical
		} else {
			renamed[i] = col
		}
	}
	return renamed
}

// verifyCanonicalColumns checks that every required canonical column exists
// after renaming. Missing columns are reported together in one actionable
// message, named by the raw column the mapping expected to produce them.
func verifyCanonicalColumns(t *Table, mappings map[string]string, provider string) error {
	var missing []string
	for _, canonical := range registry.RequiredFields() {
		if t.HasColumn(canonical) {
			continue
		}
		missing = append(missing, rawColumnFor(canonical, mappings))
	}
	if len(missing) == 0 {
		return nil
	}

	quoted := make([]string, len(missing))
	for i, col := range missing {
		quoted[i] = strconv.Quote(col)
	}
	return &TransformationError{Provider: provider, Err: fmt.Errorf(
		"missing columns %s; check the provider's column_mappings configuration",
		strings.Join(quoted, ", "))}
}

// rawColumnFor reverse-looks-up the raw column name that was supposed to map
// to a canonical field, falling back to the canonical name itself when no
// mapping exists for it.
func rawColumnFor(canonical string, mappings map[string]string) string {
	for raw, mapped := range mappings {
		if mapped == canonical {
			return raw
		}
	}
	return canonical
}

// CleanProductName coerces a product name to clean text: any leading run of
// non-letter characters is stripped and surrounding whitespace trimmed.
// Cleaning is idempotent.
func CleanProductName(name string) string {
	return strings.TrimSpace(leadingJunk.ReplaceAllString(name, ""))
}

// NormalizePrice strips currency symbols and thousands separators (literal
// "$" and ",") and parses the remainder as a decimal number. A price that
// cannot be parsed after stripping is an error, never silently zero.
func NormalizePrice(raw string) (float64, error) {
	stripped := strings.NewReplacer("$", "", ",", "").Replace(strings.TrimSpace(raw))
	price, err := strconv.ParseFloat(stripped, 64)
	if err != nil {
		return 0, fmt.Errorf("price %q cannot be parsed as a number", raw)
	}
	return price, nil
}
