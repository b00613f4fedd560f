// Package registry holds the per-provider configuration that drives the
// pipeline: how to read each supplier's spreadsheet (extraction rules) and
// how to map its columns onto the canonical catalog schema (transform rules).
//
// The registry is a plain JSON document keyed by provider identifier. It is
// read by the resolver, the extractor and the transformer, and written only
// by the configuration-editing surface after shape validation.
package registry

import (
	"fmt"
	"sort"
	"strings"
)

// Canonical field names every provider mapping must cover.
const (
	FieldItem  = "item"
	FieldName  = "product_name"
	FieldPrice = "product_price"
)

// RequiredFields returns the canonical columns every transformed table must
// contain, in a stable order.
func RequiredFields() []string {
	return []string{FieldItem, FieldName, FieldPrice}
}

// ExtractRules describes how to read one provider's spreadsheet.
type ExtractRules struct {
	// HeaderOffset is the number of rows to skip before the header row.
	HeaderOffset int `json:"header_offset"`

	// ColumnSelector restricts which columns are read, using a
	// spreadsheet-style letter range such as "A:C" or "B,D:F".
	// Empty means read all columns.
	ColumnSelector string `json:"column_selector,omitempty"`
}

// TransformRules describes how to map one provider's columns onto the
// canonical schema.
type TransformRules struct {
	// ColumnMappings maps raw column names, as they appear in the source
	// file, to canonical field names.
	ColumnMappings map[string]string `json:"column_mappings"`
}

// ProviderConfig is one registry entry.
type ProviderConfig struct {
	Extract   ExtractRules   `json:"extract_rules"`
	Transform TransformRules `json:"transform_rules"`
}

// Registry maps provider identifiers to their configuration.
type Registry map[string]ProviderConfig

// Providers returns the registered provider identifiers in sorted order.
func (r Registry) Providers() []string {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Lookup returns the configuration for a provider identifier. When the exact
// identifier is not registered it retries with the portion before the first
// underscore, so suffix-tagged providers ("ferreteria_marzo") still resolve
// to their base entry.
func (r Registry) Lookup(provider string) (ProviderConfig, bool) {
	if cfg, ok := r[provider]; ok {
		return cfg, true
	}
	base := strings.ToLower(strings.SplitN(provider, "_", 2)[0])
	cfg, ok := r[base]
	return cfg, ok
}

// Validate checks the whole registry document for shape errors.
// Every entry must carry a non-negative header offset and a column mapping
// whose values cover all canonical fields. All problems are reported in one
// error so an operator can fix the document in a single pass.
func (r Registry) Validate() error {
	var errs []string

	for _, provider := range r.Providers() {
		cfg := r[provider]

		if cfg.Extract.HeaderOffset < 0 {
			errs = append(errs, fmt.Sprintf(
				"provider %q: header_offset (%d) must be a non-negative integer",
				provider, cfg.Extract.HeaderOffset))
		}

		if len(cfg.Transform.ColumnMappings) == 0 {
			errs = append(errs, fmt.Sprintf(
				"provider %q: transform_rules.column_mappings must not be empty", provider))
			continue
		}

		mapped := make(map[string]bool, len(cfg.Transform.ColumnMappings))
		for _, canonical := range cfg.Transform.ColumnMappings {
			mapped[canonical] = true
		}
		for _, field := range RequiredFields() {
			if !mapped[field] {
				errs = append(errs, fmt.Sprintf(
					"provider %q: column_mappings must map some column to %q",
					provider, field))
			}
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid provider configuration:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
