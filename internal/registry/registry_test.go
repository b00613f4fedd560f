package registry

import (
	"strings"
	"testing"
)

func validConfig() ProviderConfig {
	return ProviderConfig{
		Extract: ExtractRules{HeaderOffset: 0},
		Transform: TransformRules{ColumnMappings: map[string]string{
			"Código":      "item",
			"Descripcion": "product_name",
			"Precio":      "product_price",
		}},
	}
}

func TestRegistry_Validate_OK(t *testing.T) {
	reg := Registry{"ferreteria": validConfig()}

	if err := reg.Validate(); err != nil {
		t.Fatalf("expected valid registry, got error: %v", err)
	}
}

func TestRegistry_Validate_NegativeHeaderOffset(t *testing.T) {
	cfg := validConfig()
	cfg.Extract.HeaderOffset = -1
	reg := Registry{"ferreteria": cfg}

	err := reg.Validate()
	if err == nil {
		t.Fatal("expected error for negative header_offset")
	}
	if !strings.Contains(err.Error(), "header_offset") {
		t.Errorf("error should mention header_offset, got: %v", err)
	}
}

func TestRegistry_Validate_EmptyMappings(t *testing.T) {
	cfg := validConfig()
	cfg.Transform.ColumnMappings = nil
	reg := Registry{"ferreteria": cfg}

	err := reg.Validate()
	if err == nil {
		t.Fatal("expected error for empty column_mappings")
	}
	if !strings.Contains(err.Error(), "column_mappings") {
		t.Errorf("error should mention column_mappings, got: %v", err)
	}
}

func TestRegistry_Validate_MissingRequiredField(t *testing.T) {
	cfg := validConfig()
	delete(cfg.Transform.ColumnMappings, "Precio")
	reg := Registry{"ferreteria": cfg}

	err := reg.Validate()
	if err == nil {
		t.Fatal("expected error when no column maps to product_price")
	}
	if !strings.Contains(err.Error(), "product_price") {
		t.Errorf("error should name the missing canonical field, got: %v", err)
	}
}

func TestRegistry_Validate_ReportsAllProblemsTogether(t *testing.T) {
	bad := ProviderConfig{
		Extract:   ExtractRules{HeaderOffset: -2},
		Transform: TransformRules{ColumnMappings: map[string]string{"X": "item"}},
	}
	reg := Registry{"uno": bad, "dos": validConfig()}

	err := reg.Validate()
	if err == nil {
		t.Fatal("expected error")
	}
	for _, want := range []string{"header_offset", "product_name", "product_price"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error should mention %q, got: %v", want, err)
		}
	}
}

func TestRegistry_Lookup_Exact(t *testing.T) {
	reg := Registry{"ferreteria": validConfig()}

	if _, ok := reg.Lookup("ferreteria"); !ok {
		t.Error("expected exact lookup to succeed")
	}
}

func TestRegistry_Lookup_SecondChance(t *testing.T) {
	reg := Registry{"ferreteria": validConfig()}

	// Suffix-tagged providers resolve to their base entry.
	if _, ok := reg.Lookup("ferreteria_marzo"); !ok {
		t.Error("expected second-chance lookup on base token to succeed")
	}
	if _, ok := reg.Lookup("tornillos_marzo"); ok {
		t.Error("expected lookup of unregistered provider to fail")
	}
}
