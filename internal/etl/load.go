package etl

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/nmoreno/catalogo/internal/catalog"
	"github.com/nmoreno/catalogo/internal/registry"
)

// Loader partitions canonical rows into new vs existing catalog records by
// natural key and persists both sets in two bulk operations inside one
// atomic transaction.
type Loader struct {
	catalog CatalogStore
}

// NewLoader creates a loader over the given catalog store.
func NewLoader(cat CatalogStore) *Loader {
	return &Loader{catalog: cat}
}

// Load builds one catalog record per transformed row and persists the
// batch. The metadata's timestamp wins over any per-row field, so every row
// from one file shares one freshness timestamp. Rows that fail staging are
// logged with their item id and skipped; they do not abort the pass. When
// the same item appears more than once in a run the last occurrence wins,
// so a run never produces duplicate catalog rows for one item.
func (l *Loader) Load(ctx context.Context, batch []Extraction, log *slog.Logger) error {
	staged := make(map[string]catalog.Product)
	var order []string

	for _, ex := range batch {
		itemIdx := ex.Table.ColumnIndex(registry.FieldItem)
		nameIdx := ex.Table.ColumnIndex(registry.FieldName)
		priceIdx := ex.Table.ColumnIndex(registry.FieldPrice)
		if itemIdx < 0 || nameIdx < 0 || priceIdx < 0 {
			log.Error("transformed table is missing canonical columns",
				"provider", ex.Meta.Provider)
			continue
		}

		var updatedAt time.Time
		if ex.Meta.SourceTime != nil {
			updatedAt = *ex.Meta.SourceTime
		}

		for _, row := range ex.Table.Rows {
			item := row[itemIdx]
			price, err := strconv.ParseFloat(row[priceIdx], 64)
			if err != nil {
				log.Error("failed to stage product", "item", item, "error", err)
				continue
			}

			if _, seen := staged[item]; !seen {
				order = append(order, item)
			}
			staged[item] = catalog.Product{
				Item:      item,
				Name:      row[nameIdx],
				Price:     price,
				Provider:  ex.Meta.Provider,
				UpdatedAt: updatedAt,
			}
		}
	}

	if len(order) == 0 {
		log.Info("no records to load")
		return nil
	}

	existing, err := l.catalog.ExistingItems(ctx, order)
	if err != nil {
		return err
	}

	var inserts, updates []catalog.Product
	for _, item := range order {
		if existing[item] {
			updates = append(updates, staged[item])
		} else {
			inserts = append(inserts, staged[item])
		}
	}

	if err := l.catalog.Apply(ctx, inserts, updates); err != nil {
		return err
	}

	log.Info("load complete", "inserted", len(inserts), "updated", len(updates))
	return nil
}
