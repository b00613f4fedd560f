// Package catalog is the persisted product catalog: one normalized record
// per natural key (item), with supplier attribution and a freshness
// timestamp. The loader writes to it in two bulk operations inside one
// transaction per pipeline run.
package catalog

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Product is one catalog record.
type Product struct {
	Item      string
	Name      string
	Price     float64
	Provider  string
	UpdatedAt time.Time
}

// Store persists products in Postgres.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates the catalog store and ensures its schema exists.
func NewStore(ctx context.Context, pool *pgxpool.Pool) (*Store, error) {
	s := &Store{pool: pool}
	if err := s.ensureTable(ctx); err != nil {
		return nil, fmt.Errorf("catalog schema: %w", err)
	}
	return s, nil
}

func (s *Store) ensureTable(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS products (
  item text PRIMARY KEY,
  product_name text NOT NULL,
  product_price numeric(12,2) NOT NULL,
  provider text NOT NULL,
  last_updated timestamptz
);
CREATE INDEX IF NOT EXISTS products_provider_idx ON products (provider);
`
	_, err := s.pool.Exec(ctx, ddl)
	return err
}

// ExistingItems reports which of the given natural keys already have a
// catalog record.
func (s *Store) ExistingItems(ctx context.Context, items []string) (map[string]bool, error) {
	existing := make(map[string]bool, len(items))
	if len(items) == 0 {
		return existing, nil
	}

	rows, err := s.pool.Query(ctx, `SELECT item FROM products WHERE item = ANY($1)`, items)
	if err != nil {
		return nil, fmt.Errorf("query existing items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var item string
		if err := rows.Scan(&item); err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		existing[item] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return existing, nil
}

// Apply persists both staged sets inside one transaction: new records are
// bulk-inserted via the COPY protocol, existing records are bulk-updated in
// a single batch. If either half fails the whole transaction rolls back.
func (s *Store) Apply(ctx context.Context, inserts, updates []Product) error {
	if len(inserts) == 0 && len(updates) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if len(inserts) > 0 {
		rows := make([][]any, len(inserts))
		for i, p := range inserts {
			rows[i] = []any{p.Item, p.Name, p.Price, p.Provider, nullableTime(p.UpdatedAt)}
		}
		copied, err := tx.CopyFrom(ctx,
			pgx.Identifier{"products"},
			[]string{"item", "product_name", "product_price", "provider", "last_updated"},
			pgx.CopyFromRows(rows),
		)
		if err != nil {
			return fmt.Errorf("bulk insert: %w", err)
		}
		if copied != int64(len(inserts)) {
			return fmt.Errorf("bulk insert: copied %d of %d rows", copied, len(inserts))
		}
	}

	if len(updates) > 0 {
		batch := &pgx.Batch{}
		for _, p := range updates {
			batch.Queue(
				`UPDATE products
				 SET product_name = $2, product_price = $3, provider = $4, last_updated = $5
				 WHERE item = $1`,
				p.Item, p.Name, p.Price, p.Provider, nullableTime(p.UpdatedAt),
			)
		}
		br := tx.SendBatch(ctx, batch)
		for range updates {
			if _, err := br.Exec(); err != nil {
				br.Close()
				return fmt.Errorf("bulk update: %w", err)
			}
		}
		if err := br.Close(); err != nil {
			return fmt.Errorf("bulk update close: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// List returns catalog records, optionally filtered by provider, newest
// first by freshness timestamp.
func (s *Store) List(ctx context.Context, provider string, limit, offset int) ([]Product, error) {
	query := `SELECT item, product_name, product_price, provider, last_updated
	          FROM products`
	args := []any{}
	if provider != "" {
		query += ` WHERE provider = $1`
		args = append(args, provider)
	}
	query += fmt.Sprintf(` ORDER BY last_updated DESC NULLS LAST, item LIMIT $%d OFFSET $%d`,
		len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}
	defer rows.Close()

	var out []Product
	for rows.Next() {
		var p Product
		var updated *time.Time
		if err := rows.Scan(&p.Item, &p.Name, &p.Price, &p.Provider, &updated); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		if updated != nil {
			p.UpdatedAt = *updated
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return out, nil
}

// Count returns the number of catalog records, optionally per provider.
func (s *Store) Count(ctx context.Context, provider string) (int64, error) {
	var count int64
	var err error
	if provider == "" {
		err = s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM products`).Scan(&count)
	} else {
		err = s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM products WHERE provider = $1`, provider).Scan(&count)
	}
	if err != nil {
		return 0, fmt.Errorf("count products: %w", err)
	}
	return count, nil
}

// nullableTime maps the zero time to NULL so records from files without
// readable metadata carry no freshness timestamp.
func nullableTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}
