package store

import (
	"context"
	"database/sql"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
)

// loadableTables whitelists the CSV-loadable tables with their columns.
// The loader maps CSV headers to this set; extra headers are an error so
// a misnamed column fails loudly instead of loading NULLs.
var loadableTables = map[string][]string{
	"shop_groups": {"id", "name", "parent_id", "lft", "rgt", "level"},
	"shops":       {"id", "name", "group_id"},
	"terminals":   {"id", "name", "shop_id"},
	"categories":  {"id", "name", "parent_id", "lft", "rgt", "level"},
	"producers":   {"id", "name"},
	"products":    {"id", "name", "category_id", "producer_id", "article", "barcode"},
	"suppliers":   {"id", "name"},
	"receipts":    {"id", "date", "shop_id", "terminal_id"},
	"cart_items": {"id", "receipt_id", "product_id", "supplier_id", "date",
		"price", "original_price", "qty", "total_price", "margin_price_total"},
}

// LoadableTable reports whether a table accepts CSV loads.
func LoadableTable(table string) bool {
	_, ok := loadableTables[table]
	return ok
}

// LoadCSV bulk-loads one CSV file into a table inside a single
// transaction. The first record must be a header naming a subset of the
// table's columns. Empty cells insert as NULL. Returns the row count.
func (s *Store) LoadCSV(ctx context.Context, table, path string) (int, error) {
	columns, ok := loadableTables[table]
	if !ok {
		return 0, fmt.Errorf("table %q is not loadable", table)
	}

	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	header, err := reader.Read()
	if err != nil {
		return 0, fmt.Errorf("read header of %s: %w", path, err)
	}
	for _, col := range header {
		if !contains(columns, col) {
			return 0, fmt.Errorf("%s: column %q does not exist in table %q", path, col, table)
		}
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(header)), ", ")
	insert := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		table, strings.Join(header, ", "), placeholders)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin load: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, insert)
	if err != nil {
		return 0, fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	count := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return 0, fmt.Errorf("%s row %d: %w", path, count+2, err)
		}

		args := make([]any, len(record))
		for i, cell := range record {
			if cell == "" {
				args[i] = nil
			} else {
				args[i] = cell
			}
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return 0, fmt.Errorf("%s row %d: %w", path, count+2, err)
		}
		count++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit load: %w", err)
	}
	return count, nil
}

// RebuildClosures repopulates the two auxiliary transitive-closure
// tables from the category and shop-group parent chains. Must run after
// loading products, categories, shops or shop groups.
func (s *Store) RebuildClosures(ctx context.Context) error {
	if err := s.rebuildCategoryClosure(ctx); err != nil {
		return fmt.Errorf("rebuild category closure: %w", err)
	}
	if err := s.rebuildShopGroupClosure(ctx); err != nil {
		return fmt.Errorf("rebuild shop-group closure: %w", err)
	}
	return nil
}

func (s *Store) rebuildCategoryClosure(ctx context.Context) error {
	parents, err := s.parentChains(ctx, "categories")
	if err != nil {
		return err
	}

	rows, err := s.db.QueryContext(ctx, "SELECT id, category_id FROM products")
	if err != nil {
		return err
	}
	pairs, err := closurePairs(rows, parents)
	if err != nil {
		return err
	}

	return s.replaceClosure(ctx, "full_category_product", "category_id", "product_id", pairs)
}

func (s *Store) rebuildShopGroupClosure(ctx context.Context) error {
	parents, err := s.parentChains(ctx, "shop_groups")
	if err != nil {
		return err
	}

	rows, err := s.db.QueryContext(ctx, "SELECT id, group_id FROM shops")
	if err != nil {
		return err
	}
	pairs, err := closurePairs(rows, parents)
	if err != nil {
		return err
	}

	return s.replaceClosure(ctx, "full_shop_group_shop", "group_id", "shop_id", pairs)
}

// parentChains reads a self-referencing table's id → parent mapping.
func (s *Store) parentChains(ctx context.Context, table string) (map[int64]int64, error) {
	rows, err := s.db.QueryContext(ctx,
		fmt.Sprintf("SELECT id, COALESCE(parent_id, 0) FROM %s", table))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	parents := map[int64]int64{}
	for rows.Next() {
		var id, parent int64
		if err := rows.Scan(&id, &parent); err != nil {
			return nil, err
		}
		parents[id] = parent
	}
	return parents, rows.Err()
}

type closurePair struct {
	ancestor int64
	member   int64
}

// closurePairs walks each member's ancestor chain, including the direct
// parent relation itself. Parent maps loaded from data could in theory
// contain a cycle; the visited set stops the walk instead of hanging.
func closurePairs(rows *sql.Rows, parents map[int64]int64) ([]closurePair, error) {
	defer rows.Close()

	var pairs []closurePair
	for rows.Next() {
		var member, direct int64
		if err := rows.Scan(&member, &direct); err != nil {
			return nil, err
		}

		visited := map[int64]bool{}
		for ancestor := direct; ancestor != 0 && !visited[ancestor]; ancestor = parents[ancestor] {
			visited[ancestor] = true
			pairs = append(pairs, closurePair{ancestor: ancestor, member: member})
		}
	}
	return pairs, rows.Err()
}

func (s *Store) replaceClosure(ctx context.Context, table, ancestorCol, memberCol string, pairs []closurePair) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
		return err
	}

	insert := fmt.Sprintf("INSERT INTO %s (%s, %s) VALUES (?, ?)", table, ancestorCol, memberCol)
	stmt, err := tx.PrepareContext(ctx, insert)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, pair := range pairs {
		if _, err := stmt.ExecContext(ctx, pair.ancestor, pair.member); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func contains(list []string, item string) bool {
	for _, v := range list {
		if v == item {
			return true
		}
	}
	return false
}
