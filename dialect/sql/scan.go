package sql

import (
	"database/sql"
	"fmt"
)

// ScanOne scans exactly one row into the given destinations. It returns
// sql.ErrNoRows when the result set is empty and an error when it holds
// more than one row.
func ScanOne(rows ColumnScanner, dest ...any) error {
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return err
		}
		return sql.ErrNoRows
	}
	if err := rows.Scan(dest...); err != nil {
		return err
	}
	if rows.Next() {
		return fmt.Errorf("dialect/sql: expected exactly one row, got more")
	}
	return rows.Err()
}

// ScanSlice scans all rows using the given per-row scan function and
// returns the collected values.
func ScanSlice[T any](rows ColumnScanner, scan func(ColumnScanner) (T, error)) ([]T, error) {
	defer rows.Close()
	var out []T
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ScanValue scans a single-column result set into values of type T. It is
// used by generated COUNT and EXISTS queries.
func ScanValue[T any](rows ColumnScanner) (v T, err error) {
	defer rows.Close()
	if !rows.Next() {
		if err = rows.Err(); err != nil {
			return v, err
		}
		return v, sql.ErrNoRows
	}
	if err = rows.Scan(&v); err != nil {
		return v, err
	}
	return v, rows.Err()
}
