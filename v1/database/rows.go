package database

import (
	"context"
)

// CollectRows drains rows into memory and closes them. A limit > 0 stops
// after that many rows. The context is checked between rows so a cancelled
// query stops consuming.
func CollectRows(ctx context.Context, rows Rows, limit int) ([]string, [][]any, error) {
	defer rows.Close()

	columns := append([]string(nil), rows.Columns()...)
	var out [][]any
	for rows.Next() {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		values, err := rows.Values()
		if err != nil {
			return nil, nil, err
		}
		out = append(out, values)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}
	return columns, out, nil
}
