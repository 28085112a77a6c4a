package mariadb

import (
	"context"
	"database/sql"
	"errors"

	"github.com/Aleph-Alpha/workbench/v1/database"
)

const primaryKeyQuery = `SELECT COLUMN_NAME
FROM information_schema.KEY_COLUMN_USAGE
WHERE TABLE_SCHEMA = COALESCE(NULLIF(?, ''), DATABASE())
  AND TABLE_NAME = ?
  AND CONSTRAINT_NAME = 'PRIMARY'
ORDER BY ORDINAL_POSITION`

type handle struct {
	db   *sql.DB
	conn *sql.Conn
}

var (
	_ database.Handle           = (*handle)(nil)
	_ database.MetadataProvider = (*handle)(nil)
)

func (h *handle) Query(ctx context.Context, query string, args ...any) (database.Rows, error) {
	rows, err := h.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	columns, err := rows.Columns()
	if err != nil {
		_ = rows.Close()
		return nil, err
	}
	return &sqlRows{rows: rows, columns: columns}, nil
}

func (h *handle) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := h.conn.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (h *handle) Ping(ctx context.Context) error {
	return h.conn.PingContext(ctx)
}

func (h *handle) Close(ctx context.Context) error {
	return errors.Join(h.conn.Close(), h.db.Close())
}

func (h *handle) Dialect() database.Dialect {
	return database.DialectMySQL
}

// PrimaryKey implements database.MetadataProvider.
func (h *handle) PrimaryKey(ctx context.Context, ref database.TableRef) ([]string, error) {
	rows, err := h.conn.QueryContext(ctx, primaryKeyQuery, ref.Schema, ref.Table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var columns []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		columns = append(columns, name)
	}
	return columns, rows.Err()
}

type sqlRows struct {
	rows    *sql.Rows
	columns []string
}

func (r *sqlRows) Columns() []string {
	return r.columns
}

func (r *sqlRows) Next() bool {
	return r.rows.Next()
}

// Values scans the current row. Text columns arrive as []byte and are
// returned as strings.
func (r *sqlRows) Values() ([]any, error) {
	values := make([]any, len(r.columns))
	dest := make([]any, len(r.columns))
	for i := range values {
		dest[i] = &values[i]
	}
	if err := r.rows.Scan(dest...); err != nil {
		return nil, err
	}
	for i, v := range values {
		if b, ok := v.([]byte); ok {
			values[i] = string(b)
		}
	}
	return values, nil
}

func (r *sqlRows) Err() error {
	return r.rows.Err()
}

func (r *sqlRows) Close() {
	_ = r.rows.Close()
}
