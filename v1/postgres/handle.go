package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/Aleph-Alpha/workbench/v1/database"
)

const primaryKeyQuery = `SELECT a.attname
FROM pg_index i
JOIN pg_attribute a ON a.attrelid = i.indrelid AND a.attnum = ANY(i.indkey)
WHERE i.indrelid = $1::regclass AND i.indisprimary
ORDER BY array_position(i.indkey::int2[], a.attnum)`

type handle struct {
	conn *pgx.Conn
}

var (
	_ database.Handle           = (*handle)(nil)
	_ database.MetadataProvider = (*handle)(nil)
)

func (h *handle) Query(ctx context.Context, sql string, args ...any) (database.Rows, error) {
	rows, err := h.conn.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	return &pgRows{rows: rows}, nil
}

func (h *handle) Exec(ctx context.Context, sql string, args ...any) (int64, error) {
	tag, err := h.conn.Exec(ctx, sql, args...)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (h *handle) Ping(ctx context.Context) error {
	return h.conn.Ping(ctx)
}

func (h *handle) Close(ctx context.Context) error {
	return h.conn.Close(ctx)
}

func (h *handle) Dialect() database.Dialect {
	return database.DialectPostgres
}

// PrimaryKey implements database.MetadataProvider.
func (h *handle) PrimaryKey(ctx context.Context, ref database.TableRef) ([]string, error) {
	rows, err := h.conn.Query(ctx, primaryKeyQuery, database.DialectPostgres.QualifiedName(ref))
	if err != nil {
		return nil, err
	}
	columns, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, err
	}
	return columns, nil
}

type pgRows struct {
	rows pgx.Rows
}

func (r *pgRows) Columns() []string {
	fields := r.rows.FieldDescriptions()
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.Name
	}
	return names
}

func (r *pgRows) Next() bool {
	return r.rows.Next()
}

func (r *pgRows) Values() ([]any, error) {
	return r.rows.Values()
}

func (r *pgRows) Err() error {
	err := r.rows.Err()
	if errors.Is(err, pgx.ErrNoRows) {
		return nil
	}
	return err
}

func (r *pgRows) Close() {
	r.rows.Close()
}
