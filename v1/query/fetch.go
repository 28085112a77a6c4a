package query

import (
	"context"
	"errors"

	"github.com/Aleph-Alpha/workbench/v1/database"
	"github.com/Aleph-Alpha/workbench/v1/results"
	"github.com/Aleph-Alpha/workbench/v1/sqlclass"
)

// fetched is what a request produced on the wire.
type fetched struct {
	columns      []string
	rows         [][]any
	pagination   results.Pagination
	rowsAffected int64
	truncated    bool
	queryType    sqlclass.QueryType

	table       database.TableRef
	primaryKey  []string
	metadataErr error

	// written is the table a data or schema change touched.
	written database.TableRef
}

func (f fetched) snapshot(req Request) results.Snapshot {
	return results.Snapshot{
		ID:          req.Identity(),
		Columns:     f.columns,
		Rows:        f.rows,
		Pagination:  f.pagination,
		Table:       f.table,
		PrimaryKey:  f.primaryKey,
		MetadataErr: f.metadataErr,
	}
}

func (e *Engine) fetch(ctx context.Context, h database.Handle, req Request) (fetched, error) {
	if req.IsBrowse() {
		return e.fetchPage(ctx, h, req)
	}
	return e.fetchSQL(ctx, h, req.Text)
}

// fetchPage reads one extra row to learn whether a next page exists.
func (e *Engine) fetchPage(ctx context.Context, h database.Handle, req Request) (fetched, error) {
	ref := *req.Browse
	size := e.pageSize(req)
	page := req.Page
	if page < 0 {
		page = 0
	}

	sql := h.Dialect().BrowseQuery(ref, size+1, results.CalculateOffset(page, size))
	rows, err := h.Query(ctx, sql)
	if err != nil {
		return fetched{}, err
	}
	columns, data, err := database.CollectRows(ctx, rows, size+1)
	if err != nil {
		return fetched{}, err
	}

	f := fetched{
		columns:   columns,
		rows:      data,
		queryType: sqlclass.Select,
		table:     ref,
		pagination: results.Pagination{
			Page:     page,
			PageSize: size,
		},
	}
	if len(f.rows) > size {
		f.rows = f.rows[:size]
		f.pagination.HasNextPage = true
	}
	f.primaryKey, f.metadataErr = e.primaryKey(ctx, h, ref)
	return f, nil
}

func (e *Engine) fetchSQL(ctx context.Context, h database.Handle, text string) (fetched, error) {
	qt := sqlclass.DetectQueryType(text)
	f := fetched{queryType: qt}
	if qt.Modifies() {
		if name, ok := sqlclass.ExtractTableName(text); ok {
			f.written = database.ParseTableRef(name)
		}
	}

	if qt.Modifies() && !sqlclass.HasReturning(text) {
		n, err := h.Exec(ctx, text)
		if err != nil {
			return fetched{}, err
		}
		f.columns = []string{}
		f.rows = [][]any{}
		f.rowsAffected = n
		return f, nil
	}

	rows, err := h.Query(ctx, text)
	if err != nil {
		return fetched{}, err
	}
	columns, data, err := database.CollectRows(ctx, rows, e.cfg.MaxRows+1)
	if err != nil {
		return fetched{}, err
	}
	if len(data) > e.cfg.MaxRows {
		data = data[:e.cfg.MaxRows]
		f.truncated = true
	}
	f.columns, f.rows = columns, data
	if qt.Modifies() {
		f.rowsAffected = int64(len(data))
		return f, nil
	}

	if sqlclass.IsEditable(text) {
		if name, ok := sqlclass.ExtractTableName(text); ok {
			f.table = database.ParseTableRef(name)
			f.primaryKey, f.metadataErr = e.primaryKey(ctx, h, f.table)
		}
	}
	return f, nil
}

// primaryKey never fails the request; errors degrade editing only.
func (e *Engine) primaryKey(ctx context.Context, h database.Handle, ref database.TableRef) ([]string, error) {
	mp, ok := h.(database.MetadataProvider)
	if !ok {
		return nil, errMetadataUnsupported
	}
	pk, err := mp.PrimaryKey(ctx, ref)
	if err != nil {
		e.log.WarnWithContext(ctx, "primary key lookup failed, editing disabled", err, map[string]interface{}{
			"owner": e.owner,
			"table": ref.ID(),
		})
		return nil, err
	}
	return pk, nil
}

var errMetadataUnsupported = errors.New("driver does not describe tables")
