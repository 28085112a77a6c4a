package query

import (
	"time"

	"github.com/Aleph-Alpha/workbench/v1/database"
	"github.com/Aleph-Alpha/workbench/v1/results"
	"github.com/Aleph-Alpha/workbench/v1/sqlclass"
)

// Request is either free SQL or a page of a table.
type Request struct {
	// Text is the SQL of a free query.
	Text string

	// Browse selects a table page instead of Text.
	Browse *database.TableRef

	// Page is 0-based. PageSize <= 0 uses the engine default.
	Page     int
	PageSize int

	// Force skips the cache for browse requests.
	Force bool
}

// SQL returns a free query request.
func SQL(text string) Request {
	return Request{Text: text}
}

// Browse returns a request for one page of ref.
func Browse(ref database.TableRef, page, pageSize int) Request {
	return Request{Browse: &ref, Page: page, PageSize: pageSize}
}

// IsBrowse reports whether r pages through a table.
func (r Request) IsBrowse() bool {
	return r.Browse != nil
}

// Identity is the cache key of the result r produces.
func (r Request) Identity() string {
	if r.IsBrowse() {
		return results.BrowseIdentity(*r.Browse)
	}
	return results.SQLIdentity(r.Text)
}

func (r Request) operation() string {
	if r.IsBrowse() {
		return "browse"
	}
	return "execute"
}

// Outcome is the result of one request. It is produced once and not
// modified afterwards.
type Outcome struct {
	Success bool

	Columns []string
	Rows    [][]any
	Elapsed time.Duration

	// Err is set when Success is false.
	Err *QueryError

	Pagination  results.Pagination
	HasNextPage bool

	// RowsAffected is set for statements run without a result set.
	RowsAffected int64

	// Truncated is set when free SQL returned more than Config.MaxRows rows.
	Truncated bool

	QueryType sqlclass.QueryType
	Version   results.Version
	FromCache bool

	// Table, PrimaryKey and Editable describe whether rows can be edited.
	Table      database.TableRef
	PrimaryKey []string
	Editable   bool

	// MetadataErr is the non-fatal primary key lookup failure, if any.
	MetadataErr error
}

func outcomeFromSnapshot(s results.Snapshot) Outcome {
	return Outcome{
		Success:     true,
		Columns:     s.Columns,
		Rows:        s.Rows,
		Pagination:  s.Pagination,
		HasNextPage: s.Pagination.HasNextPage,
		Version:     s.Version,
		Table:       s.Table,
		PrimaryKey:  s.PrimaryKey,
		Editable:    s.Editable(),
		MetadataErr: s.MetadataErr,
	}
}
