package results

// DefaultPageSize is the browse page size when none is configured.
const DefaultPageSize = 50

// Pagination tracks the browse position of a result. It is a value type;
// the navigation methods return the new state.
type Pagination struct {
	Page        int  `json:"page"`
	PageSize    int  `json:"page_size"`
	HasNextPage bool `json:"has_next_page"`
}

// CalculateOffset returns the row offset of page (0-based).
func CalculateOffset(page, pageSize int) int {
	if page < 0 || pageSize <= 0 {
		return 0
	}
	return page * pageSize
}

// Offset is CalculateOffset for p.
func (p Pagination) Offset() int {
	return CalculateOffset(p.Page, p.size())
}

// Next advances one page when a next page exists.
func (p Pagination) Next() Pagination {
	if !p.HasNextPage {
		return p
	}
	p.Page++
	p.HasNextPage = false
	return p
}

// Prev goes back one page, stopping at the first.
func (p Pagination) Prev() Pagination {
	if p.Page > 0 {
		p.Page--
	}
	return p
}

// Reset returns to the first page keeping the page size.
func (p Pagination) Reset() Pagination {
	return Pagination{PageSize: p.PageSize}
}

func (p Pagination) size() int {
	if p.PageSize <= 0 {
		return DefaultPageSize
	}
	return p.PageSize
}
