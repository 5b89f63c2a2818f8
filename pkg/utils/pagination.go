package utils

// Pagination represents page-based listing parameters.
type Pagination struct {
	Page     int
	PageSize int
}

// Normalize clamps pagination to sane bounds.
func (p Pagination) Normalize() Pagination {
	if p.Page <= 0 {
		p.Page = 1
	}
	if p.PageSize <= 0 || p.PageSize > 100 {
		p.PageSize = 20 // Default page size
	}
	return p
}

// Bounds returns the [start, end) slice window for a list of n items, plus
// whether any items remain beyond the window.
func (p Pagination) Bounds(n int) (start, end int, hasMore bool) {
	p = p.Normalize()

	start = (p.Page - 1) * p.PageSize
	if start > n {
		start = n
	}

	end = start + p.PageSize
	if end > n {
		end = n
	}

	return start, end, end < n
}
