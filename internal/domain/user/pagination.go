package user

import "math"

// Pagination describes one page of a list result.
type Pagination struct {
	Total      int64 // Total number of matching records
	Page       int64 // Current page number (1-based)
	Limit      int64 // Number of records per page
	TotalPages int64
}

// NewPagination creates a Pagination with the page count derived from total and limit.
func NewPagination(total, page, limit int64) *Pagination {
	var totalPages int64
	if limit > 0 {
		totalPages = (total + limit - 1) / limit
	}

	return &Pagination{
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: totalPages,
	}
}

// Offset returns the number of rows to skip before page. ok is false when
// page or limit is not positive or the offset does not fit in an int.
func Offset(page, limit int64) (offset int, ok bool) {
	if page < 1 || limit < 1 {
		return 0, false
	}
	if page-1 > math.MaxInt64/limit {
		return 0, false
	}
	off := (page - 1) * limit
	if int64(int(off)) != off {
		return 0, false
	}
	return int(off), true
}
