package shared

import (
	"math"
	"net/url"
	"strconv"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// PageRequest is a normalized page/size pair parsed from a listing request.
type PageRequest struct {
	Page int
	Size int
}

// ParsePageRequest reads page/size query parameters, applying defaults and caps.
func ParsePageRequest(q url.Values) PageRequest {
	req := PageRequest{Page: 1, Size: defaultPageSize}
	if v, err := strconv.Atoi(q.Get("page")); err == nil && v > 0 {
		req.Page = v
	}
	if v, err := strconv.Atoi(q.Get("size")); err == nil && v > 0 {
		req.Size = v
	}
	if req.Size > maxPageSize {
		req.Size = maxPageSize
	}
	return req
}

// Offset returns the row offset for SQL queries.
func (p PageRequest) Offset() int {
	return (p.Page - 1) * p.Size
}

// Pagination contains metadata for paginated listings.
type Pagination struct {
	Page          int
	Size          int
	TotalElements int
	TotalPages    int
}

// NewPagination computes pagination metadata.
func NewPagination(page, size, total int) Pagination {
	if size <= 0 {
		size = defaultPageSize
	}
	if page <= 0 {
		page = 1
	}
	totalPages := int(math.Ceil(float64(total) / float64(size)))
	return Pagination{Page: page, Size: size, TotalElements: total, TotalPages: totalPages}
}
