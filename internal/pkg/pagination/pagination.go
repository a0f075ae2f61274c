package pagination

import (
	"errors"
	"net/url"
	"strconv"
)

// Errors
var (
	ErrInvalidPage = errors.New("page and page_size must be positive integers")
)

const (
	DefaultLimit = 50
	MaxLimit     = 500
)

// OffsetRequest represents offset-based pagination request
type OffsetRequest struct {
	Page     int `json:"page,omitempty"`
	PageSize int `json:"page_size,omitempty"`
}

// OffsetResponse represents offset-based pagination response.
// Offset is the position of Items[0] in the full list.
type OffsetResponse[T any] struct {
	Items      []T   `json:"items"`
	Offset     int   `json:"offset"`
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalItems int64 `json:"total_items"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
	HasPrev    bool  `json:"has_prev"`
}

// NewOffsetRequest creates a new offset request with defaults
func NewOffsetRequest(page, pageSize int) *OffsetRequest {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 || pageSize > MaxLimit {
		pageSize = DefaultLimit
	}
	return &OffsetRequest{
		Page:     page,
		PageSize: pageSize,
	}
}

// ParseOffsetRequest reads page and page_size from a query string.
// Missing values take defaults; malformed ones are an error.
func ParseOffsetRequest(q url.Values) (*OffsetRequest, error) {
	page, err := optionalInt(q.Get("page"))
	if err != nil {
		return nil, err
	}
	size, err := optionalInt(q.Get("page_size"))
	if err != nil {
		return nil, err
	}
	return NewOffsetRequest(page, size), nil
}

func optionalInt(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, ErrInvalidPage
	}
	return n, nil
}

// GetOffset returns the index of the first item on the page
func (r *OffsetRequest) GetOffset() int {
	return (r.GetPage() - 1) * r.GetPageSize()
}

// GetPage returns validated page
func (r *OffsetRequest) GetPage() int {
	if r.Page <= 0 {
		return 1
	}
	return r.Page
}

// GetPageSize returns validated page size
func (r *OffsetRequest) GetPageSize() int {
	if r.PageSize <= 0 || r.PageSize > MaxLimit {
		return DefaultLimit
	}
	return r.PageSize
}

// BuildOffsetResponse builds an offset response from items and total count
func BuildOffsetResponse[T any](items []T, req *OffsetRequest, total int64) *OffsetResponse[T] {
	totalPages := int((total + int64(req.GetPageSize()) - 1) / int64(req.GetPageSize()))
	if items == nil {
		items = []T{}
	}

	return &OffsetResponse[T]{
		Items:      items,
		Offset:     req.GetOffset(),
		Page:       req.GetPage(),
		PageSize:   req.GetPageSize(),
		TotalItems: total,
		TotalPages: totalPages,
		HasNext:    req.GetPage() < totalPages,
		HasPrev:    req.GetPage() > 1,
	}
}

// Paginate cuts one page out of an in-memory list.
func Paginate[T any](all []T, req *OffsetRequest) *OffsetResponse[T] {
	start := req.GetOffset()
	if start > len(all) {
		start = len(all)
	}
	end := start + req.GetPageSize()
	if end > len(all) {
		end = len(all)
	}
	return BuildOffsetResponse(all[start:end], req, int64(len(all)))
}
