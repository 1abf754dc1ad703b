package dto

const (
	DefaultPage  = 1
	DefaultLimit = 20
	MaxLimit     = 100
)

type PageQuery struct {
	Page  int `form:"page" binding:"omitempty,min=1"`
	Limit int `form:"limit" binding:"omitempty,min=1,max=100"`
}

// Normalize fills defaults and clamps the limit.
func (q PageQuery) Normalize() PageQuery {
	if q.Page < 1 {
		q.Page = DefaultPage
	}
	if q.Limit < 1 {
		q.Limit = DefaultLimit
	}
	if q.Limit > MaxLimit {
		q.Limit = MaxLimit
	}
	return q
}

func (q PageQuery) Offset() int {
	return (q.Page - 1) * q.Limit
}

type PaginationMeta struct {
	CurrentPage int   `json:"current_page"`
	TotalPages  int   `json:"total_pages"`
	TotalItems  int64 `json:"total_items"`
	Limit       int   `json:"limit"`
}

func NewPaginationMeta(q PageQuery, total int64) PaginationMeta {
	totalPages := 0
	if q.Limit > 0 {
		totalPages = int((total + int64(q.Limit) - 1) / int64(q.Limit))
	}
	return PaginationMeta{
		CurrentPage: q.Page,
		TotalPages:  totalPages,
		TotalItems:  total,
		Limit:       q.Limit,
	}
}

type Paginated[T any] struct {
	Data []T            `json:"data"`
	Meta PaginationMeta `json:"meta"`
}
