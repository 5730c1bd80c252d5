package service

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// PageRequest is a 1-based page selection. Zero values fall back to the defaults.
type PageRequest struct {
	Page     int
	PageSize int
}

func (r PageRequest) normalize() PageRequest {
	if r.Page < 1 {
		r.Page = 1
	}
	if r.PageSize < 1 {
		r.PageSize = defaultPageSize
	}
	if r.PageSize > maxPageSize {
		r.PageSize = maxPageSize
	}
	return r
}

func (r PageRequest) limitOffset() (int, int) {
	return r.PageSize, (r.Page - 1) * r.PageSize
}

type Page[T any] struct {
	Items    []T `json:"items"`
	Total    int `json:"total"`
	Page     int `json:"page"`
	PageSize int `json:"page_size"`
}
