// Package pagination implements page-number pagination in the
// {"count", "next", "previous", "results"} envelope the store backend uses.
package pagination

import (
	"net/http"
	"net/url"
	"strconv"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Params holds pagination parameters extracted from query strings.
type Params struct {
	Page     int
	PageSize int
	Offset   int
}

// DefaultParams returns the first page at the default size.
func DefaultParams() Params {
	return Params{Page: 1, PageSize: DefaultPageSize}
}

// FromRequest reads ?page= and ?page_size=. Invalid values fall back to the
// defaults; page_size is capped at MaxPageSize.
func FromRequest(r *http.Request) Params {
	p := DefaultParams()
	q := r.URL.Query()

	if page := q.Get("page"); page != "" {
		if v, err := strconv.Atoi(page); err == nil && v > 0 {
			p.Page = v
		}
	}
	if size := q.Get("page_size"); size != "" {
		if v, err := strconv.Atoi(size); err == nil && v > 0 && v <= MaxPageSize {
			p.PageSize = v
		}
	}

	p.Offset = (p.Page - 1) * p.PageSize
	return p
}

// Query encodes p for a request.
func (p Params) Query() url.Values {
	q := url.Values{}
	if p.Page > 1 {
		q.Set("page", strconv.Itoa(p.Page))
	}
	if p.PageSize > 0 && p.PageSize != DefaultPageSize {
		q.Set("page_size", strconv.Itoa(p.PageSize))
	}
	return q
}

// Page is one page of a collection.
type Page[T any] struct {
	Count    int     `json:"count"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
	Results  []T     `json:"results"`
}

// Paginate cuts the page described by params out of all. Links are built
// from the request URL with the page number replaced.
func Paginate[T any](r *http.Request, all []T, params Params) Page[T] {
	start := min(params.Offset, len(all))
	end := min(start+params.PageSize, len(all))

	results := make([]T, end-start)
	copy(results, all[start:end])

	page := Page[T]{Count: len(all), Results: results}
	if end < len(all) {
		page.Next = link(r, params.Page+1)
	}
	if params.Page > 1 {
		page.Previous = link(r, params.Page-1)
	}
	return page
}

func link(r *http.Request, page int) *string {
	u := *r.URL
	if u.Host == "" {
		u.Host = r.Host
	}
	if u.Scheme == "" {
		u.Scheme = "http"
		if r.TLS != nil {
			u.Scheme = "https"
		}
	}
	q := u.Query()
	if page <= 1 {
		q.Del("page")
	} else {
		q.Set("page", strconv.Itoa(page))
	}
	u.RawQuery = q.Encode()
	s := u.String()
	return &s
}
