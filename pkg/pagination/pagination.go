// Package pagination pages registry list endpoints with ?limit= and ?offset=.
package pagination

import (
	"fmt"
	"strconv"

	"github.com/labstack/echo/v4"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// Params is one page request. Limit is always in [1, MaxLimit] and Offset is
// never negative.
type Params struct {
	Limit  int
	Offset int
}

// FromContext reads the page request from the query string. Missing or
// unparsable values fall back to the defaults.
func FromContext(c echo.Context) Params {
	p := Params{Limit: DefaultLimit}
	if n, err := strconv.Atoi(c.QueryParam("limit")); err == nil && n > 0 {
		p.Limit = min(n, MaxLimit)
	}
	if n, err := strconv.Atoi(c.QueryParam("offset")); err == nil && n > 0 {
		p.Offset = n
	}
	return p
}

// Response is the envelope every paged endpoint returns.
type Response struct {
	Data    interface{} `json:"data"`
	Total   int         `json:"total"`
	Limit   int         `json:"limit"`
	Offset  int         `json:"offset"`
	HasMore bool        `json:"has_more"`
	Links   []Link      `json:"links,omitempty"`
}

type Link struct {
	Relation string `json:"relation"`
	URL      string `json:"url"`
}

func NewResponse(data interface{}, total, limit, offset int) *Response {
	return &Response{
		Data:    data,
		Total:   total,
		Limit:   limit,
		Offset:  offset,
		HasMore: offset+limit < total,
	}
}

// Page wraps one page of data out of total items, linking neighbours under path.
func (p Params) Page(path string, data interface{}, total int) *Response {
	resp := NewResponse(data, total, p.Limit, p.Offset)
	resp.Links = p.Links(path, total)
	return resp
}

// Window clamps the page to n in-memory items, for use as items[start:end].
func (p Params) Window(n int) (start, end int) {
	start = min(p.Offset, n)
	end = min(start+p.Limit, n)
	return start, end
}

func (p Params) HasNext(total int) bool { return p.Offset+p.Limit < total }

func (p Params) HasPrevious() bool { return p.Offset > 0 }

func (p Params) NextOffset() int { return p.Offset + p.Limit }

// PreviousOffset stops at zero.
func (p Params) PreviousOffset() int { return max(p.Offset-p.Limit, 0) }

// Links returns self, plus next and previous when those pages exist.
func (p Params) Links(path string, total int) []Link {
	links := []Link{{Relation: "self", URL: pageURL(path, p.Offset, p.Limit)}}
	if p.HasNext(total) {
		links = append(links, Link{Relation: "next", URL: pageURL(path, p.NextOffset(), p.Limit)})
	}
	if p.HasPrevious() {
		links = append(links, Link{Relation: "previous", URL: pageURL(path, p.PreviousOffset(), p.Limit)})
	}
	return links
}

func pageURL(path string, offset, limit int) string {
	return fmt.Sprintf("%s?offset=%d&limit=%d", path, offset, limit)
}
