package pagination

import "fmt"

const (
	DefaultLimit = 1000
	MaxLimit     = 10000
)

// Params holds offset/limit paging over a table scan.
type Params struct {
	Limit  int
	Offset int
}

// New clamps limit into [1, MaxLimit] (DefaultLimit when unset) and offset
// to be non-negative.
func New(offset, limit int) Params {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	if offset < 0 {
		offset = 0
	}
	return Params{Limit: limit, Offset: offset}
}

// SQL returns the LIMIT and OFFSET clause for SQL queries.
func (p Params) SQL() string {
	return fmt.Sprintf("LIMIT %d OFFSET %d", p.Limit, p.Offset)
}

// HasNext reports whether a page of size n may be followed by another one.
// A short page means the table is exhausted.
func (p Params) HasNext(n int) bool {
	return n >= p.Limit
}

// Next returns the params for the following page.
func (p Params) Next() Params {
	return Params{Limit: p.Limit, Offset: p.NextOffset()}
}

// NextOffset returns the offset for the next page.
func (p Params) NextOffset() int {
	return p.Offset + p.Limit
}
