package supabase

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

// QueryBuilder accumulates one PostgREST request. Builders are cheap
// value-like objects; obtain one per request via [Client.From] and do
// not share them across goroutines.
type QueryBuilder struct {
	client  *Client
	table   string
	method  string
	body    any
	columns string
	filters url.Values
	order   string
	limit   int
	single  bool
}

// From starts a request against the given table or view.
func (c *Client) From(table string) *QueryBuilder {
	return &QueryBuilder{
		client:  c,
		table:   table,
		method:  http.MethodGet,
		columns: "*",
		filters: url.Values{},
	}
}

// Select sets the column projection for a read.
func (q *QueryBuilder) Select(columns string) *QueryBuilder {
	q.method = http.MethodGet
	if columns != "" {
		q.columns = columns
	}
	return q
}

// Insert switches the request to a row insert returning the created
// representation.
func (q *QueryBuilder) Insert(body any) *QueryBuilder {
	q.method = http.MethodPost
	q.body = body
	return q
}

// Update switches the request to a filtered update returning the
// changed representation.
func (q *QueryBuilder) Update(body any) *QueryBuilder {
	q.method = http.MethodPatch
	q.body = body
	return q
}

// Delete switches the request to a filtered delete.
func (q *QueryBuilder) Delete() *QueryBuilder {
	q.method = http.MethodDelete
	return q
}

// Eq adds an equality filter on column.
func (q *QueryBuilder) Eq(column string, value any) *QueryBuilder {
	q.filters.Add(column, fmt.Sprintf("eq.%v", value))
	return q
}

// Ilike adds a case-insensitive pattern filter on column. The value
// should include % wildcards.
func (q *QueryBuilder) Ilike(column, pattern string) *QueryBuilder {
	q.filters.Add(column, "ilike."+pattern)
	return q
}

// Or adds a disjunction of filters in PostgREST syntax, for example
// "title.ilike.%x%,description.ilike.%x%".
func (q *QueryBuilder) Or(conditions string) *QueryBuilder {
	q.filters.Add("or", "("+conditions+")")
	return q
}

// Order sets the result ordering for a read.
func (q *QueryBuilder) Order(column string, ascending bool) *QueryBuilder {
	direction := "desc"
	if ascending {
		direction = "asc"
	}
	q.order = column + "." + direction
	return q
}

// Limit caps the number of rows returned.
func (q *QueryBuilder) Limit(n int) *QueryBuilder {
	q.limit = n
	return q
}

// Single asks PostgREST for exactly one object instead of an array.
// Zero or multiple matches become an [APIError].
func (q *QueryBuilder) Single() *QueryBuilder {
	q.single = true
	return q
}

// Execute sends the request and decodes the response into dest, which
// may be nil for writes whose result is not needed.
func (q *QueryBuilder) Execute(ctx context.Context, dest any) error {
	query := url.Values{}
	if q.method == http.MethodGet {
		query.Set("select", q.columns)
	}
	for column, values := range q.filters {
		for _, v := range values {
			query.Add(column, v)
		}
	}
	if q.order != "" {
		query.Set("order", q.order)
	}
	if q.limit > 0 {
		query.Set("limit", strconv.Itoa(q.limit))
	}

	headers := map[string]string{}
	if q.method == http.MethodPost || q.method == http.MethodPatch {
		headers["Prefer"] = "return=representation"
	}
	if q.single {
		headers["Accept"] = "application/vnd.pgrst.object+json"
	}

	return q.client.do(ctx, q.method, "/rest/v1/"+q.table, query, headers, q.body, dest)
}
