package rest

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/iota-uz/portal/pkg/backend"
)

func eqValue(v any) string {
	switch t := v.(type) {
	case time.Time:
		return "eq." + t.UTC().Format(time.RFC3339Nano)
	case nil:
		return "is.null"
	default:
		return "eq." + fmt.Sprint(t)
	}
}

func filterQuery(filter backend.Filter) url.Values {
	q := url.Values{}
	keys := make([]string, 0, len(filter))
	for k := range filter {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		q.Set(k, eqValue(filter[k]))
	}
	return q
}

func (c *Client) Select(ctx context.Context, table string, query backend.Query) ([]backend.Row, error) {
	q := filterQuery(query.Eq)
	q.Set("select", "*")
	if query.OrderBy != "" {
		dir := "asc"
		if query.Desc {
			dir = "desc"
		}
		q.Set("order", query.OrderBy+"."+dir)
	}
	if query.Limit > 0 {
		q.Set("limit", strconv.Itoa(query.Limit))
	}
	if query.Offset > 0 {
		q.Set("offset", strconv.Itoa(query.Offset))
	}
	resp, err := c.do(ctx, request{
		method:     http.MethodGet,
		path:       "/rest/v1/" + table,
		query:      q,
		idempotent: true,
	})
	if err != nil {
		return nil, err
	}
	if !ok(resp.status) {
		return nil, decodeAPIError(resp)
	}
	var rows []backend.Row
	if err := decodeJSON(resp, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func (c *Client) Insert(ctx context.Context, table string, rows ...backend.Row) error {
	if len(rows) == 0 {
		return nil
	}
	resp, err := c.do(ctx, request{
		method:  http.MethodPost,
		path:    "/rest/v1/" + table,
		body:    rows,
		headers: map[string]string{"Prefer": "return=minimal"},
	})
	if err != nil {
		return err
	}
	if !ok(resp.status) {
		return decodeAPIError(resp)
	}
	return nil
}

func (c *Client) Upsert(ctx context.Context, table string, row backend.Row) (backend.Row, error) {
	resp, err := c.do(ctx, request{
		method:  http.MethodPost,
		path:    "/rest/v1/" + table,
		body:    []backend.Row{row},
		headers: map[string]string{"Prefer": "resolution=merge-duplicates,return=representation"},
	})
	if err != nil {
		return nil, err
	}
	if !ok(resp.status) {
		return nil, decodeAPIError(resp)
	}
	var rows []backend.Row
	if err := decodeJSON(resp, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return row, nil
	}
	return rows[0], nil
}

func (c *Client) Update(ctx context.Context, table string, values backend.Row, filter backend.Filter) error {
	resp, err := c.do(ctx, request{
		method:  http.MethodPatch,
		path:    "/rest/v1/" + table,
		query:   filterQuery(filter),
		body:    values,
		headers: map[string]string{"Prefer": "return=minimal"},
	})
	if err != nil {
		return err
	}
	if !ok(resp.status) {
		return decodeAPIError(resp)
	}
	return nil
}
