package model

import (
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// QueryRequest requires the query key to be present. An empty statement is
// accepted here and rejected by the store.
type QueryRequest struct {
	Query        *string `json:"query" binding:"required"`
	FetchResults *bool   `json:"fetch_results"`
}

func (r QueryRequest) Statement() string {
	if r.Query == nil {
		return ""
	}

	return *r.Query
}

// ShouldFetch reports whether a result set was asked for. An absent
// fetch_results means true.
func (r QueryRequest) ShouldFetch() bool {
	return r.FetchResults == nil || *r.FetchResults
}

// Row maps column names to values, keeping the column order of the result set
// when encoded as JSON.
type Row = orderedmap.OrderedMap[string, any]

func NewRow(capacity int) *Row {
	return orderedmap.New[string, any](capacity)
}

type QueryResponse struct {
	Success  bool     `json:"success"`
	Data     []*Row   `json:"data"`
	Columns  []string `json:"columns"`
	RowCount int      `json:"row_count"`
	Message  string   `json:"message"`
}
