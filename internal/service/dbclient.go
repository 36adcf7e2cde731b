package service

import (
	"context"

	"querygw/internal/model"
)

// DBClient is what the HTTP handlers need from the store.
type DBClient interface {
	// ExecuteQuery runs query on its own connection. Failures are reported in
	// the returned response and never as an error.
	ExecuteQuery(ctx context.Context, query string, fetchResults bool) *model.QueryResponse

	// Ping runs SELECT 1.
	Ping(ctx context.Context) error

	// Version runs SELECT version() and returns the server version string.
	Version(ctx context.Context) (string, error)
}
