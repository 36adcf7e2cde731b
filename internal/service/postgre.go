package service

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"io"
	"time"

	"querygw/helper"
	"querygw/internal/logger"
	"querygw/internal/metrics"
	"querygw/internal/model"

	"github.com/lib/pq"
)

const (
	modeFetch = "fetch"
	modeExec  = "exec"

	queryPreviewLength = 100
)

var (
	errUnsupportedDriver = errors.New("driver cannot run statements without preparing them")
	errEmptyQuery        = errors.New("can't execute an empty query")
)

// PostgresClient opens a new connection for every call and closes it before
// returning. It holds no per-request state and is safe for concurrent use.
type PostgresClient struct {
	connector driver.Connector
	log       logger.Logger
	metrics   *metrics.Metrics
}

// NewPostgresClient parses dsn once; connections are only made per call.
func NewPostgresClient(dsn string, log logger.Logger, m *metrics.Metrics) (*PostgresClient, error) {
	connector, err := pq.NewConnector(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse connection string: %w", err)
	}

	return newPostgresClient(connector, log, m), nil
}

func newPostgresClient(connector driver.Connector, log logger.Logger, m *metrics.Metrics) *PostgresClient {
	return &PostgresClient{
		connector: connector,
		log:       log,
		metrics:   m,
	}
}

func (p *PostgresClient) ExecuteQuery(ctx context.Context, query string, fetchResults bool) *model.QueryResponse {
	log := logger.FromContext(ctx, p.log)

	mode := modeExec
	if fetchResults {
		mode = modeFetch
	}

	log.Info("Executing query", logger.Ctx{"query": helper.QueryPreview(query, queryPreviewLength), "mode": mode})

	start := time.Now()
	resp, err := p.execute(ctx, log, query, fetchResults)
	took := time.Since(start)

	if err != nil {
		gwErr := classify("execute", err)
		p.metrics.ObserveQuery(mode, gwErr.Kind.Outcome(), took)
		log.Error("Query failed", logger.Ctx{
			"op":          gwErr.Op,
			"kind":        gwErr.Kind.String(),
			"err":         gwErr.Err.Error(),
			"duration_ms": took.Milliseconds(),
		})

		return &model.QueryResponse{
			Success:  false,
			RowCount: 0,
			Message:  gwErr.Message(),
		}
	}

	p.metrics.ObserveQuery(mode, "success", took)
	log.Info("Query succeeded", logger.Ctx{
		"row_count":   resp.RowCount,
		"result_set":  resp.Data != nil,
		"duration_ms": took.Milliseconds(),
	})

	return resp
}

// execute walks connect, begin, execute, then either fetch or commit. A read
// result set ends the transaction with a rollback, so only statements without
// one are committed. The connection is closed on every path.
func (p *PostgresClient) execute(ctx context.Context, log logger.Logger, query string, fetchResults bool) (resp *model.QueryResponse, err error) {
	conn, err := p.connector.Connect(ctx)
	if err != nil {
		return nil, classify("connect", err)
	}

	defer closeConn(log, conn)

	tx, err := beginTx(ctx, conn)
	if err != nil {
		return nil, classify("begin", err)
	}

	settled := false
	defer func() {
		if settled {
			return
		}

		if rbErr := tx.Rollback(); rbErr != nil {
			log.Warn("Rollback failed", logger.Ctx{"err": rbErr.Error()})
		}
	}()

	if query == "" {
		return nil, &Error{Kind: StatementError, Op: "execute", Err: errEmptyQuery}
	}

	if fetchResults {
		resp, err = fetchQuery(ctx, conn, query)
	} else {
		resp, err = execQuery(ctx, conn, query)
	}

	if err != nil {
		return nil, err
	}

	if resp.Columns != nil {
		return resp, nil
	}

	settled = true
	if err = tx.Commit(); err != nil {
		return nil, classify("commit", err)
	}

	return resp, nil
}

func (p *PostgresClient) Ping(ctx context.Context) error {
	_, err := p.scalar(ctx, "SELECT 1")
	return err
}

func (p *PostgresClient) Version(ctx context.Context) (string, error) {
	v, err := p.scalar(ctx, "SELECT version()")
	if err != nil {
		return "", err
	}

	switch val := v.(type) {
	case string:
		return val, nil
	case []byte:
		return string(val), nil
	default:
		return fmt.Sprint(val), nil
	}
}

// scalar returns the first column of the first row of query, run outside a
// transaction on its own connection.
func (p *PostgresClient) scalar(ctx context.Context, query string) (driver.Value, error) {
	log := logger.FromContext(ctx, p.log)

	conn, err := p.connector.Connect(ctx)
	if err != nil {
		return nil, classify("connect", err)
	}

	defer closeConn(log, conn)

	queryer, ok := conn.(driver.QueryerContext)
	if !ok {
		return nil, classify("execute", errUnsupportedDriver)
	}

	rows, err := queryer.QueryContext(ctx, query, nil)
	if err != nil {
		return nil, classify("execute", err)
	}

	defer func() { _ = rows.Close() }()

	dest := make([]driver.Value, len(rows.Columns()))
	if len(dest) == 0 {
		return nil, classify("fetch", errors.New("statement returned no columns"))
	}

	err = rows.Next(dest)
	if errors.Is(err, io.EOF) {
		return nil, classify("fetch", errors.New("statement returned no rows"))
	}

	if err != nil {
		return nil, classify("fetch", err)
	}

	v := dest[0]
	if b, ok := v.([]byte); ok {
		v = string(b)
	}

	return v, nil
}

func fetchQuery(ctx context.Context, conn driver.Conn, query string) (resp *model.QueryResponse, err error) {
	queryer, ok := conn.(driver.QueryerContext)
	if !ok {
		return nil, classify("execute", errUnsupportedDriver)
	}

	rows, err := queryer.QueryContext(ctx, query, nil)
	if err != nil {
		return nil, classify("execute", err)
	}

	defer func() {
		closeErr := rows.Close()
		if closeErr != nil && err == nil {
			resp, err = nil, classify("fetch", closeErr)
		}
	}()

	columns, data, err := lastResultSet(rows)
	if err != nil {
		return nil, classify("fetch", err)
	}

	if len(columns) == 0 {
		// DDL or DML without RETURNING.
		return affectedResponse(rowsAffected(rows)), nil
	}

	return &model.QueryResponse{
		Success:  true,
		Data:     data,
		Columns:  columns,
		RowCount: len(data),
		Message:  fmt.Sprintf("Query executed successfully. Found %d rows.", len(data)),
	}, nil
}

// lastResultSet reads every result set of a multi-statement text and keeps
// the last one.
func lastResultSet(rows driver.Rows) ([]string, []*model.Row, error) {
	for {
		columns := rows.Columns()

		var data []*model.Row
		if len(columns) > 0 {
			var err error
			data, err = readRows(rows, columns)
			if err != nil {
				return nil, nil, err
			}
		}

		sets, ok := rows.(driver.RowsNextResultSet)
		if !ok || !sets.HasNextResultSet() {
			return columns, data, nil
		}

		err := sets.NextResultSet()
		if errors.Is(err, io.EOF) {
			return columns, data, nil
		}

		if err != nil {
			return nil, nil, err
		}
	}
}

func execQuery(ctx context.Context, conn driver.Conn, query string) (*model.QueryResponse, error) {
	execer, ok := conn.(driver.ExecerContext)
	if !ok {
		return nil, classify("execute", errUnsupportedDriver)
	}

	result, err := execer.ExecContext(ctx, query, nil)
	if err != nil {
		return nil, classify("execute", err)
	}

	return affectedResponse(affectedCount(result)), nil
}

func readRows(rows driver.Rows, columns []string) ([]*model.Row, error) {
	shaper := newValueShaper(rows)
	dest := make([]driver.Value, len(columns))
	data := make([]*model.Row, 0)

	for {
		err := rows.Next(dest)
		if errors.Is(err, io.EOF) {
			return data, nil
		}

		if err != nil {
			return nil, err
		}

		row := model.NewRow(len(columns))
		for i, col := range columns {
			row.Set(col, shaper.value(i, dest[i]))
		}

		data = append(data, row)
	}
}

func affectedResponse(n int) *model.QueryResponse {
	return &model.QueryResponse{
		Success:  true,
		RowCount: n,
		Message:  fmt.Sprintf("Query executed successfully. %d rows affected.", n),
	}
}

// rowsAffected reports the command result of a statement run through the
// query path, for drivers whose rows carry it (lib/pq does). Others report 0.
func rowsAffected(rows driver.Rows) int {
	r, ok := rows.(interface{ Result() driver.Result })
	if !ok {
		return 0
	}

	return affectedCount(r.Result())
}

// affectedCount treats an unknown count as 0.
func affectedCount(result driver.Result) int {
	if result == nil {
		return 0
	}

	n, err := result.RowsAffected()
	if err != nil || n < 0 {
		return 0
	}

	return int(n)
}

func beginTx(ctx context.Context, conn driver.Conn) (driver.Tx, error) {
	if b, ok := conn.(driver.ConnBeginTx); ok {
		return b.BeginTx(ctx, driver.TxOptions{})
	}

	return conn.Begin() //nolint:staticcheck // fallback for drivers without BeginTx
}

func closeConn(log logger.Logger, conn driver.Conn) {
	if err := conn.Close(); err != nil {
		log.Warn("Failed to close database connection", logger.Ctx{"err": err.Error()})
	}
}
