package service

import (
	"context"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type typedRows struct {
	driver.Rows
	types  []string
	lookup int
}

func (r *typedRows) ColumnTypeDatabaseTypeName(i int) string {
	r.lookup++
	return r.types[i]
}

func TestValueShaper(t *testing.T) {
	ts := time.Date(2023, 12, 31, 23, 59, 58, 500000000, time.UTC)
	rows := &typedRows{types: []string{"date", "time", "timetz", "timestamp", "timestamptz", "bytea", "text", "int8"}}
	s := newValueShaper(rows)

	assert.Equal(t, "2023-12-31", s.value(0, ts))
	assert.Equal(t, "23:59:58.5", s.value(1, ts))
	assert.Equal(t, "23:59:58.5+00:00", s.value(2, ts))
	assert.Equal(t, "2023-12-31T23:59:58.5", s.value(3, ts))
	assert.Equal(t, "2023-12-31T23:59:58.5+00:00", s.value(4, ts))
	assert.Equal(t, `\xdeadbeef`, s.value(5, []byte{0xde, 0xad, 0xbe, 0xef}))
	assert.Equal(t, "12.50", s.value(6, []byte("12.50")))
	assert.Equal(t, int64(7), s.value(7, int64(7)))
	assert.Nil(t, s.value(7, nil))
}

func TestValueShaperDecodesJSONNativeTypes(t *testing.T) {
	rows := &typedRows{types: []string{"jsonb", "_int4", "numeric", "json", "_text", "_bool", "_float8"}}
	s := newValueShaper(rows)

	values := []any{
		s.value(0, []byte(`{"a":1}`)),
		s.value(1, []byte("{1,2,3}")),
		s.value(2, []byte("12.50")),
		s.value(3, []byte(`[true, null]`)),
		s.value(4, []byte(`{a,"b c"}`)),
		s.value(5, []byte("{t,f}")),
		s.value(6, []byte("{1.5,-2}")),
	}

	b, err := json.Marshal(values)
	require.NoError(t, err)
	assert.Equal(t, `[{"a":1},[1,2,3],12.50,[true,null],["a","b c"],[true,false],[1.5,-2]]`, string(b))
}

func TestValueShaperKeepsTextWhenNoNativeForm(t *testing.T) {
	rows := &typedRows{types: []string{"numeric", "numeric", "_int4", "_int4", "_uuid"}}
	s := newValueShaper(rows)

	assert.Equal(t, "NaN", s.value(0, []byte("NaN")))
	assert.Equal(t, "-Infinity", s.value(1, []byte("-Infinity")))
	assert.Equal(t, "{1,NULL}", s.value(2, []byte("{1,NULL}")))
	assert.Equal(t, "{{1,2},{3,4}}", s.value(3, []byte("{{1,2},{3,4}}")))
	assert.Equal(t, "{a0eebc99-9c0b-4ef8-bb6d-6bb9bd380a11}", s.value(4, []byte("{a0eebc99-9c0b-4ef8-bb6d-6bb9bd380a11}")))
}

func TestValueShaperCopiesJSON(t *testing.T) {
	buf := []byte(`{"k":1}`)
	s := newValueShaper(&typedRows{types: []string{"JSONB"}})

	v := s.value(0, buf)
	copy(buf, `{"k":2}`)

	assert.Equal(t, json.RawMessage(`{"k":1}`), v)
}

func TestValueShaperLooksUpTypesOnce(t *testing.T) {
	rows := &typedRows{types: []string{"DATE"}}
	s := newValueShaper(rows)

	s.value(0, time.Now())
	s.value(0, time.Now())
	s.value(0, "not a time")

	assert.Equal(t, 1, rows.lookup)
}

func TestValueShaperWithoutTypeInfo(t *testing.T) {
	s := newValueShaper(nil)
	ts := time.Date(2024, 1, 2, 3, 4, 5, 0, time.FixedZone("", -5*3600))

	assert.Equal(t, "2024-01-02T03:04:05-05:00", s.value(0, ts))
	assert.Equal(t, "raw", s.value(0, []byte("raw")))
}

func TestValueShaperCopiesBytes(t *testing.T) {
	buf := []byte("first")
	s := newValueShaper(nil)

	v := s.value(0, buf)
	copy(buf, "xxxxx")

	assert.Equal(t, "first", v)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		op   string
		err  error
		want ErrorKind
	}{
		{"connect failure", "connect", errors.New("boom"), ConnectionError},
		{"syntax error", "execute", &pq.Error{Code: "42601"}, StatementError},
		{"permission denied", "execute", &pq.Error{Code: "42501"}, StatementError},
		{"query canceled", "execute", &pq.Error{Code: "57014"}, StatementError},
		{"admin shutdown", "execute", &pq.Error{Code: "57P01"}, ConnectionError},
		{"connection exception", "execute", &pq.Error{Code: "08006"}, ConnectionError},
		{"auth failure", "begin", &pq.Error{Code: "28P01"}, ConnectionError},
		{"unknown database", "begin", &pq.Error{Code: "3D000"}, ConnectionError},
		{"too many connections", "begin", &pq.Error{Code: "53300"}, ConnectionError},
		{"wrapped pq error", "fetch", fmt.Errorf("read: %w", &pq.Error{Code: "22012"}), StatementError},
		{"network error", "execute", &net.OpError{Op: "read", Err: errors.New("reset")}, ConnectionError},
		{"bad conn", "commit", driver.ErrBadConn, ConnectionError},
		{"context canceled", "execute", context.Canceled, UnclassifiedError},
		{"other", "fetch", errors.New("odd"), UnclassifiedError},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := classify(tc.op, tc.err)
			assert.Equal(t, tc.want, got.Kind)
			assert.Equal(t, tc.op, got.Op)
			assert.ErrorIs(t, got, tc.err)
		})
	}
}

func TestClassifyKeepsExistingError(t *testing.T) {
	inner := &Error{Kind: StatementError, Op: "execute", Err: errors.New("bad")}

	assert.Same(t, inner, classify("commit", inner))
}

func TestErrorMessage(t *testing.T) {
	assert.Equal(t, "Database error: pq: oops", ErrorMessage(&Error{Kind: StatementError, Err: &pq.Error{Message: "oops"}}))
	assert.Equal(t, "Connection error: refused", ErrorMessage(&Error{Kind: ConnectionError, Err: errors.New("refused")}))
	assert.Equal(t, "Unexpected error: ?", ErrorMessage(&Error{Kind: UnclassifiedError, Err: errors.New("?")}))
	assert.Equal(t, "plain", ErrorMessage(errors.New("plain")))
}
