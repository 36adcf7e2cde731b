package service

import (
	"database/sql/driver"
	"encoding/hex"
	"encoding/json"
	"strings"
	"time"

	"github.com/lib/pq"
)

const (
	dateLayout        = "2006-01-02"
	timeLayout        = "15:04:05.999999"
	timeTZLayout      = "15:04:05.999999-07:00"
	timestampLayout   = "2006-01-02T15:04:05.999999"
	timestampTZLayout = "2006-01-02T15:04:05.999999-07:00"
)

// valueShaper converts driver values into JSON friendly ones. Column type
// names are only looked up for values whose rendering depends on them.
type valueShaper struct {
	rows  driver.RowsColumnTypeDatabaseTypeName
	names map[int]string
}

func newValueShaper(rows driver.Rows) *valueShaper {
	s := &valueShaper{names: map[int]string{}}
	if r, ok := rows.(driver.RowsColumnTypeDatabaseTypeName); ok {
		s.rows = r
	}

	return s
}

func (s *valueShaper) typeName(i int) string {
	if s.rows == nil {
		return ""
	}

	name, ok := s.names[i]
	if !ok {
		name = strings.ToUpper(s.rows.ColumnTypeDatabaseTypeName(i))
		s.names[i] = name
	}

	return name
}

func (s *valueShaper) value(i int, v driver.Value) any {
	switch val := v.(type) {
	case nil:
		return nil
	case time.Time:
		return formatTime(val, s.typeName(i))
	case []byte:
		return shapeText(val, s.typeName(i))
	default:
		return val
	}
}

// shapeText decodes the text form of types JSON can carry natively. The
// driver may reuse val on the next row, so every branch copies.
func shapeText(val []byte, typeName string) any {
	switch typeName {
	case "BYTEA":
		return `\x` + hex.EncodeToString(val)
	case "JSON", "JSONB":
		return json.RawMessage(append([]byte(nil), val...))
	case "NUMERIC":
		// NaN and Infinity have no JSON number form.
		if n := string(val); n != "NaN" && !strings.HasSuffix(n, "Infinity") {
			return json.Number(n)
		}
	}

	if arr, ok := shapeArray(val, typeName); ok {
		return arr
	}

	return string(val)
}

// shapeArray decodes one dimensional arrays of scalar types. Arrays holding
// NULLs or more dimensions stay in their text form.
func shapeArray(val []byte, typeName string) (any, bool) {
	var dest any
	switch typeName {
	case "_INT2", "_INT4", "_INT8":
		dest = &[]int64{}
	case "_FLOAT4", "_FLOAT8":
		dest = &[]float64{}
	case "_BOOL":
		dest = &[]bool{}
	case "_TEXT", "_VARCHAR", "_BPCHAR", "_NAME":
		dest = &[]string{}
	default:
		return nil, false
	}

	if err := pq.Array(dest).Scan(val); err != nil {
		return nil, false
	}

	switch d := dest.(type) {
	case *[]int64:
		return *d, true
	case *[]float64:
		return *d, true
	case *[]bool:
		return *d, true
	case *[]string:
		return *d, true
	}

	return nil, false
}

// formatTime renders t as ISO-8601 in the shape of its column type.
func formatTime(t time.Time, typeName string) string {
	switch typeName {
	case "DATE":
		return t.Format(dateLayout)
	case "TIME":
		return t.Format(timeLayout)
	case "TIMETZ":
		return t.Format(timeTZLayout)
	case "TIMESTAMP":
		return t.Format(timestampLayout)
	default:
		return t.Format(timestampTZLayout)
	}
}
