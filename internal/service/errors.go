package service

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"io"
	"net"

	"github.com/lib/pq"
)

type ErrorKind int

const (
	UnclassifiedError ErrorKind = iota
	ConnectionError
	StatementError
)

func (k ErrorKind) String() string {
	switch k {
	case ConnectionError:
		return "connection"
	case StatementError:
		return "statement"
	default:
		return "unclassified"
	}
}

// Outcome is the metrics label for a failure of this kind.
func (k ErrorKind) Outcome() string {
	switch k {
	case ConnectionError:
		return "connection_error"
	case StatementError:
		return "statement_error"
	default:
		return "unexpected_error"
	}
}

func (k ErrorKind) prefix() string {
	switch k {
	case ConnectionError:
		return "Connection error"
	case StatementError:
		return "Database error"
	default:
		return "Unexpected error"
	}
}

// Error is a failure of one gateway step.
type Error struct {
	Kind ErrorKind
	Op   string // connect, begin, execute, fetch, commit
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Message is the client facing description of the failure.
func (e *Error) Message() string {
	return fmt.Sprintf("%s: %v", e.Kind.prefix(), e.Err)
}

// ErrorMessage returns the client facing description of err.
func ErrorMessage(err error) string {
	var gwErr *Error
	if errors.As(err, &gwErr) {
		return gwErr.Message()
	}

	return err.Error()
}

// SQLSTATE classes that mean the session itself is unusable.
var connectionClasses = map[pq.ErrorClass]bool{
	"08": true, // connection_exception
	"28": true, // invalid_authorization_specification
	"3D": true, // invalid_catalog_name
	"53": true, // insufficient_resources
}

func classify(op string, err error) *Error {
	var gwErr *Error
	if errors.As(err, &gwErr) {
		return gwErr
	}

	return &Error{Kind: kindOf(op, err), Op: op, Err: err}
}

func kindOf(op string, err error) ErrorKind {
	if op == "connect" {
		return ConnectionError
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		// 57P01 admin_shutdown, 57P02 crash_shutdown, 57P03 cannot_connect_now
		if connectionClasses[pqErr.Code.Class()] || (pqErr.Code.Class() == "57" && len(pqErr.Code) == 5 && pqErr.Code[2] == 'P') {
			return ConnectionError
		}

		return StatementError
	}

	var netErr net.Error
	if errors.As(err, &netErr) ||
		errors.Is(err, driver.ErrBadConn) ||
		errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) {
		return ConnectionError
	}

	return UnclassifiedError
}
