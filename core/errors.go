package core

import (
	"errors"
	"fmt"
)

type ConnectionErrorCode int

const (
	ConnInvalidDescriptor ConnectionErrorCode = iota
	ConnUnreachable
	ConnAuthFailed
	ConnNotOpen
)

func (c ConnectionErrorCode) String() string {
	switch c {
	case ConnInvalidDescriptor:
		return "invalid descriptor"
	case ConnUnreachable:
		return "unreachable"
	case ConnAuthFailed:
		return "authentication failed"
	case ConnNotOpen:
		return "not open"
	default:
		return "unknown"
	}
}

// ConnectionError is a failure of the connection itself, as opposed to a
// failure of a single statement.
type ConnectionError struct {
	Code ConnectionErrorCode
	err  error
}

func NewConnectionError(code ConnectionErrorCode, err error) *ConnectionError {
	return &ConnectionError{Code: code, err: err}
}

func (e *ConnectionError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("connection error: %s", e.Code)
	}
	return fmt.Sprintf("connection error: %s: %s", e.Code, e.err)
}

func (e *ConnectionError) Unwrap() error { return e.err }

// IsConnectionError reports whether err carries the given connection code
// anywhere in its chain.
func IsConnectionError(err error, code ConnectionErrorCode) bool {
	var cerr *ConnectionError
	return errors.As(err, &cerr) && cerr.Code == code
}

type QueryErrorCode int

const (
	QuerySyntax QueryErrorCode = iota
	QueryExecution
	QueryCancelled
	QueryConnectionLost
)

func (c QueryErrorCode) String() string {
	switch c {
	case QuerySyntax:
		return "syntax"
	case QueryExecution:
		return "execution"
	case QueryCancelled:
		return "cancelled"
	case QueryConnectionLost:
		return "connection lost"
	default:
		return "unknown"
	}
}

// QueryError is a failure of one statement. Only QueryConnectionLost tears
// down the owning handle; everything else leaves the connection usable.
type QueryError struct {
	Code QueryErrorCode
	err  error
}

func NewQueryError(code QueryErrorCode, err error) *QueryError {
	return &QueryError{Code: code, err: err}
}

func (e *QueryError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("query error: %s", e.Code)
	}
	return fmt.Sprintf("query error: %s: %s", e.Code, e.err)
}

func (e *QueryError) Unwrap() error { return e.err }

func IsQueryError(err error, code QueryErrorCode) bool {
	var qerr *QueryError
	return errors.As(err, &qerr) && qerr.Code == code
}

type PersistenceErrorCode int

const (
	PersistenceIoFailure PersistenceErrorCode = iota
	PersistenceCorruptSnapshot
)

func (c PersistenceErrorCode) String() string {
	switch c {
	case PersistenceIoFailure:
		return "io failure"
	case PersistenceCorruptSnapshot:
		return "corrupt snapshot"
	default:
		return "unknown"
	}
}

// PersistenceError is a session-store failure. It is always recoverable:
// durability is best-effort and never blocks interactive use.
type PersistenceError struct {
	Code PersistenceErrorCode
	err  error
}

func NewPersistenceError(code PersistenceErrorCode, err error) *PersistenceError {
	return &PersistenceError{Code: code, err: err}
}

func (e *PersistenceError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("persistence error: %s", e.Code)
	}
	return fmt.Sprintf("persistence error: %s: %s", e.Code, e.err)
}

func (e *PersistenceError) Unwrap() error { return e.err }

func IsPersistenceError(err error, code PersistenceErrorCode) bool {
	var perr *PersistenceError
	return errors.As(err, &perr) && perr.Code == code
}
