// Package dberr defines the stable error code taxonomy shared by every
// storage and SQL layer in SpeedSQL.
package dberr

import (
	"errors"
	"fmt"
)

// Code is a stable, small integer identifying the class of failure.
// Callers branch on Code rather than matching error strings.
type Code int

const (
	OK Code = iota
	Error
	Busy
	Locked
	NoMem
	ReadOnly
	IoError
	Corrupt
	NotFound
	Full
	CantOpen
	Constraint
	Mismatch
	Misuse
	Range

	// Row and Done are pinned to fixed values rather than continuing the
	// iota sequence: the on-the-wire code taxonomy treats them as the
	// step-execution result codes, sitting past the general-error codes
	// above at 100/101.
	Row  Code = 100
	Done Code = 101
)

func (c Code) String() string {
	switch c {
	case OK:
		return "ok"
	case Error:
		return "error"
	case Busy:
		return "busy"
	case Locked:
		return "locked"
	case NoMem:
		return "nomem"
	case ReadOnly:
		return "readonly"
	case IoError:
		return "ioerror"
	case Corrupt:
		return "corrupt"
	case NotFound:
		return "notfound"
	case Full:
		return "full"
	case CantOpen:
		return "cantopen"
	case Constraint:
		return "constraint"
	case Mismatch:
		return "mismatch"
	case Misuse:
		return "misuse"
	case Range:
		return "range"
	case Row:
		return "row"
	case Done:
		return "done"
	default:
		return "unknown"
	}
}

// DBError wraps a Code, a human message, and optionally an underlying
// cause so the pair can flow through errors.Is / errors.Unwrap chains.
type DBError struct {
	Code Code
	Msg  string
	Err  error
}

func New(code Code, msg string) *DBError {
	return &DBError{Code: code, Msg: msg}
}

func Wrap(code Code, msg string, err error) *DBError {
	return &DBError{Code: code, Msg: msg, Err: err}
}

func (e *DBError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Msg)
}

func (e *DBError) Unwrap() error { return e.Err }

// Is reports whether target is a *DBError with the same Code.
func (e *DBError) Is(target error) bool {
	te, ok := target.(*DBError)
	if !ok {
		return false
	}
	return e.Code == te.Code
}

// CodeOf extracts the stable Code from err, returning Error (the
// generic code) if err is not a *DBError.
func CodeOf(err error) Code {
	if err == nil {
		return OK
	}
	var e *DBError
	if errors.As(err, &e) {
		return e.Code
	}
	return Error
}
