package main

import (
	"errors"
	"fmt"
)

var (
	ErrDuplicateSymbol    = errors.New("symbol already defined")
	ErrFunctionOpen       = errors.New("a function is already being built")
	ErrUnsupportedValue   = errors.New("value kind not supported by code generation")
	ErrUnsupportedOperand = errors.New("value kind cannot be an instruction operand")
	ErrUndefinedLocal     = errors.New("local has no defining instruction")
	ErrNotAllocated       = errors.New("registers have not been allocated")
	ErrMalformedIR        = errors.New("malformed IR")
)

// Severity tells the driver whether translation can continue.
type Severity int

const (
	SeverityError Severity = iota
	SeverityFatal
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityFatal:
		return "fatal error"
	default:
		return "unknown"
	}
}

// Category classifies which stage produced an error.
type Category int

const (
	CategoryBuild Category = iota
	CategoryCodegen
	CategoryInput
)

func (c Category) String() string {
	switch c {
	case CategoryBuild:
		return "build"
	case CategoryCodegen:
		return "codegen"
	case CategoryInput:
		return "input"
	default:
		return "unknown"
	}
}

// CodegenError is returned for every failure the backend reports. Err holds
// one of the sentinel errors above so callers can use errors.Is.
type CodegenError struct {
	Severity Severity
	Category Category
	Message  string
	Err      error
}

func (e *CodegenError) Error() string {
	return fmt.Sprintf("%s (%s): %s", e.Severity, e.Category, e.Message)
}

func (e *CodegenError) Unwrap() error {
	return e.Err
}

// IsFatal reports whether err, or anything it wraps, is a fatal CodegenError.
func IsFatal(err error) bool {
	var ce *CodegenError
	return errors.As(err, &ce) && ce.Severity == SeverityFatal
}

func fatalf(category Category, sentinel error, format string, args ...any) *CodegenError {
	return &CodegenError{
		Severity: SeverityFatal,
		Category: category,
		Message:  fmt.Sprintf(format, args...),
		Err:      sentinel,
	}
}

func errorf(category Category, sentinel error, format string, args ...any) *CodegenError {
	return &CodegenError{
		Severity: SeverityError,
		Category: category,
		Message:  fmt.Sprintf(format, args...),
		Err:      sentinel,
	}
}
