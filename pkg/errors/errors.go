// Package errors defines AppError, the structured error carried across every
// ContractKeeper layer, together with its constructors and chain helpers.
package errors

import (
	"errors"
	"fmt"
	"runtime"
	"sort"
	"strings"
)

// AppError pairs a typed code with a caller-facing message.  Handlers map the
// code to an HTTP status; loggers print Detail and the captured call sites.
//
//	return errors.NotFound("contract not found").WithDetail("id=42")
//	return errors.Wrap(err, errors.CodeDatabaseError, "failed to load contract")
type AppError struct {
	Code    ErrorCode
	Message string
	// Detail is debugging context such as ids or the failing operation.
	Detail string
	// Fields maps input field names to messages for CodeValidation errors.
	Fields map[string]string
	Cause  error

	pcs []uintptr
}

// Error renders "[code] message (fields): detail".  The cause is not included.
func (e *AppError) Error() string {
	var b strings.Builder
	b.WriteByte('[')
	b.WriteString(string(e.Code))
	b.WriteString("] ")
	b.WriteString(e.Message)
	if len(e.Fields) > 0 {
		b.WriteString(" (")
		b.WriteString(joinFields(e.Fields))
		b.WriteByte(')')
	}
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	return b.String()
}

func (e *AppError) Unwrap() error { return e.Cause }

// StackTrace lists the call sites recorded when e was built, one per line.
func (e *AppError) StackTrace() string {
	if e == nil || len(e.pcs) == 0 {
		return ""
	}
	var b strings.Builder
	frames := runtime.CallersFrames(e.pcs)
	for more := true; more; {
		var f runtime.Frame
		f, more = frames.Next()
		if strings.HasPrefix(f.Function, "runtime.") {
			continue
		}
		fmt.Fprintf(&b, "\n\t%s:%d %s", f.File, f.Line, f.Function)
	}
	return b.String()
}

// WithDetail returns a copy of e with Detail replaced.  Nil stays nil.
func (e *AppError) WithDetail(detail string) *AppError {
	if e == nil {
		return nil
	}
	cp := *e
	cp.Detail = detail
	return &cp
}

// WithCause returns a copy of e wrapping err.
func (e *AppError) WithCause(err error) *AppError {
	if e == nil {
		return nil
	}
	cp := *e
	cp.Cause = err
	return &cp
}

func joinFields(fields map[string]string) string {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)
	for i, name := range names {
		names[i] = name + ": " + fields[name]
	}
	return strings.Join(names, "; ")
}

// callers records up to 32 frames above the exported constructor.
func callers() []uintptr {
	var buf [32]uintptr
	n := runtime.Callers(4, buf[:])
	return append([]uintptr(nil), buf[:n]...)
}

func build(code ErrorCode, message string) *AppError {
	return &AppError{Code: code, Message: message, pcs: callers()}
}

// ─────────────────────────────────────────────────────────────────────────────
// Constructors
// ─────────────────────────────────────────────────────────────────────────────

func New(code ErrorCode, message string) *AppError { return build(code, message) }

// Wrap attaches err as the cause of a new AppError, or returns nil for a nil
// err.  CodeUnknown inherits the code of an AppError already in the chain.
func Wrap(err error, code ErrorCode, message string) *AppError {
	if err == nil {
		return nil
	}
	var inner *AppError
	if code == CodeUnknown && errors.As(err, &inner) {
		code = inner.Code
	}
	ae := build(code, message)
	ae.Cause = err
	return ae
}

func NotFound(message string) *AppError     { return build(CodeNotFound, message) }
func InvalidParam(message string) *AppError { return build(CodeInvalidParam, message) }
func Unauthorized(message string) *AppError { return build(CodeUnauthorized, message) }
func Conflict(message string) *AppError     { return build(CodeConflict, message) }
func Internal(message string) *AppError     { return build(CodeInternal, message) }

// Forbidden carries the reason shown to a caller who was denied access.
func Forbidden(message string) *AppError { return build(CodeForbidden, message) }

// NewValidation reports several invalid fields at once.  fields is copied.
func NewValidation(fields map[string]string) *AppError {
	ae := build(CodeValidation, DefaultMessageForCode(CodeValidation))
	ae.Fields = make(map[string]string, len(fields))
	for name, msg := range fields {
		ae.Fields[name] = msg
	}
	return ae
}

// NewValidationOp reports one invalid field of op, for example
// NewValidationOp("category.create", "name", "name is required").
func NewValidationOp(op, field, message string) *AppError {
	ae := build(CodeValidation, DefaultMessageForCode(CodeValidation))
	ae.Detail = op
	ae.Fields = map[string]string{field: message}
	return ae
}

// ─────────────────────────────────────────────────────────────────────────────
// Chain inspection
// ─────────────────────────────────────────────────────────────────────────────

// IsCode walks the AppError causes of err looking for code.
func IsCode(err error, code ErrorCode) bool {
	for err != nil {
		var ae *AppError
		if !errors.As(err, &ae) {
			return false
		}
		if ae.Code == code {
			return true
		}
		err = ae.Cause
	}
	return false
}

func IsNotFound(err error) bool {
	for _, code := range []ErrorCode{CodeNotFound, CodeContractNotFound, CodeCategoryNotFound} {
		if IsCode(err, code) {
			return true
		}
	}
	return false
}

func IsForbidden(err error) bool  { return IsCode(err, CodeForbidden) }
func IsValidation(err error) bool { return IsCode(err, CodeValidation) }
func IsConflict(err error) bool   { return IsCode(err, CodeConflict) }

// GetCode is the code of the outermost AppError: CodeOK for nil, CodeUnknown
// when none is found.
func GetCode(err error) ErrorCode {
	if err == nil {
		return CodeOK
	}
	if ae := first(err); ae != nil {
		return ae.Code
	}
	return CodeUnknown
}

// FieldsOf is the validation map of the outermost AppError, if any.
func FieldsOf(err error) map[string]string {
	if ae := first(err); ae != nil {
		return ae.Fields
	}
	return nil
}

func first(err error) *AppError {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae
	}
	return nil
}

// Is and As forward to the standard library for callers that import this
// package as "errors".
func Is(err, target error) bool { return errors.Is(err, target) }

func As(err error, target any) bool { return errors.As(err, target) }

//Personal.AI order the ending
