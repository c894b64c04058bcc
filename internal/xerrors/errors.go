// Package xerrors implements the typed error taxonomy of spec §7: leaf
// components return one of these kinds, and pipelines classify and decide
// rather than propagating raw errors past their top-level entry point.
package xerrors

import "fmt"

// Kind identifies which bucket of §7's taxonomy an error belongs to.
type Kind string

const (
	KindConfiguration Kind = "configuration_error"
	KindDriver        Kind = "driver_error"
	KindLogin         Kind = "login_error"
	KindLoginTimeout  Kind = "login_timeout"
	KindPageParse     Kind = "page_parse_error"
	KindStorage       Kind = "storage_error"
	KindVectorStore   Kind = "vector_store_error"
	KindRateLimit     Kind = "rate_limit_error"
)

// Error wraps an underlying cause with a classification and context,
// following the teacher's CustomError convention (pkg/utils/errors.go)
// but keyed on the spec's taxonomy instead of HTTP status codes.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
	Context map[string]interface{}
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

func new(kind Kind, message string, cause error, ctx map[string]interface{}) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause, Context: ctx}
}

func NewConfigurationError(message string, cause error) *Error {
	return new(KindConfiguration, message, cause, nil)
}

func NewDriverError(message string, cause error) *Error {
	return new(KindDriver, message, cause, nil)
}

// NewLoginError is terminal for the current login workflow.
func NewLoginError(message string, attempts int) *Error {
	return new(KindLogin, message, nil, map[string]interface{}{"attempts": attempts})
}

// NewLoginTimeoutError is recoverable by prompting for interactive login.
func NewLoginTimeoutError(message string) *Error {
	return new(KindLoginTimeout, message, nil, nil)
}

// NewPageParseError is non-fatal: the caller skips the item.
func NewPageParseError(message string, selector string) *Error {
	return new(KindPageParse, message, nil, map[string]interface{}{"selector": selector})
}

// NewStorageError is non-fatal: a later run re-observes the same fingerprint.
func NewStorageError(message string, cause error) *Error {
	return new(KindStorage, message, cause, nil)
}

// NewVectorStoreError covers both embedding and similarity-search failures.
func NewVectorStoreError(message string, cause error) *Error {
	return new(KindVectorStore, message, cause, nil)
}

// NewRateLimitError is raised when a URL or DOM shape looks like an
// anti-bot / CAPTCHA redirect rather than genuine content.
func NewRateLimitError(message string) *Error {
	return new(KindRateLimit, message, nil, nil)
}

// Is reports whether err is an *Error of the given kind.
func Is(err error, kind Kind) bool {
	e, ok := err.(*Error)
	return ok && e.Kind == kind
}

// Fatal reports whether the kind terminates the current run rather than
// being skippable per-item (per §7's propagation policy).
func Fatal(kind Kind) bool {
	switch kind {
	case KindConfiguration, KindLogin:
		return true
	default:
		return false
	}
}
