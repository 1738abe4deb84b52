package errorcode

import "fmt"

// Error is the structured error type returned by every store, pipeline, and
// front-end operation in gnosis.
type Error struct {
	// Code is one of the stable vocabulary values in codes.go.
	Code string

	// Message is the human-readable error message.
	Message string

	// Category is derived from Code.
	Category Category

	// Severity is derived from Code.
	Severity Severity

	// Details contains additional context as key-value pairs.
	Details map[string]string

	// Cause is the underlying error that caused this error.
	Cause error

	// Retryable indicates if the operation can be retried.
	Retryable bool

	// Suggestion is an actionable hint surfaced to the CLI/UI.
	Suggestion string
}

func (e *Error) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is enables errors.Is(err, &Error{Code: ...}) comparisons by code.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// WithDetail attaches a key-value detail and returns the error for chaining.
func (e *Error) WithDetail(key, value string) *Error {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// WithSuggestion attaches an actionable hint and returns the error for chaining.
func (e *Error) WithSuggestion(suggestion string) *Error {
	e.Suggestion = suggestion
	return e
}

// New creates an Error with Category/Severity/Retryable derived from code.
func New(code string, message string, cause error) *Error {
	return &Error{
		Code:      code,
		Message:   message,
		Category:  categoryFromCode(code),
		Severity:  severityFromCode(code),
		Cause:     cause,
		Retryable: isRetryableCode(code),
	}
}

// Wrap creates an Error from an existing error, using err.Error() as Message.
func Wrap(code string, err error) *Error {
	if err == nil {
		return nil
	}
	return New(code, err.Error(), err)
}

// Validation builds a VALIDATION error.
func Validation(message string, cause error) *Error {
	return New(CodeValidation, message, cause)
}

// InvalidInput builds an INVALID_INPUT error (ranker/query syntax failures).
func InvalidInput(message string, cause error) *Error {
	return New(CodeInvalidInput, message, cause)
}

// NotFound builds a NOT_FOUND error.
func NotFound(message string) *Error {
	return New(CodeNotFound, message, nil)
}

// Conflict builds a CONFLICT error.
func Conflict(message string) *Error {
	return New(CodeConflict, message, nil)
}

// HasReferences builds a HAS_REFERENCES error (collection still referenced).
func HasReferences(message string) *Error {
	return New(CodeHasReferences, message, nil)
}

// Forbidden builds a FORBIDDEN error (CSRF/auth rejection).
func Forbidden(message string) *Error {
	return New(CodeForbidden, message, nil)
}

// Runtime builds a catch-all RUNTIME error.
func Runtime(message string, cause error) *Error {
	return New(CodeRuntime, message, cause)
}

// Unavailable builds an UNAVAILABLE error (feature needs a missing model/extension).
func Unavailable(message string) *Error {
	return New(CodeUnavailable, message, nil)
}

// IsRetryable reports whether err is an *Error with Retryable set.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if e, ok := err.(*Error); ok {
		return e.Retryable
	}
	return false
}

// IsFatal reports whether err is an *Error with FATAL severity.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	if e, ok := err.(*Error); ok {
		return e.Severity == SeverityFatal
	}
	return false
}

// GetCode extracts the Code from an *Error, or "" if err isn't one.
func GetCode(err error) string {
	if e, ok := err.(*Error); ok {
		return e.Code
	}
	return ""
}

// GetCategory extracts the Category from an *Error, or "" if err isn't one.
func GetCategory(err error) Category {
	if e, ok := err.(*Error); ok {
		return e.Category
	}
	return ""
}
