// Package errors defines the engine's categorized error type. The core
// never lets anything other than the defined kinds (ProfileInvalid,
// StreamInvalid, Cancelled) cross its API boundary; everything softer is
// surfaced through StatementResult warnings instead.
package errors

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// ErrorCategory represents different categories of errors
type ErrorCategory string

const (
	CategoryProfile        ErrorCategory = "profile"
	CategoryStream         ErrorCategory = "stream"
	CategoryParse          ErrorCategory = "parse"
	CategoryReconciliation ErrorCategory = "reconciliation"
	CategoryExport         ErrorCategory = "export"
	CategoryInternal       ErrorCategory = "internal"
)

// ErrorCode represents specific error codes within categories
type ErrorCode string

const (
	// API boundary kinds
	CodeProfileInvalid ErrorCode = "profile_invalid"
	CodeStreamInvalid  ErrorCode = "stream_invalid"
	CodeCancelled      ErrorCode = "cancelled"

	// Profile errors
	CodeProfileNotFound  ErrorCode = "profile_not_found"
	CodeProfileRejected  ErrorCode = "profile_rejected"
	CodeProfileDuplicate ErrorCode = "profile_duplicate"

	// Stream errors
	CodeTokenOrder   ErrorCode = "token_order"
	CodeTokenInvalid ErrorCode = "token_invalid"

	// Parse errors
	CodeParseFailed  ErrorCode = "parse_failed"
	CodeNoHeader     ErrorCode = "no_header"
	CodeInvalidDate  ErrorCode = "invalid_date"
	CodeUnknownCode  ErrorCode = "unknown_type_code"

	// Reconciliation errors
	CodePeriodUnreconciled ErrorCode = "period_unreconciled"

	// Export errors
	CodeWriteFailed ErrorCode = "write_failed"

	// Internal errors
	CodeUnexpectedError ErrorCode = "unexpected_error"
)

// EngineError is the base error type for all engine errors
type EngineError struct {
	Category   ErrorCategory     `json:"category"`
	Code       ErrorCode         `json:"code"`
	Message    string            `json:"message"`
	Suggestion string            `json:"suggestion,omitempty"`
	Context    Context           `json:"context,omitempty"`
	Cause      error             `json:"-"`
	StackTrace errors.StackTrace `json:"-"`
}

// Context provides additional information about the error
type Context map[string]interface{}

// Error implements the error interface
func (e *EngineError) Error() string {
	if e.Suggestion != "" {
		return fmt.Sprintf("%s (suggestion: %s)", e.Message, e.Suggestion)
	}
	return e.Message
}

// Unwrap returns the underlying cause error
func (e *EngineError) Unwrap() error {
	return e.Cause
}

// GetExitCode maps the error to the CLI driver's exit code scheme:
// 2 unsupported bank / invalid profile, 3 parse failure, 4 reconciliation
// failure with warnings, 1 everything else.
func (e *EngineError) GetExitCode() int {
	switch e.Category {
	case CategoryProfile:
		return 2
	case CategoryStream, CategoryParse:
		return 3
	case CategoryReconciliation:
		return 4
	default:
		return 1
	}
}

// WithContext adds context information to the error
func (e *EngineError) WithContext(key string, value interface{}) *EngineError {
	if e.Context == nil {
		e.Context = make(Context)
	}
	e.Context[key] = value
	return e
}

// WithSuggestion adds a suggestion for fixing the error
func (e *EngineError) WithSuggestion(suggestion string) *EngineError {
	e.Suggestion = suggestion
	return e
}

// stackTracer interface for extracting stack traces
type stackTracer interface {
	StackTrace() errors.StackTrace
}

// New creates a new EngineError
func New(category ErrorCategory, code ErrorCode, message string) *EngineError {
	return &EngineError{
		Category:   category,
		Code:       code,
		Message:    message,
		StackTrace: errors.New("").(stackTracer).StackTrace(),
	}
}

// Wrap wraps an existing error with EngineError context
func Wrap(err error, category ErrorCategory, code ErrorCode, message string) *EngineError {
	if err == nil {
		return nil
	}

	return &EngineError{
		Category:   category,
		Code:       code,
		Message:    message,
		Cause:      err,
		StackTrace: errors.WithStack(err).(stackTracer).StackTrace(),
	}
}

// ProfileError creates a bank-profile related error
func ProfileError(code ErrorCode, bank string, err error) *EngineError {
	var message, suggestion string

	switch code {
	case CodeProfileNotFound:
		message = fmt.Sprintf("no bank profile registered for %q", bank)
		suggestion = "run 'extractor banks' to list supported banks, or supply a profile directory"
	case CodeProfileDuplicate:
		message = fmt.Sprintf("bank profile %q registered twice", bank)
		suggestion = "remove the duplicate descriptor from the profile directory"
	case CodeProfileRejected, CodeProfileInvalid:
		message = fmt.Sprintf("bank profile %q failed validation", bank)
		suggestion = "check the profile descriptor against the documented schema"
	default:
		message = fmt.Sprintf("bank profile error for %q", bank)
		suggestion = "check the profile configuration"
	}

	var result *EngineError
	if err != nil {
		result = Wrap(err, CategoryProfile, code, message)
	} else {
		result = New(CategoryProfile, code, message)
	}

	return result.
		WithSuggestion(suggestion).
		WithContext("bank", bank)
}

// StreamError creates a token-stream related error
func StreamError(code ErrorCode, detail string, err error) *EngineError {
	var message, suggestion string

	switch code {
	case CodeTokenOrder:
		message = fmt.Sprintf("token stream out of order: %s", detail)
		suggestion = "the extractor must emit tokens sorted by (page, y, x0)"
	case CodeTokenInvalid:
		message = fmt.Sprintf("invalid token: %s", detail)
		suggestion = "check the extractor's coordinate output"
	default:
		message = fmt.Sprintf("token stream error: %s", detail)
		suggestion = "check the extractor output"
	}

	var result *EngineError
	if err != nil {
		result = Wrap(err, CategoryStream, code, message)
	} else {
		result = New(CategoryStream, code, message)
	}

	return result.WithSuggestion(suggestion)
}

// ParseError creates a parse-stage error
func ParseError(code ErrorCode, page, line int, detail string, err error) *EngineError {
	message := fmt.Sprintf("parse error at page %d line %d: %s", page, line, detail)

	var result *EngineError
	if err != nil {
		result = Wrap(err, CategoryParse, code, message)
	} else {
		result = New(CategoryParse, code, message)
	}

	return result.
		WithContext("page", page).
		WithContext("line", line)
}

// Cancelled creates the error returned when a parse is cancelled between
// lines. The partial StatementResult travels alongside it.
func Cancelled(detail string) *EngineError {
	return New(CategoryInternal, CodeCancelled, fmt.Sprintf("parse cancelled: %s", detail)).
		WithSuggestion("the partial result contains everything emitted before cancellation")
}

// ExportError creates an export-stage error
func ExportError(path string, err error) *EngineError {
	return Wrap(err, CategoryExport, CodeWriteFailed, fmt.Sprintf("failed to write %s", path)).
		WithContext("path", path)
}

// IsKind reports whether err is an EngineError carrying the given code.
func IsKind(err error, code ErrorCode) bool {
	engineErr, ok := AsEngineError(err)
	return ok && engineErr.Code == code
}

// IsEngineError checks if an error is an EngineError
func IsEngineError(err error) bool {
	_, ok := err.(*EngineError)
	return ok
}

// AsEngineError extracts an EngineError from an error chain
func AsEngineError(err error) (*EngineError, bool) {
	var engineErr *EngineError
	if errors.As(err, &engineErr) {
		return engineErr, true
	}
	return nil, false
}

// WrapIfNeeded wraps an error if it's not already an EngineError
func WrapIfNeeded(err error, category ErrorCategory, code ErrorCode, message string) *EngineError {
	if err == nil {
		return nil
	}

	if engineErr, ok := AsEngineError(err); ok {
		return engineErr
	}

	return Wrap(err, category, code, message)
}

// Summary provides a summary of multiple errors
type Summary struct {
	Total      int                   `json:"total"`
	ByCategory map[ErrorCategory]int `json:"by_category"`
	Errors     []*EngineError        `json:"errors"`
}

// NewSummary creates a new error summary
func NewSummary(errs []*EngineError) *Summary {
	summary := &Summary{
		Total:      len(errs),
		ByCategory: make(map[ErrorCategory]int),
		Errors:     errs,
	}

	for _, err := range errs {
		summary.ByCategory[err.Category]++
	}

	return summary
}

// Error returns a formatted error message for the summary
func (s *Summary) Error() string {
	if s.Total == 0 {
		return "no errors"
	}

	if s.Total == 1 {
		return s.Errors[0].Error()
	}

	var categories []string
	for category, count := range s.ByCategory {
		categories = append(categories, fmt.Sprintf("%s: %d", category, count))
	}

	return fmt.Sprintf("%d errors occurred (%s)", s.Total, strings.Join(categories, ", "))
}

// GetExitCode returns the highest priority exit code from all errors
func (s *Summary) GetExitCode() int {
	if s.Total == 0 {
		return 0
	}

	maxCode := 1
	for _, err := range s.Errors {
		if code := err.GetExitCode(); code > maxCode {
			maxCode = code
		}
	}

	return maxCode
}
