// Package errors defines structured error types for the Tenderisk service.
// Error codes map the data-quality taxonomy (schema errors, quality warnings,
// model availability) onto HTTP status codes at the interface boundary.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"

	"github.com/openprocure/tenderisk/pkg/constants"
)

// AppError is a structured application error carrying a stable code, an HTTP
// status for the interface layer, and optional metadata for logging.
type AppError struct {
	code       constants.ErrorCode
	httpStatus int
	message    string
	cause      error
	metadata   map[string]interface{}
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.message, e.cause)
	}
	return e.message
}

// Code returns the stable error code.
func (e *AppError) Code() constants.ErrorCode {
	return e.code
}

// HTTPStatus returns the HTTP status code for this error.
func (e *AppError) HTTPStatus() int {
	return e.httpStatus
}

// Unwrap returns the underlying cause for error-chain support.
func (e *AppError) Unwrap() error {
	return e.cause
}

// WithMetadata attaches context metadata to the error.
func (e *AppError) WithMetadata(key string, value interface{}) *AppError {
	if e.metadata == nil {
		e.metadata = make(map[string]interface{})
	}
	e.metadata[key] = value
	return e
}

// Metadata returns all attached metadata.
func (e *AppError) Metadata() map[string]interface{} {
	return e.metadata
}

// httpStatusFor maps error codes onto HTTP statuses.
func httpStatusFor(code constants.ErrorCode) int {
	switch code {
	case constants.ErrCodeSchema, constants.ErrCodeInvalidArgument:
		return http.StatusBadRequest
	case constants.ErrCodeNotFound:
		return http.StatusNotFound
	case constants.ErrCodeUnavailable, constants.ErrCodeModelUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// New creates a new AppError with the given code and message.
func New(code constants.ErrorCode, message string) *AppError {
	return &AppError{
		code:       code,
		httpStatus: httpStatusFor(code),
		message:    message,
	}
}

// Newf creates a new AppError with a formatted message.
func Newf(code constants.ErrorCode, format string, args ...interface{}) *AppError {
	return New(code, fmt.Sprintf(format, args...))
}

// Wrap wraps an existing error with a code and message.
func Wrap(err error, code constants.ErrorCode, message string) *AppError {
	return &AppError{
		code:       code,
		httpStatus: httpStatusFor(code),
		message:    message,
		cause:      err,
	}
}

// ================================================================================
// Domain-Specific Constructors
// ================================================================================

// ErrSchema reports a critical column that could not be resolved. Analysis
// refuses to proceed.
func ErrSchema(missing []string) *AppError {
	return Newf(constants.ErrCodeSchema, "critical columns missing: %v, analysis cannot proceed", missing).
		WithMetadata("missing_columns", missing)
}

// ErrModelUnavailable reports a pre-trained model bundle that is missing or
// incompatible with the current batch.
func ErrModelUnavailable(reason string) *AppError {
	return Newf(constants.ErrCodeModelUnavailable, "model bundle unavailable: %s", reason)
}

// ErrEmptyTable reports an input table with no data rows.
func ErrEmptyTable() *AppError {
	return New(constants.ErrCodeInvalidArgument, "input table contains no rows")
}

// ErrAnalysisNotFound reports a missing analysis in the working set.
func ErrAnalysisNotFound(id string) *AppError {
	return Newf(constants.ErrCodeNotFound, "analysis %s not found or expired", id).
		WithMetadata("analysis_id", id)
}

// ErrRecordNotFound reports a record identifier absent from an analysis.
func ErrRecordNotFound(analysisID, recordID string) *AppError {
	return Newf(constants.ErrCodeNotFound, "record %s not found in analysis %s", recordID, analysisID)
}

// ErrInvalidThreshold reports a high-risk cutoff outside the permitted range.
func ErrInvalidThreshold(value int) *AppError {
	return Newf(constants.ErrCodeInvalidArgument, "high_risk_cutoff %d outside [%d,%d]",
		value, constants.MinHighRiskCutoff, constants.MaxHighRiskCutoff)
}

// ================================================================================
// Error Inspection Utilities
// ================================================================================

// AsAppError attempts to cast an error to *AppError.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// CodeOf returns the code of an error, or ErrCodeInternal for plain errors.
func CodeOf(err error) constants.ErrorCode {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Code()
	}
	return constants.ErrCodeInternal
}

// IsCode reports whether the error carries the given code.
func IsCode(err error, code constants.ErrorCode) bool {
	return CodeOf(err) == code
}

// IsNotFound reports whether the error is a not_found error.
func IsNotFound(err error) bool {
	return IsCode(err, constants.ErrCodeNotFound)
}

// IsSchemaError reports whether the error is a fatal schema error.
func IsSchemaError(err error) bool {
	return IsCode(err, constants.ErrCodeSchema)
}

// IsModelUnavailable reports whether the error indicates a missing or
// incompatible model bundle.
func IsModelUnavailable(err error) bool {
	return IsCode(err, constants.ErrCodeModelUnavailable)
}
