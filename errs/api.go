package errs

import (
	"errors"
	"fmt"
	"net/http"
)

// Common error sentinel values
var (
	ErrForbidden    = errors.New("operation not allowed")
	ErrBadRequest   = errors.New("malformed request")
	ErrUnauthorized = errors.New("unauthorized")
	ErrInternal     = errors.New("internal server error")
	ErrConflict     = errors.New("resource conflict")
	ErrNotFound     = errors.New("not found")
)

// Codes carried by ApiErr.Code. They classify where a request failed.
const (
	CodeBadRequest   = "ERR_BAD_REQUEST"
	CodeBadResponse  = "ERR_BAD_RESPONSE"
	CodeNetwork      = "ERR_NETWORK"
	CodeUnauthorized = "ERR_UNAUTHORIZED"
	CodeCanceled     = "ERR_CANCELED"
	CodeInvalidInput = "ERR_INVALID_INPUT"
)

// ApiErr is a failed call against the portfolio service. StatusCode is zero
// when no response was received.
type ApiErr struct {
	StatusCode int
	Code       string
	err        error
	Details    string // Additional details about the error
	Field      string // Field that caused the error (for validation errors)
	Cause      error  // The underlying cause of the error
}

func NewApiErr(statusCode int, message string) *ApiErr {
	return &ApiErr{
		StatusCode: statusCode,
		Code:       codeForStatus(statusCode),
		err:        errors.New(message),
	}
}

// implements error interface. this allows us to pass an instance of ApiErr as an argument of type `error`
func (e *ApiErr) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s", e.err.Error(), e.Details)
	}
	return e.err.Error()
}

// Name is a short label for the failure class, shown next to the message.
func (e *ApiErr) Name() string {
	switch {
	case e.StatusCode == 0:
		return "NetworkError"
	case e.StatusCode == http.StatusUnauthorized:
		return "AuthorizationError"
	default:
		return "RequestError"
	}
}

// Message is the human-readable part of the error without the cause chain.
func (e *ApiErr) Message() string {
	return e.Error()
}

// GetFullError returns a recursive error message including all causes
func (e *ApiErr) GetFullError() string {
	msg := e.Error()
	if e.Cause != nil {
		// Check if the cause is also an ApiErr for recursive error handling
		if apiErr, ok := e.Cause.(*ApiErr); ok {
			msg = fmt.Sprintf("%s -> %s", msg, apiErr.GetFullError())
		} else {
			msg = fmt.Sprintf("%s -> %s", msg, e.Cause.Error())
		}
	}
	return msg
}

// this function allows us to do the following:
// err := &ApiErr{StatusCode: ..., err: someSentinelError}
// errors.Is(err, someSentinelError) ==> evaluates to true
func (e *ApiErr) Unwrap() error {
	return e.err
}

func codeForStatus(status int) string {
	switch {
	case status == 0:
		return CodeNetwork
	case status == http.StatusUnauthorized:
		return CodeUnauthorized
	case status >= 500:
		return CodeBadResponse
	default:
		return CodeBadRequest
	}
}

// NewResponseError builds the error for a non-2xx response. message is the
// server's own error text when it sent one.
func NewResponseError(statusCode int, operation, message string) *ApiErr {
	var sentinel error
	switch statusCode {
	case http.StatusBadRequest:
		sentinel = ErrBadRequest
	case http.StatusForbidden:
		sentinel = ErrForbidden
	case http.StatusNotFound:
		sentinel = ErrNotFound
	case http.StatusConflict:
		sentinel = ErrConflict
	default:
		if statusCode >= 500 {
			sentinel = ErrInternal
		} else {
			sentinel = fmt.Errorf("request failed with status %d", statusCode)
		}
	}
	details := fmt.Sprintf("%s returned status %d", operation, statusCode)
	if message != "" {
		details = fmt.Sprintf("%s: %s", details, message)
	}
	return &ApiErr{
		StatusCode: statusCode,
		Code:       codeForStatus(statusCode),
		err:        sentinel,
		Details:    details,
	}
}

func NewNotFound(entity string) *ApiErr {
	return &ApiErr{
		StatusCode: http.StatusNotFound,
		Code:       CodeBadRequest,
		err:        fmt.Errorf("%s %w", entity, ErrNotFound),
	}
}

func NewBadRequestError(message string) *ApiErr {
	return &ApiErr{StatusCode: http.StatusBadRequest, Code: CodeBadRequest, err: errors.New(message)}
}

func NewInternalErrorWithCause(message string, cause error) *ApiErr {
	return &ApiErr{
		StatusCode: http.StatusInternalServerError,
		Code:       CodeBadResponse,
		err:        errors.New(message),
		Cause:      cause,
	}
}

func IsForbidden(err error) bool {
	return errors.Is(err, ErrForbidden)
}

func IsBadRequest(err error) bool {
	return errors.Is(err, ErrBadRequest)
}

// IsUnauthorized is true for rejected, missing and invalid credentials.
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized) || errors.Is(err, ErrMissingToken) || errors.Is(err, ErrInvalidToken)
}

func IsInternal(err error) bool {
	return errors.Is(err, ErrInternal)
}

func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// AsApiErr extracts the ApiErr from err, wrapping foreign errors as internal failures.
func AsApiErr(err error) *ApiErr {
	if err == nil {
		return nil
	}
	var apiErr *ApiErr
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return NewInternalErrorWithCause("unexpected error", err)
}
