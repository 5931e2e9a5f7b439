package errs

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Authentication & Authorization Errors
var (
	ErrMissingToken = errors.New("missing access token")
	ErrInvalidToken = errors.New("invalid access token")
	// ErrInvalidCredentials is a rejected username/password exchange.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// Networking & Transport Errors
var (
	ErrServiceUnreachable = errors.New("service unreachable")
	ErrRequestCanceled    = errors.New("request canceled")
)

// Local state errors
var (
	ErrStoreClosed = errors.New("project store closed")
)

// Authentication & Authorization Error Constructors
func NewMissingTokenError() *ApiErr {
	return &ApiErr{
		StatusCode: http.StatusUnauthorized,
		Code:       CodeUnauthorized,
		err:        ErrMissingToken,
		Details:    "Missing access token",
		Field:      "authorization",
	}
}

func NewInvalidTokenError() *ApiErr {
	return &ApiErr{
		StatusCode: http.StatusUnauthorized,
		Code:       CodeUnauthorized,
		err:        ErrInvalidToken,
		Details:    "Access token was rejected",
		Field:      "authorization",
	}
}

func NewInvalidCredentialsError(message string) *ApiErr {
	return &ApiErr{
		StatusCode: http.StatusUnauthorized,
		Code:       CodeUnauthorized,
		err:        ErrInvalidCredentials,
		Details:    message,
		Field:      "password",
	}
}

// NewServiceUnreachableError reports a request that never produced a response.
// A canceled context is reported as ErrRequestCanceled instead.
func NewServiceUnreachableError(service string, cause error) *ApiErr {
	if errors.Is(cause, context.Canceled) || errors.Is(cause, context.DeadlineExceeded) {
		return &ApiErr{
			Code:    CodeCanceled,
			err:     ErrRequestCanceled,
			Details: fmt.Sprintf("Request to %s canceled", service),
			Cause:   cause,
		}
	}
	return &ApiErr{
		Code:    CodeNetwork,
		err:     ErrServiceUnreachable,
		Details: fmt.Sprintf("Service %s is unreachable", service),
		Cause:   cause,
	}
}

func IsMissingTokenError(err error) bool {
	return errors.Is(err, ErrMissingToken)
}

func IsInvalidTokenError(err error) bool {
	return errors.Is(err, ErrInvalidToken)
}

func IsInvalidCredentialsError(err error) bool {
	return errors.Is(err, ErrInvalidCredentials)
}

func IsServiceUnreachableError(err error) bool {
	return errors.Is(err, ErrServiceUnreachable)
}

func IsRequestCanceledError(err error) bool {
	return errors.Is(err, ErrRequestCanceled)
}
