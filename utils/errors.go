package utils

import (
	"errors"
	"log/slog"
	"net/http"
)

const (
	ValidationError           = "ValidationError"
	NotFoundError             = "NotFoundError"
	ReferentialIntegrityError = "ReferentialIntegrityError"
	AuthenticationError       = "AuthenticationError"
	PermissionError           = "PermissionError"
	RateLimitError            = "RateLimitError"
	UnexpectedError           = "UnexpectedError"
)

const unexpectedErrorDetail = "an unexpected error occurred"

type codedError struct {
	err  error
	code int
}

func (e *codedError) Error() string {
	return e.err.Error()
}

func (e *codedError) Unwrap() error {
	return e.err
}

func CodedError(err error, code int) error {
	return &codedError{err: err, code: code}
}

func GetResponseCode(err error) int {
	var cerr *codedError
	if errors.As(err, &cerr) {
		return cerr.code
	}
	slog.Error("non coded error passed to GetResponseCode", "error", err)
	return http.StatusInternalServerError
}

func ErrorKind(code int) string {
	switch code {
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return ValidationError
	case http.StatusNotFound, http.StatusMethodNotAllowed:
		return NotFoundError
	case http.StatusConflict:
		return ReferentialIntegrityError
	case http.StatusUnauthorized:
		return AuthenticationError
	case http.StatusForbidden:
		return PermissionError
	case http.StatusTooManyRequests:
		return RateLimitError
	default:
		return UnexpectedError
	}
}

type ErrorResponse struct {
	Error      string `json:"error"`
	Detail     string `json:"detail"`
	StatusCode int    `json:"status_code"`
}

func WriteError(w http.ResponseWriter, err error) {
	WriteErrorCode(w, err.Error(), GetResponseCode(err))
}

// WriteErrorCode renders the uniform error envelope. Details of server side
// failures are logged and replaced so that internals never reach the caller.
func WriteErrorCode(w http.ResponseWriter, detail string, code int) {
	if code >= http.StatusInternalServerError {
		slog.Error("unexpected error handling request", "code", code, "error", detail)
		detail = unexpectedErrorDetail
	}
	WriteJsonResponseCode(w, code, ErrorResponse{
		Error:      ErrorKind(code),
		Detail:     detail,
		StatusCode: code,
	})
}
