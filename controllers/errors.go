package controllers

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
)

type ErrorCode string

const (
	ErrorNotFound           ErrorCode = "NOT_FOUND"
	ErrorBadRequest         ErrorCode = "BAD_REQUEST"
	ErrorServiceUnavailable ErrorCode = "SERVICE_UNAVAILABLE"
	ErrorUpstream           ErrorCode = "UPSTREAM_ERROR"
	ErrorStorage            ErrorCode = "STORAGE_ERROR"
)

// Error is a handler failure carrying the detail shown to the HTTP client.
type Error struct {
	Code   ErrorCode
	Detail string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err == nil {
		return fmt.Sprintf("controllers: %s (%s)", e.Code, e.Detail)
	}
	return fmt.Sprintf("controllers: %s (%s): %v", e.Code, e.Detail, e.Err)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func newError(code ErrorCode, detail string, err error) *Error {
	return &Error{Code: code, Detail: detail, Err: err}
}

func (code ErrorCode) HTTPStatus() int {
	switch code {
	case ErrorNotFound:
		return http.StatusNotFound
	case ErrorBadRequest:
		return http.StatusBadRequest
	case ErrorServiceUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

type errorResponse struct {
	Detail string `json:"detail"`
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var handlerErr *Error
	if !errors.As(err, &handlerErr) {
		handlerErr = newError(ErrorStorage, "Internal server error", err)
	}

	status := handlerErr.Code.HTTPStatus()
	if status >= http.StatusInternalServerError {
		slog.ErrorContext(r.Context(), "request failed",
			"request_id", RequestID(r.Context()),
			"code", handlerErr.Code,
			"error", handlerErr.Err,
		)
	}

	writeJSON(w, status, errorResponse{Detail: handlerErr.Detail})
}
