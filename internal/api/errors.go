package api

import (
	"fmt"
	"net/http"
	"strings"
)

type ApiError struct {
	StatusCode int    `json:"status_code"`
	Message    string `json:"message"`
	Err        error  `json:"-"`
}

func (e *ApiError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s", e.Message, e.Err.Error())
	}

	return e.Message
}

func (e *ApiError) Unwrap() error {
	return e.Err
}

// newApiError uses the lowercased status text as the client-facing message.
func newApiError(statusCode int, err error) *ApiError {
	return &ApiError{
		StatusCode: statusCode,
		Message:    strings.ToLower(http.StatusText(statusCode)),
		Err:        err,
	}
}

func NewBadRequestError() *ApiError {
	return newApiError(http.StatusBadRequest, nil)
}

func NewNotFoundError() *ApiError {
	return newApiError(http.StatusNotFound, nil)
}

func NewInternalServerError(err error) *ApiError {
	return newApiError(http.StatusInternalServerError, err)
}

func NewUnauthorizedError() *ApiError {
	return newApiError(http.StatusUnauthorized, nil)
}

func NewServiceUnavailableError() *ApiError {
	return newApiError(http.StatusServiceUnavailable, nil)
}
