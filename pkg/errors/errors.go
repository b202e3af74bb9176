package errors

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// ErrorType represents the type of error
type ErrorType string

const (
	ErrorTypeInvalidRequest  ErrorType = "invalid_request"
	ErrorTypeUnauthorized    ErrorType = "unauthorized"
	ErrorTypeRateLimited     ErrorType = "rate_limited"
	ErrorTypeSessionCanceled ErrorType = "session_canceled"
	ErrorTypeInternal        ErrorType = "internal_error"
)

// APIError is a transport-level failure written with a real HTTP status
type APIError struct {
	Type    ErrorType `json:"type"`
	Message string    `json:"message"`
	Code    int       `json:"code"`
	Details string    `json:"details,omitempty"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// NewAPIError creates a new API error
func NewAPIError(errorType ErrorType, message string, code int, details ...string) *APIError {
	err := &APIError{
		Type:    errorType,
		Message: message,
		Code:    code,
	}
	if len(details) > 0 {
		err.Details = details[0]
	}
	return err
}

func NewInvalidRequestError(message string, details ...string) *APIError {
	return NewAPIError(ErrorTypeInvalidRequest, message, http.StatusBadRequest, details...)
}

func NewUnauthorizedError() *APIError {
	return NewAPIError(ErrorTypeUnauthorized, "Unauthorized", http.StatusUnauthorized)
}

func NewRateLimitError(client string) *APIError {
	return NewAPIError(ErrorTypeRateLimited, "Rate limit exceeded", http.StatusTooManyRequests, client)
}

// NewSessionCanceledError is returned when a request gives up waiting for the printer
func NewSessionCanceledError(details ...string) *APIError {
	return NewAPIError(ErrorTypeSessionCanceled, "Request canceled while waiting for the printer", http.StatusServiceUnavailable, details...)
}

func NewInternalError(message string, details ...string) *APIError {
	return NewAPIError(ErrorTypeInternal, message, http.StatusInternalServerError, details...)
}

// WriteErrorResponse writes an error response to the HTTP response writer
func WriteErrorResponse(w http.ResponseWriter, err *APIError) {
	body, encodeErr := json.Marshal(err)
	if encodeErr != nil {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(err.Code)
		fmt.Fprintf(w, "Error: %s", err.Message)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(err.Code)
	w.Write(append(body, '\n'))
}
