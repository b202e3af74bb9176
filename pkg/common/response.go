package common

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// Status is the application-level outcome carried in every JSON envelope.
type Status uint16

const (
	StatusSuccess Status = 0
	StatusPanic   Status = 500

	StatusValidationError Status = 1400
	StatusUnauthorized    Status = 1401
	StatusNotFound        Status = 1404
	StatusInvalidRequest  Status = 1422
	StatusRateLimited     Status = 1429
	StatusCanceled        Status = 1499
	StatusInternalError   Status = 1500
	StatusOperationError  Status = 1600
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusPanic:
		return "panic"
	case StatusValidationError:
		return "validation_error"
	case StatusUnauthorized:
		return "unauthorized"
	case StatusNotFound:
		return "not_found"
	case StatusInvalidRequest:
		return "invalid_request"
	case StatusRateLimited:
		return "rate_limited"
	case StatusCanceled:
		return "canceled"
	case StatusInternalError:
		return "internal_error"
	case StatusOperationError:
		return "operation_error"
	default:
		return "unknown"
	}
}

// Response is the envelope used by every JSON handler
type Response[T any] struct {
	Status  Status `json:"status"`
	Message string `json:"message,omitempty"`
	Data    T      `json:"data"`
}

func (r *Response[T]) IsSuccess() bool {
	return r.Status == StatusSuccess
}

// Error implements the error interface
func (r *Response[T]) Error() string {
	if r.IsSuccess() {
		return ""
	}
	return fmt.Sprintf("%s: %s", r.Status.String(), r.Message)
}

// WriteJSONResponse writes an envelope. Application failures still use HTTP 200;
// only panics map to 500.
func WriteJSONResponse[T any](w http.ResponseWriter, status Status, message string, data T) {
	resp := &Response[T]{
		Status:  status,
		Message: message,
		Data:    data,
	}

	body, err := json.Marshal(resp)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	statusCode := http.StatusOK
	if status == StatusPanic {
		statusCode = http.StatusInternalServerError
	}
	w.WriteHeader(statusCode)
	w.Write(append(body, '\n'))
}

func WriteSuccessResponse[T any](w http.ResponseWriter, data T) {
	WriteJSONResponse(w, StatusSuccess, "success", data)
}

func WriteErrorResponse(w http.ResponseWriter, status Status, format string, a ...any) {
	WriteJSONResponse(w, status, fmt.Sprintf(format, a...), struct{}{})
}
