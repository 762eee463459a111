package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/harshcrop/crypto-ai/pkg/cryptochat"
)

// ErrorResponse represents an error API response with structured information.
type ErrorResponse struct {
	Code      int    `json:"code"`
	Error     string `json:"error"`
	ErrorCode string `json:"error_code,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// writeErrorResponse writes err with the HTTP status derived from its code.
// Errors without a code are reported as 500.
func writeErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	response := ErrorResponse{
		Error:     err.Error(),
		RequestID: middleware.GetReqID(r.Context()),
	}
	var cErr *cryptochat.Error
	if errors.As(err, &cErr) {
		response.ErrorCode = string(cErr.Code)
		response.Error = cErr.Message
		status = mapErrorCodeToHTTPStatus(cErr.Code)
		annotate(w, "error_code", response.ErrorCode)
	}
	response.Code = status

	annotate(w, "error_message", err.Error())
	writeJSON(w, status, response)
}

// mapErrorCodeToHTTPStatus maps business error codes to HTTP status codes.
func mapErrorCodeToHTTPStatus(code cryptochat.ErrorCode) int {
	switch code {
	case cryptochat.ErrCodeInvalidInput, cryptochat.ErrCodeParse:
		return http.StatusBadRequest
	case cryptochat.ErrCodeNotFound:
		return http.StatusNotFound
	case cryptochat.ErrCodeBusy:
		return http.StatusConflict
	case cryptochat.ErrCodeTransport:
		return http.StatusBadGateway
	case cryptochat.ErrCodeUnsupported:
		return http.StatusNotImplemented
	case cryptochat.ErrCodeStorage, cryptochat.ErrCodeInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
