package httputil

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ignite/offer-finder/internal/domain"
	"github.com/ignite/offer-finder/internal/pkg/logger"
)

// Error codes returned in ErrorResponse.Code.
const (
	CodeInvalidQuery         = "invalid_query"
	CodeNoNetworksConfigured = "no_networks_configured"
	CodeCancelled            = "cancelled"
	CodeNotImplemented       = "not_implemented"
	CodeUnauthorized         = "network_unauthorized"
	CodeNetworkUnavailable   = "network_unavailable"
	CodeNotFound             = "not_found"
	CodeExportDisabled       = "export_disabled"
	CodeInternal             = "internal"
)

// ErrorResponse is the standard error envelope for all API errors.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

// JSON writes a JSON response with the given status code. The data is
// serialized and Content-Type is set automatically.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("json encode failed", "error", err)
	}
}

// OK writes a 200 response with the given data.
func OK(w http.ResponseWriter, data any) {
	JSON(w, http.StatusOK, data)
}

// Error writes a JSON error response. Use for client errors (4xx).
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, ErrorResponse{Error: message})
}

// ErrorCode writes a JSON error response carrying a machine-readable code.
func ErrorCode(w http.ResponseWriter, status int, code, message string) {
	JSON(w, status, ErrorResponse{Error: message, Code: code})
}

// BadRequest writes a 400 error.
func BadRequest(w http.ResponseWriter, message string) {
	ErrorCode(w, http.StatusBadRequest, CodeInvalidQuery, message)
}

// NotFound writes a 404 error.
func NotFound(w http.ResponseWriter, message string) {
	ErrorCode(w, http.StatusNotFound, CodeNotFound, message)
}

// InternalError writes a 500 error. Logs the real error but returns a
// generic message to the client (never leak internals).
func InternalError(w http.ResponseWriter, err error) {
	logger.Error("internal error", "error", err)
	ErrorCode(w, http.StatusInternalServerError, CodeInternal, "internal server error")
}

// FromError maps the domain sentinels onto HTTP statuses. Unrecognized
// errors are internal.
func FromError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidQuery):
		ErrorCode(w, http.StatusBadRequest, CodeInvalidQuery, err.Error())
	case errors.Is(err, domain.ErrNoNetworksConfigured):
		ErrorCode(w, http.StatusServiceUnavailable, CodeNoNetworksConfigured, "no affiliate networks are configured")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		ErrorCode(w, http.StatusServiceUnavailable, CodeCancelled, "request cancelled")
	case errors.Is(err, domain.ErrOfferNotFound):
		ErrorCode(w, http.StatusNotFound, CodeNotFound, err.Error())
	case errors.Is(err, domain.ErrNotImplemented):
		ErrorCode(w, http.StatusNotImplemented, CodeNotImplemented, err.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		ErrorCode(w, http.StatusBadGateway, CodeUnauthorized, err.Error())
	case errors.Is(err, domain.ErrNetworkUnavailable):
		ErrorCode(w, http.StatusBadGateway, CodeNetworkUnavailable, err.Error())
	default:
		InternalError(w, err)
	}
}

// Decode reads JSON from the request body into dst.
// Returns false and writes a 400 response if parsing fails.
func Decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		BadRequest(w, "invalid JSON: "+err.Error())
		return false
	}
	return true
}
