package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/dmitrijs2005/smartids/internal/common"
)

// Payload is the JSON envelope of every non-binary response.
type Payload struct {
	Success   bool       `json:"success"`
	Message   string     `json:"message,omitempty"`
	Code      string     `json:"code,omitempty"`
	Data      any        `json:"data,omitempty"`
	Files     any        `json:"files,omitempty"`
	Shares    any        `json:"shares,omitempty"`
	URL       string     `json:"url,omitempty"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
}

// JSONResponse writes payload with the given status.
func JSONResponse(w http.ResponseWriter, status int, payload Payload) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// Error codes are stable and machine-checkable; messages are for humans.
const (
	CodeBadRequest   = "bad_request"
	CodeUnauthorized = "unauthorized"
	CodeNotFound     = "not_found"
	CodeFileMissing  = "file_missing"
	CodeExpired      = "expired"
	CodeExhausted    = "exhausted"
	CodeTooLarge     = "too_large"
	CodeConfig       = "config"
	CodeIntegrity    = "integrity"
	CodeInternal     = "internal"
)

type errorMapping struct {
	err     error
	status  int
	code    string
	message string
}

var errorMappings = []errorMapping{
	{common.ErrorValidation, http.StatusBadRequest, CodeBadRequest, "Invalid request"},
	{common.ErrInvalidToken, http.StatusUnauthorized, CodeUnauthorized, "Unauthorized"},
	{common.ErrTokenExpired, http.StatusUnauthorized, CodeUnauthorized, "Unauthorized"},
	{common.ErrorUnauthorized, http.StatusUnauthorized, CodeUnauthorized, "Unauthorized"},
	{common.ErrorNotFound, http.StatusNotFound, CodeNotFound, "Not found"},
	{common.ErrBlobNotFound, http.StatusNotFound, CodeFileMissing, "File missing"},
	{common.ErrShareExpired, http.StatusGone, CodeExpired, "Link expired"},
	{common.ErrShareExhausted, http.StatusGone, CodeExhausted, "Download limit reached"},
	{common.ErrFileTooLarge, http.StatusRequestEntityTooLarge, CodeTooLarge, "File too large"},
	{common.ErrConfig, http.StatusInternalServerError, CodeConfig, "Server configuration error"},
	{common.ErrIntegrity, http.StatusInternalServerError, CodeIntegrity, "File integrity check failed"},
}

// mapError returns the HTTP status, code and message for err. Unknown
// errors become a generic 500 that reveals nothing.
func mapError(err error) (int, string, string) {
	for _, m := range errorMappings {
		if errors.Is(err, m.err) {
			return m.status, m.code, m.message
		}
	}
	return http.StatusInternalServerError, CodeInternal, "Server error"
}

// ErrorResponse writes the failure envelope for err.
func ErrorResponse(w http.ResponseWriter, err error) {
	status, code, message := mapError(err)
	JSONResponse(w, status, Payload{Success: false, Code: code, Message: message})
}

// errorMessage writes a failure envelope with a handler specific message.
func errorMessage(w http.ResponseWriter, err error, message string) {
	status, code, _ := mapError(err)
	JSONResponse(w, status, Payload{Success: false, Code: code, Message: message})
}
