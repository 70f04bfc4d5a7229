package httputil

import (
	"encoding/json"
	"net/http"
)

// Generic error codes for failures outside the engine's error kinds
const (
	ErrCodeBadRequest   = "BAD_REQUEST"
	ErrCodeUnauthorized = "UNAUTHENTICATED"
	ErrCodeForbidden    = "FORBIDDEN"
	ErrCodeNotFound     = "NOT_FOUND"
	ErrCodeConflict     = "CONFLICT"
	ErrCodeInternal     = "INTERNAL_ERROR"
)

// Envelope is the response format of every endpoint:
// {"success": true, "message": "...", "data": {...}}
// Failures set success=false and add {"error": {"code", "message"}}.
type Envelope struct {
	Success bool         `json:"success"`
	Message string       `json:"message,omitempty"`
	Data    interface{}  `json:"data,omitempty"`
	Error   *ErrorDetail `json:"error,omitempty"`
}

// ErrorDetail contains the error code and message
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// WriteJSON writes a JSON response with the given status code
func WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if data != nil {
		// Headers are already sent, nothing useful to do on failure
		_ = json.NewEncoder(w).Encode(data)
	}
}

// WriteSuccess wraps data in a success envelope.
func WriteSuccess(w http.ResponseWriter, status int, message string, data interface{}) {
	WriteJSON(w, status, Envelope{Success: true, Message: message, Data: data})
}

// WriteOK writes a 200 success envelope.
func WriteOK(w http.ResponseWriter, data interface{}) {
	WriteSuccess(w, http.StatusOK, "", data)
}

// WriteCreated writes a 201 success envelope.
func WriteCreated(w http.ResponseWriter, message string, data interface{}) {
	WriteSuccess(w, http.StatusCreated, message, data)
}

// WriteError writes a failure envelope.
func WriteError(w http.ResponseWriter, status int, code string, message string) {
	WriteJSON(w, status, Envelope{
		Success: false,
		Message: message,
		Error:   &ErrorDetail{Code: code, Message: message},
	})
}

// WriteBadRequest writes a 400 Bad Request error
func WriteBadRequest(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, ErrCodeBadRequest, message)
}

// WriteBadRequestWithCode writes a 400 Bad Request error with a custom code
func WriteBadRequestWithCode(w http.ResponseWriter, code string, message string) {
	WriteError(w, http.StatusBadRequest, code, message)
}

// WriteUnauthorized writes a 401 Unauthorized error
func WriteUnauthorized(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusUnauthorized, ErrCodeUnauthorized, message)
}

// WriteForbidden writes a 403 Forbidden error
func WriteForbidden(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusForbidden, ErrCodeForbidden, message)
}

// WriteNotFound writes a 404 Not Found error
func WriteNotFound(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusNotFound, ErrCodeNotFound, message)
}

// WriteInternalError writes a 500 Internal Server Error
func WriteInternalError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusInternalServerError, ErrCodeInternal, message)
}
