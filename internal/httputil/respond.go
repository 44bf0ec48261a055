// Package httputil writes the command envelope: successes as
// {"results": [...]} and failures as {"error": "..."} with an
// HTTP-equivalent status per failure class.
package httputil

import (
	"encoding/json"
	"net/http"
)

// ErrorBody is the failure envelope.
type ErrorBody struct {
	Error string `json:"error"`
}

// ResultBody is the success envelope. A map result is wrapped in a
// one-element list so clients always iterate.
type ResultBody struct {
	Results []any `json:"results"`
}

// WriteResults writes the success envelope. A slice result is used
// as-is, a single value is wrapped, nil yields an empty list. Extra
// meta keys, if any, are merged beside "results".
func WriteResults(w http.ResponseWriter, requestID string, result any, meta map[string]any) {
	var results []any
	switch v := result.(type) {
	case nil:
		results = []any{}
	case []any:
		results = v
	default:
		results = []any{v}
	}

	body := map[string]any{"results": results}
	for k, v := range meta {
		if k != "results" {
			body[k] = v
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Request-ID", requestID)
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(body)
}

// WriteError writes the failure envelope with the given status.
func WriteError(w http.ResponseWriter, requestID string, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Request-ID", requestID)
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(ErrorBody{Error: message})
}

func WriteBadRequestError(w http.ResponseWriter, requestID, message string) {
	WriteError(w, requestID, http.StatusBadRequest, message)
}

func WriteAuthError(w http.ResponseWriter, requestID, message string) {
	WriteError(w, requestID, http.StatusUnauthorized, message)
}

func WriteForbiddenError(w http.ResponseWriter, requestID, message string) {
	WriteError(w, requestID, http.StatusForbidden, message)
}

func WriteNotFoundError(w http.ResponseWriter, requestID, message string) {
	WriteError(w, requestID, http.StatusNotFound, message)
}

func WriteRateLimitError(w http.ResponseWriter, requestID, message string) {
	WriteError(w, requestID, http.StatusTooManyRequests, message)
}

func WriteNotImplementedError(w http.ResponseWriter, requestID, message string) {
	WriteError(w, requestID, http.StatusNotImplemented, message)
}

func WriteInternalError(w http.ResponseWriter, requestID, message string) {
	WriteError(w, requestID, http.StatusInternalServerError, message)
}
