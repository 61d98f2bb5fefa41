// Package httpx provides the JSON response envelope shared by all handlers.
package httpx

import (
	"encoding/json"
	"net/http"
)

// ErrorBody is the JSON error envelope. Reason is a machine-readable code
// clients branch on; Message is for humans.
type ErrorBody struct {
	Reason  string `json:"reason"`
	Message string `json:"message"`
}

// JSON writes v as a JSON response with the given status.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

// Error writes a JSON error envelope with the given status, reason, and message.
func Error(w http.ResponseWriter, status int, reason, message string) {
	JSON(w, status, ErrorBody{Reason: reason, Message: message})
}

// DecodeJSON decodes the request body into v, rejecting unknown fields.
func DecodeJSON(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
