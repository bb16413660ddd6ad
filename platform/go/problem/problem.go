// Package problem renders RFC 7807 problem-details responses.
package problem

import (
	"encoding/json"
	"net/http"
)

const (
	TypeValidation = "https://pencilbook.dev/problems/validation-error"
	TypeNotFound   = "https://pencilbook.dev/problems/not-found"
	TypeConflict   = "https://pencilbook.dev/problems/conflict"
	TypeTransition = "https://pencilbook.dev/problems/illegal-transition"
	TypeBusy       = "https://pencilbook.dev/problems/busy"
	TypeInternal   = "https://pencilbook.dev/problems/internal-error"
)

// Details is the wire form of an error response.
type Details struct {
	Type   string         `json:"type"`
	Title  string         `json:"title"`
	Detail string         `json:"detail,omitempty"`
	Status int            `json:"status"`
	Extra  map[string]any `json:"extra,omitempty"`
}

// Write renders the problem document with the proper content type.
func Write(w http.ResponseWriter, p Details) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(p.Status)
	_ = json.NewEncoder(w).Encode(p)
}
