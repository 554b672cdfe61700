// Package httpx provides JSON response utilities for the inventory API.
//
// Every response uses the same envelope so the storefront and back-office
// clients can decode uniformly:
//
//	{ "data": ..., "meta": {"page":1,"size":20,"totalElements":42}, "error": {"code":"...","message":"..."} }
package httpx

import (
	"encoding/json"
	"net/http"
)

// Meta carries pagination metadata for list responses.
type Meta struct {
	Page          int `json:"page"`
	Size          int `json:"size"`
	TotalElements int `json:"totalElements"`
}

// ErrorBody describes a rejected operation.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Envelope is the uniform response wrapper.
type Envelope struct {
	Data  any        `json:"data,omitempty"`
	Meta  *Meta      `json:"meta,omitempty"`
	Error *ErrorBody `json:"error,omitempty"`
}

// JSON sends an arbitrary payload with the given status code.
func JSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// Data sends a successful envelope without pagination metadata.
func Data(w http.ResponseWriter, status int, data any) {
	JSON(w, status, Envelope{Data: data})
}

// Page sends a successful envelope carrying pagination metadata.
func Page(w http.ResponseWriter, data any, meta Meta) {
	JSON(w, http.StatusOK, Envelope{Data: data, Meta: &meta})
}

// Error sends an error envelope with the given code and message.
func Error(w http.ResponseWriter, status int, code, message string) {
	JSON(w, status, Envelope{Error: &ErrorBody{Code: code, Message: message}})
}

// DecodeJSON decodes the request body into target, rejecting unknown fields
// so malformed back-office payloads fail loudly instead of half-applying.
func DecodeJSON(r *http.Request, target any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(target)
}
