// Package apierr provides the shared error taxonomy and JSON response
// envelope for tvargenta's HTTP API.
package apierr

import (
	"encoding/json"
	"net/http"
)

// Kind classifies an API error into an HTTP status family.
type Kind string

const (
	KindNotFound            Kind = "not_found"
	KindBadRequest          Kind = "bad_request"
	KindConflict            Kind = "conflict"
	KindIOFault             Kind = "io_fault"
	KindInvariantViolation  Kind = "invariant_violation"
	KindUnauthorized        Kind = "unauthorized"
	KindRateLimited         Kind = "rate_limited"
)

// Error is a classified API error carrying the HTTP status it maps to.
type Error struct {
	Kind    Kind
	Message string
	Status  int
}

func (e *Error) Error() string { return e.Message }

func newErr(kind Kind, status int, msg string) *Error {
	return &Error{Kind: kind, Message: msg, Status: status}
}

func NotFound(msg string) *Error           { return newErr(KindNotFound, http.StatusNotFound, msg) }
func BadRequest(msg string) *Error         { return newErr(KindBadRequest, http.StatusBadRequest, msg) }
func Conflict(msg string) *Error           { return newErr(KindConflict, http.StatusConflict, msg) }
func IOFault(msg string) *Error            { return newErr(KindIOFault, http.StatusInternalServerError, msg) }
func InvariantViolation(msg string) *Error { return newErr(KindInvariantViolation, http.StatusInternalServerError, msg) }
func Unauthorized(msg string) *Error       { return newErr(KindUnauthorized, http.StatusUnauthorized, msg) }
func RateLimited(msg string) *Error        { return newErr(KindRateLimited, http.StatusTooManyRequests, msg) }

// envelope is the standard error response body for every endpoint.
type envelope struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// WriteJSON writes a JSON error response, deriving the status code from
// the Error's Kind. Non-*Error values are written as a 500 with kind
// "io_fault".
func WriteJSON(w http.ResponseWriter, err error) {
	apiErr, ok := err.(*Error)
	if !ok {
		apiErr = IOFault(err.Error())
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(apiErr.Status)
	json.NewEncoder(w).Encode(envelope{Error: string(apiErr.Kind), Message: apiErr.Message})
}

// WriteSuccess writes a JSON success response with the given status.
func WriteSuccess(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
