// internal/app/features/apierr/apierr.go
//
// Package apierr writes JSON responses for the feature handlers and turns
// ledger failures into HTTP status codes.
package apierr

import (
	"encoding/json"
	"net/http"

	"github.com/dalemusser/eatandearn/internal/app/ledger"
	"github.com/dalemusser/eatandearn/internal/app/system/limits"
	"go.uber.org/zap"
)

// Body is the envelope of every error response.
type Body struct {
	Error Detail `json:"error"`
}

// Detail describes one failure.
type Detail struct {
	Code    string `json:"code"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// Status maps a ledger Kind to its HTTP status.
func Status(k ledger.Kind) int {
	switch k {
	case ledger.KindNotFound:
		return http.StatusNotFound
	case ledger.KindValidation:
		return http.StatusBadRequest
	case ledger.KindAuthorization:
		return http.StatusForbidden
	case ledger.KindInsufficient, ledger.KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// WriteJSON encodes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Write reports err. Domain failures keep their code and message; anything
// else is logged and hidden behind a generic 500.
func Write(w http.ResponseWriter, log *zap.Logger, op string, err error) {
	kind := ledger.KindOf(err)
	if kind == ledger.KindInternal {
		if log != nil {
			log.Error(op+" failed", zap.Error(err))
		}
		WriteJSON(w, http.StatusInternalServerError, Body{Error: Detail{
			Code:    "internal",
			Kind:    kind.String(),
			Message: "Something went wrong. Please try again.",
		}})
		return
	}
	WriteJSON(w, Status(kind), Body{Error: Detail{
		Code:    ledger.CodeOf(err),
		Kind:    kind.String(),
		Message: err.Error(),
	}})
}

// BadRequest reports a body that could not be decoded or validated.
func BadRequest(w http.ResponseWriter, msg string) {
	WriteJSON(w, http.StatusBadRequest, Body{Error: Detail{
		Code:    "invalid_request",
		Kind:    ledger.KindValidation.String(),
		Message: msg,
	}})
}

// NotFound is the router's fallback for unknown paths.
func NotFound(w http.ResponseWriter, _ *http.Request) {
	WriteJSON(w, http.StatusNotFound, Body{Error: Detail{
		Code:    "not_found",
		Kind:    ledger.KindNotFound.String(),
		Message: "No such resource.",
	}})
}

// MethodNotAllowed is the router's fallback for a known path with the wrong
// method. Transactions have no PUT or DELETE, so this is what those get.
func MethodNotAllowed(w http.ResponseWriter, _ *http.Request) {
	WriteJSON(w, http.StatusMethodNotAllowed, Body{Error: Detail{
		Code:    "method_not_allowed",
		Kind:    ledger.KindValidation.String(),
		Message: "Method not allowed.",
	}})
}

// Forbidden answers GET /forbidden, where the session middleware redirects
// browsers that lack the required role.
func Forbidden(w http.ResponseWriter, _ *http.Request) {
	WriteJSON(w, http.StatusForbidden, Body{Error: Detail{
		Code:    "forbidden",
		Kind:    ledger.KindAuthorization.String(),
		Message: "You don't have permission to do that.",
	}})
}

// DecodeJSON reads r's body into v and rejects unknown fields. On failure it
// writes the 400 itself and returns false.
func DecodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, limits.MaxJSONBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		BadRequest(w, "Request body must be valid JSON.")
		return false
	}
	return true
}

// Unauthorized reports failed or missing credentials.
func Unauthorized(w http.ResponseWriter, msg string) {
	WriteJSON(w, http.StatusUnauthorized, Body{Error: Detail{
		Code:    "unauthorized",
		Kind:    ledger.KindAuthorization.String(),
		Message: msg,
	}})
}

// TooManyRequests reports a throttled client.
func TooManyRequests(w http.ResponseWriter, msg string) {
	WriteJSON(w, http.StatusTooManyRequests, Body{Error: Detail{
		Code:    "rate_limited",
		Kind:    ledger.KindValidation.String(),
		Message: msg,
	}})
}
