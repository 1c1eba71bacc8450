package api

import (
	"encoding/json"
	"net/http"

	"github.com/jmcleod/carepoint/session"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

func writeKindError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, ErrorResponse{Error: err.Error(), Kind: session.KindOf(err).String()})
}

// statusFor maps a failure kind to the HTTP status reported for it.
func statusFor(err error) int {
	switch session.KindOf(err) {
	case session.NotFound:
		return http.StatusNotFound
	case session.InvalidInput:
		return http.StatusBadRequest
	case session.SessionExpired:
		return http.StatusUnauthorized
	case session.MissingIdentifier:
		return http.StatusUnprocessableEntity
	case session.NetworkFailure:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func mapError(w http.ResponseWriter, err error) {
	writeKindError(w, statusFor(err), err)
}
