package api

import (
	"github.com/jmcleod/carepoint/backend"
	"github.com/jmcleod/carepoint/session"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

// SessionInfoResponse is returned from GET /session/info.
type SessionInfoResponse struct {
	Source    string        `json:"source"`
	LoggedIn  bool          `json:"logged_in"`
	Remaining string        `json:"remaining"`
	Info      *session.Info `json:"info,omitempty"`
}

// UpdateFieldRequest is the JSON body for PATCH /session/profile.
type UpdateFieldRequest struct {
	Field string `json:"field"`
	Value any    `json:"value"`
}

// LogoutResponse is returned from POST /session/logout.
type LogoutResponse struct {
	LoggedOut bool   `json:"logged_out"`
	Error     string `json:"error,omitempty"`
}

// ListDoctorsResponse is returned from GET /doctors.
type ListDoctorsResponse struct {
	Doctors []backend.Doctor `json:"doctors"`
	PaginationMeta
}
