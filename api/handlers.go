package api

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/jmcleod/carepoint/identity"
	"github.com/jmcleod/carepoint/session"
)

// maxBodySize bounds request bodies; login responses are small JSON objects.
const maxBodySize = 256 << 10

// decodePayload reads the request body as a JSON object. It writes a 400
// and returns false when the body is missing or malformed.
func decodePayload(w http.ResponseWriter, r *http.Request) (session.Payload, bool) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return nil, false
		}
		writeError(w, http.StatusBadRequest, "reading request body failed")
		return nil, false
	}
	p, err := session.DecodePayload(data)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON object: %v", err))
		return nil, false
	}
	return p, true
}

// GetSession handles GET /session.
// Rebuilds the identity view from storage and returns it.
func (a *API) GetSession(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.state.LoadSession(r.Context()))
}

// GetSessionInfo handles GET /session/info.
func (a *API) GetSessionInfo(w http.ResponseWriter, r *http.Request) {
	source, info := a.state.SessionInfo(r.Context())
	loggedIn := a.state.IsUserLoggedIn(r.Context())
	writeJSON(w, http.StatusOK, SessionInfoResponse{
		Source:    source,
		LoggedIn:  loggedIn,
		Remaining: session.FormatActiveRemaining(info, loggedIn),
		Info:      info,
	})
}

type saveFunc func(*identity.State, *http.Request, session.Payload) error

func (a *API) saveSession(w http.ResponseWriter, r *http.Request, event ActivityEvent, source string, save saveFunc) {
	p, ok := decodePayload(w, r)
	if !ok {
		return
	}
	if err := save(a.state, r, p); err != nil {
		a.activity.logFailure(ActivitySaveFailed, r, err, slog.String("source", source))
		mapError(w, err)
		return
	}
	a.activity.log(event, r, slog.String("source", source))
	writeJSON(w, http.StatusCreated, a.state.View())
}

// SaveOTPSession handles POST /session/otp.
// The body is the OTP verification response, stored as-is plus stamps.
func (a *API) SaveOTPSession(w http.ResponseWriter, r *http.Request) {
	a.saveSession(w, r, ActivityOTPSessionSaved, identity.SourceOTP, func(s *identity.State, r *http.Request, p session.Payload) error {
		return s.SaveOTPSession(r.Context(), p)
	})
}

// SaveLoginSession handles POST /session/login.
func (a *API) SaveLoginSession(w http.ResponseWriter, r *http.Request) {
	a.saveSession(w, r, ActivityLoginSessionSaved, identity.SourceLogin, func(s *identity.State, r *http.Request, p session.Payload) error {
		return s.SaveLoginSession(r.Context(), p)
	})
}

// SaveUserData handles POST /session/user.
func (a *API) SaveUserData(w http.ResponseWriter, r *http.Request) {
	a.saveSession(w, r, ActivityUserDataSaved, identity.SourceUser, func(s *identity.State, r *http.Request, p session.Payload) error {
		return s.SaveUserData(r.Context(), p)
	})
}

// UpdateProfileField handles PATCH /session/profile.
// Email and phone values must pass the sign-up form validators; stamp
// fields are read-only.
func (a *API) UpdateProfileField(w http.ResponseWriter, r *http.Request) {
	p, ok := decodePayload(w, r)
	if !ok {
		return
	}
	req := UpdateFieldRequest{Field: p.String("field"), Value: p["value"]}
	if err := session.ValidateField(req.Field, req.Value); err != nil {
		mapError(w, err)
		return
	}
	if err := a.state.UpdateProfileField(r.Context(), req.Field, req.Value); err != nil {
		mapError(w, err)
		return
	}
	a.activity.log(ActivityProfileUpdated, r, slog.String("field", req.Field))
	writeJSON(w, http.StatusOK, a.state.View())
}

// RefreshProfile handles POST /session/refresh.
// On failure the previous view is kept and the error is also recorded on it.
func (a *API) RefreshProfile(w http.ResponseWriter, r *http.Request) {
	if err := a.state.RefreshProfile(r.Context()); err != nil {
		a.activity.logFailure(ActivityProfileRefreshError, r, err)
		mapError(w, err)
		return
	}
	a.activity.log(ActivityProfileRefreshed, r)
	writeJSON(w, http.StatusOK, a.state.View())
}

// Logout handles POST /session/logout.
// The view is reset even when some clears fail; the response says which.
func (a *API) Logout(w http.ResponseWriter, r *http.Request) {
	if err := a.state.Logout(r.Context()); err != nil {
		a.activity.logFailure(ActivityLogoutIncomplete, r, err)
		writeJSON(w, http.StatusInternalServerError, LogoutResponse{LoggedOut: false, Error: err.Error()})
		return
	}
	a.activity.log(ActivityLogout, r)
	writeJSON(w, http.StatusOK, LogoutResponse{LoggedOut: true})
}

// GetProfile handles GET /profile.
// Returns the display projection of the current view.
func (a *API) GetProfile(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.state.Profile(a.projection))
}

// ListDoctors handles GET /doctors.
// Proxies the remote directory with limit/offset pagination.
func (a *API) ListDoctors(w http.ResponseWriter, r *http.Request) {
	if a.doctors == nil {
		writeError(w, http.StatusServiceUnavailable, "doctor directory is not configured")
		return
	}
	doctors, err := a.doctors.ListDoctors(r.Context())
	if err != nil {
		mapError(w, err)
		return
	}
	items, meta := paginate(doctors, pageFromRequest(r))
	writeJSON(w, http.StatusOK, ListDoctorsResponse{Doctors: items, PaginationMeta: meta})
}
