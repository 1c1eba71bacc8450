package identity

import (
	"context"
	"errors"

	"github.com/golang-jwt/jwt/v5"

	"github.com/jmcleod/carepoint/session"
)

// claimKeys are the token claims that may carry the patient identifier.
var claimKeys = []string{"patient_id", "patientId", "sub"}

// RefreshProfile fetches the authoritative profile for the current patient
// and overwrites the in-memory profile with it. On failure the previous
// view is kept and its Error field records why.
func (s *State) RefreshProfile(ctx context.Context) error {
	if s.fetcher == nil {
		return s.refreshFailed(&session.Error{Kind: session.InvalidInput, Op: "refresh profile", Err: errors.New("no profile source configured")})
	}
	s.mu.RLock()
	epoch := s.epoch
	s.mu.RUnlock()

	id := s.patientID(ctx)
	if id == "" {
		return s.refreshFailed(&session.Error{Kind: session.MissingIdentifier, Op: "refresh profile"})
	}
	p, err := s.fetcher.FetchProfile(ctx, id)
	if err != nil {
		return s.refreshFailed(err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.epoch != epoch {
		s.logger.Info("discarding profile fetched across a logout", "patient_id", id)
		return &session.Error{Kind: session.NotFound, Op: "refresh profile", Err: errors.New("session ended during refresh")}
	}
	v := s.view
	v.Profile = p.Clone()
	if name := session.Lookup(p, session.NameKeys...); name != "" {
		v.Name = name
	}
	if phone := session.Lookup(p, session.PhoneKeys...); phone != "" {
		v.Phone = phone
	}
	if email := session.Lookup(p, session.EmailKeys...); email != "" {
		v.Email = email
	}
	if pid := session.Lookup(p, session.PatientIDKeys...); pid != "" {
		id = pid
	}
	v.PatientID = &id
	v.Error = ""
	s.view = v
	return nil
}

func (s *State) refreshFailed(err error) error {
	s.logger.Warn("profile refresh failed", "kind", session.KindOf(err).String(), "error", err)
	s.mu.Lock()
	s.view.Error = err.Error()
	s.mu.Unlock()
	return err
}

// patientID finds the identifier to refresh with: the view first, then the
// stored records in priority order, then the claims of the stored token.
func (s *State) patientID(ctx context.Context) string {
	s.mu.RLock()
	if s.view.PatientID != nil && *s.view.PatientID != "" {
		id := *s.view.PatientID
		s.mu.RUnlock()
		return id
	}
	s.mu.RUnlock()

	var tokens []string
	for _, c := range s.codecs() {
		p := c.Load(ctx)
		if p == nil {
			continue
		}
		if id := session.Lookup(p, session.PatientIDKeys...); id != "" {
			return id
		}
		if tok := session.TokenOf(p); tok != "" {
			tokens = append(tokens, tok)
		}
	}
	if tok := s.login.Token(ctx); tok != "" {
		tokens = append(tokens, tok)
	}
	for _, tok := range tokens {
		if id := patientIDFromToken(tok); id != "" {
			return id
		}
	}
	return ""
}

// patientIDFromToken reads the identifier claim without verifying the
// signature. The token is only used to address the profile request; the
// backend authorises it.
func patientIDFromToken(tok string) string {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tok, claims); err != nil {
		return ""
	}
	return session.Payload(claims).String(claimKeys...)
}
