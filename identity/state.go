// Package identity merges the OTP, login and user-data session families
// into one view of who is signed in.
package identity

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/jmcleod/carepoint/session"
	"github.com/jmcleod/carepoint/storage"
)

// Source names which key family produced the current view.
const (
	SourceNone  = ""
	SourceOTP   = "otp"
	SourceLogin = "login"
	SourceUser  = "user"
)

// View is the in-memory identity snapshot.
type View struct {
	Name            string          `json:"name"`
	Phone           string          `json:"phone"`
	Email           string          `json:"email"`
	PatientID       *string         `json:"patientId"`
	IsLoggedIn      bool            `json:"isLoggedIn"`
	IsAuthenticated bool            `json:"isAuthenticated"`
	LoginTime       string          `json:"loginTime,omitempty"`
	Source          string          `json:"source,omitempty"`
	Profile         session.Payload `json:"profile,omitempty"`
	Error           string          `json:"error,omitempty"`
}

// DefaultView is the signed-out view.
func DefaultView() View {
	return View{Name: session.DefaultName}
}

// ProfileFetcher loads the authoritative profile for a patient.
type ProfileFetcher interface {
	FetchProfile(ctx context.Context, patientID string) (session.Payload, error)
}

// State owns the three codecs and the view derived from them. It is safe
// for concurrent use; the store underneath gives no cross-key atomicity.
type State struct {
	otp     *session.Codec
	login   *session.Codec
	user    *session.Codec
	fetcher ProfileFetcher
	logger  *slog.Logger

	mu   sync.RWMutex
	view View
	// epoch counts logouts so a refresh that straddles one is dropped.
	epoch uint64
}

// Option configures a State.
type Option func(*State)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *State) {
		s.logger = l
	}
}

// WithFetcher sets the remote profile source used by RefreshProfile.
func WithFetcher(f ProfileFetcher) Option {
	return func(s *State) {
		s.fetcher = f
	}
}

// New creates a State over existing codecs.
func New(otp, login, user *session.Codec, opts ...Option) *State {
	s := &State{
		otp:    otp,
		login:  login,
		user:   user,
		logger: slog.Default(),
		view:   DefaultView(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewFromStore builds the three standard codecs over store.
func NewFromStore(store storage.Store, codecOpts []session.Option, opts ...Option) *State {
	return New(
		session.NewOTP(store, codecOpts...),
		session.NewLogin(store, codecOpts...),
		session.NewUser(store, codecOpts...),
		opts...,
	)
}

// codecs returns the families in priority order.
func (s *State) codecs() []*session.Codec {
	return []*session.Codec{s.otp, s.login, s.user}
}

// View returns a copy of the current view.
func (s *State) View() View {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v := s.view
	v.Profile = s.view.Profile.Clone()
	return v
}

// Profile projects the current view for display.
func (s *State) Profile(opts session.ProjectionOptions) session.Profile {
	v := s.View()
	if v.Profile != nil {
		return session.Project(v.Profile, opts)
	}
	p := session.Payload{}
	if v.IsLoggedIn {
		p["name"] = v.Name
		p["phone"] = v.Phone
		p["email"] = v.Email
		if v.PatientID != nil {
			p["patient_id"] = *v.PatientID
		}
	}
	return session.Project(p, opts)
}

type resolved struct {
	source string
	codec  *session.Codec
	rec    *session.Record
}

// resolve reads every family concurrently and returns the first usable
// record in priority order. Expired stamped records are skipped.
func (s *State) resolve(ctx context.Context) (resolved, bool) {
	codecs := s.codecs()
	recs := make([]*session.Record, len(codecs))
	errs := make([]error, len(codecs))

	g, gctx := errgroup.WithContext(ctx)
	for i, c := range codecs {
		g.Go(func() error {
			recs[i], errs[i] = c.Check(gctx)
			return nil
		})
	}
	_ = g.Wait()

	for i, c := range codecs {
		if errs[i] != nil {
			if !session.IsNotFound(errs[i]) {
				s.logger.Debug("session source skipped", "codec", c.Name(), "kind", session.KindOf(errs[i]).String(), "error", errs[i])
			}
			continue
		}
		return resolved{source: c.Name(), codec: c, rec: recs[i]}, true
	}
	return resolved{}, false
}

func viewFrom(r resolved) View {
	p := r.rec.Payload
	v := View{
		Name:            session.Lookup(p, session.NameKeys...),
		Phone:           session.Lookup(p, session.PhoneKeys...),
		Email:           session.Lookup(p, session.EmailKeys...),
		IsLoggedIn:      true,
		IsAuthenticated: r.codec.Config().Stamped(),
		Source:          r.source,
	}
	if v.Name == "" {
		v.Name = session.DefaultName
	}
	if id := session.Lookup(p, session.PatientIDKeys...); id != "" {
		v.PatientID = &id
	}
	if !r.rec.IssuedAt.IsZero() {
		v.LoginTime = session.FormatISO(r.rec.IssuedAt)
	}
	if r.codec.Config().ProfileKey != "" {
		v.Profile = session.ProfileOf(p)
	} else {
		v.Profile = p.Clone()
		for _, k := range []string{session.FieldTimestamp, session.FieldLoginTime, session.FieldExpiresAt} {
			delete(v.Profile, k)
		}
	}
	return v
}

// LoadSession rebuilds the view from storage and returns it.
func (s *State) LoadSession(ctx context.Context) View {
	v := DefaultView()
	if r, ok := s.resolve(ctx); ok {
		v = viewFrom(r)
	}
	s.mu.Lock()
	s.view = v
	s.mu.Unlock()
	return s.View()
}

// IsUserLoggedIn reports whether any family holds a usable record.
func (s *State) IsUserLoggedIn(ctx context.Context) bool {
	_, ok := s.resolve(ctx)
	return ok
}

// SessionInfo reports the validity window of the active record, the one
// LoadSession would pick. An unstamped active record has no window and
// yields nil Info. With no usable record it falls back to the
// highest-priority stamped record even when expired, so callers can tell
// "Expired" from "Not logged in".
func (s *State) SessionInfo(ctx context.Context) (string, *session.Info) {
	if r, ok := s.resolve(ctx); ok {
		if !r.codec.Config().Stamped() {
			return r.source, nil
		}
		if info, err := r.codec.Info(ctx); err == nil && info != nil {
			return r.source, info
		}
	}
	for _, c := range s.codecs() {
		if !c.Config().Stamped() {
			continue
		}
		if info, err := c.Info(ctx); err == nil && info != nil {
			return c.Name(), info
		}
	}
	return SourceNone, nil
}

func (s *State) save(ctx context.Context, c *session.Codec, p session.Payload) error {
	rec, err := c.Write(ctx, p)
	if err != nil {
		s.logger.Warn("session save failed", "codec", c.Name(), "kind", session.KindOf(err).String(), "error", err)
		return err
	}
	v := viewFrom(resolved{source: c.Name(), codec: c, rec: rec})
	s.mu.Lock()
	s.view = v
	s.mu.Unlock()
	return nil
}

// SaveOTPSession stores an OTP verification response and makes it the
// active identity. A failed write leaves the view untouched.
func (s *State) SaveOTPSession(ctx context.Context, p session.Payload) error {
	return s.save(ctx, s.otp, p)
}

// SaveLoginSession stores a password login response.
func (s *State) SaveLoginSession(ctx context.Context, p session.Payload) error {
	return s.save(ctx, s.login, p)
}

// SaveUserData stores a plain user profile.
func (s *State) SaveUserData(ctx context.Context, p session.Payload) error {
	return s.save(ctx, s.user, p)
}

// UpdateProfileField writes one field to whichever family holds the active
// session, then reloads the view.
func (s *State) UpdateProfileField(ctx context.Context, field string, value any) error {
	r, ok := s.resolve(ctx)
	if !ok {
		return &session.Error{Kind: session.NotFound, Op: "update profile", Err: errors.New("no active session")}
	}
	if _, err := r.codec.Merge(ctx, field, value); err != nil {
		s.logger.Warn("profile update failed", "codec", r.codec.Name(), "field", field, "error", err)
		return err
	}
	s.LoadSession(ctx)
	return nil
}

// Logout clears all three families. The clears are independent: one
// failing does not undo the others. The view is reset either way and the
// returned error joins every failed clear.
func (s *State) Logout(ctx context.Context) error {
	codecs := s.codecs()
	errs := make([]error, len(codecs))

	var g errgroup.Group
	for i, c := range codecs {
		g.Go(func() error {
			errs[i] = c.Erase(ctx)
			return nil
		})
	}
	_ = g.Wait()

	s.mu.Lock()
	s.view = DefaultView()
	s.epoch++
	s.mu.Unlock()

	err := errors.Join(errs...)
	if err != nil {
		s.logger.Warn("logout incomplete", "error", err)
	}
	return err
}
