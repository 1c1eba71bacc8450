// Package api serves the session and profile core over a local HTTP API so
// a UI shell can drive it.
package api

import (
	"context"
	_ "embed"
	"log/slog"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/go-openapi/runtime/middleware"

	"github.com/jmcleod/carepoint/backend"
	"github.com/jmcleod/carepoint/identity"
	"github.com/jmcleod/carepoint/session"
)

// DoctorLister is the doctor directory the /doctors route proxies.
type DoctorLister interface {
	ListDoctors(ctx context.Context) ([]backend.Doctor, error)
}

// API holds the dependencies needed by the REST handlers.
type API struct {
	state      *identity.State
	doctors    DoctorLister
	projection session.ProjectionOptions
	activity   *activityLogger
	webhook    *activityWebhook
}

//go:embed openapi.yaml
var openapiSpec []byte

// Option configures the API instance.
type Option func(*API)

// WithLogger sets the structured logger for activity events.
// If not set, a default JSON logger writing to stderr is used.
func WithLogger(logger *slog.Logger) Option {
	return func(a *API) {
		a.activity = newActivityLogger(logger)
	}
}

// WithDoctors enables GET /doctors.
func WithDoctors(d DoctorLister) Option {
	return func(a *API) {
		a.doctors = d
	}
}

// WithProjection sets the image base URL and placeholder used by GET /profile.
func WithProjection(opts session.ProjectionOptions) Option {
	return func(a *API) {
		a.projection = opts
	}
}

// WithAlertFunc registers a callback for failure spikes.
func WithAlertFunc(fn AlertFunc) Option {
	return func(a *API) {
		a.activityLogger().metrics = newMetricsCollector(fn)
	}
}

// WithActivityWebhook forwards every activity event to url. authHeader is
// an optional "Header: Value" pair.
func WithActivityWebhook(url, authHeader string) Option {
	return func(a *API) {
		if url == "" {
			return
		}
		a.webhook = newActivityWebhook(url, authHeader)
		a.activityLogger().webhook = a.webhook
	}
}

func (a *API) activityLogger() *activityLogger {
	if a.activity == nil {
		a.activity = newActivityLogger(slog.New(slog.NewJSONHandler(os.Stderr, nil)))
	}
	return a.activity
}

// New creates a new API instance over state.
func New(state *identity.State, opts ...Option) *API {
	a := &API{state: state}
	for _, opt := range opts {
		opt(a)
	}
	a.activityLogger()
	return a
}

// Close flushes pending webhook deliveries.
func (a *API) Close() {
	if a.webhook != nil {
		a.webhook.close()
	}
}

// Router returns a chi.Router with all API routes mounted.
func (a *API) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(RequestID)

	r.Get("/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/yaml")
		w.Write(openapiSpec)
	})

	r.Handle("/docs*", middleware.SwaggerUI(middleware.SwaggerUIOpts{
		SpecURL: "/api/v1/openapi.yaml",
		Path:    "api/v1/docs",
	}, nil))

	r.Handle("/redoc*", middleware.Redoc(middleware.RedocOpts{
		SpecURL: "/api/v1/openapi.yaml",
		Path:    "api/v1/redoc",
	}, nil))

	r.Route("/session", func(r chi.Router) {
		r.Get("/", a.GetSession)
		r.Get("/info", a.GetSessionInfo)
		r.Post("/otp", a.SaveOTPSession)
		r.Post("/login", a.SaveLoginSession)
		r.Post("/user", a.SaveUserData)
		r.Patch("/profile", a.UpdateProfileField)
		r.Post("/refresh", a.RefreshProfile)
		r.Post("/logout", a.Logout)
	})

	r.Get("/profile", a.GetProfile)
	r.Get("/doctors", a.ListDoctors)

	return r
}
