// Package backend talks to the remote healthcare REST API: the doctor
// directory and the patient profile endpoint.
package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/awnumar/memguard"
	"github.com/google/uuid"

	"github.com/jmcleod/carepoint/session"
)

// Default endpoint paths, relative to the base URL.
const (
	DefaultDoctorsPath = "/doctors"
	DefaultProfilePath = "/patient/profile"
	DefaultTimeout     = 15 * time.Second
)

// maxResponseBytes bounds how much of a response body is read.
const maxResponseBytes = 4 << 20

// ErrUnexpectedStatus is wrapped when the API answers with a non-2xx status.
var ErrUnexpectedStatus = errors.New("unexpected status")

// ErrUnexpectedShape is wrapped when a response body matches no known shape.
var ErrUnexpectedShape = errors.New("unexpected response shape")

// Config describes how to reach the API.
type Config struct {
	BaseURL     string
	DoctorsPath string
	ProfilePath string
	Username    string
	// Password is copied into protected memory; the caller's slice is wiped.
	Password []byte
	Timeout  time.Duration
}

// Client is a Basic-Auth REST client. The password lives in a memguard
// Enclave and is only decrypted for the duration of a request.
type Client struct {
	base        *url.URL
	doctorsPath string
	profilePath string
	username    string
	secret      *memguard.Enclave
	http        *http.Client
	logger      *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// New validates cfg and returns a Client.
func New(cfg Config, opts ...Option) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("backend: base URL is required")
	}
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("backend: parsing base URL: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("backend: unsupported URL scheme %q", base.Scheme)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	c := &Client{
		base:        base,
		doctorsPath: orDefault(cfg.DoctorsPath, DefaultDoctorsPath),
		profilePath: orDefault(cfg.ProfilePath, DefaultProfilePath),
		username:    cfg.Username,
		http:        &http.Client{Timeout: timeout},
		logger:      slog.Default(),
	}
	if len(cfg.Password) > 0 {
		// NewEnclave wipes the source slice.
		c.secret = memguard.NewEnclave(cfg.Password)
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func (c *Client) endpoint(path string, query url.Values) string {
	u := *c.base
	u.Path = strings.TrimSuffix(u.Path, "/") + "/" + strings.TrimPrefix(path, "/")
	if query != nil {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

func (c *Client) networkError(op string, err error) error {
	return &session.Error{Kind: session.NetworkFailure, Op: op, Err: err}
}

// get issues an authenticated GET and decodes the JSON body into an
// untyped value with numbers kept as json.Number.
func (c *Client) get(ctx context.Context, op, target string) (any, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, c.networkError(op, err)
	}
	req.Header.Set("Accept", "application/json")
	requestID := uuid.NewString()
	req.Header.Set("X-Request-ID", requestID)
	if err := c.authorize(req); err != nil {
		return nil, c.networkError(op, err)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("backend request failed", "op", op, "request_id", requestID, "error", err)
		return nil, c.networkError(op, err)
	}
	defer resp.Body.Close()
	c.logger.Debug("backend request", "op", op, "request_id", requestID,
		"status", resp.StatusCode, "duration", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
		return nil, c.networkError(op, fmt.Errorf("%w %d", ErrUnexpectedStatus, resp.StatusCode))
	}

	dec := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes))
	dec.UseNumber()
	var body any
	if err := dec.Decode(&body); err != nil {
		return nil, c.networkError(op, fmt.Errorf("decoding response: %w", err))
	}
	return body, nil
}

func (c *Client) authorize(req *http.Request) error {
	if c.secret == nil {
		return nil
	}
	buf, err := c.secret.Open()
	if err != nil {
		return fmt.Errorf("opening credentials: %w", err)
	}
	defer buf.Destroy()
	req.SetBasicAuth(c.username, string(buf.Bytes()))
	return nil
}
