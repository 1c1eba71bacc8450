// Package session persists OTP, login and user-profile session records in a
// storage.Store and derives validity and timing facts from them.
//
// Each key family is handled by a Codec. The collapsed methods (Save, Load,
// IsValid, UpdateField, Clear, SessionInfo) never return errors: failures
// become false or nil and are logged. Their rich twins (Write, Read, Check,
// Merge, Erase, Info) return a *Error carrying the failure Kind.
package session

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jmcleod/carepoint/internal/clock"
	"github.com/jmcleod/carepoint/storage"
)

// Record is a decoded composite record.
type Record struct {
	// Payload is the full stored object, stamps included.
	Payload   Payload
	IssuedAt  time.Time
	ExpiresAt time.Time
	// Token is set for families with a token shadow.
	Token string
}

// Codec reads and writes one key family.
type Codec struct {
	cfg          Config
	store        storage.Store
	clock        clock.Clock
	logger       *slog.Logger
	repairOnRead bool
}

// Option configures a Codec.
type Option func(*Codec)

// WithClock sets the time source used for stamping and expiry checks.
func WithClock(c clock.Clock) Option {
	return func(cd *Codec) {
		cd.clock = c
	}
}

// WithLogger sets the logger collapsed failures are reported to.
func WithLogger(l *slog.Logger) Option {
	return func(cd *Codec) {
		cd.logger = l
	}
}

// WithRepairOnRead makes every successful Read rewrite shadow keys that
// disagree with the composite record.
func WithRepairOnRead() Option {
	return func(cd *Codec) {
		cd.repairOnRead = true
	}
}

// New creates a Codec for cfg over store.
func New(store storage.Store, cfg Config, opts ...Option) *Codec {
	c := &Codec{
		cfg:    cfg,
		store:  store,
		clock:  clock.Real,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewOTP creates the OTP session codec.
func NewOTP(store storage.Store, opts ...Option) *Codec {
	return New(store, OTPConfig(), opts...)
}

// NewLogin creates the login session codec.
func NewLogin(store storage.Store, opts ...Option) *Codec {
	return New(store, LoginConfig(), opts...)
}

// NewUser creates the plain user-data codec.
func NewUser(store storage.Store, opts ...Option) *Codec {
	return New(store, UserConfig(), opts...)
}

// Name returns the key family name ("otp", "login", "user").
func (c *Codec) Name() string {
	return c.cfg.Name
}

// Config returns the codec's key family.
func (c *Codec) Config() Config {
	return c.cfg
}

func (c *Codec) fail(kind Kind, op, key string, err error) *Error {
	return &Error{Kind: kind, Codec: c.cfg.Name, Op: op, Key: key, Err: err}
}

func (c *Codec) logFailure(op string, err error) {
	kind := KindOf(err)
	level := slog.LevelWarn
	if kind == NotFound || kind == SessionExpired {
		level = slog.LevelDebug
	}
	c.logger.Log(context.Background(), level, "session operation failed",
		"codec", c.cfg.Name, "op", op, "kind", kind.String(), "error", err)
}

// ---------------------------------------------------------------------------
// Rich API
// ---------------------------------------------------------------------------

// Write stamps p (for stamped families) and replaces the stored record.
// The composite key is written first, then each shadow key in order. A
// failure part way leaves the earlier writes in place; see Verify.
func (c *Codec) Write(ctx context.Context, p Payload) (*Record, error) {
	composite := p.Clone()
	if composite == nil {
		composite = Payload{}
	}
	if c.cfg.Stamped() {
		now := c.clock.Now().UTC().Truncate(time.Millisecond)
		composite[FieldTimestamp] = now.UnixMilli()
		composite[FieldLoginTime] = FormatISO(now)
		composite[FieldExpiresAt] = FormatISO(now.Add(c.cfg.TTL))
	}
	return c.writeComposite(ctx, "save", composite)
}

func (c *Codec) writeComposite(ctx context.Context, op string, composite Payload) (*Record, error) {
	data, err := encodePayload(composite)
	if err != nil {
		return nil, c.fail(InvalidInput, op, c.cfg.PrimaryKey, err)
	}
	shadows, err := c.shadowOps(composite)
	if err != nil {
		return nil, c.fail(InvalidInput, op, c.cfg.ProfileKey, err)
	}
	ops := append([]storage.Op{storage.Set(c.cfg.PrimaryKey, data)}, shadows...)
	if err := storage.Apply(ctx, c.store, ops...); err != nil {
		key := c.cfg.PrimaryKey
		var be *storage.BatchError
		if errors.As(err, &be) {
			key = be.Op.Key
		}
		return nil, c.fail(StorageWrite, op, key, err)
	}
	return c.recordFrom(composite), nil
}

// Read loads and decodes the composite record. A missing key yields a
// NotFound error; malformed JSON yields StorageParse.
func (c *Codec) Read(ctx context.Context) (*Record, error) {
	rec, err := c.read(ctx)
	if err != nil {
		return nil, err
	}
	if c.repairOnRead {
		if err := c.repairFrom(ctx, rec.Payload); err != nil {
			c.logFailure("repair", err)
		}
	}
	return rec, nil
}

func (c *Codec) read(ctx context.Context) (*Record, error) {
	raw, err := c.store.Get(ctx, c.cfg.PrimaryKey)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, c.fail(NotFound, "load", c.cfg.PrimaryKey, nil)
	}
	if err != nil {
		return nil, c.fail(StorageRead, "load", c.cfg.PrimaryKey, err)
	}
	p, err := DecodePayload([]byte(raw))
	if err != nil {
		return nil, c.fail(StorageParse, "load", c.cfg.PrimaryKey, err)
	}
	return c.recordFrom(p), nil
}

func (c *Codec) recordFrom(p Payload) *Record {
	rec := &Record{Payload: p}
	if t, ok := ParseTime(p[FieldLoginTime]); ok {
		rec.IssuedAt = t
	} else if t, ok := ParseTime(p[FieldTimestamp]); ok {
		rec.IssuedAt = t
	}
	if t, ok := ParseTime(p[FieldExpiresAt]); ok {
		rec.ExpiresAt = t
	}
	if c.cfg.TokenKey != "" {
		rec.Token = tokenOf(p)
	}
	return rec
}

// validAt returns nil when rec is usable at now.
func (c *Codec) validAt(rec *Record, now time.Time) error {
	if !c.cfg.Stamped() {
		return nil
	}
	if rec.ExpiresAt.IsZero() {
		return c.fail(StorageParse, "validate", c.cfg.PrimaryKey, errors.New("record has no expiresAt"))
	}
	if now.After(rec.ExpiresAt) {
		return c.fail(SessionExpired, "validate", c.cfg.PrimaryKey, nil)
	}
	return nil
}

// Check returns the record when it exists and is inside its validity
// window. Unstamped families are valid whenever a record exists.
func (c *Codec) Check(ctx context.Context) (*Record, error) {
	rec, err := c.Read(ctx)
	if err != nil {
		return nil, err
	}
	if err := c.validAt(rec, c.clock.Now()); err != nil {
		return rec, err
	}
	return rec, nil
}

// Merge sets one field and rewrites the record wholesale, keeping the
// original issue and expiry stamps. For families with a profile shadow the
// field lands in the profile object. Concurrent merges race; the last
// write wins.
func (c *Codec) Merge(ctx context.Context, field string, value any) (*Record, error) {
	if field == "" {
		return nil, c.fail(InvalidInput, "update", c.cfg.PrimaryKey, errors.New("field name is empty"))
	}
	if c.cfg.Stamped() && (field == FieldTimestamp || field == FieldLoginTime || field == FieldExpiresAt) {
		return nil, c.fail(InvalidInput, "update", c.cfg.PrimaryKey, errors.New("stamp fields are read-only"))
	}
	rec, err := c.read(ctx)
	if err != nil {
		return nil, err
	}
	composite := rec.Payload.Clone()
	if c.cfg.ProfileKey != "" {
		setProfileField(composite, field, value)
	} else {
		composite[field] = value
	}
	return c.writeComposite(ctx, "update", composite)
}

// Erase removes the composite and every shadow key. Erasing an absent
// record succeeds.
func (c *Codec) Erase(ctx context.Context) error {
	if err := c.store.MultiRemove(ctx, c.cfg.AllKeys()...); err != nil {
		return c.fail(StorageWrite, "clear", c.cfg.PrimaryKey, err)
	}
	return nil
}

// Info is a point-in-time view of a stamped record's validity window.
type Info struct {
	IssuedAt         time.Time `json:"issuedAt"`
	ExpiresAt        time.Time `json:"expiresAt"`
	ElapsedMinutes   int       `json:"elapsedMinutes"`
	RemainingMinutes int       `json:"remainingMinutes"`
	IsValid          bool      `json:"isValid"`
	IsExpired        bool      `json:"isExpired"`
}

// Info computes timing facts at call time. Unstamped families have no
// window and return (nil, nil).
func (c *Codec) Info(ctx context.Context) (*Info, error) {
	if !c.cfg.Stamped() {
		return nil, nil
	}
	rec, err := c.Read(ctx)
	if err != nil {
		return nil, err
	}
	if rec.IssuedAt.IsZero() || rec.ExpiresAt.IsZero() {
		return nil, c.fail(StorageParse, "info", c.cfg.PrimaryKey, errors.New("record is missing stamps"))
	}
	now := c.clock.Now()
	remaining := FloorMinutes(rec.ExpiresAt.Sub(now))
	if remaining < 0 {
		remaining = 0
	}
	valid := !now.After(rec.ExpiresAt)
	return &Info{
		IssuedAt:         rec.IssuedAt,
		ExpiresAt:        rec.ExpiresAt,
		ElapsedMinutes:   FloorMinutes(now.Sub(rec.IssuedAt)),
		RemainingMinutes: remaining,
		IsValid:          valid,
		IsExpired:        !valid,
	}, nil
}

// ---------------------------------------------------------------------------
// Collapsed API
// ---------------------------------------------------------------------------

// Save writes p and reports success. Callers must check the result.
func (c *Codec) Save(ctx context.Context, p Payload) bool {
	if _, err := c.Write(ctx, p); err != nil {
		c.logFailure("save", err)
		return false
	}
	return true
}

// Load returns the stored object, or nil when it is absent or unreadable.
func (c *Codec) Load(ctx context.Context) Payload {
	rec, err := c.Read(ctx)
	if err != nil {
		c.logFailure("load", err)
		return nil
	}
	return rec.Payload
}

// IsValid reports whether a record exists and has not expired.
func (c *Codec) IsValid(ctx context.Context) bool {
	if _, err := c.Check(ctx); err != nil {
		c.logFailure("validate", err)
		return false
	}
	return true
}

// UpdateField merges {name: value} into the stored record.
func (c *Codec) UpdateField(ctx context.Context, name string, value any) bool {
	if _, err := c.Merge(ctx, name, value); err != nil {
		c.logFailure("update", err)
		return false
	}
	return true
}

// Clear removes the record and its shadows.
func (c *Codec) Clear(ctx context.Context) bool {
	if err := c.Erase(ctx); err != nil {
		c.logFailure("clear", err)
		return false
	}
	return true
}

// SessionInfo returns Info, or nil on any failure or for unstamped families.
func (c *Codec) SessionInfo(ctx context.Context) *Info {
	info, err := c.Info(ctx)
	if err != nil {
		c.logFailure("info", err)
		return nil
	}
	return info
}
