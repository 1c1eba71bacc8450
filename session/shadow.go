package session

import (
	"context"
	"errors"
	"reflect"

	"github.com/jmcleod/carepoint/storage"
)

// profileContainers are the nested objects a login response may wrap the
// profile in, checked in order.
var profileContainers = []string{"user", "data", "patient"}

func tokenOf(p Payload) string {
	return p.String("token", "access_token", "accessToken")
}

// profileOf returns the profile object embedded in a composite and the
// container key it lives under ("" for top level). A top-level profile is
// the composite minus the token and stamp fields.
func profileOf(p Payload) (Payload, string) {
	for _, k := range profileContainers {
		if obj := p.Object(k); obj != nil {
			return obj, k
		}
	}
	profile := p.Clone()
	for _, k := range []string{"token", "access_token", "accessToken", FieldTimestamp, FieldLoginTime, FieldExpiresAt} {
		delete(profile, k)
	}
	return profile, ""
}

// ProfileOf returns the profile object embedded in a stored record.
func ProfileOf(p Payload) Payload {
	profile, _ := profileOf(p)
	return profile
}

// TokenOf returns the bearer token carried by a stored record.
func TokenOf(p Payload) string {
	return tokenOf(p)
}

func setProfileField(composite Payload, field string, value any) {
	profile, container := profileOf(composite)
	if container == "" {
		composite[field] = value
		return
	}
	updated := profile.Clone()
	updated[field] = value
	composite[container] = map[string]any(updated)
}

type shadowValue struct {
	key     string
	value   string
	present bool
}

// shadowValues derives what every shadow key should hold for composite.
func (c *Codec) shadowValues(composite Payload) ([]shadowValue, error) {
	var out []shadowValue
	if c.cfg.TokenKey != "" {
		tok := tokenOf(composite)
		out = append(out, shadowValue{key: c.cfg.TokenKey, value: tok, present: tok != ""})
	}
	if c.cfg.ProfileKey != "" {
		profile, _ := profileOf(composite)
		data, err := encodePayload(profile)
		if err != nil {
			return nil, err
		}
		out = append(out, shadowValue{key: c.cfg.ProfileKey, value: data, present: true})
	}
	if c.cfg.TimeKey != "" {
		issued, ok := ParseTime(composite[FieldLoginTime])
		if !ok {
			issued, ok = ParseTime(composite[FieldTimestamp])
		}
		sv := shadowValue{key: c.cfg.TimeKey, present: ok}
		if ok {
			sv.value = FormatISO(issued)
		}
		out = append(out, sv)
	}
	return out, nil
}

func (c *Codec) shadowOps(composite Payload) ([]storage.Op, error) {
	values, err := c.shadowValues(composite)
	if err != nil {
		return nil, err
	}
	ops := make([]storage.Op, 0, len(values))
	for _, sv := range values {
		if sv.present {
			ops = append(ops, storage.Set(sv.key, sv.value))
		} else {
			ops = append(ops, storage.Remove(sv.key))
		}
	}
	return ops, nil
}

// Token returns the bearer token from its shadow key, falling back to the
// composite record. Empty when there is none or the family has no token.
func (c *Codec) Token(ctx context.Context) string {
	if c.cfg.TokenKey == "" {
		return ""
	}
	tok, err := c.store.Get(ctx, c.cfg.TokenKey)
	if err == nil && tok != "" {
		return tok
	}
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		c.logFailure("token", c.fail(StorageRead, "token", c.cfg.TokenKey, err))
	}
	rec, err := c.read(ctx)
	if err != nil {
		return ""
	}
	return rec.Token
}

// Profile returns the profile object from its shadow key, falling back to
// the composite record. Families without a profile shadow return the
// composite itself.
func (c *Codec) Profile(ctx context.Context) Payload {
	if c.cfg.ProfileKey != "" {
		raw, err := c.store.Get(ctx, c.cfg.ProfileKey)
		if err == nil {
			if p, err := DecodePayload([]byte(raw)); err == nil {
				return p
			}
		}
	}
	rec, err := c.read(ctx)
	if err != nil {
		return nil
	}
	if c.cfg.ProfileKey == "" {
		return rec.Payload
	}
	profile, _ := profileOf(rec.Payload)
	return profile
}

// Consistency reports how shadow keys relate to the composite record.
type Consistency struct {
	CompositePresent bool     `json:"compositePresent"`
	Diverged         []string `json:"diverged,omitempty"`
	Orphaned         []string `json:"orphaned,omitempty"`
}

// OK reports whether every shadow agrees with the composite.
func (c Consistency) OK() bool {
	return len(c.Diverged) == 0 && len(c.Orphaned) == 0
}

// Verify compares each shadow key to the value derived from the composite.
// Shadows left behind without a composite are reported as orphaned.
func (c *Codec) Verify(ctx context.Context) (*Consistency, error) {
	rec, err := c.read(ctx)
	if err != nil && !IsNotFound(err) {
		return nil, err
	}
	out := &Consistency{CompositePresent: rec != nil}

	if rec == nil {
		for _, k := range c.cfg.ShadowKeys() {
			_, err := c.store.Get(ctx, k)
			switch {
			case err == nil:
				out.Orphaned = append(out.Orphaned, k)
			case !errors.Is(err, storage.ErrNotFound):
				return nil, c.fail(StorageRead, "verify", k, err)
			}
		}
		return out, nil
	}

	want, err := c.shadowValues(rec.Payload)
	if err != nil {
		return nil, c.fail(StorageParse, "verify", c.cfg.PrimaryKey, err)
	}
	for _, sv := range want {
		got, err := c.store.Get(ctx, sv.key)
		missing := errors.Is(err, storage.ErrNotFound)
		if err != nil && !missing {
			return nil, c.fail(StorageRead, "verify", sv.key, err)
		}
		if missing != !sv.present || (sv.present && !sameValue(sv.key == c.cfg.ProfileKey, got, sv.value)) {
			out.Diverged = append(out.Diverged, sv.key)
		}
	}
	return out, nil
}

// sameValue compares shadow contents; JSON shadows compare structurally.
func sameValue(isJSON bool, got, want string) bool {
	if !isJSON {
		return got == want
	}
	a, errA := DecodePayload([]byte(got))
	b, errB := DecodePayload([]byte(want))
	if errA != nil || errB != nil {
		return got == want
	}
	return reflect.DeepEqual(a, b)
}

// Repair makes the shadows agree with the composite. When the composite is
// absent, orphaned shadows are removed.
func (c *Codec) Repair(ctx context.Context) error {
	rec, err := c.read(ctx)
	if IsNotFound(err) {
		if err := c.store.MultiRemove(ctx, c.cfg.ShadowKeys()...); err != nil {
			return c.fail(StorageWrite, "repair", c.cfg.PrimaryKey, err)
		}
		return nil
	}
	if err != nil {
		return err
	}
	return c.repairFrom(ctx, rec.Payload)
}

func (c *Codec) repairFrom(ctx context.Context, composite Payload) error {
	if len(c.cfg.ShadowKeys()) == 0 {
		return nil
	}
	report, err := c.Verify(ctx)
	if err != nil {
		return err
	}
	if report.OK() {
		return nil
	}
	diverged := make(map[string]bool, len(report.Diverged))
	for _, k := range report.Diverged {
		diverged[k] = true
	}
	all, err := c.shadowOps(composite)
	if err != nil {
		return c.fail(StorageParse, "repair", c.cfg.ProfileKey, err)
	}
	var ops []storage.Op
	for _, op := range all {
		if diverged[op.Key] {
			ops = append(ops, op)
		}
	}
	if err := storage.Apply(ctx, c.store, ops...); err != nil {
		return c.fail(StorageWrite, "repair", c.cfg.PrimaryKey, err)
	}
	c.logger.Info("repaired session shadows", "codec", c.cfg.Name, "keys", report.Diverged)
	return nil
}
