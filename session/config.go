package session

import "time"

// Storage keys. These names are shared with existing installs and must not change.
const (
	KeyOTPResponse    = "otpResponse"
	KeyUserLoginTime  = "userLoginTime"
	KeyLoginResponse  = "loginResponse"
	KeyUserToken      = "userToken"
	KeyUserProfile    = "userProfile"
	KeyLoginTimestamp = "loginTimestamp"
	KeyUserData       = "userData"
)

// Stamp fields merged into every stamped composite record.
const (
	FieldTimestamp = "timestamp"
	FieldLoginTime = "loginTime"
	FieldExpiresAt = "expiresAt"
)

// DefaultTTL is the fixed validity window of OTP and login sessions.
const DefaultTTL = 24 * time.Hour

// Config describes one key family. A zero TTL means records are stored
// as-is with no stamps and never expire.
type Config struct {
	Name       string
	PrimaryKey string
	// TimeKey, when set, mirrors the ISO issue time.
	TimeKey string
	// TokenKey, when set, mirrors the bearer token.
	TokenKey string
	// ProfileKey, when set, mirrors the profile object as JSON.
	ProfileKey string
	TTL        time.Duration
}

// Stamped reports whether records carry issue and expiry times.
func (c Config) Stamped() bool {
	return c.TTL > 0
}

// ShadowKeys lists the auxiliary keys in write order.
func (c Config) ShadowKeys() []string {
	var keys []string
	for _, k := range []string{c.TokenKey, c.ProfileKey, c.TimeKey} {
		if k != "" {
			keys = append(keys, k)
		}
	}
	return keys
}

// AllKeys lists the primary key followed by the shadows.
func (c Config) AllKeys() []string {
	return append([]string{c.PrimaryKey}, c.ShadowKeys()...)
}

// OTPConfig is the key family written after OTP verification.
func OTPConfig() Config {
	return Config{
		Name:       "otp",
		PrimaryKey: KeyOTPResponse,
		TimeKey:    KeyUserLoginTime,
		TTL:        DefaultTTL,
	}
}

// LoginConfig is the key family written after password login.
func LoginConfig() Config {
	return Config{
		Name:       "login",
		PrimaryKey: KeyLoginResponse,
		TokenKey:   KeyUserToken,
		ProfileKey: KeyUserProfile,
		TimeKey:    KeyLoginTimestamp,
		TTL:        DefaultTTL,
	}
}

// UserConfig is the plain profile cache with no expiry semantics.
func UserConfig() Config {
	return Config{
		Name:       "user",
		PrimaryKey: KeyUserData,
	}
}
