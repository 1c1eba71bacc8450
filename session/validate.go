package session

import (
	"errors"
	"regexp"
	"slices"
)

// emailPart also excludes Unicode space separators, \v and the BOM, which
// RE2's ASCII-only \s misses.
const emailPart = `[^\s\v\p{Z}\x{FEFF}@]+`

var (
	emailPattern = regexp.MustCompile(`^` + emailPart + `@` + emailPart + `\.` + emailPart + `$`)
	nonDigit     = regexp.MustCompile(`[^0-9]`)
)

// ValidEmail applies the fixed acceptance rule used by the sign-up form.
func ValidEmail(s string) bool {
	return emailPattern.MatchString(s)
}

// ValidPhone accepts exactly ten digits once every non-digit is stripped.
func ValidPhone(s string) bool {
	return len(nonDigit.ReplaceAllString(s, "")) == 10
}

// ValidateField checks a profile edit before it is merged. Only email and
// phone fields carry rules; stamp fields are rejected outright.
func ValidateField(field string, value any) error {
	if field == "" {
		return &Error{Kind: InvalidInput, Op: "validate", Err: errors.New("field is required")}
	}
	s, ok := value.(string)
	if !ok {
		s, _ = scalarString(value)
	}
	var msg string
	switch {
	case field == FieldTimestamp || field == FieldLoginTime || field == FieldExpiresAt:
		msg = "field is read-only"
	case slices.Contains(EmailKeys, field) && !ValidEmail(s):
		msg = "invalid email address"
	case slices.Contains(PhoneKeys, field) && !ValidPhone(s):
		msg = "phone number must have exactly 10 digits"
	default:
		return nil
	}
	return &Error{Kind: InvalidInput, Op: "validate", Key: field, Err: errors.New(msg)}
}
