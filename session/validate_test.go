package session

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidEmail(t *testing.T) {
	assert.True(t, ValidEmail("arun@example.com"))
	assert.False(t, ValidEmail("arun@example"))
	assert.False(t, ValidEmail("arun example@x.io"))
	assert.False(t, ValidEmail(""))

	for _, r := range []rune{'\v', '\u00a0', '\u1680', '\u2003', '\u2028', '\u2029', '\u202f', '\u205f', '\u3000', '\ufeff'} {
		assert.False(t, ValidEmail("a"+string(r)+"b@c.de"), "U+%04X in local part", r)
		assert.False(t, ValidEmail("ab@c"+string(r)+".de"), "U+%04X in domain", r)
	}
	assert.True(t, ValidEmail("arun.kumar@hospital.co.in"))
}

func TestValidPhone(t *testing.T) {
	assert.True(t, ValidPhone("8122839500"))
	assert.True(t, ValidPhone("(812) 283-9500"))
	assert.False(t, ValidPhone("12345"))
	assert.False(t, ValidPhone("+91 8122839500"))
}

func TestValidateField(t *testing.T) {
	tests := []struct {
		field string
		value any
		ok    bool
	}{
		{"name", "Arun", true},
		{"email", "arun@example.com", true},
		{"email", "not-an-email", false},
		{"emailId", 42, false},
		{"phone", "8122839500", true},
		{"phone", json.Number("8122839500"), true},
		{"phone", 8122839500.0, true},
		{"phone", json.Number("12345"), false},
		{"phone_number", "123", false},
		{FieldLoginTime, "x", false},
		{FieldExpiresAt, "x", false},
		{"", "x", false},
	}
	for _, tt := range tests {
		err := ValidateField(tt.field, tt.value)
		if tt.ok {
			assert.NoError(t, err, tt.field)
			continue
		}
		assert.Equal(t, InvalidInput, KindOf(err), tt.field)
	}
}
